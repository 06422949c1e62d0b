package session

import (
	"context"
	"fmt"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

const (
	textCodeInvalidTransition = "INVALID_SESSION_TRANSITION"
)

// SessionStatus is one of the lifecycle states a session moves through.
type SessionStatus string

const (
	// StatusUnknown is the hydrating state: the stored session has not been
	// loaded yet and dependent UI must not render protected content.
	StatusUnknown SessionStatus = "unknown"
	// StatusLoggedOut means no valid stored token+profile pair exists.
	StatusLoggedOut SessionStatus = "logged_out"
	// StatusLoggedIn means a stored token+profile pair passed the last check.
	StatusLoggedIn SessionStatus = "logged_in"
	// StatusExpired means an expiry predicate ended the session; it behaves
	// as logged out, keeping the cause around for the notice.
	StatusExpired SessionStatus = "expired"
)

// ErrInvalidTransition is returned when a requested status change is not allowed.
var ErrInvalidTransition = goerrors.New("invalid session state transition", goerrors.CategoryConflict).
	WithTextCode(textCodeInvalidTransition).
	WithCode(goerrors.CodeConflict)

// TransitionContext is passed into hooks for additional processing.
type TransitionContext struct {
	Actor ActorRef
	From  SessionStatus
	To    SessionStatus
	Cause ExpiryCause
}

// TransitionHook is executed after a transition is validated.
type TransitionHook func(ctx context.Context, tc TransitionContext) error

// TransitionOption customizes a single transition.
type TransitionOption func(*transitionOptions)

// StateMachineOption customizes state machine construction.
type StateMachineOption func(*sessionStateMachine)

// WithStateMachineClock injects a custom clock (useful for tests).
func WithStateMachineClock(clock func() time.Time) StateMachineOption {
	return func(sm *sessionStateMachine) {
		if clock != nil {
			sm.now = clock
		}
	}
}

// WithStateMachineActivitySink sets the ActivitySink used to publish lifecycle events.
func WithStateMachineActivitySink(sink ActivitySink) StateMachineOption {
	return func(sm *sessionStateMachine) {
		sm.activitySink = normalizeActivitySink(sink)
	}
}

// WithStateMachineLogger overrides the logger used for sink failures.
func WithStateMachineLogger(logger Logger) StateMachineOption {
	return func(sm *sessionStateMachine) {
		if logger != nil {
			sm.logger = logger
		}
	}
}

// WithTransitionCause records which expiry predicate drove the transition.
func WithTransitionCause(cause ExpiryCause) TransitionOption {
	return func(opts *transitionOptions) {
		opts.cause = cause
	}
}

// WithTransitionHook adds a hook executed once the transition is validated.
func WithTransitionHook(h TransitionHook) TransitionOption {
	return func(opts *transitionOptions) {
		if h != nil {
			opts.hooks = append(opts.hooks, h)
		}
	}
}

// SessionStateMachine validates lifecycle transitions and publishes them.
type SessionStateMachine interface {
	Transition(ctx context.Context, actor ActorRef, from, to SessionStatus, opts ...TransitionOption) (SessionStatus, error)
	CanTransition(from, to SessionStatus) bool
}

// NewSessionStateMachine returns the default implementation.
func NewSessionStateMachine(opts ...StateMachineOption) SessionStateMachine {
	sm := &sessionStateMachine{
		transitions: map[SessionStatus]map[SessionStatus]struct{}{
			StatusUnknown: {
				StatusLoggedIn:  {},
				StatusLoggedOut: {},
			},
			StatusLoggedOut: {
				StatusLoggedIn: {},
			},
			StatusLoggedIn: {
				StatusLoggedOut: {},
				StatusExpired:   {},
			},
			StatusExpired: {
				StatusLoggedOut: {},
				StatusLoggedIn:  {},
			},
		},
		now:          time.Now,
		activitySink: noopActivitySink{},
		logger:       defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(sm)
		}
	}

	return sm
}

type sessionStateMachine struct {
	transitions  map[SessionStatus]map[SessionStatus]struct{}
	now          func() time.Time
	activitySink ActivitySink
	logger       Logger
}

type transitionOptions struct {
	cause ExpiryCause
	hooks []TransitionHook
}

func (sm *sessionStateMachine) Transition(ctx context.Context, actor ActorRef, from, to SessionStatus, opts ...TransitionOption) (SessionStatus, error) {
	if to == "" {
		return from, ErrInvalidTransition.WithMetadata(map[string]any{
			"reason": "target status is empty",
		})
	}

	if from == to {
		return from, nil
	}

	if !sm.CanTransition(from, to) {
		return from, ErrInvalidTransition.WithMetadata(map[string]any{
			"from": from,
			"to":   to,
		})
	}

	options := &transitionOptions{}
	for _, opt := range opts {
		if opt != nil {
			opt(options)
		}
	}

	ctxData := TransitionContext{
		Actor: actor,
		From:  from,
		To:    to,
		Cause: options.cause,
	}

	for _, hook := range options.hooks {
		if hook == nil {
			continue
		}
		if err := hook(ctx, ctxData); err != nil {
			return from, fmt.Errorf("session transition hook %s->%s: %w", from, to, err)
		}
	}

	sm.recordActivity(ctx, ActivityEvent{
		EventType:  ActivityEventStatusChanged,
		Actor:      actor,
		FromStatus: from,
		ToStatus:   to,
		Metadata:   transitionMetadata(options.cause),
	})

	return to, nil
}

func (sm *sessionStateMachine) CanTransition(from, to SessionStatus) bool {
	if allowed, ok := sm.transitions[from]; ok {
		_, exists := allowed[to]
		return exists
	}
	return false
}

func (sm *sessionStateMachine) recordActivity(ctx context.Context, event ActivityEvent) {
	if event.Actor == (ActorRef{}) {
		event.Actor = ActorRef{Type: "system"}
	}

	if event.OccurredAt.IsZero() {
		event.OccurredAt = sm.now()
	}

	sink := normalizeActivitySink(sm.activitySink)
	if err := sink.Record(ctx, event); err != nil {
		sm.logger.Warn("state machine activity sink error: %v", err)
	}
}

func transitionMetadata(cause ExpiryCause) map[string]any {
	if cause == CauseNone {
		return nil
	}
	return map[string]any{"cause": string(cause)}
}
