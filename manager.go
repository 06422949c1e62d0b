package session

import (
	"context"
	"sync"
	"time"
)

// Manager is the single source of truth for session state. It hydrates from
// the TokenStore on Start and owns every state change afterwards.
//
// State is per Manager instance: another tab (another instance over the same
// TokenStore) observes a logout here only when its own monitor or hydrate
// next reads the store. There is no cross-instance push.
type Manager struct {
	store   TokenStore
	api     AuthAPI
	machine SessionStateMachine

	logger        Logger
	now           func() time.Time
	activitySink  ActivitySink
	maxSessionAge time.Duration

	mu        sync.RWMutex
	status    SessionStatus
	user      *User
	token     string
	lastCause ExpiryCause
	tornDown  bool
}

// ManagerOption customizes Manager construction.
type ManagerOption func(*Manager)

// WithLogger overrides the default logger.
func WithLogger(logger Logger) ManagerOption {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithClock injects a custom clock (useful for tests).
func WithClock(clock func() time.Time) ManagerOption {
	return func(m *Manager) {
		if clock != nil {
			m.now = clock
		}
	}
}

// WithActivitySink configures an ActivitySink for session events.
func WithActivitySink(sink ActivitySink) ManagerOption {
	return func(m *Manager) {
		m.activitySink = normalizeActivitySink(sink)
	}
}

// WithMaxSessionAge overrides the rolling maximum session age.
func WithMaxSessionAge(window time.Duration) ManagerOption {
	return func(m *Manager) {
		if window > 0 {
			m.maxSessionAge = window
		}
	}
}

// WithStateMachine substitutes the lifecycle state machine.
func WithStateMachine(machine SessionStateMachine) ManagerOption {
	return func(m *Manager) {
		if machine != nil {
			m.machine = machine
		}
	}
}

// NewManager returns a Manager in the undetermined state; call Start to
// hydrate it before rendering anything protected.
func NewManager(store TokenStore, api AuthAPI, opts ...ManagerOption) *Manager {
	m := &Manager{
		store:         store,
		api:           api,
		logger:        defLogger{},
		now:           time.Now,
		activitySink:  noopActivitySink{},
		maxSessionAge: DefaultMaxSessionAge,
		status:        StatusUnknown,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}

	if m.machine == nil {
		m.machine = NewSessionStateMachine(
			WithStateMachineClock(m.now),
			WithStateMachineActivitySink(m.activitySink),
			WithStateMachineLogger(m.logger),
		)
	}

	return m
}

// Start hydrates session state from the TokenStore. Until it returns, the
// state is undetermined and callers must not treat the session as either
// logged in or out. A stored token that already fails an expiry predicate
// hydrates straight to logged out and the store is cleared.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.tornDown {
		return ErrSessionTornDown
	}

	stored, err := m.store.Load(ctx)
	if err != nil {
		m.logger.Warn("session hydrate load failed, treating as logged out: %v", err)
		stored = StoredState{}
	}

	if !stored.IsLoggedIn {
		return m.transitionLocked(ctx, ActorRef{Type: "system"}, StatusLoggedOut)
	}

	// A store may report logged in without a profile. That state is not a
	// session, so hydrate to logged out instead of trusting the flag.
	if stored.User == nil {
		m.logger.Warn("stored session has no profile, treating as logged out")
		if err := m.store.Clear(ctx); err != nil {
			m.logger.Warn("session hydrate clear failed: %v", err)
		}
		return m.transitionLocked(ctx, ActorRef{Type: "system"}, StatusLoggedOut)
	}

	if cause := Evaluate(stored.Token, m.now(), m.maxSessionAge); cause != CauseNone {
		m.lastCause = cause
		if err := m.store.Clear(ctx); err != nil {
			m.logger.Warn("session hydrate clear failed: %v", err)
		}
		m.emitEvent(ctx, ActivityEventExpired, actorFromUser(stored.User), stored.User.ID, map[string]any{
			"cause": string(cause),
		})
		return m.transitionLocked(ctx, actorFromUser(stored.User), StatusLoggedOut)
	}

	if err := m.transitionLocked(ctx, actorFromUser(stored.User), StatusLoggedIn); err != nil {
		return err
	}

	m.user = stored.User
	m.token = stored.Token
	return nil
}

// Login authenticates against the external service. On success the session
// becomes logged in and the TokenStore is populated. Rejections and
// transport failures come back as rich errors carrying the message a page
// can show; session state is left untouched by any failure.
func (m *Manager) Login(ctx context.Context, identifier, password string) (*User, error) {
	resp, err := m.api.Login(ctx, identifier, password)
	if err != nil {
		m.emitEvent(ctx, ActivityEventLoginFailure, ActorRef{Type: "unknown"}, "", map[string]any{
			"identifier": identifier,
			"error":      err.Error(),
		})
		return nil, err
	}

	if !resp.Success || resp.User == nil || resp.Token == "" {
		m.emitEvent(ctx, ActivityEventLoginFailure, ActorRef{Type: "unknown"}, "", map[string]any{
			"identifier": identifier,
			"message":    resp.Message,
		})
		return nil, loginRejectedError(resp.Message)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.tornDown {
		return nil, ErrSessionTornDown
	}

	prevStatus := m.status
	if err := m.transitionLocked(ctx, actorFromUser(resp.User), StatusLoggedIn); err != nil {
		return nil, err
	}

	if err := m.store.Save(ctx, resp.Token, resp.User); err != nil {
		m.logger.Error("session store save failed: %v", err)
		m.status = prevStatus
		return nil, serviceFailureError(err, "unable to persist session")
	}

	m.user = resp.User
	m.token = resp.Token
	m.lastCause = CauseNone

	m.emitEvent(ctx, ActivityEventLoginSuccess, actorFromUser(resp.User), resp.User.ID, map[string]any{
		"identifier": identifier,
	})

	return m.user.Clone(), nil
}

// Logout clears in-memory state and the TokenStore. It is idempotent and
// safe to call when already logged out.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.logoutLocked(ctx, actorFromUser(m.user), CauseNone)
}

// Expire ends a logged-in session because an expiry predicate fired. The
// cause is kept so the host can show the right notice; everything else
// behaves like Logout. A session that is not logged in is left alone.
func (m *Manager) Expire(ctx context.Context, cause ExpiryCause) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.status != StatusLoggedIn {
		return nil
	}

	actor := actorFromUser(m.user)
	userID := ""
	if m.user != nil {
		userID = m.user.ID
	}

	if err := m.transitionLocked(ctx, actor, StatusExpired, WithTransitionCause(cause)); err != nil {
		return err
	}

	m.user = nil
	m.token = ""
	m.lastCause = cause

	if err := m.store.Clear(ctx); err != nil {
		m.logger.Warn("session store clear failed on expiry: %v", err)
	}

	m.emitEvent(ctx, ActivityEventExpired, actor, userID, map[string]any{
		"cause": string(cause),
	})

	return nil
}

// UpdateUser sends a profile patch for the current user and replaces the
// in-memory and stored profile with what the server returns. It requires a
// logged-in session and preserves state unchanged on any failure.
func (m *Manager) UpdateUser(ctx context.Context, patch map[string]any) (*User, error) {
	m.mu.RLock()
	if m.status != StatusLoggedIn || m.user == nil {
		m.mu.RUnlock()
		return nil, ErrNotAuthenticated
	}
	userID := m.user.ID
	m.mu.RUnlock()

	resp, err := m.api.UpdateProfile(ctx, userID, patch)
	if err != nil {
		return nil, err
	}

	if !resp.Success || resp.User == nil {
		return nil, updateRejectedError(resp.Message)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// The session may have ended while the call was in flight; drop the
	// result rather than resurrecting a logged-out profile.
	if m.tornDown {
		return nil, ErrSessionTornDown
	}
	if m.status != StatusLoggedIn || m.user == nil || m.user.ID != userID {
		return nil, ErrNotAuthenticated
	}

	if err := m.store.Save(ctx, m.token, resp.User); err != nil {
		m.logger.Error("session store save failed on profile update: %v", err)
		return nil, serviceFailureError(err, "unable to persist session")
	}

	m.user = resp.User

	m.emitEvent(ctx, ActivityEventProfileUpdated, actorFromUser(resp.User), resp.User.ID, nil)

	return m.user.Clone(), nil
}

// Teardown marks the manager as finished. In-flight operations resolving
// afterwards are dropped. It does not touch the TokenStore: a page unload
// is not a logout.
func (m *Manager) Teardown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tornDown = true
}

// Status returns the lifecycle state. StatusUnknown means hydration has not
// completed and protected content must not render yet.
func (m *Manager) Status() SessionStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

// IsLoggedIn reports whether a valid stored token+profile pair backs the
// session as of the last check.
func (m *Manager) IsLoggedIn() bool {
	return m.Status() == StatusLoggedIn
}

// CurrentUser returns a copy of the logged-in profile, or nil.
func (m *Manager) CurrentUser() *User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.user.Clone()
}

// Token returns the raw bearer token for the current session, or "".
func (m *Manager) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token
}

// LastExpiry returns which predicate ended the previous session, if any.
// Login resets it.
func (m *Manager) LastExpiry() ExpiryCause {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastCause
}

// MaxSessionAge returns the rolling window enforced on iat.
func (m *Manager) MaxSessionAge() time.Duration {
	return m.maxSessionAge
}

func (m *Manager) logoutLocked(ctx context.Context, actor ActorRef, cause ExpiryCause) error {
	userID := ""
	if m.user != nil {
		userID = m.user.ID
	}

	if m.status != StatusLoggedOut {
		opts := []TransitionOption{}
		if cause != CauseNone {
			opts = append(opts, WithTransitionCause(cause))
		}
		if err := m.transitionLocked(ctx, actor, StatusLoggedOut, opts...); err != nil {
			return err
		}
	}

	m.user = nil
	m.token = ""

	if err := m.store.Clear(ctx); err != nil {
		m.logger.Warn("session store clear failed: %v", err)
	}

	if userID != "" {
		m.emitEvent(ctx, ActivityEventLogout, actor, userID, nil)
	}

	return nil
}

func (m *Manager) transitionLocked(ctx context.Context, actor ActorRef, to SessionStatus, opts ...TransitionOption) error {
	next, err := m.machine.Transition(ctx, actor, m.status, to, opts...)
	if err != nil {
		return err
	}
	m.status = next
	return nil
}

func (m *Manager) emitEvent(ctx context.Context, eventType ActivityEventType, actor ActorRef, userID string, metadata map[string]any) {
	sink := normalizeActivitySink(m.activitySink)
	event := ActivityEvent{
		EventType: eventType,
		Actor:     actor,
		UserID:    userID,
		Metadata:  metadata,
	}

	if event.Metadata == nil {
		event.Metadata = map[string]any{}
	}

	if event.OccurredAt.IsZero() {
		event.OccurredAt = m.now()
	}

	if err := sink.Record(ctx, event); err != nil {
		m.logger.Warn("activity sink record error: %v", err)
	}
}

func actorFromUser(user *User) ActorRef {
	if user == nil {
		return ActorRef{Type: "unknown"}
	}

	return ActorRef{
		ID:   user.ID,
		Type: "user",
	}
}
