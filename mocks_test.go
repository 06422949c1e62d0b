package session_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-router"
	"github.com/stretchr/testify/mock"

	session "github.com/giraffespace/go-session"
)

// MockAuthAPI implements session.AuthAPI
type MockAuthAPI struct {
	mock.Mock
}

func (m *MockAuthAPI) Login(ctx context.Context, identifier, password string) (*session.LoginResponse, error) {
	args := m.Called(ctx, identifier, password)
	resp, _ := args.Get(0).(*session.LoginResponse)
	return resp, args.Error(1)
}

func (m *MockAuthAPI) UpdateProfile(ctx context.Context, userID string, patch map[string]any) (*session.UpdateResponse, error) {
	args := m.Called(ctx, userID, patch)
	resp, _ := args.Get(0).(*session.UpdateResponse)
	return resp, args.Error(1)
}

// failingStore wraps a TokenStore and forces errors on selected operations.
type failingStore struct {
	session.TokenStore
	saveErr  error
	loadErr  error
	clearErr error
}

func (s *failingStore) Save(ctx context.Context, token string, user *session.User) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	return s.TokenStore.Save(ctx, token, user)
}

func (s *failingStore) Load(ctx context.Context) (session.StoredState, error) {
	if s.loadErr != nil {
		return session.StoredState{}, s.loadErr
	}
	return s.TokenStore.Load(ctx)
}

func (s *failingStore) Clear(ctx context.Context) error {
	if s.clearErr != nil {
		return s.clearErr
	}
	return s.TokenStore.Clear(ctx)
}

// headlessStore reports a logged-in state that carries no profile.
type headlessStore struct {
	session.TokenStore
	token   string
	cleared bool
}

func (s *headlessStore) Load(ctx context.Context) (session.StoredState, error) {
	if s.cleared {
		return session.StoredState{}, nil
	}
	return session.StoredState{IsLoggedIn: true, Token: s.token}, nil
}

func (s *headlessStore) Clear(ctx context.Context) error {
	s.cleared = true
	return s.TokenStore.Clear(ctx)
}

// capturingLogger renders each line the way defLogger would.
type capturingLogger struct {
	lines []string
}

func (l *capturingLogger) log(format string, args ...any) {
	l.lines = append(l.lines, fmt.Sprintf(format, args...))
}

func (l *capturingLogger) Debug(format string, args ...any) { l.log(format, args...) }
func (l *capturingLogger) Info(format string, args ...any)  { l.log(format, args...) }
func (l *capturingLogger) Warn(format string, args ...any)  { l.log(format, args...) }
func (l *capturingLogger) Error(format string, args ...any) { l.log(format, args...) }

// recordingSink collects activity events for inspection.
type recordingSink struct {
	events []session.ActivityEvent
}

func (s *recordingSink) Record(_ context.Context, event session.ActivityEvent) error {
	s.events = append(s.events, event)
	return nil
}

func (s *recordingSink) eventsOfType(t session.ActivityEventType) []session.ActivityEvent {
	var out []session.ActivityEvent
	for _, e := range s.events {
		if e.EventType == t {
			out = append(out, e)
		}
	}
	return out
}

// testContext is a stateful router.Context double. The embedded MockContext
// keeps it satisfying the interface while the overrides below back the
// methods this package actually exercises with plain maps.
type testContext struct {
	*router.MockContext

	path   string
	method string

	query   map[string]string
	cookies map[string]string
	locals  map[any]any

	setCookies []*router.Cookie

	bindFn func(any) error

	renderedView string
	renderedData router.ViewContext

	redirectTo     string
	redirectStatus int

	nextCalled bool
}

func newTestContext() *testContext {
	return &testContext{
		MockContext: router.NewMockContext(),
		path:        "/",
		method:      "GET",
		query:       map[string]string{},
		cookies:     map[string]string{},
		locals:      map[any]any{},
	}
}

func (c *testContext) Next() error {
	c.nextCalled = true
	return nil
}

func (c *testContext) Context() context.Context {
	return context.Background()
}

func (c *testContext) Path() string {
	return c.path
}

func (c *testContext) Method() string {
	return c.method
}

func (c *testContext) Query(key string, def ...string) string {
	if v, ok := c.query[key]; ok {
		return v
	}
	if len(def) > 0 {
		return def[0]
	}
	return ""
}

func (c *testContext) Cookies(key string, def ...string) string {
	if v, ok := c.cookies[key]; ok {
		return v
	}
	if len(def) > 0 {
		return def[0]
	}
	return ""
}

func (c *testContext) Cookie(cookie *router.Cookie) {
	c.setCookies = append(c.setCookies, cookie)
	if cookie.Expires.Before(time.Now()) {
		delete(c.cookies, cookie.Name)
		return
	}
	c.cookies[cookie.Name] = cookie.Value
}

func (c *testContext) Locals(key any, value ...any) any {
	if len(value) > 0 {
		c.locals[key] = value[0]
		return value[0]
	}
	return c.locals[key]
}

func (c *testContext) Bind(i any) error {
	if c.bindFn != nil {
		return c.bindFn(i)
	}
	return nil
}

func (c *testContext) Render(name string, bind any, layout ...string) error {
	c.renderedView = name
	if vc, ok := bind.(router.ViewContext); ok {
		c.renderedData = vc
	}
	return nil
}

func (c *testContext) Redirect(path string, status ...int) error {
	c.redirectTo = path
	if len(status) > 0 {
		c.redirectStatus = status[0]
	}
	return nil
}

// lastCookie returns the most recently written cookie with that name.
func (c *testContext) lastCookie(name string) *router.Cookie {
	for i := len(c.setCookies) - 1; i >= 0; i-- {
		if c.setCookies[i].Name == name {
			return c.setCookies[i]
		}
	}
	return nil
}

// By default we set an expiration time 1 hour from now
func generateToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()

	if claims["exp"] == nil {
		claims["exp"] = time.Now().Add(time.Hour).Unix()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return signed
}

func newTestUser() *session.User {
	return &session.User{
		ID:        "4f22b1f6-5a8e-4e57-9d2b-1aa0f7b3c111",
		Username:  "amina",
		FirstName: "Amina",
		LastName:  "Diallo",
		Email:     "amina@example.com",
	}
}
