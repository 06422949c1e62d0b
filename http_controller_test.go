package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/goliatone/go-router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	session "github.com/giraffespace/go-session"
)

func newControllerFixture(t *testing.T, api *MockAuthAPI) (*session.SessionController, *session.Manager) {
	t.Helper()

	m := session.NewManager(session.NewMemoryStore(), api, session.WithClock(fixedClock()))
	require.NoError(t, m.Start(context.Background()))

	ctrl := session.NewSessionController(
		session.WithControllerManager(m),
	)
	return ctrl, m
}

func TestLoginShowRendersLoginView(t *testing.T) {
	ctrl, _ := newControllerFixture(t, &MockAuthAPI{})
	ctx := newTestContext()

	require.NoError(t, ctrl.LoginShow(ctx))
	assert.Equal(t, "login", ctx.renderedView)
	assert.Empty(t, ctx.renderedData["notice"])
}

func TestLoginShowConsumesExpiryMarker(t *testing.T) {
	ctrl, _ := newControllerFixture(t, &MockAuthAPI{})
	ctx := newTestContext()
	ctx.cookies[string(session.CauseMaxAge)] = "true"

	require.NoError(t, ctrl.LoginShow(ctx))
	assert.Contains(t, ctx.renderedData["notice"], "24 hours")

	// Reloading the page shows the notice only once.
	ctx2 := newTestContext()
	ctx2.cookies = ctx.cookies
	require.NoError(t, ctrl.LoginShow(ctx2))
	assert.Empty(t, ctx2.renderedData["notice"])
}

func TestLoginPostSuccess(t *testing.T) {
	api := &MockAuthAPI{}
	resp := loginOK(t)
	api.On("Login", mock.Anything, "amina@example.com", "s3cret").Return(resp, nil)

	ctrl, m := newControllerFixture(t, api)

	ctx := newTestContext()
	ctx.method = "POST"
	ctx.query["redirect"] = "/user-dashboard"
	ctx.bindFn = func(i any) error {
		payload := i.(*session.LoginRequest)
		payload.Identifier = "amina@example.com"
		payload.Password = "s3cret"
		return nil
	}

	require.NoError(t, ctrl.LoginPost(ctx))

	assert.True(t, m.IsLoggedIn())
	assert.Equal(t, "/user-dashboard", ctx.redirectTo)
	assert.Equal(t, router.StatusSeeOther, ctx.redirectStatus)

	cookie := ctx.lastCookie(session.CookieAuthToken)
	require.NotNil(t, cookie)
	assert.Equal(t, resp.Token, cookie.Value)
}

func TestLoginPostDefaultsRedirectHome(t *testing.T) {
	api := &MockAuthAPI{}
	api.On("Login", mock.Anything, mock.Anything, mock.Anything).Return(loginOK(t), nil)

	ctrl, _ := newControllerFixture(t, api)

	ctx := newTestContext()
	ctx.bindFn = func(i any) error {
		payload := i.(*session.LoginRequest)
		payload.Identifier = "amina@example.com"
		payload.Password = "s3cret"
		return nil
	}

	require.NoError(t, ctrl.LoginPost(ctx))
	assert.Equal(t, "/", ctx.redirectTo)
}

func TestLoginPostRejectsExternalRedirect(t *testing.T) {
	api := &MockAuthAPI{}
	api.On("Login", mock.Anything, mock.Anything, mock.Anything).Return(loginOK(t), nil)

	cases := []string{
		"//evil.example.com",
		"https://evil.example.com",
		"/ok\r\nSet-Cookie: x=1",
	}

	for _, target := range cases {
		ctrl, _ := newControllerFixture(t, api)
		ctx := newTestContext()
		ctx.query["redirect"] = target
		ctx.bindFn = func(i any) error {
			payload := i.(*session.LoginRequest)
			payload.Identifier = "amina@example.com"
			payload.Password = "s3cret"
			return nil
		}

		require.NoError(t, ctrl.LoginPost(ctx))
		assert.Equal(t, "/", ctx.redirectTo, "target %q must not survive", target)
	}
}

func TestLoginPostRememberMeExtendsCookie(t *testing.T) {
	api := &MockAuthAPI{}
	api.On("Login", mock.Anything, mock.Anything, mock.Anything).Return(loginOK(t), nil)

	ctrl, _ := newControllerFixture(t, api)

	ctx := newTestContext()
	ctx.bindFn = func(i any) error {
		payload := i.(*session.LoginRequest)
		payload.Identifier = "amina@example.com"
		payload.Password = "s3cret"
		payload.RememberMe = true
		return nil
	}

	require.NoError(t, ctrl.LoginPost(ctx))

	cookie := ctx.lastCookie(session.CookieAuthToken)
	require.NotNil(t, cookie)
	assert.True(t, cookie.Expires.After(time.Now().Add(48*time.Hour)),
		"remember-me cookie should outlive the standard duration")
}

func TestLoginPostValidationFailure(t *testing.T) {
	ctrl, m := newControllerFixture(t, &MockAuthAPI{})

	ctx := newTestContext()
	ctx.bindFn = func(i any) error {
		payload := i.(*session.LoginRequest)
		payload.Identifier = "not-an-email"
		payload.Password = ""
		return nil
	}

	require.NoError(t, ctrl.LoginPost(ctx))

	assert.Equal(t, "login", ctx.renderedView)
	assert.NotEmpty(t, ctx.renderedData["validation"])
	assert.False(t, m.IsLoggedIn())
}

func TestLoginPostRejectionShowsServerMessage(t *testing.T) {
	api := &MockAuthAPI{}
	api.On("Login", mock.Anything, mock.Anything, mock.Anything).Return(&session.LoginResponse{
		Success: false,
		Message: "Invalid credentials",
	}, nil)

	ctrl, m := newControllerFixture(t, api)

	ctx := newTestContext()
	ctx.bindFn = func(i any) error {
		payload := i.(*session.LoginRequest)
		payload.Identifier = "amina@example.com"
		payload.Password = "wrong"
		return nil
	}

	require.NoError(t, ctrl.LoginPost(ctx))

	assert.Equal(t, "login", ctx.renderedView)
	errs, ok := ctx.renderedData["errors"].(map[string]string)
	require.True(t, ok)
	assert.Equal(t, "Invalid credentials", errs["authentication"])
	assert.False(t, m.IsLoggedIn())
}

func TestLogoutClearsCookieAndRedirects(t *testing.T) {
	api := &MockAuthAPI{}
	api.On("Login", mock.Anything, mock.Anything, mock.Anything).Return(loginOK(t), nil)

	ctrl, m := newControllerFixture(t, api)
	_, err := m.Login(context.Background(), "amina@example.com", "s3cret")
	require.NoError(t, err)

	ctx := newTestContext()
	ctx.cookies[session.CookieAuthToken] = m.Token()

	require.NoError(t, ctrl.Logout(ctx))

	assert.False(t, m.IsLoggedIn())
	assert.Equal(t, "/", ctx.redirectTo)
	assert.Empty(t, ctx.Cookies(session.CookieAuthToken))
}

func TestProfileShowRequiresLogin(t *testing.T) {
	ctrl, _ := newControllerFixture(t, &MockAuthAPI{})
	ctx := newTestContext()

	require.NoError(t, ctrl.ProfileShow(ctx))
	assert.Equal(t, "/login", ctx.redirectTo)
}

func TestProfilePostUpdatesUser(t *testing.T) {
	api := &MockAuthAPI{}
	api.On("Login", mock.Anything, mock.Anything, mock.Anything).Return(loginOK(t), nil)

	updated := newTestUser()
	updated.FirstName = "Ada"
	api.On("UpdateProfile", mock.Anything, updated.ID, map[string]any{"firstName": "Ada"}).
		Return(&session.UpdateResponse{Success: true, User: updated}, nil)

	ctrl, m := newControllerFixture(t, api)
	_, err := m.Login(context.Background(), "amina@example.com", "s3cret")
	require.NoError(t, err)

	ctx := newTestContext()
	ctx.method = "POST"
	ctx.bindFn = func(i any) error {
		payload := i.(*session.ProfileUpdateRequest)
		payload.FirstName = "Ada"
		return nil
	}

	require.NoError(t, ctrl.ProfilePost(ctx))

	assert.Equal(t, "profile", ctx.renderedView)
	record, ok := ctx.renderedData["record"].(*session.User)
	require.True(t, ok)
	assert.Equal(t, "Ada", record.FirstName)
	assert.Equal(t, "Ada", m.CurrentUser().FirstName)

	api.AssertExpectations(t)
}

func TestProfilePostFailurePreservesState(t *testing.T) {
	api := &MockAuthAPI{}
	api.On("Login", mock.Anything, mock.Anything, mock.Anything).Return(loginOK(t), nil)
	api.On("UpdateProfile", mock.Anything, mock.Anything, mock.Anything).
		Return(&session.UpdateResponse{Success: false, Message: "Email already in use"}, nil)

	ctrl, m := newControllerFixture(t, api)
	_, err := m.Login(context.Background(), "amina@example.com", "s3cret")
	require.NoError(t, err)

	ctx := newTestContext()
	ctx.bindFn = func(i any) error {
		payload := i.(*session.ProfileUpdateRequest)
		payload.Email = "taken@example.com"
		return nil
	}

	require.NoError(t, ctrl.ProfilePost(ctx))

	errs, ok := ctx.renderedData["errors"].(map[string]string)
	require.True(t, ok)
	assert.Equal(t, "Email already in use", errs["update"])
	assert.Equal(t, "amina@example.com", m.CurrentUser().Email)
}

func TestNewSessionControllerRequiresManager(t *testing.T) {
	assert.Panics(t, func() {
		session.NewSessionController()
	})
}
