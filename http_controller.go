package session

import (
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

// RegisterSessionRoutes mounts the login, logout, and profile handlers on
// the given router.
func RegisterSessionRoutes[T any](app router.Router[T], opts ...SessionControllerOption) {

	controller := NewSessionController(opts...)

	app.
		Get(controller.Routes.Login,
			controller.LoginShow,
		).
		SetName("sign-in.get")

	app.
		Post(
			controller.Routes.Login,
			controller.LoginPost,
		).
		SetName("sign-in.post")

	app.Get(controller.Routes.Logout, controller.Logout).SetName("sign-out.get")

	app.Get(controller.Routes.Profile, controller.ProfileShow).
		SetName("profile.get")
	app.Post(controller.Routes.Profile, controller.ProfilePost).
		SetName("profile.post")
}

type SessionControllerRoutes struct {
	Login   string
	Logout  string
	Profile string
}

type SessionControllerViews struct {
	Login   string
	Profile string
}

type SessionController struct {
	Debug                  bool
	Logger                 Logger
	Manager                *Manager
	Routes                 *SessionControllerRoutes
	Views                  *SessionControllerViews
	HomeRoute              string
	CookieDuration         time.Duration
	ExtendedCookieDuration time.Duration
	ErrorHandler           router.ErrorHandler
}

type SessionControllerOption func(*SessionController) *SessionController

func NewSessionController(opts ...SessionControllerOption) *SessionController {
	c := &SessionController{
		Logger:                 defLogger{},
		ErrorHandler:           defaultErrHandler,
		HomeRoute:              "/",
		CookieDuration:         24 * time.Hour,
		ExtendedCookieDuration: 30 * 24 * time.Hour,
		Routes: &SessionControllerRoutes{
			Login:   "/login",
			Logout:  "/logout",
			Profile: "/profile",
		},
		Views: &SessionControllerViews{
			Login:   "login",
			Profile: "profile",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Manager == nil {
		panic("Missing Manager in session controller...")
	}

	return c
}

func WithControllerManager(m *Manager) SessionControllerOption {
	return func(c *SessionController) *SessionController {
		c.Manager = m
		return c
	}
}

func WithControllerLogger(l Logger) SessionControllerOption {
	return func(c *SessionController) *SessionController {
		if l != nil {
			c.Logger = l
		}
		return c
	}
}

func WithControllerRoutes(r *SessionControllerRoutes) SessionControllerOption {
	return func(c *SessionController) *SessionController {
		if r != nil {
			c.Routes = r
		}
		return c
	}
}

func WithControllerViews(v *SessionControllerViews) SessionControllerOption {
	return func(c *SessionController) *SessionController {
		if v != nil {
			c.Views = v
		}
		return c
	}
}

func WithControllerDebug(debug bool) SessionControllerOption {
	return func(c *SessionController) *SessionController {
		c.Debug = debug
		return c
	}
}

// WithControllerConfig copies routes and cookie lifetimes from cfg.
func WithControllerConfig(cfg Config) SessionControllerOption {
	return func(c *SessionController) *SessionController {
		if cfg == nil {
			return c
		}
		if route := cfg.GetLoginRoute(); route != "" {
			c.Routes.Login = route
		}
		if route := cfg.GetHomeRoute(); route != "" {
			c.HomeRoute = route
		}
		if d := cfg.GetCookieDuration(); d > 0 {
			c.CookieDuration = d
		}
		if d := cfg.GetExtendedCookieDuration(); d > 0 {
			c.ExtendedCookieDuration = d
		}
		return c
	}
}

func WithControllerCookieDurations(standard, extended time.Duration) SessionControllerOption {
	return func(c *SessionController) *SessionController {
		if standard > 0 {
			c.CookieDuration = standard
		}
		if extended > 0 {
			c.ExtendedCookieDuration = extended
		}
		return c
	}
}

func (a *SessionController) LoginShow(ctx router.Context) error {
	notice := ""
	if cause := ConsumeMarker(ctx); cause != CauseNone {
		notice = cause.Notice()
	}

	return ctx.Render(a.Views.Login, router.ViewContext{
		"errors":   nil,
		"record":   nil,
		"notice":   notice,
		"redirect": sanitizeRedirect(ctx.Query("redirect", "")),
	})
}

// LoginRequest payload
type LoginRequest struct {
	Identifier string `form:"identifier" json:"identifier"`
	Password   string `form:"password" json:"password"`
	RememberMe bool   `form:"remember_me" json:"remember_me"`
}

// GetIdentifier returns the identifier
func (r LoginRequest) GetIdentifier() string {
	return r.Identifier
}

// GetPassword will return the password
func (r LoginRequest) GetPassword() string {
	return r.Password
}

// GetExtendedSession reports whether the user asked to stay signed in
func (r LoginRequest) GetExtendedSession() bool {
	return r.RememberMe
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Identifier,
			validation.Required,
			is.Email,
		),
		validation.Field(
			&r.Password,
			validation.Required,
		),
	)
}

func (a *SessionController) LoginPost(ctx router.Context) error {
	payload := new(LoginRequest)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("login parse payload: %v", err)
		return a.ErrorHandler(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return ctx.Render(a.Views.Login, router.ViewContext{
			"record":     payload,
			"validation": err.Error(),
		})
	}

	if a.Debug {
		fmt.Println("======= SESSION LOGIN ======")
		fmt.Println(print.MaybePrettyJSON(payload))
		fmt.Println("============================")
	}

	_, err := a.Manager.Login(ctx.Context(), payload.Identifier, payload.Password)
	if err != nil {
		return ctx.Render(a.Views.Login, router.ViewContext{
			"errors": map[string]string{
				"authentication": UserMessage(err, GenericLoginError),
			},
			"record": payload,
		})
	}

	duration := a.CookieDuration
	if payload.RememberMe {
		duration = a.ExtendedCookieDuration
	}
	SetAuthCookie(ctx, a.Manager.Token(), duration)

	redirect := sanitizeRedirect(ctx.Query("redirect", ""))
	if redirect == "" {
		redirect = a.HomeRoute
	}

	return ctx.Redirect(redirect, router.StatusSeeOther)
}

func (a *SessionController) Logout(ctx router.Context) error {
	if err := a.Manager.Logout(ctx.Context()); err != nil {
		a.Logger.Error("logout: %v", err)
	}
	ClearAuthCookie(ctx)
	return ctx.Redirect(a.HomeRoute, router.StatusSeeOther)
}

func (a *SessionController) ProfileShow(ctx router.Context) error {
	user := a.Manager.CurrentUser()
	if user == nil {
		return ctx.Redirect(a.Routes.Login, router.StatusSeeOther)
	}

	return ctx.Render(a.Views.Profile, router.ViewContext{
		"errors": nil,
		"record": user,
	})
}

// ProfileUpdateRequest is the editable subset of the profile form
type ProfileUpdateRequest struct {
	FirstName      string `form:"first_name" json:"firstName"`
	LastName       string `form:"last_name" json:"lastName"`
	Email          string `form:"email" json:"email"`
	ProfilePicture string `form:"profile_picture" json:"profilePicture"`
}

// Validate will validate the payload
func (r ProfileUpdateRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.FirstName, validation.Length(1, 200)),
		validation.Field(&r.LastName, validation.Length(1, 200)),
		validation.Field(&r.Email, is.Email),
	)
}

func (r ProfileUpdateRequest) patch() map[string]any {
	patch := map[string]any{}
	if r.FirstName != "" {
		patch["firstName"] = r.FirstName
	}
	if r.LastName != "" {
		patch["lastName"] = r.LastName
	}
	if r.Email != "" {
		patch["email"] = r.Email
	}
	if r.ProfilePicture != "" {
		patch["profilePicture"] = r.ProfilePicture
	}
	return patch
}

func (a *SessionController) ProfilePost(ctx router.Context) error {
	payload := new(ProfileUpdateRequest)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("profile parse payload: %v", err)
		return a.ErrorHandler(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return ctx.Render(a.Views.Profile, router.ViewContext{
			"record":     payload,
			"validation": err.Error(),
		})
	}

	user, err := a.Manager.UpdateUser(ctx.Context(), payload.patch())
	if err != nil {
		return ctx.Render(a.Views.Profile, router.ViewContext{
			"errors": map[string]string{
				"update": UserMessage(err, GenericUpdateError),
			},
			"record": payload,
		})
	}

	return ctx.Render(a.Views.Profile, router.ViewContext{
		"errors": nil,
		"record": user,
		"notice": "Profile updated",
	})
}

// sanitizeRedirect rejects anything that could leave the site. Only local
// absolute paths survive, protocol-relative URLs do not.
func sanitizeRedirect(target string) string {
	if target == "" {
		return ""
	}
	if !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") {
		return ""
	}
	if strings.ContainsAny(target, "\\\r\n") {
		return ""
	}
	return target
}

func defaultErrHandler(c router.Context, err error) error {
	return c.Render("errors/500", router.ViewContext{
		"message": err.Error(),
	})
}
