package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"booklog/internal/auth"
	errs "booklog/internal/errors"
	"booklog/internal/model"
	"booklog/internal/service"
)

// SessionCookieName is the cookie carrying the session token.
const SessionCookieName = "booklog_session"

const stateCookieName = "oauth_state"

// AuthHandler handles registration, login, federated login and logout.
type AuthHandler struct {
	authService service.AuthService
	sessions    *auth.SessionManager
	provider    auth.IdentityProvider
	sessionTTL  time.Duration
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(authService service.AuthService, sessions *auth.SessionManager, provider auth.IdentityProvider, sessionTTL time.Duration) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		sessions:    sessions,
		provider:    provider,
		sessionTTL:  sessionTTL,
	}
}

// RegisterForm represents the registration form. The email field is
// named "username" in the markup.
type RegisterForm struct {
	Email    string `form:"username" validate:"required,email"`
	Password string `form:"password" validate:"required"`
}

// LoginForm represents the login form.
type LoginForm struct {
	Email    string `form:"username" validate:"required"`
	Password string `form:"password" validate:"required"`
}

// Register creates a user and logs them straight in. A duplicate email
// re-renders the form with a user-visible message instead of a generic
// failure, so people who already have an account go log in.
func (h *AuthHandler) Register(c echo.Context) error {
	var form RegisterForm
	if err := c.Bind(&form); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&form); err != nil {
		return c.Render(http.StatusBadRequest, "register.html", echo.Map{
			"Message": "Please enter a valid email and a password.",
		})
	}

	user, err := h.authService.Register(c.Request().Context(), form.Email, form.Password)
	if err != nil {
		if errors.Is(err, errs.ErrEmailTaken) {
			return c.Render(http.StatusOK, "register.html", echo.Map{
				"Message": "Email already exists. Try logging in.",
			})
		}
		return err
	}

	return h.establishSession(c, user)
}

// Login authenticates against the local strategy. All failures land
// back on the login page with no hint of whether the email exists.
func (h *AuthHandler) Login(c echo.Context) error {
	var form LoginForm
	if err := c.Bind(&form); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&form); err != nil {
		return c.Redirect(http.StatusSeeOther, "/login")
	}

	user, err := h.authService.AuthenticateLocal(c.Request().Context(), form.Email, form.Password)
	if err != nil {
		if errors.Is(err, errs.ErrInvalidCredentials) {
			return c.Redirect(http.StatusSeeOther, "/login")
		}
		return err
	}

	return h.establishSession(c, user)
}

// GoogleLogin sends the browser to the provider's consent screen. The
// random state round-trips through a short-lived cookie.
func (h *AuthHandler) GoogleLogin(c echo.Context) error {
	state := uuid.New().String()
	c.SetCookie(&http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/",
		MaxAge:   int((10 * time.Minute).Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return c.Redirect(http.StatusFound, h.provider.AuthCodeURL(state))
}

// GoogleCallback completes the code flow. Any failure, provider-side or
// ours, lands back on the login page.
func (h *AuthHandler) GoogleCallback(c echo.Context) error {
	stateCookie, err := c.Cookie(stateCookieName)
	if err != nil || stateCookie.Value == "" || c.QueryParam("state") != stateCookie.Value {
		return c.Redirect(http.StatusSeeOther, "/login")
	}

	code := c.QueryParam("code")
	if code == "" {
		return c.Redirect(http.StatusSeeOther, "/login")
	}

	email, err := h.provider.ExchangeEmail(c.Request().Context(), code)
	if err != nil {
		return c.Redirect(http.StatusSeeOther, "/login")
	}

	user, err := h.authService.AuthenticateFederated(c.Request().Context(), email)
	if err != nil {
		return err
	}

	return h.establishSession(c, user)
}

// Logout destroys the session and clears the cookie. Logging out
// without a session is fine; only a session-store failure errors.
func (h *AuthHandler) Logout(c echo.Context) error {
	if cookie, err := c.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		if err := h.sessions.Logout(c.Request().Context(), cookie.Value); err != nil {
			return err
		}
	}

	c.SetCookie(&http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return c.Redirect(http.StatusSeeOther, "/login")
}

func (h *AuthHandler) establishSession(c echo.Context, user *model.User) error {
	token, err := h.sessions.Login(c.Request().Context(), user)
	if err != nil {
		return err
	}

	c.SetCookie(&http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.sessionTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return c.Redirect(http.StatusSeeOther, "/main")
}
