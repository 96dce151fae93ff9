package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"booklog/internal/auth"
)

// IdentityContextKey is where the session guard stashes the resolved identity.
const IdentityContextKey = "identity"

// PageHandler serves the public pages and the landing page.
type PageHandler struct{}

// NewPageHandler creates a page handler.
func NewPageHandler() *PageHandler {
	return &PageHandler{}
}

// Home renders the public landing page.
func (h *PageHandler) Home(c echo.Context) error {
	return c.Render(http.StatusOK, "home.html", nil)
}

// LoginPage renders the login form.
func (h *PageHandler) LoginPage(c echo.Context) error {
	return c.Render(http.StatusOK, "login.html", nil)
}

// RegisterPage renders the registration form.
func (h *PageHandler) RegisterPage(c echo.Context) error {
	return c.Render(http.StatusOK, "register.html", echo.Map{"Message": ""})
}

// Main renders the logged-in landing page.
func (h *PageHandler) Main(c echo.Context) error {
	identity := CurrentIdentity(c)
	return c.Render(http.StatusOK, "main.html", echo.Map{"User": identity})
}

// CurrentIdentity returns the identity resolved by the session guard.
// Protected handlers are only reachable once the guard has set it.
func CurrentIdentity(c echo.Context) *auth.Identity {
	identity, _ := c.Get(IdentityContextKey).(*auth.Identity)
	return identity
}
