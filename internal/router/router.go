package router

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"booklog/internal/auth"
	"booklog/internal/config"
	errs "booklog/internal/errors"
	"booklog/internal/handler"
)

// Register wires routes and middleware. Every protected route hangs off
// the one guarded group; there is no other path to them.
func Register(
	e *echo.Echo,
	cfg *config.Config,
	sessions *auth.SessionManager,
	pageHandler *handler.PageHandler,
	authHandler *handler.AuthHandler,
	bookHandler *handler.BookHandler,
) {
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	e.HTTPErrorHandler = httpErrorHandler(e)

	// Add validator
	e.Validator = &CustomValidator{validator: validator.New()}

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	// Public routes
	e.GET("/", pageHandler.Home)
	e.GET("/login", pageHandler.LoginPage)
	e.GET("/register", pageHandler.RegisterPage)
	e.POST("/register", authHandler.Register)
	e.POST("/login", authHandler.Login)
	e.GET("/auth/google", authHandler.GoogleLogin)
	e.GET("/auth/google/callback", authHandler.GoogleCallback)
	e.GET("/logout", authHandler.Logout)

	// Protected routes: the cookie token is verified first, then the
	// session guard checks the server-side record and loads the user.
	// Browsers get a redirect to the login page, not a 401.
	protected := e.Group("", echojwt.WithConfig(echojwt.Config{
		SigningKey:  []byte(cfg.SessionSecret),
		TokenLookup: "cookie:" + handler.SessionCookieName,
		ErrorHandler: func(c echo.Context, err error) error {
			return c.Redirect(http.StatusSeeOther, "/login")
		},
	}), sessionGuard(sessions))

	protected.GET("/main", pageHandler.Main)
	protected.GET("/books", bookHandler.List)
	protected.GET("/add", bookHandler.AddPage)
	protected.POST("/add", bookHandler.AddSubmit)
	protected.POST("/delete", bookHandler.Delete)
	protected.POST("/edit", bookHandler.EditRedirect)
	protected.GET("/edit/:id", bookHandler.EditPage)
	protected.POST("/update", bookHandler.Update)
}

// httpErrorHandler translates errors that reach echo un-handled.
// Explicit *echo.HTTPError values (bad binds, echo internals) keep
// echo's stock treatment; everything else — above all storage failures
// the handlers pass through — goes through the domain error mapping.
func httpErrorHandler(e *echo.Echo) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		var echoErr *echo.HTTPError
		if errors.As(err, &echoErr) {
			e.DefaultHTTPErrorHandler(err, c)
			return
		}
		httpErr := errs.MapErrorToHTTP(err)
		c.Logger().Error(err)
		if werr := c.String(httpErr.StatusCode, httpErr.Message); werr != nil {
			c.Logger().Error(werr)
		}
	}
}

// sessionGuard admits only requests whose token still has a live
// session record, and stashes the resolved identity for handlers.
func sessionGuard(sessions *auth.SessionManager) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, ok := c.Get("user").(*jwt.Token)
			if !ok {
				return c.Redirect(http.StatusSeeOther, "/login")
			}
			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok {
				return c.Redirect(http.StatusSeeOther, "/login")
			}
			tokenID, _ := claims["jti"].(string)
			userID, _ := claims["user_id"].(float64)

			identity, err := sessions.ResolveSession(c.Request().Context(), tokenID, uint(userID))
			if err != nil {
				if errors.Is(err, errs.ErrUnauthenticated) {
					return c.Redirect(http.StatusSeeOther, "/login")
				}
				return err
			}

			c.Set(handler.IdentityContextKey, identity)
			return next(c)
		}
	}
}

// CustomValidator wraps validator for Echo.
type CustomValidator struct {
	validator *validator.Validate
}

// Validate implements echo.Validator interface.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}
