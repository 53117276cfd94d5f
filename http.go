package registry

import (
	"time"

	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
)

// ErrorResponse is the JSON body of every failed request
type ErrorResponse struct {
	Error            string                    `json:"error"`
	Message          string                    `json:"message"`
	TextCode         string                    `json:"text_code,omitempty"`
	ValidationErrors goerrors.ValidationErrors `json:"validation_errors,omitempty"`
}

// RouteAuthenticator binds the session cookie to the gate and lifecycle
type RouteAuthenticator struct {
	gate           *Gate
	lifecycle      *Lifecycle
	cfg            Config
	cookieDuration time.Duration
	Logger         Logger
	ErrorHandler   func(c *fiber.Ctx, err error) error
}

func NewHTTPAuthenticator(gate *Gate, lifecycle *Lifecycle, cfg Config) (*RouteAuthenticator, error) {
	cookieDuration := defaultSessionTTL
	if cfg.GetSessionTTL() > 0 {
		cookieDuration = cfg.GetSessionTTL()
	}

	a := &RouteAuthenticator{
		gate:           gate,
		lifecycle:      lifecycle,
		cfg:            cfg,
		Logger:         defLogger{},
		cookieDuration: cookieDuration,
	}

	a.ErrorHandler = a.defaultErrHandler

	return a, nil
}

func (a RouteAuthenticator) GetCookieDuration() time.Duration {
	return a.cookieDuration
}

// ProtectedRoute rejects requests without a live session, or whose session
// role is not one of required. The identity is stored in locals and in the
// user context.
func (a *RouteAuthenticator) ProtectedRoute(required ...UserRole) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := a.SessionToken(c)

		identity, err := a.gate.Authorize(c.UserContext(), token, required...)
		if err != nil {
			return a.ErrorHandler(c, err)
		}

		c.Locals(LocalsIdentityKey, identity)
		c.SetUserContext(WithContext(c.UserContext(), identity))

		return c.Next()
	}
}

// SessionToken returns the token carried by the session cookie
func (a *RouteAuthenticator) SessionToken(c *fiber.Ctx) string {
	return c.Cookies(a.cfg.GetSessionCookieName())
}

// Login authenticates the credentials and sets the session cookie
func (a *RouteAuthenticator) Login(c *fiber.Ctx, payload LoginPayload) (*User, error) {
	res, err := a.lifecycle.Login(c.UserContext(), payload.GetUsername(), payload.GetPassword())
	if err != nil {
		a.Logger.Info("login rejected", "username", payload.GetUsername(), "error", err)
		return nil, err
	}

	a.SetSession(c, res.Session)
	return res.User, nil
}

// Logout drops the server session and expires the cookie
func (a *RouteAuthenticator) Logout(c *fiber.Ctx) error {
	token := a.SessionToken(c)
	a.cookieDel(c, a.cfg.GetSessionCookieName())
	return a.lifecycle.Logout(c.UserContext(), token)
}

// SetSession writes the session token cookie
func (a *RouteAuthenticator) SetSession(c *fiber.Ctx, session *SessionRecord) {
	if session == nil {
		return
	}
	a.setCookieToken(c, session.Token, time.Until(session.ExpiresAt))
}

func (a *RouteAuthenticator) setCookieToken(c *fiber.Ctx, val string, duration time.Duration) {
	if duration <= 0 {
		duration = a.cookieDuration
	}
	c.Cookie(&fiber.Cookie{
		Name:     a.cfg.GetSessionCookieName(),
		Value:    val,
		Path:     "/",
		Expires:  time.Now().Add(duration),
		HTTPOnly: true,
		Secure:   a.cfg.GetSessionSecure(),
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func (a *RouteAuthenticator) cookieDel(c *fiber.Ctx, name string) {
	c.Cookie(&fiber.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Expires:  time.Now().Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
		Secure:   a.cfg.GetSessionSecure(),
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func (a *RouteAuthenticator) defaultErrHandler(c *fiber.Ctx, err error) error {
	return WriteError(c, a.Logger, err)
}

// WriteError translates err into a status code and an ErrorResponse body.
// Errors without a category are reported as internal errors.
func WriteError(c *fiber.Ctx, logger Logger, err error) error {
	logger = normalizeLogger(logger)

	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		var fiberErr *fiber.Error
		if goerrors.As(err, &fiberErr) {
			richErr = goerrors.New(fiberErr.Message, goerrors.HTTPStatusToCategory(fiberErr.Code)).
				WithCode(fiberErr.Code).
				WithTextCode(goerrors.HTTPStatusToTextCode(fiberErr.Code))
		} else {
			richErr = goerrors.Wrap(err, goerrors.CategoryInternal, "An unexpected server error occurred").
				WithTextCode(TextCodeStoreError).
				WithCode(goerrors.CodeInternal)
		}
	}

	code := richErr.Code
	if code == 0 {
		code = fiber.StatusInternalServerError
	}

	if code >= fiber.StatusInternalServerError {
		logger.Error("request failed",
			"path", c.Path(),
			"error", err,
			"details", print.MaybePrettyJSON(richErr.Metadata),
		)
	} else {
		logger.Debug("request rejected",
			"path", c.Path(),
			"category", richErr.Category.String(),
			"text_code", richErr.TextCode,
		)
	}

	return c.Status(code).JSON(ErrorResponse{
		Error:            richErr.Category.String(),
		Message:          richErr.Message,
		TextCode:         richErr.TextCode,
		ValidationErrors: richErr.ValidationErrors,
	})
}
