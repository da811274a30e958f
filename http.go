package auth

import (
	"context"
	"time"

	"github.com/cataur/talent-auth/middleware/jwtware"
	"github.com/gofiber/fiber/v2"
)

// RouteAuthenticator adapts the Authenticator to fiber: it mints the
// session cookie on login, clears it on logout, and builds the middleware
// that guards protected routes. The cookie is http-only, SameSite Lax, and
// lives as long as the token itself.
type RouteAuthenticator struct {
	auth           Authenticator
	cfg            Config
	validator      TokenValidator
	cookieDuration time.Duration
	Logger         Logger
}

func NewHTTPAuthenticator(auther Authenticator, cfg Config) (*RouteAuthenticator, error) {
	cookieDuration := 24 * time.Hour
	if cfg.GetTokenExpiration() > 0 {
		cookieDuration = time.Duration(cfg.GetTokenExpiration()) * time.Hour
	}

	a := &RouteAuthenticator{
		cfg:            cfg,
		auth:           auther,
		Logger:         defLogger{},
		cookieDuration: cookieDuration,
	}

	if svc, ok := auther.(interface{ TokenService() TokenService }); ok {
		a.validator = svc.TokenService()
	}

	return a, nil
}

// WithTokenValidator overrides the validator used by Protected, e.g. a
// MultiTokenValidator during signing key rotation.
func (a *RouteAuthenticator) WithTokenValidator(validator TokenValidator) *RouteAuthenticator {
	a.validator = validator
	return a
}

func (a RouteAuthenticator) GetCookieDuration() time.Duration {
	return a.cookieDuration
}

// GetContextKey exposes the Locals key under which Protected stores claims.
func (a RouteAuthenticator) GetContextKey() string {
	return a.cfg.GetContextKey()
}

// Protected builds the JWT middleware for routes that need a session.
// Pass a required role to additionally gate on the role claim; empty means
// any valid session.
func (a *RouteAuthenticator) Protected(requiredRole string, errorHandler func(*fiber.Ctx, error) error) fiber.Handler {
	return jwtware.New(jwtware.Config{
		ErrorHandler:   errorHandler,
		ContextKey:     a.cfg.GetContextKey(),
		TokenLookup:    a.cfg.GetTokenLookup(),
		AuthScheme:     a.cfg.GetAuthScheme(),
		RequiredRole:   requiredRole,
		TokenValidator: wrapValidator(a.validator),
		ContextEnricher: func(ctx context.Context, claims jwtware.AuthClaims) context.Context {
			if ac, ok := claims.(AuthClaims); ok {
				return WithClaimsContext(ctx, ac)
			}
			return ctx
		},
	})
}

// jwtwareValidator bridges the package's TokenValidator to the middleware's
// interface of the same shape.
type jwtwareValidator struct {
	inner TokenValidator
}

func wrapValidator(v TokenValidator) jwtware.TokenValidator {
	return jwtwareValidator{inner: v}
}

func (w jwtwareValidator) Validate(raw string) (jwtware.AuthClaims, error) {
	if w.inner == nil {
		return nil, ErrUnableToDecodeSession
	}
	claims, err := w.inner.Validate(raw)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

func (a *RouteAuthenticator) Login(c *fiber.Ctx, identifier, password string) error {
	token, err := a.auth.Login(c.UserContext(), identifier, password)
	if err != nil {
		a.Logger.Error("Login error: %s", err)
		return err
	}

	a.setCookieToken(c, token, a.cookieDuration)
	return nil
}

// Impersonate mints a session cookie without a password check.
// Registration uses it to log the fresh account in.
func (a *RouteAuthenticator) Impersonate(c *fiber.Ctx, identifier string) error {
	token, err := a.auth.Impersonate(c.UserContext(), identifier)
	if err != nil {
		a.Logger.Error("Impersonate authentication error", "error", err)
		return err
	}

	a.setCookieToken(c, token, a.cookieDuration)
	return nil
}

func (a *RouteAuthenticator) Logout(c *fiber.Ctx) {
	a.cookieDel(c, a.cfg.GetCookieName())
}

func (a *RouteAuthenticator) setCookieToken(c *fiber.Ctx, val string, duration time.Duration) {
	c.Cookie(&fiber.Cookie{
		Name:     a.cfg.GetCookieName(),
		Value:    val,
		Expires:  time.Now().Add(duration),
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func (a *RouteAuthenticator) cookieDel(c *fiber.Ctx, name string) {
	c.Cookie(&fiber.Cookie{
		Name:     name,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}
