package jwtware_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cataur/talent-auth/middleware/jwtware"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubClaims struct {
	subject string
	email   string
	name    string
	role    string
}

func (s stubClaims) Subject() string { return s.subject }
func (s stubClaims) UserID() string  { return s.subject }
func (s stubClaims) Email() string   { return s.email }
func (s stubClaims) Name() string    { return s.name }
func (s stubClaims) Role() string    { return s.role }

func (s stubClaims) HasRole(role string) bool { return s.role == role }

// stubValidator accepts exactly one raw token.
type stubValidator struct {
	accept string
	claims stubClaims
}

func (v stubValidator) Validate(raw string) (jwtware.AuthClaims, error) {
	if raw == v.accept {
		return v.claims, nil
	}
	return nil, errors.New("token is malformed")
}

func newStubApp(cfg jwtware.Config) *fiber.App {
	app := fiber.New()
	app.Get("/protected", jwtware.New(cfg), func(c *fiber.Ctx) error {
		claims := c.Locals(cfg.ContextKey).(jwtware.AuthClaims)
		return c.JSON(fiber.Map{"email": claims.Email()})
	})
	return app
}

func TestMiddlewareAcceptsCookieToken(t *testing.T) {
	app := newStubApp(jwtware.Config{
		ContextKey: "user",
		TokenValidator: stubValidator{
			accept: "good-token",
			claims: stubClaims{subject: "u1", email: "u1@example.com", role: "candidate"},
		},
	})

	req := httptest.NewRequest(fiber.MethodGet, "/protected", nil)
	req.AddCookie(&http.Cookie{Name: "token", Value: "good-token"})

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestMiddlewareRejectsMissingToken(t *testing.T) {
	app := newStubApp(jwtware.Config{
		ContextKey:     "user",
		TokenValidator: stubValidator{accept: "good-token"},
	})

	req := httptest.NewRequest(fiber.MethodGet, "/protected", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestMiddlewareRejectsBadToken(t *testing.T) {
	app := newStubApp(jwtware.Config{
		ContextKey:     "user",
		TokenValidator: stubValidator{accept: "good-token"},
	})

	req := httptest.NewRequest(fiber.MethodGet, "/protected", nil)
	req.AddCookie(&http.Cookie{Name: "token", Value: "evil-token"})

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestMiddlewareRequiredRole(t *testing.T) {
	validator := stubValidator{
		accept: "candidate-token",
		claims: stubClaims{subject: "u1", role: "candidate"},
	}

	app := newStubApp(jwtware.Config{
		ContextKey:     "user",
		TokenValidator: validator,
		RequiredRole:   "recruiter",
	})

	req := httptest.NewRequest(fiber.MethodGet, "/protected", nil)
	req.AddCookie(&http.Cookie{Name: "token", Value: "candidate-token"})

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode, "valid session, wrong role")
}

func TestMiddlewareHeaderLookup(t *testing.T) {
	app := newStubApp(jwtware.Config{
		ContextKey:  "user",
		TokenLookup: "header:Authorization",
		TokenValidator: stubValidator{
			accept: "bearer-token",
			claims: stubClaims{subject: "u1"},
		},
	})

	req := httptest.NewRequest(fiber.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer bearer-token")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestMiddlewareFilterSkips(t *testing.T) {
	app := fiber.New()
	app.Get("/maybe", jwtware.New(jwtware.Config{
		ContextKey:     "user",
		TokenValidator: stubValidator{accept: "good-token"},
		Filter: func(c *fiber.Ctx) bool {
			return c.Query("public") == "1"
		},
	}), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	req := httptest.NewRequest(fiber.MethodGet, "/maybe?public=1", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	req = httptest.NewRequest(fiber.MethodGet, "/maybe", nil)
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestRemoteValidatorRequiresURLs(t *testing.T) {
	validator, err := jwtware.NewRemoteValidator(nil)
	require.Error(t, err)
	assert.Nil(t, validator)
}

func TestRemoteValidatorRejectsUnknownToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"keys":[]}`))
	}))
	t.Cleanup(srv.Close)

	validator, err := jwtware.NewRemoteValidator([]string{srv.URL})
	require.NoError(t, err)

	claims, err := validator.Validate("not-a-real-token")
	require.Error(t, err)
	assert.Nil(t, claims)
}

func TestGetExtractorsParsesLookupString(t *testing.T) {
	extractors := jwtware.GetExtractors("cookie:token,header:Authorization,query:auth_token,param:token")
	assert.Len(t, extractors, 4)

	extractors = jwtware.GetExtractors("nonsense")
	assert.Empty(t, extractors)
}
