package main

import (
	"os"
	"strconv"
	"strings"

	"github.com/cataur/talent-auth"
)

// appConfig is the env backed configuration for the server. It doubles as
// the auth.Config implementation handed to the authenticator.
type appConfig struct {
	signingKey         string
	previousSigningKey string
	signingMethod      string
	contextKey         string
	cookieName         string
	tokenExpiration    int
	tokenLookup        string
	authScheme         string
	issuer             string
	audience           []string

	httpAddr      string
	dsn           string
	clientBaseURL string
	clientOrigins string
	sandbox       bool

	smtp auth.SMTPConfig
}

func loadConfig() *appConfig {
	cfg := &appConfig{
		signingKey:         envStr("JWT_SECRET", ""),
		previousSigningKey: envStr("JWT_SECRET_PREVIOUS", ""),
		signingMethod:      envStr("JWT_SIGNING_METHOD", "HS256"),
		contextKey:         envStr("JWT_CONTEXT_KEY", "user"),
		cookieName:         envStr("JWT_COOKIE_NAME", "token"),
		tokenExpiration:    envInt("JWT_TOKEN_EXPIRATION", 168),
		tokenLookup:        envStr("JWT_TOKEN_LOOKUP", "cookie:token"),
		authScheme:         envStr("JWT_AUTH_SCHEME", "Bearer"),
		issuer:             envStr("JWT_ISSUER", "talent-auth"),

		httpAddr:      envStr("HTTP_ADDR", ":3000"),
		dsn:           envStr("DATABASE_DSN", "file:talent.db?cache=shared&_pragma=foreign_keys(1)"),
		clientBaseURL: envStr("CLIENT_BASE_URL", "http://localhost:5173"),
		clientOrigins: envStr("CLIENT_ORIGINS", "http://localhost:5173"),
		sandbox:       envBool("SANDBOX", envStr("APP_ENV", "development") != "production"),

		smtp: auth.SMTPConfig{
			Host:     envStr("SMTP_HOST", ""),
			Port:     envInt("SMTP_PORT", 587),
			Username: envStr("SMTP_USERNAME", ""),
			Password: envStr("SMTP_PASSWORD", ""),
			From:     envStr("SMTP_FROM", "no-reply@talent.local"),
		},
	}

	if aud := envStr("JWT_AUDIENCE", ""); aud != "" {
		for _, a := range strings.Split(aud, ",") {
			if a = strings.TrimSpace(a); a != "" {
				cfg.audience = append(cfg.audience, a)
			}
		}
	}

	return cfg
}

func (c *appConfig) GetSigningKey() string    { return c.signingKey }
func (c *appConfig) GetSigningMethod() string { return c.signingMethod }
func (c *appConfig) GetContextKey() string    { return c.contextKey }
func (c *appConfig) GetCookieName() string    { return c.cookieName }
func (c *appConfig) GetTokenExpiration() int  { return c.tokenExpiration }
func (c *appConfig) GetTokenLookup() string   { return c.tokenLookup }
func (c *appConfig) GetAuthScheme() string    { return c.authScheme }
func (c *appConfig) GetIssuer() string        { return c.issuer }
func (c *appConfig) GetAudience() []string    { return c.audience }

func envStr(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envBool(key string, def bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
