package auth_test

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	auth "github.com/cataur/talent-auth"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func newTestDB(t *testing.T) *bun.DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	require.NoError(t, auth.CreateSchema(context.Background(), db))

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

func newTestRepo(t *testing.T) auth.RepositoryManager {
	t.Helper()
	return auth.NewRepositoryManager(newTestDB(t))
}

func seedUser(t *testing.T, repo auth.RepositoryManager, email, password string, role auth.UserRole) *auth.User {
	t.Helper()

	hash, err := auth.HashPassword(password)
	require.NoError(t, err)

	user, err := repo.Users().Register(context.Background(), &auth.User{
		FullName:     "Test Person",
		Email:        auth.NormalizeEmail(email),
		Role:         role,
		PasswordHash: hash,
	})
	require.NoError(t, err)

	return user
}

func issueCode(t *testing.T, repo auth.RepositoryManager, email, code string, ttl time.Duration) *auth.EmailVerification {
	t.Helper()

	hash, err := auth.HashPassword(code)
	require.NoError(t, err)

	record, err := repo.EmailVerifications().Issue(
		context.Background(),
		auth.NormalizeEmail(email),
		hash,
		time.Now().Add(ttl),
	)
	require.NoError(t, err)

	return record
}

type sentMail struct {
	To   string
	Code string
	URL  string
}

// fakeNotifier records deliveries so tests can assert on the async sends.
type fakeNotifier struct {
	mu     sync.Mutex
	fail   error
	codes  []sentMail
	resets []sentMail
}

func (f *fakeNotifier) SendVerificationCode(_ context.Context, to, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return f.fail
	}
	f.codes = append(f.codes, sentMail{To: to, Code: code})
	return nil
}

func (f *fakeNotifier) SendPasswordReset(_ context.Context, to, _ string, resetURL string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return f.fail
	}
	f.resets = append(f.resets, sentMail{To: to, URL: resetURL})
	return nil
}

func (f *fakeNotifier) sentCodes() []sentMail {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]sentMail, len(f.codes))
	copy(out, f.codes)
	return out
}

func (f *fakeNotifier) sentResets() []sentMail {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]sentMail, len(f.resets))
	copy(out, f.resets)
	return out
}

// testConfig is the minimal auth.Config used across tests.
type testConfig struct {
	signingKey      string
	tokenExpiration int
}

func (c testConfig) GetSigningKey() string {
	if c.signingKey == "" {
		return "test-signing-key"
	}
	return c.signingKey
}

func (c testConfig) GetSigningMethod() string { return "HS256" }
func (c testConfig) GetContextKey() string    { return "user" }
func (c testConfig) GetCookieName() string    { return "token" }

func (c testConfig) GetTokenExpiration() int {
	if c.tokenExpiration == 0 {
		return 168
	}
	return c.tokenExpiration
}

func (c testConfig) GetTokenLookup() string { return "cookie:token" }
func (c testConfig) GetAuthScheme() string  { return "Bearer" }
func (c testConfig) GetIssuer() string      { return "talent-auth-test" }
func (c testConfig) GetAudience() []string  { return nil }
