package auth_test

import (
	"context"
	"testing"

	auth "github.com/cataur/talent-auth"
	goerrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuther(t *testing.T, repo auth.RepositoryManager) *auth.Auther {
	t.Helper()
	provider := auth.NewUserProvider(repo.Users())
	return auth.NewAuthenticator(provider, testConfig{})
}

func TestLoginRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	auther := newAuther(t, repo)

	user := seedUser(t, repo, "login@example.com", "correct-password", auth.RoleRecruiter)

	token, err := auther.Login(context.Background(), "login@example.com", "correct-password")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	session, err := auther.SessionFromToken(token)
	require.NoError(t, err)

	assert.Equal(t, user.ID.String(), session.GetUserID())
	assert.Equal(t, "login@example.com", session.GetEmail())
	assert.Equal(t, "Test Person", session.GetName())
	assert.Equal(t, string(auth.RoleRecruiter), session.GetRole())
	assert.Equal(t, "talent-auth-test", session.GetIssuer())

	uid, err := session.GetUserUUID()
	require.NoError(t, err)
	assert.Equal(t, user.ID, uid)
	assert.True(t, auth.HasUserUUID(session))
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	repo := newTestRepo(t)
	auther := newAuther(t, repo)

	seedUser(t, repo, "known@example.com", "correct-password", auth.RoleCandidate)

	_, unknownErr := auther.Login(context.Background(), "ghost@example.com", "correct-password")
	require.Error(t, unknownErr)

	_, wrongPwErr := auther.Login(context.Background(), "known@example.com", "wrong-password")
	require.Error(t, wrongPwErr)

	assert.True(t, goerrors.Is(unknownErr, auth.ErrInvalidCredentials))
	assert.True(t, goerrors.Is(wrongPwErr, auth.ErrInvalidCredentials))
	assert.Equal(t, unknownErr.Error(), wrongPwErr.Error())
}

func TestLoginIsCaseSensitiveOnStoredEmail(t *testing.T) {
	repo := newTestRepo(t)
	auther := newAuther(t, repo)

	// seedUser stores the normalized form
	seedUser(t, repo, "Case@Example.com", "correct-password", auth.RoleCandidate)

	_, err := auther.Login(context.Background(), "Case@Example.com", "correct-password")
	require.Error(t, err, "login matches stored bytes exactly, no re-normalization")
	assert.True(t, goerrors.Is(err, auth.ErrInvalidCredentials))

	_, err = auther.Login(context.Background(), "case@example.com", "correct-password")
	require.NoError(t, err)
}

func TestImpersonate(t *testing.T) {
	repo := newTestRepo(t)
	auther := newAuther(t, repo)

	user := seedUser(t, repo, "fresh@example.com", "whatever-pw-123", auth.RoleCandidate)

	token, err := auther.Impersonate(context.Background(), "fresh@example.com")
	require.NoError(t, err)

	session, err := auther.SessionFromToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID.String(), session.GetUserID())
}

func TestImpersonateUnknownIdentifier(t *testing.T) {
	repo := newTestRepo(t)
	auther := newAuther(t, repo)

	_, err := auther.Impersonate(context.Background(), "nobody@example.com")
	require.Error(t, err)
	assert.ErrorIs(t, err, auth.ErrIdentityNotFound)
}

func TestIdentityFromSession(t *testing.T) {
	repo := newTestRepo(t)
	auther := newAuther(t, repo)

	user := seedUser(t, repo, "session@example.com", "whatever-pw-123", auth.RoleRecruiter)

	token, err := auther.Impersonate(context.Background(), "session@example.com")
	require.NoError(t, err)
	session, err := auther.SessionFromToken(token)
	require.NoError(t, err)

	identity, err := auther.IdentityFromSession(context.Background(), session)
	require.NoError(t, err)
	assert.Equal(t, user.ID.String(), identity.ID())
	assert.Equal(t, "session@example.com", identity.Email())
	assert.Equal(t, string(auth.RoleRecruiter), identity.Role())
}

func TestSessionFromTokenRejectsForeignKey(t *testing.T) {
	repo := newTestRepo(t)

	seedUser(t, repo, "keys@example.com", "whatever-pw-123", auth.RoleCandidate)

	provider := auth.NewUserProvider(repo.Users())
	minting := auth.NewAuthenticator(provider, testConfig{signingKey: "key-one"})
	verifying := auth.NewAuthenticator(provider, testConfig{signingKey: "key-two"})

	token, err := minting.Impersonate(context.Background(), "keys@example.com")
	require.NoError(t, err)

	_, err = verifying.SessionFromToken(token)
	require.Error(t, err)
}

func TestMultiTokenValidatorAcceptsPreviousKey(t *testing.T) {
	repo := newTestRepo(t)

	seedUser(t, repo, "rotated@example.com", "whatever-pw-123", auth.RoleCandidate)

	provider := auth.NewUserProvider(repo.Users())
	old := auth.NewAuthenticator(provider, testConfig{signingKey: "previous-key"})
	current := auth.NewAuthenticator(provider, testConfig{signingKey: "current-key"})

	current.WithTokenValidator(auth.NewMultiTokenValidator(
		current.TokenService(),
		old.TokenService(),
	))

	token, err := old.Impersonate(context.Background(), "rotated@example.com")
	require.NoError(t, err)

	session, err := current.SessionFromToken(token)
	require.NoError(t, err)
	assert.Equal(t, "rotated@example.com", session.GetEmail())
}
