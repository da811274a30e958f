package auth_test

import (
	"context"
	"testing"
	"time"

	auth "github.com/cataur/talent-auth"
	goerrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterUserHappyPath(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	issueCode(t, repo, "New.Person@Example.com", "123456", 10*time.Minute)

	var created *auth.User
	handler := auth.NewRegisterUserHandler(repo)
	err := handler.Execute(ctx, auth.RegisterUserMessage{
		FullName: "New Person",
		Email:    "New.Person@Example.com",
		Role:     "recruiter",
		Password: "super-secret-pw",
		Code:     "123456",
		OnResponse: func(u *auth.User) {
			created = u
		},
	})
	require.NoError(t, err)
	require.NotNil(t, created)

	assert.Equal(t, "new.person@example.com", created.Email)
	assert.Equal(t, auth.RoleRecruiter, created.Role)
	assert.NotEmpty(t, created.ID)
	assert.NoError(t, auth.ComparePasswordAndHash("super-secret-pw", created.PasswordHash))

	// the winning code is burned
	rows, err := repo.EmailVerifications().Outstanding(ctx, created.Email, 5)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestRegisterUserUnknownRoleBecomesCandidate(t *testing.T) {
	repo := newTestRepo(t)

	issueCode(t, repo, "role@example.com", "222333", 10*time.Minute)

	var created *auth.User
	err := auth.NewRegisterUserHandler(repo).Execute(context.Background(), auth.RegisterUserMessage{
		FullName: "Role Person",
		Email:    "role@example.com",
		Role:     "superadmin",
		Password: "super-secret-pw",
		Code:     "222333",
		OnResponse: func(u *auth.User) {
			created = u
		},
	})
	require.NoError(t, err)
	assert.Equal(t, auth.RoleCandidate, created.Role)
}

func TestRegisterUserWrongCode(t *testing.T) {
	repo := newTestRepo(t)

	issueCode(t, repo, "wrong@example.com", "123456", 10*time.Minute)

	err := auth.NewRegisterUserHandler(repo).Execute(context.Background(), auth.RegisterUserMessage{
		FullName: "Wrong Code",
		Email:    "wrong@example.com",
		Password: "super-secret-pw",
		Code:     "654321",
	})
	require.Error(t, err)
	assert.True(t, goerrors.Is(err, auth.ErrInvalidVerificationCode))

	// nothing was created
	_, err = repo.Users().GetByEmail(context.Background(), "wrong@example.com")
	require.Error(t, err)
}

func TestRegisterUserExpiredCode(t *testing.T) {
	repo := newTestRepo(t)

	issueCode(t, repo, "expired@example.com", "123456", -time.Minute)

	err := auth.NewRegisterUserHandler(repo).Execute(context.Background(), auth.RegisterUserMessage{
		FullName: "Expired Code",
		Email:    "expired@example.com",
		Password: "super-secret-pw",
		Code:     "123456",
	})
	require.Error(t, err)
	assert.True(t, goerrors.Is(err, auth.ErrInvalidVerificationCode))
}

func TestRegisterUserMissingCode(t *testing.T) {
	repo := newTestRepo(t)

	err := auth.NewRegisterUserHandler(repo).Execute(context.Background(), auth.RegisterUserMessage{
		FullName: "No Code",
		Email:    "nocode@example.com",
		Password: "super-secret-pw",
	})
	require.Error(t, err)
	assert.True(t, goerrors.Is(err, auth.ErrInvalidVerificationCode))
}

func TestRegisterUserEmailTaken(t *testing.T) {
	repo := newTestRepo(t)

	seedUser(t, repo, "taken@example.com", "existing-password", auth.RoleCandidate)
	issueCode(t, repo, "taken@example.com", "123456", 10*time.Minute)

	err := auth.NewRegisterUserHandler(repo).Execute(context.Background(), auth.RegisterUserMessage{
		FullName: "Second Claim",
		Email:    "Taken@Example.com",
		Password: "super-secret-pw",
		Code:     "123456",
	})
	require.Error(t, err)
	assert.True(t, goerrors.Is(err, auth.ErrEmailTaken))
}

func TestRegisterUserConsumedCodeCannotBeReused(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	record := issueCode(t, repo, "reuse@example.com", "123456", 10*time.Minute)
	ok, err := repo.EmailVerifications().Consume(ctx, record.ID)
	require.NoError(t, err)
	require.True(t, ok)

	err = auth.NewRegisterUserHandler(repo).Execute(ctx, auth.RegisterUserMessage{
		FullName: "Reuse Attempt",
		Email:    "reuse@example.com",
		Password: "super-secret-pw",
		Code:     "123456",
	})
	require.Error(t, err)
	assert.True(t, goerrors.Is(err, auth.ErrInvalidVerificationCode))
}

func TestRegisterUserNormalizesPhone(t *testing.T) {
	repo := newTestRepo(t)

	issueCode(t, repo, "phone@example.com", "123456", 10*time.Minute)

	var created *auth.User
	err := auth.NewRegisterUserHandler(repo).Execute(context.Background(), auth.RegisterUserMessage{
		FullName: "Phone Person",
		Email:    "phone@example.com",
		Phone:    "(212) 555-0173",
		Password: "super-secret-pw",
		Code:     "123456",
		OnResponse: func(u *auth.User) {
			created = u
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "+12125550173", created.Phone)
}
