package auth_test

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	auth "github.com/cataur/talent-auth"
	goerrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sixDigits = regexp.MustCompile(`^\d{6}$`)

func TestSendVerificationCode(t *testing.T) {
	repo := newTestRepo(t)
	notifier := &fakeNotifier{}
	handler := auth.NewSendVerificationCodeHandler(repo, notifier, nil)

	var issued *auth.EmailVerification
	err := handler.Execute(context.Background(), auth.SendVerificationCodeMessage{
		Email: "Fresh@Example.com",
		OnResponse: func(v *auth.EmailVerification) {
			issued = v
		},
	})
	require.NoError(t, err)
	require.NotNil(t, issued)

	assert.Equal(t, "fresh@example.com", issued.Email)
	assert.False(t, issued.Consumed)
	assert.True(t, issued.ExpiresAt.After(time.Now()))

	require.Eventually(t, func() bool {
		return len(notifier.sentCodes()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	sent := notifier.sentCodes()[0]
	assert.Equal(t, "fresh@example.com", sent.To)
	assert.Regexp(t, sixDigits, sent.Code)

	// the emailed code matches the stored hash
	assert.NoError(t, auth.ComparePasswordAndHash(sent.Code, issued.CodeHash))
}

func TestSendVerificationCodeTakenEmail(t *testing.T) {
	repo := newTestRepo(t)
	notifier := &fakeNotifier{}

	seedUser(t, repo, "claimed@example.com", "a-password-here", auth.RoleCandidate)

	err := auth.NewSendVerificationCodeHandler(repo, notifier, nil).Execute(
		context.Background(),
		auth.SendVerificationCodeMessage{Email: "claimed@example.com"},
	)
	require.Error(t, err)
	assert.True(t, goerrors.Is(err, auth.ErrEmailTaken))
	assert.Empty(t, notifier.sentCodes())
}

func TestSendVerificationCodeDeliveryFailureIsSwallowed(t *testing.T) {
	repo := newTestRepo(t)
	notifier := &fakeNotifier{fail: errors.New("relay down")}

	var issued *auth.EmailVerification
	err := auth.NewSendVerificationCodeHandler(repo, notifier, nil).Execute(
		context.Background(),
		auth.SendVerificationCodeMessage{
			Email: "unlucky@example.com",
			OnResponse: func(v *auth.EmailVerification) {
				issued = v
			},
		},
	)
	require.NoError(t, err, "delivery failures never surface to the caller")
	require.NotNil(t, issued)

	// the row is still live and redeemable
	rows, err := repo.EmailVerifications().Outstanding(context.Background(), "unlucky@example.com", 5)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestSendVerificationCodeReissueKeepsOlderCodesLive(t *testing.T) {
	repo := newTestRepo(t)
	notifier := &fakeNotifier{}
	handler := auth.NewSendVerificationCodeHandler(repo, notifier, nil)

	for i := 0; i < 2; i++ {
		err := handler.Execute(context.Background(), auth.SendVerificationCodeMessage{
			Email: "repeat@example.com",
		})
		require.NoError(t, err)
	}

	rows, err := repo.EmailVerifications().Outstanding(context.Background(), "repeat@example.com", 5)
	require.NoError(t, err)
	assert.Len(t, rows, 2, "issuing a new code does not invalidate older ones")
}
