package auth

import (
	"context"
	"fmt"
	"net/url"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

type InitializePasswordResetMessage struct {
	Email      string `json:"email"`
	OnResponse func(resp *InitializePasswordResetResponse)
}

func (p InitializePasswordResetMessage) Type() string { return "user.password_reset" }

// InitializePasswordResetResponse always reports success to the outside.
// Token is only populated when an account actually exists; the HTTP layer
// decides whether a sandbox deployment may echo it back.
type InitializePasswordResetResponse struct {
	Reset     *PasswordReset
	Token     string
	ExpiresAt time.Time
	Success   bool
}

// InitializePasswordResetHandler mints a reset token for a known address
// and emails a reset link. Unknown addresses take the same visible path,
// they just skip the row and the email.
type InitializePasswordResetHandler struct {
	repo          RepositoryManager
	notifier      Notifier
	logger        Logger
	clientBaseURL string
}

func NewInitializePasswordResetHandler(repo RepositoryManager, notifier Notifier, clientBaseURL string, logger Logger) *InitializePasswordResetHandler {
	if logger == nil {
		logger = defLogger{}
	}
	return &InitializePasswordResetHandler{
		repo:          repo,
		notifier:      notifier,
		logger:        logger,
		clientBaseURL: clientBaseURL,
	}
}

func (h *InitializePasswordResetHandler) Execute(ctx context.Context, event InitializePasswordResetMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password reset initialization",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *InitializePasswordResetHandler) execute(ctx context.Context, event InitializePasswordResetMessage) error {
	resp := &InitializePasswordResetResponse{}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	email := NormalizeEmail(event.Email)

	var user *User
	var err error

	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		user, err = h.repo.Users().GetByEmailTx(ctx, tx, email)
		if err != nil {
			// unknown address is part of the expected flow, not an error
			if repository.IsRecordNotFound(err) {
				user = nil
				return nil
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user for password reset")
		}

		token := newResetToken()
		hash, err := HashPassword(token)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash reset token")
		}

		expiresAt := time.Now().Add(PasswordResetTTL)
		reset, err := h.repo.PasswordResets().IssueTx(ctx, tx, user.ID, hash, expiresAt)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create password reset record")
		}

		resp.Reset = reset
		resp.Token = token
		resp.ExpiresAt = expiresAt
		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to initialize password reset")
	}

	if user != nil && resp.Token != "" {
		go h.deliver(user.Email, user.FullName, resp.Token)
	}

	resp.Success = true
	if event.OnResponse != nil {
		event.OnResponse(resp)
	}

	return nil
}

func (h *InitializePasswordResetHandler) deliver(email, name, token string) {
	if h.notifier == nil {
		h.logger.Warn("no notifier configured, reset token for %s not delivered", email)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*30)
	defer cancel()

	resetURL := fmt.Sprintf("%s/reset?token=%s", h.clientBaseURL, url.QueryEscape(token))
	if err := h.notifier.SendPasswordReset(ctx, email, name, resetURL); err != nil {
		h.logger.Error("failed to deliver password reset email", "email", email, "error", err)
	}
}
