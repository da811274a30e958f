package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

type FinalizePasswordResetMessage struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

func (p FinalizePasswordResetMessage) Type() string { return "user.password_reset_finalize" }

// FinalizePasswordResetHandler redeems a reset token and rotates the
// password. The token names no account, so the handler bcrypt-compares it
// against every live reset row; whichever row matches owns the reset.
type FinalizePasswordResetHandler struct {
	repo   RepositoryManager
	logger Logger
}

// NewFinalizePasswordResetHandler creates a handler with sane defaults.
func NewFinalizePasswordResetHandler(repo RepositoryManager) *FinalizePasswordResetHandler {
	return &FinalizePasswordResetHandler{
		repo:   repo,
		logger: defLogger{},
	}
}

// WithLogger overrides the logger used by the handler.
func (h *FinalizePasswordResetHandler) WithLogger(logger Logger) *FinalizePasswordResetHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *FinalizePasswordResetHandler) Execute(ctx context.Context, event FinalizePasswordResetMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password reset finalization",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *FinalizePasswordResetHandler) execute(ctx context.Context, event FinalizePasswordResetMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		matched, err := h.proveToken(ctx, tx, event.Token)
		if err != nil {
			return err
		}

		passwordHash, err := HashPassword(event.Password)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid new password provided")
		}

		if matched.UserID == nil {
			return goerrors.New("password reset record is not associated with a user", goerrors.CategoryInternal)
		}

		if err := h.repo.Users().ResetPasswordTx(ctx, tx, *matched.UserID, passwordHash); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update user password")
		}

		ok, err := h.repo.PasswordResets().ConsumeTx(ctx, tx, matched.ID)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to consume password reset token")
		}
		if !ok {
			// lost the race to a concurrent redemption
			return ErrInvalidResetToken
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to finalize password reset")
	}

	return nil
}

// proveToken walks every live reset row, newest first. Unknown tokens,
// expired rows, and consumed rows all come back as the same error.
func (h *FinalizePasswordResetHandler) proveToken(ctx context.Context, tx bun.Tx, token string) (*PasswordReset, error) {
	if token == "" {
		return nil, ErrInvalidResetToken
	}

	rows, err := h.repo.PasswordResets().OutstandingTx(ctx, tx)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "could not load password reset requests")
	}

	for _, row := range rows {
		if ComparePasswordAndHash(token, row.TokenHash) == nil {
			return row, nil
		}
	}

	return nil, ErrInvalidResetToken
}
