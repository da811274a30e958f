package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

type SendVerificationCodeMessage struct {
	Email      string `json:"email"`
	OnResponse func(v *EmailVerification)
}

func (e SendVerificationCodeMessage) Type() string { return "user.send_verification_code" }

// SendVerificationCodeHandler mints a registration code for an unclaimed
// address and emails it. The code row commits before delivery is attempted;
// a failed send is logged and swallowed, never surfaced to the caller.
type SendVerificationCodeHandler struct {
	repo     RepositoryManager
	notifier Notifier
	logger   Logger
}

func NewSendVerificationCodeHandler(repo RepositoryManager, notifier Notifier, logger Logger) *SendVerificationCodeHandler {
	if logger == nil {
		logger = defLogger{}
	}
	return &SendVerificationCodeHandler{
		repo:     repo,
		notifier: notifier,
		logger:   logger,
	}
}

func (h *SendVerificationCodeHandler) Execute(ctx context.Context, event SendVerificationCodeMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during verification code issuance",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *SendVerificationCodeHandler) execute(ctx context.Context, event SendVerificationCodeMessage) error {
	record := &EmailVerification{}
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	email := NormalizeEmail(event.Email)

	code, err := randomVerificationCode()
	if err != nil {
		return err
	}

	hash, err := HashPassword(code)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash verification code")
	}

	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := h.repo.Users().GetByEmailTx(ctx, tx, email); err == nil {
			return ErrEmailTaken
		} else if !repository.IsRecordNotFound(err) {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check for existing user")
		}

		record, err = h.repo.EmailVerifications().IssueTx(ctx, tx, email, hash, time.Now().Add(VerificationCodeTTL))
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to store verification code")
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "verification code transaction failed")
	}

	go h.deliver(email, code)

	if event.OnResponse != nil {
		event.OnResponse(record)
	}

	return nil
}

func (h *SendVerificationCodeHandler) deliver(email, code string) {
	if h.notifier == nil {
		h.logger.Warn("no notifier configured, verification code for %s not delivered", email)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*30)
	defer cancel()

	if err := h.notifier.SendVerificationCode(ctx, email, code); err != nil {
		h.logger.Error("failed to deliver verification code", "email", email, "error", err)
	}
}
