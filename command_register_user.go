package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/uptrace/bun"
)

type RegisterUserMessage struct {
	FullName   string `json:"fullName"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Role       string `json:"role"`
	Password   string `json:"password"`
	Code       string `json:"code"`
	UseHashid  bool
	OnResponse func(user *User)
}

func (e RegisterUserMessage) Type() string { return "user.register" }

// RegisterUserHandler creates an account after proving possession of a live
// verification code. The duplicate check, the code probe, the insert, and
// the code consumption all commit or roll back together.
type RegisterUserHandler struct {
	repo RepositoryManager
}

func NewRegisterUserHandler(repo RepositoryManager) *RegisterUserHandler {
	return &RegisterUserHandler{repo: repo}
}

func (h *RegisterUserHandler) Execute(ctx context.Context, event RegisterUserMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during user registration",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RegisterUserHandler) execute(ctx context.Context, event RegisterUserMessage) error {
	user := &User{}
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	email := NormalizeEmail(event.Email)
	role := NormalizeRole(event.Role)

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := h.repo.Users().GetByEmailTx(ctx, tx, email); err == nil {
			return ErrEmailTaken
		} else if !repository.IsRecordNotFound(err) {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check for existing user")
		}

		matched, err := h.proveCode(ctx, tx, email, event.Code)
		if err != nil {
			return err
		}

		hash, err := HashPassword(event.Password)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
		}

		user.PasswordHash = hash
		user.Email = email
		user.FullName = event.FullName
		user.Role = role
		if event.Phone != "" {
			phone, err := normalizePhone(event.Phone)
			if err != nil {
				return err
			}
			user.Phone = phone
		}
		if event.UseHashid {
			if id, err := hashid.NewUUID(email); err == nil {
				user.ID = id
			}
		}

		if user, err = h.repo.Users().RegisterTx(ctx, tx, user); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryConflict, "could not create user")
		}

		ok, err := h.repo.EmailVerifications().ConsumeTx(ctx, tx, matched.ID)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to consume verification code")
		}
		if !ok {
			// lost the race to a concurrent redemption
			return ErrInvalidVerificationCode
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}

		return goerrors.Wrap(err, goerrors.CategoryInternal, "user registration transaction failed")
	}

	if event.OnResponse != nil {
		event.OnResponse(user)
	}

	return nil
}

// proveCode bcrypt-compares the submitted code against the newest live
// rows for the address, capped at verificationProbeLimit. Every failure
// mode collapses into the same error.
func (h *RegisterUserHandler) proveCode(ctx context.Context, tx bun.Tx, email, code string) (*EmailVerification, error) {
	if code == "" {
		return nil, ErrInvalidVerificationCode
	}

	rows, err := h.repo.EmailVerifications().OutstandingTx(ctx, tx, email, verificationProbeLimit)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load verification codes")
	}

	for _, row := range rows {
		if ComparePasswordAndHash(code, row.CodeHash) == nil {
			return row, nil
		}
	}

	return nil, ErrInvalidVerificationCode
}
