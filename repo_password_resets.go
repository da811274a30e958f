package auth

import (
	"context"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// PasswordResets stores the hashed reset tokens. A reset token carries no
// examinable identity, so finalize scans every live row and bcrypt-compares
// its way to the owner.
type PasswordResets interface {
	repository.Repository[*PasswordReset]

	Issue(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) (*PasswordReset, error)
	IssueTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, tokenHash string, expiresAt time.Time) (*PasswordReset, error)

	Outstanding(ctx context.Context) ([]*PasswordReset, error)
	OutstandingTx(ctx context.Context, tx bun.IDB) ([]*PasswordReset, error)

	Consume(ctx context.Context, id uuid.UUID) (bool, error)
	ConsumeTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (bool, error)
}

type passwordResets struct {
	repository.Repository[*PasswordReset]
	db *bun.DB
}

var (
	_ PasswordResets                        = (*passwordResets)(nil)
	_ repository.Repository[*PasswordReset] = (*passwordResets)(nil)
)

func NewPasswordResetsRepository(db *bun.DB) PasswordResets {
	repo := repository.NewRepository[*PasswordReset](db, repository.ModelHandlers[*PasswordReset]{
		NewRecord: func() *PasswordReset { return &PasswordReset{} },
		GetID: func(p *PasswordReset) uuid.UUID {
			if p == nil {
				return uuid.Nil
			}
			return p.ID
		},
		SetID: func(p *PasswordReset, id uuid.UUID) {
			if p != nil {
				p.ID = id
			}
		},
		GetIdentifier: func() string {
			return "user_id"
		},
	})

	return &passwordResets{
		Repository: repo,
		db:         db,
	}
}

func (r *passwordResets) Issue(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) (*PasswordReset, error) {
	return r.IssueTx(ctx, r.db, userID, tokenHash, expiresAt)
}

func (r *passwordResets) IssueTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, tokenHash string, expiresAt time.Time) (*PasswordReset, error) {
	now := time.Now()
	record := &PasswordReset{
		ID:        uuid.New(),
		UserID:    &userID,
		TokenHash: tokenHash,
		ExpiresAt: expiresAt,
		CreatedAt: &now,
	}
	return r.Repository.CreateTx(ctx, tx, record)
}

// Outstanding returns every live reset row, newest first.
func (r *passwordResets) Outstanding(ctx context.Context) ([]*PasswordReset, error) {
	return r.OutstandingTx(ctx, r.db)
}

func (r *passwordResets) OutstandingTx(ctx context.Context, tx bun.IDB) ([]*PasswordReset, error) {
	records := []*PasswordReset{}
	err := tx.NewSelect().
		Model(&records).
		Where("?TableAlias.consumed = ?", false).
		Where("?TableAlias.expires_at > ?", time.Now()).
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return records, nil
}

// Consume is the same single-use flip as the verification codes.
func (r *passwordResets) Consume(ctx context.Context, id uuid.UUID) (bool, error) {
	return r.ConsumeTx(ctx, r.db, id)
}

func (r *passwordResets) ConsumeTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (bool, error) {
	res, err := tx.NewUpdate().
		Model((*PasswordReset)(nil)).
		Set("consumed = ?", true).
		Where("id = ?", id).
		Where("consumed = ?", false).
		Exec(ctx)
	if err != nil {
		return false, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}

	return affected > 0, nil
}
