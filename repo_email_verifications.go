package auth

import (
	"context"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// EmailVerifications stores the hashed registration codes. Issuing never
// touches older rows, so several live codes can exist for one address at
// the same time.
type EmailVerifications interface {
	repository.Repository[*EmailVerification]

	Issue(ctx context.Context, email, codeHash string, expiresAt time.Time) (*EmailVerification, error)
	IssueTx(ctx context.Context, tx bun.IDB, email, codeHash string, expiresAt time.Time) (*EmailVerification, error)

	Outstanding(ctx context.Context, email string, limit int) ([]*EmailVerification, error)
	OutstandingTx(ctx context.Context, tx bun.IDB, email string, limit int) ([]*EmailVerification, error)

	Consume(ctx context.Context, id uuid.UUID) (bool, error)
	ConsumeTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (bool, error)
}

type emailVerifications struct {
	repository.Repository[*EmailVerification]
	db *bun.DB
}

var (
	_ EmailVerifications                        = (*emailVerifications)(nil)
	_ repository.Repository[*EmailVerification] = (*emailVerifications)(nil)
)

func NewEmailVerificationsRepository(db *bun.DB) EmailVerifications {
	repo := repository.NewRepository[*EmailVerification](db, repository.ModelHandlers[*EmailVerification]{
		NewRecord: func() *EmailVerification { return &EmailVerification{} },
		GetID: func(v *EmailVerification) uuid.UUID {
			if v == nil {
				return uuid.Nil
			}
			return v.ID
		},
		SetID: func(v *EmailVerification, id uuid.UUID) {
			if v != nil {
				v.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	return &emailVerifications{
		Repository: repo,
		db:         db,
	}
}

func (r *emailVerifications) Issue(ctx context.Context, email, codeHash string, expiresAt time.Time) (*EmailVerification, error) {
	return r.IssueTx(ctx, r.db, email, codeHash, expiresAt)
}

func (r *emailVerifications) IssueTx(ctx context.Context, tx bun.IDB, email, codeHash string, expiresAt time.Time) (*EmailVerification, error) {
	now := time.Now()
	record := &EmailVerification{
		ID:        uuid.New(),
		Email:     email,
		CodeHash:  codeHash,
		ExpiresAt: expiresAt,
		CreatedAt: &now,
	}
	return r.Repository.CreateTx(ctx, tx, record)
}

// Outstanding returns live rows for the address, newest first, capped at
// limit. Rows past the cap are simply never probed.
func (r *emailVerifications) Outstanding(ctx context.Context, email string, limit int) ([]*EmailVerification, error) {
	return r.OutstandingTx(ctx, r.db, email, limit)
}

func (r *emailVerifications) OutstandingTx(ctx context.Context, tx bun.IDB, email string, limit int) ([]*EmailVerification, error) {
	records := []*EmailVerification{}
	err := tx.NewSelect().
		Model(&records).
		Where("?TableAlias.email = ?", email).
		Where("?TableAlias.consumed = ?", false).
		Where("?TableAlias.expires_at > ?", time.Now()).
		Order("created_at DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return records, nil
}

// Consume flips the row from unconsumed to consumed. The conditional WHERE
// makes redemption single-use even under concurrent attempts: only one
// caller observes true.
func (r *emailVerifications) Consume(ctx context.Context, id uuid.UUID) (bool, error) {
	return r.ConsumeTx(ctx, r.db, id)
}

func (r *emailVerifications) ConsumeTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (bool, error) {
	res, err := tx.NewUpdate().
		Model((*EmailVerification)(nil)).
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
