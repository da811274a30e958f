package auth

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// CreateSchema bootstraps the three tables on startup. Every statement is
// idempotent so the server can run it unconditionally.
func CreateSchema(ctx context.Context, db *bun.DB) error {
	models := []any{
		(*User)(nil),
		(*EmailVerification)(nil),
		(*PasswordReset)(nil),
	}

	for _, model := range models {
		if _, err := db.NewCreateTable().
			Model(model).
			IfNotExists().
			WithForeignKeys().
			Exec(ctx); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryOperation, "failed to create table")
		}
	}

	indexes := []struct {
		model any
		name  string
		cols  []string
	}{
		{(*User)(nil), "idx_users_email", []string{"email"}},
		{(*EmailVerification)(nil), "idx_email_verifications_email", []string{"email", "consumed"}},
		{(*PasswordReset)(nil), "idx_password_resets_consumed", []string{"consumed"}},
	}

	for _, idx := range indexes {
		if _, err := db.NewCreateIndex().
			Model(idx.model).
			Index(idx.name).
			Column(idx.cols...).
			IfNotExists().
			Exec(ctx); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryOperation, "failed to create index").
				WithMetadata(map[string]any{"index": idx.name})
		}
	}

	return nil
}
