package auth

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Lifetimes for the short lived secrets. Session length lives in the JWT
// config, these two cover the rows that gate registration and reset.
const (
	// VerificationCodeTTL is how long an emailed registration code stays usable.
	VerificationCodeTTL = 10 * time.Minute
	// PasswordResetTTL is how long an emailed reset token stays usable.
	PasswordResetTTL = 30 * time.Minute
)

// verificationProbeLimit caps how many live verification rows registration
// will bcrypt-compare against for one email address.
const verificationProbeLimit = 5

// User is the account record. The password hash never leaves the server,
// so it is excluded from JSON outright.
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Role          UserRole   `bun:"role,notnull" json:"role,omitempty"`
	FullName      string     `bun:"full_name,notnull" json:"full_name,omitempty"`
	Email         string     `bun:"email,notnull,unique" json:"email,omitempty"`
	Phone         string     `bun:"phone_number" json:"phone_number,omitempty"`
	PasswordHash  string     `bun:"password_hash,notnull" json:"-"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// EmailVerification is one emailed registration code. The code itself is
// only ever stored as a bcrypt hash; proving a code means comparing it
// against the hash of every live row for the address.
type EmailVerification struct {
	bun.BaseModel `bun:"table:email_verifications,alias:ev"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Email         string     `bun:"email,notnull" json:"email,omitempty"`
	CodeHash      string     `bun:"code_hash,notnull" json:"-"`
	ExpiresAt     time.Time  `bun:"expires_at,notnull" json:"expires_at,omitempty"`
	Consumed      bool       `bun:"consumed,notnull,default:false" json:"consumed"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}

// Live reports whether the row can still be redeemed at the given instant.
func (v *EmailVerification) Live(now time.Time) bool {
	return !v.Consumed && v.ExpiresAt.After(now)
}

// PasswordReset is one emailed reset token, stored hashed like the
// verification codes.
type PasswordReset struct {
	bun.BaseModel `bun:"table:password_resets,alias:pwdr"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	UserID        *uuid.UUID `bun:"user_id,notnull,type:uuid" json:"user_id,omitempty"`
	User          *User      `bun:"rel:belongs-to,join:user_id=id" json:"user,omitempty"`
	TokenHash     string     `bun:"token_hash,notnull" json:"-"`
	ExpiresAt     time.Time  `bun:"expires_at,notnull" json:"expires_at,omitempty"`
	Consumed      bool       `bun:"consumed,notnull,default:false" json:"consumed"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}

// Live reports whether the token can still be redeemed at the given instant.
func (p *PasswordReset) Live(now time.Time) bool {
	return !p.Consumed && p.ExpiresAt.After(now)
}
