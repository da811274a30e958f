package auth

import (
	"crypto/rand"
	"fmt"
	"math/big"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

var oneMillion = big.NewInt(1_000_000)

// randomVerificationCode draws a six digit code from crypto/rand. The draw
// is uniform over 000000 through 999999 and always zero padded, so leading
// zeros carry no information about the generator.
func randomVerificationCode() (string, error) {
	n, err := rand.Int(rand.Reader, oneMillion)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to generate verification code")
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// newResetToken mints the opaque token emailed on forgot password. Only its
// bcrypt hash is persisted.
func newResetToken() string {
	return uuid.NewString()
}
