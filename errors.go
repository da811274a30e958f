package auth

import (
	"errors"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// Text codes surfaced next to rich errors so API clients can branch without
// string matching the message.
const (
	TextCodeEmailTaken     = "EMAIL_TAKEN"
	TextCodeInvalidLogin   = "INVALID_CREDENTIALS"
	TextCodeInvalidCode    = "INVALID_VERIFICATION_CODE"
	TextCodeInvalidToken   = "INVALID_RESET_TOKEN"
	TextCodeTokenExpired   = "TOKEN_EXPIRED"
	TextCodeNotAuthorized  = "NOT_AUTHORIZED"
	TextCodeNotAuthentic   = "NOT_AUTHENTICATED"
	TextCodeInvalidPayload = "INVALID_PAYLOAD"
)

// Terminal errors for the lifecycle operations. Handlers return these
// directly so HTTP status and client copy stay consistent everywhere the
// same condition surfaces.
var (
	// ErrEmailTaken is returned by registration and code issuance when the
	// address already belongs to an account.
	ErrEmailTaken = goerrors.New("Email already registered", goerrors.CategoryConflict).
			WithCode(goerrors.CodeConflict).
			WithTextCode(TextCodeEmailTaken)

	// ErrInvalidCredentials deliberately conflates unknown email and wrong
	// password so login cannot be used to enumerate accounts.
	ErrInvalidCredentials = goerrors.New("Invalid credentials", goerrors.CategoryAuth).
				WithCode(goerrors.CodeUnauthorized).
				WithTextCode(TextCodeInvalidLogin)

	// ErrInvalidVerificationCode covers every code failure mode: no match,
	// expired, already consumed. One message, nothing to probe.
	ErrInvalidVerificationCode = goerrors.New("Invalid or expired verification code", goerrors.CategoryValidation).
					WithCode(goerrors.CodeBadRequest).
					WithTextCode(TextCodeInvalidCode)

	// ErrInvalidResetToken covers every reset token failure mode, same
	// uniformity rationale as the verification code error.
	ErrInvalidResetToken = goerrors.New("Invalid or expired token", goerrors.CategoryValidation).
				WithCode(goerrors.CodeBadRequest).
				WithTextCode(TextCodeInvalidToken)

	// ErrNotAuthenticated is returned when a protected route is reached
	// without a decodable session cookie.
	ErrNotAuthenticated = goerrors.New("Not authenticated", goerrors.CategoryAuth).
				WithCode(goerrors.CodeUnauthorized).
				WithTextCode(TextCodeNotAuthentic)

	// ErrForbidden is returned when a session decodes fine but carries the
	// wrong role for the route.
	ErrForbidden = goerrors.New("Forbidden", goerrors.CategoryAuthz).
			WithCode(goerrors.CodeForbidden).
			WithTextCode(TextCodeNotAuthorized)

	// ErrTokenExpired is the session token past its exp claim.
	ErrTokenExpired = goerrors.New("Session expired", goerrors.CategoryAuth).
			WithCode(goerrors.CodeUnauthorized).
			WithTextCode(TextCodeTokenExpired)

	// ErrTokenMalformed is a session token that failed to parse or verify.
	ErrTokenMalformed = goerrors.New("Missing or malformed session token", goerrors.CategoryAuth).
				WithCode(goerrors.CodeUnauthorized).
				WithTextCode("TOKEN_MALFORMED")
)

// ErrIdentityNotFound is the error we return for non found identities
var ErrIdentityNotFound = errors.New("identity not found")

// ErrUnableToFindSession is the error when our request has no cookie
var ErrUnableToFindSession = errors.New("unable to find session")

// ErrUnableToDecodeSession unable to decode JWT from session cookie
var ErrUnableToDecodeSession = errors.New("unable to decode session")

// ErrUnableToMapClaims unable to get claims from token
var ErrUnableToMapClaims = errors.New("unable to map claims")

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	var rich *goerrors.Error
	if goerrors.As(err, &rich) && rich.TextCode == TextCodeTokenExpired {
		return true
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError reports whether the token failed to parse or verify.
// Signature failures count: a composite validator uses this to decide the
// token may simply belong to a different signing key.
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "token is malformed") ||
		strings.Contains(msg, "signature is invalid") ||
		strings.Contains(msg, "missing or malformed")
}
