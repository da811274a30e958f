// Package auth implements the credential and verification lifecycle for the
// talent platform: account registration gated by emailed verification codes,
// password login with JWT cookie sessions, session introspection, and the
// forgot/reset password flow.
//
// Secrets at rest:
//   - Passwords, verification codes, and reset tokens are never persisted in
//     plaintext. All three go through the same bcrypt primitive, so proving a
//     code or token means replaying the bcrypt comparison against the stored
//     hash of each live candidate row.
//
// Sessions:
//   - Sessions are stateless. Login and registration mint an HS256 JWT that
//     carries the user id, email, display name, and role, delivered as an
//     http-only cookie. Logout clears the cookie; the server keeps no session
//     state.
//
// Delivery:
//   - Email delivery (verification codes, reset links) runs through the
//     Notifier interface and is dispatched off the request path. A failed
//     send never rolls back the row that was minted for it.
package auth
