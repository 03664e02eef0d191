package shared

import "errors"

// Closed error taxonomy for the authentication surface. Handlers map these
// exhaustively in httpx.RespondError; anything outside this set reaches the
// caller as a generic server error.
var (
	// ErrValidation indicates malformed input such as a bad email format.
	ErrValidation = errors.New("validation failed")
	// ErrCredentialsSignin covers unknown email and wrong password alike so a
	// caller cannot enumerate accounts.
	ErrCredentialsSignin = errors.New("invalid credentials")
	// ErrAccountNotLinked indicates a password attempt on a provider-only account.
	ErrAccountNotLinked = errors.New("this email is associated with a different sign-in method")
	// ErrEmailAlreadyRegistered rejects a registration code request for a taken email.
	ErrEmailAlreadyRegistered = errors.New("email already registered")
	// ErrInvalidOrExpiredCode covers wrong, expired, consumed and never-issued codes.
	ErrInvalidOrExpiredCode = errors.New("invalid or expired verification code")
	// ErrCodeRateLimited rejects a code request inside the resend window.
	ErrCodeRateLimited = errors.New("verification code requested too recently")
	// ErrStorage indicates a backing store failure; detail stays in the logs.
	ErrStorage = errors.New("storage unavailable")
	// ErrDelivery indicates the mail collaborator failed after the code was stored.
	ErrDelivery = errors.New("failed to send email")
	// ErrUnauthorized indicates a missing, invalid or expired session token.
	ErrUnauthorized = errors.New("unauthorized")
)
