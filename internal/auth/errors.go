package auth

import "errors"

// Domain errors for the auth package.
var (
	// ErrInvalidCredentials is returned when the username or password is wrong.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")

	// ErrTokenInvalid is returned when a token fails signature or claim checks.
	ErrTokenInvalid = errors.New("auth: invalid token")

	// ErrTokenSuperseded is returned when a valid token belongs to an older session.
	ErrTokenSuperseded = errors.New("auth: token superseded by a newer login")

	// ErrUsersUnavailable is returned when the users file cannot be read.
	ErrUsersUnavailable = errors.New("auth: users unavailable")

	// ErrInvalidHash is returned when a stored password hash cannot be parsed.
	ErrInvalidHash = errors.New("auth: invalid password hash")
)
