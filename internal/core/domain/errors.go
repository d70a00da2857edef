package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnknownUser and ErrWrongPassword are both ErrInvalidCredentials;
	// they exist so the login response can name the failed check.
	ErrUnknownUser   = fmt.Errorf("%w: unknown user", ErrInvalidCredentials)
	ErrWrongPassword = fmt.Errorf("%w: wrong password", ErrInvalidCredentials)

	ErrUserNotFound  = errors.New("user not found")
	ErrDuplicateUser = errors.New("duplicate user")

	ErrUnauthorized     = errors.New("missing session token")
	ErrInvalidToken     = errors.New("invalid session token")
	ErrForbidden        = errors.New("query not permitted")
	ErrPermissionDenied = errors.New("permission denied")

	ErrConversationNotFound = errors.New("conversation not found")

	ErrRemote = errors.New("completion service failure")
)
