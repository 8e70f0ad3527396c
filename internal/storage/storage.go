package storage

import "errors"

var (
	ErrUserExists   = errors.New("user already exists")
	ErrUserNotFound = errors.New("user not found")

	// ErrTokenNotFound covers unknown, expired and already-consumed single-use
	// tokens alike; callers must not tell these cases apart.
	ErrTokenNotFound = errors.New("token not found")
)
