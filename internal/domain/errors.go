package domain

import "errors"

var (
	// ErrInvalidIdentity is returned when no MediaKey can be derived for an NFT
	ErrInvalidIdentity = errors.New("invalid media identity")

	// ErrInvalidUser is returned when the user id is missing or not positive
	ErrInvalidUser = errors.New("invalid user")

	// ErrStoreUnavailable is returned when the backing store or network fails
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrPartialMigrationFailure is returned when a single legacy record could not be parsed
	ErrPartialMigrationFailure = errors.New("partial migration failure")
)
