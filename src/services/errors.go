package services

import "errors"

// Sentinel errors for explicit error handling
// Callers distinguish failure modes with errors.Is() instead of string
// matching; HTTP handlers map these to status codes at the boundary.

var (
	// ErrKeyNotFound indicates no key with that id is owned by the caller.
	// Intentionally the same for "does not exist" and "owned by another
	// account" so it cannot be used to probe other accounts.
	ErrKeyNotFound = errors.New("key not found")

	// ErrInvalidKey indicates the presented key value did not match any of
	// the caller's keys
	ErrInvalidKey = errors.New("invalid API key")

	// ErrQuotaExceeded indicates the key has consumed more credits than its
	// tier allows (only surfaced when the quota policy is enabled)
	ErrQuotaExceeded = errors.New("API key quota exceeded")

	// ErrInvalidName indicates a key name that is empty after trimming
	ErrInvalidName = errors.New("key name must not be empty")

	// ErrInvalidOwner indicates a key without a resolvable owner account
	ErrInvalidOwner = errors.New("invalid key owner")

	// ErrInvalidAmount indicates a negative usage amount
	ErrInvalidAmount = errors.New("usage amount must not be negative")

	// ErrKeyConflict indicates the generated key value already exists;
	// creation retries transparently and never surfaces this to callers
	ErrKeyConflict = errors.New("key value already exists")

	// ErrExhaustedRetries indicates repeated value collisions during
	// creation; surfaced only after the retry bound is hit
	ErrExhaustedRetries = errors.New("exhausted key generation retries")

	// ErrInvalidCredentials indicates admin authentication failed
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUserNotFound indicates the admin user does not exist
	ErrUserNotFound = errors.New("user not found")
)
