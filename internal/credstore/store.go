// Package credstore provides durable key-value storage for the client's
// credentials: the access token, the refresh token, and the cached user
// profile. Stores persist plain string values and perform no validation of
// value shape; interpreting the values is the session manager's job.
package credstore

import "errors"

// Well-known credential keys. The names are part of the persisted contract
// and match what the backend's web client stores, so a credentials file is
// portable between clients.
const (
	KeyAccessToken  = "token"
	KeyRefreshToken = "refreshToken"
	KeyUserProfile  = "user"
)

var (
	// ErrCorrupt is returned when the persisted credential record cannot be
	// decoded. Callers treat a corrupt record as "no session" and clear it.
	ErrCorrupt = errors.New("credstore: corrupt credential record")

	// ErrClosed is returned by operations on a closed store.
	ErrClosed = errors.New("credstore: store is closed")
)

// Store is durable key-value storage for credential strings.
//
// All operations are synchronous. Mutators overwrite whole values; there is
// no partial-field update. Get reports absence via the boolean, not an error.
type Store interface {
	// Get returns the value for key, or false if the key is absent.
	Get(key string) (string, bool, error)

	// Set overwrites the value for key.
	Set(key, value string) error

	// Remove deletes key. Removing an absent key is not an error.
	Remove(key string) error

	// Clear deletes every credential key in one step.
	Clear() error

	// Close releases any resources held by the store.
	Close() error
}
