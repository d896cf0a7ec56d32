// Package session holds the process-wide authentication state: whether a
// user is logged in and who. The Manager is the single source of truth for
// that question; it keeps its in-memory snapshot and the credential store in
// lockstep, every mutator updating both under one lock.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/taskboard/taskboard-cli/internal/credstore"
	"github.com/taskboard/taskboard-cli/internal/domain/identity"
)

// Session is an immutable snapshot of the authentication state.
// Authenticated is true iff both User and Token were established by a
// successful login or a successful initialization from storage.
type Session struct {
	User          *identity.User
	Token         string
	Authenticated bool
}

// Manager owns the session state. It is constructed with its credential
// store rather than reaching for a global, so tests and multi-instance
// embeddings can run isolated managers side by side.
type Manager struct {
	mu           sync.Mutex
	store        credstore.Store
	logger       *slog.Logger
	current      Session
	onTerminated []func(reason string)
}

// NewManager creates a Manager over the given credential store.
// The manager starts unauthenticated until Initialize or Login runs.
func NewManager(store credstore.Store, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{store: store, logger: logger}
}

// Initialize reconciles the in-memory state with the credential store.
// It must run before the first command gate; running it again is harmless
// and converges to the same result.
//
// A stored token plus a parseable stored profile yields an authenticated
// session. A malformed profile wipes both keys and yields an unauthenticated
// session, so corrupt storage self-heals instead of lingering half-valid.
// A missing token or profile leaves the default unauthenticated state.
func (m *Manager) Initialize() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	token, userJSON, err := m.loadStored()
	if err != nil {
		if errors.Is(err, credstore.ErrCorrupt) {
			m.logger.Warn("credential record is corrupt, clearing session")
			return m.clearLocked()
		}
		return fmt.Errorf("initialize session: %w", err)
	}

	if token == "" || userJSON == "" {
		m.current = Session{}
		return nil
	}

	var user identity.User
	if err := json.Unmarshal([]byte(userJSON), &user); err != nil {
		m.logger.Warn("stored user profile is malformed, clearing session", "error", err)
		if err := m.store.Remove(credstore.KeyAccessToken); err != nil {
			return fmt.Errorf("clear access token: %w", err)
		}
		if err := m.store.Remove(credstore.KeyUserProfile); err != nil {
			return fmt.Errorf("clear user profile: %w", err)
		}
		m.current = Session{}
		return nil
	}

	m.current = Session{User: &user, Token: token, Authenticated: true}
	m.logger.Debug("session restored from storage", "user", user.Email, "role", user.Role)
	return nil
}

// Login records a successful sign-in: the token and serialized profile are
// written to the credential store first, then the in-memory state flips to
// authenticated. Requests issued after Login returns carry the new token.
func (m *Manager) Login(user identity.User, accessToken string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	userJSON, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("serialize user profile: %w", err)
	}
	if err := m.store.Set(credstore.KeyAccessToken, accessToken); err != nil {
		return fmt.Errorf("store access token: %w", err)
	}
	if err := m.store.Set(credstore.KeyUserProfile, string(userJSON)); err != nil {
		return fmt.Errorf("store user profile: %w", err)
	}

	m.current = Session{User: &user, Token: accessToken, Authenticated: true}
	m.logger.Info("logged in", "user", user.Email, "role", user.Role)
	return nil
}

// Logout removes every credential key and resets the state. It is
// idempotent; logging out while logged out is a no-op.
func (m *Manager) Logout() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.clearLocked()
}

// SetUser replaces the cached profile in both the store and the in-memory
// state without touching tokens or the authenticated flag. Used after
// profile-affecting operations such as a fresh /auth/me fetch.
func (m *Manager) SetUser(user identity.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	userJSON, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("serialize user profile: %w", err)
	}
	if err := m.store.Set(credstore.KeyUserProfile, string(userJSON)); err != nil {
		return fmt.Errorf("store user profile: %w", err)
	}
	m.current.User = &user
	return nil
}

// Current returns a snapshot of the session state. The profile is copied,
// so mutating the snapshot never writes through to the manager.
func (m *Manager) Current() Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := m.current
	if snap.User != nil {
		user := *snap.User
		snap.User = &user
	}
	return snap
}

// OnTerminated registers a callback fired when the session is forcibly
// terminated (an irrecoverable refresh failure). The application shell
// subscribes here and performs its own "go back to login" handling; the
// manager never reaches for a process exit or navigation itself.
func (m *Manager) OnTerminated(fn func(reason string)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onTerminated = append(m.onTerminated, fn)
}

// Terminate force-ends the session: credentials are wiped, the state resets,
// and every registered callback fires with the reason. Callbacks run outside
// the manager lock so they may call back into the manager.
func (m *Manager) Terminate(reason string) {
	m.mu.Lock()
	if err := m.clearLocked(); err != nil {
		m.logger.Warn("failed to clear credentials on termination", "error", err)
	}
	callbacks := make([]func(string), len(m.onTerminated))
	copy(callbacks, m.onTerminated)
	m.mu.Unlock()

	m.logger.Warn("session terminated", "reason", reason)
	for _, fn := range callbacks {
		fn(reason)
	}
}

// loadStored reads the access token and serialized profile. Either value
// may legitimately be absent; corruption is reported to the caller.
func (m *Manager) loadStored() (token, userJSON string, err error) {
	token, _, err = m.store.Get(credstore.KeyAccessToken)
	if err != nil {
		return "", "", err
	}
	userJSON, _, err = m.store.Get(credstore.KeyUserProfile)
	if err != nil {
		return "", "", err
	}
	return token, userJSON, nil
}

// clearLocked wipes the credential store and resets state. Caller holds mu.
func (m *Manager) clearLocked() error {
	if err := m.store.Clear(); err != nil {
		return fmt.Errorf("clear credentials: %w", err)
	}
	m.current = Session{}
	return nil
}
