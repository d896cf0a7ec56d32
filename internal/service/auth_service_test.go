package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/taskboard/taskboard-cli/internal/api"
	"github.com/taskboard/taskboard-cli/internal/credstore"
	"github.com/taskboard/taskboard-cli/internal/domain/identity"
	"github.com/taskboard/taskboard-cli/internal/session"
	"github.com/taskboard/taskboard-cli/internal/transport"
)

// fakeBackend emulates the auth endpoints with a rotating token pair, enough
// to run the full login / request / refresh / logout lifecycle against.
type fakeBackend struct {
	mu           sync.Mutex
	accessToken  string
	refreshToken string
	generation   int
	refreshes    int
	revoked      bool
	user         identity.User
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		user: identity.User{ID: "u1", Name: "Ada", Email: "ada@example.com", Role: identity.RoleAdmin, Verified: true},
	}
}

func (b *fakeBackend) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/signin", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		var creds LoginCredentials
		if err := json.NewDecoder(r.Body).Decode(&creds); err != nil || creds.Password != "hunter22" {
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, `{"success":false,"message":"Invalid credentials"}`)
			return
		}
		b.mu.Lock()
		b.generation++
		b.accessToken = fmt.Sprintf("access-%d", b.generation)
		b.refreshToken = fmt.Sprintf("refresh-%d", b.generation)
		b.revoked = false
		b.mu.Unlock()
		userJSON, _ := json.Marshal(b.user)
		fmt.Fprintf(w, `{"success":true,"user":%s,"accessToken":%q,"refreshToken":%q}`,
			userJSON, b.accessToken, b.refreshToken)
	})
	mux.HandleFunc("/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		var body struct {
			RefreshToken string `json:"refreshToken"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		b.mu.Lock()
		defer b.mu.Unlock()
		if b.revoked || body.RefreshToken != b.refreshToken {
			w.WriteHeader(http.StatusForbidden)
			fmt.Fprint(w, `{"success":false,"message":"Refresh token invalid"}`)
			return
		}
		b.generation++
		b.refreshes++
		b.accessToken = fmt.Sprintf("access-%d", b.generation)
		b.refreshToken = fmt.Sprintf("refresh-%d", b.generation)
		fmt.Fprintf(w, `{"success":true,"accessToken":%q,"refreshToken":%q}`, b.accessToken, b.refreshToken)
	})
	mux.HandleFunc("/auth/me", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		b.mu.Lock()
		valid := r.Header.Get("Authorization") == "Bearer "+b.accessToken
		b.mu.Unlock()
		if !valid {
			w.WriteHeader(http.StatusForbidden)
			fmt.Fprint(w, `{"success":false,"message":"Token expired"}`)
			return
		}
		userJSON, _ := json.Marshal(b.user)
		fmt.Fprintf(w, `{"success":true,"user":%s}`, userJSON)
	})
	mux.HandleFunc("/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		b.mu.Lock()
		b.revoked = true
		b.mu.Unlock()
		fmt.Fprint(w, `{"success":true}`)
	})
	return mux
}

// expireAccessToken invalidates the current access token without touching
// the refresh token, the normal expiry case.
func (b *fakeBackend) expireAccessToken() {
	b.mu.Lock()
	b.accessToken = "rotated-away"
	b.mu.Unlock()
}

type testStack struct {
	backend *fakeBackend
	store   credstore.Store
	manager *session.Manager
	auth    *AuthService
}

func newTestStack(t *testing.T) *testStack {
	t.Helper()
	backend := newFakeBackend()
	server := httptest.NewServer(backend.handler())
	t.Cleanup(server.Close)

	store := credstore.NewMemoryStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	manager := session.NewManager(store, logger)

	bare := api.NewClient(api.WithBaseURL(server.URL))
	pipeline := transport.NewPipeline(store, api.NewRefresher(bare),
		transport.WithBase(server.Client().Transport),
		transport.WithLogger(logger),
		transport.WithSessionExpiredHook(manager.Terminate))
	client := api.NewClient(
		api.WithBaseURL(server.URL),
		api.WithHTTPClient(&http.Client{Transport: pipeline}))

	return &testStack{
		backend: backend,
		store:   store,
		manager: manager,
		auth:    NewAuthService(client, store, manager, logger),
	}
}

func TestLoginEstablishesSession(t *testing.T) {
	s := newTestStack(t)

	user, err := s.auth.Login(context.Background(), "ada@example.com", "hunter22")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if user.Email != "ada@example.com" || user.Role != identity.RoleAdmin {
		t.Errorf("user = %+v", user)
	}

	sess := s.manager.Current()
	if !sess.Authenticated || sess.Token != "access-1" {
		t.Errorf("session = %+v", sess)
	}
	// All three keys must be stored so the session survives a restart.
	for _, key := range []string{credstore.KeyAccessToken, credstore.KeyRefreshToken, credstore.KeyUserProfile} {
		if _, ok, _ := s.store.Get(key); !ok {
			t.Errorf("store[%q] missing after login", key)
		}
	}
}

func TestLoginRejectsBadPayloadBeforeWire(t *testing.T) {
	s := newTestStack(t)
	if _, err := s.auth.Login(context.Background(), "not-an-email", "x"); err == nil {
		t.Fatal("malformed email accepted")
	}
	if s.backend.generation != 0 {
		t.Error("invalid payload reached the backend")
	}
}

func TestLoginWrongPassword(t *testing.T) {
	s := newTestStack(t)
	_, err := s.auth.Login(context.Background(), "ada@example.com", "wrong")
	if err == nil {
		t.Fatal("wrong password accepted")
	}
	if !strings.Contains(err.Error(), "Invalid credentials") {
		t.Errorf("error %q does not carry the backend message", err)
	}
	if s.manager.Current().Authenticated {
		t.Error("session authenticated after failed login")
	}
}

func TestSessionSurvivesRestart(t *testing.T) {
	s := newTestStack(t)
	if _, err := s.auth.Login(context.Background(), "ada@example.com", "hunter22"); err != nil {
		t.Fatal(err)
	}

	// A new manager over the same store is the next CLI invocation.
	restarted := session.NewManager(s.store, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err := restarted.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	sess := restarted.Current()
	if !sess.Authenticated || sess.User == nil || sess.User.Email != "ada@example.com" {
		t.Errorf("restored session = %+v", sess)
	}
}

func TestExpiredTokenRefreshesSilently(t *testing.T) {
	s := newTestStack(t)
	if _, err := s.auth.Login(context.Background(), "ada@example.com", "hunter22"); err != nil {
		t.Fatal(err)
	}

	s.backend.expireAccessToken()

	// The caller sees a plain success; the refresh happened underneath.
	user, err := s.auth.Me(context.Background())
	if err != nil {
		t.Fatalf("Me after expiry: %v", err)
	}
	if user.Email != "ada@example.com" {
		t.Errorf("user = %+v", user)
	}
	if s.backend.refreshes != 1 {
		t.Errorf("backend saw %d refreshes, want 1", s.backend.refreshes)
	}

	// The rotated pair replaced both stored tokens.
	access, _, _ := s.store.Get(credstore.KeyAccessToken)
	refresh, _, _ := s.store.Get(credstore.KeyRefreshToken)
	if access != s.backend.accessToken || refresh != s.backend.refreshToken {
		t.Errorf("stored pair (%q, %q) out of sync with backend (%q, %q)",
			access, refresh, s.backend.accessToken, s.backend.refreshToken)
	}
}

func TestRevokedRefreshTerminatesSession(t *testing.T) {
	s := newTestStack(t)
	if _, err := s.auth.Login(context.Background(), "ada@example.com", "hunter22"); err != nil {
		t.Fatal(err)
	}

	var terminated bool
	s.manager.OnTerminated(func(string) { terminated = true })

	s.backend.expireAccessToken()
	s.backend.mu.Lock()
	s.backend.revoked = true
	s.backend.mu.Unlock()

	_, err := s.auth.Me(context.Background())
	if err == nil {
		t.Fatal("Me succeeded with a revoked refresh token")
	}
	var expired *transport.SessionExpiredError
	if !errors.As(err, &expired) {
		t.Fatalf("error %v is not a session-expired error", err)
	}
	if !terminated {
		t.Error("termination callback never fired")
	}
	if s.manager.Current().Authenticated {
		t.Error("session still authenticated after forced logout")
	}
	for _, key := range []string{credstore.KeyAccessToken, credstore.KeyRefreshToken, credstore.KeyUserProfile} {
		if _, ok, _ := s.store.Get(key); ok {
			t.Errorf("store[%q] survived the forced logout", key)
		}
	}
}

func TestLogoutRevokesAndClears(t *testing.T) {
	s := newTestStack(t)
	if _, err := s.auth.Login(context.Background(), "ada@example.com", "hunter22"); err != nil {
		t.Fatal(err)
	}

	if err := s.auth.Logout(context.Background()); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if !s.backend.revoked {
		t.Error("refresh token not revoked server-side")
	}
	if s.manager.Current().Authenticated {
		t.Error("session still authenticated after logout")
	}
	// Logging out again is a no-op, not an error.
	if err := s.auth.Logout(context.Background()); err != nil {
		t.Errorf("second Logout: %v", err)
	}
}

func TestMeUpdatesCachedProfile(t *testing.T) {
	s := newTestStack(t)
	if _, err := s.auth.Login(context.Background(), "ada@example.com", "hunter22"); err != nil {
		t.Fatal(err)
	}

	s.backend.mu.Lock()
	s.backend.user.Name = "Ada L."
	s.backend.mu.Unlock()

	if _, err := s.auth.Me(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := s.manager.Current().User.Name; got != "Ada L." {
		t.Errorf("cached name = %q, want the refreshed profile", got)
	}
}
