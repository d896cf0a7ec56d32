package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/goleak"

	"github.com/taskboard/taskboard-cli/internal/credstore"
	"github.com/taskboard/taskboard-cli/internal/domain/identity"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// seedStore returns a memory store holding the given token pair.
func seedStore(t *testing.T, access, refresh string) credstore.Store {
	t.Helper()
	store := credstore.NewMemoryStore()
	if access != "" {
		if err := store.Set(credstore.KeyAccessToken, access); err != nil {
			t.Fatal(err)
		}
	}
	if refresh != "" {
		if err := store.Set(credstore.KeyRefreshToken, refresh); err != nil {
			t.Fatal(err)
		}
	}
	return store
}

func staticRefresher(pair identity.TokenPair, err error) RefresherFunc {
	return func(ctx context.Context, refreshToken string) (identity.TokenPair, error) {
		return pair, err
	}
}

func TestRoundTripAttachesBearerAndRequestID(t *testing.T) {
	var gotAuth, gotID string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotID = r.Header.Get("X-Request-ID")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	store := seedStore(t, "access-1", "refresh-1")
	p := NewPipeline(store, staticRefresher(identity.TokenPair{}, nil),
		WithBase(server.Client().Transport))

	req, _ := http.NewRequest(http.MethodGet, server.URL+"/projects", nil)
	resp, err := p.RoundTrip(req)
	if err != nil {
		t.Fatalf("RoundTrip: %v", err)
	}
	resp.Body.Close()

	if gotAuth != "Bearer access-1" {
		t.Errorf("Authorization = %q, want %q", gotAuth, "Bearer access-1")
	}
	if gotID == "" {
		t.Error("X-Request-ID not stamped")
	}
	if req.Header.Get("Authorization") != "" {
		t.Error("original request mutated: Authorization header set")
	}
}

func TestRoundTripWithoutTokenSendsUnauthenticated(t *testing.T) {
	var sawAuth bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawAuth = r.Header.Get("Authorization") != ""
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	p := NewPipeline(credstore.NewMemoryStore(), staticRefresher(identity.TokenPair{}, nil),
		WithBase(server.Client().Transport))

	req, _ := http.NewRequest(http.MethodGet, server.URL+"/auth/signin", nil)
	resp, err := p.RoundTrip(req)
	if err != nil {
		t.Fatalf("RoundTrip: %v", err)
	}
	resp.Body.Close()

	if sawAuth {
		t.Error("unauthenticated request carried an Authorization header")
	}
}

func TestRoundTripExpiredWithoutRefreshTokenPassesThrough(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	var refreshed atomic.Int32
	refresher := RefresherFunc(func(ctx context.Context, refreshToken string) (identity.TokenPair, error) {
		refreshed.Add(1)
		return identity.TokenPair{}, nil
	})

	store := seedStore(t, "access-1", "")
	p := NewPipeline(store, refresher, WithBase(server.Client().Transport))

	req, _ := http.NewRequest(http.MethodGet, server.URL+"/projects", nil)
	resp, err := p.RoundTrip(req)
	if err != nil {
		t.Fatalf("RoundTrip: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("status = %d, want 403 passed through", resp.StatusCode)
	}
	if n := refreshed.Load(); n != 0 {
		t.Errorf("refresher ran %d times without a refresh token", n)
	}
}

func TestRoundTripRefreshesAndRetriesOnce(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		if r.Header.Get("Authorization") == "Bearer new-access" {
			w.WriteHeader(http.StatusOK)
			fmt.Fprint(w, `{"success":true}`)
			return
		}
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	store := seedStore(t, "stale-access", "refresh-1")
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)
	p := NewPipeline(store,
		staticRefresher(identity.TokenPair{AccessToken: "new-access", RefreshToken: "new-refresh"}, nil),
		WithBase(server.Client().Transport),
		WithMetrics(metrics))

	req, _ := http.NewRequest(http.MethodGet, server.URL+"/projects", nil)
	resp, err := p.RoundTrip(req)
	if err != nil {
		t.Fatalf("RoundTrip: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200 after silent retry", resp.StatusCode)
	}
	if n := requests.Load(); n != 2 {
		t.Errorf("server saw %d requests, want 2", n)
	}

	// Both tokens must be rotated, not just the access token.
	for key, want := range map[string]string{
		credstore.KeyAccessToken:  "new-access",
		credstore.KeyRefreshToken: "new-refresh",
	} {
		got, ok, err := store.Get(key)
		if err != nil || !ok {
			t.Fatalf("Get(%q): ok=%v err=%v", key, ok, err)
		}
		if got != want {
			t.Errorf("store[%q] = %q, want %q", key, got, want)
		}
	}

	if got := testutil.ToFloat64(metrics.RetriedRequests); got != 1 {
		t.Errorf("retried_requests = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.RefreshTotal.WithLabelValues("ok")); got != 1 {
		t.Errorf("refresh_total{ok} = %v, want 1", got)
	}
}

func TestRoundTripRetriesAtMostOnce(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	var refreshes atomic.Int32
	refresher := RefresherFunc(func(ctx context.Context, refreshToken string) (identity.TokenPair, error) {
		refreshes.Add(1)
		return identity.TokenPair{AccessToken: "new-access", RefreshToken: "new-refresh"}, nil
	})

	store := seedStore(t, "stale-access", "refresh-1")
	p := NewPipeline(store, refresher, WithBase(server.Client().Transport))

	req, _ := http.NewRequest(http.MethodGet, server.URL+"/projects", nil)
	resp, err := p.RoundTrip(req)
	if err != nil {
		t.Fatalf("RoundTrip: %v", err)
	}
	resp.Body.Close()

	// The replay also came back expired; that propagates to the caller
	// instead of looping.
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("status = %d, want 403", resp.StatusCode)
	}
	if n := requests.Load(); n != 2 {
		t.Errorf("server saw %d requests, want exactly 2", n)
	}
	if n := refreshes.Load(); n != 1 {
		t.Errorf("refresher ran %d times, want 1", n)
	}
}

func TestRoundTripReplaysRequestBody(t *testing.T) {
	var bodies []string
	var mu sync.Mutex
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		bodies = append(bodies, string(b))
		n := len(bodies)
		mu.Unlock()
		if n == 1 {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	store := seedStore(t, "stale-access", "refresh-1")
	p := NewPipeline(store,
		staticRefresher(identity.TokenPair{AccessToken: "new-access", RefreshToken: "new-refresh"}, nil),
		WithBase(server.Client().Transport))

	// Going through http.Client populates GetBody for string readers.
	client := &http.Client{Transport: p}
	resp, err := client.Post(server.URL+"/projects", "application/json",
		strings.NewReader(`{"title":"Billing revamp"}`))
	if err != nil {
		t.Fatalf("Post: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(bodies) != 2 {
		t.Fatalf("server saw %d bodies, want 2", len(bodies))
	}
	if bodies[0] != bodies[1] {
		t.Errorf("replayed body %q differs from original %q", bodies[1], bodies[0])
	}
}

func TestRoundTripRefreshFailureTerminatesSession(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	var reason atomic.Value
	store := seedStore(t, "stale-access", "consumed-refresh")
	p := NewPipeline(store,
		staticRefresher(identity.TokenPair{}, errors.New("refresh token revoked")),
		WithBase(server.Client().Transport),
		WithSessionExpiredHook(func(r string) { reason.Store(r) }))

	req, _ := http.NewRequest(http.MethodGet, server.URL+"/projects", nil)
	_, err := p.RoundTrip(req)
	if err == nil {
		t.Fatal("RoundTrip succeeded, want session-expired error")
	}

	var expired *SessionExpiredError
	if !errors.As(err, &expired) {
		t.Fatalf("error %v is not a SessionExpiredError", err)
	}
	if expired.Unwrap() == nil || !strings.Contains(expired.Unwrap().Error(), "revoked") {
		t.Errorf("SessionExpiredError lost the refresh failure: %v", expired.Unwrap())
	}

	got, _ := reason.Load().(string)
	if !strings.Contains(got, "revoked") {
		t.Errorf("hook reason = %q, want the refresh failure", got)
	}

	// Every credential key must be gone.
	for _, key := range []string{credstore.KeyAccessToken, credstore.KeyRefreshToken, credstore.KeyUserProfile} {
		if _, ok, _ := store.Get(key); ok {
			t.Errorf("store[%q] survived the forced logout", key)
		}
	}
}

func TestConcurrentExpiriesShareOneRefresh(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "Bearer new-access" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	var refreshes atomic.Int32
	refresher := RefresherFunc(func(ctx context.Context, refreshToken string) (identity.TokenPair, error) {
		refreshes.Add(1)
		time.Sleep(50 * time.Millisecond) // hold the exchange open so callers pile up
		return identity.TokenPair{AccessToken: "new-access", RefreshToken: "new-refresh"}, nil
	})

	store := seedStore(t, "stale-access", "refresh-1")
	p := NewPipeline(store, refresher, WithBase(server.Client().Transport))

	const callers = 8
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req, _ := http.NewRequest(http.MethodGet, server.URL+"/projects", nil)
			resp, err := p.RoundTrip(req)
			if err != nil {
				errs <- err
				return
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				errs <- fmt.Errorf("status %d", resp.StatusCode)
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("caller failed: %v", err)
	}

	// A rotated refresh token is single use; redundant exchanges would have
	// presented a consumed token. All callers must share one exchange.
	if n := refreshes.Load(); n != 1 {
		t.Errorf("refresher ran %d times, want 1", n)
	}
}

func TestCanceledCallerDuringSharedRefreshKeepsSession(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "Bearer new-access" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	started := make(chan struct{})
	release := make(chan struct{})
	refresher := RefresherFunc(func(ctx context.Context, refreshToken string) (identity.TokenPair, error) {
		close(started)
		<-release
		return identity.TokenPair{AccessToken: "new-access", RefreshToken: "new-refresh"}, nil
	})

	var hookFired atomic.Int32
	store := seedStore(t, "stale-access", "refresh-1")
	p := NewPipeline(store, refresher,
		WithBase(server.Client().Transport),
		WithSessionExpiredHook(func(string) { hookFired.Add(1) }))

	// First caller owns the exchange; the refresher holds it open.
	ownerDone := make(chan error, 1)
	go func() {
		req, _ := http.NewRequest(http.MethodGet, server.URL+"/projects", nil)
		resp, err := p.RoundTrip(req)
		if err != nil {
			ownerDone <- err
			return
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			ownerDone <- fmt.Errorf("status %d", resp.StatusCode)
			return
		}
		ownerDone <- nil
	}()
	<-started

	// Second caller joins the in-flight exchange, then gives up waiting.
	ctx, cancel := context.WithCancel(context.Background())
	waiterDone := make(chan error, 1)
	go func() {
		req, _ := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+"/projects", nil)
		_, err := p.RoundTrip(req)
		waiterDone <- err
	}()
	time.Sleep(20 * time.Millisecond) // let the waiter reach the in-flight wait
	cancel()

	err := <-waiterDone
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("canceled caller got %v, want context.Canceled", err)
	}
	var expired *SessionExpiredError
	if errors.As(err, &expired) {
		t.Error("caller cancellation surfaced as a session-expired error")
	}

	// The cancellation is local to that caller: no forced logout, and the
	// refresh token stays usable for the exchange still in flight.
	if n := hookFired.Load(); n != 0 {
		t.Errorf("session-expired hook fired %d times on caller cancellation", n)
	}
	if got, ok, err := store.Get(credstore.KeyRefreshToken); err != nil || !ok || got != "refresh-1" {
		t.Errorf("refresh token = %q ok=%v err=%v, want %q untouched", got, ok, err, "refresh-1")
	}

	close(release)
	if err := <-ownerDone; err != nil {
		t.Fatalf("owning caller failed after waiter canceled: %v", err)
	}
	if got, _, _ := store.Get(credstore.KeyRefreshToken); got != "new-refresh" {
		t.Errorf("refresh token = %q after exchange, want %q", got, "new-refresh")
	}
	if n := hookFired.Load(); n != 0 {
		t.Errorf("session-expired hook fired %d times, want 0", n)
	}
}

// faultyStore fails reads of a single key, delegating everything else.
type faultyStore struct {
	credstore.Store
	key string
	err error
}

func (s *faultyStore) Get(key string) (string, bool, error) {
	if key == s.key {
		return "", false, s.err
	}
	return s.Store.Get(key)
}

func TestRoundTripRefreshTokenReadErrorPassesThrough(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	var refreshes atomic.Int32
	refresher := RefresherFunc(func(ctx context.Context, refreshToken string) (identity.TokenPair, error) {
		refreshes.Add(1)
		return identity.TokenPair{}, nil
	})

	store := &faultyStore{
		Store: seedStore(t, "stale-access", "refresh-1"),
		key:   credstore.KeyRefreshToken,
		err:   errors.New("record lock held"),
	}
	var logs bytes.Buffer
	p := NewPipeline(store, refresher,
		WithBase(server.Client().Transport),
		WithLogger(slog.New(slog.NewTextHandler(&logs, nil))))

	req, _ := http.NewRequest(http.MethodGet, server.URL+"/projects", nil)
	resp, err := p.RoundTrip(req)
	if err != nil {
		t.Fatalf("RoundTrip: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("status = %d, want 403 passed through", resp.StatusCode)
	}
	if n := refreshes.Load(); n != 0 {
		t.Errorf("refresher ran %d times despite the read failure", n)
	}
	if !strings.Contains(logs.String(), "failed to read refresh token") {
		t.Errorf("store read failure not logged; logs:\n%s", logs.String())
	}
}

func TestRoundTripCustomExpiredStatus(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		if r.Header.Get("Authorization") == "Bearer new-access" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	store := seedStore(t, "stale-access", "refresh-1")
	p := NewPipeline(store,
		staticRefresher(identity.TokenPair{AccessToken: "new-access", RefreshToken: "new-refresh"}, nil),
		WithBase(server.Client().Transport),
		WithExpiredStatus(http.StatusUnauthorized))

	req, _ := http.NewRequest(http.MethodGet, server.URL+"/projects", nil)
	resp, err := p.RoundTrip(req)
	if err != nil {
		t.Fatalf("RoundTrip: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200 after retry on configured status", resp.StatusCode)
	}
	if n := requests.Load(); n != 2 {
		t.Errorf("server saw %d requests, want 2", n)
	}
}
