package credstore

import (
	"errors"
	"testing"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	s := NewMemoryStore()

	if _, ok, err := s.Get(KeyAccessToken); err != nil || ok {
		t.Fatalf("Get on fresh store: ok=%v err=%v", ok, err)
	}
	if err := s.Set(KeyAccessToken, "access-1"); err != nil {
		t.Fatal(err)
	}
	got, ok, err := s.Get(KeyAccessToken)
	if err != nil || !ok || got != "access-1" {
		t.Errorf("Get = %q ok=%v err=%v", got, ok, err)
	}

	if err := s.Remove(KeyAccessToken); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := s.Get(KeyAccessToken); ok {
		t.Error("removed key still present")
	}
}

func TestMemoryStoreClear(t *testing.T) {
	s := NewMemoryStore()
	for _, key := range []string{KeyAccessToken, KeyRefreshToken, KeyUserProfile} {
		if err := s.Set(key, "v"); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.Clear(); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{KeyAccessToken, KeyRefreshToken, KeyUserProfile} {
		if _, ok, _ := s.Get(key); ok {
			t.Errorf("store[%q] survived Clear", key)
		}
	}
}

func TestMemoryStoreClosed(t *testing.T) {
	s := NewMemoryStore()
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if _, _, err := s.Get(KeyAccessToken); !errors.Is(err, ErrClosed) {
		t.Errorf("Get after Close: %v, want ErrClosed", err)
	}
	if err := s.Clear(); !errors.Is(err, ErrClosed) {
		t.Errorf("Clear after Close: %v, want ErrClosed", err)
	}
}
