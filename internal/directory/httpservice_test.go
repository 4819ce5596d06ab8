package directory

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kamalraji/plan-it-together-sub013/pkg/models"
)

func TestHTTPServiceFetchActiveBundle(t *testing.T) {
	want := models.PublicKeyBundle{
		OwnerID:   "usr_1",
		PublicKey: make([]byte, 65),
		KeyID:     "pk1abc",
		IsActive:  true,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
		ExpiresAt: time.Now().UTC().Add(24 * time.Hour).Truncate(time.Second),
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("unexpected method %s", r.Method)
		}
		if r.URL.Path != "/v1/users/usr_1/keys/active" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(want); err != nil {
			t.Errorf("encode: %v", err)
		}
	}))
	defer srv.Close()

	svc := NewHTTPService(srv.URL, srv.Client())
	got, err := svc.FetchActiveBundle(context.Background(), "usr_1")
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if got.OwnerID != want.OwnerID || got.KeyID != want.KeyID || !got.IsActive {
		t.Fatalf("unexpected bundle: %+v", got)
	}
	if len(got.PublicKey) != 65 {
		t.Fatalf("public key length %d after decode", len(got.PublicKey))
	}
}

func TestHTTPServiceFetchNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	svc := NewHTTPService(srv.URL, srv.Client())
	_, err := svc.FetchActiveBundle(context.Background(), "usr_gone")
	if !errors.Is(err, ErrRecipientKeyNotFound) {
		t.Fatalf("expected ErrRecipientKeyNotFound, got %v", err)
	}
}

func TestHTTPServiceFetchServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	svc := NewHTTPService(srv.URL, srv.Client())
	_, err := svc.FetchActiveBundle(context.Background(), "usr_1")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestHTTPServicePublishBundle(t *testing.T) {
	var received models.PublicKeyBundle
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method %s", r.Method)
		}
		if r.URL.Path != "/v1/users/usr_1/keys" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	svc := NewHTTPService(srv.URL, srv.Client())
	bundle := models.PublicKeyBundle{OwnerID: "usr_1", PublicKey: make([]byte, 65), KeyID: "pk1abc", IsActive: true}
	if err := svc.PublishBundle(context.Background(), bundle); err != nil {
		t.Fatalf("publish failed: %v", err)
	}
	if received.KeyID != "pk1abc" || received.OwnerID != "usr_1" {
		t.Fatalf("server received %+v", received)
	}
}

func TestHTTPServicePublishRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	svc := NewHTTPService(srv.URL, srv.Client())
	err := svc.PublishBundle(context.Background(), models.PublicKeyBundle{OwnerID: "usr_1"})
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestHTTPServiceContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	svc := NewHTTPService(srv.URL, srv.Client())
	if _, err := svc.FetchActiveBundle(ctx, "usr_1"); err == nil {
		t.Fatal("expected an error once the context expired")
	}
}
