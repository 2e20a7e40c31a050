package provider_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/notifyhub/tubealert/internal/provider"
)

func TestResendProvider_Send(t *testing.T) {
	var (
		gotPath string
		gotAuth string
		gotIdem string
		gotBody map[string]any
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotIdem = r.Header.Get("Idempotency-Key")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"msg-123"}`))
	}))
	defer srv.Close()

	p := provider.NewResendProvider(srv.URL+"/", "key-1", time.Second)
	resp, err := p.Send(context.Background(), provider.Email{
		From:           "TubeAlert <alerts@example.com>",
		To:             "user@example.com",
		Subject:        "New video",
		HTML:           "<p>hi</p>",
		Text:           "hi",
		IdempotencyKey: "p1:abc123",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.MessageID != "msg-123" {
		t.Fatalf("expected msg-123, got %q", resp.MessageID)
	}
	if gotPath != "/emails" {
		t.Fatalf("expected /emails, got %q", gotPath)
	}
	if gotAuth != "Bearer key-1" {
		t.Fatalf("unexpected auth header %q", gotAuth)
	}
	if gotIdem != "p1:abc123" {
		t.Fatalf("unexpected idempotency key %q", gotIdem)
	}

	want := map[string]any{
		"from":    "TubeAlert <alerts@example.com>",
		"to":      []any{"user@example.com"},
		"subject": "New video",
		"html":    "<p>hi</p>",
		"text":    "hi",
	}
	if diff := cmp.Diff(want, gotBody); diff != "" {
		t.Fatalf("request body mismatch (-want +got):\n%s", diff)
	}
}

func TestResendProvider_NonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid from address", http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	p := provider.NewResendProvider(srv.URL, "key-1", time.Second)
	if _, err := p.Send(context.Background(), provider.Email{To: "user@example.com"}); err == nil {
		t.Fatal("expected error for 422 response")
	}
}

func TestResendProvider_NoIdempotencyHeaderWhenEmpty(t *testing.T) {
	var present bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, present = r.Header["Idempotency-Key"]
		_, _ = w.Write([]byte(`{"id":"x"}`))
	}))
	defer srv.Close()

	p := provider.NewResendProvider(srv.URL, "key-1", time.Second)
	if _, err := p.Send(context.Background(), provider.Email{To: "user@example.com"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if present {
		t.Fatal("expected no Idempotency-Key header")
	}
}
