package summarizer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/google/go-cmp/cmp"

	"github.com/notifyhub/tubealert/internal/domain"
)

func TestClient_Summarize(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			t.Errorf("unexpected auth header %q", r.Header.Get("Authorization"))
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"model":"gpt-4o-mini-2024","choices":[{"message":{"role":"assistant",` +
			`"content":"{\"briefSummary\":\"A short take.\",\"keyPoints\":[\"one\",\"two\"]}"}}]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/v1", "sk-test", "gpt-4o-mini", 0, time.Second)
	summary, model, err := c.Summarize(context.Background(), Input{
		VideoID: "abc123", Title: "Go tips", AuthorName: "Gopher", Transcript: "hello",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := &domain.Summary{BriefSummary: "A short take.", KeyPoints: []string{"one", "two"}}
	if diff := cmp.Diff(want, summary); diff != "" {
		t.Fatalf("summary mismatch (-want +got):\n%s", diff)
	}
	if model != "gpt-4o-mini-2024" {
		t.Fatalf("expected model from response, got %q", model)
	}
	if got.Model != "gpt-4o-mini" || got.ResponseFormat.Type != "json_object" {
		t.Fatalf("unexpected request: %+v", got)
	}
	if len(got.Messages) != 2 || !strings.Contains(got.Messages[1].Content, "Title: Go tips") {
		t.Fatalf("unexpected messages: %+v", got.Messages)
	}
}

func TestClient_Summarize_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusInternalServerError, `{"error":"boom"}`},
		{"no choices", http.StatusOK, `{"choices":[]}`},
		{"content not json", http.StatusOK, `{"choices":[{"message":{"content":"sorry"}}]}`},
		{"empty summary", http.StatusOK, `{"choices":[{"message":{"content":"{\"briefSummary\":\"\"}"}}]}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			c := NewClient(srv.URL, "k", "m", 0, time.Second)
			if _, _, err := c.Summarize(context.Background(), Input{Transcript: "x"}); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestClient_PromptTruncatesTranscript(t *testing.T) {
	c := NewClient("http://unused", "k", "m", 5, time.Second)
	p := c.prompt(Input{Title: "t", Transcript: "abcdéfgh"})
	if !strings.HasSuffix(p, "Transcript:\nabcd") {
		t.Fatalf("expected transcript cut before the multibyte rune, got %q", p)
	}
	if !utf8.ValidString(p) {
		t.Fatal("prompt is not valid utf-8")
	}
}
