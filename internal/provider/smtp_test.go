package provider

import (
	"strings"
	"testing"
)

func TestBuildMessage(t *testing.T) {
	msg, err := buildMessage(Email{
		From:    "TubeAlert <alerts@example.com>",
		To:      "user@example.com",
		Subject: "New video",
		HTML:    "<p>hello</p>",
		Text:    "hello",
	}, "<id@example.com>")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	s := string(msg)
	for _, want := range []string{
		"Subject: New video\r\n",
		"Message-ID: <id@example.com>\r\n",
		"Content-Type: multipart/alternative; boundary=",
		"text/plain; charset=UTF-8",
		"text/html; charset=UTF-8",
		"<p>hello</p>",
	} {
		if !strings.Contains(s, want) {
			t.Fatalf("message missing %q:\n%s", want, s)
		}
	}
	if strings.Index(s, "text/plain") > strings.Index(s, "text/html") {
		t.Fatal("plain-text part must come before the html part")
	}
}

func TestParseAddress(t *testing.T) {
	tests := map[string]string{
		"TubeAlert <alerts@example.com>": "alerts@example.com",
		"alerts@example.com":             "alerts@example.com",
		" <a@b.c> ":                      "a@b.c",
	}
	for in, want := range tests {
		if got := parseAddress(in); got != want {
			t.Fatalf("parseAddress(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestIDFor_StableForKey(t *testing.T) {
	if idFor("p1:v1") != idFor("p1:v1") {
		t.Fatal("expected the same id for the same key")
	}
	if idFor("p1:v1") == idFor("p2:v1") {
		t.Fatal("expected different ids for different keys")
	}
}
