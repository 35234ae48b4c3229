package transport_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sainohq/beacon/internal/transport"
)

const testTimeout = 2 * time.Second

func TestAttemptSuccess(t *testing.T) {
	var gotSecret, gotContentType string
	var gotBody map[string]string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSecret = r.Header.Get("x-secret")
		gotContentType = r.Header.Get("Content-Type")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok": true}`))
	}))
	defer srv.Close()

	c := transport.NewHTTPClient(srv.URL, "s3cret", "vps", testTimeout)
	out := c.Attempt(context.Background(), "worker-1")

	if out.Kind != transport.KindSuccess {
		t.Fatalf("Kind = %v, want KindSuccess (message %q)", out.Kind, out.Message)
	}
	if out.StatusCode != http.StatusOK {
		t.Errorf("StatusCode = %d, want 200", out.StatusCode)
	}
	if out.BodyPreview != `{"ok":true}` {
		t.Errorf("BodyPreview = %q, want compact JSON", out.BodyPreview)
	}

	if gotSecret != "s3cret" {
		t.Errorf("x-secret = %q, want %q", gotSecret, "s3cret")
	}
	if gotContentType != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", gotContentType)
	}
	if gotBody["identifier"] != "worker-1" || gotBody["name"] != "vps" {
		t.Errorf("request body = %v, want identifier worker-1, name vps", gotBody)
	}
}

func TestAttemptRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("try later"))
	}))
	defer srv.Close()

	c := transport.NewHTTPClient(srv.URL, "s", "vps", testTimeout)
	out := c.Attempt(context.Background(), "worker-1")

	if out.Kind != transport.KindRejected {
		t.Fatalf("Kind = %v, want KindRejected", out.Kind)
	}
	if out.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("StatusCode = %d, want 503", out.StatusCode)
	}
	if out.BodyPreview != "try later" {
		t.Errorf("BodyPreview = %q, want raw text", out.BodyPreview)
	}
}

func TestAttemptConnectionError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse connections

	c := transport.NewHTTPClient(srv.URL, "s", "vps", testTimeout)
	out := c.Attempt(context.Background(), "worker-1")

	if out.Kind != transport.KindError {
		t.Fatalf("Kind = %v, want KindError", out.Kind)
	}
	if out.Message == "" {
		t.Error("Message is empty, want failure description")
	}
}

func TestAttemptTimeout(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer srv.Close()
	defer close(block)

	c := transport.NewHTTPClient(srv.URL, "s", "vps", 50*time.Millisecond)
	out := c.Attempt(context.Background(), "worker-1")

	if out.Kind != transport.KindError {
		t.Fatalf("Kind = %v, want KindError", out.Kind)
	}
}

func TestAttemptNonJSONBodyTrimmed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("  pong  \n"))
	}))
	defer srv.Close()

	c := transport.NewHTTPClient(srv.URL, "s", "vps", testTimeout)
	out := c.Attempt(context.Background(), "worker-1")

	if out.BodyPreview != "pong" {
		t.Errorf("BodyPreview = %q, want trimmed %q", out.BodyPreview, "pong")
	}
}

func TestAttemptLongBodyTruncated(t *testing.T) {
	long := strings.Repeat("x", 1000)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(long))
	}))
	defer srv.Close()

	c := transport.NewHTTPClient(srv.URL, "s", "vps", testTimeout)
	out := c.Attempt(context.Background(), "worker-1")

	want := strings.Repeat("x", transport.BodyPreviewLimit) + "..."
	if out.BodyPreview != want {
		t.Errorf("BodyPreview length = %d, want %d chars plus ellipsis", len(out.BodyPreview), transport.BodyPreviewLimit)
	}
}

func TestPreview(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"short", "hello", "hello"},
		{"exactly limit", strings.Repeat("a", 300), strings.Repeat("a", 300)},
		{"over limit", strings.Repeat("a", 301), strings.Repeat("a", 300) + "..."},
		{"multibyte", strings.Repeat("é", 301), strings.Repeat("é", 300) + "..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := transport.Preview(tt.input); got != tt.want {
				t.Errorf("Preview(%d chars) = %d chars, want %d", len([]rune(tt.input)), len([]rune(got)), len([]rune(tt.want)))
			}
		})
	}
}
