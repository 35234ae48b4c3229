// Package transport performs single heartbeat delivery attempts over HTTP.
// It is stateless: one call, one request, one normalized outcome. Retry
// policy lives entirely in the heartbeat engine.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// BodyPreviewLimit is the maximum number of characters of a response body
// kept for display. Longer bodies are truncated with an ellipsis marker.
const BodyPreviewLimit = 300

// ellipsis marks a truncated body preview.
const ellipsis = "..."

// maxBodyBytes bounds how much of a response body is read. Generous relative
// to the preview limit so multi-byte and whitespace-heavy bodies still yield
// a full preview.
const maxBodyBytes = 64 << 10

// Kind classifies the outcome of one delivery attempt.
type Kind int

const (
	// KindSuccess is a 2xx response.
	KindSuccess Kind = iota
	// KindRejected is a non-2xx response. The remote received the heartbeat
	// and answered; the engine does not retry these.
	KindRejected
	// KindError is a transport-level failure: network, timeout, or an
	// unreadable response. Only these are retried.
	KindError
)

// Outcome is the normalized result of one delivery attempt.
type Outcome struct {
	Kind        Kind
	StatusCode  int    // set for Success and Rejected
	BodyPreview string // response body truncated for display
	Message     string // set for Error
}

// Client performs one heartbeat delivery attempt.
type Client interface {
	Attempt(ctx context.Context, identifier string) Outcome
}

// payload is the JSON body sent with every heartbeat.
type payload struct {
	Identifier string `json:"identifier"`
	Name       string `json:"name"`
}

// HTTPClient delivers heartbeats to a fixed endpoint with a fixed credential
// header. Safe for concurrent use.
type HTTPClient struct {
	url    string
	secret string
	name   string
	client *http.Client
}

// NewHTTPClient creates a transport client posting to url with the given
// x-secret header value and per-request timeout. name is the fixed kind tag
// included in every payload.
func NewHTTPClient(url, secret, name string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		url:    url,
		secret: secret,
		name:   name,
		client: &http.Client{Timeout: timeout},
	}
}

// Attempt sends one heartbeat for identifier. It never returns an error;
// every failure mode is folded into the Outcome.
func (c *HTTPClient) Attempt(ctx context.Context, identifier string) Outcome {
	body, err := json.Marshal(payload{Identifier: identifier, Name: c.name})
	if err != nil {
		return Outcome{Kind: KindError, Message: fmt.Sprintf("encode payload: %v", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return Outcome{Kind: KindError, Message: fmt.Sprintf("build request: %v", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-secret", c.secret)

	resp, err := c.client.Do(req)
	if err != nil {
		return Outcome{Kind: KindError, Message: err.Error()}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return Outcome{Kind: KindError, Message: fmt.Sprintf("read response: %v", err)}
	}

	preview := Preview(renderBody(raw))

	kind := KindRejected
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		kind = KindSuccess
	}

	return Outcome{
		Kind:        kind,
		StatusCode:  resp.StatusCode,
		BodyPreview: preview,
	}
}

// renderBody returns the body as compact JSON when it decodes, else as
// trimmed raw text.
func renderBody(raw []byte) string {
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err == nil {
		if compact, err := json.Marshal(decoded); err == nil {
			return string(compact)
		}
	}
	return strings.TrimSpace(string(raw))
}

// Preview truncates s to BodyPreviewLimit characters, appending an ellipsis
// marker when truncated. Counted in runes so multi-byte text is not split.
func Preview(s string) string {
	runes := []rune(s)
	if len(runes) <= BodyPreviewLimit {
		return s
	}
	return string(runes[:BodyPreviewLimit]) + ellipsis
}
