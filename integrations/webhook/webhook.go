package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"gamekit/core"
)

// SignatureHeader carries the hex HMAC-SHA256 of the request body when a secret is set.
const SignatureHeader = "X-Gamekit-Signature"

// Sink posts game events to configured HTTP endpoints.
// It is synchronous; register it on an async event bus to keep publishers fast.
type Sink struct {
	client    *http.Client
	endpoints []string
	secret    []byte
	types     map[core.EventType]struct{}
	logger    *slog.Logger
}

// Option configures a Sink.
type Option func(*Sink)

// WithClient overrides the HTTP client (defaults to 2s timeout).
func WithClient(c *http.Client) Option {
	return func(s *Sink) {
		if c != nil {
			s.client = c
		}
	}
}

// WithSecret signs every body with HMAC-SHA256.
func WithSecret(secret string) Option {
	return func(s *Sink) { s.secret = []byte(secret) }
}

// WithEventTypes limits delivery to the listed types.
func WithEventTypes(types ...core.EventType) Option {
	return func(s *Sink) {
		for _, t := range types {
			s.types[t] = struct{}{}
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Sink) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a webhook sink.
func New(endpoints []string, opts ...Option) *Sink {
	s := &Sink{
		client: &http.Client{Timeout: 2 * time.Second},
		types:  map[core.EventType]struct{}{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.endpoints = append([]string{}, endpoints...)
	return s
}

// OnEvent posts the event JSON to all endpoints. Delivery failures are logged, not retried.
func (s *Sink) OnEvent(ctx context.Context, e core.Event) {
	if len(s.endpoints) == 0 {
		return
	}
	if len(s.types) > 0 {
		if _, ok := s.types[e.Type]; !ok {
			return
		}
	}
	body, err := json.Marshal(e)
	if err != nil {
		s.logger.Error("webhook marshal failed", "event", e.Type, "error", err)
		return
	}
	for _, ep := range s.endpoints {
		if err := s.post(ctx, ep, body); err != nil {
			s.logger.Warn("webhook delivery failed", "endpoint", ep, "event", e.Type, "error", err)
		}
	}
}

func (s *Sink) post(ctx context.Context, endpoint string, body []byte) error {
	req, err := http.NewRequestWithContext(context.WithoutCancel(ctx), http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if len(s.secret) > 0 {
		req.Header.Set(SignatureHeader, Sign(s.secret, body))
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}

// Sign returns the hex HMAC-SHA256 of body under secret.
func Sign(secret, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
