// Package webhook delivers lifecycle events to an HTTP endpoint.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/phrazzld/questboard-api/internal/events"
)

const defaultTimeout = 5 * time.Second

// Header names set on every delivery.
const (
	HeaderEvent    = "X-Questboard-Event"
	HeaderDelivery = "X-Questboard-Delivery"
	HeaderSecret   = "X-Questboard-Secret"
)

// Config describes the target endpoint.
type Config struct {
	URL     string
	Secret  string
	Timeout time.Duration
}

// Handler is an events.EventHandler that POSTs each event as JSON.
type Handler struct {
	url    string
	secret string
	client *http.Client
	logger *slog.Logger
}

// NewHandler creates a webhook handler.
func NewHandler(cfg Config, logger *slog.Logger) *Handler {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Handler{
		url:    cfg.URL,
		secret: cfg.Secret,
		client: &http.Client{Timeout: timeout},
		logger: logger.With(slog.String("component", "webhook")),
	}
}

// HandleEvent implements events.EventHandler.
func (h *Handler) HandleEvent(ctx context.Context, event *events.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderEvent, string(event.Topic))
	req.Header.Set(HeaderDelivery, event.ID.String())
	if strings.TrimSpace(h.secret) != "" {
		req.Header.Set(HeaderSecret, h.secret)
	}

	res, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook delivery failed: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return fmt.Errorf("webhook status %d: %s", res.StatusCode, strings.TrimSpace(string(body)))
	}

	h.logger.DebugContext(ctx, "webhook delivered",
		slog.String("event_id", event.ID.String()),
		slog.String("topic", string(event.Topic)))
	return nil
}
