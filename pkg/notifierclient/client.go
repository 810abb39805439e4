/**
 * @description
 * Client for delivering created assignments to a company's notification endpoint.
 */
package notifierclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jaldanatrf/assignment-service/internal/app"
	"github.com/jaldanatrf/assignment-service/internal/domain"
)

var _ app.Notifier = (*Client)(nil)

// Payload is the JSON document posted to the notification URL.
type Payload struct {
	Disputes []domain.Assignment `json:"disputes"`
	Resolver app.ResolverData    `json:"resolver"`
	SentAt   time.Time           `json:"sentAt"`
}

// Client posts assignment notifications over HTTP.
type Client struct {
	httpClient *http.Client
}

// NewClient creates a notification client with the given request timeout.
func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Notify posts the disputes and resolver data to cfg.NotificationURL.
func (c *Client) Notify(ctx context.Context, cfg domain.Configuration, disputes []domain.Assignment, resolver app.ResolverData) error {
	url := strings.TrimSpace(cfg.NotificationURL)
	if url == "" {
		return fmt.Errorf("notification URL is not configured for company %s", cfg.CompanyID)
	}

	body, err := json.Marshal(Payload{Disputes: disputes, Resolver: resolver, SentAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("failed to marshal notification payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token := strings.TrimSpace(cfg.AuthToken); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute notification request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("notification endpoint returned error status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
