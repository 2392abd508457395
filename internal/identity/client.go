package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/plurahq/agencyhub/internal/models"
	"go.uber.org/zap"
)

// Client talks to a Clerk-style REST API. Only the metadata PATCH is
// implemented; everything else about the provider is consumed through
// its session tokens and webhooks.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	logger  *zap.Logger
}

func NewClient(baseURL, apiKey string, logger *zap.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 10 * time.Second},
		logger:  logger,
	}
}

type metadataRequest struct {
	PrivateMetadata map[string]any `json:"private_metadata"`
}

func (c *Client) SetUserMetadata(ctx context.Context, userID string, role models.Role) error {
	body, err := json.Marshal(metadataRequest{
		PrivateMetadata: map[string]any{"role": role},
	})
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	url := fmt.Sprintf("%s/users/%s/metadata", c.baseURL, userID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build metadata request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("update user metadata: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Drain a little of the body for the log; the provider's error
		// payloads are small JSON documents.
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.Warn("identity metadata update rejected",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", snippet),
		)
		return fmt.Errorf("update user metadata: status %d", resp.StatusCode)
	}
	return nil
}
