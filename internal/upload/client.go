package upload

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/claude/reprank/internal/ingest"
	"github.com/claude/reprank/internal/ranking"
)

// Response is the server's answer to an export upload.
type Response struct {
	Import ingest.Result  `json:"import"`
	Delta  *ranking.Delta `json:"delta,omitempty"`
}

// Client sends exports to the RepRank server over HTTP.
type Client struct {
	serverURL  string
	apiKey     string
	httpClient *http.Client
	backoff    time.Duration
}

// NewClient creates a new HTTP client for the RepRank server.
func NewClient(serverURL, apiKey string) *Client {
	return &Client{
		serverURL: strings.TrimRight(serverURL, "/"),
		apiKey:    apiKey,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		backoff: time.Second,
	}
}

// SendAlphaExport POSTs an Alpha Progression CSV export to the ingest endpoint.
// Retries up to 3 times with exponential backoff on network and server errors;
// client errors are returned immediately.
func (c *Client) SendAlphaExport(data []byte) (*Response, error) {
	var lastErr error
	for attempt := range 3 {
		if attempt > 0 {
			time.Sleep(c.backoff << uint(attempt-1))
		}

		req, err := http.NewRequest(http.MethodPost, c.serverURL+"/api/v1/ingest/alpha", bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("creating request: %w", err)
		}
		req.Header.Set("Content-Type", "text/csv")
		req.Header.Set("X-API-Key", c.apiKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusOK:
			var out Response
			if err := json.Unmarshal(body, &out); err != nil {
				return nil, fmt.Errorf("decoding response: %w", err)
			}
			return &out, nil
		case resp.StatusCode < http.StatusInternalServerError:
			return nil, fmt.Errorf("ingest rejected (status %d): %s", resp.StatusCode, body)
		}
		lastErr = fmt.Errorf("ingest failed (status %d): %s", resp.StatusCode, body)
	}

	return nil, fmt.Errorf("after 3 attempts: %w", lastErr)
}
