// Package omnibot talks to the omnibot agent backend: thread minting, the
// one-shot chat endpoint, and the SSE streaming endpoint.
package omnibot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Client handles communication with the omnibot server.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new omnibot client. timeout bounds every exchange,
// including a full streaming response; a stream that produces nothing for
// longer than the timeout is torn down and surfaces as a transport error,
// so the caller's busy state can never stick forever.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// MintThread asks the server to allocate a thread identifier. The caller
// treats failure as non-fatal: a locally generated id works just as well.
func (c *Client) MintThread(ctx context.Context) (string, error) {
	reqURL := fmt.Sprintf("%s/thread/new", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("omnibot returned status %d", resp.StatusCode)
	}

	var minted mintResponse
	if err := json.NewDecoder(resp.Body).Decode(&minted); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	return minted.ThreadID, nil
}

// ChatOnce sends a non-streaming chat request and returns the complete
// answer. Used by the plain (non-TTY) mode and as a fallback path.
func (c *Client) ChatOnce(ctx context.Context, text, threadID string) (string, error) {
	body, err := json.Marshal(chatRequest{Text: text, ThreadID: threadID})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	reqURL := fmt.Sprintf("%s/chat", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("omnibot returned status %d: %s", resp.StatusCode, string(msg))
	}

	var chat chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chat); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	return chat.Answer, nil
}

// Health verifies that the omnibot server is reachable. Any HTTP response
// counts; only a transport-level failure is an error.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", nil)
	if err != nil {
		return fmt.Errorf("failed to create health check request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("omnibot is unreachable at %s: %w (is the server running?)", c.baseURL, err)
	}
	resp.Body.Close()
	return nil
}

// streamURL builds the GET /chat/stream url for a query.
func (c *Client) streamURL(query, threadID string) string {
	q := url.Values{}
	q.Set("text", query)
	q.Set("thread_id", threadID)
	return fmt.Sprintf("%s/chat/stream?%s", c.baseURL, q.Encode())
}
