package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Sentinel errors for the status conditions the backend signals as
// first-class, user-retryable outcomes.
var (
	ErrRateLimited     = errors.New("rate limited by chat backend")
	ErrPaymentRequired = errors.New("chat backend requires payment")
)

// StatusError reports any other non-2xx response from the chat backend.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("chat backend returned %d", e.Code)
	}
	return fmt.Sprintf("chat backend returned %d: %s", e.Code, e.Body)
}

// Client posts conversation turns to the chat backend and hands back the raw
// streaming response body for the frame decoder.
type Client struct {
	endpoint string
	apiKey   string
	http     *http.Client
}

// NewClient creates a client for the given chat endpoint.
func NewClient(endpoint, apiKey string) *Client {
	return &Client{
		endpoint: endpoint,
		apiKey:   apiKey,
		http:     http.DefaultClient,
	}
}

type chatRequest struct {
	Messages     []Message `json:"messages"`
	CurrentRoute string    `json:"currentRoute"`
}

// StartTurn sends the full message log and returns the response body stream.
// The caller owns closing the body. Non-2xx statuses map to ErrRateLimited,
// ErrPaymentRequired, or *StatusError.
func (c *Client) StartTurn(ctx context.Context, messages []Message, currentRoute string) (io.ReadCloser, error) {
	body, err := json.Marshal(chatRequest{Messages: messages, CurrentRoute: currentRoute})
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		resp.Body.Close()
		return nil, ErrRateLimited
	case resp.StatusCode == http.StatusPaymentRequired:
		resp.Body.Close()
		return nil, ErrPaymentRequired
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(detail))}
	}

	return resp.Body, nil
}
