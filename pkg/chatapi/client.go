// Package chatapi is the HTTP client for the chat backend. It owns request
// construction and status translation; decoding of the response body is
// delegated to linestream.
package chatapi

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

	"github.com/papercomputeco/prems/pkg/linestream"
	"github.com/papercomputeco/prems/pkg/logger"
)

// DefaultBaseURL is used when Config.BaseURL is empty.
const DefaultBaseURL = "http://localhost:8000/api"

// maxErrorBody bounds how much of a failed response is read into an error.
const maxErrorBody = 64 * 1024

// Config configures a Client.
type Config struct {
	// BaseURL is the API root, e.g. "http://localhost:8000/api".
	BaseURL string

	// HTTPClient is used for all requests. Defaults to a client without an
	// overall timeout since replies stream for as long as the model talks.
	HTTPClient *http.Client

	// StreamOptions are passed to the linestream.Reader of every chat stream.
	StreamOptions []linestream.Option

	Logger *slog.Logger
}

// Client talks to the chat backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
	streamOpts []linestream.Option
	logger     *slog.Logger
}

// NewClient creates a Client from c. A nil c uses all defaults.
func NewClient(c *Config) *Client {
	if c == nil {
		c = &Config{}
	}

	client := &Client{
		baseURL:    strings.TrimRight(c.BaseURL, "/"),
		httpClient: c.HTTPClient,
		streamOpts: c.StreamOptions,
		logger:     c.Logger,
	}

	if client.baseURL == "" {
		client.baseURL = DefaultBaseURL
	}
	if client.httpClient == nil {
		client.httpClient = &http.Client{}
	}
	if client.logger == nil {
		client.logger = logger.Nop()
	}

	return client
}

// BaseURL returns the API root requests are sent to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

type chatRequest struct {
	Message string `json:"message"`
}

// StreamChat sends message to the chat endpoint and returns the decoded event
// stream. Any non-success status fails here, before events are produced.
// The returned Stream must be closed. Cancelling ctx aborts the body read.
func (c *Client) StreamChat(ctx context.Context, message string) (*Stream, error) {
	body, err := json.Marshal(chatRequest{Message: message})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/chat", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	c.logger.Debug("sending chat request",
		"url", req.URL.String(),
		"message_len", len(message),
	)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending chat request: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail := readDetail(resp)
		c.logger.Debug("chat request rejected",
			"status", resp.StatusCode,
			"body", detail,
		)
		return nil, newStreamStatusError(resp, detail)
	}

	if resp.Body == nil || nullBodyStatus(resp.StatusCode) {
		if resp.Body != nil {
			resp.Body.Close()
		}
		return nil, newNoBodyError(resp)
	}

	c.logger.Debug("chat stream opened",
		"status", resp.StatusCode,
		"latency", time.Since(start),
	)

	return newStream(resp.Body, c.logger, c.streamOpts...), nil
}

// Health calls the health endpoint and returns its JSON body.
func (c *Client) Health(ctx context.Context) (map[string]any, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/health", nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending health request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, newHealthStatusError(resp, readDetail(resp))
	}

	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding health response: %w", err)
	}

	return out, nil
}

// Do performs a JSON request against path. A non-nil body is JSON encoded
// and a non-nil out receives the decoded response. A 204 response leaves out
// untouched.
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := c.newRequest(ctx, method, path, reader)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newCallStatusError(resp, readDetail(resp))
	}

	if resp.StatusCode == http.StatusNoContent || out == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s %s response: %w", method, path, err)
	}

	return nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// nullBodyStatus reports whether code never carries a response body.
func nullBodyStatus(code int) bool {
	switch code {
	case http.StatusNoContent, http.StatusResetContent, http.StatusNotModified:
		return true
	}
	return false
}

// readDetail drains and closes a failed response, returning its trimmed body.
// Read failures yield an empty detail.
func readDetail(resp *http.Response) string {
	if resp.Body == nil {
		return ""
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(b))
}
