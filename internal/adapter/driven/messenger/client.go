// Package messenger is an HTTP client for the coordinator's message channel.
// Page agents use it when the coordinator runs in another process.
package messenger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/ericfisherdev/passpanel/internal/domain/model"
	"github.com/ericfisherdev/passpanel/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.Messenger = (*Client)(nil)

const messagesPath = "/api/v1/messages"

// Client sends channel messages to a remote coordinator. Transport failures
// are retried briefly; a channel that stays unreachable surfaces as an error
// so the agent can stop.
type Client struct {
	baseURL    string
	httpClient *http.Client
	maxRetries uint64
	logger     *slog.Logger
}

// NewClient creates a Client for the coordinator at baseURL.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	return NewClientWithHTTP(baseURL, &http.Client{Timeout: timeout}, logger)
}

// NewClientWithHTTP creates a Client using the given http.Client.
func NewClientWithHTTP(baseURL string, httpClient *http.Client, logger *slog.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		maxRetries: 2,
		logger:     logger,
	}
}

// Send posts msg and returns the coordinator's reply. Action-level failures
// come back as a Reply with Success false and a nil error.
func (c *Client) Send(ctx context.Context, msg model.Message) (model.Reply, error) {
	body, err := json.Marshal(toRequest(msg))
	if err != nil {
		return model.Reply{}, fmt.Errorf("encode message: %w", err)
	}

	var b backoff.BackOff = backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(100*time.Millisecond),
		backoff.WithMaxElapsedTime(2*time.Second),
	)
	b = backoff.WithContext(backoff.WithMaxRetries(b, c.maxRetries), ctx)

	reply, err := backoff.RetryWithData(func() (model.Reply, error) {
		return c.post(ctx, body)
	}, b)
	if err != nil {
		return model.Reply{}, fmt.Errorf("send %s: %w", msg.Action, err)
	}
	return reply, nil
}

func (c *Client) post(ctx context.Context, body []byte) (model.Reply, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+messagesPath, bytes.NewReader(body))
	if err != nil {
		return model.Reply{}, backoff.Permanent(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return model.Reply{}, backoff.Permanent(err)
		}
		c.logger.Debug("message channel unreachable, retrying", "error", err)
		return model.Reply{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		_, _ = io.Copy(io.Discard, resp.Body)
		return model.Reply{}, fmt.Errorf("coordinator returned %s", resp.Status)
	}
	if resp.StatusCode != http.StatusOK {
		var e errorBody
		_ = json.NewDecoder(resp.Body).Decode(&e)
		if e.Error == "" {
			e.Error = resp.Status
		}
		return model.Reply{}, backoff.Permanent(errors.New(e.Error))
	}

	var payload replyDTO
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return model.Reply{}, backoff.Permanent(fmt.Errorf("decode reply: %w", err))
	}
	return payload.toModel(), nil
}
