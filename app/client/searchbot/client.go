package searchbot

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

	"propchat/app/config"

	"github.com/samber/do"
	"github.com/samber/oops"
)

const (
	defaultTimeout    = 15 * time.Second
	defaultBotMessage = "I'm not sure how to respond to that."
	maxBodySize       = 4 << 20
)

type Client struct {
	endpoint         string
	feedbackEndpoint string
	timeout          time.Duration
	httpClient       *http.Client
}

func NewClient(di *do.Injector) (*Client, error) {
	cfg := do.MustInvoke[*config.Config](di)

	return New(cfg.Backend.Endpoint, cfg.Backend.FeedbackEndpoint, cfg.Backend.Timeout, nil), nil
}

// New builds a client. An empty feedbackEndpoint is derived from endpoint,
// a nil httpClient falls back to a plain client without its own timeout.
func New(endpoint, feedbackEndpoint string, timeout time.Duration, httpClient *http.Client) *Client {
	if feedbackEndpoint == "" {
		feedbackEndpoint = FeedbackURL(endpoint)
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	return &Client{
		endpoint:         endpoint,
		feedbackEndpoint: feedbackEndpoint,
		timeout:          timeout,
		httpClient:       httpClient,
	}
}

// FeedbackURL maps the search endpoint onto its feedback sibling.
func FeedbackURL(endpoint string) string {
	if strings.Contains(endpoint, "/search") {
		return strings.Replace(endpoint, "/search", "/log_feedback", 1)
	}

	return strings.TrimRight(endpoint, "/") + "/log_feedback"
}

// SendMessage performs one search call. It never returns nil and never
// fails: errors come back as a bot message with Err set and the caller's
// criteria untouched.
func (c *Client) SendMessage(ctx context.Context, message string, criteria Criteria, history []Turn) *Response {
	slog.Debug("Sending message",
		"endpoint", c.endpoint,
		"message", message,
		"criteria", criteria,
		"history_len", len(history))

	start := time.Now()

	resp, err := c.send(ctx, message, criteria, history)
	if err != nil {
		err = oops.
			In("searchbot").
			With("endpoint", c.endpoint).
			With("duration", time.Since(start)).
			Wrap(err)

		slog.Warn("Search request failed", "error", err)

		return failure(err, criteria)
	}

	slog.Debug("Received response",
		"results", len(resp.Results),
		"search_performed", resp.SearchPerformed,
		"ask_for_feedback", resp.AskForFeedback,
		"duration", time.Since(start))

	return resp
}

func (c *Client) send(ctx context.Context, message string, criteria Criteria, history []Turn) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if criteria == nil {
		criteria = Criteria{}
	}
	if history == nil {
		history = []Turn{}
	}

	payload, err := json.Marshal(Request{
		Query:               message,
		CriteriaSoFar:       criteria,
		ConversationHistory: history,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	data, status, err := c.post(ctx, c.endpoint, payload)
	if err != nil {
		return nil, err
	}

	if status < 200 || status >= 300 {
		backendErr := parseErrorResponse(status, data)
		slog.Error("Server error",
			"status", backendErr.Status,
			"message", backendErr.Message,
			"details", backendErr.Details)

		return nil, backendErr
	}

	body, err := decodeResponse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return normalize(body, data), nil
}

func (c *Client) post(ctx context.Context, url string, payload []byte) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, classifyTransport(err)
	}
	defer res.Body.Close()

	data, err := io.ReadAll(io.LimitReader(res.Body, maxBodySize))
	if err != nil {
		return nil, res.StatusCode, classifyTransport(err)
	}

	return data, res.StatusCode, nil
}

func normalize(body responseBody, raw []byte) *Response {
	resp := &Response{
		BotMessage:      body.BotDialogueMessage,
		Results:         body.SearchResults,
		Criteria:        body.Criteria,
		SearchPerformed: body.SearchPerformed,
		AskForFeedback:  body.AskForFeedback,
		Raw:             json.RawMessage(raw),
	}

	if resp.BotMessage == "" {
		resp.BotMessage = defaultBotMessage
	}
	if resp.Results == nil {
		resp.Results = []Property{}
	}

	return resp
}

// LogFeedback submits feedback. No deadline beyond ctx and no response
// contract; callers log and drop the error.
func (c *Client) LogFeedback(ctx context.Context, feedback Feedback) error {
	payload, err := json.Marshal(feedback)
	if err != nil {
		return fmt.Errorf("failed to marshal feedback: %w", err)
	}

	_, status, err := c.post(ctx, c.feedbackEndpoint, payload)
	if err != nil {
		return oops.In("searchbot").With("endpoint", c.feedbackEndpoint).Wrapf(err, "failed to log feedback")
	}

	if status < 200 || status >= 300 {
		return oops.In("searchbot").With("endpoint", c.feedbackEndpoint).Errorf("feedback endpoint responded with status %d", status)
	}

	return nil
}

func (c *Client) Endpoint() string {
	return c.endpoint
}

func (c *Client) FeedbackEndpoint() string {
	return c.feedbackEndpoint
}
