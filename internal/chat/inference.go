// Package chat talks to the hosted inference function and turns its answer
// into the word-by-word reply the client renders.
package chat

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

	"github.com/bottleservice/bottleservice-server/internal/domain"
)

// DefaultMaxTokens is sent with every question.
const DefaultMaxTokens = 1024

const (
	functionName   = "ai-query"
	defaultTimeout = 30 * time.Second
	maxAnswerBytes = 1 << 20
)

// ErrInference is returned for any failed call to the inference function.
var ErrInference = errors.New("inference failed")

// Asker answers a question about a shelf.
type Asker interface {
	Ask(ctx context.Context, token string, q Question) (string, error)
}

// Question is the request body of the inference function.
type Question struct {
	Question  string                 `json:"question"`
	Bottles   []domain.ContextBottle `json:"bottles"`
	MaxTokens int                    `json:"max_tokens"`
}

// answer lists the fields the function has been seen to reply with.
type answer struct {
	Text     string `json:"text"`
	Answer   string `json:"answer"`
	Response string `json:"response"`
}

func (a answer) best() string {
	for _, s := range []string{a.Text, a.Answer, a.Response} {
		if strings.TrimSpace(s) != "" {
			return s
		}
	}
	return domain.ChatNoResponse
}

// Client calls {FUNCTIONS_URL}/ai-query.
type Client struct {
	http      *http.Client
	url       string
	anonKey   string
	maxTokens int
	logger    *slog.Logger
}

var _ Asker = (*Client)(nil)

// Options configures a Client.
type Options struct {
	HTTPClient   *http.Client
	Logger       *slog.Logger
	FunctionsURL string
	AnonKey      string
	MaxTokens    int
}

// NewClient creates an inference client.
func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	return &Client{
		http:      httpClient,
		url:       strings.TrimRight(opts.FunctionsURL, "/") + "/" + functionName,
		anonKey:   opts.AnonKey,
		maxTokens: maxTokens,
		logger:    logger,
	}
}

// Ask sends the question with the user's bearer token and returns the answer
// as Markdown. MaxTokens is filled in when zero.
func (c *Client) Ask(ctx context.Context, token string, q Question) (string, error) {
	if q.MaxTokens <= 0 {
		q.MaxTokens = c.maxTokens
	}
	if q.Bottles == nil {
		q.Bottles = []domain.ContextBottle{}
	}

	body, err := json.Marshal(q)
	if err != nil {
		return "", fmt.Errorf("marshal question: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	if c.anonKey != "" {
		req.Header.Set("apikey", c.anonKey)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInference, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxAnswerBytes))
	if err != nil {
		return "", fmt.Errorf("%w: read answer: %v", ErrInference, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: status %d", ErrInference, resp.StatusCode)
	}

	var a answer
	if err := json.Unmarshal(raw, &a); err != nil {
		return "", fmt.Errorf("%w: parse answer: %v", ErrInference, err)
	}

	c.logger.Debug("inference answered",
		"bottles", len(q.Bottles),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return ToMarkdown(a.best()), nil
}
