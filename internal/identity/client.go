package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bottleservice/bottleservice-server/internal/domain"
)

const defaultTimeout = 30 * time.Second

// Client talks to the hosted auth API under {BACKEND_URL}/auth/v1.
type Client struct {
	http    *http.Client
	baseURL string
	anonKey string
	logger  *slog.Logger
}

var _ Verifier = (*Client)(nil)

// Options configures a Client.
type Options struct {
	BackendURL string
	AnonKey    string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// New creates a hosted auth client.
func New(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		http:    httpClient,
		baseURL: strings.TrimRight(opts.BackendURL, "/") + "/auth/v1",
		anonKey: opts.AnonKey,
		logger:  logger,
	}
}

// rawUser is the subset of the provider's user object we read.
type rawUser struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	UserMetadata struct {
		FullName string `json:"full_name"`
		Name     string `json:"name"`
	} `json:"user_metadata"`
}

func (c *Client) newRequest(ctx context.Context, method, path, token string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("apikey", c.anonKey)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// Verify asks the provider who owns token.
func (c *Client) Verify(ctx context.Context, token string) (*domain.Identity, error) {
	if strings.TrimSpace(token) == "" {
		return nil, ErrInvalidToken
	}

	req, err := c.newRequest(ctx, http.MethodGet, "/user", token)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrUnavailable, err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return nil, ErrInvalidToken
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	default:
		c.logger.Warn("unexpected auth response", "status", resp.StatusCode)
		return nil, ErrInvalidToken
	}

	var u rawUser
	if err := json.Unmarshal(body, &u); err != nil {
		return nil, fmt.Errorf("%w: parse user: %v", ErrUnavailable, err)
	}
	if u.ID == "" {
		return nil, ErrInvalidToken
	}

	name := u.UserMetadata.FullName
	if name == "" {
		name = u.UserMetadata.Name
	}
	return &domain.Identity{ID: u.ID, Email: u.Email, DisplayName: name}, nil
}

// SignOut revokes the token. An already invalid token counts as signed out.
func (c *Client) SignOut(ctx context.Context, token string) error {
	req, err := c.newRequest(ctx, http.MethodPost, "/logout", token)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode <= 299:
		return nil
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return nil
	default:
		return fmt.Errorf("%w: logout status %d", ErrUnavailable, resp.StatusCode)
	}
}

// AuthorizeURL builds the provider's OAuth authorize URL.
func (c *Client) AuthorizeURL(provider, redirectTo string) string {
	q := url.Values{}
	if provider != "" {
		q.Set("provider", provider)
	}
	if redirectTo != "" {
		q.Set("redirect_to", redirectTo)
	}
	u := c.baseURL + "/authorize"
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return u
}
