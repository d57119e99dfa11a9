// Package postgrest implements backend.Backend against the hosted data API,
// a PostgREST endpoint under {BACKEND_URL}/rest/v1.
package postgrest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bottleservice/bottleservice-server/internal/backend"
	"github.com/bottleservice/bottleservice-server/internal/domain"
)

const (
	defaultTimeout = 30 * time.Second

	tableBottles       = "bottles"
	tableShelf         = "shelf_bottles"
	tableCustomBottles = "custom_bottles"
	tableSettings      = "user_settings"
)

// Client talks to the data API with the public API key and, when the
// context carries one, the user's hosted access token.
type Client struct {
	http    *http.Client
	baseURL string
	anonKey string
	logger  *slog.Logger
}

var _ backend.Backend = (*Client)(nil)

// Options configures a Client.
type Options struct {
	BackendURL string // e.g. https://project.example.co
	AnonKey    string
	HTTPClient *http.Client // Defaults to a client with a 30s timeout
	Logger     *slog.Logger
}

// New creates a data API client.
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
		baseURL: strings.TrimRight(opts.BackendURL, "/") + "/rest/v1",
		anonKey: opts.AnonKey,
		logger:  logger,
	}
}

// request is one call against a table.
type request struct {
	op     string
	method string
	table  string
	query  url.Values
	body   any
	prefer string
}

// do executes r and returns the status and the body.
// Statuses outside 2xx are mapped to errors.
func (c *Client) do(ctx context.Context, r request) (int, []byte, error) {
	var body io.Reader
	if r.body != nil {
		payload, err := json.Marshal(r.body)
		if err != nil {
			return 0, nil, &Error{Op: r.op, Table: r.table, Err: fmt.Errorf("encode body: %w", err)}
		}
		body = bytes.NewReader(payload)
	}

	u := c.baseURL + "/" + r.table
	if len(r.query) > 0 {
		u += "?" + r.query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, r.method, u, body)
	if err != nil {
		return 0, nil, &Error{Op: r.op, Table: r.table, Err: fmt.Errorf("create request: %w", err)}
	}

	bearer := c.anonKey
	if token, ok := backend.AccessToken(ctx); ok {
		bearer = token
	}
	req.Header.Set("apikey", c.anonKey)
	req.Header.Set("Authorization", "Bearer "+bearer)
	req.Header.Set("Accept", "application/json")
	if r.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.prefer != "" {
		req.Header.Set("Prefer", r.prefer)
	}

	c.logger.Debug("data api request", "op", r.op, "table", r.table, "method", r.method)

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, &Error{Op: r.op, Table: r.table, Err: fmt.Errorf("execute request: %w", err)}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, &Error{Op: r.op, Table: r.table, Status: resp.StatusCode, Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, respBody, &Error{
			Op:     r.op,
			Table:  r.table,
			Status: resp.StatusCode,
			Err:    statusError(resp.StatusCode, respBody),
		}
	}
	return resp.StatusCode, respBody, nil
}

// selectRows runs a GET and decodes the JSON array into out.
func (c *Client) selectRows(ctx context.Context, table string, query url.Values, out any) error {
	_, body, err := c.do(ctx, request{op: "select", method: http.MethodGet, table: table, query: query})
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &Error{Op: "select", Table: table, Err: fmt.Errorf("parse response: %w", err)}
	}
	return nil
}

func eq(v string) string {
	return "eq." + v
}

// ListBottles returns the whole catalog.
func (c *Client) ListBottles(ctx context.Context) ([]domain.Bottle, error) {
	var bottles []domain.Bottle
	q := url.Values{"select": {"*"}}
	if err := c.selectRows(ctx, tableBottles, q, &bottles); err != nil {
		return nil, err
	}
	return bottles, nil
}

// ListShelf returns the user's rows, newest first.
func (c *Client) ListShelf(ctx context.Context, userID string) ([]domain.ShelfBottle, error) {
	var rows []domain.ShelfBottle
	q := url.Values{
		"select":  {"*"},
		"user_id": {eq(userID)},
		"order":   {"added_at.desc"},
	}
	if err := c.selectRows(ctx, tableShelf, q, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// InsertShelf bulk inserts rows in one request.
func (c *Client) InsertShelf(ctx context.Context, rows []domain.ShelfBottle) error {
	if len(rows) == 0 {
		return nil
	}
	status, _, err := c.do(ctx, request{
		op:     "insert",
		method: http.MethodPost,
		table:  tableShelf,
		body:   rows,
		prefer: "return=minimal",
	})
	if err != nil {
		return err
	}
	if status != http.StatusCreated {
		return &Error{Op: "insert", Table: tableShelf, Status: status, Err: backend.ErrInsertRejected}
	}
	return nil
}

// UpdateShelf patches the editable columns of one row.
func (c *Client) UpdateShelf(ctx context.Context, userID, id string, patch domain.ShelfPatch) error {
	_, body, err := c.do(ctx, request{
		op:     "update",
		method: http.MethodPatch,
		table:  tableShelf,
		query:  url.Values{"id": {eq(id)}, "user_id": {eq(userID)}},
		body:   patch,
		prefer: "return=representation",
	})
	if err != nil {
		return err
	}
	return requireAffected("update", tableShelf, body)
}

// DeleteShelf removes one row.
func (c *Client) DeleteShelf(ctx context.Context, userID, id string) error {
	_, body, err := c.do(ctx, request{
		op:     "delete",
		method: http.MethodDelete,
		table:  tableShelf,
		query:  url.Values{"id": {eq(id)}, "user_id": {eq(userID)}},
		prefer: "return=representation",
	})
	if err != nil {
		return err
	}
	return requireAffected("delete", tableShelf, body)
}

// requireAffected turns an empty representation into ErrNotFound.
func requireAffected(op, table string, body []byte) error {
	var affected []json.RawMessage
	if err := json.Unmarshal(body, &affected); err != nil {
		return &Error{Op: op, Table: table, Err: fmt.Errorf("parse response: %w", err)}
	}
	if len(affected) == 0 {
		return &Error{Op: op, Table: table, Err: backend.ErrNotFound}
	}
	return nil
}

// ListCustomBottles returns the bottles the user defined.
func (c *Client) ListCustomBottles(ctx context.Context, userID string) ([]domain.CustomBottle, error) {
	var bottles []domain.CustomBottle
	q := url.Values{"select": {"*"}, "user_id": {eq(userID)}}
	if err := c.selectRows(ctx, tableCustomBottles, q, &bottles); err != nil {
		return nil, err
	}
	return bottles, nil
}

// InsertCustomBottle creates cb. Only a 201 counts as created.
func (c *Client) InsertCustomBottle(ctx context.Context, cb *domain.CustomBottle) error {
	status, body, err := c.do(ctx, request{
		op:     "insert",
		method: http.MethodPost,
		table:  tableCustomBottles,
		body:   cb,
		prefer: "return=representation",
	})
	if err != nil {
		return err
	}
	if status != http.StatusCreated {
		return &Error{Op: "insert", Table: tableCustomBottles, Status: status, Err: backend.ErrInsertRejected}
	}

	// Pick up server-side defaults.
	var created []domain.CustomBottle
	if err := json.Unmarshal(body, &created); err == nil && len(created) == 1 {
		*cb = created[0]
	}
	return nil
}

// settingsRow is the user_settings column set.
type settingsRow struct {
	UserID         string `json:"user_id"`
	IconURL        string `json:"icon_url"`
	CustomName     string `json:"custom_name"`
	PrimaryColor   string `json:"primary_color"`
	SecondaryColor string `json:"secondary_color"`
}

// GetSettings returns the user's row or backend.ErrNotFound.
func (c *Client) GetSettings(ctx context.Context, userID string) (*domain.UserSettings, error) {
	var rows []settingsRow
	q := url.Values{"select": {"*"}, "user_id": {eq(userID)}, "limit": {"1"}}
	if err := c.selectRows(ctx, tableSettings, q, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &Error{Op: "select", Table: tableSettings, Err: backend.ErrNotFound}
	}
	r := rows[0]
	return &domain.UserSettings{
		UserID:         r.UserID,
		IconURL:        r.IconURL,
		CustomName:     r.CustomName,
		PrimaryColor:   r.PrimaryColor,
		SecondaryColor: r.SecondaryColor,
	}, nil
}

// UpsertSettings writes the row, merging on user_id.
func (c *Client) UpsertSettings(ctx context.Context, s *domain.UserSettings) error {
	_, _, err := c.do(ctx, request{
		op:     "upsert",
		method: http.MethodPost,
		table:  tableSettings,
		query:  url.Values{"on_conflict": {"user_id"}},
		body: settingsRow{
			UserID:         s.UserID,
			IconURL:        s.IconURL,
			CustomName:     s.CustomName,
			PrimaryColor:   s.PrimaryColor,
			SecondaryColor: s.SecondaryColor,
		},
		prefer: "resolution=merge-duplicates,return=minimal",
	})
	return err
}

// Ping reads a single catalog id with the public key.
func (c *Client) Ping(ctx context.Context) error {
	_, _, err := c.do(ctx, request{
		op:     "select",
		method: http.MethodGet,
		table:  tableBottles,
		query:  url.Values{"select": {"id"}, "limit": {"1"}},
	})
	return err
}
