// Package hubdb is a small client for the hosted table service the slot
// workflow writes to. It covers exactly the calls the workflow makes: read a
// row, overwrite one cell, publish the table.
package hubdb

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
)

// maxErrorBody caps how much of a failed response is kept in an APIError.
const maxErrorBody = 4 << 10

// Options configures a Client.
type Options struct {
	BaseURL string        // tables collection, e.g. https://api.hubapi.com/hubdb/api/v2/tables
	APIKey  string        // sent as the hapikey query parameter
	TableID string        // table every call is scoped to
	Timeout time.Duration // per-call timeout; zero keeps the transport default
	HTTP    *http.Client  // optional; http.DefaultClient when nil
	Logger  *slog.Logger
}

// Client talks to one table of the table service.
type Client struct {
	base    string
	apiKey  string
	tableID string
	timeout time.Duration
	http    *http.Client
	logger  *slog.Logger
}

// New builds a Client from opts.
func New(opts Options) *Client {
	hc := opts.HTTP
	if hc == nil {
		hc = http.DefaultClient
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		base:    strings.TrimRight(opts.BaseURL, "/"),
		apiKey:  opts.APIKey,
		tableID: opts.TableID,
		timeout: opts.Timeout,
		http:    hc,
		logger:  logger,
	}
}

// TableID returns the table the client is bound to.
func (c *Client) TableID() string { return c.tableID }

// GetRow fetches a single row.
func (c *Client) GetRow(ctx context.Context, rowID string) (*Row, error) {
	var row Row
	if err := c.do(ctx, http.MethodGet, "/rows/"+url.PathEscape(rowID), nil, &row); err != nil {
		return nil, err
	}
	if row.Values == nil {
		return nil, fmt.Errorf("%w: row %s has no values", ErrMalformedRow, rowID)
	}
	return &row, nil
}

// UpdateCell overwrites one cell of a row in the draft version of the table.
func (c *Client) UpdateCell(ctx context.Context, rowID, cellID string, value any) error {
	path := "/rows/" + url.PathEscape(rowID) + "/cells/" + url.PathEscape(cellID)
	return c.do(ctx, http.MethodPut, path, cellUpdate{Value: value}, nil)
}

// PublishTable makes the draft version of the table the live one.
func (c *Client) PublishTable(ctx context.Context) error {
	return c.do(ctx, http.MethodPut, "/publish", nil, nil)
}

func (c *Client) endpoint(path string) string {
	q := url.Values{}
	q.Set("hapikey", c.apiKey)
	return c.base + "/" + url.PathEscape(c.tableID) + path + "?" + q.Encode()
}

// do performs one call. in is JSON-encoded when non-nil; out is decoded from
// a 2xx body when non-nil.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("hubdb: encode %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path), body)
	if err != nil {
		return fmt.Errorf("hubdb: build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("hubdb: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	c.logger.Debug("hubdb call", "method", method, "path", path, "status", resp.StatusCode, "took", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &APIError{Method: method, Path: path, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrMalformedRow, method, path, err)
	}
	return nil
}
