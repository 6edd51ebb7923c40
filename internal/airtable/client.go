package airtable

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	defaultBaseURL     = "https://api.airtable.com/v0"
	defaultHTTPTimeout = 30 * time.Second

	// MaxBatch is the most records Airtable accepts per create or update call.
	MaxBatch   = 10
	pageSize   = 100
	pageDelay  = 200 * time.Millisecond
	batchDelay = 200 * time.Millisecond
)

// Config describes the Airtable client configuration.
type Config struct {
	BaseURL    string
	BaseID     string
	APIKey     string
	BatchSize  int
	BatchDelay time.Duration
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client wraps the Airtable REST API for one base.
type Client struct {
	apiKey     string
	baseURL    *url.URL
	batchSize  int
	batchDelay time.Duration
	pageDelay  time.Duration
	http       *http.Client
	log        *slog.Logger
}

// Fields is the field map of one record.
type Fields map[string]any

// Record is an Airtable row.
type Record struct {
	ID          string `json:"id,omitempty"`
	Fields      Fields `json:"fields"`
	CreatedTime string `json:"createdTime,omitempty"`
}

// BatchResult counts records written by CreateBatch or UpdateBatch.
type BatchResult struct {
	Succeeded int
	Failed    int
	Errors    []error
}

// APIError is a non-2xx Airtable response.
type APIError struct {
	Status  int
	Type    string
	Message string
}

func (e *APIError) Error() string {
	msg := e.Type
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	return fmt.Sprintf("airtable: %d %s", e.Status, msg)
}

// New creates a Client from the supplied configuration.
func New(cfg Config) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("airtable: api key is required")
	}
	baseID := strings.TrimSpace(cfg.BaseID)
	if baseID == "" {
		return nil, errors.New("airtable: base id is required")
	}
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		base = defaultBaseURL
	}
	baseURL, err := url.Parse(strings.TrimRight(base, "/"))
	if err != nil {
		return nil, fmt.Errorf("airtable: parse base url: %w", err)
	}
	size := cfg.BatchSize
	if size <= 0 || size > MaxBatch {
		size = MaxBatch
	}
	delay := cfg.BatchDelay
	if delay <= 0 {
		delay = batchDelay
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPTimeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Client{
		apiKey:     apiKey,
		baseURL:    baseURL.JoinPath(baseID),
		batchSize:  size,
		batchDelay: delay,
		pageDelay:  pageDelay,
		http:       client,
		log:        logger,
	}, nil
}

type listResponse struct {
	Records []Record `json:"records"`
	Offset  string   `json:"offset"`
}

// List returns every record of table, following the offset cursor.
func (c *Client) List(ctx context.Context, table string) ([]Record, error) {
	var out []Record
	offset := ""
	for page := 1; ; page++ {
		params := url.Values{}
		params.Set("pageSize", strconv.Itoa(pageSize))
		if offset != "" {
			params.Set("offset", offset)
		}
		var resp listResponse
		if err := c.do(ctx, http.MethodGet, table, params, nil, &resp); err != nil {
			return nil, fmt.Errorf("list %s page %d: %w", table, page, err)
		}
		out = append(out, resp.Records...)
		if resp.Offset == "" {
			return out, nil
		}
		offset = resp.Offset
		if err := sleep(ctx, c.pageDelay); err != nil {
			return nil, err
		}
	}
}

type writeRequest struct {
	Records  []Record `json:"records"`
	Typecast bool     `json:"typecast"`
}

// CreateBatch creates records in calls of at most MaxBatch. A failed call is
// counted and logged and the remaining calls still run. The error is only
// set when ctx ends.
func (c *Client) CreateBatch(ctx context.Context, table string, records []Record) (BatchResult, error) {
	create := make([]Record, len(records))
	for i, r := range records {
		create[i] = Record{Fields: r.Fields}
	}
	return c.writeBatches(ctx, http.MethodPost, table, create)
}

// UpdateBatch patches records by id, with the same batching as CreateBatch.
// Fields not present in a record are left unchanged.
func (c *Client) UpdateBatch(ctx context.Context, table string, records []Record) (BatchResult, error) {
	update := make([]Record, len(records))
	for i, r := range records {
		update[i] = Record{ID: r.ID, Fields: r.Fields}
	}
	return c.writeBatches(ctx, http.MethodPatch, table, update)
}

func (c *Client) writeBatches(ctx context.Context, method, table string, records []Record) (BatchResult, error) {
	var res BatchResult
	for start := 0; start < len(records); start += c.batchSize {
		if start > 0 {
			if err := sleep(ctx, c.batchDelay); err != nil {
				return res, err
			}
		}
		end := min(start+c.batchSize, len(records))
		batch := records[start:end]
		num := start/c.batchSize + 1

		err := c.do(ctx, method, table, nil, writeRequest{Records: batch, Typecast: true}, nil)
		if err != nil {
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			res.Failed += len(batch)
			res.Errors = append(res.Errors, fmt.Errorf("batch %d: %w", num, err))
			c.log.Warn("airtable batch failed",
				slog.String("method", method),
				slog.Int("batch", num),
				slog.Int("records", len(batch)),
				slog.String("error", err.Error()))
			continue
		}
		res.Succeeded += len(batch)
		c.log.Debug("airtable batch written", slog.String("method", method), slog.Int("batch", num), slog.Int("records", len(batch)))
	}
	return res, nil
}

func (c *Client) do(ctx context.Context, method, table string, params url.Values, body, out any) error {
	endpoint := c.baseURL.JoinPath(table)
	if len(params) > 0 {
		endpoint.RawQuery = params.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		return decodeError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// decodeError reads both error shapes Airtable uses: an object with type and
// message, or a bare string.
func decodeError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var payload struct {
		Error json.RawMessage `json:"error"`
	}
	if json.Unmarshal(data, &payload) == nil && len(payload.Error) > 0 {
		var obj struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		}
		if json.Unmarshal(payload.Error, &obj) == nil {
			apiErr.Type, apiErr.Message = obj.Type, obj.Message
		} else {
			_ = json.Unmarshal(payload.Error, &apiErr.Type)
		}
	}
	return apiErr
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
