package schedclient

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
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/programme-lv/duel/domain"
)

// Scheduler compiles and runs code on the external scheduler service.
type Scheduler interface {
	Compile(ctx context.Context, job domain.CompileJob) (CompileResult, error)
	Run(ctx context.Context, tps []domain.Testpoint) ([]RunResult, error)
}

// BatchError is returned when the scheduler rejects a whole /run batch.
type BatchError struct {
	Result  string
	Message string
}

func (e *BatchError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("scheduler rejected batch: %s", e.Result)
	}
	return fmt.Sprintf("scheduler rejected batch: %s: %s", e.Result, e.Message)
}

var ErrMisaligned = errors.New("scheduler response not aligned with request")

type Client struct {
	logger  *slog.Logger
	base    *url.URL
	http    *http.Client
	timeout time.Duration

	// bodies at least this large are gzip-compressed; 0 disables compression
	gzipAbove int
}

type Option func(*Client)

func WithHttpClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

func WithGzipAbove(n int) Option {
	return func(cl *Client) { cl.gzipAbove = n }
}

// NewClient creates a scheduler client. Every RPC is bounded by timeout.
func NewClient(baseUrl string, timeout time.Duration, opts ...Option) (*Client, error) {
	base, err := url.Parse(baseUrl)
	if err != nil {
		return nil, fmt.Errorf("invalid scheduler url: %w", err)
	}
	c := &Client{
		logger:  slog.Default().With("module", "schedclient"),
		base:    base,
		http:    &http.Client{},
		timeout: timeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) Compile(ctx context.Context, job domain.CompileJob) (CompileResult, error) {
	var res CompileResult
	body, err := c.call(ctx, "/compile", job)
	if err != nil {
		return res, err
	}
	if err := json.Unmarshal(body, &res); err != nil {
		return res, fmt.Errorf("failed to decode compile response: %w", err)
	}
	return res, nil
}

// Run submits one batch. The i-th result always belongs to tps[i].
func (c *Client) Run(ctx context.Context, tps []domain.Testpoint) ([]RunResult, error) {
	if len(tps) == 0 {
		return []RunResult{}, nil
	}
	body, err := c.call(ctx, "/run", tps)
	if err != nil {
		return nil, err
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var env envelope
		if err := json.Unmarshal(trimmed, &env); err != nil {
			return nil, fmt.Errorf("failed to decode run envelope: %w", err)
		}
		return nil, &BatchError{Result: env.Result, Message: env.Message}
	}

	var res []RunResult
	if err := json.Unmarshal(trimmed, &res); err != nil {
		return nil, fmt.Errorf("failed to decode run response: %w", err)
	}
	if len(res) != len(tps) {
		return nil, fmt.Errorf("%w: sent %d testpoints, got %d results",
			ErrMisaligned, len(tps), len(res))
	}
	return res, nil
}

func (c *Client) call(ctx context.Context, path string, req any) ([]byte, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s request: %w", path, err)
	}

	gzipped := false
	if c.gzipAbove > 0 && len(payload) >= c.gzipAbove {
		payload, err = gzipBytes(payload)
		if err != nil {
			return nil, err
		}
		gzipped = true
	}

	u := c.base.ResolveReference(&url.URL{Path: path})
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create %s request: %w", path, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if gzipped {
		httpReq.Header.Set("Content-Encoding", "gzip")
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("scheduler %s call failed: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read scheduler %s response: %w", path, err)
	}
	c.logger.Debug("scheduler call", "path", path, "status", resp.StatusCode,
		"bytes", len(body), "took", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("scheduler %s returned %d: %s", path, resp.StatusCode, truncate(body, 512))
	}
	return body, nil
}

func gzipBytes(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		return nil, fmt.Errorf("failed to gzip request: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to gzip request: %w", err)
	}
	return buf.Bytes(), nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
