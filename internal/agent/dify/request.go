package dify

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/resume-extractor/internal/agent"
	"github.com/spigell/resume-extractor/internal/logger"
)

const (
	contentType     = "application/json"
	contentEncoding = "gzip"
	maxErrorBody    = 512
)

// response is a fully read HTTP response.
type response struct {
	StatusCode int
	Status     string
	Body       []byte
}

func (c *Client) postJSON(ctx context.Context, path string, payload any) (*response, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("Content-Type", contentType)

	return c.do(ctx, req)
}

func (c *Client) get(ctx context.Context, path string, q url.Values) (*response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	if q != nil {
		req.URL.RawQuery = q.Encode()
	}

	return c.do(ctx, req)
}

func (c *Client) do(ctx context.Context, req *http.Request) (*response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &agent.TransportError{Op: "rate limit", Err: err}
	}

	c.setHeaders(req)

	c.logger.Debug("make request", zap.String("method", req.Method), zap.String("url", req.URL.String()))

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, &agent.TransportError{Op: strings.ToLower(req.Method), Err: err}
	}
	defer resp.Body.Close()

	var body io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, &agent.TransportError{Op: "gzip", Err: err}
		}
		defer gz.Close()
		body = gz
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, &agent.TransportError{Op: "read body", Err: err}
	}

	return &response{StatusCode: resp.StatusCode, Status: resp.Status, Body: data}, nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.apiKey))
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept-Encoding", contentEncoding)
}

// remoteError builds an agent.RemoteError preferring the "message" field of a JSON error body.
func remoteError(resp *response) *agent.RemoteError {
	body := strings.TrimSpace(string(resp.Body))

	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(resp.Body, &payload); err == nil && payload.Message != "" {
		body = payload.Message
	}

	return &agent.RemoteError{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Body:       logger.TruncateForLog(body, maxErrorBody),
	}
}
