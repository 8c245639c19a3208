package showdown

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"replayscraper/pkg/config"
	errs "replayscraper/pkg/errors"
	"replayscraper/pkg/logger"
)

// maxBodyPreview bounds the payload excerpt attached to parsing errors
const maxBodyPreview = 200

// Client performs single GET requests against the replay and ladder servers.
// It never retries; every failure is returned as a typed *errors.Error and
// the caller decides what an empty result means.
type Client struct {
	httpClient *http.Client
	headers    map[string]string
	logger     logger.Logger
}

// NewClient creates a new client using the configured timeout and user agent
func NewClient(cfg *config.ShowdownConfig, log logger.Logger) *Client {
	if log == nil {
		log = logger.GetLogger()
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
		headers: map[string]string{
			"User-Agent": cfg.UserAgent,
			"Accept":     "application/json, text/plain;q=0.9, */*;q=0.8",
		},
		logger: log.WithField("component", "showdown"),
	}
}

// get performs the request and checks the status. The caller owns the body.
func (c *Client) get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errs.New(errs.ErrorTypeUnknown, 0, "failed to create request: %v", err)
	}
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	elapsed := float64(time.Since(start).Microseconds()) / 1000

	if err != nil {
		logger.LogFetch(c.logger, url, 0, elapsed, err)
		return nil, errs.New(errs.ErrorTypeNetwork, 0, "network error: %v", err)
	}
	logger.LogFetch(c.logger, url, resp.StatusCode, elapsed, nil)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, errs.FromStatusCode(resp.StatusCode)
	}
	return resp, nil
}

// GetText fetches url and returns the body as text
func (c *Client) GetText(ctx context.Context, url string) (string, error) {
	resp, err := c.get(ctx, url)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errs.New(errs.ErrorTypeNetwork, resp.StatusCode, "failed to read response body: %v", err)
	}
	return string(body), nil
}

// GetJSON fetches url and decodes the JSON body into target
func (c *Client) GetJSON(ctx context.Context, url string, target interface{}) error {
	resp, err := c.get(ctx, url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errs.New(errs.ErrorTypeNetwork, resp.StatusCode, "failed to read response body: %v", err)
	}

	if err := json.Unmarshal(body, target); err != nil {
		preview := string(body)
		if len(preview) > maxBodyPreview {
			preview = preview[:maxBodyPreview] + "..."
		}
		c.logger.DebugWithFields("failed to parse JSON response", map[string]interface{}{
			"url":          url,
			"body_preview": preview,
		})
		return errs.New(errs.ErrorTypeParsing, resp.StatusCode, "failed to parse JSON: %v", err)
	}
	return nil
}
