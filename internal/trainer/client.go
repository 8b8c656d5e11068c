// HTTP client for the external training engine. The engine owns all training
// semantics; this client only speaks its status, stats, job-control and
// version endpoints.

package trainer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"

	"github.com/akirol/trainwatch/internal/models"
)

// ErrAlreadyStopped is returned by Stop when the engine reports 409: the job
// was not running. Callers treat it as a successful stop and correct the
// local training flag instead of surfacing an error.
var ErrAlreadyStopped = fmt.Errorf("training is not running")

// Client talks to the trainer engine's REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the engine at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// Status fetches the engine's current job status. The payload shape matches
// the push channel's training_state event so both merge identically.
func (c *Client) Status(ctx context.Context) (models.StatusPayload, error) {
	var status models.StatusPayload
	if err := c.getJSON(ctx, "/api/status", &status); err != nil {
		return models.StatusPayload{}, err
	}
	return status, nil
}

// SystemStats fetches the engine's GPU and memory utilization report.
func (c *Client) SystemStats(ctx context.Context) (models.SystemStats, error) {
	var stats models.SystemStats
	if err := c.getJSON(ctx, "/api/system/stats", &stats); err != nil {
		return models.SystemStats{}, err
	}
	stats.PolledAt = time.Now()
	return stats, nil
}

// Version fetches the engine's API version string.
func (c *Client) Version(ctx context.Context) (string, error) {
	var payload struct {
		Version string `json:"version"`
	}
	if err := c.getJSON(ctx, "/api/version", &payload); err != nil {
		return "", err
	}
	return payload.Version, nil
}

// CheckCompatibility verifies that the engine's API version is at least
// minVersion. A version the engine reports that does not parse as semver is
// an error; an unreachable engine propagates as a network error.
func (c *Client) CheckCompatibility(ctx context.Context, minVersion string) error {
	reported, err := c.Version(ctx)
	if err != nil {
		return fmt.Errorf("could not fetch engine version: %w", err)
	}

	engineVersion, err := semver.NewVersion(strings.TrimPrefix(reported, "v"))
	if err != nil {
		return fmt.Errorf("engine reported invalid version %q: %w", reported, err)
	}
	min, err := semver.NewVersion(strings.TrimPrefix(minVersion, "v"))
	if err != nil {
		return fmt.Errorf("invalid minimum version %q: %w", minVersion, err)
	}

	if engineVersion.LessThan(min) {
		return fmt.Errorf("engine API version %s is older than the supported minimum %s", engineVersion, min)
	}
	return nil
}

// Start asks the engine to begin training with the given serialized config.
// Fire-and-forget: success here only means the request was accepted; actual
// state changes arrive through the push channel and polls.
func (c *Client) Start(ctx context.Context, configJSON string) error {
	body, err := json.Marshal(map[string]json.RawMessage{
		"config": json.RawMessage(configJSON),
	})
	if err != nil {
		return fmt.Errorf("invalid config payload: %w", err)
	}

	resp, err := c.post(ctx, "/api/training/start", body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("could not start training: %s", errorDetail(resp, "the engine rejected the request"))
	}
	return nil
}

// Stop asks the engine to stop the running job. A 409 response means the job
// was already not running and is reported as ErrAlreadyStopped.
func (c *Client) Stop(ctx context.Context) error {
	resp, err := c.post(ctx, "/api/training/stop", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusConflict {
		return ErrAlreadyStopped
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("could not stop training: %s", errorDetail(resp, "the engine rejected the request"))
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("engine returned status %d for %s", resp.StatusCode, path)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) post(ctx context.Context, path string, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.httpClient.Do(req)
}

// errorDetail extracts the engine's error text from a failed response,
// falling back to the given generic message.
func errorDetail(resp *http.Response, fallback string) string {
	var payload struct {
		Detail string `json:"detail"`
		Error  string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err == nil {
		if payload.Detail != "" {
			return payload.Detail
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	return fallback
}
