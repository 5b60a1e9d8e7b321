package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"mediaforge/internal/infra"
)

// ErrMissingAPIKey indicates that the client was configured without credentials.
var ErrMissingAPIKey = errors.New("provider: api key is required")

// ErrMissingTaskID indicates that a submission response carried no
// recognizable task identifier.
var ErrMissingTaskID = errors.New("provider: response carried no task id")

// Options configures the provider API client.
type Options struct {
	APIKey         string
	BaseURL        string
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
}

// Client performs HTTP calls against the generation provider. Response
// shapes are provider-specific and passed through as raw maps; the
// normalizer in this package absorbs the differences.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *infra.Logger
}

// SubmitRequest captures the inputs for a new generation job.
type SubmitRequest struct {
	Prompt         string
	Mode           string
	SourceAssetURL string
	Options        map[string]any
}

// NewClient constructs a client with sane defaults and injected dependencies.
func NewClient(opts Options) (*Client, error) {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 45 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		return nil, errors.New("provider: base url is required")
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &Client{
		apiKey:     strings.TrimSpace(opts.APIKey),
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// SubmitJob submits a generation job and returns the provider-assigned task
// id together with the raw response payload.
func (c *Client) SubmitJob(ctx context.Context, req SubmitRequest) (string, map[string]any, error) {
	if c.apiKey == "" {
		return "", nil, ErrMissingAPIKey
	}
	payload := map[string]any{
		"prompt": req.Prompt,
		"mode":   req.Mode,
	}
	if req.SourceAssetURL != "" {
		payload["source_url"] = req.SourceAssetURL
	}
	for k, v := range req.Options {
		payload[k] = v
	}
	raw, err := c.postJSON(ctx, c.baseURL+"/jobs", payload)
	if err != nil {
		return "", nil, err
	}
	taskID := ExtractTaskID(raw)
	if taskID == "" {
		return "", raw, ErrMissingTaskID
	}
	c.logger.Debug().Str("task_id", taskID).Msg("provider: job submitted")
	return taskID, raw, nil
}

// QueryTask fetches the current provider state for a task. The raw payload
// is returned untouched for the normalizer to interpret.
func (c *Client) QueryTask(ctx context.Context, taskID string) (map[string]any, error) {
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	endpoint := c.baseURL + "/jobs/" + url.PathEscape(taskID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("provider: build status request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("provider: status request: %w", err)
	}
	defer resp.Body.Close()

	return decodeResponse(resp)
}

func (c *Client) postJSON(ctx context.Context, endpoint string, payload map[string]any) (map[string]any, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("provider: encode request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("provider: build request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("provider: request: %w", err)
	}
	defer resp.Body.Close()

	return decodeResponse(resp)
}

func decodeResponse(resp *http.Response) (map[string]any, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("provider: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet := strings.TrimSpace(string(body))
		if len(snippet) > 512 {
			snippet = snippet[:512]
		}
		return nil, fmt.Errorf("provider: unexpected status %d: %s", resp.StatusCode, snippet)
	}
	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("provider: decode response: %w", err)
	}
	return raw, nil
}
