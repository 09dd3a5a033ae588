package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gitreadapp/GitRead/internal/pkg/env"
)

// DefaultMaxInputTokens caps how much repository content we feed the model.
// Overridable via MAX_INPUT_TOKENS.
const DefaultMaxInputTokens = 250_000

// ErrContentTooLarge means the repository's estimated token count exceeds
// the configured input limit; the request must fail before any model call.
var ErrContentTooLarge = errors.New("repository content exceeds the maximum token limit")

// Client calls the external repository-ingest service, which clones and
// flattens a repository into prompt-ready text.
type Client struct {
	BaseURL        string
	MaxInputTokens int

	HTTPClient *http.Client
}

// Result is the ingest service's output for one repository.
type Result struct {
	Summary         string   `json:"summary"`
	Tree            string   `json:"tree"`
	Content         string   `json:"content"`
	EstimatedTokens int      `json:"estimated_tokens"`
	Warnings        []string `json:"warnings"`
}

type ingestRequest struct {
	RepoURL string `json:"repo_url"`
}

type ingestResponse struct {
	Result
	Error string `json:"error"`
}

func NewClientFromEnv() *Client {
	maxTokens := DefaultMaxInputTokens
	if raw := strings.TrimSpace(env.GetEnv("MAX_INPUT_TOKENS", "")); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			maxTokens = n
		}
	}
	return &Client{
		BaseURL:        strings.TrimRight(env.GetEnv("INGEST_SERVICE_URL", "http://localhost:8100"), "/"),
		MaxInputTokens: maxTokens,
		HTTPClient: &http.Client{
			// Cloning and flattening a large repository is slow.
			Timeout: 120 * time.Second,
		},
	}
}

// Ingest asks the service to flatten repoURL and enforces the token limit.
func (c *Client) Ingest(ctx context.Context, repoURL string) (*Result, error) {
	if strings.TrimSpace(repoURL) == "" {
		return nil, errors.New("repo url is required")
	}

	payload, err := json.Marshal(ingestRequest{RepoURL: repoURL})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/ingest", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("ingest request failed: status=%d body=%s", resp.StatusCode, truncateForLog(body))
	}

	var out ingestResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, err
	}
	if out.Error != "" {
		return nil, fmt.Errorf("ingest service rejected the repository: %s", out.Error)
	}
	if strings.TrimSpace(out.Content) == "" {
		return nil, errors.New("ingest service returned empty content")
	}

	limit := c.MaxInputTokens
	if limit <= 0 {
		limit = DefaultMaxInputTokens
	}
	if out.EstimatedTokens > limit {
		return nil, fmt.Errorf("%w: estimated %d tokens, limit %d", ErrContentTooLarge, out.EstimatedTokens, limit)
	}

	return &out.Result, nil
}

func truncateForLog(body []byte) string {
	const max = 512
	if len(body) <= max {
		return string(body)
	}
	return string(body[:max]) + "..."
}
