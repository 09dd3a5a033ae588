package githubapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gitreadapp/GitRead/internal/pkg/env"
)

const defaultAPIBaseURL = "https://api.github.com"

// ErrInvalidRepoURL marks user input that is not a usable GitHub repo URL.
var ErrInvalidRepoURL = errors.New("invalid github repository url")

// Client is a thin GitHub REST client covering repository metadata and the
// root content listing used to seed README prompts.
type Client struct {
	Token      string
	APIBaseURL string

	HTTPClient *http.Client
}

// RepoInfo is the subset of repository metadata the generator cares about.
type RepoInfo struct {
	Name          string `json:"name"`
	FullName      string `json:"full_name"`
	Description   string `json:"description"`
	Language      string `json:"language"`
	DefaultBranch string `json:"default_branch"`
	Stargazers    int    `json:"stargazers_count"`
}

// ContentEntry is one entry of a repository's root content listing.
type ContentEntry struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

func NewClientFromEnv() *Client {
	return &Client{
		Token:      strings.TrimSpace(env.GetEnv("GITHUB_TOKEN", "")),
		APIBaseURL: strings.TrimRight(env.GetEnv("GITHUB_API_BASE_URL", defaultAPIBaseURL), "/"),
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// ParseRepoURL extracts owner and repository name from a GitHub URL. Only
// github.com URLs with exactly an owner and a repo segment are accepted.
func ParseRepoURL(raw string) (string, string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", "", ErrInvalidRepoURL
	}

	u, err := url.Parse(trimmed)
	if err != nil {
		return "", "", ErrInvalidRepoURL
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", "", ErrInvalidRepoURL
	}
	host := strings.ToLower(u.Hostname())
	if host != "github.com" && host != "www.github.com" {
		return "", "", ErrInvalidRepoURL
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", ErrInvalidRepoURL
	}

	owner := parts[0]
	repo := strings.TrimSuffix(parts[1], ".git")
	if repo == "" {
		return "", "", ErrInvalidRepoURL
	}
	return owner, repo, nil
}

// GetRepository fetches metadata for owner/repo.
func (c *Client) GetRepository(ctx context.Context, owner, repo string) (*RepoInfo, error) {
	endpoint := fmt.Sprintf("%s/repos/%s/%s", c.APIBaseURL, url.PathEscape(owner), url.PathEscape(repo))
	body, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	var info RepoInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, err
	}
	if strings.TrimSpace(info.Name) == "" {
		return nil, errors.New("repository lookup returned an empty name")
	}
	return &info, nil
}

// ListContents fetches the root content listing for owner/repo.
func (c *Client) ListContents(ctx context.Context, owner, repo string) ([]ContentEntry, error) {
	endpoint := fmt.Sprintf("%s/repos/%s/%s/contents", c.APIBaseURL, url.PathEscape(owner), url.PathEscape(repo))
	body, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	var entries []ContentEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, errors.New("repository contents response is not a listing")
	}
	return entries, nil
}

func (c *Client) get(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("github request failed: status=%d body=%s", resp.StatusCode, string(body))
	}
	return body, nil
}
