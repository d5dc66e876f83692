package avatar

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/oauth2"
)

// DefaultGitHubBaseURL is the GitHub REST API root.
const DefaultGitHubBaseURL = "https://api.github.com"

// GitHubClient reads avatar_url from the GitHub users API. Requests are
// authenticated with a personal access token through an oauth2 transport,
// which lifts the anonymous rate limit of 60 requests per hour.
type GitHubClient struct {
	baseURL string
	client  *http.Client
}

// NewGitHubClient builds a token-authenticated client. baseURL may be empty.
func NewGitHubClient(token, baseURL string) *GitHubClient {
	if baseURL == "" {
		baseURL = DefaultGitHubBaseURL
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	return &GitHubClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  oauth2.NewClient(context.Background(), ts),
	}
}

type githubUser struct {
	Login     string `json:"login"`
	AvatarURL string `json:"avatar_url"`
}

// AvatarURL satisfies Strategy.Lookup.
func (c *GitHubClient) AvatarURL(ctx context.Context, handle string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/users/"+url.PathEscape(handle), nil)
	if err != nil {
		return "", fmt.Errorf("github: building request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("github: fetching user %s: %w", handle, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("github: status %d for user %s", resp.StatusCode, handle)
	}

	var u githubUser
	if err := json.NewDecoder(resp.Body).Decode(&u); err != nil {
		return "", fmt.Errorf("github: decoding user: %w", err)
	}
	if u.AvatarURL == "" {
		return "", errors.New("github: user has no avatar")
	}
	return u.AvatarURL, nil
}
