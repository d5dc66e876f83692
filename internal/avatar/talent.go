package avatar

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// DefaultTalentBaseURL is the Talent Protocol API root.
const DefaultTalentBaseURL = "https://api.talentprotocol.com"

// TalentProfile is the subset of a Talent Protocol profile we read.
type TalentProfile struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Name        string `json:"name"`
	ImageURL    string `json:"image_url"`
}

type talentSearchResponse struct {
	Profiles   []TalentProfile `json:"profiles"`
	Pagination struct {
		Total int `json:"total"`
	} `json:"pagination"`
}

// TalentClient searches Talent Protocol profiles by scoped identity
// ("twitter:<handle>").
type TalentClient struct {
	apiKey  string
	baseURL string
	scope   string
	client  *http.Client
}

// NewTalentClient returns a client for the twitter identity scope.
// baseURL may be empty.
func NewTalentClient(apiKey, baseURL string, client *http.Client) *TalentClient {
	if baseURL == "" {
		baseURL = DefaultTalentBaseURL
	}
	if client == nil {
		client = &http.Client{}
	}
	return &TalentClient{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		scope:   "twitter",
		client:  client,
	}
}

// Search returns the best matching profile, or nil when none matched.
func (c *TalentClient) Search(ctx context.Context, handle string) (*TalentProfile, error) {
	query, _ := json.Marshal(map[string]any{
		"identity":   c.scope + ":" + handle,
		"exactMatch": true,
	})
	sort, _ := json.Marshal(map[string]any{
		"score": map[string]string{"order": "desc"},
		"id":    map[string]string{"order": "desc"},
	})
	q := url.Values{}
	q.Set("query", string(query))
	q.Set("sort", string(sort))
	q.Set("page", "1")
	q.Set("per_page", "20")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/search/advanced/profiles?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("talent: building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-API-KEY", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("talent: searching %s: %w", handle, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("talent: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out talentSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("talent: decoding response: %w", err)
	}
	return pickProfile(out.Profiles, handle), nil
}

// AvatarURL satisfies Strategy.Lookup.
func (c *TalentClient) AvatarURL(ctx context.Context, handle string) (string, error) {
	p, err := c.Search(ctx, handle)
	if err != nil {
		return "", err
	}
	if p == nil || p.ImageURL == "" {
		return "", errors.New("talent: no profile image")
	}
	return p.ImageURL, nil
}

// pickProfile prefers a profile whose display name or name matches the
// handle (ignoring case and dots, exact or prefix), then the first profile
// with an image, then the first profile.
func pickProfile(profiles []TalentProfile, handle string) *TalentProfile {
	if len(profiles) == 0 {
		return nil
	}
	squash := func(s string) string { return strings.ReplaceAll(strings.ToLower(s), ".", "") }
	want := squash(handle)

	for i := range profiles {
		dn, n := squash(profiles[i].DisplayName), squash(profiles[i].Name)
		if dn == want || n == want || strings.HasPrefix(dn, want) || strings.HasPrefix(n, want) {
			if profiles[i].ImageURL != "" {
				return &profiles[i]
			}
		}
	}
	for i := range profiles {
		if profiles[i].ImageURL != "" {
			return &profiles[i]
		}
	}
	return &profiles[0]
}
