package avatar

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =========================================================================
// TALENT PROTOCOL
// =========================================================================

func TestTalentClient_SearchSendsScopedIdentity(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search/advanced/profiles", r.URL.Path)
		assert.Equal(t, "secret-key", r.Header.Get("X-API-KEY"))

		var query map[string]any
		require.NoError(t, json.Unmarshal([]byte(r.URL.Query().Get("query")), &query))
		assert.Equal(t, "twitter:jesse", query["identity"])
		assert.Equal(t, true, query["exactMatch"])
		assert.Equal(t, "20", r.URL.Query().Get("per_page"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"profiles":[
			{"id":"1","display_name":"someone","image_url":"https://img/someone.png"},
			{"id":"2","display_name":"Jesse.Pollak","image_url":"https://img/jesse.png"}
		],"pagination":{"total":2}}`))
	}))
	defer srv.Close()

	c := NewTalentClient("secret-key", srv.URL, srv.Client())
	url, err := c.AvatarURL(context.Background(), "jesse")
	require.NoError(t, err)
	assert.Equal(t, "https://img/jesse.png", url)
}

func TestTalentClient_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid api key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewTalentClient("bad", srv.URL, srv.Client())
	_, err := c.AvatarURL(context.Background(), "jesse")
	assert.ErrorContains(t, err, "status 401")
}

func TestPickProfile(t *testing.T) {
	tests := []struct {
		name     string
		profiles []TalentProfile
		handle   string
		wantID   string
	}{
		{"none", nil, "x", ""},
		{"exact name match", []TalentProfile{
			{ID: "1", DisplayName: "other", ImageURL: "i1"},
			{ID: "2", Name: "dwr", ImageURL: "i2"},
		}, "dwr", "2"},
		{"prefix match ignoring dots", []TalentProfile{
			{ID: "1", DisplayName: "other", ImageURL: "i1"},
			{ID: "2", DisplayName: "Vitalik.eth", ImageURL: "i2"},
		}, "vitalik", "2"},
		{"first with image", []TalentProfile{
			{ID: "1", DisplayName: "a"},
			{ID: "2", DisplayName: "b", ImageURL: "i2"},
		}, "zzz", "2"},
		{"first when none have images", []TalentProfile{
			{ID: "1", DisplayName: "a"},
			{ID: "2", DisplayName: "b"},
		}, "zzz", "1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := pickProfile(tt.profiles, tt.handle)
			if tt.wantID == "" {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.wantID, got.ID)
		})
	}
}

// =========================================================================
// GITHUB USERS API
// =========================================================================

func TestGitHubClient_SendsBearerToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/octocat", r.URL.Path)
		assert.Equal(t, "Bearer ghp_test", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"login":"octocat","avatar_url":"https://avatars.githubusercontent.com/u/583231"}`))
	}))
	defer srv.Close()

	c := NewGitHubClient("ghp_test", srv.URL)
	url, err := c.AvatarURL(context.Background(), "octocat")
	require.NoError(t, err)
	assert.Equal(t, "https://avatars.githubusercontent.com/u/583231", url)
}

func TestGitHubClient_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewGitHubClient("ghp_test", srv.URL)
	_, err := c.AvatarURL(context.Background(), "ghost-user")
	assert.ErrorContains(t, err, "status 404")
}
