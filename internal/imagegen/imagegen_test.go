package imagegen

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JuampiHernandez/raave-outfit/internal/style"
)

// Minimal byte sequences that sniff as images.
var (
	fakePNG  = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR-test-png")
	fakeJPEG = []byte("\xff\xd8\xff\xe0\x00\x10JFIF\x00-test-jpeg")
)

// =========================================================================
// PROMPT
// =========================================================================

func TestBuildEditPrompt(t *testing.T) {
	s := style.DefaultStyles()[2]
	p := BuildEditPrompt(s)

	assert.True(t, strings.HasPrefix(p, "CRITICAL INSTRUCTION: This is an OUTFIT EDITING task"))
	assert.Contains(t, p, s.PromptBlock)
	assert.Contains(t, p, "Keep the EXACT same face")
	assert.Contains(t, p, "Keep the EXACT same background")
	assert.Contains(t, p, "Keep the EXACT same pose")
	assert.Contains(t, p, "Keep the EXACT same lighting")
	assert.Contains(t, p, "Colors to use: Red (#FF4444), Orange (#FF8C00), Yellow (#FFD700), Purple (#9B59B6)")
}

// =========================================================================
// GEMINI CLIENT
// =========================================================================

func newTestGemini(t *testing.T, h http.HandlerFunc) *Gemini {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	g, err := NewGemini(GeminiOptions{APIKey: "test-key", BaseURL: srv.URL, HTTPClient: srv.Client()})
	require.NoError(t, err)
	return g
}

func TestGemini_EditReturnsFirstInlineImage(t *testing.T) {
	edited := []byte("\x89PNG\r\n\x1a\nedited")

	g := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/models/"+DefaultGeminiModel+":generateContent", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))
		assert.Empty(t, r.URL.Query().Get("key"))

		var req geminiRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Contents, 1)
		parts := req.Contents[0].Parts
		require.Len(t, parts, 2)
		assert.Equal(t, "image/jpeg", parts[0].InlineData.MimeType)
		assert.Equal(t, base64.StdEncoding.EncodeToString(fakeJPEG), parts[0].InlineData.Data)
		assert.Equal(t, "make it rave", parts[1].Text)

		_ = json.NewEncoder(w).Encode(geminiResponse{Candidates: []geminiCandidate{{
			Content: geminiContent{Parts: []geminiPart{
				{Text: "Here is your outfit"},
				{InlineData: &geminiInlineData{MimeType: "image/png", Data: base64.StdEncoding.EncodeToString(edited)}},
			}},
		}}})
	})

	out, err := g.Edit(context.Background(), fakeJPEG, "image/jpeg", "make it rave")
	require.NoError(t, err)
	assert.Equal(t, edited, out)
}

func TestGemini_NoCandidatesIsEmptyResult(t *testing.T) {
	g := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[]}`))
	})

	_, err := g.Edit(context.Background(), fakePNG, "image/png", "p")
	assert.ErrorIs(t, err, ErrEmptyResult)
}

func TestGemini_TextOnlyIsEmptyResult(t *testing.T) {
	g := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"I can't do that"}]},"finishReason":"SAFETY"}]}`))
	})

	_, err := g.Edit(context.Background(), fakePNG, "image/png", "p")
	assert.ErrorIs(t, err, ErrEmptyResult)
	assert.ErrorContains(t, err, "SAFETY")
}

func TestGemini_APIError(t *testing.T) {
	g := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"code":429,"message":"Resource has been exhausted","status":"RESOURCE_EXHAUSTED"}}`))
	})

	_, err := g.Edit(context.Background(), fakePNG, "image/png", "p")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrEmptyResult))
	assert.ErrorContains(t, err, "status 429: Resource has been exhausted")
}

func TestGemini_HonoursContext(t *testing.T) {
	g := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := g.Edit(ctx, fakePNG, "image/png", "p")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestGemini_TransportErrorOmitsKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	base := srv.URL
	srv.Close() // nothing listens there any more

	g, err := NewGemini(GeminiOptions{APIKey: "SUPERSECRETKEY123", BaseURL: base})
	require.NoError(t, err)

	_, err = g.Edit(context.Background(), fakePNG, "image/png", "prompt")
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "SUPERSECRETKEY123")
}

func TestNewGemini_RequiresKey(t *testing.T) {
	_, err := NewGemini(GeminiOptions{APIKey: "  "})
	assert.Error(t, err)
}

// =========================================================================
// SOURCES
// =========================================================================

func TestFetcher_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/avatar":
			_, _ = w.Write(fakeJPEG)
		case "/page":
			_, _ = w.Write([]byte("<!doctype html><html></html>"))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()
	f := NewFetcher(srv.Client())

	data, mime, err := f.Fetch(context.Background(), srv.URL+"/avatar")
	require.NoError(t, err)
	assert.Equal(t, fakeJPEG, data)
	assert.Equal(t, "image/jpeg", mime)

	_, _, err = f.Fetch(context.Background(), srv.URL+"/page")
	assert.ErrorIs(t, err, ErrNotImage)

	_, _, err = f.Fetch(context.Background(), srv.URL+"/missing")
	assert.ErrorContains(t, err, "status 404")
}

func TestFetcher_DeadlineComesFromContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, _, err := NewFetcher(nil).Fetch(ctx, srv.URL+"/slow")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestParseDataURL(t *testing.T) {
	encoded := base64.StdEncoding.EncodeToString(fakePNG)

	data, mime, ok, err := ParseDataURL("data:image/png;base64," + encoded)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, fakePNG, data)
	assert.Equal(t, "image/png", mime)

	_, _, ok, err = ParseDataURL("https://unavatar.io/x/jesse")
	assert.NoError(t, err)
	assert.False(t, ok)

	_, _, ok, err = ParseDataURL("data:text/plain,hello")
	assert.True(t, ok)
	assert.Error(t, err)

	_, _, ok, err = ParseDataURL("data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("plain text")))
	assert.True(t, ok)
	assert.ErrorIs(t, err, ErrNotImage)
}

func TestDecodeBase64_AcceptsUnpadded(t *testing.T) {
	raw := base64.RawStdEncoding.EncodeToString(fakePNG)
	data, err := DecodeBase64(raw)
	require.NoError(t, err)
	assert.Equal(t, fakePNG, data)

	_, err = DecodeBase64("!!!not base64!!!")
	assert.Error(t, err)
}
