package imagegen

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	DefaultGeminiModel   = "gemini-2.5-flash-image-preview"
)

// GeminiOptions configures the Gemini client.
type GeminiOptions struct {
	APIKey     string
	BaseURL    string
	Model      string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Gemini implements Editor with the generateContent REST endpoint.
type Gemini struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	logger     *slog.Logger
}

var _ Editor = (*Gemini)(nil)

type geminiInlineData struct {
	MimeType string `json:"mimeType,omitempty"`
	Data     string `json:"data,omitempty"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts,omitempty"`
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiCandidate struct {
	Content      geminiContent `json:"content"`
	FinishReason string        `json:"finishReason,omitempty"`
}

type geminiResponse struct {
	Candidates []geminiCandidate `json:"candidates"`
}

type geminiErrorResponse struct {
	Error struct {
		Code    int    `json:"code,omitempty"`
		Message string `json:"message,omitempty"`
		Status  string `json:"status,omitempty"`
	} `json:"error"`
}

// NewGemini builds a client. An API key is required; everything else has a
// default. The HTTP client gets a generous timeout as a backstop; callers
// bound each call through ctx.
func NewGemini(opts GeminiOptions) (*Gemini, error) {
	key := strings.TrimSpace(opts.APIKey)
	if key == "" {
		return nil, errors.New("imagegen: Gemini API key is required")
	}

	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 90 * time.Second}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultGeminiBaseURL
	}
	model := opts.Model
	if model == "" {
		model = DefaultGeminiModel
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Gemini{
		apiKey:     key,
		baseURL:    baseURL,
		model:      model,
		httpClient: client,
		logger:     logger,
	}, nil
}

// Model returns the configured model identifier.
func (g *Gemini) Model() string {
	return g.model
}

// Edit sends the image and instruction in a single user turn and returns
// the first inline image of the first candidate.
func (g *Gemini) Edit(ctx context.Context, image []byte, mimeType, prompt string) ([]byte, error) {
	if len(image) == 0 {
		return nil, errors.New("imagegen: empty input image")
	}

	payload := geminiRequest{
		Contents: []geminiContent{{
			Role: "user",
			Parts: []geminiPart{
				{InlineData: &geminiInlineData{
					MimeType: mimeType,
					Data:     base64.StdEncoding.EncodeToString(image),
				}},
				{Text: prompt},
			},
		}},
	}

	start := time.Now()
	var resp geminiResponse
	path := fmt.Sprintf("/models/%s:generateContent", url.PathEscape(g.model))
	if err := g.invoke(ctx, path, payload, &resp); err != nil {
		return nil, err
	}

	out, err := firstInlineImage(resp)
	if err != nil {
		return nil, err
	}

	g.logger.Info("gemini edit completed",
		slog.String("model", g.model),
		slog.Int("input_bytes", len(image)),
		slog.Int("output_bytes", len(out)),
		slog.Duration("duration", time.Since(start)),
	)
	return out, nil
}

func firstInlineImage(resp geminiResponse) ([]byte, error) {
	if len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("%w: no candidates", ErrEmptyResult)
	}
	for _, part := range resp.Candidates[0].Content.Parts {
		if part.InlineData == nil || part.InlineData.Data == "" {
			continue
		}
		data, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
		if err != nil {
			return nil, fmt.Errorf("imagegen: decoding inline image: %w", err)
		}
		return data, nil
	}
	return nil, fmt.Errorf("%w: no image part (finish reason %q)", ErrEmptyResult, resp.Candidates[0].FinishReason)
}

func (g *Gemini) invoke(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("imagegen: marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("imagegen: create request: %w", err)
	}
	// The key stays out of the URL so transport errors, which quote the
	// URL, never carry it into logs.
	req.Header.Set("x-goog-api-key", g.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("imagegen: invoke gemini: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var apiErr geminiErrorResponse
		if err := json.Unmarshal(data, &apiErr); err == nil && apiErr.Error.Message != "" {
			return fmt.Errorf("imagegen: gemini status %d: %s", resp.StatusCode, apiErr.Error.Message)
		}
		if len(data) > 0 {
			return fmt.Errorf("imagegen: gemini status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
		}
		return fmt.Errorf("imagegen: gemini status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("imagegen: decode gemini response: %w", err)
	}
	return nil
}
