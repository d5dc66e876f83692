// Package handler contains the HTTP handlers.
//
// HANDLER RESPONSIBILITIES:
//  1. Parse the incoming request (path params, query, JSON body)
//  2. Call the service layer
//  3. Write the response through writeJSON / writeError
//
// Handlers hold no business rules. They depend on small interfaces declared
// next to them, so tests drive them with fakes and httptest.
package handler

import (
	"context"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/JuampiHernandez/raave-outfit/internal/apperror"
	"github.com/JuampiHernandez/raave-outfit/internal/model"
)

// OutfitReader looks up a stored outfit by handle.
type OutfitReader interface {
	GetByHandle(ctx context.Context, handle string) (*model.Outfit, error)
}

// sharePage is the page social crawlers see for /outfit/{handle}. Browsers
// are sent on to the app, which loads the outfit from ?handle=.
const sharePage = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<meta name="description" content="{{.Description}}">
<meta property="og:title" content="{{.Title}}">
<meta property="og:description" content="{{.Description}}">
{{- if .ImageURL}}
<meta property="og:image" content="{{.ImageURL}}">
<meta name="twitter:card" content="summary_large_image">
<meta name="twitter:image" content="{{.ImageURL}}">
{{- end}}
<meta name="twitter:title" content="{{.Title}}">
<meta name="twitter:description" content="{{.Description}}">
<meta http-equiv="refresh" content="0; url={{.AppURL}}">
</head>
<body>
<p><a href="{{.AppURL}}">{{.Title}}</a></p>
</body>
</html>
`

// ShareHandler renders the share page of an outfit.
// The template is parsed once at startup and reused.
type ShareHandler struct {
	outfits   OutfitReader
	publicURL string
	templates *template.Template
	logger    *slog.Logger
}

// NewShareHandler parses the share template. publicURL is the externally
// visible base URL used in absolute og:image links; empty means relative.
func NewShareHandler(outfits OutfitReader, publicURL string, logger *slog.Logger) (*ShareHandler, error) {
	tmpl, err := template.New("share").Parse(sharePage)
	if err != nil {
		return nil, err
	}
	return &ShareHandler{
		outfits:   outfits,
		publicURL: strings.TrimRight(publicURL, "/"),
		templates: tmpl,
		logger:    logger,
	}, nil
}

type shareData struct {
	Title       string
	Description string
	ImageURL    string
	AppURL      string
}

// HandleShare serves GET /outfit/{handle}. A handle without an outfit gets
// the generic page; it is not a 404 because the app can still generate one.
func (h *ShareHandler) HandleShare(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "handle")

	data := shareData{
		Title:       "RAAVE Outfitter",
		Description: "Get your perfect outfit for RAAVE!",
		AppURL:      h.publicURL + "/?handle=" + url.QueryEscape(raw),
	}

	o, err := h.outfits.GetByHandle(r.Context(), raw)
	switch {
	case err == nil:
		data.Title = "@" + o.Handle + "'s RAAVE Outfit"
		data.Description = "Check out @" + o.Handle + "'s outfit for RAAVE! Get yours now!"
		data.ImageURL = h.publicURL + "/api/outfits/" + url.PathEscape(o.Handle) + "/image"
	case errors.Is(err, apperror.ErrNotFound), errors.Is(err, apperror.ErrValidation):
	default:
		h.logger.Warn("share page lookup failed", slog.String("error", err.Error()))
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.templates.Execute(w, data); err != nil {
		h.logger.Error("failed to render template", slog.String("error", err.Error()))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}
