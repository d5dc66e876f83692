package handler

import (
	"context"
	"encoding/base64"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/JuampiHernandez/raave-outfit/internal/apperror"
	"github.com/JuampiHernandez/raave-outfit/internal/imagegen"
	"github.com/JuampiHernandez/raave-outfit/internal/model"
	"github.com/JuampiHernandez/raave-outfit/internal/repository"
	"github.com/JuampiHernandez/raave-outfit/internal/service"
)

// cachedSentinel is the imageUrl value clients send to ask for the cached
// outfit only.
const cachedSentinel = "cached"

// OutfitService is what the outfit routes need from the service layer.
// *service.OutfitService satisfies it; tests pass a fake.
type OutfitService interface {
	Produce(ctx context.Context, req service.OutfitRequest) (*service.OutfitResult, error)
	Gallery(ctx context.Context, limit, offset int, cursor string) (*repository.Page, error)
	GetByHandle(ctx context.Context, handle string) (*model.Outfit, error)
	ManualUpload(ctx context.Context, handle, imageBase64, style string) (*model.Outfit, error)
}

// IdentityService resolves a handle into a profile with an avatar URL.
type IdentityService interface {
	Resolve(ctx context.Context, handle, platform string) (*model.Profile, error)
}

// OutfitHandler serves the generation, gallery and upload routes.
type OutfitHandler struct {
	outfits  OutfitService
	identity IdentityService
	logger   *slog.Logger
}

// NewOutfitHandler creates an OutfitHandler.
func NewOutfitHandler(outfits OutfitService, identity IdentityService, logger *slog.Logger) *OutfitHandler {
	return &OutfitHandler{outfits: outfits, identity: identity, logger: logger}
}

// =========================================================================
// POST /api/resolve-identity
// =========================================================================

type resolveIdentityRequest struct {
	Handle   string `json:"handle"`
	Platform string `json:"platform"`
}

type resolveIdentityResponse struct {
	Success bool           `json:"success"`
	Profile *model.Profile `json:"profile"`
}

// HandleResolveIdentity resolves a handle to a profile picture URL.
func (h *OutfitHandler) HandleResolveIdentity(w http.ResponseWriter, r *http.Request) {
	var req resolveIdentityRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	profile, err := h.identity.Resolve(r.Context(), req.Handle, req.Platform)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resolveIdentityResponse{Success: true, Profile: profile})
}

// =========================================================================
// POST /api/generate-outfit
// =========================================================================

type generateOutfitRequest struct {
	ImageURL        string `json:"imageUrl"`
	Username        string `json:"username"`
	ForceRegenerate bool   `json:"forceRegenerate"`
}

type generateOutfitResponse struct {
	Success bool   `json:"success"`
	Image   string `json:"image"`
	Style   string `json:"style"`
	Cached  bool   `json:"cached"`
}

// HandleGenerateOutfit returns the cached outfit for a user or generates one.
//
// imageUrl selects the request variant:
//
//	"cached"                  → cache lookup only; 404 on a miss
//	"data:image/...;base64,"  → inline source
//	"https://..."             → source downloaded by the service
func (h *OutfitHandler) HandleGenerateOutfit(w http.ResponseWriter, r *http.Request) {
	var body generateOutfitRequest
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, err)
		return
	}

	req, err := toOutfitRequest(body)
	if err != nil {
		writeError(w, err)
		return
	}

	res, err := h.outfits.Produce(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, generateOutfitResponse{
		Success: true,
		Image:   res.ImageBase64,
		Style:   res.Style,
		Cached:  res.Cached,
	})
}

func toOutfitRequest(body generateOutfitRequest) (service.OutfitRequest, error) {
	raw := strings.TrimSpace(body.ImageURL)
	switch {
	case raw == "":
		return service.OutfitRequest{}, apperror.ValidationFailed("imageUrl", "Image URL is required")

	case raw == cachedSentinel:
		return service.CheckCacheOnly(body.Username), nil
	}

	data, mime, isDataURL, err := imagegen.ParseDataURL(raw)
	if isDataURL {
		if err != nil {
			return service.OutfitRequest{}, apperror.ValidationFailed("imageUrl", "Invalid image data URL")
		}
		return service.GenerateWithSource(body.Username, service.InlineSource(data, mime), body.ForceRegenerate), nil
	}

	u, err := url.ParseRequestURI(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return service.OutfitRequest{}, apperror.ValidationFailed("imageUrl", "Invalid image URL")
	}
	return service.GenerateWithSource(body.Username, service.SourceURL(raw), body.ForceRegenerate), nil
}

// =========================================================================
// GET /api/gallery
// =========================================================================

type galleryResponse struct {
	Success    bool           `json:"success"`
	Outfits    []model.Outfit `json:"outfits"`
	Count      int            `json:"count"`
	NextCursor string         `json:"nextCursor,omitempty"`
}

// HandleGallery lists stored outfits, newest first.
// Query: limit (default 50, max 100), offset, cursor (from nextCursor).
func (h *OutfitHandler) HandleGallery(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := queryInt(q, "limit", repository.DefaultListLimit)
	offset := queryInt(q, "offset", 0)

	page, err := h.outfits.Gallery(r.Context(), limit, offset, q.Get("cursor"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, galleryResponse{
		Success:    true,
		Outfits:    page.Outfits,
		Count:      len(page.Outfits),
		NextCursor: page.NextCursor,
	})
}

// queryInt parses an integer query parameter, falling back to def when it
// is missing or malformed.
func queryInt(q url.Values, key string, def int) int {
	v := q.Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// =========================================================================
// GET /api/outfits/{handle} and /api/outfits/{handle}/image
// =========================================================================

// HandleGetOutfit returns the stored record for a handle.
func (h *OutfitHandler) HandleGetOutfit(w http.ResponseWriter, r *http.Request) {
	o, err := h.outfits.GetByHandle(r.Context(), chi.URLParam(r, "handle"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// HandleOutfitImage streams the decoded outfit image so it can be shared
// or embedded by URL.
func (h *OutfitHandler) HandleOutfitImage(w http.ResponseWriter, r *http.Request) {
	o, err := h.outfits.GetByHandle(r.Context(), chi.URLParam(r, "handle"))
	if err != nil {
		writeError(w, err)
		return
	}

	img, err := base64.StdEncoding.DecodeString(o.GeneratedImageBase64)
	if err != nil {
		h.logger.Error("stored outfit is not valid base64",
			slog.String("handle", o.Handle),
			slog.String("error", err.Error()),
		)
		writeError(w, err)
		return
	}
	contentType, err := imagegen.DetectImageType(img)
	if err != nil {
		contentType = "application/octet-stream"
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(img)))
	w.Header().Set("Cache-Control", "public, max-age=300")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(img); err != nil {
		h.logger.Warn("failed to write outfit image", slog.String("error", err.Error()))
	}
}

// =========================================================================
// POST /api/upload-outfit (admin)
// =========================================================================

type uploadOutfitRequest struct {
	Handle      string `json:"handle"`
	ImageBase64 string `json:"imageBase64"`
	Style       string `json:"style"`
}

type uploadOutfitResponse struct {
	Success bool          `json:"success"`
	Message string        `json:"message"`
	Outfit  *model.Outfit `json:"outfit"`
}

// HandleUploadOutfit stores a manually produced outfit for a handle.
func (h *OutfitHandler) HandleUploadOutfit(w http.ResponseWriter, r *http.Request) {
	var req uploadOutfitRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	o, err := h.outfits.ManualUpload(r.Context(), req.Handle, req.ImageBase64, req.Style)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, uploadOutfitResponse{
		Success: true,
		Message: "Outfit uploaded for @" + o.Handle,
		Outfit:  o,
	})
}
