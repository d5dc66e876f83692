package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/JuampiHernandez/raave-outfit/internal/apperror"
	"github.com/JuampiHernandez/raave-outfit/internal/handle"
	"github.com/JuampiHernandez/raave-outfit/internal/imagegen"
	"github.com/JuampiHernandez/raave-outfit/internal/model"
	"github.com/JuampiHernandez/raave-outfit/internal/repository"
	"github.com/JuampiHernandez/raave-outfit/internal/style"
)

// Orchestrator defaults.
const (
	DefaultEditTimeout    = 60 * time.Second
	DefaultPersistTimeout = 10 * time.Second
)

// ImageFetcher downloads a source image. *imagegen.Fetcher satisfies it.
type ImageFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, string, error)
}

// ImageSource is where the profile picture comes from: a URL to download,
// or bytes the caller already has.
type ImageSource struct {
	URL      string
	Data     []byte
	MIMEType string
}

// SourceURL is an ImageSource that must be downloaded.
func SourceURL(url string) ImageSource {
	return ImageSource{URL: strings.TrimSpace(url)}
}

// InlineSource is an ImageSource carried in the request. An empty mimeType
// is sniffed from data.
func InlineSource(data []byte, mimeType string) ImageSource {
	return ImageSource{Data: data, MIMEType: mimeType}
}

func (s ImageSource) empty() bool {
	return s.URL == "" && len(s.Data) == 0
}

// OutfitRequest is one call into the orchestrator. Build it with
// CheckCacheOnly or GenerateWithSource.
type OutfitRequest struct {
	Handle    string
	Source    ImageSource
	Force     bool
	cacheOnly bool
}

// CheckCacheOnly asks for the cached outfit of handle and nothing else.
// A miss is reported as apperror.NoCache.
func CheckCacheOnly(h string) OutfitRequest {
	return OutfitRequest{Handle: h, cacheOnly: true}
}

// GenerateWithSource asks for the outfit of handle, generating it from src
// on a cache miss. force skips the cache read. handle may be empty, in
// which case the default style is used and nothing is stored.
func GenerateWithSource(h string, src ImageSource, force bool) OutfitRequest {
	return OutfitRequest{Handle: h, Source: src, Force: force}
}

// CacheOnly reports whether the request was built with CheckCacheOnly.
func (r OutfitRequest) CacheOnly() bool {
	return r.cacheOnly
}

// OutfitResult is what Produce hands back to the caller.
type OutfitResult struct {
	ImageBase64 string
	Style       string
	Cached      bool
}

// OutfitConfig tunes the orchestrator.
type OutfitConfig struct {
	EditTimeout       time.Duration
	PersistTimeout    time.Duration
	DedupeGenerations bool
}

// OutfitService turns a handle and a profile picture into a styled outfit.
//
// STATE MACHINE:
//
//	CheckCache ──hit──▶ return cached
//	    │ miss (or force)
//	    ├── cache-only request ──▶ NoCache
//	    ▼
//	Edit (bounded by EditTimeout) ──fail──▶ Upstream / Timeout
//	    │
//	    ▼
//	Persist (best effort, detached from the caller) ──▶ return generated
//
// Everything the service talks to is an interface or a small struct, so
// tests drive every branch with in-memory fakes.
type OutfitService struct {
	cache    *OutfitCache
	editor   imagegen.Editor
	fetcher  ImageFetcher
	styles   *style.Assigner
	cfg      OutfitConfig
	inflight singleflight.Group
	logger   *slog.Logger
}

// NewOutfitService wires the orchestrator. Zero timeouts take the defaults.
func NewOutfitService(
	cache *OutfitCache,
	editor imagegen.Editor,
	fetcher ImageFetcher,
	styles *style.Assigner,
	cfg OutfitConfig,
	logger *slog.Logger,
) *OutfitService {
	if cfg.EditTimeout <= 0 {
		cfg.EditTimeout = DefaultEditTimeout
	}
	if cfg.PersistTimeout <= 0 {
		cfg.PersistTimeout = DefaultPersistTimeout
	}
	return &OutfitService{
		cache:   cache,
		editor:  editor,
		fetcher: fetcher,
		styles:  styles,
		cfg:     cfg,
		logger:  logger,
	}
}

// Produce runs one request through the state machine.
func (s *OutfitService) Produce(ctx context.Context, req OutfitRequest) (*OutfitResult, error) {
	// === IDENTIFY ===
	// clean keeps the caller's casing for the style hash; key is the cache key.
	var clean, key string
	if strings.TrimSpace(req.Handle) != "" || req.cacheOnly {
		h, err := handle.Validate(req.Handle)
		if err != nil {
			return nil, err
		}
		clean, key = h, strings.ToLower(h)
	}

	// === CHECK CACHE ===
	if key != "" && !req.Force {
		rec, found, err := s.cache.Get(ctx, key)
		switch {
		case err != nil:
			s.logger.Warn("cache read failed, treating as miss",
				slog.String("handle", key),
				slog.String("error", err.Error()),
			)
		case found:
			s.logger.Info("returning cached outfit", slog.String("handle", key))
			return &OutfitResult{
				ImageBase64: rec.GeneratedImageBase64,
				Style:       rec.Style,
				Cached:      true,
			}, nil
		}
	}

	if req.cacheOnly {
		return nil, apperror.NoCache(key)
	}

	if req.Source.empty() {
		return nil, apperror.ValidationFailed("imageUrl", "Image URL is required")
	}

	// === EDIT ===
	// A caller that is already gone never costs an upstream call.
	if err := ctx.Err(); err != nil {
		return nil, apperror.Timeout(err)
	}

	desc := s.styles.Default()
	if clean != "" {
		desc = s.styles.Assign(clean)
	}

	started := time.Now()
	img, err := s.edit(ctx, key, req.Source, desc)
	if err != nil {
		err = classify(err)
		s.logger.Error("outfit generation failed",
			slog.String("handle", key),
			slog.String("style", desc.Name),
			slog.Duration("elapsed", time.Since(started)),
			slog.String("error", errorDetail(err)),
		)
		return nil, err
	}

	result := &OutfitResult{
		ImageBase64: base64.StdEncoding.EncodeToString(img),
		Style:       desc.Name,
	}
	s.logger.Info("outfit generated",
		slog.String("handle", key),
		slog.String("style", desc.Name),
		slog.Duration("elapsed", time.Since(started)),
	)

	// === PERSIST ===
	if key != "" {
		s.persist(ctx, key, desc, req.Source, result.ImageBase64)
	}
	return result, nil
}

// edit bounds the whole generation by EditTimeout and never outlives ctx.
func (s *OutfitService) edit(ctx context.Context, key string, src ImageSource, desc style.Descriptor) ([]byte, error) {
	if s.cfg.DedupeGenerations && key != "" {
		// The shared call must not die with whichever caller started it.
		ch := s.inflight.DoChan(key, func() (any, error) {
			callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.EditTimeout)
			defer cancel()
			return s.generate(callCtx, src, desc)
		})
		select {
		case res := <-ch:
			if res.Err != nil {
				return nil, res.Err
			}
			if res.Shared {
				s.logger.Debug("joined in-flight generation", slog.String("handle", key))
			}
			return res.Val.([]byte), nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, s.cfg.EditTimeout)
	defer cancel()

	type outcome struct {
		img []byte
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		img, err := s.generate(callCtx, src, desc)
		done <- outcome{img: img, err: err}
	}()

	select {
	case o := <-done:
		return o.img, o.err
	case <-callCtx.Done():
		return nil, callCtx.Err()
	}
}

// generate loads the source bytes, builds the prompt and calls the editor.
func (s *OutfitService) generate(ctx context.Context, src ImageSource, desc style.Descriptor) ([]byte, error) {
	data, mime := src.Data, src.MIMEType
	if src.URL != "" {
		var err error
		data, mime, err = s.fetcher.Fetch(ctx, src.URL)
		if err != nil {
			return nil, fmt.Errorf("loading source image: %w", err)
		}
	} else if mime == "" {
		detected, err := imagegen.DetectImageType(data)
		if err != nil {
			return nil, apperror.ValidationFailed("imageUrl", "source must be an image")
		}
		mime = detected
	}

	img, err := s.editor.Edit(ctx, data, mime, imagegen.BuildEditPrompt(desc))
	if err != nil {
		return nil, err
	}
	if len(img) == 0 {
		return nil, imagegen.ErrEmptyResult
	}
	return img, nil
}

// persist writes the generated outfit with a context detached from the
// caller. Failures are logged and never reach the caller.
func (s *OutfitService) persist(ctx context.Context, key string, desc style.Descriptor, src ImageSource, b64 string) {
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.PersistTimeout)
	defer cancel()

	rec := &model.Outfit{
		Handle:               key,
		Platform:             model.DefaultPlatform,
		Style:                desc.Name,
		GeneratedImageBase64: b64,
	}
	if src.URL != "" {
		url := src.URL
		rec.OriginalImageURL = &url
	}

	if err := s.cache.Upsert(pctx, rec); err != nil {
		s.logger.Warn("failed to cache generated outfit",
			slog.String("handle", key),
			slog.String("error", errorDetail(err)),
		)
	}
}

// classify maps a generation failure onto the apperror taxonomy.
func classify(err error) error {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return apperror.Timeout(err)
	}
	return apperror.Upstream(err)
}

// errorDetail includes the hidden cause of an AppError for logging.
func errorDetail(err error) string {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) && appErr.Cause != nil {
		return appErr.Message + ": " + appErr.Cause.Error()
	}
	return err.Error()
}

// =========================================================================
// READ + ADMIN OPERATIONS
// =========================================================================

// Gallery returns one page of stored outfits. Storage failures are logged
// and produce an empty page; an invalid cursor is a validation error.
func (s *OutfitService) Gallery(ctx context.Context, limit, offset int, cursor string) (*repository.Page, error) {
	page, err := s.cache.ListPage(ctx, limit, offset, cursor)
	if err != nil {
		if errors.Is(err, apperror.ErrValidation) {
			return nil, err
		}
		s.logger.Error("failed to list gallery", slog.String("error", errorDetail(err)))
		return &repository.Page{Outfits: []model.Outfit{}}, nil
	}
	return page, nil
}

// GetByHandle returns the stored outfit for raw, or apperror.ErrNotFound.
func (s *OutfitService) GetByHandle(ctx context.Context, raw string) (*model.Outfit, error) {
	h, err := handle.Validate(raw)
	if err != nil {
		return nil, err
	}
	key := strings.ToLower(h)

	rec, found, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.Error("failed to read outfit",
			slog.String("handle", key),
			slog.String("error", errorDetail(err)),
		)
		return nil, apperror.NotFound("outfit", key)
	}
	if !found {
		return nil, apperror.NotFound("outfit", key)
	}
	return rec, nil
}

// ManualUpload stores an outfit image produced outside the generator.
// Unlike generation, a storage failure is returned to the caller.
func (s *OutfitService) ManualUpload(ctx context.Context, rawHandle, imageBase64, styleName string) (*model.Outfit, error) {
	h, err := handle.Validate(rawHandle)
	if err != nil {
		return nil, err
	}

	payload := strings.TrimSpace(imageBase64)
	if payload == "" {
		return nil, apperror.ValidationFailed("imageBase64", "Image base64 is required")
	}
	var data []byte
	if d, _, ok, perr := imagegen.ParseDataURL(payload); ok {
		if perr != nil {
			return nil, apperror.ValidationFailed("imageBase64", "image must be a base64 encoded image")
		}
		data = d
	} else {
		data, err = imagegen.DecodeBase64(payload)
		if err != nil {
			return nil, apperror.ValidationFailed("imageBase64", "image must be a base64 encoded image")
		}
		if _, err := imagegen.DetectImageType(data); err != nil {
			return nil, apperror.ValidationFailed("imageBase64", "image must be a base64 encoded image")
		}
	}

	if strings.TrimSpace(styleName) == "" {
		return nil, apperror.ValidationFailed("style", "Style is required")
	}
	desc, ok := s.styles.Lookup(styleName)
	if !ok {
		return nil, apperror.ValidationFailed("style", fmt.Sprintf("unknown style %q", styleName))
	}

	rec := &model.Outfit{
		Handle:               h,
		Platform:             model.DefaultPlatform,
		Style:                desc.Name,
		GeneratedImageBase64: base64.StdEncoding.EncodeToString(data),
	}
	if err := s.cache.Upsert(ctx, rec); err != nil {
		s.logger.Error("manual upload failed",
			slog.String("handle", rec.Handle),
			slog.String("error", errorDetail(err)),
		)
		return nil, err
	}

	s.logger.Info("outfit uploaded manually",
		slog.String("handle", rec.Handle),
		slog.String("style", rec.Style),
	)
	return rec, nil
}
