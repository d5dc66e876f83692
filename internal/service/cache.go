package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/JuampiHernandez/raave-outfit/internal/apperror"
	"github.com/JuampiHernandez/raave-outfit/internal/handle"
	"github.com/JuampiHernandez/raave-outfit/internal/model"
	"github.com/JuampiHernandez/raave-outfit/internal/repository"
)

// OutfitCache is the service-level view of the outfit store.
//
// KEYING:
// Every call normalizes the handle first ("@Vitalik " and "vitalik" hit the
// same row), so the repositories only ever see lowercase handles.
//
// ERRORS:
// A missing row is not an error here: Get reports it with found=false.
// Real storage failures come back as apperror.Storage so callers can decide
// whether to swallow them (generation) or surface them (manual upload).
type OutfitCache struct {
	repo   repository.OutfitRepository
	logger *slog.Logger
}

// NewOutfitCache wraps repo.
func NewOutfitCache(repo repository.OutfitRepository, logger *slog.Logger) *OutfitCache {
	return &OutfitCache{repo: repo, logger: logger}
}

// Get looks up the outfit for raw. Not-found is (nil, false, nil).
func (c *OutfitCache) Get(ctx context.Context, raw string) (*model.Outfit, bool, error) {
	key := handle.Normalize(raw)
	if key == "" {
		return nil, false, nil
	}

	o, err := c.repo.GetByHandle(ctx, key)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, apperror.Storage("get outfit", err)
	}
	return o, true, nil
}

// Upsert stores o under its normalized handle. On success o carries the
// stored id and timestamps.
func (c *OutfitCache) Upsert(ctx context.Context, o *model.Outfit) error {
	o.Handle = handle.Normalize(o.Handle)
	if o.Handle == "" {
		return apperror.ValidationFailed("handle", "handle is required")
	}
	if o.Platform == "" {
		o.Platform = model.DefaultPlatform
	}

	if err := c.repo.Upsert(ctx, o); err != nil {
		return apperror.Storage("upsert outfit", err)
	}

	c.logger.Debug("outfit stored",
		slog.String("handle", o.Handle),
		slog.String("style", o.Style),
	)
	return nil
}

// ListPage returns one gallery page, newest first. Bounds follow
// repository.ListOptions.Normalized.
func (c *OutfitCache) ListPage(ctx context.Context, limit, offset int, cursor string) (*repository.Page, error) {
	opts := repository.ListOptions{Limit: limit, Offset: offset, Cursor: cursor}.Normalized()
	page, err := c.repo.List(ctx, opts)
	if err != nil {
		if errors.Is(err, apperror.ErrValidation) {
			return nil, err
		}
		return nil, apperror.Storage("list outfits", err)
	}
	return page, nil
}
