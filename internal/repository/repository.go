// Package repository declares the storage contracts the service layer
// depends on. Implementations live in sub-packages (sqlite, postgres, redis).
package repository

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/JuampiHernandez/raave-outfit/internal/model"
)

// ListOptions selects a page of outfits, newest first.
//
// When Cursor is set, Offset is ignored and the page starts strictly after
// the row the cursor points at. Cursors are opaque and backend-specific;
// pass back Page.NextCursor unchanged.
type ListOptions struct {
	Limit  int
	Offset int
	Cursor string
}

// Gallery paging bounds, shared by the service and every backend.
const (
	DefaultListLimit = 50
	MaxListLimit     = 100
)

// Normalized clamps Limit to 1..MaxListLimit (0 means DefaultListLimit) and
// Offset to >= 0.
func (o ListOptions) Normalized() ListOptions {
	if o.Limit <= 0 {
		o.Limit = DefaultListLimit
	}
	if o.Limit > MaxListLimit {
		o.Limit = MaxListLimit
	}
	if o.Offset < 0 {
		o.Offset = 0
	}
	return o
}

// Page is one slice of the gallery. NextCursor is empty on the last page.
type Page struct {
	Outfits    []model.Outfit
	NextCursor string
}

// OutfitRepository is the outfit cache: one row per normalized handle.
type OutfitRepository interface {
	// GetByHandle returns apperror.ErrNotFound when no row exists.
	GetByHandle(ctx context.Context, handle string) (*model.Outfit, error)

	// Upsert inserts or fully replaces the row for outfit.Handle. On return
	// outfit carries the stored ID, CreatedAt and UpdatedAt.
	Upsert(ctx context.Context, outfit *model.Outfit) error

	// List orders by created_at DESC, id DESC.
	List(ctx context.Context, opts ListOptions) (*Page, error)

	Close() error
}

// ErrInvalidCursor is returned for a cursor that was not produced by this backend.
var ErrInvalidCursor = errors.New("repository: invalid cursor")

// EncodeKeyset packs a (created_at, id) position into an opaque cursor.
// SQL backends share it; ts is in the backend's own time unit.
func EncodeKeyset(ts int64, id string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(strconv.FormatInt(ts, 10) + ":" + id))
}

// DecodeKeyset reverses EncodeKeyset.
func DecodeKeyset(cursor string) (int64, string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return 0, "", fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	tsPart, id, ok := strings.Cut(string(raw), ":")
	if !ok || id == "" {
		return 0, "", ErrInvalidCursor
	}
	ts, err := strconv.ParseInt(tsPart, 10, 64)
	if err != nil {
		return 0, "", fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	return ts, id, nil
}
