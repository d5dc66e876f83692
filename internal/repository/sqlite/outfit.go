package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/JuampiHernandez/raave-outfit/internal/apperror"
	"github.com/JuampiHernandez/raave-outfit/internal/model"
	"github.com/JuampiHernandez/raave-outfit/internal/repository"
)

// Compile-time check that *DB implements the outfit repository.
var _ repository.OutfitRepository = (*DB)(nil)

const outfitColumns = `id, handle, platform, style, original_image_url,
	generated_image_base64, created_at, updated_at`

// GetByHandle retrieves the outfit stored for handle.
// The handle is matched exactly; normalization happens in the service layer.
func (db *DB) GetByHandle(ctx context.Context, handle string) (*model.Outfit, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+outfitColumns+` FROM outfits WHERE handle = ?`,
		handle,
	)

	o, err := scanOutfit(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("outfit", handle)
		}
		return nil, fmt.Errorf("sqlite: getting outfit %s: %w", handle, err)
	}
	return o, nil
}

// Upsert inserts a new outfit or replaces the existing row for the same handle.
//
// ON CONFLICT(handle) DO UPDATE keeps the original id and created_at, so a
// regenerated outfit keeps its place in the gallery. The statement is a
// single atomic write: concurrent upserts for one handle are last-writer-wins.
// RETURNING hands back the stored id and timestamps in the same round trip.
func (db *DB) Upsert(ctx context.Context, o *model.Outfit) error {
	now := time.Now().UTC()

	var createdAt, updatedAt int64
	err := db.conn.QueryRowContext(ctx,
		`INSERT INTO outfits (`+outfitColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(handle) DO UPDATE SET
			platform               = excluded.platform,
			style                  = excluded.style,
			original_image_url     = excluded.original_image_url,
			generated_image_base64 = excluded.generated_image_base64,
			updated_at             = excluded.updated_at
		 RETURNING id, created_at, updated_at`,
		xid.New().String(),
		o.Handle,
		o.Platform,
		o.Style,
		nullString(o.OriginalImageURL),
		o.GeneratedImageBase64,
		now.UnixNano(),
		now.UnixNano(),
	).Scan(&o.ID, &createdAt, &updatedAt)
	if err != nil {
		return fmt.Errorf("sqlite: upserting outfit %s: %w", o.Handle, err)
	}

	o.CreatedAt = fromNanos(createdAt)
	o.UpdatedAt = fromNanos(updatedAt)
	return nil
}

// List returns one page of outfits, newest first.
//
// Offset pages are cheap to request but shift when brand-new handles are
// inserted at the head. Cursor pages use the (created_at, id) keyset and
// never duplicate or skip a row.
func (db *DB) List(ctx context.Context, opts repository.ListOptions) (*repository.Page, error) {
	opts = opts.Normalized()
	limit, offset := opts.Limit, opts.Offset

	// Fetch one extra row to learn whether another page exists.
	var (
		rows *sql.Rows
		err  error
	)
	if opts.Cursor != "" {
		ts, id, derr := repository.DecodeKeyset(opts.Cursor)
		if derr != nil {
			return nil, apperror.ValidationFailed("cursor", "invalid gallery cursor")
		}
		rows, err = db.conn.QueryContext(ctx,
			`SELECT `+outfitColumns+` FROM outfits
			 WHERE (created_at, id) < (?, ?)
			 ORDER BY created_at DESC, id DESC
			 LIMIT ?`,
			ts, id, limit+1,
		)
	} else {
		rows, err = db.conn.QueryContext(ctx,
			`SELECT `+outfitColumns+` FROM outfits
			 ORDER BY created_at DESC, id DESC
			 LIMIT ? OFFSET ?`,
			limit+1, offset,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing outfits: %w", err)
	}
	defer rows.Close()

	outfits := make([]model.Outfit, 0, limit+1)
	for rows.Next() {
		o, err := scanOutfit(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning outfit row: %w", err)
		}
		outfits = append(outfits, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating outfits: %w", err)
	}

	page := &repository.Page{Outfits: outfits}
	if len(outfits) > limit {
		page.Outfits = outfits[:limit]
		last := page.Outfits[limit-1]
		page.NextCursor = repository.EncodeKeyset(last.CreatedAt.UnixNano(), last.ID)
	}
	return page, nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanOutfit(s scanner) (*model.Outfit, error) {
	var (
		o                    model.Outfit
		original             sql.NullString
		createdAt, updatedAt int64
	)
	if err := s.Scan(
		&o.ID, &o.Handle, &o.Platform, &o.Style, &original,
		&o.GeneratedImageBase64, &createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}
	if original.Valid {
		o.OriginalImageURL = &original.String
	}
	o.CreatedAt = fromNanos(createdAt)
	o.UpdatedAt = fromNanos(updatedAt)
	return &o, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func fromNanos(n int64) time.Time {
	return time.Unix(0, n).UTC()
}
