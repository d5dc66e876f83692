// Package postgres implements the outfit repository on PostgreSQL, using the
// pgx driver through database/sql and goose for schema migrations.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/rs/xid"

	"github.com/JuampiHernandez/raave-outfit/internal/apperror"
	"github.com/JuampiHernandez/raave-outfit/internal/model"
	"github.com/JuampiHernandez/raave-outfit/internal/repository"
	"github.com/JuampiHernandez/raave-outfit/internal/repository/postgres/migrations"
)

var _ repository.OutfitRepository = (*DB)(nil)

const outfitColumns = `id, handle, platform, style, original_image_url,
	generated_image_base64, created_at, updated_at`

// DB is a postgres-backed outfit repository.
type DB struct {
	conn *sql.DB
}

// New connects to dsn, verifies the connection and applies migrations.
func New(ctx context.Context, dsn string) (*DB, error) {
	conn, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: opening database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := conn.PingContext(pingCtx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("postgres: pinging database: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("postgres: running migrations: %w", err)
	}
	return db, nil
}

func (db *DB) migrate(ctx context.Context) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.UpContext(ctx, db.conn, ".")
}

// Close closes the connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// GetByHandle retrieves the outfit stored for handle.
func (db *DB) GetByHandle(ctx context.Context, handle string) (*model.Outfit, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+outfitColumns+` FROM outfits WHERE handle = $1`,
		handle,
	)
	o, err := scanOutfit(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("outfit", handle)
		}
		return nil, fmt.Errorf("postgres: getting outfit %s: %w", handle, err)
	}
	return o, nil
}

// Upsert inserts or replaces the row for o.Handle, keeping id and created_at.
func (db *DB) Upsert(ctx context.Context, o *model.Outfit) error {
	// Postgres keeps microseconds; truncate so the returned value matches storage.
	now := time.Now().UTC().Truncate(time.Microsecond)

	err := db.conn.QueryRowContext(ctx,
		`INSERT INTO outfits (`+outfitColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		 ON CONFLICT (handle) DO UPDATE SET
			platform               = EXCLUDED.platform,
			style                  = EXCLUDED.style,
			original_image_url     = EXCLUDED.original_image_url,
			generated_image_base64 = EXCLUDED.generated_image_base64,
			updated_at             = EXCLUDED.updated_at
		 RETURNING id, created_at, updated_at`,
		xid.New().String(),
		o.Handle,
		o.Platform,
		o.Style,
		nullString(o.OriginalImageURL),
		o.GeneratedImageBase64,
		now,
	).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("postgres: upserting outfit %s: %w", o.Handle, err)
	}
	o.CreatedAt = o.CreatedAt.UTC()
	o.UpdatedAt = o.UpdatedAt.UTC()
	return nil
}

// List returns one page of outfits ordered by (created_at, id) descending.
// Cursor positions are encoded in unix microseconds.
func (db *DB) List(ctx context.Context, opts repository.ListOptions) (*repository.Page, error) {
	opts = opts.Normalized()
	limit, offset := opts.Limit, opts.Offset

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
			 WHERE (created_at, id) < ($1, $2)
			 ORDER BY created_at DESC, id DESC
			 LIMIT $3`,
			time.UnixMicro(ts).UTC(), id, limit+1,
		)
	} else {
		rows, err = db.conn.QueryContext(ctx,
			`SELECT `+outfitColumns+` FROM outfits
			 ORDER BY created_at DESC, id DESC
			 LIMIT $1 OFFSET $2`,
			limit+1, offset,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: listing outfits: %w", err)
	}
	defer rows.Close()

	outfits := make([]model.Outfit, 0, limit+1)
	for rows.Next() {
		o, err := scanOutfit(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scanning outfit row: %w", err)
		}
		outfits = append(outfits, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterating outfits: %w", err)
	}

	page := &repository.Page{Outfits: outfits}
	if len(outfits) > limit {
		page.Outfits = outfits[:limit]
		last := page.Outfits[limit-1]
		page.NextCursor = repository.EncodeKeyset(last.CreatedAt.UnixMicro(), last.ID)
	}
	return page, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanOutfit(s scanner) (*model.Outfit, error) {
	var (
		o        model.Outfit
		original sql.NullString
	)
	if err := s.Scan(
		&o.ID, &o.Handle, &o.Platform, &o.Style, &original,
		&o.GeneratedImageBase64, &o.CreatedAt, &o.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if original.Valid {
		o.OriginalImageURL = &original.String
	}
	o.CreatedAt = o.CreatedAt.UTC()
	o.UpdatedAt = o.UpdatedAt.UTC()
	return &o, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
