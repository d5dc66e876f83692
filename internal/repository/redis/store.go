// Package redis implements the outfit repository on Redis.
//
// Each outfit is a hash at outfit:{handle}. The gallery order lives in the
// sorted set outfits:by_created, scored by created_at in microseconds with
// the handle as member. created_at is truncated to the microsecond on write,
// so the score and the stored timestamp are the same instant (a float64
// holds unix microseconds exactly). Only members created within the same
// microsecond fall back to ordering by handle.
package redis

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/xid"

	"github.com/JuampiHernandez/raave-outfit/internal/apperror"
	"github.com/JuampiHernandez/raave-outfit/internal/model"
	"github.com/JuampiHernandez/raave-outfit/internal/repository"
)

var _ repository.OutfitRepository = (*Store)(nil)

const (
	outfitKeyPrefix = "outfit:"
	galleryKey      = "outfits:by_created"
)

const (
	fieldID        = "id"
	fieldHandle    = "handle"
	fieldPlatform  = "platform"
	fieldStyle     = "style"
	fieldOriginal  = "original_image_url"
	fieldImage     = "generated_image_base64"
	fieldCreatedAt = "created_at"
	fieldUpdatedAt = "updated_at"
)

// Options configures the connection.
type Options struct {
	Addr     string
	Password string
	DB       int
}

// Store is a redis-backed outfit repository.
type Store struct {
	rdb *goredis.Client
}

// New connects to redis and verifies the connection with a PING.
func New(ctx context.Context, opts Options) (*Store, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        opts.Addr,
		Password:    opts.Password,
		DB:          opts.DB,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}
	return &Store{rdb: rdb}, nil
}

// Close closes the client.
func (s *Store) Close() error {
	return s.rdb.Close()
}

func outfitKey(handle string) string {
	return outfitKeyPrefix + handle
}

// GetByHandle retrieves the outfit stored for handle.
func (s *Store) GetByHandle(ctx context.Context, handle string) (*model.Outfit, error) {
	fields, err := s.rdb.HGetAll(ctx, outfitKey(handle)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: getting outfit %s: %w", handle, err)
	}
	if len(fields) == 0 {
		return nil, apperror.NotFound("outfit", handle)
	}
	return decodeOutfit(fields)
}

// Upsert writes the outfit hash and gallery entry in one MULTI/EXEC block.
// HSETNX and ZADD NX keep the first id and created_at for a handle.
func (s *Store) Upsert(ctx context.Context, o *model.Outfit) error {
	now := time.Now().UTC().Truncate(time.Microsecond)
	key := outfitKey(o.Handle)

	var stored *goredis.SliceCmd
	_, err := s.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.HSetNX(ctx, key, fieldID, xid.New().String())
		pipe.HSetNX(ctx, key, fieldCreatedAt, strconv.FormatInt(now.UnixNano(), 10))
		pipe.HSet(ctx, key,
			fieldHandle, o.Handle,
			fieldPlatform, o.Platform,
			fieldStyle, o.Style,
			fieldImage, o.GeneratedImageBase64,
			fieldUpdatedAt, strconv.FormatInt(now.UnixNano(), 10),
		)
		if o.OriginalImageURL != nil {
			pipe.HSet(ctx, key, fieldOriginal, *o.OriginalImageURL)
		} else {
			pipe.HDel(ctx, key, fieldOriginal)
		}
		pipe.ZAddNX(ctx, galleryKey, goredis.Z{
			Score:  galleryScore(now),
			Member: o.Handle,
		})
		stored = pipe.HMGet(ctx, key, fieldID, fieldCreatedAt, fieldUpdatedAt)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis: upserting outfit %s: %w", o.Handle, err)
	}

	vals := stored.Val()
	if len(vals) != 3 {
		return fmt.Errorf("redis: upserting outfit %s: unexpected reply", o.Handle)
	}
	id, _ := vals[0].(string)
	createdAt, err := parseNanos(vals[1])
	if err != nil {
		return fmt.Errorf("redis: upserting outfit %s: %w", o.Handle, err)
	}
	updatedAt, err := parseNanos(vals[2])
	if err != nil {
		return fmt.Errorf("redis: upserting outfit %s: %w", o.Handle, err)
	}

	o.ID = id
	o.CreatedAt = createdAt
	o.UpdatedAt = updatedAt
	return nil
}

// List returns one page of outfits, newest first. A cursor names the last
// handle of the previous page; the next page starts at that handle's
// current rank, so inserts at the head do not shift it.
func (s *Store) List(ctx context.Context, opts repository.ListOptions) (*repository.Page, error) {
	opts = opts.Normalized()
	limit := opts.Limit
	start := int64(opts.Offset)

	if opts.Cursor != "" {
		after, err := decodeCursor(opts.Cursor)
		if err != nil {
			return nil, apperror.ValidationFailed("cursor", "invalid gallery cursor")
		}
		rank, err := s.rdb.ZRevRank(ctx, galleryKey, after).Result()
		if errors.Is(err, goredis.Nil) {
			return nil, apperror.ValidationFailed("cursor", "invalid gallery cursor")
		}
		if err != nil {
			return nil, fmt.Errorf("redis: resolving cursor: %w", err)
		}
		start = rank + 1
	}

	handles, err := s.rdb.ZRevRange(ctx, galleryKey, start, start+int64(limit)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: listing outfits: %w", err)
	}

	page := &repository.Page{Outfits: []model.Outfit{}}
	if len(handles) == 0 {
		return page, nil
	}

	cmds, err := s.rdb.Pipelined(ctx, func(pipe goredis.Pipeliner) error {
		for _, h := range handles {
			pipe.HGetAll(ctx, outfitKey(h))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("redis: loading outfits: %w", err)
	}

	outfits := make([]model.Outfit, 0, len(cmds))
	for _, cmd := range cmds {
		fields, err := cmd.(*goredis.MapStringStringCmd).Result()
		if err != nil {
			return nil, fmt.Errorf("redis: loading outfit: %w", err)
		}
		if len(fields) == 0 {
			continue
		}
		o, err := decodeOutfit(fields)
		if err != nil {
			return nil, err
		}
		outfits = append(outfits, *o)
	}

	page.Outfits = outfits
	if len(handles) > limit {
		page.Outfits = outfits[:min(limit, len(outfits))]
		page.NextCursor = encodeCursor(handles[limit-1])
	}
	return page, nil
}

// galleryScore is the zset score for an outfit created at t.
func galleryScore(t time.Time) float64 {
	return float64(t.UnixMicro())
}

func decodeOutfit(fields map[string]string) (*model.Outfit, error) {
	o := &model.Outfit{
		ID:                   fields[fieldID],
		Handle:               fields[fieldHandle],
		Platform:             fields[fieldPlatform],
		Style:                fields[fieldStyle],
		GeneratedImageBase64: fields[fieldImage],
	}
	if v, ok := fields[fieldOriginal]; ok {
		o.OriginalImageURL = &v
	}

	var err error
	if o.CreatedAt, err = parseNanos(fields[fieldCreatedAt]); err != nil {
		return nil, fmt.Errorf("redis: decoding outfit %s: %w", o.Handle, err)
	}
	if o.UpdatedAt, err = parseNanos(fields[fieldUpdatedAt]); err != nil {
		return nil, fmt.Errorf("redis: decoding outfit %s: %w", o.Handle, err)
	}
	return o, nil
}

func parseNanos(v any) (time.Time, error) {
	s, ok := v.(string)
	if !ok {
		return time.Time{}, fmt.Errorf("timestamp is %T, want string", v)
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", s, err)
	}
	return time.Unix(0, n).UTC(), nil
}

func encodeCursor(handle string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(handle))
}

func decodeCursor(cursor string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil || len(raw) == 0 {
		return "", repository.ErrInvalidCursor
	}
	return string(raw), nil
}
