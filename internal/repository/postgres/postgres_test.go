package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JuampiHernandez/raave-outfit/internal/apperror"
	"github.com/JuampiHernandez/raave-outfit/internal/model"
	"github.com/JuampiHernandez/raave-outfit/internal/repository"
)

// newTestDB connects to POSTGRES_TEST_DSN and truncates the outfits table.
// The tests are skipped when no database is configured.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	dsn := os.Getenv("POSTGRES_TEST_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_TEST_DSN not set")
	}

	db, err := New(context.Background(), dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.conn.Exec(`TRUNCATE outfits`)
	require.NoError(t, err)
	return db
}

func upsertTestOutfit(t *testing.T, db *DB, handle string) *model.Outfit {
	t.Helper()
	url := "https://unavatar.io/x/" + handle
	o := &model.Outfit{
		Handle:               handle,
		Platform:             model.DefaultPlatform,
		Style:                "RAVE CYBERPUNK",
		OriginalImageURL:     &url,
		GeneratedImageBase64: "b64-" + handle,
	}
	require.NoError(t, db.Upsert(context.Background(), o))
	return o
}

func TestPostgres_UpsertAndGet(t *testing.T) {
	db := newTestDB(t)
	in := upsertTestOutfit(t, db, "vitalik")

	got, err := db.GetByHandle(context.Background(), "vitalik")
	require.NoError(t, err)
	assert.Equal(t, in.ID, got.ID)
	assert.Equal(t, in.Style, got.Style)
	assert.True(t, in.CreatedAt.Equal(got.CreatedAt))
	require.NotNil(t, got.OriginalImageURL)
	assert.Equal(t, *in.OriginalImageURL, *got.OriginalImageURL)
}

func TestPostgres_GetMissing(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetByHandle(context.Background(), "nobody")
	assert.True(t, errors.Is(err, apperror.ErrNotFound))
}

func TestPostgres_ReplaceKeepsIdentity(t *testing.T) {
	db := newTestDB(t)
	first := upsertTestOutfit(t, db, "jesse")
	time.Sleep(2 * time.Millisecond)

	second := &model.Outfit{Handle: "jesse", Platform: "twitter", Style: "BEACH SUNSET", GeneratedImageBase64: "new"}
	require.NoError(t, db.Upsert(context.Background(), second))

	assert.Equal(t, first.ID, second.ID)
	assert.True(t, first.CreatedAt.Equal(second.CreatedAt))
	assert.True(t, second.UpdatedAt.After(first.UpdatedAt))

	got, err := db.GetByHandle(context.Background(), "jesse")
	require.NoError(t, err)
	assert.Equal(t, "BEACH SUNSET", got.Style)
	assert.Nil(t, got.OriginalImageURL)
}

func TestPostgres_ListPages(t *testing.T) {
	db := newTestDB(t)
	for i := 0; i < 10; i++ {
		upsertTestOutfit(t, db, fmt.Sprintf("user%02d", i))
	}

	first, err := db.List(context.Background(), repository.ListOptions{Limit: 6})
	require.NoError(t, err)
	require.Len(t, first.Outfits, 6)
	assert.Equal(t, "user09", first.Outfits[0].Handle)
	require.NotEmpty(t, first.NextCursor)

	upsertTestOutfit(t, db, "latecomer")

	second, err := db.List(context.Background(), repository.ListOptions{Limit: 6, Cursor: first.NextCursor})
	require.NoError(t, err)
	assert.Len(t, second.Outfits, 4)
	assert.Empty(t, second.NextCursor)

	byOffset, err := db.List(context.Background(), repository.ListOptions{Limit: 6, Offset: 6})
	require.NoError(t, err)
	assert.Len(t, byOffset.Outfits, 5)
}

func TestPostgres_InvalidCursor(t *testing.T) {
	db := newTestDB(t)

	_, err := db.List(context.Background(), repository.ListOptions{Cursor: "%%%"})
	assert.True(t, errors.Is(err, apperror.ErrValidation))
}
