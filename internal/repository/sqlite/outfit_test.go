package sqlite

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/JuampiHernandez/raave-outfit/internal/apperror"
	"github.com/JuampiHernandez/raave-outfit/internal/model"
	"github.com/JuampiHernandez/raave-outfit/internal/repository"
)

// newTestDB opens a fresh in-memory database for one test.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func strPtr(s string) *string { return &s }

// upsertTestOutfit stores an outfit for handle and fails the test on error.
func upsertTestOutfit(t *testing.T, db *DB, handle string) *model.Outfit {
	t.Helper()
	o := &model.Outfit{
		Handle:               handle,
		Platform:             model.DefaultPlatform,
		Style:                "NEO Y2K",
		OriginalImageURL:     strPtr("https://unavatar.io/x/" + handle),
		GeneratedImageBase64: "iVBORw0KGgo=" + handle,
	}
	if err := db.Upsert(context.Background(), o); err != nil {
		t.Fatalf("failed to upsert test outfit: %v", err)
	}
	return o
}

// =========================================================================
// UPSERT + GET TESTS
// =========================================================================

func TestUpsert_AssignsIDAndTimestamps(t *testing.T) {
	db := newTestDB(t)

	o := upsertTestOutfit(t, db, "vitalik")

	if o.ID == "" {
		t.Error("expected outfit to have an ID after Upsert")
	}
	if o.CreatedAt.IsZero() || o.UpdatedAt.IsZero() {
		t.Error("expected timestamps to be set after Upsert")
	}
}

func TestGetByHandle_RoundTrip(t *testing.T) {
	db := newTestDB(t)
	in := upsertTestOutfit(t, db, "vitalik")

	got, err := db.GetByHandle(context.Background(), "vitalik")
	if err != nil {
		t.Fatalf("GetByHandle() error = %v", err)
	}

	if got.ID != in.ID || got.Handle != in.Handle || got.Platform != in.Platform ||
		got.Style != in.Style || got.GeneratedImageBase64 != in.GeneratedImageBase64 {
		t.Errorf("GetByHandle() = %+v, want %+v", got, in)
	}
	if got.OriginalImageURL == nil || *got.OriginalImageURL != *in.OriginalImageURL {
		t.Errorf("OriginalImageURL = %v, want %q", got.OriginalImageURL, *in.OriginalImageURL)
	}
	if !got.CreatedAt.Equal(in.CreatedAt) || !got.UpdatedAt.Equal(in.UpdatedAt) {
		t.Errorf("timestamps = (%v, %v), want (%v, %v)", got.CreatedAt, got.UpdatedAt, in.CreatedAt, in.UpdatedAt)
	}
}

func TestGetByHandle_NullOriginalImage(t *testing.T) {
	db := newTestDB(t)
	o := &model.Outfit{Handle: "manual", Platform: "twitter", Style: "BEACH SUNSET", GeneratedImageBase64: "abc"}
	if err := db.Upsert(context.Background(), o); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	got, err := db.GetByHandle(context.Background(), "manual")
	if err != nil {
		t.Fatalf("GetByHandle() error = %v", err)
	}
	if got.OriginalImageURL != nil {
		t.Errorf("OriginalImageURL = %q, want nil", *got.OriginalImageURL)
	}
}

func TestGetByHandle_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetByHandle(context.Background(), "nobody")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetByHandle() error = %v, want ErrNotFound", err)
	}
}

func TestUpsert_ReplaceKeepsIDAndCreatedAt(t *testing.T) {
	db := newTestDB(t)
	first := upsertTestOutfit(t, db, "jesse")

	time.Sleep(2 * time.Millisecond)

	second := &model.Outfit{
		Handle:               "jesse",
		Platform:             "twitter",
		Style:                "MINIMAL LUXURY",
		GeneratedImageBase64: "regenerated",
	}
	if err := db.Upsert(context.Background(), second); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	if second.ID != first.ID {
		t.Errorf("ID = %q, want preserved %q", second.ID, first.ID)
	}
	if !second.CreatedAt.Equal(first.CreatedAt) {
		t.Errorf("CreatedAt = %v, want preserved %v", second.CreatedAt, first.CreatedAt)
	}
	if !second.UpdatedAt.After(first.UpdatedAt) {
		t.Errorf("UpdatedAt = %v, want after %v", second.UpdatedAt, first.UpdatedAt)
	}

	got, _ := db.GetByHandle(context.Background(), "jesse")
	if got.Style != "MINIMAL LUXURY" || got.GeneratedImageBase64 != "regenerated" {
		t.Errorf("row not replaced: %+v", got)
	}
	if got.OriginalImageURL != nil {
		t.Error("full replace should clear original_image_url")
	}
}

func TestUpsert_Idempotent(t *testing.T) {
	db := newTestDB(t)
	first := upsertTestOutfit(t, db, "dwr")
	again := upsertTestOutfit(t, db, "dwr")

	if again.ID != first.ID {
		t.Errorf("ID changed on identical upsert: %q -> %q", first.ID, again.ID)
	}

	page, err := db.List(context.Background(), repository.ListOptions{Limit: 10})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(page.Outfits) != 1 {
		t.Errorf("got %d rows, want 1", len(page.Outfits))
	}
}

func TestUpsert_ConcurrentSameHandle(t *testing.T) {
	db := newTestDB(t)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			o := &model.Outfit{Handle: "race", Platform: "twitter", Style: "NEO Y2K", GeneratedImageBase64: fmt.Sprint(i)}
			if err := db.Upsert(context.Background(), o); err != nil {
				t.Errorf("Upsert() error = %v", err)
			}
		}(i)
	}
	wg.Wait()

	page, err := db.List(context.Background(), repository.ListOptions{Limit: 10})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(page.Outfits) != 1 {
		t.Errorf("got %d rows for one handle, want 1", len(page.Outfits))
	}
}

// =========================================================================
// LIST TESTS
// =========================================================================

func seed(t *testing.T, db *DB, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		upsertTestOutfit(t, db, fmt.Sprintf("user%02d", i))
	}
}

func assertNewestFirst(t *testing.T, outfits []model.Outfit) {
	t.Helper()
	for i := 1; i < len(outfits); i++ {
		prev, cur := outfits[i-1], outfits[i]
		if cur.CreatedAt.After(prev.CreatedAt) {
			t.Errorf("row %d (%v) is newer than row %d (%v)", i, cur.CreatedAt, i-1, prev.CreatedAt)
		}
	}
}

func TestList_OffsetPagesCoverAllWithoutDuplicates(t *testing.T) {
	db := newTestDB(t)
	seed(t, db, 10)

	first, err := db.List(context.Background(), repository.ListOptions{Limit: 6, Offset: 0})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	second, err := db.List(context.Background(), repository.ListOptions{Limit: 6, Offset: 6})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}

	if len(first.Outfits) != 6 || len(second.Outfits) != 4 {
		t.Fatalf("page sizes = %d, %d; want 6, 4", len(first.Outfits), len(second.Outfits))
	}

	all := append(first.Outfits, second.Outfits...)
	seen := map[string]bool{}
	for _, o := range all {
		if seen[o.Handle] {
			t.Errorf("duplicate handle %q across pages", o.Handle)
		}
		seen[o.Handle] = true
	}
	if len(seen) != 10 {
		t.Errorf("saw %d distinct handles, want 10", len(seen))
	}
	assertNewestFirst(t, all)

	if first.Outfits[0].Handle != "user09" {
		t.Errorf("newest = %q, want user09", first.Outfits[0].Handle)
	}
	if second.NextCursor != "" {
		t.Error("last page should have no NextCursor")
	}
}

func TestList_CursorStableUnderInserts(t *testing.T) {
	db := newTestDB(t)
	seed(t, db, 10)

	first, err := db.List(context.Background(), repository.ListOptions{Limit: 6})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if first.NextCursor == "" {
		t.Fatal("expected NextCursor on first page")
	}

	// New handles land at the head; with an offset they would push
	// already-seen rows onto the next page.
	upsertTestOutfit(t, db, "latecomer1")
	upsertTestOutfit(t, db, "latecomer2")

	second, err := db.List(context.Background(), repository.ListOptions{Limit: 6, Cursor: first.NextCursor})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}

	seen := map[string]bool{}
	for _, o := range first.Outfits {
		seen[o.Handle] = true
	}
	for _, o := range second.Outfits {
		if seen[o.Handle] {
			t.Errorf("handle %q returned twice", o.Handle)
		}
		seen[o.Handle] = true
	}
	if len(second.Outfits) != 4 {
		t.Errorf("second page has %d rows, want 4", len(second.Outfits))
	}
}

func TestList_InvalidCursor(t *testing.T) {
	db := newTestDB(t)

	_, err := db.List(context.Background(), repository.ListOptions{Cursor: "garbage!"})
	if !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("List() error = %v, want ErrValidation", err)
	}
}

func TestList_ClampsLimit(t *testing.T) {
	db := newTestDB(t)
	seed(t, db, 3)

	page, err := db.List(context.Background(), repository.ListOptions{Limit: -1, Offset: -5})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(page.Outfits) != 3 {
		t.Errorf("got %d rows, want 3", len(page.Outfits))
	}
}
