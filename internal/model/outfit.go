// Package model defines the data structures shared by every layer.
package model

import "time"

// DefaultPlatform is the only social platform handles are resolved on.
const DefaultPlatform = "twitter"

// Outfit is one generated (or manually uploaded) outfit image for a handle.
//
// The JSON tags match the persisted column names: the gallery and outfit
// endpoints return records exactly as they are stored.
//
// Handle is unique and always stored lowercased. ID and CreatedAt are set on
// first insert and survive later upserts; UpdatedAt moves on every write.
type Outfit struct {
	ID                   string    `json:"id"`
	Handle               string    `json:"handle"`
	Platform             string    `json:"platform"`
	Style                string    `json:"style"`
	OriginalImageURL     *string   `json:"original_image_url"`
	GeneratedImageBase64 string    `json:"generated_image_base64"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}
