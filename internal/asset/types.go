package asset

import (
	"encoding/hex"
	"time"

	"github.com/google/uuid"
)

// Mimetype classifies how the playback engine renders an asset.
type Mimetype string

// Supported asset mimetypes.
const (
	MimetypeImage   Mimetype = "image"
	MimetypeVideo   Mimetype = "video"
	MimetypeWebpage Mimetype = "webpage"
)

// Valid reports whether m is a supported mimetype.
func (m Mimetype) Valid() bool {
	switch m {
	case MimetypeImage, MimetypeVideo, MimetypeWebpage:
		return true
	}
	return false
}

// DefaultAssetPrefix marks assets provisioned by the default-assets job.
// The remove task deletes exactly the assets carrying this prefix.
const DefaultAssetPrefix = "default_"

// Asset is a single playlist entry on the device.
//
// StartDate and EndDate bound the scheduling window; an asset with either
// missing can never be active. PlayOrder is only meaningful while the asset
// is active, where ranks are kept dense from 0 across the active set.
type Asset struct {
	ID             string     `json:"asset_id"`
	Name           string     `json:"name"`
	URI            string     `json:"uri"`
	Mimetype       Mimetype   `json:"mimetype"`
	StartDate      *time.Time `json:"start_date"`
	EndDate        *time.Time `json:"end_date"`
	Duration       int        `json:"duration"`
	IsEnabled      bool       `json:"is_enabled"`
	IsProcessing   bool       `json:"is_processing"`
	NoCache        bool       `json:"nocache"`
	SkipAssetCheck bool       `json:"skip_asset_check"`
	PlayOrder      int        `json:"play_order"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// IsActive reports whether the asset should be playing at the given instant.
func (a *Asset) IsActive(now time.Time) bool {
	return IsActive(a.IsEnabled, a.StartDate, a.EndDate, now)
}

// IsDefault reports whether this asset was provisioned by the
// default-assets job.
func (a *Asset) IsDefault() bool {
	return len(a.ID) > len(DefaultAssetPrefix) && a.ID[:len(DefaultAssetPrefix)] == DefaultAssetPrefix
}

// NewID generates a fresh asset identifier (32 lowercase hex characters).
func NewID() string {
	u := uuid.New()
	return hex.EncodeToString(u[:])
}

// Clock abstracts the current time so scheduling decisions are testable.
type Clock interface {
	// Now returns the current instant in UTC.
	Now() time.Time
}

// SystemClock is the production Clock backed by the system time.
type SystemClock struct{}

// Now returns the current system time in UTC.
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}
