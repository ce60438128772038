package blueprint

import (
	"time"
)

// Kind distinguishes a single blueprint from a folder of blueprints.
// Persisted values match the legacy documents ("b" and "f").
type Kind string

const (
	KindSingle Kind = "b"
	KindFolder Kind = "f"
)

// Valid reports whether k is a known kind
func (k Kind) Valid() bool {
	return k == KindSingle || k == KindFolder
}

// Blueprint is the primary record for a published blueprint.
type Blueprint struct {
	ID            string    `json:"id" db:"id"`
	OwnerID       string    `json:"uid" db:"owner_id"`
	OwnerName     string    `json:"username" db:"owner_name"`
	Kind          Kind      `json:"kind" db:"kind"`
	Name          string    `json:"name" db:"name"`
	Description   string    `json:"description" db:"description"` // Markdown
	BlueprintText string    `json:"blueprint" db:"blueprint"`     // Opaque game payload
	GameVersion   string    `json:"gameVersion" db:"game_version"`
	Views         int64     `json:"views" db:"views"`
	Downloads     int64     `json:"downloads" db:"downloads"`
	ScreenshotURL *string   `json:"screenshotUrl,omitempty" db:"screenshot_url"`
	CreatedAt     time.Time `json:"created" db:"created_at"`
	UpdatedAt     time.Time `json:"updated" db:"updated_at"`
}

// Snapshot captures the record's current content as a history entry
func (b *Blueprint) Snapshot() VersionEntry {
	return VersionEntry{
		BlueprintText: b.BlueprintText,
		GameVersion:   b.GameVersion,
		CreatedAt:     b.CreatedAt,
	}
}

// Counter names a monotonically incremented field of a Blueprint.
type Counter string

const (
	CounterViews     Counter = "views"
	CounterDownloads Counter = "downloads"
)

// Detail is the read model for a single blueprint page.
type Detail struct {
	Blueprint *Blueprint      `json:"blueprint"`
	Versions  *VersionLedger  `json:"versions"`       // nil until the first content edit
	Tree      *FolderTreeNode `json:"tree,omitempty"` // only for folders
}
