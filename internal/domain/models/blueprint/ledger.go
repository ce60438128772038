package blueprint

import "time"

// VersionEntry is one historical content state of a blueprint.
type VersionEntry struct {
	BlueprintText string    `json:"blueprint"`
	GameVersion   string    `json:"gameVersion"`
	CreatedAt     time.Time `json:"created"`
}

// VersionLedger is the append-only content history of one blueprint,
// keyed by the blueprint ID. Entries are ordered newest first.
//
// History grows without bound; there is no compaction or retention policy.
type VersionLedger struct {
	BlueprintID string         `json:"-"`
	OwnerID     string         `json:"uid"` // Editor at ledger creation, never changes
	Versions    []VersionEntry `json:"versions"`

	// Revision is bumped on every write. Zero means the ledger has never been stored.
	Revision int64 `json:"-"`
}

// NewVersionLedger starts a history on the first content edit: the new entry
// followed by a snapshot of the record as it was before the edit.
func NewVersionLedger(blueprintID, ownerID string, latest, previous VersionEntry) *VersionLedger {
	return &VersionLedger{
		BlueprintID: blueprintID,
		OwnerID:     ownerID,
		Versions:    []VersionEntry{latest, previous},
	}
}

// Prepend returns a copy of the ledger with entry as the newest version.
// The receiver is left untouched so a retried transaction can start over.
func (l *VersionLedger) Prepend(entry VersionEntry) *VersionLedger {
	versions := make([]VersionEntry, 0, len(l.Versions)+1)
	versions = append(versions, entry)
	versions = append(versions, l.Versions...)
	return &VersionLedger{
		BlueprintID: l.BlueprintID,
		OwnerID:     l.OwnerID,
		Versions:    versions,
		Revision:    l.Revision,
	}
}

// Latest returns the newest entry, or false for an empty ledger
func (l *VersionLedger) Latest() (VersionEntry, bool) {
	if len(l.Versions) == 0 {
		return VersionEntry{}, false
	}
	return l.Versions[0], true
}
