package config

import "time"

const (
	// MaxBlueprintNameLength is the maximum length for blueprint names.
	// Matches the 50 character limit of the submission form.
	MaxBlueprintNameLength = 50

	// MaxDescriptionLength bounds the markdown description.
	MaxDescriptionLength = 20000

	// MaxBlueprintTextLength bounds the blueprint string. Large folders
	// exported from the game run to a few hundred KB.
	MaxBlueprintTextLength = 4 << 20

	// MaxScreenshotSize is the largest accepted screenshot (5 MiB).
	MaxScreenshotSize = 5 << 20

	// DefaultUpdateMaxAttempts is how many times a content edit is attempted
	// when it keeps losing races on the version history.
	DefaultUpdateMaxAttempts = 3

	// SearchDebounceInterval is the quiet period before a typed query is sent.
	SearchDebounceInterval = 500 * time.Millisecond
)
