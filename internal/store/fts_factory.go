package store

import (
	"fmt"
	"log/slog"
)

// FTSPreference selects which FTS backend NewFTSIndex constructs.
type FTSPreference string

const (
	// FTSPreferenceAuto picks disk-backed BM25 when fileCount exceeds
	// FTSFileCountThreshold and the native engine is available, else
	// falls back to the in-memory TF-IDF flavor.
	FTSPreferenceAuto FTSPreference = "auto"

	// FTSPreferenceJS forces the in-memory TF-IDF flavor regardless of
	// project size.
	FTSPreferenceJS FTSPreference = "js"

	// FTSPreferenceNative forces the disk-backed BM25 flavor; if the
	// native engine isn't available, falls back to in-memory with a
	// logged warning.
	FTSPreferenceNative FTSPreference = "native"
)

// FTSFileCountThreshold is the fileCount above which FTSPreferenceAuto
// selects the disk-backed BM25 flavor.
const FTSFileCountThreshold = 5000

// NewFTSIndex constructs the FTS backend selected by preference, fileCount,
// and nativeAvailable (whether the SQLite FTS5 engine can be used in this
// environment). basePath is extensionless; the SQLite flavor appends .db.
func NewFTSIndex(basePath string, config BM25Config, preference FTSPreference, fileCount int, nativeAvailable bool) (FTSIndex, error) {
	useNative := false

	switch preference {
	case FTSPreferenceJS:
		useNative = false
	case FTSPreferenceNative:
		if nativeAvailable {
			useNative = true
		} else {
			slog.Warn("fts_native_unavailable", slog.String("fallback", "in-memory TF-IDF"))
			useNative = false
		}
	case FTSPreferenceAuto, "":
		useNative = fileCount > FTSFileCountThreshold && nativeAvailable
	default:
		return nil, fmt.Errorf("unknown FTS preference: %s (valid options: auto, js, native)", preference)
	}

	if useNative {
		var path string
		if basePath != "" {
			path = basePath + ".db"
		}
		return NewSQLiteBM25Index(path, config)
	}

	return NewTFIDFIndex(config)
}
