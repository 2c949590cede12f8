package rank

import (
	"strings"

	"github.com/motif-dev/motif/internal/intent"
)

// chunkTypeBoostTable derives, from a query's primary intent (or its
// entity-like shape), a per-ChunkType boost multiplier. The literal `class`
// token in the query overrides whatever the intent classifier decided —
// this reproduces the source behavior exactly (see the "class" keyword
// override design note): a query that merely mentions "class" should favor
// class-shaped chunks even when some other category scored higher.
func chunkTypeBoostTable(query string, primary intent.Category, hasPrimary bool, entityLike bool) map[ChunkType]float64 {
	table := map[ChunkType]float64{
		ChunkTypeFunction: 1.0,
		ChunkTypeClass:    1.0,
		ChunkTypeMethod:   1.0,
		ChunkTypeModule:   1.0,
		ChunkTypeOther:    1.0,
	}

	if containsClassKeyword(query) {
		table[ChunkTypeClass] = 1.3
		table[ChunkTypeMethod] = 1.05
		return table
	}

	if hasPrimary {
		switch primary {
		case intent.CategoryClass:
			table[ChunkTypeClass] = 1.25
			table[ChunkTypeMethod] = 1.05
		case intent.CategoryFunction, intent.CategoryTest:
			table[ChunkTypeFunction] = 1.2
			table[ChunkTypeMethod] = 1.15
		default:
			// auth/error/database/api/config carry no chunk-type bias of
			// their own beyond the entity-like nudge below.
		}
	}

	if entityLike {
		if table[ChunkTypeClass] < 1.1 {
			table[ChunkTypeClass] = 1.1
		}
	}

	return table
}

// containsClassKeyword reports whether "class" appears as a whole word in
// the query, case-insensitively.
func containsClassKeyword(query string) bool {
	for _, w := range strings.Fields(strings.ToLower(query)) {
		w = strings.Trim(w, ".,;:!?()[]{}")
		if w == "class" {
			return true
		}
	}
	return false
}

// chunkTypeBoost looks up the boost for a result's chunk type within the
// query-derived table, normalizing unknown labels to ChunkTypeOther.
func chunkTypeBoost(table map[ChunkType]float64, rawType string) float64 {
	ct := NormalizeChunkType(rawType)
	if boost, ok := table[ct]; ok {
		return boost
	}
	return 1.0
}
