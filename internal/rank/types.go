// Package rank applies intent-driven, multi-factor re-ranking to fused
// hybrid search results, combining a chunk-type boost, name/path overlap,
// tag overlap, docstring presence, and a length-based complexity penalty
// into a single final score.
package rank

// ChunkType is a coarse classification of a ranked result, used to look up
// the chunk-type boost table. Unknown/unrecognized values normalize to Other.
type ChunkType string

const (
	ChunkTypeFunction  ChunkType = "function"
	ChunkTypeClass     ChunkType = "class"
	ChunkTypeMethod    ChunkType = "method"
	ChunkTypeModule    ChunkType = "module"
	ChunkTypeOther     ChunkType = "other"
)

// chunkTypeAliases maps alternate spellings onto the canonical ChunkType
// values the boost table keys on.
var chunkTypeAliases = map[string]ChunkType{
	"fn": ChunkTypeFunction, "def": ChunkTypeFunction, "func": ChunkTypeFunction,
	"function": ChunkTypeFunction,

	"cls": ChunkTypeClass, "struct": ChunkTypeClass, "interface": ChunkTypeClass,
	"trait": ChunkTypeClass, "type": ChunkTypeClass, "class": ChunkTypeClass,

	"meth": ChunkTypeMethod, "method": ChunkTypeMethod,

	"mod": ChunkTypeModule, "pkg": ChunkTypeModule, "package": ChunkTypeModule,
	"module": ChunkTypeModule,
}

// NormalizeChunkType resolves an arbitrary chunk-type label (as reported by a
// chunker or stored in metadata) to a canonical ChunkType, falling back to
// ChunkTypeOther for anything unrecognized.
func NormalizeChunkType(label string) ChunkType {
	if ct, ok := chunkTypeAliases[label]; ok {
		return ct
	}
	return ChunkTypeOther
}

// Result is a single fused search result carrying the metadata the ranker
// needs to compute its seven factors. BaseScore is the incoming fused score
// (e.g. a normalized RRF score); it passes through as factor 7.
type Result struct {
	ChunkID    string
	BaseScore  float64
	Name       string // symbol/chunk name, e.g. "AuthHandler"
	Path       string // relative file path
	ChunkType  string // raw type label, resolved via NormalizeChunkType
	Docstring  string
	Text       string
	Tags       []string // e.g. ["auth", "error"] attached to the chunk
}

// Ranked is a Result annotated with its computed final score and the factor
// breakdown that produced it, for diagnostics.
type Ranked struct {
	Result
	FinalScore float64
	Factors    Factors
}

// Factors is the per-result factor breakdown of the ranking formula
// final = baseScore * product(factor_i ^ weight_i).
type Factors struct {
	ChunkTypeBoost      float64
	NameBoost           float64
	PathBoost           float64
	TagBoost            float64
	DocstringBonus      float64
	ComplexityPenalty   float64
	BaseScore           float64
}
