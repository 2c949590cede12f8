package rank

import (
	"math"
	"sort"
	"strings"

	"github.com/motif-dev/motif/internal/intent"
	"github.com/motif-dev/motif/internal/lexical"
)

// Weights configures the exponent applied to each boost factor in
// final = baseScore * product(factor_i ^ weight_i). A weight of 0 collapses
// that factor to 1.0 (no effect); the default is 1.0 for every factor.
type Weights struct {
	ChunkType    float64
	Name         float64
	Path         float64
	Tag          float64
	Docstring    float64
	Complexity   float64
}

// DefaultWeights returns all-1.0 weights, matching every factor at full
// strength.
func DefaultWeights() Weights {
	return Weights{ChunkType: 1, Name: 1, Path: 1, Tag: 1, Docstring: 1, Complexity: 1}
}

// Config configures an AdvancedRanker.
type Config struct {
	Weights Weights

	// ComplexityMildThreshold/StrongThreshold are text-length cutoffs (in
	// runes) for the complexity penalty (defaults 2000 / 4000).
	ComplexityMildThreshold   int
	ComplexityStrongThreshold int

	// DocstringBonus is the multiplier applied when a chunk carries a
	// non-empty docstring (default 1.05).
	DocstringBonus float64

	// Classifier classifies the query into intents for the chunk-type
	// table and entity-like detection; defaults to intent.NewClassifier
	// with intent.DefaultConfig() if nil.
	Classifier *intent.Classifier
}

// DefaultConfig returns sensible defaults: weights all 1.0, complexity
// thresholds 2000/4000, docstring bonus 1.05.
func DefaultConfig() Config {
	return Config{
		Weights:                   DefaultWeights(),
		ComplexityMildThreshold:   2000,
		ComplexityStrongThreshold: 4000,
		DocstringBonus:            1.05,
	}
}

// AdvancedRanker applies intent-driven, multi-factor re-ranking over fused
// hybrid search results.
type AdvancedRanker struct {
	cfg        Config
	classifier *intent.Classifier
}

// NewAdvancedRanker creates a ranker with the given configuration, filling
// in zero-valued fields with DefaultConfig's values.
func NewAdvancedRanker(cfg Config) *AdvancedRanker {
	d := DefaultConfig()
	if cfg.Weights == (Weights{}) {
		cfg.Weights = d.Weights
	}
	if cfg.ComplexityMildThreshold <= 0 {
		cfg.ComplexityMildThreshold = d.ComplexityMildThreshold
	}
	if cfg.ComplexityStrongThreshold <= 0 {
		cfg.ComplexityStrongThreshold = d.ComplexityStrongThreshold
	}
	if cfg.DocstringBonus <= 0 {
		cfg.DocstringBonus = d.DocstringBonus
	}
	classifier := cfg.Classifier
	if classifier == nil {
		classifier = intent.NewClassifier(intent.DefaultConfig())
	}
	return &AdvancedRanker{cfg: cfg, classifier: classifier}
}

// Rank scores and sorts results for the given query. Ties preserve input
// order (a stable sort).
func (r *AdvancedRanker) Rank(query string, results []Result) []Ranked {
	qi := r.classifier.Classify(query)
	primary, hasPrimary := qi.Primary()
	entityLike := intent.IsEntityLike(query)

	var primaryCategory intent.Category
	if hasPrimary {
		primaryCategory = primary.Category
	}
	chunkTypeTable := chunkTypeBoostTable(query, primaryCategory, hasPrimary, entityLike)

	queryTokens := lexical.Normalize(query)
	queryTokenSet := make(map[string]struct{}, len(queryTokens))
	for _, t := range queryTokens {
		queryTokenSet[t] = struct{}{}
	}

	intentSet := make(map[string]struct{}, len(qi.Intents))
	for _, m := range qi.Intents {
		intentSet[string(m.Category)] = struct{}{}
	}

	ranked := make([]Ranked, len(results))
	for i, res := range results {
		factors := Factors{
			ChunkTypeBoost:    chunkTypeBoost(chunkTypeTable, strings.ToLower(res.ChunkType)),
			NameBoost:         r.nameBoost(query, queryTokens, res.Name),
			PathBoost:         r.pathBoost(queryTokenSet, res.Path),
			TagBoost:          r.tagBoost(intentSet, res.Tags),
			DocstringBonus:    r.docstringBonus(res.Docstring, res.ChunkType, entityLike),
			ComplexityPenalty: r.complexityPenalty(len(res.Text)),
			BaseScore:         res.BaseScore,
		}

		final := res.BaseScore *
			math.Pow(factors.ChunkTypeBoost, r.cfg.Weights.ChunkType) *
			math.Pow(factors.NameBoost, r.cfg.Weights.Name) *
			math.Pow(factors.PathBoost, r.cfg.Weights.Path) *
			math.Pow(factors.TagBoost, r.cfg.Weights.Tag) *
			math.Pow(factors.DocstringBonus, r.cfg.Weights.Docstring) *
			math.Pow(factors.ComplexityPenalty, r.cfg.Weights.Complexity)

		ranked[i] = Ranked{Result: res, FinalScore: final, Factors: factors}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].FinalScore > ranked[j].FinalScore
	})

	return ranked
}

// nameBoost rewards exact (case-insensitive) query==name matches most
// heavily, then scales down with token-overlap ratio.
func (r *AdvancedRanker) nameBoost(query string, queryTokens []string, name string) float64 {
	if name == "" {
		return 1.0
	}
	if strings.EqualFold(strings.TrimSpace(query), strings.TrimSpace(name)) {
		return 1.4
	}
	if len(queryTokens) == 0 {
		return 1.0
	}

	nameTokens := lexical.Normalize(name)
	nameSet := make(map[string]struct{}, len(nameTokens))
	for _, t := range nameTokens {
		nameSet[t] = struct{}{}
	}

	overlap := 0
	for _, t := range queryTokens {
		if _, ok := nameSet[t]; ok {
			overlap++
		}
	}
	ratio := float64(overlap) / float64(len(queryTokens))

	switch {
	case ratio >= 0.8:
		return 1.3
	case ratio >= 0.5:
		return 1.2
	case ratio >= 0.3:
		return 1.1
	case ratio > 0:
		return 1.05
	default:
		return 1.0
	}
}

// pathBoost rewards query-token overlap with the path's tokenized segments.
func (r *AdvancedRanker) pathBoost(queryTokenSet map[string]struct{}, path string) float64 {
	if path == "" || len(queryTokenSet) == 0 {
		return 1.0
	}
	overlap := 0
	seen := make(map[string]bool)
	for _, t := range lexical.SplitPath(path) {
		if seen[t] {
			continue
		}
		if _, ok := queryTokenSet[t]; ok {
			overlap++
			seen[t] = true
		}
	}
	boost := 1 + 0.05*float64(overlap)
	if boost > 1.2 {
		return 1.2
	}
	return boost
}

// tagBoost rewards overlap between the query's detected intents and the
// chunk's tags.
func (r *AdvancedRanker) tagBoost(intentSet map[string]struct{}, tags []string) float64 {
	if len(intentSet) == 0 || len(tags) == 0 {
		return 1.0
	}
	overlap := 0
	for _, tag := range tags {
		if _, ok := intentSet[strings.ToLower(tag)]; ok {
			overlap++
		}
	}
	return 1 + 0.1*float64(overlap)
}

// docstringBonus applies the default bonus when a docstring is present,
// reduced for entity-like queries against module-level chunks (a module
// docstring is less likely to be what an entity-targeted query wants).
func (r *AdvancedRanker) docstringBonus(docstring, rawType string, entityLike bool) float64 {
	if strings.TrimSpace(docstring) == "" {
		return 1.0
	}
	bonus := r.cfg.DocstringBonus
	if entityLike && NormalizeChunkType(strings.ToLower(rawType)) == ChunkTypeModule {
		return 1 + 0.4*(bonus-1)
	}
	return bonus
}

// complexityPenalty discourages very long chunks, which are usually less
// precise retrieval targets.
func (r *AdvancedRanker) complexityPenalty(textLen int) float64 {
	switch {
	case textLen > r.cfg.ComplexityStrongThreshold:
		return 0.95
	case textLen > r.cfg.ComplexityMildThreshold:
		return 0.98
	default:
		return 1.0
	}
}
