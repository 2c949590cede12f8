package intent

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/motif-dev/motif/internal/lexical"
)

// Default configuration values.
const (
	DefaultMinConfidence = 0.3
	DefaultMaxIntents    = 3
)

// Config configures intent classification.
type Config struct {
	// Enabled disables classification entirely when false; Classify then
	// always returns an empty QueryIntent.
	Enabled bool

	// CustomPatterns are appended to the built-in category table, allowing
	// callers to extend or override keyword sets for a category.
	CustomPatterns []Pattern

	// MinConfidence filters out matches below this confidence (default 0.3).
	MinConfidence float64

	// MaxIntents caps the number of intents returned, highest confidence
	// first (default 3).
	MaxIntents int
}

// Pattern is the public shape of a custom category pattern supplied via
// Config.CustomPatterns.
type Pattern struct {
	Category Category
	Keywords []string
	Regexes  []*regexp.Regexp
	Base     float64
}

// DefaultConfig returns sensible defaults: enabled, no custom patterns,
// minConfidence 0.3, maxIntents 3.
func DefaultConfig() Config {
	return Config{
		Enabled:       true,
		MinConfidence: DefaultMinConfidence,
		MaxIntents:    DefaultMaxIntents,
	}
}

// Classifier classifies queries into QueryIntent using the fixed category
// table plus any caller-supplied custom patterns.
type Classifier struct {
	cfg      Config
	patterns []pattern
}

// NewClassifier creates a classifier with the given configuration, applying
// defaults for zero-valued MinConfidence/MaxIntents.
func NewClassifier(cfg Config) *Classifier {
	if cfg.MinConfidence <= 0 {
		cfg.MinConfidence = DefaultMinConfidence
	}
	if cfg.MaxIntents <= 0 {
		cfg.MaxIntents = DefaultMaxIntents
	}

	patterns := make([]pattern, len(defaultPatterns))
	copy(patterns, defaultPatterns)
	for _, p := range cfg.CustomPatterns {
		patterns = append(patterns, pattern{
			category: p.Category,
			keywords: p.Keywords,
			regexes:  p.Regexes,
			base:     p.Base,
		})
	}

	return &Classifier{cfg: cfg, patterns: patterns}
}

// Classify determines the intents present in a query.
func (c *Classifier) Classify(query string) QueryIntent {
	tokens := lexical.Normalize(query)

	if !c.cfg.Enabled || strings.TrimSpace(query) == "" {
		return QueryIntent{Query: query, NormalizedTokens: tokens}
	}

	lowerQuery := strings.ToLower(query)
	tokenSet := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		tokenSet[t] = struct{}{}
	}

	var matches []Match
	for _, p := range c.patterns {
		var matchedKeywords []string
		for _, kw := range p.keywords {
			lowerKw := strings.ToLower(kw)
			if wholeWordMatch(lowerQuery, lowerKw) {
				matchedKeywords = append(matchedKeywords, kw)
				continue
			}
			if _, ok := tokenSet[lowerKw]; ok {
				matchedKeywords = append(matchedKeywords, kw)
			}
		}

		regexHit := false
		for _, re := range p.regexes {
			if re.MatchString(query) {
				regexHit = true
				break
			}
		}

		if len(matchedKeywords) == 0 && !regexHit {
			continue
		}

		confidence := p.base
		if n := len(matchedKeywords); n > 1 {
			confidence += 0.1 * float64(n-1)
		}
		if regexHit {
			confidence += 0.15
		}
		if confidence > 1.0 {
			confidence = 1.0
		}
		confidence = math.Round(confidence*100) / 100

		matches = append(matches, Match{
			Category:        p.category,
			Confidence:      confidence,
			MatchedKeywords: matchedKeywords,
		})
	}

	filtered := make([]Match, 0, len(matches))
	for _, m := range matches {
		if m.Confidence >= c.cfg.MinConfidence {
			filtered = append(filtered, m)
		}
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].Confidence > filtered[j].Confidence
	})

	if len(filtered) > c.cfg.MaxIntents {
		filtered = filtered[:c.cfg.MaxIntents]
	}

	return QueryIntent{
		Query:            query,
		Intents:          filtered,
		NormalizedTokens: tokens,
	}
}

// wholeWordMatch reports whether keyword appears as a whole word in text
// (both already lower-cased).
func wholeWordMatch(text, keyword string) bool {
	if keyword == "" {
		return false
	}
	idx := 0
	for {
		pos := strings.Index(text[idx:], keyword)
		if pos == -1 {
			return false
		}
		start := idx + pos
		end := start + len(keyword)
		beforeOK := start == 0 || !isWordChar(rune(text[start-1]))
		afterOK := end == len(text) || !isWordChar(rune(text[end]))
		if beforeOK && afterOK {
			return true
		}
		idx = start + 1
	}
}

func isWordChar(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_'
}

// nonEntityWords are verbs/question-words that disqualify a query from being
// "entity-like" even when short.
var nonEntityWords = map[string]struct{}{
	"find": {}, "search": {}, "get": {}, "show": {}, "list": {},
	"how": {}, "what": {}, "where": {}, "when": {}, "create": {},
	"build": {}, "make": {}, "handle": {}, "process": {}, "manage": {},
	"implement": {},
}

// IsEntityLike reports whether query looks like it targets a specific code
// symbol rather than asking a question: at most 3 tokens, none of which is a
// generic verb/question-word, and either the original text contains
// CamelCase or the query has at most 2 tokens.
func IsEntityLike(query string) bool {
	tokens := lexical.Normalize(query)
	if len(tokens) == 0 || len(tokens) > 3 {
		return false
	}
	for _, t := range tokens {
		if _, bad := nonEntityWords[t]; bad {
			return false
		}
	}
	return containsCamelCase(query) || len(tokens) <= 2
}

// containsCamelCase reports whether s has an internal lowercase-to-uppercase
// transition, the hallmark of a camelCase/PascalCase identifier.
func containsCamelCase(s string) bool {
	runes := []rune(s)
	for i := 1; i < len(runes); i++ {
		if runes[i-1] >= 'a' && runes[i-1] <= 'z' && runes[i] >= 'A' && runes[i] <= 'Z' {
			return true
		}
	}
	return false
}
