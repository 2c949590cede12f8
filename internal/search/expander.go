package search

import "strings"

// QueryExpander expands search queries with code-aware synonyms.
// This addresses vocabulary mismatch (RCA-010) where user terms
// don't match code terminology.
//
// Example:
//
//	Input:  "db query"
//	Output: "db query database sql storage select statement"
//
// Research basis:
// - Neural Query Expansion: ml4code.github.io/publications/liu2019neural/
// - CodeSearchNet vocabulary gap: arxiv.org/pdf/1909.09436
// - Query expansion techniques: opensourceconnections.com/blog/2021/10/19/fundamentals-of-query-rewriting-part-1-introduction-to-query-expansion/
type QueryExpander struct {
	synonyms          map[string][]string
	maxExpansionTerms int
	enabled           bool
}

// QueryExpanderOption configures the query expander.
type QueryExpanderOption func(*QueryExpander)

// WithMaxExpansionTerms caps the total number of expansion terms appended to
// the query, regardless of how many source words matched (default 10).
func WithMaxExpansionTerms(n int) QueryExpanderOption {
	return func(e *QueryExpander) {
		e.maxExpansionTerms = n
	}
}

// WithExpansionEnabled toggles expansion on or off. When disabled, Expand is
// a no-op that returns the query unchanged.
func WithExpansionEnabled(enabled bool) QueryExpanderOption {
	return func(e *QueryExpander) {
		e.enabled = enabled
	}
}

// WithCustomSynonyms merges additional synonym entries on top of the
// defaults, overriding any key the caller supplies.
func WithCustomSynonyms(synonyms map[string][]string) QueryExpanderOption {
	return func(e *QueryExpander) {
		for k, v := range synonyms {
			e.synonyms[k] = v
		}
	}
}

// NewQueryExpander creates a new query expander with default code synonyms.
func NewQueryExpander(opts ...QueryExpanderOption) *QueryExpander {
	e := &QueryExpander{
		synonyms:          make(map[string][]string, len(CodeSynonyms)),
		maxExpansionTerms: 10,
		enabled:           true,
	}

	for k, v := range CodeSynonyms {
		e.synonyms[k] = v
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Expand appends synonym expansion terms to the query without altering the
// original text. It tokenizes the input into whitespace-delimited lowercase
// words, looks each one up in the merged synonym table, and collects
// expansion terms that don't already appear among the original words,
// deduplicated and capped at maxExpansionTerms. The returned string is
// always "original query" + " " + "joined additions" (or just the original
// query if there's nothing to add). Expansion is a no-op when disabled or
// the input is blank.
func (e *QueryExpander) Expand(query string) string {
	if !e.enabled || strings.TrimSpace(query) == "" {
		return query
	}

	words := strings.Fields(query)
	original := make(map[string]bool, len(words))
	for _, w := range words {
		original[strings.ToLower(w)] = true
	}

	seen := make(map[string]bool, len(words))
	for w := range original {
		seen[w] = true
	}

	var additions []string
	for _, w := range words {
		lowerWord := strings.ToLower(w)
		for _, syn := range e.getSynonyms(lowerWord) {
			if len(additions) >= e.maxExpansionTerms {
				break
			}
			lowerSyn := strings.ToLower(syn)
			if seen[lowerSyn] {
				continue
			}
			seen[lowerSyn] = true
			additions = append(additions, syn)
		}
		if len(additions) >= e.maxExpansionTerms {
			break
		}
	}

	if len(additions) == 0 {
		return query
	}
	if len(additions) > e.maxExpansionTerms {
		additions = additions[:e.maxExpansionTerms]
	}

	return query + " " + strings.Join(additions, " ")
}

// ExpandToTerms returns the expanded query split into whitespace-delimited
// terms (useful for multi-term BM25 queries).
func (e *QueryExpander) ExpandToTerms(query string) []string {
	return strings.Fields(e.Expand(query))
}

// getSynonyms retrieves synonyms for a lowercased term from the merged
// table (defaults overlaid with any caller-supplied custom synonyms).
func (e *QueryExpander) getSynonyms(term string) []string {
	if syns, ok := e.synonyms[term]; ok {
		return syns
	}
	return nil
}
