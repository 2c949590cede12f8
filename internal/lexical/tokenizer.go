// Package lexical provides code-aware tokenization shared by query intent
// detection, query expansion, keyword indexing, and result ranking.
package lexical

import (
	"regexp"
	"strings"
	"unicode"
)

// identifierRegex matches alphanumeric runs, treating '_' and '-' as part of
// the run so SplitIdentifier can break them out as whitespace afterward.
var identifierRegex = regexp.MustCompile(`[a-zA-Z0-9_\-]+`)

// Normalize splits s into an ordered sequence of lowercase alphanumeric
// tokens. '_' and '-' are treated as whitespace; a word break is inserted at
// every lowercase→uppercase transition. Normalize is deterministic and total:
// it never errors and returns an empty, non-nil slice for empty input.
//
// Examples:
//
//	Normalize("getUserById")   -> ["get", "user", "by", "id"]
//	Normalize("parseHTML_v2")  -> ["parse", "html", "v2"]
func Normalize(s string) []string {
	tokens := make([]string, 0, 8)
	for _, run := range identifierRegex.FindAllString(s, -1) {
		for _, part := range splitSeparators(run) {
			for _, sub := range SplitCamelCase(part) {
				if sub == "" {
					continue
				}
				tokens = append(tokens, strings.ToLower(sub))
			}
		}
	}
	return tokens
}

// splitSeparators breaks a run on '_' and '-'.
func splitSeparators(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == '_' || r == '-'
	})
}

// SplitCamelCase splits a camelCase or PascalCase identifier into its
// constituent words, keeping acronym runs (e.g. "HTTP") together.
//
// Examples:
//
//	SplitCamelCase("getUserById")     -> ["get", "User", "By", "Id"]
//	SplitCamelCase("HTTPHandler")     -> ["HTTP", "Handler"]
//	SplitCamelCase("parseHTTPRequest") -> ["parse", "HTTP", "Request"]
func SplitCamelCase(s string) []string {
	if s == "" {
		return []string{}
	}

	var result []string
	var current strings.Builder

	runes := []rune(s)
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) {
			prevIsLower := unicode.IsLower(runes[i-1])
			nextIsLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if prevIsLower || nextIsLower {
				if current.Len() > 0 {
					result = append(result, current.String())
					current.Reset()
				}
			}
		}
		current.WriteRune(r)
	}
	if current.Len() > 0 {
		result = append(result, current.String())
	}
	return result
}

// Join renders tokens back into a space-separated lowercase string, used by
// callers that need to check Normalize's idempotence on its own output.
func Join(tokens []string) string {
	return strings.Join(tokens, " ")
}

// SplitPath tokenizes a file path, treating '/', '\\', and '.' as separators
// in addition to the usual identifier rules. Used by ranking's path boost.
func SplitPath(path string) []string {
	fields := strings.FieldsFunc(path, func(r rune) bool {
		return r == '/' || r == '\\' || r == '.'
	})
	var tokens []string
	for _, f := range fields {
		tokens = append(tokens, Normalize(f)...)
	}
	return tokens
}
