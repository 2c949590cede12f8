package intent

import "regexp"

// pattern is the keyword/regex signature for one category.
type pattern struct {
	category Category
	keywords []string
	regexes  []*regexp.Regexp
	base     float64 // base confidence, 0.6-0.85
}

// defaultPatterns is the fixed set of category patterns. Base confidences are
// tuned so that a single keyword match for each category reproduces the
// documented confidences for "handle auth error in API": auth=0.85,
// error=0.8, api=0.75.
var defaultPatterns = []pattern{
	{
		category: CategoryAuth,
		keywords: []string{"auth", "authentication", "authorize", "authorization", "login", "logout", "session", "token", "oauth", "jwt", "credential", "permission"},
		base:     0.85,
	},
	{
		category: CategoryError,
		keywords: []string{"error", "exception", "err", "fail", "failure", "panic", "crash", "bug", "stacktrace", "traceback"},
		regexes: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\bE\d{3,5}\b`),
			regexp.MustCompile(`(?i)\bERR_\w+\b`),
		},
		base: 0.8,
	},
	{
		category: CategoryClass,
		keywords: []string{"class", "struct", "interface", "type", "object", "instance", "constructor"},
		base:     0.75,
	},
	{
		category: CategoryAPI,
		keywords: []string{"api", "endpoint", "route", "rest", "http", "request", "response", "handler", "controller"},
		base:     0.75,
	},
	{
		category: CategoryFunction,
		keywords: []string{"function", "func", "method", "def", "procedure", "routine", "callback"},
		regexes: []*regexp.Regexp{
			regexp.MustCompile(`\w+\(\)`),
		},
		base: 0.7,
	},
	{
		category: CategoryDatabase,
		keywords: []string{"database", "db", "sql", "query", "table", "schema", "migration", "index", "row", "column"},
		base:     0.7,
	},
	{
		category: CategoryTest,
		keywords: []string{"test", "spec", "unittest", "mock", "assert", "fixture", "stub"},
		base:     0.7,
	},
	{
		category: CategoryConfig,
		keywords: []string{"config", "configuration", "settings", "env", "environment", "yaml", "toml", "flag", "option"},
		base:     0.65,
	},
}
