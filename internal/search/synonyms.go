package search

// CodeSynonyms maps natural language terms to code vocabulary equivalents,
// used by QueryExpander to bridge the vocabulary gap between how a user
// describes what they're looking for and how it's actually named in code
// (e.g. a function called deserializeJSONStream is a correct result for the
// query "read JSON data").
//
// Design principles:
//  1. Map user vocabulary -> code vocabulary (not vice versa)
//  2. Include cross-language keyword variants (func, def, function, fn)
//  3. Include common abbreviations (req, resp, ctx, cfg)
//  4. Include case variants for Go (camelCase, PascalCase)
var CodeSynonyms = map[string][]string{
	// Function/Method terms
	"function":  {"func", "method", "fn", "def", "Function", "Func"},
	"method":    {"func", "fn", "def", "function", "Method", "Func"},
	"func":      {"function", "method", "def", "fn"},
	"def":       {"func", "function", "method"},
	"fn":        {"func", "function", "method", "def"},
	"lambda":    {"anonymous", "closure", "arrow"},
	"procedure": {"function", "routine", "proc"},
	"routine":   {"function", "procedure"},
	"callback":  {"handler", "listener", "hook"},

	// Type/class terms
	"class":       {"type", "struct", "interface", "Class", "Type"},
	"type":        {"class", "struct", "interface", "Type"},
	"struct":      {"class", "type", "structure", "Struct"},
	"interface":   {"protocol", "trait", "Interface", "contract"},
	"object":      {"instance", "obj", "struct", "Object"},
	"instance":    {"object", "obj", "new"},
	"enum":        {"enumeration", "constant"},
	"generic":     {"template", "parameterized"},
	"inheritance": {"extends", "subclass", "parent"},
	"trait":       {"interface", "protocol", "mixin"},

	// Error handling terms
	"error":     {"err", "Err", "Error", "exception", "fail", "failure"},
	"err":       {"error", "Error", "Err"},
	"exception": {"error", "err", "panic", "Exception"},
	"handle":    {"handler", "Handler", "catch", "process"},
	"handler":   {"handle", "Handle", "Handler", "callback"},
	"retry":     {"Retry", "attempt", "backoff", "Backoff"},
	"backoff":   {"Backoff", "retry", "delay", "exponential"},
	"panic":     {"Panic", "fatal", "crash", "abort"},
	"recover":   {"Recover", "catch", "handle", "rescue"},
	"throw":     {"raise", "panic", "error"},
	"catch":     {"handle", "recover", "rescue"},

	// HTTP/network terms
	"request":  {"req", "Req", "Request", "http"},
	"req":      {"request", "Request", "http"},
	"response": {"resp", "Resp", "Response", "reply"},
	"resp":     {"response", "Response", "reply"},
	"http":     {"HTTP", "request", "response", "web", "api"},
	"api":      {"API", "endpoint", "handler", "route"},
	"endpoint": {"handler", "route", "api", "path"},
	"server":   {"Server", "serve", "listener", "daemon"},
	"client":   {"Client", "conn", "connection"},
	"route":    {"endpoint", "path", "handler"},
	"middleware": {"interceptor", "filter"},
	"websocket":  {"ws", "socket", "stream"},
	"status":     {"code", "statuscode"},

	// Context/configuration terms
	"context":  {"ctx", "Ctx", "Context"},
	"ctx":      {"context", "Context"},
	"config":   {"cfg", "Cfg", "Config", "configuration", "settings", "options"},
	"cfg":      {"config", "Config", "configuration"},
	"options":  {"opts", "Opts", "Options", "config", "settings"},
	"opts":     {"options", "Options", "config"},
	"settings": {"config", "options", "preferences", "Settings"},
	"env":      {"environment", "Env", "Environment"},
	"flag":     {"option", "switch", "arg"},

	// Database/storage terms
	"database":   {"db", "DB", "Database", "sql", "storage"},
	"db":         {"database", "Database", "sql", "storage"},
	"store":      {"Store", "storage", "database", "repository", "db"},
	"storage":    {"store", "Store", "database", "persist"},
	"repository": {"repo", "Repo", "Repository", "store"},
	"repo":       {"repository", "Repository", "store"},
	"query":      {"Query", "select", "statement"},
	"insert":     {"Insert", "add", "create", "save"},
	"update":     {"Update", "modify", "edit", "change"},
	"delete":     {"Delete", "remove", "drop", "destroy"},
	"migration":  {"schema", "migrate"},
	"schema":     {"migration", "structure", "definition"},
	"transaction": {"tx", "atomic"},
	"sql":         {"database", "db", "query", "statement"},
	"cache":       {"caching", "memoize", "lru"},

	// Search/index terms
	"search":    {"Search", "find", "query", "lookup", "retrieve"},
	"find":      {"Find", "search", "get", "lookup", "query"},
	"index":     {"Index", "indexer", "indexing", "catalog"},
	"embed":     {"Embed", "embedding", "embedder", "vector"},
	"embedding": {"Embedding", "embed", "vector"},
	"embedder":  {"Embedder", "embed", "embedding", "vector"},
	"vector":    {"Vector", "embedding", "dense", "semantic"},
	"chunk":     {"Chunk", "segment", "block", "piece"},
	"token":     {"Token", "tokenize", "tokenizer", "word"},
	"parse":     {"Parse", "parser", "Parser", "parsing"},
	"ast":       {"AST", "tree", "syntax", "abstract"},
	"rank":      {"score", "rerank", "sort"},
	"rerank":    {"rank", "reorder", "score"},
	"fusion":    {"merge", "combine", "rrf"},

	// Common actions/verbs
	"create": {"Create", "new", "make", "init", "initialize"},
	"new":    {"New", "create", "make", "init"},
	"init":   {"Init", "initialize", "Initialize", "setup", "new"},
	"get":    {"Get", "fetch", "retrieve", "read", "load"},
	"set":    {"Set", "put", "assign", "write", "store"},
	"read":   {"Read", "get", "load", "fetch"},
	"write":  {"Write", "save", "store", "put"},
	"load":   {"Load", "read", "get", "fetch", "parse"},
	"save":   {"Save", "write", "store", "persist"},
	"close":  {"Close", "shutdown", "stop", "cleanup"},
	"start":  {"Start", "begin", "run", "launch", "init"},
	"stop":   {"Stop", "halt", "end", "close", "shutdown"},
	"run":    {"Run", "execute", "start", "process"},
	"build":  {"Build", "compile", "construct"},
	"remove": {"delete", "drop", "unset"},
	"copy":   {"clone", "duplicate"},
	"move":   {"rename", "relocate"},
	"merge":  {"combine", "join", "fuse"},
	"split":  {"divide", "partition", "chunk"},
	"filter": {"select", "where", "match"},
	"sort":   {"order", "rank"},
	"valid":  {"validate", "verify", "check"},

	// Testing terms
	"test":     {"Test", "testing", "spec", "check", "verify"},
	"mock":     {"Mock", "fake", "stub", "spy"},
	"assert":   {"Assert", "expect", "require", "check"},
	"bench":    {"Bench", "benchmark", "Benchmark", "perf"},
	"fixture":  {"stub", "setup", "testdata"},
	"coverage": {"covered", "tested"},

	// Authentication/authorization terms
	"auth":           {"authentication", "authorize", "authorization", "login", "logout", "session", "token"},
	"authentication": {"auth", "login", "signin", "credential"},
	"authorization":  {"auth", "authorize", "permission", "access"},
	"login":          {"signin", "auth", "authenticate"},
	"logout":         {"signout", "session"},
	"session":        {"auth", "token", "cookie"},
	"oauth":          {"auth", "token", "authorization"},
	"jwt":            {"token", "claims", "auth"},
	"credential":     {"password", "secret", "auth"},
	"permission":     {"authorization", "access", "role"},
	"role":           {"permission", "access", "grant"},

	// Concurrency terms
	"async":     {"Async", "goroutine", "concurrent", "parallel"},
	"goroutine": {"Goroutine", "async", "concurrent", "go"},
	"channel":   {"Channel", "chan", "Chan", "pipe"},
	"chan":      {"channel", "Channel", "pipe"},
	"mutex":     {"Mutex", "lock", "Lock", "sync"},
	"lock":      {"Lock", "mutex", "Mutex", "sync"},
	"wait":      {"Wait", "block", "await", "sync"},
	"sync":      {"Sync", "synchronize", "wait", "concurrent"},
	"worker":    {"pool", "goroutine", "task"},
	"queue":     {"channel", "buffer", "pipeline"},
	"pipeline":  {"stream", "queue", "workflow"},

	// File/IO terms
	"file":      {"File", "path", "filesystem", "io"},
	"path":      {"Path", "file", "filepath", "directory"},
	"directory": {"dir", "Dir", "Directory", "folder", "path"},
	"dir":       {"directory", "Directory", "folder"},
	"io":        {"IO", "input", "output", "stream"},
	"reader":    {"Reader", "read", "input", "stream"},
	"writer":    {"Writer", "write", "output", "stream"},
	"stream":    {"reader", "writer", "pipe"},

	// Logging/debug terms
	"log":   {"Log", "logger", "Logger", "logging", "slog"},
	"debug": {"Debug", "trace", "verbose", "log"},
	"info":  {"Info", "log", "message"},
	"warn":  {"Warn", "warning", "Warning", "alert"},
	"fatal": {"Fatal", "panic", "critical", "error"},
	"trace": {"span", "debug", "log"},
	"metric": {"stat", "measurement", "gauge"},

	// Natural language -> code mappings
	"implementation": {"impl", "Impl", "implement"},
	"where":          {"location", "file", "path"},
	"how":            {"implementation", "code", "logic"},
	"what":           {"definition", "type", "struct"},
	"created":        {"create", "new", "init", "make"},
	"defined":        {"definition", "declare", "type"},
	"called":         {"call", "invoke", "execute"},
	"returns":        {"return", "output", "result"},
	"parameter":      {"param", "arg", "argument", "input"},
	"argument":       {"arg", "param", "parameter", "input"},
	"compare":        {"diff", "equal", "match"},
	"convert":        {"cast", "transform", "parse"},
}

// GetSynonyms returns all synonyms for a given term, trying an exact match
// before falling back to a lower-cased lookup. Returns nil if none exist.
func GetSynonyms(term string) []string {
	if synonyms, ok := CodeSynonyms[term]; ok {
		return synonyms
	}
	if synonyms, ok := CodeSynonyms[toLower(term)]; ok {
		return synonyms
	}
	return nil
}

// toLower is a simple ASCII lowercase helper to avoid importing strings
// for this single use.
func toLower(s string) string {
	b := make([]byte, len(s))
	for i := range s {
		c := s[i]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		b[i] = c
	}
	return string(b)
}
