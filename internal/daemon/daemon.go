package daemon

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/motif-dev/motif/internal/async"
	"github.com/motif-dev/motif/internal/config"
	"github.com/motif-dev/motif/internal/embed"
	"github.com/motif-dev/motif/internal/index"
	"github.com/motif-dev/motif/internal/search"
	"github.com/motif-dev/motif/internal/store"
	"github.com/motif-dev/motif/internal/ui"
)

// Option configures a Daemon at construction time.
type Option func(*Daemon)

// WithEmbedder overrides the embedder the daemon uses for every project
// instead of letting each project pick its own from its config.yaml.
// Mainly useful in tests, to avoid a live Ollama/MLX dependency.
func WithEmbedder(e embed.Embedder) Option {
	return func(d *Daemon) { d.embedder = e }
}

// projectState holds the warm, already-opened resources for one indexed
// project so repeated CLI searches skip store/embedder initialization.
type projectState struct {
	rootPath string
	loadedAt time.Time
	lastUsed time.Time

	metadata *store.SQLiteStore
	bm25     store.FTSIndex
	vector   *store.HNSWStore
	engine   *search.Engine
	embedder embed.Embedder // per-project embedder, closed with the project unless shared
}

// Close releases every resource held by the project, tolerating nils so
// a partially constructed projectState can still be torn down safely.
func (p *projectState) Close() error {
	var firstErr error
	record := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if p.vector != nil {
		record(p.vector.Close())
	}
	if p.bm25 != nil {
		record(p.bm25.Close())
	}
	if p.metadata != nil {
		record(p.metadata.Close())
	}
	return firstErr
}

// Daemon keeps an embedder and per-project search state warm in memory so
// CLI search commands can connect over a Unix socket instead of paying
// embedder/index initialization cost on every invocation.
type Daemon struct {
	cfg     Config
	pidFile *PIDFile
	server  *Server

	// embedder, when set, is shared across every project (e.g. the mock
	// embedder tests inject). When nil, each project gets its own embedder
	// built from its own config.yaml.
	embedder embed.Embedder

	started time.Time
	runCtx  context.Context // outlives individual RPC requests; set by Start

	mu         sync.Mutex
	projects   map[string]*projectState
	reindexers map[string]*async.BackgroundIndexer
}

// NewDaemon validates cfg and constructs a Daemon ready to Start.
func NewDaemon(cfg Config, opts ...Option) (*Daemon, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	d := &Daemon{
		cfg:      cfg,
		pidFile:  NewPIDFile(cfg.PIDPath),
		projects: make(map[string]*projectState),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Start runs the daemon's RPC server until ctx is cancelled, writing a PID
// file for the duration. It blocks and returns ctx.Err() on clean shutdown.
func (d *Daemon) Start(ctx context.Context) error {
	if err := d.cfg.EnsureDir(); err != nil {
		return err
	}

	// A PID file left by a process that's no longer running is stale;
	// remove it so Write below reflects this process, not a dead one.
	if !d.pidFile.IsRunning() {
		_ = d.pidFile.Remove()
	}
	if err := d.pidFile.Write(); err != nil {
		return fmt.Errorf("failed to write PID file: %w", err)
	}
	defer func() { _ = d.pidFile.Remove() }()

	server, err := NewServer(d.cfg.SocketPath)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	server.SetHandler(d)
	d.server = server
	d.started = time.Now()
	d.runCtx = ctx

	slog.Info("daemon_starting", slog.String("socket", d.cfg.SocketPath))
	err = server.ListenAndServe(ctx)
	d.cleanup()
	return err
}

// cleanup closes every loaded project and the shared embedder (if any),
// leaving the Daemon ready to be discarded.
func (d *Daemon) cleanup() {
	d.mu.Lock()
	projects := d.projects
	reindexers := d.reindexers
	d.projects = make(map[string]*projectState)
	d.reindexers = nil
	d.mu.Unlock()

	// Stop background reindexers before closing projects: a running
	// indexer's final step re-acquires d.mu to evict its cached project,
	// so it must not run while this goroutine holds the lock.
	for root, indexer := range reindexers {
		if indexer.IsRunning() {
			slog.Info("reindex_interrupted_by_shutdown", slog.String("root", root))
			indexer.Stop()
		}
	}

	for root, p := range projects {
		if err := p.Close(); err != nil {
			slog.Warn("project_close_failed", slog.String("root", root), slog.String("error", err.Error()))
		}
		if p.embedder != nil && p.embedder != d.embedder {
			_ = p.embedder.Close()
		}
	}

	if d.embedder != nil {
		_ = d.embedder.Close()
		d.embedder = nil
	}
}

// GetStatus reports the daemon's current embedder and project cache state.
// Uptime/PID are filled in by Server.getStatus from its own start time.
func (d *Daemon) GetStatus() StatusResult {
	d.mu.Lock()
	loaded := len(d.projects)
	d.mu.Unlock()

	status := StatusResult{
		Running:        true,
		PID:            os.Getpid(),
		Uptime:         time.Since(d.started).Round(time.Second).String(),
		EmbedderType:   "unavailable",
		EmbedderStatus: "unavailable",
		ProjectsLoaded: loaded,
	}

	if d.embedder != nil {
		status.EmbedderType = d.embedder.ModelName()
		status.EmbedderStatus = "ready"
	}

	return status
}

// HandleSearch resolves params.RootPath to a (possibly newly loaded)
// projectState and runs the hybrid search engine against it.
func (d *Daemon) HandleSearch(ctx context.Context, params SearchParams) ([]SearchResult, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	project, err := d.getOrLoadProject(ctx, params.RootPath)
	if err != nil {
		return nil, err
	}

	opts := search.SearchOptions{
		Limit:    params.Limit,
		Filter:   params.Filter,
		Language: params.Language,
		Scopes:   params.Scopes,
		BM25Only: params.BM25Only,
		Explain:  params.Explain,
	}

	results, err := project.engine.Search(ctx, params.Query, opts)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	return toDaemonResults(results), nil
}

func toDaemonResults(results []*search.SearchResult) []SearchResult {
	out := make([]SearchResult, 0, len(results))
	for i, r := range results {
		sr := SearchResult{
			Score:     r.Score,
			BM25Score: r.BM25Score,
			VecScore:  r.VecScore,
			BM25Rank:  r.BM25Rank,
			VecRank:   r.VecRank,
		}
		if r.Chunk != nil {
			sr.FilePath = r.Chunk.FilePath
			sr.StartLine = r.Chunk.StartLine
			sr.EndLine = r.Chunk.EndLine
			sr.Content = r.Chunk.Content
			sr.Language = r.Chunk.Language
		}
		if i == 0 && r.Explain != nil {
			sr.Explain = &ExplainData{
				Query:                r.Explain.Query,
				BM25ResultCount:      r.Explain.BM25ResultCount,
				VectorResultCount:    r.Explain.VectorResultCount,
				BM25Weight:           r.Explain.Weights.BM25,
				SemanticWeight:       r.Explain.Weights.Semantic,
				RRFConstant:          r.Explain.RRFConstant,
				BM25Only:             r.Explain.BM25Only,
				DimensionMismatch:    r.Explain.DimensionMismatch,
				MultiQueryDecomposed: r.Explain.MultiQueryDecomposed,
				SubQueries:           r.Explain.SubQueries,
			}
		}
		out = append(out, sr)
	}
	return out
}

// HandleReindex starts a background full reindex of rootPath, or returns
// the progress of one already running for it. The daemon keeps answering
// search/status requests for other projects while this runs.
func (d *Daemon) HandleReindex(ctx context.Context, params ReindexParams) (IndexProgressResult, error) {
	d.mu.Lock()
	if existing, ok := d.reindexers[params.RootPath]; ok && existing.IsRunning() {
		snapshot := existing.Progress().Snapshot()
		d.mu.Unlock()
		return toIndexProgressResult(snapshot), nil
	}
	d.mu.Unlock()

	cfg, err := config.Load(params.RootPath)
	if err != nil {
		cfg = config.NewConfig()
	}
	dataDir := filepath.Join(params.RootPath, ".amanmcp")

	indexer := async.NewBackgroundIndexer(async.IndexerConfig{DataDir: dataDir})
	indexer.IndexFunc = func(runCtx context.Context, progress *async.IndexProgress) error {
		return d.runFullIndex(runCtx, params.RootPath, dataDir, cfg, progress)
	}

	d.mu.Lock()
	if d.reindexers == nil {
		d.reindexers = make(map[string]*async.BackgroundIndexer)
	}
	d.reindexers[params.RootPath] = indexer
	d.mu.Unlock()

	runCtx := d.runCtx
	if runCtx == nil {
		runCtx = context.Background()
	}
	indexer.Start(runCtx)

	return toIndexProgressResult(indexer.Progress().Snapshot()), nil
}

// HandleIndexStatus reports the progress of a background reindex for
// rootPath, or a zero-value "no reindex ever run" result if none exists.
func (d *Daemon) HandleIndexStatus(ctx context.Context, params IndexStatusParams) (IndexProgressResult, error) {
	d.mu.Lock()
	indexer, ok := d.reindexers[params.RootPath]
	d.mu.Unlock()
	if !ok {
		return IndexProgressResult{Status: "not_started"}, nil
	}
	return toIndexProgressResult(indexer.Progress().Snapshot()), nil
}

func toIndexProgressResult(s async.IndexProgressSnapshot) IndexProgressResult {
	return IndexProgressResult{
		Status:         s.Status,
		Stage:          s.Stage,
		FilesTotal:     s.FilesTotal,
		FilesProcessed: s.FilesProcessed,
		ChunksTotal:    s.ChunksTotal,
		ChunksIndexed:  s.ChunksIndexed,
		ProgressPct:    s.ProgressPct,
		ElapsedSeconds: s.ElapsedSeconds,
		ErrorMessage:   s.ErrorMessage,
	}
}

// runFullIndex performs one full indexing pass of rootPath using its own
// store handles (not the cached projectState, which a concurrent search
// may still be reading from), then evicts any cached projectState for
// rootPath so the next search reopens freshly indexed stores.
func (d *Daemon) runFullIndex(ctx context.Context, rootPath, dataDir string, cfg *config.Config, progress *async.IndexProgress) error {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return err
	}

	metadataPath := filepath.Join(dataDir, "metadata.db")
	metadata, err := store.NewSQLiteStore(metadataPath)
	if err != nil {
		return fmt.Errorf("failed to open metadata: %w", err)
	}
	defer func() { _ = metadata.Close() }()

	fileCount := 0
	if project, projErr := metadata.GetProject(ctx, hashProjectRoot(rootPath)); projErr == nil && project != nil {
		fileCount = project.FileCount
	}
	bm25BasePath := filepath.Join(dataDir, "bm25")
	bm25, err := store.NewFTSIndex(bm25BasePath, store.DefaultBM25Config(), store.FTSPreference(cfg.Search.FTSPreference), fileCount, true)
	if err != nil {
		return fmt.Errorf("failed to open BM25 index: %w", err)
	}
	defer func() { _ = bm25.Close() }()

	embedder := d.embedder
	ownEmbedder := false
	if embedder == nil {
		embed.SetMLXConfig(embed.MLXServerConfig{
			Endpoint: cfg.Embeddings.MLXEndpoint,
			Model:    cfg.Embeddings.MLXModel,
		})
		provider := embed.ParseProvider(cfg.Embeddings.Provider)
		embedder, err = embed.NewEmbedder(ctx, provider, cfg.Embeddings.Model)
		if err != nil {
			return fmt.Errorf("failed to create embedder: %w", err)
		}
		ownEmbedder = true
	}
	if ownEmbedder {
		defer func() { _ = embedder.Close() }()
	}

	vectorCfg := store.DefaultVectorStoreConfig(embedder.Dimensions())
	vector, err := store.NewHNSWStore(vectorCfg)
	if err != nil {
		return fmt.Errorf("failed to create vector store: %w", err)
	}
	defer func() { _ = vector.Close() }()

	renderer := ui.NewPlainRenderer(ui.NewConfig(io.Discard, ui.WithProjectDir(rootPath)))

	runner, err := index.NewRunner(index.RunnerDependencies{
		Renderer: renderer,
		Config:   cfg,
		Metadata: metadata,
		BM25:     bm25,
		Vector:   vector,
		Embedder: embedder,
	})
	if err != nil {
		return fmt.Errorf("failed to create index runner: %w", err)
	}
	defer func() { _ = runner.Close() }()

	progress.SetStage(async.StageIndexing, 0)
	if _, err := runner.Run(ctx, index.RunnerConfig{
		RootDir: rootPath,
		DataDir: dataDir,
	}); err != nil {
		return err
	}

	d.mu.Lock()
	if cached, ok := d.projects[rootPath]; ok {
		_ = cached.Close()
		delete(d.projects, rootPath)
	}
	d.mu.Unlock()

	return nil
}

// getOrLoadProject returns the cached projectState for rootPath, opening
// and caching it on first use, evicting the least-recently-used project
// first if the cache is at cfg.MaxProjects capacity.
func (d *Daemon) getOrLoadProject(ctx context.Context, rootPath string) (*projectState, error) {
	d.mu.Lock()
	if p, ok := d.projects[rootPath]; ok {
		p.lastUsed = time.Now()
		d.mu.Unlock()
		return p, nil
	}
	d.mu.Unlock()

	dataDir := filepath.Join(rootPath, ".amanmcp")
	metadataPath := filepath.Join(dataDir, "metadata.db")
	if _, err := os.Stat(metadataPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("no index found for %s. Run 'amanmcp index' first", rootPath)
	}

	cfg, err := config.Load(rootPath)
	if err != nil {
		cfg = config.NewConfig()
	}

	metadata, err := store.NewSQLiteStore(metadataPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open metadata: %w", err)
	}

	fileCount := 0
	if project, projErr := metadata.GetProject(ctx, hashProjectRoot(rootPath)); projErr == nil && project != nil {
		fileCount = project.FileCount
	}
	bm25BasePath := filepath.Join(dataDir, "bm25")
	bm25, err := store.NewFTSIndex(bm25BasePath, store.DefaultBM25Config(), store.FTSPreference(cfg.Search.FTSPreference), fileCount, true)
	if err != nil {
		_ = metadata.Close()
		return nil, fmt.Errorf("failed to open BM25 index: %w", err)
	}

	embedder := d.embedder
	ownEmbedder := false
	if embedder == nil {
		embed.SetMLXConfig(embed.MLXServerConfig{
			Endpoint: cfg.Embeddings.MLXEndpoint,
			Model:    cfg.Embeddings.MLXModel,
		})
		provider := embed.ParseProvider(cfg.Embeddings.Provider)
		embedder, err = embed.NewEmbedder(ctx, provider, cfg.Embeddings.Model)
		if err != nil {
			_ = bm25.Close()
			_ = metadata.Close()
			return nil, fmt.Errorf("failed to create embedder: %w", err)
		}
		ownEmbedder = true
	}

	vectorPath := filepath.Join(dataDir, "vectors.hnsw")
	vectorCfg := store.DefaultVectorStoreConfig(embedder.Dimensions())
	vector, err := store.NewHNSWStore(vectorCfg)
	if err != nil {
		if ownEmbedder {
			_ = embedder.Close()
		}
		_ = bm25.Close()
		_ = metadata.Close()
		return nil, fmt.Errorf("failed to create vector store: %w", err)
	}
	if _, err := os.Stat(vectorPath); err == nil {
		if loadErr := vector.Load(vectorPath); loadErr != nil {
			slog.Debug("vector_load_failed", slog.String("error", loadErr.Error()))
		}
	}

	engineCfg := search.DefaultConfig()
	if cfg.Search.MaxResults > 0 {
		engineCfg.DefaultLimit = cfg.Search.MaxResults
	}
	if cfg.Search.BM25Weight > 0 || cfg.Search.SemanticWeight > 0 {
		engineCfg.DefaultWeights = search.Weights{
			BM25:     cfg.Search.BM25Weight,
			Semantic: cfg.Search.SemanticWeight,
		}
	}
	engine := search.New(bm25, vector, embedder, metadata, engineCfg,
		search.WithMultiQuerySearch(search.NewPatternDecomposer()))

	project := &projectState{
		rootPath: rootPath,
		loadedAt: time.Now(),
		lastUsed: time.Now(),
		metadata: metadata,
		bm25:     bm25,
		vector:   vector,
		engine:   engine,
	}
	if ownEmbedder {
		project.embedder = embedder
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.projects) >= d.cfg.MaxProjects {
		d.evictLRU()
	}
	d.projects[rootPath] = project
	return project, nil
}

// evictLRU closes and removes the project with the oldest lastUsed time.
// No-op when the project cache is empty.
func (d *Daemon) evictLRU() {
	var oldestRoot string
	var oldestTime time.Time
	for root, p := range d.projects {
		if oldestRoot == "" || p.lastUsed.Before(oldestTime) {
			oldestRoot = root
			oldestTime = p.lastUsed
		}
	}
	if oldestRoot == "" {
		return
	}
	if err := d.projects[oldestRoot].Close(); err != nil {
		slog.Warn("project_evict_close_failed", slog.String("root", oldestRoot), slog.String("error", err.Error()))
	}
	delete(d.projects, oldestRoot)
}

// hashProjectRoot returns the project ID used by the metadata store for a
// root path, matching the scheme index.Runner uses when populating it
// (SHA256 of the path, first 16 hex chars).
func hashProjectRoot(root string) string {
	h := sha256.Sum256([]byte(root))
	return hex.EncodeToString(h[:])[:16]
}
