package main

import (
	"database/sql"
	"log/slog"
	"sync"
	"time"

	"github.com/hpungsan/kin/internal/config"
	"github.com/hpungsan/kin/internal/contact"
	"github.com/hpungsan/kin/internal/db"
	"github.com/hpungsan/kin/internal/mcp"
	"github.com/hpungsan/kin/internal/selection"
	"github.com/hpungsan/kin/internal/web"
	"github.com/hpungsan/kin/internal/widget"
)

// runtime is the process-wide object graph. There is one database handle,
// one host and one set of surfaces per process.
type runtime struct {
	db     *sql.DB
	cfg    *config.Config
	logger *slog.Logger
	source contact.Source
	// watch is set when the address book is a file that can change underneath us.
	watch widget.ModTimer
	host  *widget.Host
	sink  *relaySink
}

// relaySink forwards rendered views to a sink attached after the host is built.
type relaySink struct {
	mu   sync.Mutex
	sink widget.Sink
}

func (r *relaySink) Render(v widget.View) error {
	r.mu.Lock()
	s := r.sink
	r.mu.Unlock()
	if s == nil {
		return nil
	}
	return s.Render(v)
}

func (r *relaySink) attach(s widget.Sink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sink = s
}

func newRuntime(database *sql.DB, cfg *config.Config, logger *slog.Logger) *runtime {
	fs := contact.NewFileSource(cfg.ResolveContactsPath())
	rt := newRuntimeWithSource(database, cfg, logger, fs)
	rt.watch = fs
	return rt
}

func newRuntimeWithSource(database *sql.DB, cfg *config.Config, logger *slog.Logger, source contact.Source) *runtime {
	sink := &relaySink{}
	store := db.NewStore(database)
	engine := selection.NewEngine(source, store,
		selection.WithMaxRounds(cfg.MaxSelectionRounds),
		selection.WithLogger(logger),
	)
	recorder := selection.NewRecorder(store, logger)
	host := widget.NewHost(engine, recorder,
		widget.WithEngageRetries(cfg.EngageRetries),
		widget.WithLogger(logger),
		widget.WithSurfaces(append([]string{widget.DefaultSurface}, cfg.Surfaces...)...),
		widget.WithSink(sink),
	)
	return &runtime{
		db:     database,
		cfg:    cfg,
		logger: logger,
		source: source,
		host:   host,
		sink:   sink,
	}
}

func (rt *runtime) mcpDeps() mcp.Deps {
	return mcp.Deps{DB: rt.db, Config: rt.cfg, Host: rt.host, Source: rt.source}
}

func (rt *runtime) webDeps() web.Deps {
	return web.Deps{DB: rt.db, Host: rt.host, Source: rt.source, Logger: rt.logger}
}

func (rt *runtime) schedulerConfig() widget.SchedulerConfig {
	return widget.SchedulerConfig{
		Interval:     time.Duration(rt.cfg.RefreshIntervalSeconds) * time.Second,
		PollInterval: time.Duration(rt.cfg.ContactsPollSeconds) * time.Second,
		Watch:        rt.watch,
	}
}
