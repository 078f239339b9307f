package fileapi

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/datapipe-project/datapipe/internal/audit"
	"github.com/datapipe-project/datapipe/internal/catalog"
	"github.com/datapipe-project/datapipe/internal/integrity"
	"github.com/datapipe-project/datapipe/internal/override"
	"github.com/datapipe-project/datapipe/pkg/clock"
	"github.com/datapipe-project/datapipe/pkg/config"
	"github.com/datapipe-project/datapipe/pkg/errclass"
	"github.com/datapipe-project/datapipe/pkg/fsutil"
	"github.com/datapipe-project/datapipe/pkg/logging"
	"github.com/datapipe-project/datapipe/pkg/metrics"
	"github.com/datapipe-project/datapipe/pkg/model"
	"github.com/datapipe-project/datapipe/pkg/pathutil"
	"github.com/datapipe-project/datapipe/pkg/uuidutil"
)

// ReservedMetadataKeys cannot be set through UpdateRunMetadata; the access
// log owns them.
var ReservedMetadataKeys = []string{"run_id", "open_timestamp", "close_timestamp"}

// Options configures a session. Zero values select the real clock, the
// global logger and a fresh metrics registry.
type Options struct {
	Clock   clock.Clock
	Logger  *logging.Logger
	Metrics *metrics.Registry
}

// API is one datapipe session: one configuration, one run id, one access log.
type API struct {
	cfg      *config.Config
	runID    string
	dataDir  string
	opened   time.Time
	logPath  string
	catalog  *catalog.Catalog
	resolver *override.Resolver
	hasher   *integrity.Hasher
	recorder audit.Recorder
	logger   *logging.Logger
	metrics  *metrics.Registry

	mu       sync.Mutex
	closed   bool
	inflight sync.WaitGroup
	handles  map[string]*WriteHandle
	closeErr error
	once     sync.Once
}

// Open loads the configuration at configPath and starts a session. An empty
// path uses the default configuration.
func Open(configPath string, opts Options) (*API, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	return New(cfg, opts)
}

// New starts a session for an already loaded configuration.
func New(cfg *config.Config, opts Options) (*API, error) {
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.NewRegistry()
	}
	if opts.Logger == nil {
		opts.Logger = logging.Global()
		if cfg.LogLevel != "" {
			level, err := logging.ParseLevel(cfg.LogLevel)
			if err != nil {
				return nil, err
			}
			opts.Logger = logging.NewLogger(level)
		}
	}

	opened := opts.Clock.Now()
	runID := cfg.ResolveRunID(opened)
	dataDir := cfg.DataDirectory()
	logger := opts.Logger.WithFields(map[string]any{"run_id": runID})

	cat, err := catalog.Load(dataDir, catalog.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("open session: %w", err)
	}
	opts.Metrics.SetCatalogEntries(cat.Len())

	hasher := integrity.NewHasher(logger, opts.Metrics)
	a := &API{
		cfg:     cfg,
		runID:   runID,
		dataDir: dataDir,
		opened:  opened,
		catalog: cat,
		resolver: &override.Resolver{
			ReadRules:     cfg.Read,
			WriteRules:    cfg.Write,
			DataDirectory: dataDir,
			RunID:         runID,
			Logger:        logger,
		},
		hasher:  hasher,
		logger:  logger,
		metrics: opts.Metrics,
		handles: make(map[string]*WriteHandle),
	}

	if cfg.AccessLogDisabled() {
		a.recorder = audit.Noop{}
	} else {
		a.logPath = cfg.AccessLogPath(runID)
		a.recorder = audit.NewLedger(audit.Options{
			Path:          a.logPath,
			DataDirectory: dataDir,
			RunID:         runID,
			Config:        cfg,
			Opened:        opened,
			Metadata:      cfg.RunMetadata,
			Clock:         opts.Clock,
			Hasher:        hasher,
			Logger:        logger,
			Metrics:       opts.Metrics,
		})
	}

	logger.Info("session opened", map[string]any{
		"data_directory":  dataDir,
		"catalog_entries": cat.Len(),
		"access_log":      a.logPath,
	})
	return a, nil
}

// RunID returns the session run id.
func (a *API) RunID() string { return a.runID }

// DataDirectory returns the normalised data directory.
func (a *API) DataDirectory() string { return a.dataDir }

// AccessLogPath returns where the access log is written, or "" if disabled.
func (a *API) AccessLogPath() string { return a.logPath }

// Catalog returns the session catalog.
func (a *API) Catalog() *catalog.Catalog { return a.catalog }

// Metrics returns the session metrics registry.
func (a *API) Metrics() *metrics.Registry { return a.metrics }

// ResolveForRead applies the read rules, selects the best catalog entry and
// checks its hash. It returns the file path and the resolved record, whose
// calculated hash is fresh whenever the entry carries a verified hash.
func (a *API) ResolveForRead(query model.Record) (string, model.Record, error) {
	if err := a.enter(); err != nil {
		return "", model.Record{}, err
	}
	defer a.leave()

	found := a.catalog.Find(a.resolver.ReadQuery(query))
	found.DataDirectory = a.dataDir

	resolved, err := a.hasher.AddHash(found, a.cfg.FailOnHashMismatch())
	if err != nil {
		a.metrics.RecordResolveFailure(string(model.AccessRead))
		return "", resolved, err
	}
	if resolved.VerifiedHash != "" && resolved.CalculatedHash != resolved.VerifiedHash {
		a.logger.Warn("hash mismatch ignored", map[string]any{
			"filename":        resolved.Filename,
			"verified_hash":   resolved.VerifiedHash.String(),
			"calculated_hash": resolved.CalculatedHash.String(),
		})
	}

	path, err := resolved.Path()
	if err != nil {
		a.metrics.RecordResolveFailure(string(model.AccessRead))
		return "", resolved, err
	}
	return path, resolved, nil
}

// ResolveForWrite applies the write rules and the forced run id, filename
// and data directory. The destination must stay inside the data directory.
func (a *API) ResolveForWrite(query model.Record) (string, model.Record, error) {
	if err := a.enter(); err != nil {
		return "", model.Record{}, err
	}
	defer a.leave()

	resolved, err := a.resolver.WriteQuery(query)
	if err == nil && resolved.Extension != "" {
		err = pathutil.ValidateExtension(resolved.Extension)
	}
	var path string
	if err == nil {
		path, err = resolved.Path()
	}
	if err == nil && !filepath.IsAbs(resolved.Filename) {
		err = pathutil.ValidatePathSafety(a.dataDir, path)
	}
	if err != nil {
		a.metrics.RecordResolveFailure(string(model.AccessWrite))
		return "", resolved, err
	}
	return path, resolved, nil
}

// RecordRead logs a read of a record returned by ResolveForRead.
func (a *API) RecordRead(call, resolved model.Record) error {
	if err := a.enter(); err != nil {
		return err
	}
	defer a.leave()
	a.recorder.LogRead(call, resolved)
	return nil
}

// RecordWrite hashes the written file and logs the write. The returned
// record carries the calculated hash.
func (a *API) RecordWrite(call, resolved model.Record) (model.Record, error) {
	if err := a.enter(); err != nil {
		return resolved, err
	}
	defer a.leave()
	return a.recorder.LogWrite(call, resolved)
}

// OpenForRead resolves query, opens the file read-only and records the read.
func (a *API) OpenForRead(query model.Record) (*os.File, model.Record, error) {
	path, resolved, err := a.ResolveForRead(query)
	if err != nil {
		return nil, resolved, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, resolved, errclass.IO("open for read", err)
	}
	if err := a.RecordRead(query, resolved); err != nil {
		f.Close()
		return nil, resolved, err
	}
	return f, resolved, nil
}

// OpenForWrite resolves query, creates parent directories and opens the
// destination truncated. The write is recorded when the handle is closed.
func (a *API) OpenForWrite(query model.Record) (*WriteHandle, error) {
	path, resolved, err := a.ResolveForWrite(query)
	if err != nil {
		return nil, err
	}
	f, err := fsutil.CreateTruncate(path, 0644)
	if err != nil {
		return nil, errclass.IO("open for write", err)
	}

	h := &WriteHandle{
		id:       uuidutil.NewV4(),
		api:      a,
		file:     f,
		call:     query.Clone(),
		resolved: resolved,
	}
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		f.Close()
		return nil, errclass.ErrSessionClosed.WithMessage("open for write")
	}
	a.handles[h.id] = h
	a.mu.Unlock()

	a.logger.Debug("write handle opened", map[string]any{"handle": h.id, "path": path})
	return h, nil
}

// UpdateRunMetadata merges metadata into the run metadata written to the
// access log.
func (a *API) UpdateRunMetadata(metadata map[string]string) error {
	for k := range metadata {
		for _, reserved := range ReservedMetadataKeys {
			if k == reserved {
				return errclass.ErrNameInvalid.WithMessagef("run metadata key %q is reserved", k)
			}
		}
	}
	if err := a.enter(); err != nil {
		return err
	}
	defer a.leave()
	a.recorder.UpdateMetadata(metadata)
	return nil
}

// Close ends the session: it waits for in-flight record calls, writes the
// access log and the metrics textfile. Later calls return the first result.
func (a *API) Close() error {
	a.once.Do(func() {
		a.mu.Lock()
		a.closed = true
		open := len(a.handles)
		a.mu.Unlock()

		a.inflight.Wait()
		if open > 0 {
			a.logger.Warn("session closed with open write handles", map[string]any{"open": open})
		}

		var errs []error
		if err := a.recorder.Flush(); err != nil {
			errs = append(errs, err)
		}
		if p := a.cfg.MetricsPath(); p != "" {
			if err := a.metrics.WriteTextfile(p); err != nil {
				errs = append(errs, errclass.IO("write metrics", err))
			}
		}
		a.closeErr = errors.Join(errs...)
		a.logger.Info("session closed", nil)
		_ = a.logger.Sync()
	})
	return a.closeErr
}

func (a *API) enter() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return errclass.ErrSessionClosed.WithMessage("session is closed")
	}
	a.inflight.Add(1)
	return nil
}

func (a *API) leave() {
	a.inflight.Done()
}

func (a *API) release(h *WriteHandle) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.handles, h.id)
}
