package audit

import (
	"io"
	"sync"
	"time"

	"github.com/datapipe-project/datapipe/internal/integrity"
	"github.com/datapipe-project/datapipe/pkg/clock"
	"github.com/datapipe-project/datapipe/pkg/codec"
	"github.com/datapipe-project/datapipe/pkg/errclass"
	"github.com/datapipe-project/datapipe/pkg/fsutil"
	"github.com/datapipe-project/datapipe/pkg/logging"
	"github.com/datapipe-project/datapipe/pkg/metrics"
	"github.com/datapipe-project/datapipe/pkg/model"
)

// Options describe the session a Ledger records.
type Options struct {
	// Path is where Flush writes the YAML summary.
	Path          string
	DataDirectory string
	RunID         string
	// Config is a snapshot of the session configuration, serialized as-is.
	Config   any
	Opened   time.Time
	Metadata map[string]string

	Clock   clock.Clock
	Hasher  *integrity.Hasher
	Logger  *logging.Logger
	Metrics *metrics.Registry
}

// Ledger is the file-backed Recorder.
type Ledger struct {
	opts Options

	mu       sync.Mutex
	entries  []model.AccessEntry
	metadata map[string]string
	closed   bool
	// pending counts LogWrite calls that were admitted before Flush and
	// are still hashing. Flush waits for them.
	pending sync.WaitGroup
}

var _ Recorder = (*Ledger)(nil)

// NewLedger creates an open ledger.
func NewLedger(opts Options) *Ledger {
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.Logger == nil {
		opts.Logger = logging.Nop()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.NewRegistry()
	}
	if opts.Hasher == nil {
		opts.Hasher = integrity.NewHasher(opts.Logger, opts.Metrics)
	}
	if opts.Opened.IsZero() {
		opts.Opened = opts.Clock.Now()
	}
	md := make(map[string]string, len(opts.Metadata))
	for k, v := range opts.Metadata {
		md[k] = v
	}
	return &Ledger{
		opts:     opts,
		entries:  make([]model.AccessEntry, 0),
		metadata: md,
	}
}

// LogRead appends a read entry.
func (l *Ledger) LogRead(call, resolved model.Record) {
	entry := l.newEntry(model.AccessRead, call, resolved)
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		panic("audit: read logged after ledger was flushed")
	}
	l.entries = append(l.entries, entry)
	l.mu.Unlock()
	l.observe(entry)
}

// LogWrite hashes the written file and appends a write entry. The returned
// record carries the calculated hash.
func (l *Ledger) LogWrite(call, resolved model.Record) (model.Record, error) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		panic("audit: write logged after ledger was flushed")
	}
	l.pending.Add(1)
	l.mu.Unlock()
	defer l.pending.Done()

	hashed, err := l.opts.Hasher.Calculate(resolved)
	if err != nil {
		return resolved, err
	}
	// Admitted before Flush, so the append is accepted even if Flush has
	// since started; Flush is still blocked on pending.
	entry := l.newEntry(model.AccessWrite, call, hashed)
	l.mu.Lock()
	l.entries = append(l.entries, entry)
	l.mu.Unlock()
	l.observe(entry)
	return hashed, nil
}

// UpdateMetadata merges metadata into the run metadata.
func (l *Ledger) UpdateMetadata(metadata map[string]string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		panic("audit: metadata updated after ledger was flushed")
	}
	for k, v := range metadata {
		l.metadata[k] = v
	}
}

// Entries returns a copy of the entries recorded so far.
func (l *Ledger) Entries() []model.AccessEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]model.AccessEntry(nil), l.entries...)
}

// Summary builds the session summary as of now.
func (l *Ledger) Summary() model.AccessLog {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.summaryLocked(l.opts.Clock.Now())
}

// Flush stops accepting entries, waits for in-flight writes to finish
// hashing, then writes the summary atomically to the configured path.
// Later calls return nil without writing.
func (l *Ledger) Flush() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	l.mu.Unlock()

	l.pending.Wait()

	l.mu.Lock()
	doc := l.summaryLocked(l.opts.Clock.Now())
	l.mu.Unlock()

	err := fsutil.AtomicWriteFunc(l.opts.Path, 0644, func(w io.Writer) error {
		return codec.EncodeYAML(w, doc)
	})
	if err != nil {
		return errclass.IO("write access log", err)
	}
	l.opts.Logger.Info("access log written", map[string]any{
		"path":    l.opts.Path,
		"entries": len(doc.IO),
		"run_id":  doc.RunID,
	})
	return nil
}

func (l *Ledger) newEntry(t model.AccessType, call, resolved model.Record) model.AccessEntry {
	return model.AccessEntry{
		Type:           t,
		Timestamp:      l.opts.Clock.Now(),
		CallMetadata:   call.Clone(),
		AccessMetadata: resolved.Clone(),
	}
}

func (l *Ledger) observe(entry model.AccessEntry) {
	l.opts.Metrics.RecordAccess(string(entry.Type))
	l.opts.Logger.Info("recorded "+string(entry.Type), map[string]any{
		"filename": entry.AccessMetadata.Filename,
		"hash":     entry.AccessMetadata.CalculatedHash.Short(),
	})
}

func (l *Ledger) summaryLocked(closed time.Time) model.AccessLog {
	doc := model.AccessLog{
		DataDirectory:  l.opts.DataDirectory,
		OpenTimestamp:  l.opts.Opened,
		CloseTimestamp: closed,
		RunID:          l.opts.RunID,
		Config:         l.opts.Config,
		IO:             append(make([]model.AccessEntry, 0, len(l.entries)), l.entries...),
	}
	if len(l.metadata) > 0 {
		doc.Metadata = make(map[string]string, len(l.metadata))
		for k, v := range l.metadata {
			doc.Metadata[k] = v
		}
	}
	return doc
}
