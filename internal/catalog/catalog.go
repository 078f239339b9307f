// Package catalog loads the metadata catalog of a data directory and finds
// the entry that best fits a partial query.
package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/datapipe-project/datapipe/pkg/codec"
	"github.com/datapipe-project/datapipe/pkg/errclass"
	"github.com/datapipe-project/datapipe/pkg/fsutil"
	"github.com/datapipe-project/datapipe/pkg/logging"
	"github.com/datapipe-project/datapipe/pkg/model"
)

// Filename is the catalog file inside a data directory.
const Filename = "metadata.yaml"

// Catalog is the list of known records of one data directory. Lookups scan
// it linearly; duplicates are legal and resolved by version.
type Catalog struct {
	mu      sync.RWMutex
	dir     string
	entries []model.Record
	logger  *logging.Logger
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithLogger routes match diagnostics to l.
func WithLogger(l *logging.Logger) Option {
	return func(c *Catalog) { c.logger = l }
}

// New builds a catalog over entries, stamping each with dataDirectory.
func New(dataDirectory string, entries []model.Record, opts ...Option) *Catalog {
	c := &Catalog{dir: dataDirectory, logger: logging.Nop()}
	for _, opt := range opts {
		opt(c)
	}
	c.entries = make([]model.Record, 0, len(entries))
	for _, e := range entries {
		e = e.Clone()
		e.DataDirectory = dataDirectory
		c.entries = append(c.entries, e)
	}
	return c
}

// Load reads <dataDirectory>/metadata.yaml. A missing file is an empty
// catalog. Keys the record type does not know are ignored.
func Load(dataDirectory string, opts ...Option) (*Catalog, error) {
	path := filepath.Join(dataDirectory, Filename)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return New(dataDirectory, nil, opts...), nil
	}
	if err != nil {
		return nil, errclass.IO("read catalog", err)
	}

	var entries []model.Record
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, errclass.IO("parse catalog "+path, err)
	}
	c := New(dataDirectory, entries, opts...)
	c.logger.Debug("loaded catalog", map[string]any{"path": path, "entries": len(entries)})
	return c, nil
}

// Dir returns the data directory the catalog describes.
func (c *Catalog) Dir() string {
	return c.dir
}

// Len returns the number of entries.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Entries returns a copy of all entries in catalog order.
func (c *Catalog) Entries() []model.Record {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]model.Record, len(c.entries))
	for i, e := range c.entries {
		out[i] = e.Clone()
	}
	return out
}

// Matches returns every entry that is a superset of query, in catalog order.
func (c *Catalog) Matches(query model.Record) []model.Record {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []model.Record
	for _, e := range c.entries {
		if IsSupersetOf(e, query) {
			out = append(out, e.Clone())
		}
	}
	return out
}

// Find returns the highest-version entry that is a superset of query; on
// equal versions the first in catalog order wins. With no match the query
// itself is returned, which callers treat as "no entry exists yet".
func (c *Catalog) Find(query model.Record) model.Record {
	matches := c.Matches(query)
	if len(matches) == 0 {
		c.logger.Debug("no catalog entry matches", map[string]any{"query": describe(query)})
		return query
	}
	best := 0
	bestVersion := matches[0].ComparableVersion()
	for i := 1; i < len(matches); i++ {
		v := matches[i].ComparableVersion()
		if bestVersion.Less(v) {
			best, bestVersion = i, v
		}
	}
	for _, m := range matches {
		c.logger.Debug("candidate catalog entry", map[string]any{"entry": describe(m)})
	}
	c.logger.Debug("selected catalog entry", map[string]any{"entry": describe(matches[best])})
	return matches[best]
}

// Add replaces the first entry with the same data product, or appends.
func (c *Catalog) Add(record model.Record) {
	record = record.Clone()
	record.DataDirectory = c.dir

	c.mu.Lock()
	defer c.mu.Unlock()
	for i, e := range c.entries {
		if e.DataProduct == record.DataProduct {
			c.entries[i] = record
			return
		}
	}
	c.entries = append(c.entries, record)
}

// Save writes the catalog back to <dir>/metadata.yaml atomically.
func (c *Catalog) Save() error {
	data, err := codec.MarshalYAML(c.Entries())
	if err != nil {
		return fmt.Errorf("marshal catalog: %w", err)
	}
	if err := fsutil.AtomicWrite(filepath.Join(c.dir, Filename), data, 0644); err != nil {
		return errclass.IO("write catalog", err)
	}
	return nil
}

func describe(r model.Record) string {
	return fmt.Sprintf("data_product=%s component=%s version=%s filename=%s",
		r.DataProduct, r.Component, r.Version, r.Filename)
}
