// Package doctor diagnoses a datapipe setup: configuration, data directory,
// catalog consistency and leftovers of interrupted writes.
package doctor

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/datapipe-project/datapipe/internal/catalog"
	"github.com/datapipe-project/datapipe/internal/verify"
	"github.com/datapipe-project/datapipe/pkg/config"
	"github.com/datapipe-project/datapipe/pkg/fsutil"
	"github.com/datapipe-project/datapipe/pkg/pathutil"
)

// Finding represents a detected issue.
type Finding struct {
	Category    string `json:"category"`
	Description string `json:"description"`
	Severity    string `json:"severity"`
	Path        string `json:"path,omitempty"`
}

// Result contains doctor check results.
type Result struct {
	Healthy  bool      `json:"healthy"`
	Findings []Finding `json:"findings"`
}

func (r *Result) add(f Finding) {
	if f.Severity == "critical" {
		r.Healthy = false
	}
	r.Findings = append(r.Findings, f)
}

// Doctor performs health checks for one configuration.
type Doctor struct {
	cfg *config.Config
}

// NewDoctor creates a new doctor.
func NewDoctor(cfg *config.Config) *Doctor {
	return &Doctor{cfg: cfg}
}

// Check runs all diagnostic checks. With strict set every hash-carrying
// catalog entry is also re-hashed.
func (d *Doctor) Check(ctx context.Context, strict bool) (*Result, error) {
	result := &Result{Healthy: true, Findings: []Finding{}}

	if !d.checkDataDirectory(result) {
		return result, nil
	}
	cat := d.checkCatalog(result)
	d.checkAccessLogDirectory(result)
	if strict && cat != nil {
		if err := d.checkIntegrity(ctx, cat, result); err != nil {
			return nil, err
		}
	}
	d.checkOrphanTmp(result)
	return result, nil
}

func (d *Doctor) checkDataDirectory(result *Result) bool {
	dir := d.cfg.DataDirectory()
	info, err := os.Stat(dir)
	switch {
	case err != nil:
		result.add(Finding{
			Category:    "data_directory",
			Description: fmt.Sprintf("data directory unreadable: %v", err),
			Severity:    "critical",
			Path:        dir,
		})
		return false
	case !info.IsDir():
		result.add(Finding{
			Category:    "data_directory",
			Description: "data directory is not a directory",
			Severity:    "critical",
			Path:        dir,
		})
		return false
	}
	return true
}

func (d *Doctor) checkCatalog(result *Result) *catalog.Catalog {
	dir := d.cfg.DataDirectory()
	path := filepath.Join(dir, catalog.Filename)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		result.add(Finding{
			Category:    "catalog",
			Description: "no catalog; every read needs an explicit filename",
			Severity:    "info",
			Path:        path,
		})
	}

	cat, err := catalog.Load(dir)
	if err != nil {
		result.add(Finding{
			Category:    "catalog",
			Description: fmt.Sprintf("catalog cannot be parsed: %v", err),
			Severity:    "critical",
			Path:        path,
		})
		return nil
	}

	seen := map[string]int{}
	for i, e := range cat.Entries() {
		label := fmt.Sprintf("entry %d (%s)", i, e.DataProduct)
		if e.Filename == "" {
			result.add(Finding{
				Category:    "catalog",
				Description: label + " has no filename and can never be read",
				Severity:    "warning",
			})
			continue
		}
		if e.Extension != "" {
			if err := pathutil.ValidateExtension(e.Extension); err != nil {
				result.add(Finding{
					Category:    "catalog",
					Description: fmt.Sprintf("%s has an invalid extension: %v", label, err),
					Severity:    "warning",
				})
			}
		}
		p, err := e.Path()
		if err == nil && !filepath.IsAbs(e.Filename) {
			if err := pathutil.ValidatePathSafety(dir, p); err != nil {
				result.add(Finding{
					Category:    "catalog",
					Description: fmt.Sprintf("%s points outside the data directory", label),
					Severity:    "error",
					Path:        p,
				})
			}
		}
		key := e.Namespace + "\x00" + e.DataProduct + "\x00" + e.Component + "\x00" + e.Version
		if first, dup := seen[key]; dup {
			result.add(Finding{
				Category:    "catalog",
				Description: fmt.Sprintf("%s duplicates entry %d; the earlier entry always wins", label, first),
				Severity:    "warning",
			})
			continue
		}
		seen[key] = i
	}
	return cat
}

func (d *Doctor) checkAccessLogDirectory(result *Result) {
	if d.cfg.AccessLogDisabled() {
		return
	}
	dir := filepath.Dir(d.cfg.AccessLogPath("run"))
	info, err := os.Stat(dir)
	if err == nil && !info.IsDir() {
		result.add(Finding{
			Category:    "access_log",
			Description: "access log location is not a directory",
			Severity:    "critical",
			Path:        dir,
		})
	}
}

func (d *Doctor) checkIntegrity(ctx context.Context, cat *catalog.Catalog, result *Result) error {
	results, err := verify.NewVerifier(cat, nil, 0).VerifyAll(ctx)
	if err != nil {
		return err
	}
	for _, r := range results {
		if r.Severity == "" {
			continue
		}
		result.add(Finding{
			Category:    "integrity",
			Description: fmt.Sprintf("%s: %s", r.DataProduct, r.Error),
			Severity:    r.Severity,
			Path:        r.Filename,
		})
	}
	return nil
}

func (d *Doctor) checkOrphanTmp(result *Result) {
	_ = filepath.WalkDir(d.cfg.DataDirectory(), func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if strings.HasPrefix(entry.Name(), fsutil.TempPrefix) {
			result.add(Finding{
				Category:    "tmp",
				Description: fmt.Sprintf("orphan temp file: %s", entry.Name()),
				Severity:    "info",
				Path:        path,
			})
		}
		return nil
	})
}
