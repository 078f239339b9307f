// Package config loads the per-run configuration of a datapipe session.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/datapipe-project/datapipe/internal/integrity"
	"github.com/datapipe-project/datapipe/pkg/codec"
	"github.com/datapipe-project/datapipe/pkg/errclass"
	"github.com/datapipe-project/datapipe/pkg/fsutil"
	"github.com/datapipe-project/datapipe/pkg/logging"
	"github.com/datapipe-project/datapipe/pkg/model"
)

// DefaultAccessLog is the access log path template used when none is configured.
const DefaultAccessLog = "access-{run_id}.yaml"

// Config represents a datapipe run configuration. It is immutable once loaded.
type Config struct {
	RunID             string               `yaml:"run_id,omitempty"`
	DataDirectoryPath string               `yaml:"data_directory,omitempty"`
	RunMetadata       map[string]string    `yaml:"run_metadata,omitempty"`
	AccessLog         AccessLog            `yaml:"access_log,omitempty"`
	FailOnMismatch    *bool                `yaml:"fail_on_hash_mismatch,omitempty"`
	Read              []model.OverrideRule `yaml:"read,omitempty"`
	Write             []model.OverrideRule `yaml:"write,omitempty"`
	LogLevel          string               `yaml:"log_level,omitempty"`
	MetricsTextfile   string               `yaml:"metrics_textfile,omitempty"`

	baseDir string
	raw     []byte
}

// AccessLog is the access_log setting: a path template, or false to
// disable the ledger entirely.
type AccessLog struct {
	Disabled bool
	Path     string
}

// UnmarshalYAML accepts a boolean, the string "false", or a path template.
func (a *AccessLog) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.ScalarNode {
		return errclass.ErrUnsupportedPattern.WithMessagef("access_log must be a path or false (line %d)", n.Line)
	}
	if n.ShortTag() == "!!bool" {
		var enabled bool
		if err := n.Decode(&enabled); err != nil {
			return err
		}
		*a = AccessLog{Disabled: !enabled}
		return nil
	}
	if strings.EqualFold(n.Value, "false") {
		*a = AccessLog{Disabled: true}
		return nil
	}
	*a = AccessLog{Path: n.Value}
	return nil
}

// MarshalYAML writes false for a disabled log and the template otherwise.
func (a AccessLog) MarshalYAML() (any, error) {
	if a.Disabled {
		return false, nil
	}
	if a.Path == "" {
		return nil, nil
	}
	return a.Path, nil
}

// IsZero reports whether the setting was left at its default.
func (a AccessLog) IsZero() bool {
	return !a.Disabled && a.Path == ""
}

// Default returns the default configuration, rooted at the working directory.
func Default() *Config {
	return &Config{baseDir: "."}
}

// Load loads configuration from path. YAML and TOML are chosen by extension.
// An empty path returns the default configuration.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	cfg := Default()
	raw, err := codec.ReadFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	cfg.raw = raw
	cfg.baseDir = filepath.Dir(path)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes a configuration document. Relative paths in it resolve
// against baseDir.
func Parse(format codec.Format, data []byte, baseDir string) (*Config, error) {
	cfg := Default()
	if err := codec.Decode(format, data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.raw = append([]byte(nil), data...)
	if baseDir != "" {
		cfg.baseDir = baseDir
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg as YAML to path.
func Save(path string, cfg *Config) error {
	data, err := codec.MarshalYAML(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := fsutil.AtomicWrite(path, data, 0644); err != nil {
		return errclass.IO("write config", err)
	}
	return nil
}

// Validate rejects rule shapes and settings the resolver cannot act on.
func (c *Config) Validate() error {
	if err := validateRules("read", c.Read); err != nil {
		return err
	}
	if err := validateRules("write", c.Write); err != nil {
		return err
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return errclass.ErrUnsupportedPattern.WithMessage(err.Error())
	}
	return nil
}

func validateRules(kind string, rules []model.OverrideRule) error {
	for i, r := range rules {
		if r.Where == nil && r.Use == nil {
			return errclass.ErrUnsupportedPattern.WithMessagef("%s rule %d has neither where nor use", kind, i)
		}
	}
	return nil
}

// BaseDir is the directory relative paths are resolved against.
func (c *Config) BaseDir() string {
	return c.baseDir
}

// Raw returns the bytes the configuration was loaded from.
func (c *Config) Raw() []byte {
	return c.raw
}

// DataDirectory returns the normalised data directory. The top-level
// data_directory wins over run_metadata.data_directory; the default is the
// config file's directory.
func (c *Config) DataDirectory() string {
	dir := c.DataDirectoryPath
	if dir == "" {
		dir = c.RunMetadata["data_directory"]
	}
	if dir == "" {
		dir = "."
	}
	return c.resolve(dir)
}

// FailOnHashMismatch reports whether reads must fail on a hash mismatch.
// Defaults to true.
func (c *Config) FailOnHashMismatch() bool {
	if c.FailOnMismatch == nil {
		return true
	}
	return *c.FailOnMismatch
}

// AccessLogDisabled reports whether the session skips the ledger.
func (c *Config) AccessLogDisabled() bool {
	return c.AccessLog.Disabled
}

// AccessLogPath returns where the ledger for runID is written, or "" when
// the ledger is disabled.
func (c *Config) AccessLogPath(runID string) string {
	if c.AccessLog.Disabled {
		return ""
	}
	tmpl := c.AccessLog.Path
	if tmpl == "" {
		tmpl = DefaultAccessLog
	}
	return c.resolve(strings.ReplaceAll(tmpl, "{run_id}", runID))
}

// MetricsPath returns the resolved metrics textfile path, or "".
func (c *Config) MetricsPath() string {
	if c.MetricsTextfile == "" {
		return ""
	}
	return c.resolve(c.MetricsTextfile)
}

// ResolveRunID returns the configured run id, or derives one from the
// config bytes and the session open time.
func (c *Config) ResolveRunID(opened time.Time) string {
	if c.RunID != "" {
		return c.RunID
	}
	return integrity.RunHash(c.raw, opened).String()
}

func (c *Config) resolve(p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(c.baseDir, filepath.FromSlash(p))
}
