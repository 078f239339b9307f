// Package codec maps catalog, config and ledger documents to and from their
// on-disk structured-text form. YAML is the native format; TOML input is
// accepted for configuration files and normalised through the YAML decoder
// so both formats obey the same strict field rules.
package codec

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/datapipe-project/datapipe/pkg/errclass"
)

// Format identifies a structured-text encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// FormatForPath picks the format from a file extension.
func FormatForPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	}
	return "", errclass.ErrFormatUnsupported.WithMessagef("no codec for %q", path)
}

// Decode parses data into v, rejecting keys that v does not declare.
// Syntax errors are classed E_IO_FAILURE; unknown keys and type mismatches
// are classed E_UNSUPPORTED_PATTERN. An empty document leaves v untouched.
func Decode(format Format, data []byte, v any) error {
	switch format {
	case FormatYAML:
		return decodeYAML(data, v)
	case FormatTOML:
		var generic map[string]any
		if err := toml.Unmarshal(data, &generic); err != nil {
			return errclass.IO("parse toml", err)
		}
		if len(generic) == 0 {
			return nil
		}
		normalised, err := yaml.Marshal(generic)
		if err != nil {
			return errclass.IO("normalise toml", err)
		}
		return decodeYAML(normalised, v)
	}
	return errclass.ErrFormatUnsupported.WithMessagef("unknown format %q", format)
}

func decodeYAML(data []byte, v any) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	err := dec.Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	var classed *errclass.Error
	if errors.As(err, &classed) {
		return err
	}
	var typeErr *yaml.TypeError
	if errors.As(err, &typeErr) {
		return errclass.ErrUnsupportedPattern.WithMessage(strings.Join(typeErr.Errors, "; "))
	}
	return errclass.IO("parse yaml", err)
}

// ReadFile decodes the file at path, choosing the format by extension.
func ReadFile(path string, v any) ([]byte, error) {
	format, err := FormatForPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errclass.IO("read "+path, err)
	}
	if err := Decode(format, data, v); err != nil {
		return data, fmt.Errorf("%s: %w", path, err)
	}
	return data, nil
}

// EncodeYAML writes v as a single YAML document with two-space indentation.
func EncodeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	return enc.Close()
}

// MarshalYAML is EncodeYAML into a byte slice.
func MarshalYAML(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := EncodeYAML(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
