package model

import (
	"github.com/datapipe-project/datapipe/pkg/errclass"
	"github.com/datapipe-project/datapipe/pkg/pathutil"
	"github.com/datapipe-project/datapipe/pkg/version"
)

// Record describes a data file. Every field is optional: in a query an empty
// field is a wildcard, in a resolved record it is "not applicable".
//
// DataDirectory is infrastructural. It is never serialized and never takes
// part in matching; the session stamps it on catalog entries and queries.
type Record struct {
	Filename       string    `yaml:"filename,omitempty" json:"filename,omitempty"`
	DataDirectory  string    `yaml:"-" json:"-"`
	Version        string    `yaml:"version,omitempty" json:"version,omitempty"`
	Extension      string    `yaml:"extension,omitempty" json:"extension,omitempty"`
	Component      string    `yaml:"component,omitempty" json:"component,omitempty"`
	DataProduct    string    `yaml:"data_product,omitempty" json:"data_product,omitempty"`
	Namespace      string    `yaml:"namespace,omitempty" json:"namespace,omitempty"`
	RunID          string    `yaml:"run_id,omitempty" json:"run_id,omitempty"`
	VerifiedHash   HashValue `yaml:"verified_hash,omitempty" json:"verified_hash,omitempty"`
	CalculatedHash HashValue `yaml:"calculated_hash,omitempty" json:"calculated_hash,omitempty"`
	Source         string    `yaml:"source,omitempty" json:"source,omitempty"`
	Issues         []Issue   `yaml:"issues,omitempty" json:"issues,omitempty"`
	Description    string    `yaml:"description,omitempty" json:"description,omitempty"`
}

// Issue is a known problem attached to a data product.
type Issue struct {
	Description string `yaml:"description" json:"description"`
	Severity    int    `yaml:"severity" json:"severity"`
}

// OverrideRule rewrites records during resolution. A nil Where applies to
// every record; a nil Use contributes nothing.
type OverrideRule struct {
	Where *Record `yaml:"where,omitempty" json:"where,omitempty"`
	Use   *Record `yaml:"use,omitempty" json:"use,omitempty"`
}

// Field names a scalar Record field.
type Field string

const (
	FieldFilename       Field = "filename"
	FieldDataDirectory  Field = "data_directory"
	FieldVersion        Field = "version"
	FieldExtension      Field = "extension"
	FieldComponent      Field = "component"
	FieldDataProduct    Field = "data_product"
	FieldNamespace      Field = "namespace"
	FieldRunID          Field = "run_id"
	FieldVerifiedHash   Field = "verified_hash"
	FieldCalculatedHash Field = "calculated_hash"
	FieldSource         Field = "source"
	FieldDescription    Field = "description"
)

// Get returns the value of a scalar field, "" when unset.
func (r *Record) Get(f Field) string {
	switch f {
	case FieldFilename:
		return r.Filename
	case FieldDataDirectory:
		return r.DataDirectory
	case FieldVersion:
		return r.Version
	case FieldExtension:
		return r.Extension
	case FieldComponent:
		return r.Component
	case FieldDataProduct:
		return r.DataProduct
	case FieldNamespace:
		return r.Namespace
	case FieldRunID:
		return r.RunID
	case FieldVerifiedHash:
		return string(r.VerifiedHash)
	case FieldCalculatedHash:
		return string(r.CalculatedHash)
	case FieldSource:
		return r.Source
	case FieldDescription:
		return r.Description
	}
	return ""
}

// Set assigns a scalar field.
func (r *Record) Set(f Field, v string) {
	switch f {
	case FieldFilename:
		r.Filename = v
	case FieldDataDirectory:
		r.DataDirectory = v
	case FieldVersion:
		r.Version = v
	case FieldExtension:
		r.Extension = v
	case FieldComponent:
		r.Component = v
	case FieldDataProduct:
		r.DataProduct = v
	case FieldNamespace:
		r.Namespace = v
	case FieldRunID:
		r.RunID = v
	case FieldVerifiedHash:
		r.VerifiedHash = HashValue(v)
	case FieldCalculatedHash:
		r.CalculatedHash = HashValue(v)
	case FieldSource:
		r.Source = v
	case FieldDescription:
		r.Description = v
	}
}

// Clone returns a deep copy so callers can rewrite fields without aliasing
// the Issues slice.
func (r Record) Clone() Record {
	if r.Issues != nil {
		r.Issues = append([]Issue(nil), r.Issues...)
	}
	return r
}

// IsEmpty reports whether no field is set.
func (r *Record) IsEmpty() bool {
	return r.Filename == "" && r.DataDirectory == "" && r.Version == "" &&
		r.Extension == "" && r.Component == "" && r.DataProduct == "" &&
		r.Namespace == "" && r.RunID == "" && r.VerifiedHash == "" &&
		r.CalculatedHash == "" && r.Source == "" && len(r.Issues) == 0 &&
		r.Description == ""
}

// ComparableVersion returns the record's version for ordering. An unset
// version is the lowest version, "0".
func (r *Record) ComparableVersion() version.Version {
	if r.Version == "" {
		return version.Parse("0")
	}
	return version.Parse(r.Version)
}

// Path joins DataDirectory and Filename. Absolute filenames are returned
// unchanged.
func (r *Record) Path() (string, error) {
	if r.Filename == "" {
		return "", errclass.RequiredField(string(FieldFilename), "resolve path")
	}
	if r.DataDirectory == "" {
		return "", errclass.RequiredField(string(FieldDataDirectory), "resolve path")
	}
	return pathutil.NormalisePath(r.DataDirectory, r.Filename), nil
}
