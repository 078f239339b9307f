package model

import "time"

// AccessType identifies the kind of recorded file access.
type AccessType string

const (
	AccessRead  AccessType = "read"
	AccessWrite AccessType = "write"
)

// AccessEntry is a single resolved read or write. Entries are immutable once
// appended to a ledger.
type AccessEntry struct {
	Type           AccessType `yaml:"type" json:"type"`
	Timestamp      time.Time  `yaml:"timestamp" json:"timestamp"`
	CallMetadata   Record     `yaml:"callMetadata" json:"callMetadata"`
	AccessMetadata Record     `yaml:"accessMetadata" json:"accessMetadata"`
}

// AccessLog is the session summary written once at session close.
type AccessLog struct {
	DataDirectory  string            `yaml:"data_directory" json:"data_directory"`
	OpenTimestamp  time.Time         `yaml:"open_timestamp" json:"open_timestamp"`
	CloseTimestamp time.Time         `yaml:"close_timestamp" json:"close_timestamp"`
	RunID          string            `yaml:"run_id" json:"run_id"`
	Config         any               `yaml:"config,omitempty" json:"config,omitempty"`
	IO             []AccessEntry     `yaml:"io" json:"io"`
	Metadata       map[string]string `yaml:"metadata,omitempty" json:"metadata,omitempty"`
}
