// Package audit keeps the access ledger of a session: every resolved read
// and write, in the order they were recorded, written out once at close.
package audit

import "github.com/datapipe-project/datapipe/pkg/model"

// Recorder accumulates access entries for one session.
//
// LogRead and LogWrite may be called from any goroutine until Flush is
// called. Calling them after Flush is a programming error and panics.
type Recorder interface {
	// LogRead appends a read of an already resolved (and hashed) record.
	LogRead(call, resolved model.Record)
	// LogWrite hashes the file behind resolved, without verification, and
	// appends a write carrying the fresh calculated hash.
	LogWrite(call, resolved model.Record) (model.Record, error)
	// UpdateMetadata merges run metadata into the session summary.
	UpdateMetadata(metadata map[string]string)
	// Flush writes the session summary. Only the first call has an effect.
	Flush() error
}

// Noop is the Recorder of a session with its access log disabled.
type Noop struct{}

var _ Recorder = Noop{}

func (Noop) LogRead(model.Record, model.Record) {}

// LogWrite returns resolved unchanged; a disabled ledger reads nothing.
func (Noop) LogWrite(_ model.Record, resolved model.Record) (model.Record, error) {
	return resolved, nil
}

func (Noop) UpdateMetadata(map[string]string) {}

func (Noop) Flush() error { return nil }
