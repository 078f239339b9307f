package fileapi

import (
	"os"
	"sync"

	"github.com/datapipe-project/datapipe/pkg/errclass"
	"github.com/datapipe-project/datapipe/pkg/model"
)

// WriteHandle is an open destination returned by OpenForWrite. Closing it
// hashes the file and records the write.
type WriteHandle struct {
	id       string
	api      *API
	file     *os.File
	call     model.Record
	resolved model.Record

	once     sync.Once
	closeErr error
}

// ID returns the handle's unique id.
func (h *WriteHandle) ID() string { return h.id }

// Name returns the path of the destination file.
func (h *WriteHandle) Name() string { return h.file.Name() }

// Metadata returns the resolved record. After Close it carries the
// calculated hash of the written content.
func (h *WriteHandle) Metadata() model.Record { return h.resolved.Clone() }

func (h *WriteHandle) Write(p []byte) (int, error) {
	return h.file.Write(p)
}

func (h *WriteHandle) WriteString(s string) (int, error) {
	return h.file.WriteString(s)
}

// Close closes the file and records the write. Only the first call has an
// effect; later calls return its result.
func (h *WriteHandle) Close() error {
	h.once.Do(func() {
		defer h.api.release(h)
		if err := h.file.Close(); err != nil {
			h.closeErr = errclass.IO("close "+h.file.Name(), err)
			return
		}
		resolved, err := h.api.RecordWrite(h.call, h.resolved)
		if err != nil {
			h.closeErr = err
			return
		}
		h.resolved = resolved
	})
	return h.closeErr
}
