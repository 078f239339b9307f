// Package integrity computes and checks content hashes of data files.
package integrity

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/datapipe-project/datapipe/pkg/model"
)

// FileHash computes the SHA-1 of the raw bytes at path, streaming the file.
// It also returns the number of bytes hashed.
func FileHash(path string) (model.HashValue, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()
	return ReaderHash(f)
}

// ReaderHash computes the SHA-1 of everything readable from r.
func ReaderHash(r io.Reader) (model.HashValue, int64, error) {
	h := sha1.New()
	n, err := io.Copy(h, r)
	if err != nil {
		return "", n, fmt.Errorf("read file: %w", err)
	}
	return model.HashValue(hex.EncodeToString(h.Sum(nil))), n, nil
}

// RunHash derives a run identifier from config file bytes and the session
// open time, so byte-identical configs still get distinct ids per run.
func RunHash(config []byte, opened time.Time) model.HashValue {
	h := sha1.New()
	h.Write(config)
	h.Write([]byte(opened.UTC().Format(time.RFC3339Nano)))
	return model.HashValue(hex.EncodeToString(h.Sum(nil)))
}
