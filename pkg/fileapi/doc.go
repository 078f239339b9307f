// Package fileapi is the session API of datapipe: it resolves partial
// metadata queries to files in a data directory, checks their integrity and
// records every access in the run's access log.
//
// # Concurrency Safety
//
// An API value may be shared between goroutines. Reads, writes and their
// handles may overlap freely; entries are logged in the order they are
// recorded. Close waits for every in-flight record call before writing the
// access log, and every call after Close fails with E_SESSION_CLOSED.
//
// A WriteHandle that is still open when the session closes is reported as a
// warning and its write is not logged. Always close handles first.
//
// # Usage
//
//	api, err := fileapi.Open("config.yaml", fileapi.Options{})
//	if err != nil {
//	    return err
//	}
//	defer api.Close()
//
//	in, meta, err := api.OpenForRead(model.Record{DataProduct: "human/estimate"})
//	// ... read in, then in.Close()
//
//	out, err := api.OpenForWrite(model.Record{DataProduct: "result", Extension: "csv"})
//	// ... write to out
//	err = out.Close() // hashes the file and records the write
package fileapi
