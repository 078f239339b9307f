// Package color provides terminal color output for the datapipe CLI.
// It respects the NO_COLOR environment variable (https://no-color.org/).
package color

import (
	"os"
	"sync"
	"sync/atomic"

	"github.com/datapipe-project/datapipe/pkg/model"
)

var state struct {
	once       sync.Once
	enabled    atomic.Bool
	overridden atomic.Bool
}

// Init decides whether to color output from the environment and the
// --no-color flag. Only the first call has an effect, and an explicit
// Disable wins over it.
func Init(noColorFlag bool) {
	state.once.Do(func() {
		if state.overridden.Load() {
			return
		}
		_, noColor := os.LookupEnv("NO_COLOR")
		dumb := os.Getenv("TERM") == "dumb"
		state.enabled.Store(!noColor && !dumb && !noColorFlag)
	})
}

// Enabled reports whether color output is enabled.
func Enabled() bool {
	Init(false)
	return state.enabled.Load()
}

// Disable turns off color output.
func Disable() {
	state.overridden.Store(true)
	state.enabled.Store(false)
}

// ANSI codes.
const (
	Reset   = "\033[0m"
	Bold    = "\033[1m"
	DimCode = "\033[2m"
	Red     = "\033[31m"
	Green   = "\033[32m"
	Yellow  = "\033[33m"
	Cyan    = "\033[36m"
)

func wrap(code, s string) string {
	if !Enabled() {
		return s
	}
	return code + s + Reset
}

// Success formats s in green.
func Success(s string) string { return wrap(Green, s) }

// Error formats s in red.
func Error(s string) string { return wrap(Red, s) }

// Warning formats s in yellow.
func Warning(s string) string { return wrap(Yellow, s) }

// Info formats s in cyan.
func Info(s string) string { return wrap(Cyan, s) }

// Header formats s in bold.
func Header(s string) string { return wrap(Bold, s) }

// Dim formats secondary information.
func Dim(s string) string { return wrap(DimCode, s) }

// Hash formats a hash value in its short form.
func Hash(h model.HashValue) string {
	if h == "" {
		return Dim("-")
	}
	return Info(h.Short())
}

// State formats an integrity state by severity.
func State(s model.IntegrityState) string {
	switch s {
	case model.IntegrityVerified:
		return Success(string(s))
	case model.IntegrityTampered, model.IntegrityMissing:
		return Error(string(s))
	}
	return Warning(string(s))
}
