// Package gbnfconfig holds process-wide tunables read once at init from
// the environment: a set of exported vars populated by LoadConfig,
// re-readable at any time (tests call LoadConfig again after mutating
// the environment).
package gbnfconfig

import (
	"os"
	"strconv"
	"strings"
)

var (
	// Debug is set via GBNF_DEBUG in the environment. It lowers the
	// default slog level to slog.LevelDebug so callers see debug output.
	Debug bool
	// Trace is set via GBNF_TRACE in the environment. It's a finer knob
	// than Debug: Debug just turns on slog.LevelDebug, Trace additionally
	// enables logutil.LevelTrace, which is noisy enough (one line per
	// accepted or rejected token) that it needs its own switch.
	Trace bool
	// StackArenaCapacity is set via GBNF_STACK_ARENA_CAPACITY. It is the
	// number of free nodes the engine's stack-clone pool is prewarmed
	// with; the pool grows on demand whatever the value, and 0 means no
	// prewarming.
	StackArenaCapacity int
	// MaxAnyFanout is set via GBNF_MAX_ANY_FANOUT. It bounds how many
	// vocabulary leaves the enumerator will expand under a bare <any!>
	// frame before logging a warning and continuing; it exists because
	// <any!> enumeration is, by construction, a full vocabulary scan, and
	// a host embedding this module wants to know when that's happening
	// against an unexpectedly large V. It is a safety valve, not a
	// correctness bound: enumeration still returns the full, correct set.
	MaxAnyFanout int
)

// EnvVar describes one tunable for diagnostic listing.
type EnvVar struct {
	Name        string
	Value       any
	Description string
}

// AsMap returns every tunable this package recognizes, keyed by its
// environment variable name.
func AsMap() map[string]EnvVar {
	return map[string]EnvVar{
		"GBNF_DEBUG": {"GBNF_DEBUG", Debug, "Enable debug-level logging (e.g. GBNF_DEBUG=1)"},
		"GBNF_TRACE": {"GBNF_TRACE", Trace, "Enable TRACE-level logging (token accept/reject)"},
		"GBNF_STACK_ARENA_CAPACITY": {
			"GBNF_STACK_ARENA_CAPACITY", StackArenaCapacity,
			"Frames preallocated in the enumerator's stack-clone pool, which grows on demand (default 0: none)",
		},
		"GBNF_MAX_ANY_FANOUT": {
			"GBNF_MAX_ANY_FANOUT", MaxAnyFanout,
			"Soft cap on <any!> leaves expanded before a warning is logged (default 0: no warning)",
		},
	}
}

func clean(key string) string {
	return strings.Trim(os.Getenv(key), "\"' ")
}

func init() {
	LoadConfig()
}

// LoadConfig (re-)populates every tunable from the current environment. It
// is called once at package init and may be called again, e.g. by tests
// that manipulate os.Setenv between cases.
func LoadConfig() {
	Debug = false
	if d := clean("GBNF_DEBUG"); d != "" {
		if v, err := strconv.ParseBool(d); err == nil {
			Debug = v
		} else {
			Debug = true
		}
	}

	Trace = false
	if t := clean("GBNF_TRACE"); t != "" {
		if v, err := strconv.ParseBool(t); err == nil {
			Trace = v
		} else {
			Trace = true
		}
	}

	StackArenaCapacity = 0
	if c := clean("GBNF_STACK_ARENA_CAPACITY"); c != "" {
		if v, err := strconv.Atoi(c); err == nil && v >= 0 {
			StackArenaCapacity = v
		}
	}

	MaxAnyFanout = 0
	if f := clean("GBNF_MAX_ANY_FANOUT"); f != "" {
		if v, err := strconv.Atoi(f); err == nil && v >= 0 {
			MaxAnyFanout = v
		}
	}
}
