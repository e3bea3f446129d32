// Package wasmrt compiles, caches, and executes guest WebAssembly modules
// on top of wazero, exposing the shell's host import ABI to every guest and
// enforcing the memory and timeout limits commands are built against.
package wasmrt

import (
	"errors"
	"fmt"

	"github.com/nextlevelbuilder/moodang/internal/commands"
)

var (
	errModuleNotLoaded = errors.New("module not loaded: call Load before Execute")
	errExportNotFound  = errors.New("exported function not found")
)

const (
	// DefaultMaxMemoryBytes is the default per-module memory ceiling (32 MiB).
	DefaultMaxMemoryBytes = 32 * 1024 * 1024
	// DefaultTimeoutMillis is the default per-call execution timeout.
	DefaultTimeoutMillis = 15000
	// DefaultCacheCapacity is the default LRU module cache size.
	DefaultCacheCapacity = 10
	// DefaultEntryPoint is the exported function invoked when the caller's
	// first positional argument does not match any export.
	DefaultEntryPoint = "main"

	wasmPageSize = 65536
)

// Config configures one module load.
type Config struct {
	ModuleName     string
	MaxMemoryBytes uint32
	TimeoutMillis  int
	Debug          bool
}

// WithDefaults fills zero-valued fields with the documented defaults.
func (c Config) WithDefaults() Config {
	if c.MaxMemoryBytes == 0 {
		c.MaxMemoryBytes = DefaultMaxMemoryBytes
	}
	if c.TimeoutMillis == 0 {
		c.TimeoutMillis = DefaultTimeoutMillis
	}
	return c
}

// Diagnostics is attached to every error this package returns, giving a
// caller enough context for a post-mortem without re-running the module.
type Diagnostics struct {
	ModuleName     string
	Operation      string
	StdoutSnapshot string
	StderrSnapshot string
	MemoryUsage    uint32
	Args           []string
}

// LoadError reports a failure compiling or instantiating a module.
type LoadError struct {
	Diagnostics
	Cause error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load error in %s during %s: %v", e.ModuleName, e.Operation, e.Cause)
}

func (e *LoadError) Unwrap() error { return e.Cause }

// TimeoutError reports execution exceeding the configured timeout.
type TimeoutError struct {
	Diagnostics
	TimeoutMillis int
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timeout error in %s: exceeded %dms", e.ModuleName, e.TimeoutMillis)
}

// MemoryError reports memory usage beyond the module's configured limit.
type MemoryError struct {
	Diagnostics
	LimitBytes uint32
}

func (e *MemoryError) Error() string {
	return fmt.Sprintf("memory error in %s: usage %d exceeds limit %d", e.ModuleName, e.MemoryUsage, e.LimitBytes)
}

// Module is a compiled, cached guest module.
type Module struct {
	Name    string
	Exports []string
}

// execState carries one call's argument/environment/stdin/output buffers,
// threaded through context.Context so the host import closures (registered
// once per Loader) can reach the call that is currently in flight.
type execState struct {
	args     []string
	env      map[string]string
	stdin    string
	stdout   []byte
	stderr   []byte
	exitCode int
}

// Result is what Execute returns, convertible to commands.CommandResult.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// AsCommandResult adapts Result to the shared CommandResult shape used by
// the registry and pipeline engine.
func (r Result) AsCommandResult() commands.CommandResult {
	return commands.CommandResult{Stdout: r.Stdout, Stderr: r.Stderr, ExitCode: r.ExitCode}
}
