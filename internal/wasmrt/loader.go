package wasmrt

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/nextlevelbuilder/moodang/internal/shellenv"
)

// Loader compiles, caches, and executes guest WebAssembly modules against
// one shared wazero runtime per shell session.
type Loader struct {
	mu      sync.Mutex
	runtime wazero.Runtime
	host    api.Module
	cache   *moduleCache
	logger  *slog.Logger
}

// NewLoader creates a Loader with the given cache capacity (0 for the
// default of 10) and instantiates the host import module once.
func NewLoader(ctx context.Context, cacheCapacity int, logger *slog.Logger) (*Loader, error) {
	if logger == nil {
		logger = slog.Default()
	}
	r := wazero.NewRuntimeWithConfig(ctx, wazero.NewRuntimeConfig().WithCloseOnContextDone(true))
	host, err := instantiateHostModule(ctx, r)
	if err != nil {
		_ = r.Close(ctx)
		return nil, &LoadError{
			Diagnostics: Diagnostics{ModuleName: "env", Operation: "instantiate-host-module"},
			Cause:       err,
		}
	}
	return &Loader{
		runtime: r,
		host:    host,
		cache:   newModuleCache(cacheCapacity),
		logger:  logger,
	}, nil
}

// WatchModuleDir hot-reloads cached modules when their source file under
// dir changes on disk, for local development of guest modules.
func (l *Loader) WatchModuleDir(ctx context.Context, dir string) error {
	return l.cache.watchModuleDir(ctx, dir, l.logger)
}

// Close releases the runtime and every cached compiled module.
func (l *Loader) Close(ctx context.Context) error {
	return l.runtime.Close(ctx)
}

// Load compiles wasmBytes under key (a content hash or the module name),
// returning the cached Module if key was already loaded.
func (l *Loader) Load(ctx context.Context, key string, wasmBytes []byte, cfg Config) (*Module, error) {
	cfg = cfg.WithDefaults()

	if entry, ok := l.cache.get(key); ok {
		return entry.module, nil
	}

	compiled, err := l.runtime.CompileModule(ctx, wasmBytes)
	if err != nil {
		return nil, &LoadError{
			Diagnostics: Diagnostics{ModuleName: cfg.ModuleName, Operation: "compile"},
			Cause:       err,
		}
	}

	exports := make([]string, 0, len(compiled.ExportedFunctions()))
	for name := range compiled.ExportedFunctions() {
		exports = append(exports, name)
	}
	module := &Module{Name: cfg.ModuleName, Exports: exports}

	if evicted := l.cache.put(ctx, &cacheEntry{key: key, compiled: compiled, module: module}); evicted != nil {
		l.logger.Debug("wasm module evicted from cache", "name", evicted.module.Name)
	}
	return module, nil
}

// Unload removes key from the cache and releases its compiled module's
// resources, reporting whether an entry was present.
func (l *Loader) Unload(ctx context.Context, key string) bool {
	entry, ok := l.cache.remove(key)
	if !ok {
		return false
	}
	_ = entry.compiled.Close(ctx)
	return true
}

// Execute instantiates key's module fresh, calls functionName (or resolves
// the dispatch policy when functionName is empty: if ctx.Args[0] matches an
// exported function name, that export runs with the remaining args,
// otherwise DefaultEntryPoint runs with every arg), and returns a Result
// built from the host-side stdout/stderr buffers and exit code.
func (l *Loader) Execute(ctx context.Context, key string, functionName string, execCtx shellenv.ExecutionContext, cfg Config) (Result, error) {
	cfg = cfg.WithDefaults()

	entry, ok := l.cache.get(key)
	if !ok {
		return Result{}, &LoadError{
			Diagnostics: Diagnostics{ModuleName: cfg.ModuleName, Operation: "execute", Args: execCtx.Args},
			Cause:       errModuleNotLoaded,
		}
	}

	args := execCtx.Args
	fn := functionName
	if fn == "" {
		fn = DefaultEntryPoint
		if len(args) > 0 {
			for _, exported := range entry.module.Exports {
				if exported == args[0] {
					fn = args[0]
					args = args[1:]
					break
				}
			}
		}
	}

	modCfg := wazero.NewModuleConfig().WithName(cfg.ModuleName)
	instance, err := l.runtime.InstantiateModule(ctx, entry.compiled, modCfg)
	if err != nil {
		return Result{}, &LoadError{
			Diagnostics: Diagnostics{ModuleName: cfg.ModuleName, Operation: "instantiate", Args: args},
			Cause:       err,
		}
	}
	defer instance.Close(ctx)

	state := &execState{args: args, env: execCtx.Env, stdin: execCtx.Stdin}
	callCtx, cancel := context.WithTimeout(withExecState(ctx, state), time.Duration(cfg.TimeoutMillis)*time.Millisecond)
	defer cancel()

	export := instance.ExportedFunction(fn)
	if export == nil {
		return Result{}, &LoadError{
			Diagnostics: Diagnostics{ModuleName: cfg.ModuleName, Operation: "lookup-export: " + fn, Args: args},
			Cause:       errExportNotFound,
		}
	}

	_, err = export.Call(callCtx)
	diag := Diagnostics{
		ModuleName:     cfg.ModuleName,
		Operation:      "call:" + fn,
		StdoutSnapshot: string(state.stdout),
		StderrSnapshot: string(state.stderr),
		Args:           args,
	}
	if mem := instance.Memory(); mem != nil {
		diag.MemoryUsage = mem.Size()
	}
	if err != nil {
		if callCtx.Err() == context.DeadlineExceeded {
			return Result{}, &TimeoutError{Diagnostics: diag, TimeoutMillis: cfg.TimeoutMillis}
		}
		return Result{}, &LoadError{Diagnostics: diag, Cause: err}
	}
	if diag.MemoryUsage > cfg.MaxMemoryBytes {
		return Result{}, &MemoryError{Diagnostics: diag, LimitBytes: cfg.MaxMemoryBytes}
	}

	return Result{Stdout: string(state.stdout), Stderr: string(state.stderr), ExitCode: state.exitCode}, nil
}
