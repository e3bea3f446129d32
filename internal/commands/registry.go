package commands

import (
	"sort"
	"strings"
	"sync"

	"github.com/nextlevelbuilder/moodang/internal/shellenv"
)

// Registry maps command names to implementations, mirroring the teacher's
// session-manager pattern of a mutex-guarded map rather than a global
// table.
type Registry struct {
	mu       sync.RWMutex
	commands map[string]Command
}

// NewRegistry returns a Registry seeded with every built-in.
func NewRegistry() *Registry {
	r := &Registry{commands: make(map[string]Command)}
	for _, c := range builtins(r) {
		r.Register(c)
	}
	return r
}

// Register adds or replaces a command under its own Name().
func (r *Registry) Register(c Command) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands[c.Name()] = c
}

// Lookup returns the command registered under name, if any.
func (r *Registry) Lookup(name string) (Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.commands[name]
	return c, ok
}

// Names returns every registered command name, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.commands))
	for name := range r.commands {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// ResolvePath searches PATH (colon-separated) for name, probing dir/name in
// each entry in order and returning the first that exists in the VFS. A
// name containing "/" is probed directly against the VFS instead.
func ResolvePath(fs interface {
	Exists(path string) bool
}, pathVar, name string) (string, bool) {
	if strings.Contains(name, "/") {
		if fs.Exists(name) {
			return name, true
		}
		return "", false
	}
	for _, dir := range strings.Split(pathVar, ":") {
		if dir == "" {
			continue
		}
		candidate := strings.TrimSuffix(dir, "/") + "/" + name
		if fs.Exists(candidate) {
			return candidate, true
		}
	}
	return "", false
}

// Run dispatches to a registered built-in, or falls back to PATH
// resolution producing a stub result for an external command. A name that
// is neither registered nor found on PATH yields exit 127.
func (r *Registry) Run(env *shellenv.Environment, ctx shellenv.ExecutionContext) CommandResult {
	if len(ctx.Args) == 0 {
		return CommandResult{ExitCode: 0}
	}
	name := ctx.Args[0]
	if c, ok := r.Lookup(name); ok {
		return c.Run(env, ctx)
	}
	if _, ok := ResolvePath(env.VFS(), ctx.Env["PATH"], name); ok {
		// A resolved external path has no executor in this core: the
		// result is an empty exit-0 stub. The WASM loader (internal/wasmrt)
		// does not register commands into the Registry.
		return CommandResult{ExitCode: 0}
	}
	return CommandResult{Stderr: "Command not found: " + name + "\n", ExitCode: 127}
}
