package shellenv

import (
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/nextlevelbuilder/moodang/internal/vfs"
)

var nameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// TransitionListener is notified whenever a process changes status. Errors
// from one listener are logged by the caller and never propagate to others.
type TransitionListener func(ProcessInfo)

const historyLimit = 500

// Environment owns working directory, environment variables, shell
// options, and the process table for one shell session. All mutation
// happens on the single worker goroutine that owns it; the mutex exists so
// read-only snapshot queries from other goroutines (e.g. a dispatcher
// handling concurrent connections against shared session state) stay safe,
// not because the shell itself is multi-threaded.
type Environment struct {
	mu sync.Mutex

	vfs *vfs.FS

	env map[string]string

	options Options

	processes map[int]*ProcessInfo
	nextPID   int

	admission *rate.Limiter

	listeners   []TransitionListener
	listenerSeq int

	history []string
	aliases map[string]string
}

// New creates an Environment backed by fs, with the main-shell defaults.
func New(fs *vfs.FS, options Options) *Environment {
	e := &Environment{
		vfs:       fs,
		processes: make(map[int]*ProcessInfo),
		nextPID:   1,
		options:   options,
		aliases:   make(map[string]string),
		admission: rate.NewLimiter(rate.Limit(20), max(options.MaxProcesses, 1)),
	}
	e.env = defaultEnv(fs.GetCurrentDirectory())
	return e
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func defaultEnv(pwd string) map[string]string {
	return map[string]string{
		"HOME":    "/home/user",
		"USER":    "user",
		"SHELL":   "/bin/moo-dang",
		"PATH":    "/bin:/usr/bin:/usr/local/bin:/wasm",
		"PWD":     pwd,
		"TERM":    "moo-dang-web",
		"LANG":    "en_US.UTF-8",
		"LC_ALL":  "en_US.UTF-8",
		"COLUMNS": "80",
		"LINES":   "24",
	}
}

// Snapshot returns an immutable copy of working directory, env vars, and
// options.
func (e *Environment) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	envCopy := make(map[string]string, len(e.env))
	for k, v := range e.env {
		envCopy[k] = v
	}
	return Snapshot{
		WorkingDirectory: e.vfs.GetCurrentDirectory(),
		Env:              envCopy,
		Options:          e.options,
	}
}

// WorkingDirectory returns the current working directory.
func (e *Environment) WorkingDirectory() string {
	return e.vfs.GetCurrentDirectory()
}

// EnvMap returns a copy of the environment variable map, safe for a caller
// to mutate.
func (e *Environment) EnvMap() map[string]string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[string]string, len(e.env))
	for k, v := range e.env {
		out[k] = v
	}
	return out
}

// ChangeDirectory validates path via the VFS and updates PWD.
func (e *Environment) ChangeDirectory(path string) (string, error) {
	newDir, err := e.vfs.ChangeDirectory(path)
	if err != nil {
		return "", err
	}
	e.mu.Lock()
	e.env["PWD"] = newDir
	e.mu.Unlock()
	return newDir, nil
}

// SetEnvironmentVariable validates name and sets it. Values are not
// trimmed; names are trimmed before validation.
func (e *Environment) SetEnvironmentVariable(name, value string) error {
	name = strings.TrimSpace(name)
	if !nameRe.MatchString(name) {
		return ErrInvalidName
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.env[name] = value
	return nil
}

// UnsetEnvironmentVariable sets the variable to the empty string (the
// chosen resolution for the reference's ambiguous "unset" semantics — see
// SPEC_FULL.md Open Question decisions). It still validates the name.
func (e *Environment) UnsetEnvironmentVariable(name string) error {
	if !nameRe.MatchString(name) {
		return ErrInvalidName
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.env[name] = ""
	return nil
}

// SetTerminalSize updates COLUMNS/LINES.
func (e *Environment) SetTerminalSize(columns, lines int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.env["COLUMNS"] = strconv.Itoa(columns)
	e.env["LINES"] = strconv.Itoa(lines)
}

// CreateExecutionContext returns a fresh ExecutionContext with the next
// PID. The PID counter increments monotonically and is never reused.
func (e *Environment) CreateExecutionContext(stdin string, args []string) ExecutionContext {
	e.mu.Lock()
	defer e.mu.Unlock()
	pid := e.nextPID
	e.nextPID++
	envCopy := make(map[string]string, len(e.env))
	for k, v := range e.env {
		envCopy[k] = v
	}
	return ExecutionContext{
		WorkingDirectory: e.vfs.GetCurrentDirectory(),
		Env:              envCopy,
		Stdin:            stdin,
		Args:             args,
		PID:              pid,
	}
}

// StartProcess admits a new process into the table. It refuses with
// ErrProcessLimitReached both when the token-bucket admission limiter is
// exhausted (smoothing request bursts) and when the table is at capacity
// (the hard invariant from the data model).
func (e *Environment) StartProcess(command string, ctx ExecutionContext) error {
	if !e.admission.Allow() {
		return ErrProcessLimitReached
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.processes) >= e.options.MaxProcesses {
		return ErrProcessLimitReached
	}
	e.processes[ctx.PID] = &ProcessInfo{
		ID:      ctx.PID,
		Command: command,
		Start:   time.Now(),
		Context: ctx,
		Status:  StatusRunning,
	}
	return nil
}

// OnTransition registers a listener invoked whenever a process completes,
// fails, or is killed. It returns an unsubscribe handle.
func (e *Environment) OnTransition(fn TransitionListener) (unsubscribe func()) {
	e.mu.Lock()
	id := e.listenerSeq
	e.listenerSeq++
	e.listeners = append(e.listeners, fn)
	idx := len(e.listeners) - 1
	e.mu.Unlock()

	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		if idx < len(e.listeners) && e.listeners[idx] != nil {
			e.listeners[idx] = nil
		}
		_ = id
	}
}

func (e *Environment) notify(info ProcessInfo) {
	e.mu.Lock()
	listeners := make([]TransitionListener, len(e.listeners))
	copy(listeners, e.listeners)
	e.mu.Unlock()
	for _, l := range listeners {
		if l != nil {
			l(info)
		}
	}
}

// CompleteProcess transitions pid to completed or failed based on exitCode,
// notifies listeners, and schedules removal from the table after ~1s so a
// brief status query still succeeds.
func (e *Environment) CompleteProcess(pid int, exitCode int) {
	e.mu.Lock()
	p, ok := e.processes[pid]
	if !ok {
		e.mu.Unlock()
		return
	}
	if exitCode == 0 {
		p.Status = StatusCompleted
	} else {
		p.Status = StatusFailed
	}
	info := *p
	e.mu.Unlock()

	e.notify(info)
	time.AfterFunc(time.Second, func() { e.retire(pid) })
}

// KillProcess transitions pid to killed if it is currently running,
// schedules removal after ~500ms, and reports whether a transition
// occurred.
func (e *Environment) KillProcess(pid int) bool {
	e.mu.Lock()
	p, ok := e.processes[pid]
	if !ok || p.Status != StatusRunning {
		e.mu.Unlock()
		return false
	}
	p.Status = StatusKilled
	info := *p
	e.mu.Unlock()

	e.notify(info)
	time.AfterFunc(500*time.Millisecond, func() { e.retire(pid) })
	return true
}

func (e *Environment) retire(pid int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.processes, pid)
}

// Process looks up one process-table entry.
func (e *Environment) Process(pid int) (ProcessInfo, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, ok := e.processes[pid]
	if !ok {
		return ProcessInfo{}, false
	}
	return *p, true
}

// ListProcesses returns a snapshot of every tracked process.
func (e *Environment) ListProcesses() []ProcessInfo {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]ProcessInfo, 0, len(e.processes))
	for _, p := range e.processes {
		out = append(out, *p)
	}
	return out
}

// PushHistory appends an accepted command line to the bounded history ring
// buffer, trimming the oldest entry once historyLimit is exceeded.
func (e *Environment) PushHistory(line string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.history = append(e.history, line)
	if len(e.history) > historyLimit {
		e.history = e.history[len(e.history)-historyLimit:]
	}
}

// History returns a copy of the recorded command history, oldest first.
func (e *Environment) History() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, len(e.history))
	copy(out, e.history)
	return out
}

// SetAlias records a name -> expansion mapping. The alias table is read by
// the alias and type built-ins; command lines are not rewritten with it
// before parsing or execution.
func (e *Environment) SetAlias(name, expansion string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.aliases[name] = expansion
}

// RemoveAlias deletes an alias, reporting whether it existed.
func (e *Environment) RemoveAlias(name string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.aliases[name]; !ok {
		return false
	}
	delete(e.aliases, name)
	return true
}

// Alias looks up one alias expansion.
func (e *Environment) Alias(name string) (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	v, ok := e.aliases[name]
	return v, ok
}

// Aliases returns a copy of the alias table.
func (e *Environment) Aliases() map[string]string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[string]string, len(e.aliases))
	for k, v := range e.aliases {
		out[k] = v
	}
	return out
}

// VFS exposes the underlying virtual file system for components (commands,
// completion) that need direct VFS access alongside environment state.
func (e *Environment) VFS() *vfs.FS {
	return e.vfs
}

// Options returns the current shell options.
func (e *Environment) Options() Options {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.options
}
