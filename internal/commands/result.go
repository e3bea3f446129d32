// Package commands implements the built-in command registry: the
// CommandResult/Command contract, the name-to-implementation mapping, PATH
// resolution for external names, and the built-in commands themselves.
package commands

import "github.com/nextlevelbuilder/moodang/internal/shellenv"

// CommandResult is the uniform output of any command invocation, built-in
// or WASM-backed.
type CommandResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// OK reports whether the command completed successfully.
func (r CommandResult) OK() bool { return r.ExitCode == 0 }

// Command is the contract every built-in and resolved external command
// implements.
type Command interface {
	// Name is the command's registry key.
	Name() string
	// Run executes the command against the given environment and
	// per-invocation context, returning a populated CommandResult.
	Run(env *shellenv.Environment, ctx shellenv.ExecutionContext) CommandResult
}

// Func adapts a plain function to the Command interface, the shape most
// built-ins use since they carry no state of their own.
type Func struct {
	CommandName string
	Exec        func(env *shellenv.Environment, ctx shellenv.ExecutionContext) CommandResult
}

// Name returns the command's registry key.
func (f Func) Name() string { return f.CommandName }

// Run invokes the wrapped function.
func (f Func) Run(env *shellenv.Environment, ctx shellenv.ExecutionContext) CommandResult {
	return f.Exec(env, ctx)
}
