// Package script runs a parsed sequence of statements against a shared
// Environment and command Registry, including recursive, depth-limited
// "source" of nested script files.
package script

import (
	"fmt"

	"github.com/nextlevelbuilder/moodang/internal/commands"
	"github.com/nextlevelbuilder/moodang/internal/parser"
	"github.com/nextlevelbuilder/moodang/internal/pipeline"
	"github.com/nextlevelbuilder/moodang/internal/shellenv"
)

// MaxSourceDepth bounds recursive "source" calls to prevent unbounded
// recursion from a script that sources itself.
const MaxSourceDepth = 16

// ErrSourceDepthExceeded is returned when a script's "source" chain nests
// beyond MaxSourceDepth.
var ErrSourceDepthExceeded = fmt.Errorf("source: maximum script depth (%d) exceeded", MaxSourceDepth)

// Result is the outcome of running a script: the concatenated stderr of
// every statement and the final statement's exit code, per the
// non-zero-exit-propagates contract.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Executor runs scripts against one Environment and Registry.
type Executor struct {
	env      *shellenv.Environment
	registry *commands.Registry
}

// NewExecutor builds an Executor bound to env and registry.
func NewExecutor(env *shellenv.Environment, registry *commands.Registry) *Executor {
	return &Executor{env: env, registry: registry}
}

// RunSource loads path from the VFS, parses it, and runs it at depth 0. An
// empty script (after comment/blank stripping) reports exit 0 with the
// documented "Script is empty" message.
func (x *Executor) RunSource(path string) Result {
	content, err := x.env.VFS().ReadFile(path)
	if err != nil {
		return Result{Stderr: fmt.Sprintf("source: %s: %s\n", path, err.Error()), ExitCode: 1}
	}
	return x.run(content, 0)
}

// RunScript parses and runs src directly (used by the top-level "run a
// script body" entry point, distinct from the "source" built-in).
func (x *Executor) RunScript(src string) Result {
	return x.run(src, 0)
}

func (x *Executor) run(src string, depth int) Result {
	if depth > MaxSourceDepth {
		return Result{Stderr: ErrSourceDepthExceeded.Error() + "\n", ExitCode: 1}
	}

	statements, err := parser.ParseScript(src, x.env.EnvMap())
	if err != nil {
		return Result{Stderr: err.Error() + "\n", ExitCode: 1}
	}
	if len(statements) == 0 {
		return Result{Stdout: "Script is empty\n", ExitCode: 0}
	}

	var result Result
	for _, stmt := range statements {
		if isSourceStatement(stmt.Pipeline) {
			target := stmt.Pipeline.Stages[0].Args[0]
			content, rerr := x.env.VFS().ReadFile(target)
			if rerr != nil {
				result.Stderr += fmt.Sprintf("source: %s: %s\n", target, rerr.Error())
				result.ExitCode = 1
				return result
			}
			nested := x.run(content, depth+1)
			result.Stderr += nested.Stderr
			if nested.ExitCode != 0 {
				result.ExitCode = nested.ExitCode
				return result
			}
			continue
		}

		ctx := x.env.CreateExecutionContext("", nil)
		stageResult := pipeline.Run(x.env, x.registry, stmt.Pipeline, ctx)
		result.Stderr += stageResult.Stderr
		if stageResult.ExitCode != 0 {
			result.ExitCode = stageResult.ExitCode
			result.Stdout = stageResult.Stdout
			return result
		}
		result.Stdout = stageResult.Stdout
	}
	return result
}

func isSourceStatement(p parser.Pipeline) bool {
	return len(p.Stages) == 1 && p.Stages[0].Command == "source" && len(p.Stages[0].Args) == 1
}
