// Package pipeline executes a parsed Pipeline stage by stage against the
// command registry, wiring stdin/stdout between stages and applying
// per-stage redirections against the VFS.
package pipeline

import (
	"fmt"
	"strings"
	"time"

	"github.com/nextlevelbuilder/moodang/internal/commands"
	"github.com/nextlevelbuilder/moodang/internal/parser"
	"github.com/nextlevelbuilder/moodang/internal/shellenv"
)

// StageResult is one stage's outcome within a pipeline run.
type StageResult struct {
	Command string
	commands.CommandResult
}

// ExecutionResult is the aggregated outcome of running a full Pipeline.
type ExecutionResult struct {
	PID        int
	Composed   string
	Stages     []StageResult
	Stdout     string
	Stderr     string
	ExitCode   int
	Background bool
	Duration   time.Duration
}

// Run executes p against registry, starting from ctx's stdin as the first
// stage's input, per the stage algorithm: a stage's input redirection
// targets are read and concatenated, and that content replaces the stdin
// the stage would otherwise inherit; output redirection is a
// side-effect that never diverts what flows to the next stage, and a
// non-zero exit short-circuits the remaining stages.
func Run(env *shellenv.Environment, registry *commands.Registry, p parser.Pipeline, ctx shellenv.ExecutionContext) ExecutionResult {
	start := time.Now()
	result := ExecutionResult{
		PID:        ctx.PID,
		Composed:   composePipeline(p),
		Background: p.Background,
	}

	currentInput := ctx.Stdin

	for i, stage := range p.Stages {
		isLast := i == len(p.Stages)-1

		if len(stage.Input) > 0 {
			var sb strings.Builder
			failed := false
			for _, r := range stage.Input {
				content, err := env.VFS().ReadFile(r.Target)
				if err != nil {
					result.ExitCode = 1
					result.Stderr += err.Error() + "\n"
					result.Stdout = ""
					failed = true
					break
				}
				sb.WriteString(content)
			}
			if failed {
				result.Duration = time.Since(start)
				return result
			}
			currentInput = sb.String()
		}

		stageCtx := ctx
		stageCtx.Args = append([]string{stage.Command}, stage.Args...)
		stageCtx.Stdin = currentInput
		stageCtx.Env = mergedEnv(ctx.Env, stage.Assignments)

		stageResult := registry.Run(env, stageCtx)
		result.Stages = append(result.Stages, StageResult{Command: stage.Command, CommandResult: stageResult})
		result.Stderr += stageResult.Stderr

		if len(stage.Output) > 0 && (isLast || hasConcreteRedirect(stage.Output)) {
			if err := applyOutputRedirections(env, stage.Output, stageResult); err != nil {
				result.ExitCode = 1
				result.Stderr += err.Error() + "\n"
				result.Stdout = ""
				result.Duration = time.Since(start)
				return result
			}
			if isLast {
				stageResult.Stdout = ""
			}
		}

		if stageResult.ExitCode != 0 {
			result.ExitCode = stageResult.ExitCode
			result.Stdout = stageResult.Stdout
			result.Duration = time.Since(start)
			return result
		}

		currentInput = stageResult.Stdout
		if isLast {
			result.Stdout = stageResult.Stdout
		}
	}

	result.Duration = time.Since(start)
	return result
}

// hasConcreteRedirect always returns true for any non-empty redirection
// set; the name documents the rule from the stage algorithm that any of
// ">", ">>", "2>", "&>" trigger the write regardless of stage position.
func hasConcreteRedirect(outputs []parser.Redirection) bool {
	return len(outputs) > 0
}

func applyOutputRedirections(env *shellenv.Environment, outputs []parser.Redirection, res commands.CommandResult) error {
	for _, r := range outputs {
		switch r.Op {
		case parser.RedirectOut:
			if err := env.VFS().WriteFile(r.Target, res.Stdout); err != nil {
				return err
			}
		case parser.RedirectAppend:
			existing, _ := env.VFS().ReadFile(r.Target)
			if err := env.VFS().WriteFile(r.Target, existing+res.Stdout); err != nil {
				return err
			}
		case parser.RedirectErr:
			if err := env.VFS().WriteFile(r.Target, res.Stderr); err != nil {
				return err
			}
		case parser.RedirectOutErr:
			if err := env.VFS().WriteFile(r.Target, res.Stdout+res.Stderr); err != nil {
				return err
			}
		}
	}
	return nil
}

func mergedEnv(base map[string]string, assignments map[string]string) map[string]string {
	if len(assignments) == 0 {
		return base
	}
	merged := make(map[string]string, len(base)+len(assignments))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range assignments {
		merged[k] = v
	}
	return merged
}

func composePipeline(p parser.Pipeline) string {
	parts := make([]string, len(p.Stages))
	for i, stage := range p.Stages {
		parts[i] = strings.TrimSpace(fmt.Sprintf("%s %s", stage.Command, strings.Join(stage.Args, " ")))
	}
	composed := strings.Join(parts, " | ")
	if p.Background {
		composed += " &"
	}
	return composed
}
