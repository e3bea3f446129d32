package commands

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/nextlevelbuilder/moodang/internal/shellenv"
	"github.com/nextlevelbuilder/moodang/internal/vfs"
)

// terminalWidth is the assumed display width used to lay out ls's
// multi-column listing; moo-dang has no tty to query so it falls back to
// the conventional 80-column default.
const terminalWidth = 80

// builtins returns every built-in Command, wired against r so a few of them
// (help, which, source) can consult the registry itself.
func builtins(r *Registry) []Command {
	return []Command{
		Func{"echo", cmdEcho},
		Func{"pwd", cmdPwd},
		Func{"ls", cmdLs},
		Func{"cat", cmdCat},
		Func{"grep", cmdGrep},
		Func{"cd", cmdCd},
		Func{"clear", cmdClear},
		Func{"env", cmdEnv},
		Func{"export", cmdExport},
		Func{"printenv", cmdPrintenv},
		Func{"unset", cmdUnset},
		Func{"which", func(env *shellenv.Environment, ctx shellenv.ExecutionContext) CommandResult { return cmdWhich(r, env, ctx) }},
		Func{"history", cmdHistory},
		Func{"alias", cmdAlias},
		Func{"unalias", cmdUnalias},
		Func{"type", func(env *shellenv.Environment, ctx shellenv.ExecutionContext) CommandResult { return cmdType(r, env, ctx) }},
		Func{"help", func(env *shellenv.Environment, ctx shellenv.ExecutionContext) CommandResult { return cmdHelp(r, env, ctx) }},
		// "source" is registered here as a stub that reports it must be run
		// through the script executor (internal/script), which owns parsing
		// and recursion-depth tracking and therefore cannot be reached from
		// inside this package without an import cycle.
		Func{"source", cmdSourceStub},
	}
}

func cmdEcho(env *shellenv.Environment, ctx shellenv.ExecutionContext) CommandResult {
	return CommandResult{Stdout: strings.Join(ctx.Args[1:], " ") + "\n", ExitCode: 0}
}

func cmdPwd(env *shellenv.Environment, ctx shellenv.ExecutionContext) CommandResult {
	return CommandResult{Stdout: ctx.WorkingDirectory + "\n", ExitCode: 0}
}

func cmdLs(env *shellenv.Environment, ctx shellenv.ExecutionContext) CommandResult {
	long, all := false, false
	var target string
	for _, a := range ctx.Args[1:] {
		switch {
		case a == "-l":
			long = true
		case a == "-a":
			all = true
		case a == "-la" || a == "-al":
			long, all = true, true
		case strings.HasPrefix(a, "-"):
			// unknown flags are ignored rather than rejected, matching the
			// teacher's permissive built-in argument handling elsewhere.
		default:
			target = a
		}
	}
	path := ctx.WorkingDirectory
	if target != "" {
		path = target
	}

	entries, err := env.VFS().DetailedListing(path)
	if err != nil {
		return AsResult("ls", NewFileOperationError("ls", err.Error()))
	}
	if !all {
		filtered := entries[:0]
		for _, e := range entries {
			if !strings.HasPrefix(e.Name, ".") {
				filtered = append(filtered, e)
			}
		}
		entries = filtered
	}

	var sb strings.Builder
	if long {
		total := 0
		for _, e := range entries {
			total += e.Size
		}
		fmt.Fprintf(&sb, "total %d\n", (total+1023)/1024)
		for _, e := range entries {
			name := e.Name
			if e.Type == vfs.TypeDirectory {
				name += "/"
			}
			fmt.Fprintf(&sb, "%s 1 user user %8d %s %s\n", e.Perms, e.Size, e.Modified.Format("Jan 02 15:04"), name)
		}
	} else {
		names := make([]string, len(entries))
		for i, e := range entries {
			names[i] = e.Name
			if e.Type == vfs.TypeDirectory {
				names[i] += "/"
			}
		}
		sb.WriteString(formatColumns(names))
	}
	return CommandResult{Stdout: sb.String(), ExitCode: 0}
}

func cmdCat(env *shellenv.Environment, ctx shellenv.ExecutionContext) CommandResult {
	args := ctx.Args[1:]
	if len(args) == 0 {
		return AsResult("cat", NewInvalidArgumentError("cat", "missing file operand"))
	}
	var sb strings.Builder
	for _, path := range args {
		content, err := env.VFS().ReadFile(path)
		if err != nil {
			return AsResult("cat", NewFileOperationError("cat", path+": No such file or directory"))
		}
		sb.WriteString(content)
	}
	return CommandResult{Stdout: sb.String(), ExitCode: 0}
}

func cmdGrep(env *shellenv.Environment, ctx shellenv.ExecutionContext) CommandResult {
	args := ctx.Args[1:]
	if len(args) == 0 {
		return AsResult("grep", NewInvalidArgumentError("grep", "missing pattern"))
	}
	re, err := regexp.Compile(args[0])
	if err != nil {
		return AsResult("grep", NewInvalidArgumentError("grep", "invalid pattern: "+err.Error()))
	}
	if ctx.Stdin == "" {
		return CommandResult{ExitCode: 1}
	}
	var sb strings.Builder
	matched := false
	for _, line := range strings.Split(strings.TrimSuffix(ctx.Stdin, "\n"), "\n") {
		if re.MatchString(line) {
			sb.WriteString(line)
			sb.WriteString("\n")
			matched = true
		}
	}
	if !matched {
		return CommandResult{ExitCode: 1}
	}
	return CommandResult{Stdout: sb.String(), ExitCode: 0}
}

func cmdCd(env *shellenv.Environment, ctx shellenv.ExecutionContext) CommandResult {
	target := ctx.Env["HOME"]
	if len(ctx.Args) > 1 && ctx.Args[1] != "~" {
		target = ctx.Args[1]
	}
	if _, err := env.ChangeDirectory(target); err != nil {
		if env.VFS().Exists(env.VFS().Resolve(ctx.WorkingDirectory, target)) {
			return AsResult("cd", NewFileOperationError("cd", "not a directory: "+target))
		}
		return AsResult("cd", NewFileOperationError("cd", "no such file or directory: "+target))
	}
	return CommandResult{ExitCode: 0}
}

func cmdClear(env *shellenv.Environment, ctx shellenv.ExecutionContext) CommandResult {
	return CommandResult{Stdout: "\x1b[2J\x1b[H", ExitCode: 0}
}

func cmdEnv(env *shellenv.Environment, ctx shellenv.ExecutionContext) CommandResult {
	// Applying KEY=VALUE args to a following command is handled by the
	// script/pipeline layer's assignment-prefix support, not here; per the
	// documented contract this built-in only reports what it would set.
	if len(ctx.Args) > 1 {
		var sb strings.Builder
		for _, a := range ctx.Args[1:] {
			sb.WriteString(a + "\n")
		}
		return CommandResult{Stdout: sb.String(), ExitCode: 0}
	}
	return CommandResult{Stdout: sortedEnvLines(ctx.Env, func(k, v string) string { return k + "=" + v }), ExitCode: 0}
}

func cmdExport(env *shellenv.Environment, ctx shellenv.ExecutionContext) CommandResult {
	if len(ctx.Args) == 1 {
		return CommandResult{Stdout: sortedEnvLines(env.EnvMap(), func(k, v string) string {
			return fmt.Sprintf("declare -x %s=%q", k, v)
		}), ExitCode: 0}
	}
	for _, arg := range ctx.Args[1:] {
		key, value, hasValue := strings.Cut(arg, "=")
		if !hasValue {
			if err := env.SetEnvironmentVariable(key, ctx.Env[key]); err != nil {
				return AsResult("export", NewInvalidArgumentError("export", "not a valid identifier: "+key))
			}
			continue
		}
		if err := env.SetEnvironmentVariable(key, value); err != nil {
			return AsResult("export", NewInvalidArgumentError("export", "not a valid identifier: "+key))
		}
	}
	return CommandResult{ExitCode: 0}
}

func cmdPrintenv(env *shellenv.Environment, ctx shellenv.ExecutionContext) CommandResult {
	if len(ctx.Args) == 1 {
		return CommandResult{Stdout: sortedEnvLines(ctx.Env, func(k, v string) string { return k + "=" + v }), ExitCode: 0}
	}
	var sb strings.Builder
	found := false
	for _, name := range ctx.Args[1:] {
		if v, ok := ctx.Env[name]; ok {
			sb.WriteString(v + "\n")
			found = true
		}
	}
	if !found {
		return CommandResult{ExitCode: 1}
	}
	return CommandResult{Stdout: sb.String(), ExitCode: 0}
}

func cmdUnset(env *shellenv.Environment, ctx shellenv.ExecutionContext) CommandResult {
	if len(ctx.Args) == 1 {
		return AsResult("unset", NewInvalidArgumentError("unset", "not enough arguments"))
	}
	for _, name := range ctx.Args[1:] {
		if err := env.UnsetEnvironmentVariable(name); err != nil {
			return AsResult("unset", NewInvalidArgumentError("unset", "not a valid identifier: "+name))
		}
	}
	return CommandResult{ExitCode: 0}
}

func cmdWhich(r *Registry, env *shellenv.Environment, ctx shellenv.ExecutionContext) CommandResult {
	args := ctx.Args[1:]
	if len(args) == 0 {
		return AsResult("which", NewInvalidArgumentError("which", "missing name operand"))
	}
	var sb strings.Builder
	resolved := false
	for _, name := range args {
		if strings.Contains(name, "/") {
			sb.WriteString(name + "\n")
			resolved = true
			continue
		}
		if _, ok := r.Lookup(name); ok {
			sb.WriteString(name + "\n")
			resolved = true
			continue
		}
		if path, ok := ResolvePath(env.VFS(), ctx.Env["PATH"], name); ok {
			sb.WriteString(path + "\n")
			resolved = true
		}
	}
	if !resolved {
		return CommandResult{ExitCode: 1}
	}
	return CommandResult{Stdout: sb.String(), ExitCode: 0}
}

func cmdHistory(env *shellenv.Environment, ctx shellenv.ExecutionContext) CommandResult {
	var sb strings.Builder
	for i, line := range env.History() {
		fmt.Fprintf(&sb, "%5d  %s\n", i+1, line)
	}
	return CommandResult{Stdout: sb.String(), ExitCode: 0}
}

func cmdAlias(env *shellenv.Environment, ctx shellenv.ExecutionContext) CommandResult {
	if len(ctx.Args) == 1 {
		aliases := env.Aliases()
		names := make([]string, 0, len(aliases))
		for name := range aliases {
			names = append(names, name)
		}
		sort.Strings(names)
		var sb strings.Builder
		for _, name := range names {
			fmt.Fprintf(&sb, "alias %s=%q\n", name, aliases[name])
		}
		return CommandResult{Stdout: sb.String(), ExitCode: 0}
	}
	var sb strings.Builder
	for _, arg := range ctx.Args[1:] {
		name, expansion, hasExpansion := strings.Cut(arg, "=")
		if !hasExpansion {
			if v, found := env.Alias(name); found {
				fmt.Fprintf(&sb, "alias %s=%q\n", name, v)
			}
			continue
		}
		env.SetAlias(name, expansion)
	}
	return CommandResult{Stdout: sb.String(), ExitCode: 0}
}

func cmdUnalias(env *shellenv.Environment, ctx shellenv.ExecutionContext) CommandResult {
	if len(ctx.Args) == 1 {
		return AsResult("unalias", NewInvalidArgumentError("unalias", "not enough arguments"))
	}
	for _, name := range ctx.Args[1:] {
		env.RemoveAlias(name)
	}
	return CommandResult{ExitCode: 0}
}

func cmdType(r *Registry, env *shellenv.Environment, ctx shellenv.ExecutionContext) CommandResult {
	if len(ctx.Args) == 1 {
		return AsResult("type", NewInvalidArgumentError("type", "missing name operand"))
	}
	var sb strings.Builder
	allFound := true
	for _, name := range ctx.Args[1:] {
		if _, ok := env.Alias(name); ok {
			fmt.Fprintf(&sb, "%s is aliased\n", name)
			continue
		}
		if _, ok := r.Lookup(name); ok {
			fmt.Fprintf(&sb, "%s is a shell builtin\n", name)
			continue
		}
		if path, ok := ResolvePath(env.VFS(), ctx.Env["PATH"], name); ok {
			fmt.Fprintf(&sb, "%s is %s\n", name, path)
			continue
		}
		fmt.Fprintf(&sb, "%s: not found\n", name)
		allFound = false
	}
	exit := 0
	if !allFound {
		exit = 1
	}
	return CommandResult{Stdout: sb.String(), ExitCode: exit}
}

func cmdSourceStub(env *shellenv.Environment, ctx shellenv.ExecutionContext) CommandResult {
	return AsResult("source", NewInvalidArgumentError("source", "source must be run by the script executor"))
}

// formatColumns lays names out in a multi-column grid the way a real
// terminal ls would, using display width (not byte or rune count) so
// wide characters still align.
func formatColumns(names []string) string {
	if len(names) == 0 {
		return ""
	}
	widest := 0
	for _, n := range names {
		if w := runewidth.StringWidth(n); w > widest {
			widest = w
		}
	}
	colWidth := widest + 2
	cols := terminalWidth / colWidth
	if cols < 1 {
		cols = 1
	}
	rows := (len(names) + cols - 1) / cols

	var sb strings.Builder
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			i := c*rows + r
			if i >= len(names) {
				continue
			}
			name := names[i]
			if c == cols-1 || i+rows >= len(names) {
				sb.WriteString(name)
			} else {
				sb.WriteString(runewidth.FillRight(name, colWidth))
			}
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func sortedEnvLines(env map[string]string, format func(k, v string) string) string {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var sb strings.Builder
	for _, k := range keys {
		sb.WriteString(format(k, env[k]))
		sb.WriteString("\n")
	}
	return sb.String()
}
