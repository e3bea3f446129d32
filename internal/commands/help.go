package commands

import (
	"fmt"
	"sort"
	"strings"

	"github.com/nextlevelbuilder/moodang/internal/shellenv"
)

type helpTopic struct {
	name        string
	usage       string
	description string
	options     []string
	examples    []string
}

var helpTopics = map[string]helpTopic{
	"echo": {
		name: "echo", usage: "echo [ARGS...]",
		description: "Writes its arguments, joined by single spaces, to stdout.",
		examples:    []string{"echo hello world"},
	},
	"pwd": {
		name: "pwd", usage: "pwd",
		description: "Prints the current working directory.",
	},
	"ls": {
		name: "ls", usage: "ls [-l] [-a] [PATH]",
		description: "Lists directory entries.",
		options:     []string{"-l  long form with a total-blocks header", "-a  include dotfiles"},
		examples:    []string{"ls -la /home/user"},
	},
	"cat": {
		name: "cat", usage: "cat PATH...",
		description: "Concatenates the contents of one or more files to stdout.",
	},
	"grep": {
		name: "grep", usage: "grep PATTERN",
		description: "Filters stdin to lines matching PATTERN, a regular expression.",
		examples:    []string{"cat /tmp/in.txt | grep \"eta\""},
	},
	"cd": {
		name: "cd", usage: "cd [PATH]",
		description: "Changes the working directory. With no argument or \"~\", changes to $HOME.",
	},
	"env": {
		name: "env", usage: "env",
		description: "Prints every environment variable in KEY=VALUE form, sorted by key.",
	},
	"export": {
		name: "export", usage: "export [KEY=VALUE | KEY]...",
		description: "Sets an environment variable, or lists exported variables when given no arguments.",
	},
	"printenv": {
		name: "printenv", usage: "printenv [NAME...]",
		description: "Prints environment variable values.",
	},
	"unset": {
		name: "unset", usage: "unset NAME...",
		description: "Clears one or more environment variables.",
	},
	"which": {
		name: "which", usage: "which NAME...",
		description: "Reports which built-in or PATH entry a name would resolve to.",
	},
	"history": {
		name: "history", usage: "history",
		description: "Lists previously accepted command lines.",
	},
	"alias": {
		name: "alias", usage: "alias [NAME[=EXPANSION]]...",
		description: "Defines or lists command aliases. Aliases are recorded and reported by alias and type; command lines are not expanded with them.",
	},
	"source": {
		name: "source", usage: "source PATH",
		description: "Loads, parses, and runs a script file within the current environment.",
	},
}

var generalTopics = map[string]string{
	"overview": "moo-dang is a POSIX-like shell core. Run `help topics` for a list of general topics, or `help NAME` for a command's manpage.",
	"pipes":    "Commands may be chained with `|`. Each stage's stdout feeds the next stage's stdin.",
	"redirect": "Use `>`, `>>`, `2>`, and `&>` to redirect stdout/stderr to a file.",
	"vars":     "Reference a variable with `$NAME` or `${NAME}`. Undefined variables expand to nothing.",
}

func cmdHelp(r *Registry, env *shellenv.Environment, ctx shellenv.ExecutionContext) CommandResult {
	args := ctx.Args[1:]
	if len(args) == 0 {
		return CommandResult{Stdout: generalTopics["overview"] + "\n", ExitCode: 0}
	}

	switch args[0] {
	case "topics":
		names := make([]string, 0, len(generalTopics))
		for name := range generalTopics {
			names = append(names, name)
		}
		sort.Strings(names)
		return CommandResult{Stdout: strings.Join(names, "\n") + "\n", ExitCode: 0}

	case "topic":
		if len(args) < 2 {
			return AsResult("help", NewInvalidArgumentError("help", "topic requires a name"))
		}
		text, ok := generalTopics[args[1]]
		if !ok {
			return AsResult("help", NewInvalidArgumentError("help", "no such topic: "+args[1]))
		}
		return CommandResult{Stdout: text + "\n", ExitCode: 0}

	case "search":
		if len(args) < 2 {
			return AsResult("help", NewInvalidArgumentError("help", "search requires a query"))
		}
		query := strings.ToLower(strings.Join(args[1:], " "))
		var sb strings.Builder
		for _, name := range sortedTopicNames() {
			t := helpTopics[name]
			if strings.Contains(strings.ToLower(t.description), query) || strings.Contains(name, query) {
				fmt.Fprintf(&sb, "%s: %s\n", t.name, t.description)
			}
		}
		for name, text := range generalTopics {
			if strings.Contains(strings.ToLower(text), query) || strings.Contains(name, query) {
				fmt.Fprintf(&sb, "%s: %s\n", name, text)
			}
		}
		return CommandResult{Stdout: sb.String(), ExitCode: 0}

	case "list", "commands":
		return CommandResult{Stdout: strings.Join(r.Names(), "\n") + "\n", ExitCode: 0}

	default:
		t, ok := helpTopics[args[0]]
		if !ok {
			if _, isCommand := r.Lookup(args[0]); isCommand {
				return CommandResult{Stdout: fmt.Sprintf("NAME\n    %s\n", args[0]), ExitCode: 0}
			}
			return AsResult("help", NewInvalidArgumentError("help", "no manual entry for "+args[0]))
		}
		return CommandResult{Stdout: renderManpage(t), ExitCode: 0}
	}
}

func sortedTopicNames() []string {
	names := make([]string, 0, len(helpTopics))
	for name := range helpTopics {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func renderManpage(t helpTopic) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "NAME\n    %s\n\n", t.name)
	fmt.Fprintf(&sb, "USAGE\n    %s\n\n", t.usage)
	fmt.Fprintf(&sb, "DESCRIPTION\n    %s\n", t.description)
	if len(t.options) > 0 {
		sb.WriteString("\nOPTIONS\n")
		for _, o := range t.options {
			fmt.Fprintf(&sb, "    %s\n", o)
		}
	}
	if len(t.examples) > 0 {
		sb.WriteString("\nEXAMPLES\n")
		for _, e := range t.examples {
			fmt.Fprintf(&sb, "    %s\n", e)
		}
	}
	return sb.String()
}
