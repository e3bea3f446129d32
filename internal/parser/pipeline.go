package parser

import "strings"

// RedirectOp is one of the supported per-stage redirection operators.
type RedirectOp string

const (
	RedirectIn       RedirectOp = "<"
	RedirectOut      RedirectOp = ">"
	RedirectAppend   RedirectOp = ">>"
	RedirectErr      RedirectOp = "2>"
	RedirectOutErr   RedirectOp = "&>"
)

// Redirection is one per-stage I/O redirection.
type Redirection struct {
	Op     RedirectOp
	Target string
}

// ParsedCommand is one pipeline stage.
type ParsedCommand struct {
	Command     string
	Args        []string
	Assignments map[string]string
	Input       []Redirection
	Output      []Redirection
}

// Pipeline is an ordered list of stages connected by "|", plus a background
// flag set by a trailing unquoted "&".
type Pipeline struct {
	Stages     []ParsedCommand
	Background bool
}

func isOperator(t Token) (RedirectOp, bool) {
	if t.Quote != QuoteNone {
		return "", false
	}
	switch t.Text {
	case "<":
		return RedirectIn, true
	case ">":
		return RedirectOut, true
	case ">>":
		return RedirectAppend, true
	case "2>":
		return RedirectErr, true
	case "&>":
		return RedirectOutErr, true
	}
	return "", false
}

func isPipe(t Token) bool {
	return t.Quote == QuoteNone && t.Text == "|"
}

func isBackground(t Token) bool {
	return t.Quote == QuoteNone && t.Text == "&"
}

var assignValue = func(t Token) (name, value string, ok bool) {
	if t.Quote != QuoteNone {
		return "", "", false
	}
	idx := strings.IndexByte(t.Text, '=')
	if idx <= 0 {
		return "", "", false
	}
	name = t.Text[:idx]
	if !isNameStart(name[0]) || !validName(name) {
		return "", "", false
	}
	return name, t.Text[idx+1:], true
}

// expandToken expands a single token the same way ExpandTokens does; the
// bool is false when the token should be elided entirely. A nil env leaves
// the token unexpanded.
func expandToken(t Token, env map[string]string) (string, bool) {
	if t.Quote == QuoteSingle || env == nil {
		return t.Text, true
	}
	expanded := ExpandString(t.Text, env)
	if expanded == "" && t.Quote == QuoteNone {
		return "", false
	}
	return expanded, true
}

// ParsePipeline tokenizes line and parses the full pipeline grammar:
// "|" stage separators, a trailing "&" background flag, and per-stage
// input/output redirections. Variable expansion is applied using env
// (which may be nil, meaning no expansion).
func ParsePipeline(line string, env map[string]string) Pipeline {
	tokens := Tokenize(line)

	background := false
	if n := len(tokens); n > 0 && isBackground(tokens[n-1]) {
		background = true
		tokens = tokens[:n-1]
	}

	var stageTokens [][]Token
	cur := make([]Token, 0, len(tokens))
	for _, t := range tokens {
		if isPipe(t) {
			stageTokens = append(stageTokens, cur)
			cur = make([]Token, 0)
			continue
		}
		cur = append(cur, t)
	}
	stageTokens = append(stageTokens, cur)

	stages := make([]ParsedCommand, 0, len(stageTokens))
	for _, sts := range stageTokens {
		stages = append(stages, parseStage(sts, env))
	}

	return Pipeline{Stages: stages, Background: background}
}

func parseStage(tokens []Token, env map[string]string) ParsedCommand {
	pc := ParsedCommand{Assignments: map[string]string{}}
	sawCommand := false

	for i := 0; i < len(tokens); i++ {
		t := tokens[i]

		if op, ok := isOperator(t); ok {
			var target string
			if i+1 < len(tokens) {
				target, _ = expandToken(tokens[i+1], env)
				i++
			}
			switch op {
			case RedirectIn:
				pc.Input = append(pc.Input, Redirection{Op: op, Target: target})
			default:
				pc.Output = append(pc.Output, Redirection{Op: op, Target: target})
			}
			continue
		}

		if !sawCommand {
			if name, value, ok := assignValue(t); ok {
				if env != nil {
					value = ExpandString(value, env)
				}
				pc.Assignments[name] = value
				continue
			}
		}

		text, keep := expandToken(t, env)
		if !keep {
			continue
		}
		if !sawCommand {
			pc.Command = text
			sawCommand = true
			continue
		}
		pc.Args = append(pc.Args, text)
	}

	return pc
}
