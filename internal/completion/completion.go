// Package completion implements the pluggable tab-completion engine:
// provider contract, ranking, trimming, and suggestion application.
package completion

import (
	"sort"
	"strings"
)

// Priority ranks suggestions that tie on exact-match. The ranking derives
// it from the suggestion's Type (commands high, files and directories
// medium, everything else low); Provider.Priority is not consulted.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityMedium
	PriorityHigh
)

// SuggestionType classifies a Suggestion for display.
type SuggestionType string

const (
	TypeCommand     SuggestionType = "command"
	TypeFile        SuggestionType = "file"
	TypeDirectory   SuggestionType = "directory"
	TypeEnvVar      SuggestionType = "env_var"
	TypeOption      SuggestionType = "option"
)

// Range is an explicit replacement span, overriding the engine's default
// token-boundary computation in ApplySuggestion.
type Range struct {
	Start int
	End   int
}

// Suggestion is one completion candidate.
type Suggestion struct {
	Text          string
	Type          SuggestionType
	RequiresSpace bool
	Range         *Range
}

// Context is the input the engine derives once per completion request and
// passes to every provider.
type Context struct {
	Input       string
	Cursor      int
	Parts       []string
	PartIndex   int
	CurrentPart string
	WorkingDir  string
	Env         map[string]string
	IsNewCommand bool
}

// Options tunes engine behavior; zero-valued Options uses the documented
// defaults via WithDefaults.
type Options struct {
	MinInputLength      int
	MaxSuggestions      int
	CaseSensitive       bool
	AutoCompletePrefix  bool
	IncludeHiddenFiles  bool
}

// WithDefaults fills unset fields with the documented defaults.
func (o Options) WithDefaults() Options {
	if o.MaxSuggestions == 0 {
		o.MaxSuggestions = 10
	}
	return o
}

// Provider supplies completion candidates for contexts it recognizes.
type Provider interface {
	ID() string
	Name() string
	SupportedTypes() []SuggestionType
	Priority() Priority
	CanComplete(ctx Context) bool
	GetCompletions(ctx Context, opts Options) []Suggestion
}

// Result is what Complete returns.
type Result struct {
	Suggestions  []Suggestion
	HasMore      bool
	CommonPrefix string
}

// Engine ranks and aggregates suggestions from its registered providers.
type Engine struct {
	providers []Provider
	ids       map[string]bool
}

// NewEngine creates an Engine with no providers registered.
func NewEngine() *Engine {
	return &Engine{ids: make(map[string]bool)}
}

// Register adds a provider; a duplicate ID is ignored with no error (the
// documented "warning only" behavior — callers that care should check
// Registered before calling).
func (e *Engine) Register(p Provider) {
	if e.ids[p.ID()] {
		return
	}
	e.ids[p.ID()] = true
	e.providers = append(e.providers, p)
}

// Registered reports whether id is already registered.
func (e *Engine) Registered(id string) bool { return e.ids[id] }

// Complete builds a Context from input/cursor, asks every matching
// provider, ranks and trims the combined suggestions.
func (e *Engine) Complete(input string, cursor int, workingDir string, env map[string]string, opts Options) Result {
	opts = opts.WithDefaults()
	if len(input) < opts.MinInputLength {
		return Result{}
	}

	ctx := buildContext(input, cursor, workingDir, env)

	var all []Suggestion
	for _, p := range e.providers {
		if p.CanComplete(ctx) {
			all = append(all, p.GetCompletions(ctx, opts)...)
		}
	}

	sortSuggestions(all, ctx.CurrentPart, opts.CaseSensitive)

	hasMore := false
	if len(all) > opts.MaxSuggestions {
		all = all[:opts.MaxSuggestions]
		hasMore = true
	}

	result := Result{Suggestions: all, HasMore: hasMore}
	if opts.AutoCompletePrefix {
		result.CommonPrefix = longestCommonPrefix(all)
	}
	return result
}

func buildContext(input string, cursor int, workingDir string, env map[string]string) Context {
	if cursor > len(input) {
		cursor = len(input)
	}
	parts := strings.Fields(input)

	partIndex := 0
	currentPart := ""
	prefix := input[:cursor]
	prefixParts := strings.Fields(prefix)
	partIndex = len(prefixParts) - 1
	if partIndex < 0 {
		partIndex = 0
	}
	if strings.HasSuffix(prefix, " ") || prefix == "" {
		currentPart = ""
		partIndex = len(prefixParts)
	} else if len(prefixParts) > 0 {
		currentPart = prefixParts[len(prefixParts)-1]
	}

	return Context{
		Input:        input,
		Cursor:       cursor,
		Parts:        parts,
		PartIndex:    partIndex,
		CurrentPart:  currentPart,
		WorkingDir:   workingDir,
		Env:          env,
		IsNewCommand: partIndex == 0,
	}
}

func sortSuggestions(s []Suggestion, currentPart string, caseSensitive bool) {
	exact := func(text string) bool {
		if caseSensitive {
			return text == currentPart
		}
		return strings.EqualFold(text, currentPart)
	}
	startsWith := func(text string) bool {
		if caseSensitive {
			return strings.HasPrefix(text, currentPart)
		}
		return strings.HasPrefix(strings.ToLower(text), strings.ToLower(currentPart))
	}
	priorityOf := func(t SuggestionType) Priority {
		switch t {
		case TypeCommand:
			return PriorityHigh
		case TypeDirectory, TypeFile:
			return PriorityMedium
		default:
			return PriorityLow
		}
	}

	sort.SliceStable(s, func(i, j int) bool {
		ei, ej := exact(s[i].Text), exact(s[j].Text)
		if ei != ej {
			return ei
		}
		pi, pj := priorityOf(s[i].Type), priorityOf(s[j].Type)
		if pi != pj {
			return pi > pj
		}
		wi, wj := startsWith(s[i].Text), startsWith(s[j].Text)
		if wi != wj {
			return wi
		}
		return s[i].Text < s[j].Text
	})
}

func longestCommonPrefix(s []Suggestion) string {
	if len(s) == 0 {
		return ""
	}
	prefix := s[0].Text
	for _, suggestion := range s[1:] {
		for !strings.HasPrefix(suggestion.Text, prefix) {
			if prefix == "" {
				return ""
			}
			prefix = prefix[:len(prefix)-1]
		}
	}
	return prefix
}

// ApplySuggestion replaces the token under cursor in input with
// suggestion.Text (plus a trailing space when RequiresSpace), returning the
// new input and the cursor position at the end of the inserted text.
func ApplySuggestion(input string, suggestion Suggestion, cursor int) (string, int) {
	start, end := suggestion.wordBounds(input, cursor)

	insertion := suggestion.Text
	if suggestion.RequiresSpace {
		insertion += " "
	}

	newInput := input[:start] + insertion + input[end:]
	newCursor := start + len(insertion)
	return newInput, newCursor
}

func (s Suggestion) wordBounds(input string, cursor int) (int, int) {
	if s.Range != nil {
		return s.Range.Start, s.Range.End
	}
	if cursor > len(input) {
		cursor = len(input)
	}
	start := cursor
	for start > 0 && !isBoundary(input[start-1]) {
		start--
	}
	end := cursor
	for end < len(input) && !isBoundary(input[end]) {
		end++
	}
	return start, end
}

func isBoundary(b byte) bool {
	return b == ' ' || b == '\t' || b == '|'
}
