package completion

import (
	"strings"

	"github.com/nextlevelbuilder/moodang/internal/commands"
)

var builtinOptions = []string{"-l", "-a", "-h", "--help", "-v", "--version"}

// CommandProvider completes the first token of the line against the
// command registry.
type CommandProvider struct {
	registry *commands.Registry
}

// NewCommandProvider wraps registry for command-name completion.
func NewCommandProvider(registry *commands.Registry) *CommandProvider {
	return &CommandProvider{registry: registry}
}

func (p *CommandProvider) ID() string                   { return "commands" }
func (p *CommandProvider) Name() string                 { return "Commands" }
func (p *CommandProvider) SupportedTypes() []SuggestionType { return []SuggestionType{TypeCommand} }
func (p *CommandProvider) Priority() Priority            { return PriorityHigh }

func (p *CommandProvider) CanComplete(ctx Context) bool { return ctx.IsNewCommand }

func (p *CommandProvider) GetCompletions(ctx Context, opts Options) []Suggestion {
	var out []Suggestion
	for _, name := range p.registry.Names() {
		if matchesPrefix(name, ctx.CurrentPart, opts.CaseSensitive) {
			out = append(out, Suggestion{Text: name, Type: TypeCommand, RequiresSpace: true})
		}
	}
	return out
}

// FileProvider completes non-first tokens against VFS entries in the
// directory implied by the current part.
type FileProvider struct {
	fs interface {
		ListDirectory(path string) ([]string, error)
		IsDirectory(path string) bool
	}
}

// NewFileProvider wraps fs for path completion.
func NewFileProvider(fs interface {
	ListDirectory(path string) ([]string, error)
	IsDirectory(path string) bool
}) *FileProvider {
	return &FileProvider{fs: fs}
}

func (p *FileProvider) ID() string   { return "files" }
func (p *FileProvider) Name() string { return "Files" }
func (p *FileProvider) SupportedTypes() []SuggestionType {
	return []SuggestionType{TypeFile, TypeDirectory}
}
func (p *FileProvider) Priority() Priority { return PriorityMedium }

func (p *FileProvider) CanComplete(ctx Context) bool {
	return !ctx.IsNewCommand && !strings.HasPrefix(ctx.CurrentPart, "$") && !strings.HasPrefix(ctx.CurrentPart, "-")
}

func (p *FileProvider) GetCompletions(ctx Context, opts Options) []Suggestion {
	dir, prefix := splitDirPrefix(ctx.CurrentPart, ctx.WorkingDir)
	names, err := p.fs.ListDirectory(dir)
	if err != nil {
		return nil
	}
	var out []Suggestion
	for _, name := range names {
		if !opts.IncludeHiddenFiles && strings.HasPrefix(name, ".") {
			continue
		}
		if !matchesPrefix(name, prefix, opts.CaseSensitive) {
			continue
		}
		full := joinDirPrefix(dir, name, ctx.CurrentPart)
		sType := TypeFile
		text := full
		requiresSpace := true
		if p.fs.IsDirectory(joinDirPrefix(dir, name, "")) {
			sType = TypeDirectory
			text += "/"
			requiresSpace = false
		}
		out = append(out, Suggestion{Text: text, Type: sType, RequiresSpace: requiresSpace})
	}
	return out
}

func splitDirPrefix(part, workingDir string) (dir, prefix string) {
	idx := strings.LastIndex(part, "/")
	if idx < 0 {
		return workingDir, part
	}
	dir = part[:idx]
	if dir == "" {
		dir = "/"
	}
	return dir, part[idx+1:]
}

func joinDirPrefix(dir, name, originalPart string) string {
	idx := strings.LastIndex(originalPart, "/")
	if idx < 0 {
		return name
	}
	return originalPart[:idx+1] + name
}

// EnvVarProvider completes environment variable names, triggered by a "$"
// prefix or by following an export/unset command.
type EnvVarProvider struct{}

// NewEnvVarProvider constructs an EnvVarProvider.
func NewEnvVarProvider() *EnvVarProvider { return &EnvVarProvider{} }

func (p *EnvVarProvider) ID() string                       { return "env_vars" }
func (p *EnvVarProvider) Name() string                     { return "Environment variables" }
func (p *EnvVarProvider) SupportedTypes() []SuggestionType { return []SuggestionType{TypeEnvVar} }
func (p *EnvVarProvider) Priority() Priority               { return PriorityMedium }

func (p *EnvVarProvider) CanComplete(ctx Context) bool {
	if strings.HasPrefix(ctx.CurrentPart, "$") {
		return true
	}
	if len(ctx.Parts) > 0 {
		first := ctx.Parts[0]
		return first == "export" || first == "unset"
	}
	return false
}

func (p *EnvVarProvider) GetCompletions(ctx Context, opts Options) []Suggestion {
	inExpansion := strings.HasPrefix(ctx.CurrentPart, "$")
	bare := strings.TrimPrefix(ctx.CurrentPart, "$")
	var out []Suggestion
	for name := range ctx.Env {
		if !matchesPrefix(name, bare, opts.CaseSensitive) {
			continue
		}
		text := name
		if inExpansion {
			text = "$" + name
		}
		out = append(out, Suggestion{Text: text, Type: TypeEnvVar})
	}
	return out
}

// OptionProvider completes a small built-in flag vocabulary when the
// current part starts with "-".
type OptionProvider struct{}

// NewOptionProvider constructs an OptionProvider.
func NewOptionProvider() *OptionProvider { return &OptionProvider{} }

func (p *OptionProvider) ID() string                       { return "options" }
func (p *OptionProvider) Name() string                     { return "Options" }
func (p *OptionProvider) SupportedTypes() []SuggestionType { return []SuggestionType{TypeOption} }
func (p *OptionProvider) Priority() Priority               { return PriorityLow }

func (p *OptionProvider) CanComplete(ctx Context) bool {
	return strings.HasPrefix(ctx.CurrentPart, "-")
}

func (p *OptionProvider) GetCompletions(ctx Context, opts Options) []Suggestion {
	var out []Suggestion
	for _, o := range builtinOptions {
		if matchesPrefix(o, ctx.CurrentPart, opts.CaseSensitive) {
			out = append(out, Suggestion{Text: o, Type: TypeOption, RequiresSpace: true})
		}
	}
	return out
}

func matchesPrefix(text, prefix string, caseSensitive bool) bool {
	if caseSensitive {
		return strings.HasPrefix(text, prefix)
	}
	return strings.HasPrefix(strings.ToLower(text), strings.ToLower(prefix))
}
