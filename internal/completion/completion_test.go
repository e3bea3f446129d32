package completion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nextlevelbuilder/moodang/internal/commands"
	"github.com/nextlevelbuilder/moodang/internal/shellenv"
	"github.com/nextlevelbuilder/moodang/internal/vfs"
)

func newTestEngine(t *testing.T) (*Engine, *shellenv.Environment) {
	t.Helper()
	env := shellenv.New(vfs.NewSeeded(), shellenv.DefaultOptions())
	registry := commands.NewRegistry()
	e := NewEngine()
	e.Register(NewCommandProvider(registry))
	e.Register(NewFileProvider(env.VFS()))
	e.Register(NewEnvVarProvider())
	e.Register(NewOptionProvider())
	return e, env
}

func TestCommandCompletionOnFirstToken(t *testing.T) {
	e, env := newTestEngine(t)
	res := e.Complete("ec", 2, env.WorkingDirectory(), env.EnvMap(), Options{})
	require.NotEmpty(t, res.Suggestions)
	found := false
	for _, s := range res.Suggestions {
		if s.Text == "echo" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestDuplicateProviderIDIgnored(t *testing.T) {
	e := NewEngine()
	e.Register(NewOptionProvider())
	e.Register(NewOptionProvider())
	assert.True(t, e.Registered("options"))
}

func TestMinInputLengthReturnsEmpty(t *testing.T) {
	e, env := newTestEngine(t)
	res := e.Complete("e", 1, env.WorkingDirectory(), env.EnvMap(), Options{MinInputLength: 2})
	assert.Empty(t, res.Suggestions)
}

func TestMaxSuggestionsSetsHasMore(t *testing.T) {
	e, env := newTestEngine(t)
	res := e.Complete("", 0, env.WorkingDirectory(), env.EnvMap(), Options{MaxSuggestions: 1})
	assert.LessOrEqual(t, len(res.Suggestions), 1)
	if len(res.Suggestions) == 1 {
		assert.True(t, res.HasMore)
	}
}

func TestEnvVarCompletionOnDollarPrefix(t *testing.T) {
	e, env := newTestEngine(t)
	res := e.Complete("echo $HO", 8, env.WorkingDirectory(), env.EnvMap(), Options{})
	found := false
	for _, s := range res.Suggestions {
		if s.Text == "$HOME" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestOptionCompletionOnDashPrefix(t *testing.T) {
	e, env := newTestEngine(t)
	res := e.Complete("ls -", 4, env.WorkingDirectory(), env.EnvMap(), Options{})
	found := false
	for _, s := range res.Suggestions {
		if s.Text == "-l" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestApplySuggestionReplacesCurrentWord(t *testing.T) {
	input := "ec hello"
	s := Suggestion{Text: "echo", RequiresSpace: true}
	newInput, cursor := ApplySuggestion(input, s, 2)
	assert.Equal(t, "echo  hello", newInput)
	assert.Equal(t, len("echo "), cursor)
}

func TestLongestCommonPrefix(t *testing.T) {
	prefix := longestCommonPrefix([]Suggestion{{Text: "export"}, {Text: "echo"}, {Text: "exec"}})
	assert.Equal(t, "e", prefix)
}

func TestFileCompletionExcludesHiddenByDefault(t *testing.T) {
	e, env := newTestEngine(t)
	require.NoError(t, env.VFS().WriteFile("/home/user/.secret", "x"))
	res := e.Complete("cat ", 4, env.WorkingDirectory(), env.EnvMap(), Options{})
	for _, s := range res.Suggestions {
		assert.NotContains(t, s.Text, ".secret")
	}
}
