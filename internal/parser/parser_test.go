package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenizeQuotes(t *testing.T) {
	tokens := Tokenize(`echo "Welcome $USER" 'literal $X' plain`)
	require.Len(t, tokens, 4)
	assert.Equal(t, Token{Text: "echo", Quote: QuoteNone}, tokens[0])
	assert.Equal(t, Token{Text: "Welcome $USER", Quote: QuoteDouble}, tokens[1])
	assert.Equal(t, Token{Text: "literal $X", Quote: QuoteSingle}, tokens[2])
	assert.Equal(t, Token{Text: "plain", Quote: QuoteNone}, tokens[3])
}

func TestTokenizeNeverPanics(t *testing.T) {
	inputs := []string{``, `"`, `'`, `"'`, `a"b`, `   `, `$`, `${`, `${}`}
	for _, in := range inputs {
		assert.NotPanics(t, func() { Tokenize(in) })
	}
}

func TestExpandStringBraceAndBare(t *testing.T) {
	env := map[string]string{"USER": "testuser", "HOME": "/home/user"}
	assert.Equal(t, "testuser", ExpandString("$USER", env))
	assert.Equal(t, "testuser", ExpandString("${USER}", env))
	assert.Equal(t, "hi testuser!", ExpandString("hi $USER!", env))
	assert.Equal(t, "", ExpandString("$UNBOUND", env))
}

func TestExpandStringMalformedLeftLiteral(t *testing.T) {
	env := map[string]string{}
	assert.Equal(t, "$", ExpandString("$", env))
	assert.Equal(t, "${", ExpandString("${", env))
	assert.Equal(t, "${}", ExpandString("${}", env))
	assert.Equal(t, "$123abc", ExpandString("$123abc", env))
	assert.Equal(t, "${123abc}", ExpandString("${123abc}", env))
}

func TestParseCommandNoEnvNoExpansion(t *testing.T) {
	got := ParseCommand(`echo $USER`, nil)
	assert.Equal(t, []string{"echo", "$USER"}, got)
}

func TestParseCommandSingleQuoteNeverExpands(t *testing.T) {
	env := map[string]string{"USER": "testuser"}
	got := ParseCommand(`echo '$USER'`, env)
	assert.Equal(t, []string{"echo", "$USER"}, got)
}

func TestParseCommandDoubleAndUnquotedExpandIdentically(t *testing.T) {
	env := map[string]string{"USER": "testuser"}
	got := ParseCommand(`echo "Welcome $USER"`, env)
	assert.Equal(t, []string{"echo", "Welcome testuser"}, got)

	got2 := ParseCommand(`echo Welcome $USER`, env)
	assert.Equal(t, []string{"echo", "Welcome", "testuser"}, got2)
}

func TestParsePipelineStageCount(t *testing.T) {
	p := ParsePipeline(`cat /tmp/in.txt | grep "eta" | wc -l`, nil)
	assert.Len(t, p.Stages, 3)
}

func TestParsePipelineRedirectionsAndBackground(t *testing.T) {
	p := ParsePipeline(`cat /tmp/in.txt | grep "eta" > /tmp/out.txt &`, map[string]string{})
	require.True(t, p.Background)
	require.Len(t, p.Stages, 2)
	assert.Equal(t, "cat", p.Stages[0].Command)
	assert.Equal(t, []string{"/tmp/in.txt"}, p.Stages[0].Args)
	assert.Equal(t, "grep", p.Stages[1].Command)
	require.Len(t, p.Stages[1].Output, 1)
	assert.Equal(t, RedirectOut, p.Stages[1].Output[0].Op)
	assert.Equal(t, "/tmp/out.txt", p.Stages[1].Output[0].Target)
}

func TestParsePipelineInputRedirection(t *testing.T) {
	p := ParsePipeline(`grep eta < /tmp/in.txt`, map[string]string{})
	require.Len(t, p.Stages, 1)
	require.Len(t, p.Stages[0].Input, 1)
	assert.Equal(t, RedirectIn, p.Stages[0].Input[0].Op)
	assert.Equal(t, "/tmp/in.txt", p.Stages[0].Input[0].Target)
}

func TestParsePipelineAssignment(t *testing.T) {
	p := ParsePipeline(`FOO=bar echo hi`, map[string]string{})
	require.Len(t, p.Stages, 1)
	assert.Equal(t, "bar", p.Stages[0].Assignments["FOO"])
	assert.Equal(t, "echo", p.Stages[0].Command)
	assert.Equal(t, []string{"hi"}, p.Stages[0].Args)
}

func TestParseScriptCommentsAndBlankLines(t *testing.T) {
	src := "echo one\n# a comment\n\necho two ; echo three\n"
	statements, err := ParseScript(src, map[string]string{})
	require.NoError(t, err)
	require.Len(t, statements, 3)
	assert.Equal(t, "echo", statements[0].Pipeline.Stages[0].Command)
	assert.Equal(t, []string{"two"}, statements[1].Pipeline.Stages[0].Args)
	assert.Equal(t, []string{"three"}, statements[2].Pipeline.Stages[0].Args)
}

func TestParseScriptUnterminatedQuoteFails(t *testing.T) {
	_, err := ParseScript(`echo "unterminated`, map[string]string{})
	require.Error(t, err)
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
}

// TestPipelineStageCountProperty is a lightweight property check: the
// number of parsed stages always equals the count of unquoted "|"
// separators plus one.
func TestPipelineStageCountProperty(t *testing.T) {
	lines := []string{
		"echo a",
		"echo a | echo b",
		"echo a | echo b | echo c | echo d",
		`echo "a | b" | echo c`,
	}
	expected := []int{1, 2, 4, 2}
	for i, line := range lines {
		p := ParsePipeline(line, nil)
		assert.Equal(t, expected[i], len(p.Stages), line)
	}
}
