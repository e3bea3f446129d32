package parser

// isWordChar reports whether r is valid inside a variable name (after the
// first character).
func isWordChar(r byte) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

func isNameStart(r byte) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

// ExpandString replaces ${NAME} and $NAME references with values from env,
// leaving malformed or invalid-identifier sequences ($, ${, ${}, $123abc,
// ${123abc}) literal. Names are looked up verbatim; unbound names expand to
// the empty string.
func ExpandString(s string, env map[string]string) string {
	var out []byte
	i := 0
	for i < len(s) {
		if s[i] != '$' {
			out = append(out, s[i])
			i++
			continue
		}
		// s[i] == '$'
		if i+1 < len(s) && s[i+1] == '{' {
			end := -1
			for j := i + 2; j < len(s); j++ {
				if s[j] == '}' {
					end = j
					break
				}
			}
			if end == -1 {
				// "${" with no closing brace: left literal.
				out = append(out, '$')
				i++
				continue
			}
			name := s[i+2 : end]
			if name != "" && isNameStart(name[0]) && validName(name) {
				out = append(out, env[name]...)
			} else {
				out = append(out, s[i:end+1]...)
			}
			i = end + 1
			continue
		}

		j := i + 1
		for j < len(s) && isWordChar(s[j]) {
			j++
		}
		name := s[i+1 : j]
		if name == "" {
			// bare "$": left literal.
			out = append(out, '$')
			i++
			continue
		}
		if !isNameStart(name[0]) {
			// starts with a digit: left literal, including the leading $.
			out = append(out, s[i:j]...)
			i = j
			continue
		}
		out = append(out, env[name]...)
		i = j
	}
	return string(out)
}

func validName(name string) bool {
	for i := 0; i < len(name); i++ {
		if !isWordChar(name[i]) {
			return false
		}
	}
	return true
}

// ExpandTokens expands unquoted and double-quoted tokens, leaving
// single-quoted tokens untouched, and drops tokens that are both unquoted
// and resolve to the empty string after expansion (matching POSIX
// unquoted-empty-expansion elision; an explicitly quoted empty string, e.g.
// from "" or '', is preserved as a real empty argument).
func ExpandTokens(tokens []Token, env map[string]string) []string {
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if t.Quote == QuoteSingle {
			out = append(out, t.Text)
			continue
		}
		expanded := ExpandString(t.Text, env)
		if expanded == "" && t.Quote == QuoteNone && t.Text != "" {
			// e.g. a bare $UNSET token vanishes entirely.
			continue
		}
		out = append(out, expanded)
	}
	return out
}
