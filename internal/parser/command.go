package parser

// ParseCommand tokenizes line and expands variables against env. When env
// is nil, tokens are returned unmodified (no expansion), with the
// zero-length stray tokens guard recommended by the documented contract
// dropped defensively (Tokenize never actually emits them).
func ParseCommand(line string, env map[string]string) []string {
	tokens := Tokenize(line)
	if env == nil {
		out := make([]string, 0, len(tokens))
		for _, t := range tokens {
			if t.Text == "" && t.Quote == QuoteNone {
				continue
			}
			out = append(out, t.Text)
		}
		return out
	}
	return ExpandTokens(tokens, env)
}
