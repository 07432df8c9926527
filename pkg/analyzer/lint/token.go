package lint

import (
	"bytes"
	"strings"
)

// commentPrefix marks a line that is ignored entirely.
const commentPrefix = "--"

// SourceLine is one raw line of input with its 1-based number.
type SourceLine struct {
	Number int
	Text   string
}

// SplitLines splits content on line boundaries. A trailing newline does not
// produce an extra empty line; CRLF endings are accepted. Line length is
// unbounded.
func SplitLines(content []byte) []string {
	if len(content) == 0 {
		return nil
	}
	content = bytes.TrimSuffix(content, []byte("\n"))
	parts := bytes.Split(content, []byte("\n"))
	lines := make([]string, len(parts))
	for i, p := range parts {
		lines[i] = string(bytes.TrimSuffix(p, []byte("\r")))
	}
	return lines
}

// normalizeLine trims the line and reports whether it carries content.
// Blank lines and comment lines are skipped.
func normalizeLine(raw string) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || strings.HasPrefix(trimmed, commentPrefix) {
		return "", false
	}
	return trimmed, true
}

// Token is a whitespace-delimited piece of a line.
type Token struct {
	Text  string
	Upper string
	Kind  TokenKind
}

// lexicon maps upper-cased token text to its kind. Anything absent is an
// identifier.
type lexicon map[string]TokenKind

func newLexicon(typeKeywords []string) lexicon {
	lx := lexicon{
		"BEGIN":  KindBlockStart,
		"END":    KindBlockEnd,
		"RETURN": KindReturn,
		":=":     KindAssign,
		"=":      KindEquals,
		";":      KindTerminator,
		"/":      KindSlash,
	}
	for _, kw := range typeKeywords {
		kw = strings.ToUpper(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		if _, reserved := lx[kw]; reserved {
			continue
		}
		lx[kw] = KindTypeKeyword
	}
	return lx
}

func (lx lexicon) classify(upper string) TokenKind {
	if kind, ok := lx[upper]; ok {
		return kind
	}
	return KindIdentifier
}

// tokenize splits a normalized line. Every ';' becomes a token of its own,
// so "x;" yields "x" and ";".
func (lx lexicon) tokenize(line string) []Token {
	fields := strings.Fields(strings.ReplaceAll(line, ";", " ;"))
	tokens := make([]Token, len(fields))
	for i, f := range fields {
		upper := strings.ToUpper(f)
		tokens[i] = Token{Text: f, Upper: upper, Kind: lx.classify(upper)}
	}
	return tokens
}

// Tokenize splits a line using the default type keywords.
func Tokenize(line string) []Token {
	return defaultLexicon.tokenize(line)
}

var defaultLexicon = newLexicon(DefaultTypeKeywords)

// indexOf returns the position of the first token of the given kind, or -1.
func indexOf(tokens []Token, kind TokenKind) int {
	for i, t := range tokens {
		if t.Kind == kind {
			return i
		}
	}
	return -1
}

// isExecutable reports whether a token counts as a statement when deciding
// whether code follows a RETURN.
func isExecutable(t Token) bool {
	switch t.Kind {
	case KindTerminator, KindBlockEnd, KindBlockStart, KindReturn, KindSlash:
		return false
	}
	return t.Text != ""
}
