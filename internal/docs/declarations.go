package docs

import (
	"regexp"
	"strings"

	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
)

var propertyName = regexp.MustCompile(`^-?[a-z][a-z0-9-]*$`)

// Declaration is one "name: value" pair from a class's property listing.
type Declaration struct {
	Name  string
	Value string
}

func (d Declaration) String() string {
	return d.Name + ": " + d.Value
}

// Declarations parses a property listing one line at a time. Lines that are
// not declarations (selectors, at-rules, braces) yield nothing; custom
// properties are skipped. Values keep the spelling of the listing, with
// runs of whitespace collapsed.
func Declarations(block string) []Declaration {
	var decls []Declaration
	for _, line := range strings.Split(block, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasSuffix(line, "{") || strings.HasPrefix(line, "}") || strings.HasPrefix(line, "@") {
			continue
		}
		for _, stmt := range statements(line) {
			if d, ok := declaration(stmt); ok {
				decls = append(decls, d)
			}
		}
	}
	return decls
}

// declaration checks stmt with the CSS parser and takes the value from the
// source text.
func declaration(stmt string) (Declaration, bool) {
	p := css.NewParser(parse.NewInputString(stmt), true)
	gt, _, data := p.Next()
	if gt != css.DeclarationGrammar {
		return Declaration{}, false
	}
	name := strings.ToLower(string(data))
	if !propertyName.MatchString(name) {
		return Declaration{}, false
	}
	_, value, ok := strings.Cut(stmt, ":")
	value = normalizeSpace(value)
	if !ok || value == "" {
		return Declaration{}, false
	}
	return Declaration{Name: name, Value: value}, true
}

// statements splits line at semicolons outside parentheses and quotes.
func statements(line string) []string {
	var (
		out   []string
		depth int
		quote byte
		start int
	)
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case quote != 0:
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '(':
			depth++
		case c == ')':
			if depth > 0 {
				depth--
			}
		case c == ';' && depth == 0:
			out = append(out, line[start:i])
			start = i + 1
		}
	}
	out = append(out, line[start:])

	stmts := out[:0]
	for _, s := range out {
		if s = strings.TrimSpace(s); s != "" {
			stmts = append(stmts, s)
		}
	}
	return stmts
}
