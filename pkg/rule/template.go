package rule

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/dlclark/regexp2"
	"gitlab.com/tozd/go/errors"
)

// Template is a compiled replacement string.
//
// Rule files use backslash syntax for replacements: \1 through \99 and
// \g<1> or \g<name> insert a captured group, \n \t \r \a \b \f \v and \\ are
// the usual escapes, \0 and three-digit octal escapes insert a byte value.
// A backslash before any other ASCII letter is an error; before anything else
// it is kept literally together with the following character. Dollar signs
// have no special meaning.
type Template struct {
	src    string
	pieces []piece
}

type piece struct {
	lit   string
	group int // -1 for literal text
}

var templateEscapes = map[byte]string{
	'a':  "\a",
	'b':  "\b",
	'f':  "\f",
	'n':  "\n",
	'r':  "\r",
	't':  "\t",
	'v':  "\v",
	'\\': "\\",
}

// CompileTemplate parses src and checks every group reference against p.
func CompileTemplate(src string, p *Pattern) (*Template, error) {
	t := &Template{src: src}
	groups := make(map[int]bool)
	for _, n := range p.Groups() {
		groups[n] = true
	}

	var lit strings.Builder
	flush := func() {
		if lit.Len() > 0 {
			t.pieces = append(t.pieces, piece{lit: lit.String(), group: -1})
			lit.Reset()
		}
	}
	addGroup := func(n, pos int) error {
		if !groups[n] {
			return &TemplateError{Replace: src, Pos: pos, Reason: fmt.Sprintf("invalid group reference %d", n)}
		}
		flush()
		t.pieces = append(t.pieces, piece{group: n})
		return nil
	}

	for i := 0; i < len(src); i++ {
		c := src[i]
		if c != '\\' {
			lit.WriteByte(c)
			continue
		}
		start := i
		i++
		if i >= len(src) {
			return nil, &TemplateError{Replace: src, Pos: start, Reason: "bad escape (end of pattern)"}
		}
		c = src[i]

		switch {
		case c == 'g':
			name, end, err := groupName(src, i+1)
			if err != nil {
				return nil, err
			}
			n, err := resolveGroup(p, src, start, name)
			if err != nil {
				return nil, err
			}
			if err := addGroup(n, start); err != nil {
				return nil, err
			}
			i = end

		case c == '0':
			digits := string(c)
			for len(digits) < 3 && i+1 < len(src) && isOctal(src[i+1]) {
				i++
				digits += string(src[i])
			}
			v, _ := strconv.ParseUint(digits, 8, 16)
			lit.WriteByte(byte(v & 0xff))

		case isDigit(c):
			if i+2 < len(src) && isOctal(c) && isOctal(src[i+1]) && isOctal(src[i+2]) {
				v, _ := strconv.ParseUint(src[i:i+3], 8, 16)
				if v > 0o377 {
					return nil, &TemplateError{Replace: src, Pos: start, Reason: fmt.Sprintf("octal escape value \\%s outside of range 0-0o377", src[i:i+3])}
				}
				lit.WriteByte(byte(v))
				i += 2
				continue
			}
			end := i + 1
			if end < len(src) && isDigit(src[end]) {
				end++
			}
			n, _ := strconv.Atoi(src[i:end])
			if err := addGroup(n, start); err != nil {
				return nil, err
			}
			i = end - 1

		default:
			if esc, ok := templateEscapes[c]; ok {
				lit.WriteString(esc)
				continue
			}
			if isASCIILetter(c) {
				return nil, &TemplateError{Replace: src, Pos: start, Reason: fmt.Sprintf("bad escape \\%c", c)}
			}
			lit.WriteByte('\\')
			lit.WriteByte(c)
		}
	}
	flush()

	return t, nil
}

// groupName reads the <name> part of \g<name>, starting at the '<'. It returns
// the index of the closing '>'.
func groupName(src string, at int) (string, int, error) {
	if at >= len(src) || src[at] != '<' {
		return "", 0, &TemplateError{Replace: src, Pos: at, Reason: "missing <"}
	}
	end := strings.IndexByte(src[at+1:], '>')
	if end < 0 {
		return "", 0, &TemplateError{Replace: src, Pos: at, Reason: "missing >, unterminated name"}
	}
	name := src[at+1 : at+1+end]
	if name == "" {
		return "", 0, &TemplateError{Replace: src, Pos: at, Reason: "missing group name"}
	}
	return name, at + 1 + end, nil
}

func resolveGroup(p *Pattern, src string, pos int, name string) (int, error) {
	if isIdentifier(name) {
		n := p.GroupNumber(name)
		if n < 0 {
			return 0, &TemplateError{Replace: src, Pos: pos, Reason: fmt.Sprintf("unknown group name %q", name)}
		}
		return n, nil
	}
	n, err := strconv.Atoi(name)
	if err != nil || n < 0 {
		return 0, &TemplateError{Replace: src, Pos: pos, Reason: fmt.Sprintf("bad character in group name %q", name)}
	}
	return n, nil
}

// Expand renders the template for one match. Groups that did not take part
// in the match expand to the empty string.
func (t *Template) Expand(m *regexp2.Match) (string, error) {
	if len(t.pieces) == 1 && t.pieces[0].group < 0 {
		return t.pieces[0].lit, nil
	}
	var b strings.Builder
	for _, p := range t.pieces {
		if p.group < 0 {
			b.WriteString(p.lit)
			continue
		}
		g := m.GroupByNumber(p.group)
		if g == nil {
			return "", errors.Errorf("no group %d in match", p.group)
		}
		b.WriteString(g.String())
	}
	return b.String(), nil
}

// String returns the source the template was compiled from.
func (t *Template) String() string {
	return t.src
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isOctal(c byte) bool { return c >= '0' && c <= '7' }

func isASCIILetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentifier(s string) bool {
	for i, r := range s {
		if r == '_' || unicode.IsLetter(r) {
			continue
		}
		if i > 0 && unicode.IsDigit(r) {
			continue
		}
		return false
	}
	return s != ""
}
