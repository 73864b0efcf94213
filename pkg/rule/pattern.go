package rule

import (
	"strconv"
	"strings"

	"github.com/dlclark/regexp2"
	"gitlab.com/tozd/go/errors"
)

// Pattern is a compiled find expression. Capturing groups are numbered left
// to right by their opening parenthesis, named or not, the way rule files
// have always numbered them.
type Pattern struct {
	re    *regexp2.Regexp
	names map[string]int
}

// CompilePattern translates src into the regex engine's dialect and compiles it.
func CompilePattern(src string, opts regexp2.RegexOptions) (*Pattern, error) {
	translated, names, err := translatePattern(src)
	if err != nil {
		return nil, err
	}
	re, err := regexp2.Compile(translated, opts)
	if err != nil {
		return nil, err
	}
	return &Pattern{re: re, names: names}, nil
}

// GroupNumber returns the number of the group called name, or -1.
func (p *Pattern) GroupNumber(name string) int {
	if n, ok := p.names[name]; ok {
		return n
	}
	return -1
}

// Groups returns the numbers of all groups, 0 included.
func (p *Pattern) Groups() []int {
	return p.re.GetGroupNumbers()
}

// translatePattern rewrites the rule-file dialect into one the regex engine
// compiles with the same meaning:
//
//   - (?P<name>...) and (?<name>...) become plain groups; names are returned
//     mapped to their left to right group number
//   - (?P=name) and \k<name> become a numbered backreference
//   - \Z is the end of the text, not the end before a final newline
//   - {,n} is {0,n}
//
// Escaped characters and character classes are copied untouched.
func translatePattern(src string) (string, map[string]int, error) {
	names := map[string]int{}

	var b strings.Builder
	inClass := false
	group := 0

	backref := func(name string) error {
		n, ok := names[name]
		if !ok {
			return errors.Errorf("unknown group name %q", name)
		}
		b.WriteString(`(?:\` + strconv.Itoa(n) + `)`)
		return nil
	}

	for i := 0; i < len(src); i++ {
		c := src[i]
		rest := src[i:]
		switch {
		case c == '\\' && i+1 < len(src):
			if !inClass && src[i+1] == 'Z' {
				b.WriteString(`\z`)
				i++
				continue
			}
			if !inClass && src[i+1] == 'k' && strings.HasPrefix(src[i+2:], "<") {
				if end := strings.IndexByte(src[i+3:], '>'); end >= 0 {
					if err := backref(src[i+3 : i+3+end]); err != nil {
						return "", nil, err
					}
					i += 3 + end
					continue
				}
			}
			b.WriteByte(c)
			b.WriteByte(src[i+1])
			i++
			continue
		case inClass:
			if c == ']' {
				inClass = false
			}
		case c == '[':
			inClass = true
			// a ']' right after '[' or '[^' is a literal member
			if strings.HasPrefix(src[i+1:], "^]") {
				b.WriteString("[^]")
				i += 2
				continue
			}
			if strings.HasPrefix(src[i+1:], "]") {
				b.WriteString("[]")
				i++
				continue
			}
		case c == '{':
			if digits, ok := emptyMinBound(rest); ok {
				b.WriteString("{0," + digits + "}")
				i += len("{,}") + len(digits) - 1
				continue
			}
		case strings.HasPrefix(rest, "(?P="):
			if end := strings.IndexByte(rest, ')'); end > 0 {
				if err := backref(rest[len("(?P="):end]); err != nil {
					return "", nil, err
				}
				i += end
				continue
			}
		case c == '(':
			if name, skip, ok := groupNameAt(rest); ok {
				group++
				if _, dup := names[name]; dup {
					return "", nil, errors.Errorf("redefinition of group name %q", name)
				}
				names[name] = group
				b.WriteByte('(')
				i += skip - 1
				continue
			}
			if !strings.HasPrefix(rest, "(?") {
				group++
			}
		}
		b.WriteByte(c)
	}
	return b.String(), names, nil
}

// groupNameAt recognises the opening of a named group at the start of s and
// returns the name and the length of the opening, "(?P<name>" or "(?<name>".
func groupNameAt(s string) (string, int, bool) {
	var open string
	switch {
	case strings.HasPrefix(s, "(?P<"):
		open = "(?P<"
	case strings.HasPrefix(s, "(?<") && !strings.HasPrefix(s, "(?<=") && !strings.HasPrefix(s, "(?<!"):
		open = "(?<"
	default:
		return "", 0, false
	}
	end := strings.IndexByte(s[len(open):], '>')
	if end <= 0 {
		return "", 0, false
	}
	name := s[len(open) : len(open)+end]
	if !isIdentifier(name) {
		return "", 0, false
	}
	return name, len(open) + end + 1, true
}

// emptyMinBound recognises "{,n}" at the start of s and returns n.
func emptyMinBound(s string) (string, bool) {
	if !strings.HasPrefix(s, "{,") {
		return "", false
	}
	end := len("{,")
	for end < len(s) && isDigit(s[end]) {
		end++
	}
	if end == len("{,") || end >= len(s) || s[end] != '}' {
		return "", false
	}
	return s[len("{,"):end], true
}
