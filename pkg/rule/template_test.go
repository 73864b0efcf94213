package rule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/tozd/go/errors"
)

func TestCompileTemplate(t *testing.T) {
	p, err := CompilePattern(`(a)(?P<name>b)?`, DefaultRegexOptions)
	require.NoError(t, err)

	tests := []struct {
		name    string
		tmpl    string
		input   string
		want    string
		wantErr string
	}{
		{name: "literal", tmpl: "xyz", input: "ab", want: "xyz"},
		{name: "empty", tmpl: "", input: "ab", want: ""},
		{name: "numbered_and_named", tmpl: `\1-\g<name>`, input: "ab", want: "a-b"},
		{name: "g_number", tmpl: `\g<2>\g<0>`, input: "ab", want: "bab"},
		{name: "unmatched_group_is_empty", tmpl: `[\2]`, input: "a", want: "[]"},
		{name: "escapes", tmpl: `\t\n\\`, input: "a", want: "\t\n\\"},
		{name: "non_letter_escape_kept", tmpl: `\$\.`, input: "a", want: `\$\.`},
		{name: "octal_escape", tmpl: `\101`, input: "a", want: "A"},
		{name: "nul_escape", tmpl: `\0`, input: "a", want: "\x00"},
		{name: "two_digit_group_then_text", tmpl: `\1x`, input: "a", want: "ax"},
		{name: "dollar_literal", tmpl: `$1 ${name}`, input: "a", want: "$1 ${name}"},
		{name: "unicode_literal", tmpl: `é\1ñ`, input: "a", want: "éañ"},

		{name: "bad_letter_escape", tmpl: `\q`, wantErr: `bad escape \q`},
		{name: "trailing_backslash", tmpl: `abc\`, wantErr: "end of pattern"},
		{name: "missing_open_angle", tmpl: `\gx`, wantErr: "missing <"},
		{name: "missing_close_angle", tmpl: `\g<name`, wantErr: "missing >"},
		{name: "empty_group_name", tmpl: `\g<>`, wantErr: "missing group name"},
		{name: "unknown_name", tmpl: `\g<nope>`, wantErr: `unknown group name "nope"`},
		{name: "bad_name", tmpl: `\g<1a>`, wantErr: "bad character in group name"},
		{name: "group_out_of_range", tmpl: `\3`, wantErr: "invalid group reference 3"},
		{name: "two_digit_group_out_of_range", tmpl: `\12`, wantErr: "invalid group reference 12"},
		{name: "octal_out_of_range", tmpl: `\477`, wantErr: "outside of range"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl, err := CompileTemplate(tt.tmpl, p)
			if tt.wantErr != "" {
				var terr *TemplateError
				require.True(t, errors.As(err, &terr), "want TemplateError, got %v", err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.tmpl, tmpl.String())

			m, err := p.re.FindStringMatch(tt.input)
			require.NoError(t, err)
			require.NotNil(t, m)

			got, err := tmpl.Expand(m)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTranslatePattern(t *testing.T) {
	tests := []struct {
		name      string
		in        string
		want      string
		wantNames map[string]int
		wantErr   string
	}{
		{name: "untouched", in: `(\w+) (?:x)`, want: `(\w+) (?:x)`, wantNames: map[string]int{}},
		{name: "named_group", in: `(?P<w>\w+)`, want: `(\w+)`, wantNames: map[string]int{"w": 1}},
		{name: "angle_named_group", in: `(?<w>\w+)`, want: `(\w+)`, wantNames: map[string]int{"w": 1}},
		{name: "named_numbered_left_to_right", in: `(?P<a>x)(y)(?P<b>z)`, want: `(x)(y)(z)`, wantNames: map[string]int{"a": 1, "b": 3}},
		{name: "named_backref", in: `(?P<w>\w) (?P=w)1`, want: `(\w) (?:\1)1`, wantNames: map[string]int{"w": 1}},
		{name: "k_backref", in: `(x)(?<w>\w)\k<w>`, want: `(x)(\w)(?:\2)`, wantNames: map[string]int{"w": 2}},
		{name: "lookbehind_is_not_a_group", in: `(?<=a)(?<!b)(?P<v>y)`, want: `(?<=a)(?<!b)(y)`, wantNames: map[string]int{"v": 1}},
		{name: "escaped_paren", in: `\(?P<w>x(?P<v>y)`, want: `\(?P<w>x(y)`, wantNames: map[string]int{"v": 1}},
		{name: "inside_class", in: `[(?P<]x(?P<v>y)`, want: `[(?P<]x(y)`, wantNames: map[string]int{"v": 1}},
		{name: "class_with_leading_bracket", in: `[]a](?P<v>y)`, want: `[]a](y)`, wantNames: map[string]int{"v": 1}},
		{name: "end_of_text", in: `a\Z`, want: `a\z`, wantNames: map[string]int{}},
		{name: "escaped_backslash_then_z", in: `\\Z`, want: `\\Z`, wantNames: map[string]int{}},
		{name: "empty_min_bound", in: `a{,2}b{1,}c{,}`, want: `a{0,2}b{1,}c{,}`, wantNames: map[string]int{}},

		{name: "unknown_backref", in: `(?P=nope)`, wantErr: `unknown group name "nope"`},
		{name: "duplicate_name", in: `(?P<a>x)(?P<a>y)`, wantErr: `redefinition of group name "a"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, names, err := translatePattern(tt.in)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantNames, names)
		})
	}
}
