// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

/*
Package rulefile reads the hand-edited regex rule file into an ordered RuleSet.

Layout of a rule file:

	free-form comments, ignored
	}} rest of this line is ignored too
	<one blank line>
	Record marker: lx
	## description of the first regex
	## (as many description lines as needed)
	broad
	find pattern
	replacement

	## description of the next regex
	sfmval: de se
	...

Each entry is one or more description lines, a scope label line (broad,
sfmval, "sfmval: <markers>", or anything starting with "disable"), then
exactly one find line and one replace line. Find and replace lines are taken
literally; only the line ending is removed. Disabled entries are dropped.
*/
package rulefile

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/pconstrictor/usability/pkg/rule"
)

// Default tokens of the rule file format.
const (
	DefaultStopMarker        = "}}"
	DefaultDescriptionPrefix = "##"
	DefaultDisabledToken     = rule.LabelDisabled
	DefaultRecordMarker      = "lx"
)

// 📚 RuleSet is the result of parsing a rule file
type RuleSet struct {
	// RecordMarker is the SFM marker that starts a new record
	RecordMarker string

	// Rules are the enabled rules in file order
	Rules []*rule.Rule
}

// HasNarrow reports whether any rule needs SFM records.
func (rs *RuleSet) HasNarrow() bool {
	for _, r := range rs.Rules {
		if r.Narrow() {
			return true
		}
	}
	return false
}

// CountNarrow returns the number of narrow rules.
func (rs *RuleSet) CountNarrow() int {
	n := 0
	for _, r := range rs.Rules {
		if r.Narrow() {
			n++
		}
	}
	return n
}

// ConfigError reports a malformed rule file. Line is 1-based.
type ConfigError struct {
	Line   int
	Reason string
	Err    error
}

func (e *ConfigError) Error() string {
	msg := fmt.Sprintf("config error near line %d: %s", e.Line, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Parser holds the tokens of the rule file format.
type Parser struct {
	stopMarker    string
	descPrefix    string
	disabledToken string
	recordMarker  string
	ruleOpts      []rule.Option
}

// Option configures a Parser.
type Option func(*Parser)

// WithStopMarker sets the token that ends the leading comment block.
func WithStopMarker(s string) Option {
	return func(p *Parser) { p.stopMarker = s }
}

// WithDescriptionPrefix sets the token that starts a description line.
func WithDescriptionPrefix(s string) Option {
	return func(p *Parser) { p.descPrefix = s }
}

// WithDisabledToken sets the scope label prefix that disables an entry.
func WithDisabledToken(s string) Option {
	return func(p *Parser) { p.disabledToken = s }
}

// WithRecordMarker sets the record marker used when the file does not name one.
func WithRecordMarker(s string) Option {
	return func(p *Parser) { p.recordMarker = s }
}

// WithRuleOptions passes options through to rule.New.
func WithRuleOptions(opts ...rule.Option) Option {
	return func(p *Parser) { p.ruleOpts = append(p.ruleOpts, opts...) }
}

// NewParser creates a Parser with the default tokens.
func NewParser(opts ...Option) *Parser {
	p := &Parser{
		stopMarker:    DefaultStopMarker,
		descPrefix:    DefaultDescriptionPrefix,
		disabledToken: DefaultDisabledToken,
		recordMarker:  DefaultRecordMarker,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse reads a rule file with a default Parser.
func Parse(ctx context.Context, r io.Reader, opts ...Option) (*RuleSet, error) {
	return NewParser(opts...).Parse(ctx, r)
}

// 🎯 Load reads and parses the rule file at path
func Load(ctx context.Context, path string, opts ...Option) (*RuleSet, error) {
	zerolog.Ctx(ctx).Debug().Str("path", path).Msg("loading rule file")

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Errorf("opening rule file: %w", err)
	}
	defer f.Close()

	rs, err := NewParser(opts...).Parse(ctx, f)
	if err != nil {
		return nil, errors.Errorf("parsing rule file %s: %w", path, err)
	}
	return rs, nil
}

// Parse reads a whole rule file from r.
func (p *Parser) Parse(ctx context.Context, r io.Reader) (*RuleSet, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Errorf("reading rule file: %w", err)
	}
	lines := splitLines(string(data))

	n := 0
	for n < len(lines) {
		n++
		if strings.HasPrefix(lines[n-1], p.stopMarker) {
			break
		}
	}

	// the line after the stop marker is expected to be blank and is dropped
	if n < len(lines) {
		n++
	}

	rs := &RuleSet{RecordMarker: p.recordMarker}
	if n < len(lines) {
		line := lines[n]
		n++
		if i := strings.LastIndex(line, ":"); i >= 0 {
			if name := strings.TrimSpace(line[i+1:]); name != "" {
				rs.RecordMarker = name
			}
		}
	}

	m := &machine{parser: p}
	for ; n < len(lines); n++ {
		if err := m.feed(strings.TrimRight(lines[n], "\r\n"), n+1); err != nil {
			return nil, err
		}
	}
	if m.state != stateIdle {
		return nil, &ConfigError{
			Line:   len(lines),
			Reason: "incomplete set of info for the regular expression at the end of the regex file",
		}
	}
	if len(m.rules) == 0 {
		return nil, &ConfigError{
			Line: len(lines),
			Reason: fmt.Sprintf("please close the initial comments with a line beginning with %s "+
				"and after that provide at least one enabled regular expression", p.stopMarker),
		}
	}

	rs.Rules = m.rules
	zerolog.Ctx(ctx).Debug().
		Str("record_marker", rs.RecordMarker).
		Int("rules", len(rs.Rules)).
		Int("disabled", m.disabled).
		Msg("parsed rule file")

	return rs, nil
}

func splitLines(text string) []string {
	lines := strings.SplitAfter(text, "\n")
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}
	return lines
}

func isBlank(line string) bool {
	return strings.TrimRightFunc(line, unicode.IsSpace) == ""
}
