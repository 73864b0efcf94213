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

// Package rule holds compiled find/replace rules and applies them either to a
// whole document or to the field contents of SFM records.
package rule

import (
	"fmt"
	"slices"
	"time"

	"github.com/dlclark/regexp2"
	"github.com/pconstrictor/usability/pkg/sfm"
)

// DefaultRegexOptions makes ^ and $ match at line boundaries. Character
// classes such as \w are Unicode aware by default.
const DefaultRegexOptions = regexp2.Multiline

// 🔄 Rule is an immutable compiled find/replace pair plus its scope
type Rule struct {
	find    string
	replace string
	label   string
	scope   Scope
	fields  []string

	pattern *Pattern
	tmpl    *Template
}

type options struct {
	regexOptions regexp2.RegexOptions
	matchTimeout time.Duration
}

// Option configures rule compilation.
type Option func(*options)

// WithRegexOptions replaces DefaultRegexOptions.
func WithRegexOptions(o regexp2.RegexOptions) Option {
	return func(opts *options) {
		opts.regexOptions = o
	}
}

// WithMatchTimeout bounds the time a single match attempt may take. A match
// that runs out of time fails the substitution with a SubstitutionError.
func WithMatchTimeout(d time.Duration) Option {
	return func(opts *options) {
		opts.matchTimeout = d
	}
}

// 🏭 New compiles a rule from its find pattern, replacement and scope label.
func New(find, replace, label string, opts ...Option) (*Rule, error) {
	o := options{regexOptions: DefaultRegexOptions}
	for _, opt := range opts {
		opt(&o)
	}

	scope, fields, err := ParseScope(label)
	if err != nil {
		return nil, err
	}

	pattern, err := CompilePattern(find, o.regexOptions)
	if err != nil {
		return nil, &PatternError{Find: find, Err: err}
	}
	if o.matchTimeout > 0 {
		pattern.re.MatchTimeout = o.matchTimeout
	}

	tmpl, err := CompileTemplate(replace, pattern)
	if err != nil {
		return nil, err
	}

	return &Rule{
		find:    find,
		replace: replace,
		label:   label,
		scope:   scope,
		fields:  fields,
		pattern: pattern,
		tmpl:    tmpl,
	}, nil
}

// Find returns the find pattern as written in the rule file.
func (r *Rule) Find() string { return r.find }

// Replace returns the replacement as written in the rule file.
func (r *Rule) Replace() string { return r.replace }

// Label returns the scope label as written in the rule file.
func (r *Rule) Label() string { return r.label }

// Scope returns the rule's scope.
func (r *Rule) Scope() Scope { return r.scope }

// Narrow reports whether the rule applies to SFM field contents.
func (r *Rule) Narrow() bool { return r.scope.Narrow() }

// Fields returns the markers a ScopeNarrowFields rule is limited to.
func (r *Rule) Fields() []string { return slices.Clone(r.fields) }

// String returns a short diagnostic form of the rule.
func (r *Rule) String() string {
	return fmt.Sprintf("[%s] %s -> %s", r.scope, r.find, r.replace)
}

// appliesTo reports whether a narrow rule touches fields with this marker.
func (r *Rule) appliesTo(marker string) bool {
	if r.scope == ScopeNarrowAll {
		return true
	}
	return slices.Contains(r.fields, marker)
}

// ApplyBroad substitutes every match in text. It returns the new text and the
// number of replacements made.
func (r *Rule) ApplyBroad(text string) (string, int, error) {
	if r.scope != ScopeBroad {
		return text, 0, &WrongModeError{Find: r.find, Scope: r.scope, Mode: "broadly"}
	}
	return r.substitute(text)
}

// ApplyNarrow substitutes matches within the contents of the record's fields
// this rule applies to. Markers are never changed and a field is only
// rewritten if something in it was replaced. The record is left untouched when
// an error is returned.
func (r *Rule) ApplyNarrow(rec *sfm.Record) (int, error) {
	if !r.scope.Narrow() {
		return 0, &WrongModeError{Find: r.find, Scope: r.scope, Mode: "narrowly"}
	}

	type update struct {
		index   int
		content string
	}

	var (
		updates []update
		total   int
	)
	for i, f := range rec.Fields {
		if !r.appliesTo(f.Marker) {
			continue
		}
		out, n, err := r.substitute(f.Content)
		if err != nil {
			return 0, err
		}
		if n > 0 {
			updates = append(updates, update{index: i, content: out})
			total += n
		}
	}

	for _, u := range updates {
		rec.Fields[u.index].Content = u.content
	}
	return total, nil
}

func (r *Rule) substitute(text string) (string, int, error) {
	var (
		count     int
		expandErr error
	)
	out, err := r.pattern.re.ReplaceFunc(text, func(m regexp2.Match) string {
		count++
		s, err := r.tmpl.Expand(&m)
		if err != nil && expandErr == nil {
			expandErr = err
		}
		return s
	}, -1, -1)
	if err == nil {
		err = expandErr
	}
	if err != nil {
		return text, 0, &SubstitutionError{Find: r.find, Replace: r.replace, Err: err}
	}
	return out, count, nil
}
