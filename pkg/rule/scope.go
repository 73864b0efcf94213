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

package rule

import (
	"strings"
)

// 🎯 Scope says where a rule is allowed to apply
type Scope int

const (
	ScopeBroad        Scope = iota // whole document text
	ScopeNarrowAll                 // contents of every SFM field
	ScopeNarrowFields              // contents of the listed SFM fields only
	ScopeDisabled                  // never applied
)

// String returns a string representation of Scope
func (s Scope) String() string {
	switch s {
	case ScopeBroad:
		return "broad"
	case ScopeNarrowAll:
		return "narrow"
	case ScopeNarrowFields:
		return "narrow-fields"
	case ScopeDisabled:
		return "disabled"
	default:
		return "unknown"
	}
}

// Narrow reports whether the scope applies to field contents rather than to
// the whole document.
func (s Scope) Narrow() bool {
	return s == ScopeNarrowAll || s == ScopeNarrowFields
}

// Scope label prefixes, matched case-insensitively.
const (
	LabelBroad    = "broad"
	LabelNarrow   = "sfmval"
	LabelDisabled = "disable"
)

type classifier struct {
	match func(lower string) bool
	build func(label string) (Scope, []string)
}

// classifiers are tried top to bottom and the first match wins. The order is
// significant: "sfmval: de" also starts with "sfmval", so the field-list form
// has to be checked before the bare form.
var classifiers = []classifier{
	{
		match: func(lower string) bool { return strings.HasPrefix(lower, LabelBroad) },
		build: func(string) (Scope, []string) { return ScopeBroad, nil },
	},
	{
		match: func(lower string) bool {
			return strings.HasPrefix(lower, LabelNarrow+":") || strings.HasPrefix(lower, LabelNarrow+" ")
		},
		build: func(label string) (Scope, []string) { return ScopeNarrowFields, fieldNames(label) },
	},
	{
		match: func(lower string) bool { return strings.HasPrefix(lower, LabelNarrow) },
		build: func(string) (Scope, []string) { return ScopeNarrowAll, nil },
	},
	{
		match: func(lower string) bool { return strings.HasPrefix(lower, LabelDisabled) },
		build: func(string) (Scope, []string) { return ScopeDisabled, nil },
	},
}

// 🔍 ParseScope classifies a scope label. For ScopeNarrowFields it also
// returns the field markers named after the first space of the label.
func ParseScope(label string) (Scope, []string, error) {
	lower := strings.ToLower(label)
	for _, c := range classifiers {
		if c.match(lower) {
			scope, fields := c.build(label)
			return scope, fields, nil
		}
	}
	return ScopeDisabled, nil, &InvalidScopeError{Label: label}
}

// fieldNames splits "sfmval: de se" into [de se]. Marker names are case
// sensitive and kept as written.
func fieldNames(label string) []string {
	parts := strings.Split(label, " ")
	names := make([]string, 0, len(parts)-1)
	for _, p := range parts[1:] {
		if p == "" {
			continue
		}
		names = append(names, p)
	}
	return names
}
