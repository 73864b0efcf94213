package rule

import (
	"fmt"
)

// InvalidScopeError is returned for a scope label that matches none of the
// known categories.
type InvalidScopeError struct {
	Label string
}

func (e *InvalidScopeError) Error() string {
	return fmt.Sprintf("invalid regex scope label: %q", e.Label)
}

// WrongModeError is returned when a broad rule is applied to a record or a
// narrow rule to whole-document text.
type WrongModeError struct {
	Find  string
	Scope Scope
	Mode  string // "broadly" or "narrowly"
}

func (e *WrongModeError) Error() string {
	return fmt.Sprintf("regex %q has %s scope and cannot be applied %s", e.Find, e.Scope, e.Mode)
}

// SubstitutionError wraps a failure of the regex engine while substituting.
type SubstitutionError struct {
	Find    string
	Replace string
	Err     error
}

func (e *SubstitutionError) Error() string {
	return fmt.Sprintf("applying regex:\n%s\n%s\n%v", e.Find, e.Replace, e.Err)
}

func (e *SubstitutionError) Unwrap() error {
	return e.Err
}

// PatternError is returned when the find pattern does not compile.
type PatternError struct {
	Find string
	Err  error
}

func (e *PatternError) Error() string {
	return fmt.Sprintf("compiling find pattern %q: %v", e.Find, e.Err)
}

func (e *PatternError) Unwrap() error {
	return e.Err
}

// TemplateError is returned when the replacement string is malformed or
// refers to a group the pattern does not define.
type TemplateError struct {
	Replace string
	Pos     int
	Reason  string
}

func (e *TemplateError) Error() string {
	return fmt.Sprintf("replacement %q at position %d: %s", e.Replace, e.Pos, e.Reason)
}
