package rulefile

import (
	"fmt"
	"strings"

	"github.com/pconstrictor/usability/pkg/rule"
)

type state int

const (
	stateIdle        state = iota // between entries
	stateDescription              // reading ## lines, next other line is the scope label
	stateFind                     // next line is the find pattern
	stateReplace                  // next line is the replacement
)

func (s state) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateDescription:
		return "description"
	case stateFind:
		return "find"
	case stateReplace:
		return "replace"
	default:
		return "unknown"
	}
}

// entry collects the lines of the rule being read.
type entry struct {
	label     string
	labelLine int
	find      string
}

type machine struct {
	parser   *Parser
	state    state
	cur      entry
	rules    []*rule.Rule
	disabled int
}

type transition func(m *machine, line string, lineNo int) (state, error)

var transitions = [...]transition{
	stateIdle:        (*machine).idle,
	stateDescription: (*machine).description,
	stateFind:        (*machine).find,
	stateReplace:     (*machine).replace,
}

// feed advances the machine by one line. line has its line ending removed.
func (m *machine) feed(line string, lineNo int) error {
	next, err := transitions[m.state](m, line, lineNo)
	if err != nil {
		return err
	}
	m.state = next
	return nil
}

func (m *machine) idle(line string, lineNo int) (state, error) {
	switch {
	case isBlank(line):
		return stateIdle, nil
	case strings.HasPrefix(line, m.parser.descPrefix):
		m.cur = entry{}
		return stateDescription, nil
	default:
		return stateIdle, &ConfigError{
			Line:   lineNo,
			Reason: "each regex needs to begin with at least one description line beginning with " + m.parser.descPrefix,
		}
	}
}

func (m *machine) description(line string, lineNo int) (state, error) {
	if strings.HasPrefix(line, m.parser.descPrefix) {
		return stateDescription, nil
	}
	m.cur.label = line
	m.cur.labelLine = lineNo
	return stateFind, nil
}

func (m *machine) find(line string, _ int) (state, error) {
	m.cur.find = line
	return stateReplace, nil
}

func (m *machine) replace(line string, lineNo int) (state, error) {
	cur := m.cur
	m.cur = entry{}

	if strings.HasPrefix(strings.ToLower(cur.label), strings.ToLower(m.parser.disabledToken)) {
		m.disabled++
		return stateIdle, nil
	}

	r, err := rule.New(cur.find, line, cur.label, m.parser.ruleOpts...)
	if err != nil {
		return stateIdle, &ConfigError{
			Line:   lineNo,
			Reason: fmt.Sprintf("invalid regex entry (scope label on line %d)", cur.labelLine),
			Err:    err,
		}
	}
	if r.Scope() == rule.ScopeDisabled {
		m.disabled++
		return stateIdle, nil
	}
	m.rules = append(m.rules, r)
	return stateIdle, nil
}
