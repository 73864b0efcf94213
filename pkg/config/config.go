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

package config

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/pconstrictor/usability/pkg/rule"
	"github.com/pconstrictor/usability/pkg/rulefile"
)

// Defaults used when neither the settings file nor the command line says otherwise.
const (
	DefaultFile   = ".applyre.yaml"
	DefaultInput  = "lexicon.txt"
	DefaultOutput = "lexicon-out.tmp.txt"
	DefaultRules  = "ApplyRE.regex.txt"
	DefaultJobs   = 4
)

// 🔌 Parser is the interface for settings parsers
type Parser interface {
	// 📝 Parse parses the settings from bytes
	Parse(ctx context.Context, data []byte) (*Settings, error)

	// 🔍 CanParse checks if this parser can handle the given file
	CanParse(filename string) bool
}

var (
	// 🗺️ parsers is a list of available parsers
	parsers []Parser
)

// 📝 Register registers a parser
func Register(p Parser) {
	parsers = append(parsers, p)
}

// 🎯 GetParser returns a parser that can handle the given file
func GetParser(filename string) Parser {
	for _, p := range parsers {
		if p.CanParse(filename) {
			return p
		}
	}
	return nil
}

// 📚 Settings holds everything a run can be configured with
type Settings struct {
	Input     string `json:"input,omitempty" yaml:"input,omitempty" hcl:"input,optional"`
	Output    string `json:"output,omitempty" yaml:"output,omitempty" hcl:"output,optional"`
	Rules     string `json:"rules,omitempty" yaml:"rules,omitempty" hcl:"rules,optional"`
	Overwrite bool   `json:"overwrite,omitempty" yaml:"overwrite,omitempty" hcl:"overwrite,optional"`

	// rule file tokens
	StopMarker        string `json:"stop_marker,omitempty" yaml:"stop_marker,omitempty" hcl:"stop_marker,optional"`
	DescriptionPrefix string `json:"description_prefix,omitempty" yaml:"description_prefix,omitempty" hcl:"description_prefix,optional"`
	DisabledToken     string `json:"disabled_token,omitempty" yaml:"disabled_token,omitempty" hcl:"disabled_token,optional"`
	RecordMarker      string `json:"record_marker,omitempty" yaml:"record_marker,omitempty" hcl:"record_marker,optional"`

	// MatchTimeout is a Go duration string such as "2s"; empty means no limit
	MatchTimeout string `json:"match_timeout,omitempty" yaml:"match_timeout,omitempty" hcl:"match_timeout,optional"`

	// Jobs bounds the number of files processed at once in batch mode
	Jobs int `json:"jobs,omitempty" yaml:"jobs,omitempty" hcl:"jobs,optional"`

	matchTimeout time.Duration
	location     string
}

// Defaults returns validated settings with every default filled in.
func Defaults() *Settings {
	s := &Settings{}
	// cannot fail on zero settings
	_ = s.Validate()
	return s
}

// 🎯 Load loads the settings from a file
func Load(ctx context.Context, path string) (*Settings, error) {
	logger := zerolog.Ctx(ctx)
	logger.Debug().Str("path", path).Msg("loading settings")

	// Get parser
	p := GetParser(path)
	if p == nil {
		return nil, errors.Errorf("no parser found for file: %s", path)
	}

	// Read settings file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Errorf("reading settings file: %w", err)
	}

	// Parse settings
	s, err := p.Parse(ctx, data)
	if err != nil {
		return nil, errors.Errorf("parsing settings %s: %w", path, err)
	}
	s.location = path

	// Validate
	if err := s.Validate(); err != nil {
		return nil, errors.Errorf("validating settings %s: %w", path, err)
	}

	return s, nil
}

// LoadOptional is Load, except that a missing file yields Defaults.
func LoadOptional(ctx context.Context, path string) (*Settings, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		zerolog.Ctx(ctx).Debug().Str("path", path).Msg("no settings file, using defaults")
		return Defaults(), nil
	}
	return Load(ctx, path)
}

// 🔍 Validate checks the settings and fills in defaults
func (s *Settings) Validate() error {
	if s.Jobs < 0 {
		return errors.Errorf("jobs must not be negative, got %d", s.Jobs)
	}

	s.matchTimeout = 0
	if s.MatchTimeout != "" {
		d, err := time.ParseDuration(s.MatchTimeout)
		if err != nil {
			return errors.Errorf("invalid match_timeout %q: %w", s.MatchTimeout, err)
		}
		if d < 0 {
			return errors.Errorf("match_timeout must not be negative, got %s", d)
		}
		s.matchTimeout = d
	}

	// Set defaults
	setDefault(&s.Input, DefaultInput)
	setDefault(&s.Output, DefaultOutput)
	setDefault(&s.Rules, DefaultRules)
	setDefault(&s.StopMarker, rulefile.DefaultStopMarker)
	setDefault(&s.DescriptionPrefix, rulefile.DefaultDescriptionPrefix)
	setDefault(&s.DisabledToken, rulefile.DefaultDisabledToken)
	setDefault(&s.RecordMarker, rulefile.DefaultRecordMarker)
	if s.Jobs == 0 {
		s.Jobs = DefaultJobs
	}

	return nil
}

func setDefault(field *string, def string) {
	if *field == "" {
		*field = def
	}
}

// Location returns the file the settings were loaded from, or "" for defaults.
func (s *Settings) Location() string {
	return s.location
}

// MatchTimeoutDuration returns the parsed match_timeout. Zero means no limit.
func (s *Settings) MatchTimeoutDuration() time.Duration {
	return s.matchTimeout
}

// RuleFileOptions converts the settings into rule file parser options.
func (s *Settings) RuleFileOptions() []rulefile.Option {
	opts := []rulefile.Option{
		rulefile.WithStopMarker(s.StopMarker),
		rulefile.WithDescriptionPrefix(s.DescriptionPrefix),
		rulefile.WithDisabledToken(s.DisabledToken),
		rulefile.WithRecordMarker(s.RecordMarker),
	}
	if s.matchTimeout > 0 {
		opts = append(opts, rulefile.WithRuleOptions(rule.WithMatchTimeout(s.matchTimeout)))
	}
	return opts
}

// 📝 String returns a string representation of the settings
func (s *Settings) String() string {
	return fmt.Sprintf("%s + %s -> %s", s.Input, s.Rules, s.Output)
}
