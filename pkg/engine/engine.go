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

package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/pconstrictor/usability/pkg/rule"
	"github.com/pconstrictor/usability/pkg/rulefile"
	"github.com/pconstrictor/usability/pkg/sfm"
)

// 📦 Step identifies the rule about to run
type Step struct {
	Index int // 1-based position in the rule set
	Of    int // number of rules in the rule set
	Rule  *rule.Rule
}

// 📊 StepResult is what one rule did to the document
type StepResult struct {
	Index   int
	Rule    *rule.Rule
	Count   int
	Elapsed time.Duration
}

// 📊 Result is the outcome of a full run
type Result struct {
	OriginalContent string
	Output          string
	Total           int
	Steps           []StepResult
	WasModified     bool
}

// 👀 Observer is told about every rule as the engine applies it
type Observer interface {
	RuleStarted(ctx context.Context, step Step)
	RuleFinished(ctx context.Context, res StepResult)
}

type nopObserver struct{}

func (nopObserver) RuleStarted(context.Context, Step)        {}
func (nopObserver) RuleFinished(context.Context, StepResult) {}

// CollaboratorUnavailableError is returned by New when the rule set has narrow
// rules but no SFM codec was supplied.
type CollaboratorUnavailableError struct {
	NarrowRules int
}

func (e *CollaboratorUnavailableError) Error() string {
	return fmt.Sprintf("%d narrow rules need an SFM record codec, but none is available", e.NarrowRules)
}

// 🔄 Engine applies an ordered rule set to documents
type Engine struct {
	rules    *rulefile.RuleSet
	codec    sfm.Codec
	observer Observer
}

// Option configures an Engine.
type Option func(*Engine)

// WithObserver reports progress to obs.
func WithObserver(obs Observer) Option {
	return func(e *Engine) {
		if obs != nil {
			e.observer = obs
		}
	}
}

// 🏭 New creates an engine for rs. codec may be nil when every rule is broad.
func New(rs *rulefile.RuleSet, codec sfm.Codec, opts ...Option) (*Engine, error) {
	if rs == nil {
		return nil, errors.New("rule set is nil")
	}
	if codec == nil && rs.HasNarrow() {
		return nil, &CollaboratorUnavailableError{NarrowRules: rs.CountNarrow()}
	}

	e := &Engine{
		rules:    rs,
		codec:    codec,
		observer: nopObserver{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// RuleSet returns the rules the engine applies.
func (e *Engine) RuleSet() *rulefile.RuleSet {
	return e.rules
}

// 🏃 Run applies every rule in order to text. Each rule sees the output of the
// previous one. Narrow rules re-read the records from the current text, so an
// earlier rule may add, remove or rename fields. Any error aborts the run and
// no partial output is returned.
func (e *Engine) Run(ctx context.Context, text string) (*Result, error) {
	logger := zerolog.Ctx(ctx)

	rules := e.rules.Rules
	res := &Result{
		OriginalContent: text,
		Steps:           make([]StepResult, 0, len(rules)),
	}

	data := text
	for i, r := range rules {
		if err := ctx.Err(); err != nil {
			return nil, errors.Errorf("applying rule %d of %d: %w", i+1, len(rules), err)
		}

		e.observer.RuleStarted(ctx, Step{Index: i + 1, Of: len(rules), Rule: r})

		start := time.Now()
		var (
			count int
			err   error
		)
		if r.Narrow() {
			data, count, err = e.applyNarrow(data, r)
		} else {
			data, count, err = r.ApplyBroad(data)
		}
		if err != nil {
			return nil, errors.Errorf("applying rule %d of %d: %w", i+1, len(rules), err)
		}

		step := StepResult{Index: i + 1, Rule: r, Count: count, Elapsed: time.Since(start)}
		res.Steps = append(res.Steps, step)
		res.Total += count

		logger.Debug().
			Int("index", step.Index).
			Stringer("scope", r.Scope()).
			Int("count", count).
			Dur("elapsed", step.Elapsed).
			Msg("applied rule")

		e.observer.RuleFinished(ctx, step)
	}

	res.Output = data
	res.WasModified = data != text
	return res, nil
}

func (e *Engine) applyNarrow(text string, r *rule.Rule) (string, int, error) {
	doc := e.codec.Parse(text, e.rules.RecordMarker)

	total := 0
	for _, rec := range doc.Records {
		n, err := r.ApplyNarrow(rec)
		if err != nil {
			return text, 0, err
		}
		total += n
	}
	if total == 0 {
		return text, 0, nil
	}
	return doc.String(), total, nil
}
