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
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gitlab.com/tozd/go/errors"

	"github.com/pconstrictor/usability/pkg/rule"
	"github.com/pconstrictor/usability/pkg/rulefile"
	"github.com/pconstrictor/usability/pkg/sfm"
)

// MockObserver is a mock implementation of Observer
type MockObserver struct {
	mock.Mock
}

func (m *MockObserver) RuleStarted(ctx context.Context, step Step) {
	m.Called(ctx, step)
}

func (m *MockObserver) RuleFinished(ctx context.Context, res StepResult) {
	m.Called(ctx, res)
}

// countingCodec records how often the engine asks for records
type countingCodec struct {
	calls int
}

func (c *countingCodec) Parse(text, recordMarker string) *sfm.Document {
	c.calls++
	return sfm.Parse(text, recordMarker)
}

func setupTestContext(t *testing.T) context.Context {
	logger := zerolog.New(zerolog.TestWriter{T: t}).With().Timestamp().Logger().Level(zerolog.DebugLevel)
	return logger.WithContext(context.Background())
}

type ruleDef struct {
	find, replace, label string
}

func ruleSet(t *testing.T, defs ...ruleDef) *rulefile.RuleSet {
	t.Helper()
	rs := &rulefile.RuleSet{RecordMarker: rulefile.DefaultRecordMarker}
	for _, s := range defs {
		r, err := rule.New(s.find, s.replace, s.label)
		require.NoError(t, err)
		rs.Rules = append(rs.Rules, r)
	}
	return rs
}

func TestNew(t *testing.T) {
	t.Run("narrow_rules_need_a_codec", func(t *testing.T) {
		rs := ruleSet(t, ruleDef{"a", "b", "broad"}, ruleDef{"x", "y", "sfmval"}, ruleDef{"x", "y", "sfmval: de"})

		eng, err := New(rs, nil)
		require.Error(t, err)
		assert.Nil(t, eng)

		var cerr *CollaboratorUnavailableError
		require.True(t, errors.As(err, &cerr))
		assert.Equal(t, 2, cerr.NarrowRules)
	})

	t.Run("broad_rules_need_no_codec", func(t *testing.T) {
		eng, err := New(ruleSet(t, ruleDef{"a", "b", "broad"}), nil)
		require.NoError(t, err)
		assert.NotNil(t, eng)
	})

	t.Run("nil_rule_set", func(t *testing.T) {
		_, err := New(nil, sfm.NewCodec())
		require.Error(t, err)
	})
}

func TestRun(t *testing.T) {
	tests := []struct {
		name       string
		rules      []ruleDef
		input      string
		want       string
		wantTotal  int
		wantCounts []int
	}{
		{
			name:       "single_broad",
			rules:      []ruleDef{{"cat", "dog", "broad"}},
			input:      "cat sat",
			want:       "dog sat",
			wantTotal:  1,
			wantCounts: []int{1},
		},
		{
			name:       "rules_compose_left_to_right",
			rules:      []ruleDef{{"a", "b", "broad"}, {"b", "c", "broad"}},
			input:      "a",
			want:       "c",
			wantTotal:  2,
			wantCounts: []int{1, 1},
		},
		{
			name:       "no_matches",
			rules:      []ruleDef{{"zzz", "y", "broad"}, {"zzz", "y", "sfmval"}},
			input:      "\\lx a\n\\de b\n",
			want:       "\\lx a\n\\de b\n",
			wantTotal:  0,
			wantCounts: []int{0, 0},
		},
		{
			name:  "broad_and_narrow",
			rules: []ruleDef{{`^\\gl `, `\\ge `, "broad"}, {"eeh", "EEH", "sfmval: de"}},
			input: "header eeh\n\\lx bleeh\n\\gl eeh\n\\de foo eeh\n\\lx x\n\\de eeh\n",
			want:  "header eeh\n\\lx bleeh\n\\ge eeh\n\\de foo EEH\n\\lx x\n\\de EEH\n",
			// header text is never touched by narrow rules
			wantTotal:  3,
			wantCounts: []int{1, 2},
		},
		{
			name:       "narrow_sees_fields_renamed_by_earlier_rule",
			rules:      []ruleDef{{`^\\gl`, `\\de`, "broad"}, {"eeh", "EEH", "sfmval: de"}},
			input:      "\\lx a\n\\gl eeh\n",
			want:       "\\lx a\n\\de EEH\n",
			wantTotal:  2,
			wantCounts: []int{1, 1},
		},
		{
			name:       "narrow_sees_records_split_by_earlier_rule",
			rules:      []ruleDef{{`^\\xx`, `\\lx`, "broad"}, {`^(\w)`, `*\1`, "sfmval: lx"}},
			input:      "\\lx one\n\\xx two\n",
			want:       "\\lx *one\n\\lx *two\n",
			wantTotal:  3,
			wantCounts: []int{1, 2},
		},
		{
			name:       "narrow_never_touches_markers",
			rules:      []ruleDef{{"de", "XX", "sfmval"}},
			input:      "\\lx de\n\\de de\n",
			want:       "\\lx XX\n\\de XX\n",
			wantTotal:  2,
			wantCounts: []int{2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := setupTestContext(t)

			eng, err := New(ruleSet(t, tt.rules...), sfm.NewCodec())
			require.NoError(t, err)

			res, err := eng.Run(ctx, tt.input)
			require.NoError(t, err)

			assert.Equal(t, tt.want, res.Output)
			assert.Equal(t, tt.input, res.OriginalContent)
			assert.Equal(t, tt.wantTotal, res.Total)
			assert.Equal(t, tt.input != tt.want, res.WasModified)

			counts := make([]int, 0, len(res.Steps))
			for i, step := range res.Steps {
				assert.Equal(t, i+1, step.Index)
				counts = append(counts, step.Count)
			}
			assert.Equal(t, tt.wantCounts, counts)
		})
	}
}

func TestRun_BroadOnlyNeverParsesRecords(t *testing.T) {
	codec := &countingCodec{}
	eng, err := New(ruleSet(t, ruleDef{"a", "b", "broad"}, ruleDef{"b", "c", "broad"}), codec)
	require.NoError(t, err)

	_, err = eng.Run(setupTestContext(t), "\\lx a\n")
	require.NoError(t, err)
	assert.Equal(t, 0, codec.calls)
}

func TestRun_NarrowReparsesEveryStep(t *testing.T) {
	codec := &countingCodec{}
	eng, err := New(ruleSet(t,
		ruleDef{"a", "b", "sfmval"},
		ruleDef{"b", "c", "broad"},
		ruleDef{"c", "d", "sfmval"},
	), codec)
	require.NoError(t, err)

	res, err := eng.Run(setupTestContext(t), "\\lx a\n")
	require.NoError(t, err)
	assert.Equal(t, "\\lx d\n", res.Output)
	assert.Equal(t, 2, codec.calls)
}

func TestRun_Deterministic(t *testing.T) {
	ctx := setupTestContext(t)
	rs := ruleSet(t,
		ruleDef{`(\w)\1`, `\1`, "sfmval"},
		ruleDef{"  +", " ", "broad"},
		ruleDef{`^(?P<m>\\se) `, `\g<m> -`, "broad"},
	)
	input := "\\lx bleeh\n\n\\de foo  eeh\n\\se yeeda\n"

	eng, err := New(rs, sfm.NewCodec())
	require.NoError(t, err)

	first, err := eng.Run(ctx, input)
	require.NoError(t, err)
	second, err := eng.Run(ctx, input)
	require.NoError(t, err)
	assert.Equal(t, first.Output, second.Output)
	assert.Equal(t, first.Total, second.Total)
	assert.Equal(t, "\\lx bleh\n\n\\de fo eh\n\\se -yeda\n", first.Output)

	// the rule set is not idempotent: the dash rule fires again on its own output
	again, err := eng.Run(ctx, first.Output)
	require.NoError(t, err)
	assert.Equal(t, "\\lx bleh\n\n\\de fo eh\n\\se --yeda\n", again.Output)
	assert.Equal(t, 1, again.Total)
}

func TestRun_Observer(t *testing.T) {
	ctx := setupTestContext(t)
	rs := ruleSet(t, ruleDef{"a", "b", "broad"}, ruleDef{"b", "c", "sfmval: de"})

	obs := new(MockObserver)
	obs.On("RuleStarted", mock.Anything, mock.MatchedBy(func(s Step) bool {
		return s.Index == 1 && s.Of == 2 && !s.Rule.Narrow()
	})).Once()
	obs.On("RuleFinished", mock.Anything, mock.MatchedBy(func(r StepResult) bool {
		return r.Index == 1 && r.Count == 2
	})).Once()
	obs.On("RuleStarted", mock.Anything, mock.MatchedBy(func(s Step) bool {
		return s.Index == 2 && s.Of == 2 && s.Rule.Narrow()
	})).Once()
	obs.On("RuleFinished", mock.Anything, mock.MatchedBy(func(r StepResult) bool {
		return r.Index == 2 && r.Count == 1
	})).Once()

	eng, err := New(rs, sfm.NewCodec(), WithObserver(obs))
	require.NoError(t, err)

	res, err := eng.Run(ctx, "\\lx a\n\\de a\n")
	require.NoError(t, err)
	assert.Equal(t, "\\lx b\n\\de c\n", res.Output)

	obs.AssertExpectations(t)
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(setupTestContext(t))
	cancel()

	eng, err := New(ruleSet(t, ruleDef{"a", "b", "broad"}), nil)
	require.NoError(t, err)

	res, err := eng.Run(ctx, "a")
	require.Error(t, err)
	assert.Nil(t, res)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestRunSample(t *testing.T) {
	ctx := setupTestContext(t)
	rs := ruleSet(t,
		ruleDef{"eeh", "EEH", "sfmval: de"},
		ruleDef{"e", "E", "broad"},
		ruleDef{"^y", "Y", "sfmval: se"},
	)

	before, after, err := RunSample(ctx, rs.Rules, nil)
	require.NoError(t, err)
	assert.Equal(t, "\\lx bleeh\n\n\\de foo eeh\n\\se yeeda\n\\de beeh\n", before)
	assert.Equal(t, "\\lx bleeh\n\n\\de foo EEH\n\\se Yeeda\n\\de bEEH\n", after)

	// each call starts from a fresh record
	before2, _, err := RunSample(ctx, rs.Rules, nil)
	require.NoError(t, err)
	assert.Equal(t, before, before2)
}

func TestRunSample_SkipsBroadRules(t *testing.T) {
	obs := new(MockObserver)
	obs.On("RuleStarted", mock.Anything, mock.Anything).Once()
	obs.On("RuleFinished", mock.Anything, mock.MatchedBy(func(r StepResult) bool {
		return r.Index == 2 && r.Count == 1
	})).Once()

	rs := ruleSet(t, ruleDef{"bleeh", "x", "broad"}, ruleDef{"yeeda", "Y", "sfmval"})

	_, after, err := RunSample(context.Background(), rs.Rules, obs)
	require.NoError(t, err)
	assert.Equal(t, "\\lx bleeh\n\n\\de foo eeh\n\\se Y\n\\de beeh\n", after)
	obs.AssertExpectations(t)
}
