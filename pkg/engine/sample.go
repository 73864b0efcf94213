package engine

import (
	"context"

	"gitlab.com/tozd/go/errors"

	"github.com/pconstrictor/usability/pkg/rule"
	"github.com/pconstrictor/usability/pkg/sfm"
)

// SampleRecord returns a fresh copy of the built-in demo record.
func SampleRecord() *sfm.Record {
	return sfm.NewRecord(
		sfm.NewField("lx", "bleeh\n\n"),
		sfm.NewField("de", "foo eeh\n"),
		sfm.NewField("se", "yeeda\n"),
		sfm.NewField("de", "beeh\n"),
	)
}

// 🧪 RunSample applies the narrow rules in rules to SampleRecord and returns
// the record text before and after. Broad rules are skipped. It needs no
// codec, so it works when New has failed with CollaboratorUnavailableError.
func RunSample(ctx context.Context, rules []*rule.Rule, obs Observer) (before, after string, err error) {
	if obs == nil {
		obs = nopObserver{}
	}

	rec := SampleRecord()
	before = rec.String()

	for i, r := range rules {
		if !r.Narrow() {
			continue
		}
		obs.RuleStarted(ctx, Step{Index: i + 1, Of: len(rules), Rule: r})
		n, err := r.ApplyNarrow(rec)
		if err != nil {
			return before, "", errors.Errorf("applying rule %d to the sample record: %w", i+1, err)
		}
		obs.RuleFinished(ctx, StepResult{Index: i + 1, Rule: r, Count: n})
	}

	return before, rec.String(), nil
}
