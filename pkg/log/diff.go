package log

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/sergi/go-diff/diffmatchpatch"
)

// FormatDiff renders a line based diff of before and after. Removed lines are
// prefixed with "-", added lines with "+", and runs of unchanged lines are
// collapsed into a single count.
func FormatDiff(before, after string) string {
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	red := color.New(color.FgRed)
	green := color.New(color.FgGreen)
	faint := color.New(color.Faint)

	var out strings.Builder
	for _, d := range diffs {
		text := splitDiffLines(d.Text)
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			for _, line := range text {
				out.WriteString(red.Sprint("- "+line) + "\n")
			}
		case diffmatchpatch.DiffInsert:
			for _, line := range text {
				out.WriteString(green.Sprint("+ "+line) + "\n")
			}
		case diffmatchpatch.DiffEqual:
			out.WriteString(faint.Sprint(fmt.Sprintf("  ... %d unchanged lines", len(text))) + "\n")
		}
	}
	return out.String()
}

func splitDiffLines(text string) []string {
	return strings.Split(strings.TrimSuffix(text, "\n"), "\n")
}
