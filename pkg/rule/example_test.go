package rule_test

import (
	"fmt"

	"github.com/pconstrictor/usability/pkg/rule"
	"github.com/pconstrictor/usability/pkg/sfm"
)

func ExampleRule_ApplyBroad() {
	r, err := rule.New("cat", "dog", "broad")
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	out, count, err := r.ApplyBroad("cat sat")
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	fmt.Printf("Modified: %s\n", out)
	fmt.Printf("Changes: %d\n", count)

	// Output:
	// Modified: dog sat
	// Changes: 1
}

func ExampleRule_ApplyNarrow() {
	r, err := rule.New("eeh", "EEH", "sfmval: de")
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	rec := sfm.NewRecord(
		sfm.NewField("lx", "bleeh\n\n"),
		sfm.NewField("de", "foo eeh\n"),
	)

	count, err := r.ApplyNarrow(rec)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	fmt.Printf("%q\n", rec.String())
	fmt.Printf("Changes: %d\n", count)

	// Output:
	// "\\lx bleeh\n\n\\de foo EEH\n"
	// Changes: 1
}
