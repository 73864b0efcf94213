package commands

import (
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/pconstrictor/usability/cmd/applyre/opts"
	"github.com/pconstrictor/usability/pkg/batch"
	"github.com/pconstrictor/usability/pkg/engine"
	"github.com/pconstrictor/usability/pkg/rulefile"
)

type batchFlags struct {
	root      string
	rules     string
	outDir    string
	suffix    string
	jobs      int
	ignore    []string
	overwrite bool
}

// NewBatchCmd creates the batch command
func NewBatchCmd(o *opts.RootOpts) *cobra.Command {
	f := &batchFlags{}

	cmd := &cobra.Command{
		Use:   "batch <glob>",
		Short: "Apply the rule file to every file matching a glob",
		Long: `Batch applies one rule file to many inputs at once.
Inputs are never overwritten: each result goes either under --out-dir, mirroring
the input tree, or next to its input with --suffix inserted before the extension.
Globs support ** and {a,b} alternatives and are relative to --root.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			rules := o.Settings.Rules
			if f.rules != "" {
				rules = f.rules
			}
			jobs := o.Settings.Jobs
			if cmd.Flags().Changed("jobs") {
				jobs = f.jobs
			}
			overwrite := o.Settings.Overwrite
			if cmd.Flags().Changed("overwrite") {
				overwrite = f.overwrite
			}

			files, err := batch.Expand(f.root, args[0], f.ignore...)
			if err != nil {
				return errors.Errorf("expanding %q: %w", args[0], err)
			}
			if len(files) == 0 {
				o.Console.Warningf("No files match %s", args[0])
				return nil
			}

			rs, err := rulefile.Load(ctx, rules, o.Settings.RuleFileOptions()...)
			if err != nil {
				return err
			}

			eng, err := engine.New(rs, o.Codec)
			if err != nil {
				return errors.Errorf("creating engine: %w", err)
			}

			runner, err := batch.NewRunner(eng, batch.Options{
				Root:      f.root,
				OutDir:    f.outDir,
				Suffix:    f.suffix,
				Overwrite: overwrite,
				Jobs:      jobs,
				Reporter:  o.Console,
			})
			if err != nil {
				return err
			}

			o.Console.Header("Processing " + args[0])
			results, err := runner.Run(ctx, files)
			if err != nil {
				return err
			}

			total, modified, skipped := 0, 0, 0
			for _, res := range results {
				total += res.Total
				if res.Modified {
					modified++
				}
				if res.Skipped {
					skipped++
				}
			}
			o.Console.LogNewline()
			o.Console.Successf("%d files, %d modified, %d skipped. A total of %d modifications were made", len(results), modified, skipped, total)
			return nil
		},
	}

	cmd.Flags().StringVar(&f.root, "root", ".", "directory the glob is relative to")
	cmd.Flags().StringVar(&f.rules, "rules", "", "rule file (defaults to the settings value)")
	cmd.Flags().StringVar(&f.outDir, "out-dir", "", "write results under this directory instead of next to the inputs")
	cmd.Flags().StringVar(&f.suffix, "suffix", batch.DefaultSuffix, "inserted before the extension of each output name when --out-dir is not set")
	cmd.Flags().IntVarP(&f.jobs, "jobs", "j", 0, "files processed at once (defaults to the settings value)")
	cmd.Flags().StringSliceVar(&f.ignore, "ignore", nil, "glob of files to leave alone, may be repeated")
	cmd.Flags().BoolVarP(&f.overwrite, "overwrite", "o", false, "overwrite existing results")

	return cmd
}
