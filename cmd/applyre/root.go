package main

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/pterm/pterm"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/pconstrictor/usability/cmd/applyre/commands"
	"github.com/pconstrictor/usability/cmd/applyre/opts"
	"github.com/pconstrictor/usability/pkg/config"
	"github.com/pconstrictor/usability/pkg/engine"
	"github.com/pconstrictor/usability/pkg/fileio"
	"github.com/pconstrictor/usability/pkg/log"
	"github.com/pconstrictor/usability/pkg/rulefile"
)

type applyFlags struct {
	overwrite bool
	dryRun    bool
}

func newRootCmd(o *opts.RootOpts) *cobra.Command {
	f := &applyFlags{}

	cmd := &cobra.Command{
		Use:   "applyre [infile [outfile [regexfile]]]",
		Short: "Apply a file of regular expressions to a text or SFM file",
		Long: `applyre reads a rule file of find/replace regular expressions and applies
them in order to the input file, writing the result to the output file.

Broad rules apply to the whole text. Narrow (sfmval) rules only touch the
contents of Standard Format Marker fields, never the markers themselves.

Defaults: infile ` + config.DefaultInput + `, outfile ` + config.DefaultOutput + `,
regexfile ` + config.DefaultRules + `.`,
		Args:          cobra.MaximumNArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setup(cmd, o)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApply(cmd, o, f, args)
		},
	}

	cmd.PersistentFlags().StringVarP(&o.SettingsFile, "settings", "s", config.DefaultFile, "settings file (yaml, hcl or json)")
	cmd.PersistentFlags().BoolVarP(&o.Debug, "debug", "d", false, "enable debug logging")
	cmd.Flags().BoolVarP(&f.overwrite, "overwrite", "o", false, "overwrite the output file, if it already exists")
	cmd.Flags().BoolVar(&f.dryRun, "dry-run", false, "print a diff of the changes instead of writing the output file")

	cmd.AddCommand(
		newVersionCmd(o.Stdout),
		commands.NewBatchCmd(o),
	)

	return cmd
}

// setup configures output styling and logging and loads the settings
func setup(cmd *cobra.Command, o *opts.RootOpts) error {
	configureStyling(o.Stdout)

	level := zerolog.WarnLevel
	if o.Debug {
		level = zerolog.DebugLevel
	}
	zlog := zerolog.New(zerolog.ConsoleWriter{Out: o.Stderr, NoColor: color.NoColor}).
		Level(level).
		With().Timestamp().Logger()
	ctx := zlog.WithContext(cmd.Context())

	var (
		s   *config.Settings
		err error
	)
	if cmd.Flags().Changed("settings") {
		s, err = config.Load(ctx, o.SettingsFile)
	} else {
		s, err = config.LoadOptional(ctx, o.SettingsFile)
	}
	if err != nil {
		return errors.Errorf("loading settings: %w", err)
	}
	o.Settings = s

	o.Console = log.New(o.Stdout, zlog)
	cmd.SetContext(log.NewContext(ctx, o.Console))
	return nil
}

// configureStyling turns colors off unless out is a terminal
func configureStyling(out io.Writer) {
	if f, ok := out.(*os.File); ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) {
		return
	}
	color.NoColor = true
	pterm.DisableStyling()
}

func runApply(cmd *cobra.Command, o *opts.RootOpts, f *applyFlags, args []string) error {
	ctx := cmd.Context()
	console := log.FromContext(ctx)

	s := *o.Settings
	if len(args) > 0 {
		s.Input = args[0]
	}
	if len(args) > 1 {
		s.Output = args[1]
	}
	if len(args) > 2 {
		s.Rules = args[2]
	}
	if cmd.Flags().Changed("overwrite") {
		s.Overwrite = f.overwrite
	}

	console.Header("Running applyre " + GetVersionInfo().Version)
	if loc := s.Location(); loc != "" {
		console.Infof("Using settings from %s: %s", loc, &s)
	}

	rs, err := rulefile.Load(ctx, s.Rules, s.RuleFileOptions()...)
	if err != nil {
		return err
	}

	if !f.dryRun {
		if err := fileio.CheckDestination(s.Output, s.Overwrite); err != nil {
			var exists *fileio.OutputExistsError
			if errors.As(err, &exists) {
				console.Warning("Output file already exists! Aborted.")
				return nil
			}
			return err
		}
	}

	text, err := fileio.ReadText(ctx, s.Input)
	if err != nil {
		return err
	}

	console.ResetTimer()
	console.Summary(len(rs.Rules), rs.HasNarrow())

	eng, err := engine.New(rs, o.Codec, engine.WithObserver(console))
	if err != nil {
		var unavailable *engine.CollaboratorUnavailableError
		if errors.As(err, &unavailable) {
			if derr := runDemo(cmd, o, rs); derr != nil {
				return derr
			}
			return errors.Errorf("aborted: %w", err)
		}
		return err
	}

	res, err := eng.Run(ctx, text)
	if err != nil {
		return err
	}

	if f.dryRun {
		fmt.Fprint(o.Stdout, log.FormatDiff(res.OriginalContent, res.Output))
	} else if err := fileio.WriteAtomic(ctx, s.Output, []byte(res.Output)); err != nil {
		return err
	}

	console.JustTook()
	console.Done(res.Total)
	return nil
}

// runDemo shows what the narrow rules would do to the built-in sample record
func runDemo(cmd *cobra.Command, o *opts.RootOpts, rs *rulefile.RuleSet) error {
	ctx := cmd.Context()
	o.Console.Errorf("No SFM record reader is available; demoing the %d narrow regexes on a canned sample instead.", rs.CountNarrow())

	before, after, err := engine.RunSample(ctx, rs.Rules, o.Console)
	if err != nil {
		return err
	}

	fmt.Fprintln(o.Stdout, pterm.DefaultBox.WithTitle("BEFORE").Sprint(strconv.Quote(before)))
	fmt.Fprintln(o.Stdout, pterm.DefaultBox.WithTitle("AFTER").Sprint(strconv.Quote(after)))
	return nil
}
