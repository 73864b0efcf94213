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

// Package batch applies one rule set to many files at once.
package batch

import (
	"context"
	"path"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/sync/errgroup"

	"github.com/pconstrictor/usability/pkg/engine"
	"github.com/pconstrictor/usability/pkg/fileio"
	"github.com/pconstrictor/usability/pkg/log"
)

// DefaultSuffix turns lexicon.txt into lexicon-out.tmp.txt.
const DefaultSuffix = "-out.tmp"

// Reporter is told about every finished file.
type Reporter interface {
	LogFileOperation(ctx context.Context, op log.FileOperation)
}

type nopReporter struct{}

func (nopReporter) LogFileOperation(context.Context, log.FileOperation) {}

// 🔧 Options controls where results go
type Options struct {
	Root      string // directory the file paths are relative to
	OutDir    string // if set, results mirror the input tree here
	Suffix    string // otherwise, inserted before the extension of each input name
	Overwrite bool   // replace existing outputs
	Jobs      int    // files processed at once, at least 1
	Reporter  Reporter
}

// 📊 FileResult is the outcome for one file
type FileResult struct {
	Path     string // input, relative to Root
	Output   string // output path on disk
	Total    int
	Modified bool
	Skipped  bool // output existed and Overwrite was false
}

// 🏃 Runner executes the engine over a list of files
type Runner struct {
	engine *engine.Engine
	opts   Options
}

// 🏗️ NewRunner creates a new runner
func NewRunner(eng *engine.Engine, opts Options) (*Runner, error) {
	if eng == nil {
		return nil, errors.New("engine is nil")
	}
	if opts.OutDir == "" && opts.Suffix == "" {
		return nil, errors.New("either an output directory or a suffix is required, inputs are never overwritten")
	}
	if opts.Jobs < 1 {
		opts.Jobs = 1
	}
	if opts.Root == "" {
		opts.Root = "."
	}
	if opts.OutDir != "" {
		same, err := samePath(opts.OutDir, opts.Root)
		if err != nil {
			return nil, err
		}
		if same {
			return nil, errors.Errorf("output directory %s is the input root, inputs are never overwritten", opts.OutDir)
		}
	}
	if opts.Reporter == nil {
		opts.Reporter = nopReporter{}
	}
	return &Runner{engine: eng, opts: opts}, nil
}

// OutputPath returns where the result for the relative input path file goes.
func (r *Runner) OutputPath(file string) string {
	if r.opts.OutDir != "" {
		return filepath.Join(r.opts.OutDir, filepath.FromSlash(file))
	}
	ext := path.Ext(file)
	name := strings.TrimSuffix(file, ext) + r.opts.Suffix + ext
	return filepath.Join(r.opts.Root, filepath.FromSlash(name))
}

// 🏃 Run processes files concurrently. Results are in the order of files. The
// first failure cancels the remaining files and is returned.
func (r *Runner) Run(ctx context.Context, files []string) ([]FileResult, error) {
	logger := zerolog.Ctx(ctx)
	logger.Debug().Int("files", len(files)).Int("jobs", r.opts.Jobs).Msg("starting batch")

	results := make([]FileResult, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Jobs)
	for i, file := range files {
		g.Go(func() error {
			res, err := r.runFile(gctx, file)
			if err != nil {
				r.opts.Reporter.LogFileOperation(gctx, log.FileOperation{
					Path:     file,
					Output:   res.Output,
					Status:   "failed",
					IsFailed: true,
				})
				return errors.Errorf("processing %s: %w", file, err)
			}
			results[i] = res
			r.opts.Reporter.LogFileOperation(gctx, fileOperation(res))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (r *Runner) runFile(ctx context.Context, file string) (FileResult, error) {
	res := FileResult{Path: file, Output: r.OutputPath(file)}
	input := filepath.Join(r.opts.Root, filepath.FromSlash(file))

	same, err := samePath(res.Output, input)
	if err != nil {
		return res, err
	}
	if same {
		return res, errors.Errorf("output %s would overwrite its input", res.Output)
	}

	if err := fileio.CheckDestination(res.Output, r.opts.Overwrite); err != nil {
		var exists *fileio.OutputExistsError
		if errors.As(err, &exists) {
			res.Skipped = true
			return res, nil
		}
		return res, err
	}

	text, err := fileio.ReadText(ctx, input)
	if err != nil {
		return res, err
	}

	out, err := r.engine.Run(ctx, text)
	if err != nil {
		return res, err
	}

	if err := fileio.WriteAtomic(ctx, res.Output, []byte(out.Output)); err != nil {
		return res, err
	}

	res.Total = out.Total
	res.Modified = out.WasModified
	return res, nil
}

func samePath(a, b string) (bool, error) {
	absA, err := filepath.Abs(a)
	if err != nil {
		return false, errors.Errorf("resolving %s: %w", a, err)
	}
	absB, err := filepath.Abs(b)
	if err != nil {
		return false, errors.Errorf("resolving %s: %w", b, err)
	}
	return absA == absB, nil
}

func fileOperation(res FileResult) log.FileOperation {
	op := log.FileOperation{
		Path:         res.Path,
		Output:       res.Output,
		IsModified:   res.Modified,
		IsSkipped:    res.Skipped,
		Replacements: res.Total,
	}
	switch {
	case res.Skipped:
		op.Status = "exists"
	case res.Modified:
		op.Status = "written"
	default:
		op.Status = "unchanged"
	}
	return op
}
