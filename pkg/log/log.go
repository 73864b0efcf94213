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

package log

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog"

	"github.com/pconstrictor/usability/pkg/engine"
)

// 🎨 Display configuration
const (
	fileIndent  = 4  // spaces to indent file entries
	nameWidth   = 35 // Base width for filename
	statusWidth = 10 // Width for status text
)

// 🎯 FileOperation represents one batch file for logging
type FileOperation struct {
	Path         string // Input path
	Output       string // Output path
	Status       string // Operation status
	IsModified   bool   // Whether any rule changed the text
	IsSkipped    bool   // Whether the output existed and was left alone
	IsFailed     bool   // Whether processing failed
	Replacements int    // Number of replacements made
}

// 🎯 Logger prints progress for the user and mirrors it to zerolog
type Logger struct {
	zlog    zerolog.Logger
	console io.Writer
	mu      sync.Mutex
	now     func() time.Time
	tick    time.Time
}

var _ engine.Observer = (*Logger)(nil)

// 🏭 New creates a new logger
func New(console io.Writer, zlog zerolog.Logger) *Logger {
	l := &Logger{
		zlog:    zlog,
		console: console,
		now:     time.Now,
	}
	l.tick = l.now()
	return l
}

// 🔑 contextKey is the type for context values
type contextKey struct{}

// 🎯 FromContext gets the logger from context
func FromContext(ctx context.Context) *Logger {
	logger, ok := ctx.Value(contextKey{}).(*Logger)
	if !ok {
		panic("logger not found in context")
	}
	return logger
}

// 🎯 NewContext adds the logger to context
func NewContext(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, l)
}

// justTook returns the time since the previous call and restarts the clock.
// The caller holds mu.
func (l *Logger) justTook() time.Duration {
	now := l.now()
	d := now.Sub(l.tick)
	l.tick = now
	return d
}

func formatMillis(d time.Duration) string {
	return fmt.Sprintf("%.3f ms", float64(d)/float64(time.Millisecond))
}

// 📝 ResetTimer restarts the "just took" clock
func (l *Logger) ResetTimer() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.tick = l.now()
}

// 📝 JustTook prints the time since the previous timing line
func (l *Logger) JustTook() {
	l.mu.Lock()
	defer l.mu.Unlock()
	d := l.justTook()
	fmt.Fprintf(l.console, "just took: %s\n", formatMillis(d))
	l.zlog.Debug().Dur("elapsed", d).Msg("just took")
}

// 📝 Summary announces the rule set about to be applied
func (l *Logger) Summary(rules int, someNarrow bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if someNarrow {
		fmt.Fprintln(l.console, "Applying regular expressions (some are narrow)...")
	} else {
		fmt.Fprintf(l.console, "Applying %d regular expressions (all are broad) ...\n", rules)
	}
	l.zlog.Info().Int("rules", rules).Bool("some_narrow", someNarrow).Msg("applying rules")
}

// 📝 RuleStarted prints the rule about to run
func (l *Logger) RuleStarted(ctx context.Context, step engine.Step) {
	l.mu.Lock()
	defer l.mu.Unlock()

	fmt.Fprintf(l.console, "  just took: %s\n", formatMillis(l.justTook()))

	mode := "Broadly"
	if step.Rule.Narrow() {
		mode = "Narrowly"
	}
	msg := ASCII(fmt.Sprintf("applying regex %d of %d: \n    %s\n    %s", step.Index, step.Of, step.Rule.Find(), step.Rule.Replace()))
	fmt.Fprintf(l.console, "%s %s\n", color.New(color.FgCyan).Sprint(mode), msg)

	l.zlog.Info().
		Int("index", step.Index).
		Int("of", step.Of).
		Stringer("scope", step.Rule.Scope()).
		Str("find", step.Rule.Find()).
		Str("replace", step.Rule.Replace()).
		Msg("applying rule")
}

// 📝 RuleFinished prints how many changes the rule made
func (l *Logger) RuleFinished(ctx context.Context, res engine.StepResult) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "  made %s changes\n", color.New(color.Bold).Sprint(res.Count))
	l.zlog.Info().Int("index", res.Index).Int("count", res.Count).Dur("elapsed", res.Elapsed).Msg("rule applied")
}

// 📝 Done prints the grand total
func (l *Logger) Done(total int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "Done. A total of %d modifications were made\n", total)
	l.zlog.Info().Int("total", total).Msg("done")
}

// 📝 formatFileOperation formats a batch file result for display
func (l *Logger) formatFileOperation(op FileOperation) string {
	var symbol rune
	var symbolColor color.Attribute
	switch {
	case op.IsFailed:
		symbol = '✗'
		symbolColor = color.FgRed
	case op.IsSkipped:
		symbol = '-'
		symbolColor = color.FgYellow
	case op.IsModified:
		symbol = '✓'
		symbolColor = color.FgGreen
	default:
		symbol = '•'
		symbolColor = color.FgCyan
	}

	return fmt.Sprintf("%s%s %s %s %s",
		fmt.Sprintf("%*s", fileIndent, ""),
		color.New(symbolColor).Sprint(string(symbol)),
		fmt.Sprintf("%-*s", nameWidth, op.Path),
		fmt.Sprintf("%-*s", statusWidth, op.Status),
		color.New(color.Faint).Sprintf("%d changes", op.Replacements))
}

// 📝 LogFileOperation logs a batch file result
func (l *Logger) LogFileOperation(ctx context.Context, op FileOperation) {
	l.mu.Lock()
	defer l.mu.Unlock()

	fmt.Fprintln(l.console, l.formatFileOperation(op))

	l.zlog.Info().
		Str("file", op.Path).
		Str("output", op.Output).
		Str("status", op.Status).
		Bool("is_modified", op.IsModified).
		Bool("is_skipped", op.IsSkipped).
		Bool("is_failed", op.IsFailed).
		Int("replacements", op.Replacements).
		Msg("file operation")
}

// 📝 LogNewline logs a newline
func (l *Logger) LogNewline() {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(l.console)
}

// 📝 Header logs a header
func (l *Logger) Header(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	name := color.New(color.Bold, color.FgCyan).Sprint("applyre")
	fmt.Fprintf(l.console, "%s %s\n", name, color.New(color.Faint).Sprint("• "+msg))
	l.zlog.Info().Msg(msg)
}

// 📝 Success logs a success message
func (l *Logger) Success(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "✅ %s\n", color.New(color.FgGreen).Sprint(msg))
	l.zlog.Info().Msg(msg)
}

// 📝 Warning logs a warning message
func (l *Logger) Warning(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "⚠️  %s\n", color.New(color.FgYellow).Sprint(msg))
	l.zlog.Warn().Msg(msg)
}

// 📝 Error logs an error message
func (l *Logger) Error(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "❌ %s\n", color.New(color.FgRed).Sprint(msg))
	l.zlog.Error().Msg(msg)
}

// 📝 Info logs an info message
func (l *Logger) Info(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "ℹ️  %s\n", color.New(color.FgCyan).Sprint(msg))
	l.zlog.Info().Msg(msg)
}

// 📝 Infof logs a formatted info message
func (l *Logger) Infof(format string, args ...interface{}) {
	l.Info(fmt.Sprintf(format, args...))
}

// 📝 Warningf logs a formatted warning message
func (l *Logger) Warningf(format string, args ...interface{}) {
	l.Warning(fmt.Sprintf(format, args...))
}

// 📝 Errorf logs a formatted error message
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.Error(fmt.Sprintf(format, args...))
}

// 📝 Successf logs a formatted success message
func (l *Logger) Successf(format string, args ...interface{}) {
	l.Success(fmt.Sprintf(format, args...))
}
