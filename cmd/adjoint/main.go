// Package main provides the adjoint command line tool.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"

	"github.com/born-ml/adjoint/internal/ctxlog"
	"github.com/born-ml/adjoint/internal/fit"
	"github.com/born-ml/adjoint/internal/parallel"
)

const version = "v0.1.0-dev"

// ExitError is an error that carries a process exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

func main() {
	// Use a minimal logger until the full one is configured.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		if exitErr, ok := err.(*ExitError); ok {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			stop()
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

// run dispatches the subcommand in args. Results go to outW, logs to logW.
func run(ctx context.Context, outW, logW io.Writer, args []string) error {
	if len(args) == 0 {
		usage(outW)
		return nil
	}

	switch args[0] {
	case "version":
		fmt.Fprintf(outW, "adjoint %s\n", version)
		return nil
	case "models":
		for _, kind := range fit.Kinds() {
			fmt.Fprintln(outW, kind)
		}
		return nil
	case "fit":
		return runFit(ctx, outW, logW, args[1:])
	case "help", "-h", "-help", "--help":
		usage(outW)
		return nil
	}
	return &ExitError{Code: 2, Message: fmt.Sprintf("unknown command %q (run 'adjoint help')", args[0])}
}

func usage(w io.Writer) {
	fmt.Fprintf(w, `adjoint %s - reverse-mode automatic differentiation and MAP fitting

Usage:
  adjoint <command> [options]

Commands:
  fit FILE   Fit the model described by an HCL file
  models     List the model kinds a fit file can use
  version    Show version
`, version)
}

func runFit(ctx context.Context, outW, logW io.Writer, args []string) error {
	flagSet := flag.NewFlagSet("fit", flag.ContinueOnError)
	flagSet.SetOutput(outW)
	flagSet.Usage = func() {
		fmt.Fprint(outW, `
Usage:
  adjoint fit [options] FILE

Arguments:
  FILE
    Path to a fit description (.hcl).

Options:
`)
		flagSet.PrintDefaults()
	}

	defaults := parallel.DefaultConfig()
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	logEveryFlag := flagSet.Int("log-every", 0, "Log optimizer progress every n iterations at debug level. 0 disables.")
	workersFlag := flagSet.Int("workers", defaults.NumWorkers, "Number of starts optimized concurrently.")
	outputFlag := flagSet.String("output", "text", "Result format. Options: 'text' or 'json'.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil
		}
		return &ExitError{Code: 2, Message: err.Error()}
	}
	if flagSet.NArg() != 1 {
		flagSet.Usage()
		return &ExitError{Code: 2, Message: "fit: expected exactly one FILE argument"}
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}
	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}
	output := strings.ToLower(*outputFlag)
	if output != "text" && output != "json" {
		return &ExitError{Code: 2, Message: "invalid output: must be 'text' or 'json'"}
	}
	if *workersFlag < 1 {
		return &ExitError{Code: 2, Message: "invalid workers: must be at least 1"}
	}

	logger := ctxlog.New(logLevel, logFormat, logW)
	ctx = ctxlog.WithLogger(ctx, logger)

	path := flagSet.Arg(0)
	file, err := fit.Load(path)
	if err != nil {
		return err
	}
	logger.Info("fit file loaded",
		"path", path,
		"model", file.Model.Kind(),
		"params", file.Model.Params(),
		"starts", len(file.Starts))

	results, err := fit.Run(ctx, file, fit.Options{
		Parallel: parallel.Config{Enabled: *workersFlag > 1, NumWorkers: *workersFlag},
		LogEvery: *logEveryFlag,
	})
	if err != nil {
		return err
	}

	if output == "json" {
		return writeJSON(outW, file, results)
	}
	return writeText(outW, results)
}

func writeText(w io.Writer, results []fit.StartResult) error {
	best := fit.Best(results)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for i, r := range results {
		marker := ""
		if i == best {
			marker = " (best)"
		}
		fmt.Fprintf(tw, "start %s%s: log density %.6g, %d iterations, converged %t\n",
			r.Start, marker, r.LogDensity, r.Iterations, r.Converged)
		fmt.Fprintln(tw, "\tparameter\testimate\tstd. error\t")
		for j, p := range r.Params {
			fmt.Fprintf(tw, "\t%s\t%.6g\t%.4g\t\n", p, r.X[j], r.StdErr[j])
		}
	}
	return tw.Flush()
}

type jsonParam struct {
	Name     string   `json:"name"`
	Estimate float64  `json:"estimate"`
	StdErr   *float64 `json:"std_err"`
}

type jsonStart struct {
	Start      string      `json:"start"`
	LogDensity float64     `json:"log_density"`
	Iterations int         `json:"iterations"`
	Converged  bool        `json:"converged"`
	Params     []jsonParam `json:"params"`
}

type jsonOutput struct {
	Model  string      `json:"model"`
	Best   string      `json:"best"`
	Starts []jsonStart `json:"starts"`
}

func writeJSON(w io.Writer, file *fit.File, results []fit.StartResult) error {
	out := jsonOutput{Model: file.Model.Kind()}
	if best := fit.Best(results); best >= 0 {
		out.Best = results[best].Start
	}
	for _, r := range results {
		s := jsonStart{
			Start:      r.Start,
			LogDensity: r.LogDensity,
			Iterations: r.Iterations,
			Converged:  r.Converged,
		}
		for j, p := range r.Params {
			param := jsonParam{Name: p, Estimate: r.X[j]}
			// NaN has no JSON encoding.
			if se := r.StdErr[j]; !math.IsNaN(se) {
				param.StdErr = &se
			}
			s.Params = append(s.Params, param)
		}
		out.Starts = append(out.Starts, s)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
