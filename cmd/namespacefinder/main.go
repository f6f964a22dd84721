// Package main provides the namespacefinder binary entry point.
// Namespacefinder lists the namespaces declared in a .NET assembly that a
// reference text file does not cover.
package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/feco93/Namespacefinder/config"
	"github.com/feco93/Namespacefinder/report"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "namespacefinder"
)

const usageLine = "Usage: " + appName + " <assembly.dll> <file-with-namespaces>"

// Exit codes.
const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

// exitError ends the run with a specific exit code. Its message, if any,
// has not been shown to the user yet.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

func main() {
	// Add panic recovery
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(exitUsage)
		}
	}()

	os.Exit(execute(os.Args[1:], os.Stdout, os.Stderr))
}

// execute runs the command line and returns the process exit code.
func execute(args []string, stdout, stderr io.Writer) int {
	cmd := rootCmd(stdout, stderr)
	if args == nil {
		// cobra falls back to os.Args when given nil
		args = []string{}
	}
	cmd.SetArgs(args)

	err := cmd.Execute()
	if err == nil {
		return exitOK
	}

	var exitErr *exitError
	if errors.As(err, &exitErr) {
		if exitErr.err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", exitErr.err)
		}
		return exitErr.code
	}
	fmt.Fprintf(stderr, "Error: %v\n", err)
	return exitFailure
}

func rootCmd(stdout, stderr io.Writer) *cobra.Command {
	var (
		root     string
		exclude  []string
		logLevel string
	)

	cmd := &cobra.Command{
		Use:   appName + " <assembly.dll> <file-with-namespaces>",
		Short: "Report assembly namespaces missing from a namespace list",
		Long: `Namespacefinder reads the type metadata of a compiled .NET assembly and
lists the leaf namespaces that a reference text file does not cover.

The text file is scanned for namespace tokens in either notation:
  namespace:'Contoso.Billing'
  namespace==Contoso.Billing

A file namespace covers an assembly namespace when it is equal to it or is
one of its dotted ancestors.

There are no subcommands: every positional argument is a path, so files
named "version", "help" or "completion" are audited like any other.`,
		Version: Version + " (build: " + BuildTime + ")",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 2 {
				fmt.Fprintln(stdout, usageLine)
				return &exitError{code: exitUsage}
			}
			return nil
		},
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.DefaultConfig()
			cfg.Merge(&config.Config{
				Filter: config.FilterConfig{
					Root:    root,
					Exclude: exclude,
				},
				LogLevel: logLevel,
			})
			return run(cfg, args[0], args[1], stdout, stderr)
		},
	}

	// Positional arguments are paths; keep cobra from claiming any of them.
	cmd.CompletionOptions.DisableDefaultCmd = true
	cmd.SetVersionTemplate("{{.Name}} version {{.Version}}\n")
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &exitError{code: exitUsage, err: err}
	})

	cmd.Flags().StringVar(&root, "root", "", "Root namespace; only namespaces beneath it are audited")
	cmd.Flags().StringSliceVar(&exclude, "exclude", nil, "Namespace prefix or glob to leave out (repeatable)")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	return cmd
}

func run(cfg *config.Config, assemblyPath, textPath string, stdout, stderr io.Writer) error {
	if err := cfg.Validate(); err != nil {
		return &exitError{code: exitUsage, err: fmt.Errorf("invalid configuration: %w", err)}
	}

	// Configure logging
	level, _ := config.ParseLevel(cfg.LogLevel)
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if dump, err := cfg.Dump(); err == nil {
		logger.Debug("Effective configuration", "config", dump)
	}

	if !fileExists(assemblyPath) {
		fmt.Fprintf(stdout, "Assembly not found: %s\n", assemblyPath)
		return &exitError{code: exitFailure}
	}
	if !fileExists(textPath) {
		fmt.Fprintf(stdout, "File not found: %s\n", textPath)
		return &exitError{code: exitFailure}
	}

	summary, err := NewApp(cfg, logger).Run(assemblyPath, textPath)
	if err != nil {
		return err
	}
	return report.Write(stdout, summary)
}

// fileExists reports whether path names an existing regular file.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
