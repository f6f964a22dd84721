package main

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/feco93/Namespacefinder/config"
	"github.com/feco93/Namespacefinder/namespace"
	"github.com/feco93/Namespacefinder/report"
)

// App wires the extraction, filtering and coverage steps together.
type App struct {
	cfg    *config.Config
	logger *slog.Logger
}

// NewApp creates a new application instance.
func NewApp(cfg *config.Config, logger *slog.Logger) *App {
	if logger == nil {
		logger = slog.Default()
	}
	return &App{cfg: cfg, logger: logger}
}

// Run audits the assembly against the namespace file and returns the report.
// A namespace file that cannot be read is the only failure; assembly load
// problems end up as notices in the summary.
func (a *App) Run(assemblyPath, textPath string) (report.Summary, error) {
	all, notices := namespace.FromAssembly(assemblyPath, a.logger)
	filtered := a.cfg.NamespaceFilter().Apply(all)
	leaves := namespace.Leaves(filtered)

	a.logger.Debug("Filtered assembly namespaces",
		"root", a.cfg.Filter.Root,
		"all", all.Len(),
		"filtered", filtered.Len(),
		"leaves", leaves.Len())

	files, err := namespace.ExtractFile(textPath)
	if err != nil {
		return report.Summary{}, fmt.Errorf("extract file namespaces: %w", err)
	}

	cov := namespace.Evaluate(leaves, files)

	a.logger.Debug("Coverage computed",
		"file_namespaces", files.Len(),
		"covered", cov.Covered.Len(),
		"uncovered", cov.Uncovered.Len())

	return report.Summary{
		Notices:   notices,
		Assembly:  filepath.Base(assemblyPath),
		Root:      a.cfg.Filter.Root,
		Total:     all.Len(),
		Filtered:  filtered.Len(),
		Leaves:    leaves.Len(),
		InFile:    files.Len(),
		Uncovered: cov.Uncovered,
	}, nil
}
