package main

import (
	"errors"
	"log/slog"
	"path/filepath"

	"nullfix/internal/checker"
	"nullfix/internal/config"
	"nullfix/internal/facts"
	"nullfix/internal/fixpoint"
	"nullfix/internal/locator"
	"nullfix/internal/patcher"
	"nullfix/internal/policy"
	"nullfix/internal/storage"
)

func newLoader(cfg config.Config) facts.Loader {
	return facts.Loader{
		Required:        cfg.Facts.Required,
		TransitiveDepth: cfg.Annotator.TransitiveDepth,
		Parallelism:     cfg.Annotator.Parallelism,
	}
}

func newPatcher(cfg config.Config) (*patcher.Exec, error) {
	if cfg.Patcher.Command == "" {
		return nil, &config.Error{Field: "patcher.command", Err: errors.New("required")}
	}
	loc := locator.New(cfg.Project.Root)
	p := &patcher.Exec{
		Command: cfg.Patcher.Command,
		Dir:     cfg.Project.Root,
		Timeout: cfg.Checker.Timeout,
		Annotations: patcher.Annotations{
			Nullable: cfg.Annotator.Nullable,
			Nonnull:  cfg.Annotator.Nonnull,
		},
		Resolver: loc,
	}
	if cfg.Patcher.Preflight {
		p.Verifier = loc
	}
	return p, nil
}

// newEngine wires the fixpoint engine from cfg. The returned cleanup closes
// the report store, if any.
func newEngine(cfg config.Config, logger *slog.Logger) (*fixpoint.Engine, func(), error) {
	scope, err := policy.ParseScope(cfg.Annotator.ConflictScope)
	if err != nil {
		return nil, nil, &config.Error{Field: "annotator.conflict_scope", Err: err}
	}
	if cfg.Checker.Command == "" {
		return nil, nil, &config.Error{Field: "checker.command", Err: errors.New("required")}
	}
	p, err := newPatcher(cfg)
	if err != nil {
		return nil, nil, err
	}

	deps := fixpoint.Collaborators{
		Checker: &checker.Exec{
			Command:  cfg.Checker.Command,
			Dir:      cfg.Project.Root,
			Nullable: cfg.Annotator.Nullable,
			Timeout:  cfg.Checker.Timeout,
		},
		Loader:  newLoader(cfg),
		Policy:  policy.ConflictPolicy{Scope: scope},
		Patcher: p,
		Logger:  logger,
	}

	cleanup := func() {}
	if cfg.Report.DB != "" {
		store, err := storage.NewSQLiteStore(cfg.Report.DB)
		if err != nil {
			return nil, nil, err
		}
		deps.Recorder = store
		cleanup = func() { store.Close() }
	}

	outDir, err := filepath.Abs(cfg.OutputDir())
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	engine, err := fixpoint.New(fixpoint.Options{
		Project:        cfg.Project.Root,
		OutputDir:      outDir,
		Depth:          cfg.Annotator.Depth,
		KeepStyle:      cfg.Annotator.KeepStyle,
		CheckerRetries: cfg.Checker.Retries,
	}, deps)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return engine, cleanup, nil
}
