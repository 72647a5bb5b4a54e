package main

import (
	"errors"
	"fmt"
	"time"

	"nullfix/internal/config"
	"nullfix/internal/storage"

	"github.com/spf13/cobra"
)

var reportCmd = &cobra.Command{
	Use:   "report [run-id]",
	Short: "Print a recorded run, or list recent runs",
	Args:  rangeArgs(0, 1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.Report.DB == "" {
			return &config.Error{Field: "report.db", Err: errors.New("required")}
		}
		store, err := storage.NewSQLiteStore(cfg.Report.DB)
		if err != nil {
			return fmt.Errorf("failed to open report: %w", err)
		}
		defer store.Close()

		if len(args) == 0 {
			runs, err := store.ListRuns(cmd.Context(), 20)
			if err != nil {
				return err
			}
			for _, r := range runs {
				fmt.Printf("%s  %s  %-16s %s\n", r.ID, r.StartedAt.Format(time.DateTime), r.Final, r.Project)
			}
			return nil
		}

		run, err := store.LoadRun(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("📋 Run %s on %s\n", run.ID, run.Project)
		fmt.Printf("   depth %d, keep style %t, final state %s\n", run.Depth, run.KeepStyle, run.Final)
		if run.Error != "" {
			fmt.Printf("   ❌ %s\n", run.Error)
		}
		for _, p := range run.Passes {
			fmt.Printf("🔄 Pass %d: %d candidates in %v\n", p.Number, p.Candidates, p.Duration)
			for _, d := range p.Decisions {
				if d.Detail != "" {
					fmt.Printf("   %-8s %s (%s)\n", d.Outcome, d.Fix, d.Detail)
					continue
				}
				fmt.Printf("   %-8s %s\n", d.Outcome, d.Fix)
			}
		}
		return nil
	},
}
