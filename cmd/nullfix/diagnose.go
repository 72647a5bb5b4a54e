package main

import (
	"fmt"
	"time"

	"nullfix/internal/config"
	"nullfix/internal/fixpoint"

	"github.com/spf13/cobra"
)

var diagnoseCmd = &cobra.Command{
	Use:   "diagnose <project-dir> <checker-command> <depth> <nullable-annotation> <keep-style>",
	Short: "Run the checker loop on a project and apply every fix found safe",
	Args:  exactArgs(5),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		depth, err := config.ParseDepth(args[2])
		if err != nil {
			return err
		}
		keepStyle, err := config.ParseKeepStyle(args[4])
		if err != nil {
			return err
		}
		cfg.Project.Root = args[0]
		cfg.Checker.Command = args[1]
		cfg.Annotator.Depth = depth
		cfg.Annotator.Nullable = args[3]
		cfg.Annotator.KeepStyle = keepStyle
		if err := cfg.Validate(); err != nil {
			return err
		}

		logger, err := newLogger(cfg)
		if err != nil {
			return err
		}
		engine, cleanup, err := newEngine(cfg, logger)
		if err != nil {
			return err
		}
		defer cleanup()

		fmt.Printf("📂 Project: %s (depth %d)\n", cfg.Project.Root, depth)
		start := time.Now()
		res, err := engine.Run(cmd.Context())
		if res != nil {
			printResult(res)
		}
		if err != nil {
			return fmt.Errorf("run failed in state %s: %w", res.Final, err)
		}
		fmt.Printf("🎉 Finished in %v: %s after %d passes, %d fixes applied.\n",
			time.Since(start).Round(time.Millisecond), res.Final, len(res.Passes), len(res.Accepted))
		if cfg.Report.DB != "" {
			fmt.Printf("💾 Report %s saved to %s\n", res.RunID, cfg.Report.DB)
		}
		return nil
	},
}

func printResult(res *fixpoint.Result) {
	for _, p := range res.Passes {
		fmt.Printf("🔄 Pass %d: %d candidates, %d accepted, %d rejected, %d applied, %d failed\n",
			p.Number, p.Candidates, len(p.Accepted), len(p.Rejected), len(p.Applied), len(p.Failed))
		for _, r := range p.Rejected {
			fmt.Printf("   ⛔ %s (%s)\n", r.Fix, r.Reason)
		}
		for _, r := range p.Failed {
			fmt.Printf("   ⚠️  %v\n", r.Err)
		}
	}
	if len(res.LastApplied) > 0 {
		fmt.Println("✅ Last applied:")
		for _, f := range res.LastApplied {
			fmt.Printf("   %s\n", f)
		}
	}
}
