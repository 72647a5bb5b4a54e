package main

import (
	"fmt"

	"nullfix/internal/config"
	"nullfix/internal/fix"
	"nullfix/internal/patcher"

	"github.com/spf13/cobra"
)

var applyCmd = &cobra.Command{
	Use:   "apply <suggested-fix-file> <keep-style>",
	Short: "Apply the fixes of a suggested-fix file without running the checker",
	Args:  exactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		keepStyle, err := config.ParseKeepStyle(args[1])
		if err != nil {
			return err
		}
		p, err := newPatcher(cfg)
		if err != nil {
			return err
		}

		fixes, err := fix.ReadFile(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("📝 Applying %d fixes from %s\n", len(fixes), args[0])

		results := p.Apply(cmd.Context(), fixes, keepStyle)
		failed := patcher.Failed(results)
		for _, r := range failed {
			fmt.Printf("   ⚠️  %v\n", r.Err)
		}
		fmt.Printf("✅ %d applied, %d failed.\n", len(results)-len(failed), len(failed))
		if len(failed) > 0 {
			return fmt.Errorf("%d fixes could not be applied", len(failed))
		}
		return nil
	},
}
