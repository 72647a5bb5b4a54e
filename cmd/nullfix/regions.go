package main

import (
	"fmt"

	"nullfix/internal/config"
	"nullfix/internal/fix"
	"nullfix/internal/location"

	"github.com/spf13/cobra"
)

var regionsCmd = &cobra.Command{
	Use:   "regions <output-dir> <kind> <class> <member> [index]",
	Short: "Print the blast radius of annotating a location, from one pass's facts",
	Args:  rangeArgs(4, 5),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		kind, err := location.ParseKind(args[1])
		if err != nil {
			return &config.Error{Field: "kind", Err: err}
		}

		var loc location.Location
		switch kind {
		case location.KindField:
			loc = location.OnField(args[2], args[3])
		case location.KindMethod:
			loc = location.OnMethod(args[2], args[3])
		case location.KindParameter:
			if len(args) < 5 {
				return &config.Error{Field: "index", Err: fmt.Errorf("parameter locations need an index")}
			}
			idx, err := parseIndex(args[4])
			if err != nil {
				return err
			}
			loc = location.OnParameter(args[2], args[3], idx)
		}

		snap, err := newLoader(cfg).Load(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		report := snap.Analyzer.BlastRadius(fix.Fix{Location: loc, Annotation: fix.Nullable})
		if !report.Tracked {
			fmt.Printf("🤷 No tracker handles %s\n", loc)
			return nil
		}

		fmt.Printf("🎯 %s\n", loc)
		fmt.Printf("Direct (%d):\n", len(report.Direct))
		for _, r := range report.Direct.Sorted() {
			fmt.Printf("   %s\n", r)
		}
		if len(report.Indirect) > 0 {
			fmt.Printf("Indirect (%d):\n", len(report.Indirect))
			for _, r := range report.Indirect.Sorted() {
				fmt.Printf("   %s\n", r)
			}
		}
		return nil
	},
}
