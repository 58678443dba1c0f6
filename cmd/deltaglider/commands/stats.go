package commands

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats <bucket> <prefix> <family>",
		Short: "Report delta-encoding savings for one group",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			bucket, prefix, family := args[0], args[1], args[2]

			stats, err := DG.Engine.Stats(ctx(), bucket, prefix, family)
			if err != nil {
				return err
			}

			fmt.Printf("group:          %s\n", stats.GroupID)
			fmt.Printf("objects:        %d\n", stats.ObjectCount)
			fmt.Printf("logical bytes:  %s\n", humanize.Bytes(uint64(stats.LogicalBytes)))
			fmt.Printf("physical bytes: %s\n", humanize.Bytes(uint64(stats.PhysicalBytes)))
			fmt.Printf("bytes saved:    %s\n", humanize.Bytes(uint64(stats.BytesSaved)))
			fmt.Printf("average ratio:  %.3f\n", stats.AverageRatio)
			return nil
		},
	}
}

func analyzeCmd() *cobra.Command {
	var prefix string
	cmd := &cobra.Command{
		Use:   "analyze <bucket>",
		Short: "Project delta-encoding savings across every group under a prefix, without reading any object body",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bucket := args[0]

			report, err := DG.Analyzer.Analyze(ctx(), bucket, prefix)
			if err != nil {
				return err
			}

			for _, g := range report.Groups {
				fmt.Printf("%-20s objects=%-5d original=%-10s projected=%-10s ratio=%.3f\n",
					g.Prefix+"::"+g.Family,
					g.ObjectCount,
					humanize.Bytes(uint64(g.OriginalBytes)),
					humanize.Bytes(uint64(g.ProjectedBytes)),
					g.ProjectedRatio)
			}
			fmt.Printf("\nprojected: %s of %s (%.1f%% saved)\n",
				humanize.Bytes(uint64(report.ProjectedBytes)),
				humanize.Bytes(uint64(report.OriginalBytes)),
				100*report.ProjectedRatio)
			return nil
		},
	}
	cmd.Flags().StringVar(&prefix, "prefix", "", "key prefix to analyze under")
	return cmd
}
