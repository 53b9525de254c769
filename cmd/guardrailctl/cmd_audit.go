package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newAuditCmd(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "audit <score> [score...]",
		Short: "Check a batch of scores for flat or outlier-ridden distributions",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := load(cmd)
			if err != nil {
				return err
			}
			scores := make([]float64, 0, len(args))
			for _, arg := range args {
				v, err := strconv.ParseFloat(arg, 64)
				if err != nil {
					return fmt.Errorf("invalid score %q: %w", arg, err)
				}
				scores = append(scores, v)
			}
			return writeJSON(cmd.OutOrStdout(), s.thresholds.CheckScoreDistribution(scores))
		},
	}
}
