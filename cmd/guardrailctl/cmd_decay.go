package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

type decayResult struct {
	Age         string  `json:"age"`
	TTL         string  `json:"ttl"`
	DecayFactor float64 `json:"decayFactor"`
}

func newDecayCmd(load loader) *cobra.Command {
	var age time.Duration
	cmd := &cobra.Command{
		Use:   "decay",
		Short: "Show the freshness decay factor for evidence of a given age",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := load(cmd)
			if err != nil {
				return err
			}
			if age < 0 {
				return fmt.Errorf("age must be non-negative, got %s", age)
			}
			return writeJSON(cmd.OutOrStdout(), decayResult{
				Age:         age.String(),
				TTL:         s.thresholds.EvidenceTTL.String(),
				DecayFactor: s.thresholds.DecayForAge(age),
			})
		},
	}
	cmd.Flags().DurationVar(&age, "age", 0, "Age of the oldest evidence, e.g. 72h (required)")
	_ = cmd.MarkFlagRequired("age")
	return cmd
}
