package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/paulthebutcher/strat-os-phere-sub000/internal/models"
)

type driftFlags struct {
	current     string
	previous    string
	failOnDrift bool
}

func newDriftCmd(load loader) *cobra.Command {
	flags := &driftFlags{}
	cmd := &cobra.Command{
		Use:   "drift",
		Short: "Compare two run snapshots and report significant drift",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := load(cmd)
			if err != nil {
				return err
			}
			current, err := readSnapshot(flags.current)
			if err != nil {
				return err
			}
			previous, err := readSnapshot(flags.previous)
			if err != nil {
				return err
			}

			result := s.thresholds.DetectDrift(current, previous)
			if err := writeJSON(cmd.OutOrStdout(), result); err != nil {
				return err
			}
			if flags.failOnDrift && result.HasSignificantDrift {
				return fmt.Errorf("significant drift: %v", result.Flags)
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&flags.current, "current", "", "Snapshot JSON of the current run (required)")
	f.StringVar(&flags.previous, "previous", "", "Snapshot JSON of the previous run (required)")
	f.BoolVar(&flags.failOnDrift, "fail-on-drift", false, "Exit non-zero when drift is significant")
	_ = cmd.MarkFlagRequired("current")
	_ = cmd.MarkFlagRequired("previous")
	return cmd
}

func readSnapshot(path string) (models.RunSnapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return models.RunSnapshot{}, fmt.Errorf("read snapshot: %w", err)
	}
	var snapshot models.RunSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return models.RunSnapshot{}, fmt.Errorf("parse snapshot %s: %w", path, err)
	}
	return snapshot, nil
}
