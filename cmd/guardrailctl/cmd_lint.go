package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

func newLintCmd(load loader) *cobra.Command {
	var failOnViolation bool
	cmd := &cobra.Command{
		Use:   "lint <file|->",
		Short: "Report vague verbs and unsupported absolutes in generated text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := load(cmd)
			if err != nil {
				return err
			}
			validator, err := s.validator()
			if err != nil {
				return err
			}
			text, err := readInput(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}

			report := validator.Detect(text)
			if err := writeJSON(cmd.OutOrStdout(), report); err != nil {
				return err
			}
			if failOnViolation && report.HasViolations {
				return fmt.Errorf("banned patterns found (penalty %.2f)", report.Penalty)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&failOnViolation, "fail-on-violation", false, "Exit non-zero when any banned pattern is found")
	return cmd
}

func readInput(stdin io.Reader, path string) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(data), nil
}
