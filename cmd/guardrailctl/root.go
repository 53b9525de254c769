// guardrailctl runs the guardrail checks offline against local files.
//
// Usage:
//
//	guardrailctl lint <file|->
//	guardrailctl audit <score> [score...]
//	guardrailctl drift --current <snapshot.json> --previous <snapshot.json>
//	guardrailctl decay --age 72h
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/paulthebutcher/strat-os-phere-sub000/internal/config"
	"github.com/paulthebutcher/strat-os-phere-sub000/internal/engine"
	"github.com/paulthebutcher/strat-os-phere-sub000/internal/patterns"
	"github.com/paulthebutcher/strat-os-phere-sub000/internal/utils"
)

// version is set at build time via -ldflags.
var version = "dev"

type rootFlags struct {
	configPath string
	logLevel   string
}

type settings struct {
	logger     *slog.Logger
	cfg        *config.Config
	thresholds engine.Thresholds
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	root := &cobra.Command{
		Use:           "guardrailctl",
		Short:         "Offline guardrail checks for generated strategy artifacts",
		Long:          "guardrailctl lints generated text, audits score batches, diffs run snapshots\nand evaluates evidence decay using the same rules as guardrail-engine.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
	}
	pf := root.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "Path to guardrail configuration file (defaults to $GUARDRAIL_CONFIG)")
	pf.StringVar(&flags.logLevel, "log-level", "warn", "Log level written to stderr")

	load := func(cmd *cobra.Command) (*settings, error) {
		cfg, err := config.Load(flags.configPath)
		if err != nil {
			return nil, err
		}
		return &settings{
			logger:     utils.NewLoggerTo(cmd.ErrOrStderr(), flags.logLevel, false),
			cfg:        cfg,
			thresholds: cfg.Thresholds(),
		}, nil
	}

	root.AddCommand(newLintCmd(load))
	root.AddCommand(newAuditCmd(load))
	root.AddCommand(newDriftCmd(load))
	root.AddCommand(newDecayCmd(load))
	return root
}

type loader func(cmd *cobra.Command) (*settings, error)

func (s *settings) validator() (*patterns.Validator, error) {
	lex, err := patterns.LoadLexicon(s.cfg.Guardrails.LexiconPath, s.logger)
	if err != nil {
		return nil, err
	}
	return patterns.NewValidator(lex), nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
