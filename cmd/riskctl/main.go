// riskctl drives risk assessments from the command line.
//
// Usage:
//
//	riskctl assess --field "Tumor Size=22" --field "PR Status=1" [--explain]
//	riskctl fields
//	riskctl audit [--topic=<name>] [--group=<id>]
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/synaptica-ai/oncorisk/pkg/common/config"
	"github.com/synaptica-ai/oncorisk/pkg/common/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

type globalFlags struct {
	predictorURL string
	logLevel     string
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:   "riskctl",
		Short: "Breast cancer risk assessments from the command line",
		Long:  "riskctl fills the risk questionnaire, asks the risk model for a\nprediction and an explanation, and tails the assessment audit topic.",
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			logger.Init()
			logger.SetOutput(cmd.ErrOrStderr())
			if g.logLevel != "" {
				logger.SetLevel(g.logLevel)
			}
		},
	}
	root.Version = version

	f := root.PersistentFlags()
	f.StringVar(&g.predictorURL, "predictor-url", "", "Base URL of the risk model (overrides PREDICTOR_BASE_URL)")
	f.StringVar(&g.logLevel, "log-level", "warn", "Log level")

	root.AddCommand(newAssessCmd(g))
	root.AddCommand(newFieldsCmd(g))
	root.AddCommand(newAuditCmd(g))
	return root
}

// loadConfig applies command line overrides on top of the environment.
func (g *globalFlags) loadConfig() (*config.Config, error) {
	cfg := config.Load()
	if g.predictorURL != "" {
		cfg.PredictorBaseURL = g.predictorURL
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
