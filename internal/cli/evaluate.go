package cli

import (
	"context"
	"fmt"

	"airecruiter/internal/common"
	"airecruiter/internal/types"

	"github.com/spf13/cobra"
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate [candidate-id]",
	Short: "Write a fit report for a candidate",
	Long: `Compare a candidate's CV summary and interview transcript with the job
description and print a report with a recommendation. The configured job
description is used unless --job-file is given.`,
	Args:    cobra.ExactArgs(1),
	PreRunE: resolveOutputFormat(&evaluateConfig),
	RunE:    runEvaluate,
}

var (
	evaluateConfig  common.CommandConfig
	evaluateJobFile string
)

func init() {
	addOutputFlags(evaluateCmd, &evaluateConfig)
	evaluateCmd.Flags().StringVar(&evaluateJobFile, "job-file", "", "Job description file to evaluate against")
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	cfg, logger, err := fromContext(cmd)
	if err != nil {
		return err
	}

	var override string
	if evaluateJobFile != "" {
		if override, err = common.NewFileProcessor(logger).ReadText(evaluateJobFile); err != nil {
			return err
		}
	}

	a, err := newApp(cmd.Context(), cfg, logger, appOptions{})
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	defer a.Close()

	candidateID := args[0]
	err = common.RunCommand(cmd.Context(), logger, evaluateConfig, "fit report",
		func(ctx context.Context) (types.FitReport, error) {
			return a.service.Report(ctx, candidateID, override)
		})
	if err != nil {
		return fmt.Errorf("failed to evaluate candidate %s: %w", candidateID, err)
	}
	return nil
}
