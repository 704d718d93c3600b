package cli

import (
	"context"
	"fmt"

	"airecruiter/internal/common"
	"airecruiter/internal/types"

	"github.com/spf13/cobra"
)

var candidatesCmd = &cobra.Command{
	Use:     "candidates",
	Short:   "List recent CV uploads",
	Args:    cobra.NoArgs,
	PreRunE: resolveOutputFormat(&candidatesConfig),
	RunE:    runCandidates,
}

var candidatesConfig common.CommandConfig

func init() {
	addOutputFlags(candidatesCmd, &candidatesConfig)
}

func runCandidates(cmd *cobra.Command, args []string) error {
	cfg, logger, err := fromContext(cmd)
	if err != nil {
		return err
	}

	a, err := newApp(cmd.Context(), cfg, logger, appOptions{})
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	defer a.Close()

	return common.RunCommand(cmd.Context(), logger, candidatesConfig, "candidate listing",
		func(ctx context.Context) (types.CandidateList, error) {
			return a.service.ListCandidates(ctx)
		})
}
