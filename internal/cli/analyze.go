package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"airecruiter/internal/ai"
	"airecruiter/internal/analyzer"
	"airecruiter/internal/common"
	"airecruiter/internal/config"
	"airecruiter/internal/resume"
	"airecruiter/internal/types"

	"github.com/spf13/cobra"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [cv-file]",
	Short: "Extract a candidate profile from a CV",
	Long: `Read a CV (txt, md, pdf, doc, docx, odt or rtf) and print the profile
the interview starts from: name, last role, last company and a summary.
Nothing is uploaded or recorded.`,
	Args:    cobra.ExactArgs(1),
	PreRunE: resolveOutputFormat(&analyzeConfig),
	RunE:    runAnalyze,
}

var analyzeConfig common.CommandConfig

func init() {
	addOutputFlags(analyzeCmd, &analyzeConfig)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, logger, err := fromContext(cmd)
	if err != nil {
		return err
	}

	opCfg := cfg.GetAnalyzeConfig()
	aiService, err := ai.NewService(cmd.Context(), &opCfg, cfg.GCP, config.OperationAnalyze, nil, logger)
	if err != nil {
		return fmt.Errorf("failed to create AI service: %w", err)
	}
	defer func() { _ = aiService.Close() }()

	prompt, err := ai.OperationPrompt(config.OperationAnalyze, opCfg, ai.DefaultAnalyzePrompt)
	if err != nil {
		return fmt.Errorf("invalid analyze prompt: %w", err)
	}
	profiles := analyzer.New(aiService, prompt, cfg.Conversation.Language, logger)
	extractor := resume.NewExtractor(cfg.App.MaxFileSize)

	cvFile := args[0]
	err = common.RunCommand(cmd.Context(), logger, analyzeConfig, "CV analysis",
		func(ctx context.Context) (types.CandidateProfile, error) {
			data, err := common.NewFileProcessor(logger).ReadBytes(cvFile)
			if err != nil {
				return types.CandidateProfile{}, err
			}
			text, err := extractor.Extract(filepath.Base(cvFile), data)
			if err != nil {
				return types.CandidateProfile{}, err
			}
			return profiles.Analyze(ctx, text), nil
		})
	if err != nil {
		return fmt.Errorf("failed to analyze CV: %w", err)
	}
	return nil
}
