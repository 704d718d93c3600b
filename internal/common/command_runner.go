package common

import (
	"context"
	"time"

	"airecruiter/internal/errors"
)

// OperationFunc produces the value a command prints
type OperationFunc[Output any] func(context.Context) (Output, error)

// RunCommand checks the output target, runs op and writes its result.
// The output file is validated first so a bad path fails before any
// model call is spent.
func RunCommand[Output any](
	ctx context.Context,
	logger *errors.Logger,
	cmdConfig CommandConfig,
	name string,
	op OperationFunc[Output],
) error {
	return runCommand(ctx, NewOutputHandler(logger), logger, cmdConfig, name, op)
}

func runCommand[Output any](
	ctx context.Context,
	outputHandler *OutputHandler,
	logger *errors.Logger,
	cmdConfig CommandConfig,
	name string,
	op OperationFunc[Output],
) error {
	if err := outputHandler.fileProcessor.ValidateOutputFile(cmdConfig.OutputFile); err != nil {
		return err
	}

	logger.Info("Starting "+name, "output_format", cmdConfig.OutputFormat)
	start := time.Now()

	result, err := op(ctx)
	if err != nil {
		return err
	}

	logger.Info(name+" completed", "duration", time.Since(start).String())
	return outputHandler.HandleOutput(result, cmdConfig)
}
