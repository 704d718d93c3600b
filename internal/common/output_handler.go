package common

import (
	"fmt"
	"io"
	"os"
	"strings"

	"airecruiter/internal/errors"
	"airecruiter/internal/formatters"
)

// CommandConfig is the output destination shared by every command
type CommandConfig struct {
	OutputFile   string
	OutputFormat string
}

// OutputHandler renders command results through the formatter registry
type OutputHandler struct {
	fileProcessor *FileProcessor
	registry      *formatters.FormatterRegistry
	stdout        io.Writer
	logger        *errors.Logger
}

// NewOutputHandler creates an output handler that prints to stdout
func NewOutputHandler(logger *errors.Logger) *OutputHandler {
	return NewOutputHandlerWithWriter(os.Stdout, logger)
}

// NewOutputHandlerWithWriter prints to w when no output file is set
func NewOutputHandlerWithWriter(w io.Writer, logger *errors.Logger) *OutputHandler {
	return &OutputHandler{
		fileProcessor: NewFileProcessor(logger),
		registry:      formatters.GlobalRegistry,
		stdout:        w,
		logger:        logger,
	}
}

// HandleOutput renders data in the requested format and writes it to the
// output file, or to stdout with a trailing newline
func (oh *OutputHandler) HandleOutput(data any, cfg CommandConfig) error {
	if err := oh.fileProcessor.ValidateOutputFile(cfg.OutputFile); err != nil {
		return err
	}

	rendered, err := oh.registry.Format(data, cfg.OutputFormat)
	if err != nil {
		return errors.NewValidationError(errors.ErrCodeInvalidFormat,
			fmt.Sprintf("Failed to format output as %s", cfg.OutputFormat), err)
	}

	if cfg.OutputFile != "" {
		if err := oh.fileProcessor.WriteFile(cfg.OutputFile, rendered); err != nil {
			return err
		}
		oh.logger.Info("Output saved", "file", cfg.OutputFile, "format", cfg.OutputFormat)
		return nil
	}

	if !strings.HasSuffix(rendered, "\n") {
		rendered += "\n"
	}
	_, err = io.WriteString(oh.stdout, rendered)
	return err
}
