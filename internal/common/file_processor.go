package common

import (
	"fmt"
	"os"

	"airecruiter/internal/errors"
	"airecruiter/internal/utils"
)

// FileProcessor reads command inputs and writes command output
type FileProcessor struct {
	logger *errors.Logger
}

func NewFileProcessor(logger *errors.Logger) *FileProcessor {
	return &FileProcessor{logger: logger}
}

// ReadBytes loads a résumé or job file unchanged. A missing file is an IO
// error; a path that is not a readable regular file is a validation error.
func (fp *FileProcessor) ReadBytes(filename string) ([]byte, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return nil, errors.NewIOError(errors.ErrCodeFileNotFound, "File not found: "+filename, err)
	}
	if err := utils.ValidateInputFile(filename); err != nil {
		return nil, errors.NewValidationError(errors.ErrCodeFileNotReadable, "Invalid file "+filename, err)
	}

	content, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.NewIOError(errors.ErrCodeFileNotReadable, "Cannot read file: "+filename, err)
	}
	fp.logger.Debug("Input file read", "file", filename, "size", utils.FormatFileSize(int64(len(content))))
	return content, nil
}

// ReadText reads a job description or other plain-text input
func (fp *FileProcessor) ReadText(filename string) (string, error) {
	if !utils.IsTextFile(filename) {
		fp.logger.Warn("Reading non-text file as text", "file", filename)
	}
	content, err := fp.ReadBytes(filename)
	return string(content), err
}

// WriteFile writes command output, creating parent directories
func (fp *FileProcessor) WriteFile(filename, content string) error {
	if err := utils.ValidateOutputFile(filename); err != nil {
		return errors.NewIOError("DIRECTORY_CREATE_FAILED", "Cannot prepare output directory", err)
	}
	if err := os.WriteFile(filename, []byte(content), 0600); err != nil {
		return errors.NewIOError("FILE_WRITE_FAILED", "Cannot write file: "+filename, err)
	}
	return nil
}

// ValidateOutputFile prepares the output path. Empty means stdout.
func (fp *FileProcessor) ValidateOutputFile(filename string) error {
	if err := utils.ValidateOutputFile(filename); err != nil {
		return errors.NewValidationError("INVALID_OUTPUT_FILE", fmt.Sprintf("Invalid output file: %s", filename), err)
	}
	return nil
}
