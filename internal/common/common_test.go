package common

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"airecruiter/internal/errors"
	"airecruiter/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileProcessorReads(t *testing.T) {
	fp := NewFileProcessor(errors.Discard())
	dir := t.TempDir()

	binary := filepath.Join(dir, "cv.pdf")
	require.NoError(t, os.WriteFile(binary, []byte{0x25, 0x50, 0x44, 0x46, 0x00, 0xff}, 0600))
	data, err := fp.ReadBytes(binary)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x25, 0x50, 0x44, 0x46, 0x00, 0xff}, data)

	job := filepath.Join(dir, "job.txt")
	require.NoError(t, os.WriteFile(job, []byte("Senior Go Engineer"), 0600))
	text, err := fp.ReadText(job)
	require.NoError(t, err)
	assert.Equal(t, "Senior Go Engineer", text)
}

func TestFileProcessorReadErrors(t *testing.T) {
	fp := NewFileProcessor(errors.Discard())
	dir := t.TempDir()

	_, err := fp.ReadBytes(filepath.Join(dir, "missing.pdf"))
	var appErr *errors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, errors.ErrCodeFileNotFound, appErr.Code)

	_, err = fp.ReadBytes(dir)
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, errors.ErrorTypeValidation, appErr.Type)
}

func TestHandleOutput(t *testing.T) {
	report := types.FitReport{CandidateID: "c-1", Report: "Recommended"}

	t.Run("stdout", func(t *testing.T) {
		var buf bytes.Buffer
		oh := NewOutputHandlerWithWriter(&buf, errors.Discard())

		require.NoError(t, oh.HandleOutput(report, CommandConfig{OutputFormat: "json"}))
		assert.Contains(t, buf.String(), `"candidateId": "c-1"`)
		assert.Equal(t, byte('\n'), buf.Bytes()[buf.Len()-1])
	})

	t.Run("file in new directory", func(t *testing.T) {
		var buf bytes.Buffer
		oh := NewOutputHandlerWithWriter(&buf, errors.Discard())
		out := filepath.Join(t.TempDir(), "reports", "c-1.md")

		require.NoError(t, oh.HandleOutput(report, CommandConfig{OutputFile: out, OutputFormat: "markdown"}))
		written, err := os.ReadFile(out)
		require.NoError(t, err)
		assert.Contains(t, string(written), "# Fit Report `c-1`")
		assert.Empty(t, buf.String())
	})

	t.Run("unknown format", func(t *testing.T) {
		oh := NewOutputHandlerWithWriter(&bytes.Buffer{}, errors.Discard())
		err := oh.HandleOutput(report, CommandConfig{OutputFormat: "yaml"})
		assert.Equal(t, errors.ErrorTypeValidation, errors.TypeOf(err))
	})
}

func TestRunCommand(t *testing.T) {
	ctx := context.Background()
	logger := errors.Discard()

	t.Run("writes result", func(t *testing.T) {
		var buf bytes.Buffer
		err := runCommand(ctx, NewOutputHandlerWithWriter(&buf, logger), logger,
			CommandConfig{OutputFormat: "text"}, "list",
			func(context.Context) (types.CandidateList, error) {
				return types.CandidateList{}, nil
			})
		require.NoError(t, err)
		assert.Equal(t, "No candidates yet.\n", buf.String())
	})

	t.Run("operation error skips output", func(t *testing.T) {
		var buf bytes.Buffer
		boom := errors.NewNotFoundError(errors.ErrCodeCandidateNotFound, "no such candidate", nil)
		err := runCommand(ctx, NewOutputHandlerWithWriter(&buf, logger), logger,
			CommandConfig{OutputFormat: "text"}, "report",
			func(context.Context) (types.FitReport, error) {
				return types.FitReport{}, boom
			})
		assert.ErrorIs(t, err, boom)
		assert.Empty(t, buf.String())
	})
}
