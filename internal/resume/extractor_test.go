package resume

import (
	stderrors "errors"
	"io"
	"testing"

	"airecruiter/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtract(t *testing.T) {
	var gotMime string
	converter := func(r io.Reader, mimeType string) (string, error) {
		gotMime = mimeType
		data, _ := io.ReadAll(r)
		return "  converted: " + string(data) + "\n", nil
	}
	e := NewExtractor(1024).WithConverter(converter)

	tests := []struct {
		name     string
		file     string
		data     string
		want     string
		mime     string
		errType  errors.ErrorType
		errorMsg string
	}{
		{name: "plain text", file: "cv.txt", data: "  Anna Nowak\nGo developer  ", want: "Anna Nowak\nGo developer"},
		{name: "markdown", file: "CV.MD", data: "# Anna", want: "# Anna"},
		{name: "empty text allowed", file: "cv.txt", data: "", want: ""},
		{name: "pdf goes through converter", file: "cv.pdf", data: "PDF", want: "converted: PDF", mime: "application/pdf"},
		{name: "docx goes through converter", file: "cv.docx", data: "DOCX", want: "converted: DOCX",
			mime: "application/vnd.openxmlformats-officedocument.wordprocessingml.document"},
		{name: "unsupported", file: "cv.exe", data: "MZ", errType: errors.ErrorTypeValidation, errorMsg: "Unsupported résumé format"},
		{name: "invalid utf8", file: "cv.txt", data: "\xff\xfe", errType: errors.ErrorTypeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotMime = ""
			text, err := e.Extract(tt.file, []byte(tt.data))
			if tt.errType != "" {
				require.Error(t, err)
				assert.Equal(t, tt.errType, errors.TypeOf(err))
				if tt.errorMsg != "" {
					assert.Contains(t, err.Error(), tt.errorMsg)
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, text)
			assert.Equal(t, tt.mime, gotMime)
		})
	}
}

func TestExtractConverterFailure(t *testing.T) {
	e := NewExtractor(0).WithConverter(func(r io.Reader, mimeType string) (string, error) {
		return "", stderrors.New("pdftotext not found")
	})

	_, err := e.Extract("cv.pdf", []byte("x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TEXT_EXTRACTION_FAILED")
	assert.Contains(t, err.Error(), "pdftotext not found")
}

func TestExtractTooLarge(t *testing.T) {
	e := NewExtractor(4)
	_, err := e.Extract("cv.txt", []byte("12345"))
	require.Error(t, err)
	assert.Equal(t, errors.ErrorTypeValidation, errors.TypeOf(err))
	assert.Contains(t, err.Error(), "File is too large")
}
