// Package resume turns an uploaded résumé file into plain text.
package resume

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"airecruiter/internal/errors"
	"airecruiter/internal/utils"

	"code.sajari.com/docconv"
)

// ConvertFunc converts a document into text given its MIME type
type ConvertFunc func(r io.Reader, mimeType string) (string, error)

// Extractor reads text out of supported résumé formats
type Extractor struct {
	maxSize int64
	convert ConvertFunc
}

// NewExtractor creates an extractor backed by docconv. maxSize <= 0 means
// no limit.
func NewExtractor(maxSize int64) *Extractor {
	return &Extractor{maxSize: maxSize, convert: docconvConvert}
}

// WithConverter returns a copy using a different document converter
func (e *Extractor) WithConverter(convert ConvertFunc) *Extractor {
	clone := *e
	clone.convert = convert
	return &clone
}

func docconvConvert(r io.Reader, mimeType string) (string, error) {
	res, err := docconv.Convert(r, mimeType, false)
	if err != nil {
		return "", err
	}
	return res.Body, nil
}

// ContentType is the MIME type recorded with the stored object
func ContentType(fileName string) string {
	return docconv.MimeTypeByExtension(fileName)
}

// Extract returns the text of the file. Empty text is not an error.
func (e *Extractor) Extract(fileName string, data []byte) (string, error) {
	if e.maxSize > 0 && int64(len(data)) > e.maxSize {
		return "", errors.NewValidationError(errors.ErrCodeInvalidRequest,
			fmt.Sprintf("File is too large: %s (limit %s)",
				utils.FormatFileSize(int64(len(data))), utils.FormatFileSize(e.maxSize)), nil)
	}

	switch {
	case utils.IsTextFile(fileName):
		if !utf8.Valid(data) {
			return "", errors.NewValidationError(errors.ErrCodeInvalidFormat,
				"Text résumé is not valid UTF-8", nil)
		}
		return strings.TrimSpace(string(data)), nil
	case utils.IsDocumentFile(fileName):
		text, err := e.convert(bytes.NewReader(data), ContentType(fileName))
		if err != nil {
			return "", errors.NewIOError(errors.ErrCodeExtractionFailed,
				"Failed to extract text from "+utils.GetFileExtension(fileName)+" file", err).
				WithContext("file_name", fileName)
		}
		return strings.TrimSpace(text), nil
	default:
		return "", errors.NewValidationError(errors.ErrCodeInvalidFormat,
			fmt.Sprintf("Unsupported résumé format %q; use pdf, docx, doc, rtf, odt, txt or md", utils.GetFileExtension(fileName)), nil)
	}
}
