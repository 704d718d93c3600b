package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var (
	textExtensions     = map[string]bool{".txt": true, ".text": true, ".md": true, ".markdown": true}
	documentExtensions = map[string]bool{".pdf": true, ".doc": true, ".docx": true, ".odt": true, ".rtf": true}
)

// ValidateInputFile reports whether filename is an openable regular file
func ValidateInputFile(filename string) error {
	if filename == "" {
		return fmt.Errorf("filename cannot be empty")
	}
	f, err := os.Open(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("file does not exist: %s", filename)
		}
		return fmt.Errorf("cannot read file %s: %w", filename, err)
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("cannot access file %s: %w", filename, err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("not a regular file: %s", filename)
	}
	return nil
}

// ValidateOutputFile makes sure the parent directory of filename exists.
// An empty name means stdout.
func ValidateOutputFile(filename string) error {
	if filename == "" {
		return nil
	}
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("cannot create directory %s: %w", dir, err)
		}
	}
	return nil
}

// GetFileExtension returns the lowercased extension including the dot
func GetFileExtension(filename string) string {
	return strings.ToLower(filepath.Ext(filename))
}

// IsTextFile reports a résumé that can be read as-is
func IsTextFile(filename string) bool {
	return textExtensions[GetFileExtension(filename)]
}

// IsDocumentFile reports a résumé that needs conversion to text
func IsDocumentFile(filename string) bool {
	return documentExtensions[GetFileExtension(filename)]
}

// SanitizeFileName reduces an uploaded name to a bare file name usable as an
// object key. Directory parts and separators from either OS are dropped.
func SanitizeFileName(name string) (string, error) {
	base := strings.TrimSpace(filepath.Base(strings.ReplaceAll(name, `\`, "/")))
	switch base {
	case "", ".", "..", "/":
		return "", fmt.Errorf("invalid file name: %q", name)
	}
	return base, nil
}

// FormatFileSize renders size with a binary unit, e.g. "1.5 KB"
func FormatFileSize(size int64) string {
	if size < 1024 {
		return fmt.Sprintf("%d B", size)
	}
	value := float64(size)
	for _, unit := range []string{"KB", "MB", "GB", "TB", "PB"} {
		value /= 1024
		if value < 1024 {
			return fmt.Sprintf("%.1f %s", value, unit)
		}
	}
	return fmt.Sprintf("%.1f EB", value/1024)
}
