// Package jobdesc holds the process-wide active job description.
package jobdesc

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"airecruiter/internal/errors"
)

// Holder guards the active job description. When a file is configured the
// value is persisted there and can be reloaded from it.
type Holder struct {
	mu     sync.RWMutex
	text   string
	file   string
	logger *errors.Logger
}

// NewHolder creates a holder, loading the file when one is configured and
// present.
func NewHolder(file string, logger *errors.Logger) (*Holder, error) {
	h := &Holder{file: file, logger: logger.With("component", "jobdesc")}
	if file == "" {
		return h, nil
	}
	if err := h.Reload(); err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	return h, nil
}

// Get returns the current job description, "" when none is active
func (h *Holder) Get() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.text
}

// Set replaces the job description. The in-memory value only changes once
// the file write, if any, has succeeded.
func (h *Holder) Set(text string) error {
	text = strings.TrimSpace(text)

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.file != "" {
		if err := writeAtomic(h.file, text); err != nil {
			return errors.NewIOError(errors.ErrCodeFileNotReadable,
				"Failed to persist job description", err).WithContext("file", h.file)
		}
	}
	h.text = text
	h.logger.Info("Job description updated", "length", len(text))
	return nil
}

// Reload re-reads the configured file
func (h *Holder) Reload() error {
	if h.file == "" {
		return nil
	}

	data, err := os.ReadFile(h.file)
	if err != nil {
		return err
	}

	text := strings.TrimSpace(string(data))
	h.mu.Lock()
	changed := h.text != text
	h.text = text
	h.mu.Unlock()

	if changed {
		h.logger.Info("Job description loaded from file", "file", h.file, "length", len(text))
	}
	return nil
}

// File returns the persisted location, "" when in memory only
func (h *Holder) File() string {
	return h.file
}

func writeAtomic(path, text string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".jobdesc-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.WriteString(text); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
