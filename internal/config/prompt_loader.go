package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// loadPromptsFromFiles reads every configured prompt file into LoadedPrompt
func (c *Config) loadPromptsFromFiles() error {
	log.Println("[CONFIG] Starting custom prompt loading from files")

	loaded := 0
	for _, name := range sortedOperationNames(c) {
		op := c.operations()[name]
		if op.PromptFile == "" {
			continue
		}
		content, err := loadPromptFromFile(op.PromptFile, name)
		if err != nil {
			return err
		}
		op.LoadedPrompt = content
		loaded++
	}

	if loaded == 0 {
		log.Println("[CONFIG] No custom prompt files loaded - using inline or built-in prompts")
	} else {
		log.Printf("[CONFIG] Total custom prompts loaded from files: %d", loaded)
	}
	return nil
}

// loadPromptFromFile loads a prompt template and rejects empty files
func loadPromptFromFile(filePath, operation string) (string, error) {
	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve absolute path for %s prompt file '%s': %w", operation, filePath, err)
	}

	content, err := os.ReadFile(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%s prompt file not found: %s", operation, absPath)
		}
		return "", fmt.Errorf("failed to read %s prompt file '%s': %w", operation, absPath, err)
	}

	trimmed := strings.TrimSpace(string(content))
	if trimmed == "" {
		return "", fmt.Errorf("%s prompt file '%s' is empty", operation, absPath)
	}

	log.Printf("[CONFIG] Successfully loaded %s prompt from file: %s (%d characters)", operation, absPath, len(trimmed))
	return trimmed, nil
}

// validatePromptFiles checks that every configured prompt file exists before loading
func (c *Config) validatePromptFiles() error {
	var validationErrors []string

	for _, name := range sortedOperationNames(c) {
		filePath := c.operations()[name].PromptFile
		if filePath == "" {
			continue
		}
		absPath, err := filepath.Abs(filePath)
		if err != nil {
			validationErrors = append(validationErrors, fmt.Sprintf("invalid path for %s prompt: %s", name, filePath))
			continue
		}
		if _, err := os.Stat(absPath); os.IsNotExist(err) {
			validationErrors = append(validationErrors, fmt.Sprintf("%s prompt file not found: %s", name, absPath))
		}
	}

	if len(validationErrors) > 0 {
		return fmt.Errorf("prompt file validation failed:\n%s", strings.Join(validationErrors, "\n"))
	}
	return nil
}

// PromptTemplate returns the effective template for an operation:
// file content, then inline config, then fallback.
func (op OperationAIConfig) PromptTemplate(fallback string) string {
	if op.LoadedPrompt != "" {
		return op.LoadedPrompt
	}
	if strings.TrimSpace(op.Prompt) != "" {
		return op.Prompt
	}
	return fallback
}

func sortedOperationNames(c *Config) []string {
	ops := c.operations()
	names := make([]string, 0, len(ops))
	for name := range ops {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
