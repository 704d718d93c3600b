package common

import (
	"fmt"
	"slices"

	"airecruiter/internal/formatters"
)

// ValidateOutputFormat accepts format if it is both configured and
// renderable. An empty configuration allows every renderable format.
func ValidateOutputFormat(format string, configured []string) error {
	supported := SupportedFormats(configured)
	if slices.Contains(supported, format) {
		return nil
	}

	return fmt.Errorf("unsupported output format '%s'. Supported formats: %v",
		format, supported)
}

// SupportedFormats keeps the configured formats the formatter registry
// can render, in configured order.
func SupportedFormats(configured []string) []string {
	available := formatters.GlobalRegistry.GetSupportedFormats()
	if len(configured) == 0 {
		return available
	}

	supported := make([]string, 0, len(configured))
	for _, format := range configured {
		if slices.Contains(available, format) {
			supported = append(supported, format)
		}
	}
	return supported
}
