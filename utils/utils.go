// Package utils provides utility functions for the application.
package utils

import "strings"

func IsTrue(b *bool) bool {
	return b != nil && *b
}

// TrimmedOrNil returns nil for a nil or blank string, the trimmed value otherwise
func TrimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return &t
}
