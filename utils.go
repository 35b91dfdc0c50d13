package jsonextract

import (
	"fmt"
	"strings"
)

// Column name validation

// validateColumnName checks that every nesting segment of name is non-empty.
func validateColumnName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrMalformedName)
	}
	for i, segment := range strings.Split(name, nestingSeparator) {
		if segment == "" {
			return fmt.Errorf("%w: %q has an empty segment at position %d", ErrMalformedName, name, i)
		}
	}
	return nil
}
