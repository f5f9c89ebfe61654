package shared

import (
	"github.com/spf13/pflag"
)

// HasFlags reports whether any flag of the set was given on the command line.
func HasFlags(flags *pflag.FlagSet) bool {
	changed := false
	flags.Visit(func(*pflag.Flag) {
		changed = true
	})
	return changed
}

// StringOr returns the flag value when set, otherwise the configured fallback.
func StringOr(value, fallback string) string {
	if value != "" {
		return value
	}
	return fallback
}
