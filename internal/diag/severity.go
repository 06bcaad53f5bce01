package diag

import (
	"fmt"
	"strings"
)

// Severity defines the importance of a diagnostic.
type Severity uint8

const (
	// SevInfo is for informational diagnostics.
	SevInfo Severity = iota
	// SevWarning is for soft guidance.
	SevWarning
	// SevError causes platform rejection.
	SevError
	// SevCritical breaks parsing or rendering.
	SevCritical
)

func (s Severity) String() string {
	switch s {
	case SevInfo:
		return "INFO"
	case SevWarning:
		return "WARNING"
	case SevError:
		return "ERROR"
	case SevCritical:
		return "CRITICAL"
	}
	return "UNKNOWN"
}

// ParseSeverity accepts the names printed by String in any case.
func ParseSeverity(s string) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "info":
		return SevInfo, nil
	case "warning", "warn":
		return SevWarning, nil
	case "error":
		return SevError, nil
	case "critical":
		return SevCritical, nil
	default:
		return SevInfo, fmt.Errorf("invalid severity %q (expected info|warning|error|critical)", s)
	}
}
