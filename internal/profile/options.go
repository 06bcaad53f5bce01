package profile

import (
	"fmt"

	"liquidlint/internal/diag"
)

// Option adjusts a profile under construction.
type Option func(*Profile) error

// WithCategory switches a validator category on or off.
func WithCategory(c diag.Category, enabled bool) Option {
	return func(p *Profile) error {
		if c == diag.CatUnknown || c == diag.CatEngine {
			return fmt.Errorf("category %s cannot be toggled: %w", c, ErrUnknownCategory)
		}
		p.categories[c] = enabled
		return nil
	}
}

// WithDomain switches a character-safety sub-domain on or off.
func WithDomain(d diag.Domain, enabled bool) Option {
	return func(p *Profile) error {
		if d == diag.DomNone {
			return fmt.Errorf("sub-domain %s: %w", d, ErrUnknownCategory)
		}
		p.domains[d] = enabled
		return nil
	}
}

// WithThreshold overrides one threshold by its configuration key.
func WithThreshold(key string, value int) Option {
	return func(p *Profile) error {
		field, ok := thresholdFields[key]
		if !ok {
			return fmt.Errorf("threshold %q: %w", key, ErrUnknownCategory)
		}
		*field(&p.Thresholds) = value
		return nil
	}
}

// WithThresholds replaces all thresholds at once.
func WithThresholds(t Thresholds) Option {
	return func(p *Profile) error {
		p.Thresholds = t
		return nil
	}
}

// WithSeverity overrides the severity of one finding code.
func WithSeverity(code diag.Code, sev diag.Severity) Option {
	return func(p *Profile) error {
		if code == diag.UnknownCode {
			return fmt.Errorf("severity override for %s: %w", code.ID(), ErrUnknownCategory)
		}
		p.severity[code] = sev
		return nil
	}
}

// WithMinReport sets the lowest severity that is reported.
func WithMinReport(sev diag.Severity) Option {
	return func(p *Profile) error {
		p.MinReport = sev
		return nil
	}
}

// WithMinFail sets the lowest reported severity that fails the run.
func WithMinFail(sev diag.Severity) Option {
	return func(p *Profile) error {
		p.MinFail = sev
		return nil
	}
}
