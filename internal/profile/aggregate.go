package profile

import (
	"crypto/sha256"
	"encoding/hex"

	"liquidlint/internal/diag"
)

// Aggregate applies severity overrides, drops findings the profile does
// not report and decides whether the remaining ones fail the run.
// The input slice is not modified.
func Aggregate(findings []*diag.Diagnostic, p *Profile) (kept []*diag.Diagnostic, shouldFail bool) {
	for _, d := range findings {
		if d == nil {
			continue
		}
		if sev := p.SeverityOf(d.Code, d.Severity); sev != d.Severity {
			d = d.WithSeverity(sev)
		}
		if !p.Enabled(d.Category()) || !p.DomainEnabled(d.Domain()) {
			continue
		}
		if d.Severity < p.MinReport && d.Category() != diag.CatEngine {
			continue
		}
		kept = append(kept, d)
		if d.Severity >= p.MinFail {
			shouldFail = true
		}
	}
	return kept, shouldFail
}

func digest(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:16])
}
