package version

import (
	"strings"
	"testing"
)

func TestVersion_DefaultValues(t *testing.T) {
	if Version == "" {
		t.Error("Version should have a default value")
	}
	// GitCommit и BuildDate опциональны
	_ = GitCommit
	_ = BuildDate
}

func TestVersion_CanBeOverridden(t *testing.T) {
	origVersion, origGitCommit, origBuildDate := Version, GitCommit, BuildDate
	defer func() {
		Version, GitCommit, BuildDate = origVersion, origGitCommit, origBuildDate
	}()

	// как при сборке с -ldflags
	Version = "1.2.3"
	GitCommit = "abc123def456"
	BuildDate = "2024-01-15T10:30:00Z"

	if Version != "1.2.3" {
		t.Errorf("Version = %q, want %q", Version, "1.2.3")
	}
	if GitCommit != "abc123def456" {
		t.Errorf("GitCommit = %q, want %q", GitCommit, "abc123def456")
	}
	if BuildDate != "2024-01-15T10:30:00Z" {
		t.Errorf("BuildDate = %q, want %q", BuildDate, "2024-01-15T10:30:00Z")
	}
}

func TestColored(t *testing.T) {
	orig := Version
	defer func() { Version = orig }()

	tests := []struct {
		version string
		enabled bool
		escapes bool
		plain   string
	}{
		{"1.2.3", false, false, "1.2.3"},
		{"1.2.3", true, true, "1.2.3"},
		{"0.1.0-dev", true, true, "0.1.0-dev"},
		{"1.2.3-rc.1+build.123", true, true, "1.2.3-rc.1+build.123"},
		{"nightly", true, false, "nightly"},
	}
	for _, tt := range tests {
		Version = tt.version
		got := Colored(tt.enabled)
		if strings.Contains(got, "\x1b[") != tt.escapes {
			t.Errorf("Colored(%v) for %q = %q", tt.enabled, tt.version, got)
		}
		if stripANSI(got) != tt.plain {
			t.Errorf("plain text of %q = %q, want %q", got, stripANSI(got), tt.plain)
		}
	}
}

func stripANSI(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == 0x1b {
			for i < len(s) && s[i] != 'm' {
				i++
			}
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func BenchmarkVersionAccess(b *testing.B) {
	b.Run("Version", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			_ = Version
		}
	})
	b.Run("Colored", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			_ = Colored(true)
		}
	})
}
