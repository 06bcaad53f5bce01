package version

import (
	"strings"

	"github.com/fatih/color"
)

// Version information for the liquidlint CLI.
// These variables can be overridden at build time via -ldflags.

var (
	versionMajorColor = []color.Attribute{color.FgYellow, color.Bold}
	versionMinorColor = []color.Attribute{color.FgGreen, color.Bold}
	versionPatchColor = []color.Attribute{color.FgBlue, color.Bold}

	// Version is the semantic version of the CLI.
	Version = "0.1.0-dev"

	// GitCommit is an optional git commit hash.
	GitCommit = ""

	// GitMessage is an optional git commit message.
	GitMessage = ""

	// BuildDate is an optional build date in ISO-8601.
	BuildDate = ""
)

// Colored renders Version with major, minor and patch in their own colours.
// Versions that are not x.y.z[-suffix] are returned as is.
func Colored(enabled bool) string {
	v := strings.TrimSpace(Version)
	core, suffix, hasSuffix := strings.Cut(v, "-")
	parts := strings.Split(core, ".")
	if !enabled || len(parts) != 3 {
		return v
	}
	out := paint(versionMajorColor, parts[0]) + "." +
		paint(versionMinorColor, parts[1]) + "." +
		paint(versionPatchColor, parts[2])
	if hasSuffix {
		out += "-" + suffix
	}
	return out
}

func paint(attrs []color.Attribute, s string) string {
	c := color.New(attrs...)
	c.EnableColor()
	return c.Sprint(s)
}
