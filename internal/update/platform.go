package update

import (
	"runtime"
	"strings"
)

// Target is the operating system and architecture a release asset is built for.
type Target struct {
	OS   string // Operating system (windows, linux, darwin)
	Arch string // Architecture (amd64, arm64, 386)
}

// Detect returns the target of the running updater.
func Detect() Target {
	return Target{
		OS:   runtime.GOOS,
		Arch: runtime.GOARCH,
	}
}

// ArchLabel returns the architecture as release assets spell it
// e.g., "x64" for amd64
func (t Target) ArchLabel() string {
	switch t.Arch {
	case "amd64":
		return "x64"
	case "386":
		return "x86"
	default:
		return t.Arch
	}
}

// AssetName expands an asset name template for tag. Supported
// placeholders are {tag}, {version} (tag without a leading "v"), {os}
// and {arch}.
func (t Target) AssetName(template, tag string) string {
	return strings.NewReplacer(
		"{tag}", tag,
		"{version}", NormalizeVersion(tag),
		"{os}", t.OS,
		"{arch}", t.ArchLabel(),
	).Replace(template)
}

// IsSupported returns true if release archives are published for this target
func (t Target) IsSupported() bool {
	supportedTargets := map[string][]string{
		"windows": {"amd64", "386", "arm64"},
		"linux":   {"amd64", "arm64"},
		"darwin":  {"amd64", "arm64"},
	}

	archs, ok := supportedTargets[t.OS]
	if !ok {
		return false
	}

	for _, arch := range archs {
		if t.Arch == arch {
			return true
		}
	}

	return false
}
