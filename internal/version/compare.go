package version

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// CheckArtifactCompatibility checks whether this reader can load an artifact
// written with the given format version. Returns nil if compatible, error
// with details if not.
//
// Compatibility Rules:
//   - If either version is "main" (development build), compatibility check is skipped
//   - Major versions must match exactly
//   - Minor versions must match exactly
//   - Patch versions can differ (e.g., 1.2.0 is compatible with 1.2.5)
//
// Examples:
//   - Reader 1.2.0, Artifact 1.2.0 -> OK (exact match)
//   - Reader 1.2.1, Artifact 1.2.0 -> OK (patch differs)
//   - Reader 1.3.0, Artifact 1.2.0 -> ERROR (minor differs)
//   - Reader 2.0.0, Artifact 1.2.0 -> ERROR (major differs)
//   - Reader main, Artifact 1.2.0 -> OK (dev build, skip check)
func CheckArtifactCompatibility(readerVersion, artifactVersion string) error {
	// Strip 'v' prefix if present for consistency
	readerVersion = strings.TrimPrefix(readerVersion, "v")
	artifactVersion = strings.TrimPrefix(artifactVersion, "v")

	// Skip version check for "main" (development builds)
	if readerVersion == "main" || artifactVersion == "main" {
		return nil
	}

	readerSemver, err := semver.NewVersion(readerVersion)
	if err != nil {
		return fmt.Errorf("invalid reader version '%s': %w", readerVersion, err)
	}

	artifactSemver, err := semver.NewVersion(artifactVersion)
	if err != nil {
		return fmt.Errorf("invalid artifact version '%s': %w", artifactVersion, err)
	}

	if readerSemver.Major() != artifactSemver.Major() {
		return fmt.Errorf("major version mismatch: reader is %d.x.x but artifact was written as %d.x.x",
			readerSemver.Major(), artifactSemver.Major())
	}

	if readerSemver.Minor() != artifactSemver.Minor() {
		return fmt.Errorf("minor version mismatch: reader is %d.%d.x but artifact was written as %d.%d.x",
			readerSemver.Major(), readerSemver.Minor(),
			artifactSemver.Major(), artifactSemver.Minor())
	}

	// Patch versions can differ, so we're compatible
	return nil
}
