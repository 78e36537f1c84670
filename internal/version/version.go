package version

// Version is the current version of the argo-forecast library.
// This value is set at build time using ldflags:
// -ldflags "-X github.com/rxtech-lab/argo-forecast/internal/version.Version=1.2.3"
// The default value "main" indicates a development build.
var Version = "v1.0.0"

// ArtifactFormatVersion is the version written into every persisted model
// artifact. Bump the minor when the bundle layout changes in a way older
// readers cannot handle.
const ArtifactFormatVersion = "1.0.0"

// GetVersion returns the current version of the library.
func GetVersion() string {
	return Version
}
