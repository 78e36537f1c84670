package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckArtifactCompatibility(t *testing.T) {
	tests := []struct {
		name            string
		readerVersion   string
		artifactVersion string
		expectError     bool
		errorContains   string
	}{
		// Compatible cases
		{
			name:            "exact match",
			readerVersion:   "1.2.0",
			artifactVersion: "1.2.0",
			expectError:     false,
		},
		{
			name:            "reader patch higher",
			readerVersion:   "1.2.1",
			artifactVersion: "1.2.0",
			expectError:     false,
		},
		{
			name:            "artifact patch higher",
			readerVersion:   "1.2.0",
			artifactVersion: "1.2.5",
			expectError:     false,
		},
		{
			name:            "same major minor different patch",
			readerVersion:   "2.5.10",
			artifactVersion: "2.5.3",
			expectError:     false,
		},

		// Incompatible cases
		{
			name:            "reader minor higher",
			readerVersion:   "1.3.0",
			artifactVersion: "1.2.0",
			expectError:     true,
			errorContains:   "minor version mismatch",
		},
		{
			name:            "reader minor lower",
			readerVersion:   "1.1.0",
			artifactVersion: "1.2.0",
			expectError:     true,
			errorContains:   "minor version mismatch",
		},
		{
			name:            "major version differs",
			readerVersion:   "2.0.0",
			artifactVersion: "1.2.0",
			expectError:     true,
			errorContains:   "major version mismatch",
		},
		{
			name:            "reader is main",
			readerVersion:   "main",
			artifactVersion: "1.2.0",
			expectError:     false,
		},
		{
			name:            "reader is main with different artifact",
			readerVersion:   "main",
			artifactVersion: "1.3.0",
			expectError:     false,
		},
		{
			name:            "both are main",
			readerVersion:   "main",
			artifactVersion: "main",
			expectError:     false,
		},
		{
			name:            "artifact is main",
			readerVersion:   "1.2.0",
			artifactVersion: "main",
			expectError:     false,
		},

		// Edge cases with v prefix
		{
			name:            "v prefix on reader",
			readerVersion:   "v1.2.0",
			artifactVersion: "1.2.0",
			expectError:     false,
		},
		{
			name:            "v prefix on artifact",
			readerVersion:   "1.2.0",
			artifactVersion: "v1.2.0",
			expectError:     false,
		},
		{
			name:            "v prefix on both",
			readerVersion:   "v1.2.0",
			artifactVersion: "v1.2.0",
			expectError:     false,
		},

		// Edge cases with prerelease and metadata
		{
			name:            "prerelease version",
			readerVersion:   "1.2.0-alpha",
			artifactVersion: "1.2.0",
			expectError:     false,
		},
		{
			name:            "build metadata",
			readerVersion:   "1.2.0+build123",
			artifactVersion: "1.2.0",
			expectError:     false,
		},

		// Invalid versions
		{
			name:            "invalid reader version",
			readerVersion:   "not-a-version",
			artifactVersion: "1.2.0",
			expectError:     true,
			errorContains:   "invalid reader version",
		},
		{
			name:            "invalid artifact version",
			readerVersion:   "1.2.0",
			artifactVersion: "not-a-version",
			expectError:     true,
			errorContains:   "invalid artifact version",
		},
		{
			name:            "empty reader version",
			readerVersion:   "",
			artifactVersion: "1.2.0",
			expectError:     true,
			errorContains:   "invalid reader version",
		},
		{
			name:            "empty artifact version",
			readerVersion:   "1.2.0",
			artifactVersion: "",
			expectError:     true,
			errorContains:   "invalid artifact version",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckArtifactCompatibility(tt.readerVersion, tt.artifactVersion)

			if tt.expectError {
				require.Error(t, err)
				if tt.errorContains != "" {
					assert.Contains(t, err.Error(), tt.errorContains)
				}
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestGetVersion(t *testing.T) {
	v := GetVersion()
	assert.Equal(t, Version, v)
}
