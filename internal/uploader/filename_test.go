package uploader

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"
)

var filenamePattern = regexp.MustCompile(`^\d{8}_\d{6}_[0-9a-f]{8}\.jpg$`)

func TestGenerateFilenameShape(t *testing.T) {
	name := GenerateFilename(".jpg")
	require.Regexp(t, filenamePattern, name)
}

func TestGenerateFilenameNormalizesExtension(t *testing.T) {
	require.Regexp(t, filenamePattern, GenerateFilename("jpg"))
	require.Regexp(t, filenamePattern, GenerateFilename("JPG"))
	require.Regexp(t, regexp.MustCompile(`^\d{8}_\d{6}_[0-9a-f]{8}$`), GenerateFilename(""))
}

func TestGenerateFilenameIsCollisionResistant(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		name := GenerateFilename(".bin")
		require.False(t, seen[name], "duplicate filename %s", name)
		seen[name] = true
	}
}
