package uploader

import (
	"os"
	"strings"
	"testing"

	"invoicedrop/pkg/faults"

	"github.com/stretchr/testify/require"
)

func TestStageAndRelease(t *testing.T) {
	area := NewStagingArea(t.TempDir())

	staged, err := area.Stage("file-abc", strings.NewReader("payload bytes"))
	require.NoError(t, err)
	require.Equal(t, int64(len("payload bytes")), staged.Size)

	data, err := os.ReadFile(staged.Path)
	require.NoError(t, err)
	require.Equal(t, "payload bytes", string(data))

	path := staged.Path
	require.NoError(t, staged.Release())
	_, err = os.Stat(path)
	require.True(t, os.IsNotExist(err))

	// Release is idempotent.
	require.NoError(t, staged.Release())
}

func TestStageRejectsEmptyPayload(t *testing.T) {
	dir := t.TempDir()
	area := NewStagingArea(dir)

	_, err := area.Stage("file-abc", strings.NewReader(""))
	require.Error(t, err)
	require.True(t, faults.IsKind(err, faults.KindLocalIO))

	// Nothing is left behind.
	entries, readErr := os.ReadDir(dir)
	require.NoError(t, readErr)
	require.Empty(t, entries)
}

func TestStageNamesNeverCollide(t *testing.T) {
	area := NewStagingArea(t.TempDir())

	a, err := area.Stage("same-id", strings.NewReader("one"))
	require.NoError(t, err)
	b, err := area.Stage("same-id", strings.NewReader("two"))
	require.NoError(t, err)
	require.NotEqual(t, a.Path, b.Path)
}

func TestStageSanitizesContentID(t *testing.T) {
	area := NewStagingArea(t.TempDir())

	staged, err := area.Stage("../../etc/passwd", strings.NewReader("x"))
	require.NoError(t, err)
	require.NotContains(t, staged.Path, "..")
	require.NoError(t, staged.Release())
}
