package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nah-run/nah/internal/semver"
)

func writeEmpty(t *testing.T, dir, name string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("{}"), 0o644))
}

func TestScanParsesIDAndVersion(t *testing.T) {
	dir := t.TempDir()
	writeEmpty(t, dir, "com.example.app@1.0.0.json")
	writeEmpty(t, dir, "com.example.app@1.2.0.json")
	writeEmpty(t, dir, "not-a-record.txt")

	entries, err := Scan(dir)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "com.example.app", entries[0].ID)
	assert.Equal(t, "1.0.0", entries[0].Version)
}

func TestScanMissingDirIsEmpty(t *testing.T) {
	entries, err := Scan(filepath.Join(t.TempDir(), "missing"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSelectSingleAmbiguous(t *testing.T) {
	dir := t.TempDir()
	writeEmpty(t, dir, "com.example.app@1.0.0.json")
	writeEmpty(t, dir, "com.example.app@1.2.0.json")
	entries, err := Scan(dir)
	require.NoError(t, err)

	_, err = SelectSingle(entries, "com.example.app")
	var ambErr *AmbiguousError
	require.ErrorAs(t, err, &ambErr)
}

func TestSelectSingleNotFound(t *testing.T) {
	_, err := SelectSingle(nil, "com.example.app")
	var nfErr *NotFoundError
	require.ErrorAs(t, err, &nfErr)
}

func TestHighestSatisfying(t *testing.T) {
	dir := t.TempDir()
	writeEmpty(t, dir, "com.example.nak@3.0.5.json")
	writeEmpty(t, dir, "com.example.nak@3.1.2.json")
	writeEmpty(t, dir, "com.example.nak@3.9.0.json")
	entries, err := Scan(dir)
	require.NoError(t, err)

	r, err := semver.ParseRange(">=3.1.0 <4.0.0")
	require.NoError(t, err)

	best, ok := HighestSatisfying(ForID(entries, "com.example.nak"), r)
	require.True(t, ok)
	assert.Equal(t, "3.9.0", best.Version)
}
