package install

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nah-run/nah/internal/archive"
	"github.com/nah-run/nah/internal/config"
	"github.com/nah-run/nah/internal/manifest"
	"github.com/nah-run/nah/internal/records"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		mode := os.FileMode(0o644)
		if filepath.Dir(rel) == "bin" {
			mode = 0o755
		}
		require.NoError(t, os.WriteFile(path, []byte(content), mode))
	}
}

func packManifestApp(t *testing.T, m *manifest.Manifest, extraFiles map[string]string) []byte {
	t.Helper()
	srcDir := t.TempDir()
	writeTree(t, srcDir, extraFiles)
	require.NoError(t, os.MkdirAll(srcDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(srcDir, "manifest.nah"), manifest.Encode(m), 0o644))
	blob, err := archive.Pack(srcDir)
	require.NoError(t, err)
	return blob
}

func packNAKPack(t *testing.T, nakJSON string) []byte {
	t.Helper()
	srcDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(srcDir, "nak.json"), []byte(nakJSON), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(srcDir, "lib"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(srcDir, "lib", "libfoo.so"), []byte("lib"), 0o644))
	blob, err := archive.Pack(srcDir)
	require.NoError(t, err)
	return blob
}

func TestInstallAppHappyPath(t *testing.T) {
	root := config.NewRoot(t.TempDir())
	blob := packManifestApp(t, &manifest.Manifest{
		AppID:          "com.example.app",
		AppVersion:     "1.0.0",
		EntrypointPath: "bin/app",
	}, map[string]string{"bin/app": "#!/bin/sh\necho hi\n"})

	result, err := InstallApp(root, blob, Options{})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.NotEmpty(t, result.Record.Install.InstanceID)
	assert.Equal(t, "com.example.app", result.Record.App.ID)
	assert.Equal(t, "1.0.0", result.Record.App.Version)

	destDir := root.AppTreeDir("com.example.app", "1.0.0")
	assert.DirExists(t, destDir)
	assert.FileExists(t, filepath.Join(destDir, "bin", "app"))
	assert.FileExists(t, root.AppInstallRecordPath("com.example.app", "1.0.0"))
}

func TestInstallAppConflictWithoutForce(t *testing.T) {
	root := config.NewRoot(t.TempDir())
	blob := packManifestApp(t, &manifest.Manifest{AppID: "com.example.app", AppVersion: "1.0.0"}, nil)

	_, err := InstallApp(root, blob, Options{})
	require.NoError(t, err)

	_, err = InstallApp(root, blob, Options{})
	require.Error(t, err)
	var conflictErr *ConflictError
	assert.ErrorAs(t, err, &conflictErr)
}

func TestInstallAppForceOverwrites(t *testing.T) {
	root := config.NewRoot(t.TempDir())
	blob := packManifestApp(t, &manifest.Manifest{AppID: "com.example.app", AppVersion: "1.0.0"}, nil)

	_, err := InstallApp(root, blob, Options{})
	require.NoError(t, err)

	_, err = InstallApp(root, blob, Options{Force: true})
	require.NoError(t, err)
}

func TestInstallAppMissingManifest(t *testing.T) {
	root := config.NewRoot(t.TempDir())
	srcDir := t.TempDir()
	writeTree(t, srcDir, map[string]string{"bin/app": "#!/bin/sh\n"})
	blob, err := archive.Pack(srcDir)
	require.NoError(t, err)

	_, err = InstallApp(root, blob, Options{})
	require.Error(t, err)
	var notFound *ManifestNotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestInstallAppNAKUnresolvedHardFailsByDefault(t *testing.T) {
	root := config.NewRoot(t.TempDir())
	blob := packManifestApp(t, &manifest.Manifest{
		AppID:         "com.example.app",
		AppVersion:    "1.0.0",
		NAKID:         "com.example.nak",
		NAKVersionReq: ">=1.0.0 <2.0.0",
	}, nil)

	_, err := InstallApp(root, blob, Options{})
	require.Error(t, err)
	var unresolved *NAKUnresolvedError
	require.ErrorAs(t, err, &unresolved)
	assert.Equal(t, "com.example.nak", unresolved.NAKID)

	// staging directory must have been cleaned up
	entries, readErr := os.ReadDir(root.Dir)
	require.NoError(t, readErr)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".staging-")
	}
}

func TestInstallAppNAKUnresolvedAllowed(t *testing.T) {
	root := config.NewRoot(t.TempDir())
	blob := packManifestApp(t, &manifest.Manifest{
		AppID:         "com.example.app",
		AppVersion:    "1.0.0",
		NAKID:         "com.example.nak",
		NAKVersionReq: ">=1.0.0 <2.0.0",
	}, nil)

	result, err := InstallApp(root, blob, Options{AllowUnresolvedPin: true})
	require.NoError(t, err)
	assert.NotEmpty(t, result.Warnings)
}

func TestInstallAppResolvesNAKPin(t *testing.T) {
	root := config.NewRoot(t.TempDir())

	nakBlob := packNAKPack(t, `{"nak":{"id":"com.example.nak","version":"1.2.0"},"paths":{"lib_dirs":["lib"]}}`)
	_, err := InstallNAK(root, nakBlob, Options{})
	require.NoError(t, err)

	appBlob := packManifestApp(t, &manifest.Manifest{
		AppID:         "com.example.app",
		AppVersion:    "1.0.0",
		NAKID:         "com.example.nak",
		NAKVersionReq: ">=1.0.0 <2.0.0",
	}, nil)

	result, err := InstallApp(root, appBlob, Options{})
	require.NoError(t, err)
	assert.Equal(t, "com.example.nak", result.Record.NAK.ID)
	assert.Equal(t, "1.2.0", result.Record.NAK.Version)
}

func TestInstallAppWithEmbeddedSection(t *testing.T) {
	root := config.NewRoot(t.TempDir())
	blob := manifest.Encode(&manifest.Manifest{AppID: "com.example.app", AppVersion: "1.0.0"})

	srcDir := t.TempDir()
	writeTree(t, srcDir, map[string]string{"bin/app": "#!/bin/sh\n"})
	archiveBytes, err := archive.Pack(srcDir)
	require.NoError(t, err)

	result, err := InstallApp(root, archiveBytes, Options{SectionReader: suffixSectionReader{want: "app", data: blob}})
	require.NoError(t, err)
	assert.Equal(t, "com.example.app", result.Record.App.ID)
}

// suffixSectionReader reports the section present for any binary whose base
// name matches want, regardless of the staging directory's temp-dir prefix.
type suffixSectionReader struct {
	want string
	data []byte
}

func (s suffixSectionReader) ReadSection(binaryPath, sectionName string) ([]byte, bool, error) {
	if filepath.Base(binaryPath) == s.want {
		return s.data, true, nil
	}
	return nil, false, nil
}

func TestBuildAppRecordSetsInstanceID(t *testing.T) {
	m := &manifest.Manifest{AppID: "a", AppVersion: "1.0.0"}
	rec := buildAppRecord(m, "/some/path", records.NAKPin{})
	assert.NotEmpty(t, rec.Install.InstanceID)
	assert.Equal(t, "/some/path", rec.Paths.InstallRoot)
}
