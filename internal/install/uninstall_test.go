package install

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nah-run/nah/internal/config"
	"github.com/nah-run/nah/internal/manifest"
)

func TestUninstallApp(t *testing.T) {
	root := config.NewRoot(t.TempDir())
	blob := packManifestApp(t, &manifest.Manifest{AppID: "com.example.app", AppVersion: "1.0.0"}, nil)

	_, err := InstallApp(root, blob, Options{})
	require.NoError(t, err)

	err = UninstallApp(root, "com.example.app", "1.0.0", Options{})
	require.NoError(t, err)

	assert.NoDirExists(t, root.AppTreeDir("com.example.app", "1.0.0"))
	assert.NoFileExists(t, root.AppInstallRecordPath("com.example.app", "1.0.0"))
}

func TestUninstallAppAmbiguousWithoutVersion(t *testing.T) {
	root := config.NewRoot(t.TempDir())
	blobA := packManifestApp(t, &manifest.Manifest{AppID: "com.example.app", AppVersion: "1.0.0"}, nil)
	blobB := packManifestApp(t, &manifest.Manifest{AppID: "com.example.app", AppVersion: "2.0.0"}, nil)

	_, err := InstallApp(root, blobA, Options{})
	require.NoError(t, err)
	_, err = InstallApp(root, blobB, Options{})
	require.NoError(t, err)

	err = UninstallApp(root, "com.example.app", "", Options{})
	require.Error(t, err)
}

func TestUninstallNAKRefusedWhilePinned(t *testing.T) {
	root := config.NewRoot(t.TempDir())

	nakBlob := packNAKPack(t, `{"nak":{"id":"com.example.nak","version":"1.2.0"}}`)
	_, err := InstallNAK(root, nakBlob, Options{})
	require.NoError(t, err)

	appBlob := packManifestApp(t, &manifest.Manifest{
		AppID:         "com.example.app",
		AppVersion:    "1.0.0",
		NAKID:         "com.example.nak",
		NAKVersionReq: ">=1.0.0 <2.0.0",
	}, nil)
	_, err = InstallApp(root, appBlob, Options{})
	require.NoError(t, err)

	err = UninstallNAK(root, "com.example.nak", "1.2.0", Options{})
	require.Error(t, err)
	var inUse *NAKInUseError
	require.ErrorAs(t, err, &inUse)
	assert.Contains(t, inUse.PinnedBy, "com.example.app@1.0.0")

	err = UninstallApp(root, "com.example.app", "1.0.0", Options{})
	require.NoError(t, err)

	err = UninstallNAK(root, "com.example.nak", "1.2.0", Options{})
	require.NoError(t, err)
}

func TestUninstallAppNotFound(t *testing.T) {
	root := config.NewRoot(t.TempDir())
	err := UninstallApp(root, "com.example.nonexistent", "1.0.0", Options{})
	require.Error(t, err)
}
