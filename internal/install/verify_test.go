package install

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nah-run/nah/internal/config"
	"github.com/nah-run/nah/internal/manifest"
)

func TestVerifyAppOK(t *testing.T) {
	root := config.NewRoot(t.TempDir())
	blob := packManifestApp(t, &manifest.Manifest{AppID: "com.example.app", AppVersion: "1.0.0"}, nil)

	_, err := InstallApp(root, blob, Options{})
	require.NoError(t, err)

	report, err := VerifyApp(root, "com.example.app", "1.0.0", Options{})
	require.NoError(t, err)
	assert.True(t, report.OK)
	assert.Empty(t, report.Issues)
}

func TestVerifyAppDetectsMissingTree(t *testing.T) {
	root := config.NewRoot(t.TempDir())
	blob := packManifestApp(t, &manifest.Manifest{AppID: "com.example.app", AppVersion: "1.0.0"}, nil)

	_, err := InstallApp(root, blob, Options{})
	require.NoError(t, err)

	require.NoError(t, os.RemoveAll(root.AppTreeDir("com.example.app", "1.0.0")))

	report, err := VerifyApp(root, "com.example.app", "1.0.0", Options{})
	require.NoError(t, err)
	assert.False(t, report.OK)
	assert.NotEmpty(t, report.Issues)
}

func TestVerifyAppDetectsUnresolvedNAKPinRecord(t *testing.T) {
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

	require.NoError(t, os.Remove(root.NAKInstallRecordPath("com.example.nak", "1.2.0")))

	report, err := VerifyApp(root, "com.example.app", "1.0.0", Options{})
	require.NoError(t, err)
	assert.False(t, report.OK)
}

func TestVerifyNAKOK(t *testing.T) {
	root := config.NewRoot(t.TempDir())
	blob := packNAKPack(t, `{"nak":{"id":"com.example.nak","version":"1.2.0"}}`)

	_, err := InstallNAK(root, blob, Options{})
	require.NoError(t, err)

	report, err := VerifyNAK(root, "com.example.nak", "1.2.0")
	require.NoError(t, err)
	assert.True(t, report.OK)
}
