package records

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeAppInstallRecordHappyPath(t *testing.T) {
	raw := `{
		"install": {"instance_id": "inst-1"},
		"app": {"id": "com.example.app", "version": "1.2.3", "nak_id": "com.example.nak", "nak_version_req": ">=3.1.0 <4.0.0"},
		"nak": {"id": "com.example.nak", "version": "3.1.2", "record_ref": "com.example.nak@3.1.2.json"},
		"paths": {"install_root": "/root/apps/com.example.app-1.2.3"},
		"trust": {"state": "verified"}
	}`
	rec, err := DecodeAppInstallRecord([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, "inst-1", rec.Install.InstanceID)
	assert.Equal(t, "com.example.app", rec.App.ID)
	assert.Equal(t, "3.1.2", rec.NAK.Version)
	assert.Equal(t, "verified", rec.Trust.State)
}

func TestDecodeAppInstallRecordMissingInstanceID(t *testing.T) {
	raw := `{"paths": {"install_root": "/x"}}`
	_, err := DecodeAppInstallRecord([]byte(raw))
	require.Error(t, err)
	var ierr *InvalidError
	require.ErrorAs(t, err, &ierr)
}

func TestDecodeAppInstallRecordMissingInstallRoot(t *testing.T) {
	raw := `{"install": {"instance_id": "inst-1"}}`
	_, err := DecodeAppInstallRecord([]byte(raw))
	require.Error(t, err)
}

func TestDecodeAppInstallRecordRejectsGarbage(t *testing.T) {
	_, err := DecodeAppInstallRecord([]byte(`not json`))
	require.Error(t, err)
}

func TestDecodeAppInstallRecordOverrides(t *testing.T) {
	raw := `{
		"install": {"instance_id": "i"},
		"paths": {"install_root": "/x"},
		"overrides": {
			"environment": {"FOO": "bar", "PATH": {"op": "prepend", "value": "/extra"}},
			"arguments": {"prepend": ["--verbose"]},
			"paths": {"library_prepend": ["/extra/lib"]}
		}
	}`
	rec, err := DecodeAppInstallRecord([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, "bar", rec.Overrides.Environment["FOO"].Value)
	assert.Equal(t, []string{"--verbose"}, rec.Overrides.Arguments.Prepend)
	assert.Equal(t, []string{"/extra/lib"}, rec.Overrides.Paths.LibraryPrepend)
}

func TestDecodeNAKInstallRecordHappyPath(t *testing.T) {
	raw := `{
		"nak": {"id": "com.example.nak", "version": "3.1.2"},
		"paths": {"root": "/root/naks/com.example.nak/3.1.2", "lib_dirs": ["/root/naks/com.example.nak/3.1.2/lib"]},
		"loaders": {"default": {"exec_path": "/root/naks/com.example.nak/3.1.2/bin/nah-runtime", "args_template": ["--app", "{NAH_APP_ENTRY}"]}}
	}`
	rec, err := DecodeNAKInstallRecord([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, "com.example.nak", rec.ID)
	assert.Equal(t, "/root/naks/com.example.nak/3.1.2", rec.ResourceRoot)
	require.Contains(t, rec.Loaders, "default")
}

func TestDecodeNAKInstallRecordLegacySingularLoader(t *testing.T) {
	raw := `{
		"nak": {"id": "x", "version": "1.0.0"},
		"paths": {"root": "/root/naks/x/1.0.0"},
		"loader": {"exec_path": "/root/naks/x/1.0.0/bin/run"}
	}`
	rec, err := DecodeNAKInstallRecord([]byte(raw))
	require.NoError(t, err)
	require.Contains(t, rec.Loaders, "default")
	assert.Equal(t, "/root/naks/x/1.0.0/bin/run", rec.Loaders["default"].ExecPath)
}

func TestDecodeNAKInstallRecordRejectsNonCoreVersion(t *testing.T) {
	raw := `{"nak": {"id": "x", "version": "1.0.0-beta"}, "paths": {"root": "/r"}}`
	_, err := DecodeNAKInstallRecord([]byte(raw))
	require.Error(t, err)
	var perr *PinInvalidError
	require.ErrorAs(t, err, &perr)
}

func TestDecodeNAKInstallRecordRequiredFields(t *testing.T) {
	_, err := DecodeNAKInstallRecord([]byte(`{}`))
	require.Error(t, err)
}

func TestDecodeHostEnvironmentDefaults(t *testing.T) {
	h, err := DecodeHostEnvironment(nil)
	require.NoError(t, err)
	assert.True(t, h.AllowEnvOverrides())
}

func TestDecodeHostEnvironmentExplicitDeny(t *testing.T) {
	h, err := DecodeHostEnvironment([]byte(`{"overrides": {"allow_env_overrides": false}}`))
	require.NoError(t, err)
	assert.False(t, h.AllowEnvOverrides())
}

func TestDecodeHostEnvironmentParseFailureReturnsEmpty(t *testing.T) {
	h, err := DecodeHostEnvironment([]byte(`not json`))
	require.Error(t, err)
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.True(t, h.AllowEnvOverrides())
}
