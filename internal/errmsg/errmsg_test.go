package errmsg

import (
	"errors"
	"strings"
	"testing"

	"github.com/nah-run/nah/internal/envelope"
	"github.com/nah-run/nah/internal/manifest"
	"github.com/nah-run/nah/internal/pathsafe"
	"github.com/nah-run/nah/internal/records"
)

func TestFormat_NilError(t *testing.T) {
	result := Format(nil, nil)
	if result != "" {
		t.Errorf("expected empty string for nil error, got %q", result)
	}
}

func TestFormat_GenericError(t *testing.T) {
	err := errors.New("something went wrong")
	result := Format(err, nil)
	if result != "something went wrong" {
		t.Errorf("expected original error message, got %q", result)
	}
}

func TestFormat_PathError(t *testing.T) {
	err := &pathsafe.PathError{Root: "/apps/a", Relative: "../etc/passwd", Reason: "traverses above root"}
	ctx := &ErrorContext{AppID: "a"}
	result := Format(err, ctx)

	checks := []string{
		"traverses above root",
		"Possible causes:",
		"escape",
		"Suggestions:",
		"nah verify a",
	}
	for _, check := range checks {
		if !strings.Contains(result, check) {
			t.Errorf("expected result to contain %q, got:\n%s", check, result)
		}
	}
}

func TestFormat_ManifestFatalError(t *testing.T) {
	err := &manifest.FatalError{Reason: "CRC32 mismatch"}
	result := Format(err, nil)

	checks := []string{
		"CRC32 mismatch",
		"Possible causes:",
		"truncated or corrupted",
		"Suggestions:",
		"Reinstall",
	}
	for _, check := range checks {
		if !strings.Contains(result, check) {
			t.Errorf("expected result to contain %q, got:\n%s", check, result)
		}
	}
}

func TestFormat_InstallRecordInvalidError(t *testing.T) {
	err := &records.InvalidError{Reason: "install.instance_id is required"}
	ctx := &ErrorContext{AppID: "myapp"}
	result := Format(err, ctx)

	checks := []string{
		"install.instance_id is required",
		"Possible causes:",
		"Suggestions:",
		"nah uninstall myapp",
	}
	for _, check := range checks {
		if !strings.Contains(result, check) {
			t.Errorf("expected result to contain %q, got:\n%s", check, result)
		}
	}
}

func TestFormat_NotFoundError(t *testing.T) {
	err := errors.New("install record not found for app: nonexistent-tool")
	ctx := &ErrorContext{AppID: "nonexistent-tool"}
	result := Format(err, ctx)

	checks := []string{
		"not found",
		"Possible causes:",
		"Suggestions:",
		"nah list",
		"nah install nonexistent-tool",
	}
	for _, check := range checks {
		if !strings.Contains(result, check) {
			t.Errorf("expected result to contain %q, got:\n%s", check, result)
		}
	}
}

func TestFormat_PermissionError(t *testing.T) {
	err := errors.New("open /home/user/.nah/apps: permission denied")
	result := Format(err, nil)

	checks := []string{
		"permission denied",
		"Possible causes:",
		"Insufficient permissions",
		"Suggestions:",
		"~/.nah",
	}
	for _, check := range checks {
		if !strings.Contains(result, check) {
			t.Errorf("expected result to contain %q, got:\n%s", check, result)
		}
	}
}

func TestFormat_DiskFullError(t *testing.T) {
	err := errors.New("write /home/user/.nah/apps/x: no space left on device")
	result := Format(err, nil)

	checks := []string{
		"no space left on device",
		"Possible causes:",
		"out of space",
		"Suggestions:",
	}
	for _, check := range checks {
		if !strings.Contains(result, check) {
			t.Errorf("expected result to contain %q, got:\n%s", check, result)
		}
	}
}

func TestFormatCritical_AllKnownErrors(t *testing.T) {
	errs := []envelope.CriticalError{
		envelope.ErrManifestMissing,
		envelope.ErrEntrypointNotFound,
		envelope.ErrPathTraversal,
		envelope.ErrInstallRecordInvalid,
		envelope.ErrNAKLoaderInvalid,
	}
	for _, e := range errs {
		result := FormatCritical(e, nil)
		if !strings.Contains(result, string(e)) {
			t.Errorf("FormatCritical(%v) missing error name in output:\n%s", e, result)
		}
		if !strings.Contains(result, "Suggestions:") {
			t.Errorf("FormatCritical(%v) missing suggestions section", e)
		}
	}
}

func TestFormatCritical_WithContext(t *testing.T) {
	result := FormatCritical(envelope.ErrInstallRecordInvalid, &ErrorContext{AppID: "broken-app"})
	if !strings.Contains(result, "nah install") {
		t.Errorf("expected app-specific suggestion, got:\n%s", result)
	}
}

func TestIsNotFoundError(t *testing.T) {
	tests := []struct {
		msg      string
		expected bool
	}{
		{"app not found", true},
		{"no such file or directory", true},
		{"does not exist in registry", true},
		{"connection failed", false},
	}

	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			if got := isNotFoundError(tt.msg); got != tt.expected {
				t.Errorf("isNotFoundError(%q) = %v, want %v", tt.msg, got, tt.expected)
			}
		})
	}
}

func TestIsPermissionError(t *testing.T) {
	tests := []struct {
		msg      string
		expected bool
	}{
		{"permission denied", true},
		{"access denied", true},
		{"operation not permitted", true},
		{"file not found", false},
	}

	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			if got := isPermissionError(tt.msg); got != tt.expected {
				t.Errorf("isPermissionError(%q) = %v, want %v", tt.msg, got, tt.expected)
			}
		})
	}
}

func TestIsDiskFullError(t *testing.T) {
	tests := []struct {
		msg      string
		expected bool
	}{
		{"no space left on device", true},
		{"disk quota exceeded", true},
		{"permission denied", false},
	}

	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			if got := isDiskFullError(tt.msg); got != tt.expected {
				t.Errorf("isDiskFullError(%q) = %v, want %v", tt.msg, got, tt.expected)
			}
		})
	}
}
