// Package errmsg provides enhanced error message formatting with actionable suggestions.
package errmsg

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nah-run/nah/internal/envelope"
	"github.com/nah-run/nah/internal/manifest"
	"github.com/nah-run/nah/internal/pathsafe"
	"github.com/nah-run/nah/internal/records"
)

// ErrorContext provides additional context for error formatting
type ErrorContext struct {
	AppID string // the app being operated on (for suggestions)
}

// Format returns a formatted error message with possible causes and suggestions.
// The context parameter is optional - pass nil for generic formatting.
func Format(err error, ctx *ErrorContext) string {
	if err == nil {
		return ""
	}

	errMsg := err.Error()

	var pathErr *pathsafe.PathError
	if errors.As(err, &pathErr) {
		return formatPathError(pathErr, ctx)
	}

	var manifestErr *manifest.FatalError
	if errors.As(err, &manifestErr) {
		return formatManifestError(manifestErr, ctx)
	}

	var recordErr *records.InvalidError
	if errors.As(err, &recordErr) {
		return formatInstallRecordError(recordErr, ctx)
	}

	if isNotFoundError(errMsg) {
		return formatNotFoundError(errMsg, ctx)
	}

	if isPermissionError(errMsg) {
		return formatPermissionError(errMsg, ctx)
	}

	if isDiskFullError(errMsg) {
		return formatDiskFullError(errMsg, ctx)
	}

	return errMsg
}

func formatPathError(err *pathsafe.PathError, ctx *ErrorContext) string {
	var sb strings.Builder
	sb.WriteString(err.Error())
	sb.WriteString("\n")

	sb.WriteString("\nPossible causes:\n")
	sb.WriteString("  - A manifest or install record names a path outside its app or NAK root\n")
	sb.WriteString("  - A path component is a symlink pointing outside the allowed tree\n")

	sb.WriteString("\nSuggestions:\n")
	sb.WriteString("  - Re-package the app without paths that escape its install root\n")
	if ctx != nil && ctx.AppID != "" {
		sb.WriteString(fmt.Sprintf("  - Run 'nah verify %s' to see the exact path that failed containment\n", ctx.AppID))
	} else {
		sb.WriteString("  - Run 'nah verify <app>' to see the exact path that failed containment\n")
	}

	return sb.String()
}

func formatManifestError(err *manifest.FatalError, ctx *ErrorContext) string {
	var sb strings.Builder
	sb.WriteString(err.Error())
	sb.WriteString("\n")

	sb.WriteString("\nPossible causes:\n")
	sb.WriteString("  - The app manifest is truncated or corrupted\n")
	sb.WriteString("  - The manifest was written by an incompatible packaging tool\n")

	sb.WriteString("\nSuggestions:\n")
	sb.WriteString("  - Re-download or rebuild the app package\n")
	sb.WriteString("  - Reinstall the app to regenerate its manifest\n")

	return sb.String()
}

func formatInstallRecordError(err *records.InvalidError, ctx *ErrorContext) string {
	var sb strings.Builder
	sb.WriteString(err.Error())
	sb.WriteString("\n")

	sb.WriteString("\nPossible causes:\n")
	sb.WriteString("  - The install record was hand-edited or corrupted\n")
	sb.WriteString("  - A prior install was interrupted before the record finished writing\n")

	sb.WriteString("\nSuggestions:\n")
	if ctx != nil && ctx.AppID != "" {
		sb.WriteString(fmt.Sprintf("  - Run 'nah uninstall %s' followed by a fresh 'nah install'\n", ctx.AppID))
	} else {
		sb.WriteString("  - Uninstall and reinstall the affected app\n")
	}

	return sb.String()
}

// FormatCritical formats one of the five terminal composition errors (spec
// §7) with the same possible-causes/suggestions shape as Format.
func FormatCritical(err envelope.CriticalError, ctx *ErrorContext) string {
	var sb strings.Builder
	sb.WriteString(string(err))
	sb.WriteString("\n")

	switch err {
	case envelope.ErrManifestMissing:
		sb.WriteString("\nPossible causes:\n")
		sb.WriteString("  - The app's MANIFEST file is missing or failed its integrity check\n")
		sb.WriteString("\nSuggestions:\n")
		sb.WriteString("  - Reinstall the app\n")
	case envelope.ErrEntrypointNotFound:
		sb.WriteString("\nPossible causes:\n")
		sb.WriteString("  - The manifest's entrypoint path does not exist in the install tree\n")
		sb.WriteString("\nSuggestions:\n")
		sb.WriteString("  - Verify the app package was extracted completely\n")
	case envelope.ErrPathTraversal:
		sb.WriteString("\nPossible causes:\n")
		sb.WriteString("  - A declared path escapes its app or NAK root\n")
		sb.WriteString("\nSuggestions:\n")
		sb.WriteString("  - Re-package the app and reinstall\n")
	case envelope.ErrInstallRecordInvalid:
		sb.WriteString("\nPossible causes:\n")
		sb.WriteString("  - The App Install Record is missing a required field\n")
		sb.WriteString("\nSuggestions:\n")
		if ctx != nil && ctx.AppID != "" {
			sb.WriteString(fmt.Sprintf("  - Run 'nah uninstall %s' followed by a fresh 'nah install'\n", ctx.AppID))
		} else {
			sb.WriteString("  - Reinstall the app to regenerate its install record\n")
		}
	case envelope.ErrNAKLoaderInvalid:
		sb.WriteString("\nPossible causes:\n")
		sb.WriteString("  - The pinned NAK loader name is missing from the NAK install record\n")
		sb.WriteString("  - The loader's executable no longer exists under the NAK root\n")
		sb.WriteString("\nSuggestions:\n")
		sb.WriteString("  - Reinstall the NAK the app is pinned to\n")
	default:
		sb.WriteString("\nSuggestions:\n")
		sb.WriteString("  - Run 'nah verify' for more detail\n")
	}

	return sb.String()
}

func formatNotFoundError(errMsg string, ctx *ErrorContext) string {
	var sb strings.Builder
	sb.WriteString(errMsg)
	sb.WriteString("\n")

	sb.WriteString("\nPossible causes:\n")
	sb.WriteString("  - No install record exists for that app id\n")
	sb.WriteString("  - Typo in the app id\n")

	sb.WriteString("\nSuggestions:\n")
	sb.WriteString("  - Run 'nah list' to see installed apps\n")
	if ctx != nil && ctx.AppID != "" {
		sb.WriteString(fmt.Sprintf("  - Run 'nah install %s' if it hasn't been installed yet\n", ctx.AppID))
	}

	return sb.String()
}

func formatPermissionError(errMsg string, ctx *ErrorContext) string {
	var sb strings.Builder
	sb.WriteString(errMsg)
	sb.WriteString("\n")

	sb.WriteString("\nPossible causes:\n")
	sb.WriteString("  - Insufficient permissions on the NAH root directory\n")
	sb.WriteString("  - Files owned by a different user\n")

	sb.WriteString("\nSuggestions:\n")
	sb.WriteString("  - Check permissions on $NAH_ROOT (default ~/.nah)\n")
	sb.WriteString("  - Ensure you own the NAH root: ls -la ~/.nah\n")

	return sb.String()
}

func formatDiskFullError(errMsg string, ctx *ErrorContext) string {
	var sb strings.Builder
	sb.WriteString(errMsg)
	sb.WriteString("\n")

	sb.WriteString("\nPossible causes:\n")
	sb.WriteString("  - The filesystem backing the NAH root is out of space\n")

	sb.WriteString("\nSuggestions:\n")
	sb.WriteString("  - Free up space or point NAH_ROOT at a different volume\n")

	return sb.String()
}

// isNotFoundError checks if the error message indicates something not found
func isNotFoundError(msg string) bool {
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "not found") ||
		strings.Contains(lower, "no such file") ||
		strings.Contains(lower, "does not exist")
}

// isPermissionError checks if the error message indicates a permission issue
func isPermissionError(msg string) bool {
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "permission denied") ||
		strings.Contains(lower, "access denied") ||
		strings.Contains(lower, "operation not permitted")
}

// isDiskFullError checks if the error message indicates the disk is full.
func isDiskFullError(msg string) bool {
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "no space left on device") ||
		strings.Contains(lower, "disk quota exceeded")
}
