package compose

import "runtime"

// platformLibraryPathEnvKey picks the dynamic-loader search-path variable
// name for the current OS (spec §4.E step 13).
func platformLibraryPathEnvKey() string {
	switch runtime.GOOS {
	case "darwin":
		return "DYLD_LIBRARY_PATH"
	case "windows":
		return "PATH"
	default:
		return "LD_LIBRARY_PATH"
	}
}
