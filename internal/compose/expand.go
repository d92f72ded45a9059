package compose

import (
	"regexp"

	"github.com/nah-run/nah/internal/envelope"
)

const (
	maxPlaceholdersPerString = 128
	maxExpandedStringBytes   = 64 * 1024
)

var placeholderPattern = regexp.MustCompile(`\{([^{}]*)\}`)

// expandEnvironmentMap expands every value in env against snapshot (a copy
// of env taken before any expansion began), in lexicographic key order
// (spec §4.E step 11).
func expandEnvironmentMap(c *envelope.Collector, env, snapshot map[string]string) map[string]string {
	out := make(map[string]string, len(env))
	for _, k := range sortedKeys(env) {
		out[k] = expandString(c, env[k], snapshot, "environment."+k)
	}
	return out
}

func expandStrings(c *envelope.Collector, list []string, snapshot map[string]string, sourcePath string) []string {
	if list == nil {
		return nil
	}
	out := make([]string, len(list))
	for i, s := range list {
		out[i] = expandString(c, s, snapshot, sourcePath)
	}
	return out
}

// expandString performs the single-pass {NAME} substitution of spec §4.E
// step 11 against a fixed snapshot: newly produced "{...}" substrings are
// never re-expanded because ReplaceAllStringFunc only visits matches found
// in the original string.
func expandString(c *envelope.Collector, s string, snapshot map[string]string, sourcePath string) string {
	matches := placeholderPattern.FindAllStringIndex(s, -1)
	if len(matches) == 0 {
		return s
	}
	if len(matches) > maxPlaceholdersPerString {
		c.Add(envelope.WarnInvalidConfiguration, map[string]any{"reason": "placeholder_limit", "source_path": sourcePath})
		return ""
	}

	result := placeholderPattern.ReplaceAllStringFunc(s, func(tok string) string {
		name := tok[1 : len(tok)-1]
		if v, ok := snapshot[name]; ok {
			return v
		}
		c.Add(envelope.WarnMissingEnvVar, map[string]any{"missing": name, "source_path": sourcePath})
		return ""
	})

	if len(result) > maxExpandedStringBytes {
		c.Add(envelope.WarnInvalidConfiguration, map[string]any{"reason": "expansion_overflow", "source_path": sourcePath})
		return ""
	}
	return result
}
