package manifest

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
)

// Encode serializes a Manifest back into the TLV wire format. NAH itself
// never calls this at runtime (manifests are produced by app packaging
// tooling, outside this host's scope), but it is the dual of Decode and is
// exercised by round-trip tests and by any packaging helper built on this
// package.
func Encode(m *Manifest) []byte {
	var payload bytes.Buffer

	writeEntry := func(tag Tag, value []byte) {
		var hdr [4]byte
		binary.LittleEndian.PutUint16(hdr[0:2], uint16(tag))
		binary.LittleEndian.PutUint16(hdr[2:4], uint16(len(value)))
		payload.Write(hdr[:])
		payload.Write(value)
	}

	var schemaVersion [2]byte
	binary.LittleEndian.PutUint16(schemaVersion[:], wireVersion)
	writeEntry(TagSchemaVersion, schemaVersion[:])

	if m.AppID != "" {
		writeEntry(TagAppID, []byte(m.AppID))
	}
	if m.AppVersion != "" {
		writeEntry(TagAppVersion, []byte(m.AppVersion))
	}
	if m.NAKID != "" {
		writeEntry(TagNAKID, []byte(m.NAKID))
	}
	if m.NAKVersionReq != "" {
		writeEntry(TagNAKVersionReq, []byte(m.NAKVersionReq))
	}
	if m.EntrypointPath != "" {
		writeEntry(TagEntrypointPath, []byte(m.EntrypointPath))
	}
	for _, arg := range m.EntrypointArgs {
		writeEntry(TagEntrypointArg, []byte(arg))
	}
	for _, dir := range m.LibDirs {
		writeEntry(TagLibDir, []byte(dir))
	}
	for _, dir := range m.AssetDirs {
		writeEntry(TagAssetDir, []byte(dir))
	}
	for _, exp := range m.AssetExports {
		s := exp.ID + ":" + exp.RelPath
		if exp.Type != "" {
			s += ":" + exp.Type
		}
		writeEntry(TagAssetExport, []byte(s))
	}
	for _, ev := range m.EnvVars {
		writeEntry(TagEnvVar, []byte(ev))
	}
	for _, p := range m.PermissionsFilesystem {
		writeEntry(TagPermissionFilesystem, []byte(p))
	}
	for _, p := range m.PermissionsNetwork {
		writeEntry(TagPermissionNetwork, []byte(p))
	}
	if m.Description != "" {
		writeEntry(TagDescription, []byte(m.Description))
	}
	if m.Author != "" {
		writeEntry(TagAuthor, []byte(m.Author))
	}
	if m.License != "" {
		writeEntry(TagLicense, []byte(m.License))
	}
	if m.Homepage != "" {
		writeEntry(TagHomepage, []byte(m.Homepage))
	}
	writeEntry(TagEnd, nil)

	total := headerSize + payload.Len()
	var out bytes.Buffer
	out.WriteString(magic)

	var u16 [2]byte
	binary.LittleEndian.PutUint16(u16[:], wireVersion)
	out.Write(u16[:])
	binary.LittleEndian.PutUint16(u16[:], 0)
	out.Write(u16[:])

	var u32 [4]byte
	binary.LittleEndian.PutUint32(u32[:], uint32(total))
	out.Write(u32[:])
	binary.LittleEndian.PutUint32(u32[:], crc32.ChecksumIEEE(payload.Bytes()))
	out.Write(u32[:])

	out.Write(payload.Bytes())
	return out.Bytes()
}
