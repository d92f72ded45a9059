package records

import "encoding/json"

// EncodeNAKInstallRecord serializes a NAKInstallRecord back to the wire
// shape DecodeNAKInstallRecord reads, for the install pipeline's atomic
// write of a NAK Install Record (spec §4.G, §4.H). The legacy singular
// "loader" object is never re-emitted: a record round-tripped through this
// package always normalizes to the "loaders" map form.
func EncodeNAKInstallRecord(rec *NAKInstallRecord) ([]byte, error) {
	wire := nakWire{
		Paths: nakPaths{
			Root:         rec.Root,
			ResourceRoot: rec.ResourceRoot,
			LibDirs:      rec.LibDirs,
		},
		Environment: rec.Environment,
		Loaders:     rec.Loaders,
		Execution:   nakExecution{Cwd: rec.ExecutionCwd},
	}
	wire.NAK.ID = rec.ID
	wire.NAK.Version = rec.Version
	return json.MarshalIndent(wire, "", "  ")
}

// EncodeAppInstallRecord serializes an AppInstallRecord for the install
// pipeline's atomic write (spec §4.G, §4.H step 8). The struct's JSON tags
// are already the wire shape DecodeAppInstallRecord reads.
func EncodeAppInstallRecord(rec *AppInstallRecord) ([]byte, error) {
	return json.MarshalIndent(rec, "", "  ")
}
