// Package archive implements the deterministic tar.gz pack/unpack of spec
// §4.F: canonical metadata, sort order, and permissions on the way in, and
// extraction-safety validation on the way out. The install pipeline (§4.H)
// is the only caller; `.nap`/`.nak` package files are always this format.
//
// The teacher's own internal/actions/extract.go reaches for the standard
// library's archive/tar and compress/gzip for exactly this job (layering
// third-party decoders like klauspost/compress and ulikunitz/xz only for
// formats NAH doesn't support), so this package stays on stdlib too — see
// DESIGN.md for the dropped-dependency note on zstd/xz/lzip.
package archive

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const (
	dirMode       = 0o755
	fileMode      = 0o644
	execFileMode  = 0o755
	maxEntryBytes = 256 * 1024 * 1024 // defensive cap on any single extracted file
)

// PackError reports a failure to build a deterministic archive, most often
// because the source tree contains an entry type §4.F refuses to pack.
type PackError struct {
	Path   string
	Reason string
}

func (e *PackError) Error() string {
	return fmt.Sprintf("archive: cannot pack %q: %s", e.Path, e.Reason)
}

// ExtractionError reports an unsafe archive entry encountered during
// Unpack (spec §4.F "consume" rules). Unpack guarantees that on this error
// no files were materialized under the destination root.
type ExtractionError struct {
	Entry  string
	Reason string
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("archive: unsafe entry %q: %s", e.Entry, e.Reason)
}

type packEntry struct {
	name     string // tar name, directories end in "/"
	fsPath   string // absolute path on disk
	isDir    bool
	mode     int64
	size     int64
}

// Pack builds a canonical tar.gz of every regular file and directory under
// srcDir. Symlinks, devices, FIFOs, and sockets are rejected outright
// (spec §4.F "Produce"). Hardlinks are not detected: a regular file with
// several links is packed as an ordinary regular file. The result is
// byte-identical across
// invocations for an identical input tree (spec §8 property 3).
func Pack(srcDir string) ([]byte, error) {
	entries, err := collectEntries(srcDir)
	if err != nil {
		return nil, err
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].name < entries[j].name })

	var buf bytes.Buffer
	gz, _ := gzip.NewWriterLevel(&buf, gzip.BestCompression)
	gz.Header = gzip.Header{ModTime: time.Unix(0, 0), OS: 255}
	tw := tar.NewWriter(gz)

	for _, e := range entries {
		hdr := &tar.Header{
			Name:     e.name,
			Uid:      0,
			Gid:      0,
			Uname:    "",
			Gname:    "",
			ModTime:  time.Unix(0, 0),
			Mode:     e.mode,
		}
		if e.isDir {
			hdr.Typeflag = tar.TypeDir
		} else {
			hdr.Typeflag = tar.TypeReg
			hdr.Size = e.size
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return nil, fmt.Errorf("archive: write header for %s: %w", e.name, err)
		}
		if !e.isDir {
			f, err := os.Open(e.fsPath)
			if err != nil {
				return nil, fmt.Errorf("archive: open %s: %w", e.fsPath, err)
			}
			_, copyErr := io.Copy(tw, f)
			f.Close()
			if copyErr != nil {
				return nil, fmt.Errorf("archive: copy %s: %w", e.fsPath, copyErr)
			}
		}
	}

	if err := tw.Close(); err != nil {
		return nil, fmt.Errorf("archive: close tar writer: %w", err)
	}
	if err := gz.Close(); err != nil {
		return nil, fmt.Errorf("archive: close gzip writer: %w", err)
	}
	return buf.Bytes(), nil
}

func collectEntries(srcDir string) ([]packEntry, error) {
	var entries []packEntry
	err := filepath.WalkDir(srcDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == srcDir {
			return nil
		}
		rel, relErr := filepath.Rel(srcDir, path)
		if relErr != nil {
			return relErr
		}
		rel = filepath.ToSlash(rel)

		info, err := d.Info()
		if err != nil {
			return err
		}

		switch {
		case info.Mode()&os.ModeSymlink != 0:
			return &PackError{Path: rel, Reason: "symlinks are not allowed in a deterministic archive"}
		case info.Mode()&(os.ModeDevice|os.ModeNamedPipe|os.ModeSocket) != 0:
			return &PackError{Path: rel, Reason: "device/FIFO/socket entries are not allowed"}
		case info.Mode()&os.ModeIrregular != 0:
			return &PackError{Path: rel, Reason: "irregular file"}
		}

		if d.IsDir() {
			entries = append(entries, packEntry{name: rel + "/", fsPath: path, isDir: true, mode: dirMode})
			return nil
		}

		if !info.Mode().IsRegular() {
			return &PackError{Path: rel, Reason: "not a regular file or directory"}
		}

		mode := int64(fileMode)
		if info.Mode()&0o111 != 0 || strings.HasPrefix(rel, "bin/") {
			mode = execFileMode
		}
		entries = append(entries, packEntry{name: rel, fsPath: path, mode: mode, size: info.Size()})
		return nil
	})
	if err != nil {
		if pe, ok := err.(*PackError); ok {
			return nil, pe
		}
		return nil, fmt.Errorf("archive: walk %s: %w", srcDir, err)
	}
	return entries, nil
}

// Unpack extracts a tar.gz archive into destDir, enforcing spec §4.F's
// extraction-safety rules: no absolute paths, no ".." escapes, no
// symlinks/hardlinks, and only regular files and directories are
// materialized. On any failure it removes every entry under destDir,
// leaving destDir itself in place and empty, and on an unsafe entry it
// returns an *ExtractionError (spec §8 property 4).
func Unpack(archiveBytes []byte, destDir string) (err error) {
	if mkErr := os.MkdirAll(destDir, dirMode); mkErr != nil {
		return fmt.Errorf("archive: create destination %s: %w", destDir, mkErr)
	}
	defer func() {
		if err != nil {
			leftovers, _ := os.ReadDir(destDir)
			for _, e := range leftovers {
				os.RemoveAll(filepath.Join(destDir, e.Name()))
			}
		}
	}()

	gz, gzErr := gzip.NewReader(bytes.NewReader(archiveBytes))
	if gzErr != nil {
		return fmt.Errorf("archive: open gzip stream: %w", gzErr)
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		hdr, nextErr := tr.Next()
		if nextErr == io.EOF {
			break
		}
		if nextErr != nil {
			return fmt.Errorf("archive: read tar header: %w", nextErr)
		}

		target, safeErr := safeExtractPath(destDir, hdr.Name)
		if safeErr != nil {
			return safeErr
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if mkErr := os.MkdirAll(target, dirMode); mkErr != nil {
				return fmt.Errorf("archive: mkdir %s: %w", target, mkErr)
			}
		case tar.TypeReg:
			if hdr.Size > maxEntryBytes {
				return &ExtractionError{Entry: hdr.Name, Reason: "entry exceeds maximum extraction size"}
			}
			if mkErr := os.MkdirAll(filepath.Dir(target), dirMode); mkErr != nil {
				return fmt.Errorf("archive: mkdir parent of %s: %w", target, mkErr)
			}
			mode := os.FileMode(fileMode)
			if hdr.Mode&0o111 != 0 {
				mode = execFileMode
			}
			f, openErr := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
			if openErr != nil {
				return fmt.Errorf("archive: create %s: %w", target, openErr)
			}
			_, copyErr := io.CopyN(f, tr, hdr.Size)
			closeErr := f.Close()
			if copyErr != nil && copyErr != io.EOF {
				return fmt.Errorf("archive: write %s: %w", target, copyErr)
			}
			if closeErr != nil {
				return fmt.Errorf("archive: close %s: %w", target, closeErr)
			}
		case tar.TypeSymlink, tar.TypeLink:
			return &ExtractionError{Entry: hdr.Name, Reason: "symlinks and hardlinks are not allowed"}
		default:
			return &ExtractionError{Entry: hdr.Name, Reason: "only regular files and directories are allowed"}
		}
	}
	return nil
}

// safeExtractPath validates a tar entry name against spec §4.F's rejection
// rules and returns the joined, contained destination path.
func safeExtractPath(destDir, name string) (string, error) {
	if name == "" {
		return "", &ExtractionError{Entry: name, Reason: "empty entry name"}
	}
	if strings.ContainsRune(name, 0) {
		return "", &ExtractionError{Entry: name, Reason: "contains NUL byte"}
	}
	cleanName := filepath.ToSlash(name)
	if strings.HasPrefix(cleanName, "/") || (len(cleanName) >= 2 && cleanName[1] == ':') {
		return "", &ExtractionError{Entry: name, Reason: "absolute path not allowed"}
	}

	target := filepath.Join(destDir, filepath.FromSlash(cleanName))
	rel, err := filepath.Rel(destDir, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", &ExtractionError{Entry: name, Reason: "escapes destination directory"}
	}
	return target, nil
}
