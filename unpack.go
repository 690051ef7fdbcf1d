package mpak

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/meigma/mpak/internal/transfer"
	"github.com/meigma/mpak/internal/wire"
)

// Unpack reconstructs every entry under outDir, creating it and any
// per-entry parent directories as needed.
//
// The running payload offset starts at the header size and advances by
// each entry's recorded size whether or not that entry was extracted:
// offsets are a function of the table, never of extraction outcomes.
// An entry whose destination cannot be created, or whose recorded path
// would escape outDir, is skipped with a diagnostic; a failed payload
// read or write aborts the unpack.
func (a *Archive) Unpack(ctx context.Context, outDir string) error {
	logger := a.cfg.log()

	if err := os.MkdirAll(outDir, 0o750); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	offset := int64(a.header.Size)
	for _, entry := range a.header.Entries {
		size := int64(entry.Size)
		dest, ok := entryDestination(outDir, entry)
		if !ok {
			logger.Warn("skipping entry, recorded path is unusable", "path", entry.Path)
			offset += size
			continue
		}

		if err := os.MkdirAll(filepath.Dir(dest), 0o750); err != nil {
			logger.Warn("skipping entry, cannot create parent directory", "path", entry.Path, "error", err)
			offset += size
			continue
		}
		f, err := os.Create(dest)
		if err != nil {
			logger.Warn("skipping entry, cannot create file", "path", entry.Path, "error", err)
			offset += size
			continue
		}

		_, err = transfer.Copy(ctx, a.src, offset, f, size, a.cfg.transform, a.cfg.maxChunk)
		if closeErr := f.Close(); err == nil {
			err = closeErr
		}
		if err != nil {
			return fmt.Errorf("extract %s: %w", entry.Path, err)
		}

		offset += size
	}

	return nil
}

// Extract copies the payload of every entry matching entryPath to dst,
// skipping all other entries by offset without reading their bytes.
// Returns ErrEntryNotFound when no entry matches.
func (a *Archive) Extract(ctx context.Context, entryPath string, dst io.Writer) error {
	offset := int64(a.header.Size)
	found := false
	for _, entry := range a.header.Entries {
		if entry.Path == entryPath {
			if _, err := transfer.Copy(ctx, a.src, offset, dst, int64(entry.Size), a.cfg.transform, a.cfg.maxChunk); err != nil {
				return fmt.Errorf("extract %s: %w", entry.Path, err)
			}
			found = true
		}
		offset += int64(entry.Size)
	}

	if !found {
		return fmt.Errorf("%w: %s", ErrEntryNotFound, entryPath)
	}
	return nil
}

// entryDestination resolves an entry's recorded path to a location
// under outDir. Recorded paths that are absolute, empty, or traverse
// upward are rejected so a hostile container cannot write outside the
// output directory.
func entryDestination(outDir string, entry wire.Entry) (string, bool) {
	if !fs.ValidPath(entry.Path) {
		return "", false
	}
	return filepath.Join(outDir, filepath.FromSlash(entry.Path)), true
}
