// Package walk resolves user-supplied root paths into the flat,
// deduplicated file list an archive is built from.
package walk

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/meigma/mpak/internal/wire"
)

// Expand resolves roots into an ordered list of regular file paths.
//
// A root that is a regular file contributes itself; a directory root
// contributes every regular file beneath it, depth-first in enumeration
// order. Symlinks and special files are skipped. A path reachable from
// more than one root appears once, in first-seen order. A root whose
// traversal fails is skipped whole with a diagnostic; the remaining
// roots still expand.
func Expand(roots []string, logger *slog.Logger) []string {
	logger = orDiscard(logger)

	seen := make(map[string]struct{})
	var out []string
	for _, root := range roots {
		root = filepath.Clean(root)
		found, err := expandRoot(root)
		if err != nil {
			logger.Warn("skipping root, traversal failed", "root", root, "error", err)
			continue
		}
		for _, path := range found {
			if _, dup := seen[path]; dup {
				continue
			}
			seen[path] = struct{}{}
			out = append(out, path)
		}
	}
	return out
}

// expandRoot lists the regular files reachable from a single root. Any
// error discards the root's partial results, matching the all-or-
// nothing contract of Expand.
func expandRoot(root string) ([]string, error) {
	info, err := os.Lstat(root)
	if err != nil {
		return nil, err
	}
	if info.Mode().IsRegular() {
		return []string{root}, nil
	}
	if !info.IsDir() {
		// Broken links, sockets, devices: silently not archivable.
		return nil, nil
	}

	var found []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.Type().IsRegular() {
			found = append(found, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

// Sizes queries the byte length of each path and returns the resulting
// entry list. A path whose metadata cannot be read is dropped with a
// diagnostic rather than failing the whole pack.
func Sizes(paths []string, logger *slog.Logger) []wire.Entry {
	logger = orDiscard(logger)

	entries := make([]wire.Entry, 0, len(paths))
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			logger.Warn("skipping file, metadata unavailable", "path", path, "error", err)
			continue
		}
		entries = append(entries, wire.Entry{Path: path, Size: uint64(info.Size())})
	}
	return entries
}

func orDiscard(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return logger
}
