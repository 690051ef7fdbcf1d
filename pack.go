package mpak

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/meigma/mpak/internal/transfer"
	"github.com/meigma/mpak/internal/walk"
	"github.com/meigma/mpak/internal/wire"
)

// Pack builds a container from roots and writes it to w.
//
// Roots are expanded into a deduplicated file list (a file root
// contributes itself, a directory root everything beneath it), sizes
// are read, and the header is written followed by each file's bytes in
// entry order. Entry order and append order are the same by
// construction; payload offsets are derived from cumulative entry
// sizes, so the two must never diverge.
//
// Per-file problems during expansion (unreadable root, missing
// metadata, non-UTF-8 path) drop the file with a diagnostic and the
// pack continues. I/O failures writing the container abort the pack.
//
// The context is checked at chunk granularity during file appends.
func Pack(ctx context.Context, w io.Writer, roots []string, opts ...PackOption) error {
	cfg := defaultPackConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	logger := cfg.log()

	paths := walk.Expand(roots, logger)
	header := &wire.Header{
		Version: wire.FormatVersion,
		Tags:    cfg.tags,
		Entries: walk.Sizes(paths, logger),
	}

	data, failed, err := header.Encode(roots)
	if err != nil {
		return fmt.Errorf("encode header: %w", err)
	}
	for _, path := range failed {
		logger.Warn("skipping file, path is not valid UTF-8", "path", path)
	}
	logger.Info("packing archive",
		"files", len(header.Entries), "header_bytes", header.Size)

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	// Encode pruned the failed paths, so the surviving entries and the
	// append loop below stay in lockstep with the written table.
	for _, entry := range header.Entries {
		if err := appendFile(ctx, w, entry, cfg); err != nil {
			return fmt.Errorf("append %s: %w", entry.Path, err)
		}
	}

	return nil
}

// appendFile streams one source file's bytes to the container.
func appendFile(ctx context.Context, w io.Writer, entry wire.Entry, cfg packConfig) error {
	f, err := os.Open(entry.Path)
	if err != nil {
		return err
	}
	defer f.Close()

	// The recorded entry size is the stored payload length; a transform
	// that changes it would corrupt every later entry's offset.
	return transfer.CopyExact(ctx, f, 0, w, int64(entry.Size), cfg.transform, cfg.maxChunk)
}

// PackFile packs roots into the container file at path.
//
// The container is written to a temporary file in the destination
// directory, synced, and renamed into place, so a failed pack never
// leaves a partial archive at path.
func PackFile(ctx context.Context, path string, roots []string, opts ...PackOption) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".mpak-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	if err := Pack(ctx, tmp, roots, opts...); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("sync container: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}
