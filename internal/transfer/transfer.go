// Package transfer moves payload bytes between a container and the
// filesystem in bounded chunks, so peak memory never depends on file
// size.
package transfer

import (
	"context"
	"fmt"
	"io"
)

// DefaultMaxChunkSize bounds the in-flight buffer when no explicit
// limit is configured.
const DefaultMaxChunkSize = 32 << 20

// Transform applies a reversible modification to one chunk of bytes
// and returns the result, which may differ in length. Apply must be
// pure with respect to the chunk: transforms that need cross-chunk
// state require a stateful implementation carrying its own state.
type Transform interface {
	Apply(chunk []byte) ([]byte, error)
}

// Identity is the no-op Transform. It is the only transform the format
// ships; the interface is the hook for future codecs.
type Identity struct{}

// Apply returns the chunk unchanged.
func (Identity) Apply(chunk []byte) ([]byte, error) { return chunk, nil }

// Copy copies exactly count bytes from src starting at off to dst,
// in chunks of at most maxChunk bytes. Each chunk is read fully,
// passed through transform, and the result appended to dst. Chunk
// boundaries are computed purely from byte counts, independent of what
// the transform does to chunk lengths.
//
// Returns the number of bytes written to dst, which differs from count
// only when the transform changes chunk lengths. A short read or write
// aborts the whole copy; there is no per-chunk retry. The context is
// checked between chunks, making them natural cancellation points.
func Copy(ctx context.Context, src io.ReaderAt, off int64, dst io.Writer, count int64, transform Transform, maxChunk int) (int64, error) {
	if count < 0 {
		return 0, fmt.Errorf("transfer: negative byte count %d", count)
	}
	if maxChunk <= 0 {
		maxChunk = DefaultMaxChunkSize
	}
	if transform == nil {
		transform = Identity{}
	}

	buf := make([]byte, min(int64(maxChunk), count))

	var written int64
	remaining := count
	for remaining > 0 {
		if err := ctx.Err(); err != nil {
			return written, err
		}

		chunk := buf[:min(int64(maxChunk), remaining)]
		if _, err := io.ReadFull(io.NewSectionReader(src, off, int64(len(chunk))), chunk); err != nil {
			return written, fmt.Errorf("transfer: read %d bytes at offset %d: %w", len(chunk), off, err)
		}

		out, err := transform.Apply(chunk)
		if err != nil {
			return written, fmt.Errorf("transfer: transform: %w", err)
		}

		n, err := dst.Write(out)
		written += int64(n)
		if err != nil {
			return written, fmt.Errorf("transfer: write: %w", err)
		}
		if n < len(out) {
			return written, fmt.Errorf("transfer: write: %w", io.ErrShortWrite)
		}

		off += int64(len(chunk))
		remaining -= int64(len(chunk))
	}

	return written, nil
}

// CopyExact is Copy for length-preserving transforms: it additionally
// fails when the bytes written differ from count, which would put a
// header's recorded entry size out of step with the payload region.
func CopyExact(ctx context.Context, src io.ReaderAt, off int64, dst io.Writer, count int64, transform Transform, maxChunk int) error {
	written, err := Copy(ctx, src, off, dst, count, transform, maxChunk)
	if err != nil {
		return err
	}
	if written != count {
		return fmt.Errorf("transfer: transform changed payload length (%d bytes in, %d out)", count, written)
	}
	return nil
}
