package mpak

import (
	"fmt"
	"io"
	"log/slog"
	"maps"
	"math"
	"os"

	"github.com/meigma/mpak/internal/transfer"
	"github.com/meigma/mpak/internal/wire"
)

// FormatVersion is the container format version this build writes.
const FormatVersion = wire.FormatVersion

// DefaultMaxChunkSize bounds the in-flight transfer buffer when no
// explicit limit is configured.
const DefaultMaxChunkSize = transfer.DefaultMaxChunkSize

// Entry is one archived file's record: its path as recorded in the
// container and the byte length of its stored payload.
type Entry = wire.Entry

// Transform applies a reversible modification to one chunk of bytes
// during transfer. Identity is the only implementation that ships.
type Transform = transfer.Transform

// Identity is the no-op Transform.
type Identity = transfer.Identity

// Archive is a session over an open container: the source handle plus
// its eagerly parsed header. The header is immutable for the session's
// lifetime; sessions over different containers are independent, but a
// single session supports at most one in-flight operation at a time.
type Archive struct {
	src    io.ReaderAt
	header *wire.Header
	cfg    config
	closer io.Closer
}

// config is resolved once per session or pack call and immutable after.
type config struct {
	logger    *slog.Logger
	maxChunk  int
	transform Transform
	versions  []uint8
}

func defaultConfig() config {
	return config{
		maxChunk:  DefaultMaxChunkSize,
		transform: Identity{},
		versions:  []uint8{wire.FormatVersion},
	}
}

func (c *config) log() *slog.Logger {
	if c.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return c.logger
}

// Option configures a read session.
type Option func(*config)

// WithLogger sets the logger for skip diagnostics. Defaults to discard.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// WithMaxChunkSize bounds the transfer buffer in bytes. Values <= 0
// use DefaultMaxChunkSize.
func WithMaxChunkSize(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxChunk = n
		}
	}
}

// WithTransform sets the per-chunk transform applied when reading
// payload bytes. Defaults to Identity.
func WithTransform(t Transform) Option {
	return func(c *config) {
		if t != nil {
			c.transform = t
		}
	}
}

// WithSupportedVersions overrides the set of container versions the
// session will parse. The default is the versions this build writes.
func WithSupportedVersions(versions ...uint8) Option {
	return func(c *config) {
		if len(versions) > 0 {
			c.versions = versions
		}
	}
}

// Open parses the container header from src and returns a read session.
//
// The header is read eagerly; payload bytes are not touched until an
// extraction runs. Unknown format versions fail closed with
// ErrUnsupportedVersion. Header strings that are not valid UTF-8 decode
// to "" and are logged rather than failing the open (see ErrInvalidUTF8).
func Open(src io.ReaderAt, opts ...Option) (*Archive, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	header, softErr, err := wire.DecodeHeader(io.NewSectionReader(src, 0, math.MaxInt64), cfg.versions)
	if err != nil {
		return nil, fmt.Errorf("parse header: %w", err)
	}
	if softErr != nil {
		cfg.log().Warn("header contains undecodable strings, values lost", "error", softErr)
	}

	return &Archive{src: src, header: header, cfg: cfg}, nil
}

// OpenFile opens the container at path and returns a session that owns
// the file handle; Close releases it.
func OpenFile(path string, opts ...Option) (*Archive, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	a, err := Open(f, opts...)
	if err != nil {
		f.Close()
		return nil, err
	}
	a.closer = f
	return a, nil
}

// Close releases the underlying handle when the session owns one.
func (a *Archive) Close() error {
	if a.closer == nil {
		return nil
	}
	return a.closer.Close()
}

// Version returns the container's format version byte.
func (a *Archive) Version() uint8 { return a.header.Version }

// HeaderSize returns the total header length in bytes; the payload
// region begins at this offset.
func (a *Archive) HeaderSize() uint64 { return a.header.Size }

// Tags returns a copy of the archive's tag map.
func (a *Archive) Tags() map[string]string {
	return maps.Clone(a.header.Tags)
}

// Entries returns a copy of the ordered entry table.
func (a *Archive) Entries() []Entry {
	out := make([]Entry, len(a.header.Entries))
	copy(out, a.header.Entries)
	return out
}

// List returns the entries' paths in table order without touching
// payload bytes.
func (a *Archive) List() []string {
	paths := make([]string, len(a.header.Entries))
	for i, e := range a.header.Entries {
		paths[i] = e.Path
	}
	return paths
}
