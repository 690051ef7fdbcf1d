// Package wire implements the mpak container header layout: a version
// byte, a little-endian header size, a tag map, and an ordered file
// entry table, all built from length-prefixed UTF-8 strings.
//
// The payload region begins at the byte offset given by the header size
// field; entries are addressed by their cumulative sizes from there.
package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"maps"
	"math"
	"path/filepath"
	"slices"
	"strings"
	"unicode/utf8"
)

// FormatVersion is the container format version this package writes.
const FormatVersion uint8 = 1

// headerPrefixLen is the length of the fixed header prefix: one version
// byte followed by the 8-byte header size field.
const headerPrefixLen = 1 + 8

// Sentinel errors for header parsing.
var (
	// ErrUnsupportedVersion is returned when a container's version byte is
	// not in the supported set.
	ErrUnsupportedVersion = errors.New("mpak: unsupported archive version")

	// ErrTruncatedHeader is returned when the container ends before a
	// declared header field.
	ErrTruncatedHeader = errors.New("mpak: truncated or corrupt header")

	// ErrInvalidUTF8 is returned when an encoded string or a path to be
	// encoded is not valid UTF-8.
	ErrInvalidUTF8 = errors.New("mpak: invalid UTF-8")
)

// Entry is one archived file's record in the header table.
//
// During packing, Path is the absolute source path; the encoded table
// stores it relative to the matching root. After parsing, Path is the
// slash-separated relative path as recorded in the container.
type Entry struct {
	Path string
	Size uint64
}

// Header is the in-memory form of a container's metadata.
type Header struct {
	// Version is the container format version byte.
	Version uint8

	// Size is the total encoded header length in bytes, including the
	// version byte and the size field itself. The payload region begins
	// at this offset.
	Size uint64

	// Tags holds arbitrary archive-level metadata.
	Tags map[string]string

	// Entries is the ordered file table. Order determines each entry's
	// payload offset: Size plus the sum of all earlier entry sizes.
	Entries []Entry
}

// EncodeString appends an 8-byte little-endian length followed by the
// UTF-8 bytes of s to buf.
func EncodeString(buf *bytes.Buffer, s string) {
	var length [8]byte
	binary.LittleEndian.PutUint64(length[:], uint64(len(s)))
	buf.Write(length[:])
	buf.WriteString(s)
}

// DecodeString reads a length-prefixed string from data at *cursor and
// advances the cursor past both fields.
//
// Invalid UTF-8 fails soft: the cursor still advances, the returned
// string is empty, and the error wraps ErrInvalidUTF8 so the caller can
// report the loss and keep parsing subsequent fields. Truncation is a
// hard failure wrapping ErrTruncatedHeader.
func DecodeString(data []byte, cursor *int) (string, error) {
	if len(data)-*cursor < 8 {
		return "", fmt.Errorf("%w: want 8 length bytes, have %d", ErrTruncatedHeader, len(data)-*cursor)
	}
	length := binary.LittleEndian.Uint64(data[*cursor:])
	*cursor += 8

	if uint64(len(data)-*cursor) < length {
		return "", fmt.Errorf("%w: string of %d bytes exceeds remaining %d", ErrTruncatedHeader, length, len(data)-*cursor)
	}
	raw := data[*cursor : *cursor+int(length)]
	*cursor += int(length)

	if !utf8.Valid(raw) {
		return "", fmt.Errorf("%w: %q", ErrInvalidUTF8, raw)
	}
	return string(raw), nil
}

// Encode serializes the header to the version 1 byte layout.
//
// Entry paths are recorded relative to a root in roots of which they
// are a strict descendant (the last matching root wins); paths under no
// root are recorded as given. An entry whose recorded path is not valid UTF-8 is
// omitted from the table and returned in failed; Encode prunes such
// entries from h.Entries so that the table and a subsequent payload
// append stay in lockstep. An invalid tag is an error rather than a
// skip: tags are tool-written, so a bad one is a bug, not bad input.
//
// On success h.Size is set to the encoded length.
func (h *Header) Encode(roots []string) (data []byte, failed []string, err error) {
	var body bytes.Buffer

	var scratch [8]byte
	writeUint64 := func(v uint64) {
		binary.LittleEndian.PutUint64(scratch[:], v)
		body.Write(scratch[:])
	}

	writeUint64(uint64(len(h.Tags)))
	for _, key := range slices.Sorted(maps.Keys(h.Tags)) {
		if !utf8.ValidString(key) || !utf8.ValidString(h.Tags[key]) {
			return nil, nil, fmt.Errorf("encode tag %q: %w", key, ErrInvalidUTF8)
		}
		EncodeString(&body, key)
		EncodeString(&body, h.Tags[key])
	}

	kept := make([]Entry, 0, len(h.Entries))
	var table bytes.Buffer
	for _, entry := range h.Entries {
		rel := Relativize(entry.Path, roots)
		if !utf8.ValidString(rel) {
			failed = append(failed, entry.Path)
			continue
		}
		binary.LittleEndian.PutUint64(scratch[:], entry.Size)
		table.Write(scratch[:])
		EncodeString(&table, rel)
		kept = append(kept, entry)
	}
	writeUint64(uint64(len(kept)))
	body.Write(table.Bytes())
	h.Entries = kept

	h.Size = uint64(headerPrefixLen + body.Len())

	out := make([]byte, 0, h.Size)
	out = append(out, h.Version)
	out = binary.LittleEndian.AppendUint64(out, h.Size)
	out = append(out, body.Bytes()...)
	return out, failed, nil
}

// DecodeHeader reads and parses a container header from r.
//
// It reads the fixed prefix, validates the version byte against the
// supported set, then reads exactly the remaining header bytes and
// parses the tag map and entry table. A version outside supported fails
// closed with ErrUnsupportedVersion; future versions are never guessed
// at.
//
// Strings that are not valid UTF-8 decode to the empty string and are
// collected into softErr (wrapping ErrInvalidUTF8) rather than aborting
// the parse; the rest of the table is still returned. Truncation is
// always fatal.
func DecodeHeader(r io.Reader, supported []uint8) (h *Header, softErr error, err error) {
	var prefix [headerPrefixLen]byte
	if _, err := io.ReadFull(r, prefix[:]); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrTruncatedHeader, err)
	}

	h = &Header{
		Version: prefix[0],
		Size:    binary.LittleEndian.Uint64(prefix[1:]),
		Tags:    make(map[string]string),
	}

	if !slices.Contains(supported, h.Version) {
		return nil, nil, fmt.Errorf("%w: archive has version %d, this build supports %v",
			ErrUnsupportedVersion, h.Version, supported)
	}

	if h.Size < headerPrefixLen {
		return nil, nil, fmt.Errorf("%w: declared header size %d is smaller than the fixed prefix", ErrTruncatedHeader, h.Size)
	}

	// The size field is attacker-controlled, so it must never drive an
	// allocation. Copy incrementally: a container shorter than its
	// declared header errors out having buffered only what was read.
	bodyLen := h.Size - headerPrefixLen
	if bodyLen > math.MaxInt64 {
		return nil, nil, fmt.Errorf("%w: declared header size %d is absurd", ErrTruncatedHeader, h.Size)
	}
	var bodyBuf bytes.Buffer
	if _, err := io.CopyN(&bodyBuf, r, int64(bodyLen)); err != nil {
		return nil, nil, fmt.Errorf("%w: header body: %v", ErrTruncatedHeader, err)
	}
	body := bodyBuf.Bytes()

	cursor := 0
	readUint64 := func() (uint64, error) {
		if len(body)-cursor < 8 {
			return 0, fmt.Errorf("%w: want 8 bytes, have %d", ErrTruncatedHeader, len(body)-cursor)
		}
		v := binary.LittleEndian.Uint64(body[cursor:])
		cursor += 8
		return v, nil
	}

	readString := func() (string, error) {
		s, decErr := DecodeString(body, &cursor)
		if decErr != nil {
			if errors.Is(decErr, ErrInvalidUTF8) {
				softErr = errors.Join(softErr, decErr)
				return "", nil
			}
			return "", decErr
		}
		return s, nil
	}

	tagCount, err := readUint64()
	if err != nil {
		return nil, nil, err
	}
	for range tagCount {
		key, err := readString()
		if err != nil {
			return nil, nil, err
		}
		value, err := readString()
		if err != nil {
			return nil, nil, err
		}
		h.Tags[key] = value
	}

	entryCount, err := readUint64()
	if err != nil {
		return nil, nil, err
	}
	for range entryCount {
		size, err := readUint64()
		if err != nil {
			return nil, nil, err
		}
		path, err := readString()
		if err != nil {
			return nil, nil, err
		}
		h.Entries = append(h.Entries, Entry{Path: path, Size: size})
	}

	return h, softErr, nil
}

// Relativize strips a root prefix from path and converts the result to
// slash form. When several roots contain the path, the last one given
// wins. A path equal to a root, or under no root at all, is kept as
// given (slash-converted).
func Relativize(path string, roots []string) string {
	rel := path
	for _, root := range roots {
		root = filepath.Clean(root)
		if path == root {
			continue
		}
		r, err := filepath.Rel(root, path)
		if err != nil || r == "." || r == ".." || strings.HasPrefix(r, ".."+string(filepath.Separator)) {
			continue
		}
		rel = r
	}
	return filepath.ToSlash(rel)
}
