package mpak

import (
	"errors"

	"github.com/meigma/mpak/internal/wire"
)

// Sentinel errors re-exported from the wire codec, matched with
// errors.Is.
var (
	// ErrUnsupportedVersion is returned when a container's version byte is
	// not in the supported set. The rest of the header cannot be trusted,
	// so parsing fails closed.
	ErrUnsupportedVersion = wire.ErrUnsupportedVersion

	// ErrTruncatedHeader is returned when the container ends before a
	// declared header field.
	ErrTruncatedHeader = wire.ErrTruncatedHeader

	// ErrInvalidUTF8 is returned when an encoded string is not valid
	// UTF-8. During packing the offending path is excluded and reported;
	// during parsing the value decodes to "" and the loss is surfaced
	// through Open's soft diagnostics.
	ErrInvalidUTF8 = wire.ErrInvalidUTF8
)

// ErrEntryNotFound is returned by Extract when no table entry matches
// the requested path.
var ErrEntryNotFound = errors.New("mpak: entry not found in archive")
