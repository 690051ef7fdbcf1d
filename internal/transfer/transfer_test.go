package transfer

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingTransform captures the size of every chunk it sees.
type recordingTransform struct {
	chunkSizes []int
}

func (r *recordingTransform) Apply(chunk []byte) ([]byte, error) {
	r.chunkSizes = append(r.chunkSizes, len(chunk))
	return chunk, nil
}

// doublingTransform writes every byte twice, changing chunk length.
type doublingTransform struct{}

func (doublingTransform) Apply(chunk []byte) ([]byte, error) {
	out := make([]byte, 0, 2*len(chunk))
	for _, b := range chunk {
		out = append(out, b, b)
	}
	return out, nil
}

func TestCopy_Exact(t *testing.T) {
	t.Parallel()

	src := []byte("0123456789abcdef")
	var dst bytes.Buffer

	n, err := Copy(t.Context(), bytes.NewReader(src), 0, &dst, int64(len(src)), nil, 4)
	require.NoError(t, err)
	assert.Equal(t, int64(len(src)), n)
	assert.Equal(t, src, dst.Bytes())
}

func TestCopy_OffsetAndCount(t *testing.T) {
	t.Parallel()

	src := []byte("xxxxhelloyyy")
	var dst bytes.Buffer

	// Bytes around the requested range must never be touched.
	n, err := Copy(t.Context(), bytes.NewReader(src), 4, &dst, 5, Identity{}, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)
	assert.Equal(t, "hello", dst.String())
}

func TestCopy_ChunkBounding(t *testing.T) {
	t.Parallel()

	const maxChunk = 8

	cases := []struct {
		name  string
		count int
		want  []int
	}{
		{name: "below max", count: maxChunk - 1, want: []int{7}},
		{name: "exactly max", count: maxChunk, want: []int{8}},
		{name: "max plus one", count: maxChunk + 1, want: []int{8, 1}},
		{name: "several chunks", count: 3*maxChunk + 2, want: []int{8, 8, 8, 2}},
		{name: "empty", count: 0, want: nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			src := bytes.Repeat([]byte{0x5a}, tc.count)
			rec := &recordingTransform{}
			var dst bytes.Buffer

			n, err := Copy(t.Context(), bytes.NewReader(src), 0, &dst, int64(tc.count), rec, maxChunk)
			require.NoError(t, err)
			assert.Equal(t, int64(tc.count), n)
			assert.Equal(t, tc.want, rec.chunkSizes, "no chunk may exceed the configured maximum")
			assert.Equal(t, src, dst.Bytes())
		})
	}
}

func TestCopy_TransformMayChangeChunkLength(t *testing.T) {
	t.Parallel()

	src := []byte("abcdef")
	var dst bytes.Buffer

	// Chunk boundaries come from input byte counts even when output
	// lengths differ.
	n, err := Copy(t.Context(), bytes.NewReader(src), 0, &dst, int64(len(src)), doublingTransform{}, 4)
	require.NoError(t, err)
	assert.Equal(t, int64(12), n)
	assert.Equal(t, "aabbccddeeff", dst.String())
}

func TestCopy_TransformError(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	fail := transformFunc(func([]byte) ([]byte, error) { return nil, boom })

	var dst bytes.Buffer
	_, err := Copy(t.Context(), bytes.NewReader([]byte("data")), 0, &dst, 4, fail, 64)
	require.ErrorIs(t, err, boom)
}

type transformFunc func([]byte) ([]byte, error)

func (f transformFunc) Apply(chunk []byte) ([]byte, error) { return f(chunk) }

func TestCopy_ShortSource(t *testing.T) {
	t.Parallel()

	var dst bytes.Buffer
	_, err := Copy(t.Context(), bytes.NewReader([]byte("abc")), 0, &dst, 10, nil, 64)
	require.Error(t, err, "a source ending before the requested range aborts the copy")
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestCopy_NegativeCount(t *testing.T) {
	t.Parallel()

	var dst bytes.Buffer
	_, err := Copy(t.Context(), bytes.NewReader(nil), 0, &dst, -1, nil, 64)
	require.Error(t, err)
}

func TestCopy_ContextCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	var dst bytes.Buffer
	_, err := Copy(ctx, bytes.NewReader([]byte("abcd")), 0, &dst, 4, nil, 2)
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, dst.Len())
}

func TestCopyExact_RejectsLengthChange(t *testing.T) {
	t.Parallel()

	var dst bytes.Buffer
	err := CopyExact(t.Context(), bytes.NewReader([]byte("ab")), 0, &dst, 2, doublingTransform{}, 64)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "payload length")
}

func TestCopyExact_Identity(t *testing.T) {
	t.Parallel()

	var dst bytes.Buffer
	err := CopyExact(t.Context(), bytes.NewReader([]byte("ab")), 0, &dst, 2, nil, 64)
	require.NoError(t, err)
	assert.Equal(t, "ab", dst.String())
}
