package tclcore

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransformChannel_GzipRoundTrip(t *testing.T) {
	var wire bytes.Buffer
	w, err := PushTransform(&wire, ModeCompress, FormatGzip, CompressOptions{
		Header: &GzipHeader{Filename: "greeting.txt"},
	})
	require.NoError(t, err)

	payload := []byte("hello, compressed world")
	_, err = w.Write(payload)
	require.NoError(t, err)
	require.NoError(t, w.Flush(FlushFinish))

	r, err := PushTransform(&wire, ModeDecompress, FormatGzip, CompressOptions{})
	require.NoError(t, err)

	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	hdr, ok := r.Header()
	require.True(t, ok)
	assert.Equal(t, "greeting.txt", hdr.Filename)
}

func TestTransformChannel_ZlibRoundTripWithChecksum(t *testing.T) {
	var wire bytes.Buffer
	w, err := PushTransform(&wire, ModeCompress, FormatZlib, CompressOptions{})
	require.NoError(t, err)

	payload := []byte("the quick brown fox jumps over the lazy dog")
	_, err = w.Write(payload)
	require.NoError(t, err)
	require.NoError(t, w.Flush(FlushFinish))
	writeChecksum := w.Checksum()
	assert.Equal(t, Adler32(payload), writeChecksum)

	r, err := PushTransform(&wire, ModeDecompress, FormatZlib, CompressOptions{})
	require.NoError(t, err)
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
	assert.Equal(t, writeChecksum, r.Checksum())
}

func TestTransformChannel_AutoDetectsGzip(t *testing.T) {
	var wire bytes.Buffer
	w, err := PushTransform(&wire, ModeCompress, FormatGzip, CompressOptions{})
	require.NoError(t, err)
	_, err = w.Write([]byte("auto-detected"))
	require.NoError(t, err)
	require.NoError(t, w.Flush(FlushFinish))

	r, err := PushTransform(&wire, ModeDecompress, FormatAuto, CompressOptions{})
	require.NoError(t, err)
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "auto-detected", string(got))
}

func TestTransformChannel_RawDeflateRoundTrip(t *testing.T) {
	var wire bytes.Buffer
	w, err := PushTransform(&wire, ModeCompress, FormatRaw, CompressOptions{})
	require.NoError(t, err)
	_, err = w.Write([]byte("raw deflate payload"))
	require.NoError(t, err)
	require.NoError(t, w.Flush(FlushFinish))

	r, err := PushTransform(&wire, ModeDecompress, FormatRaw, CompressOptions{})
	require.NoError(t, err)
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "raw deflate payload", string(got))
}

func TestTransformChannel_WriteAfterCloseFails(t *testing.T) {
	var wire bytes.Buffer
	w, err := PushTransform(&wire, ModeCompress, FormatZlib, CompressOptions{})
	require.NoError(t, err)
	require.NoError(t, w.CloseWrite())

	_, err = w.Write([]byte("too late"))
	require.Error(t, err)
	assert.True(t, IsKind(err, ErrIOClosed))
}

func TestTransformChannel_PrefixOfCompressedOutputIsPartial(t *testing.T) {
	var wire bytes.Buffer
	w, err := PushTransform(&wire, ModeCompress, FormatZlib, CompressOptions{})
	require.NoError(t, err)
	_, err = w.Write(bytes.Repeat([]byte("partial read test data "), 50))
	require.NoError(t, err)
	require.NoError(t, w.Flush(FlushFinish))

	full := wire.Bytes()
	prefix := bytes.NewReader(full[:len(full)/2])

	r, err := PushTransform(prefix, ModeDecompress, FormatZlib, CompressOptions{})
	require.NoError(t, err)
	_, err = io.ReadAll(r)
	assert.Error(t, err)
}

// toggleReadyBuffer is a minimal NonBlockingReader parent: Read/Write
// delegate to an in-memory buffer, and ReadyForRead reflects a flag the
// test flips to simulate data becoming available.
type toggleReadyBuffer struct {
	buf   bytes.Buffer
	ready bool
}

func (b *toggleReadyBuffer) Read(p []byte) (int, error)  { return b.buf.Read(p) }
func (b *toggleReadyBuffer) Write(p []byte) (int, error) { return b.buf.Write(p) }
func (b *toggleReadyBuffer) ReadyForRead() bool          { return b.ready }

func TestTransformChannel_NonBlockingReadReturnsWouldBlockThenSucceeds(t *testing.T) {
	var wire bytes.Buffer
	w, err := PushTransform(&wire, ModeCompress, FormatZlib, CompressOptions{})
	require.NoError(t, err)
	_, err = w.Write([]byte("nonblocking payload"))
	require.NoError(t, err)
	require.NoError(t, w.Flush(FlushFinish))

	parent := &toggleReadyBuffer{}
	parent.buf.Write(wire.Bytes())

	r, err := PushTransform(parent, ModeDecompress, FormatZlib, CompressOptions{NonBlocking: true})
	require.NoError(t, err)

	_, err = r.Read(make([]byte, 64))
	require.Error(t, err)
	assert.True(t, IsKind(err, ErrIOBlocked))

	parent.ready = true
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "nonblocking payload", string(got))
}

func TestTransformChannel_WriteOnDecompressChannelFails(t *testing.T) {
	var wire bytes.Buffer
	w, err := PushTransform(&wire, ModeCompress, FormatZlib, CompressOptions{})
	require.NoError(t, err)
	_, err = w.Write([]byte("seed"))
	require.NoError(t, err)
	require.NoError(t, w.Flush(FlushFinish))

	r, err := PushTransform(&wire, ModeDecompress, FormatZlib, CompressOptions{})
	require.NoError(t, err)

	_, err = r.Write([]byte("x"))
	require.Error(t, err)
	assert.True(t, IsKind(err, ErrIOWritable))
}
