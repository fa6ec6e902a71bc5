package tclcore

import (
	"bufio"
	"bytes"
	"compress/flate"
	"compress/zlib"
	"hash"
	"hash/adler32"
	"hash/crc32"
	"io"
	"sync"
	"time"
)

// CompressFormat selects the on-wire framing for a compression
// transform (spec §4.E: "format ∈ {raw, zlib, gzip, auto}").
type CompressFormat int

const (
	FormatRaw CompressFormat = iota
	FormatZlib
	FormatGzip
	FormatAuto
)

// CompressMode selects which direction a transform runs.
type CompressMode int

const (
	ModeCompress CompressMode = iota
	ModeDecompress
)

// FlushMode is one of the three explicit flush operations a caller
// can request on the write side (spec §4.E).
type FlushMode int

const (
	FlushSync FlushMode = iota
	FlushFull
	FlushFinish
)

const defaultReadAheadLimit = 4096

// CompressOptions configures a transform at creation time.
type CompressOptions struct {
	Level          int // compress/flate.DefaultCompression if zero value unset; caller passes flate.BestSpeed..BestCompression
	ReadAheadLimit int // bounds each underlying read from the parent; 0 means defaultReadAheadLimit
	Dictionary     []byte
	Header         *GzipHeader // write-mode gzip header fields; ignored for raw/zlib

	// NonBlocking selects the cooperative-blocking read contract of
	// spec §4.E step 4 ("buf_error with no input available →
	// non-blocking: return would_block"). When set, Read consults the
	// parent's NonBlockingReader.ReadyForRead (if the parent
	// implements it) before issuing a bounded read, returning
	// ErrIOBlocked instead of blocking the calling goroutine. A parent
	// that doesn't implement NonBlockingReader is always treated as
	// ready, matching ordinary blocking behavior.
	NonBlocking bool
}

// NonBlockingReader may optionally be implemented by a transform's
// parent channel to support NonBlocking reads: ReadyForRead reports
// whether a Read call on the parent would return data immediately
// without blocking the caller. This mirrors the original's
// event-driven channel readiness check rather than true async I/O —
// "implement with explicit state machines, not host-language async"
// (spec §9).
type NonBlockingReader interface {
	ReadyForRead() bool
}

// compressWriter is the common surface of flate.Writer, zlib.Writer,
// and gzip.Writer.
type compressWriter interface {
	io.Writer
	Flush() error
	Close() error
}

// compressReader is the common surface of the three formats' readers.
type compressReader interface {
	io.Reader
	Close() error
}

// TransformChannel layers compression or decompression over a parent
// channel, per spec §4.E's "push_transform" stacking contract. One
// instance runs in exactly one direction. PushTransform does not check
// which directions the parent supports; a parent that cannot move
// bytes the needed way fails at the first read or write made on it.
type TransformChannel struct {
	mu sync.Mutex

	parent io.ReadWriter
	mode   CompressMode
	format CompressFormat
	opts   CompressOptions

	writer compressWriter

	br     *bufio.Reader
	reader compressReader

	pendingOut  bytes.Buffer
	streamEnded bool
	ungotten    []byte // leftover compressed bytes recovered on read half-close

	sum hash.Hash32

	readClosed  bool
	writeClosed bool

	readyNotify  func()
	pendingTimer *time.Timer
}

// PushTransform constructs a transform over parent running in the
// requested mode/format.
func PushTransform(parent io.ReadWriter, mode CompressMode, format CompressFormat, opts CompressOptions) (*TransformChannel, error) {
	if opts.ReadAheadLimit <= 0 {
		opts.ReadAheadLimit = defaultReadAheadLimit
	}
	if mode == ModeCompress && opts.Level == 0 {
		opts.Level = flate.DefaultCompression
	}
	c := &TransformChannel{parent: parent, mode: mode, format: format, opts: opts}

	switch mode {
	case ModeCompress:
		c.sum = checksumFor(format)
		w, err := newCompressWriter(parent, format, opts)
		if err != nil {
			return nil, err
		}
		c.writer = w
	case ModeDecompress:
		c.br = bufio.NewReaderSize(parent, opts.ReadAheadLimit)
		r, resolvedFormat, err := newCompressReader(c.br, format, opts)
		if err != nil {
			return nil, err
		}
		c.reader = r
		c.format = resolvedFormat
		c.sum = checksumFor(resolvedFormat)
	}
	return c, nil
}

func checksumFor(format CompressFormat) hash.Hash32 {
	// A compress channel with FormatAuto writes gzip (newCompressWriter).
	if format == FormatGzip || format == FormatAuto {
		return crc32.NewIEEE()
	}
	return adler32.New()
}

func newCompressWriter(parent io.Writer, format CompressFormat, opts CompressOptions) (compressWriter, error) {
	switch format {
	case FormatRaw:
		if len(opts.Dictionary) > 0 {
			return flate.NewWriterDict(parent, opts.Level, opts.Dictionary)
		}
		return flate.NewWriter(parent, opts.Level)
	case FormatZlib:
		if len(opts.Dictionary) > 0 {
			return zlib.NewWriterLevelDict(parent, opts.Level, opts.Dictionary)
		}
		return zlib.NewWriterLevel(parent, opts.Level)
	case FormatGzip, FormatAuto:
		return newGzipWriter(parent, opts)
	default:
		return nil, NewRuntimeError(ErrCompressStreamError, "push_transform: unknown format %d", format)
	}
}

// newCompressReader resolves "auto" by peeking the parent's first
// bytes, then constructs the matching decoder. It returns the format
// actually selected so Auto callers can later know which one was used
// (relevant for Header()).
func newCompressReader(br *bufio.Reader, format CompressFormat, opts CompressOptions) (compressReader, CompressFormat, error) {
	resolved := format
	if format == FormatAuto {
		resolved = sniffFormat(br)
	}
	switch resolved {
	case FormatRaw:
		if len(opts.Dictionary) > 0 {
			return flate.NewReaderDict(br, opts.Dictionary), resolved, nil
		}
		return flate.NewReader(br), resolved, nil
	case FormatZlib:
		// The zlib header is consumed before a missing dictionary is
		// reported, so the configured dictionary (if any) goes into the
		// one and only attempt; zlib uses it only when the header asks.
		r, err := zlib.NewReaderDict(br, opts.Dictionary)
		if err == zlib.ErrDictionary && len(opts.Dictionary) == 0 {
			return nil, resolved, NewRuntimeError(ErrCompressNeedDict, "push_transform: zlib stream needs a dictionary")
		}
		if err != nil {
			return nil, resolved, NewRuntimeError(ErrCompressStreamError, "push_transform: %v", err)
		}
		return r, resolved, nil
	case FormatGzip:
		r, err := newGzipReader(br)
		if err != nil {
			return nil, resolved, NewRuntimeError(ErrCompressStreamError, "push_transform: %v", err)
		}
		return r, resolved, nil
	default:
		return nil, resolved, NewRuntimeError(ErrCompressStreamError, "push_transform: unknown format %d", format)
	}
}

// sniffFormat peeks (without consuming) enough bytes to distinguish
// gzip's magic number from a zlib header's checksum-bearing first two
// bytes, falling back to raw deflate.
func sniffFormat(br *bufio.Reader) CompressFormat {
	head, err := br.Peek(2)
	if err != nil || len(head) < 2 {
		return FormatRaw
	}
	if head[0] == 0x1f && head[1] == 0x8b {
		return FormatGzip
	}
	if head[0]&0x0f == 8 && (int(head[0])*256+int(head[1]))%31 == 0 {
		return FormatZlib
	}
	return FormatRaw
}

// Read implements the decompress read path of spec §4.E.
func (c *TransformChannel) Read(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mode != ModeDecompress {
		return 0, NewRuntimeError(ErrIOReadable, "transform channel not opened for decompression")
	}
	if c.readClosed {
		return 0, NewRuntimeError(ErrIOClosed, "transform channel read side closed")
	}

	if c.pendingOut.Len() > 0 {
		return c.drainPending(p)
	}
	if c.streamEnded {
		return 0, io.EOF
	}
	if c.opts.NonBlocking {
		if nb, ok := c.parent.(NonBlockingReader); ok && !nb.ReadyForRead() {
			return 0, NewRuntimeError(ErrIOBlocked, "transform channel: would block")
		}
	}

	bufLen := len(p)
	if bufLen == 0 || bufLen > c.opts.ReadAheadLimit {
		bufLen = c.opts.ReadAheadLimit
	}
	buf := make([]byte, bufLen)
	n, err := c.reader.Read(buf)
	if n > 0 {
		c.sum.Write(buf[:n])
		c.pendingOut.Write(buf[:n])
	}
	if err != nil {
		if err == io.EOF {
			c.streamEnded = true
		} else {
			return 0, NewRuntimeError(ErrCompressDataError, "transform channel: %v", err)
		}
	}
	if c.pendingOut.Len() == 0 && c.streamEnded {
		return 0, io.EOF
	}
	return c.drainPending(p)
}

func (c *TransformChannel) drainPending(p []byte) (int, error) {
	n, _ := c.pendingOut.Read(p)
	return n, nil
}

// Write implements the compress write path of spec §4.E.
func (c *TransformChannel) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mode != ModeCompress {
		return 0, NewRuntimeError(ErrIOWritable, "transform channel not opened for compression")
	}
	if c.writeClosed {
		return 0, NewRuntimeError(ErrIOClosed, "transform channel write side closed")
	}
	c.sum.Write(p)
	return c.writer.Write(p)
}

// Flush performs one of the three explicit flush operations. "full"
// degrades to the same behavior as "sync": neither compress/flate nor
// compress/zlib expose Z_FULL_FLUSH's dictionary-reset semantics, a
// documented gap (see DESIGN.md).
func (c *TransformChannel) Flush(mode FlushMode) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mode != ModeCompress {
		return NewRuntimeError(ErrIOWritable, "transform channel not opened for compression")
	}
	switch mode {
	case FlushSync, FlushFull:
		return c.writer.Flush()
	case FlushFinish:
		err := c.writer.Close()
		c.writeClosed = true
		return err
	default:
		return NewRuntimeError(ErrCompressStreamError, "flush: unknown mode %d", mode)
	}
}

// Checksum returns the running Adler-32 (zlib/raw) or CRC-32 (gzip)
// over processed uncompressed data (spec §4.E "Checksum exposure").
func (c *TransformChannel) Checksum() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sum.Sum32()
}

// SetDictionary replaces the dictionary after construction and
// restarts the decoder with it over the parent's unread bytes. It
// works for raw and zlib decompression channels; gzip has no preset
// dictionary. A zlib stream whose header names a dictionary is
// rejected by PushTransform (ErrCompressNeedDict) when
// CompressOptions.Dictionary is empty, so no channel exists to call
// this on for that stream.
func (c *TransformChannel) SetDictionary(dict []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mode != ModeDecompress {
		return NewRuntimeError(ErrIOReadable, "SetDictionary: not a decompression channel")
	}
	type resetter interface {
		Reset(r io.Reader, dict []byte) error
	}
	rs, ok := c.reader.(resetter)
	if !ok {
		return NewRuntimeError(ErrCompressStreamError, "SetDictionary: format does not support a preset dictionary")
	}
	c.opts.Dictionary = dict
	return rs.Reset(c.br, dict)
}

// CloseRead half-closes the read side: discards pending undelivered
// decompressed bytes and recovers any compressed bytes the read-ahead
// buffer holds but the decoder never consumed; UngottenBytes returns
// them (spec §4.E "Close semantics"). Read fails with ErrIOClosed
// afterwards.
func (c *TransformChannel) CloseRead() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mode != ModeDecompress || c.readClosed {
		return nil
	}
	c.pendingOut.Reset()
	if c.br != nil {
		if n := c.br.Buffered(); n > 0 {
			leftover, _ := c.br.Peek(n)
			c.ungotten = append([]byte(nil), leftover...)
		}
	}
	c.readClosed = true
	c.disarmPendingTimerLocked()
	return c.reader.Close()
}

// CloseWrite half-closes the write side: finishes compression with a
// finish flush and writes the format trailer.
func (c *TransformChannel) CloseWrite() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mode != ModeCompress || c.writeClosed {
		return nil
	}
	err := c.writer.Close()
	c.writeClosed = true
	return err
}

// Close performs whichever half-close applies to this channel's mode.
func (c *TransformChannel) Close() error {
	if c.mode == ModeDecompress {
		return c.CloseRead()
	}
	return c.CloseWrite()
}

// UngottenBytes returns the compressed bytes recovered by CloseRead
// that the decoder had buffered but never consumed, for a caller that
// wants to resume reading the parent from exactly where the
// compressed region ended.
func (c *TransformChannel) UngottenBytes() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ungotten
}

// SetReadyNotify installs the callback armPendingTimer's timer fires
// when decompressed output is sitting in the pending buffer but
// nothing has drained it, synthesizing a readable notification (spec
// §4.E "Timer-driven wakeups"). No code path in this package calls
// armPendingTimer, so Read never causes the callback to run.
func (c *TransformChannel) SetReadyNotify(fn func()) {
	c.mu.Lock()
	c.readyNotify = fn
	c.mu.Unlock()
}

// armPendingTimer schedules a short synthetic-readable notification
// if pending output exists and none is already armed.
func (c *TransformChannel) armPendingTimer(after time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pendingOut.Len() == 0 || c.readyNotify == nil || c.pendingTimer != nil {
		return
	}
	c.pendingTimer = time.AfterFunc(after, func() {
		c.mu.Lock()
		c.pendingTimer = nil
		notify := c.readyNotify
		hasPending := c.pendingOut.Len() > 0
		c.mu.Unlock()
		if hasPending && notify != nil {
			notify()
		}
	})
}

func (c *TransformChannel) disarmPendingTimerLocked() {
	if c.pendingTimer != nil {
		c.pendingTimer.Stop()
		c.pendingTimer = nil
	}
}

// Adler32 computes the Adler-32 checksum of data, exposed as a pure
// function alongside the channel transform (recovered from
// `original_source/generic/tclZlib.c`'s standalone `zlib adler32`
// command, spec.md's Non-goals don't exclude it).
func Adler32(data []byte) uint32 {
	return adler32.Checksum(data)
}

// CRC32 computes the CRC-32 (IEEE) checksum of data.
func CRC32(data []byte) uint32 {
	return crc32.ChecksumIEEE(data)
}
