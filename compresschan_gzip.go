package tclcore

import (
	"bufio"
	"compress/gzip"
	"io"
	"time"
)

// gzipMaxNameLen and gzipMaxCommentLen mirror the Latin-1 length
// clamps of spec §4.E ("filename <= platform MAXPATHLEN-1, comment <=
// 256-1"). MAXPATHLEN is platform-specific in the original; 4096-1 is
// the common Linux value and is a reasonable fixed clamp for a
// non-platform-specific reimplementation.
const (
	gzipMaxNameLen    = 4096 - 1
	gzipMaxCommentLen = 256 - 1
)

// GzipHeader is the channel-option-facing view of a gzip stream's
// header fields (spec §4.E "Header handling").
//
// Type is accepted for write-mode configuration but not wired to the
// underlying bitstream: Go's compress/gzip does not expose gzip's
// FLG.FTEXT bit (the "is this ASCII text" hint), so setting it has no
// observable effect on the bytes written. Documented as a known gap
// rather than silently dropped.
type GzipHeader struct {
	Comment  string
	Filename string
	OS       byte
	ModTime  time.Time
	Type     string // "binary" or "text"; accepted, not encoded (see above)
}

func newGzipWriter(parent io.Writer, opts CompressOptions) (compressWriter, error) {
	gw, err := gzip.NewWriterLevel(parent, opts.Level)
	if err != nil {
		return nil, NewRuntimeError(ErrCompressStreamError, "push_transform: %v", err)
	}
	if opts.Header != nil {
		name, err := clampLatin1(opts.Header.Filename, gzipMaxNameLen)
		if err != nil {
			return nil, err
		}
		comment, err := clampLatin1(opts.Header.Comment, gzipMaxCommentLen)
		if err != nil {
			return nil, err
		}
		gw.Name = name
		gw.Comment = comment
		gw.OS = opts.Header.OS
		gw.ModTime = opts.Header.ModTime
	}
	return gw, nil
}

func newGzipReader(br *bufio.Reader) (compressReader, error) {
	gr, err := gzip.NewReader(br)
	if err != nil {
		return nil, err
	}
	return gr, nil
}

// Header returns the gzip header parsed from the stream, for a
// decompression channel whose resolved format is gzip. ok is false
// for any other format or direction.
func (c *TransformChannel) Header() (GzipHeader, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mode != ModeDecompress || c.format != FormatGzip {
		return GzipHeader{}, false
	}
	gr, ok := c.reader.(*gzip.Reader)
	if !ok {
		return GzipHeader{}, false
	}
	return GzipHeader{
		Comment:  gr.Comment,
		Filename: gr.Name,
		OS:       gr.OS,
		ModTime:  gr.ModTime,
	}, true
}

// clampLatin1 re-encodes s through the iso8859-1 converter (reusing
// the encoding registry built for Module C) and truncates to maxLen
// bytes, matching spec §4.E's Latin-1-with-length-clamp contract for
// gzip header strings.
func clampLatin1(s string, maxLen int) (string, error) {
	if s == "" {
		return "", nil
	}
	e, err := GetEncoding("iso8859-1")
	if err != nil {
		return "", err
	}
	defer ReleaseEncoding(e)

	var state ConvertState
	res, out := e.FromCanonical(&state, []byte(s), ConvertFlags{Start: true, End: true}, make([]byte, 0, len(s)+8))
	if res.Status != ConvertOK {
		return "", NewRuntimeError(ErrCompressStreamError, "gzip header string is not representable in Latin-1")
	}
	if len(out) > maxLen {
		out = out[:maxLen]
	}
	return string(out), nil
}
