// Package compress adapts the two compression envelopes used by the region
// and savegame-database formats — gzip and zlib-wrapped deflate — behind a
// single inflate/deflate pair so callers never touch klauspost/compress
// directly.
package compress

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
)

// Sentinel errors, named after the failure taxonomy a compression adapter
// exposes to its callers: init, mid-stream, finalize, and memory.
var (
	ErrCompressionInit     = errors.New("compress: stream init failed")
	ErrCompressionStep     = errors.New("compress: mid-stream operation failed")
	ErrCompressionFinalize = errors.New("compress: stream finalize failed")
	ErrMemory              = errors.New("compress: output buffer growth failed")
)

// gzipOSUnknown is gzip's "FAT filesystem (MS-DOS, OS/2, NT/Win32)" OS code.
// Forcing the header's OS field to this value makes Deflate's gzip output
// byte-identical across hosts instead of leaking the build platform.
const gzipOSUnknown = 0x00

// Inflate decompresses input. When rawZlib is true the stream is framed as
// zlib (compression-type byte 2 on disk); when false, as gzip
// (compression-type byte 1).
func Inflate(input []byte, rawZlib bool) ([]byte, error) {
	var (
		r   io.ReadCloser
		err error
	)
	if rawZlib {
		r, err = zlib.NewReader(bytes.NewReader(input))
	} else {
		r, err = gzip.NewReader(bytes.NewReader(input))
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCompressionInit, err)
	}
	defer r.Close()

	var out bytes.Buffer
	out.Grow(len(input) * 2)
	if _, err := io.Copy(&out, r); err != nil {
		if errors.Is(err, io.ErrShortBuffer) {
			return nil, fmt.Errorf("%w: %v", ErrMemory, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrCompressionStep, err)
	}
	if err := r.Close(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCompressionFinalize, err)
	}
	return out.Bytes(), nil
}

// Deflate compresses input at the default compression level. When rawZlib is
// true the output is framed as zlib; when false, as gzip, with the gzip OS
// field forced to 0x00 for byte-identical output across hosts.
func Deflate(input []byte, rawZlib bool) ([]byte, error) {
	var out bytes.Buffer
	out.Grow(len(input)/4 + 64)

	var w io.WriteCloser
	if rawZlib {
		zw, err := zlib.NewWriterLevel(&out, zlib.DefaultCompression)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCompressionInit, err)
		}
		w = zw
	} else {
		gw, err := gzip.NewWriterLevel(&out, gzip.DefaultCompression)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCompressionInit, err)
		}
		gw.Header.OS = gzipOSUnknown
		w = gw
	}

	if _, err := w.Write(input); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCompressionStep, err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCompressionFinalize, err)
	}

	return out.Bytes(), nil
}
