// Package binio provides the byte-level file access used by the volume
// readers: transparent gzip decompression, absolute positioning and
// exact-length reads.
package binio

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"
)

// ErrShortRead is returned when a file ends before the requested number of
// bytes could be read.
var ErrShortRead = errors.New("short read")

var gzipMagic = []byte{0x1f, 0x8b}

// File is a read-only file handle that hides gzip compression. Compressed
// files cannot seek backwards natively, so a backwards Seek reopens the
// stream and skips forward.
type File struct {
	path       string
	f          *os.File
	gz         *gzip.Reader
	r          io.Reader
	pos        int64
	compressed bool
}

// Open opens path for reading, decompressing on the fly when the content
// starts with the gzip magic number.
func Open(path string) (*File, error) {
	f := &File{path: path}
	if err := f.open(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *File) open() error {
	osf, err := os.Open(f.path)
	if err != nil {
		return err
	}
	br := bufio.NewReader(osf)
	magic, _ := br.Peek(len(gzipMagic))
	if bytes.Equal(magic, gzipMagic) {
		gz, err := gzip.NewReader(br)
		if err != nil {
			osf.Close()
			return fmt.Errorf("opening gzip stream %s: %w", f.path, err)
		}
		f.f = osf
		f.pos = 0
		f.gz = gz
		f.r = gz
		f.compressed = true
		return nil
	}
	f.f = osf
	f.pos = 0
	f.r = br
	return nil
}

// Path returns the path the file was opened with.
func (f *File) Path() string { return f.path }

// Compressed reports whether the file is gzip compressed.
func (f *File) Compressed() bool { return f.compressed }

// Pos returns the current offset in the uncompressed stream.
func (f *File) Pos() int64 { return f.pos }

// Read implements io.Reader over the uncompressed stream.
func (f *File) Read(p []byte) (int, error) {
	if f.r == nil {
		return 0, os.ErrClosed
	}
	n, err := f.r.Read(p)
	f.pos += int64(n)
	return n, err
}

// ReadFull fills buf completely. A file that ends early yields an error
// wrapping ErrShortRead.
func (f *File) ReadFull(buf []byte) error {
	n, err := io.ReadFull(f, buf)
	if err == nil {
		return nil
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: %s: got %d of %d bytes at offset %d",
			ErrShortRead, f.path, n, len(buf), f.pos-int64(n))
	}
	return err
}

// Seek positions the file at offset bytes from the start of the
// uncompressed stream. Seeking to the current position does nothing.
func (f *File) Seek(offset int64) error {
	if offset < 0 {
		return fmt.Errorf("seek %s: negative offset %d", f.path, offset)
	}
	if f.f == nil {
		return fmt.Errorf("seek %s: %w", f.path, os.ErrClosed)
	}
	if offset == f.pos {
		return nil
	}
	if !f.compressed {
		if _, err := f.f.Seek(offset, io.SeekStart); err != nil {
			return err
		}
		f.r = bufio.NewReader(f.f)
		f.pos = offset
		return nil
	}
	if offset < f.pos {
		if err := f.close(); err != nil {
			return err
		}
		if err := f.open(); err != nil {
			return err
		}
	}
	skip := offset - f.pos
	n, err := io.CopyN(io.Discard, f.r, skip)
	f.pos += n
	if err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: %s: seek to %d past end of stream", ErrShortRead, f.path, offset)
		}
		return err
	}
	return nil
}

// close releases the current handles and leaves f without a stream, so a
// failed reopen cannot leave a closed *os.File behind.
func (f *File) close() error {
	var gzErr error
	if f.gz != nil {
		gzErr = f.gz.Close()
		f.gz = nil
	}
	f.r = nil
	if f.f == nil {
		return gzErr
	}
	err := f.f.Close()
	f.f = nil
	if err == nil {
		err = gzErr
	}
	return err
}

// Close releases the handle. Calling Close more than once is a no-op.
func (f *File) Close() error {
	if f.f == nil {
		return nil
	}
	return f.close()
}
