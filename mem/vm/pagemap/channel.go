package pagemap

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"golang.org/x/sys/unix"
)

// maxEmptyReads bounds how many consecutive (0, nil) reads are tolerated
// before a read is considered stuck.
const maxEmptyReads = 100

// File is the part of an open pagemap file that a Channel needs.
type File interface {
	io.ReadSeeker
	io.Closer
}

// A Channel reads single entries out of a pagemap file. It owns the file and
// is not safe for concurrent use.
type Channel struct {
	file   File
	buf    [EntrySize]byte
	pos    uint64
	closed bool
}

// Open opens the pagemap file at path read-only.
func Open(path string) (*Channel, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pagemap: %w", err)
	}

	return NewChannel(f), nil
}

// NewChannel wraps an already open file. The channel takes ownership of it.
func NewChannel(f File) *Channel {
	return &Channel{file: f}
}

// SeekTo moves the read cursor to the absolute byte offset. It fails when the
// file cannot be positioned there, including when the file reports a
// different position than requested.
func (c *Channel) SeekTo(offset uint64) error {
	if offset > math.MaxInt64 {
		return &IOError{
			Kind:   ErrSeek,
			Offset: offset,
			Err:    errors.New("offset exceeds the file offset range"),
		}
	}

	for {
		pos, err := c.file.Seek(int64(offset), io.SeekStart)
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}

			return &IOError{Kind: ErrSeek, Offset: offset, Err: err}
		}

		if pos < 0 || uint64(pos) != offset {
			return &IOError{Kind: ErrSeek, Offset: offset, N: pos}
		}

		c.pos = offset

		return nil
	}
}

// ReadEntry reads the 8-byte entry at the current cursor and returns it in
// native (little-endian) byte order. Interrupted reads are retried and short
// reads are accumulated until the entry is complete or the file ends.
func (c *Channel) ReadEntry() (uint64, error) {
	offset := c.pos

	n, err := c.readFull(c.buf[:])
	c.pos += uint64(n)

	if err != nil {
		kind := ErrReadFailed
		if errors.Is(err, io.EOF) {
			kind = ErrShortRead
			err = nil
		}

		return 0, &IOError{
			Kind:   kind,
			Offset: offset,
			N:      int64(n),
			Err:    err,
		}
	}

	return binary.LittleEndian.Uint64(c.buf[:]), nil
}

// readFull fills buf completely. It returns io.EOF if the file ends first.
func (c *Channel) readFull(buf []byte) (int, error) {
	n := 0
	empty := 0

	for n < len(buf) {
		nr, err := c.file.Read(buf[n:])
		n += nr

		switch {
		case err == nil:
		case errors.Is(err, unix.EINTR):
			continue
		case errors.Is(err, io.EOF):
			if n == len(buf) {
				return n, nil
			}

			return n, io.EOF
		default:
			return n, err
		}

		if nr > 0 {
			empty = 0
			continue
		}

		empty++
		if empty >= maxEmptyReads {
			return n, io.ErrNoProgress
		}
	}

	return n, nil
}

// Close releases the underlying file. Calling Close more than once is safe.
func (c *Channel) Close() error {
	if c.closed {
		return nil
	}

	c.closed = true

	return c.file.Close()
}
