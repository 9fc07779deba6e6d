package pagemap

import (
	"errors"
	"fmt"
)

// Error kinds that a Channel can report. Use errors.Is to tell them apart.
var (
	ErrSeek       = errors.New("pagemap seek failed")
	ErrShortRead  = errors.New("pagemap entry truncated")
	ErrReadFailed = errors.New("pagemap read failed")
)

// IOError describes a failed positioned read of one pagemap entry.
type IOError struct {
	// Kind is one of ErrSeek, ErrShortRead, or ErrReadFailed.
	Kind error

	// Offset is the byte offset the channel was asked to seek to or read at.
	Offset uint64

	// N is the number of bytes collected before a read stopped. For seek
	// failures it holds the position the file actually reported, if any.
	N int64

	// Err is the underlying cause, if there is one.
	Err error
}

func (e *IOError) Error() string {
	msg := fmt.Sprintf("%v at offset 0x%x", e.Kind, e.Offset)

	switch e.Kind {
	case ErrShortRead:
		msg += fmt.Sprintf(" (got %d of %d bytes)", e.N, EntrySize)
	case ErrSeek:
		if e.Err == nil {
			msg += fmt.Sprintf(" (landed at 0x%x)", e.N)
		}
	}

	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}

	return msg
}

// Is reports whether target is the kind of this error.
func (e *IOError) Is(target error) bool {
	return target == e.Kind
}

func (e *IOError) Unwrap() error {
	return e.Err
}
