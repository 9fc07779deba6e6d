package scan

import (
	"errors"
	"fmt"
	"unsafe"

	"github.com/edsrzf/mmap-go"
)

// A Buffer is an anonymous private mapping whose pages have all been touched,
// so they are resident right after allocation.
type Buffer struct {
	mem mmap.MMap
}

// AllocateBuffer maps size bytes of anonymous memory and writes one byte in
// every page.
func AllocateBuffer(size int, pageSize uint64) (*Buffer, error) {
	if size <= 0 {
		return nil, fmt.Errorf("buffer size %d must be positive", size)
	}

	if pageSize == 0 {
		return nil, errors.New("page size must be positive")
	}

	mem, err := mmap.MapRegion(nil, size, mmap.RDWR, mmap.ANON, 0)
	if err != nil {
		return nil, fmt.Errorf("map %d byte buffer: %w", size, err)
	}

	for off := uint64(0); off < uint64(size); off += pageSize {
		mem[off] = 1
	}

	return &Buffer{mem: mem}, nil
}

// Addr returns the virtual address of the first byte.
func (b *Buffer) Addr() uint64 {
	return uint64(uintptr(unsafe.Pointer(&b.mem[0])))
}

// Len returns the size of the buffer in bytes.
func (b *Buffer) Len() uint64 {
	return uint64(len(b.mem))
}

// Bytes exposes the mapped memory.
func (b *Buffer) Bytes() []byte {
	return b.mem
}

// Close unmaps the buffer. The buffer must not be used afterwards.
func (b *Buffer) Close() error {
	if b.mem == nil {
		return nil
	}

	err := b.mem.Unmap()
	b.mem = nil

	return err
}
