package pagemap

import "fmt"

// EntrySize is the number of bytes each page occupies in a pagemap file.
const EntrySize = 8

// Bit positions and field masks of a pagemap entry, as documented in the
// kernel's admin-guide/mm/pagemap.rst.
const (
	presentBit   = 63
	swappedBit   = 62
	filePageBit  = 61
	exclusiveBit = 56
	softDirtyBit = 55

	pfnMask = uint64(0x7fffffffffffff) // bits 0-54

	swapTypeMask    = uint64(0x1f) // bits 0-4
	swapOffsetShift = 5
	swapOffsetMask  = uint64(0x3ffffffffffff) // bits 5-54
)

// PageTableEntry is the decoded form of one 64-bit pagemap record.
//
// Frame holds the page frame number when the page is not swapped, and the
// swap offset when it is. The two readings overlap in the raw record, so the
// Swapped flag decides which one Frame carries.
type PageTableEntry struct {
	Present   bool
	Swapped   bool
	FilePage  bool
	Exclusive bool
	SoftDirty bool

	Frame    uint64
	SwapType uint8
}

// Decode splits a raw pagemap record into its fields. Reserved bits are
// ignored, so every input decodes.
func Decode(raw uint64) PageTableEntry {
	e := PageTableEntry{
		Present:   bitSet(raw, presentBit),
		Swapped:   bitSet(raw, swappedBit),
		FilePage:  bitSet(raw, filePageBit),
		Exclusive: bitSet(raw, exclusiveBit),
		SoftDirty: bitSet(raw, softDirtyBit),
	}

	if e.Swapped {
		e.SwapType = uint8(raw & swapTypeMask)
		e.Frame = (raw >> swapOffsetShift) & swapOffsetMask
	} else {
		e.Frame = raw & pfnMask
	}

	return e
}

// Encode packs the entry back into the kernel's record layout. Fields wider
// than their slot are truncated.
func Encode(e PageTableEntry) uint64 {
	var raw uint64

	raw |= flag(e.Present, presentBit)
	raw |= flag(e.Swapped, swappedBit)
	raw |= flag(e.FilePage, filePageBit)
	raw |= flag(e.Exclusive, exclusiveBit)
	raw |= flag(e.SoftDirty, softDirtyBit)

	if e.Swapped {
		raw |= uint64(e.SwapType) & swapTypeMask
		raw |= (e.Frame & swapOffsetMask) << swapOffsetShift
	} else {
		raw |= e.Frame & pfnMask
	}

	return raw
}

// PFN returns the page frame number and whether the entry actually holds one.
func (e PageTableEntry) PFN() (uint64, bool) {
	if !e.Present || e.Swapped {
		return 0, false
	}

	return e.Frame, true
}

// SwapOffset returns the offset into the swap area and whether the entry
// describes a swapped page.
func (e PageTableEntry) SwapOffset() (uint64, bool) {
	if !e.Swapped {
		return 0, false
	}

	return e.Frame, true
}

func (e PageTableEntry) String() string {
	switch {
	case e.Swapped:
		return fmt.Sprintf("swapped(type=%d, offset=0x%x)", e.SwapType, e.Frame)
	case e.Present:
		return fmt.Sprintf("present(pfn=0x%x)", e.Frame)
	default:
		return "not-present"
	}
}

func bitSet(raw uint64, pos uint) bool {
	return (raw>>pos)&1 == 1
}

func flag(set bool, pos uint) uint64 {
	if set {
		return 1 << pos
	}

	return 0
}
