package addresstranslator

import (
	"fmt"

	"github.com/sarchlab/v2p/mem/vm/pagemap"
)

// EntryReader is a positioned reader of raw pagemap entries.
type EntryReader interface {
	SeekTo(offset uint64) error
	ReadEntry() (uint64, error)
	Close() error
}

// Kind tells which outcome a translation had.
type Kind int

// Possible outcomes of a translation.
const (
	// Failed means the pagemap entry could not be read.
	Failed Kind = iota

	// NotResident means the page has no physical frame right now. It is
	// unmapped, swapped out, or reported as both present and swapped.
	NotResident

	// Resident means the page is backed by a physical frame and PAddr holds
	// the translated address.
	Resident
)

func (k Kind) String() string {
	switch k {
	case Resident:
		return "resident"
	case NotResident:
		return "not-resident"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Result is the outcome of translating one virtual address.
type Result struct {
	Kind  Kind
	VAddr uint64

	// PAddr is only meaningful when Kind is Resident.
	PAddr uint64

	// Entry is the decoded pagemap entry. It is zero when Kind is Failed.
	Entry pagemap.PageTableEntry

	// Err is only set when Kind is Failed. It wraps a *pagemap.IOError.
	Err error
}

// PFNHidden reports whether the page is resident with frame number 0. The
// kernel reports 0 for every frame when the reader lacks CAP_SYS_ADMIN, but
// frame 0 can also be real, so this is only a hint. A run of results that
// are all hidden is what points at missing privileges.
func (r Result) PFNHidden() bool {
	return r.Kind == Resident && r.Entry.Frame == 0
}

// Translator turns virtual addresses of one process into physical addresses
// by looking them up in the process's pagemap. A Translator serves one
// translation at a time.
type Translator struct {
	reader   EntryReader
	pageSize uint64
}

// New creates a Translator that reads entries from reader. The translator
// owns the reader and closes it in Close.
func New(reader EntryReader, pageSize uint64) *Translator {
	pageSizeMustBeValid(pageSize)

	return &Translator{
		reader:   reader,
		pageSize: pageSize,
	}
}

// PageSize returns the page size used to index the pagemap.
func (t *Translator) PageSize() uint64 {
	return t.pageSize
}

// Translate looks up the physical address backing vAddr.
func (t *Translator) Translate(vAddr uint64) Result {
	offset := pagemap.EntryOffset(vAddr, t.pageSize)

	if err := t.reader.SeekTo(offset); err != nil {
		return t.fail(vAddr, offset, err)
	}

	raw, err := t.reader.ReadEntry()
	if err != nil {
		return t.fail(vAddr, offset, err)
	}

	entry := pagemap.Decode(raw)
	result := Result{
		Kind:  NotResident,
		VAddr: vAddr,
		Entry: entry,
	}

	pfn, ok := entry.PFN()
	if !ok {
		return result
	}

	result.Kind = Resident
	result.PAddr = pfn*t.pageSize | vAddr&(t.pageSize-1)

	return result
}

func (t *Translator) fail(vAddr, offset uint64, err error) Result {
	return Result{
		Kind:  Failed,
		VAddr: vAddr,
		Err: fmt.Errorf("translate 0x%x (entry offset 0x%x): %w",
			vAddr, offset, err),
	}
}

// Close releases the pagemap reader.
func (t *Translator) Close() error {
	return t.reader.Close()
}

func pageSizeMustBeValid(pageSize uint64) {
	if !pagemap.IsValidPageSize(pageSize) {
		panic(fmt.Sprintf("page size %d is not a power of two", pageSize))
	}
}
