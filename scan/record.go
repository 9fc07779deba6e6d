package scan

import (
	"fmt"

	"github.com/sarchlab/v2p/mem/dram/addressmapping"
	"github.com/sarchlab/v2p/mem/vm/addresstranslator"
)

// A Record is what a scan learned about one virtual address.
type Record struct {
	// Seq numbers the records of a scanner from 0, across scans.
	Seq int

	addresstranslator.Result

	// Location is only meaningful when the result is resident.
	Location addressmapping.Location
}

// HasLocation reports whether Location was decoded from a physical address.
func (r Record) HasLocation() bool {
	return r.Kind == addresstranslator.Resident
}

func (r Record) String() string {
	switch r.Kind {
	case addresstranslator.Resident:
		return fmt.Sprintf("Address 0x%x: %s (virt 0x%x)",
			r.PAddr, r.Location, r.VAddr)
	case addresstranslator.NotResident:
		return fmt.Sprintf("Address virt 0x%x: not resident, %s",
			r.VAddr, r.Entry)
	default:
		return fmt.Sprintf("Address virt 0x%x: %v", r.VAddr, r.Err)
	}
}

// TranslationRow is the flat form of a Record stored by RecordHook.
// Addresses are kept as hex text since SQLite integers are signed.
type TranslationRow struct {
	Session    string
	Seq        int
	VAddr      string
	Outcome    string
	PAddr      string
	Frame      uint64
	SwapType   uint8
	FilePage   bool
	Exclusive  bool
	SoftDirty  bool
	DramRow    uint32
	DramBank   uint8
	DramColumn uint16
	Error      string
}

// Row flattens the record for storage.
func (r Record) Row(session string) TranslationRow {
	row := TranslationRow{
		Session:   session,
		Seq:       r.Seq,
		VAddr:     fmt.Sprintf("0x%x", r.VAddr),
		Outcome:   r.Kind.String(),
		Frame:     r.Entry.Frame,
		SwapType:  r.Entry.SwapType,
		FilePage:  r.Entry.FilePage,
		Exclusive: r.Entry.Exclusive,
		SoftDirty: r.Entry.SoftDirty,
	}

	if r.HasLocation() {
		row.PAddr = fmt.Sprintf("0x%x", r.PAddr)
		row.DramRow = r.Location.Row
		row.DramBank = r.Location.Bank
		row.DramColumn = r.Location.Column
	}

	if r.Err != nil {
		row.Error = r.Err.Error()
	}

	return row
}
