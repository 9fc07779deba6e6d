// Package addressmapping decomposes physical addresses into the DRAM
// coordinates a memory controller selects: row, bank, and column.
//
// Which address bits feed which coordinate depends on the memory controller,
// so the mapping is described by a Layout rather than fixed constants.
package addressmapping

import (
	"errors"
	"fmt"
)

// Location is the DRAM cell array position of a physical address.
type Location struct {
	Row    uint32
	Bank   uint8
	Column uint16
}

func (l Location) String() string {
	return fmt.Sprintf("Row %d, Bank %d, Column %d", l.Row, l.Bank, l.Column)
}

// A Mapper finds the DRAM location of a physical address.
type Mapper interface {
	Map(addr uint64) Location
}

// Field is a contiguous run of address bits, Width bits starting at bit
// Shift.
type Field struct {
	Shift uint
	Width uint
}

// Extract returns the bits of addr covered by the field, shifted down to
// bit 0.
func (f Field) Extract(addr uint64) uint64 {
	return (addr >> f.Shift) & f.valueMask()
}

// Insert places v into the field's bit positions. Bits of v wider than the
// field are dropped.
func (f Field) Insert(v uint64) uint64 {
	return (v & f.valueMask()) << f.Shift
}

// Mask returns the address bits covered by the field.
func (f Field) Mask() uint64 {
	return f.Insert(^uint64(0))
}

func (f Field) valueMask() uint64 {
	if f.Width >= 64 {
		return ^uint64(0)
	}

	return 1<<f.Width - 1
}

func (f Field) String() string {
	if f.Width == 0 {
		return "[]"
	}

	return fmt.Sprintf("[%d:%d]", f.Shift, f.Shift+f.Width-1)
}

// Layout tells which physical address bits select the column, the bank, and
// the row.
type Layout struct {
	Column Field
	Bank   Field
	Row    Field
}

// DefaultLayout is a single-channel DDR layout with 8-byte access units,
// 512 columns, 8 banks, and 131072 rows: column bits [3:11], bank bits
// [12:14], row bits [15:31].
var DefaultLayout = MakeBuilder().Build()

// NamedField is a Field together with the coordinate it selects.
type NamedField struct {
	Name string
	Field
}

// Fields lists the fields in decode order: column, bank, row.
func (l Layout) Fields() []NamedField {
	return []NamedField{
		{Name: "column", Field: l.Column},
		{Name: "bank", Field: l.Bank},
		{Name: "row", Field: l.Row},
	}
}

// Map decomposes a physical address. Every address maps to some location;
// whether that location exists in the installed memory is not checked.
func (l Layout) Map(addr uint64) Location {
	return Location{
		Column: uint16(l.Column.Extract(addr)),
		Bank:   uint8(l.Bank.Extract(addr)),
		Row:    uint32(l.Row.Extract(addr)),
	}
}

// Unmap places a location back into the address bits it came from. Only the
// bits covered by the layout are set.
func (l Layout) Unmap(loc Location) uint64 {
	return l.Column.Insert(uint64(loc.Column)) |
		l.Bank.Insert(uint64(loc.Bank)) |
		l.Row.Insert(uint64(loc.Row))
}

// Mask returns all address bits that take part in the mapping.
func (l Layout) Mask() uint64 {
	return l.Column.Mask() | l.Bank.Mask() | l.Row.Mask()
}

// Validate checks that every field fits both a 64-bit address and its
// Location member, and does not overlap another field. A zero-width field is
// allowed and always decodes to zero.
func (l Layout) Validate() error {
	limits := map[string]uint{"column": 16, "bank": 8, "row": 32}

	var errs []error
	var used uint64

	for _, f := range l.Fields() {
		switch {
		case f.Width == 0:
			continue
		case f.Width > limits[f.Name]:
			errs = append(errs, fmt.Errorf("%s field is %d bits wide, at most %d allowed",
				f.Name, f.Width, limits[f.Name]))
			continue
		case f.Shift+f.Width > 64:
			errs = append(errs, fmt.Errorf("%s field %v runs past bit 63",
				f.Name, f.Field))
			continue
		}

		if used&f.Mask() != 0 {
			errs = append(errs, fmt.Errorf("%s field %v overlaps another field",
				f.Name, f.Field))
		}

		used |= f.Mask()
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid DRAM layout: %w", errors.Join(errs...))
	}

	return nil
}

func (l Layout) String() string {
	return fmt.Sprintf("column%v bank%v row%v", l.Column, l.Bank, l.Row)
}
