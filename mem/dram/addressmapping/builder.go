package addressmapping

import "fmt"

// A Builder creates layouts in which the column, bank, and row bits sit next
// to each other, lowest first, above the bits that address bytes within one
// access unit.
type Builder struct {
	accessUnitSize uint64
	numCol         uint64
	numBank        uint64
	numRow         uint64
}

// MakeBuilder creates a builder with the default geometry.
func MakeBuilder() Builder {
	return Builder{
		accessUnitSize: 8,
		numCol:         512,
		numBank:        8,
		numRow:         131072,
	}
}

// WithAccessUnitSize sets the number of bytes transferred per column access.
// The low log2(n) address bits select a byte within that unit and are not
// part of the location.
func (b Builder) WithAccessUnitSize(n uint64) Builder {
	b.accessUnitSize = n
	return b
}

// WithNumCol sets the number of columns in each row.
func (b Builder) WithNumCol(n uint64) Builder {
	b.numCol = n
	return b
}

// WithNumBank sets the number of banks.
func (b Builder) WithNumBank(n uint64) Builder {
	b.numBank = n
	return b
}

// WithNumRow sets the number of rows in each bank.
func (b Builder) WithNumRow(n uint64) Builder {
	b.numRow = n
	return b
}

// Build creates the layout. It panics if a count is not a power of two or if
// the resulting layout is invalid.
func (b Builder) Build() Layout {
	unitBits := mustLog2("access unit size", b.accessUnitSize)
	colBits := mustLog2("column count", b.numCol)
	bankBits := mustLog2("bank count", b.numBank)
	rowBits := mustLog2("row count", b.numRow)

	l := Layout{
		Column: Field{Shift: unitBits, Width: colBits},
		Bank:   Field{Shift: unitBits + colBits, Width: bankBits},
		Row:    Field{Shift: unitBits + colBits + bankBits, Width: rowBits},
	}

	if err := l.Validate(); err != nil {
		panic(err)
	}

	return l
}

// log2 returns the log2 of a number. It also returns false if it is not a log2
// number.
func log2(n uint64) (uint, bool) {
	oneCount := 0
	onePos := uint(0)

	for i := uint(0); i < 64; i++ {
		if n&(1<<i) > 0 {
			onePos = i
			oneCount++
		}
	}

	return onePos, oneCount == 1
}

func mustLog2(what string, n uint64) uint {
	bits, ok := log2(n)
	if !ok {
		panic(fmt.Sprintf("%s %d is not a power of two", what, n))
	}

	return bits
}
