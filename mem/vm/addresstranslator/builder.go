package addresstranslator

import (
	"fmt"

	"github.com/sarchlab/v2p/mem/vm/pagemap"
)

// A Builder can create address translators.
type Builder struct {
	pageSize    uint64
	pid         int
	pagemapPath string
	reader      EntryReader
}

// MakeBuilder creates a builder that translates addresses of the calling
// process with 4 KiB pages.
func MakeBuilder() Builder {
	return Builder{
		pageSize: 4096,
	}
}

// WithPageSize sets the page size that indexes the pagemap. It must be a
// power of two.
func (b Builder) WithPageSize(n uint64) Builder {
	b.pageSize = n
	return b
}

// WithPID selects the process whose pagemap is read. Zero selects the calling
// process.
func (b Builder) WithPID(pid int) Builder {
	b.pid = pid
	return b
}

// WithPagemapPath reads entries from the file at path instead of the
// process's pagemap. It takes precedence over WithPID.
func (b Builder) WithPagemapPath(path string) Builder {
	b.pagemapPath = path
	return b
}

// WithEntryReader reads entries from an already open reader. It takes
// precedence over WithPagemapPath and WithPID.
func (b Builder) WithEntryReader(r EntryReader) Builder {
	b.reader = r
	return b
}

// Build opens the pagemap, if needed, and creates the translator.
func (b Builder) Build() (*Translator, error) {
	pageSizeMustBeValid(b.pageSize)

	if b.reader != nil {
		return New(b.reader, b.pageSize), nil
	}

	channel, err := pagemap.Open(b.path())
	if err != nil {
		return nil, fmt.Errorf("build address translator: %w", err)
	}

	return New(channel, b.pageSize), nil
}

func (b Builder) path() string {
	if b.pagemapPath != "" {
		return b.pagemapPath
	}

	return pagemap.Path(b.pid)
}
