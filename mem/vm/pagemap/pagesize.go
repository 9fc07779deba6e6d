package pagemap

import (
	"fmt"
	"math/bits"

	"github.com/tklauser/go-sysconf"
)

// SystemPageSize asks the system for its base page size, the granularity at
// which pagemap files are indexed.
func SystemPageSize() (uint64, error) {
	size, err := sysconf.Sysconf(sysconf.SC_PAGESIZE)
	if err != nil {
		return 0, fmt.Errorf("query page size: %w", err)
	}

	if size <= 0 || !IsValidPageSize(uint64(size)) {
		return 0, fmt.Errorf("system reported invalid page size %d", size)
	}

	return uint64(size), nil
}

// IsValidPageSize reports whether size is a non-zero power of two.
func IsValidPageSize(size uint64) bool {
	return size != 0 && bits.OnesCount64(size) == 1
}

// EntryOffset returns the byte offset in a pagemap file of the entry that
// describes the page containing vAddr.
func EntryOffset(vAddr, pageSize uint64) uint64 {
	return vAddr / pageSize * EntrySize
}

// Path returns the pagemap file of the given process. A pid of zero or less
// means the calling process.
func Path(pid int) string {
	if pid <= 0 {
		return "/proc/self/pagemap"
	}

	return fmt.Sprintf("/proc/%d/pagemap", pid)
}
