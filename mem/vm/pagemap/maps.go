package pagemap

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// A Region is one line of /proc/<pid>/maps: a contiguous virtual address
// range with uniform permissions and backing.
type Region struct {
	Start  uint64
	End    uint64
	Perms  string
	Offset uint64
	Dev    string
	Inode  uint64
	Path   string
}

// Len returns the size of the region in bytes.
func (r Region) Len() uint64 {
	return r.End - r.Start
}

// Readable reports whether the region is mapped with read permission.
func (r Region) Readable() bool {
	return strings.HasPrefix(r.Perms, "r")
}

// MapsPath returns the maps file of the given process. A pid of zero or less
// means the calling process.
func MapsPath(pid int) string {
	if pid <= 0 {
		return "/proc/self/maps"
	}

	return fmt.Sprintf("/proc/%d/maps", pid)
}

// ReadMaps reads and parses the maps file of the given process.
func ReadMaps(pid int) ([]Region, error) {
	f, err := os.Open(MapsPath(pid))
	if err != nil {
		return nil, fmt.Errorf("open maps: %w", err)
	}
	defer f.Close()

	return ParseMaps(f)
}

// ParseMaps parses the maps format. Lines that cannot be parsed are skipped.
func ParseMaps(r io.Reader) ([]Region, error) {
	var regions []Region

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		region, ok := parseMapsLine(scanner.Text())
		if !ok {
			continue
		}

		regions = append(regions, region)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read maps: %w", err)
	}

	return regions, nil
}

func parseMapsLine(line string) (Region, bool) {
	fields := strings.Fields(line)
	if len(fields) < 5 {
		return Region{}, false
	}

	start, end, found := strings.Cut(fields[0], "-")
	if !found {
		return Region{}, false
	}

	var (
		region Region
		err    error
	)

	if region.Start, err = strconv.ParseUint(start, 16, 64); err != nil {
		return Region{}, false
	}

	if region.End, err = strconv.ParseUint(end, 16, 64); err != nil {
		return Region{}, false
	}

	if region.End < region.Start {
		return Region{}, false
	}

	if region.Offset, err = strconv.ParseUint(fields[2], 16, 64); err != nil {
		return Region{}, false
	}

	if region.Inode, err = strconv.ParseUint(fields[4], 10, 64); err != nil {
		return Region{}, false
	}

	region.Perms = fields[1]
	region.Dev = fields[3]

	if len(fields) > 5 {
		region.Path = strings.Join(fields[5:], " ")
	}

	return region, true
}
