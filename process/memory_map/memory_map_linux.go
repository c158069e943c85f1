//go:build linux

package memory_map

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// ReadMemoryMap reads and parses the memory map for a process from
// /proc/[pid]/maps. Regions are returned in the order the kernel reports
// them, which is ascending by address.
func ReadMemoryMap(pid int) ([]MemoryMapItem, error) {
	file, err := os.Open(fmt.Sprintf("/proc/%d/maps", pid))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return ParseMemoryMap(file)
}

// ParseMemoryMap parses maps-format text. Malformed lines are skipped rather
// than failing the listing: a region disappearing mid-read truncates the
// sequence, it does not invalidate the rows already parsed.
func ParseMemoryMap(r io.Reader) ([]MemoryMapItem, error) {
	var memoryMap []MemoryMapItem
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}

		// Address range, e.g. "00400000-0040b000"
		addrRange := strings.SplitN(fields[0], "-", 2)
		if len(addrRange) != 2 {
			continue
		}

		startAddr, err := strconv.ParseUint(addrRange[0], 16, 64)
		if err != nil {
			continue
		}

		endAddr, err := strconv.ParseUint(addrRange[1], 16, 64)
		if err != nil || endAddr < startAddr {
			continue
		}

		// Fields: range perms offset dev inode [pathname]
		pathname := "anonymous"
		if len(fields) >= 6 {
			pathname = strings.Join(fields[5:], " ")
		}

		memoryMap = append(memoryMap, MemoryMapItem{
			Address:  startAddr,
			Size:     uint(endAddr - startAddr),
			Perms:    fields[1],
			Pathname: pathname,
		})
	}

	if err := scanner.Err(); err != nil {
		// Already-emitted entries stay valid even if the listing was cut
		// short by the process exiting under us.
		if len(memoryMap) > 0 {
			return memoryMap, nil
		}
		return nil, err
	}

	return memoryMap, nil
}
