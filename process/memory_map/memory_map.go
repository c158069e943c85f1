// Package memory_map models a snapshot of a process's mapped memory regions.
package memory_map

import (
	"fmt"
	"sort"
)

// MemoryMapItem represents one memory region in a process's address space.
// It is an immutable snapshot row; the live process may remap at any time,
// which is why callers re-enumerate before every discovery attempt.
type MemoryMapItem struct {
	Address  uint64 // The starting address of the memory region
	Size     uint   // The size of the memory region in bytes
	Perms    string // Permissions (e.g., "rw-p" for read, write, private)
	Pathname string // Backing label; "anonymous" when the mapping has none
}

// End returns the first address past the region.
func (mmItem MemoryMapItem) End() uint64 {
	return mmItem.Address + uint64(mmItem.Size)
}

// String returns a string representation of the memory map item
func (mmItem MemoryMapItem) String() string {
	return fmt.Sprintf("%016x-%016x %s %s", mmItem.Address, mmItem.End(), mmItem.Perms, mmItem.Pathname)
}

func (mmItem MemoryMapItem) IsReadable() bool {
	return len(mmItem.Perms) > 0 && mmItem.Perms[0] == 'r'
}

func (mmItem MemoryMapItem) IsWritable() bool {
	return len(mmItem.Perms) > 1 && mmItem.Perms[1] == 'w'
}

func (mmItem MemoryMapItem) IsExecutable() bool {
	return len(mmItem.Perms) > 2 && mmItem.Perms[2] == 'x'
}

// FilterReadWrite returns the regions with both read and write permission,
// preserving enumeration order.
func FilterReadWrite(mm []MemoryMapItem) []MemoryMapItem {
	var out []MemoryMapItem
	for _, item := range mm {
		if item.IsReadable() && item.IsWritable() {
			out = append(out, item)
		}
	}
	return out
}

// FindRegion returns the region containing addr, or nil. The memory map must
// be sorted by ascending address.
func FindRegion(addr uint64, mm []MemoryMapItem) *MemoryMapItem {
	i := sort.Search(len(mm), func(i int) bool {
		return mm[i].End() > addr
	})
	if i < len(mm) && mm[i].Address <= addr {
		return &mm[i]
	}
	return nil
}
