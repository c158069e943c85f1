package nesram

import (
	"github.com/struktured-labs/mednafen-mcp/process"
	"github.com/struktured-labs/mednafen-mcp/process/memory_map"
)

// fakeProcess is an in-memory process.Process backed by a fixed set of
// regions. Tests mutate region contents and liveness directly.
type fakeProcess struct {
	pid    process.ProcessID
	alive  bool
	items  []memory_map.MemoryMapItem
	data   map[uint64][]byte // region start -> contents
	reads  int
	writes int
}

func newFakeProcess(pid process.ProcessID) *fakeProcess {
	return &fakeProcess{pid: pid, alive: true, data: map[uint64][]byte{}}
}

// addRegion appends a region; contents length defines the region size.
func (f *fakeProcess) addRegion(start uint64, perms string, contents []byte) {
	f.items = append(f.items, memory_map.MemoryMapItem{
		Address:  start,
		Size:     uint(len(contents)),
		Perms:    perms,
		Pathname: "anonymous",
	})
	f.data[start] = contents
}

func (f *fakeProcess) Open(pid process.ProcessID) error { f.pid = pid; return nil }
func (f *fakeProcess) Close() error                     { return nil }
func (f *fakeProcess) GetPID() process.ProcessID        { return f.pid }
func (f *fakeProcess) IsAlive() bool                    { return f.alive }

func (f *fakeProcess) UpdateMemoryMap() error {
	if !f.alive {
		return process.ErrProcessGone
	}
	return nil
}

func (f *fakeProcess) GetMemoryMap() ([]memory_map.MemoryMapItem, error) {
	if !f.alive {
		return nil, process.ErrProcessGone
	}
	out := make([]memory_map.MemoryMapItem, len(f.items))
	copy(out, f.items)
	return out, nil
}

func (f *fakeProcess) regionFor(addr uint64, size uint) ([]byte, uint64, bool) {
	for _, item := range f.items {
		if addr >= item.Address && addr+uint64(size) <= item.End() {
			return f.data[item.Address], addr - item.Address, true
		}
	}
	return nil, 0, false
}

func (f *fakeProcess) ReadMemory(addr process.ProcessMemoryAddress, size process.ProcessMemorySize) ([]byte, error) {
	f.reads++
	if !f.alive {
		return nil, process.ErrProcessGone
	}
	contents, off, ok := f.regionFor(uint64(addr), uint(size))
	if !ok {
		return nil, process.ErrAddressNotMapped
	}
	out := make([]byte, size)
	copy(out, contents[off:])
	return out, nil
}

func (f *fakeProcess) WriteMemory(addr process.ProcessMemoryAddress, data []byte) error {
	f.writes++
	if !f.alive {
		return process.ErrProcessGone
	}
	contents, off, ok := f.regionFor(uint64(addr), uint(len(data)))
	if !ok {
		return process.ErrAddressNotMapped
	}
	copy(contents[off:], data)
	return nil
}

// drMarioRAM builds a 2 KiB window that satisfies the RAM fingerprint:
// three viruses in the player-2 playfield and valid capsule colors.
func drMarioRAM() []byte {
	ram := make([]byte, RAMSize)
	ram[playfieldOffset+0] = virusYellow
	ram[playfieldOffset+9] = virusRed
	ram[playfieldOffset+22] = virusBlue
	ram[leftColorOffset] = 0
	ram[rightColorOffset] = 1
	return ram
}

// sessionWithRAM builds a fake process exposing ram inside an rw region at
// base, plus a session attached to it.
func sessionWithRAM(base uint64, ram []byte, opts ...Option) (*Session, *fakeProcess) {
	proc := newFakeProcess(1234)
	region := make([]byte, 0x4000)
	copy(region[0:], ram)
	proc.addRegion(base, "rw-p", region)

	opts = append([]Option{WithProcess(proc)}, opts...)
	return NewSession(opts...), proc
}
