package basic

import "github.com/journich/altairbasic/pkg/logger"

// Memory size limits. Sizes outside the range are clamped, and offsets are
// 16-bit on the wire, so the addressable top never exceeds 65535.
const (
	MinMemorySize     = 4096
	MaxMemorySize     = 65536
	DefaultMemorySize = 65536
)

const programStart = 0

// Arena is the single contiguous byte space everything lives in: tokenized
// program at the bottom, then scalar variables, then arrays, then a gap,
// then the string heap growing down from the top. The cursors divide the
// regions; all offset arithmetic stays inside this package's store methods.
//
// Layout invariants: programStart <= programEnd = varStart <= arrayStart
// <= stringStart <= stringEnd.
type Arena struct {
	data []byte

	programEnd  int
	varStart    int
	arrayStart  int
	stringStart int
	stringEnd   int
	varCount    int
}

// NewArena allocates an arena of the requested size, clamped to the legal
// range.
func NewArena(size int) *Arena {
	if size < MinMemorySize {
		size = MinMemorySize
	}
	if size > MaxMemorySize {
		size = MaxMemorySize
	}
	a := &Arena{data: make([]byte, size)}
	a.stringEnd = size
	if a.stringEnd > 65535 {
		a.stringEnd = 65535
	}
	a.Reset()
	logger.Debug(logger.AreaMemory, "arena allocated: %d bytes, string top %d", size, a.stringEnd)
	return a
}

// Reset wipes every region: no program, no variables, no arrays, empty
// string heap.
func (a *Arena) Reset() {
	a.programEnd = programStart
	a.varStart = a.programEnd
	a.arrayStart = a.varStart
	a.stringStart = a.stringEnd
	a.varCount = 0
}

// Size returns the arena size in bytes.
func (a *Arena) Size() int { return len(a.data) }

// Free returns the gap between the top of the array region and the low-water
// mark of the string heap. This is the figure FRE reports and the headroom
// every allocation checks.
func (a *Arena) Free() int {
	if a.stringStart <= a.arrayStart {
		return 0
	}
	return a.stringStart - a.arrayStart
}

// Peek reads one byte; out-of-range addresses read as zero.
func (a *Arena) Peek(addr int) byte {
	if addr < 0 || addr >= len(a.data) {
		return 0
	}
	return a.data[addr]
}

// Poke writes one byte, failing with FC when the address is out of range.
func (a *Arena) Poke(addr int, value byte) error {
	if addr < 0 || addr >= len(a.data) {
		return codeErr(ErrFC)
	}
	a.data[addr] = value
	return nil
}

// getU16 and putU16 are the only places 16-bit offsets cross between Go ints
// and the little-endian byte image.
func (a *Arena) getU16(off int) int {
	return int(a.data[off]) | int(a.data[off+1])<<8
}

func (a *Arena) putU16(off, v int) {
	a.data[off] = byte(v)
	a.data[off+1] = byte(v >> 8)
}

// openGap shifts data[at:end) up by n bytes. The caller has already checked
// capacity against Free and owns the cursor updates.
func (a *Arena) openGap(at, end, n int) {
	copy(a.data[at+n:end+n], a.data[at:end])
}

// closeGap removes n bytes at offset at by shifting data[at+n:end) down.
func (a *Arena) closeGap(at, end, n int) {
	copy(a.data[at:], a.data[at+n:end])
}
