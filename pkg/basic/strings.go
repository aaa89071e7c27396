package basic

import "github.com/journich/altairbasic/pkg/logger"

// MaxStringLength is the longest string value the interpreter handles.
const MaxStringLength = 255

// StrDesc describes one string value. The character bytes live in the heap
// at the top of the arena; the descriptor lives in a variable slot or an
// array element as len, a reserved byte, and a 16-bit pointer. The empty
// string is length 0 with pointer 0 and owns no heap bytes.
type StrDesc struct {
	Length int
	Ptr    int
}

func (a *Arena) readDesc(off int) StrDesc {
	return StrDesc{Length: int(a.data[off]), Ptr: a.getU16(off + 2)}
}

func (a *Arena) writeDesc(off int, d StrDesc) {
	a.data[off] = byte(d.Length)
	a.data[off+1] = 0
	a.putU16(off+2, d.Ptr)
}

// StringBytes returns the character bytes of d, aliasing arena memory. The
// slice is invalidated by any allocation, since allocation can trigger a
// collection that moves strings.
func (a *Arena) StringBytes(d StrDesc) []byte {
	if d.Length == 0 || d.Ptr == 0 {
		return nil
	}
	return a.data[d.Ptr : d.Ptr+d.Length]
}

// StringValue copies d out as a Go string.
func (a *Arena) StringValue(d StrDesc) string {
	return string(a.StringBytes(d))
}

// stringAlloc reserves n heap bytes, collecting garbage once if the first
// attempt does not fit. Returns the new block's offset, or false when the
// space is simply not there.
func (a *Arena) stringAlloc(n int) (int, bool) {
	if n == 0 {
		return 0, true
	}
	if a.stringStart-n < a.arrayStart {
		a.CollectGarbage()
		if a.stringStart-n < a.arrayStart {
			return 0, false
		}
	}
	a.stringStart -= n
	return a.stringStart, true
}

// NewString copies b into the heap and returns its descriptor. Fails with
// LS when b exceeds the maximum length and OS when the heap cannot hold it.
func (a *Arena) NewString(b []byte) (StrDesc, error) {
	if len(b) > MaxStringLength {
		return StrDesc{}, codeErr(ErrLS)
	}
	if len(b) == 0 {
		return StrDesc{}, nil
	}
	ptr, ok := a.stringAlloc(len(b))
	if !ok {
		return StrDesc{}, codeErr(ErrOS)
	}
	copy(a.data[ptr:], b)
	return StrDesc{Length: len(b), Ptr: ptr}, nil
}

// CollectGarbage compacts the live strings against the top of the arena and
// resets the heap's low-water mark. Live strings are the ones referenced
// from scalar string variables; descriptors are rewritten in place as their
// bytes move.
func (a *Arena) CollectGarbage() {
	type live struct {
		slot  int
		bytes []byte
	}
	var keep []live
	total := 0
	for i := 0; i < a.varCount; i++ {
		off := a.varSlot(i)
		if a.data[off+1]&0x80 == 0 {
			continue
		}
		d := a.readDesc(off + 2)
		if d.Length == 0 || d.Ptr == 0 {
			continue
		}
		// Snapshot the bytes so compaction order cannot clobber a string
		// that has not moved yet.
		b := make([]byte, d.Length)
		copy(b, a.data[d.Ptr:d.Ptr+d.Length])
		keep = append(keep, live{slot: off, bytes: b})
		total += d.Length
	}

	newStart := a.stringEnd
	for _, s := range keep {
		newStart -= len(s.bytes)
		copy(a.data[newStart:], s.bytes)
		a.writeDesc(s.slot+2, StrDesc{Length: len(s.bytes), Ptr: newStart})
	}
	reclaimed := newStart - a.stringStart
	a.stringStart = newStart
	logger.MemoryDebug("string gc: %d live strings, %d bytes kept, %d reclaimed",
		len(keep), total, reclaimed)
}

// Concat returns the concatenation of two strings as a fresh heap string.
func (a *Arena) Concat(left, right StrDesc) (StrDesc, error) {
	total := left.Length + right.Length
	if total > MaxStringLength {
		return StrDesc{}, codeErr(ErrLS)
	}
	buf := make([]byte, 0, total)
	buf = append(buf, a.StringBytes(left)...)
	buf = append(buf, a.StringBytes(right)...)
	return a.NewString(buf)
}

// Left returns the leftmost n characters (LEFT$).
func (a *Arena) Left(d StrDesc, n int) (StrDesc, error) {
	if n > d.Length {
		n = d.Length
	}
	return a.copySlice(d, 0, n)
}

// Right returns the rightmost n characters (RIGHT$).
func (a *Arena) Right(d StrDesc, n int) (StrDesc, error) {
	if n > d.Length {
		n = d.Length
	}
	return a.copySlice(d, d.Length-n, n)
}

// Mid returns n characters starting at the 1-based position (MID$), clamped
// to what is actually there.
func (a *Arena) Mid(d StrDesc, start, n int) (StrDesc, error) {
	if start > d.Length {
		return StrDesc{}, nil
	}
	avail := d.Length - start + 1
	if n > avail {
		n = avail
	}
	return a.copySlice(d, start-1, n)
}

func (a *Arena) copySlice(d StrDesc, from, n int) (StrDesc, error) {
	if n <= 0 {
		return StrDesc{}, nil
	}
	buf := make([]byte, n)
	copy(buf, a.StringBytes(d)[from:from+n])
	return a.NewString(buf)
}

// CompareStrings orders two strings byte by byte, shorter-is-less on a
// common prefix.
func (a *Arena) CompareStrings(left, right StrDesc) int {
	lb, rb := a.StringBytes(left), a.StringBytes(right)
	n := len(lb)
	if len(rb) < n {
		n = len(rb)
	}
	for i := 0; i < n; i++ {
		if lb[i] != rb[i] {
			if lb[i] < rb[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(lb) < len(rb):
		return -1
	case len(lb) > len(rb):
		return 1
	}
	return 0
}
