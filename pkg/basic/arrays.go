package basic

import "github.com/journich/altairbasic/pkg/mbf"

// Arrays sit between the scalar variables and arrayStart. Each one is a
// header followed by its elements:
//
//	name[2]  ndims[1]  dim1[2, LE]  (dim2[2, LE] when ndims is 2)  elements...
//
// A stored dim is the declared bound; subscripts run 0 through the bound
// inclusive, so a dimension holds bound+1 elements. Elements are four bytes,
// a number or a string descriptor depending on the array's name type.

const maxArrayBound = 32767

func (a *Arena) arrayRegionStart() int {
	return a.varSlot(a.varCount)
}

func (a *Arena) arrayHeaderSize(off int) int {
	if a.data[off+2] == 2 {
		return 7
	}
	return 5
}

func (a *Arena) arrayBlockSize(off int) int {
	count := a.getU16(off+3) + 1
	if a.data[off+2] == 2 {
		count *= a.getU16(off+5) + 1
	}
	return a.arrayHeaderSize(off) + count*4
}

func (a *Arena) arrayFind(id [2]byte) (int, bool) {
	off := a.arrayRegionStart()
	for off < a.arrayStart {
		if a.data[off] == id[0] && a.data[off+1] == id[1] {
			return off, true
		}
		off += a.arrayBlockSize(off)
	}
	return 0, false
}

// ArrayCreate dimensions a new array with zeroed elements. An existing
// array with the same name is DD, a bound outside 0..32767 is BS, and
// insufficient space is OM.
func (a *Arena) ArrayCreate(id [2]byte, bounds []int) error {
	if _, ok := a.arrayFind(id); ok {
		return codeErr(ErrDD)
	}
	if len(bounds) < 1 || len(bounds) > 2 {
		return codeErr(ErrBS)
	}
	count := 1
	for _, b := range bounds {
		if b < 0 || b > maxArrayBound {
			return codeErr(ErrBS)
		}
		count *= b + 1
	}
	header := 5
	if len(bounds) == 2 {
		header = 7
	}
	size := header + count*4
	if size > a.Free() {
		return codeErr(ErrOM)
	}

	off := a.arrayStart
	a.data[off] = id[0]
	a.data[off+1] = id[1]
	a.data[off+2] = byte(len(bounds))
	a.putU16(off+3, bounds[0])
	if len(bounds) == 2 {
		a.putU16(off+5, bounds[1])
	}
	for i := off + header; i < off+size; i++ {
		a.data[i] = 0
	}
	a.arrayStart += size
	return nil
}

// arrayElement resolves the byte offset of one element, creating the array
// with a default bound of 10 per subscript when it does not exist yet.
// Subscript count mismatches and out-of-range subscripts are BS.
func (a *Arena) arrayElement(id [2]byte, subs []int) (int, error) {
	off, ok := a.arrayFind(id)
	if !ok {
		bounds := make([]int, len(subs))
		for i := range bounds {
			bounds[i] = 10
		}
		if err := a.ArrayCreate(id, bounds); err != nil {
			return 0, err
		}
		off, _ = a.arrayFind(id)
	}
	if int(a.data[off+2]) != len(subs) {
		return 0, codeErr(ErrBS)
	}
	dim1 := a.getU16(off + 3)
	if subs[0] < 0 || subs[0] > dim1 {
		return 0, codeErr(ErrBS)
	}
	idx := subs[0]
	if len(subs) == 2 {
		dim2 := a.getU16(off + 5)
		if subs[1] < 0 || subs[1] > dim2 {
			return 0, codeErr(ErrBS)
		}
		idx = subs[0]*(dim2+1) + subs[1]
	}
	return off + a.arrayHeaderSize(off) + idx*4, nil
}

// ArrayGetNumber reads one numeric element, auto-dimensioning on first
// touch.
func (a *Arena) ArrayGetNumber(id [2]byte, subs []int) (mbf.Word, error) {
	off, err := a.arrayElement(id, subs)
	if err != nil {
		return mbf.Zero, err
	}
	var w mbf.Word
	copy(w[:], a.data[off:off+4])
	return w, nil
}

// ArraySetNumber writes one numeric element, auto-dimensioning on first
// touch.
func (a *Arena) ArraySetNumber(id [2]byte, subs []int, w mbf.Word) error {
	off, err := a.arrayElement(id, subs)
	if err != nil {
		return err
	}
	copy(a.data[off:off+4], w[:])
	return nil
}

// ArrayGetString reads one string element's descriptor.
func (a *Arena) ArrayGetString(id [2]byte, subs []int) (StrDesc, error) {
	off, err := a.arrayElement(id, subs)
	if err != nil {
		return StrDesc{}, err
	}
	return a.readDesc(off), nil
}

// ArraySetString writes one string element's descriptor.
func (a *Arena) ArraySetString(id [2]byte, subs []int, d StrDesc) error {
	off, err := a.arrayElement(id, subs)
	if err != nil {
		return err
	}
	a.writeDesc(off, d)
	return nil
}
