package basic

import "github.com/journich/altairbasic/pkg/mbf"

// Scalar variables live between varStart and varStart+varCount*6 in
// creation order, six bytes each:
//
//	name[2]  value[4]
//
// The name is the first character plus the second character if it is
// alphanumeric; any further characters are ignored, so AB and ABC are the
// same variable. Bit 7 of the second name byte marks a string variable,
// whose value bytes hold a string descriptor instead of a number.

const varSlotSize = 6

// encodeVarName reduces an identifier (with optional $ suffix) to its
// two-byte stored form.
func encodeVarName(name string) [2]byte {
	var id [2]byte
	if len(name) == 0 {
		return id
	}
	id[0] = upper(name[0])
	if len(name) > 1 && isAlnum(name[1]) {
		id[1] = upper(name[1])
	}
	if name[len(name)-1] == '$' {
		id[1] |= 0x80
	}
	return id
}

// isStringName reports whether the encoded name denotes a string variable.
func isStringName(id [2]byte) bool { return id[1]&0x80 != 0 }

func (a *Arena) varSlot(i int) int { return a.varStart + i*varSlotSize }

// VarCount returns the number of scalar variables.
func (a *Arena) VarCount() int { return a.varCount }

// VarFind returns the slot offset of the variable, scanning in creation
// order.
func (a *Arena) VarFind(id [2]byte) (int, bool) {
	for i := 0; i < a.varCount; i++ {
		off := a.varSlot(i)
		if a.data[off] == id[0] && a.data[off+1] == id[1] {
			return off, true
		}
	}
	return 0, false
}

// VarCreate appends a zero-valued variable slot, shifting the array region
// up six bytes to make room. Fails with OM when the gap cannot absorb the
// slot.
func (a *Arena) VarCreate(id [2]byte) (int, error) {
	if a.Free() < varSlotSize {
		return 0, codeErr(ErrOM)
	}
	varEnd := a.varSlot(a.varCount)
	if a.arrayStart > varEnd {
		a.openGap(varEnd, a.arrayStart, varSlotSize)
	}
	a.data[varEnd] = id[0]
	a.data[varEnd+1] = id[1]
	for i := 2; i < varSlotSize; i++ {
		a.data[varEnd+i] = 0
	}
	a.varCount++
	a.arrayStart += varSlotSize
	return varEnd, nil
}

// VarFindOrCreate returns the slot for id, creating it when absent.
func (a *Arena) VarFindOrCreate(id [2]byte) (int, error) {
	if off, ok := a.VarFind(id); ok {
		return off, nil
	}
	return a.VarCreate(id)
}

// VarGetNumber reads a numeric variable. An unknown variable, or a string
// variable read numerically, yields zero rather than an error.
func (a *Arena) VarGetNumber(id [2]byte) mbf.Word {
	if isStringName(id) {
		return mbf.Zero
	}
	off, ok := a.VarFind(id)
	if !ok {
		return mbf.Zero
	}
	var w mbf.Word
	copy(w[:], a.data[off+2:off+6])
	return w
}

// VarSetNumber writes a numeric variable, creating it when absent.
func (a *Arena) VarSetNumber(id [2]byte, w mbf.Word) error {
	off, err := a.VarFindOrCreate(id)
	if err != nil {
		return err
	}
	copy(a.data[off+2:off+6], w[:])
	return nil
}

// VarGetString reads a string variable's descriptor; unknown variables read
// as the empty string.
func (a *Arena) VarGetString(id [2]byte) StrDesc {
	off, ok := a.VarFind(id)
	if !ok {
		return StrDesc{}
	}
	return a.readDesc(off + 2)
}

// VarSetString stores a string descriptor, creating the variable when
// absent. The previous string's bytes are reclaimed by the next garbage
// collection.
func (a *Arena) VarSetString(id [2]byte, d StrDesc) error {
	off, err := a.VarFindOrCreate(id)
	if err != nil {
		return err
	}
	a.writeDesc(off+2, d)
	return nil
}
