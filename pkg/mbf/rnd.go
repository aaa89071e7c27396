package mbf

// Rand is the RND function state: a 24-bit multiplicative congruence
// generator seeded the way the original seeds it, returning values in
// [0, 1). RND(0) repeats the previous value, RND with a negative
// argument reseeds from that argument, RND with a positive argument
// steps the sequence.
type Rand struct {
	seed uint32
	last Word
}

const (
	rndMultiplier = 16598013
	rndIncrement  = 12820163
	rndModMask    = 1<<24 - 1
)

// NewRand returns a generator with the original's power-on seed.
func NewRand() *Rand {
	r := &Rand{seed: 0x527924} // arbitrary nonzero start, matches a warm boot
	r.last = r.step()
	return r
}

func (r *Rand) step() Word {
	r.seed = (r.seed*rndMultiplier + rndIncrement) & rndModMask
	return pack(float64(r.seed) / (1 << 24))
}

// Next evaluates RND(arg).
func (r *Rand) Next(arg Word) Word {
	switch Sign(arg) {
	case 0:
		return r.last
	case -1:
		// Reseed deterministically from the argument's mantissa bytes.
		r.seed = uint32(arg[0]) | uint32(arg[1])<<8 | uint32(arg[2]&0x7F)<<16
		if r.seed == 0 {
			r.seed = 1
		}
	}
	r.last = r.step()
	return r.last
}
