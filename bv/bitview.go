// Package bv provides a bit-addressable view over an ordered sequence of
// 64-bit machine words: single-bit and bounded-range get/set, cross-view
// copy and carry-propagating addition. It is the bottom layer the pv
// (packed field) and dbv (dynamic bit vector) packages build on.
package bv

import (
	"math/bits"

	"github.com/arborwave/dbv/internal/bitprim"
)

// W is the machine word width in bits.
const W = bitprim.W

// store is the small capability set a View needs from its backing words:
// read them, and (for owned views only) grow the count of words. Two
// concrete variants implement it — an owned, growable slice and a
// borrowed, fixed-size one — so a View never has to know which kind of
// storage it was handed.
type store interface {
	words() []uint64
	grow(n int)
}

// ownedStore is a View-allocated, growable backing slice.
type ownedStore struct {
	w []uint64
}

func (s *ownedStore) words() []uint64 { return s.w }

func (s *ownedStore) grow(n int) {
	if n <= len(s.w) {
		return
	}
	grown := make([]uint64, n)
	copy(grown, s.w)
	s.w = grown
}

// borrowedStore wraps a caller-owned slice. It never reallocates: growing
// past its fixed capacity is a programmer error.
type borrowedStore struct {
	w []uint64
}

func (s *borrowedStore) words() []uint64 { return s.w }

func (s *borrowedStore) grow(n int) {
	bitprim.Assert(n <= len(s.w), "borrowed bit view cannot grow past its fixed capacity")
}

// View is a bit-addressable window over a sequence of W-bit words. Bits at
// positions >= Len() are unspecified; only i < Len() is a defined read.
type View struct {
	st     store
	length uint64
}

func wordsFor(bitsLen uint64) int {
	return int((bitsLen + W - 1) / W)
}

// New allocates a zero-initialized View of the given logical length, in
// bits.
func New(bitsLen uint64) *View {
	return &View{
		st:     &ownedStore{w: make([]uint64, wordsFor(bitsLen))},
		length: bitsLen,
	}
}

// Borrow wraps an existing, fixed-size slice of words as a View of the
// given logical length without copying it. The caller retains ownership;
// Grow on the result panics once the slice's capacity is exhausted.
func Borrow(words []uint64, bitsLen uint64) *View {
	bitprim.Assert(uint64(len(words)) >= bitsLen/W, "borrowed slice too small for requested length")
	return &View{
		st:     &borrowedStore{w: words},
		length: bitsLen,
	}
}

// Len returns the logical length of the view, in bits.
func (v *View) Len() uint64 { return v.length }

// Words exposes the backing words directly, for tests and debug dumps.
func (v *View) Words() []uint64 { return v.st.words() }

// Grow extends the view to the given logical length, appending zero words
// as needed. Only owned views may grow past their current word count.
func (v *View) Grow(bitsLen uint64) {
	if bitsLen <= v.length {
		return
	}
	v.st.grow(wordsFor(bitsLen))
	v.length = bitsLen
}

// Get returns the single bit at position i (0 or 1). Precondition: i < Len().
func (v *View) Get(i uint64) uint64 {
	wi, bi := i/W, i%W
	return (v.st.words()[wi] >> bi) & 1
}

// Set writes a single bit at position i. Precondition: i < Len().
func (v *View) Set(i uint64, val uint64) {
	wi, bi := i/W, i%W
	if val&1 != 0 {
		v.st.words()[wi] |= uint64(1) << bi
	} else {
		v.st.words()[wi] &^= uint64(1) << bi
	}
}

// GetRange returns the bits in [begin, end), right-justified and
// zero-extended into a word. Precondition: end-begin <= W; the range
// straddles at most two underlying words.
func (v *View) GetRange(begin, end uint64) uint64 {
	width := end - begin
	if width == 0 {
		return 0
	}
	words := v.st.words()
	wi, bi := begin/W, begin%W
	available := W - bi

	low := words[wi] >> bi
	if width <= available {
		return low & bitprim.LowMask(int(width))
	}

	remaining := width - available
	high := words[wi+1] & bitprim.LowMask(int(remaining))
	return low | (high << available)
}

// SetRange writes the low end-begin bits of value into [begin, end),
// preserving the surrounding bits. Precondition: end-begin <= W; the
// range straddles at most two underlying words.
func (v *View) SetRange(begin, end uint64, value uint64) {
	width := end - begin
	if width == 0 {
		return
	}
	words := v.st.words()
	wi, bi := begin/W, begin%W
	available := W - bi

	if width <= available {
		mask := bitprim.LowMask(int(width)) << bi
		words[wi] = (words[wi] &^ mask) | ((value & bitprim.LowMask(int(width))) << bi)
		return
	}

	// Low chunk goes into the high end of word wi...
	clearFromBi := ^uint64(0) << bi
	words[wi] = (words[wi] &^ clearFromBi) | ((value & bitprim.LowMask(int(available))) << bi)

	// ...and the remaining high bits of value go into the low end of wi+1.
	remaining := width - available
	highMask := bitprim.LowMask(int(remaining))
	words[wi+1] = (words[wi+1] &^ highMask) | ((value >> available) & highMask)
}

// Copy copies the end-begin bits in [src_begin, src_end) of src into self
// starting at dst_begin. It may span arbitrarily many words, proceeding
// W bits at a time. src and self must not alias the same backing storage.
func (v *View) Copy(src *View, srcBegin, srcEnd, dstBegin uint64) {
	n := srcEnd - srcBegin
	var copied uint64
	for copied < n {
		chunk := min64(W, n-copied)
		val := src.GetRange(srcBegin+copied, srcBegin+copied+chunk)
		v.SetRange(dstBegin+copied, dstBegin+copied+chunk, val)
		copied += chunk
	}
}

// SumWithCarry adds value to the bits in [begin, end) of self, both
// treated as unsigned integers of width end-begin bits, with an incoming
// carry. It returns the low end-begin bits of the sum and the outgoing
// carry; self is not modified.
func (v *View) SumWithCarry(begin, end uint64, carryIn bool, value uint64) (uint64, bool) {
	width := end - begin
	existing := v.GetRange(begin, end)
	value = bitprim.LowBits(value, int(width))

	var ci uint64
	if carryIn {
		ci = 1
	}

	s1, c1 := bits.Add64(existing, value, 0)
	s2, c2 := bits.Add64(s1, ci, 0)

	if width >= W {
		return s2, (c1 | c2) != 0
	}
	threshold := uint64(1) << width
	return s2 & (threshold - 1), s2 >= threshold
}

// SetSum adds the bit-range of src in place into self at dst_begin,
// carrying across word boundaries. It proceeds W bits at a time, reading
// each aligned slice of src and adding it onto the corresponding slice of
// self via SumWithCarry.
func (v *View) SetSum(src *View, srcBegin, srcEnd, dstBegin uint64) {
	n := srcEnd - srcBegin
	var carry bool
	var copied uint64
	for copied < n {
		chunk := min64(W, n-copied)
		srcVal := src.GetRange(srcBegin+copied, srcBegin+copied+chunk)
		sum, carryOut := v.SumWithCarry(dstBegin+copied, dstBegin+copied+chunk, carry, srcVal)
		v.SetRange(dstBegin+copied, dstBegin+copied+chunk, sum)
		carry = carryOut
		copied += chunk
	}
}

func min64(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}
