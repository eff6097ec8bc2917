// Package pv layers an array of equal-width packed bit-fields over a bv.View
// and exposes the SWAR (SIMD-within-a-register) operations that let the dbv
// B-tree manipulate whole ranges of counters in O(1) words instead of O(n)
// fields: broadcast, range-copy, range-add, and threshold count.
package pv

import (
	"strings"

	"github.com/arborwave/dbv/bv"
	"github.com/arborwave/dbv/internal/bitprim"
)

// W is the machine word width in bits, shared with bv.
const W = bitprim.W

// View is an array of N fields of width w bits, stored contiguously in a
// backing bit view.
type View struct {
	bits *bv.View
	w    int
	n    uint64

	fieldMask uint64 // bit 0 of every field set
	flagMask  uint64 // high bit of every field set
}

func computeFieldMask(w int) uint64 {
	var mask uint64
	for k := 0; k*w < W; k++ {
		mask |= uint64(1) << uint(k*w)
	}
	return mask
}

// New constructs a packed view of n fields, each w bits wide, backed by a
// freshly allocated bit view. Precondition: 1 <= w < W.
func New(w int, n uint64) *View {
	bitprim.Assert(w >= 1 && w < W, "packed field width must satisfy 1 <= w < W")
	return Wrap(bv.New(n*uint64(w)), w)
}

// Wrap layers a packed view of the given field width over an existing bit
// view, reusing its storage without copying. The bit view's length must be
// a multiple of w.
func Wrap(bits *bv.View, w int) *View {
	bitprim.Assert(w >= 1 && w < W, "packed field width must satisfy 1 <= w < W")
	return &View{
		bits:      bits,
		w:         w,
		n:         bits.Len() / uint64(w),
		fieldMask: computeFieldMask(w),
		flagMask:  computeFieldMask(w) << uint(w-1),
	}
}

// Width returns the field width in bits.
func (v *View) Width() int { return v.w }

// Len returns the number of fields.
func (v *View) Len() uint64 { return v.n }

// Bits exposes the underlying bit view, for callers (principally dbv) that
// need direct word access.
func (v *View) Bits() *bv.View { return v.bits }

func (v *View) fieldsPerWord() uint64 { return uint64(W / v.w) }

// Get returns the value stored in field k.
func (v *View) Get(k uint64) uint64 {
	begin := k * uint64(v.w)
	return v.bits.GetRange(begin, begin+uint64(v.w))
}

// Set writes lowbits(val, w) into field k.
func (v *View) Set(k uint64, val uint64) {
	begin := k * uint64(v.w)
	v.bits.SetRange(begin, begin+uint64(v.w), bitprim.LowBits(val, v.w))
}

// GetRange returns the concatenated bits of fields [begin, end) as a single
// machine word. Precondition: (end-begin)*w <= W.
func (v *View) GetRange(begin, end uint64) uint64 {
	return v.bits.GetRange(begin*uint64(v.w), end*uint64(v.w))
}

// SetRange writes val, a word of up to (end-begin)*w bits, into the
// concatenated field range [begin, end). Precondition: (end-begin)*w <= W.
func (v *View) SetRange(begin, end uint64, val uint64) {
	v.bits.SetRange(begin*uint64(v.w), end*uint64(v.w), val)
}

// Repeat broadcasts lowbits(val, w) into every field of [begin, end). It
// builds the word field_mask*lowbits(val,w) once and writes it fieldsPerWord
// fields at a time.
func (v *View) Repeat(begin, end uint64, val uint64) {
	pattern := v.fieldMask * bitprim.LowBits(val, v.w)
	fpw := v.fieldsPerWord()
	for i := begin; i < end; {
		chunk := min64(fpw, end-i)
		if chunk == fpw {
			v.SetRange(i, i+chunk, pattern)
		} else {
			v.SetRange(i, i+chunk, bitprim.LowBits(pattern, int(chunk)*v.w))
		}
		i += chunk
	}
}

// CopyRange copies the bit-identical contents of src's [srcBegin, srcEnd)
// field range into self starting at dstBegin, delegating to the bit view.
func (v *View) CopyRange(src *View, srcBegin, srcEnd uint64, dstBegin uint64) {
	bitprim.Assert(src.w == v.w, "CopyRange requires equal field widths")
	v.bits.Copy(src.bits, srcBegin*uint64(v.w), srcEnd*uint64(v.w), dstBegin*uint64(v.w))
}

// AddRange field-parallel adds src's [srcBegin, srcEnd) field range onto
// self's range starting at dstBegin, delegating to the bit view's
// carry-propagating addition. Per spec, no per-field carry isolation is
// performed here: callers keep the flag bit of each field free so a sum
// cannot overflow into a neighbouring field.
func (v *View) AddRange(src *View, srcBegin, srcEnd uint64, dstBegin uint64) {
	bitprim.Assert(src.w == v.w, "AddRange requires equal field widths")
	v.bits.SetSum(src.bits, srcBegin*uint64(v.w), srcEnd*uint64(v.w), dstBegin*uint64(v.w))
}

// AddConst adds delta, broadcast to every field, onto the fields in
// [begin, end) in place, field-parallel via the bit view's carry-propagating
// addition. Used for the cumulative-counter bumps the tree performs on
// sizes/ranks after an insert: incrementing every counter in a suffix range
// by a constant.
func (v *View) AddConst(begin, end uint64, delta uint64) {
	pattern := v.fieldMask * bitprim.LowBits(delta, v.w)
	fpw := v.fieldsPerWord()
	for i := begin; i < end; {
		chunk := min64(fpw, end-i)
		width := int(chunk) * v.w
		p := bitprim.LowBits(pattern, width)

		bbegin := i * uint64(v.w)
		bend := bbegin + uint64(width)
		sum, _ := v.bits.SumWithCarry(bbegin, bend, false, p)
		v.bits.SetRange(bbegin, bend, sum)

		i += chunk
	}
}

// ShiftFieldsUp shifts the content of the field window [begin, end) up by
// one field slot in place: the field at position end-1 is discarded, and
// the field at position begin becomes zero. Used by the tree's insert_child
// to open a hole for a freshly inserted child within a fixed-width counter
// or pointer array. Precondition: (end-begin)*w <= W.
func (v *View) ShiftFieldsUp(begin, end uint64) {
	if end <= begin {
		return
	}
	value := v.GetRange(begin, end)
	width := int(end-begin) * v.w
	shifted := bitprim.LowBits(value<<uint(v.w), width)
	v.SetRange(begin, end, shifted)
}

// Find returns the number of fields in [begin, end) whose value is strictly
// less than lowbits(val, w), using the branch-free SWAR threshold count:
// OR the flag bit into every field, subtract the broadcast threshold, and
// popcount the surviving flag bits. A field's flag bit survives the
// subtraction exactly when its value is >= the threshold. The trick depends
// on every field's flag bit being clear before the OR; a threshold with its
// own flag bit set would borrow across into the next field's flag bit
// during the subtraction, so such a threshold, which exceeds every
// flag-clear field, counts every field in the range without the SWAR pass.
func (v *View) Find(begin, end uint64, val uint64) int {
	threshold := bitprim.LowBits(val, v.w)
	if threshold >= uint64(1)<<uint(v.w-1) {
		if end > begin {
			return int(end - begin)
		}
		return 0
	}
	pattern := v.fieldMask * threshold
	fpw := v.fieldsPerWord()

	count := 0
	for i := begin; i < end; {
		chunk := min64(fpw, end-i)
		width := int(chunk) * v.w

		word := v.GetRange(i, i+chunk)
		flagBits := v.flagMask & bitprim.LowMask(width)
		patternBits := pattern & bitprim.LowMask(width)

		diff := (word | flagBits) - patternBits
		atOrAbove := bitprim.Popcount(diff & flagBits)
		count += int(chunk) - atOrAbove

		i += chunk
	}
	return count
}

// Ref is a lightweight handle onto a single field of a View, used in place
// of operator-overloaded reference types: Get/Set/Add read or mutate the
// field the handle points at.
type Ref struct {
	v *View
	k uint64
}

// At returns a Ref onto field k of v.
func (v *View) At(k uint64) Ref { return Ref{v: v, k: k} }

// Get reads the referenced field.
func (r Ref) Get() uint64 { return r.v.Get(r.k) }

// Set writes the referenced field.
func (r Ref) Set(val uint64) { r.v.Set(r.k, val) }

// Add adds val onto the referenced field in place and returns the masked
// result (the field's flag bit must be kept clear by the caller for this to
// not silently truncate).
func (r Ref) Add(val uint64) uint64 {
	begin := r.k * uint64(r.v.w)
	end := begin + uint64(r.v.w)
	sum, _ := r.v.bits.SumWithCarry(begin, end, false, val)
	r.v.bits.SetRange(begin, end, sum)
	return sum
}

// DebugString renders each field's value, space-separated, for debug
// output. It is the Go analogue of the original's to_binary dump.
func (v *View) DebugString() string {
	var b strings.Builder
	for i := uint64(0); i < v.n; i++ {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(uintToStr(v.Get(i)))
	}
	return b.String()
}

func uintToStr(x uint64) string {
	if x == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for x > 0 {
		i--
		buf[i] = byte('0' + x%10)
		x /= 10
	}
	return string(buf[i:])
}

func min64(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}
