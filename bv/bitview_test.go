package bv

import "testing"

func TestGetSetSingleBit(t *testing.T) {
	v := New(128)
	v.Set(5, 1)
	if got := v.Get(5); got != 1 {
		t.Errorf("Get(5) = %d, want 1", got)
	}
	v.Set(5, 0)
	if got := v.Get(5); got != 0 {
		t.Errorf("Get(5) = %d, want 0", got)
	}
}

// Reproduces the bit-layout scenario worked through by hand against the
// teacher's own single-bit indexing idiom: a word manually set to all-ones,
// a single bit cleared, a 16-bit field written straddling two words, and a
// single bit set in a third word.
func TestCrossWordLayout(t *testing.T) {
	v := New(256)
	words := v.Words()
	words[0] = ^uint64(0)

	v.Set(5, 0)
	begin, end := uint64(120), uint64(136)
	v.SetRange(begin, end, 12345)
	v.Set(195, 1)

	wantWords := []uint64{
		0xFFFFFFFFFFFFFFDF,
		0x3900000000000000,
		0x30,
		8,
	}
	for i, want := range wantWords {
		if got := words[i]; got != want {
			t.Errorf("words[%d] = %#x, want %#x", i, got, want)
		}
	}

	if got := v.Get(5); got != 0 {
		t.Errorf("Get(5) = %d, want 0", got)
	}
	if got := v.GetRange(begin, end); got != 12345 {
		t.Errorf("GetRange(%d,%d) = %d, want 12345", begin, end, got)
	}
	if got := v.Get(195); got != 1 {
		t.Errorf("Get(195) = %d, want 1", got)
	}

	v2 := New(256)
	v2.Copy(v, begin, end, 42)
	if got := v2.GetRange(42, 42+(end-begin)); got != 12345 {
		t.Errorf("after Copy, GetRange(42,58) = %d, want 12345", got)
	}

	v2.SetSum(v, begin, end, 42)
	if got := v2.GetRange(42, 42+(end-begin)); got != 24690 {
		t.Errorf("after SetSum, GetRange(42,58) = %d, want 24690", got)
	}
}

// SumWithCarry must satisfy: writing x at [0,n) and calling
// SumWithCarry(0, n, c, y) returns ((x+y+c) mod 2^n, (x+y+c) >= 2^n).
func TestSumWithCarryProperty(t *testing.T) {
	cases := []struct {
		n        uint64
		x, y     uint64
		carryIn  bool
		wantSum  uint64
		wantCarr bool
	}{
		{n: 8, x: 250, y: 10, carryIn: false, wantSum: 4, wantCarr: true},   // 260 mod 256 = 4
		{n: 8, x: 250, y: 5, carryIn: false, wantSum: 255, wantCarr: false}, // 255 < 256
		{n: 8, x: 250, y: 5, carryIn: true, wantSum: 0, wantCarr: true},     // 256 mod 256 = 0
		{n: 16, x: 12345, y: 12345, carryIn: false, wantSum: 24690, wantCarr: false},
		{n: 64, x: ^uint64(0), y: 1, carryIn: false, wantSum: 0, wantCarr: true},
		{n: 64, x: 1 << 63, y: 1 << 63, carryIn: false, wantSum: 0, wantCarr: true},
	}
	for _, c := range cases {
		v := New(64)
		v.SetRange(0, c.n, c.x)
		gotSum, gotCarry := v.SumWithCarry(0, c.n, c.carryIn, c.y)
		if gotSum != c.wantSum || gotCarry != c.wantCarr {
			t.Errorf("n=%d x=%d y=%d carryIn=%v: SumWithCarry = (%d,%v), want (%d,%v)",
				c.n, c.x, c.y, c.carryIn, gotSum, gotCarry, c.wantSum, c.wantCarr)
		}
	}
}

func TestGrowOwned(t *testing.T) {
	v := New(10)
	v.Grow(200)
	if got := v.Len(); got != 200 {
		t.Errorf("Len() = %d, want 200", got)
	}
	if got := len(v.Words()); got < 4 {
		t.Errorf("len(Words()) = %d, want at least 4", got)
	}
}

func TestBorrowDoesNotGrow(t *testing.T) {
	words := make([]uint64, 2)
	v := Borrow(words, 128)
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic growing a borrowed view past its capacity")
		}
	}()
	v.Grow(256)
}

func TestRangeWithinSingleWord(t *testing.T) {
	v := New(64)
	v.SetRange(10, 20, 0x3FF)
	if got := v.GetRange(10, 20); got != 0x3FF {
		t.Errorf("GetRange(10,20) = %#x, want 0x3ff", got)
	}
	if got := v.Get(9); got != 0 {
		t.Errorf("bit 9 should be untouched, got %d", got)
	}
	if got := v.Get(20); got != 0 {
		t.Errorf("bit 20 should be untouched, got %d", got)
	}
}
