package bitprim

import "testing"

func TestLowMask(t *testing.T) {
	cases := []struct {
		k    int
		want uint64
	}{
		{0, 0},
		{1, 0x1},
		{8, 0xFF},
		{63, 0x7FFFFFFFFFFFFFFF},
		{64, ^uint64(0)},
	}
	for _, c := range cases {
		if got := LowMask(c.k); got != c.want {
			t.Errorf("LowMask(%d) = %#x, want %#x", c.k, got, c.want)
		}
	}
}

func TestLowBits(t *testing.T) {
	if got := LowBits(0xFFFF, 8); got != 0xFF {
		t.Errorf("LowBits(0xFFFF, 8) = %#x, want 0xff", got)
	}
	if got := LowBits(0xFFFF, 0); got != 0 {
		t.Errorf("LowBits(0xFFFF, 0) = %#x, want 0", got)
	}
}

func TestPopcountZeroWidth(t *testing.T) {
	if got := Popcount(0); got != 0 {
		t.Errorf("Popcount(0) = %d, want 0", got)
	}
}

func TestInsertBit(t *testing.T) {
	// word = 0b1010, insert 1 at position 1: bit 0 stays, the new 1 lands at
	// bit 1 and the old bits 1.. move up one place -> 0b10110 = 0x16 (no top
	// bit to drop since word is tiny)
	word := uint64(0b1010)
	got := InsertBit(word, 1, 1)
	want := uint64(0b10110)
	if got != want {
		t.Errorf("InsertBit(0b1010, 1, 1) = %#b, want %#b", got, want)
	}
}

func TestInsertBitDropsTopBit(t *testing.T) {
	word := ^uint64(0) // all ones
	got := InsertBit(word, 0, 0)
	// inserting a 0 at position 0 shifts everything up by one and drops bit 63
	want := (word << 1)
	if got != want {
		t.Errorf("InsertBit(allones, 0, 0) = %#x, want %#x", got, want)
	}
}

func TestAssertPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	Assert(false, "boom")
}
