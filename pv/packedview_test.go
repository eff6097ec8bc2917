package pv

import "testing"

func TestGetSetRoundTrip(t *testing.T) {
	v := New(13, 20)
	for i := uint64(0); i < 20; i++ {
		v.Set(i, i*37%8192)
	}
	for i := uint64(0); i < 20; i++ {
		want := i * 37 % 8192
		if got := v.Get(i); got != want {
			t.Errorf("Get(%d) = %d, want %d", i, got, want)
		}
	}
}

func TestRepeatGet(t *testing.T) {
	widths := []int{1, 5, 13, 31}
	for _, w := range widths {
		n := uint64(40)
		v := New(w, n)
		val := uint64(1<<(w-1)) - 1 // largest value with flag bit clear
		v.Repeat(0, n, val)
		for i := uint64(0); i < n; i++ {
			if got := v.Get(i); got != val {
				t.Errorf("w=%d: Get(%d) = %d, want %d", w, i, got, val)
			}
		}
	}
}

func TestRepeatPartialRange(t *testing.T) {
	v := New(5, 20)
	v.Repeat(3, 9, 17)
	for i := uint64(0); i < 20; i++ {
		want := uint64(0)
		if i >= 3 && i < 9 {
			want = 17
		}
		if got := v.Get(i); got != want {
			t.Errorf("Get(%d) = %d, want %d", i, got, want)
		}
	}
}

func TestFind(t *testing.T) {
	v := New(8, 8)
	values := []uint64{10, 20, 5, 100, 7, 60, 3, 90}
	for i, val := range values {
		v.Set(uint64(i), val)
	}
	got := v.Find(0, 8, 50)
	want := 5 // 10, 20, 5, 7, 3
	if got != want {
		t.Errorf("Find(0,8,50) = %d, want %d", got, want)
	}

	if got := v.Find(0, 8, 0); got != 0 {
		t.Errorf("Find(0,8,0) = %d, want 0", got)
	}
	if got := v.Find(0, 8, 101); got != 8 {
		t.Errorf("Find(0,8,101) = %d, want 8", got)
	}
}

// TestFindThresholdTopBitSet guards against the threshold's own flag bit
// leaking into the SWAR subtraction: a threshold at or above 2^(w-1) must
// still be treated as larger than every field that fits in w-1 bits.
func TestFindThresholdTopBitSet(t *testing.T) {
	v := New(8, 8)
	values := []uint64{3, 100, 0, 0, 0, 0, 0, 0}
	for i, val := range values {
		v.Set(uint64(i), val)
	}
	if got := v.Find(0, 8, 133); got != 8 {
		t.Errorf("Find(0,8,133) = %d, want 8", got)
	}
}

func TestFindSubRangeAndMultiChunk(t *testing.T) {
	// width 5 -> 12 fields per word; use 30 fields to force multiple chunks.
	v := New(5, 30)
	for i := uint64(0); i < 30; i++ {
		v.Set(i, i%16)
	}
	got := v.Find(0, 30, 8)
	want := 0
	for i := uint64(0); i < 30; i++ {
		if i%16 < 8 {
			want++
		}
	}
	if got != want {
		t.Errorf("Find(0,30,8) = %d, want %d", got, want)
	}

	got = v.Find(10, 25, 8)
	want = 0
	for i := uint64(10); i < 25; i++ {
		if i%16 < 8 {
			want++
		}
	}
	if got != want {
		t.Errorf("Find(10,25,8) = %d, want %d", got, want)
	}
}

func TestCopyRangeAndAddRange(t *testing.T) {
	src := New(10, 16)
	dst := New(10, 16)
	for i := uint64(0); i < 16; i++ {
		src.Set(i, i*3+1)
	}

	dst.CopyRange(src, 2, 6, 8)
	for i := uint64(0); i < 4; i++ {
		want := src.Get(2 + i)
		if got := dst.Get(8 + i); got != want {
			t.Errorf("after CopyRange, dst.Get(%d) = %d, want %d", 8+i, got, want)
		}
	}

	dst.AddRange(src, 2, 6, 8)
	for i := uint64(0); i < 4; i++ {
		want := src.Get(2+i) * 2
		if got := dst.Get(8 + i); got != want {
			t.Errorf("after AddRange, dst.Get(%d) = %d, want %d", 8+i, got, want)
		}
	}
}

func TestRefGetSetAdd(t *testing.T) {
	v := New(12, 10)
	r := v.At(4)
	r.Set(100)
	if got := r.Get(); got != 100 {
		t.Errorf("Ref.Get() = %d, want 100", got)
	}
	if got := r.Add(25); got != 125 {
		t.Errorf("Ref.Add(25) = %d, want 125", got)
	}
	if got := v.Get(4); got != 125 {
		t.Errorf("Get(4) after Ref.Add = %d, want 125", got)
	}
}

func TestAddConst(t *testing.T) {
	v := New(10, 8)
	for i := uint64(0); i < 8; i++ {
		v.Set(i, i*10)
	}
	v.AddConst(2, 6, 5)
	for i := uint64(0); i < 8; i++ {
		want := i * 10
		if i >= 2 && i < 6 {
			want += 5
		}
		if got := v.Get(i); got != want {
			t.Errorf("Get(%d) = %d, want %d", i, got, want)
		}
	}
}

func TestShiftFieldsUp(t *testing.T) {
	v := New(8, 6)
	for i := uint64(0); i < 6; i++ {
		v.Set(i, (i+1)*11)
	}
	v.ShiftFieldsUp(1, 5)
	want := []uint64{11, 0, 22, 33, 44, 66}
	for i, w := range want {
		if got := v.Get(uint64(i)); got != w {
			t.Errorf("Get(%d) = %d, want %d", i, got, w)
		}
	}
}

func TestDebugStringLength(t *testing.T) {
	v := New(4, 5)
	v.Repeat(0, 5, 9)
	s := v.DebugString()
	if s != "9 9 9 9 9" {
		t.Errorf("DebugString() = %q, want %q", s, "9 9 9 9 9")
	}
}
