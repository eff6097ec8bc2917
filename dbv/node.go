package dbv

// Per-node accessors. A node's sizes/ranks live at field offset node*d in
// the tree-wide sizesPV/ranksPV packed views; its pointers live at field
// offset node*(d+1) in pointersPV. Every node occupies exactly one machine
// word's worth of bits in each array (d*c <= W, (d+1)*p <= W by
// construction), but the views themselves are simply large contiguous
// packed arrays spanning every node in the arena.

func (t *Tree) sizesBegin(node uint64) uint64    { return node * uint64(t.d) }
func (t *Tree) pointersBegin(node uint64) uint64 { return node * uint64(t.d+1) }

func (t *Tree) sizeAt(node uint64, k int) uint64 {
	return t.sizesPV.Get(t.sizesBegin(node) + uint64(k))
}

func (t *Tree) setSizeAt(node uint64, k int, v uint64) {
	t.sizesPV.Set(t.sizesBegin(node)+uint64(k), v)
}

func (t *Tree) rankAt(node uint64, k int) uint64 {
	return t.ranksPV.Get(t.sizesBegin(node) + uint64(k))
}

func (t *Tree) setRankAt(node uint64, k int, v uint64) {
	t.ranksPV.Set(t.sizesBegin(node)+uint64(k), v)
}

func (t *Tree) pointerAt(node uint64, k int) uint64 {
	return t.pointersPV.Get(t.pointersBegin(node) + uint64(k))
}

func (t *Tree) setPointerAt(node uint64, k int, v uint64) {
	t.pointersPV.Set(t.pointersBegin(node)+uint64(k), v)
}

// childBitSize returns the number of bits held by node's k-th child's
// subtree, given that node's own subtree holds subtreeTotal bits in total.
// For k == d (the implicit last child, which has no stored cumulative
// counter) this is derived from subtreeTotal.
func (t *Tree) childBitSize(node uint64, k int, subtreeTotal uint64) uint64 {
	switch {
	case k == 0:
		return t.sizeAt(node, 0)
	case k < t.d:
		return t.sizeAt(node, k) - t.sizeAt(node, k-1)
	default:
		return subtreeTotal - t.sizeAt(node, t.d-1)
	}
}

// childRankSize is childBitSize's counterpart over the ranks array: the
// number of set bits contributed by node's k-th child, given that node's
// own subtree holds totalRank set bits in total.
func (t *Tree) childRankSize(node uint64, k int, totalRank uint64) uint64 {
	switch {
	case k == 0:
		return t.rankAt(node, 0)
	case k < t.d:
		return t.rankAt(node, k) - t.rankAt(node, k-1)
	default:
		return totalRank - t.rankAt(node, t.d-1)
	}
}

// findInsertPointAt is the insert-side search described in spec.md §4.3:
// it returns the child whose cumulative size first exceeds index, with
// ties going to the leftmost such child, via the SWAR threshold count
// pv.View.Find already implements.
func (t *Tree) findInsertPointAt(node uint64, index uint64) (child int, newIndex uint64) {
	begin := t.sizesBegin(node)
	child = t.sizesPV.Find(begin, begin+uint64(t.d), index)
	if child > 0 {
		newIndex = index - t.sizeAt(node, child-1)
	} else {
		newIndex = index
	}
	return
}

// findAt is the read-side variant used by Access: identical to
// findInsertPointAt, except that landing exactly on a child's full size
// (meaning index actually addresses the first bit of the next child)
// advances to (child+1, 0).
func (t *Tree) findAt(node uint64, index uint64, subtreeTotal uint64) (child int, newIndex uint64) {
	child, newIndex = t.findInsertPointAt(node, index)
	if newIndex == t.childBitSize(node, child, subtreeTotal) {
		child++
		newIndex = 0
	}
	return
}

// nkeys returns the number of occupied child slots of node, whose own
// subtree holds subtreeTotal bits. Computed via find_insert_point(size-1)
// per spec.md §9's open question: the child returned when searching for
// the tree's very last bit is the last occupied child, so the count is
// child+1. Precondition: subtreeTotal > 0 (a non-empty subtree); callers
// must gate on this, matching the open question's stated assumption.
func (t *Tree) nkeys(node uint64, subtreeTotal uint64) int {
	if subtreeTotal == 0 {
		return 0
	}
	child, _ := t.findInsertPointAt(node, subtreeTotal-1)
	return child + 1
}
