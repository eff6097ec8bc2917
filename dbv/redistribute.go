package dbv

import (
	"github.com/arborwave/dbv/bv"
	"github.com/arborwave/dbv/internal/bitprim"
	"github.com/arborwave/dbv/pv"
)

func (t *Tree) allocLeaf() uint64 {
	bitprim.Assert(t.freeLeaf < uint64(len(t.leaves)), "leaf arena exhausted")
	idx := t.freeLeaf
	t.freeLeaf++
	return idx
}

func (t *Tree) allocNode() uint64 {
	bitprim.Assert(t.freeNode < t.maxNodes, "node arena exhausted")
	idx := t.freeNode
	t.freeNode++
	return idx
}

// insertChild opens a new child slot at position k of node, shifting
// whatever sits at [k, d] (pointers) and [k, d) (sizes/ranks) up by one so
// the content that used to be at k survives at k+1, and allocates the new
// child (a leaf if isLeaf, otherwise a node). Precondition: k <= d, i.e. the
// node has a free trailing slot for the shift to land in; callers (via the
// root pre-split check) must guarantee this holds.
func (t *Tree) insertChild(node uint64, k int, isLeaf bool) uint64 {
	bitprim.Assert(k <= t.d, "insertChild: no room to widen child window")

	sizesBegin := t.sizesBegin(node)
	if k < t.d {
		t.sizesPV.ShiftFieldsUp(sizesBegin+uint64(k), sizesBegin+uint64(t.d))
		t.ranksPV.ShiftFieldsUp(sizesBegin+uint64(k), sizesBegin+uint64(t.d))
		// The shift clears slot k; give it the counters of the slot before
		// so the new child reads as empty.
		s, r := t.prefix(node, k)
		t.setSizeAt(node, k, s)
		t.setRankAt(node, k, r)
	}

	pointersBegin := t.pointersBegin(node)
	t.pointersPV.ShiftFieldsUp(pointersBegin+uint64(k), pointersBegin+uint64(t.d+1))

	var newChild uint64
	if isLeaf {
		newChild = t.allocLeaf()
	} else {
		newChild = t.allocNode()
	}
	t.setPointerAt(node, k, newChild)
	return newChild
}

// slotsFree reports how many bits (leaf level) or keys (node level) of
// capacity remain free in node's i-th child. A vacant child (no leaf/node
// allocated yet) is fully free.
func (t *Tree) slotsFree(node uint64, i int, isLeaf bool, maxcount int, subtreeTotal uint64) int {
	ptr := t.pointerAt(node, i)
	if ptr == 0 {
		return maxcount
	}
	if isLeaf {
		used := int(t.childBitSize(node, i, subtreeTotal))
		return maxcount - used
	}
	childTotal := t.childBitSize(node, i, subtreeTotal)
	used := t.nkeys(ptr, childTotal)
	return maxcount - used
}

// findAdjacentChildren slides a window of width buffer across node's
// children, keeping it anchored so it always contains child, and returns
// the window with the most free capacity along with the total bits/keys
// actually in use across it. The initial window position replicates the
// off-by-one seen in the reference implementation: begin starts at
// child-buffer-1 (not child-buffer) once child exceeds buffer.
func (t *Tree) findAdjacentChildren(node uint64, child int, buffer int, maxcount int, isLeaf bool, subtreeTotal uint64) (begin, end int, total uint64) {
	limit := t.d + 1
	initBegin := 0
	if child > buffer {
		initBegin = child - buffer - 1
	}

	bestBegin, bestEnd, bestFree := -1, -1, -1
	for b := initBegin; b <= child; b++ {
		e := b + buffer
		if e > limit {
			e = limit
		}
		if e <= child || b >= limit {
			continue
		}
		sum := 0
		for i := b; i < e; i++ {
			sum += t.slotsFree(node, i, isLeaf, maxcount, subtreeTotal)
		}
		if sum > bestFree {
			bestFree, bestBegin, bestEnd = sum, b, e
		}
	}

	if bestBegin < 0 {
		bestBegin, bestEnd = child, child+1
		if bestEnd > limit {
			bestEnd = limit
		}
		bestFree = 0
		for i := bestBegin; i < bestEnd; i++ {
			bestFree += t.slotsFree(node, i, isLeaf, maxcount, subtreeTotal)
		}
	}

	total = uint64(maxcount*(bestEnd-bestBegin) - bestFree)
	return bestBegin, bestEnd, total
}

func (t *Tree) ensureScratch(total uint64) {
	if t.scratchBits == nil || total > t.scratchCap {
		t.scratchBits = pv.New(1, total)
		t.scratchCap = total
	}
}

// redistributeBits spreads the total bits currently held by the leaves of
// node's children [begin, end) evenly across that same window, allocating a
// leaf for any child slot that is still vacant, and rebuilds the cumulative
// size/rank counters the window covers.
func (t *Tree) redistributeBits(node uint64, begin, end int, total, totalBits uint64) {
	windowSize := uint64(end - begin)
	t.ensureScratch(total)

	var offset uint64
	for i := begin; i < end; i++ {
		ptr := t.pointerAt(node, i)
		if ptr == 0 {
			continue
		}
		n := t.childBitSize(node, i, totalBits)
		if n == 0 {
			continue
		}
		var buf [1]uint64
		buf[0] = t.leaves[ptr]
		src := bv.Borrow(buf[:], n)
		t.scratchBits.Bits().Copy(src, 0, n, offset)
		offset += n
	}
	bitprim.Assert(offset == total, "redistributeBits: collected bit count mismatch")

	per := total / windowSize
	rem := total % windowSize

	prefixSize, prefixRank := t.prefix(node, begin)
	cumSize, cumRank := prefixSize, prefixRank

	var readOffset uint64
	for i := begin; i < end; i++ {
		n := per
		if rem > 0 {
			n++
			rem--
		}

		ptr := t.pointerAt(node, i)
		if ptr == 0 {
			ptr = t.allocLeaf()
			t.setPointerAt(node, i, ptr)
		}

		var word uint64
		if n > 0 {
			var buf [1]uint64
			dst := bv.Borrow(buf[:], n)
			dst.Copy(t.scratchBits.Bits(), readOffset, readOffset+n, 0)
			word = buf[0]
		}
		t.leaves[ptr] = word
		readOffset += n

		cumSize += n
		cumRank += uint64(bitprim.Popcount(word))
		if i < t.d {
			t.setSizeAt(node, i, cumSize)
			t.setRankAt(node, i, cumRank)
		}
	}
}

// prefix returns the cumulative (size, rank) of node immediately before
// position begin: 0 if begin == 0, otherwise the stored counter at
// begin-1.
func (t *Tree) prefix(node uint64, begin int) (uint64, uint64) {
	if begin == 0 {
		return 0, 0
	}
	return t.sizeAt(node, begin-1), t.rankAt(node, begin-1)
}

type grandchild struct {
	size, rank, pointer uint64
}

// redistributeKeys is redistributeBits' counterpart one level up: it spreads
// the (size, rank, pointer) triples of all grandchildren held by node's
// children [begin, end) evenly across that window of child nodes,
// allocating a node for any vacant slot, and rebuilds node's own cumulative
// counters over the window. totalRank is node's own subtree rank total,
// needed to derive the last grandchild's rank contribution within any child
// whose window position is the implicit last slot.
func (t *Tree) redistributeKeys(node uint64, begin, end int, totalBits, totalRank uint64) {
	windowSize := end - begin

	childTotalBits := make([]uint64, end-begin)
	childTotalRank := make([]uint64, end-begin)
	prefixSize, prefixRank := t.prefix(node, begin)
	for i := begin; i < end; i++ {
		childTotalBits[i-begin] = t.childBitSize(node, i, totalBits)
		childTotalRank[i-begin] = t.childRankSize(node, i, totalRank)
	}

	var items []grandchild
	for i := begin; i < end; i++ {
		childNode := t.pointerAt(node, i)
		if childNode == 0 {
			continue
		}
		total := childTotalBits[i-begin]
		rankTotal := childTotalRank[i-begin]
		nk := t.nkeys(childNode, total)
		for j := 0; j < nk; j++ {
			sz := t.childBitSize(childNode, j, total)
			rk := t.childRankSize(childNode, j, rankTotal)
			ptr := t.pointerAt(childNode, j)
			items = append(items, grandchild{sz, rk, ptr})
		}
	}

	n := uint64(len(items))
	var per, rem uint64
	if windowSize > 0 {
		per = n / uint64(windowSize)
		rem = n % uint64(windowSize)
	}

	cumSize, cumRank := prefixSize, prefixRank
	var pos uint64
	for i := begin; i < end; i++ {
		count := per
		if rem > 0 {
			count++
			rem--
		}

		childNode := t.pointerAt(node, i)
		if childNode == 0 {
			childNode = t.allocNode()
			t.setPointerAt(node, i, childNode)
		}

		var childSize, childRank uint64
		for j := uint64(0); j < count; j++ {
			it := items[pos]
			pos++
			childSize += it.size
			childRank += it.rank
			if j < uint64(t.d) {
				t.setSizeAt(childNode, int(j), childSize)
				t.setRankAt(childNode, int(j), childRank)
			}
			t.setPointerAt(childNode, int(j), it.pointer)
		}
		for j := count; j < uint64(t.d); j++ {
			t.setSizeAt(childNode, int(j), childSize)
			t.setRankAt(childNode, int(j), childRank)
		}
		for j := count; j <= uint64(t.d); j++ {
			t.setPointerAt(childNode, int(j), 0)
		}

		cumSize += childSize
		cumRank += childRank
		if i < t.d {
			t.setSizeAt(node, i, cumSize)
			t.setRankAt(node, i, cumRank)
		}
	}
}

// ensureLeafChildNotFull guarantees node's child at position child (a leaf)
// has room for one more bit, redistributing bits among a window of its
// siblings, widening that window by inserting a brand new leaf only when
// the window is already too full to take the redistribution in place: the
// threshold is total_bits >= b*(W-b), the point past which a window of
// width b can no longer hold one more bit per leaf without one of them
// overflowing on the very next insert.
func (t *Tree) ensureLeafChildNotFull(node uint64, child int, totalBits uint64) {
	if t.childBitSize(node, child, totalBits) < uint64(pv.W) {
		return
	}
	begin, end, total := t.findAdjacentChildren(node, child, t.b, pv.W, true, totalBits)
	redistributionsTotal.WithLabelValues("leaf").Inc()
	if total < uint64(t.b)*uint64(pv.W-t.b) {
		t.redistributeBits(node, begin, end, total, totalBits)
		return
	}
	bitprim.Assert(end <= t.d, "ensureLeafChildNotFull: node has no free child slot")
	t.insertChild(node, end, true)
	t.redistributeBits(node, begin, end+1, total, totalBits)
}

// ensureNodeChildNotFull is ensureLeafChildNotFull's counterpart for an
// internal child: it guarantees node's child at position child (itself a
// node) has room for one more key. Unlike the leaf case, there is no
// redistribute-in-place branch here: a full internal child always widens
// its sibling window by one and redistributes grandchildren across it.
func (t *Tree) ensureNodeChildNotFull(node uint64, child int, totalBits, totalRank uint64) {
	childNode := t.pointerAt(node, child)
	childTotal := t.childBitSize(node, child, totalBits)
	if childNode == 0 || t.nkeys(childNode, childTotal) < t.d {
		return
	}
	begin, end, _ := t.findAdjacentChildren(node, child, t.bPrime, t.d, false, totalBits)
	redistributionsTotal.WithLabelValues("node").Inc()
	bitprim.Assert(end <= t.d, "ensureNodeChildNotFull: node has no free child slot")
	t.insertChild(node, end, false)
	t.redistributeKeys(node, begin, end+1, totalBits, totalRank)
}

// splitRoot doubles the tree's height by wrapping the root, never by moving
// it: the root's three words (sizes, ranks, pointers) are copied to a
// freshly allocated slot, and the root itself — pinned at node-index 0 for
// the tree's lifetime — is overwritten in place to have that copy as its
// sole child, its cumulative counters broadcasting the tree's current
// total size/rank across every field. Dividing the old root's d keys
// between the copy and a sibling is not this function's job: the copy is
// now simply node 0's one full child, and the ordinary
// ensureNodeChildNotFull path that runs immediately afterward on the
// recursion into it is what actually widens and redistributes. It is the
// only operation that grows height, and runs only when the root itself has
// no vacant child slot left.
func (t *Tree) splitRoot() {
	oldRoot := t.root
	copyNode := t.allocNode()

	oldBegin := t.sizesBegin(oldRoot)
	copyBegin := t.sizesBegin(copyNode)
	t.sizesPV.CopyRange(t.sizesPV, oldBegin, oldBegin+uint64(t.d), copyBegin)
	t.ranksPV.CopyRange(t.ranksPV, oldBegin, oldBegin+uint64(t.d), copyBegin)

	oldPointersBegin := t.pointersBegin(oldRoot)
	copyPointersBegin := t.pointersBegin(copyNode)
	t.pointersPV.CopyRange(t.pointersPV, oldPointersBegin, oldPointersBegin+uint64(t.d+1), copyPointersBegin)

	t.sizesPV.Repeat(oldBegin, oldBegin+uint64(t.d), t.size)
	t.ranksPV.Repeat(oldBegin, oldBegin+uint64(t.d), t.rank)
	t.setPointerAt(oldRoot, 0, copyNode)
	for i := 1; i <= t.d; i++ {
		t.setPointerAt(oldRoot, i, 0)
	}

	t.height++

	rootSplitsTotal.Inc()
	treeHeight.Set(float64(t.height))

	if t.logger != nil {
		t.logger.Debug("root split", "new_height", t.height)
	}
}
