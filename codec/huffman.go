package codec

import (
	"fmt"

	"github.com/cacheprobe/pagecomp/bitstream"
	"github.com/cacheprobe/pagecomp/page"
)

// Canonical Huffman over whole pages, ported from huffman1byte.h: a
// frequency table over the 256 byte values plus one escape symbol (index 256),
// with low-occurrence bytes folded into the escape symbol before the tree
// is built. Depths are normalized to at most 15 so codewords fit the header
// format below, then codewords are assigned in canonical order (ascending
// depth, ascending symbol).

const huffLowOccLimit = 9 // fixed threshold; the source notes an occupancy-proportional variant was tried and abandoned

// huffNode backs both the per-symbol occurrence list and, reused, the
// per-depth codeword-assignment list: info holds a count or a depth or a
// codeword depending on which pass is running, next chains to another
// index in the same array (-1 terminates), mirroring linked_node.
type huffNode struct {
	info int
	next int
}

// huffTreeNode is an internal Huffman tree node, mirroring linked_tree_node.
type huffTreeNode struct {
	info        int
	next        int
	left, right int
}

func huffIsTree(a int) bool { return a >= 257 }

func huffTreeIndex(a int) int {
	if a >= 257 {
		return a - 257
	}

	return a
}

func huffMakeTree(a int) int { return a + 257 }

// huffQuickSort sorts the linked list starting at head in ascending info
// order, mirroring Huffman1_quick_sort. Returns the new head; *tail is set
// to the new tail.
func huffQuickSort(list []huffNode, head int, tail *int) int {
	heads := [2]int{-1, -1}
	tails := [2]int{-1, -1}
	*tail = head

	for i := list[head].next; i != -1; {
		next := list[i].next
		bucket := 1
		if list[i].info < list[head].info {
			bucket = 0
		}
		if heads[bucket] == -1 {
			heads[bucket] = i
		} else {
			list[tails[bucket]].next = i
		}
		tails[bucket] = i
		i = next
	}

	list[head].next = -1
	if tails[0] != -1 {
		list[tails[0]].next = -1
		t0 := tails[0]
		heads[0] = huffQuickSort(list, heads[0], &t0)
		list[t0].next = head
		head = heads[0]
	}
	if tails[1] != -1 {
		list[tails[1]].next = -1
		t1 := tails[1]
		heads[1] = huffQuickSort(list, heads[1], &t1)
		list[*tail].next = heads[1]
		*tail = t1
	}

	return head
}

// huffTreeLevel writes each leaf's depth into nodes[leaf].info, recursing
// down from root at the given level. Mirrors Huff_tree_level.
func huffTreeLevel(tree []huffTreeNode, nodes []huffNode, root, level int) {
	if huffIsTree(root) {
		root = huffTreeIndex(root)
		huffTreeLevel(tree, nodes, tree[root].left, level+1)
		huffTreeLevel(tree, nodes, tree[root].right, level+1)

		return
	}
	nodes[root].info = level
}

var huffNumList = [16]int{0x7fff, 0x3fff, 0x1fff, 0xfff, 0x7ff, 0x3ff, 0x1ff, 0xff, 0x7f, 0x3f, 0x1f, 0xf, 0x7, 0x3, 0x1, 0x0}

var huffNumTable1 = [127]int{
	0x0,
	0x1, 0x1, 0x3, 0x3, 0x3, 0x3, 0x7, 0x7,
	0x7, 0x7, 0x7, 0x7, 0x7, 0x7, 0xf, 0xf,
	0xf, 0xf, 0xf, 0xf, 0xf, 0xf, 0xf, 0xf,
	0xf, 0xf, 0xf, 0xf, 0xf, 0xf, 0x1f, 0x1f,
	0x1f, 0x1f, 0x1f, 0x1f, 0x1f, 0x1f, 0x1f, 0x1f,
	0x1f, 0x1f, 0x1f, 0x1f, 0x1f, 0x1f, 0x1f, 0x1f,
	0x1f, 0x1f, 0x1f, 0x1f, 0x1f, 0x1f, 0x1f, 0x1f,
	0x1f, 0x1f, 0x1f, 0x1f, 0x1f, 0x1f, 0x3f, 0x3f,
	0x3f, 0x3f, 0x3f, 0x3f, 0x3f, 0x3f, 0x3f, 0x3f,
	0x3f, 0x3f, 0x3f, 0x3f, 0x3f, 0x3f, 0x3f, 0x3f,
	0x3f, 0x3f, 0x3f, 0x3f, 0x3f, 0x3f, 0x3f, 0x3f,
	0x3f, 0x3f, 0x3f, 0x3f, 0x3f, 0x3f, 0x3f, 0x3f,
	0x3f, 0x3f, 0x3f, 0x3f, 0x3f, 0x3f, 0x3f, 0x3f,
	0x3f, 0x3f, 0x3f, 0x3f, 0x3f, 0x3f, 0x3f, 0x3f,
	0x3f, 0x3f, 0x3f, 0x3f, 0x3f, 0x3f, 0x3f, 0x3f,
	0x3f, 0x3f, 0x3f, 0x3f, 0x3f, 0x3f,
}

var huffNumTable2 = [127]int{
	15,
	14, 14, 13, 13, 13, 13, 12, 12,
	12, 12, 12, 12, 12, 12, 11, 11,
	11, 11, 11, 11, 11, 11, 11, 11,
	11, 11, 11, 11, 11, 11, 10, 10,
	10, 10, 10, 10, 10, 10, 10, 10,
	10, 10, 10, 10, 10, 10, 10, 10,
	10, 10, 10, 10, 10, 10, 10, 10,
	10, 10, 10, 10, 10, 10, 9, 9,
	9, 9, 9, 9, 9, 9, 9, 9,
	9, 9, 9, 9, 9, 9, 9, 9,
	9, 9, 9, 9, 9, 9, 9, 9,
	9, 9, 9, 9, 9, 9, 9, 9,
	9, 9, 9, 9, 9, 9, 9, 9,
	9, 9, 9, 9, 9, 9, 9, 9,
	9, 9, 9, 9, 9, 9, 9, 9,
	9, 9, 9, 9, 9, 9,
}

// huffNormalizeTree normalizes a list of leaf depths (sorted deepest-first
// by huffQuickSort's ordering, i.e. ascending occurrence) so none exceeds
// 15, redistributing freed codeword space down the list. Mirrors
// Huff_normalize_tree.
func huffNormalizeTree(nodes []huffNode, head, count int) int {
	lev := 0
	switch {
	case nodes[head].info > 15:
		count++
		nodes[head].info = 15
	case count == 0:
		return 0
	default:
		count -= huffNumList[nodes[head].info]
		nodes[head].info = 15
	}

	if count > 0 {
		lev = huffNormalizeTree(nodes, nodes[head].next, count)
	} else {
		lev = -count
	}

	if lev > 0 {
		switch {
		case lev < 127:
			nodes[head].info = huffNumTable2[lev]
			lev -= huffNumTable1[lev]
		case lev < 255:
			nodes[head].info = 8
			lev -= 127
		case lev < 511:
			nodes[head].info = 7
			lev -= 255
		case lev < 1023:
			nodes[head].info = 6
			lev -= 512
		case lev < 2047:
			nodes[head].info = 5
			lev -= 1023
		default:
			nodes[head].info = 4
			lev -= 2047
		}
	}

	return lev
}

// huffmanEncodePage compresses a page.Size-byte page, mirroring
// Huffman1_encode. scratch must be at least 3*len(data)+13+256 bytes: a
// header of up to 13 bytes, up to 256 symbol bytes, and a body of at most
// 23 bits per input byte (a 15-bit escape codeword plus the 8-bit literal).
func huffmanEncodePage(data []byte, scratch []byte) int {
	size := len(data)
	literals := make([]huffNode, 257)

	for i := 0; i < size; i++ {
		literals[data[i]].info++
	}

	cur := 0
	for ; cur < 257; cur++ {
		if literals[cur].info >= huffLowOccLimit {
			break
		}
		literals[256].info += literals[cur].info
		literals[cur].info = 0
	}

	literals[cur].next = -1
	prev := cur
	head := cur

	for cur++; cur < 257; cur++ {
		if literals[cur].info >= huffLowOccLimit || (cur == 256 && literals[cur].info > 0) {
			literals[prev].next = cur
			prev = cur
		} else {
			literals[256].info += literals[cur].info
			literals[cur].info = 0
		}
	}
	literals[prev].next = -1

	if literals[prev].info == size {
		if prev != 256 {
			scratch[0] = 0x00
			scratch[1] = byte(prev & 0xff)

			return 2
		}
		scratch[0] = 0x01
		copy(scratch[1:1+size], data)

		return size + 1
	}

	tailIdx := prev
	head = huffQuickSort(literals, head, &tailIdx)

	tree := make([]huffTreeNode, 256)
	curLit := head
	curTree := -1
	treeIndex := 0

	for curLit != -1 || tree[curTree].next != -1 {
		tree[treeIndex].info = 0
		var offsprings [2]int
		for i := 0; i < 2; i++ {
			if curTree != -1 && (curLit == -1 || tree[curTree].info < literals[curLit].info) {
				tree[treeIndex].info += tree[curTree].info
				offsprings[i] = huffMakeTree(curTree)
				curTree = tree[curTree].next
			} else {
				tree[treeIndex].info += literals[curLit].info
				offsprings[i] = curLit
				curLit = literals[curLit].next
			}
		}
		tree[treeIndex].left = offsprings[0]
		tree[treeIndex].right = offsprings[1]

		switch {
		case curTree == -1:
			curTree = treeIndex
			tree[treeIndex].next = -1
		case tree[treeIndex-1].next == -1:
			tree[treeIndex-1].next = treeIndex
			tree[treeIndex].next = -1
		default:
			// Reached only when the merge queue grows out of FIFO order; the
			// reference source calls this an "impossible fall-back" and
			// re-inserts the node by linear scan.
			temp := -1
			p := curTree
			for tree[p].info <= tree[treeIndex].info {
				temp = p
				p = tree[p].next
			}
			if temp == -1 {
				tree[treeIndex].next = curTree
				curTree = treeIndex
			} else {
				next := tree[temp].next
				tree[temp].next = treeIndex
				tree[treeIndex].next = next
			}
		}
		treeIndex++
	}

	huffTreeLevel(tree, literals, huffMakeTree(curTree), 0)
	huffNormalizeTree(literals, head, 0)

	table := make([]huffNode, 16)
	for i := range table {
		table[i].next = -1
	}
	prev = literals[head].info
	curDepth := prev
	for i := 256; i >= 0; i-- {
		if literals[i].info != 0 && literals[i].info < curDepth {
			curDepth = literals[i].info
		}
		next := table[literals[i].info].next
		table[literals[i].info].next = i
		table[literals[i].info].info++
		literals[i].next = next
	}

	scratch[0] = byte(literals[256].info&0xf) | byte((prev&0xf)<<4)

	var cursor int
	if prev == curDepth {
		scratch[1] = 0x80
		cursor = 2
	} else {
		scratch[1] = byte((table[1].info&1)<<5) | byte(table[5].info&0x1f)
		scratch[2] = byte((table[2].info&3)<<6) | byte(table[6].info&0x3f)
		scratch[3] = byte((table[3].info&7)<<4) | byte(table[4].info&0xf)
		cursor = 4
		for ; cursor <= prev-3; cursor++ {
			scratch[cursor] = byte(table[cursor+3].info & 0xff)
		}
	}

	codeword := 0
	for i := 1; i < 16; i++ {
		cd := table[i].next
		for cd != -1 {
			next := literals[cd].next
			literals[cd].next = codeword
			codeword++
			if cd != 256 {
				scratch[cursor] = byte(cd & 0xff)
				cursor++
			}
			cd = next
		}
		codeword <<= 1
	}

	w := bitstream.NewWriter(scratch[cursor:])
	for i := 0; i < size; i++ {
		sym := literals[data[i]]
		if sym.info == 0 {
			w.Write(uint64(literals[256].next), uint(literals[256].info))
			w.Write(uint64(data[i]), 8)
		} else {
			w.Write(uint64(sym.next), uint(sym.info))
		}
	}
	cursor += w.Finish()

	return cursor
}

var huffMask = [9]uint8{0, 1, 3, 7, 0xf, 0x1f, 0x3f, 0x7f, 0xff}

// huffmanDecodePage reverses huffmanEncodePage. size is the original page
// length in bytes.
func huffmanDecodePage(dest []byte, data []byte, size int) error {
	if data[0] == 0 {
		for i := range dest[:size] {
			dest[i] = data[1]
		}

		return nil
	}
	if data[0] == 1 {
		copy(dest[:size], data[1:1+size])

		return nil
	}

	depth := int(data[0]>>4) & 0xf
	escape := int(data[0]) & 0xf

	table := make([]huffTreeNode, 16)
	for i := range table {
		table[i].next = -1
		table[i].left = -1
		table[i].right = -1
	}

	var cur int
	if data[1]&0x80 == 0 {
		table[1].info = int(data[1]>>5) & 1
		table[5].info = int(data[1]) & 0x1f
		table[2].info = int(data[2]>>6) & 3
		table[6].info = int(data[2]) & 0x3f
		table[3].info = int(data[3]>>4) & 7
		table[4].info = int(data[3]) & 0xf
		for cur = 4; cur <= depth-3; cur++ {
			table[cur+3].info = int(data[cur])
		}
	} else {
		table[depth].info = 1 << uint(depth)
		cur = 2
	}

	codeword := 0
	for i := 1; i < 16; i++ {
		if table[i].info > 0 {
			table[i].left = codeword
			codeword += table[i].info
			table[i].right = cur
			if i == escape {
				cur--
			}
			cur += table[i].info
		}
		codeword <<= 1
	}

	if cur >= len(data) {
		return fmt.Errorf("huffman: %w", ErrInvalidBitstream)
	}
	payload := data[cur]
	cur++
	offset := 0

	for i := 0; i < size; i++ {
		codeword = 0
		matched := false
		for j := 1; j < 16 && !matched; j++ {
			offset++
			if offset == 9 {
				if cur >= len(data) {
					return fmt.Errorf("huffman: %w", ErrInvalidBitstream)
				}
				payload = data[cur]
				cur++
				offset = 1
			}
			codeword = (codeword << 1) | (int(payload>>uint(8-offset)) & 1)
			if table[j].info > 0 && codeword >= table[j].left && codeword < table[j].info+table[j].left {
				if j == escape && codeword == table[j].info+table[j].left-1 {
					if offset == 8 {
						dest[i] = data[cur]
					} else {
						temp := payload << uint(offset)
						payload = data[cur]
						dest[i] = temp | ((payload >> uint(8-offset)) & huffMask[offset])
					}
					cur++
				} else {
					dest[i] = data[codeword-table[j].left+table[j].right]
				}
				matched = true
			}
		}
		if !matched {
			return fmt.Errorf("huffman: %w", ErrInvalidBitstream)
		}
	}

	return nil
}

// Huffman implements Codec over a whole page at once; unlike the other
// codecs it is not cacheline-granular (the canonical code table is built
// once per page), so CompressPage always returns a nil report.
type Huffman struct {
	opts    AdapterOptions
	scratch []byte
}

var _ Codec = (*Huffman)(nil)

func newHuffman(opts AdapterOptions) Codec {
	return &Huffman{
		opts:    opts,
		scratch: make([]byte, 3*page.Size+13+256),
	}
}

func (h *Huffman) Name() string { return "huffman" }

func (h *Huffman) CompressPage(pg []byte) (int, *page.CachelineReport, error) {
	if len(pg) != page.Size {
		panic("codec: page must be page.Size bytes")
	}

	n := huffmanEncodePage(pg, h.scratch)
	bits := n * 8
	if h.opts.ParseSwitch && bits > page.Size*8 {
		bits = page.Size * 8
	}

	if h.opts.Validate {
		got := make([]byte, page.Size)
		if err := huffmanDecodePage(got, h.scratch[:n], page.Size); err != nil {
			return 0, nil, fmt.Errorf("codec huffman: decode: %w", err)
		}
		for i := range got {
			if got[i] != pg[i] {
				return 0, nil, &ValidationError{Codec: "huffman", Offset: int64(i)}
			}
		}
	}

	return bits, nil, nil
}

func init() {
	Register("huffman", newHuffman)
}
