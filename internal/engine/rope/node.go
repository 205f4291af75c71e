package rope

import "strings"

// Tree structure constants.
const (
	// maxLeafBytes is the target maximum text size of a leaf.
	maxLeafBytes = 2048

	// maxChildren is the maximum children per internal node.
	maxChildren = 8
)

// node is a node in the rope B+ tree. Leaves (height == 0) hold text;
// internal nodes hold children. Nodes are never mutated after construction,
// so subtrees can be shared freely between rope revisions.
type node struct {
	height   uint8
	summary  Summary
	children []*node // height > 0
	text     string  // height == 0
}

func newLeaf(text string) *node {
	return &node{text: text, summary: computeSummary(text)}
}

func newInternal(children []*node) *node {
	if len(children) == 0 {
		return newLeaf("")
	}
	n := &node{
		height:   children[0].height + 1,
		children: children,
	}
	for _, child := range children {
		n.summary = n.summary.Add(child.summary)
	}
	return n
}

func (n *node) isLeaf() bool {
	return n.height == 0
}

func (n *node) len() ByteOffset {
	return n.summary.Bytes
}

// appendTo appends all text in this subtree to the builder.
func (n *node) appendTo(sb *strings.Builder) {
	if n.isLeaf() {
		sb.WriteString(n.text)
		return
	}
	for _, child := range n.children {
		child.appendTo(sb)
	}
}

// appendRange appends text in the byte range [start, end) to the builder.
func (n *node) appendRange(sb *strings.Builder, start, end ByteOffset) {
	if start >= end {
		return
	}
	if n.isLeaf() {
		if start < 0 {
			start = 0
		}
		if end > ByteOffset(len(n.text)) {
			end = ByteOffset(len(n.text))
		}
		sb.WriteString(n.text[start:end])
		return
	}

	offset := ByteOffset(0)
	for _, child := range n.children {
		childLen := child.len()
		childEnd := offset + childLen
		if childEnd <= start {
			offset = childEnd
			continue
		}
		if offset >= end {
			break
		}
		childStart := ByteOffset(0)
		if start > offset {
			childStart = start - offset
		}
		childStop := childLen
		if end < childEnd {
			childStop = end - offset
		}
		child.appendRange(sb, childStart, childStop)
		offset = childEnd
	}
}

// byteAt returns the byte at the given offset within this subtree.
func (n *node) byteAt(offset ByteOffset) byte {
	for !n.isLeaf() {
		for _, child := range n.children {
			if offset < child.len() {
				n = child
				break
			}
			offset -= child.len()
		}
	}
	return n.text[offset]
}

// split splits the subtree at offset. Left holds [0, offset), right holds
// [offset, end). Shared subtrees on either side are reused as-is.
func (n *node) split(offset ByteOffset) (*node, *node) {
	if offset <= 0 {
		return newLeaf(""), n
	}
	if offset >= n.len() {
		return n, newLeaf("")
	}

	if n.isLeaf() {
		return newLeaf(n.text[:offset]), newLeaf(n.text[offset:])
	}

	var left, right []*node
	current := ByteOffset(0)
	for _, child := range n.children {
		childLen := child.len()
		switch {
		case current+childLen <= offset:
			left = append(left, child)
		case current >= offset:
			right = append(right, child)
		default:
			l, r := child.split(offset - current)
			if l.len() > 0 {
				left = append(left, l)
			}
			if r.len() > 0 {
				right = append(right, r)
			}
		}
		current += childLen
	}
	return buildFromNodes(left), buildFromNodes(right)
}

// buildFromNodes creates a balanced tree from nodes of mixed heights.
// The nodes must be in document order.
func buildFromNodes(nodes []*node) *node {
	switch len(nodes) {
	case 0:
		return newLeaf("")
	case 1:
		return nodes[0]
	}

	result := nodes[0]
	for _, n := range nodes[1:] {
		result = concatNodes(result, n)
	}
	return result
}

// concatNodes concatenates two subtrees, rebalancing as needed.
func concatNodes(left, right *node) *node {
	if left == nil || left.len() == 0 {
		if right == nil {
			return newLeaf("")
		}
		return right
	}
	if right == nil || right.len() == 0 {
		return left
	}

	// Merge small leaves to keep the tree shallow.
	if left.isLeaf() && right.isLeaf() &&
		len(left.text)+len(right.text) <= maxLeafBytes {
		return newLeaf(left.text + right.text)
	}

	switch {
	case left.height == right.height:
		return mergeSameHeight(left, right)
	case left.height > right.height:
		children := append([]*node{}, left.children...)
		merged := concatNodes(children[len(children)-1], right)
		if merged.height == left.height-1 {
			children[len(children)-1] = merged
		} else {
			children = append(children[:len(children)-1], merged.children...)
		}
		return rebuildLevel(children)
	default:
		children := append([]*node{}, right.children...)
		merged := concatNodes(left, children[0])
		if merged.height == right.height-1 {
			children[0] = merged
		} else {
			children = append(merged.children, children[1:]...)
		}
		return rebuildLevel(children)
	}
}

func mergeSameHeight(left, right *node) *node {
	if left.isLeaf() {
		return newInternal([]*node{left, right})
	}
	all := make([]*node, 0, len(left.children)+len(right.children))
	all = append(all, left.children...)
	all = append(all, right.children...)
	return rebuildLevel(all)
}

// rebuildLevel groups same-height children under internal nodes, adding
// levels until everything fits under one root.
func rebuildLevel(children []*node) *node {
	for len(children) > maxChildren {
		var parents []*node
		for i := 0; i < len(children); i += maxChildren {
			end := i + maxChildren
			if end > len(children) {
				end = len(children)
			}
			parents = append(parents, newInternal(children[i:end:end]))
		}
		children = parents
	}
	if len(children) == 1 {
		return children[0]
	}
	return newInternal(children)
}

// lineToByte returns the byte offset of the start of the given 0-indexed
// line within this subtree. line must be <= the subtree's newline count.
func (n *node) lineToByte(line int) ByteOffset {
	if line <= 0 {
		return 0
	}
	offset := ByteOffset(0)
	for !n.isLeaf() {
		for _, child := range n.children {
			if line <= child.summary.Newlines {
				n = child
				break
			}
			line -= child.summary.Newlines
			offset += child.len()
		}
	}
	idx := findNthNewline(n.text, line)
	if idx < 0 {
		return offset + n.len()
	}
	return offset + ByteOffset(idx) + 1
}

// byteToLine returns the 0-indexed line containing the given byte offset.
func (n *node) byteToLine(offset ByteOffset) int {
	line := 0
	for !n.isLeaf() {
		for _, child := range n.children {
			if offset < child.len() {
				n = child
				break
			}
			offset -= child.len()
			line += child.summary.Newlines
		}
	}
	return line + countNewlines(n.text, int(offset))
}

// charsBefore returns the number of Unicode scalar values in [0, offset).
// offset must lie on a character boundary.
func (n *node) charsBefore(offset ByteOffset) int64 {
	var chars int64
	for !n.isLeaf() {
		for _, child := range n.children {
			if offset < child.len() {
				n = child
				break
			}
			offset -= child.len()
			chars += child.summary.Chars
		}
		if offset == 0 {
			return chars
		}
	}
	return chars + computeSummary(n.text[:offset]).Chars
}
