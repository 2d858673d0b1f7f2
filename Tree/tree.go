// Package tree implements the Complete-Subtree revocation tree: a static
// binary tree over the user population, leaf-to-root paths and the KUNodes
// cover of all users not revoked by a given epoch.
package tree

import (
	"sort"
	"sync"

	"github.com/Mega-Ryan/IBME/Matrix"
	"github.com/Mega-Ryan/IBME/fault"
	"github.com/pkg/errors"
)

// NodeID indexes a node in the tree's arena. The root is 0.
type NodeID int

const None NodeID = -1

var (
	ErrLeaf      = errors.New("tree: leaf index out of range")
	ErrNode      = errors.New("tree: unknown node")
	ErrShareSize = errors.New("tree: share vector has the wrong length")
)

type node struct {
	parent, left, right NodeID
	leaf                int // leaf number, -1 for inner nodes

	mu     sync.Mutex
	u1, u2 []matrix.Matrix
}

// Tree is a balanced binary tree with a fixed number of leaves. Leaves are
// numbered 0..Leaves()-1 from left to right.
type Tree struct {
	nodes  []*node
	leaves []NodeID
}

// New builds a tree with n ≥ 1 leaves. The left subtree of every node gets
// ⌈leaves/2⌉, so the depth is ⌈log2 n⌉.
func New(n int) (*Tree, error) {
	if n < 1 {
		return nil, fault.Usagef("tree.New", "need at least one leaf, got %d", n)
	}
	t := &Tree{}
	t.build(None, n)
	return t, nil
}

func (t *Tree) build(parent NodeID, leaves int) NodeID {
	id := NodeID(len(t.nodes))
	nd := &node{parent: parent, left: None, right: None, leaf: -1}
	t.nodes = append(t.nodes, nd)
	if leaves == 1 {
		nd.leaf = len(t.leaves)
		t.leaves = append(t.leaves, id)
		return id
	}
	left := (leaves + 1) / 2
	nd.left = t.build(id, left)
	nd.right = t.build(id, leaves-left)
	return id
}

func (t *Tree) Root() NodeID { return 0 }

func (t *Tree) Size() int { return len(t.nodes) }

func (t *Tree) Leaves() int { return len(t.leaves) }

// Leaf returns the node of leaf i.
func (t *Tree) Leaf(i int) (NodeID, error) {
	if i < 0 || i >= len(t.leaves) {
		return None, fault.Wrapf("tree.Leaf", fault.Usage, ErrLeaf, "leaf %d of %d", i, len(t.leaves))
	}
	return t.leaves[i], nil
}

func (t *Tree) valid(v NodeID) bool { return v >= 0 && int(v) < len(t.nodes) }

func (t *Tree) Parent(v NodeID) NodeID { return t.nodes[v].parent }

// Children returns the children of v, or None twice for a leaf.
func (t *Tree) Children(v NodeID) (NodeID, NodeID) {
	return t.nodes[v].left, t.nodes[v].right
}

func (t *Tree) IsLeaf(v NodeID) bool { return t.nodes[v].leaf >= 0 }

// Depth is the number of edges on the longest root-to-leaf path.
func (t *Tree) Depth() int {
	max := 0
	for _, l := range t.leaves {
		if d := len(t.path(l)) - 1; d > max {
			max = d
		}
	}
	return max
}

// Path returns v and its ancestors up to the root, leaf first.
func (t *Tree) Path(v NodeID) ([]NodeID, error) {
	if !t.valid(v) {
		return nil, fault.Wrapf("tree.Path", fault.Usage, ErrNode, "node %d", v)
	}
	return t.path(v), nil
}

func (t *Tree) path(v NodeID) []NodeID {
	var out []NodeID
	for ; v != None; v = t.nodes[v].parent {
		out = append(out, v)
	}
	return out
}

// LeavesUnder returns the leaf numbers below v in order.
func (t *Tree) LeavesUnder(v NodeID) []int {
	nd := t.nodes[v]
	if nd.leaf >= 0 {
		return []int{nd.leaf}
	}
	return append(t.LeavesUnder(nd.left), t.LeavesUnder(nd.right)...)
}

// KUNodes returns the Complete-Subtree cover for epoch t: with L the union
// of the paths of every entry revoked at or before t, the cover is the set
// of children of L that are not in L. With nobody revoked the cover is the
// root; with every leaf revoked it is empty. The result is sorted by NodeID.
func (t *Tree) KUNodes(rl *RevocationList, epoch int) []NodeID {
	inL := make(map[NodeID]bool)
	for _, e := range rl.Entries() {
		if e.Epoch > epoch || !t.valid(e.Node) {
			continue
		}
		for _, v := range t.path(e.Node) {
			inL[v] = true
		}
	}
	cover := make(map[NodeID]bool)
	for v := range inL {
		nd := t.nodes[v]
		for _, c := range []NodeID{nd.left, nd.right} {
			if c != None && !inL[c] {
				cover[c] = true
			}
		}
	}
	if len(inL) == 0 {
		return []NodeID{t.Root()}
	}
	out := make([]NodeID, 0, len(cover))
	for v := range cover {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Side selects which half of a node's share pair is drawn fresh.
type Side int

const (
	// Receiver shares (u1) are drawn fresh; u2 = u − u1.
	Receiver Side = iota
	// Update shares (u2) are drawn fresh; u1 = u − u2.
	Update
)

// EnsureShares populates the shares of v on first use and returns them.
// draw is called once per target only when v has no shares yet; whichever
// side reaches v first is the random one. Shares never change afterwards.
func (t *Tree) EnsureShares(v NodeID, side Side, targets []matrix.Matrix, draw func() matrix.Matrix) (u1, u2 []matrix.Matrix, err error) {
	if !t.valid(v) {
		return nil, nil, fault.Wrapf("tree.EnsureShares", fault.Usage, ErrNode, "node %d", v)
	}
	nd := t.nodes[v]
	nd.mu.Lock()
	defer nd.mu.Unlock()
	if nd.u1 != nil {
		if len(nd.u1) != len(targets) {
			return nil, nil, fault.Wrapf("tree.EnsureShares", fault.Invariant, ErrShareSize,
				"node %d holds %d shares, asked for %d", v, len(nd.u1), len(targets))
		}
		return nd.u1, nd.u2, nil
	}
	fresh := make([]matrix.Matrix, len(targets))
	rest := make([]matrix.Matrix, len(targets))
	for i, u := range targets {
		fresh[i] = draw()
		if rest[i], err = u.Sub(fresh[i]); err != nil {
			return nil, nil, err
		}
	}
	if side == Receiver {
		nd.u1, nd.u2 = fresh, rest
	} else {
		nd.u1, nd.u2 = rest, fresh
	}
	return nd.u1, nd.u2, nil
}

// Populated reports whether v already has shares.
func (t *Tree) Populated(v NodeID) bool {
	nd := t.nodes[v]
	nd.mu.Lock()
	defer nd.mu.Unlock()
	return nd.u1 != nil
}
