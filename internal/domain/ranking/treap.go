// Package ranking orders scored rows for top-N reads.
package ranking

import (
	"errors"
	"math"
	"math/rand/v2"
)

// ErrInvalidLimit is returned for a top-N request with n < 1.
var ErrInvalidLimit = errors.New("invalid ranking limit")

// Treap-based ordering.
//
// Ordering: score DESC, then row ASC. Rows are insertion positions, so ties
// keep insertion order. "less" means ranks earlier, which makes an in-order
// traversal produce the ranking from best to worst.

// Entry is one ranked row.
type Entry struct {
	Rank  int
	Row   int
	Score float64
}

type node struct {
	row   int
	score float64
	prio  uint64
	left  *node
	right *node
}

// less returns true if (aScore, aRow) should appear before (bScore, bRow).
func less(aScore float64, aRow int, bScore float64, bRow int) bool {
	if aScore != bScore {
		return aScore > bScore
	}
	return aRow < bRow
}

func rotateRight(y *node) *node {
	x := y.left
	y.left = x.right
	x.right = y
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	x.right = y.left
	y.left = x
	return y
}

func insert(n *node, row int, score float64, prio uint64) *node {
	if n == nil {
		return &node{row: row, score: score, prio: prio}
	}
	if less(score, row, n.score, n.row) {
		n.left = insert(n.left, row, score, prio)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, row, score, prio)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	return n
}

// collectTopN appends up to limit entries in rank order.
func collectTopN(n *node, limit int, out *[]Entry) {
	if n == nil || len(*out) >= limit {
		return
	}
	collectTopN(n.left, limit, out)
	if len(*out) < limit {
		*out = append(*out, Entry{Row: n.row, Score: n.score})
	}
	if len(*out) < limit {
		collectTopN(n.right, limit, out)
	}
}

// Index is a single-use ranking built for one read. It is not safe for
// concurrent use.
type Index struct {
	root *node
	size int
	rng  *rand.Rand
}

// NewIndex returns an empty index. seed fixes the treap priorities, which
// only affect balance, never order.
func NewIndex(seed uint64) *Index {
	return &Index{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))} //nolint:gosec // priorities only balance the tree
}

// Insert adds a scored row. NaN scores are ignored.
func (ix *Index) Insert(row int, score float64) {
	if math.IsNaN(score) {
		return
	}
	ix.root = insert(ix.root, row, score, ix.rng.Uint64())
	ix.size++
}

// Len returns the number of rows in the index.
func (ix *Index) Len() int { return ix.size }

// TopN returns the best n rows with dense ranks.
func (ix *Index) TopN(n int) ([]Entry, error) {
	if n < 1 {
		return nil, ErrInvalidLimit
	}
	out := make([]Entry, 0, min(n, ix.size))
	collectTopN(ix.root, n, &out)
	assignRanksWithTies(out)
	return out, nil
}

// assignRanksWithTies assigns dense ranks: rows with the same score share a
// rank and the next distinct score gets the next rank.
func assignRanksWithTies(entries []Entry) {
	rank := 0
	for i := range entries {
		if i == 0 || entries[i].Score != entries[i-1].Score {
			rank++
		}
		entries[i].Rank = rank
	}
}
