package grant

import (
	"bytes"
	"crypto/sha256"
	"sort"
)

const allowlistDomain = "we-ne:allowlist"

// AllowlistLeaf returns the domain-separated leaf hash for a claimer.
// leaf = sha256("we-ne:allowlist" || claimer)
func AllowlistLeaf(claimer [32]byte) [32]byte {
	h := sha256.New()
	h.Write([]byte(allowlistDomain))
	h.Write(claimer[:])
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// VerifyMerkleSorted checks a Merkle proof using sorted pair hashing: at each
// step the running value and the sibling are hashed with the lexicographically
// smaller operand first, so proofs carry no orientation bits.
//
// The off-chain tree builder must use the identical sorting rule;
// BuildAllowlistTree below is the reference implementation of that contract.
func VerifyMerkleSorted(root, leaf [32]byte, proof [][32]byte) bool {
	computed := leaf
	for _, sibling := range proof {
		computed = hashSortedPair(computed, sibling)
	}
	return computed == root
}

func hashSortedPair(a, b [32]byte) [32]byte {
	if bytes.Compare(a[:], b[:]) > 0 {
		a, b = b, a
	}
	h := sha256.New()
	h.Write(a[:])
	h.Write(b[:])
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// AllowlistTree holds a sorted-pair Merkle tree over a set of claimers.
type AllowlistTree struct {
	root   [32]byte
	leaves [][32]byte
	levels [][][32]byte
}

// BuildAllowlistTree constructs the allowlist tree for the given claimers.
// Leaves are sorted so the same membership set always yields the same root
// regardless of input order. An empty claimer set produces the zero root,
// which disables the allowlist.
func BuildAllowlistTree(claimers [][32]byte) *AllowlistTree {
	leaves := make([][32]byte, 0, len(claimers))
	for _, claimer := range claimers {
		leaves = append(leaves, AllowlistLeaf(claimer))
	}
	sort.Slice(leaves, func(i, j int) bool {
		return bytes.Compare(leaves[i][:], leaves[j][:]) < 0
	})

	tree := &AllowlistTree{leaves: leaves}
	if len(leaves) == 0 {
		return tree
	}

	level := leaves
	tree.levels = append(tree.levels, level)
	for len(level) > 1 {
		next := make([][32]byte, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			if i+1 < len(level) {
				next = append(next, hashSortedPair(level[i], level[i+1]))
			} else {
				// Odd node is carried up unchanged.
				next = append(next, level[i])
			}
		}
		level = next
		tree.levels = append(tree.levels, level)
	}
	tree.root = level[0]
	return tree
}

// Root returns the tree's Merkle root.
func (t *AllowlistTree) Root() [32]byte {
	if t == nil {
		return [32]byte{}
	}
	return t.root
}

// Proof returns the inclusion proof for a claimer, or false when the claimer
// is not part of the tree.
func (t *AllowlistTree) Proof(claimer [32]byte) ([][32]byte, bool) {
	if t == nil || len(t.leaves) == 0 {
		return nil, false
	}
	leaf := AllowlistLeaf(claimer)
	index := -1
	for i, l := range t.leaves {
		if l == leaf {
			index = i
			break
		}
	}
	if index < 0 {
		return nil, false
	}

	proof := make([][32]byte, 0, len(t.levels))
	for _, level := range t.levels[:len(t.levels)-1] {
		sibling := index ^ 1
		if sibling < len(level) {
			proof = append(proof, level[sibling])
		}
		index /= 2
	}
	return proof, true
}
