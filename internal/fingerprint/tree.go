package fingerprint

import "crypto/sha256"

// Reduce folds leaf digests into the Merkle root. Each level is processed in
// left-to-right pairs and a parent is SHA-256 over the two children's raw
// bytes. An unpaired last node is combined with itself rather than promoted.
// A single leaf is its own root.
//
// Reduce panics on an empty slice; every input produces at least one leaf.
func Reduce(leaves []Digest) Digest {
	if len(leaves) == 0 {
		panic("fingerprint: reduce of empty leaf set")
	}
	level := make([]Digest, len(leaves))
	copy(level, leaves)
	for len(level) > 1 {
		parents := (len(level) + 1) / 2
		for i := 0; i < parents; i++ {
			left := level[2*i]
			right := left
			if 2*i+1 < len(level) {
				right = level[2*i+1]
			}
			level[i] = combine(left, right)
		}
		level = level[:parents]
	}
	return level[0]
}

func combine(left, right Digest) Digest {
	var buf [2 * Size]byte
	copy(buf[:Size], left[:])
	copy(buf[Size:], right[:])
	return Digest(sha256.Sum256(buf[:]))
}
