// Package fingerprint computes the deterministic content digests that back
// certificate registration and verification.
//
// This package has no worldip-specific dependencies and could be extracted
// as a standalone library.
//
// Fingerprinting strategies by input kind:
//   - Text: SHA-256 over the UTF-8 bytes, no chunking.
//   - File: the content is read sequentially in fixed 2 MiB chunks, each
//     chunk is hashed into a leaf, and the leaves are reduced pairwise into a
//     single Merkle root. An unpaired node is combined with itself.
//
// Internal nodes hash the concatenation of the raw 32-byte child digests,
// never their hex text. Digests are rendered as 64 lowercase hex characters
// and that format must stay stable: stored certificates are compared against
// freshly computed values indefinitely.
//
// Primary entry points:
//   - Engine.Fingerprint: digest for a text or file Input
//   - Reduce: the pure tree reduction over leaf digests
//   - Matches: the verification predicate
package fingerprint
