// Command worldip fingerprints creative works and registers, updates and
// verifies their ownership certificates against the registry backend.
//
// Offline commands (fingerprint, verify --expect, config) need no backend.
// Registration is a two-step flow: "draft new" fingerprints content into a
// local draft, "draft owners" adjusts the ownership split, and "register"
// submits the draft. Exit status is 0 on success, 1 when verification fails
// or on unclassified errors, 2 for usage errors, 3 for configuration errors,
// 4 when content cannot be read, and 5 when the registry fails.
package main
