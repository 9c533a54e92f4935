// Package draft persists registration drafts: the fingerprint, descriptive
// metadata, and ownership split of a work that has been prepared locally but
// not yet submitted to the registry.
//
// Drafts live in a SQLite database under the configured state directory. A
// draft is editable while open; once the registry accepts it the draft is
// marked submitted, records the certificate id, and refuses further edits.
package draft
