// Package workflow runs the three user-facing flows of worldip on top of the
// fingerprint engine, the draft store and the registry client.
//
// Registration is split in two: StartRegistration fingerprints the content
// and stores an open draft owned solely by the signed-in address, SetShares
// edits the ownership split, and Submit sends the draft to the registry and
// freezes it with the issued certificate id. Update records a new revision of
// an existing certificate. Verify recomputes a fingerprint and compares it
// with the certificate's current revision; a mismatch is a normal result.
package workflow
