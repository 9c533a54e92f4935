// Package registry is the HTTP client for the certificate registry backend.
//
// The backend records a work's fingerprint, owners and revision history and
// anchors each change in a transaction. This package only speaks its JSON
// API: certificate create/update/get/list and user registration lookups.
// Failures are tagged with services error markers so the CLI can classify
// them (ErrNotFound for 404s, ErrRemote for everything else the server
// rejects, ErrTimeout for deadlines).
package registry
