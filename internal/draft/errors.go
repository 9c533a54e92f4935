package draft

import "errors"

var (
	// ErrSubmitted is returned when a caller edits a draft that has already
	// been registered.
	ErrSubmitted = errors.New("draft already submitted")
	// ErrNotFound is returned by mutations that target a missing draft.
	ErrNotFound = errors.New("draft not found")
	// ErrAmbiguous is returned by Resolve when a prefix matches several drafts.
	ErrAmbiguous = errors.New("draft id prefix is ambiguous")
)
