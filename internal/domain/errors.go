package domain

import "errors"

// Validation errors reported back to the requesting session as a structured
// error event. State is never changed when one of these is returned.
var (
	// ErrNameTaken means the requested display name is held by another live session.
	ErrNameTaken = errors.New("name already in use")
	// ErrOwnerAlreadySet means the board owner has already been claimed.
	ErrOwnerAlreadySet = errors.New("can only be owner when no owner exists")
)
