package roster

import "errors"

var (
	// validation errors: the run is rejected before any assignment
	ErrTooFewSections   = errors.New("at least 2 sections are required")
	ErrEmptyRoster      = errors.New("the roster is empty")
	ErrDuplicateRank    = errors.New("rank already taken by another student of the same sex")
	ErrDuplicateStudent = errors.New("student listed more than once")
	ErrInvalidSex       = errors.New("invalid sex")
	ErrInvalidRank      = errors.New("rank must be a positive integer")
	ErrInvalidPolicy    = errors.New("invalid quota policy")

	ErrNotFound           = errors.New("class not found")
	ErrAlreadyDistributed = errors.New("class has already been distributed")
)
