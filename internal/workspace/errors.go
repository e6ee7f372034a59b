package workspace

import "errors"

var (
	ErrInvalidInput = errors.New("workspace: invalid input")
	ErrNotFound     = errors.New("workspace: not found")
	ErrConflict     = errors.New("workspace: already exists")
	ErrForbidden    = errors.New("workspace: forbidden")
)
