package apperr

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrAlreadyExists    = errors.New("already exists")
	ErrNoNotebook       = errors.New("no notebook loaded")
	ErrUnknownBlockType = errors.New("unknown block type")
)
