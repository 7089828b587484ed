package apperrors

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrDuplicateID       = errors.New("already exists")
	ErrDuplicateName     = errors.New("name already exists")
	ErrCyclicParent      = errors.New("parent would create a cycle")
	ErrInvalidEntityType = errors.New("invalid entity type")
	ErrInvalidSchema     = errors.New("invalid schema")
	ErrUnsupported       = errors.New("unsupported")
	ErrSaveFailed        = errors.New("save failed")
)
