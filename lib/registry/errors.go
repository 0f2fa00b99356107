package registry

import "errors"

var (
	ErrInvalidName   = errors.New("unsupported image name: it must be between 1 and 64 characters long and can contain only alphanumeric characters, hyphens, and underscores")
	ErrAlreadyExists = errors.New("image already exists")
)
