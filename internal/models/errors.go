package models

import "errors"

// ErrNotFound is returned by repositories for unknown keys.
var ErrNotFound = errors.New("not found")
