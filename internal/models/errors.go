package models

import "errors"

// Store-level sentinels shared by every persistence backend.
var (
	ErrRecordNotFound  = errors.New("record not found")
	ErrInvalidID       = errors.New("invalid record id")
	ErrDuplicateRecord = errors.New("duplicate record")
)
