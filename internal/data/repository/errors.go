package repository

import "errors"

var (
	ErrNotFound         = errors.New("record not found")
	ErrDuplicatePending = errors.New("pending payment already exists for booking")
)
