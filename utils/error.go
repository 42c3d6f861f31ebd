package utils

import "errors"

var (
	ErrorRecordNotFound  = errors.New("record not found")
	ErrorLockNotAcquired = errors.New("another run holds the lock")
)
