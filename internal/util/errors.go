package util

import "errors"

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrCourseNotFound   = errors.New("course not found")
	ErrProgressNotFound = errors.New("progress not found")
	ErrInvalidProgress  = errors.New("progress must be between 0 and 100")
	ErrMissingFields    = errors.New("missing required fields")
)
