package review

import "errors"

var (
	ErrReviewNotFound = errors.New("review not found")
	ErrNotAuthor      = errors.New("caller is neither review author nor listing owner")
)
