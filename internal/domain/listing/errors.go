package listing

import "errors"

var (
	ErrListingNotFound = errors.New("listing not found")
	ErrListingSold     = errors.New("listing is already sold")
	ErrRequestPending  = errors.New("listing already has a pending purchase request")
	ErrNoRequest       = errors.New("listing has no pending purchase request")
	ErrNotOwner        = errors.New("caller does not own this listing")
	ErrOwnListing      = errors.New("owner cannot buy their own listing")
	ErrTooManyImages   = errors.New("listing exceeds the image limit")
	ErrImageNotFound   = errors.New("listing image not found")
)
