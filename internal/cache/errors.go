package cache

import (
	"errors"
	"fmt"
)

var (
	// ErrFetch indicates the upstream retrieval failed.
	ErrFetch = errors.New("fetch failed")

	// ErrCorruptCache indicates a persisted file is not valid JSON for the requested shape.
	ErrCorruptCache = errors.New("corrupt cache file")
)

// FetchError records which URL could not be retrieved.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetching %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

func (e *FetchError) Is(target error) bool { return target == ErrFetch }

// CorruptCacheError records which cache file failed to decode.
type CorruptCacheError struct {
	Path string
	Err  error
}

func (e *CorruptCacheError) Error() string {
	return fmt.Sprintf("decoding %s: %v", e.Path, e.Err)
}

func (e *CorruptCacheError) Unwrap() error { return e.Err }

func (e *CorruptCacheError) Is(target error) bool { return target == ErrCorruptCache }
