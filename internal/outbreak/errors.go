package outbreak

import "errors"

var (
	// ErrFetchFailed signals an error calling the external AI service.
	ErrFetchFailed = errors.New("outbreak data fetch failed")

	// ErrParseFailed signals a response that could not be decomposed into the
	// expected disease-list shape.
	ErrParseFailed = errors.New("outbreak response parse failed")

	// ErrNoDataAvailable signals that a fetch failed and no cached data,
	// today's or stale, exists for the requested scope.
	ErrNoDataAvailable = errors.New("no outbreak data available")
)
