package media

import "errors"

var (
	// ErrUnsupportedType indicates the declared MIME type is outside the
	// allow-list for the message category.
	ErrUnsupportedType = errors.New("unsupported media type")
	// ErrNotFound indicates the platform lookup by media id failed.
	ErrNotFound = errors.New("media not found")
	// ErrTooLarge indicates the resolved file size exceeds the ceiling.
	ErrTooLarge = errors.New("media too large")
	// ErrFetchFailed indicates the byte download did not succeed.
	ErrFetchFailed = errors.New("media fetch failed")
)
