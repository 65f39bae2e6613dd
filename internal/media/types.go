// Package media resolves, validates and fetches platform media
// referenced by inbound messages.
package media

import "context"

// Category selects the MIME allow-list a file is validated against.
type Category string

const (
	CategoryAudio Category = "audio"
	CategoryImage Category = "image"
)

// Ref is a platform media reference as found in the raw webhook
// payload: an opaque id plus the declared MIME type. It lives only for
// the duration of one normalization call.
type Ref struct {
	ID       string
	MimeType string
}

// Resolved is the platform's answer to a media lookup. FileSize is
// authoritative; the declared size in the payload is never trusted.
type Resolved struct {
	URL      string
	MimeType string
	FileSize int64
}

// Source is the per-platform media collaborator.
type Source interface {
	// Resolve looks up a media id and returns its download location.
	// Returns ErrNotFound when the platform has no such media.
	Resolve(ctx context.Context, id string) (Resolved, error)
	// Fetch downloads the raw bytes at url. Returns ErrFetchFailed when
	// the download does not succeed.
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// File is a validated, fetched media payload.
type File struct {
	MimeType string
	Data     []byte
}
