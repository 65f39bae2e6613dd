package media

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// MaxFileBytes is the ceiling on resolved media size.
const MaxFileBytes int64 = 750 * 1024

var allowedMimePrefixes = map[Category][]string{
	CategoryAudio: {
		"audio/wav",
		"audio/mp3",
		"audio/aiff",
		"audio/aac",
		"audio/ogg",
		"audio/flac",
	},
	CategoryImage: {
		"image/jpeg",
		"image/png",
		"image/webp",
		"image/heic",
		"image/heif",
	},
}

// Ingestor validates and fetches referenced media. Checks run in a
// fixed order and short-circuit: declared MIME type, platform lookup,
// resolved size, byte fetch.
type Ingestor struct {
	logger *slog.Logger
}

func NewIngestor(log *slog.Logger) *Ingestor {
	if log == nil {
		log = slog.Default()
	}
	return &Ingestor{logger: log.With(slog.String("service", "media"))}
}

// Ingest resolves ref through src and returns the fetched file. The
// returned MIME type is the matched allow-list entry, not the raw
// declared value.
func (ing *Ingestor) Ingest(ctx context.Context, src Source, ref Ref, cat Category) (File, error) {
	mimeType, ok := matchMime(ref.MimeType, cat)
	if !ok {
		return File{}, fmt.Errorf("%w: %s %q", ErrUnsupportedType, cat, ref.MimeType)
	}

	resolved, err := src.Resolve(ctx, ref.ID)
	if err != nil {
		return File{}, fmt.Errorf("%w: id %s: %v", ErrNotFound, ref.ID, err)
	}

	// The ceiling applies to the resolved size, not anything the sender
	// declared.
	if resolved.FileSize > MaxFileBytes {
		return File{}, fmt.Errorf("%w: %d bytes, max %d", ErrTooLarge, resolved.FileSize, MaxFileBytes)
	}

	data, err := src.Fetch(ctx, resolved.URL)
	if err != nil {
		return File{}, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}

	ing.logger.Debug("media ingested",
		slog.String("category", string(cat)),
		slog.String("mime_type", mimeType),
		slog.Int("bytes", len(data)),
	)
	return File{MimeType: mimeType, Data: data}, nil
}

func matchMime(declared string, cat Category) (string, bool) {
	for _, prefix := range allowedMimePrefixes[cat] {
		if strings.HasPrefix(declared, prefix) {
			return prefix, true
		}
	}
	return "", false
}
