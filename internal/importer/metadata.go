// Package importer fetches videos from external sites with yt-dlp so they
// can be uploaded to VideoTube.
package importer

import (
	"context"
	"errors"
)

// ErrProviderUnavailable indicates the metadata provider is not configured.
var ErrProviderUnavailable = errors.New("video metadata provider unavailable")

// Metadata captures the details used to prefill an upload.
type Metadata struct {
	Title       string
	Description string
	Thumbnail   string
	Duration    float64
}

// Provider returns metadata for the supplied video URL.
type Provider interface {
	Lookup(ctx context.Context, url string) (Metadata, error)
}

// ProviderFunc adapts a function to the Provider interface.
type ProviderFunc func(ctx context.Context, url string) (Metadata, error)

// Lookup implements Provider.
func (f ProviderFunc) Lookup(ctx context.Context, url string) (Metadata, error) {
	return f(ctx, url)
}
