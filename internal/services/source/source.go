// Package source fetches favorite posts from the resolver service: post
// metadata plus the media payloads behind it.
package source

import (
	"context"
	"time"

	"reelvault/internal/archive"
)

// Media is everything the resolver knows about one post, with the media
// payloads already downloaded.
type Media struct {
	Title           string
	Uploader        string
	UploaderID      string
	Description     string
	ContentType     archive.ContentType
	DurationSeconds float64
	CreatedAt       time.Time

	Video     []byte   // set for video posts
	Images    [][]byte // set for image posts, carousel order
	Thumbnail []byte
}

// Client resolves a source URL into downloaded media.
type Client interface {
	Fetch(ctx context.Context, sourceURL string) (*Media, error)
	Ping(ctx context.Context) error
}
