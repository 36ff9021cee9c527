package fetcher

import "context"

// Media is a locally materialized audio file plus source metadata.
type Media struct {
	Path     string
	Title    string
	Duration float64 // seconds
}

// Fetcher retrieves remote media and yields a local audio file. The
// file is written under destDir, which the caller owns and removes.
type Fetcher interface {
	Fetch(ctx context.Context, url, destDir string) (*Media, error)
}
