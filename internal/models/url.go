package models

// ShortenResult is the outcome of a shorten call.
type ShortenResult struct {
	ShortID      string
	Original     string
	ShortenedURL string
	// Created is false when an existing mapping was returned.
	Created bool
}
