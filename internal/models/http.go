// Package models defines the request and response data structures used
// for communication between the client and the URL shortener service.
package models

// Request represents a request to shorten a URL.
type Request struct {
	// URL is the original URL to be shortened.
	URL string `json:"url"`
}

// Response represents the response containing the shortened URL.
type Response struct {
	// ShortenedURL is the public address of the short link.
	ShortenedURL string `json:"shortened_url"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// NotFoundResponse is returned for paths that match no route.
type NotFoundResponse struct {
	Error  string `json:"error"`
	Path   string `json:"path"`
	Method string `json:"method"`
}

// HealthResponse reports liveness together with the store connection state.
type HealthResponse struct {
	Status         string `json:"status"`
	StoreConnected bool   `json:"storeConnected"`
	StoreState     string `json:"storeState"`
	AppVersion     string `json:"appVersion"`
	Timestamp      string `json:"timestamp"`
}
