package crawler

import "fmt"

// FetchError describes a resource that could not be downloaded.
// Status is zero when the request itself failed.
type FetchError struct {
	URL    string
	Status int
	Err    error
}

// Error implements error.
func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.Status)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

// Unwrap returns the underlying error.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// RenderError describes a page the renderer could not produce.
type RenderError struct {
	URL string
	Err error
}

// Error implements error.
func (e *RenderError) Error() string {
	return fmt.Sprintf("render %s: %v", e.URL, e.Err)
}

// Unwrap returns the underlying error.
func (e *RenderError) Unwrap() error {
	return e.Err
}
