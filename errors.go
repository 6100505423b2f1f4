package apexsync

import "fmt"

// MissingKeyError reports a required credential key that was absent from the
// source selected during resolution.
type MissingKeyError struct {
	Key    string
	Source string
}

func (e MissingKeyError) Error() string {
	return fmt.Sprintf("key %q missing from %s", e.Key, e.Source)
}

// StatusError reports an HTTP exchange that completed with an unusable
// result. The full response is retained so that callers can surface the
// provider's own description of what went wrong.
type StatusError struct {
	Method   string
	URL      string
	Response Response
}

func (e StatusError) Error() string {
	return fmt.Sprintf("%s %s returned status %d: %s", e.Method, e.URL, e.Response.Status, e.Response.Content)
}
