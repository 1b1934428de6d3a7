package crawler

import (
	"errors"
	"fmt"
)

// ErrMalformedURL marks a candidate URL that could not be parsed. Callers treat
// it as an ordinary filtering outcome, not as a failure.
var ErrMalformedURL = errors.New("malformed url")

// FetchError describes a failed page fetch. It is never fatal to a crawl.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d: %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
