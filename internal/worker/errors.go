package worker

import (
	"errors"
	"fmt"
)

// ErrEmptyInput is returned when no image survived fetching and normalizing.
var ErrEmptyInput = errors.New("no usable images")

// ErrUnsupportedFormat marks content that is not a decodable still image.
var ErrUnsupportedFormat = errors.New("unsupported image format")

// ErrImageTooLarge marks a source image whose dimensions exceed the
// configured pixel budget.
var ErrImageTooLarge = errors.New("image too large")

// FetchError reports a single asset that could not be retrieved.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// NormalizeError reports an image that could not be decoded or re-encoded.
type NormalizeError struct {
	Index    int
	MimeType string
	Err      error
}

func (e *NormalizeError) Error() string {
	return fmt.Sprintf("normalize image %d (%s): %v", e.Index, e.MimeType, e.Err)
}

func (e *NormalizeError) Unwrap() error { return e.Err }

// EncodeError reports a failed encoder run. Stderr holds the tail of the
// encoder's diagnostic output.
type EncodeError struct {
	ExitCode int
	Stderr   string
	Err      error
}

func (e *EncodeError) Error() string {
	msg := fmt.Sprintf("encode failed (exit code %d): %v", e.ExitCode, e.Err)
	if e.Stderr != "" {
		msg += ", stderr: " + e.Stderr
	}
	return msg
}

func (e *EncodeError) Unwrap() error { return e.Err }
