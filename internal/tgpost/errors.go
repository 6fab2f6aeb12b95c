package tgpost

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMissingChannel is returned when no destination channel was given.
	ErrMissingChannel = errors.New("channel is required")
	// ErrEmptyText is returned when a text post resolves to an empty message.
	ErrEmptyText = errors.New("empty message text, aborting")
)

// InvalidFormatError is returned for images with an unsupported extension.
type InvalidFormatError struct {
	Extension string
	Supported []string
}

func (e *InvalidFormatError) Error() string {
	return fmt.Sprintf("unsupported image format %q (supported: %s)", e.Extension, strings.Join(e.Supported, ", "))
}

// TooLargeError is returned for images above the upload limit.
type TooLargeError struct {
	Size  int64
	Limit int64
}

func (e *TooLargeError) Error() string {
	return fmt.Sprintf("image too large (%.1f MB, maximum: %.0f MB)", megabytes(e.Size), megabytes(e.Limit))
}

// ImageNotFoundError is returned when the image to upload does not exist.
type ImageNotFoundError struct {
	Path string
	Err  error
}

func (e *ImageNotFoundError) Error() string {
	return fmt.Sprintf("image not found: %s", e.Path)
}

func (e *ImageNotFoundError) Unwrap() error { return e.Err }

// RemoteError is returned when the Bot API answers with a non-2xx status.
type RemoteError struct {
	Method     string
	StatusCode int
	Body       string

	// Populated when Body is a Bot API error envelope.
	Description string
	RetryAfter  int
}

func (e *RemoteError) Error() string {
	msg := fmt.Sprintf("%s failed: %d: %s", e.Method, e.StatusCode, strings.TrimSpace(e.Body))
	if e.RetryAfter > 0 {
		msg += fmt.Sprintf(" (retry after %ds)", e.RetryAfter)
	}
	return msg
}

// MissingCredentialError is returned when no bot token could be resolved.
type MissingCredentialError struct {
	Key    string
	Source string
}

func (e *MissingCredentialError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("%s is not configured", e.Key)
	}
	return fmt.Sprintf("%s is not configured (checked %s)", e.Key, e.Source)
}

func megabytes(n int64) float64 {
	return float64(n) / 1024 / 1024
}
