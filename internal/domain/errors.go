package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownTenant means no tenant owns the credential in the webhook
	// envelope. Detected before any side effect.
	ErrUnknownTenant = errors.New("unknown tenant")

	// ErrMalformedPayload means the webhook body is structurally invalid.
	// Detected before any side effect.
	ErrMalformedPayload = errors.New("malformed payload")
)

// UpstreamAPIError is a non-2xx answer from either platform.
type UpstreamAPIError struct {
	Platform Platform
	Status   int
	Endpoint string
	Body     string
}

func (e *UpstreamAPIError) Error() string {
	return fmt.Sprintf("%s API error: status=%d endpoint=%s body=%s", e.Platform, e.Status, e.Endpoint, e.Body)
}

// MediaFetchError wraps a failure to download media from the source platform.
// MediaRelay converts it into a textual fallback instead of propagating it.
type MediaFetchError struct {
	Kind    MediaKind
	MediaID string
	Err     error
}

func (e *MediaFetchError) Error() string {
	return fmt.Sprintf("failed to fetch %s media %s: %v", e.Kind, e.MediaID, e.Err)
}

func (e *MediaFetchError) Unwrap() error {
	return e.Err
}
