package main

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNoURL               = errors.New("No URL provided.")
	ErrInvalidURL          = errors.New("Invalid URL provided.")
	ErrModelLoading        = errors.New("AI model is still loading. Please retry shortly.")
	ErrModelUnavailable    = errors.New("AI model is not loaded. Please check server logs.")
	ErrNotExpanded         = errors.New("Could not expand URL. May not be a short link or request blocked.")
	ErrUpstreamTimeout     = errors.New("Request timed out.")
	ErrUpstreamConnect     = errors.New("Could not connect.")
	ErrTooManyRedirects    = errors.New("Too many redirects.")
	ErrMissingReportFields = errors.New("URL and feedback are required.")
	ErrStoreNotConfigured  = errors.New("Database connection is not configured.")
	ErrStoreWrite          = errors.New("An error occurred while submitting your report.")
)

// UpstreamStatusError is returned when the expanded link answers with an
// error status; the status is relayed to the caller.
type UpstreamStatusError struct {
	Code int
}

func (e *UpstreamStatusError) Error() string {
	return fmt.Sprintf("Request failed with status: %d", e.Code)
}

// UpstreamRequestError covers request failures that are neither timeouts
// nor connection errors.
type UpstreamRequestError struct {
	Err error
}

func (e *UpstreamRequestError) Error() string { return "Request error: " + e.Err.Error() }

func (e *UpstreamRequestError) Unwrap() error { return e.Err }

// httpStatusFor maps an error to its HTTP status and the message safe to
// show the caller. Anything unclassified is an internal error.
func httpStatusFor(err error) (int, string) {
	var statusErr *UpstreamStatusError
	var reqErr *UpstreamRequestError

	switch {
	case errors.Is(err, ErrNoURL), errors.Is(err, ErrInvalidURL),
		errors.Is(err, ErrNotExpanded), errors.Is(err, ErrMissingReportFields):
		return http.StatusBadRequest, userMessage(err)
	case errors.Is(err, ErrModelLoading):
		return http.StatusServiceUnavailable, ErrModelLoading.Error()
	case errors.Is(err, ErrModelUnavailable):
		return http.StatusInternalServerError, ErrModelUnavailable.Error()
	case errors.Is(err, ErrUpstreamTimeout):
		return http.StatusGatewayTimeout, ErrUpstreamTimeout.Error()
	case errors.Is(err, ErrUpstreamConnect):
		return http.StatusInternalServerError, ErrUpstreamConnect.Error()
	case errors.Is(err, ErrTooManyRedirects):
		return http.StatusInternalServerError, ErrTooManyRedirects.Error()
	case errors.As(err, &statusErr):
		return statusErr.Code, statusErr.Error()
	case errors.As(err, &reqErr):
		return http.StatusInternalServerError, reqErr.Error()
	case errors.Is(err, ErrStoreNotConfigured):
		return http.StatusInternalServerError, ErrStoreNotConfigured.Error()
	case errors.Is(err, ErrStoreWrite):
		return http.StatusInternalServerError, ErrStoreWrite.Error()
	default:
		return http.StatusInternalServerError, ""
	}
}

func userMessage(err error) string {
	for _, known := range []error{ErrNoURL, ErrInvalidURL, ErrNotExpanded, ErrMissingReportFields} {
		if errors.Is(err, known) {
			return known.Error()
		}
	}
	return err.Error()
}
