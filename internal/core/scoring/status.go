// Package scoring holds the pure scoring functions applied to each group:
// status classification, Apdex and the log-normal experience score.
package scoring

import (
	"errors"
	"fmt"
)

// ErrUnclassifiableStatus is returned for status codes outside every known range.
var ErrUnclassifiableStatus = errors.New("unclassifiable status code")

// StatusClass is the bucket an HTTP status code falls into.
type StatusClass string

const (
	StatusSuccess     StatusClass = "success"
	StatusRedirect    StatusClass = "redirect"
	StatusClientError StatusClass = "clientError"
	StatusServerError StatusClass = "serverError"
)

// ClassifyStatus maps a status code to its class. Codes outside 200-599 are an
// error; callers decide how to tally them.
func ClassifyStatus(code int) (StatusClass, error) {
	switch {
	case code >= 200 && code <= 299:
		return StatusSuccess, nil
	case code >= 300 && code <= 399:
		return StatusRedirect, nil
	case code >= 400 && code <= 499:
		return StatusClientError, nil
	case code >= 500 && code <= 599:
		return StatusServerError, nil
	default:
		return "", fmt.Errorf("%w: %d", ErrUnclassifiableStatus, code)
	}
}

// IsError reports whether the class counts towards the error rate.
func (c StatusClass) IsError() bool {
	return c == StatusClientError || c == StatusServerError
}
