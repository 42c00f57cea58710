package riskclient

import (
	"errors"
	"fmt"
)

var (
	// ErrRequestFailed marks any failed call to the prediction service:
	// transport errors, non-2xx statuses and bodies missing expected keys.
	ErrRequestFailed = errors.New("request failed")

	// ErrInvalidState is returned when an explanation is requested without a
	// verdict. No request is sent in that case.
	ErrInvalidState = errors.New("invalid state")
)

// RequestError describes one failed call. It matches ErrRequestFailed with errors.Is.
type RequestError struct {
	Op         string `json:"op"`
	URL        string `json:"url"`
	StatusCode int    `json:"status_code,omitempty"`
	Err        error  `json:"-"`
}

func (e *RequestError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: POST %s returned status %d: %v", e.Op, e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: POST %s: %v", e.Op, e.URL, e.Err)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

func (e *RequestError) Is(target error) bool {
	return target == ErrRequestFailed
}
