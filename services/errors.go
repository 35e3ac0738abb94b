package services

import (
	"encoding/json"
	"fmt"
)

// RemoteAPIError is returned when the Graph API answers 400 with an error object.
type RemoteAPIError struct {
	StatusCode   int
	Message      string `json:"message"`
	Type         string `json:"type"`
	Code         int    `json:"code"`
	ErrorSubcode int    `json:"error_subcode"`
	FBTraceID    string `json:"fbtrace_id"`

	// Raw is the remote error object exactly as received.
	Raw json.RawMessage `json:"-"`
}

func (e *RemoteAPIError) Error() string {
	return fmt.Sprintf("graph API error (status %d, code %d, type %s): %s", e.StatusCode, e.Code, e.Type, e.Message)
}

// TransportError wraps a network level failure; no response was received.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("calling graph API: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// MalformedResponseError is returned when the response body is not JSON.
type MalformedResponseError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("graph API returned non-JSON body (status %d): %v", e.StatusCode, e.Err)
}

func (e *MalformedResponseError) Unwrap() error {
	return e.Err
}

// UnexpectedStatusError covers every status other than 200, and 400 responses
// without an error object.
type UnexpectedStatusError struct {
	StatusCode int
	Body       string
}

func (e *UnexpectedStatusError) Error() string {
	return fmt.Sprintf("graph API returned status %d: %s", e.StatusCode, e.Body)
}
