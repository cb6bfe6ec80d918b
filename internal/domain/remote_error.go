package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// RemoteError is an error reported by the backend itself while executing a
// remote procedure or insert. Its JSON form is the payload echoed back to the
// caller and stored in the execution log.
type RemoteError struct {
	StatusCode int    `json:"-"`
	Message    string `json:"message"`
	Code       string `json:"code,omitempty"`
	Details    string `json:"details,omitempty"`
	Hint       string `json:"hint,omitempty"`

	// Payload is the error body exactly as the backend sent it, when it was
	// JSON. It takes precedence over the decoded fields when marshalled.
	Payload json.RawMessage `json:"-"`
}

func (e RemoteError) MarshalJSON() ([]byte, error) {
	if len(e.Payload) > 0 {
		return e.Payload, nil
	}
	type fields RemoteError
	return json.Marshal(fields(e))
}

func (e *RemoteError) Error() string {
	if e == nil {
		return "<nil>"
	}

	parts := make([]string, 0, 3)
	parts = append(parts, "remote error")
	if code := strings.TrimSpace(e.Code); code != "" {
		parts = append(parts, fmt.Sprintf("code=%s", code))
	}
	if msg := strings.TrimSpace(e.Message); msg != "" {
		parts = append(parts, msg)
	}
	return strings.Join(parts, ": ")
}

// AsRemoteError unwraps err into a *RemoteError if one is in its chain.
func AsRemoteError(err error) (*RemoteError, bool) {
	var remoteErr *RemoteError
	if errors.As(err, &remoteErr) && remoteErr != nil {
		return remoteErr, true
	}
	return nil, false
}
