package backoffice

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrUnauthorized indicates the backoffice rejected the session credentials.
	ErrUnauthorized = errors.New("backoffice: unauthorized")
	// ErrNetwork indicates the request never produced an HTTP response.
	ErrNetwork = errors.New("backoffice: network failure")
	// ErrNotFound indicates a 404 from the backoffice.
	ErrNotFound = errors.New("backoffice: not found")
)

// APIError is a failed backoffice call that produced a response.
type APIError struct {
	Status  int
	Code    string
	Message string
	Detail  string
	Context map[string]any
}

func (e *APIError) Error() string {
	text := e.Detail
	if text == "" {
		text = e.Message
	}
	if e.Code != "" {
		return fmt.Sprintf("backoffice: status %d: %s: %s", e.Status, e.Code, text)
	}
	return fmt.Sprintf("backoffice: status %d: %s", e.Status, text)
}

// Unwrap exposes the sentinel matching the status code.
func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusNotFound:
		return ErrNotFound
	}
	return nil
}

// Text returns the most specific human text carried by the error.
func (e *APIError) Text() string {
	if e.Detail != "" {
		return e.Detail
	}
	return e.Message
}

type errorBody struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Detail  string         `json:"detail"`
	Context map[string]any `json:"context"`
}

type errorEnvelope struct {
	Error   json.RawMessage `json:"error"`
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Detail  string          `json:"detail"`
	Context map[string]any  `json:"context"`
}

// decodeAPIError builds an APIError from the various failure bodies the
// backoffice emits: {error:{code,...}}, {error:"..."}, {detail}, {message}.
func decodeAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{Status: status}
	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		apiErr.Message = strings.TrimSpace(string(body))
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(status)
		}
		return apiErr
	}
	apiErr.Code = env.Code
	apiErr.Message = env.Message
	apiErr.Detail = env.Detail
	apiErr.Context = env.Context

	if len(env.Error) > 0 {
		var nested errorBody
		var plain string
		switch {
		case json.Unmarshal(env.Error, &nested) == nil:
			if nested.Code != "" {
				apiErr.Code = nested.Code
			}
			if nested.Message != "" {
				apiErr.Message = nested.Message
			}
			if nested.Detail != "" {
				apiErr.Detail = nested.Detail
			}
			if nested.Context != nil {
				apiErr.Context = nested.Context
			}
		case json.Unmarshal(env.Error, &plain) == nil && apiErr.Message == "":
			apiErr.Message = plain
		}
	}
	if apiErr.Message == "" && apiErr.Detail == "" {
		apiErr.Message = http.StatusText(status)
	}
	return apiErr
}
