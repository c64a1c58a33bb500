package twitter

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// ErrMalformedPayload is returned when the upstream body does not have the
// shape of a friends list response.
var ErrMalformedPayload = errors.New("malformed upstream payload")

// APIError is an error reported by the Twitter API itself, either through its
// "errors" payload or through a bare non-2xx status.
type APIError struct {
	StatusCode int
	Code       int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("upstream returned status %d", e.StatusCode)
}

type apiErrorDetail struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type friendsEnvelope struct {
	Users  []json.RawMessage `json:"users"`
	Errors []apiErrorDetail  `json:"errors"`
}

func parseFriendsList(status int, body []byte) ([]Friend, error) {
	ok := status >= 200 && status < 300

	var env friendsEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		if !ok {
			return nil, &APIError{StatusCode: status, Message: http.StatusText(status)}
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	if len(env.Errors) > 0 {
		first := env.Errors[0]
		return nil, &APIError{StatusCode: status, Code: first.Code, Message: first.Message}
	}
	if !ok {
		return nil, &APIError{StatusCode: status, Message: http.StatusText(status)}
	}

	if env.Users == nil {
		return nil, fmt.Errorf("%w: missing users field", ErrMalformedPayload)
	}
	for i, user := range env.Users {
		if !bytes.HasPrefix(bytes.TrimSpace(user), []byte("{")) {
			return nil, fmt.Errorf("%w: user %d is not a JSON object", ErrMalformedPayload, i)
		}
	}
	return env.Users, nil
}
