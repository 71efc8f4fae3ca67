package services

import (
	"encoding/json"
	"fmt"
)

// Response is the structured result every handler returns to the
// transport layer: a small HTTP-style status code and a body string.
type Response struct {
	StatusCode int
	Body       string
}

// NewResponse builds a Response, serializing the body when the caller
// produced a structured value instead of a string.
func NewResponse(statusCode int, body any) Response {
	s, ok := body.(string)
	if !ok {
		bytes, err := json.Marshal(body)
		if err != nil {
			s = fmt.Sprintf("%v", body)
		} else {
			s = string(bytes)
		}
	}
	return Response{StatusCode: statusCode, Body: s}
}
