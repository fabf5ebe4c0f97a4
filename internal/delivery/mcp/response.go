package mcp

import (
	"encoding/json"
	"fmt"
)

// TextContent represents a text content item in a response
type TextContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Response is the result envelope every tool returns
type Response struct {
	Content []TextContent `json:"content"`
	IsError bool          `json:"isError,omitempty"`
}

// NewResponse creates a new empty Response
func NewResponse() *Response {
	return &Response{
		Content: make([]TextContent, 0),
	}
}

// WithText adds a text content item to the response
func (r *Response) WithText(text string) *Response {
	r.Content = append(r.Content, TextContent{
		Type: "text",
		Text: text,
	})
	return r
}

// FromString creates a response from a string
func FromString(text string) *Response {
	return NewResponse().WithText(text)
}

// FromError creates the error envelope: a single "Error: <message>" text item
// with the error flag set.
func FromError(err error) *Response {
	resp := FromString(fmt.Sprintf("Error: %s", err.Error()))
	resp.IsError = true
	return resp
}

// FromJSON creates a response carrying v as compact JSON text
func FromJSON(v interface{}) (*Response, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode result: %w", err)
	}
	return FromString(string(data)), nil
}

// FormatResponse converts a tool result or failure into a Response. It never
// returns an error; failures become the error envelope.
func FormatResponse(response interface{}, err error) *Response {
	if err != nil {
		return FromError(err)
	}

	switch r := response.(type) {
	case nil:
		return NewResponse()
	case *Response:
		return r
	case string:
		return FromString(r)
	default:
		resp, jsonErr := FromJSON(r)
		if jsonErr != nil {
			return FromError(jsonErr)
		}
		return resp
	}
}
