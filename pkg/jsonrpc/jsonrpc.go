package jsonrpc

import (
	"bytes"
	"encoding/json"
	"fmt"
)

const (
	// Version is the JSON-RPC version
	Version = "2.0"
)

// Request represents a JSON-RPC request
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// IsNotification returns true if the request is a notification (no ID)
func (r *Request) IsNotification() bool {
	return r.ID == nil
}

// DecodeParams unmarshals the request params into v. Absent params leave v
// untouched.
func (r *Request) DecodeParams(v interface{}) error {
	trimmed := bytes.TrimSpace(r.Params)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(trimmed, v); err != nil {
		return fmt.Errorf("invalid params: %w", err)
	}
	return nil
}

// ParseRequest decodes one JSON-RPC message. The returned error is ready to
// be sent back to the peer.
func ParseRequest(data []byte) (*Request, *Error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, ParseError(err.Error())
	}
	if req.JSONRPC != Version || req.Method == "" {
		return &req, InvalidRequestError("jsonrpc must be \"2.0\" and method must be set")
	}
	return &req, nil
}

// Notification is a server-to-client message without an ID
type Notification struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
}

// NewNotification creates a notification
func NewNotification(method string, params interface{}) *Notification {
	return &Notification{JSONRPC: Version, Method: method, Params: params}
}

// Response represents a JSON-RPC response
type Response struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *Error      `json:"error,omitempty"`
}

// Error represents a JSON-RPC error
type Error struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Standard error codes as defined in the JSON-RPC 2.0 spec
const (
	ParseErrorCode     = -32700
	InvalidRequestCode = -32600
	MethodNotFoundCode = -32601
	InvalidParamsCode  = -32602
	InternalErrorCode  = -32603
)

// Error returns a string representation of the error
func (e *Error) Error() string {
	return fmt.Sprintf("JSON-RPC error %d: %s", e.Code, e.Message)
}

// NewResponse creates a new response for the given request
func NewResponse(req *Request, result interface{}, err *Error) *Response {
	resp := &Response{
		JSONRPC: Version,
	}
	if req != nil {
		resp.ID = req.ID
	}

	if err != nil {
		resp.Error = err
	} else {
		resp.Result = result
	}

	return resp
}

// NewError creates a new Error with the given code and message
func NewError(code int, message string, data interface{}) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// ParseError creates a parse error
func ParseError(data interface{}) *Error {
	return NewError(ParseErrorCode, "Parse error", data)
}

// InvalidRequestError creates an invalid request error
func InvalidRequestError(data interface{}) *Error {
	return NewError(InvalidRequestCode, "Invalid Request", data)
}

// MethodNotFoundError creates a method not found error
func MethodNotFoundError(data interface{}) *Error {
	return NewError(MethodNotFoundCode, "Method not found", data)
}

// InvalidParamsError creates an invalid params error
func InvalidParamsError(data interface{}) *Error {
	return NewError(InvalidParamsCode, "Invalid params", data)
}

// InternalError creates an internal error
func InternalError(data interface{}) *Error {
	return NewError(InternalErrorCode, "Internal error", data)
}
