// Package protocol implements the OFS wire format and the request/response
// client. One request and one response travel over each TCP connection, each
// encoded as a single line of JSON terminated by '\n'.
package protocol

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Status is the outcome field of a response.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Params are the operation parameters, a JSON object on the wire.
type Params map[string]interface{}

// Request is one call to the OFS server.
type Request struct {
	Operation  Operation `json:"operation"`
	Parameters Params    `json:"parameters"`
	// SessionID is attached by the client whenever a session is active.
	SessionID string `json:"session_id,omitempty"`
	// RequestID is echoed back by the server. It is informational only:
	// correlation is implicit because a connection carries one exchange.
	RequestID string `json:"request_id,omitempty"`
}

// Response is the server's reply. Data is meaningful only on success,
// ErrorMessage only on error.
type Response struct {
	Status       Status          `json:"status"`
	Data         json.RawMessage `json:"data,omitempty"`
	ErrorMessage string          `json:"error_message,omitempty"`
	ErrorCode    int             `json:"error_code,omitempty"`
	Operation    Operation       `json:"operation,omitempty"`
	RequestID    string          `json:"request_id,omitempty"`
}

// NewRequest builds a request. A nil params becomes an empty object and the
// session id is only set when token is non-empty.
func NewRequest(op Operation, params Params, token string) *Request {
	if params == nil {
		params = Params{}
	}
	return &Request{
		Operation:  op,
		Parameters: params,
		SessionID:  token,
	}
}

// NewSuccessResponse creates a success response carrying data (may be nil).
func NewSuccessResponse(op Operation, data interface{}) (*Response, error) {
	resp := &Response{Status: StatusSuccess, Operation: op}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s data: %w", op, err)
		}
		resp.Data = raw
	}
	return resp, nil
}

// NewErrorResponse creates an error response. This is also the shape every
// transport and codec failure is converted into.
func NewErrorResponse(op Operation, message string) *Response {
	return &Response{Status: StatusError, Operation: op, ErrorMessage: message}
}

// OK reports whether the response has status success.
func (r *Response) OK() bool {
	return r != nil && r.Status == StatusSuccess
}

// HasData reports whether the response carries a non-null data value.
func (r *Response) HasData() bool {
	if r == nil {
		return false
	}
	trimmed := bytes.TrimSpace(r.Data)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}

// Err returns nil for a success response and a *RemoteError otherwise.
func (r *Response) Err() error {
	if r == nil {
		return &RemoteError{Message: "no response"}
	}
	if r.Status == StatusSuccess {
		return nil
	}
	return &RemoteError{Operation: r.Operation, Message: r.ErrorMessage, Code: r.ErrorCode}
}

// normalize fills the error message when the server only sent an error code,
// so that error_message is present iff status is error.
func (r *Response) normalize(op Operation) {
	if r.Operation == "" {
		r.Operation = op
	}
	if r.Status != StatusError || r.ErrorMessage != "" {
		return
	}
	if r.ErrorCode != 0 {
		r.ErrorMessage = fmt.Sprintf("%s failed (error code %d)", r.Operation, r.ErrorCode)
	} else {
		r.ErrorMessage = fmt.Sprintf("%s failed", r.Operation)
	}
}

// Encode serializes a request to a single newline-terminated line.
func Encode(req *Request) ([]byte, error) {
	if req.Parameters == nil {
		req.Parameters = Params{}
	}
	data, err := json.Marshal(req)
	if err != nil {
		return nil, &ProtocolError{Reason: "unencodable request", Err: err}
	}
	return append(data, '\n'), nil
}

// EncodeResponse serializes a response to a single newline-terminated line.
func EncodeResponse(resp *Response) ([]byte, error) {
	data, err := json.Marshal(resp)
	if err != nil {
		return nil, &ProtocolError{Reason: "unencodable response", Err: err}
	}
	return append(data, '\n'), nil
}

// readLine reads up to and including the next '\n'. A stream that closes
// before yielding any byte is an empty response; one that closes mid-line
// is a transport failure.
func readLine(r *bufio.Reader) ([]byte, error) {
	line, err := r.ReadBytes('\n')
	if err != nil {
		if errors.Is(err, io.EOF) {
			if len(line) == 0 {
				return nil, &ProtocolError{Reason: "empty response"}
			}
			return nil, &TransportError{Op: "read response", Err: io.ErrUnexpectedEOF}
		}
		return nil, &TransportError{Op: "read response", Err: err}
	}
	return line, nil
}

// Decode reads exactly one response line from r.
func Decode(r *bufio.Reader) (*Response, error) {
	line, err := readLine(r)
	if err != nil {
		return nil, err
	}
	return DecodeResponse(line)
}

// DecodeResponse parses one response line.
func DecodeResponse(line []byte) (*Response, error) {
	var resp Response
	if err := json.Unmarshal(bytes.TrimSpace(line), &resp); err != nil {
		return nil, &ProtocolError{Reason: "malformed response", Err: err}
	}
	if resp.Status != StatusSuccess && resp.Status != StatusError {
		return nil, &ProtocolError{Reason: "malformed response", Err: fmt.Errorf("unknown status %q", resp.Status)}
	}
	return &resp, nil
}

// DecodeRequest reads exactly one request line from r.
func DecodeRequest(r *bufio.Reader) (*Request, error) {
	line, err := readLine(r)
	if err != nil {
		return nil, err
	}
	var req Request
	if err := json.Unmarshal(bytes.TrimSpace(line), &req); err != nil {
		return nil, &ProtocolError{Reason: "malformed request", Err: err}
	}
	if req.Operation == "" {
		return nil, &ProtocolError{Reason: "malformed request", Err: errors.New("missing operation")}
	}
	if req.Parameters == nil {
		req.Parameters = Params{}
	}
	return &req, nil
}
