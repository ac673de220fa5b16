package protocol

import (
	"errors"
	"fmt"
	"net"
)

// ProtocolError is a well-connected exchange whose payload could not be
// understood (empty or unparseable line).
type ProtocolError struct {
	Reason string
	Err    error
}

func (e *ProtocolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}
	return e.Reason
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// TransportError is a connect, write or read failure, including timeouts.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	if e.Timeout() {
		return fmt.Sprintf("%s: timed out: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Timeout reports whether the failure was a deadline expiry.
func (e *TransportError) Timeout() bool {
	var ne net.Error
	if errors.As(e.Err, &ne) && ne.Timeout() {
		return true
	}
	return errors.Is(e.Err, errTimeout)
}

var errTimeout = errors.New("call timeout exceeded")

// RemoteError is the error form of an error Response. Application errors
// from the server carry its message verbatim; transport and protocol
// failures arrive here too, already folded into the response by Client.Call.
type RemoteError struct {
	Operation Operation
	Message   string
	Code      int
}

func (e *RemoteError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s failed", e.Operation)
	}
	return e.Message
}

// IsRemoteError reports whether err is (or wraps) a *RemoteError.
func IsRemoteError(err error) bool {
	var re *RemoteError
	return errors.As(err, &re)
}
