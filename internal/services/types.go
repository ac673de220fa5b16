// Package services is the OFS operation catalog: one typed method per remote
// operation, each issuing a single call and projecting the response data
// into a models record. Methods never fail on transport problems separately
// from server rejections: every remote failure is a *protocol.RemoteError.
package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ofs-tools/ofs-client/internal/protocol"
)

// Invoker issues one call with the active session attached.
// *session.Manager implements it.
type Invoker interface {
	Call(ctx context.Context, op protocol.Operation, params protocol.Params) *protocol.Response
}

// invoke performs op and converts an error response into an error.
func invoke(ctx context.Context, inv Invoker, op protocol.Operation, params protocol.Params) (*protocol.Response, error) {
	resp := inv.Call(ctx, op, params)
	if resp == nil {
		return nil, &protocol.RemoteError{Operation: op, Message: fmt.Sprintf("%s: no response", op)}
	}
	if err := resp.Err(); err != nil {
		return resp, err
	}
	return resp, nil
}

// decode projects the data of a success response into T.
func decode[T any](op protocol.Operation, resp *protocol.Response) (T, error) {
	var out T
	if !resp.HasData() {
		return out, &protocol.RemoteError{Operation: op, Message: fmt.Sprintf("%s: response carried no data", op)}
	}
	if err := json.Unmarshal(resp.Data, &out); err != nil {
		return out, &protocol.RemoteError{Operation: op, Message: fmt.Sprintf("%s: malformed response data: %v", op, err)}
	}
	return out, nil
}

// malformed reports a projection that decoded but failed validation.
func malformed(op protocol.Operation, err error) error {
	return &protocol.RemoteError{Operation: op, Message: fmt.Sprintf("%s: malformed response data: %v", op, err)}
}
