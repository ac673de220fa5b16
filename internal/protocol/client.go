package protocol

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync/atomic"
	"time"

	"golang.org/x/net/proxy"

	"github.com/ofs-tools/ofs-client/internal/constants"
	"github.com/ofs-tools/ofs-client/internal/logging"
)

// Caller issues one OFS call. Implementations never return transport or
// codec failures separately: every outcome is a Response.
type Caller interface {
	Call(ctx context.Context, op Operation, params Params, token string) *Response
}

// Client talks to an OFS server, opening a fresh TCP connection per call.
// It holds no per-session state; the token is supplied on every call.
type Client struct {
	addr    string
	timeout time.Duration
	dialer  proxy.ContextDialer
	logger  *logging.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the bound on one whole call (connect, write, read).
// Non-positive values keep the default.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithDialer replaces the direct TCP dialer, e.g. with a SOCKS5 dialer.
func WithDialer(d proxy.ContextDialer) Option {
	return func(c *Client) {
		if d != nil {
			c.dialer = d
		}
	}
}

// WithLogger sets the logger used for per-call debug output.
func WithLogger(l *logging.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient creates a client for the server at addr ("host:port").
func NewClient(addr string, opts ...Option) *Client {
	c := &Client{
		addr:    addr,
		timeout: constants.DefaultCallTimeout,
		dialer:  &net.Dialer{},
		logger:  logging.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Addr returns the configured server address.
func (c *Client) Addr() string { return c.addr }

// Timeout returns the per-call timeout.
func (c *Client) Timeout() time.Duration { return c.timeout }

var requestCounter uint64

// nextRequestID returns a process-unique request id.
func nextRequestID() string {
	n := atomic.AddUint64(&requestCounter, 1)
	return "req-" + strconv.FormatInt(time.Now().UnixNano(), 36) + "-" + strconv.FormatUint(n, 10)
}

// Call performs one request/response exchange. Failures of any origin are
// returned as an error Response whose message describes the failure.
func (c *Client) Call(ctx context.Context, op Operation, params Params, token string) *Response {
	req := NewRequest(op, params, token)
	req.RequestID = nextRequestID()

	start := time.Now()
	resp, err := c.roundTrip(ctx, req)
	elapsed := time.Since(start)

	if err != nil {
		c.logger.Debug().
			Str("operation", string(op)).
			Str("request_id", req.RequestID).
			Dur("elapsed", elapsed).
			Err(err).
			Msg("call failed")
		return NewErrorResponse(op, describeFailure(op, err))
	}

	if resp.RequestID != "" && resp.RequestID != req.RequestID {
		c.logger.Warn().
			Str("operation", string(op)).
			Str("request_id", req.RequestID).
			Str("echoed", resp.RequestID).
			Msg("response request id does not match")
	}
	if resp.Operation != "" && resp.Operation != op {
		c.logger.Warn().
			Str("operation", string(op)).
			Str("echoed", string(resp.Operation)).
			Msg("response operation does not match")
	}
	resp.normalize(op)

	c.logger.Debug().
		Str("operation", string(op)).
		Str("request_id", req.RequestID).
		Dur("elapsed", elapsed).
		Str("status", string(resp.Status)).
		Msg("call completed")
	return resp
}

// roundTrip dials, writes the request and reads exactly one response line.
// The connection is closed on every path.
func (c *Client) roundTrip(ctx context.Context, req *Request) (*Response, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	data, err := Encode(req)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeoutCause(ctx, c.timeout, errTimeout)
	defer cancel()

	conn, err := c.dialer.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		if cause := context.Cause(ctx); cause != nil && errors.Is(cause, errTimeout) {
			err = cause
		}
		return nil, &TransportError{Op: "connect to " + c.addr, Err: err}
	}
	defer conn.Close()

	// A deadline covers the exchange; cancellation of ctx also unblocks I/O.
	deadline, _ := ctx.Deadline()
	if err := conn.SetDeadline(deadline); err != nil {
		return nil, &TransportError{Op: "set deadline", Err: err}
	}
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Now())
	})
	defer stop()

	if _, err := conn.Write(data); err != nil {
		return nil, &TransportError{Op: "send request", Err: err}
	}

	return Decode(bufio.NewReader(conn))
}

// describeFailure renders a local failure as the error_message of a
// synthesized response.
func describeFailure(op Operation, err error) string {
	var te *TransportError
	if errors.As(err, &te) && te.Timeout() {
		return fmt.Sprintf("%s: connection timed out", op)
	}
	var pe *ProtocolError
	if errors.As(err, &pe) {
		return fmt.Sprintf("%s: %s", op, pe.Reason)
	}
	return fmt.Sprintf("%s: %v", op, err)
}
