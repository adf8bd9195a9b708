package webproxy

import (
	"errors"
	"fmt"
)

var (
	ErrMalformedRequestLine = errors.New("malformed request line")
	ErrUnsupportedMethod    = errors.New("method not implemented")
	ErrUpstreamConnect      = errors.New("could not connect to end server")
	// ErrPeerIO marks a transaction aborted because the client or the origin failed mid-transfer.
	// No error page is sent for it.
	ErrPeerIO = errors.New("peer I/O failure")
	// ErrNoRequest marks a client that closed the connection before sending anything.
	ErrNoRequest = errors.New("client closed without a request")
)

func peerIO(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrPeerIO, op, err)
}
