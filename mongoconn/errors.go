// mongoconn/errors.go
package mongoconn

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConnected is returned by accessors used before the handle
	// reached the connected state.
	ErrNotConnected = errors.New("mongoconn: not connected")

	// ErrClosed is returned once Close has been called on the handle.
	ErrClosed = errors.New("mongoconn: handle closed")
)

// ConnectError is the terminal failure of a connection attempt.
type ConnectError struct {
	Target   Target
	Attempts int
	Err      error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("connect %s failed after %d attempt(s): %v", e.Target, e.Attempts, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }
