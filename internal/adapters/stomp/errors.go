package stomp

import (
	"errors"
	"strings"
)

var (
	ErrBackpressure = errors.New("stomp: send buffer full")
	ErrClosed       = errors.New("stomp: connection closed")
	ErrRejected     = errors.New("stomp: handshake rejected")
)

// IsExpectedCloseError checks if an error is expected during connection closure.
func IsExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "websocket: close sent") ||
		strings.Contains(errStr, "broken pipe")
}
