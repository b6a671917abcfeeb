package dbclient

import (
	"context"
	"errors"
	"strings"
)

// Sentinel errors shared by all connectors. Engine-native errors are
// wrapped before they cross the dbclient boundary.
var (
	// ErrNotImplemented is returned by baseConnector for every operation
	// an engine implementation has not overridden.
	ErrNotImplemented = errors.New("not implemented")

	// ErrNotConnected is returned when an operation requires an open
	// connection and none exists.
	ErrNotConnected = errors.New("not connected")

	// ErrUnsupported is returned for features an engine genuinely lacks
	// (e.g. query plans on a document store).
	ErrUnsupported = errors.New("operation not supported by this engine")

	// ErrBackup wraps failures from backup and restore runs so they
	// classify as backup_error rather than query_error.
	ErrBackup = errors.New("backup failed")
)

// Kind is the normalized error category exposed at the command boundary.
type Kind string

const (
	KindConnection  Kind = "connection_error"
	KindQuery       Kind = "query_error"
	KindTimeout     Kind = "timeout"
	KindUnsupported Kind = "unsupported_operation"
	KindBackup      Kind = "backup_error"
)

// Classify maps an error to its Kind. Raw driver errors default to
// query_error; connection-shaped failures are detected by sentinel or
// by the few substrings drivers agree on.
func Classify(err error) Kind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.Is(err, ErrNotImplemented), errors.Is(err, ErrUnsupported):
		return KindUnsupported
	case errors.Is(err, ErrNotConnected):
		return KindConnection
	case errors.Is(err, ErrBackup):
		return KindBackup
	}
	msg := strings.ToLower(err.Error())
	for _, s := range []string{"connection refused", "no such host", "authentication failed", "access denied", "server selection error", "password authentication"} {
		if strings.Contains(msg, s) {
			return KindConnection
		}
	}
	return KindQuery
}
