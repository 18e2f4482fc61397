package query

import (
	"context"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/maxpantech/mongodb-proxy-service/pkg/utils/errors"
)

// FailureClass is the coarse upstream failure classification reported in
// the failure envelope's diagnostics.
type FailureClass string

// Failure classes.
const (
	FailureTimeout    FailureClass = "timeout"
	FailureConnection FailureClass = "connection"
	FailureAuth       FailureClass = "auth"
	FailureUnknown    FailureClass = "unknown"
)

// Classify maps a driver error to its failure class. The original message
// text is preserved separately for caller diagnostics; classification only
// inspects the error, it never rewrites it.
func Classify(err error) FailureClass {
	if err == nil {
		return ""
	}

	if mongo.IsTimeout(err) || err == context.DeadlineExceeded {
		return FailureTimeout
	}

	msg := strings.ToLower(err.Error())

	switch {
	case strings.Contains(msg, "exceeded time limit"),
		strings.Contains(msg, "deadline exceeded"),
		strings.Contains(msg, "maxtimems"):
		return FailureTimeout
	case strings.Contains(msg, "authentication failed"),
		strings.Contains(msg, "unauthorized"),
		strings.Contains(msg, "sasl"),
		strings.Contains(msg, "auth error"):
		return FailureAuth
	case strings.Contains(msg, "server selection"),
		strings.Contains(msg, "connection refused"),
		strings.Contains(msg, "connection reset"),
		strings.Contains(msg, "no reachable servers"),
		strings.Contains(msg, "socket"),
		strings.Contains(msg, "network"),
		strings.Contains(msg, "eof"):
		return FailureConnection
	default:
		return FailureUnknown
	}
}

// errnoFor maps a failure class to the Errno template used for the
// response envelope.
func errnoFor(class FailureClass) *errors.Errno {
	switch class {
	case FailureTimeout:
		return errors.ErrMongoTimeout
	case FailureConnection:
		return errors.ErrMongoConnect
	case FailureAuth:
		return errors.ErrMongoAuth
	default:
		return errors.ErrMongoUpstream
	}
}
