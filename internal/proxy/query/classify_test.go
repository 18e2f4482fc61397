package query

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/maxpantech/mongodb-proxy-service/pkg/utils/errors"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want FailureClass
	}{
		{name: "nil", err: nil, want: ""},
		{name: "deadline exceeded", err: context.DeadlineExceeded, want: FailureTimeout},
		{name: "server time limit", err: fmt.Errorf("operation exceeded time limit"), want: FailureTimeout},
		{name: "maxtime", err: fmt.Errorf("MaxTimeMS expired"), want: FailureTimeout},
		{name: "auth failed", err: fmt.Errorf("Authentication failed"), want: FailureAuth},
		{name: "unauthorized", err: fmt.Errorf("(Unauthorized) not authorized on admin"), want: FailureAuth},
		{name: "sasl", err: fmt.Errorf("sasl conversation error"), want: FailureAuth},
		{name: "server selection", err: fmt.Errorf("server selection error: context deadline exceeded"), want: FailureTimeout},
		{name: "connection refused", err: fmt.Errorf("dial tcp 10.0.0.1:27017: connection refused"), want: FailureConnection},
		{name: "connection reset", err: fmt.Errorf("read: connection reset by peer"), want: FailureConnection},
		{name: "socket", err: fmt.Errorf("socket was unexpectedly closed"), want: FailureConnection},
		{name: "unknown", err: fmt.Errorf("duplicate key error"), want: FailureUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestErrnoForFailureClass(t *testing.T) {
	assert.Equal(t, errors.ErrMongoTimeout, errnoFor(FailureTimeout))
	assert.Equal(t, errors.ErrMongoConnect, errnoFor(FailureConnection))
	assert.Equal(t, errors.ErrMongoAuth, errnoFor(FailureAuth))
	assert.Equal(t, errors.ErrMongoUpstream, errnoFor(FailureUnknown))
}
