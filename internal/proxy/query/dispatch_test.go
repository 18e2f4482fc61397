package query

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/maxpantech/mongodb-proxy-service/pkg/utils/errors"
)

type fakeTarget struct {
	touched bool
}

func (f *fakeTarget) Collection(string) *mongo.Collection { return nil }
func (f *fakeTarget) Touch()                              { f.touched = true }

func TestDispatchRejectsUnsupportedOperation(t *testing.T) {
	d := NewDispatcher(DefaultCoercionConfig())
	target := &fakeTarget{}

	res, err := d.Dispatch(context.Background(), target, &Request{
		ConnectionID: "c1",
		Collection:   "orders",
		Operation:    "dropDatabase",
	})

	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrUnsupportedOperation.Code))
	require.NotNil(t, res)
	assert.Equal(t, Operation("dropDatabase"), res.Diagnostics.Operation)
	assert.Equal(t, "orders", res.Diagnostics.Collection)
	// Rejection happens before the backend; no failure class assigned.
	assert.Empty(t, res.Diagnostics.FailureClass)
}

func TestDispatchNormalizationFailureSkipsBackend(t *testing.T) {
	d := NewDispatcher(DefaultCoercionConfig())
	target := &fakeTarget{}

	res, err := d.Dispatch(context.Background(), target, &Request{
		ConnectionID: "c1",
		Collection:   "orders",
		Operation:    OpAggregate,
		Pipeline:     `not json`,
	})

	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrInvalidPipeline.Code))
	require.NotNil(t, res)
	assert.False(t, target.touched, "a rejected request must not mark the session used")
}

func TestDispatchMissingWritePayload(t *testing.T) {
	d := NewDispatcher(DefaultCoercionConfig())

	tests := []struct {
		name string
		req  *Request
		code int
	}{
		{
			name: "insertOne without document",
			req:  &Request{Collection: "orders", Operation: OpInsertOne},
			code: errors.ErrMissingParam.Code,
		},
		{
			name: "updateOne without update",
			req: &Request{
				Collection: "orders",
				Operation:  OpUpdateOne,
				Filter:     map[string]interface{}{"x": 1},
			},
			code: errors.ErrMissingParam.Code,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := d.Dispatch(context.Background(), &fakeTarget{}, tt.req)
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, tt.code))
		})
	}
}

func TestWriteDeadline(t *testing.T) {
	ctx := context.Background()

	bounded, cancel := writeDeadline(ctx, map[string]interface{}{"maxTimeMS": float64(100)})
	defer cancel()
	deadline, ok := bounded.Deadline()
	require.True(t, ok, "a caller-supplied ceiling must bound the write")
	assert.WithinDuration(t, time.Now().Add(100*time.Millisecond), deadline, 50*time.Millisecond)

	tests := []struct {
		name    string
		options map[string]interface{}
	}{
		{name: "no options", options: nil},
		{name: "zero ceiling", options: map[string]interface{}{"maxTimeMS": float64(0)}},
		{name: "non-numeric ceiling", options: map[string]interface{}{"maxTimeMS": "soon"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			unbounded, cancel := writeDeadline(ctx, tt.options)
			defer cancel()
			_, ok := unbounded.Deadline()
			assert.False(t, ok, "without an override the write keeps the backend default")
		})
	}
}

func TestCountOptions(t *testing.T) {
	opts := countOptions(map[string]interface{}{
		"limit":     float64(5),
		"skip":      float64(10),
		"maxTimeMS": float64(2000),
	})

	require.NotNil(t, opts.Limit)
	assert.Equal(t, int64(5), *opts.Limit)
	require.NotNil(t, opts.Skip)
	assert.Equal(t, int64(10), *opts.Skip)
	require.NotNil(t, opts.MaxTime)
	assert.Equal(t, 2*time.Second, *opts.MaxTime)

	defaults := countOptions(nil)
	assert.Nil(t, defaults.Limit)
	assert.Nil(t, defaults.Skip)
	require.NotNil(t, defaults.MaxTime)
	assert.Equal(t, readMaxTime, *defaults.MaxTime)
}

func TestMaxTime(t *testing.T) {
	tests := []struct {
		name    string
		options map[string]interface{}
		want    time.Duration
	}{
		{name: "no options", options: nil, want: readMaxTime},
		{name: "override", options: map[string]interface{}{"maxTimeMS": float64(2500)}, want: 2500 * time.Millisecond},
		{name: "zero falls back", options: map[string]interface{}{"maxTimeMS": float64(0)}, want: readMaxTime},
		{name: "negative falls back", options: map[string]interface{}{"maxTimeMS": float64(-5)}, want: readMaxTime},
		{name: "non-numeric falls back", options: map[string]interface{}{"maxTimeMS": "soon"}, want: readMaxTime},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, maxTime(tt.options, readMaxTime))
		})
	}
}

func TestToInt64(t *testing.T) {
	tests := []struct {
		name string
		in   interface{}
		want int64
		ok   bool
	}{
		{name: "int", in: 7, want: 7, ok: true},
		{name: "int32", in: int32(7), want: 7, ok: true},
		{name: "int64", in: int64(7), want: 7, ok: true},
		{name: "float64", in: float64(7.9), want: 7, ok: true},
		{name: "string", in: "7", ok: false},
		{name: "nil", in: nil, ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := toInt64(tt.in)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}
