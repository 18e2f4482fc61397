package query

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	mongoopts "go.mongodb.org/mongo-driver/mongo/options"

	"github.com/maxpantech/mongodb-proxy-service/pkg/utils/errors"
)

// Execution-time ceilings per operation class. Writes use the driver
// default unless the caller overrides via options.maxTimeMS.
const (
	readMaxTime      = 30 * time.Second
	aggregateMaxTime = 120 * time.Second
)

// Target is the live session surface the dispatcher executes against.
// The pool's Session satisfies it.
type Target interface {
	// Collection returns the named collection of the session's database.
	Collection(name string) *mongo.Collection
	// Touch marks the session as used.
	Touch()
}

// Diagnostics carries lightweight operation metadata on every envelope.
type Diagnostics struct {
	Operation    Operation    `json:"operation"`
	Collection   string       `json:"collection"`
	ResultShape  string       `json:"resultShape,omitempty"`
	FailureClass FailureClass `json:"failureClass,omitempty"`
}

// Result is the outcome of one dispatched operation. On failure the
// elapsed time and diagnostics are still populated alongside the error.
type Result struct {
	Data        interface{}
	Elapsed     time.Duration
	Diagnostics Diagnostics
}

// Dispatcher executes normalized requests against a session's collection,
// applying per-operation timeout and result-shaping policy.
type Dispatcher struct {
	normalizer *Normalizer
}

// NewDispatcher creates a Dispatcher with the given coercion policy.
func NewDispatcher(cfg CoercionConfig) *Dispatcher {
	return &Dispatcher{normalizer: NewNormalizer(cfg)}
}

// Dispatch normalizes and executes one operation request against the
// target session. A failed operation never closes the session; liveness is
// the pool's concern.
func (d *Dispatcher) Dispatch(ctx context.Context, target Target, req *Request) (*Result, error) {
	diag := Diagnostics{Operation: req.Operation, Collection: req.Collection}

	args, err := d.normalizer.Normalize(req.Operation, req)
	if err != nil {
		return &Result{Diagnostics: diag}, err
	}

	target.Touch()
	coll := target.Collection(req.Collection)

	start := time.Now()
	data, shape, err := d.execute(ctx, coll, req.Operation, args)
	elapsed := time.Since(start)

	if err != nil {
		// Normalization-level rejections from execute (unsupported op,
		// missing payload) are already Errno values; everything else is
		// an upstream failure to classify.
		if errno, ok := err.(*errors.Errno); ok {
			return &Result{Elapsed: elapsed, Diagnostics: diag}, errno
		}
		class := Classify(err)
		diag.FailureClass = class
		return &Result{Elapsed: elapsed, Diagnostics: diag},
			errnoFor(class).WithMessage(err.Error())
	}

	diag.ResultShape = shape
	return &Result{Data: data, Elapsed: elapsed, Diagnostics: diag}, nil
}

// execute runs the backend call for one operation kind.
func (d *Dispatcher) execute(ctx context.Context, coll *mongo.Collection, op Operation, args *Normalized) (interface{}, string, error) {
	switch op {
	case OpFindOne:
		return d.findOne(ctx, coll, args)
	case OpFind:
		return d.find(ctx, coll, args)
	case OpCount:
		return d.count(ctx, coll, args)
	case OpInsertOne:
		return d.insertOne(ctx, coll, args)
	case OpInsertMany:
		return d.insertMany(ctx, coll, args)
	case OpUpdateOne:
		return d.update(ctx, coll, args, false)
	case OpUpdateMany:
		return d.update(ctx, coll, args, true)
	case OpDeleteOne:
		return d.delete(ctx, coll, args, false)
	case OpDeleteMany:
		return d.delete(ctx, coll, args, true)
	case OpAggregate:
		return d.aggregate(ctx, coll, args)
	default:
		return nil, "", errors.ErrUnsupportedOperation.WithMessagef("unsupported operation %q", op)
	}
}

func (d *Dispatcher) findOne(ctx context.Context, coll *mongo.Collection, args *Normalized) (interface{}, string, error) {
	opts := mongoopts.FindOne().SetMaxTime(maxTime(args.Options, readMaxTime))
	if sort, ok := args.Options["sort"]; ok {
		opts.SetSort(sort)
	}

	var doc bson.M
	err := coll.FindOne(ctx, args.Filter, opts).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, "document", nil
	}
	if err != nil {
		return nil, "", err
	}
	return doc, "document", nil
}

func (d *Dispatcher) find(ctx context.Context, coll *mongo.Collection, args *Normalized) (interface{}, string, error) {
	opts := mongoopts.Find().SetMaxTime(maxTime(args.Options, readMaxTime))
	if limit, ok := toInt64(args.Options["limit"]); ok {
		opts.SetLimit(limit)
	}
	if skip, ok := toInt64(args.Options["skip"]); ok {
		opts.SetSkip(skip)
	}
	if sort, ok := args.Options["sort"]; ok {
		opts.SetSort(sort)
	}
	if allow, ok := args.Options["allowDiskUse"].(bool); ok {
		opts.SetAllowDiskUse(allow)
	}

	cursor, err := coll.Find(ctx, args.Filter, opts)
	if err != nil {
		return nil, "", err
	}
	defer cursor.Close(ctx)

	docs := make([]bson.M, 0)
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, "", err
	}
	return docs, "documents", nil
}

func (d *Dispatcher) count(ctx context.Context, coll *mongo.Collection, args *Normalized) (interface{}, string, error) {
	n, err := coll.CountDocuments(ctx, args.Filter, countOptions(args.Options))
	if err != nil {
		return nil, "", err
	}
	return bson.M{"count": n}, "count", nil
}

func (d *Dispatcher) insertOne(ctx context.Context, coll *mongo.Collection, args *Normalized) (interface{}, string, error) {
	if args.Document == nil {
		return nil, "", errors.ErrMissingParam.WithMessage("insertOne requires a document")
	}
	ctx, cancel := writeDeadline(ctx, args.Options)
	defer cancel()

	res, err := coll.InsertOne(ctx, args.Document)
	if err != nil {
		return nil, "", err
	}
	return bson.M{"insertedId": res.InsertedID}, "writeResult", nil
}

func (d *Dispatcher) insertMany(ctx context.Context, coll *mongo.Collection, args *Normalized) (interface{}, string, error) {
	if len(args.Documents) == 0 {
		return nil, "", errors.ErrMissingParam.WithMessage("insertMany requires a non-empty document array")
	}
	ctx, cancel := writeDeadline(ctx, args.Options)
	defer cancel()

	res, err := coll.InsertMany(ctx, args.Documents)
	if err != nil {
		return nil, "", err
	}
	return bson.M{
		"insertedCount": len(res.InsertedIDs),
		"insertedIds":   res.InsertedIDs,
	}, "writeResult", nil
}

func (d *Dispatcher) update(ctx context.Context, coll *mongo.Collection, args *Normalized, many bool) (interface{}, string, error) {
	if args.Update == nil {
		return nil, "", errors.ErrMissingParam.WithMessage("update requires an update document")
	}
	ctx, cancel := writeDeadline(ctx, args.Options)
	defer cancel()

	var (
		res *mongo.UpdateResult
		err error
	)
	if many {
		res, err = coll.UpdateMany(ctx, args.Filter, args.Update)
	} else {
		res, err = coll.UpdateOne(ctx, args.Filter, args.Update)
	}
	if err != nil {
		return nil, "", err
	}

	out := bson.M{
		"matchedCount":  res.MatchedCount,
		"modifiedCount": res.ModifiedCount,
	}
	if res.UpsertedID != nil {
		out["upsertedId"] = res.UpsertedID
	}
	return out, "writeResult", nil
}

func (d *Dispatcher) delete(ctx context.Context, coll *mongo.Collection, args *Normalized, many bool) (interface{}, string, error) {
	ctx, cancel := writeDeadline(ctx, args.Options)
	defer cancel()

	var (
		res *mongo.DeleteResult
		err error
	)
	if many {
		res, err = coll.DeleteMany(ctx, args.Filter)
	} else {
		res, err = coll.DeleteOne(ctx, args.Filter)
	}
	if err != nil {
		return nil, "", err
	}
	return bson.M{"deletedCount": res.DeletedCount}, "writeResult", nil
}

func (d *Dispatcher) aggregate(ctx context.Context, coll *mongo.Collection, args *Normalized) (interface{}, string, error) {
	if args.Pipeline == nil {
		return nil, "", errors.ErrInvalidPipeline.WithMessage("aggregate requires a pipeline array")
	}

	// Aggregations may legitimately run long and spill to disk.
	opts := mongoopts.Aggregate().
		SetMaxTime(maxTime(args.Options, aggregateMaxTime)).
		SetAllowDiskUse(true)

	cursor, err := coll.Aggregate(ctx, args.Pipeline, opts)
	if err != nil {
		return nil, "", err
	}
	defer cursor.Close(ctx)

	docs := make([]bson.M, 0)
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, "", err
	}
	return docs, "documents", nil
}

// countOptions builds the driver options for count: the execution ceiling
// plus the caller's limit and skip, forwarded as-is.
func countOptions(options map[string]interface{}) *mongoopts.CountOptions {
	opts := mongoopts.Count().SetMaxTime(maxTime(options, readMaxTime))
	if limit, ok := toInt64(options["limit"]); ok {
		opts.SetLimit(limit)
	}
	if skip, ok := toInt64(options["skip"]); ok {
		opts.SetSkip(skip)
	}
	return opts
}

// writeDeadline applies the caller's options.maxTimeMS to a write as a
// context deadline. Write options in this driver version carry no max-time
// setter, so the ceiling is relayed through the context instead; without an
// override the write keeps the backend default.
func writeDeadline(ctx context.Context, options map[string]interface{}) (context.Context, context.CancelFunc) {
	if ms, ok := toInt64(options["maxTimeMS"]); ok && ms > 0 {
		return context.WithTimeout(ctx, time.Duration(ms)*time.Millisecond)
	}
	return ctx, func() {}
}

// maxTime resolves the execution ceiling: the caller's options.maxTimeMS
// when present, otherwise the per-operation default.
func maxTime(options map[string]interface{}, fallback time.Duration) time.Duration {
	if ms, ok := toInt64(options["maxTimeMS"]); ok && ms > 0 {
		return time.Duration(ms) * time.Millisecond
	}
	return fallback
}

// toInt64 converts the numeric types a JSON decode can produce.
func toInt64(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int32:
		return int64(n), true
	case int:
		return int64(n), true
	case float64:
		return int64(n), true
	default:
		return 0, false
	}
}
