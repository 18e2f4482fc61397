package query

import (
	"go.mongodb.org/mongo-driver/bson"

	"github.com/maxpantech/mongodb-proxy-service/pkg/utils/errors"
	"github.com/maxpantech/mongodb-proxy-service/pkg/utils/json"
)

// Operation identifies one of the supported operation kinds.
type Operation string

// Supported operations.
const (
	OpFindOne    Operation = "findOne"
	OpFind       Operation = "find"
	OpCount      Operation = "count"
	OpInsertOne  Operation = "insertOne"
	OpInsertMany Operation = "insertMany"
	OpUpdateOne  Operation = "updateOne"
	OpUpdateMany Operation = "updateMany"
	OpDeleteOne  Operation = "deleteOne"
	OpDeleteMany Operation = "deleteMany"
	OpAggregate  Operation = "aggregate"
)

// Request is the raw payload of one operation request as bound from HTTP.
// Query/Filter/Pipeline/Document/Update arrive untyped; the Normalizer
// reshapes them into the exact argument set the dispatcher needs.
type Request struct {
	ConnectionID string                 `json:"connectionId" binding:"required"`
	Collection   string                 `json:"collection" binding:"required"`
	Operation    Operation              `json:"operation" binding:"required"`
	Query        interface{}            `json:"query,omitempty"`
	Filter       interface{}            `json:"filter,omitempty"`
	Pipeline     interface{}            `json:"pipeline,omitempty"`
	Document     interface{}            `json:"document,omitempty"`
	Update       interface{}            `json:"update,omitempty"`
	Options      map[string]interface{} `json:"options,omitempty"`
}

// Normalized is the argument tuple handed to the dispatcher.
type Normalized struct {
	// Filter is the coerced effective filter for read, count, update and
	// delete operations.
	Filter bson.M

	// Pipeline is the coerced stage sequence for aggregate.
	Pipeline bson.A

	// Document is the payload for insertOne.
	Document interface{}

	// Documents is the payload for insertMany.
	Documents []interface{}

	// Update is the update document for update operations, passed through
	// uncoerced.
	Update interface{}

	// Options is the caller's option map, forwarded verbatim.
	Options map[string]interface{}
}

// Normalizer reshapes a generic request payload into per-operation
// arguments, invoking the Coercer where scalars may appear.
type Normalizer struct {
	coercer      *Coercer
	coerceWrites bool
}

// NewNormalizer creates a Normalizer with the given coercion policy.
func NewNormalizer(cfg CoercionConfig) *Normalizer {
	return &Normalizer{
		coercer:      NewCoercer(cfg),
		coerceWrites: cfg.CoerceWrites,
	}
}

// Normalize produces the argument tuple for the given operation kind.
//
// Coercion is a read-path concern: filters and pipelines are coerced,
// documents being written are trusted verbatim unless the write-path
// coercion toggle is on. Unknown operation kinds get a best-effort generic
// shape; rejecting them is the dispatcher's responsibility.
func (n *Normalizer) Normalize(op Operation, req *Request) (*Normalized, error) {
	out := &Normalized{Options: req.Options}

	switch op {
	case OpFindOne, OpFind, OpCount:
		filter, err := n.resolveFilter(req.Query, req.Filter)
		if err != nil {
			return nil, err
		}
		out.Filter = filter

	case OpAggregate:
		pipeline, err := n.resolvePipeline(req.Pipeline, req.Query)
		if err != nil {
			return nil, err
		}
		out.Pipeline = pipeline

	case OpInsertOne:
		out.Document = n.resolveDocument(firstNonNil(req.Document, req.Query))

	case OpInsertMany:
		docs, err := n.resolveDocuments(firstNonNil(req.Document, req.Query))
		if err != nil {
			return nil, err
		}
		out.Documents = docs

	case OpUpdateOne, OpUpdateMany:
		filter, err := n.resolveFilter(req.Filter, req.Query)
		if err != nil {
			return nil, err
		}
		out.Filter = filter
		out.Update = firstNonNil(req.Update, req.Document)

	case OpDeleteOne, OpDeleteMany:
		filter, err := n.resolveFilter(req.Filter, req.Query)
		if err != nil {
			return nil, err
		}
		out.Filter = filter

	default:
		// Generic best-effort shape; the dispatcher rejects unsupported
		// kinds before touching the backend.
		filter, err := n.resolveFilter(req.Query, req.Filter)
		if err != nil {
			return nil, err
		}
		out.Filter = filter
		out.Document = req.Document
		out.Update = req.Update
		if pipeline, err := n.resolvePipeline(req.Pipeline, nil); err == nil {
			out.Pipeline = pipeline
		}
	}

	return out, nil
}

// resolveFilter picks the first non-nil candidate, requires it to be a
// document, and coerces it. A missing filter is the empty filter.
func (n *Normalizer) resolveFilter(candidates ...interface{}) (bson.M, error) {
	raw := firstNonNil(candidates...)
	if raw == nil {
		return bson.M{}, nil
	}

	coerced := n.coercer.Coerce(raw)
	filter, ok := coerced.(bson.M)
	if !ok {
		return nil, errors.ErrBadRequest.WithMessage("query filter must be a document")
	}
	return filter, nil
}

// resolvePipeline resolves the aggregate pipeline: pipeline if present,
// else query, else an empty sequence. A serialized-text form is parsed
// first; parse failure and non-array shapes are client errors.
func (n *Normalizer) resolvePipeline(candidates ...interface{}) (bson.A, error) {
	raw := firstNonNil(candidates...)
	if raw == nil {
		return bson.A{}, nil
	}

	if text, ok := raw.(string); ok {
		var parsed interface{}
		if err := json.Unmarshal([]byte(text), &parsed); err != nil {
			return nil, errors.ErrInvalidPipeline.WithMessage("pipeline is not valid JSON").WithCause(err)
		}
		raw = parsed
	}

	var stages []interface{}
	switch v := raw.(type) {
	case []interface{}:
		stages = v
	case bson.A:
		stages = v
	default:
		return nil, errors.ErrInvalidPipeline.WithMessage("pipeline must be an array of stages")
	}

	out := make(bson.A, len(stages))
	for i, stage := range stages {
		out[i] = n.coercer.Coerce(stage)
	}
	return out, nil
}

// resolveDocument returns the insert payload, coerced only when the
// write-path toggle is on.
func (n *Normalizer) resolveDocument(raw interface{}) interface{} {
	if raw == nil {
		return nil
	}
	if n.coerceWrites {
		return n.coercer.Coerce(raw)
	}
	return raw
}

// resolveDocuments returns the insertMany payload as a slice of documents.
func (n *Normalizer) resolveDocuments(raw interface{}) ([]interface{}, error) {
	if raw == nil {
		return nil, errors.ErrMissingParam.WithMessage("insertMany requires a document array")
	}

	var docs []interface{}
	switch v := raw.(type) {
	case []interface{}:
		docs = v
	case bson.A:
		docs = v
	default:
		return nil, errors.ErrBadRequest.WithMessage("insertMany requires an array of documents")
	}

	out := make([]interface{}, len(docs))
	for i, doc := range docs {
		out[i] = n.resolveDocument(doc)
	}
	return out, nil
}

// firstNonNil returns the first non-nil candidate.
func firstNonNil(candidates ...interface{}) interface{} {
	for _, c := range candidates {
		if c != nil {
			return c
		}
	}
	return nil
}
