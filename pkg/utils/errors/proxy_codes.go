package errors

import (
	"net/http"

	"google.golang.org/grpc/codes"
)

// Predefined errors for the proxy service and its MongoDB upstream.
//
// The Err* variables are immutable templates; use WithMessage/WithCause to
// derive request-specific instances.
var (
	// OK indicates success.
	OK = Register(New(MakeCode(ServiceCommon, CategorySuccess, 0),
		http.StatusOK, codes.OK, "OK"))

	// ErrBadRequest indicates a malformed or incomplete request.
	ErrBadRequest = Register(New(MakeCode(ServiceCommon, CategoryRequest, 1),
		http.StatusBadRequest, codes.InvalidArgument, "Bad request"))

	// ErrInternal indicates an unexpected internal failure.
	ErrInternal = Register(New(MakeCode(ServiceCommon, CategoryInternal, 1),
		http.StatusInternalServerError, codes.Internal, "Internal server error"))

	// ErrRouteNotFound indicates an unmatched HTTP route.
	ErrRouteNotFound = Register(New(MakeCode(ServiceCommon, CategoryResource, 1),
		http.StatusNotFound, codes.NotFound, "Route not found"))

	// ErrMissingParam indicates a missing required request field.
	ErrMissingParam = Register(New(MakeCode(ServiceProxy, CategoryRequest, 1),
		http.StatusBadRequest, codes.InvalidArgument, "Missing required parameter"))

	// ErrInvalidPipeline indicates an aggregate pipeline that could not be
	// parsed or is not an ordered array of stages.
	ErrInvalidPipeline = Register(New(MakeCode(ServiceProxy, CategoryRequest, 2),
		http.StatusBadRequest, codes.InvalidArgument, "Invalid aggregation pipeline"))

	// ErrUnsupportedOperation indicates an operation kind the dispatcher
	// does not support.
	ErrUnsupportedOperation = Register(New(MakeCode(ServiceProxy, CategoryRequest, 3),
		http.StatusBadRequest, codes.InvalidArgument, "Unsupported operation"))

	// ErrSessionNotFound indicates an unknown connection identifier.
	ErrSessionNotFound = Register(New(MakeCode(ServiceProxy, CategoryResource, 1),
		http.StatusNotFound, codes.NotFound, "Connection not found"))

	// ErrTLSMaterial indicates TLS credential material could not be written
	// or loaded.
	ErrTLSMaterial = Register(New(MakeCode(ServiceProxy, CategoryInternal, 2),
		http.StatusInternalServerError, codes.Internal, "Failed to prepare TLS credentials"))

	// ErrMongoUpstream indicates a MongoDB failure with no finer classification.
	ErrMongoUpstream = Register(New(MakeCode(ServiceMongo, CategoryDatabase, 1),
		http.StatusInternalServerError, codes.Internal, "MongoDB operation failed"))

	// ErrMongoConnect indicates the initial connect/handshake failed.
	ErrMongoConnect = Register(New(MakeCode(ServiceMongo, CategoryNetwork, 1),
		http.StatusInternalServerError, codes.Unavailable, "Failed to connect to MongoDB"))

	// ErrMongoTimeout indicates an operation exceeded its execution ceiling.
	ErrMongoTimeout = Register(New(MakeCode(ServiceMongo, CategoryTimeout, 1),
		http.StatusInternalServerError, codes.DeadlineExceeded, "MongoDB operation timed out"))

	// ErrMongoAuth indicates the backend rejected the supplied credentials.
	ErrMongoAuth = Register(New(MakeCode(ServiceMongo, CategoryAuth, 1),
		http.StatusInternalServerError, codes.Unauthenticated, "MongoDB authentication failed"))
)

// FromError converts any error to Errno.
// If err is already an Errno, returns it directly.
// Otherwise, wraps it as ErrInternal.
func FromError(err error) *Errno {
	if err == nil {
		return nil
	}
	if e, ok := err.(*Errno); ok {
		return e
	}
	return ErrInternal.WithCause(err)
}

// IsCode checks if the error has the given error code.
func IsCode(err error, code int) bool {
	if e, ok := err.(*Errno); ok {
		return e.Code == code
	}
	return false
}
