package errors

import (
	"fmt"
	"net/http"
	"testing"

	"google.golang.org/grpc/codes"
)

func TestMakeCode(t *testing.T) {
	code := MakeCode(ServiceMongo, CategoryTimeout, 1)
	if code != 1011001 {
		t.Errorf("MakeCode() = %d, want %d", code, 1011001)
	}
	if GetService(code) != ServiceMongo {
		t.Errorf("GetService() = %d, want %d", GetService(code), ServiceMongo)
	}
	if GetCategory(code) != CategoryTimeout {
		t.Errorf("GetCategory() = %d, want %d", GetCategory(code), CategoryTimeout)
	}
}

func TestCodeClassification(t *testing.T) {
	if !IsSuccess(OK.Code) {
		t.Error("OK should be a success code")
	}
	if !IsClientError(ErrBadRequest.Code) {
		t.Error("ErrBadRequest should be a client error")
	}
	if !IsClientError(ErrSessionNotFound.Code) {
		t.Error("ErrSessionNotFound should be a client error")
	}
	if !IsServerError(ErrMongoTimeout.Code) {
		t.Error("ErrMongoTimeout should be a server error")
	}
	if IsServerError(ErrMissingParam.Code) {
		t.Error("ErrMissingParam should not be a server error")
	}
}

func TestErrnoWithMessage(t *testing.T) {
	derived := ErrBadRequest.WithMessage("collection is required")

	if derived.Message != "collection is required" {
		t.Errorf("WithMessage() message = %q", derived.Message)
	}
	if derived.Code != ErrBadRequest.Code {
		t.Errorf("WithMessage() must keep the code, got %d", derived.Code)
	}
	// The template must stay untouched.
	if ErrBadRequest.Message != "Bad request" {
		t.Errorf("template mutated: %q", ErrBadRequest.Message)
	}
}

func TestErrnoWithCause(t *testing.T) {
	cause := fmt.Errorf("underlying failure")
	derived := ErrTLSMaterial.WithCause(cause)

	if derived.Unwrap() != cause {
		t.Error("Unwrap should return the cause")
	}
	if !derived.Is(ErrTLSMaterial) {
		t.Error("a derived errno should match its template by code")
	}
}

func TestErrnoStatusMapping(t *testing.T) {
	tests := []struct {
		errno    *Errno
		wantHTTP int
		wantGRPC codes.Code
	}{
		{ErrBadRequest, http.StatusBadRequest, codes.InvalidArgument},
		{ErrSessionNotFound, http.StatusNotFound, codes.NotFound},
		{ErrMongoConnect, http.StatusInternalServerError, codes.Unavailable},
		{ErrMongoTimeout, http.StatusInternalServerError, codes.DeadlineExceeded},
		{ErrMongoAuth, http.StatusInternalServerError, codes.Unauthenticated},
	}

	for _, tt := range tests {
		if got := tt.errno.HTTPStatus(); got != tt.wantHTTP {
			t.Errorf("HTTPStatus(%d) = %d, want %d", tt.errno.Code, got, tt.wantHTTP)
		}
		if got := tt.errno.GRPCStatus(); got != tt.wantGRPC {
			t.Errorf("GRPCStatus(%d) = %v, want %v", tt.errno.Code, got, tt.wantGRPC)
		}
	}
}

func TestFromError(t *testing.T) {
	if FromError(nil) != nil {
		t.Error("FromError(nil) should be nil")
	}

	if got := FromError(ErrMissingParam); got != ErrMissingParam {
		t.Error("FromError should pass an Errno through")
	}

	plain := fmt.Errorf("boom")
	wrapped := FromError(plain)
	if wrapped.Code != ErrInternal.Code {
		t.Errorf("FromError(plain) code = %d, want %d", wrapped.Code, ErrInternal.Code)
	}
	if wrapped.Unwrap() != plain {
		t.Error("FromError should keep the cause")
	}
}

func TestIsCode(t *testing.T) {
	if !IsCode(ErrInvalidPipeline.WithMessage("bad"), ErrInvalidPipeline.Code) {
		t.Error("IsCode should match a derived errno")
	}
	if IsCode(fmt.Errorf("boom"), ErrInternal.Code) {
		t.Error("IsCode should not match a plain error")
	}
}

func TestLookup(t *testing.T) {
	e, ok := Lookup(ErrMongoUpstream.Code)
	if !ok {
		t.Fatal("predefined errnos should be registered")
	}
	if e != ErrMongoUpstream {
		t.Error("Lookup should return the registered template")
	}

	if _, ok := Lookup(9999999); ok {
		t.Error("Lookup should miss an unregistered code")
	}
}
