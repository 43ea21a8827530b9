package api

import (
	"github.com/inkwell/blogmind/internal/errs"
)

// Standard JSON-RPC error codes
const (
	ErrParseError     = -32700
	ErrInvalidRequest = -32600
	ErrMethodNotFound = -32601
	ErrInvalidParams  = -32602
	ErrInternalError  = -32603
	ErrServerError    = -32000
)

// Application error codes, one per failure kind
var kindCodes = map[errs.Kind]int{
	errs.KindNotFound:          -32001,
	errs.KindDuplicateKey:      -32002,
	errs.KindUnauthorized:      -32003,
	errs.KindForbidden:         -32004,
	errs.KindInvalid:           -32005,
	errs.KindInvalidReference:  -32006,
	errs.KindNotReady:          -32007,
	errs.KindWorkerUnreachable: -32008,
	errs.KindWorkerTimeout:     -32009,
	errs.KindWorkerError:       -32010,
	errs.KindCacheDegraded:     -32011,
}

// ErrorData is the data member of an application error
type ErrorData struct {
	Kind      errs.Kind `json:"kind"`
	Retryable bool      `json:"retryable"`
	Detail    string    `json:"detail,omitempty"`
}

// CodeFor returns the JSON-RPC code for a failure kind
func CodeFor(kind errs.Kind) int {
	if code, ok := kindCodes[kind]; ok {
		return code
	}
	return ErrServerError
}

// toRPCError converts a handler error. Raw causes are only exposed when
// showDetail is set.
func toRPCError(err error, showDetail bool) *JSONRPCError {
	kind := errs.KindOf(err)
	data := ErrorData{Kind: kind, Retryable: errs.Retryable(kind)}

	message := "Server error"
	if e, ok := asError(err); ok {
		message = e.Message
		if showDetail {
			data.Detail = e.Detail()
		}
	} else if showDetail {
		data.Detail = err.Error()
	}

	return &JSONRPCError{Code: CodeFor(kind), Message: message, Data: data}
}
