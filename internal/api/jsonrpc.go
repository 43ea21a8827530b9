package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/inkwell/blogmind/internal/errs"
	"github.com/inkwell/blogmind/pkg/logging"
	"github.com/inkwell/blogmind/pkg/telemetry"
)

// JSONRPCRequest represents a JSON-RPC 2.0 request
type JSONRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

// JSONRPCResponse represents a JSON-RPC 2.0 response
type JSONRPCResponse struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      interface{}   `json:"id"`
	Result  interface{}   `json:"result,omitempty"`
	Error   *JSONRPCError `json:"error,omitempty"`
}

// JSONRPCError represents a JSON-RPC error
type JSONRPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// MethodHandler is a function that handles a JSON-RPC method
type MethodHandler func(ctx *gin.Context, params json.RawMessage) (interface{}, error)

// JSONRPCHandler handles JSON-RPC requests
type JSONRPCHandler struct {
	methods    map[string]MethodHandler
	showDetail bool
	logger     *zap.Logger
}

// NewJSONRPCHandler creates a new JSON-RPC handler. Error details are only
// sent to callers when showDetail is set.
func NewJSONRPCHandler(showDetail bool) *JSONRPCHandler {
	return &JSONRPCHandler{
		methods:    make(map[string]MethodHandler),
		showDetail: showDetail,
		logger:     logging.WithComponent("jsonrpc"),
	}
}

// RegisterMethod registers a method handler
func (h *JSONRPCHandler) RegisterMethod(method string, handler MethodHandler) {
	h.methods[method] = handler
}

// Methods returns the registered method names
func (h *JSONRPCHandler) Methods() []string {
	names := make([]string, 0, len(h.methods))
	for name := range h.methods {
		names = append(names, name)
	}
	return names
}

// Handle handles a JSON-RPC request
func (h *JSONRPCHandler) Handle(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "jsonrpc.handle")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	var req JSONRPCRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.sendError(c, nil, &JSONRPCError{Code: ErrParseError, Message: "Parse error"}, err)
		return
	}
	span.SetAttributes(attribute.String("rpc.method", req.Method))

	// Validate JSON-RPC version
	if req.JSONRPC != "2.0" {
		h.sendError(c, req.ID, &JSONRPCError{Code: ErrInvalidRequest, Message: "Invalid Request"},
			fmt.Errorf("invalid jsonrpc version"))
		return
	}

	// Find method handler
	handler, ok := h.methods[req.Method]
	if !ok {
		h.sendError(c, req.ID, &JSONRPCError{Code: ErrMethodNotFound, Message: "Method not found"},
			fmt.Errorf("method %s not found", req.Method))
		return
	}

	result, err := handler(c, req.Params)
	if err != nil {
		telemetry.Fail(span, err)
		var paramsErr *ParamsError
		if errors.As(err, &paramsErr) {
			rpcErr := &JSONRPCError{Code: ErrInvalidParams, Message: "Invalid params"}
			if h.showDetail {
				rpcErr.Data = paramsErr.Error()
			}
			h.sendError(c, req.ID, rpcErr, err)
			return
		}
		h.sendError(c, req.ID, toRPCError(err, h.showDetail), err)
		return
	}

	h.sendResponse(c, req.ID, result)
}

// sendResponse sends a successful JSON-RPC response
func (h *JSONRPCHandler) sendResponse(c *gin.Context, id interface{}, result interface{}) {
	resp := JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      id,
		Result:  result,
	}
	c.JSON(http.StatusOK, resp)
}

// sendError sends an error JSON-RPC response
func (h *JSONRPCHandler) sendError(c *gin.Context, id interface{}, rpcErr *JSONRPCError, err error) {
	if err != nil {
		kind := errs.KindOf(err)
		fields := []zap.Field{
			zap.Int("code", rpcErr.Code),
			zap.String("message", rpcErr.Message),
			zap.Error(err),
		}
		if kind == errs.KindInternal {
			h.logger.Error("JSON-RPC error", fields...)
		} else {
			h.logger.Debug("JSON-RPC error", fields...)
		}
	}

	resp := JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error:   rpcErr,
	}
	c.JSON(http.StatusOK, resp)
}

// ParamsError reports malformed method parameters
type ParamsError struct {
	Err error
}

func (e *ParamsError) Error() string {
	return fmt.Sprintf("invalid parameters: %v", e.Err)
}

func (e *ParamsError) Unwrap() error {
	return e.Err
}

// DecodeParams decodes method parameters into dst. Both a named object and
// a positional array holding a single object are accepted; absent params
// leave dst untouched.
func DecodeParams(params json.RawMessage, dst interface{}) error {
	trimmed := bytes.TrimSpace(params)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	if trimmed[0] == '[' {
		var positional []json.RawMessage
		if err := json.Unmarshal(trimmed, &positional); err != nil {
			return &ParamsError{Err: err}
		}
		if len(positional) == 0 {
			return nil
		}
		if len(positional) > 1 {
			return &ParamsError{Err: fmt.Errorf("expected a single parameter object")}
		}
		trimmed = positional[0]
	}
	if err := json.Unmarshal(trimmed, dst); err != nil {
		return &ParamsError{Err: err}
	}
	return nil
}

func asError(err error) (*errs.Error, bool) {
	var e *errs.Error
	ok := errors.As(err, &e)
	return e, ok
}
