package chi

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
)

// ErrorCode is the machine-readable code of an HTTP error body.
type ErrorCode string

// HTTP error codes.
const (
	ErrorCodeBadRequest       ErrorCode = "bad_request"
	ErrorCodeUnauthorized     ErrorCode = "unauthorized"
	ErrorCodeForbidden        ErrorCode = "forbidden"
	ErrorCodeValidationFailed ErrorCode = "validation_failed"
	ErrorCodeLLMUnavailable   ErrorCode = "llm_unavailable"
	ErrorCodeQuotaExceeded    ErrorCode = "embedding_quota_exceeded"
	ErrorCodeInternalError    ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// ChatRequest is the body of POST /v1/chat.
type ChatRequest struct {
	SessionID string `json:"sessionId"`
	Message   string `json:"message"`
}

// CallFunctionParams are the bound parameters of POST /v1/functions/{name}.
type CallFunctionParams struct {
	XUserID string
}

// ChatParams are the bound parameters of POST /v1/chat.
type ChatParams struct {
	XUserID string
}

// GetUsageParams are the bound parameters of GET /v1/usage.
type GetUsageParams struct {
	Period *string
}

// ServerInterface is implemented by the HTTP server.
type ServerInterface interface {
	// POST /v1/functions/{name}
	CallFunction(w http.ResponseWriter, r *http.Request, name string, params CallFunctionParams)
	// POST /v1/chat
	Chat(w http.ResponseWriter, r *http.Request, params ChatParams)
	// GET /v1/usage
	GetUsage(w http.ResponseWriter, r *http.Request, params GetUsageParams)
	// GET /health
	HealthCheck(w http.ResponseWriter, r *http.Request)
	// GET /metrics
	Metrics(w http.ResponseWriter, r *http.Request)
}

// ChiServerOptions configures Handler.
type ChiServerOptions struct {
	BaseRouter       chi.Router
	ErrorHandlerFunc func(w http.ResponseWriter, r *http.Request, err error)
}

// Handler mounts si on a chi router.
func Handler(si ServerInterface, opts ChiServerOptions) http.Handler {
	r := opts.BaseRouter
	if r == nil {
		r = chi.NewRouter()
	}
	if opts.ErrorHandlerFunc == nil {
		opts.ErrorHandlerFunc = func(w http.ResponseWriter, _ *http.Request, err error) {
			writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, err.Error())
		}
	}
	wrapper := serverWrapper{handler: si, errorHandler: opts.ErrorHandlerFunc}

	r.Post("/v1/functions/{name}", wrapper.CallFunction)
	r.Post("/v1/chat", wrapper.Chat)
	r.Get("/v1/usage", wrapper.GetUsage)
	r.Get("/health", wrapper.HealthCheck)
	r.Get("/metrics", wrapper.Metrics)
	return r
}

type serverWrapper struct {
	handler      ServerInterface
	errorHandler func(w http.ResponseWriter, r *http.Request, err error)
}

func (sw serverWrapper) CallFunction(w http.ResponseWriter, r *http.Request) {
	var name string
	err := runtime.BindStyledParameterWithOptions("simple", "name", chi.URLParam(r, "name"), &name,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Required: true})
	if err != nil {
		sw.errorHandler(w, r, fmt.Errorf("invalid format for parameter name: %w", err))
		return
	}

	var params CallFunctionParams
	if err := bindUserID(r, &params.XUserID); err != nil {
		sw.errorHandler(w, r, err)
		return
	}

	sw.handler.CallFunction(w, r, name, params)
}

func (sw serverWrapper) Chat(w http.ResponseWriter, r *http.Request) {
	var params ChatParams
	if err := bindUserID(r, &params.XUserID); err != nil {
		sw.errorHandler(w, r, err)
		return
	}
	sw.handler.Chat(w, r, params)
}

func (sw serverWrapper) GetUsage(w http.ResponseWriter, r *http.Request) {
	var params GetUsageParams
	err := runtime.BindQueryParameter("form", true, false, "period", r.URL.Query(), &params.Period)
	if err != nil {
		sw.errorHandler(w, r, fmt.Errorf("invalid format for parameter period: %w", err))
		return
	}
	sw.handler.GetUsage(w, r, params)
}

func (sw serverWrapper) HealthCheck(w http.ResponseWriter, r *http.Request) {
	sw.handler.HealthCheck(w, r)
}

func (sw serverWrapper) Metrics(w http.ResponseWriter, r *http.Request) {
	sw.handler.Metrics(w, r)
}

const userIDHeader = "X-User-ID"

func bindUserID(r *http.Request, dst *string) error {
	values := r.Header.Values(userIDHeader)
	if len(values) != 1 || values[0] == "" {
		return fmt.Errorf("header parameter %s is required", userIDHeader)
	}
	err := runtime.BindStyledParameterWithOptions("simple", userIDHeader, values[0], dst,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationHeader, Required: true})
	if err != nil {
		return fmt.Errorf("invalid format for parameter %s: %w", userIDHeader, err)
	}
	return nil
}
