package chi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/shopassist/internal/domain"
	"github.com/kailas-cloud/shopassist/internal/domain/fcall"
	domusage "github.com/kailas-cloud/shopassist/internal/domain/usage"
	"github.com/kailas-cloud/shopassist/internal/repository/session"
	conversationuc "github.com/kailas-cloud/shopassist/internal/usecase/conversation"
	healthuc "github.com/kailas-cloud/shopassist/internal/usecase/health"
)

// maxBodyBytes bounds function-call and chat bodies.
const maxBodyBytes = 1 << 20

// Functions executes one named function call.
type Functions interface {
	Execute(ctx context.Context, userID, name string, args json.RawMessage) fcall.Result
}

// Conversations runs one chat turn.
type Conversations interface {
	Send(ctx context.Context, sessionID, userID, text string) (conversationuc.Reply, error)
}

// Usage records and reports model usage.
type Usage interface {
	Record(ctx context.Context, u *domain.RequestUsage)
	GetReport(ctx context.Context, period domusage.Period) (domusage.Report, error)
}

// HealthChecker reports component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server implements ServerInterface.
type Server struct {
	functions     Functions
	conversations Conversations
	usage         Usage
	health        HealthChecker
	logger        *zap.Logger
	errorHandlers []errorHandler
}

var _ ServerInterface = (*Server)(nil)

// NewServer creates an HTTP API server.
func NewServer(
	functions Functions,
	conversations Conversations,
	usage Usage,
	health HealthChecker,
	logger *zap.Logger,
) *Server {
	s := &Server{
		functions:     functions,
		conversations: conversations,
		usage:         usage,
		health:        health,
		logger:        logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(session.ErrSessionOwner, http.StatusForbidden, ErrorCodeForbidden),
		sentinelHandler(domain.ErrInvalidArguments, http.StatusBadRequest, ErrorCodeValidationFailed),
		sentinelHandler(domain.ErrEmbeddingQuotaExceeded, http.StatusPaymentRequired, ErrorCodeQuotaExceeded),
		sentinelHandler(domain.ErrLLMUnavailable, http.StatusBadGateway, ErrorCodeLLMUnavailable),
	}
	return s
}

// CallFunction handles POST /v1/functions/{name}.
// Function failures are part of the result envelope and still answer 200.
func (s *Server) CallFunction(w http.ResponseWriter, r *http.Request, name string, params CallFunctionParams) {
	args, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	res := s.functions.Execute(ctx, params.XUserID, name, args)
	s.finish(ctx, w, usage)

	s.respond(w, http.StatusOK, res)
}

// Chat handles POST /v1/chat.
func (s *Server) Chat(w http.ResponseWriter, r *http.Request, params ChatParams) {
	var req ChatRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.SessionID == "" {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, "sessionId is required")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, "message is required")
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	reply, err := s.conversations.Send(ctx, req.SessionID, params.XUserID, req.Message)
	s.finish(ctx, w, usage)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	s.respond(w, http.StatusOK, reply)
}

type usageCounter struct {
	Requests int64 `json:"requests"`
	Tokens   int64 `json:"tokens"`
}

type usageBudget struct {
	TokensLimit     int64      `json:"tokensLimit"`
	TokensRemaining int64      `json:"tokensRemaining"`
	IsExhausted     bool       `json:"isExhausted"`
	ResetsAt        *time.Time `json:"resetsAt,omitempty"`
}

type usageResponse struct {
	Period        domusage.Period `json:"period"`
	PeriodStartAt *time.Time      `json:"periodStartAt,omitempty"`
	PeriodEndAt   *time.Time      `json:"periodEndAt,omitempty"`
	Embedding     usageCounter    `json:"embedding"`
	Chat          usageCounter    `json:"chat"`
	Budget        usageBudget     `json:"budget"`
}

// GetUsage handles GET /v1/usage.
func (s *Server) GetUsage(w http.ResponseWriter, r *http.Request, params GetUsageParams) {
	raw := ""
	if params.Period != nil {
		raw = *params.Period
	}
	period, ok := domusage.ParsePeriod(raw)
	if !ok {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, "period must be day, month or total")
		return
	}

	report, err := s.usage.GetReport(r.Context(), period)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	resp := usageResponse{
		Period:    report.Period(),
		Embedding: usageCounter{Requests: report.Embedding().Requests(), Tokens: report.Embedding().Tokens()},
		Chat:      usageCounter{Requests: report.Chat().Requests(), Tokens: report.Chat().Tokens()},
		Budget: usageBudget{
			TokensLimit:     report.Budget().TokensLimit(),
			TokensRemaining: report.Budget().TokensRemaining(),
			IsExhausted:     report.Budget().IsExhausted(),
		},
	}
	if report.PeriodStart() > 0 {
		start := time.UnixMilli(report.PeriodStart()).UTC()
		end := time.UnixMilli(report.PeriodEnd()).UTC()
		resp.PeriodStartAt = &start
		resp.PeriodEndAt = &end
	}
	if report.Budget().TokensLimit() > 0 && report.Budget().ResetsAt() > 0 {
		resetsAt := time.UnixMilli(report.Budget().ResetsAt()).UTC()
		resp.Budget.ResetsAt = &resetsAt
	}

	s.respond(w, http.StatusOK, resp)
}

type healthResponse struct {
	Status healthuc.Status                 `json:"status"`
	Checks map[string]healthuc.CheckResult `json:"checks"`
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	s.respond(w, httpStatus, healthResponse{Status: report.Status, Checks: report.Checks})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// finish persists the request's usage and exposes it as response headers.
func (s *Server) finish(ctx context.Context, w http.ResponseWriter, usage *domain.RequestUsage) {
	s.usage.Record(context.WithoutCancel(ctx), usage)
	setUsageHeaders(w, usage)
}

func setUsageHeaders(w http.ResponseWriter, usage *domain.RequestUsage) {
	if usage == nil {
		return
	}
	if usage.EmbedCalls() > 0 {
		w.Header().Set("X-Embedding-Tokens", strconv.Itoa(usage.EmbeddingTokens()))
	}
	if usage.LLMCalls() > 0 {
		w.Header().Set("X-LLM-Tokens", strconv.Itoa(usage.LLMTokens()))
	}
}

// respond writes v as JSON and logs encode failures, which answer 500.
func (s *Server) respond(w http.ResponseWriter, status int, v any) {
	if err := writeJSON(w, status, v); err != nil {
		s.logger.Error("encode response", zap.Int("status", status), zap.Error(err))
	}
}

// writeJSON encodes v before committing the status so an encode failure
// still produces a well-formed 500 error body.
func writeJSON(w http.ResponseWriter, status int, v any) error {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"code":"`+string(ErrorCodeInternalError)+`","message":"internal error"}`+"\n")
		return fmt.Errorf("encode response: %w", err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err := w.Write(buf.Bytes())
	return err
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	_ = writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		session.ErrSessionOwner,
		domain.ErrInvalidArguments,
		domain.ErrEmbeddingQuotaExceeded,
		domain.ErrLLMUnavailable,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, ErrorCodeInternalError, "internal error")
}
