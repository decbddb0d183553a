package httpadapter

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/oapi-codegen/runtime"
	"golang.org/x/time/rate"

	"github.com/kirillkom/wildlife-rescue-ingest/internal/adapters/http/contract"
	"github.com/kirillkom/wildlife-rescue-ingest/internal/adapters/submission"
	"github.com/kirillkom/wildlife-rescue-ingest/internal/core/domain"
	"github.com/kirillkom/wildlife-rescue-ingest/internal/core/ports"
	"github.com/kirillkom/wildlife-rescue-ingest/internal/observability/metrics"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type Options struct {
	Service         string
	SharedSecret    string
	MaxPayloadBytes int
	RateLimitRPS    float64
	RateLimitBurst  int
	MaxInFlight     int
	InFlightWait    time.Duration
	ExportLimit     int

	// Contract, when set, checks /v1 requests against the OpenAPI document.
	Contract *contract.Validator
	Metrics  *metrics.HTTPServerMetrics
	Logger   *slog.Logger
}

type Router struct {
	importer ports.ReportImporter
	logs     ports.ImportLogQuery

	service      string
	secret       string
	maxPayload   int
	exportLimit  int
	limiter      *rate.Limiter
	maxInFlight  int
	inFlightWait time.Duration
	contract     *contract.Validator
	metrics      *metrics.HTTPServerMetrics
	logger       *slog.Logger
}

func NewRouter(importer ports.ReportImporter, logs ports.ImportLogQuery, opts Options) *Router {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	service := opts.Service
	if service == "" {
		service = "api"
	}
	var limiter *rate.Limiter
	if opts.RateLimitRPS > 0 {
		burst := opts.RateLimitBurst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimitRPS), burst)
	}
	wait := opts.InFlightWait
	if wait <= 0 {
		wait = 250 * time.Millisecond
	}

	return &Router{
		importer:     importer,
		logs:         logs,
		service:      service,
		secret:       opts.SharedSecret,
		maxPayload:   opts.MaxPayloadBytes,
		exportLimit:  opts.ExportLimit,
		limiter:      limiter,
		maxInFlight:  opts.MaxInFlight,
		inFlightWait: wait,
		contract:     opts.Contract,
		metrics:      opts.Metrics,
		logger:       logger,
	}
}

func (rt *Router) Handler() http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("POST /v1/imports", rt.requireSecret(rt.validated(rt.importReport)))
	api.HandleFunc("GET /v1/imports/logs", rt.requireSecret(rt.validated(rt.listImportLogs)))
	api.HandleFunc("GET /v1/imports/logs/export.xlsx", rt.requireSecret(rt.validated(rt.exportImportLogs)))

	guarded := backpressureWithHook(api, rt.maxInFlight, rt.inFlightWait, func() { rt.recordRejected("backpressure") })
	guarded = rateLimitMiddleware(rt.limiter, func() { rt.recordRejected("rate_limited") }, guarded)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	mux.HandleFunc("GET /openapi.yaml", rt.openAPISpec)
	if rt.metrics != nil {
		mux.Handle("GET /metrics", rt.metrics.Handler())
	}
	mux.Handle("/v1/", guarded)

	var handler http.Handler = mux
	handler = accessLogMiddleware(rt.logger, handler)
	handler = requestIDMiddleware(handler)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(rt.service, handler)
	}
	return handler
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) openAPISpec(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(contract.Spec())
}

func (rt *Router) validated(next http.HandlerFunc) http.HandlerFunc {
	if rt.contract == nil {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if err := rt.contract.Validate(r); err != nil {
			rt.recordRejected("contract")
			rt.writeError(w, r, err)
			return
		}
		next(w, r)
	}
}

func (rt *Router) importReport(w http.ResponseWriter, r *http.Request) {
	if limit := submission.MaxBodySize(rt.maxPayload); limit > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, limit)
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			rt.writeError(w, r, domain.WrapError(domain.ErrPayloadTooLarge, "read body", err))
			return
		}
		rt.writeError(w, r, domain.WrapError(domain.ErrInvalidInput, "read body", err))
		return
	}

	sub, err := submission.Decode(body, rt.maxPayload)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}

	result := rt.importer.Import(r.Context(), sub)
	rt.logger.Info(
		"import_request_completed",
		"request_id", requestIDFromContext(r.Context()),
		"file_id", sub.FileID,
		"status", result.Status,
		"log_id", result.LogID,
	)
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) listImportLogs(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r.URL.Query())
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	entries, err := rt.logs.Recent(r.Context(), limit)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	if entries == nil {
		entries = []domain.ImportLogEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": entries})
}

func (rt *Router) exportImportLogs(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r.URL.Query())
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	if limit == 0 || (rt.exportLimit > 0 && limit > rt.exportLimit) {
		limit = rt.exportLimit
	}

	out, err := rt.logs.ExportXLSX(r.Context(), limit)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}

	filename := fmt.Sprintf("import-logs-%s.xlsx", time.Now().UTC().Format("20060102-150405"))
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(out)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out)
}

// parseLimit returns 0 when the parameter is absent so the store default applies.
func parseLimit(query url.Values) (int, error) {
	var limit int
	if err := runtime.BindQueryParameter("form", true, false, "limit", query, &limit); err != nil {
		return 0, domain.WrapError(domain.ErrInvalidInput, "parse limit", err)
	}
	if limit < 0 || (limit == 0 && query.Has("limit")) {
		return 0, domain.WrapError(domain.ErrInvalidInput, "parse limit", fmt.Errorf("limit must be a positive integer, got %d", limit))
	}
	return limit, nil
}

func (rt *Router) recordRejected(reason string) {
	if rt.metrics != nil {
		rt.metrics.RecordRejected(rt.service, reason)
	}
}

func (rt *Router) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := mapErrorToHTTPStatus(err)
	if status >= http.StatusInternalServerError {
		rt.logger.Error(
			"http_request_failed",
			"request_id", requestIDFromContext(r.Context()),
			"path", r.URL.Path,
			"status", status,
			"error", err,
		)
	}
	writeJSON(w, status, map[string]string{"error": publicMessage(err, status)})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
