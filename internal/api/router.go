package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/paulthebutcher/strat-os-phere-sub000/internal/models"
)

const maxBodyBytes = 1 << 20

// Backend is the guardrail surface served over REST. Errors carry gRPC status codes so both
// transports map failures the same way.
type Backend interface {
	Evaluate(ctx context.Context, req models.EvaluationRequest) (models.ArtifactVerdict, error)
	EvidenceQuality(ctx context.Context, projectID string) (models.EvidenceQualityCheck, error)
	BannedPatterns(text string) models.BannedPatternReport
	ScoreDistribution(scores []float64) models.ScoreDistributionCheck
	RunAudit(ctx context.Context, projectID, runID string) (models.ScoreDistributionCheck, error)
	RunDrift(ctx context.Context, projectID, runID string) (DriftResponse, error)
}

// NewRouter builds the REST API. metricsHandler is mounted at /metrics when non-nil.
func NewRouter(backend Backend, logger *slog.Logger, metricsHandler http.Handler) *mux.Router {
	if logger == nil {
		logger = slog.Default()
	}
	h := &restHandler{backend: backend, logger: logger}

	r := mux.NewRouter()
	r.Use(h.logRequests)
	r.HandleFunc("/health", h.health).Methods(http.MethodGet)
	if metricsHandler != nil {
		r.Handle("/metrics", metricsHandler).Methods(http.MethodGet)
	}

	v1 := r.PathPrefix("/v1").Subrouter()
	v1.HandleFunc("/guardrails/patterns", h.patterns).Methods(http.MethodPost)
	v1.HandleFunc("/guardrails/distribution", h.distribution).Methods(http.MethodPost)
	v1.HandleFunc("/projects/{projectId}/evidence-quality", h.evidenceQuality).Methods(http.MethodPost)
	v1.HandleFunc("/projects/{projectId}/evaluate", h.evaluate).Methods(http.MethodPost)
	v1.HandleFunc("/projects/{projectId}/runs/{runId}/drift", h.drift).Methods(http.MethodGet)
	v1.HandleFunc("/projects/{projectId}/runs/{runId}/audit", h.audit).Methods(http.MethodGet)
	return r
}

type restHandler struct {
	backend Backend
	logger  *slog.Logger
}

func (h *restHandler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		h.logger.Debug("http request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", rec.status),
			slog.Duration("elapsed", time.Since(start)),
		)
	})
}

func (h *restHandler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "SERVING"})
}

func (h *restHandler) patterns(w http.ResponseWriter, r *http.Request) {
	var req TextRequest
	if !h.decode(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, h.backend.BannedPatterns(req.Text))
}

func (h *restHandler) distribution(w http.ResponseWriter, r *http.Request) {
	var req ScoresRequest
	if !h.decode(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, h.backend.ScoreDistribution(req.Scores))
}

func (h *restHandler) evidenceQuality(w http.ResponseWriter, r *http.Request) {
	check, err := h.backend.EvidenceQuality(r.Context(), mux.Vars(r)["projectId"])
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, check)
}

func (h *restHandler) evaluate(w http.ResponseWriter, r *http.Request) {
	var req models.EvaluationRequest
	if !h.decode(w, r, &req) {
		return
	}
	req.ProjectID = mux.Vars(r)["projectId"]
	verdict, err := h.backend.Evaluate(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, verdict)
}

func (h *restHandler) drift(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	resp, err := h.backend.RunDrift(r.Context(), vars["projectId"], vars["runId"])
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *restHandler) audit(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	check, err := h.backend.RunAudit(r.Context(), vars["projectId"], vars["runId"])
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, check)
}

func (h *restHandler) decode(w http.ResponseWriter, r *http.Request, out any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(out); err != nil {
		h.writeError(w, status.Errorf(codes.InvalidArgument, "invalid request body: %v", err))
		return false
	}
	return true
}

func (h *restHandler) writeError(w http.ResponseWriter, err error) {
	code := HTTPStatus(err)
	if code >= http.StatusInternalServerError {
		h.logger.Error("request failed", slog.Any("error", err))
	}
	msg := err.Error()
	if st, ok := status.FromError(err); ok {
		msg = st.Message()
	}
	writeJSON(w, code, map[string]string{"error": msg})
}

// HTTPStatus maps an error carrying a gRPC status code onto an HTTP status.
func HTTPStatus(err error) int {
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}
	switch status.Code(err) {
	case codes.OK:
		return http.StatusOK
	case codes.InvalidArgument:
		return http.StatusBadRequest
	case codes.NotFound:
		return http.StatusNotFound
	case codes.FailedPrecondition:
		return http.StatusPreconditionFailed
	case codes.Unavailable:
		return http.StatusServiceUnavailable
	case codes.DeadlineExceeded:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
