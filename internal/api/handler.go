package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/kartoza/aquacheck/internal/config"
	"github.com/kartoza/aquacheck/internal/middleware"
	"github.com/kartoza/aquacheck/internal/models"
	"github.com/kartoza/aquacheck/internal/nn"
	"github.com/kartoza/aquacheck/internal/quality"
	"go.uber.org/zap"
)

// Handler provides HTTP API endpoints
type Handler struct {
	service *quality.Service
	model   nn.Summary
	cfg     config.Config
	logger  *zap.Logger
}

// NewHandler creates a new API handler
func NewHandler(service *quality.Service, model nn.Summary, cfg config.Config, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		service: service,
		model:   model,
		cfg:     cfg,
		logger:  logger,
	}
}

// RegisterRoutes sets up all API routes
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/health", h.handleHealth).Methods("GET")
	r.HandleFunc("/info", h.handleInfo).Methods("GET")

	r.HandleFunc("/predict", h.handlePredict).Methods("POST")
	r.HandleFunc("/recommendations", h.handleRecommendations).Methods("GET")
}

// respondJSON sends a JSON response
func (h *Handler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Warn("encoding response", zap.Error(err))
	}
}

// respondError sends a JSON error response
func (h *Handler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, models.ErrorResponse{Status: quality.StatusError, Message: message})
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, models.HealthResponse{Status: "ok"})
}

func (h *Handler) handleInfo(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, models.InfoResponse{
		Version:    h.cfg.Version,
		Parameters: quality.Parameters[:],
		Model:      h.model,
	})
}

// handlePredict runs the full pipeline on a JSON or form body
func (h *Handler) handlePredict(w http.ResponseWriter, r *http.Request) {
	raw, err := readInput(w, r)
	if err != nil {
		h.logger.Warn("malformed request", zap.Error(err), zap.String("request_id", middleware.RequestID(r.Context())))
		h.respondError(w, http.StatusBadRequest, errMalformedBody.Error())
		return
	}

	env, err := h.service.Evaluate(raw, zap.String("request_id", middleware.RequestID(r.Context())))
	h.respondJSON(w, quality.MapHTTPStatus(err), env)
}

// handleRecommendations validates query parameters and returns advisories only
func (h *Handler) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	recs, err := h.service.Recommendations(quality.FormInput(r.URL.Query()))
	if err != nil {
		h.respondJSON(w, quality.MapHTTPStatus(err), models.RecommendationsResponse{
			Status:  quality.StatusError,
			Message: quality.PublicMessage(err),
		})
		return
	}
	h.respondJSON(w, http.StatusOK, models.RecommendationsResponse{
		Status:          quality.StatusSuccess,
		Recommendations: recs,
	})
}
