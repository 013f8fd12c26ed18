package server

import (
	"context"
	"errors"
	"io/fs"
	"net"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/kartoza/aquacheck/internal/api"
	"github.com/kartoza/aquacheck/internal/config"
	"github.com/kartoza/aquacheck/internal/middleware"
	"github.com/kartoza/aquacheck/internal/nn"
	"github.com/kartoza/aquacheck/internal/quality"
	"go.uber.org/zap"
)

// Model is the loaded classifier together with its description.
type Model interface {
	quality.Classifier
	Summary() nn.Summary
}

// Server holds all the components for the web application
type Server struct {
	cfg        config.Config
	httpServer *http.Server
	router     *mux.Router
	service    *quality.Service
	model      Model
	views      *views
	logger     *zap.Logger
}

// New creates a new Server around an already loaded model
func New(cfg config.Config, model Model, logger *zap.Logger) (*Server, error) {
	if model == nil {
		return nil, errors.New("server requires a loaded model")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	v, err := newViews(cfg.Version)
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:     cfg,
		router:  mux.NewRouter(),
		service: quality.NewService(model, logger.Named("quality")),
		model:   model,
		views:   v,
		logger:  logger,
	}
	s.httpServer = &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  cfg.Server.ReadTimeoutDuration(),
		WriteTimeout: cfg.Server.WriteTimeoutDuration(),
		IdleTimeout:  cfg.Server.IdleTimeoutDuration(),
	}

	if err := s.setupRoutes(); err != nil {
		return nil, err
	}
	return s, nil
}

// Handler returns the fully wired HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() error {
	httpLogger := s.logger.Named("http")
	s.router.Use(
		middleware.WithRequestID,
		middleware.Logger(httpLogger),
		middleware.Recover(httpLogger, http.HandlerFunc(s.handleServerError)),
	)

	// API routes
	apiRouter := s.router.PathPrefix("/api").Subrouter()
	apiHandler := api.NewHandler(s.service, s.model.Summary(), s.cfg, s.logger.Named("api"))
	apiHandler.RegisterRoutes(apiRouter)

	staticContent, err := fs.Sub(staticFS, "static")
	if err != nil {
		return err
	}
	s.router.PathPrefix("/static/").Handler(
		http.StripPrefix("/static/", http.FileServer(http.FS(staticContent))))

	s.router.HandleFunc("/", s.handleHome).Methods("GET")
	s.router.HandleFunc("/predict", s.handlePredict).Methods("POST")

	// Middleware registered with Use does not run for unmatched routes,
	// so the not-found view is wrapped explicitly.
	s.router.NotFoundHandler = middleware.WithRequestID(
		middleware.Logger(httpLogger)(http.HandlerFunc(s.handleNotFound)))
	return nil
}

// handleHome renders the idle form
func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	s.renderPage(w, r, http.StatusOK, s.views.data(nil, nil))
}

// handlePredict validates the submitted form, classifies it and renders the verdict
func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	requestID := zap.String("request_id", middleware.RequestID(r.Context()))

	// PostForm keeps every pair that decoded even when ParseForm fails.
	parseErr := r.ParseForm()
	input := quality.FormInput(r.PostForm)
	if parseErr != nil {
		s.logger.Warn("parse form", zap.Error(parseErr), requestID)
		env := quality.ErrorEnvelope(malformedForm(input))
		s.renderPage(w, r, http.StatusOK, s.views.data(input, &env))
		return
	}

	env, _ := s.service.Evaluate(input, requestID)
	s.renderPage(w, r, http.StatusOK, s.views.data(input, &env))
}

// malformedForm reports the first problem with the fields that did decode,
// falling back to a generic form error. A partly decoded form is never
// classified.
func malformedForm(input quality.RawInput) error {
	if _, err := quality.Validate(input); err != nil {
		return err
	}
	return &quality.ValidationError{Reason: "malformed form data"}
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	env := quality.Failure("Page not found")
	s.renderPage(w, r, http.StatusNotFound, s.views.data(nil, &env))
}

func (s *Server) handleServerError(w http.ResponseWriter, r *http.Request) {
	env := quality.Failure("Internal server error")
	s.renderPage(w, r, http.StatusInternalServerError, s.views.data(nil, &env))
}

func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, status int, data PageData) {
	if err := s.views.render(w, status, data); err != nil {
		s.logger.Error("render page",
			zap.Error(err),
			zap.String("request_id", middleware.RequestID(r.Context())))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// Serve accepts connections on l until Shutdown is called
func (s *Server) Serve(l net.Listener) error {
	s.logger.Info("server listening", zap.String("addr", l.Addr().String()))
	err := s.httpServer.Serve(l)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Start begins listening for HTTP connections on the configured address
func (s *Server) Start() error {
	l, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	return s.Serve(l)
}

// Stop gracefully shuts down the server
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("shutting down server")
	return s.httpServer.Shutdown(ctx)
}
