package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"

	"github.com/campusconnect/mconnect/internal/config"
	"github.com/campusconnect/mconnect/internal/http/apierr"
	"github.com/campusconnect/mconnect/internal/http/metric"
	"github.com/campusconnect/mconnect/internal/http/middleware"
	"github.com/campusconnect/mconnect/internal/http/swagger"
	"github.com/campusconnect/mconnect/internal/service"
	"github.com/campusconnect/mconnect/pkg/validator"
	"github.com/campusconnect/mconnect/pkg/zerror"
)

var tracer = otel.Tracer("internal/http")

// uploadsPath is the public prefix listing images are served under.
const uploadsPath = "/uploads"

// Service represents the HTTP service.
type Service struct {
	cfg       config.HTTP
	logger    *slog.Logger
	metrics   *metric.Metrics
	validator validator.Validator

	listingSvc  service.ListingService
	purchaseSvc service.PurchaseService
	uploadDir   string
}

type CleanupFunc func(ctx context.Context) error

func New(
	cfg config.HTTP,
	log *slog.Logger,
	v validator.Validator,
	listingSvc service.ListingService,
	purchaseSvc service.PurchaseService,
	uploadDir string,
) *Service {
	return &Service{
		cfg:         cfg,
		logger:      log.With(slog.String("service", "http")),
		metrics:     metric.New(),
		validator:   v,
		listingSvc:  listingSvc,
		purchaseSvc: purchaseSvc,
		uploadDir:   uploadDir,
	}
}

func (s *Service) Run(ctx context.Context) (CleanupFunc, error) {
	r := chi.NewRouter()
	s.RegisterMiddlewares(r)

	if s.cfg.Swagger {
		swagger.Register(r)
	}

	s.RegisterHandlers(r)

	return s.RunWithServer(ctx, r)
}

func (s *Service) RunWithServer(ctx context.Context, handler http.Handler) (CleanupFunc, error) {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Port),
		Handler:           handler,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			panic(err)
		}
	}()

	return func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}, nil
}

func (s *Service) RegisterMiddlewares(r chi.Router) {
	r.Use(
		middleware.Recoverer(s.logger),
		middleware.Trace(tracer),
		middleware.Metrics(s.metrics),
		middleware.CorrelationID(),
		middleware.Cors(),
		middleware.Logging(s.logger),
	)
}

func (s *Service) RegisterHandlers(r chi.Router) {
	lh := &listingHandler{s: s}
	ph := &purchaseHandler{s: s}

	r.Get("/healthz", s.handleHealthz)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/listings", lh.list)
		r.Post("/listings", lh.create)
		r.Get("/listings/search", lh.search)
		r.Get("/listings/{id}", lh.get)
		r.Get("/listings/{id}/related", lh.related)
		r.Post("/listings/{id}/sold", lh.markSold)
		r.Get("/listings/{id}/requests", ph.list)
		r.Post("/listings/{id}/requests", ph.create)
		r.Get("/my-listings", lh.bySeller)
	})

	r.Get(uploadsPath+"/{name}", s.handleUploadedImage)
	r.Handle(middleware.MetricsPath, s.metrics.Handler())
}

func (s *Service) handleHealthz(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

var invalidImageNameErr = zerror.NewNotFound("IMAGE_NOT_FOUND", "image not found")

func (s *Service) handleUploadedImage(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if name == "" || name != filepath.Base(name) {
		s.writeError(w, r, invalidImageNameErr)
		return
	}

	http.ServeFile(w, r, filepath.Join(s.uploadDir, name))
}

func (s *Service) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.ErrorContext(r.Context(), "error encoding response",
			slog.Any("error", err))
	}
}

func (s *Service) writeError(w http.ResponseWriter, r *http.Request, err error) {
	res := apierr.New(err)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(res.StatusCode)

	logLevel := slog.LevelInfo
	if res.StatusCode >= 500 {
		logLevel = slog.LevelError
	} else if res.StatusCode >= 400 {
		logLevel = slog.LevelWarn
	}
	s.logger.Log(r.Context(), logLevel, "http response error", slog.Any("error", err))

	if err := json.NewEncoder(w).Encode(res); err != nil {
		s.logger.ErrorContext(r.Context(), "error encoding error response",
			slog.Any("error", err))
	}
}
