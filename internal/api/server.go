package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kenlai212/booking-api-sub001/internal/config"
	"github.com/kenlai212/booking-api-sub001/internal/remoteapi"
	"github.com/kenlai212/booking-api-sub001/internal/repository"
	"github.com/kenlai212/booking-api-sub001/internal/service"
	"github.com/kenlai212/booking-api-sub001/internal/slots"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// HTTPServer serves the availability API.
type HTTPServer struct {
	cfg       *config.Config
	assets    *config.AssetRegistry
	repo      repository.OccupancyRepository
	service   *service.OccupancyService
	occupancy slots.OccupancySource
	pricer    slots.Pricer
	redis     *redis.Client
	limiter   *rate.Limiter
	logger    *zerolog.Logger
	server    *http.Server
}

// NewHTTPServer wires the routes. Occupancy lookups go to repo and prices come
// from each asset's calculator unless overridden with UseRemoteOccupancy or
// UseRemotePricer.
func NewHTTPServer(
	cfg *config.Config,
	assets *config.AssetRegistry,
	repo repository.OccupancyRepository,
	svc *service.OccupancyService,
	redisClient *redis.Client,
	logger *zerolog.Logger,
) *HTTPServer {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	s := &HTTPServer{
		cfg:       cfg,
		assets:    assets,
		repo:      repo,
		service:   svc,
		occupancy: repo,
		redis:     redisClient,
		logger:    logger,
	}

	if rps := cfg.Server.RateLimit.RequestsPerSecond; rps > 0 {
		burst := cfg.Server.RateLimit.Burst
		if burst <= 0 {
			burst = int(rps)
			if burst < 1 {
				burst = 1
			}
		}
		s.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/slots", s.handleSlots)
	mux.HandleFunc("/api/end-slots", s.handleEndSlots)
	mux.HandleFunc("/api/occupancies", s.handleOccupancies)
	mux.HandleFunc("/api/occupancies/", s.handleOccupancyByID)
	mux.HandleFunc("/api/manifest", s.handleManifest)
	s.RegisterHealth(mux)

	s.server = &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           s.withMiddleware(mux),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// UseRemoteOccupancy replaces the occupancy source used for slot queries.
func (s *HTTPServer) UseRemoteOccupancy(src slots.OccupancySource) {
	s.occupancy = src
}

// UseRemotePricer replaces the per-asset calculators with a shared pricer.
func (s *HTTPServer) UseRemotePricer(p slots.Pricer) {
	s.pricer = p
}

func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

// Start serves until Shutdown is called.
func (s *HTTPServer) Start() error {
	s.logger.Info().Str("addr", s.server.Addr).Msg("http api listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// RegisterHealth adds /healthz and /readyz to mux.
func (s *HTTPServer) RegisterHealth(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := s.repo.PingContext(ctx); err != nil {
			http.Error(w, "store not ready", http.StatusServiceUnavailable)
			return
		}
		if s.redis != nil {
			if err := s.redis.Ping(ctx).Err(); err != nil {
				http.Error(w, "redis not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})
}

func (s *HTTPServer) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/api/") {
			next.ServeHTTP(w, r)
			return
		}

		if key := s.cfg.Server.APIKey; key != "" && r.Header.Get("X-Api-Key") != key {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		if s.limiter != nil && !s.limiter.Allow() {
			s.logger.Warn().Str("path", r.URL.Path).Str("remote_addr", r.RemoteAddr).Msg("rate limit exceeded")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// generatorFor builds the slot generator of an active asset.
func (s *HTTPServer) generatorFor(assetID string) (*slots.Generator, error) {
	if strings.TrimSpace(assetID) == "" {
		return nil, fmt.Errorf("%w: asset_id is required", slots.ErrInvalidInput)
	}
	asset, ok := s.assets.Lookup(assetID)
	if !ok {
		return nil, fmt.Errorf("%w: asset %q", slots.ErrNotFound, assetID)
	}

	cfg, err := s.cfg.SlotsConfigFor(asset)
	if err != nil {
		return nil, err
	}

	pricer := s.pricer
	if pricer == nil {
		pricer = s.cfg.PricingCalculatorFor(asset)
	}
	return slots.NewGenerator(cfg, s.occupancy, pricer, s.logger)
}

// statusFor maps an error to its HTTP status.
func statusFor(err error) int {
	var apiErr *remoteapi.APIError
	switch {
	case errors.Is(err, slots.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, slots.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, repository.ErrNotAvailable):
		return http.StatusConflict
	case errors.As(err, &apiErr) && apiErr.StatusCode >= 400:
		return apiErr.StatusCode
	default:
		return http.StatusInternalServerError
	}
}

func (s *HTTPServer) writeFailure(w http.ResponseWriter, endpoint string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error().Err(err).Str("endpoint", endpoint).Msg("request failed")
	}
	writeError(w, status, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
