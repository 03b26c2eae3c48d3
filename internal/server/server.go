// Package server exposes the storefront-facing HTTP surface: the
// calculate-shipping endpoint and the platform webhook.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"

	"github.com/storelink/correios-bridge/internal/appdata"
	"github.com/storelink/correios-bridge/internal/shipping"
	"github.com/storelink/correios-bridge/internal/telemetry"
	"github.com/storelink/correios-bridge/pkg/correios"
)

// storeIDHeader carries the storefront's store id on every call.
const storeIDHeader = "X-Store-ID"

// Webhook echo bodies expected by the platform.
const (
	echoSuccess = "SUCCESS"
	echoSkip    = "SKIP"
)

// Server is the HTTP server for the shipping bridge.
type Server struct {
	port     int
	logger   *otelzap.Logger
	metrics  *telemetry.Metrics
	quotes   *shipping.QuoteService
	webhooks *shipping.WebhookService
	appData  *appdata.Store
}

// Config holds server configuration.
type Config struct {
	Port int
}

// New creates a new server instance.
func New(cfg Config, quotes *shipping.QuoteService, webhooks *shipping.WebhookService, appData *appdata.Store, logger *otelzap.Logger, metrics *telemetry.Metrics) *Server {
	return &Server{
		port:     cfg.Port,
		logger:   logger,
		metrics:  metrics,
		quotes:   quotes,
		webhooks: webhooks,
		appData:  appData,
	}
}

// Handler builds the route tree.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())
	r.Post("/calculate", s.handleCalculate)
	r.Post("/webhook", s.handleWebhook)

	return r
}

// Run starts the HTTP server and blocks until context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting server", zap.Int("port", s.port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		// Let in-flight contract syncs finish before the process exits.
		s.webhooks.Wait()
		return err
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (s *Server) handleCalculate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	storeID, err := storeIDFrom(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{
			Error:   "MISSING_STORE_ID",
			Message: "Missing or invalid X-Store-ID header",
		})
		return
	}

	var req shipping.QuoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{
			Error:   "INVALID_BODY",
			Message: "Invalid JSON: " + err.Error(),
		})
		return
	}

	settings, err := s.appData.Settings(ctx, storeID)
	if err != nil {
		if !errors.Is(err, appdata.ErrNotFound) {
			s.logger.Error("Cannot load app data", zap.Int64("store_id", storeID), zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, errorBody{
				Error:   "STORE_API_ERR",
				Message: err.Error(),
			})
			return
		}
		settings = &shipping.Settings{}
	}

	resp, err := s.quotes.Quote(ctx, storeID, &req, settings)
	if err != nil {
		s.writeQuoteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// writeQuoteError maps pipeline errors onto the storefront error contract.
func (s *Server) writeQuoteError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shipping.ErrMissingOriginZip):
		writeJSON(w, http.StatusConflict, errorBody{
			Error:   "CALCULATE_ERR",
			Message: "Zip code is unset on app hidden data (merchant must configure the app)",
		})
	case errors.Is(err, shipping.ErrEmptyCart):
		writeJSON(w, http.StatusBadRequest, errorBody{
			Error:   "CALCULATE_EMPTY_CART",
			Message: "Cannot calculate shipping without cart items",
		})
	default:
		message := err.Error()
		var carrierErr *correios.CarrierError
		if errors.As(err, &carrierErr) {
			message = carrierErr.Message
		}
		writeJSON(w, http.StatusConflict, errorBody{
			Error:   "CALCULATE_FAILED",
			Message: message,
		})
	}
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	storeID, err := storeIDFrom(r)
	if err != nil {
		writeText(w, http.StatusPreconditionFailed, "Webhook with no store context")
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeText(w, http.StatusBadRequest, "Cannot read request body")
		return
	}
	var trigger shipping.Trigger
	if err := json.Unmarshal(body, &trigger); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{
			Error:   "INVALID_BODY",
			Message: "Invalid JSON: " + err.Error(),
		})
		return
	}

	settings, err := s.appData.Settings(ctx, storeID)
	outcome := shipping.TriggerFailed
	if err == nil {
		outcome = s.webhooks.Process(storeID, &trigger, settings)
	}

	switch {
	case errors.Is(err, appdata.ErrNotFound):
		// Keep the original trigger payload in the log for diagnostics.
		s.logger.Error("Webhook unhandled with no authentication found",
			zap.Int64("store_id", storeID),
			zap.ByteString("trigger", body),
		)
		writeText(w, http.StatusPreconditionFailed,
			fmt.Sprintf("Webhook for %d unhandled with no authentication found", storeID))
	case outcome == shipping.TriggerSkipped:
		writeText(w, http.StatusOK, echoSkip)
	case outcome == shipping.TriggerProcessed:
		writeText(w, http.StatusOK, echoSuccess)
	default:
		message := "store api error"
		if err != nil {
			message = err.Error()
		}
		writeJSON(w, http.StatusInternalServerError, errorBody{
			Error:   "STORE_API_ERR",
			Message: message,
		})
	}
}

func storeIDFrom(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.Header.Get(storeIDHeader), 10, 64)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	w.Write([]byte(body))
}
