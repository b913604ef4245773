package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/bubio989-sudo/coinbasenov22/pkg/coinbase"
	"github.com/bubio989-sudo/coinbasenov22/pkg/metrics"
	"github.com/bubio989-sudo/coinbasenov22/pkg/signal"
)

// maxSignalBytes bounds inbound bodies; real alert payloads are tiny.
const maxSignalBytes = 64 << 10

type Server struct {
	dispatcher  coinbase.Dispatcher
	opts        signal.Options
	logger      *logrus.Logger
	logPayloads bool
	port        string
	httpServer  *http.Server
}

func NewServer(dispatcher coinbase.Dispatcher, opts signal.Options, logger *logrus.Logger, port string, logPayloads bool) *Server {
	return &Server{
		dispatcher:  dispatcher,
		opts:        opts,
		logger:      logger,
		logPayloads: logPayloads,
		port:        port,
	}
}

func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:              ":" + s.port,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Infof("Starting webhook server on port %s", s.port)
	if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/", s.handleLiveness)
	mux.HandleFunc("/webhook", s.handleWebhook)
	mux.Handle("/metrics", metrics.Handler())

	return corsMiddleware(mux)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleLiveness(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{"status": "ok"})
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	metrics.SignalsReceived.Inc()

	raw, err := io.ReadAll(io.LimitReader(r.Body, maxSignalBytes))
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]interface{}{"error": "failed to read request body"})
		return
	}

	if s.logPayloads {
		s.logger.WithField("payload", string(raw)).Info("Received signal")
	}

	intent, _, err := signal.Normalize(raw, s.opts)
	if err != nil {
		s.rejectSignal(w, err)
		return
	}

	result, err := s.dispatcher.PlaceOrder(r.Context(), intent)
	if err != nil {
		metrics.DispatchFailures.Inc()
		s.logger.WithError(err).Error("Order dispatch failed")
		s.writeJSON(w, http.StatusInternalServerError, map[string]interface{}{"error": err.Error()})
		return
	}

	if result.Simulated {
		metrics.OrdersSimulated.Inc()
		s.writeJSON(w, http.StatusOK, map[string]interface{}{
			"ok":        true,
			"simulated": true,
			"payload":   result.Response,
		})
		return
	}

	if !result.OK() {
		metrics.DispatchFailures.Inc()
		s.logger.WithField("status", result.StatusCode).Error("Exchange rejected order")
		s.writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"ok":          false,
			"status_code": result.StatusCode,
			"response":    result.Response,
		})
		return
	}

	metrics.OrdersDispatched.Inc()
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"ok":          true,
		"status_code": result.StatusCode,
		"response":    result.Response,
	})
}

// rejectSignal maps normalization failures onto the response taxonomy:
// auth 401, cap 403, everything else 400.
func (s *Server) rejectSignal(w http.ResponseWriter, err error) {
	switch e := err.(type) {
	case *signal.AuthError:
		metrics.SignalsRejected.WithLabelValues("auth").Inc()
		s.writeJSON(w, http.StatusUnauthorized, map[string]interface{}{"error": e.Reason})

	case *signal.CapError:
		metrics.SignalsRejected.WithLabelValues("cap").Inc()
		s.writeJSON(w, http.StatusForbidden, map[string]interface{}{
			"error": "order size exceeds server safety limit",
			"max":   e.Max.InexactFloat64(),
		})

	case *signal.ValidationError:
		metrics.SignalsRejected.WithLabelValues("validation").Inc()
		body := map[string]interface{}{"error": e.Reason}
		if e.Received != nil {
			body["received"] = e.Received
		}
		s.writeJSON(w, http.StatusBadRequest, body)

	default:
		metrics.SignalsRejected.WithLabelValues("validation").Inc()
		s.writeJSON(w, http.StatusBadRequest, map[string]interface{}{"error": err.Error()})
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.WithError(err).Error("Failed to encode JSON response")
	}
}
