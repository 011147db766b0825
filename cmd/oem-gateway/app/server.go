package app

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/loafoe/kong-plugin-oemgateway/cmd/oem-gateway/app/options"
	"github.com/loafoe/kong-plugin-oemgateway/dispatch"
	"github.com/loafoe/kong-plugin-oemgateway/gateway"
	"github.com/loafoe/kong-plugin-oemgateway/log"
	"github.com/loafoe/kong-plugin-oemgateway/signature"
)

const maxBodyBytes = 1 << 20

// Server exposes a gateway Stack over HTTP.
type Server struct {
	stack  *gateway.Stack
	opts   *options.HTTPOptions
	logger log.Logger
	router *mux.Router
}

func NewServer(stack *gateway.Stack, opts *options.HTTPOptions, logger log.Logger) *Server {
	s := &Server{
		stack:  stack,
		opts:   opts,
		logger: logger.WithName("http"),
	}
	r := mux.NewRouter()
	r.Use(s.cors)
	r.HandleFunc("/", s.dispatch).Methods(http.MethodPost)
	r.HandleFunc("/v1/dispatch", s.dispatch).Methods(http.MethodPost)
	r.HandleFunc("/healthz", s.healthz).Methods(http.MethodGet)
	r.HandleFunc("/readyz", s.readyz).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	r.PathPrefix("/").Methods(http.MethodOptions).HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", s.opts.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", s.opts.AllowedOrigin)
		h.Set("Access-Control-Allow-Methods", "POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, "+signature.HeaderSignedDate+", "+signature.HeaderSignature)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) dispatch(w http.ResponseWriter, r *http.Request) {
	d := s.stack.Dispatcher
	if v := s.stack.Verifier; v != nil {
		if err := v.Verify(r.Header.Get); err != nil {
			status, out := d.Reject(err)
			writeJSON(w, status, out)
			return
		}
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		status, out := d.Reject(&dispatch.BadRequestError{Reason: "error reading body: " + err.Error()})
		writeJSON(w, status, out)
		return
	}
	status, out := d.Handle(r.Context(), body)
	s.logger.Debug("dispatched", "status", status, "remote", r.RemoteAddr)
	writeJSON(w, status, out)
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, []byte(`{"status":"ok"}`))
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	if !s.stack.Acquirer.Configured() {
		writeJSON(w, http.StatusServiceUnavailable, []byte(`{"status":"credentials not configured"}`))
		return
	}
	writeJSON(w, http.StatusOK, []byte(`{"status":"ready"}`))
}

func writeJSON(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
