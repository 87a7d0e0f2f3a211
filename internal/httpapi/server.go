// Package httpapi serves stock analysis, screener runs and exchange rates
// over JSON, plus a websocket stream of scan progress.
package httpapi

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rlaalswo86-stack/godlifedaily/internal/fx"
	"github.com/rlaalswo86-stack/godlifedaily/internal/metrics"
	"github.com/rlaalswo86-stack/godlifedaily/internal/model"
	"github.com/rlaalswo86-stack/godlifedaily/internal/recorder"
	"github.com/rlaalswo86-stack/godlifedaily/internal/scheduler"
	"github.com/rlaalswo86-stack/godlifedaily/internal/screener"
)

// Scanner runs one screener pass over the resolved universe.
type Scanner interface {
	Scan(ctx context.Context, criteria model.Criteria, progress screener.ProgressFunc) (*model.ScanResult, error)
}

// QuoteService reads and refreshes exchange rates.
type QuoteService interface {
	Quote(ctx context.Context, code string) (model.FXQuote, error)
	Quotes(ctx context.Context, codes []string) ([]model.FXQuote, map[string]error)
	Refresh(ctx context.Context) error
}

// Deps are the services behind the API. History and Metrics may be nil.
type Deps struct {
	Analyzer scheduler.Analyzer
	Universe scheduler.UniverseProvider
	Scanner  Scanner
	FX       QuoteService
	History  recorder.History
	Metrics  *metrics.Metrics
	Criteria model.Criteria
	FXCodes  []string
}

// Server serves the JSON API.
type Server struct {
	deps Deps
	srv  *http.Server
}

// NewServer creates an API server. Zero criteria select the defaults.
func NewServer(deps Deps) *Server {
	if deps.Criteria == (model.Criteria{}) {
		deps.Criteria = model.DefaultCriteria()
	}
	if len(deps.FXCodes) == 0 {
		deps.FXCodes = fx.DefaultCodes
	}
	return &Server{deps: deps}
}

// RegisterRoutes registers all API routes on the given mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/stock/{symbol}", s.handleStock)
	mux.HandleFunc("GET /api/universe", s.handleUniverse)
	mux.HandleFunc("POST /api/scan", s.handleScan)
	mux.HandleFunc("GET /api/scan/ws", s.handleScanWS)
	mux.HandleFunc("GET /api/scans", s.handleScans)
	mux.HandleFunc("GET /api/fx", s.handleFX)
	mux.HandleFunc("POST /api/fx/refresh", s.handleFXRefresh)
	mux.HandleFunc("GET /api/fx/convert", s.handleConvert)
}

// Handler returns an http.Handler with CORS and request metrics.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return s.instrument(corsMiddleware(mux))
}

// Start listens on addr in a goroutine.
func (s *Server) Start(addr string) {
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Printf("[INFO] API server listening on %s", addr)
		if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("[ERROR] API server: %v", err)
		}
	}()
}

// Stop gracefully shuts down the API server.
func (s *Server) Stop(ctx context.Context) {
	if s.srv != nil {
		s.srv.Shutdown(ctx)
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// Hijack lets the websocket upgrader take over the connection.
func (s *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := s.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("hijack not supported")
	}
	s.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (s *Server) instrument(next http.Handler) http.Handler {
	if s.deps.Metrics == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		s.deps.Metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[ERROR] encode JSON response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func (s *Server) handleStock(w http.ResponseWriter, r *http.Request) {
	symbol := r.PathValue("symbol")
	period := model.Period(r.URL.Query().Get("period"))

	a, err := s.deps.Analyzer.Analyze(r.Context(), symbol, period)
	switch {
	case errors.Is(err, model.ErrUnknownPeriod):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, model.ErrNoData):
		writeError(w, http.StatusNotFound, err.Error())
	case err != nil:
		log.Printf("[ERROR] analyze %s: %v", symbol, err)
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		writeJSON(w, a)
	}
}

func (s *Server) handleUniverse(w http.ResponseWriter, r *http.Request) {
	u, warning := s.deps.Universe.Universe(r.Context())
	writeJSON(w, map[string]any{
		"symbols": u,
		"count":   len(u),
		"warning": warning,
	})
}

// decodeCriteria overlays the JSON body on the configured criteria. An empty
// body keeps them unchanged.
func (s *Server) decodeCriteria(body io.Reader) (model.Criteria, error) {
	c := s.deps.Criteria
	if err := json.NewDecoder(body).Decode(&c); err != nil && !errors.Is(err, io.EOF) {
		return c, fmt.Errorf("%w: %v", model.ErrInvalidCriteria, err)
	}
	return c, c.Validate()
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	criteria, err := s.decodeCriteria(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := s.deps.Scanner.Scan(r.Context(), criteria, nil)
	switch {
	case errors.Is(err, scheduler.ErrScanInProgress):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, model.ErrInvalidCriteria):
		writeError(w, http.StatusBadRequest, err.Error())
	case res == nil && err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		writeJSON(w, res)
	}
}

func (s *Server) handleScans(w http.ResponseWriter, r *http.Request) {
	if s.deps.History == nil {
		writeError(w, http.StatusNotImplemented, "scan history is not configured")
		return
	}
	limit := 10
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 100 {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and 100")
			return
		}
		limit = n
	}
	scans, err := s.deps.History.RecentScans(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if scans == nil {
		scans = []recorder.ScanSummary{}
	}
	writeJSON(w, scans)
}

func (s *Server) handleFX(w http.ResponseWriter, r *http.Request) {
	codes := s.deps.FXCodes
	if v := r.URL.Query().Get("codes"); v != "" {
		codes = strings.Split(strings.ToUpper(v), ",")
	}
	quotes, failed := s.deps.FX.Quotes(r.Context(), codes)
	errs := make(map[string]string, len(failed))
	for code, err := range failed {
		errs[code] = err.Error()
	}
	writeJSON(w, map[string]any{
		"quotes": quotes,
		"errors": errs,
	})
}

func (s *Server) handleFXRefresh(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.FX.Refresh(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	dir, err := fx.ParseDirection(q.Get("direction"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var rate float64
	if quote, err := s.deps.FX.Quote(r.Context(), fx.CodeTHBKRW); err != nil {
		log.Printf("[WARN] convert: THB quote: %v", err)
	} else {
		rate = quote.Rate
	}

	c, err := fx.Convert(dir, q.Get("amount"), rate)
	switch {
	case errors.Is(err, fx.ErrNoRate):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case err != nil:
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeJSON(w, c)
	}
}
