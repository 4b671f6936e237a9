package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"MarketLedger/internal/core"
	"MarketLedger/internal/derive"
	"MarketLedger/internal/event"
	"MarketLedger/internal/feemath"
	"MarketLedger/internal/ingestion"
	"MarketLedger/internal/ledger"
	"MarketLedger/internal/metadata"
	"MarketLedger/internal/observability"
	"MarketLedger/internal/persistence"
	"MarketLedger/internal/projection"
	"MarketLedger/internal/query"
	"MarketLedger/internal/state"
)

const submitTimeout = 10 * time.Second

// ServerDeps holds everything the HTTP API needs.
type ServerDeps struct {
	DB            *sql.DB
	Requests      chan<- core.OpRequest
	QueryService  *query.QueryService
	SaleHistory   *projection.SaleHistory
	SnapshotMgr   *persistence.SnapshotManager
	Projections   *projection.ProjectionWorker
	HealthChecker *observability.HealthChecker
	Metrics       *observability.Metrics
	Logger        zerolog.Logger
	StartTime     time.Time
	AdminToken    string
}

// HTTPServer serves the JSON API: operation submission, projection
// queries, admin endpoints, health and metrics.
type HTTPServer struct {
	srv  *http.Server
	deps *ServerDeps
}

func NewHTTPServer(addr string, deps *ServerDeps) *HTTPServer {
	s := &HTTPServer{deps: deps}

	r := mux.NewRouter()
	r.Use(s.metricsMiddleware)

	// Write side.
	r.HandleFunc("/v1/ops/{op_type}", s.handleSubmit).Methods(http.MethodPost)

	// Read side.
	r.HandleFunc("/v1/accounts/{holder}/balances", s.handleHolderBalances).Methods(http.MethodGet)
	r.HandleFunc("/v1/accounts/{holder}/currency", s.handleCurrencyBalance).Methods(http.MethodGet)
	r.HandleFunc("/v1/accounts/{holder}/journal", s.handleJournalHistory).Methods(http.MethodGet)
	r.HandleFunc("/v1/marketplaces/{name}", s.handleGetMarketplace).Methods(http.MethodGet)
	r.HandleFunc("/v1/marketplaces/{name}/listings", s.handleOpenListings).Methods(http.MethodGet)
	r.HandleFunc("/v1/marketplaces/{name}/listings/{asset}", s.handleListingByPair).Methods(http.MethodGet)
	r.HandleFunc("/v1/marketplaces/{name}/sales/recent", s.handleRecentSalesByMarketplace).Methods(http.MethodGet)
	r.HandleFunc("/v1/listings/{listing}", s.handleGetListing).Methods(http.MethodGet)
	r.HandleFunc("/v1/sales", s.handleSales).Methods(http.MethodGet)
	r.HandleFunc("/v1/sales/recent", s.handleRecentSales).Methods(http.MethodGet)
	r.HandleFunc("/v1/ops", s.handleOpHistory).Methods(http.MethodGet)

	// Admin.
	r.HandleFunc("/v1/admin/integrity", s.requireAdmin(s.handleVerifyIntegrity)).Methods(http.MethodGet)
	r.HandleFunc("/v1/admin/projections/rebuild", s.requireAdmin(s.handleRebuildProjections)).Methods(http.MethodPost)
	r.HandleFunc("/v1/admin/status", s.requireAdmin(s.handleStatus)).Methods(http.MethodGet)

	// Operational.
	r.HandleFunc("/healthz", deps.HealthChecker.LivenessHandler).Methods(http.MethodGet)
	r.HandleFunc("/readyz", deps.HealthChecker.ReadinessHandler).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	s.srv = &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Start serves until ctx is cancelled, then drains with a grace period.
func (s *HTTPServer) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.deps.Logger.Info().Str("addr", s.srv.Addr).Msg("http server listening")
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.srv.Shutdown(shutdownCtx)
	}
}

// --- write side ---

// Short route verbs for the submit endpoint. The canonical op type
// names are accepted too.
var routeOpTypes = map[string]string{
	"initialize": "MarketplaceInitialize",
	"deposit":    "CurrencyDeposit",
	"issue":      "AssetIssue",
	"mint":       "AssetMint",
	"list":       "ListingCreate",
	"unlist":     "ListingCancel",
	"purchase":   "ListingPurchase",
}

func (s *HTTPServer) handleSubmit(w http.ResponseWriter, r *http.Request) {
	opType := mux.Vars(r)["op_type"]
	if canonical, ok := routeOpTypes[opType]; ok {
		opType = canonical
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("read body: %w", err))
		return
	}

	op, err := ingestion.ParseRawOp(ingestion.RawOp{Data: body, Timestamp: time.Now()}, opType)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	reply := make(chan core.OpResult, 1)
	req := core.OpRequest{Op: op, Reply: reply}

	ctx, cancel := context.WithTimeout(r.Context(), submitTimeout)
	defer cancel()

	select {
	case s.deps.Requests <- req:
	case <-ctx.Done():
		writeError(w, http.StatusServiceUnavailable, errors.New("submission queue full"))
		return
	}

	select {
	case res := <-reply:
		if res.Err != nil {
			writeError(w, statusForError(res.Err), res.Err)
			return
		}
		code := http.StatusOK
		if res.Receipt != nil && !res.Receipt.Duplicate {
			code = http.StatusCreated
		}
		writeJSON(w, code, res.Receipt)
	case <-ctx.Done():
		writeError(w, http.StatusGatewayTimeout, errors.New("operation accepted but receipt timed out"))
	}
}

// --- read side ---

func (s *HTTPServer) handleHolderBalances(w http.ResponseWriter, r *http.Request) {
	holder, err := derive.ParseAddress(mux.Vars(r)["holder"])
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	balances, err := s.deps.QueryService.GetHolderBalances(r.Context(), holder)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"balances": balances})
}

func (s *HTTPServer) handleCurrencyBalance(w http.ResponseWriter, r *http.Request) {
	holder, err := derive.ParseAddress(mux.Vars(r)["holder"])
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	balance, err := s.deps.QueryService.GetCurrencyBalance(r.Context(), holder)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, balance)
}

func (s *HTTPServer) handleJournalHistory(w http.ResponseWriter, r *http.Request) {
	holder, err := derive.ParseAddress(mux.Vars(r)["holder"])
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	limit := queryLimit(r, 50)
	after := queryCursor(r)

	entries, err := s.deps.QueryService.GetJournalHistory(r.Context(), holder, limit, after)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"journal": entries})
}

func (s *HTTPServer) handleGetMarketplace(w http.ResponseWriter, r *http.Request) {
	m, err := s.deps.QueryService.GetMarketplace(r.Context(), mux.Vars(r)["name"])
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if m == nil {
		writeError(w, http.StatusNotFound, state.ErrMarketplaceUnknown)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// handleListingByPair re-derives the listing address from the
// marketplace name and asset, so callers never compute it client-side.
func (s *HTTPServer) handleListingByPair(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	asset, err := derive.ParseAddress(vars["asset"])
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	marketplace, _, err := derive.Marketplace(vars["name"])
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	listingAddr, _, err := derive.Listing(marketplace, asset)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	listing, err := s.deps.QueryService.GetListing(r.Context(), listingAddr.String())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if listing == nil {
		writeError(w, http.StatusNotFound, state.ErrListingNotOpen)
		return
	}
	writeJSON(w, http.StatusOK, listing)
}

func (s *HTTPServer) handleOpenListings(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	listings, err := s.deps.QueryService.GetOpenListings(r.Context(), name, queryLimit(r, 100))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"listings": listings})
}

func (s *HTTPServer) handleGetListing(w http.ResponseWriter, r *http.Request) {
	listing, err := s.deps.QueryService.GetListing(r.Context(), mux.Vars(r)["listing"])
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if listing == nil {
		writeError(w, http.StatusNotFound, errors.New("listing not found"))
		return
	}
	writeJSON(w, http.StatusOK, listing)
}

func (s *HTTPServer) handleSales(w http.ResponseWriter, r *http.Request) {
	var marketplace *string
	if m := r.URL.Query().Get("marketplace"); m != "" {
		marketplace = &m
	}
	sales, err := s.deps.QueryService.GetSales(r.Context(), marketplace, queryLimit(r, 50), queryCursor(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"sales": sales})
}

func (s *HTTPServer) handleRecentSales(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"sales": s.deps.SaleHistory.Recent(queryLimit(r, 50)),
	})
}

func (s *HTTPServer) handleRecentSalesByMarketplace(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"sales": s.deps.SaleHistory.ByMarketplace(mux.Vars(r)["name"], queryLimit(r, 50)),
	})
}

func (s *HTTPServer) handleOpHistory(w http.ResponseWriter, r *http.Request) {
	ops, err := s.deps.QueryService.GetOpHistory(r.Context(), queryLimit(r, 50), queryCursor(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"ops": ops})
}

// --- admin ---

func (s *HTTPServer) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.deps.AdminToken == "" || r.Header.Get("X-Admin-Token") != s.deps.AdminToken {
			writeError(w, http.StatusForbidden, errors.New("admin token required"))
			return
		}
		next(w, r)
	}
}

func (s *HTTPServer) handleVerifyIntegrity(w http.ResponseWriter, r *http.Request) {
	report, err := s.deps.QueryService.VerifyIntegrity(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *HTTPServer) handleRebuildProjections(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Projections.RebuildProjections(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "rebuilt"})
}

func (s *HTTPServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	latestSeq, err := s.deps.SnapshotMgr.GetLatestSequence(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	watermark, err := s.deps.Projections.Watermark(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"snapshot_sequence":    latestSeq,
		"projection_watermark": watermark,
		"uptime_seconds":       int64(time.Since(s.deps.StartTime).Seconds()),
		"ready":                s.deps.HealthChecker.IsReady(),
	})
}

// --- plumbing ---

type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.code = code
	sr.ResponseWriter.WriteHeader(code)
}

func (s *HTTPServer) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := r.URL.Path
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		if s.deps.Metrics != nil {
			s.deps.Metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(rec.code)).Inc()
			s.deps.Metrics.HTTPDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
		}
	})
}

// statusForError maps domain errors onto HTTP status codes. Categories
// follow the rejection reason labels used by the ops_rejected metric.
func statusForError(err error) int {
	switch {
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return http.StatusUnprocessableEntity
	case errors.Is(err, state.ErrMarketplaceExists),
		errors.Is(err, state.ErrListingExists),
		errors.Is(err, ledger.ErrAssetExists),
		errors.Is(err, metadata.ErrEditionFinal),
		errors.Is(err, core.ErrMintLocked):
		return http.StatusConflict
	case errors.Is(err, state.ErrMarketplaceUnknown),
		errors.Is(err, state.ErrListingNotOpen),
		errors.Is(err, ledger.ErrUnknownAsset),
		errors.Is(err, metadata.ErrNotRegistered):
		return http.StatusNotFound
	case errors.Is(err, state.ErrNotMaker),
		errors.Is(err, core.ErrNotMintAuthority),
		errors.Is(err, ledger.ErrMissingAuthority),
		errors.Is(err, ledger.ErrAuthorityMismatch):
		return http.StatusForbidden
	case errors.Is(err, event.ErrMissingKey),
		errors.Is(err, event.ErrMissingActor),
		errors.Is(err, event.ErrBadAmount),
		errors.Is(err, event.ErrMissingURI),
		errors.Is(err, event.ErrMissingSeed),
		errors.Is(err, event.ErrMissingAsset),
		errors.Is(err, event.ErrMissingMarket),
		errors.Is(err, state.ErrNameLength),
		errors.Is(err, state.ErrBadPrice),
		errors.Is(err, feemath.ErrFeeOutOfRange),
		errors.Is(err, ledger.ErrNonPositiveAmount),
		errors.Is(err, ledger.ErrDecimalsMismatch),
		errors.Is(err, core.ErrNotUnique),
		errors.Is(err, core.ErrEditionNotFinal),
		errors.Is(err, core.ErrUnknownOp),
		errors.Is(err, derive.ErrSeedTooLong):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrDedupUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func queryLimit(r *http.Request, def int) int {
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 1000 {
			return n
		}
	}
	return def
}

func queryCursor(r *http.Request) *int64 {
	if raw := r.URL.Query().Get("after"); raw != "" {
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return &n
		}
	}
	return nil
}
