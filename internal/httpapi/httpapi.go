package httpapi

import (
	"bufio"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"stockledger/backend/internal/domain"
	"stockledger/backend/internal/ledger"
	"stockledger/backend/internal/notify"
	"stockledger/backend/internal/orderflow"
	"stockledger/backend/internal/service"
	"stockledger/backend/internal/store"
)

const (
	maxJSONBody   = 1 << 20
	maxUploadBody = 10 << 20
)

type API struct {
	service       *service.Service
	auth          *AuthManager
	hub           *notify.Hub
	allowedOrigin string
	logger        *zap.Logger
	loginLimiter  *attemptLimiter
	csrfSecret    []byte
}

func New(svc *service.Service, auth *AuthManager, hub *notify.Hub, allowedOrigin string, logger *zap.Logger) *API {
	if logger == nil {
		logger = zap.NewNop()
	}
	csrfSecret := make([]byte, 32)
	if _, err := rand.Read(csrfSecret); err != nil {
		csrfSecret = []byte("csrf-fallback-secret-change-me!!")
	}
	return &API{
		service:       svc,
		auth:          auth,
		hub:           hub,
		allowedOrigin: allowedOrigin,
		logger:        logger,
		loginLimiter:  newAttemptLimiter(5, time.Minute),
		csrfSecret:    csrfSecret,
	}
}

// csrfTokenForHour computes an HMAC-SHA256 token for the given hour bucket.
func (a *API) csrfTokenForHour(hourBucket int64) string {
	h := hmac.New(sha256.New, a.csrfSecret)
	fmt.Fprintf(h, "%d", hourBucket)
	return hex.EncodeToString(h.Sum(nil))
}

func (a *API) generateCSRFToken() string {
	return a.csrfTokenForHour(time.Now().UTC().Truncate(time.Hour).Unix())
}

// validateCSRFToken accepts the current or previous hour bucket.
func (a *API) validateCSRFToken(token string) bool {
	if token == "" {
		return false
	}
	current := time.Now().UTC().Truncate(time.Hour).Unix()
	return hmac.Equal([]byte(token), []byte(a.csrfTokenForHour(current))) ||
		hmac.Equal([]byte(token), []byte(a.csrfTokenForHour(current-3600)))
}

type attemptLimiter struct {
	mu      sync.Mutex
	max     int
	window  time.Duration
	entries map[string][]time.Time
}

func newAttemptLimiter(max int, window time.Duration) *attemptLimiter {
	if max < 1 {
		max = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &attemptLimiter{max: max, window: window, entries: make(map[string][]time.Time)}
}

func (l *attemptLimiter) Allow(key string) bool {
	if l == nil {
		return true
	}
	now := time.Now()
	cutoff := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	history := l.entries[key]
	kept := make([]time.Time, 0, len(history)+1)
	for _, ts := range history {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	if len(kept) >= l.max {
		l.entries[key] = kept
		return false
	}
	l.entries[key] = append(kept, now)
	return true
}

func clientKey(r *http.Request) string {
	host := strings.TrimSpace(r.RemoteAddr)
	if host == "" {
		return "unknown"
	}
	if addr, err := netip.ParseAddrPort(host); err == nil {
		return addr.Addr().String()
	}
	if idx := strings.LastIndex(host, ":"); idx > 0 {
		return host[:idx]
	}
	return host
}

var (
	allRoles       = []string{domain.RoleInventory, domain.RoleMarketing, domain.RoleAdmin}
	inventoryRoles = []string{domain.RoleInventory, domain.RoleAdmin}
	marketingRoles = []string{domain.RoleMarketing, domain.RoleAdmin}
	adminOnly      = []string{domain.RoleAdmin}
)

func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", a.handleHealth)
	mux.HandleFunc("/ledger/{token}", a.handleLedger)
	mux.HandleFunc("/api/v1/auth/login", a.handleLogin)
	mux.HandleFunc("/api/v1/auth/csrf-token", a.handleCSRFToken)
	mux.HandleFunc("/api/v1/auth/me", a.requireAuth(a.handleProfile, allRoles...))
	mux.HandleFunc("/api/v1/auth/ledger-token", a.requireAuth(a.handleRotateLedgerToken, allRoles...))

	mux.HandleFunc("/api/v1/products", a.requireAuth(a.handleProducts, allRoles...))
	mux.HandleFunc("/api/v1/products/search", a.requireAuth(a.handleProductSearch, allRoles...))
	mux.HandleFunc("/api/v1/products/{sku}", a.requireAuth(a.handleProductDetails, allRoles...))
	mux.HandleFunc("/api/v1/products/{sku}/discount", a.requireAuth(a.handleProductDiscount, adminOnly...))

	mux.HandleFunc("/api/v1/stock", a.requireAuth(a.handleStock, inventoryRoles...))
	mux.HandleFunc("/api/v1/stock/upload", a.requireAuth(a.handleStockUpload, inventoryRoles...))

	mux.HandleFunc("/api/v1/bills", a.requireAuth(a.handleBills, allRoles...))
	mux.HandleFunc("/api/v1/bills/upload", a.requireAuth(a.handleBillUpload, allRoles...))
	mux.HandleFunc("/api/v1/bills/{id}", a.requireAuth(a.handleBill, allRoles...))
	mux.HandleFunc("/api/v1/bills/{id}/print", a.requireAuth(a.handleBillPrint, allRoles...))
	mux.HandleFunc("/api/v1/sales/summary", a.requireAuth(a.handleSalesSummary, allRoles...))
	mux.HandleFunc("/api/v1/sales/export", a.requireAuth(a.handleSalesExport, allRoles...))

	mux.HandleFunc("/api/v1/orders", a.requireAuth(a.handleOrders, inventoryRoles...))
	mux.HandleFunc("/api/v1/orders/upload", a.requireAuth(a.handleOrderUpload, inventoryRoles...))
	mux.HandleFunc("/api/v1/orders/{id}", a.requireAuth(a.handleOrder, inventoryRoles...))
	mux.HandleFunc("/api/v1/orders/{id}/{event}", a.requireAuth(a.handleOrderTransition, inventoryRoles...))

	mux.HandleFunc("/api/v1/notifications", a.requireAuth(a.handleNotifications, allRoles...))
	mux.HandleFunc("/api/v1/notifications/stream", a.handleNotificationStream)
	mux.HandleFunc("/api/v1/notifications/read-all", a.requireAuth(a.handleMarkAllRead, allRoles...))
	mux.HandleFunc("/api/v1/notifications/admin", a.requireAuth(a.handleAdminNotification, adminOnly...))
	mux.HandleFunc("/api/v1/notifications/{id}", a.requireAuth(a.handleNotification, allRoles...))
	mux.HandleFunc("/api/v1/notifications/{id}/read", a.requireAuth(a.handleMarkRead, allRoles...))

	mux.HandleFunc("/api/v1/trends", a.requireAuth(a.handleTrendDashboard, marketingRoles...))
	mux.HandleFunc("/api/v1/trends/refresh", a.requireAuth(a.handleTrendRefresh, marketingRoles...))
	mux.HandleFunc("/api/v1/recommendations", a.requireAuth(a.handleRecommendations, marketingRoles...))
	mux.HandleFunc("/api/v1/recommendations/{sku}", a.requireAuth(a.handleRecommendation, marketingRoles...))
	mux.HandleFunc("/api/v1/recommendations/{sku}/{action}", a.requireAuth(a.handleRecommendationAction, marketingRoles...))

	mux.HandleFunc("/api/v1/dashboard/inventory", a.requireAuth(a.handleInventoryDashboard, inventoryRoles...))
	mux.HandleFunc("/api/v1/dashboard/admin", a.requireAuth(a.handleAdminDashboard, adminOnly...))
	mux.HandleFunc("/api/v1/maintenance/run", a.requireAuth(a.handleMaintenance, adminOnly...))
	mux.HandleFunc("/api/v1/stores", a.requireAuth(a.handleStores, allRoles...))
	mux.HandleFunc("/api/v1/stores/{id}", a.requireAuth(a.handleStore, allRoles...))
	mux.HandleFunc("/api/v1/users", a.requireAuth(a.handleUsers, adminOnly...))
	mux.HandleFunc("/api/v1/users/{username}", a.requireAuth(a.handleUser, adminOnly...))
	mux.HandleFunc("/api/v1/audit-logs", a.requireAuth(a.handleAuditLogs, adminOnly...))

	return a.withMiddleware(mux)
}

func (a *API) requireAuth(next http.HandlerFunc, roles ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authorization := strings.TrimSpace(r.Header.Get("Authorization"))
		if !strings.HasPrefix(strings.ToLower(authorization), "bearer ") {
			writeError(w, http.StatusUnauthorized, errors.New("missing bearer token"))
			return
		}

		actor, err := a.auth.Authenticate(r.Context(), strings.TrimSpace(authorization[len("Bearer "):]))
		if err != nil {
			a.authFailed(w, err)
			return
		}
		if len(roles) > 0 && !isRoleAllowed(actor.Role, roles) {
			writeError(w, http.StatusForbidden, errors.New("forbidden role"))
			return
		}

		next(w, r.WithContext(service.WithActor(r.Context(), actor)))
	}
}

// authFailed answers 401 for token and account problems and 500 when the
// user lookup itself broke.
func (a *API) authFailed(w http.ResponseWriter, err error) {
	if !errors.Is(err, errUserLookup) {
		writeError(w, http.StatusUnauthorized, err)
		return
	}
	a.logger.Error("authenticate request", zap.Error(err))
	writeError(w, http.StatusInternalServerError, errors.New("internal server error"))
}

func isRoleAllowed(role string, allowed []string) bool {
	for _, allow := range allowed {
		if role == allow {
			return true
		}
	}
	return false
}

// csrfExemptPaths are called before a client could have fetched a token.
var csrfExemptPaths = []string{
	"/api/v1/auth/login",
}

// checkCSRF enforces the X-CSRF-Token header on state-changing methods.
func (a *API) checkCSRF(w http.ResponseWriter, r *http.Request) bool {
	switch r.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
	default:
		return true
	}
	for _, exempt := range csrfExemptPaths {
		if r.URL.Path == exempt {
			return true
		}
	}
	if !a.validateCSRFToken(strings.TrimSpace(r.Header.Get("X-CSRF-Token"))) {
		writeError(w, http.StatusForbidden, errors.New("missing or invalid CSRF token"))
		return false
	}
	return true
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := s.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	s.status = http.StatusSwitchingProtocols
	return hj.Hijack()
}

func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}

func (a *API) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Cross-Origin-Opener-Policy", "same-origin")
		w.Header().Set("Access-Control-Allow-Origin", a.allowedOrigin)
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-CSRF-Token")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,PATCH,DELETE,OPTIONS")
		w.Header().Set("Vary", "Origin")

		switch r.Method {
		case http.MethodPost, http.MethodPatch, http.MethodPut:
			limit := int64(maxJSONBody)
			if strings.HasPrefix(strings.ToLower(r.Header.Get("Content-Type")), "multipart/") {
				limit = maxUploadBody
			}
			r.Body = http.MaxBytesReader(w, r.Body, limit)
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		if !a.checkCSRF(w, r) {
			return
		}

		startedAt := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		a.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(startedAt)),
		)
	})
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrForbidden), errors.Is(err, orderflow.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, store.ErrInvalidInput),
		errors.Is(err, orderflow.ErrInvalidQuantity),
		errors.Is(err, orderflow.ErrUnknownEvent),
		errors.Is(err, ledger.ErrInvalidQuantity):
		return http.StatusBadRequest
	case errors.Is(err, ledger.ErrInsufficientStock),
		errors.Is(err, orderflow.ErrInvalidTransition),
		errors.Is(err, store.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (a *API) fail(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= 500 {
		a.logger.Error("request failed", zap.Int("status", status), zap.Error(err))
	}
	writeError(w, status, err)
}

func decodeJSON(r *http.Request, dest any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dest)
}

func parsePositiveLimit(raw string, fallback int, max int) int {
	limit := fallback
	if trimmed := strings.TrimSpace(raw); trimmed != "" {
		if parsed, err := strconv.Atoi(trimmed); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if max > 0 && limit > max {
		return max
	}
	return limit
}

func writeMethodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
}

func writeError(w http.ResponseWriter, status int, err error) {
	// 5xx bodies never carry internal details.
	msg := err.Error()
	if status >= 500 {
		msg = "internal server error"
	}
	writeJSON(w, status, map[string]any{
		"error": msg,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
