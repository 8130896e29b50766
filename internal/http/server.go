package http

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"fintrack/internal/auth"
	"fintrack/internal/config"
	"fintrack/internal/log"
	"fintrack/internal/middleware/ratelimit"
	"fintrack/internal/middleware/security"
	"fintrack/internal/middleware/trace"
	"fintrack/internal/services"
	"fintrack/internal/storage"
)

type contextKey string

const (
	userIDKey contextKey = "user_id"
	roleKey   contextKey = "role"
)

// Server is the JSON API. It embeds http.Server so callers drive it with
// ListenAndServe and stop it through Shutdown, which also stops the
// middleware background goroutines.
type Server struct {
	http.Server

	repo         *storage.Repository
	users        *services.UserService
	catalog      *services.CatalogService
	transactions *services.TransactionService
	budgets      *services.BudgetService
	dashboards   *services.DashboardService
	tokens       *auth.TokenIssuer

	limiter *ratelimit.Limiter
	tracer  *trace.Middleware
	logger  *log.Logger

	shutdownOnce sync.Once
}

// Deps carries everything the server needs wired up.
type Deps struct {
	Repo         *storage.Repository
	Users        *services.UserService
	Catalog      *services.CatalogService
	Transactions *services.TransactionService
	Budgets      *services.BudgetService
	Dashboards   *services.DashboardService
	Tokens       *auth.TokenIssuer
	Logger       *log.Logger
}

func NewServer(cfg *config.Config, deps Deps) *Server {
	s := &Server{
		repo:         deps.Repo,
		users:        deps.Users,
		catalog:      deps.Catalog,
		transactions: deps.Transactions,
		budgets:      deps.Budgets,
		dashboards:   deps.Dashboards,
		tokens:       deps.Tokens,
		limiter:      ratelimit.NewLimiter(ratelimit.DefaultConfig()),
		logger:       deps.Logger.WithComponent(log.ComponentHTTP),
	}
	s.tracer = trace.NewMiddleware(clientIP, deps.Logger)

	mux := http.NewServeMux()
	s.routes(mux)

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	handler := log.Middleware(deps.Logger)(mux)
	handler = log.RequestIDMiddleware(func(r *http.Request) string {
		return trace.GetRequestID(r.Context())
	})(handler)
	handler = s.tracer.Middleware(handler)
	handler = s.limiter.Middleware(clientIP)(handler)
	handler = headers.Middleware(handler)

	s.Server = http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("POST /api/v1/auth/register", s.handleRegister)
	mux.HandleFunc("POST /api/v1/auth/login", s.handleLogin)
	mux.Handle("GET /api/v1/me", s.authenticated(s.handleMe))

	mux.Handle("POST /api/v1/categories", s.authenticated(s.handleCreateCategory))
	mux.Handle("GET /api/v1/categories", s.authenticated(s.handleListCategories))
	mux.Handle("GET /api/v1/categories/{id}", s.authenticated(s.handleGetCategory))
	mux.Handle("PATCH /api/v1/categories/{id}", s.authenticated(s.handleUpdateCategory))
	mux.Handle("DELETE /api/v1/categories/{id}", s.authenticated(s.handleDeleteCategory))
	mux.Handle("GET /api/v1/categories/{id}/budgets", s.authenticated(s.handleBudgetHistory))

	mux.Handle("POST /api/v1/expenses", s.authenticated(s.handleCreateExpense))
	mux.Handle("GET /api/v1/expenses", s.authenticated(s.handleListExpenses))
	mux.Handle("GET /api/v1/expenses/{id}", s.authenticated(s.handleGetExpense))
	mux.Handle("PATCH /api/v1/expenses/{id}", s.authenticated(s.handleUpdateExpense))
	mux.Handle("DELETE /api/v1/expenses/{id}", s.authenticated(s.handleDeleteExpense))

	mux.Handle("POST /api/v1/transactions", s.authenticated(s.handleCreateTransaction))
	mux.Handle("GET /api/v1/transactions", s.authenticated(s.handleListTransactions))
	mux.Handle("GET /api/v1/transactions/{id}", s.authenticated(s.handleGetTransaction))
	mux.Handle("PATCH /api/v1/transactions/{id}", s.authenticated(s.handleUpdateTransaction))
	mux.Handle("DELETE /api/v1/transactions/{id}", s.authenticated(s.handleDeleteTransaction))

	mux.Handle("POST /api/v1/budgets", s.authenticated(s.handleCreateBudget))
	mux.Handle("GET /api/v1/budgets/active-month", s.authenticated(s.handleActiveMonth))
	mux.Handle("POST /api/v1/budgets/months/close", s.authenticated(s.handleCloseMonth))
	mux.Handle("POST /api/v1/budgets/months/{month}/open", s.authenticated(s.handleOpenMonth))
	mux.Handle("POST /api/v1/budgets/months/{month}/reopen", s.authenticated(s.handleReopenMonth))
	mux.Handle("PUT /api/v1/budgets/months/{month}", s.authenticated(s.handleAllocate))
	mux.Handle("GET /api/v1/budgets/months/{month}", s.authenticated(s.handleMonthSummary))
	mux.Handle("DELETE /api/v1/budgets/months/{month}", s.authenticated(s.handleDeleteMonth))
	mux.Handle("GET /api/v1/budgets/{id}", s.authenticated(s.handleGetBudget))
	mux.Handle("PATCH /api/v1/budgets/{id}", s.authenticated(s.handleUpdateBudget))
	mux.Handle("DELETE /api/v1/budgets/{id}", s.authenticated(s.handleDeleteBudget))

	mux.Handle("GET /api/v1/dashboard/categories", s.authenticated(s.handleDashboardCategories))
	mux.Handle("GET /api/v1/dashboard/total", s.authenticated(s.handleDashboardTotal))
	mux.Handle("GET /api/v1/dashboard/summary", s.authenticated(s.handleDashboardSummary))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.repo.Ping(ctx); err != nil {
		writeError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// authenticated verifies the bearer token and stamps the user onto the
// request context.
func (s *Server) authenticated(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		userID, role, err := s.tokens.Verify(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, userID)
		ctx = context.WithValue(ctx, roleKey, role)
		next(w, r.WithContext(ctx))
	})
}

func userIDFrom(r *http.Request) int64 {
	id, _ := r.Context().Value(userIDKey).(int64)
	return id
}

// pathID parses the {id} path segment. A second return of false means the
// response was already written.
func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

// clientIP prefers proxy headers over the socket address.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.Index(fwd, ","); i >= 0 {
			fwd = fwd[:i]
		}
		return strings.TrimSpace(fwd)
	}
	if real := r.Header.Get("X-Real-IP"); real != "" {
		return real
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Shutdown stops background goroutines, then drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		s.logger.InfoContext(ctx, "shutting down http server",
			log.FieldOperation, log.OpShutdown,
			"total_requests", s.tracer.TotalRequests())
		err = s.Server.Shutdown(ctx)
	})
	return err
}
