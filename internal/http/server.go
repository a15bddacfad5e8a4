package httpserver

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/Clark-Hu/movie-diary/internal/auth"
	"github.com/Clark-Hu/movie-diary/internal/config"
	"github.com/Clark-Hu/movie-diary/internal/repository"
	"github.com/Clark-Hu/movie-diary/internal/store"
	"github.com/Clark-Hu/movie-diary/internal/tmdb"
)

// Server wires HTTP routing, middleware, and handlers.
type Server struct {
	cfg     config.Config
	store   *store.Store
	repo    *repository.Repository
	catalog tmdb.Client
	issuer  *auth.Issuer
	logger  *logrus.Logger
	router  chi.Router
	httpSrv *http.Server

	limitMu  sync.Mutex
	limiters map[string]*rate.Limiter
}

// New constructs the HTTP server with base middleware and routes.
func New(cfg config.Config, st *store.Store, repo *repository.Repository, catalog tmdb.Client, issuer *auth.Issuer, logger *logrus.Logger) *Server {
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{Logger: logger, NoColor: true}))
	r.Use(middleware.Recoverer)
	r.Use(middleware.StripSlashes)

	s := &Server{
		cfg:      cfg,
		store:    st,
		repo:     repo,
		catalog:  catalog,
		issuer:   issuer,
		logger:   logger,
		router:   r,
		limiters: make(map[string]*rate.Limiter),
	}
	s.registerRoutes()
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) registerRoutes() {
	s.router.Get("/healthz", s.handleHealthz)
	s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.respondDetail(w, http.StatusNotFound, msgNotFound)
	})
	s.router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		s.respondDetail(w, http.StatusMethodNotAllowed, "Method \""+r.Method+"\" not allowed.")
	})

	s.router.Route("/api", func(r chi.Router) {
		r.Post("/register", s.handleRegister)
		r.Post("/login", s.handleLogin)
		r.Post("/token/refresh", s.handleRefresh)

		r.Group(func(r chi.Router) {
			r.Use(s.requireUser)
			r.Get("/user", s.handleCurrentUser)
			r.Route("/movies", func(r chi.Router) {
				r.Get("/", s.handleListMovies)
				r.Post("/", s.handleCreateMovie)
				r.With(s.throttleCatalog).Get("/search_tmdb", s.handleSearchCatalog)
				r.With(s.throttleCatalog).Get("/fetch_tmdb_details", s.handleFetchCatalogDetails)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", s.handleGetMovie)
					r.Put("/", s.handleUpdateMovie)
					r.Patch("/", s.handleUpdateMovie)
					r.Delete("/", s.handleDeleteMovie)
				})
			})
		})
	})
}

// requireUser rejects requests without a valid access token and stores the user id in the context.
func (s *Server) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			s.respondDetail(w, http.StatusUnauthorized, msgNotAuthenticated)
			return
		}
		const prefix = "Bearer "
		if !strings.HasPrefix(header, prefix) {
			s.respondDetail(w, http.StatusUnauthorized, msgInvalidToken)
			return
		}
		userID, err := s.issuer.Verify(strings.TrimSpace(strings.TrimPrefix(header, prefix)), auth.AccessToken)
		if err != nil {
			s.respondDetail(w, http.StatusUnauthorized, msgInvalidToken)
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.WithUserID(r.Context(), userID)))
	})
}

// throttleCatalog applies a per-user token bucket to the catalog endpoints.
func (s *Server) throttleCatalog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, _ := auth.UserID(r.Context())
		if !s.limiter(userID).Allow() {
			w.Header().Set("Retry-After", "1")
			s.respondDetail(w, http.StatusTooManyRequests, msgThrottled)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) limiter(key string) *rate.Limiter {
	s.limitMu.Lock()
	defer s.limitMu.Unlock()
	l, ok := s.limiters[key]
	if !ok {
		limit := rate.Limit(s.cfg.CatalogRateLimitRPS)
		if s.cfg.CatalogRateLimitRPS <= 0 {
			limit = rate.Inf
		}
		l = rate.NewLimiter(limit, s.cfg.CatalogRateLimitBurst)
		s.limiters[key] = l
	}
	return l
}

func currentUser(r *http.Request) string {
	id, _ := auth.UserID(r.Context())
	return id
}

// Start boots the HTTP server asynchronously.
func (s *Server) Start(ctx context.Context) error {
	s.httpSrv = &http.Server{
		Addr:         ":" + s.cfg.Port,
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.cfg.ReadTimeoutSecs) * time.Second,
		WriteTimeout: time.Duration(s.cfg.WriteTimeoutSecs) * time.Second,
		IdleTimeout:  time.Duration(s.cfg.IdleTimeoutSecs) * time.Second,
	}
	s.logger.WithField("addr", s.httpSrv.Addr).Info("http: listening")

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.httpSrv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.store.HealthCheck(ctx); err != nil {
		s.logger.WithError(err).Warn("health check failed")
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
