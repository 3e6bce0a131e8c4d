// Package httpserver exposes the game over JSON HTTP.
//
// Responsibilities:
//   - Router and middleware: request IDs, access logs, panic recovery,
//     timeouts, CORS and Prometheus metrics.
//   - Game endpoints: /set_word, /new_game, /guess, /hint, /graph, /rescore,
//     /examples, /neighbors and /providers. Players are identified by a
//     signed session cookie; no login is needed to play.
//   - Daily endpoints under /daily.
//   - Accounts under /auth plus /stats/me and /rounds/mine.
//
// Rounds and user stats are persisted best effort: a failed write is logged
// and the request still succeeds.
package httpserver

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/semantle/internal/daily"
	"github.com/robalobadob/semantle/internal/game"
	"github.com/robalobadob/semantle/internal/metrics"
	"github.com/robalobadob/semantle/internal/similarity"
	"github.com/robalobadob/semantle/internal/store"
	"github.com/robalobadob/semantle/internal/words"
)

// Options are the HTTP-level settings.
type Options struct {
	JWTSecret      string
	JWTExpiresDays int
	CookieName     string
	ClientOrigin   string
	Production     bool
	RequestTimeout time.Duration
	UnknownWords   game.UnknownPolicy
	DailySalt      string
}

// Deps are the collaborators a Server is built from.
type Deps struct {
	Store    store.Store
	DB       *sql.DB
	Scorers  *similarity.Registry
	Words    *words.List
	Examples words.Examples
	// Now defaults to time.Now.
	Now func() time.Time
}

// Server bundles the router and its dependencies.
type Server struct {
	r        *chi.Mux
	opts     Options
	store    store.Store
	db       *sql.DB
	scorers  *similarity.Registry
	words    *words.List
	examples words.Examples
	daily    *daily.Store
	picker   *daily.Picker
}

// New constructs a Server, installs middleware and registers routes.
func New(opts Options, deps Deps) *Server {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 10 * time.Second
	}
	if opts.UnknownWords == "" {
		opts.UnknownWords = game.UnknownReject
	}
	if opts.CookieName == "" {
		opts.CookieName = "semantle_token"
	}
	if opts.JWTExpiresDays <= 0 {
		opts.JWTExpiresDays = 14
	}
	s := &Server{
		r:        chi.NewRouter(),
		opts:     opts,
		store:    deps.Store,
		db:       deps.DB,
		scorers:  deps.Scorers,
		words:    deps.Words,
		examples: deps.Examples,
		daily:    daily.NewStore(deps.DB),
		picker:   &daily.Picker{Salt: opts.DailySalt, Words: deps.Words, Now: deps.Now},
	}

	s.r.Use(hlog.NewHandler(log.Logger))
	s.r.Use(hlog.RequestIDHandler("req_id", "X-Request-Id"))
	s.r.Use(chimw.RealIP)
	s.r.Use(hlog.AccessHandler(accessLog))
	s.r.Use(chimw.Recoverer)
	s.r.Use(observe)
	s.r.Use(chimw.Timeout(opts.RequestTimeout))
	s.r.Use(jsonContentType)
	s.r.Use(cors(opts.ClientOrigin))

	s.r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"service":   "semantle-go",
			"providers": s.scorers.Names(),
			"endpoints": []string{"POST /set_word", "POST /new_game", "POST /guess", "GET /hint", "GET /examples", "/daily/*", "/auth/*"},
		})
	})
	s.r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	})
	s.r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	s.r.Group(func(r chi.Router) {
		r.Use(s.withOptionalAuth())
		s.mountGame(r)
		s.mountDaily(r)
	})
	s.mountAuthRoutes()

	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not_found", "path": r.URL.Path})
	})
	s.r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", r.Method+" not allowed on "+r.URL.Path)
	})
	return s
}

// ServeHTTP makes Server an http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.r.ServeHTTP(w, r) }

// Router exposes the internal router.
func (s *Server) Router() chi.Router { return s.r }

// Start serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// ----------------------------- middleware ----------------------------------

func accessLog(r *http.Request, status, size int, d time.Duration) {
	hlog.FromRequest(r).Info().
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Int("status", status).
		Int("size", size).
		Dur("duration", d).
		Msg("request")
}

// observe records request counts and latency by route pattern.
func observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		metrics.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// jsonContentType sets a default JSON Content-Type header on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// cors enables credentialed CORS for a single origin.
func cors(origin string) func(http.Handler) http.Handler {
	if origin == "" {
		origin = "http://localhost:5173"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
