package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	lru "github.com/hashicorp/golang-lru/v2"

	"simulation_builder/generator"
	"simulation_builder/logger"
	"simulation_builder/publisher"
)

const (
	headerPreferredProvider = "X-Preferred-Provider"
	headerUserID            = "X-User-ID"
)

type Server struct {
	agent          *generator.Agent
	pub            *publisher.Publisher
	store          *sessionStore
	defaultBackend generator.Backend
	log            *logger.Logger
}

// sessionStore keeps live refinement sessions. Least recently used sessions are
// evicted once the cache is full; an evicted session is simply discarded.
type sessionStore struct {
	cache *lru.Cache[string, *generator.Session]
}

func newStore(size int) (*sessionStore, error) {
	cache, err := lru.New[string, *generator.Session](size)
	if err != nil {
		return nil, err
	}
	return &sessionStore{cache: cache}, nil
}

func (s *sessionStore) set(id string, sess *generator.Session) {
	s.cache.Add(id, sess)
}

func (s *sessionStore) get(id string) (*generator.Session, bool) {
	return s.cache.Get(id)
}

func (s *sessionStore) remove(id string) bool {
	return s.cache.Remove(id)
}

// Options configures a Server.
type Options struct {
	DefaultBackend   generator.Backend
	SessionCacheSize int
}

func New(agent *generator.Agent, pub *publisher.Publisher, opts Options, log *logger.Logger) (*Server, error) {
	if agent == nil {
		return nil, errors.New("generator agent required")
	}
	if pub == nil {
		return nil, errors.New("publisher required")
	}
	if log == nil {
		log = logger.Nop()
	}
	if opts.DefaultBackend == "" {
		opts.DefaultBackend = generator.DefaultBackend
	}
	if opts.SessionCacheSize <= 0 {
		opts.SessionCacheSize = 512
	}
	store, err := newStore(opts.SessionCacheSize)
	if err != nil {
		return nil, err
	}
	return &Server{
		agent:          agent,
		pub:            pub,
		store:          store,
		defaultBackend: opts.DefaultBackend,
		log:            log,
	}, nil
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(s.logMiddleware)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))

	r.Route("/api", func(r chi.Router) {
		r.Post("/simulations/generate-prompt", s.handleGeneratePrompt)
		r.Post("/simulations/generate-code", s.handleGenerateCode)
		r.Post("/simulations/chat", s.handleChat)

		r.Post("/sessions", s.handleSessionCreate)
		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Get("/", s.handleSessionGet)
			r.Delete("/", s.handleSessionDelete)
			r.Post("/messages", s.handleSessionMessage)
			r.Post("/publish", s.handleSessionPublish)
		})
	})
	return r
}

func (s *Server) logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", chiMiddleware.GetReqID(r.Context()),
		)
	})
}
