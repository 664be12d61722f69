// Package server exposes the agent over HTTP for a browser front-end.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/antoto2021/nexus/internal/agent"
	"github.com/antoto2021/nexus/internal/cache"
	"github.com/antoto2021/nexus/internal/keys"
	"github.com/antoto2021/nexus/internal/provider"
	"github.com/antoto2021/nexus/internal/router"
	"github.com/antoto2021/nexus/internal/store"
	"github.com/antoto2021/nexus/internal/version"
	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

// KeyStore reads and stores the API key.
type KeyStore interface {
	Get() (string, keys.Source, error)
	Set(key string) error
}

// ClientFactory builds a generative client for a key.
type ClientFactory func(ctx context.Context, key string) (provider.Client, error)

// Config configures the listener.
type Config struct {
	Addr string
	// Rate is the number of requests per second allowed per client, Burst
	// the bucket size. A zero Rate disables limiting.
	Rate            float64
	Burst           int
	RequestTimeout  time.Duration
	// ScanTimeout bounds a whole model scan, which probes many models and
	// outlives a single request budget.
	ScanTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// Deps are the collaborators of the server.
type Deps struct {
	Keys          KeyStore
	DB            *store.DB
	Conversations *cache.Conversations
	Version       *version.Checker
	NewClient     ClientFactory
	Agent         agent.Config
	Fallbacks     []string
	Logger        *log.Logger
}

// Server is the HTTP relay.
type Server struct {
	config Config
	deps   Deps
	logger *log.Logger
	engine *gin.Engine

	mu    sync.Mutex
	locks map[string]*convLock
}

type convLock struct {
	sync.Mutex
	refs int
}

// New creates a Server.
func New(config Config, deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = log.Default()
	}
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = 5 * time.Second
	}
	if config.ScanTimeout <= 0 {
		config.ScanTimeout = 5 * time.Minute
	}
	s := &Server{
		config: config,
		deps:   deps,
		logger: deps.Logger.WithPrefix("serve"),
		locks:  map[string]*convLock{},
	}
	s.engine = s.routes()
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.engine }

func (s *Server) routes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(
		requestID(),
		requestLogger(s.logger),
		gin.CustomRecovery(func(c *gin.Context, err any) {
			s.logger.Error("panic", "err", err, "request_id", c.GetString(requestIDKey))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		}),
		cors(),
	)
	if s.config.Rate > 0 {
		r.Use(rateLimit(newLimiterSet(s.config.Rate, s.config.Burst, limiterTTL)))
	}

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	api.POST("/chat", s.handleChat)
	api.GET("/models", s.handleModels)
	api.POST("/scan", s.handleScan)
	api.GET("/conversations", s.handleListConversations)
	api.GET("/conversations/:id", s.handleGetConversation)
	api.DELETE("/conversations/:id", s.handleDeleteConversation)
	api.GET("/version", s.handleVersion)
	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("listening", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
		defer cancel()
		s.logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx) //nolint:contextcheck
	})
	return g.Wait() //nolint:wrapcheck
}

// lock serializes requests on one conversation. The entry is dropped once
// the last holder or waiter releases it.
func (s *Server) lock(id string) func() {
	s.mu.Lock()
	l, ok := s.locks[id]
	if !ok {
		l = &convLock{}
		s.locks[id] = l
	}
	l.refs++
	s.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, id)
		}
		s.mu.Unlock()
	}
}

// router builds a router for the configured key, or returns nil when no key
// is configured.
func (s *Server) router(ctx context.Context, key string) (*router.Router, error) {
	if key == "" {
		var err error
		key, _, err = s.deps.Keys.Get()
		if errors.Is(err, keys.ErrNoKey) {
			return nil, nil
		}
		if err != nil {
			return nil, err //nolint:wrapcheck
		}
	}
	client, err := s.deps.NewClient(ctx, key)
	if err != nil {
		return nil, err
	}
	return router.New(client, s.deps.Fallbacks, s.deps.Logger), nil
}
