package mirror

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	lderrors "github.com/rileyhilliard/labdash/internal/errors"
	"github.com/rileyhilliard/labdash/internal/logger"
	"github.com/rileyhilliard/labdash/internal/telemetry"
)

// DefaultPushInterval is how often websocket clients receive fresh series.
const DefaultPushInterval = 5 * time.Second

// Options configures a Server.
type Options struct {
	PushInterval time.Duration
	Logger       logger.Logger
}

// Server is the read-only mirror. Create it with New, then either mount
// Handler in your own server or call Start.
type Server struct {
	monitors []*telemetry.Monitor
	push     time.Duration
	log      logger.Logger
	engine   *gin.Engine
	upgrader websocket.Upgrader

	mu       sync.Mutex
	http     *http.Server
	closing  bool
	done     chan struct{}
	streams  sync.WaitGroup
	stopOnce sync.Once
}

// New builds the mirror's routes over monitors.
func New(monitors []*telemetry.Monitor, opts Options) *Server {
	if opts.PushInterval <= 0 {
		opts.PushInterval = DefaultPushInterval
	}
	if opts.Logger == nil {
		opts.Logger = logger.Noop()
	}

	gin.SetMode(gin.ReleaseMode)
	s := &Server{
		monitors: monitors,
		push:     opts.PushInterval,
		log:      opts.Logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// Read-only data; any page may subscribe.
				return true
			},
		},
		done: make(chan struct{}),
	}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(s.log))
	s.registerRoutes(r)
	s.engine = r
	return s
}

// Handler returns the mirror's http.Handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start listens on addr and serves in the background. It returns the bound
// address, which differs from addr when addr uses port 0.
func (s *Server) Start(addr string) (net.Addr, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, lderrors.WrapWithCode(err, lderrors.ErrBind,
			"Cannot start the mirror on "+addr,
			"Pick a free address with mirror.addr, or disable the mirror")
	}

	srv := &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.mu.Lock()
	s.http = srv
	s.mu.Unlock()

	go func() {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.log.Error("mirror stopped: %v", err)
		}
	}()
	s.log.Info("mirror listening on %s", ln.Addr())
	return ln.Addr(), nil
}

// Shutdown stops accepting requests, ends every websocket stream and waits
// for them, bounded by ctx. Safe to call more than once.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.stopOnce.Do(func() {
		s.mu.Lock()
		s.closing = true
		srv := s.http
		s.mu.Unlock()
		close(s.done)

		if srv != nil {
			err = srv.Shutdown(ctx)
		}

		waited := make(chan struct{})
		go func() {
			s.streams.Wait()
			close(waited)
		}()
		select {
		case <-waited:
		case <-ctx.Done():
			if err == nil {
				err = ctx.Err()
			}
		}
		s.log.Info("mirror stopped")
	})
	return err
}

// beginStream registers a stream with Shutdown's wait group, or reports
// false once shutdown has started.
func (s *Server) beginStream() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing {
		return false
	}
	s.streams.Add(1)
	return true
}

func (s *Server) registerRoutes(r *gin.Engine) {
	r.GET("/healthz", s.handleHealth)
	r.GET("/ws", s.handleStream)

	api := r.Group("/api")
	{
		api.GET("/sources", s.handleSources)
		api.GET("/sources/:panel/:kind", s.handleSource)
	}
}

func (s *Server) monitor(name string) (*telemetry.Monitor, bool) {
	for _, m := range s.monitors {
		if m.Name == name {
			return m, true
		}
	}
	return nil, false
}

func (s *Server) allSeries() []SeriesView {
	out := make([]SeriesView, len(s.monitors))
	for i, m := range s.monitors {
		out[i] = seriesView(m)
	}
	return out
}

// requestLogger logs each request at debug level through log, since gin's
// own logger writes to stdout, which the dashboard owns.
func requestLogger(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug("%s %s -> %d (%s)", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}
