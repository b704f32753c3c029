package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/elonfeng/socialstore/internal/scheduler"
	"github.com/elonfeng/socialstore/internal/store"
	"github.com/elonfeng/socialstore/pkg/media"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Collector runs collection passes on demand.
type Collector interface {
	CollectAll(ctx context.Context) []scheduler.Result
	Collect(ctx context.Context, tags, usernames []string) []scheduler.Result
}

// Server provides the HTTP API.
type Server struct {
	store     store.Store
	collector Collector
	port      int
	log       *zap.SugaredLogger
	router    *gin.Engine
}

// New creates a new HTTP server. collector may be nil, in which case the
// collect endpoint is not mounted.
func New(s store.Store, collector Collector, port int, log *zap.SugaredLogger) *Server {
	if port == 0 {
		port = 8080
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(log.Named("http")))

	srv := &Server{
		store:     s,
		collector: collector,
		port:      port,
		log:       log,
		router:    router,
	}
	srv.setupRoutes()
	return srv
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	api := s.router.Group("/api/v1")
	{
		api.GET("/media", s.handleMedia)
		api.POST("/media/:id/deactivate", s.handleSetActive(false))
		api.POST("/media/:id/activate", s.handleSetActive(true))
		api.GET("/sources", s.handleSources)
		if s.collector != nil {
			api.POST("/collect", s.handleCollect)
		}
	}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe starts the HTTP server and shuts it down when ctx ends.
func (s *Server) ListenAndServe(ctx context.Context) error {
	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Infow("listening", "addr", httpSrv.Addr)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleMedia answers filtered queries:
// ?since=&until=&tag=a&tag=b&username=u&count=
func (s *Server) handleMedia(c *gin.Context) {
	q, err := parseQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	items, err := s.store.Query(c.Request.Context(), q)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":  items,
		"count": len(items),
	})
}

func parseQuery(c *gin.Context) (media.Query, error) {
	var q media.Query

	if v := c.Query("since"); v != "" {
		ts, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return q, fmt.Errorf("invalid since %q", v)
		}
		q = q.WithSince(ts)
	}
	if v := c.Query("until"); v != "" {
		ts, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return q, fmt.Errorf("invalid until %q", v)
		}
		q = q.WithUntil(ts)
	}
	if v := c.Query("count"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return q, fmt.Errorf("invalid count %q", v)
		}
		q = q.WithCount(n)
	}
	if tags := c.QueryArray("tag"); len(tags) > 0 {
		q = q.WithTags(tags...)
	}
	if users := c.QueryArray("username"); len(users) > 0 {
		q = q.WithUsernames(users...)
	}
	return q, nil
}

func (s *Server) handleSetActive(active bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid id %q", c.Param("id"))})
			return
		}
		if err := s.store.SetActive(c.Request.Context(), id, active); err != nil {
			s.writeError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func (s *Server) handleSources(c *gin.Context) {
	counts, err := s.store.CountBySource(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}

	type sourceInfo struct {
		Name  string `json:"name"`
		Items int    `json:"items"`
	}

	infos := []sourceInfo{}
	for _, src := range media.AllSourceTypes() {
		infos = append(infos, sourceInfo{Name: string(src), Items: counts[src]})
	}

	c.JSON(http.StatusOK, gin.H{
		"data":  infos,
		"count": len(infos),
	})
}

type collectRequest struct {
	Tags      []string `json:"tags"`
	Usernames []string `json:"usernames"`
}

// handleCollect runs one collection pass, over the request's targets when
// given and the configured ones otherwise.
func (s *Server) handleCollect(c *gin.Context) {
	var req collectRequest
	// Chunked bodies report ContentLength -1; an empty body is a valid request.
	if c.Request.Body != nil && c.Request.Body != http.NoBody {
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	var results []scheduler.Result
	if len(req.Tags) == 0 && len(req.Usernames) == 0 {
		results = s.collector.CollectAll(c.Request.Context())
	} else {
		results = s.collector.Collect(c.Request.Context(), req.Tags, req.Usernames)
	}

	inserted := 0
	for _, r := range results {
		inserted += r.Inserted
	}

	c.JSON(http.StatusOK, gin.H{
		"data":     results,
		"inserted": inserted,
	})
}

func (s *Server) writeError(c *gin.Context, err error) {
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	s.log.Errorw("request failed", "path", c.FullPath(), "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

func requestLogger(log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debugw("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
