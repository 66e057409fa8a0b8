// internal/web/server.go
package web

import (
	"context"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"infradash/internal/auth"
	"infradash/internal/backup"
	"infradash/internal/config"
	"infradash/internal/database"
	"infradash/internal/metrics"
	"infradash/internal/ports"
)

type Server struct {
	config    *config.Config
	store     *database.Store
	allocator *ports.Allocator
	auth      *auth.Service
	archive   *backup.Archive
	metrics   *metrics.Collector
	hub       *Hub
	router    *gin.Engine
	server    *http.Server
	started   time.Time
}

// Deps are the components the server exposes. Archive may be nil when
// backups are disabled; the backup routes then answer 503. A nil Hub is
// replaced by a fresh one.
type Deps struct {
	Store     *database.Store
	Allocator *ports.Allocator
	Auth      *auth.Service
	Archive   *backup.Archive
	Metrics   *metrics.Collector
	Hub       *Hub
}

func NewServer(cfg *config.Config, deps Deps) *Server {
	if cfg.Logging.Level != "debug" && gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(requestLogger())
	router.Use(gin.Recovery())
	router.Use(gzip.Gzip(gzip.DefaultCompression,
		gzip.WithExcludedPaths([]string{"/ws", cfg.Prometheus.MetricsPath})))
	router.Use(corsMiddleware())

	hub := deps.Hub
	if hub == nil {
		hub = NewHub(nil)
	}

	server := &Server{
		config:    cfg,
		store:     deps.Store,
		allocator: deps.Allocator,
		auth:      deps.Auth,
		archive:   deps.Archive,
		metrics:   deps.Metrics,
		hub:       hub,
		router:    router,
		started:   time.Now(),
	}

	server.setupRoutes()
	return server
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) Hub() *Hub { return s.hub }

func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         s.config.Server.Port,
		Handler:      s.router,
		ReadTimeout:  s.config.Server.ReadTimeout,
		WriteTimeout: s.config.Server.WriteTimeout,
	}

	logrus.WithField("port", s.config.Server.Port).Info("Starting web server")

	if s.metrics != nil {
		go s.metrics.Run(ctx, 30*time.Second, func(err error) {
			logrus.WithError(err).Error("Failed to update system metrics")
		})
	}

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("Failed to start server")
		}
	}()

	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	s.hub.Close()
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) setupRoutes() {
	api := s.router.Group("/api")
	{
		api.GET("/hosts", s.getHosts)
		api.GET("/hosts/:id", s.getHost)
		api.POST("/hosts", s.createHost)
		api.PUT("/hosts/:id", s.updateHost)
		api.DELETE("/hosts/:id", s.deleteHost)

		api.GET("/services", s.getServices)
		api.GET("/services/:id", s.getService)
		api.POST("/services", s.createService)
		api.PUT("/services/:id", s.updateService)
		api.DELETE("/services/:id", s.deleteService)

		api.GET("/ports", s.generatePort)
		api.GET("/ports/generate", s.generatePort)
		api.POST("/ports", s.checkPort)
		api.POST("/ports/check", s.checkPort)
		api.GET("/ports/:hostId", s.getUsedPorts)
		api.GET("/ports/:hostId/used", s.getUsedPorts)

		api.GET("/templates", s.getTemplates)
		api.POST("/templates", s.createTemplate)
		api.DELETE("/templates/:id", s.deleteTemplate)

		api.GET("/categories", s.getCategories)
		api.POST("/categories", s.createCategory)
		api.PUT("/categories/:id", s.updateCategory)
		api.DELETE("/categories/:id", s.deleteCategory)

		api.GET("/auth/setup", s.getSetupStatus)
		api.POST("/auth/setup", s.setup)
		api.POST("/auth/login", s.login)

		api.POST("/upload", s.uploadIcon)
		api.GET("/uploads/:filename", s.serveUpload)

		api.POST("/purge/orphaned-services", s.purgeOrphanedServices)

		api.GET("/backups", s.listBackups)
		api.POST("/backups", s.createBackup)
		api.GET("/backups/stats", s.backupStats)
		api.POST("/backups/:key/restore", s.restoreBackup)

		api.GET("/stats", s.getStats)
		api.GET("/health", s.healthCheck)
		api.GET("/build", s.getBuildInfo)
	}

	s.router.GET("/ws", s.handleWebSocket)

	if s.config.Prometheus.Enabled {
		s.router.GET(s.config.Prometheus.MetricsPath, gin.WrapH(promhttp.Handler()))
	}

	if s.config.Web.ServeStatic {
		s.router.NoRoute(s.serveSPA)
	}
}

// serveSPA serves the built frontend, falling back to index.html for
// client-side routes.
func (s *Server) serveSPA(c *gin.Context) {
	dir := s.config.Web.StaticDir
	if c.Request.Method != http.MethodGet {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		return
	}
	name := filepath.Clean("/" + c.Request.URL.Path)
	path := filepath.Join(dir, name)
	if fileExists(path) {
		c.File(path)
		return
	}
	c.File(filepath.Join(dir, "index.html"))
}

func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now(),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
		"version":   Version,
	})
}

func (s *Server) getStats(c *gin.Context) {
	ctx := c.Request.Context()

	hosts, err := s.store.Hosts().Count(ctx, nil)
	if err != nil {
		s.fail(c, err, "Failed to get stats")
		return
	}
	services, err := s.store.Services().Count(ctx, nil)
	if err != nil {
		s.fail(c, err, "Failed to get stats")
		return
	}
	active, err := s.store.Services().Count(ctx, database.Where{database.Eq("isActive", true)})
	if err != nil {
		s.fail(c, err, "Failed to get stats")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"hosts":          hosts,
		"services":       services,
		"activeServices": active,
		"clients":        s.hub.Len(),
	})
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := logrus.WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": time.Since(start),
			"client":   c.ClientIP(),
		})
		if c.Writer.Status() >= http.StatusInternalServerError {
			entry.Warn("Request failed")
			return
		}
		entry.Debug("Request handled")
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Header("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
