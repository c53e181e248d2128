// Package httpapi serves the upload, download, listing, scan and catalog
// routes over HTTP.
package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"printvault/internal/application"
	"printvault/internal/application/commands"
	"printvault/internal/ports"
)

// formOverhead is added to the multipart limit for field values and part
// headers.
const formOverhead = 1 << 20

// Options are the dependencies of a Server
type Options struct {
	Storage       ports.RemoteStorage
	Catalog       *application.Catalog
	Reconciler    *application.Reconciler
	Authenticator ports.Authenticator // nil disables the auth gate
	Upload        commands.UploadOptions
	// StoredNames is the codec whose compressed names downloads and deletes
	// fall back to.
	StoredNames ports.Compressor
	Metrics     *Metrics
	Logger      *zap.Logger
}

// Server holds the gin engine and the handlers' dependencies
type Server struct {
	opts    Options
	engine  *gin.Engine
	metrics *Metrics
	logger  *zap.Logger
}

func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Metrics == nil {
		opts.Metrics = NewMetrics(nil)
	}
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		opts:    opts,
		engine:  gin.New(),
		metrics: opts.Metrics,
		logger:  opts.Logger,
	}
	s.engine.MaxMultipartMemory = 32 << 20
	s.routes()
	return s
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Metrics returns the server's collectors
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

func (s *Server) routes() {
	r := s.engine
	r.Use(requestID(), requestLogger(s.logger), recovery(), s.metrics.Middleware())

	gate := requireAuth(s.opts.Authenticator)

	r.GET("/health", s.health)
	r.GET("/metrics", s.metrics.handler())

	r.POST("/upload", gate, s.upload)
	r.GET("/download/:allegiance/:faction/:unit/:filename", s.download)
	r.GET("/download-all/:allegiance/:faction/:unit", s.downloadAll)
	r.GET("/files/:allegiance/:faction/:unit", s.listFiles)
	r.DELETE("/files/:allegiance/:faction/:unit/:filename", gate, s.deleteFile)

	r.GET("/scan-folders/:armyId", gate, s.scanArmy)
	r.GET("/scan-all-folders", gate, s.scanAll)

	armies := r.Group("/armies")
	armies.GET("", s.listArmies)
	armies.GET("/:armyId", s.getArmy)
	armies.PUT("/:armyId", gate, s.upsertArmy)
	armies.PUT("/:armyId/units/:unitId", gate, s.upsertUnit)
	armies.DELETE("/:armyId/units/:unitId", gate, s.deleteUnit)
	armies.DELETE("/:armyId/units/:unitId/files/:filename", gate, s.removeFileEntry)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "route not found: " + c.Request.URL.Path, Code: "NOT_FOUND"})
	})
}
