package server

import (
	"github.com/Aditya-GrowAI/civicvoice3/auth"
	"github.com/Aditya-GrowAI/civicvoice3/handlers"
	"github.com/Aditya-GrowAI/civicvoice3/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	EndPointRoot          = "/"
	EndPointHealth        = "/health"
	EndPointMetrics       = "/metrics"
	EndPointRequests      = "/requests"
	EndPointUpload        = "/upload"
	EndPointIssues        = "/issues"
	EndPointIssuesGeoJSON = "/issues/geojson"
	EndPointUploads       = "/uploads"
)

// Options carries what the router needs besides the handlers.
type Options struct {
	Verifier       auth.Verifier
	UploadLimiter  *middleware.RateLimiter
	UploadDir      string
	MaxUploadBytes int64
}

// NewRouter wires every route of the service.
func NewRouter(h *handlers.Handlers, opts Options) *gin.Engine {
	router := gin.Default()
	if opts.MaxUploadBytes > 0 {
		router.MaxMultipartMemory = opts.MaxUploadBytes
	}

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "Authorization")
	router.Use(cors.New(corsConfig))
	router.Use(middleware.SecurityHeaders())

	router.GET(EndPointRoot, h.Root)
	router.GET(EndPointHealth, h.Health)
	router.GET(EndPointMetrics, gin.WrapH(promhttp.Handler()))
	router.Static(EndPointUploads, opts.UploadDir)

	listing := router.Group(EndPointIssues)
	listing.Use(gzip.Gzip(gzip.DefaultCompression))
	{
		listing.GET("", h.ListIssues)
		listing.GET("/geojson", h.IssuesGeoJSON)
	}

	protected := router.Group("/")
	protected.Use(middleware.AuthMiddleware(opts.Verifier))
	{
		protected.POST(EndPointRequests, h.CreateRequest)

		upload := protected.Group("/")
		if opts.UploadLimiter != nil {
			upload.Use(middleware.RateLimitMiddleware(opts.UploadLimiter))
		}
		upload.POST(EndPointUpload, h.Upload)
	}

	return router
}
