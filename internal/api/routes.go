package api

import (
	"net/http"

	"github.com/didip/tollbooth/v7"
	"github.com/gin-gonic/gin"
	"github.com/rs/cors"
)

// SetupRouter creates and configures the Gin router
func SetupRouter(production bool, handler *Handler) *gin.Engine {
	if production {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLogger(handler.log))

	router.GET("/health", handler.HealthCheck)

	v1 := router.Group("/api/v1")
	{
		v1.POST("/listings/extract", handler.ExtractListing)
		v1.GET("/sales", handler.ListSales)
		v1.POST("/matches", handler.MatchTracked)
		v1.GET("/tracked", handler.ListTracked)
		v1.POST("/tracked", handler.TrackListing)
		v1.DELETE("/tracked", handler.UntrackListing)
	}

	return router
}

// NewHTTPHandler wraps the router with per-client rate limiting and CORS for
// the allowed origins. A trailing * in an origin matches any suffix.
// requestsPerSecond <= 0 disables rate limiting.
func NewHTTPHandler(router http.Handler, allowedOrigins []string, requestsPerSecond float64) http.Handler {
	next := router
	if requestsPerSecond > 0 {
		lmt := tollbooth.NewLimiter(requestsPerSecond, nil)
		lmt.SetMessageContentType("application/json; charset=utf-8")
		lmt.SetMessage(`{"error":"too many requests"}`)
		next = tollbooth.LimitHandler(lmt, router)
	}

	c := cors.New(cors.Options{
		AllowOriginFunc: func(origin string) bool {
			return isAllowedOrigin(origin, allowedOrigins)
		},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization", "X-Requested-With"},
		MaxAge:         3600,
	})
	return c.Handler(next)
}
