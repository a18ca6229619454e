package app

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/auction-house-server/pkg/metrics"
)

const (
	httpRequestRouteAttributeKey = "http.request.route"

	httpResponseStatusCodeAttributeKey      = "http.response.statusCode"
	httpResponseStatusCodeLevelAttributeKey = "http.response.statusCodeLevel"

	infoLevel    = "info"
	warningLevel = "warning"
	errorLevel   = "error"
)

// NewRouter returns the router applications register their routes with. A
// health check is served at /healthz. Cross origin requests are only allowed
// from allowedOrigins, where "*" allows any origin.
func NewRouter(metricsProvider *newrelic.Application, allowedOrigins []string) *gin.Engine {
	router := gin.New()
	router.Use(
		RecoveryMiddleware(),
		NewRelicMiddleware(metricsProvider),
		LoggingMiddleware(),
	)
	if len(allowedOrigins) > 0 {
		router.Use(CorsMiddleware(allowedOrigins))
	}

	router.GET("/healthz", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	return router
}

// RecoveryMiddleware converts panics in handlers into 500 responses
func RecoveryMiddleware() gin.HandlerFunc {
	log := logrus.StandardLogger().WithField("type", "app/RecoveryMiddleware")

	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.WithFields(logrus.Fields{
					"method": c.Request.Method,
					"path":   c.Request.URL.Path,
					"panic":  r,
				}).Error("handler panicked")

				c.AbortWithStatus(http.StatusInternalServerError)
			}
		}()

		c.Next()
	}
}

// CorsMiddleware answers preflight requests for the API's JSON routes
func CorsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	config := cors.Config{
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{"Origin", "Content-Length", "Content-Type"},
		MaxAge:       time.Hour,
	}

	for _, origin := range allowedOrigins {
		if origin == "*" {
			config.AllowAllOrigins = true
		}
	}
	if !config.AllowAllOrigins {
		config.AllowOrigins = allowedOrigins
	}

	return cors.New(config)
}

// LoggingMiddleware logs every request once it completes
func LoggingMiddleware() gin.HandlerFunc {
	log := logrus.StandardLogger().WithField("type", "app/LoggingMiddleware")

	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		entry := log.WithContext(c.Request.Context()).WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"route":    c.FullPath(),
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": time.Since(start),
		})
		if len(c.Errors) > 0 {
			entry = entry.WithError(c.Errors.Last())
		}

		switch statusCodeLevel(c.Writer.Status()) {
		case errorLevel:
			entry.Warn("request failed")
		default:
			entry.Debug("request served")
		}
	}
}

// NewRelicMiddleware starts a transaction per request and injects the New
// Relic application for custom metrics and events in downstream code
func NewRelicMiddleware(app *newrelic.Application) gin.HandlerFunc {
	if app == nil {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	return func(c *gin.Context) {
		name := c.Request.Method + " " + c.FullPath()
		if len(c.FullPath()) == 0 {
			name = c.Request.Method + " unknown"
		}

		txn := app.StartTransaction(name)
		defer txn.End()

		txn.SetWebRequestHTTP(c.Request)
		txn.AddAttribute(httpRequestRouteAttributeKey, c.FullPath())

		ctx := metrics.NewContext(c.Request.Context(), app)
		ctx = newrelic.NewContext(ctx, txn)
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		status := c.Writer.Status()
		txn.SetWebResponse(nil).WriteHeader(status)
		txn.AddAttribute(httpResponseStatusCodeAttributeKey, status)

		level := statusCodeLevel(status)
		txn.AddAttribute(httpResponseStatusCodeLevelAttributeKey, level)
		if level == errorLevel && len(c.Errors) > 0 {
			txn.NoticeError(c.Errors.Last().Err)
		}
	}
}

func statusCodeLevel(status int) string {
	switch {
	case status >= http.StatusInternalServerError:
		return errorLevel
	case status == http.StatusTooManyRequests, status == http.StatusConflict:
		return warningLevel
	default:
		return infoLevel
	}
}
