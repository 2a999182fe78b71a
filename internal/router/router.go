// Package router wires the middleware stack and routes for the
// screening API.
package router

import (
	"net/http"
	"time"

	ratelimit "github.com/JGLTechnologies/gin-rate-limit"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/unrolled/secure"
	"go.uber.org/zap"

	"github.com/Kothamrita/GlauCat/internal/config"
	"github.com/Kothamrita/GlauCat/internal/engine/contrast"
	"github.com/Kothamrita/GlauCat/internal/handlers"
	"github.com/Kothamrita/GlauCat/internal/repository"
	"github.com/Kothamrita/GlauCat/internal/session"
)

func keyFunc(c *gin.Context) string {
	return c.ClientIP()
}

func errorHandler(c *gin.Context, info ratelimit.Info) {
	c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests. Try again later."})
}

// Setup builds the gin engine with the full middleware stack and all
// routes mounted.
func Setup(log *zap.Logger, liveSessions *session.Manager, pool *contrast.Pool) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLogger(log))

	store := cookie.NewStore([]byte(config.Conf.Server.SessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		HttpOnly: true,
		Secure:   false, // Set to true in production
		SameSite: http.SameSiteLaxMode,
		MaxAge:   86400 * 7,
	})
	router.Use(sessions.Sessions("glaucat_session", store))

	router.Use(CSRFProtection())
	router.Use(UserLoaderMiddleware(log))

	secureMiddleware := secure.New(secure.Options{
		FrameDeny:          true,
		ContentTypeNosniff: true,
		BrowserXssFilter:   true,
	})
	router.Use(func(c *gin.Context) {
		if err := secureMiddleware.Process(c.Writer, c.Request); err != nil {
			c.Abort()
			return
		}
	})

	router.Static("/assets", "./assets")

	scores := repository.NewScoreStore()
	authHandler := handlers.NewAuthHandler(log)
	fieldHandler := handlers.NewFieldHandler(log, liveSessions, scores)
	contrastHandler := handlers.NewContrastHandler(log, liveSessions, scores, pool)
	gazeHandler := handlers.NewGazeHandler(log, liveSessions, scores)
	resultsHandler := handlers.NewResultsHandler(log)
	chartsHandler := handlers.NewChartsHandler(log)

	rateLimitStore := ratelimit.InMemoryStore(&ratelimit.InMemoryOptions{
		Rate:  time.Minute,
		Limit: 5,
	})
	limiter := ratelimit.RateLimiter(rateLimitStore, &ratelimit.Options{
		ErrorHandler: errorHandler,
		KeyFunc:      keyFunc,
	})

	api := router.Group("/api")
	{
		api.GET("/csrf", CSRFToken)
		api.POST("/register", limiter, authHandler.Register)
		api.POST("/login", limiter, authHandler.Login)
		api.POST("/logout", authHandler.Logout)
	}

	authorized := api.Group("/")
	authorized.Use(AuthRequired())
	{
		assessment := authorized.Group("/assessment")
		{
			assessment.GET("/field/ws", fieldHandler.Serve)
			assessment.POST("/contrast/start", contrastHandler.Start)
			assessment.POST("/contrast/answer", contrastHandler.Answer)
			assessment.POST("/contrast/abort", contrastHandler.Abort)
			assessment.GET("/gaze/ws", gazeHandler.Serve)
		}

		results := authorized.Group("/results")
		{
			results.GET("/recent", resultsHandler.Recent)
			results.GET("/latest", resultsHandler.Latest)
			results.GET("/timeline", chartsHandler.Timeline)
		}
	}

	// Standalone HTML chart, handy for quick inspection without the SPA.
	chartPage := router.Group("/charts")
	chartPage.Use(AuthRequired())
	chartPage.GET("/timeline", chartsHandler.TimelinePage)

	return router
}
