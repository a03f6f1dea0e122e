// router/router.go

package router

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/arbiterhq/arbiter/controller"
	"github.com/arbiterhq/arbiter/middleware"
)

func SetupRouter(
	controllers *controller.Controllers,
	rateLimitRequests int,
	rateLimitDuration time.Duration,
) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger())
	router.Use(middleware.RateLimiter(rateLimitRequests, rateLimitDuration))

	api := router.Group("/api/v1")

	controllers.Policy.RegisterRoutes(api)
	controllers.Decision.RegisterRoutes(api)
	controllers.Catalog.RegisterRoutes(api)
	controllers.Subject.RegisterRoutes(api)
	controllers.ResourceType.RegisterRoutes(api)

	return router
}
