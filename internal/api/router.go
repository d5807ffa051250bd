package api

import (
	"net/http"
	"time"

	"coachassist/internal/cache"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// RouterDeps bundles the constructed handlers and shared clients the router
// wires together.
type RouterDeps struct {
	Auth      *AuthHandler
	Leads     *LeadHandler
	Activity  *ActivityHandler
	AI        *AIHandler
	Dashboard *DashboardHandler

	Cache *cache.ResponseCache
	Redis *redis.Client

	AuthMiddleware    gin.HandlerFunc
	LoginRateLimit    gin.HandlerFunc
	DashboardCacheTTL time.Duration
	ListCacheTTL      time.Duration
}

func Router(deps RouterDeps) *gin.Engine {
	r := gin.Default()
	r.Use(CORS())

	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "CoachAssist API Running")
	})

	apiGroup := r.Group("/api")

	authGroup := apiGroup.Group("/auth")
	{
		authGroup.POST("/register", deps.Auth.Register)
		if deps.LoginRateLimit != nil {
			authGroup.POST("/login", deps.LoginRateLimit, deps.Auth.Login)
		} else {
			authGroup.POST("/login", deps.Auth.Login)
		}
		authGroup.GET("/me", deps.AuthMiddleware, deps.Auth.Me)
	}

	leadGroup := apiGroup.Group("/leads", deps.AuthMiddleware)
	{
		leadGroup.POST("", deps.Leads.Create)
		leadGroup.GET("", cache.Cached(deps.Cache, deps.ListCacheTTL, listCacheKey, deps.Leads.ListPayload))
		leadGroup.GET("/:id", deps.Leads.Get)
		leadGroup.PATCH("/:id", deps.Leads.Update)
		leadGroup.DELETE("/:id", deps.Leads.Delete)
	}

	activityGroup := apiGroup.Group("/activities", deps.AuthMiddleware)
	{
		activityGroup.GET("/:id/timeline", deps.Activity.Timeline)
		activityGroup.POST("/:id/activity", deps.Activity.Add)
		activityGroup.POST("/:id/call", deps.Activity.LogCall)
		activityGroup.POST("/:id/whatsapp", deps.Activity.LogWhatsApp)
	}

	apiGroup.GET("/dashboard", deps.AuthMiddleware,
		cache.Cached(deps.Cache, deps.DashboardCacheTTL, dashboardCacheKey, deps.Dashboard.AnalyticsPayload))

	aiGroup := apiGroup.Group("/ai", deps.AuthMiddleware)
	{
		aiGroup.POST("/:id/ai-followup", deps.AI.GenerateFollowUp)
		aiGroup.GET("/:id/ai-content", deps.AI.GetContent)
	}

	return r
}

func dashboardCacheKey(c *gin.Context) string {
	return cache.DashboardKey(currentUser(c).ID, time.Now())
}

func listCacheKey(c *gin.Context) string {
	return cache.GenericKey(c.FullPath(), currentUser(c).ID, c.Request.URL.Query())
}
