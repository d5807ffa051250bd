package main

import (
	"log"
	"time"

	"coachassist/internal/ai"
	"coachassist/internal/api"
	"coachassist/internal/cache"
	"coachassist/internal/config"
	"coachassist/internal/database"
	"coachassist/internal/ratelimit"
	"coachassist/internal/store"
)

func main() {
	cfg := config.LoadConfig()
	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET must be set")
	}

	db := database.InitGorm(cfg)
	rdb := database.InitRedis(cfg)

	users := store.NewUserStore(db)
	leads := store.NewLeadStore(db)
	activities := store.NewActivityStore(db)

	quota := ratelimit.NewQuotaTracker(rdb, cfg.AIQuotaPerHour)
	responseCache := cache.NewResponseCache(rdb)
	generator := ai.NewGeminiClient(cfg.GeminiAPIKey, cfg.GeminiModel)
	followUps := ai.NewFollowUpService(leads, activities, generator, quota, responseCache)

	if cfg.GeminiAPIKey == "" {
		log.Println("Warning: GEMINI_API_KEY not set, AI follow-up generation disabled")
	}

	secret := []byte(cfg.JWTSecret)
	r := api.Router(api.RouterDeps{
		Auth:      api.NewAuthHandler(users, secret),
		Leads:     api.NewLeadHandler(leads, activities),
		Activity:  api.NewActivityHandler(leads, activities, followUps),
		AI:        api.NewAIHandler(leads, followUps),
		Dashboard: api.NewDashboardHandler(leads),

		Cache: responseCache,
		Redis: rdb,

		AuthMiddleware:    api.Authenticate(users, secret),
		LoginRateLimit:    ratelimit.Middleware(rdb, "rate_limit:login", 100, 15*time.Minute),
		DashboardCacheTTL: cfg.DashboardCacheTTL,
		ListCacheTTL:      cfg.ListCacheTTL,
	})

	log.Printf("Server starting on port %s", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to run server: %v", err)
	}
}
