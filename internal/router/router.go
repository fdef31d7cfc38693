// Package router wires handlers and middleware onto the Echo instance.
// Registration is split by audience: public, leader (JWT) and team
// (opaque token); each group applies exactly the middleware its
// audience needs.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/tochtwerk/gelukstocht/internal/config"
	"github.com/tochtwerk/gelukstocht/internal/handler"
	"github.com/tochtwerk/gelukstocht/internal/middleware"
	"github.com/tochtwerk/gelukstocht/internal/repository"
)

// RegisterRoutes registers routes that carry no authentication at all.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers the leader account endpoints. Register, login
// and the refresh-token exchanges live under /v1/auth and need no
// access token; /v1/me requires one.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/logout", a.Logout)

	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))
	auth.Use(middleware.RequireRole(handler.RoleLeader))
	auth.GET("/me", a.Me)
}

// RegisterLeader registers everything a game leader manages with a JWT:
// tours and checkpoints, session lifecycle, scoreboards, checkout and
// the webhook admin surface.
func RegisterLeader(e *echo.Echo, jwtSecret string, t *handler.TourHandler, s *handler.SessionHandler, sb *handler.ScoreboardHandler, co *handler.CheckoutHandler, wh *handler.WebhookHandler) {
	g := e.Group("/v1")
	g.Use(middleware.JWTAuth(jwtSecret))
	g.Use(middleware.RequireRole(handler.RoleLeader))

	g.POST("/tours", t.CreateTour)
	g.GET("/tours", t.ListTours)
	g.GET("/tours/:id", t.GetTour)
	g.POST("/tours/:id/checkpoints", t.AddCheckpoint)
	g.POST("/tours/:id/publish", t.PublishTour)

	g.POST("/sessions", s.CreateSession)
	g.GET("/sessions", s.ListSessions)
	g.GET("/sessions/:id", s.GetSession)
	g.POST("/sessions/:id/:action", s.Action)
	g.POST("/sessions/:id/consent", s.RecordConsent)
	g.GET("/sessions/:id/scoreboard", sb.Scoreboard)
	g.GET("/sessions/:id/insight", sb.Insight)

	g.POST("/checkout/orders", co.CreateOrder)
	g.GET("/checkout/orders/:reference", co.GetOrder)
	g.POST("/checkout/coupons/preview", co.PreviewCoupon)
	g.POST("/coupons", co.CreateCoupon)
	g.DELETE("/coupons/:code", co.DeactivateCoupon)

	g.GET("/webhooks/retryable", wh.ListRetryable)
	g.POST("/webhooks/:id/retry", wh.Retry)
}

// RegisterPlay registers the join flow and the in-game endpoints.
// Joining is open to anyone holding a join code; play routes require
// the team token minted at join time. The hint route additionally
// passes through the Redis rate limiter.
func RegisterPlay(e *echo.Echo, teams *repository.TeamRepo, rlCfg config.RateLimitConfig, rdb *redis.Client, j *handler.JoinHandler, p *handler.PlayHandler, s *handler.SessionHandler) {
	e.POST("/v1/join", j.Join)
	e.GET("/v1/join/:code", s.PreviewByCode)

	g := e.Group("/v1/play")
	g.Use(middleware.TeamAuth(teams))
	g.POST("/checkpoints/:id/unlock", p.Unlock)
	g.POST("/checkpoints/:id/hint", p.Hint, middleware.HintRateLimit(rlCfg, rdb))
	g.POST("/checkpoints/:id/submit", p.Submit)
}

// RegisterWebhooks registers the provider-facing ingest endpoint. It
// authenticates with the HMAC signature instead of a user credential.
func RegisterWebhooks(e *echo.Echo, wh *handler.WebhookHandler) {
	e.POST("/v1/webhooks/payments/:provider", wh.Receive)
}
