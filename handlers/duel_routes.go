// handlers/duel_routes.go
package handlers

import (
	"duel-arena-service/middleware"
	"duel-arena-service/services"

	"github.com/gofiber/fiber/v2"
)

func SetupDuelRoutes(app *fiber.App, duelService *services.DuelService) {
	// 🔐 All duel routes require user context forwarded by the Gateway
	secured := app.Group("/", middleware.UserContextMiddleware())

	// Overview / snapshot
	secured.Get("/duels/overview", duelService.GetOverview)
	secured.Get("/duels/history", duelService.GetHistory)
	secured.Get("/duels/stats", duelService.GetStats)
	secured.Get("/duels/notifications", duelService.GetNotifications)

	// Matchmaking & invites
	secured.Post("/duels/match", duelService.Matchmake)
	secured.Post("/duels/invites", duelService.SendInvite)
	secured.Post("/duels/invites/:id/accept", duelService.AcceptInvite)
	secured.Post("/duels/invites/:id/decline", duelService.DeclineInvite)

	// Session state machine
	secured.Get("/duels/session", duelService.GetSession)
	secured.Post("/duels/session/category", duelService.PickCategory)
	secured.Post("/duels/session/round/begin", duelService.BeginRound)
	secured.Post("/duels/session/round/submit", duelService.SubmitRound)
	secured.Post("/duels/session/cancel", duelService.CancelSession)

	// Admin: reward table
	admin := app.Group("/admin", middleware.UserContextMiddleware(), middleware.RequireRole("admin"))
	admin.Get("/duels/reward-config", duelService.GetRewardConfig)
	admin.Put("/duels/reward-config", duelService.UpdateRewardConfig)
}
