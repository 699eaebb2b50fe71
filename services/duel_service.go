// services/duel_service.go
package services

import (
	"errors"
	"log"
	"time"

	"duel-arena-service/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DuelTimeout is how long an accepted duel stays open before the expiry
// sweep records a timeout loss.
const DuelTimeout = 24 * time.Hour

// DuelService exposes the duel subsystem over HTTP and keeps the local
// snapshot reconciled with the remote duel service.
type DuelService struct {
	DB       *gorm.DB
	Remote   RemoteDuelService
	Sessions *SessionManager
	Invites  *InviteRegistry
	Quota    *QuotaGate
	Store    *GormSessionStore
}

func NewDuelService(db *gorm.DB, remote RemoteDuelService, sessions *SessionManager, invites *InviteRegistry, quota *QuotaGate, store *GormSessionStore) *DuelService {
	return &DuelService{
		DB:       db,
		Remote:   remote,
		Sessions: sessions,
		Invites:  invites,
		Quota:    quota,
		Store:    store,
	}
}

func identityFromCtx(c *fiber.Ctx) Identity {
	id := Identity{UserID: c.Locals("user_id").(string)}
	if name, ok := c.Locals("user_name").(string); ok {
		id.UserName = name
	}
	if avatar, ok := c.Locals("user_avatar").(string); ok {
		id.Avatar = avatar
	}
	return id
}

func vipTierFromCtx(c *fiber.Ctx) int {
	if tier, ok := c.Locals("vip_tier").(int); ok {
		return tier
	}
	return 0
}

// pendingFromWire normalizes one overview pending record. The id arrives
// under id or duelId; a missing start or deadline derives from the other via
// the duel window. Records with no id or neither timestamp are unusable.
func pendingFromWire(userID string, p WirePendingDuel) (models.PendingDuel, bool) {
	duelID := p.ID
	if duelID == "" {
		duelID = p.DuelID
	}
	if duelID == "" {
		return models.PendingDuel{}, false
	}
	if p.StartedAt == 0 && p.Deadline == 0 {
		return models.PendingDuel{}, false
	}

	var started, deadline time.Time
	switch {
	case p.StartedAt != 0 && p.Deadline != 0:
		started = time.UnixMilli(p.StartedAt).UTC()
		deadline = time.UnixMilli(p.Deadline).UTC()
	case p.StartedAt != 0:
		started = time.UnixMilli(p.StartedAt).UTC()
		deadline = started.Add(DuelTimeout)
	default:
		deadline = time.UnixMilli(p.Deadline).UTC()
		started = deadline.Add(-DuelTimeout)
	}

	return models.PendingDuel{
		ID:             uuid.NewString(),
		UserID:         userID,
		DuelID:         duelID,
		OpponentName:   p.OpponentName,
		OpponentAvatar: p.OpponentAvatar,
		StartedAt:      started,
		Deadline:       deadline,
	}, true
}

// ApplyOverview reconciles the local snapshot against the authoritative
// remote record: invites are normalized + upserted + pruned, pending duels
// and stats upserted, history merged. Malformed entries are dropped, never
// fatal.
func ApplyOverview(db *gorm.DB, invites *InviteRegistry, identity Identity, ov *DuelOverview) error {
	if ov == nil {
		return nil
	}

	if err := invites.Hydrate(identity.UserID, ov.Invites); err != nil {
		return err
	}

	for _, p := range ov.Pending {
		pending, ok := pendingFromWire(identity.UserID, p)
		if !ok {
			log.Printf("⚠️ [OVERVIEW] Dropping malformed pending duel for user %s: %+v", identity.UserID, p)
			continue
		}
		if err := db.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "duel_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"opponent_name", "opponent_avatar", "started_at", "deadline", "updated_at",
			}),
		}).Create(&pending).Error; err != nil {
			return err
		}
	}

	for _, h := range ov.History {
		duelID := h.ID
		if duelID == "" {
			duelID = h.DuelID
		}
		outcome, ok := NormalizeOutcome(h.Outcome)
		if duelID == "" || !ok {
			log.Printf("⚠️ [OVERVIEW] Dropping malformed history entry for user %s: %+v", identity.UserID, h)
			continue
		}
		reason := h.Reason
		if reason != models.ReasonTimeout {
			reason = models.ReasonScore
		}
		var existing models.DuelHistoryEntry
		err := db.Where("user_id = ? AND duel_id = ?", identity.UserID, duelID).First(&existing).Error
		if err == nil {
			continue
		}
		if err != gorm.ErrRecordNotFound {
			return err
		}
		entry := models.DuelHistoryEntry{
			ID:            uuid.NewString(),
			UserID:        identity.UserID,
			DuelID:        duelID,
			OpponentName:  h.OpponentName,
			Outcome:       outcome,
			Reason:        reason,
			YourScore:     h.YourScore,
			OpponentScore: h.OpponentScore,
			StartedAt:     time.UnixMilli(h.StartedAt).UTC(),
			Deadline:      time.UnixMilli(h.Deadline).UTC(),
			ResolvedAt:    time.UnixMilli(h.ResolvedAt).UTC(),
		}
		if err := db.Create(&entry).Error; err != nil {
			return err
		}
	}
	if err := db.Transaction(func(tx *gorm.DB) error {
		return trimHistory(tx, identity.UserID)
	}); err != nil {
		return err
	}

	stats := models.DuelStats{
		ID:       uuid.NewString(),
		UserID:   identity.UserID,
		UserName: identity.UserName,
		Avatar:   identity.Avatar,
		Wins:     ov.Stats.Wins,
		Losses:   ov.Stats.Losses,
		Draws:    ov.Stats.Draws,
	}
	return db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"user_name", "avatar", "wins", "losses", "draws", "updated_at",
		}),
	}).Create(&stats).Error
}

// snapshot assembles the local state the client renders.
func (s *DuelService) snapshot(userID string) (fiber.Map, error) {
	invites, err := s.Invites.List(userID)
	if err != nil {
		return nil, err
	}

	var pending []models.PendingDuel
	if err := s.DB.Where("user_id = ?", userID).Order("deadline ASC").Find(&pending).Error; err != nil {
		return nil, err
	}

	var history []models.DuelHistoryEntry
	if err := s.DB.Where("user_id = ?", userID).
		Order("resolved_at DESC").
		Limit(models.MaxHistoryEntries).
		Find(&history).Error; err != nil {
		return nil, err
	}

	var stats models.DuelStats
	if err := s.DB.Where("user_id = ?", userID).First(&stats).Error; err != nil && err != gorm.ErrRecordNotFound {
		return nil, err
	}

	usage, err := s.Quota.Usage(userID, models.ResourceDuels)
	if err != nil {
		return nil, err
	}

	snapshot := fiber.Map{
		"invites": invites,
		"pending": pending,
		"history": history,
		"stats":   stats,
		"quota":   usage,
	}
	if view, err := s.Sessions.View(userID); err == nil {
		snapshot["session"] = view
	}
	return snapshot, nil
}

// GetOverview hydrates local state from the remote and returns the merged
// snapshot. Used at startup and after any mutating call.
func (s *DuelService) GetOverview(c *fiber.Ctx) error {
	identity := identityFromCtx(c)

	ov, err := s.Remote.Overview(c.Context(), identity)
	if err != nil {
		// Remote unreachable: serve the persisted snapshot.
		log.Printf("⚠️ [DUEL] Overview fetch failed for user %s, serving local snapshot: %v", identity.UserID, err)
	} else if err := ApplyOverview(s.DB, s.Invites, identity, ov); err != nil {
		log.Printf("❌ [DUEL] Failed to apply overview for user %s: %v", identity.UserID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to reconcile duel overview"})
	}

	snapshot, err := s.snapshot(identity.UserID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load duel snapshot"})
	}
	return c.JSON(snapshot)
}

// Matchmake requests a new duel and opens the local session.
func (s *DuelService) Matchmake(c *fiber.Ctx) error {
	identity := identityFromCtx(c)

	var req struct {
		Opponent          string     `json:"opponent"`
		Difficulty        string     `json:"difficulty"`
		CategoryPool      []Category `json:"category_pool"`
		Rounds            int        `json:"rounds"`
		QuestionsPerRound int        `json:"questions_per_round"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.Difficulty == "" {
		req.Difficulty = "medium"
	}
	if req.Rounds <= 0 {
		req.Rounds = DefaultRounds
	}
	if req.QuestionsPerRound <= 0 {
		req.QuestionsPerRound = DefaultQuestionsPerRound
	}
	pool := NormalizeCategoryPool(req.CategoryPool)
	if len(pool) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Category pool is empty"})
	}

	result, err := s.Remote.Matchmake(c.Context(), MatchRequest{
		Identity:          identity,
		Opponent:          req.Opponent,
		Difficulty:        req.Difficulty,
		CategoryPool:      pool,
		Rounds:            req.Rounds,
		QuestionsPerRound: req.QuestionsPerRound,
	})
	if err != nil {
		log.Printf("❌ [DUEL] Matchmaking failed for user %s: %v", identity.UserID, err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "Matchmaking failed"})
	}

	return s.openFromMatch(c, identity, result, pool, req.QuestionsPerRound)
}

func (s *DuelService) openFromMatch(c *fiber.Ctx, identity Identity, result *MatchResult, pool []Category, questionsPerRound int) error {
	if err := s.Store.UpsertPending(models.PendingDuel{
		UserID:         identity.UserID,
		DuelID:         result.Duel.ID,
		OpponentName:   result.Duel.OpponentName,
		OpponentAvatar: result.Duel.OpponentAvatar,
		StartedAt:      time.UnixMilli(result.Duel.StartedAt).UTC(),
		Deadline:       time.UnixMilli(result.Duel.Deadline).UTC(),
	}); err != nil {
		log.Printf("❌ [DUEL] Failed to record pending duel %s: %v", result.Duel.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to record pending duel"})
	}

	if result.Overview != nil {
		if err := ApplyOverview(s.DB, s.Invites, identity, result.Overview); err != nil {
			log.Printf("⚠️ [DUEL] Failed to apply post-match overview: %v", err)
		}
	}

	view, err := s.Sessions.Open(identity, result.Duel, pool, questionsPerRound)
	if err != nil {
		if errors.Is(err, ErrSessionActive) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "A duel session is already active"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to open duel session"})
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"session": view})
}

// SendInvite challenges another user.
func (s *DuelService) SendInvite(c *fiber.Ctx) error {
	identity := identityFromCtx(c)

	var req struct {
		Opponent string `json:"opponent"`
		Message  string `json:"message"`
	}
	if err := c.BodyParser(&req); err != nil || req.Opponent == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Opponent is required"})
	}

	ov, err := s.Remote.SendInvite(c.Context(), identity, req.Opponent, req.Message)
	if err != nil {
		log.Printf("❌ [DUEL] Failed to send invite for user %s: %v", identity.UserID, err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "Failed to send invite"})
	}
	if err := ApplyOverview(s.DB, s.Invites, identity, ov); err != nil {
		log.Printf("⚠️ [DUEL] Failed to apply overview after invite: %v", err)
	}
	return c.JSON(fiber.Map{"message": "Invite sent"})
}

// AcceptInvite accepts a stored invite and opens the duel session from the
// remote's matchmaking response.
func (s *DuelService) AcceptInvite(c *fiber.Ctx) error {
	identity := identityFromCtx(c)
	inviteID := c.Params("id")

	var req struct {
		Difficulty        string     `json:"difficulty"`
		CategoryPool      []Category `json:"category_pool"`
		Rounds            int        `json:"rounds"`
		QuestionsPerRound int        `json:"questions_per_round"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.Difficulty == "" {
		req.Difficulty = "medium"
	}
	if req.Rounds <= 0 {
		req.Rounds = DefaultRounds
	}
	if req.QuestionsPerRound <= 0 {
		req.QuestionsPerRound = DefaultQuestionsPerRound
	}
	pool := NormalizeCategoryPool(req.CategoryPool)
	if len(pool) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Category pool is empty"})
	}

	result, err := s.Remote.AcceptInvite(c.Context(), inviteID, MatchRequest{
		Identity:          identity,
		Difficulty:        req.Difficulty,
		CategoryPool:      pool,
		Rounds:            req.Rounds,
		QuestionsPerRound: req.QuestionsPerRound,
	})
	if err != nil {
		log.Printf("❌ [DUEL] Failed to accept invite %s: %v", inviteID, err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "Failed to accept invite"})
	}

	if err := s.Invites.Remove(identity.UserID, inviteID); err != nil {
		log.Printf("⚠️ [DUEL] Failed to remove accepted invite %s: %v", inviteID, err)
	}

	return s.openFromMatch(c, identity, result, pool, req.QuestionsPerRound)
}

// DeclineInvite declines and removes a stored invite.
func (s *DuelService) DeclineInvite(c *fiber.Ctx) error {
	identity := identityFromCtx(c)
	inviteID := c.Params("id")

	ov, err := s.Remote.DeclineInvite(c.Context(), inviteID, identity)
	if err != nil {
		log.Printf("❌ [DUEL] Failed to decline invite %s: %v", inviteID, err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "Failed to decline invite"})
	}
	if err := s.Invites.Remove(identity.UserID, inviteID); err != nil {
		log.Printf("⚠️ [DUEL] Failed to remove declined invite %s: %v", inviteID, err)
	}
	if err := ApplyOverview(s.DB, s.Invites, identity, ov); err != nil {
		log.Printf("⚠️ [DUEL] Failed to apply overview after decline: %v", err)
	}
	return c.JSON(fiber.Map{"message": "Invite declined"})
}

// GetSession returns the current ephemeral session.
func (s *DuelService) GetSession(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	view, err := s.Sessions.View(userID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "No active duel session"})
	}
	return c.JSON(fiber.Map{"session": view})
}

// PickCategory resumes the category-selection suspension.
func (s *DuelService) PickCategory(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	var req struct {
		CategoryID string `json:"category_id"`
	}
	if err := c.BodyParser(&req); err != nil || req.CategoryID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "category_id is required"})
	}

	view, err := s.Sessions.PickCategory(c.Context(), userID, req.CategoryID)
	if err != nil {
		return sessionError(c, err)
	}
	return c.JSON(fiber.Map{"session": view})
}

// BeginRound starts the current round.
func (s *DuelService) BeginRound(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	start, err := s.Sessions.BeginRound(c.Context(), userID, vipTierFromCtx(c))
	if err != nil {
		return sessionError(c, err)
	}
	return c.JSON(start)
}

// SubmitRound reports the round result.
func (s *DuelService) SubmitRound(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	var req struct {
		Correct int `json:"correct"`
		Earned  int `json:"earned"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	outcome, err := s.Sessions.SubmitRound(c.Context(), userID, req.Correct, req.Earned)
	if err != nil {
		return sessionError(c, err)
	}
	return c.JSON(outcome)
}

// CancelSession cancels the open session.
func (s *DuelService) CancelSession(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	var req struct {
		Reason string `json:"reason"`
	}
	_ = c.BodyParser(&req)
	reason := req.Reason
	switch reason {
	case CancelUserQuit, CancelSelectionAbandoned:
	default:
		reason = CancelUserQuit
	}

	outcome, err := s.Sessions.Cancel(userID, reason)
	if err != nil {
		return sessionError(c, err)
	}
	return c.JSON(fiber.Map{"cancelled": true, "outcome": outcome})
}

func sessionError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, ErrNoSession):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "No active duel session"})
	case errors.Is(err, ErrSessionActive):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "A duel session is already active"})
	case errors.Is(err, ErrSessionBusy):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "A session operation is already in flight"})
	case errors.Is(err, ErrBadTransition):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Operation not valid in the current session state"})
	case errors.Is(err, ErrUnknownCategory):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Category is not among the round's options"})
	case errors.Is(err, ErrQuotaExhausted):
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"cancelled": true, "reason": CancelLimitReached})
	case errors.Is(err, ErrNoCategory):
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"cancelled": true, "reason": CancelNoCategory})
	default:
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": err.Error()})
	}
}

// GetHistory returns the capped duel history, newest first.
func (s *DuelService) GetHistory(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	var history []models.DuelHistoryEntry
	if err := s.DB.Where("user_id = ?", userID).
		Order("resolved_at DESC").
		Limit(models.MaxHistoryEntries).
		Find(&history).Error; err != nil {
		log.Printf("DB Error fetching duel history: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch history"})
	}
	return c.JSON(history)
}

// GetStats returns the aggregate counters plus quota usage.
func (s *DuelService) GetStats(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	var stats models.DuelStats
	if err := s.DB.Where("user_id = ?", userID).First(&stats).Error; err != nil {
		if err != gorm.ErrRecordNotFound {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
		}
		stats = models.DuelStats{UserID: userID}
	}

	usage, err := s.Quota.Usage(userID, models.ResourceDuels)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load quota"})
	}

	return c.JSON(fiber.Map{
		"stats":     stats,
		"quota":     usage,
		"allowance": s.Quota.Allowance(models.ResourceDuels, vipTierFromCtx(c)),
	})
}

// GetNotifications returns unseen notifications and marks them seen.
func (s *DuelService) GetNotifications(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	var notifications []models.DuelNotification
	if err := s.DB.Where("user_id = ? AND seen = ?", userID, false).
		Order("created_at DESC").
		Find(&notifications).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch notifications"})
	}

	if len(notifications) > 0 {
		if err := s.DB.Model(&models.DuelNotification{}).
			Where("user_id = ? AND seen = ?", userID, false).
			Update("seen", true).Error; err != nil {
			log.Printf("⚠️ [DUEL] Failed to mark notifications seen: %v", err)
		}
	}
	return c.JSON(notifications)
}

// --- Admin handlers ---

// GetRewardConfig returns the active reward table.
func (s *DuelService) GetRewardConfig(c *fiber.Ctx) error {
	return c.JSON(s.Store.RewardConfig())
}

// UpdateRewardConfig replaces the reward table (Admin only).
func (s *DuelService) UpdateRewardConfig(c *fiber.Ctx) error {
	var req struct {
		WinnerCoins *int `json:"winner_coins"`
		WinnerScore *int `json:"winner_score"`
		LoserCoins  *int `json:"loser_coins"`
		LoserScore  *int `json:"loser_score"`
		DrawCoins   *int `json:"draw_coins"`
		DrawScore   *int `json:"draw_score"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	var cfg models.RewardConfig
	if err := s.DB.First(&cfg).Error; err != nil {
		if err != gorm.ErrRecordNotFound {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
		}
		cfg = models.DefaultRewardConfig()
		cfg.ID = uuid.NewString()
	}

	if req.WinnerCoins != nil {
		cfg.WinnerCoins = *req.WinnerCoins
	}
	if req.WinnerScore != nil {
		cfg.WinnerScore = *req.WinnerScore
	}
	if req.LoserCoins != nil {
		cfg.LoserCoins = *req.LoserCoins
	}
	if req.LoserScore != nil {
		cfg.LoserScore = *req.LoserScore
	}
	if req.DrawCoins != nil {
		cfg.DrawCoins = *req.DrawCoins
	}
	if req.DrawScore != nil {
		cfg.DrawScore = *req.DrawScore
	}

	if err := s.DB.Save(&cfg).Error; err != nil {
		log.Printf("DB Error updating reward config: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update reward config"})
	}
	return c.JSON(cfg)
}
