// services/duel_session.go
package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"sync"
	"time"

	"duel-arena-service/models"

	"github.com/gosimple/slug"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Session states
type SessionState string

const (
	StateNegotiating    SessionState = "negotiating"
	StateRoundPlaying   SessionState = "round_playing"
	StateRoundSubmitted SessionState = "round_submitted"
	StateFinalizing     SessionState = "finalizing"
	StateFinalized      SessionState = "finalized"
	StateCancelled      SessionState = "cancelled"
)

// Cancellation reasons
const (
	CancelUserQuit           = "user_quit"
	CancelSelectionAbandoned = "selection_abandoned"
	CancelLimitReached       = "limit_reached"
	CancelNoCategory         = "no_category"
)

// Round choosers
const (
	ChooserYou      = "you"
	ChooserOpponent = "opponent"
)

const (
	DefaultRounds            = 2
	DefaultQuestionsPerRound = 10
)

var (
	ErrSessionActive   = errors.New("a duel session is already active")
	ErrNoSession       = errors.New("no active duel session")
	ErrSessionBusy     = errors.New("a session operation is already in flight")
	ErrBadTransition   = errors.New("operation not valid in the current session state")
	ErrUnknownCategory = errors.New("category is not among the round's options")
	ErrQuotaExhausted  = errors.New("daily duel limit reached")
	ErrNoCategory      = errors.New("no categories available")
)

// DuelRound is one round of the session, mutated in place as the category is
// assigned and results come back.
type DuelRound struct {
	Index                   int        `json:"index"`
	Chooser                 string     `json:"chooser"`
	CategoryID              string     `json:"category_id,omitempty"`
	CategoryTitle           string     `json:"category_title,omitempty"`
	CategoryOptions         []Category `json:"category_options,omitempty"`
	Player                  RoundScore `json:"player"`
	Opponent                RoundScore `json:"opponent"`
	TotalQuestions          int        `json:"total_questions"`
	ServerCategoryConfirmed bool       `json:"server_category_confirmed"`
	Submitted               bool       `json:"submitted"`
}

// SessionOutcome resolves the one-shot "how did this duel end" continuation.
// Finished is false for cancellations.
type SessionOutcome struct {
	Finished      bool          `json:"finished"`
	Outcome       string        `json:"outcome,omitempty"`
	Reason        string        `json:"reason,omitempty"`
	YourScore     int           `json:"your_score"`
	OpponentScore int           `json:"opponent_score"`
	Reward        *RewardResult `json:"reward,omitempty"`
}

// DuelSession is the ephemeral, process-local state of the single in-flight
// duel. Never persisted; owned exclusively by the SessionManager.
type DuelSession struct {
	ID                 string
	UserID             string
	UserName           string
	OpponentName       string
	OpponentAvatar     string
	Difficulty         string
	StartedAt          time.Time
	Deadline           time.Time
	Pool               []Category
	Rounds             []*DuelRound
	CurrentRound       int
	TotalYourScore     int
	TotalOpponentScore int
	ConsumedResource   bool
	AwaitingSelection  bool
	SelectionResolved  bool
	Started            bool
	State              SessionState
	Summary            *DuelSummary

	rewardApplied bool
	busy          bool
	resolved      bool
	done          chan SessionOutcome
}

// sessionQuota is the slice of the quota gate the controller needs.
type sessionQuota interface {
	HasRemaining(userID, resource string, vipTier int) (bool, error)
	Consume(userID, resource string, vipTier int) (bool, error)
}

// SessionManager owns at most one open session per user and drives the
// reward engine and quota gate at the correct transition points.
type SessionManager struct {
	mu       sync.Mutex
	sessions map[string]*DuelSession

	remote    RemoteDuelService
	questions QuestionSource
	quota     sessionQuota
	store     SessionStore
	rng       *rand.Rand
	now       func() time.Time
}

func NewSessionManager(remote RemoteDuelService, questions QuestionSource, quota sessionQuota, store SessionStore) *SessionManager {
	return &SessionManager{
		sessions:  make(map[string]*DuelSession),
		remote:    remote,
		questions: questions,
		quota:     quota,
		store:     store,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
		now:       time.Now,
	}
}

// Open creates the session for a matched/accepted duel. Fails without
// touching the existing session when one is already open.
func (m *SessionManager) Open(identity Identity, duel RemoteDuel, pool []Category, questionsPerRound int) (*SessionView, error) {
	pool = NormalizeCategoryPool(pool)
	if questionsPerRound <= 0 {
		questionsPerRound = DefaultQuestionsPerRound
	}

	roundCount := len(duel.Rounds)
	if roundCount == 0 {
		roundCount = DefaultRounds
	}

	rounds := make([]*DuelRound, roundCount)
	for i := 0; i < roundCount; i++ {
		round := &DuelRound{
			Index:          i,
			Chooser:        ChooserOpponent,
			TotalQuestions: questionsPerRound,
		}
		if i%2 == 0 {
			round.Chooser = ChooserYou
			round.CategoryOptions = append([]Category(nil), pool...)
		}
		if i < len(duel.Rounds) {
			if duel.Rounds[i].TotalQuestions > 0 {
				round.TotalQuestions = duel.Rounds[i].TotalQuestions
			}
			if duel.Rounds[i].CategoryID != "" {
				round.CategoryID = duel.Rounds[i].CategoryID
				round.CategoryTitle = duel.Rounds[i].CategoryTitle
				round.ServerCategoryConfirmed = true
			}
		}
		rounds[i] = round
	}

	session := &DuelSession{
		ID:             duel.ID,
		UserID:         identity.UserID,
		UserName:       identity.UserName,
		OpponentName:   duel.OpponentName,
		OpponentAvatar: duel.OpponentAvatar,
		Difficulty:     duel.Difficulty,
		StartedAt:      time.UnixMilli(duel.StartedAt).UTC(),
		Deadline:       time.UnixMilli(duel.Deadline).UTC(),
		Pool:           pool,
		Rounds:         rounds,
		State:          StateNegotiating,
		done:           make(chan SessionOutcome, 1),
	}
	session.AwaitingSelection = rounds[0].Chooser == ChooserYou && !rounds[0].ServerCategoryConfirmed

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.sessions[identity.UserID]; exists {
		return nil, ErrSessionActive
	}
	m.sessions[identity.UserID] = session
	return session.view(), nil
}

// View returns a copy of the current session for display.
func (m *SessionManager) View(userID string) (*SessionView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[userID]
	if !ok {
		return nil, ErrNoSession
	}
	return session.view(), nil
}

// WaitOutcome exposes the one-shot outcome channel. It is resolved exactly
// once, by Finalize or Cancel, and closed afterwards — no caller is ever
// left waiting.
func (m *SessionManager) WaitOutcome(userID string) (<-chan SessionOutcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[userID]
	if !ok {
		return nil, ErrNoSession
	}
	return session.done, nil
}

// ActiveDuelIDs lists the duel ids of currently open sessions. The expiry
// sweep must skip these.
func (m *SessionManager) ActiveDuelIDs() map[string]bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make(map[string]bool, len(m.sessions))
	for _, s := range m.sessions {
		ids[s.ID] = true
	}
	return ids
}

// acquire marks the session busy so no second transition runs concurrently.
func (m *SessionManager) acquire(userID string) (*DuelSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[userID]
	if !ok {
		return nil, ErrNoSession
	}
	if session.busy {
		return nil, ErrSessionBusy
	}
	session.busy = true
	return session, nil
}

// release clears the busy flag and runs the commit under the manager lock.
// Every field view() reads is mutated only inside a release or stage commit,
// so concurrent readers never observe a half-applied transition.
func (m *SessionManager) release(session *DuelSession, commit func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session.busy = false
	if commit != nil {
		commit()
	}
}

// stage applies mutations under the manager lock while the session stays
// busy, for writes that must land before or between remote calls.
func (m *SessionManager) stage(fn func()) {
	m.mu.Lock()
	fn()
	m.mu.Unlock()
}

// PickCategory resumes the "you"-chooser suspension with the caller's pick.
// A remote failure leaves the state untouched so the pick can be retried.
func (m *SessionManager) PickCategory(ctx context.Context, userID, categoryID string) (*SessionView, error) {
	session, err := m.acquire(userID)
	if err != nil {
		return nil, err
	}

	round := session.Rounds[session.CurrentRound]
	if session.State != StateNegotiating || round.Chooser != ChooserYou || !session.AwaitingSelection {
		m.release(session, nil)
		return nil, ErrBadTransition
	}

	var chosen *Category
	for i := range round.CategoryOptions {
		if round.CategoryOptions[i].ID == categoryID {
			chosen = &round.CategoryOptions[i]
			break
		}
	}
	if chosen == nil {
		m.release(session, nil)
		return nil, ErrUnknownCategory
	}

	resp, err := m.assignCategory(ctx, session, round, *chosen)
	if err != nil {
		m.release(session, nil)
		return nil, err
	}

	var view *SessionView
	m.release(session, func() {
		m.commitCategory(session, round, *chosen, resp)
		session.AwaitingSelection = false
		session.SelectionResolved = true
		view = session.view()
	})
	return view, nil
}

func (m *SessionManager) assignCategory(ctx context.Context, session *DuelSession, round *DuelRound, choice Category) (*AssignCategoryResponse, error) {
	if round.ServerCategoryConfirmed {
		return nil, nil
	}
	resp, err := m.remote.AssignCategory(ctx, AssignCategoryRequest{
		DuelID:        session.ID,
		RoundIndex:    round.Index,
		UserID:        session.UserID,
		UserName:      session.UserName,
		CategoryID:    choice.ID,
		CategoryTitle: choice.Title,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to assign category for round %d: %w", round.Index, err)
	}
	return resp, nil
}

func (m *SessionManager) commitCategory(session *DuelSession, round *DuelRound, choice Category, resp *AssignCategoryResponse) {
	round.CategoryID = choice.ID
	round.CategoryTitle = choice.Title
	round.ServerCategoryConfirmed = true
	if resp != nil {
		if resp.Round.CategoryID != "" {
			round.CategoryID = resp.Round.CategoryID
			round.CategoryTitle = resp.Round.CategoryTitle
		}
		if resp.Round.TotalQuestions > 0 {
			round.TotalQuestions = resp.Round.TotalQuestions
		}
	}
}

// RoundStart carries the question set the round begins with.
type RoundStart struct {
	Session   *SessionView `json:"session"`
	Questions []Question   `json:"questions"`
}

// BeginRound negotiates the category when the opponent is the chooser,
// enforces the quota gate and fetches the round's question set. Quota is
// consumed exactly once per session, when its first round actually begins.
func (m *SessionManager) BeginRound(ctx context.Context, userID string, vipTier int) (*RoundStart, error) {
	session, err := m.acquire(userID)
	if err != nil {
		return nil, err
	}

	round := session.Rounds[session.CurrentRound]
	if session.State != StateNegotiating || session.AwaitingSelection {
		m.release(session, nil)
		return nil, ErrBadTransition
	}

	categoryID := round.CategoryID
	totalQuestions := round.TotalQuestions

	// Opponent-chooser rounds negotiate locally, no blocking interaction.
	// The picked category is committed together with the state change below.
	var picked *Category
	var pickedResp *AssignCategoryResponse
	if !round.ServerCategoryConfirmed {
		choice, ok := PickCategoryFor(session.Pool, session.usedCategories(), m.rng)
		if !ok {
			m.release(session, nil)
			m.Cancel(userID, CancelNoCategory)
			return nil, ErrNoCategory
		}
		resp, err := m.assignCategory(ctx, session, round, choice)
		if err != nil {
			m.release(session, nil)
			return nil, err
		}
		picked, pickedResp = &choice, resp
		categoryID = choice.ID
		if resp != nil {
			if resp.Round.CategoryID != "" {
				categoryID = resp.Round.CategoryID
			}
			if resp.Round.TotalQuestions > 0 {
				totalQuestions = resp.Round.TotalQuestions
			}
		}
	}

	remaining, err := m.quota.HasRemaining(userID, models.ResourceDuels, vipTier)
	if err != nil {
		m.release(session, nil)
		return nil, err
	}
	if !remaining {
		m.release(session, nil)
		m.Cancel(userID, CancelLimitReached)
		return nil, ErrQuotaExhausted
	}

	questions, err := m.questions.FetchQuestions(ctx, categoryID, session.Difficulty, totalQuestions)
	if err != nil {
		m.release(session, nil)
		return nil, fmt.Errorf("failed to fetch questions for round %d: %w", round.Index, err)
	}

	consumedNow := false
	if !session.ConsumedResource {
		consumed, err := m.quota.Consume(userID, models.ResourceDuels, vipTier)
		if err != nil {
			m.release(session, nil)
			return nil, err
		}
		if !consumed {
			m.release(session, nil)
			m.Cancel(userID, CancelLimitReached)
			return nil, ErrQuotaExhausted
		}
		consumedNow = true
	}

	var start *RoundStart
	m.release(session, func() {
		if picked != nil {
			m.commitCategory(session, round, *picked, pickedResp)
		}
		if consumedNow {
			session.ConsumedResource = true
		}
		session.Started = true
		session.State = StateRoundPlaying
		start = &RoundStart{Session: session.view(), Questions: questions}
	})
	return start, nil
}

// SubmitOutcome is the result of a round submission.
type SubmitOutcome struct {
	Session *SessionView    `json:"session,omitempty"`
	Status  string          `json:"status"`
	Final   *SessionOutcome `json:"final,omitempty"`
}

// SubmitRound sends the player's result to the remote and merges the
// authoritative response. On failure the state and the player's local
// sub-record hold so an identical retry is possible; the remote is
// idempotent per round index.
func (m *SessionManager) SubmitRound(ctx context.Context, userID string, correct, earned int) (*SubmitOutcome, error) {
	session, err := m.acquire(userID)
	if err != nil {
		return nil, err
	}

	if session.State != StateRoundPlaying && session.State != StateRoundSubmitted {
		m.release(session, nil)
		return nil, ErrBadTransition
	}

	round := session.Rounds[session.CurrentRound]
	if correct < 0 || correct > round.TotalQuestions {
		m.release(session, nil)
		return nil, fmt.Errorf("correct count %d out of range for %d questions", correct, round.TotalQuestions)
	}

	// Retained even when the remote call fails, so a retry resubmits the
	// same data.
	m.stage(func() {
		round.Player = RoundScore{
			Correct: correct,
			Wrong:   round.TotalQuestions - correct,
			Earned:  earned,
		}
		session.State = StateRoundSubmitted
	})

	resp, err := m.remote.SubmitRound(ctx, SubmitRoundRequest{
		DuelID:         session.ID,
		RoundIndex:     round.Index,
		UserID:         session.UserID,
		UserName:       session.UserName,
		CategoryID:     round.CategoryID,
		CategoryTitle:  round.CategoryTitle,
		Correct:        round.Player.Correct,
		Wrong:          round.Player.Wrong,
		Earned:         round.Player.Earned,
		TotalQuestions: round.TotalQuestions,
	})
	if err != nil {
		m.release(session, nil)
		return nil, fmt.Errorf("failed to submit round %d: %w", round.Index, err)
	}

	if resp.Status != RoundStatusNext && resp.Status != RoundStatusFinished {
		m.release(session, nil)
		return nil, fmt.Errorf("duel service returned unknown round status %q", resp.Status)
	}

	// Merge authoritative records from the response.
	merge := func() {
		round.Opponent = resp.Round.Opponent
		if resp.Round.Player != nil {
			round.Player = *resp.Round.Player
		}
		if resp.Round.TotalQuestions > 0 {
			round.TotalQuestions = resp.Round.TotalQuestions
		}
		round.Submitted = true

		if resp.Totals != nil {
			session.TotalYourScore = resp.Totals.You.Earned
			session.TotalOpponentScore = resp.Totals.Opponent.Earned
		} else {
			session.TotalYourScore, session.TotalOpponentScore = session.sumRounds()
		}
	}

	if resp.Status == RoundStatusNext && session.CurrentRound+1 < len(session.Rounds) {
		var outcome *SubmitOutcome
		m.release(session, func() {
			merge()
			session.CurrentRound++
			next := session.Rounds[session.CurrentRound]
			session.State = StateNegotiating
			session.SelectionResolved = false
			session.AwaitingSelection = next.Chooser == ChooserYou && !next.ServerCategoryConfirmed
			outcome = &SubmitOutcome{Session: session.view(), Status: RoundStatusNext}
		})
		return outcome, nil
	}

	if resp.Status == RoundStatusNext {
		// Remote claims more rounds than the session holds; finish on the
		// local record instead of running off the end.
		log.Printf("⚠️ [DUEL] Remote reported 'next' past the last round of duel %s, finalizing", session.ID)
	}

	// The session stays busy through finalization so a concurrent Cancel
	// cannot interleave with the store writes.
	m.stage(func() {
		merge()
		session.Summary = resp.Summary
	})
	return m.finalize(session)
}

// finalize aggregates totals, applies the reward exactly once, records the
// history entry and clears the session. Runs with the session still busy;
// close releases it.
func (m *SessionManager) finalize(session *DuelSession) (*SubmitOutcome, error) {
	m.stage(func() { session.State = StateFinalizing })

	yourTotal, opponentTotal := session.TotalYourScore, session.TotalOpponentScore
	outcome := ""
	rewardPreview := false

	// The remote summary is authoritative whenever present.
	if session.Summary != nil {
		if session.Summary.YourTotal != nil && session.Summary.OpponentTotal != nil {
			yourTotal = *session.Summary.YourTotal
			opponentTotal = *session.Summary.OpponentTotal
		}
		if normalized, ok := NormalizeOutcome(session.Summary.Outcome); ok {
			outcome = normalized
		}
		rewardPreview = session.Summary.RewardApplied
	}
	if outcome == "" {
		switch {
		case yourTotal > opponentTotal:
			outcome = models.OutcomeWin
		case yourTotal < opponentTotal:
			outcome = models.OutcomeLoss
		default:
			outcome = models.OutcomeDraw
		}
	}

	var reward *RewardResult
	if !session.rewardApplied {
		session.rewardApplied = true
		wallet := Wallet{}
		result, err := ApplyReward(outcome, m.store.RewardConfig(), &wallet, RewardOptions{Preview: rewardPreview})
		if err != nil {
			log.Printf("❌ [DUEL] Reward application failed for duel %s: %v", session.ID, err)
		} else {
			reward = &result
			if result.Applied {
				if err := m.store.CreditWallet(session.UserID, result.You.Coins, result.You.Score); err != nil {
					log.Printf("❌ [DUEL] Failed to credit wallet for user %s: %v", session.UserID, err)
				}
			}
		}
	}

	now := m.now().UTC()
	if err := m.store.AppendHistory(models.DuelHistoryEntry{
		UserID:        session.UserID,
		DuelID:        session.ID,
		OpponentName:  session.OpponentName,
		Outcome:       outcome,
		Reason:        models.ReasonScore,
		YourScore:     yourTotal,
		OpponentScore: opponentTotal,
		StartedAt:     session.StartedAt,
		Deadline:      session.Deadline,
		ResolvedAt:    now,
	}); err != nil {
		log.Printf("❌ [DUEL] Failed to append history for duel %s: %v", session.ID, err)
	}
	if err := m.store.RecordOutcome(session.UserID, outcome); err != nil {
		log.Printf("❌ [DUEL] Failed to record outcome for duel %s: %v", session.ID, err)
	}
	if err := m.store.RemovePending(session.UserID, session.ID); err != nil {
		log.Printf("❌ [DUEL] Failed to remove pending duel %s: %v", session.ID, err)
	}

	final := SessionOutcome{
		Finished:      true,
		Outcome:       outcome,
		Reason:        models.ReasonScore,
		YourScore:     yourTotal,
		OpponentScore: opponentTotal,
		Reward:        reward,
	}

	m.close(session, final)
	return &SubmitOutcome{Status: RoundStatusFinished, Final: &final}, nil
}

// Cancel tears the session down from any non-terminal state, removes the
// duel from the pending set and resolves the outcome channel negatively.
// A session mid-transition (including finalization) reports busy instead of
// being torn down underneath the in-flight operation.
func (m *SessionManager) Cancel(userID, reason string) (*SessionOutcome, error) {
	m.mu.Lock()
	session, ok := m.sessions[userID]
	if !ok {
		m.mu.Unlock()
		return nil, ErrNoSession
	}
	if session.busy {
		m.mu.Unlock()
		return nil, ErrSessionBusy
	}
	session.State = StateCancelled
	delete(m.sessions, userID)
	m.mu.Unlock()

	if err := m.store.RemovePending(userID, session.ID); err != nil {
		log.Printf("❌ [DUEL] Failed to remove pending duel %s on cancel: %v", session.ID, err)
	}
	if err := m.store.Notify(userID, "duel_cancelled", cancelMessage(reason, session.OpponentName)); err != nil {
		log.Printf("❌ [DUEL] Failed to store cancel notification: %v", err)
	}

	outcome := SessionOutcome{Finished: false, Reason: reason}
	m.resolve(session, outcome)
	return &outcome, nil
}

// close marks the session finalized, clears busy and deregisters it in one
// critical section, then resolves its continuation.
func (m *SessionManager) close(session *DuelSession, outcome SessionOutcome) {
	m.mu.Lock()
	session.State = StateFinalized
	session.busy = false
	if m.sessions[session.UserID] == session {
		delete(m.sessions, session.UserID)
	}
	m.mu.Unlock()
	m.resolve(session, outcome)
}

// resolve delivers the outcome exactly once and closes the channel so every
// waiter unblocks.
func (m *SessionManager) resolve(session *DuelSession, outcome SessionOutcome) {
	if session.resolved {
		return
	}
	session.resolved = true
	session.done <- outcome
	close(session.done)
}

func cancelMessage(reason, opponent string) string {
	switch reason {
	case CancelUserQuit:
		return fmt.Sprintf("You left the duel against %s.", opponent)
	case CancelSelectionAbandoned:
		return fmt.Sprintf("The duel against %s was abandoned during category selection.", opponent)
	case CancelLimitReached:
		return "Daily duel limit reached. Come back tomorrow!"
	case CancelNoCategory:
		return "The duel could not continue: no categories were available."
	default:
		return fmt.Sprintf("The duel against %s was cancelled.", opponent)
	}
}

func (s *DuelSession) usedCategories() map[string]bool {
	used := make(map[string]bool)
	for _, r := range s.Rounds {
		if r.CategoryID != "" {
			used[r.CategoryID] = true
		}
	}
	return used
}

func (s *DuelSession) sumRounds() (you int, opponent int) {
	for _, r := range s.Rounds {
		you += r.Player.Earned
		opponent += r.Opponent.Earned
	}
	return you, opponent
}

// SessionView is the JSON-facing copy of the session.
type SessionView struct {
	ID                 string       `json:"id"`
	OpponentName       string       `json:"opponent_name"`
	OpponentAvatar     string       `json:"opponent_avatar,omitempty"`
	Difficulty         string       `json:"difficulty"`
	State              SessionState `json:"state"`
	StartedAt          time.Time    `json:"started_at"`
	Deadline           time.Time    `json:"deadline"`
	CurrentRound       int          `json:"current_round"`
	AwaitingSelection  bool         `json:"awaiting_selection"`
	Started            bool         `json:"started"`
	TotalYourScore     int          `json:"total_your_score"`
	TotalOpponentScore int          `json:"total_opponent_score"`
	Rounds             []DuelRound  `json:"rounds"`
}

func (s *DuelSession) view() *SessionView {
	rounds := make([]DuelRound, len(s.Rounds))
	for i, r := range s.Rounds {
		rounds[i] = *r
		rounds[i].CategoryOptions = append([]Category(nil), r.CategoryOptions...)
	}
	return &SessionView{
		ID:                 s.ID,
		OpponentName:       s.OpponentName,
		OpponentAvatar:     s.OpponentAvatar,
		Difficulty:         s.Difficulty,
		State:              s.State,
		StartedAt:          s.StartedAt,
		Deadline:           s.Deadline,
		CurrentRound:       s.CurrentRound,
		AwaitingSelection:  s.AwaitingSelection,
		Started:            s.Started,
		TotalYourScore:     s.TotalYourScore,
		TotalOpponentScore: s.TotalOpponentScore,
		Rounds:             rounds,
	}
}

// PickCategoryFor auto-picks a category for the opponent's round: prefer one
// not yet used in this session, fall back to any when all are exhausted.
// Deterministic given a fixed random source.
func PickCategoryFor(available []Category, used map[string]bool, rng *rand.Rand) (Category, bool) {
	if len(available) == 0 {
		return Category{}, false
	}
	var fresh []Category
	for _, c := range available {
		if !used[c.ID] {
			fresh = append(fresh, c)
		}
	}
	if len(fresh) == 0 {
		fresh = available
	}
	return fresh[rng.Intn(len(fresh))], true
}

// NormalizeCategoryPool fills in derivable ids and titles and drops entries
// with neither.
func NormalizeCategoryPool(pool []Category) []Category {
	titleCaser := cases.Title(language.English)
	out := make([]Category, 0, len(pool))
	for _, c := range pool {
		if c.ID == "" && c.Title == "" {
			continue
		}
		if c.ID == "" {
			c.ID = slug.Make(c.Title)
		}
		if c.Title == "" {
			c.Title = titleCaser.String(strings.ReplaceAll(c.ID, "-", " "))
		}
		out = append(out, c)
	}
	return out
}
