// services/remote_client.go
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"duel-arena-service/utils"
)

// Identity is the caller identity forwarded on every remote duel call.
type Identity struct {
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
	Avatar   string `json:"avatar,omitempty"`
}

// Category is one entry of the category pool a chooser picks from.
type Category struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// RoundScore is one participant's result for a single round.
type RoundScore struct {
	Correct int `json:"correct"`
	Wrong   int `json:"wrong"`
	Earned  int `json:"earned"`
}

// WireInvite is the heterogeneous invite payload as the remote sends it.
// The id may arrive under any of three field names; either timestamp may be
// missing and is derived from the other. Normalization lives in the invite
// registry.
type WireInvite struct {
	ID             string `json:"id,omitempty"`
	InviteID       string `json:"inviteId,omitempty"`
	DuelID         string `json:"duelId,omitempty"`
	OpponentName   string `json:"opponentName"`
	OpponentAvatar string `json:"opponentAvatar,omitempty"`
	Message        string `json:"message,omitempty"`
	Source         string `json:"source,omitempty"`
	RequestedAt    int64  `json:"requestedAt,omitempty"` // unix ms
	Deadline       int64  `json:"deadline,omitempty"`    // unix ms
}

// WirePendingDuel mirrors one unresolved duel from the remote overview.
type WirePendingDuel struct {
	ID             string `json:"id,omitempty"`
	DuelID         string `json:"duelId,omitempty"`
	OpponentName   string `json:"opponentName"`
	OpponentAvatar string `json:"opponentAvatar,omitempty"`
	StartedAt      int64  `json:"startedAt,omitempty"` // unix ms
	Deadline       int64  `json:"deadline,omitempty"`  // unix ms
}

// WireHistoryEntry mirrors one resolved duel from the remote overview.
type WireHistoryEntry struct {
	ID            string `json:"id,omitempty"`
	DuelID        string `json:"duelId,omitempty"`
	OpponentName  string `json:"opponentName"`
	Outcome       string `json:"outcome"`
	Reason        string `json:"reason,omitempty"`
	YourScore     int    `json:"yourScore"`
	OpponentScore int    `json:"opponentScore"`
	StartedAt     int64  `json:"startedAt,omitempty"`
	Deadline      int64  `json:"deadline,omitempty"`
	ResolvedAt    int64  `json:"resolvedAt,omitempty"`
}

// WireStats carries the remote-reported aggregate totals.
type WireStats struct {
	Wins   int64 `json:"wins"`
	Losses int64 `json:"losses"`
	Draws  int64 `json:"draws"`
}

// DuelOverview is the authoritative remote snapshot of a user's duel state.
type DuelOverview struct {
	Invites []WireInvite       `json:"invites"`
	Pending []WirePendingDuel  `json:"pending"`
	History []WireHistoryEntry `json:"history"`
	Stats   WireStats          `json:"stats"`
}

// RemoteRound is the per-round record returned by matchmaking.
type RemoteRound struct {
	Index          int    `json:"index"`
	CategoryID     string `json:"categoryId,omitempty"`
	CategoryTitle  string `json:"categoryTitle,omitempty"`
	TotalQuestions int    `json:"totalQuestions,omitempty"`
}

// RemoteDuel describes a freshly matched or accepted duel.
type RemoteDuel struct {
	ID             string        `json:"id"`
	StartedAt      int64         `json:"startedAt"`
	Deadline       int64         `json:"deadline"`
	OpponentName   string        `json:"opponent"`
	OpponentAvatar string        `json:"opponentAvatar,omitempty"`
	Difficulty     string        `json:"difficulty"`
	Rounds         []RemoteRound `json:"rounds"`
}

// MatchRequest is the matchmaking payload; also reused when accepting an
// invite (the acceptor supplies the same fields plus the invite id).
type MatchRequest struct {
	Identity
	Opponent          string     `json:"opponent,omitempty"` // empty = open matchmaking
	Difficulty        string     `json:"difficulty"`
	CategoryPool      []Category `json:"categoryPool"`
	Rounds            int        `json:"rounds"`
	QuestionsPerRound int        `json:"questionsPerRound"`
}

// MatchResult is the matchmaking response.
type MatchResult struct {
	Duel     RemoteDuel    `json:"duel"`
	Overview *DuelOverview `json:"overview,omitempty"`
}

// AssignCategoryRequest fixes a round's category on the remote record.
type AssignCategoryRequest struct {
	DuelID        string `json:"duelId"`
	RoundIndex    int    `json:"roundIndex"`
	UserID        string `json:"userId"`
	UserName      string `json:"userName"`
	CategoryID    string `json:"categoryId"`
	CategoryTitle string `json:"categoryTitle"`
}

// AssignCategoryResponse echoes the confirmed round configuration.
type AssignCategoryResponse struct {
	Round struct {
		CategoryID     string `json:"categoryId"`
		CategoryTitle  string `json:"categoryTitle"`
		TotalQuestions int    `json:"totalQuestions"`
	} `json:"round"`
	Overview *DuelOverview `json:"overview,omitempty"`
}

// SubmitRoundRequest reports the player's round result. Safe to repeat for
// the same round index; the remote is idempotent per round.
type SubmitRoundRequest struct {
	DuelID         string `json:"duelId"`
	RoundIndex     int    `json:"roundIndex"`
	UserID         string `json:"userId"`
	UserName       string `json:"userName"`
	CategoryID     string `json:"categoryId"`
	CategoryTitle  string `json:"categoryTitle"`
	Correct        int    `json:"correct"`
	Wrong          int    `json:"wrong"`
	Earned         int    `json:"earned"`
	TotalQuestions int    `json:"totalQuestions"`
}

// Submission statuses returned by the remote.
const (
	RoundStatusNext     = "next"
	RoundStatusFinished = "finished"
)

// DuelSummary is the remote's final word on a finished duel. When present it
// is authoritative over locally accumulated totals; the totals are pointers
// so an explicit 0 is distinguishable from an omitted field.
type DuelSummary struct {
	YourTotal     *int   `json:"yourTotal,omitempty"`
	OpponentTotal *int   `json:"opponentTotal,omitempty"`
	Outcome       string `json:"outcome,omitempty"`
	RewardApplied bool   `json:"rewardApplied,omitempty"` // remote already credited the reward
}

// RoundTotal is one participant's running earned total.
type RoundTotal struct {
	Earned int `json:"earned"`
}

// RoundTotals carries both running totals after a submission.
type RoundTotals struct {
	You      RoundTotal `json:"you"`
	Opponent RoundTotal `json:"opponent"`
}

// SubmitRoundResponse merges the authoritative opponent record and running
// totals back into the session. Player and Totals are pointers: absent means
// "keep the local record", present overrides it even when all zero.
type SubmitRoundResponse struct {
	Round struct {
		Player         *RoundScore `json:"player,omitempty"`
		Opponent       RoundScore  `json:"opponent"`
		TotalQuestions int         `json:"totalQuestions"`
	} `json:"round"`
	Totals   *RoundTotals  `json:"totals,omitempty"`
	Status   string        `json:"status"`
	Summary  *DuelSummary  `json:"summary,omitempty"`
	Overview *DuelOverview `json:"overview,omitempty"`
}

// RemoteDuelService is the authoritative duel backend consumed by this
// service. One call per round for category assignment and one per round for
// result submission.
type RemoteDuelService interface {
	Overview(ctx context.Context, id Identity) (*DuelOverview, error)
	Matchmake(ctx context.Context, req MatchRequest) (*MatchResult, error)
	SendInvite(ctx context.Context, id Identity, opponent, message string) (*DuelOverview, error)
	AcceptInvite(ctx context.Context, inviteID string, req MatchRequest) (*MatchResult, error)
	DeclineInvite(ctx context.Context, inviteID string, id Identity) (*DuelOverview, error)
	AssignCategory(ctx context.Context, req AssignCategoryRequest) (*AssignCategoryResponse, error)
	SubmitRound(ctx context.Context, req SubmitRoundRequest) (*SubmitRoundResponse, error)
}

// Question is a single quiz question as supplied by the question service.
// Opaque to this service; passed through to the client.
type Question struct {
	ID       string   `json:"id"`
	Text     string   `json:"text"`
	Options  []string `json:"options"`
	Points   int      `json:"points"`
	Category string   `json:"category"`
}

// QuestionSource produces a round's question set for a category/difficulty.
type QuestionSource interface {
	FetchQuestions(ctx context.Context, categoryID, difficulty string, count int) ([]Question, error)
}

// DuelServiceClient is the HTTP implementation of RemoteDuelService.
type DuelServiceClient struct {
	BaseURL string
	Token   string
	Client  *http.Client
}

func NewDuelServiceClient(baseURL, token string) *DuelServiceClient {
	return &DuelServiceClient{
		BaseURL: baseURL,
		Token:   token,
		Client:  utils.HTTPClient,
	}
}

func (c *DuelServiceClient) post(ctx context.Context, path string, payload interface{}, out interface{}) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode request for %s: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.BaseURL+path, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request for %s: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.Token)

	resp, err := c.Client.Do(req)
	if err != nil {
		return fmt.Errorf("duel service call %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("duel service %s returned status %d: %s", path, resp.StatusCode, string(body))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode duel service response for %s: %w", path, err)
		}
	}
	return nil
}

func (c *DuelServiceClient) Overview(ctx context.Context, id Identity) (*DuelOverview, error) {
	var out DuelOverview
	if err := c.post(ctx, "/duels/overview", id, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *DuelServiceClient) Matchmake(ctx context.Context, req MatchRequest) (*MatchResult, error) {
	var out MatchResult
	if err := c.post(ctx, "/duels/match", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *DuelServiceClient) SendInvite(ctx context.Context, id Identity, opponent, message string) (*DuelOverview, error) {
	payload := map[string]interface{}{
		"userId":   id.UserID,
		"userName": id.UserName,
		"avatar":   id.Avatar,
		"opponent": opponent,
		"message":  message,
	}
	var out struct {
		Overview *DuelOverview `json:"overview"`
	}
	if err := c.post(ctx, "/duels/invites", payload, &out); err != nil {
		return nil, err
	}
	return out.Overview, nil
}

func (c *DuelServiceClient) AcceptInvite(ctx context.Context, inviteID string, req MatchRequest) (*MatchResult, error) {
	payload := struct {
		InviteID string `json:"inviteId"`
		MatchRequest
	}{InviteID: inviteID, MatchRequest: req}

	var out MatchResult
	if err := c.post(ctx, "/duels/invites/accept", payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *DuelServiceClient) DeclineInvite(ctx context.Context, inviteID string, id Identity) (*DuelOverview, error) {
	payload := map[string]interface{}{
		"inviteId": inviteID,
		"userId":   id.UserID,
		"userName": id.UserName,
	}
	var out struct {
		Overview *DuelOverview `json:"overview"`
	}
	if err := c.post(ctx, "/duels/invites/decline", payload, &out); err != nil {
		return nil, err
	}
	return out.Overview, nil
}

func (c *DuelServiceClient) AssignCategory(ctx context.Context, req AssignCategoryRequest) (*AssignCategoryResponse, error) {
	var out AssignCategoryResponse
	if err := c.post(ctx, "/duels/round/category", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *DuelServiceClient) SubmitRound(ctx context.Context, req SubmitRoundRequest) (*SubmitRoundResponse, error) {
	var out SubmitRoundResponse
	if err := c.post(ctx, "/duels/round/submit", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// QuestionServiceClient fetches round question sets from the question
// supply service.
type QuestionServiceClient struct {
	BaseURL string
	Token   string
	Client  *http.Client
}

func NewQuestionServiceClient(baseURL, token string) *QuestionServiceClient {
	return &QuestionServiceClient{
		BaseURL: baseURL,
		Token:   token,
		Client:  utils.HTTPClient,
	}
}

func (c *QuestionServiceClient) FetchQuestions(ctx context.Context, categoryID, difficulty string, count int) ([]Question, error) {
	q := url.Values{}
	q.Set("category", categoryID)
	q.Set("difficulty", difficulty)
	q.Set("count", strconv.Itoa(count))

	req, err := http.NewRequestWithContext(ctx, "GET", c.BaseURL+"/questions?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create question request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.Token)

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("question service call failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("question service returned status %d: %s", resp.StatusCode, string(body))
	}

	var out struct {
		Questions []Question `json:"questions"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode question response: %w", err)
	}
	return out.Questions, nil
}
