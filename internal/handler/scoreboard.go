package handler

import (
	"database/sql"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/tochtwerk/gelukstocht/internal/middleware"
	"github.com/tochtwerk/gelukstocht/internal/repository"
	"github.com/tochtwerk/gelukstocht/internal/scoring"
	"github.com/tochtwerk/gelukstocht/internal/service"
)

// ScoreboardHandler serves per-session rollups and the write-once
// narrative insight. Rollups are recomputed from the score rows on
// every read; only the insight text is cached.
type ScoreboardHandler struct {
	Sessions    *repository.SessionRepo
	Checkpoints *repository.CheckpointRepo
	Scores      *repository.ScoreRepo
	Insights    service.InsightGenerator
}

func NewScoreboardHandler(sessions *repository.SessionRepo, checkpoints *repository.CheckpointRepo, scores *repository.ScoreRepo, insights service.InsightGenerator) *ScoreboardHandler {
	if insights == nil {
		insights = service.TemplateInsight{}
	}
	return &ScoreboardHandler{Sessions: sessions, Checkpoints: checkpoints, Scores: scores, Insights: insights}
}

// loadSession resolves the :id param to a session owned by the
// authenticated leader.
func (h *ScoreboardHandler) loadSession(c echo.Context) (uint64, error) {
	sessionID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return 0, c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_id", "message": "invalid session id"})
	}
	leaderID, ok := middleware.LeaderID(c)
	if !ok {
		return 0, c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized", "message": "missing leader identity"})
	}
	s, err := h.Sessions.GetByID(c.Request().Context(), sessionID)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, c.JSON(http.StatusNotFound, echo.Map{"error": "not_found", "message": "session not found"})
		}
		return 0, c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal", "message": "query failed"})
	}
	if s.LeaderID != leaderID {
		return 0, c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden", "message": "not your session"})
	}
	return sessionID, nil
}

type teamScoreView struct {
	TeamID     uint64 `json:"teamId"`
	TeamName   string `json:"teamName"`
	Connection uint32 `json:"connection"`
	Meaning    uint32 `json:"meaning"`
	Joy        uint32 `json:"joy"`
	Growth     uint32 `json:"growth"`
	Bonus      uint32 `json:"bonus"`
	Total      uint32 `json:"total"`
	Normalized uint32 `json:"normalized"`
	Band       string `json:"band"`
}

// Scoreboard handles GET /v1/sessions/:id/scoreboard. Each team's raw
// total is normalized against the tour's checkpoint count, so teams
// that skipped checkpoints are measured against the same ceiling.
func (h *ScoreboardHandler) Scoreboard(c echo.Context) error {
	sessionID, errResp := h.loadSession(c)
	if errResp != nil {
		return errResp
	}
	ctx := c.Request().Context()

	s, err := h.Sessions.GetByID(ctx, sessionID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal", "message": "query failed"})
	}
	cpCount, err := h.Checkpoints.CountByTour(ctx, s.TourID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal", "message": "query failed"})
	}
	scores, err := h.Scores.TotalsBySession(ctx, sessionID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal", "message": "query failed"})
	}

	views := make([]teamScoreView, 0, len(scores))
	var sessionRaw uint32
	for _, sc := range scores {
		norm := scoring.Normalize(sc.Total, cpCount)
		views = append(views, teamScoreView{
			TeamID:     sc.TeamID,
			TeamName:   sc.TeamName,
			Connection: sc.Connection,
			Meaning:    sc.Meaning,
			Joy:        sc.Joy,
			Growth:     sc.Growth,
			Bonus:      sc.Bonus,
			Total:      sc.Total,
			Normalized: norm,
			Band:       scoring.Classify(norm),
		})
		sessionRaw += sc.Total
	}
	sessionNorm := scoring.Normalize(sessionRaw, cpCount*uint32(len(scores)))

	return c.JSON(http.StatusOK, echo.Map{
		"sessionId":  sessionID,
		"status":     s.Status,
		"teams":      views,
		"normalized": sessionNorm,
		"band":       scoring.Classify(sessionNorm),
	})
}

// Insight handles GET /v1/sessions/:id/insight. The narrative is
// generated on first read and cached; when two first-reads race, the
// loser's write fails with ErrInsightExists and it serves the winner's
// text instead of its own. The stored text is never regenerated.
func (h *ScoreboardHandler) Insight(c echo.Context) error {
	sessionID, errResp := h.loadSession(c)
	if errResp != nil {
		return errResp
	}
	ctx := c.Request().Context()

	existing, err := h.Scores.GetInsight(ctx, sessionID)
	if err == nil {
		return c.JSON(http.StatusOK, echo.Map{"sessionId": sessionID, "insight": existing, "cached": true})
	}
	if err != sql.ErrNoRows {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal", "message": "query failed"})
	}

	s, err := h.Sessions.GetByID(ctx, sessionID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal", "message": "query failed"})
	}
	cpCount, err := h.Checkpoints.CountByTour(ctx, s.TourID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal", "message": "query failed"})
	}
	scores, err := h.Scores.TotalsBySession(ctx, sessionID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal", "message": "query failed"})
	}
	var raw uint32
	for _, sc := range scores {
		raw += sc.Total
	}
	norm := scoring.Normalize(raw, cpCount*uint32(len(scores)))

	text, err := h.Insights.Generate(ctx, scores, norm, scoring.Classify(norm))
	if err != nil {
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "generation_failed", "message": "insight generation failed"})
	}

	if err := h.Scores.SetInsight(ctx, sessionID, text); err != nil {
		if err == repository.ErrInsightExists {
			winner, gerr := h.Scores.GetInsight(ctx, sessionID)
			if gerr != nil {
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal", "message": "query failed"})
			}
			return c.JSON(http.StatusOK, echo.Map{"sessionId": sessionID, "insight": winner, "cached": true})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal", "message": "failed to cache insight"})
	}
	return c.JSON(http.StatusOK, echo.Map{"sessionId": sessionID, "insight": text, "cached": false})
}
