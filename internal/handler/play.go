package handler

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/tochtwerk/gelukstocht/internal/geo"
	"github.com/tochtwerk/gelukstocht/internal/model"
	"github.com/tochtwerk/gelukstocht/internal/repository"
	"github.com/tochtwerk/gelukstocht/internal/scoring"
)

// PlayHandler serves the in-game endpoints teams hit during an active
// session: geofence unlock checks, hint escalation and mission
// submissions. Every route sits behind TeamAuth, so the team is always
// present in the context.
type PlayHandler struct {
	Sessions    *repository.SessionRepo
	Tours       *repository.TourRepo
	Checkpoints *repository.CheckpointRepo
	Submissions *repository.SubmissionRepo
	Scores      *repository.ScoreRepo
}

func NewPlayHandler(sessions *repository.SessionRepo, tours *repository.TourRepo, checkpoints *repository.CheckpointRepo, submissions *repository.SubmissionRepo, scores *repository.ScoreRepo) *PlayHandler {
	return &PlayHandler{Sessions: sessions, Tours: tours, Checkpoints: checkpoints, Submissions: submissions, Scores: scores}
}

// parsePolygon decodes the stored vertex list ([[lat,lng],...]) into
// points. Fewer than three vertices is rejected at checkpoint creation
// time, so an error here means corrupt data, not bad input.
func parsePolygon(raw string) ([]geo.Point, error) {
	var pairs [][2]float64
	if err := json.Unmarshal([]byte(raw), &pairs); err != nil {
		return nil, fmt.Errorf("malformed polygon: %w", err)
	}
	if len(pairs) < 3 {
		return nil, fmt.Errorf("polygon has %d vertices, need at least 3", len(pairs))
	}
	pts := make([]geo.Point, len(pairs))
	for i, p := range pairs {
		pts[i] = geo.Point{Lat: p[0], Lng: p[1]}
	}
	return pts, nil
}

// fenceContains evaluates a checkpoint's geofence against a position.
func fenceContains(cp *model.Checkpoint, p geo.Point) (bool, error) {
	if cp.PolygonJSON != "" {
		poly, err := parsePolygon(cp.PolygonJSON)
		if err != nil {
			return false, err
		}
		return geo.WithinPolygon(p, poly), nil
	}
	return geo.WithinRadius(p, geo.Point{Lat: cp.Lat, Lng: cp.Lng}, cp.RadiusMeters), nil
}

// resolveCheckpoint loads a checkpoint and verifies it belongs to the
// tour of the team's session, and that the session is in play. Returns
// a non-nil echo response error already written when the chain fails.
func (h *PlayHandler) resolveCheckpoint(c echo.Context) (*model.Team, *model.GameSession, *model.Checkpoint, error) {
	team, ok := c.Get("team").(*model.Team)
	if !ok || team == nil {
		return nil, nil, nil, c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing team token"})
	}
	ctx := c.Request().Context()

	s, err := h.Sessions.GetByID(ctx, team.SessionID)
	if err != nil {
		return nil, nil, nil, c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal", "message": "query failed"})
	}
	if s.Status != model.SessionActive {
		return nil, nil, nil, c.JSON(http.StatusConflict, echo.Map{"error": "session_not_active", "message": "session is " + string(s.Status)})
	}

	cpID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return nil, nil, nil, c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_id", "message": "invalid checkpoint id"})
	}
	cp, err := h.Checkpoints.GetByID(ctx, cpID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil, nil, c.JSON(http.StatusNotFound, echo.Map{"error": "not_found", "message": "checkpoint not found"})
		}
		return nil, nil, nil, c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal", "message": "query failed"})
	}
	if cp.TourID != s.TourID {
		// Checkpoints of other tours are invisible to this session.
		return nil, nil, nil, c.JSON(http.StatusNotFound, echo.Map{"error": "not_found", "message": "checkpoint not found"})
	}
	return team, s, cp, nil
}

type unlockReq struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Unlock handles POST /v1/play/checkpoints/:id/unlock. A position
// outside the fence returns locked without recording anything; the
// check is pure and repeatable.
func (h *PlayHandler) Unlock(c echo.Context) error {
	_, _, cp, errResp := h.resolveCheckpoint(c)
	if errResp != nil {
		return errResp
	}
	var req unlockReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_body", "message": "invalid request body"})
	}
	if req.Lat < -90 || req.Lat > 90 || req.Lng < -180 || req.Lng > 180 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_position", "message": "lat/lng out of range"})
	}

	inside, err := fenceContains(cp, geo.Point{Lat: req.Lat, Lng: req.Lng})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal", "message": "geofence evaluation failed"})
	}
	if !inside {
		return c.JSON(http.StatusOK, echo.Map{"unlocked": false})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"unlocked":      true,
		"title":         cp.Title,
		"missionText":   cp.MissionText,
		"timeLimitSec":  cp.TimeLimitSec,
		"bonusPhotoPts": cp.BonusPhotoPts,
	})
}

type hintReq struct {
	Level json.RawMessage `json:"level"`
}

// parseHintLevel accepts the level as the string enum "1"|"2"|"3" or
// as a bare number. Anything else is rejected.
func parseHintLevel(raw json.RawMessage) (int, bool) {
	s := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > 3 {
		return 0, false
	}
	return n, true
}

// Hint handles POST /v1/play/checkpoints/:id/hint. The route sits
// behind the Redis rate limiter; this handler only validates the
// escalation level and returns the stored text.
func (h *PlayHandler) Hint(c echo.Context) error {
	_, _, cp, errResp := h.resolveCheckpoint(c)
	if errResp != nil {
		return errResp
	}
	var req hintReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_body", "message": "invalid request body"})
	}
	level, ok := parseHintLevel(req.Level)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_level", "message": "hint level must be 1, 2 or 3"})
	}
	text := cp.Hint(level)
	if text == "" {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "hint_not_available", "message": "no hint at this level"})
	}
	return c.JSON(http.StatusOK, echo.Map{"level": level, "hint": text})
}

type submitReq struct {
	Payload        json.RawMessage `json:"payload"`
	PhotoURL       string          `json:"photoUrl"`
	WithBonusPhoto bool            `json:"withBonusPhoto"`
}

// Submit handles POST /v1/play/checkpoints/:id/submit. The submission
// and its score land in the same transaction; a resubmission replaces
// both, so a checkpoint never counts twice for a team.
func (h *PlayHandler) Submit(c echo.Context) error {
	team, s, cp, errResp := h.resolveCheckpoint(c)
	if errResp != nil {
		return errResp
	}
	var req submitReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_body", "message": "invalid request body"})
	}

	ctx := c.Request().Context()
	tour, err := h.Tours.GetByID(ctx, s.TourID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal", "message": "query failed"})
	}

	var payload *string
	if len(req.Payload) > 0 {
		p := string(req.Payload)
		payload = &p
	}
	var photo *string
	if req.PhotoURL != "" {
		photo = &req.PhotoURL
	}
	withBonus := req.WithBonusPhoto && photo != nil

	var purgeAfter *time.Time
	if tour.Variant.Kids() {
		t := time.Now().UTC().Add(model.KidsRetention)
		purgeAfter = &t
	}

	score := scoring.ForSubmission(cp, withBonus)

	tx, err := h.Sessions.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal", "message": "failed to start transaction"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := h.Submissions.UpsertTx(ctx, tx, team.ID, cp.ID, payload, photo, withBonus, purgeAfter); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal", "message": "failed to store submission"})
	}
	if err := h.Scores.UpsertCheckpointScoreTx(ctx, tx, team.ID, cp.ID, score); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal", "message": "failed to store score"})
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal", "message": "failed to commit transaction"})
	}
	committed = true

	return c.JSON(http.StatusCreated, echo.Map{
		"checkpointId": cp.ID,
		"score": echo.Map{
			"connection": score.Connection,
			"meaning":    score.Meaning,
			"joy":        score.Joy,
			"growth":     score.Growth,
			"bonus":      score.Bonus,
		},
	})
}
