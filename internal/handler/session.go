package handler

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/tochtwerk/gelukstocht/internal/middleware"
	"github.com/tochtwerk/gelukstocht/internal/model"
	"github.com/tochtwerk/gelukstocht/internal/queue"
	"github.com/tochtwerk/gelukstocht/internal/repository"
	"github.com/tochtwerk/gelukstocht/internal/service"
)

// SessionHandler drives the session lifecycle on behalf of leaders.
// Lifecycle actions run inside a transaction that locks the session
// row, so concurrent actions on the same session serialize and the
// state machine never sees a stale source state.
type SessionHandler struct {
	Sessions *repository.SessionRepo
	Tours    *repository.TourRepo
	Teams    *repository.TeamRepo
	Notifier service.NotificationSink
}

func NewSessionHandler(sessions *repository.SessionRepo, tours *repository.TourRepo, teams *repository.TeamRepo, notifier service.NotificationSink) *SessionHandler {
	if sessions == nil || tours == nil || teams == nil {
		panic("nil repository passed to NewSessionHandler")
	}
	if notifier == nil {
		notifier = service.NopSink{}
	}
	return &SessionHandler{Sessions: sessions, Tours: tours, Teams: teams, Notifier: notifier}
}

type createSessionReq struct {
	TourID      uint64     `json:"tour_id"`
	ScheduledAt *time.Time `json:"scheduled_at,omitempty"`
}

// CreateSession handles POST /v1/sessions. The tour must belong to
// the caller and be published.
func (h *SessionHandler) CreateSession(c echo.Context) error {
	leaderID, ok := middleware.LeaderID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req createSessionReq
	if err := c.Bind(&req); err != nil || req.TourID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "tour_id required"})
	}
	ctx := c.Request().Context()
	tour, err := h.Tours.GetByID(ctx, req.TourID)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "tour not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if tour.OwnerID != leaderID {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	if !tour.Published {
		return c.JSON(http.StatusConflict, echo.Map{"error": "tour is not published"})
	}
	s, err := h.Sessions.Create(ctx, tour.ID, leaderID, req.ScheduledAt)
	if err != nil {
		if errors.Is(err, repository.ErrJoinCodeCollision) {
			c.Logger().Errorf("join code space exhausted for session create: %v", err)
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create session failed"})
	}
	return c.JSON(http.StatusCreated, s)
}

// actionFromString maps the URL action segment onto the state machine
// vocabulary.
func actionFromString(s string) (model.SessionAction, bool) {
	switch s {
	case "open-lobby":
		return model.ActionOpenLobby, true
	case "start":
		return model.ActionStart, true
	case "pause":
		return model.ActionPause, true
	case "resume":
		return model.ActionResume, true
	case "complete":
		return model.ActionComplete, true
	case "cancel":
		return model.ActionCancel, true
	}
	return "", false
}

// Action handles POST /v1/sessions/:id/:action for the lifecycle
// verbs. All checks and the status write happen in one transaction;
// on any failure nothing is mutated.
func (h *SessionHandler) Action(c echo.Context) error {
	leaderID, ok := middleware.LeaderID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	sessionID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || sessionID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid session id"})
	}
	action, ok := actionFromString(c.Param("action"))
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown action"})
	}

	ctx := c.Request().Context()
	tx, err := h.Sessions.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to start transaction"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	s, err := h.Sessions.ApplyActionTx(ctx, tx, sessionID, leaderID, action)
	if err != nil {
		var ite *model.InvalidTransitionError
		switch {
		case err == sql.ErrNoRows:
			return c.JSON(http.StatusNotFound, echo.Map{"error": "session not found"})
		case err == repository.ErrForbidden:
			return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
		case err == repository.ErrNotPaid:
			return c.JSON(http.StatusConflict, echo.Map{"error": "session order not paid"})
		case err == repository.ErrConflict:
			return c.JSON(http.StatusConflict, echo.Map{"error": "parental consent required before start"})
		case errors.As(err, &ite):
			return c.JSON(http.StatusConflict, echo.Map{"error": ite.Error()})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "session action failed"})
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to commit transaction"})
	}
	committed = true

	if action == model.ActionStart {
		tour, err := h.Tours.GetByID(ctx, s.TourID)
		if err == nil {
			// Fan-out is best effort; the state change already committed.
			_ = h.Notifier.Publish(ctx, service.TopicSessionStarted, queue.SessionStartedEvent{
				SessionID: s.ID,
				TourID:    s.TourID,
				Variant:   string(tour.Variant),
				StartedAt: time.Now().UTC().Format(time.RFC3339),
			})
		}
	}
	return c.JSON(http.StatusOK, s)
}

// RecordConsent handles POST /v1/sessions/:id/consent, storing the
// parental-consent flag kids variants require before start.
func (h *SessionHandler) RecordConsent(c echo.Context) error {
	leaderID, ok := middleware.LeaderID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	sessionID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || sessionID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid session id"})
	}
	if err := h.Sessions.RecordConsent(c.Request().Context(), sessionID, leaderID); err != nil {
		switch err {
		case sql.ErrNoRows:
			return c.JSON(http.StatusNotFound, echo.Map{"error": "session not found"})
		case repository.ErrForbidden:
			return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "record consent failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"consent_given": true})
}

// GetSession handles GET /v1/sessions/:id for the owning leader,
// including the team roster.
func (h *SessionHandler) GetSession(c echo.Context) error {
	leaderID, ok := middleware.LeaderID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	sessionID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || sessionID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid session id"})
	}
	ctx := c.Request().Context()
	s, err := h.Sessions.GetByID(ctx, sessionID)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "session not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if s.LeaderID != leaderID {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	teams, err := h.Teams.ListBySession(ctx, sessionID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	roster := make([]echo.Map, 0, len(teams))
	for _, t := range teams {
		roster = append(roster, echo.Map{"id": t.PublicID, "name": t.Name, "joined_at": t.CreatedAt})
	}
	return c.JSON(http.StatusOK, echo.Map{"session": s, "teams": roster})
}

// ListSessions handles GET /v1/sessions for the calling leader.
func (h *SessionHandler) ListSessions(c echo.Context) error {
	leaderID, ok := middleware.LeaderID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	sessions, err := h.Sessions.ListByLeader(c.Request().Context(), leaderID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"sessions": sessions})
}

// PreviewByCode handles GET /v1/join/:code, the unauthenticated
// pre-join peek a team gets after typing a code.
func (h *SessionHandler) PreviewByCode(c echo.Context) error {
	code := strings.ToUpper(strings.TrimSpace(c.Param("code")))
	ctx := c.Request().Context()
	s, err := h.Sessions.GetByJoinCode(ctx, code)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "invalid join code"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	tour, err := h.Tours.GetByID(ctx, s.TourID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	count, err := h.Teams.CountBySession(ctx, s.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"session_id": s.ID,
		"variant":    tour.Variant,
		"status":     s.Status,
		"team_count": count,
		"max_teams":  tour.TeamLimit(),
	})
}
