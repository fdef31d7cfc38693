package handler

import (
	"database/sql"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/tochtwerk/gelukstocht/internal/model"
	"github.com/tochtwerk/gelukstocht/internal/queue"
	"github.com/tochtwerk/gelukstocht/internal/repository"
	"github.com/tochtwerk/gelukstocht/internal/service"
	"github.com/tochtwerk/gelukstocht/internal/utils"
)

// JoinHandler admits teams into sessions. The critical section runs in
// one transaction: the session row is locked, then capacity and
// case-insensitive name uniqueness are checked and the team inserted
// while the lock is held. Concurrent joins to the same session
// serialize on that lock, so the limit can never be overshot and two
// casings of one name can never both land.
type JoinHandler struct {
	Sessions *repository.SessionRepo
	Tours    *repository.TourRepo
	Teams    *repository.TeamRepo
	Notifier service.NotificationSink
}

func NewJoinHandler(sessions *repository.SessionRepo, tours *repository.TourRepo, teams *repository.TeamRepo, notifier service.NotificationSink) *JoinHandler {
	if sessions == nil || tours == nil || teams == nil {
		panic("nil repository passed to NewJoinHandler")
	}
	if notifier == nil {
		notifier = service.NopSink{}
	}
	return &JoinHandler{Sessions: sessions, Tours: tours, Teams: teams, Notifier: notifier}
}

type joinReq struct {
	JoinCode string `json:"joinCode"`
	TeamName string `json:"teamName"`
}

// NormalizeTeamName trims a submitted team name and reports whether
// the result is within the 1-30 character bounds.
func NormalizeTeamName(name string) (string, bool) {
	name = strings.TrimSpace(name)
	n := len([]rune(name))
	return name, n >= model.TeamNameMin && n <= model.TeamNameMax
}

// Join handles POST /v1/join. Response carries the freshly minted team
// token exactly once; it is never retrievable again.
func (h *JoinHandler) Join(c echo.Context) error {
	var req joinReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_body", "message": "invalid request body"})
	}
	code := strings.ToUpper(strings.TrimSpace(req.JoinCode))
	if !utils.ValidJoinCode(code) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_code", "message": "join code must be 6 characters"})
	}
	name, ok := NormalizeTeamName(req.TeamName)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_name", "message": "team name must be 1-30 characters"})
	}

	ctx := c.Request().Context()
	s, err := h.Sessions.GetByJoinCode(ctx, code)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "code_not_found", "message": "no session with this join code"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal", "message": "query failed"})
	}
	// Cheap pre-checks before taking the lock; re-verified inside the
	// transaction via the locked row.
	if s.Status.Terminal() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "session_over", "message": repository.ErrSessionOver.Error()})
	}
	if s.Status == model.SessionDraft {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "not_started", "message": repository.ErrSessionNotStarted.Error()})
	}

	tour, err := h.Tours.GetByID(ctx, s.TourID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal", "message": "query failed"})
	}

	rawToken, err := utils.NewTeamToken()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal", "message": "token generation failed"})
	}

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

	// The lock serializes every join on this session.
	locked, err := h.Sessions.LockTx(ctx, tx, s.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal", "message": "lock failed"})
	}
	if !locked.Status.Joinable() {
		if locked.Status.Terminal() {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "session_over", "message": repository.ErrSessionOver.Error()})
		}
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "not_started", "message": repository.ErrSessionNotStarted.Error()})
	}

	team, err := h.Teams.CreateTx(ctx, tx, s.ID, name, utils.HashToken(rawToken), tour.TeamLimit())
	if err != nil {
		switch err {
		case repository.ErrSessionFull:
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "session_full", "message": err.Error()})
		case repository.ErrDuplicateTeamName:
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "duplicate_name", "message": err.Error()})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal", "message": "join failed"})
	}
	count, err := h.Teams.CountBySessionTx(ctx, tx, s.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal", "message": "join failed"})
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal", "message": "failed to commit transaction"})
	}
	committed = true

	_ = h.Notifier.Publish(ctx, service.TopicTeamJoined, queue.TeamJoinedEvent{
		SessionID: s.ID,
		JoinCode:  s.JoinCode,
		TeamID:    team.PublicID,
		TeamName:  team.Name,
		TeamCount: count,
		JoinedAt:  time.Now().UTC().Format(time.RFC3339),
	})

	return c.JSON(http.StatusCreated, echo.Map{
		"teamId":    team.PublicID,
		"teamToken": rawToken, // only time the raw token leaves the server
		"sessionId": s.ID,
		"variant":   tour.Variant,
		"status":    locked.Status,
	})
}
