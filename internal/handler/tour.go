package handler

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/tochtwerk/gelukstocht/internal/geo"
	"github.com/tochtwerk/gelukstocht/internal/middleware"
	"github.com/tochtwerk/gelukstocht/internal/model"
	"github.com/tochtwerk/gelukstocht/internal/repository"
)

// TourHandler exposes tour and checkpoint management to leaders. Tours
// are frozen while an active or paused session references them; the
// repositories enforce that and surface ErrConflict.
type TourHandler struct {
	Tours       *repository.TourRepo
	Checkpoints *repository.CheckpointRepo
}

func NewTourHandler(tours *repository.TourRepo, checkpoints *repository.CheckpointRepo) *TourHandler {
	if tours == nil || checkpoints == nil {
		panic("nil repository passed to NewTourHandler")
	}
	return &TourHandler{Tours: tours, Checkpoints: checkpoints}
}

type tourReq struct {
	Title          string `json:"title"`
	Variant        string `json:"variant"`
	Pricing        string `json:"pricing"`
	FlatPriceCents uint32 `json:"flat_price_cents"`
	SeatPriceCents uint32 `json:"seat_price_cents"`
	MaxTeams       uint32 `json:"max_teams"`
}

// CreateTour handles POST /v1/tours.
func (h *TourHandler) CreateTour(c echo.Context) error {
	leaderID, ok := middleware.LeaderID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req tourReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "title required"})
	}
	variant := model.Variant(req.Variant)
	if !model.KnownVariant(variant) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown variant"})
	}
	pricing := model.PricingModel(req.Pricing)
	if pricing != model.PricingFlat && pricing != model.PricingPerPerson {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "pricing must be flat or per_person"})
	}

	t := &model.Tour{
		OwnerID:        leaderID,
		Title:          req.Title,
		Variant:        variant,
		Pricing:        pricing,
		FlatPriceCents: req.FlatPriceCents,
		SeatPriceCents: req.SeatPriceCents,
		MaxTeams:       req.MaxTeams,
	}
	id, err := h.Tours.Create(c.Request().Context(), t)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create tour failed"})
	}
	t.ID = id
	return c.JSON(http.StatusCreated, t)
}

// ListTours handles GET /v1/tours and returns the caller's tours.
func (h *TourHandler) ListTours(c echo.Context) error {
	leaderID, ok := middleware.LeaderID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	tours, err := h.Tours.ListByOwner(c.Request().Context(), leaderID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"tours": tours})
}

// GetTour handles GET /v1/tours/:id, including the ordered checkpoint
// list.
func (h *TourHandler) GetTour(c echo.Context) error {
	leaderID, ok := middleware.LeaderID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	tourID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || tourID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid tour id"})
	}
	t, err := h.Tours.GetByID(c.Request().Context(), tourID)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "tour not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if t.OwnerID != leaderID {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	cps, err := h.Checkpoints.ListByTour(c.Request().Context(), tourID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"tour": t, "checkpoints": cps})
}

type checkpointReq struct {
	OrderIndex    uint32      `json:"order_index"`
	Title         string      `json:"title"`
	MissionText   string      `json:"mission_text"`
	Lat           float64     `json:"lat"`
	Lng           float64     `json:"lng"`
	RadiusMeters  float64     `json:"radius_m"`
	Polygon       []geo.Point `json:"polygon,omitempty"`
	Hint1         string      `json:"hint1"`
	Hint2         string      `json:"hint2"`
	Hint3         string      `json:"hint3"`
	ConnectionPts uint8       `json:"connection_pts"`
	MeaningPts    uint8       `json:"meaning_pts"`
	JoyPts        uint8       `json:"joy_pts"`
	GrowthPts     uint8       `json:"growth_pts"`
	TimeLimitSec  uint32      `json:"time_limit_sec"`
	BonusPhotoPts uint8       `json:"bonus_photo_pts"`
}

// AddCheckpoint handles POST /v1/tours/:id/checkpoints.
func (h *TourHandler) AddCheckpoint(c echo.Context) error {
	leaderID, ok := middleware.LeaderID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	tourID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || tourID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid tour id"})
	}
	var req checkpointReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	for _, pts := range []uint8{req.ConnectionPts, req.MeaningPts, req.JoyPts, req.GrowthPts} {
		if pts > 25 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "axis points must be 0-25"})
		}
	}
	if len(req.Polygon) > 0 && len(req.Polygon) < 3 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "polygon needs at least 3 vertices"})
	}
	var polygonJSON string
	if len(req.Polygon) >= 3 {
		b, err := json.Marshal(req.Polygon)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid polygon"})
		}
		polygonJSON = string(b)
	} else if req.RadiusMeters <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "radius_m or polygon required"})
	}

	cp := &model.Checkpoint{
		TourID:        tourID,
		OrderIndex:    req.OrderIndex,
		Title:         strings.TrimSpace(req.Title),
		MissionText:   req.MissionText,
		Lat:           req.Lat,
		Lng:           req.Lng,
		RadiusMeters:  req.RadiusMeters,
		PolygonJSON:   polygonJSON,
		Hint1:         req.Hint1,
		Hint2:         req.Hint2,
		Hint3:         req.Hint3,
		ConnectionPts: req.ConnectionPts,
		MeaningPts:    req.MeaningPts,
		JoyPts:        req.JoyPts,
		GrowthPts:     req.GrowthPts,
		TimeLimitSec:  req.TimeLimitSec,
		BonusPhotoPts: req.BonusPhotoPts,
	}
	id, err := h.Checkpoints.Create(c.Request().Context(), leaderID, cp)
	if err != nil {
		switch err {
		case sql.ErrNoRows:
			return c.JSON(http.StatusNotFound, echo.Map{"error": "tour not found"})
		case repository.ErrForbidden:
			return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
		case repository.ErrConflict:
			return c.JSON(http.StatusConflict, echo.Map{"error": "tour is locked by a running session"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create checkpoint failed"})
	}
	cp.ID = id
	return c.JSON(http.StatusCreated, cp)
}

// PublishTour handles POST /v1/tours/:id/publish.
func (h *TourHandler) PublishTour(c echo.Context) error {
	leaderID, ok := middleware.LeaderID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	tourID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || tourID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid tour id"})
	}
	if err := h.Tours.SetPublished(c.Request().Context(), leaderID, tourID, true); err != nil {
		switch err {
		case sql.ErrNoRows:
			return c.JSON(http.StatusNotFound, echo.Map{"error": "tour not found"})
		case repository.ErrForbidden:
			return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
		case repository.ErrConflict:
			return c.JSON(http.StatusConflict, echo.Map{"error": "tour is locked by a running session"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "publish failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"published": true})
}
