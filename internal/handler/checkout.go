package handler

import (
	"database/sql"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/tochtwerk/gelukstocht/internal/middleware"
	"github.com/tochtwerk/gelukstocht/internal/model"
	"github.com/tochtwerk/gelukstocht/internal/repository"
)

// CheckoutHandler creates orders and previews coupons. Nothing here
// moves money or counters: orders are created OPEN and only the
// payment webhook transitions them, and coupon previews never touch
// the usage count.
type CheckoutHandler struct {
	Tours    *repository.TourRepo
	Sessions *repository.SessionRepo
	Orders   *repository.OrderRepo
	Coupons  *repository.CouponRepo
}

func NewCheckoutHandler(tours *repository.TourRepo, sessions *repository.SessionRepo, orders *repository.OrderRepo, coupons *repository.CouponRepo) *CheckoutHandler {
	return &CheckoutHandler{Tours: tours, Sessions: sessions, Orders: orders, Coupons: coupons}
}

// couponError maps a coupon validation failure onto a response.
func couponError(c echo.Context, err error) error {
	switch err {
	case model.ErrCouponNotFound:
		return c.JSON(http.StatusNotFound, echo.Map{"error": "coupon_not_found", "message": err.Error()})
	case model.ErrCouponExpired:
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "coupon_expired", "message": err.Error()})
	case model.ErrCouponExhausted:
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "coupon_exhausted", "message": err.Error()})
	case model.ErrCouponTourMismatch:
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "coupon_tour_mismatch", "message": err.Error()})
	}
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal", "message": "coupon lookup failed"})
}

type previewReq struct {
	Code    string `json:"code"`
	TourID  uint64 `json:"tourId"`
	Persons uint32 `json:"persons"`
}

// PreviewCoupon handles POST /v1/checkout/coupons/preview. It reports
// what a code would do to the price without reserving a use; only a
// paid order consumes one.
func (h *CheckoutHandler) PreviewCoupon(c echo.Context) error {
	var req previewReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_body", "message": "invalid request body"})
	}
	ctx := c.Request().Context()

	tour, err := h.Tours.GetByID(ctx, req.TourID)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "not_found", "message": "tour not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal", "message": "query failed"})
	}
	coupon, err := h.Coupons.GetByCode(ctx, req.Code)
	if err != nil {
		return couponError(c, err)
	}
	if err := coupon.Validate(req.TourID, time.Now().UTC()); err != nil {
		return couponError(c, err)
	}

	base := tour.PriceCents(req.Persons)
	total := coupon.Discount(base)
	return c.JSON(http.StatusOK, echo.Map{
		"code":          coupon.Code,
		"type":          coupon.Type,
		"amountCents":   base,
		"totalCents":    total,
		"discountCents": base - total,
	})
}

type orderReq struct {
	TourID     uint64  `json:"tourId"`
	SessionID  *uint64 `json:"sessionId"`
	Persons    uint32  `json:"persons"`
	CouponCode string  `json:"couponCode"`
}

// CreateOrder handles POST /v1/checkout/orders. The coupon, when
// given, is validated and priced in but not consumed; consumption
// happens atomically with the paid transition in the webhook pipeline.
func (h *CheckoutHandler) CreateOrder(c echo.Context) error {
	leaderID, ok := middleware.LeaderID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized", "message": "missing leader identity"})
	}
	var req orderReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_body", "message": "invalid request body"})
	}
	ctx := c.Request().Context()

	tour, err := h.Tours.GetByID(ctx, req.TourID)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "not_found", "message": "tour not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal", "message": "query failed"})
	}
	if tour.Pricing == model.PricingPerPerson && req.Persons == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_persons", "message": "persons must be at least 1 for per-person pricing"})
	}
	if req.SessionID != nil {
		s, err := h.Sessions.GetByID(ctx, *req.SessionID)
		if err != nil {
			if err == sql.ErrNoRows {
				return c.JSON(http.StatusNotFound, echo.Map{"error": "not_found", "message": "session not found"})
			}
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal", "message": "query failed"})
		}
		if s.LeaderID != leaderID {
			return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden", "message": "not your session"})
		}
		if s.TourID != req.TourID {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "session_tour_mismatch", "message": "session does not belong to this tour"})
		}
	}

	base := tour.PriceCents(req.Persons)
	total := base
	var couponCode *string
	if code := strings.TrimSpace(req.CouponCode); code != "" {
		coupon, err := h.Coupons.GetByCode(ctx, code)
		if err != nil {
			return couponError(c, err)
		}
		if err := coupon.Validate(req.TourID, time.Now().UTC()); err != nil {
			return couponError(c, err)
		}
		total = coupon.Discount(base)
		couponCode = &coupon.Code
	}

	order, err := h.Orders.Create(ctx, &model.Order{
		TourID:      req.TourID,
		SessionID:   req.SessionID,
		Status:      model.OrderOpen,
		AmountCents: base,
		CouponCode:  couponCode,
		TotalCents:  total,
	})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal", "message": "failed to create order"})
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"reference":   order.Reference,
		"status":      order.Status,
		"amountCents": order.AmountCents,
		"totalCents":  order.TotalCents,
	})
}

// GetOrder handles GET /v1/checkout/orders/:reference.
func (h *CheckoutHandler) GetOrder(c echo.Context) error {
	if _, ok := middleware.LeaderID(c); !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized", "message": "missing leader identity"})
	}
	order, err := h.Orders.GetByReference(c.Request().Context(), c.Param("reference"))
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "not_found", "message": "order not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal", "message": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"reference":   order.Reference,
		"status":      order.Status,
		"amountCents": order.AmountCents,
		"totalCents":  order.TotalCents,
		"paidAt":      order.PaidAt,
		"refundedAt":  order.RefundedAt,
	})
}

type couponReq struct {
	Code      string     `json:"code"`
	Type      string     `json:"type"`
	Value     uint32     `json:"value"`
	MaxUses   *uint32    `json:"maxUses"`
	ExpiresAt *time.Time `json:"expiresAt"`
	TourID    *uint64    `json:"tourId"`
}

// CreateCoupon handles POST /v1/coupons (leader role).
func (h *CheckoutHandler) CreateCoupon(c echo.Context) error {
	if _, ok := middleware.LeaderID(c); !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized", "message": "missing leader identity"})
	}
	var req couponReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_body", "message": "invalid request body"})
	}
	code := strings.ToUpper(strings.TrimSpace(req.Code))
	if len(code) < 3 || len(code) > 32 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_code", "message": "coupon code must be 3-32 characters"})
	}
	dt := model.DiscountType(req.Type)
	switch dt {
	case model.DiscountPercent:
		if req.Value == 0 || req.Value > 100 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_value", "message": "percent value must be 1-100"})
		}
	case model.DiscountFixed:
		if req.Value == 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_value", "message": "fixed value must be positive"})
		}
	case model.DiscountFree:
		// value ignored
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_type", "message": "type must be percent, fixed or free"})
	}

	id, err := h.Coupons.Create(c.Request().Context(), &model.Coupon{
		Code:      code,
		Type:      dt,
		Value:     req.Value,
		MaxUses:   req.MaxUses,
		ExpiresAt: req.ExpiresAt,
		TourID:    req.TourID,
	})
	if err != nil {
		if err == repository.ErrConflict {
			return c.JSON(http.StatusConflict, echo.Map{"error": "code_exists", "message": "coupon code already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal", "message": "failed to create coupon"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"id": id, "code": code})
}

// DeactivateCoupon handles DELETE /v1/coupons/:code. The row stays for
// audit; its remaining uses are zeroed out.
func (h *CheckoutHandler) DeactivateCoupon(c echo.Context) error {
	if _, ok := middleware.LeaderID(c); !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized", "message": "missing leader identity"})
	}
	err := h.Coupons.Deactivate(c.Request().Context(), c.Param("code"))
	if err != nil {
		if err == model.ErrCouponNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "coupon_not_found", "message": err.Error()})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal", "message": "failed to deactivate coupon"})
	}
	return c.NoContent(http.StatusNoContent)
}
