package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tv-spot-scheduler/internal/model"
	"github.com/iliyamo/tv-spot-scheduler/internal/queue"
	"github.com/iliyamo/tv-spot-scheduler/internal/repository"
	"github.com/iliyamo/tv-spot-scheduler/internal/scheduler"
	queue_publisher "github.com/iliyamo/tv-spot-scheduler/internal/service"
)

// SpotHandler exposes the admission controller and the spot lifecycle
// over HTTP.  Every capacity decision is delegated to the scheduler;
// this layer only translates requests, maps errors to status codes and
// publishes lifecycle events for downstream consumers.
type SpotHandler struct {
	Scheduler *scheduler.Service
	Deals     *repository.DealRepo
	Spots     *repository.AdSpotRepo
}

// NewSpotHandler constructs a SpotHandler and panics if any dependency is nil.
func NewSpotHandler(svc *scheduler.Service, deals *repository.DealRepo, spots *repository.AdSpotRepo) *SpotHandler {
	if svc == nil || deals == nil || spots == nil {
		panic("nil dependency passed to NewSpotHandler")
	}
	return &SpotHandler{Scheduler: svc, Deals: deals, Spots: spots}
}

// rejectionResp is returned with 409 when the admission checks turn a
// candidate down.  The reason code is machine-readable; the message is
// for humans reading logs and error toasts.
type rejectionResp struct {
	Admitted bool   `json:"admitted"`
	Reason   string `json:"reason"`
	Message  string `json:"message"`
}

// AdmitSpot handles POST /v1/deals/:id/spots.  A 201 means the spot
// was admitted (or already existed under the same client_ref); a 409
// carries the typed rejection.
func (h *SpotHandler) AdmitSpot(c echo.Context) error {
	adminID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	dealID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var body struct {
		CategoryID      *uint64 `json:"category_id"`
		BrandID         *uint64 `json:"brand_id"`
		SubBrandID      *uint64 `json:"sub_brand_id"`
		AdTitle         string  `json:"ad_title"`
		ScheduledDate   string  `json:"scheduled_date"`
		DurationSeconds uint32  `json:"duration_seconds"`
		AiringCount     uint32  `json:"airing_count"`
		ClientRef       *string `json:"client_ref"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	title := strings.TrimSpace(body.AdTitle)
	if title == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "ad_title is required"})
	}
	day, err := parseDate(body.ScheduledDate)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "scheduled_date must be YYYY-MM-DD"})
	}

	dec, err := h.Scheduler.TryAdmit(c.Request().Context(), scheduler.AdmitRequest{
		DealID:          dealID,
		AdminID:         adminID,
		CategoryID:      body.CategoryID,
		BrandID:         body.BrandID,
		SubBrandID:      body.SubBrandID,
		AdTitle:         title,
		ScheduledDate:   day,
		DurationSeconds: body.DurationSeconds,
		AiringCount:     body.AiringCount,
		ClientRef:       body.ClientRef,
	})
	if err != nil {
		return h.schedulerError(c, err)
	}
	if !dec.Admitted {
		return c.JSON(http.StatusConflict, rejectionResp{Reason: string(dec.Reason), Message: dec.Message})
	}
	h.publishLifecycle(dec.Spot)
	return c.JSON(http.StatusCreated, dec.Spot)
}

// ConfirmSpot handles POST /v1/spots/:id/confirm.
func (h *SpotHandler) ConfirmSpot(c echo.Context) error {
	spotID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	spot, err := h.Scheduler.Confirm(c.Request().Context(), spotID)
	if err != nil {
		return h.schedulerError(c, err)
	}
	h.publishLifecycle(spot)
	return c.JSON(http.StatusOK, spot)
}

// FailSpot handles POST /v1/spots/:id/fail.  The freed capacity is
// immediately available to subsequent admissions on the same deal.
func (h *SpotHandler) FailSpot(c echo.Context) error {
	spotID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var body struct {
		Reason string `json:"reason"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	spot, err := h.Scheduler.Fail(c.Request().Context(), spotID, strings.TrimSpace(body.Reason))
	if err != nil {
		return h.schedulerError(c, err)
	}
	h.publishLifecycle(spot)
	return c.JSON(http.StatusOK, spot)
}

// RescheduleSpot handles POST /v1/spots/:id/reschedule.  On success a
// new pending spot is returned; the failed original stays in the
// listing as audit history.
func (h *SpotHandler) RescheduleSpot(c echo.Context) error {
	spotID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var body struct {
		NewDate            string  `json:"new_date"`
		NewDurationSeconds *uint32 `json:"new_duration_seconds"`
		NewAiringCount     *uint32 `json:"new_airing_count"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	day, err := parseDate(body.NewDate)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "new_date must be YYYY-MM-DD"})
	}
	dec, err := h.Scheduler.Reschedule(c.Request().Context(), spotID, scheduler.RescheduleRequest{
		NewDate:            day,
		NewDurationSeconds: body.NewDurationSeconds,
		NewAiringCount:     body.NewAiringCount,
	})
	if err != nil {
		return h.schedulerError(c, err)
	}
	if !dec.Admitted {
		return c.JSON(http.StatusConflict, rejectionResp{Reason: string(dec.Reason), Message: dec.Message})
	}
	h.publishLifecycle(dec.Spot)
	return c.JSON(http.StatusCreated, dec.Spot)
}

// ListSpots handles GET /v1/deals/:id/spots, including failed history.
func (h *SpotHandler) ListSpots(c echo.Context) error {
	dealID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	items, err := h.Spots.ListByDeal(c.Request().Context(), dealID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// schedulerError maps scheduler sentinels to HTTP status codes.
func (h *SpotHandler) schedulerError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, scheduler.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	case errors.Is(err, scheduler.ErrValidation):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, scheduler.ErrInvalidTransition):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case errors.Is(err, scheduler.ErrConcurrencyConflict):
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "deal is under heavy contention, retry shortly"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
}

// publishLifecycle emits a spot.lifecycle event for a committed state
// change.  Publishing is best effort and runs off the request path; a
// broker outage must never fail a booking that already committed.
func (h *SpotHandler) publishLifecycle(spot *model.AdSpot) {
	if spot == nil {
		return
	}
	s := *spot
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		channel := ""
		if deal, err := h.Deals.GetByID(ctx, s.DealID); err == nil {
			channel = deal.ChannelName
		}
		_ = queue_publisher.PublishSpotLifecycle(ctx, queue.SpotLifecycleEvent{
			SpotID:            s.ID,
			DealID:            s.DealID,
			OperatorID:        s.AdminID,
			ChannelName:       channel,
			AdTitle:           s.AdTitle,
			ScheduledDate:     s.ScheduledDate.UTC().Format("2006-01-02"),
			DurationSeconds:   s.DurationSeconds,
			AiringCount:       s.AiringCount,
			Status:            s.Status,
			FailureReason:     s.FailureReason,
			EventFeeCents:     s.EventFeeCents,
			RescheduledFromID: s.RescheduledFromID,
			OccurredAt:        time.Now().UTC().Format(time.RFC3339),
		})
	}()
}
