package handler

import (
	"database/sql"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tv-spot-scheduler/internal/ledger"
	"github.com/iliyamo/tv-spot-scheduler/internal/model"
	"github.com/iliyamo/tv-spot-scheduler/internal/repository"
)

// DealHandler bundles repositories for contract management and
// reporting endpoints.  Capacity-mutating writes (admission, lifecycle)
// live in SpotHandler; everything here either creates contract records
// under the deal lock or reads committed state.
type DealHandler struct {
	Deals    *repository.DealRepo
	Events   *repository.SpecialEventRepo
	Packages *repository.ExtraPackageRepo
	Payments *repository.PaymentRepo
	Spots    *repository.AdSpotRepo
}

// NewDealHandler constructs a DealHandler and panics if any dependency is nil.
func NewDealHandler(deals *repository.DealRepo, events *repository.SpecialEventRepo, packages *repository.ExtraPackageRepo, payments *repository.PaymentRepo, spots *repository.AdSpotRepo) *DealHandler {
	if deals == nil || events == nil || packages == nil || payments == nil || spots == nil {
		panic("nil repository passed to NewDealHandler")
	}
	return &DealHandler{Deals: deals, Events: events, Packages: packages, Payments: payments, Spots: spots}
}

// capacityResp is the JSON shape of a capacity snapshot.  Spot counts
// are rendered as exact decimal strings because fractional spots are
// first-class: a 15 second airing on a 30 second contract consumes
// "0.5" spots.
type capacityResp struct {
	TotalSpots       string           `json:"total_spots"`
	ConsumedSpots    string           `json:"consumed_spots"`
	RemainingSpots   string           `json:"remaining_spots"`
	RemainingSeconds int64            `json:"remaining_seconds"`
	DailySeconds     map[string]int64 `json:"daily_seconds"`
}

func toCapacityResp(snap ledger.Snapshot) capacityResp {
	return capacityResp{
		TotalSpots:       snap.TotalSpots.String(),
		ConsumedSpots:    snap.ConsumedSpots.String(),
		RemainingSpots:   snap.RemainingSpots.String(),
		RemainingSeconds: snap.RemainingSeconds,
		DailySeconds:     snap.DailySeconds,
	}
}

// CreateDeal handles POST /v1/deals.  The deal and its initial payment
// row are inserted in one transaction so the contract never exists
// without its payment record.
func (h *DealHandler) CreateDeal(c echo.Context) error {
	adminID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body struct {
		ChannelName         string  `json:"channel_name"`
		StartDate           string  `json:"start_date"`
		EndDate             string  `json:"end_date"`
		TotalSpots          uint32  `json:"total_spots"`
		MaxSecondsPerSpot   uint32  `json:"max_seconds_per_spot"`
		DailyCapSeconds     *uint32 `json:"daily_cap_seconds"`
		InitialPaymentCents uint64  `json:"initial_payment_cents"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	name := strings.TrimSpace(body.ChannelName)
	if name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "channel_name is required"})
	}
	// A zero base pool is allowed: extra packages can fund the deal later.
	if body.MaxSecondsPerSpot == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "max_seconds_per_spot must be positive"})
	}
	if body.DailyCapSeconds != nil && *body.DailyCapSeconds == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "daily_cap_seconds must be positive when set"})
	}
	start, err := parseDate(body.StartDate)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "start_date must be YYYY-MM-DD"})
	}
	end, err := parseDate(body.EndDate)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "end_date must be YYYY-MM-DD"})
	}
	if end.Before(start) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "end_date must not precede start_date"})
	}

	deal := &model.Deal{
		AdminID:             adminID,
		ChannelName:         name,
		StartDate:           start,
		EndDate:             end,
		TotalSpots:          body.TotalSpots,
		MaxSecondsPerSpot:   body.MaxSecondsPerSpot,
		DailyCapSeconds:     body.DailyCapSeconds,
		InitialPaymentCents: body.InitialPaymentCents,
	}

	ctx := c.Request().Context()
	tx, err := h.Deals.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := h.Deals.CreateTx(ctx, tx, deal); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not create deal"})
	}
	payment := &model.Payment{
		DealID:      deal.ID,
		AmountCents: deal.InitialPaymentCents,
		PaidAt:      time.Now().UTC(),
		Type:        model.PaymentInitial,
	}
	if err := h.Payments.AppendTx(ctx, tx, payment); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not record initial payment"})
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	committed = true

	return c.JSON(http.StatusCreated, echo.Map{"deal": deal, "payment": payment})
}

// ListDeals handles GET /v1/deals and returns the caller's active deals.
func (h *DealHandler) ListDeals(c echo.Context) error {
	adminID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	items, err := h.Deals.ListByAdmin(c.Request().Context(), adminID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// GetDeal handles GET /v1/deals/:id and returns the deal together with
// its current capacity snapshot, events and packages.
func (h *DealHandler) GetDeal(c echo.Context) error {
	dealID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx := c.Request().Context()
	deal, err := h.Deals.GetByID(ctx, dealID)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "deal not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	events, err := h.Events.ListByDeal(ctx, dealID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	packages, err := h.Packages.ListByDeal(ctx, dealID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	spots, err := h.Spots.ListByDeal(ctx, dealID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	snap := ledger.Compute(deal, packages, spots)
	return c.JSON(http.StatusOK, echo.Map{
		"deal":           deal,
		"special_events": events,
		"extra_packages": packages,
		"capacity":       toCapacityResp(snap),
	})
}

// GetCapacity handles GET /v1/deals/:id/capacity.  This read is
// advisory: the authoritative recomputation happens inside the
// admission transaction, so a snapshot served here can be stale by the
// time the client acts on it.
func (h *DealHandler) GetCapacity(c echo.Context) error {
	dealID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx := c.Request().Context()
	deal, err := h.Deals.GetByID(ctx, dealID)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "deal not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	packages, err := h.Packages.ListByDeal(ctx, dealID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	spots, err := h.Spots.ListByDeal(ctx, dealID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, toCapacityResp(ledger.Compute(deal, packages, spots)))
}

// DeleteDeal handles DELETE /v1/deals/:id.  Deals with pending spots
// cannot be deleted; the soft delete keeps the row for audit.
func (h *DealHandler) DeleteDeal(c echo.Context) error {
	adminID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	dealID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	if err := h.Deals.SoftDelete(c.Request().Context(), dealID, adminID); err != nil {
		switch {
		case err == repository.ErrConflict:
			return c.JSON(http.StatusConflict, echo.Map{"error": "deal has pending spots"})
		case err == sql.ErrNoRows:
			return c.JSON(http.StatusNotFound, echo.Map{"error": "deal not found"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
		}
	}
	return c.NoContent(http.StatusNoContent)
}

// CreateSpecialEvent handles POST /v1/deals/:id/events.  The deal lock
// is taken first so two concurrent creations cannot both pass the
// overlap check.
func (h *DealHandler) CreateSpecialEvent(c echo.Context) error {
	dealID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var body struct {
		EventName     string `json:"event_name"`
		StartDate     string `json:"start_date"`
		EndDate       string `json:"end_date"`
		ExtraFeeCents uint64 `json:"extra_fee_cents"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	name := strings.TrimSpace(body.EventName)
	if name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "event_name is required"})
	}
	start, err := parseDate(body.StartDate)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "start_date must be YYYY-MM-DD"})
	}
	end, err := parseDate(body.EndDate)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "end_date must be YYYY-MM-DD"})
	}
	if end.Before(start) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "end_date must not precede start_date"})
	}

	ctx := c.Request().Context()
	tx, err := h.Deals.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if _, err := h.Deals.GetByIDForUpdateTx(ctx, tx, dealID); err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "deal not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	event := &model.SpecialEvent{
		DealID:        dealID,
		EventName:     name,
		StartDate:     start,
		EndDate:       end,
		ExtraFeeCents: body.ExtraFeeCents,
	}
	if err := h.Events.CreateTx(ctx, tx, event); err != nil {
		if err == repository.ErrOverlappingEvent {
			return c.JSON(http.StatusConflict, echo.Map{"error": "event window overlaps an existing event"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not create event"})
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	committed = true
	return c.JSON(http.StatusCreated, event)
}

// CreateExtraPackage handles POST /v1/deals/:id/packages.  The package
// and its payment row commit together; the package joins the capacity
// pool the moment the transaction commits.
func (h *DealHandler) CreateExtraPackage(c echo.Context) error {
	dealID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var body struct {
		AdditionalSpots uint32  `json:"additional_spots"`
		AmountPaidCents uint64  `json:"amount_paid_cents"`
		PackageDate     string  `json:"package_date"`
		SpecialEventID  *uint64 `json:"special_event_id"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.AdditionalSpots == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "additional_spots must be positive"})
	}
	pkgDate, err := parseDate(body.PackageDate)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "package_date must be YYYY-MM-DD"})
	}

	ctx := c.Request().Context()
	tx, err := h.Deals.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if _, err := h.Deals.GetByIDForUpdateTx(ctx, tx, dealID); err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "deal not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	pkg := &model.ExtraPackage{
		DealID:          dealID,
		AdditionalSpots: body.AdditionalSpots,
		AmountPaidCents: body.AmountPaidCents,
		PackageDate:     pkgDate,
		SpecialEventID:  body.SpecialEventID,
	}
	if err := h.Packages.CreateTx(ctx, tx, pkg); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not create package"})
	}
	payment := &model.Payment{
		DealID:         dealID,
		AmountCents:    pkg.AmountPaidCents,
		PaidAt:         time.Now().UTC(),
		Type:           model.PaymentExtraPackage,
		ExtraPackageID: &pkg.ID,
	}
	if err := h.Payments.AppendTx(ctx, tx, payment); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not record payment"})
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	committed = true
	return c.JSON(http.StatusCreated, echo.Map{"package": pkg, "payment": payment})
}

// RecordPayment handles POST /v1/deals/:id/payments and appends a
// standalone special_event payment.  Initial and extra_package rows are
// written only by their owning endpoints so the ledger stays tied to
// the records that explain it.
func (h *DealHandler) RecordPayment(c echo.Context) error {
	dealID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var body struct {
		AmountCents uint64 `json:"amount_cents"`
		PaidAt      string `json:"paid_at"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	paidAt, err := parseDate(body.PaidAt)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "paid_at must be YYYY-MM-DD"})
	}
	ctx := c.Request().Context()
	if _, err := h.Deals.GetByID(ctx, dealID); err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "deal not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	payment := &model.Payment{
		DealID:      dealID,
		AmountCents: body.AmountCents,
		PaidAt:      paidAt,
		Type:        model.PaymentSpecialEvent,
	}
	if err := h.Payments.Append(ctx, payment); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not record payment"})
	}
	return c.JSON(http.StatusCreated, payment)
}

// ListPayments handles GET /v1/deals/:id/payments and returns the full
// payment history of a deal in chronological order.
func (h *DealHandler) ListPayments(c echo.Context) error {
	dealID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx := c.Request().Context()
	if _, err := h.Deals.GetByID(ctx, dealID); err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "deal not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	items, err := h.Payments.ListByDeal(ctx, dealID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	var total uint64
	for i := range items {
		total += items[i].AmountCents
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items, "total_cents": total})
}
