package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/iliyamo/tv-spot-scheduler/internal/ledger"
	"github.com/iliyamo/tv-spot-scheduler/internal/model"
)

// Service implements admission control and the spot lifecycle over a
// Store.  It holds no mutable state of its own; correctness under
// concurrency is delegated to the store's transaction semantics plus
// the bounded retry in retry.go.
type Service struct {
	store        Store
	maxRetries   int
	retryBackoff time.Duration
}

// NewService constructs a Service.  maxRetries and backoff bound the
// retry loop for conflicting transactions; zero values select the
// defaults (3 attempts, 25ms initial backoff, doubling per attempt).
func NewService(store Store, maxRetries int, backoff time.Duration) *Service {
	if store == nil {
		panic("nil store passed to NewService")
	}
	if maxRetries <= 0 {
		maxRetries = 3
	}
	if backoff <= 0 {
		backoff = 25 * time.Millisecond
	}
	return &Service{store: store, maxRetries: maxRetries, retryBackoff: backoff}
}

// AdmitRequest is a candidate ad spot submitted for scheduling against
// a deal.  Category, brand and sub-brand are carried through verbatim;
// they never influence the admission decision.  ClientRef is an
// optional idempotency key, unique per deal: repeating an admit with
// the same ref returns the already admitted spot instead of
// double-booking on a client retry.
type AdmitRequest struct {
	DealID          uint64
	AdminID         uint64
	CategoryID      *uint64
	BrandID         *uint64
	SubBrandID      *uint64
	AdTitle         string
	ScheduledDate   time.Time
	DurationSeconds uint32
	AiringCount     uint32
	ClientRef       *string
}

// TryAdmit validates the candidate against the deal's contract window,
// remaining capacity and daily cap, and on success persists it as a
// pending spot – all inside one per-deal-locked transaction.  The
// three checks run in order and the first failing check determines the
// rejection reason.  Rejections come back as a Decision, not an
// error; ErrNotFound, ErrValidation and ErrConcurrencyConflict are the
// exceptional outcomes.
func (s *Service) TryAdmit(ctx context.Context, req AdmitRequest) (*Decision, error) {
	if req.DurationSeconds == 0 || req.AiringCount == 0 {
		return nil, fmt.Errorf("%w: duration and airing count must be positive", ErrValidation)
	}
	var dec *Decision
	err := s.withRetry(ctx, func(tx Tx) error {
		d, err := s.admit(ctx, tx, req, nil)
		if err != nil {
			return err
		}
		dec = d
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dec, nil
}

// admit runs the admission checks and insert inside an open
// transaction.  rescheduledFrom links the new spot to the failed spot
// it supersedes when invoked from Reschedule.
func (s *Service) admit(ctx context.Context, tx Tx, req AdmitRequest, rescheduledFrom *uint64) (*Decision, error) {
	agg, err := tx.DealAggregate(ctx, req.DealID)
	if err != nil {
		return nil, err
	}

	if req.ClientRef != nil && *req.ClientRef != "" {
		existing, err := tx.AdSpotByClientRef(ctx, req.DealID, *req.ClientRef)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return admitted(existing), nil
		}
	}

	deal := agg.Deal

	// Check 1: contract window.  The date must fall inside the deal's
	// range or inside a special event window of the deal.  A covering
	// event resolves the surcharge even when the date is also inside
	// the base range.  Event windows do not overlap (enforced at
	// creation); with legacy overlapping data the earliest starting
	// window wins.
	event := coveringEvent(agg.SpecialEvents, req.ScheduledDate)
	if !deal.ContainsDate(req.ScheduledDate) && event == nil {
		return rejected(RejectOutsideContractWindow, fmt.Sprintf(
			"%s is outside the contract window %s..%s and all special event windows",
			ledger.DayKey(req.ScheduledDate), ledger.DayKey(deal.StartDate), ledger.DayKey(deal.EndDate))), nil
	}
	var feeCents uint64
	if event != nil {
		feeCents = event.ExtraFeeCents
	}

	// Check 2: contract capacity, recomputed from source records under
	// the deal lock.
	snap := ledger.Compute(deal, agg.ExtraPackages, agg.AdSpots)
	candSeconds := int64(req.DurationSeconds) * int64(req.AiringCount)
	if candSeconds > snap.RemainingSeconds {
		need := ledger.SpotsFromSeconds(candSeconds, deal.MaxSecondsPerSpot)
		return rejected(RejectInsufficientCapacity, fmt.Sprintf(
			"only %s spots remain, this request needs %s", snap.RemainingSpots, need)), nil
	}

	// Check 3: daily cap, expressed in airing seconds.
	if deal.DailyCapSeconds != nil {
		used := snap.DailyConsumedSeconds(req.ScheduledDate)
		if used+candSeconds > int64(*deal.DailyCapSeconds) {
			return rejected(RejectDailyCapExceeded, fmt.Sprintf(
				"daily cap is %d seconds, %d already scheduled on %s, this request adds %d",
				*deal.DailyCapSeconds, used, ledger.DayKey(req.ScheduledDate), candSeconds)), nil
		}
	}

	spot := &model.AdSpot{
		AdminID:           req.AdminID,
		DealID:            req.DealID,
		CategoryID:        req.CategoryID,
		BrandID:           req.BrandID,
		SubBrandID:        req.SubBrandID,
		AdTitle:           req.AdTitle,
		ScheduledDate:     req.ScheduledDate.UTC().Truncate(24 * time.Hour),
		DurationSeconds:   req.DurationSeconds,
		AiringCount:       req.AiringCount,
		Status:            model.SpotPending,
		EventFeeCents:     feeCents,
		ClientRef:         req.ClientRef,
		RescheduledFromID: rescheduledFrom,
	}
	if err := tx.InsertAdSpot(ctx, spot); err != nil {
		return nil, err
	}
	return admitted(spot), nil
}

// coveringEvent returns the special event whose window contains the
// given day, preferring the earliest starting one for determinism.
func coveringEvent(events []model.SpecialEvent, day time.Time) *model.SpecialEvent {
	var found *model.SpecialEvent
	for i := range events {
		e := &events[i]
		if !e.ContainsDate(day) {
			continue
		}
		if found == nil || e.StartDate.Before(found.StartDate) {
			found = e
		}
	}
	return found
}
