package scheduler

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/tv-spot-scheduler/internal/ledger"
	"github.com/iliyamo/tv-spot-scheduler/internal/model"
)

// fakeStore is an in-memory Store with transaction semantics: every
// WithinTx stages its writes and publishes them only when the callback
// succeeds.  The mutex serializes transactions the way the database
// deal lock does.
type fakeStore struct {
	mu       sync.Mutex
	deal     *model.Deal
	events   []model.SpecialEvent
	packages []model.ExtraPackage
	spots    []model.AdSpot
	nextID   uint64
}

func (f *fakeStore) WithinTx(ctx context.Context, fn func(tx Tx) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	tx := &fakeTx{
		store:  f,
		spots:  append([]model.AdSpot(nil), f.spots...),
		nextID: f.nextID,
	}
	if err := fn(tx); err != nil {
		return err
	}
	f.spots = tx.spots
	f.nextID = tx.nextID
	return nil
}

func (f *fakeStore) snapshot() ledger.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return ledger.Compute(f.deal, f.packages, f.spots)
}

func (f *fakeStore) spotByID(id uint64) (model.AdSpot, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.spots {
		if f.spots[i].ID == id {
			return f.spots[i], true
		}
	}
	return model.AdSpot{}, false
}

type fakeTx struct {
	store  *fakeStore
	spots  []model.AdSpot
	nextID uint64
}

func (t *fakeTx) DealAggregate(ctx context.Context, dealID uint64) (*DealAggregate, error) {
	if t.store.deal == nil || t.store.deal.ID != dealID || t.store.deal.DeletedAt != nil {
		return nil, fmt.Errorf("deal %d: %w", dealID, ErrNotFound)
	}
	d := *t.store.deal
	return &DealAggregate{
		Deal:          &d,
		SpecialEvents: append([]model.SpecialEvent(nil), t.store.events...),
		ExtraPackages: append([]model.ExtraPackage(nil), t.store.packages...),
		AdSpots:       append([]model.AdSpot(nil), t.spots...),
	}, nil
}

func (t *fakeTx) AdSpotByClientRef(ctx context.Context, dealID uint64, ref string) (*model.AdSpot, error) {
	for i := range t.spots {
		s := t.spots[i]
		if s.DealID == dealID && s.ClientRef != nil && *s.ClientRef == ref {
			return &s, nil
		}
	}
	return nil, nil
}

func (t *fakeTx) InsertAdSpot(ctx context.Context, spot *model.AdSpot) error {
	t.nextID++
	spot.ID = t.nextID
	spot.CreatedAt = time.Now().UTC()
	spot.UpdatedAt = spot.CreatedAt
	t.spots = append(t.spots, *spot)
	return nil
}

func (t *fakeTx) AdSpotByID(ctx context.Context, spotID uint64) (*model.AdSpot, error) {
	for i := range t.spots {
		if t.spots[i].ID == spotID {
			s := t.spots[i]
			return &s, nil
		}
	}
	return nil, fmt.Errorf("spot %d: %w", spotID, ErrNotFound)
}

func (t *fakeTx) UpdateAdSpotStatus(ctx context.Context, spotID uint64, status string, failureReason *string) error {
	for i := range t.spots {
		if t.spots[i].ID == spotID {
			t.spots[i].Status = status
			if failureReason != nil {
				t.spots[i].FailureReason = failureReason
			}
			return nil
		}
	}
	return fmt.Errorf("spot %d: %w", spotID, ErrNotFound)
}

// ----- helpers -----

func day(s string) time.Time {
	t, err := time.ParseInLocation("2006-01-02", s, time.UTC)
	if err != nil {
		panic(err)
	}
	return t
}

func newDeal(total, perSpot uint32, dailyCap *uint32) *model.Deal {
	return &model.Deal{
		ID:                1,
		AdminID:           7,
		ChannelName:       "Channel One",
		StartDate:         day("2026-06-01"),
		EndDate:           day("2026-06-30"),
		TotalSpots:        total,
		MaxSecondsPerSpot: perSpot,
		DailyCapSeconds:   dailyCap,
	}
}

func newFixture(deal *model.Deal) (*fakeStore, *Service) {
	store := &fakeStore{deal: deal}
	return store, NewService(store, 3, time.Millisecond)
}

func admitReq(date string, dur, count uint32) AdmitRequest {
	return AdmitRequest{
		DealID:          1,
		AdminID:         7,
		AdTitle:         "Spring campaign",
		ScheduledDate:   day(date),
		DurationSeconds: dur,
		AiringCount:     count,
	}
}

func mustAdmit(t *testing.T, svc *Service, req AdmitRequest) *model.AdSpot {
	t.Helper()
	dec, err := svc.TryAdmit(context.Background(), req)
	require.NoError(t, err)
	require.True(t, dec.Admitted, "expected admission, got %s: %s", dec.Reason, dec.Message)
	return dec.Spot
}

// ----- admission -----

func TestAdmitConsumesCapacityExactly(t *testing.T) {
	store, svc := newFixture(newDeal(10, 30, nil))

	// 30s x 4 airings = 4 whole spots.
	spotA := mustAdmit(t, svc, admitReq("2026-06-02", 30, 4))
	assert.Equal(t, model.SpotPending, spotA.Status)
	assert.Equal(t, int64(180), store.snapshot().RemainingSeconds)

	// 15s x 20 = 300 seconds; only 180 remain.
	dec, err := svc.TryAdmit(context.Background(), admitReq("2026-06-05", 15, 20))
	require.NoError(t, err)
	require.False(t, dec.Admitted)
	assert.Equal(t, RejectInsufficientCapacity, dec.Reason)
	assert.Contains(t, dec.Message, "only 6 spots remain")
	assert.Contains(t, dec.Message, "needs 10")

	// Failing A returns its 4 spots to the pool...
	_, err = svc.Fail(context.Background(), spotA.ID, "transmission fault")
	require.NoError(t, err)
	assert.Equal(t, int64(300), store.snapshot().RemainingSeconds)

	// ...and the rejected request now fits exactly.
	spotB := mustAdmit(t, svc, admitReq("2026-06-05", 15, 20))
	assert.Equal(t, int64(0), store.snapshot().RemainingSeconds)

	// Nothing further fits, not even a single second.
	dec, err = svc.TryAdmit(context.Background(), admitReq("2026-06-06", 1, 1))
	require.NoError(t, err)
	assert.False(t, dec.Admitted)
	assert.Equal(t, RejectInsufficientCapacity, dec.Reason)

	// The failed spot stays in history next to the admitted one.
	failed, ok := store.spotByID(spotA.ID)
	require.True(t, ok)
	assert.Equal(t, model.SpotFailed, failed.Status)
	_, ok = store.spotByID(spotB.ID)
	assert.True(t, ok)
}

func TestAdmitWindowBoundariesInclusive(t *testing.T) {
	_, svc := newFixture(newDeal(10, 30, nil))

	// Both boundary days are schedulable.
	mustAdmit(t, svc, admitReq("2026-06-01", 30, 1))
	mustAdmit(t, svc, admitReq("2026-06-30", 30, 1))

	// One day past the end is not.
	dec, err := svc.TryAdmit(context.Background(), admitReq("2026-07-01", 30, 1))
	require.NoError(t, err)
	require.False(t, dec.Admitted)
	assert.Equal(t, RejectOutsideContractWindow, dec.Reason)
	assert.Contains(t, dec.Message, "2026-07-01")
}

func TestAdmitSpecialEventWidensWindowAndSetsFee(t *testing.T) {
	deal := newDeal(10, 30, nil)
	store, svc := newFixture(deal)
	store.events = []model.SpecialEvent{{
		ID:            1,
		DealID:        1,
		EventName:     "Cup Final",
		StartDate:     day("2026-07-03"),
		EndDate:       day("2026-07-05"),
		ExtraFeeCents: 50_000,
	}}

	// Inside the event window but outside the base range: admitted,
	// with the surcharge resolved onto the spot.
	spot := mustAdmit(t, svc, admitReq("2026-07-04", 30, 1))
	assert.Equal(t, uint64(50_000), spot.EventFeeCents)

	// Between the base range and the event window: rejected.
	dec, err := svc.TryAdmit(context.Background(), admitReq("2026-07-02", 30, 1))
	require.NoError(t, err)
	require.False(t, dec.Admitted)
	assert.Equal(t, RejectOutsideContractWindow, dec.Reason)

	// Inside the base range, no event: no surcharge.
	plain := mustAdmit(t, svc, admitReq("2026-06-10", 30, 1))
	assert.Zero(t, plain.EventFeeCents)
}

func TestAdmitDailyCap(t *testing.T) {
	dailyCap := uint32(60)
	_, svc := newFixture(newDeal(10, 30, &dailyCap))

	mustAdmit(t, svc, admitReq("2026-06-02", 30, 1))
	mustAdmit(t, svc, admitReq("2026-06-02", 30, 1)) // exactly at the cap

	dec, err := svc.TryAdmit(context.Background(), admitReq("2026-06-02", 30, 1))
	require.NoError(t, err)
	require.False(t, dec.Admitted)
	assert.Equal(t, RejectDailyCapExceeded, dec.Reason)
	assert.Contains(t, dec.Message, "2026-06-02")

	// The cap binds per day, not per deal.
	mustAdmit(t, svc, admitReq("2026-06-03", 30, 1))
}

func TestAdmitExtraPackageExtendsPool(t *testing.T) {
	store, svc := newFixture(newDeal(1, 30, nil))

	mustAdmit(t, svc, admitReq("2026-06-02", 30, 1))

	dec, err := svc.TryAdmit(context.Background(), admitReq("2026-06-03", 30, 1))
	require.NoError(t, err)
	require.False(t, dec.Admitted)

	store.mu.Lock()
	store.packages = append(store.packages, model.ExtraPackage{
		ID: 1, DealID: 1, AdditionalSpots: 1, PackageDate: day("2026-06-02"),
	})
	store.mu.Unlock()

	mustAdmit(t, svc, admitReq("2026-06-03", 30, 1))
}

func TestAdmitValidation(t *testing.T) {
	_, svc := newFixture(newDeal(10, 30, nil))

	_, err := svc.TryAdmit(context.Background(), admitReq("2026-06-02", 0, 1))
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.TryAdmit(context.Background(), admitReq("2026-06-02", 30, 0))
	assert.ErrorIs(t, err, ErrValidation)
}

func TestAdmitUnknownDeal(t *testing.T) {
	_, svc := newFixture(newDeal(10, 30, nil))
	req := admitReq("2026-06-02", 30, 1)
	req.DealID = 99
	_, err := svc.TryAdmit(context.Background(), req)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAdmitIdempotentClientRef(t *testing.T) {
	store, svc := newFixture(newDeal(10, 30, nil))

	ref := "order-4711"
	req := admitReq("2026-06-02", 30, 1)
	req.ClientRef = &ref

	first := mustAdmit(t, svc, req)
	second := mustAdmit(t, svc, req)
	assert.Equal(t, first.ID, second.ID)

	// The repeat consumed nothing.
	assert.Equal(t, int64(270), store.snapshot().RemainingSeconds)
}

// ----- lifecycle -----

func TestConfirmTransitions(t *testing.T) {
	_, svc := newFixture(newDeal(10, 30, nil))
	spot := mustAdmit(t, svc, admitReq("2026-06-02", 30, 1))

	confirmed, err := svc.Confirm(context.Background(), spot.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SpotConfirmed, confirmed.Status)

	// Confirmed is terminal.
	_, err = svc.Confirm(context.Background(), spot.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = svc.Fail(context.Background(), spot.ID, "too late")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestFailRequiresReason(t *testing.T) {
	_, svc := newFixture(newDeal(10, 30, nil))
	spot := mustAdmit(t, svc, admitReq("2026-06-02", 30, 1))

	_, err := svc.Fail(context.Background(), spot.ID, "")
	assert.ErrorIs(t, err, ErrValidation)

	failed, err := svc.Fail(context.Background(), spot.ID, "preempted by breaking news")
	require.NoError(t, err)
	require.NotNil(t, failed.FailureReason)
	assert.Equal(t, "preempted by breaking news", *failed.FailureReason)

	// Failed is terminal for direct transitions.
	_, err = svc.Confirm(context.Background(), spot.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = svc.Fail(context.Background(), spot.ID, "again")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestLifecycleUnknownSpot(t *testing.T) {
	_, svc := newFixture(newDeal(10, 30, nil))
	_, err := svc.Confirm(context.Background(), 42)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.Fail(context.Background(), 42, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

// ----- reschedule -----

func TestRescheduleCreatesNewSpotAndKeepsAudit(t *testing.T) {
	store, svc := newFixture(newDeal(10, 30, nil))
	spot := mustAdmit(t, svc, admitReq("2026-06-02", 30, 2))
	_, err := svc.Fail(context.Background(), spot.ID, "transmission fault")
	require.NoError(t, err)

	dec, err := svc.Reschedule(context.Background(), spot.ID, RescheduleRequest{NewDate: day("2026-06-10")})
	require.NoError(t, err)
	require.True(t, dec.Admitted)

	// New row, linked back, inheriting duration and airing count.
	assert.NotEqual(t, spot.ID, dec.Spot.ID)
	require.NotNil(t, dec.Spot.RescheduledFromID)
	assert.Equal(t, spot.ID, *dec.Spot.RescheduledFromID)
	assert.Equal(t, spot.DurationSeconds, dec.Spot.DurationSeconds)
	assert.Equal(t, spot.AiringCount, dec.Spot.AiringCount)
	assert.Equal(t, model.SpotPending, dec.Spot.Status)

	// The failed original is untouched.
	old, ok := store.spotByID(spot.ID)
	require.True(t, ok)
	assert.Equal(t, model.SpotFailed, old.Status)
	require.NotNil(t, old.FailureReason)
	assert.Equal(t, "transmission fault", *old.FailureReason)
}

func TestRescheduleOverrides(t *testing.T) {
	_, svc := newFixture(newDeal(10, 30, nil))
	spot := mustAdmit(t, svc, admitReq("2026-06-02", 30, 2))
	_, err := svc.Fail(context.Background(), spot.ID, "transmission fault")
	require.NoError(t, err)

	dur := uint32(15)
	count := uint32(4)
	dec, err := svc.Reschedule(context.Background(), spot.ID, RescheduleRequest{
		NewDate:            day("2026-06-11"),
		NewDurationSeconds: &dur,
		NewAiringCount:     &count,
	})
	require.NoError(t, err)
	require.True(t, dec.Admitted)
	assert.Equal(t, dur, dec.Spot.DurationSeconds)
	assert.Equal(t, count, dec.Spot.AiringCount)
}

func TestRescheduleRunsAdmissionChecks(t *testing.T) {
	store, svc := newFixture(newDeal(2, 30, nil))
	spot := mustAdmit(t, svc, admitReq("2026-06-02", 30, 2)) // fills the deal
	_, err := svc.Fail(context.Background(), spot.ID, "transmission fault")
	require.NoError(t, err)

	// Someone else takes the freed capacity first.
	mustAdmit(t, svc, admitReq("2026-06-04", 30, 2))

	// The reschedule must now lose the race.
	dec, err := svc.Reschedule(context.Background(), spot.ID, RescheduleRequest{NewDate: day("2026-06-10")})
	require.NoError(t, err)
	require.False(t, dec.Admitted)
	assert.Equal(t, RejectInsufficientCapacity, dec.Reason)

	// A new date outside the window is rejected too.
	dec, err = svc.Reschedule(context.Background(), spot.ID, RescheduleRequest{NewDate: day("2026-08-01")})
	require.NoError(t, err)
	require.False(t, dec.Admitted)
	assert.Equal(t, RejectOutsideContractWindow, dec.Reason)

	// Neither rejection inserted anything.
	assert.Len(t, store.spots, 2)
}

func TestRescheduleOnlyFromFailed(t *testing.T) {
	_, svc := newFixture(newDeal(10, 30, nil))
	pending := mustAdmit(t, svc, admitReq("2026-06-02", 30, 1))

	_, err := svc.Reschedule(context.Background(), pending.ID, RescheduleRequest{NewDate: day("2026-06-10")})
	assert.ErrorIs(t, err, ErrInvalidTransition)

	confirmed := mustAdmit(t, svc, admitReq("2026-06-03", 30, 1))
	_, err = svc.Confirm(context.Background(), confirmed.ID)
	require.NoError(t, err)
	_, err = svc.Reschedule(context.Background(), confirmed.ID, RescheduleRequest{NewDate: day("2026-06-10")})
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

// ----- concurrency -----

func TestConcurrentAdmissionsNeverOverbook(t *testing.T) {
	store, svc := newFixture(newDeal(10, 30, nil))

	const attempts = 40
	var wg sync.WaitGroup
	results := make([]bool, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req := admitReq("2026-06-02", 30, 1)
			dec, err := svc.TryAdmit(context.Background(), req)
			if err == nil && dec.Admitted {
				results[i] = true
			}
		}(i)
	}
	wg.Wait()

	admitted := 0
	for _, ok := range results {
		if ok {
			admitted++
		}
	}
	assert.Equal(t, 10, admitted)
	assert.Equal(t, int64(0), store.snapshot().RemainingSeconds)
	assert.False(t, store.snapshot().RemainingSpots.Negative())
}

func TestRandomizedWorkloadNeverGoesNegative(t *testing.T) {
	dailyCap := uint32(120)
	store, svc := newFixture(newDeal(20, 30, &dailyCap))
	rng := rand.New(rand.NewSource(1))

	var admittedIDs []uint64
	for i := 0; i < 400; i++ {
		switch rng.Intn(3) {
		case 0, 1:
			req := admitReq(fmt.Sprintf("2026-06-%02d", 1+rng.Intn(30)), uint32(5+rng.Intn(30)), uint32(1+rng.Intn(3)))
			dec, err := svc.TryAdmit(context.Background(), req)
			require.NoError(t, err)
			if dec.Admitted {
				admittedIDs = append(admittedIDs, dec.Spot.ID)
			}
		case 2:
			if len(admittedIDs) > 0 {
				idx := rng.Intn(len(admittedIDs))
				id := admittedIDs[idx]
				if spot, ok := store.spotByID(id); ok && spot.Status == model.SpotPending {
					_, err := svc.Fail(context.Background(), id, "randomized failure")
					require.NoError(t, err)
				}
			}
		}

		snap := store.snapshot()
		require.False(t, snap.RemainingSpots.Negative(), "capacity overshoot at step %d", i)
		require.GreaterOrEqual(t, snap.RemainingSeconds, int64(0))
		for d, used := range snap.DailySeconds {
			require.LessOrEqual(t, used, int64(dailyCap), "daily cap overshoot on %s", d)
		}
	}
}

// ----- retry behaviour -----

// conflictStore wraps a Store and injects transaction conflicts for the
// first n attempts.
type conflictStore struct {
	inner     Store
	mu        sync.Mutex
	conflicts int
	calls     int
}

func (c *conflictStore) WithinTx(ctx context.Context, fn func(tx Tx) error) error {
	c.mu.Lock()
	c.calls++
	inject := c.conflicts > 0
	if inject {
		c.conflicts--
	}
	c.mu.Unlock()
	if inject {
		return fmt.Errorf("%w: deadlock found when trying to get lock", ErrTxConflict)
	}
	return c.inner.WithinTx(ctx, fn)
}

func TestAdmitRetriesOnTxConflict(t *testing.T) {
	inner := &fakeStore{deal: newDeal(10, 30, nil)}
	cs := &conflictStore{inner: inner, conflicts: 2}
	svc := NewService(cs, 3, time.Millisecond)

	dec, err := svc.TryAdmit(context.Background(), admitReq("2026-06-02", 30, 1))
	require.NoError(t, err)
	assert.True(t, dec.Admitted)
	assert.Equal(t, 3, cs.calls)
}

func TestAdmitGivesUpAfterRetryBudget(t *testing.T) {
	inner := &fakeStore{deal: newDeal(10, 30, nil)}
	cs := &conflictStore{inner: inner, conflicts: 100}
	svc := NewService(cs, 3, time.Millisecond)

	_, err := svc.TryAdmit(context.Background(), admitReq("2026-06-02", 30, 1))
	assert.ErrorIs(t, err, ErrConcurrencyConflict)
	assert.Equal(t, 3, cs.calls)
}
