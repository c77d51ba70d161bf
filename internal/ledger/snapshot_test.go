package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/tv-spot-scheduler/internal/model"
)

func day(s string) time.Time {
	t, err := time.ParseInLocation("2006-01-02", s, time.UTC)
	if err != nil {
		panic(err)
	}
	return t
}

func testDeal(total, perSpot uint32) *model.Deal {
	return &model.Deal{
		ID:                1,
		ChannelName:       "Channel One",
		StartDate:         day("2026-06-01"),
		EndDate:           day("2026-06-30"),
		TotalSpots:        total,
		MaxSecondsPerSpot: perSpot,
	}
}

func spot(id uint64, d string, dur, count uint32, status string) model.AdSpot {
	return model.AdSpot{
		ID:              id,
		DealID:          1,
		ScheduledDate:   day(d),
		DurationSeconds: dur,
		AiringCount:     count,
		Status:          status,
	}
}

func TestComputeEmptyDeal(t *testing.T) {
	snap := Compute(testDeal(10, 30), nil, nil)
	assert.Equal(t, "10", snap.TotalSpots.String())
	assert.Equal(t, "0", snap.ConsumedSpots.String())
	assert.Equal(t, "10", snap.RemainingSpots.String())
	assert.Equal(t, int64(300), snap.RemainingSeconds)
}

func TestComputeCountsPendingAndConfirmedOnly(t *testing.T) {
	spots := []model.AdSpot{
		spot(1, "2026-06-02", 30, 4, model.SpotPending),   // 120s
		spot(2, "2026-06-03", 15, 2, model.SpotConfirmed), // 30s
		spot(3, "2026-06-04", 30, 2, model.SpotFailed),    // excluded
	}
	snap := Compute(testDeal(10, 30), nil, spots)
	assert.Equal(t, "5", snap.ConsumedSpots.String())
	assert.Equal(t, "5", snap.RemainingSpots.String())
	assert.Equal(t, int64(150), snap.RemainingSeconds)
}

func TestComputeExtraPackagesExtendThePool(t *testing.T) {
	packages := []model.ExtraPackage{
		{ID: 1, DealID: 1, AdditionalSpots: 2, PackageDate: day("2026-06-10")},
		{ID: 2, DealID: 1, AdditionalSpots: 1, PackageDate: day("2026-06-20")},
	}
	snap := Compute(testDeal(10, 30), packages, nil)
	assert.Equal(t, "13", snap.TotalSpots.String())
	assert.Equal(t, int64(390), snap.RemainingSeconds)
}

func TestComputeFractionalConsumption(t *testing.T) {
	spots := []model.AdSpot{
		spot(1, "2026-06-02", 15, 1, model.SpotPending), // half a spot
	}
	snap := Compute(testDeal(1, 30), nil, spots)
	assert.Equal(t, "0.5", snap.ConsumedSpots.String())
	assert.Equal(t, "0.5", snap.RemainingSpots.String())
	assert.Equal(t, int64(15), snap.RemainingSeconds)
}

func TestComputeDailyBuckets(t *testing.T) {
	spots := []model.AdSpot{
		spot(1, "2026-06-02", 30, 2, model.SpotPending),
		spot(2, "2026-06-02", 15, 1, model.SpotConfirmed),
		spot(3, "2026-06-03", 30, 1, model.SpotPending),
		spot(4, "2026-06-02", 30, 5, model.SpotFailed), // excluded
	}
	snap := Compute(testDeal(10, 30), nil, spots)
	assert.Equal(t, int64(75), snap.DailyConsumedSeconds(day("2026-06-02")))
	assert.Equal(t, int64(30), snap.DailyConsumedSeconds(day("2026-06-03")))
	assert.Equal(t, int64(0), snap.DailyConsumedSeconds(day("2026-06-04")))
}

// Walks the full over-commitment story: a large request is rejected,
// freeing a failed spot makes room, and afterwards the pool is exactly
// exhausted.
func TestComputeReleaseOnFailure(t *testing.T) {
	deal := testDeal(10, 30) // 300 seconds total

	a := spot(1, "2026-06-02", 30, 4, model.SpotPending) // 120s
	snap := Compute(deal, nil, []model.AdSpot{a})
	require.Equal(t, int64(180), snap.RemainingSeconds)

	// B needs 15s x 20 = 300s; more than the 180 remaining.
	bNeed := int64(15) * 20
	assert.Greater(t, bNeed, snap.RemainingSeconds)

	// A fails, its 120s return to the pool.
	a.Status = model.SpotFailed
	reason := "preempted by breaking news"
	a.FailureReason = &reason
	snap = Compute(deal, nil, []model.AdSpot{a})
	require.Equal(t, int64(300), snap.RemainingSeconds)
	assert.LessOrEqual(t, bNeed, snap.RemainingSeconds)

	// B admitted: the pool is exactly exhausted, and the failed row
	// still does not count.
	b := spot(2, "2026-06-05", 15, 20, model.SpotPending)
	snap = Compute(deal, nil, []model.AdSpot{a, b})
	assert.Equal(t, int64(0), snap.RemainingSeconds)
	assert.Equal(t, "10", snap.ConsumedSpots.String())
}
