// Package ledger computes consumed and available capacity for a deal
// from its recorded ad spots, extra packages and special events.  There
// is deliberately no cached "remaining spots" column anywhere: the
// snapshot is recomputed from source records inside the same
// transaction as any admission decision, which removes an entire class
// of drift bugs.  The computation is pure – its result depends only on
// its inputs – so it can be unit tested deterministically and rerun
// safely on a transaction retry.
package ledger

import (
	"time"

	"github.com/iliyamo/tv-spot-scheduler/internal/model"
)

// Snapshot is the capacity position of one deal at a point in time.
// All Spots values share the deal's per-spot divisor and remain exact;
// RemainingSeconds is the same remainder expressed in airing seconds,
// which is the unit admission checks compare in.
type Snapshot struct {
	MaxSecondsPerSpot uint32           // divisor copied from the deal
	TotalSpots        Spots            // base pool plus committed extra packages
	ConsumedSpots     Spots            // pending + confirmed consumption
	RemainingSpots    Spots            // TotalSpots - ConsumedSpots
	RemainingSeconds  int64            // remainder in airing seconds
	DailySeconds      map[string]int64 // consumed seconds per calendar day
}

// DayKey buckets a timestamp into its UTC calendar day, the key used by
// Snapshot.DailySeconds.
func DayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// DailyConsumedSeconds returns the airing seconds already reserved on
// the given calendar day.
func (s *Snapshot) DailyConsumedSeconds(day time.Time) int64 {
	return s.DailySeconds[DayKey(day)]
}

// Compute derives a capacity snapshot for a deal from its committed
// extra packages and its ad spots.  Every committed package counts
// toward the pool regardless of its package date.  Only pending and
// confirmed spots consume capacity; failed spots contribute zero, which
// is the whole of the capacity-release mechanism.
func Compute(deal *model.Deal, packages []model.ExtraPackage, spots []model.AdSpot) Snapshot {
	total := SpotsFromCount(deal.TotalSpots, deal.MaxSecondsPerSpot)
	for _, p := range packages {
		total = total.Add(SpotsFromCount(p.AdditionalSpots, deal.MaxSecondsPerSpot))
	}

	consumed := SpotsFromSeconds(0, deal.MaxSecondsPerSpot)
	daily := make(map[string]int64)
	for i := range spots {
		sp := &spots[i]
		if !sp.CountsTowardCapacity() {
			continue
		}
		secs := sp.SecondsConsumed()
		consumed = consumed.Add(SpotsFromSeconds(secs, deal.MaxSecondsPerSpot))
		daily[DayKey(sp.ScheduledDate)] += secs
	}

	remaining := total.Sub(consumed)
	return Snapshot{
		MaxSecondsPerSpot: deal.MaxSecondsPerSpot,
		TotalSpots:        total,
		ConsumedSpots:     consumed,
		RemainingSpots:    remaining,
		RemainingSeconds:  remaining.Seconds(),
		DailySeconds:      daily,
	}
}
