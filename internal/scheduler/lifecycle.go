package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/iliyamo/tv-spot-scheduler/internal/model"
)

// Confirm moves a pending spot to confirmed after its airing was
// verified.  Capacity does not change: the spot was already counted as
// consumed while pending.  Confirming a spot in any other state
// returns ErrInvalidTransition and leaves it untouched.
func (s *Service) Confirm(ctx context.Context, spotID uint64) (*model.AdSpot, error) {
	var out *model.AdSpot
	err := s.withRetry(ctx, func(tx Tx) error {
		spot, err := tx.AdSpotByID(ctx, spotID)
		if err != nil {
			return err
		}
		if spot.Status != model.SpotPending {
			return fmt.Errorf("%w: cannot confirm a %s spot", ErrInvalidTransition, spot.Status)
		}
		if err := tx.UpdateAdSpotStatus(ctx, spotID, model.SpotConfirmed, nil); err != nil {
			return err
		}
		spot.Status = model.SpotConfirmed
		out = spot
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Fail moves a pending spot to failed, recording why the airing did
// not happen.  No explicit capacity release is performed: the ledger
// excludes failed spots from consumption on its next computation,
// which frees the reserved share atomically with the status change.
func (s *Service) Fail(ctx context.Context, spotID uint64, reason string) (*model.AdSpot, error) {
	if reason == "" {
		return nil, fmt.Errorf("%w: failure reason is required", ErrValidation)
	}
	var out *model.AdSpot
	err := s.withRetry(ctx, func(tx Tx) error {
		spot, err := tx.AdSpotByID(ctx, spotID)
		if err != nil {
			return err
		}
		if spot.Status != model.SpotPending {
			return fmt.Errorf("%w: cannot fail a %s spot", ErrInvalidTransition, spot.Status)
		}
		if err := tx.UpdateAdSpotStatus(ctx, spotID, model.SpotFailed, &reason); err != nil {
			return err
		}
		spot.Status = model.SpotFailed
		spot.FailureReason = &reason
		out = spot
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// RescheduleRequest carries the overrides for rescheduling a failed
// spot.  NewDate is required; duration and airing count default to the
// failed spot's values when nil.
type RescheduleRequest struct {
	NewDate            time.Time
	NewDurationSeconds *uint32
	NewAiringCount     *uint32
}

// Reschedule builds a fresh candidate from a failed spot and re-submits
// it through the same admission checks against the same deal, all in
// one transaction.  On success a new pending spot is inserted carrying
// a reference to the failed one, which stays untouched as audit
// history.  On rejection nothing changes and the Decision tells the
// caller why – for example the new date falling outside the contract
// window, or intervening bookings having consumed the freed capacity.
// Rescheduling a spot that is not failed returns ErrInvalidTransition.
func (s *Service) Reschedule(ctx context.Context, spotID uint64, req RescheduleRequest) (*Decision, error) {
	var dec *Decision
	err := s.withRetry(ctx, func(tx Tx) error {
		spot, err := tx.AdSpotByID(ctx, spotID)
		if err != nil {
			return err
		}
		if spot.Status != model.SpotFailed {
			return fmt.Errorf("%w: cannot reschedule a %s spot", ErrInvalidTransition, spot.Status)
		}
		candidate := AdmitRequest{
			DealID:          spot.DealID,
			AdminID:         spot.AdminID,
			CategoryID:      spot.CategoryID,
			BrandID:         spot.BrandID,
			SubBrandID:      spot.SubBrandID,
			AdTitle:         spot.AdTitle,
			ScheduledDate:   req.NewDate,
			DurationSeconds: spot.DurationSeconds,
			AiringCount:     spot.AiringCount,
		}
		if req.NewDurationSeconds != nil {
			candidate.DurationSeconds = *req.NewDurationSeconds
		}
		if req.NewAiringCount != nil {
			candidate.AiringCount = *req.NewAiringCount
		}
		if candidate.DurationSeconds == 0 || candidate.AiringCount == 0 {
			return fmt.Errorf("%w: duration and airing count must be positive", ErrValidation)
		}
		d, err := s.admit(ctx, tx, candidate, &spot.ID)
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
