// Package queue defines message payloads exchanged over the message broker.
package queue

// SpotLifecycleEvent is published whenever an ad spot changes state:
// admitted, confirmed, failed or rescheduled.  It carries enough
// information for downstream consumers to log, notify sales, or feed
// airing analytics without querying the primary database.
type SpotLifecycleEvent struct {
	SpotID            uint64  `json:"spot_id"`
	DealID            uint64  `json:"deal_id"`
	OperatorID        uint64  `json:"operator_id"`
	ChannelName       string  `json:"channel_name"`
	AdTitle           string  `json:"ad_title"`
	ScheduledDate     string  `json:"scheduled_date"`
	DurationSeconds   uint32  `json:"duration_seconds"`
	AiringCount       uint32  `json:"airing_count"`
	Status            string  `json:"status"`
	FailureReason     *string `json:"failure_reason,omitempty"`
	EventFeeCents     uint64  `json:"event_fee_cents"`
	RescheduledFromID *uint64 `json:"rescheduled_from_id,omitempty"`
	OccurredAt        string  `json:"occurred_at"`
}
