// Package queue defines the message payloads exchanged over the
// broker and the background consumer that logs them.
package queue

// TeamJoinedEvent is published when a team enters a session. Consumers
// get enough to notify the lobby without querying the database; the
// team token is never part of any event.
type TeamJoinedEvent struct {
	SessionID uint64 `json:"session_id"`
	JoinCode  string `json:"join_code"`
	TeamID    string `json:"team_id"`
	TeamName  string `json:"team_name"`
	TeamCount uint32 `json:"team_count"`
	JoinedAt  string `json:"joined_at"`
}

// SessionStartedEvent is published when a leader starts the game.
type SessionStartedEvent struct {
	SessionID uint64 `json:"session_id"`
	TourID    uint64 `json:"tour_id"`
	Variant   string `json:"variant"`
	StartedAt string `json:"started_at"`
}

// OrderPaidEvent is published exactly once per order reaching paid
// status, after the payment transaction commits.
type OrderPaidEvent struct {
	OrderReference string `json:"order_reference"`
	TourID         uint64 `json:"tour_id"`
	SessionID      uint64 `json:"session_id,omitempty"`
	TotalCents     uint32 `json:"total_cents"`
	CouponCode     string `json:"coupon_code,omitempty"`
	PaidAt         string `json:"paid_at"`
}
