package model

import "time"

// Status is the lifecycle state of the raffle.
type Status int32

const (
	// StatusOpen accepts entries; a draw may be requested.
	StatusOpen Status = iota
	// StatusDrawing has a randomness request outstanding; entries are blocked.
	StatusDrawing
)

func (s Status) String() string {
	switch s {
	case StatusOpen:
		return "OPEN"
	case StatusDrawing:
		return "DRAWING"
	default:
		return "UNKNOWN"
	}
}

// RaffleState is the single mutable state of the raffle. It is owned by the
// engine and persisted as JSON after every committed mutation.
type RaffleState struct {
	Status             Status    `json:"status"`
	Entrants           []string  `json:"entrants"`
	Pool               int64     `json:"pool"`
	LastSettlementTime time.Time `json:"last_settlement_time"`
	// PendingRequestID is meaningful only while Status is DRAWING.
	PendingRequestID uint64 `json:"pending_request_id"`
	// Round identifies the draw cycle the pending request belongs to.
	Round      string    `json:"round"`
	LastWinner string    `json:"last_winner"`
	UpdatedAt  time.Time `json:"updated_at"`
}
