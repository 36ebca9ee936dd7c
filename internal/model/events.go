package model

// EntryEvent is emitted when a participant joins the current cycle.
type EntryEvent struct {
	Address      string
	Contribution int64
	Pool         int64
}

// DrawRequestEvent is emitted when a randomness request has been issued.
type DrawRequestEvent struct {
	Round     string
	RequestID uint64
	Entrants  int
	Pool      int64
}

// SettlementEvent is emitted when a winner has been paid and the cycle reset.
type SettlementEvent struct {
	Round       string
	RequestID   uint64
	RandomValue uint64
	WinnerIndex int
	Winner      string
	Prize       int64
}
