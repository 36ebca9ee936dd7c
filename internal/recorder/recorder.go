package recorder

import (
	"log"

	"RafflePool/internal/model"
)

// Recorder persists raffle history for analysis and audit.
type Recorder interface {
	RecordEntry(evt *model.EntryEvent) error
	RecordDrawRequest(evt *model.DrawRequestEvent) error
	RecordSettlement(evt *model.SettlementEvent) error
	Close() error
}

// ListenerAdapter bridges raffle events into a Recorder, logging record
// failures instead of propagating them into the engine.
type ListenerAdapter struct {
	R Recorder
}

func (a ListenerAdapter) OnEntered(evt model.EntryEvent) {
	if err := a.R.RecordEntry(&evt); err != nil {
		log.Printf("[ERROR] record entry: %v", err)
	}
}

func (a ListenerAdapter) OnDrawRequested(evt model.DrawRequestEvent) {
	if err := a.R.RecordDrawRequest(&evt); err != nil {
		log.Printf("[ERROR] record draw request: %v", err)
	}
}

func (a ListenerAdapter) OnWinnerSelected(evt model.SettlementEvent) {
	if err := a.R.RecordSettlement(&evt); err != nil {
		log.Printf("[ERROR] record settlement: %v", err)
	}
}
