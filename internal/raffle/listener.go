package raffle

import "RafflePool/internal/model"

// Listener observes the three raffle notifications. Callbacks run inside the
// engine's critical section; implementations must be quick and must not call
// back into mutating engine operations.
type Listener interface {
	OnEntered(evt model.EntryEvent)
	OnDrawRequested(evt model.DrawRequestEvent)
	OnWinnerSelected(evt model.SettlementEvent)
}

// Listeners fans an event out to multiple listeners in order.
type Listeners []Listener

func (ls Listeners) OnEntered(evt model.EntryEvent) {
	for _, l := range ls {
		l.OnEntered(evt)
	}
}

func (ls Listeners) OnDrawRequested(evt model.DrawRequestEvent) {
	for _, l := range ls {
		l.OnDrawRequested(evt)
	}
}

func (ls Listeners) OnWinnerSelected(evt model.SettlementEvent) {
	for _, l := range ls {
		l.OnWinnerSelected(evt)
	}
}

type nopListener struct{}

func (nopListener) OnEntered(model.EntryEvent)             {}
func (nopListener) OnDrawRequested(model.DrawRequestEvent) {}
func (nopListener) OnWinnerSelected(model.SettlementEvent) {}
