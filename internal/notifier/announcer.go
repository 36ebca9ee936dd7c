package notifier

import (
	"context"
	"log"

	"RafflePool/internal/model"
)

// Announcer forwards raffle events to Telegram. Sends happen on their own
// goroutine so a slow network never blocks the engine. Entry notices are
// delivered silent; draw starts and winners ring through.
type Announcer struct {
	Notifier *TelegramNotifier
	Ctx      context.Context
}

// NewAnnouncer creates an Announcer.
func NewAnnouncer(ctx context.Context, t *TelegramNotifier) *Announcer {
	return &Announcer{Notifier: t, Ctx: ctx}
}

func (a *Announcer) OnEntered(evt model.EntryEvent) {
	go a.trySend(Message{Text: FormatEntry(evt), Silent: true})
}

func (a *Announcer) OnDrawRequested(evt model.DrawRequestEvent) {
	go a.trySend(Message{Text: FormatDrawRequested(evt)})
}

func (a *Announcer) OnWinnerSelected(evt model.SettlementEvent) {
	go a.trySend(Message{Text: FormatWinner(evt)})
}

func (a *Announcer) trySend(msg Message) {
	if err := a.Notifier.SendWithRetry(a.Ctx, msg); err != nil {
		log.Printf("[ERROR] send announcement: %v", err)
	}
}
