package notifier

import (
	"fmt"
	"strings"
	"time"

	"RafflePool/internal/model"
)

// FormatStatus formats the current raffle state for display.
func FormatStatus(state *model.RaffleState, fee int64, interval time.Duration) string {
	var b strings.Builder
	b.WriteString("🎟 <b>Raffle status</b>\n\n")
	b.WriteString(fmt.Sprintf("State: %s\n", state.Status))
	b.WriteString(fmt.Sprintf("Entrants: %d\n", len(state.Entrants)))
	b.WriteString(fmt.Sprintf("Pool: %d\n", state.Pool))
	b.WriteString(fmt.Sprintf("Entry fee: %d\n", fee))
	b.WriteString(fmt.Sprintf("Draw interval: %s\n", interval))
	if state.Status == model.StatusDrawing {
		b.WriteString(fmt.Sprintf("Pending request: %d\n", state.PendingRequestID))
	}
	if state.LastWinner != "" {
		b.WriteString(fmt.Sprintf("Last winner: %s\n", state.LastWinner))
	}
	b.WriteString(fmt.Sprintf("Last settlement: %s\n", state.LastSettlementTime.Format("2006-01-02 15:04:05")))
	return b.String()
}

// FormatEntry formats an entry announcement.
func FormatEntry(evt model.EntryEvent) string {
	return fmt.Sprintf("🎫 <b>%s</b> entered with %d. Pool is now %d.",
		evt.Address, evt.Contribution, evt.Pool)
}

// FormatDrawRequested formats a draw-start announcement.
func FormatDrawRequested(evt model.DrawRequestEvent) string {
	return fmt.Sprintf("🎲 <b>Draw started</b> | request %d\n\n%d entrants, pool %d. Waiting on the randomness beacon…",
		evt.RequestID, evt.Entrants, evt.Pool)
}

// FormatWinner formats a settlement announcement.
func FormatWinner(evt model.SettlementEvent) string {
	return fmt.Sprintf("🏆 <b>Winner!</b>\n\n<b>%s</b> takes the pool of %d (slot %d of the draw).\nA new round is open — good luck!",
		evt.Winner, evt.Prize, evt.WinnerIndex)
}
