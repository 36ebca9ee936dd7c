package raffle

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"
	"time"

	"RafflePool/internal/bank"
	"RafflePool/internal/model"
	"RafflePool/internal/statestore"
)

// fakeOracle hands out scripted request ids and never calls back on its own;
// tests drive Fulfill directly.
type fakeOracle struct {
	nextID uint64
	calls  int
	err    error
}

func (o *fakeOracle) Request(_ context.Context) (uint64, error) {
	if o.err != nil {
		return 0, o.err
	}
	o.calls++
	return o.nextID, nil
}

// captureListener records emitted events.
type captureListener struct {
	entries     []model.EntryEvent
	requests    []model.DrawRequestEvent
	settlements []model.SettlementEvent
}

func (c *captureListener) OnEntered(evt model.EntryEvent)             { c.entries = append(c.entries, evt) }
func (c *captureListener) OnDrawRequested(evt model.DrawRequestEvent) { c.requests = append(c.requests, evt) }
func (c *captureListener) OnWinnerSelected(evt model.SettlementEvent) {
	c.settlements = append(c.settlements, evt)
}

func newTestEngine(t *testing.T, fee int64, interval time.Duration, o *fakeOracle, b bank.Transferer, l Listener) *Engine {
	t.Helper()
	store := statestore.NewFileStore(filepath.Join(t.TempDir(), "state.json"))
	e, err := NewEngine(store, fee, interval, o, b, l)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return e
}

// startDraw enters the given participants and drives the engine into
// DRAWING, returning the request id.
func startDraw(t *testing.T, e *Engine, contribution int64, participants ...string) uint64 {
	t.Helper()
	for _, p := range participants {
		if err := e.Enter(p, contribution); err != nil {
			t.Fatalf("enter %s: %v", p, err)
		}
	}
	time.Sleep(3 * time.Millisecond)
	id, err := e.PerformUpkeep(context.Background())
	if err != nil {
		t.Fatalf("perform upkeep: %v", err)
	}
	return id
}

func TestEnterBelowFeeRejected(t *testing.T) {
	e := newTestEngine(t, 100, time.Minute, &fakeOracle{nextID: 1}, bank.NewInMemory(), nil)

	err := e.Enter("alice", 50)
	if !errors.Is(err, ErrInsufficientContribution) {
		t.Fatalf("expected ErrInsufficientContribution, got %v", err)
	}
	if e.EntrantCount() != 0 || e.Pool() != 0 {
		t.Errorf("ledger changed after rejected entry: entrants=%d pool=%d", e.EntrantCount(), e.Pool())
	}
}

func TestEnterAccumulatesPool(t *testing.T) {
	e := newTestEngine(t, 100, time.Minute, &fakeOracle{nextID: 1}, bank.NewInMemory(), nil)

	if err := e.Enter("alice", 100); err != nil {
		t.Fatalf("enter: %v", err)
	}
	if err := e.Enter("alice", 150); err != nil {
		t.Fatalf("re-enter: %v", err)
	}
	if e.EntrantCount() != 2 {
		t.Errorf("expected 2 slots (duplicates allowed), got %d", e.EntrantCount())
	}
	if e.Pool() != 250 {
		t.Errorf("expected pool 250, got %d", e.Pool())
	}
	if addr, err := e.Entrant(1); err != nil || addr != "alice" {
		t.Errorf("entrant(1) = %q, %v", addr, err)
	}
	if _, err := e.Entrant(2); err == nil {
		t.Error("expected out-of-range error for entrant(2)")
	}
}

func TestEnterOverflowingPoolRejected(t *testing.T) {
	e := newTestEngine(t, 100, time.Minute, &fakeOracle{nextID: 1}, bank.NewInMemory(), nil)

	if err := e.Enter("alice", math.MaxInt64); err != nil {
		t.Fatalf("enter at pool limit: %v", err)
	}
	err := e.Enter("bob", 100)
	if !errors.Is(err, ErrPoolOverflow) {
		t.Fatalf("expected ErrPoolOverflow, got %v", err)
	}
	if e.EntrantCount() != 1 || e.Pool() != math.MaxInt64 {
		t.Errorf("ledger changed after rejected entry: entrants=%d pool=%d", e.EntrantCount(), e.Pool())
	}
}

func TestCheckUpkeepWaitsForInterval(t *testing.T) {
	e := newTestEngine(t, 100, 50*time.Millisecond, &fakeOracle{nextID: 1}, bank.NewInMemory(), nil)

	if err := e.Enter("alice", 100); err != nil {
		t.Fatalf("enter: %v", err)
	}
	if e.CheckUpkeep() {
		t.Error("upkeep reported before interval elapsed")
	}
	time.Sleep(60 * time.Millisecond)
	if !e.CheckUpkeep() {
		t.Error("upkeep not reported after interval elapsed")
	}
}

func TestPerformUpkeepNotNeeded(t *testing.T) {
	e := newTestEngine(t, 100, time.Millisecond, &fakeOracle{nextID: 1}, bank.NewInMemory(), nil)
	time.Sleep(3 * time.Millisecond)

	// Interval elapsed but no entrants and no pool.
	_, err := e.PerformUpkeep(context.Background())
	if !errors.Is(err, ErrUpkeepNotNeeded) {
		t.Fatalf("expected ErrUpkeepNotNeeded, got %v", err)
	}
	var ue *UpkeepError
	if !errors.As(err, &ue) {
		t.Fatalf("expected *UpkeepError, got %T", err)
	}
	if !ue.Open || !ue.IntervalElapsed || ue.HasEntrants || ue.HasPool {
		t.Errorf("unexpected gate snapshot: %+v", ue)
	}
	if e.Status() != model.StatusOpen {
		t.Errorf("status changed after rejected upkeep: %v", e.Status())
	}
}

func TestFullDrawCycle(t *testing.T) {
	b := bank.NewInMemory()
	sink := &captureListener{}
	e := newTestEngine(t, 100, time.Millisecond, &fakeOracle{nextID: 7}, b, sink)

	id := startDraw(t, e, 100, "alice", "bob", "carol", "dave")
	if id != 7 {
		t.Fatalf("expected request id 7, got %d", id)
	}
	if e.Status() != model.StatusDrawing {
		t.Fatalf("expected DRAWING, got %v", e.Status())
	}
	if pending, ok := e.PendingRequest(); !ok || pending != 7 {
		t.Fatalf("pending request = %d, %t", pending, ok)
	}
	if err := e.Enter("eve", 100); !errors.Is(err, ErrNotOpen) {
		t.Fatalf("expected ErrNotOpen while drawing, got %v", err)
	}

	// 42 mod 4 = 2 -> carol wins the whole pool.
	if err := e.Fulfill(7, 42); err != nil {
		t.Fatalf("fulfill: %v", err)
	}
	if got := b.Balance("carol"); got != 400 {
		t.Errorf("expected carol paid 400, got %d", got)
	}
	if e.Status() != model.StatusOpen {
		t.Errorf("expected OPEN after settlement, got %v", e.Status())
	}
	if e.EntrantCount() != 0 || e.Pool() != 0 {
		t.Errorf("cycle not reset: entrants=%d pool=%d", e.EntrantCount(), e.Pool())
	}
	if _, ok := e.PendingRequest(); ok {
		t.Error("pending request survived settlement")
	}
	if e.LastWinner() != "carol" {
		t.Errorf("last winner = %q", e.LastWinner())
	}

	if len(sink.settlements) != 1 {
		t.Fatalf("expected 1 settlement event, got %d", len(sink.settlements))
	}
	evt := sink.settlements[0]
	if evt.WinnerIndex != 2 || evt.Winner != "carol" || evt.Prize != 400 || evt.RequestID != 7 {
		t.Errorf("unexpected settlement event: %+v", evt)
	}
	if len(sink.requests) != 1 || sink.requests[0].Round != evt.Round {
		t.Errorf("draw request and settlement disagree on round: %+v vs %+v", sink.requests, evt)
	}
}

func TestFulfillReplayRejected(t *testing.T) {
	b := bank.NewInMemory()
	e := newTestEngine(t, 100, time.Millisecond, &fakeOracle{nextID: 7}, b, nil)

	startDraw(t, e, 100, "alice", "bob")
	if err := e.Fulfill(7, 42); err != nil {
		t.Fatalf("fulfill: %v", err)
	}

	// Same callback delivered again: pendingRequestId is already cleared.
	for i := 0; i < 3; i++ {
		if err := e.Fulfill(7, 42); !errors.Is(err, ErrUnknownOrStaleRequest) {
			t.Fatalf("replay %d: expected ErrUnknownOrStaleRequest, got %v", i, err)
		}
	}
	if got := b.Balance("alice"); got != 200 {
		t.Errorf("replay mutated balances: alice=%d", got)
	}
	if e.Status() != model.StatusOpen || e.Pool() != 0 {
		t.Errorf("replay mutated state: status=%v pool=%d", e.Status(), e.Pool())
	}
}

func TestFulfillWrongRequestRejected(t *testing.T) {
	e := newTestEngine(t, 100, time.Millisecond, &fakeOracle{nextID: 7}, bank.NewInMemory(), nil)

	// While OPEN, any callback is stale.
	if err := e.Fulfill(7, 1); !errors.Is(err, ErrUnknownOrStaleRequest) {
		t.Fatalf("expected ErrUnknownOrStaleRequest while open, got %v", err)
	}

	startDraw(t, e, 100, "alice")
	if err := e.Fulfill(99, 1); !errors.Is(err, ErrUnknownOrStaleRequest) {
		t.Fatalf("expected ErrUnknownOrStaleRequest for mismatched id, got %v", err)
	}
	if e.Status() != model.StatusDrawing || e.EntrantCount() != 1 {
		t.Errorf("rejected callback mutated state: status=%v entrants=%d", e.Status(), e.EntrantCount())
	}
}

func TestPayoutFailureLeavesCycleRetryable(t *testing.T) {
	b := bank.NewInMemory()
	b.Freeze("alice")
	e := newTestEngine(t, 100, time.Millisecond, &fakeOracle{nextID: 7}, b, nil)

	id := startDraw(t, e, 100, "alice")
	err := e.Fulfill(id, 5)
	if !errors.Is(err, ErrPayoutFailed) {
		t.Fatalf("expected ErrPayoutFailed, got %v", err)
	}
	if e.Status() != model.StatusDrawing {
		t.Errorf("status mutated on failed payout: %v", e.Status())
	}
	if pending, ok := e.PendingRequest(); !ok || pending != id {
		t.Errorf("pending request mutated on failed payout: %d, %t", pending, ok)
	}
	if e.EntrantCount() != 1 || e.Pool() != 100 {
		t.Errorf("ledger mutated on failed payout: entrants=%d pool=%d", e.EntrantCount(), e.Pool())
	}

	// Once the transfer capability recovers, the same random value settles.
	b.Unfreeze("alice")
	if err := e.RetrySettlement(); err != nil {
		t.Fatalf("retry settlement: %v", err)
	}
	if got := b.Balance("alice"); got != 100 {
		t.Errorf("expected alice paid 100, got %d", got)
	}
	if e.Status() != model.StatusOpen || e.Pool() != 0 {
		t.Errorf("cycle not reset after retry: status=%v pool=%d", e.Status(), e.Pool())
	}
	if err := e.RetrySettlement(); !errors.Is(err, ErrNothingToRetry) {
		t.Errorf("expected ErrNothingToRetry after success, got %v", err)
	}
}

func TestPayoutFailureThenRedeliveredFulfillment(t *testing.T) {
	b := bank.NewInMemory()
	b.Freeze("alice")
	e := newTestEngine(t, 100, time.Millisecond, &fakeOracle{nextID: 3}, b, nil)

	id := startDraw(t, e, 100, "alice")
	if err := e.Fulfill(id, 9); !errors.Is(err, ErrPayoutFailed) {
		t.Fatalf("expected ErrPayoutFailed, got %v", err)
	}

	// Re-delivering the same fulfillment also works once the transfer recovers.
	b.Unfreeze("alice")
	if err := e.Fulfill(id, 9); err != nil {
		t.Fatalf("re-invoked fulfill: %v", err)
	}
	if got := b.Balance("alice"); got != 100 {
		t.Errorf("expected alice paid 100, got %d", got)
	}
}

func TestWinnerSelectionDeterministic(t *testing.T) {
	entrants := []string{"a0", "a1", "a2", "a3", "a4"}
	for _, rv := range []uint64{0, 1, 4, 5, 42, 1<<63 + 11} {
		b := bank.NewInMemory()
		sink := &captureListener{}
		e := newTestEngine(t, 100, time.Millisecond, &fakeOracle{nextID: 1}, b, sink)
		id := startDraw(t, e, 100, entrants...)
		if err := e.Fulfill(id, rv); err != nil {
			t.Fatalf("fulfill(%d): %v", rv, err)
		}
		want := entrants[rv%uint64(len(entrants))]
		if sink.settlements[0].Winner != want {
			t.Errorf("random %d: winner = %q, want %q", rv, sink.settlements[0].Winner, want)
		}
	}
}

func TestOracleFailureRollsBackToOpen(t *testing.T) {
	o := &fakeOracle{err: errors.New("beacon unreachable")}
	e := newTestEngine(t, 100, time.Millisecond, o, bank.NewInMemory(), nil)

	if err := e.Enter("alice", 100); err != nil {
		t.Fatalf("enter: %v", err)
	}
	time.Sleep(3 * time.Millisecond)
	if _, err := e.PerformUpkeep(context.Background()); err == nil {
		t.Fatal("expected error when oracle request fails")
	}
	if e.Status() != model.StatusOpen {
		t.Fatalf("expected rollback to OPEN, got %v", e.Status())
	}

	// The next upkeep succeeds once the oracle recovers.
	o.err = nil
	o.nextID = 2
	if _, err := e.PerformUpkeep(context.Background()); err != nil {
		t.Fatalf("perform upkeep after recovery: %v", err)
	}
}

func TestForceReopenAbandonsRequest(t *testing.T) {
	b := bank.NewInMemory()
	e := newTestEngine(t, 100, time.Millisecond, &fakeOracle{nextID: 7}, b, nil)

	id := startDraw(t, e, 100, "alice", "bob")

	if err := e.ForceReopen(99); !errors.Is(err, ErrUnknownOrStaleRequest) {
		t.Fatalf("expected mismatch rejection, got %v", err)
	}
	if err := e.ForceReopen(id); err != nil {
		t.Fatalf("force reopen: %v", err)
	}
	if e.Status() != model.StatusOpen {
		t.Errorf("expected OPEN after reopen, got %v", e.Status())
	}
	if e.EntrantCount() != 2 || e.Pool() != 200 {
		t.Errorf("reopen dropped the ledger: entrants=%d pool=%d", e.EntrantCount(), e.Pool())
	}

	// A late callback for the abandoned request must not settle.
	if err := e.Fulfill(id, 42); !errors.Is(err, ErrUnknownOrStaleRequest) {
		t.Errorf("late callback accepted after reopen: %v", err)
	}
	if err := e.ForceReopen(id); !errors.Is(err, ErrUnknownOrStaleRequest) {
		t.Errorf("reopen while OPEN accepted: %v", err)
	}
}

func TestStateSurvivesRestart(t *testing.T) {
	dir := t.TempDir()
	store := statestore.NewFileStore(filepath.Join(dir, "state.json"))

	e1, err := NewEngine(store, 100, time.Minute, &fakeOracle{nextID: 1}, bank.NewInMemory(), nil)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	if err := e1.Enter("alice", 100); err != nil {
		t.Fatalf("enter: %v", err)
	}
	if err := e1.Enter("bob", 120); err != nil {
		t.Fatalf("enter: %v", err)
	}

	e2, err := NewEngine(store, 100, time.Minute, &fakeOracle{nextID: 1}, bank.NewInMemory(), nil)
	if err != nil {
		t.Fatalf("reload engine: %v", err)
	}
	if e2.EntrantCount() != 2 || e2.Pool() != 220 {
		t.Errorf("state lost across restart: entrants=%d pool=%d", e2.EntrantCount(), e2.Pool())
	}
	if e2.Status() != model.StatusOpen {
		t.Errorf("status lost across restart: %v", e2.Status())
	}
}
