package raffle

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"RafflePool/internal/bank"
	"RafflePool/internal/model"
	"RafflePool/internal/oracle"
)

// Store persists engine state. Load is called once at construction; Persist
// runs after every committed mutation and handles its own failure reporting,
// keeping the engine free of logging.
type Store interface {
	Load() (*model.RaffleState, error)
	Persist(state *model.RaffleState)
}

// Engine owns the raffle state machine. All mutating operations (Enter,
// PerformUpkeep, Fulfill, RetrySettlement, ForceReopen) serialize on one
// write lock; CheckUpkeep and the read accessors take the read lock and
// tolerate a stale snapshot, since PerformUpkeep re-validates the gates
// under the write lock before acting.
type Engine struct {
	mu       sync.RWMutex
	state    *model.RaffleState
	fee      int64
	interval time.Duration
	oracle   oracle.Oracle
	bank     bank.Transferer
	listener Listener
	store    Store

	// retained after a failed payout so the settlement can be retried
	// without a new randomness request
	failedRandom    uint64
	hasFailedRandom bool
}

// NewEngine creates the engine, loading persisted state from the store. A
// fresh state starts OPEN with the settlement clock set to now. A state
// loaded in DRAWING stays there: the request belonged to a dead process and
// only an admin reopen can resolve it (callers may inspect PendingRequest
// to surface that).
func NewEngine(store Store, fee int64, interval time.Duration, o oracle.Oracle, b bank.Transferer, l Listener) (*Engine, error) {
	if fee <= 0 {
		return nil, fmt.Errorf("entry fee must be positive, got %d", fee)
	}
	if interval <= 0 {
		return nil, fmt.Errorf("draw interval must be positive, got %v", interval)
	}
	state, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("load raffle state: %w", err)
	}
	if state.LastSettlementTime.IsZero() {
		state.LastSettlementTime = time.Now()
	}
	if l == nil {
		l = nopListener{}
	}
	e := &Engine{
		state:    state,
		fee:      fee,
		interval: interval,
		oracle:   o,
		bank:     b,
		listener: l,
		store:    store,
	}
	store.Persist(state)
	return e, nil
}

// Enter adds a participant to the current cycle. The same address may enter
// multiple times, each entry occupying its own slot.
func (e *Engine) Enter(address string, contribution int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state.Status != model.StatusOpen {
		return ErrNotOpen
	}
	if contribution < e.fee {
		return fmt.Errorf("%w: got %d, need %d", ErrInsufficientContribution, contribution, e.fee)
	}
	if contribution > math.MaxInt64-e.state.Pool {
		return fmt.Errorf("%w: pool %d, contribution %d", ErrPoolOverflow, e.state.Pool, contribution)
	}

	e.state.Entrants = append(e.state.Entrants, address)
	e.state.Pool += contribution
	e.store.Persist(e.state)

	e.listener.OnEntered(model.EntryEvent{
		Address:      address,
		Contribution: contribution,
		Pool:         e.state.Pool,
	})
	return nil
}

// CheckUpkeep reports whether a draw may be requested: the raffle is open,
// the interval has elapsed, and there is at least one entrant and a non-empty
// pool. Read-only; safe to call at any time.
func (e *Engine) CheckUpkeep() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	g := e.gates()
	return g.Open && g.IntervalElapsed && g.HasEntrants && g.HasPool
}

// gates evaluates the four admission conditions. Caller holds the lock.
func (e *Engine) gates() UpkeepError {
	return UpkeepError{
		Open:            e.state.Status == model.StatusOpen,
		IntervalElapsed: time.Since(e.state.LastSettlementTime) > e.interval,
		HasEntrants:     len(e.state.Entrants) > 0,
		HasPool:         e.state.Pool > 0,
	}
}

// PerformUpkeep starts a draw: it re-validates the admission gates, flips the
// raffle to DRAWING and issues a randomness request. Returns the request id.
// This is the only path that starts a draw.
func (e *Engine) PerformUpkeep(ctx context.Context) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	g := e.gates()
	if !(g.Open && g.IntervalElapsed && g.HasEntrants && g.HasPool) {
		return 0, &g
	}

	e.state.Status = model.StatusDrawing
	requestID, err := e.oracle.Request(ctx)
	if err != nil {
		// The request never left the process, so no fulfillment can arrive.
		e.state.Status = model.StatusOpen
		return 0, fmt.Errorf("request randomness: %w", err)
	}
	e.state.PendingRequestID = requestID
	e.state.Round = uuid.NewString()
	e.store.Persist(e.state)

	e.listener.OnDrawRequested(model.DrawRequestEvent{
		Round:     e.state.Round,
		RequestID: requestID,
		Entrants:  len(e.state.Entrants),
		Pool:      e.state.Pool,
	})
	return requestID, nil
}

// Fulfill consumes the randomness callback and settles the cycle. Only the
// outstanding request is accepted; replays, late duplicates and callbacks for
// a cycle that never started are rejected.
func (e *Engine) Fulfill(requestID, randomValue uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state.Status != model.StatusDrawing || requestID != e.state.PendingRequestID {
		return ErrUnknownOrStaleRequest
	}
	return e.settle(randomValue)
}

// RetrySettlement re-runs a settlement whose payout failed, using the random
// value already delivered for the outstanding request.
func (e *Engine) RetrySettlement() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state.Status != model.StatusDrawing || !e.hasFailedRandom {
		return ErrNothingToRetry
	}
	return e.settle(e.failedRandom)
}

// settle selects the winner, pays out the pool and resets the cycle. Caller
// holds the write lock. On payout failure nothing is mutated and the cycle
// stays retryable.
func (e *Engine) settle(randomValue uint64) error {
	index := int(randomValue % uint64(len(e.state.Entrants)))
	winner := e.state.Entrants[index]
	prize := e.state.Pool

	if err := e.bank.Transfer(winner, prize); err != nil {
		e.failedRandom = randomValue
		e.hasFailedRandom = true
		return fmt.Errorf("%w: pay %s: %v", ErrPayoutFailed, winner, err)
	}

	evt := model.SettlementEvent{
		Round:       e.state.Round,
		RequestID:   e.state.PendingRequestID,
		RandomValue: randomValue,
		WinnerIndex: index,
		Winner:      winner,
		Prize:       prize,
	}

	e.state.LastWinner = winner
	e.state.Entrants = nil
	e.state.Pool = 0
	e.state.LastSettlementTime = time.Now()
	e.state.Status = model.StatusOpen
	e.state.PendingRequestID = 0
	e.state.Round = ""
	e.hasFailedRandom = false
	e.store.Persist(e.state)

	e.listener.OnWinnerSelected(evt)
	return nil
}

// ForceReopen abandons the outstanding request and returns the raffle to
// OPEN, keeping entrants and pool intact. Admin-only recovery for a draw
// whose oracle never called back; the abandoned request id is rejected by
// Fulfill from then on. The caller must name the pending request id so a
// reopen cannot race a concurrent settlement.
func (e *Engine) ForceReopen(requestID uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state.Status != model.StatusDrawing || requestID != e.state.PendingRequestID {
		return ErrUnknownOrStaleRequest
	}

	e.state.Status = model.StatusOpen
	e.state.PendingRequestID = 0
	e.state.Round = ""
	e.hasFailedRandom = false
	e.store.Persist(e.state)
	return nil
}

// EntryFee returns the minimum contribution required to enter.
func (e *Engine) EntryFee() int64 { return e.fee }

// Interval returns the minimum time between settlements.
func (e *Engine) Interval() time.Duration { return e.interval }

// Status returns the current lifecycle status.
func (e *Engine) Status() model.Status {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state.Status
}

// EntrantCount returns the number of slots in the current cycle.
func (e *Engine) EntrantCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.state.Entrants)
}

// Entrant returns the participant at the given slot.
func (e *Engine) Entrant(index int) (string, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if index < 0 || index >= len(e.state.Entrants) {
		return "", fmt.Errorf("entrant index %d out of range [0,%d)", index, len(e.state.Entrants))
	}
	return e.state.Entrants[index], nil
}

// Pool returns the current pool balance.
func (e *Engine) Pool() int64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state.Pool
}

// LastWinner returns the winner of the last settled cycle, if any.
func (e *Engine) LastWinner() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state.LastWinner
}

// LastSettlementTime returns when the last cycle settled.
func (e *Engine) LastSettlementTime() time.Time {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state.LastSettlementTime
}

// PendingRequest returns the outstanding request id. ok is false while the
// raffle is OPEN; a pending request exists exactly while it is DRAWING.
func (e *Engine) PendingRequest() (id uint64, ok bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.state.Status != model.StatusDrawing {
		return 0, false
	}
	return e.state.PendingRequestID, true
}

// Snapshot returns a copy of the current state.
func (e *Engine) Snapshot() model.RaffleState {
	e.mu.RLock()
	defer e.mu.RUnlock()
	snap := *e.state
	snap.Entrants = append([]string(nil), e.state.Entrants...)
	return snap
}
