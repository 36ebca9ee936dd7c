package raffle

import (
	"errors"
	"fmt"
)

var (
	// ErrNotOpen is returned when an entry arrives while a draw is in flight.
	ErrNotOpen = errors.New("raffle is not open")
	// ErrInsufficientContribution is returned when a contribution is below the entry fee.
	ErrInsufficientContribution = errors.New("contribution below entry fee")
	// ErrPoolOverflow rejects a contribution that would overflow the pool balance.
	ErrPoolOverflow = errors.New("contribution would overflow the pool")
	// ErrUpkeepNotNeeded is returned by PerformUpkeep when the admission gates do not all hold.
	ErrUpkeepNotNeeded = errors.New("upkeep not needed")
	// ErrUnknownOrStaleRequest rejects fulfillments that do not match the outstanding request.
	ErrUnknownOrStaleRequest = errors.New("unknown or stale randomness request")
	// ErrPayoutFailed is returned when the winner transfer fails; state is left untouched.
	ErrPayoutFailed = errors.New("payout transfer failed")
	// ErrNothingToRetry is returned by RetrySettlement when no failed settlement is pending.
	ErrNothingToRetry = errors.New("no failed settlement to retry")
)

// UpkeepError carries the four admission gates for diagnosis. It unwraps to
// ErrUpkeepNotNeeded.
type UpkeepError struct {
	Open            bool
	IntervalElapsed bool
	HasEntrants     bool
	HasPool         bool
}

func (e *UpkeepError) Error() string {
	return fmt.Sprintf("upkeep not needed: open=%t interval_elapsed=%t has_entrants=%t has_pool=%t",
		e.Open, e.IntervalElapsed, e.HasEntrants, e.HasPool)
}

func (e *UpkeepError) Unwrap() error { return ErrUpkeepNotNeeded }
