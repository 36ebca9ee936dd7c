package bank

import (
	"errors"
	"fmt"
	"sync"
)

// ErrAccountFrozen is returned when the recipient cannot accept funds.
var ErrAccountFrozen = errors.New("account is frozen")

// Transferer moves value to an addressable identity. Implementations must
// report failure instead of silently dropping funds; callers never assume
// success.
type Transferer interface {
	Transfer(to string, amount int64) error
}

// InMemory is a process-local account ledger. Accounts are created on first
// credit; frozen accounts reject transfers.
type InMemory struct {
	mu       sync.Mutex
	balances map[string]int64
	frozen   map[string]bool
}

// NewInMemory creates an empty ledger.
func NewInMemory() *InMemory {
	return &InMemory{
		balances: make(map[string]int64),
		frozen:   make(map[string]bool),
	}
}

// Transfer credits amount to the given account.
func (b *InMemory) Transfer(to string, amount int64) error {
	if amount < 0 {
		return fmt.Errorf("negative transfer amount %d", amount)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.frozen[to] {
		return fmt.Errorf("transfer to %s: %w", to, ErrAccountFrozen)
	}
	b.balances[to] += amount
	return nil
}

// Balance returns the current balance of an account.
func (b *InMemory) Balance(account string) int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.balances[account]
}

// Freeze marks an account as unable to accept funds.
func (b *InMemory) Freeze(account string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.frozen[account] = true
}

// Unfreeze re-enables transfers to an account.
func (b *InMemory) Unfreeze(account string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.frozen, account)
}
