package store

import (
	"fmt"
	"sync"
)

// MemLedger is an in-memory account ledger for tests and standalone play.
// The production deployment substitutes the casino balance service behind
// the same interface.
type MemLedger struct {
	mu             sync.Mutex
	balances       map[string]int
	defaultBalance int
}

// NewMemLedger seeds balances from the given map.
func NewMemLedger(balances map[string]int) *MemLedger {
	copied := make(map[string]int, len(balances))
	for id, amount := range balances {
		copied[id] = amount
	}
	return &MemLedger{balances: copied}
}

// NewFundedMemLedger starts every unseen account at the given balance, for
// play-money deployments without an external balance service.
func NewFundedMemLedger(defaultBalance int) *MemLedger {
	return &MemLedger{
		balances:       make(map[string]int),
		defaultBalance: defaultBalance,
	}
}

// fund lazily initializes an account at the default balance. Callers hold
// the mutex.
func (l *MemLedger) fund(userID string) {
	if l.defaultBalance > 0 {
		if _, ok := l.balances[userID]; !ok {
			l.balances[userID] = l.defaultBalance
		}
	}
}

// Debit implements Ledger.
func (l *MemLedger) Debit(userID string, amount int) error {
	if amount < 0 {
		return fmt.Errorf("negative debit %d", amount)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.fund(userID)
	if l.balances[userID] < amount {
		return ErrInsufficientFunds
	}
	l.balances[userID] -= amount
	return nil
}

// Credit implements Ledger.
func (l *MemLedger) Credit(userID string, amount int) error {
	if amount < 0 {
		return fmt.Errorf("negative credit %d", amount)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[userID] += amount
	return nil
}

// Balance reports a user's current balance.
func (l *MemLedger) Balance(userID string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.fund(userID)
	return l.balances[userID]
}
