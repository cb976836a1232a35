// Package economy is an in-process currency ledger used when no external
// economy is plugged in.
package economy

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/dmitrijs2005/kitkeeper/internal/common"
	"github.com/google/uuid"
)

// Ledger keeps balances in memory. Players start at the configured balance.
type Ledger struct {
	mu       sync.Mutex
	balances map[uuid.UUID]float64
	starting float64
}

func NewLedger(starting float64) *Ledger {
	return &Ledger{balances: map[uuid.UUID]float64{}, starting: starting}
}

func (l *Ledger) balance(player uuid.UUID) float64 {
	if b, ok := l.balances[player]; ok {
		return b
	}
	return l.starting
}

func (l *Ledger) GetBalance(_ context.Context, player uuid.UUID) (float64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balance(player), nil
}

func (l *Ledger) HasBalance(_ context.Context, player uuid.UUID, amount float64) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balance(player) >= amount, nil
}

// Withdraw takes amount or nothing.
func (l *Ledger) Withdraw(_ context.Context, player uuid.UUID, amount float64) error {
	if err := validAmount(amount); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	b := l.balance(player)
	if b < amount {
		return fmt.Errorf("%w: balance %.2f, need %.2f", common.ErrInsufficientFunds, b, amount)
	}
	l.balances[player] = b - amount
	return nil
}

func (l *Ledger) Deposit(_ context.Context, player uuid.UUID, amount float64) error {
	if err := validAmount(amount); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[player] = l.balance(player) + amount
	return nil
}

func validAmount(amount float64) error {
	if amount < 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return fmt.Errorf("%w: invalid amount %v", common.ErrConfigInvalid, amount)
	}
	return nil
}
