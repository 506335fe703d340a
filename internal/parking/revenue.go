package parking

import "sync"

// RevenueAccount accumulates collected parking fees. The withdrawable
// balance and the lifetime total are distinct: withdrawal zeroes the balance
// but the total is an audit trail and only ever grows.
type RevenueAccount struct {
	mu      sync.Mutex
	owner   string
	balance int64
	total   int64
}

func NewRevenueAccount(owner string) *RevenueAccount {
	return &RevenueAccount{owner: owner}
}

func (a *RevenueAccount) Owner() string {
	return a.owner
}

// Credit adds a settled fee to the account.
func (a *RevenueAccount) Credit(amount int64) error {
	if amount < 0 {
		return ErrInvalidAmount
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.balance += amount
	a.total += amount
	return nil
}

// Withdraw pays out the full withdrawable balance to the owner and resets it
// to zero. Anyone else gets ErrNotOwner and no state change.
func (a *RevenueAccount) Withdraw(caller string) (int64, error) {
	if caller != a.owner {
		return 0, ErrNotOwner
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	amount := a.balance
	a.balance = 0
	return amount, nil
}

func (a *RevenueAccount) Balance() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.balance
}

func (a *RevenueAccount) TotalRevenue() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.total
}
