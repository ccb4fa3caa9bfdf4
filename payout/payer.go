// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package payout moves withdrawn value out of the ledger to a principal's
// external account.
package payout

import (
	"fmt"
	"sync"

	"github.com/luxfi/database"
	"github.com/luxfi/ids"

	safemath "github.com/luxfi/namevm/utils/math"
)

var _ Payer = (*Accounts)(nil)

// Payer credits an external account. A Payer is invoked inside the atomic
// boundary of a withdrawal: returning an error aborts the withdrawal.
type Payer interface {
	Pay(to ids.ShortID, amount uint64) error
}

// Accounts is a Payer that records credits per principal in a database.
// When the database is the same staged database the ledger writes to, a
// credit is committed or discarded together with the withdrawal that
// caused it.
type Accounts struct {
	lock sync.Mutex
	db   database.Database
}

func NewAccounts(db database.Database) *Accounts {
	return &Accounts{db: db}
}

func (a *Accounts) Pay(to ids.ShortID, amount uint64) error {
	a.lock.Lock()
	defer a.lock.Unlock()

	credited, err := a.balance(to)
	if err != nil {
		return err
	}
	credited, err = safemath.Add64(credited, amount)
	if err != nil {
		return fmt.Errorf("crediting %s: %w", to, err)
	}
	return database.PutUInt64(a.db, to[:], credited)
}

// Balance returns the total ever credited to [addr].
func (a *Accounts) Balance(addr ids.ShortID) (uint64, error) {
	a.lock.Lock()
	defer a.lock.Unlock()

	return a.balance(addr)
}

func (a *Accounts) balance(addr ids.ShortID) (uint64, error) {
	credited, err := database.GetUInt64(a.db, addr[:])
	if err == database.ErrNotFound {
		return 0, nil
	}
	return credited, err
}
