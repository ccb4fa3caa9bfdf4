// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package treasury accumulates registration fees on behalf of the owner.
package treasury

import (
	"errors"
	"fmt"

	"github.com/luxfi/database"
	"github.com/luxfi/ids"

	"github.com/luxfi/namevm/payout"

	safemath "github.com/luxfi/namevm/utils/math"
)

var (
	ErrUnauthorized = errors.New("unauthorized")

	totalFeesKey = []byte("totalFees")
)

// Treasury holds the fees skimmed off registrations. Only the owner can
// withdraw them.
type Treasury struct {
	db    database.Database
	owner ids.ShortID
	payer payout.Payer
}

func New(db database.Database, owner ids.ShortID, payer payout.Payer) *Treasury {
	return &Treasury{
		db:    db,
		owner: owner,
		payer: payer,
	}
}

func (t *Treasury) Owner() ids.ShortID {
	return t.owner
}

// Accumulate adds [amount] to the fee total.
func (t *Treasury) Accumulate(amount uint64) error {
	total, err := t.Total()
	if err != nil {
		return err
	}
	total, err = safemath.Add64(total, amount)
	if err != nil {
		return fmt.Errorf("accumulating fee: %w", err)
	}
	return database.PutUInt64(t.db, totalFeesKey, total)
}

// Total returns the fees accumulated since the last withdrawal.
func (t *Treasury) Total() (uint64, error) {
	total, err := database.GetUInt64(t.db, totalFeesKey)
	if err == database.ErrNotFound {
		return 0, nil
	}
	return total, err
}

// Withdraw pays the whole fee total to the owner and resets it. Any caller
// other than the owner gets ErrUnauthorized.
func (t *Treasury) Withdraw(caller ids.ShortID) (uint64, error) {
	if caller != t.owner {
		return 0, fmt.Errorf("%w: %s is not the owner", ErrUnauthorized, caller)
	}

	total, err := t.Total()
	if err != nil {
		return 0, err
	}
	if total == 0 {
		return 0, nil
	}

	if err := database.PutUInt64(t.db, totalFeesKey, 0); err != nil {
		return 0, err
	}
	if err := t.payer.Pay(t.owner, total); err != nil {
		// A failed payment must leave the treasury unchanged.
		if restoreErr := database.PutUInt64(t.db, totalFeesKey, total); restoreErr != nil {
			return 0, errors.Join(err, restoreErr)
		}
		return 0, fmt.Errorf("paying fees to %s: %w", t.owner, err)
	}
	return total, nil
}
