// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package ticket issues the single-use, globally sequenced tickets that
// authorize ledger mutations.
//
// A principal may hold at most one ticket. Tickets are drawn from one
// counter shared by every principal, so the issued values form a total
// order across the whole ledger. A ticket is cleared when the mutation it
// authorized commits; a principal whose mutation aborted keeps its ticket
// and must explicitly discard it before trying again.
package ticket

import (
	"errors"
	"fmt"

	"github.com/luxfi/database"
	"github.com/luxfi/database/prefixdb"
	"github.com/luxfi/ids"

	safemath "github.com/luxfi/namevm/utils/math"
)

var (
	ErrTicketAlreadyActive = errors.New("ticket already active")
	ErrTicketNotActive     = errors.New("ticket not active")

	counterPrefix = []byte("counter")
	heldPrefix    = []byte("held")

	counterKey = []byte{0x00}
)

// Sequencer stores the global counter and the ticket held by each
// principal. It performs no locking of its own; callers serialize access.
type Sequencer struct {
	counterDB database.Database
	heldDB    database.Database
}

func New(db database.Database) *Sequencer {
	return &Sequencer{
		counterDB: prefixdb.New(counterPrefix, db),
		heldDB:    prefixdb.New(heldPrefix, db),
	}
}

// Issue mints a ticket for [caller]. It fails if the caller already holds
// one.
func (s *Sequencer) Issue(caller ids.ShortID) (uint64, error) {
	held, err := s.Current(caller)
	if err != nil {
		return 0, err
	}
	if held != 0 {
		return 0, fmt.Errorf("%w: %s holds ticket %d", ErrTicketAlreadyActive, caller, held)
	}
	return s.mint(caller)
}

// DiscardAndIssue replaces whatever ticket [caller] holds with a fresh one.
// This is the only way to recover a ticket left behind by an aborted
// mutation.
func (s *Sequencer) DiscardAndIssue(caller ids.ShortID) (uint64, error) {
	return s.mint(caller)
}

// Current returns the ticket held by [caller], or 0 if none.
func (s *Sequencer) Current(caller ids.ShortID) (uint64, error) {
	held, err := database.GetUInt64(s.heldDB, caller[:])
	if err == database.ErrNotFound {
		return 0, nil
	}
	return held, err
}

// Require returns the ticket held by [caller], or ErrTicketNotActive.
func (s *Sequencer) Require(caller ids.ShortID) (uint64, error) {
	held, err := s.Current(caller)
	if err != nil {
		return 0, err
	}
	if held == 0 {
		return 0, fmt.Errorf("%w: %s", ErrTicketNotActive, caller)
	}
	return held, nil
}

// Consume clears the ticket held by [caller].
func (s *Sequencer) Consume(caller ids.ShortID) error {
	if _, err := s.Require(caller); err != nil {
		return err
	}
	return s.heldDB.Delete(caller[:])
}

// LastIssued returns the most recently issued ticket across all
// principals, or 0 if none has been issued.
func (s *Sequencer) LastIssued() (uint64, error) {
	counter, err := database.GetUInt64(s.counterDB, counterKey)
	if err == database.ErrNotFound {
		return 0, nil
	}
	return counter, err
}

func (s *Sequencer) mint(caller ids.ShortID) (uint64, error) {
	counter, err := s.LastIssued()
	if err != nil {
		return 0, err
	}
	next, err := safemath.Add64(counter, 1)
	if err != nil {
		return 0, fmt.Errorf("ticket counter: %w", err)
	}
	if err := database.PutUInt64(s.counterDB, counterKey, next); err != nil {
		return 0, err
	}
	if err := database.PutUInt64(s.heldDB, caller[:], next); err != nil {
		return 0, err
	}
	return next, nil
}
