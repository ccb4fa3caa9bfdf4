// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package escrow holds the per-(principal, name) registration deposits.
//
// Registering a name charges a fee proportional to the name's byte length.
// The fee goes to the treasury and the rest of the attached value is
// credited to the entry for the (caller, name) pair. Registering the same
// pair again tops the entry up. Two principals registering the same name
// have independent entries.
package escrow

import (
	"errors"
	"fmt"

	"github.com/luxfi/database"
	"github.com/luxfi/database/prefixdb"
	"github.com/luxfi/ids"

	"github.com/luxfi/namevm/fee"
	"github.com/luxfi/namevm/payout"

	safemath "github.com/luxfi/namevm/utils/math"
)

// DefaultMaxNameLength is the longest name, in bytes, accepted by default.
const DefaultMaxNameLength = 255

var (
	ErrInsufficientPayment = errors.New("insufficient payment")
	ErrNoBalance           = errors.New("no balance")
	ErrEmptyName           = errors.New("empty name")
	ErrNameTooLong         = errors.New("name too long")

	entriesPrefix  = []byte("entries")
	unlockedPrefix = []byte("unlocked")
)

// Tickets authorizes registrations.
type Tickets interface {
	// Require returns the caller's active ticket or an error if it has
	// none.
	Require(caller ids.ShortID) (uint64, error)
	// Consume clears the caller's ticket.
	Consume(caller ids.ShortID) error
}

// FeeSink receives registration fees.
type FeeSink interface {
	Accumulate(amount uint64) error
}

type Config struct {
	// Longest accepted name, in bytes
	MaxNameLength int
}

// Ledger performs no locking of its own; callers serialize access and
// provide the rollback boundary.
type Ledger struct {
	config     Config
	tickets    Tickets
	fees       FeeSink
	calculator fee.Calculator
	payer      payout.Payer

	entriesDB  database.Database
	unlockedDB database.Database
}

func New(
	db database.Database,
	config Config,
	tickets Tickets,
	fees FeeSink,
	calculator fee.Calculator,
	payer payout.Payer,
) *Ledger {
	return &Ledger{
		config:     config,
		tickets:    tickets,
		fees:       fees,
		calculator: calculator,
		payer:      payer,
		entriesDB:  prefixdb.New(entriesPrefix, db),
		unlockedDB: prefixdb.New(unlockedPrefix, db),
	}
}

// Receipt describes a successful registration.
type Receipt struct {
	Entry   Entry
	Fee     uint64
	Deposit uint64
	Ticket  uint64
}

// Register charges the fee for [name] out of [value] and credits the rest
// to the (caller, name) entry. The caller must hold an active ticket, which
// is consumed on success. On any error nothing is written and the ticket
// stays active.
func (l *Ledger) Register(caller ids.ShortID, name string, value uint64) (*Receipt, error) {
	ticket, err := l.tickets.Require(caller)
	if err != nil {
		return nil, err
	}
	if err := l.verifyName(name); err != nil {
		return nil, err
	}

	nameFee, err := l.calculator.CalculateFee(name)
	if err != nil {
		return nil, err
	}
	if value < nameFee {
		return nil, fmt.Errorf("%w: attached %d, fee for %q is %d",
			ErrInsufficientPayment,
			value,
			name,
			nameFee,
		)
	}
	deposit := value - nameFee

	entry, err := l.getEntry(caller, name)
	if err != nil {
		return nil, err
	}
	unlocked, err := l.Unlocked(caller)
	if err != nil {
		return nil, err
	}

	entry.Balance, err = safemath.Add64(entry.Balance, deposit)
	if err != nil {
		return nil, fmt.Errorf("entry balance: %w", err)
	}
	unlocked, err = safemath.Add64(unlocked, deposit)
	if err != nil {
		return nil, fmt.Errorf("unlocked balance: %w", err)
	}
	entry.Registrations++
	entry.LastTicket = ticket

	// Everything is validated; apply. Accumulate checks for overflow before
	// it writes, so it goes first.
	if err := l.fees.Accumulate(nameFee); err != nil {
		return nil, err
	}
	if err := l.putEntry(caller, entry); err != nil {
		return nil, err
	}
	if err := database.PutUInt64(l.unlockedDB, caller[:], unlocked); err != nil {
		return nil, err
	}
	if err := l.tickets.Consume(caller); err != nil {
		return nil, err
	}
	return &Receipt{
		Entry:   *entry,
		Fee:     nameFee,
		Deposit: deposit,
		Ticket:  ticket,
	}, nil
}

// Balance returns the deposit held for (caller, name), or 0 if the pair was
// never registered.
func (l *Ledger) Balance(caller ids.ShortID, name string) (uint64, error) {
	entry, err := l.getEntry(caller, name)
	if err != nil {
		return 0, err
	}
	return entry.Balance, nil
}

// Entry returns the entry for (caller, name), or database.ErrNotFound.
func (l *Ledger) Entry(caller ids.ShortID, name string) (*Entry, error) {
	entryBytes, err := l.ownerDB(caller).Get([]byte(name))
	if err != nil {
		return nil, err
	}
	var entry Entry
	if _, err := Codec.Unmarshal(entryBytes, &entry); err != nil {
		return nil, fmt.Errorf("failed to parse entry %q: %w", name, err)
	}
	return &entry, nil
}

// Entries returns every entry registered by [caller], ordered by name.
func (l *Ledger) Entries(caller ids.ShortID) ([]Entry, error) {
	it := l.ownerDB(caller).NewIterator()
	defer it.Release()

	var entries []Entry
	for it.Next() {
		var entry Entry
		if _, err := Codec.Unmarshal(it.Value(), &entry); err != nil {
			return nil, fmt.Errorf("failed to parse entry %q: %w", it.Key(), err)
		}
		entries = append(entries, entry)
	}
	return entries, it.Error()
}

// Unlocked returns the total withdrawable by [caller] across all of its
// entries.
func (l *Ledger) Unlocked(caller ids.ShortID) (uint64, error) {
	unlocked, err := database.GetUInt64(l.unlockedDB, caller[:])
	if err == database.ErrNotFound {
		return 0, nil
	}
	return unlocked, err
}

// Withdraw pays out the whole balance of (caller, name) and zeroes it. A
// payer failure leaves the entry untouched.
func (l *Ledger) Withdraw(caller ids.ShortID, name string) (uint64, error) {
	entry, err := l.getEntry(caller, name)
	if err != nil {
		return 0, err
	}
	if entry.Balance == 0 {
		return 0, fmt.Errorf("%w: %s has nothing deposited for %q", ErrNoBalance, caller, name)
	}
	unlocked, err := l.Unlocked(caller)
	if err != nil {
		return 0, err
	}
	remaining, err := safemath.Sub64(unlocked, entry.Balance)
	if err != nil {
		return 0, fmt.Errorf("unlocked balance: %w", err)
	}

	amount := entry.Balance
	entry.Balance = 0
	if err := l.putEntry(caller, entry); err != nil {
		return 0, err
	}
	if err := database.PutUInt64(l.unlockedDB, caller[:], remaining); err != nil {
		return 0, err
	}
	if err := l.payer.Pay(caller, amount); err != nil {
		entry.Balance = amount
		return 0, errors.Join(
			fmt.Errorf("paying %s: %w", caller, err),
			l.putEntry(caller, entry),
			database.PutUInt64(l.unlockedDB, caller[:], unlocked),
		)
	}
	return amount, nil
}

func (l *Ledger) verifyName(name string) error {
	switch {
	case len(name) == 0:
		return ErrEmptyName
	case len(name) > l.config.MaxNameLength:
		return fmt.Errorf("%w: %d bytes > %d", ErrNameTooLong, len(name), l.config.MaxNameLength)
	default:
		return nil
	}
}

// getEntry returns the entry for (caller, name), or a fresh zero entry if
// the pair was never registered.
func (l *Ledger) getEntry(caller ids.ShortID, name string) (*Entry, error) {
	entry, err := l.Entry(caller, name)
	if err == database.ErrNotFound {
		return &Entry{Name: name}, nil
	}
	return entry, err
}

func (l *Ledger) putEntry(caller ids.ShortID, entry *Entry) error {
	entryBytes, err := Codec.Marshal(CodecVersion, entry)
	if err != nil {
		return fmt.Errorf("failed to serialize entry %q: %w", entry.Name, err)
	}
	return l.ownerDB(caller).Put([]byte(entry.Name), entryBytes)
}

func (l *Ledger) ownerDB(owner ids.ShortID) database.Database {
	return prefixdb.New(owner[:], l.entriesDB)
}
