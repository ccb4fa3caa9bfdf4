// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package namevm implements a deposit-backed name registration ledger.
//
// A principal obtains a ticket, then registers a name by attaching value to
// the call. A fee proportional to the byte length of the name goes to the
// treasury and the remainder is held as a withdrawable deposit for the
// (principal, name) pair. Every call either commits all of its writes or
// none of them.
package namevm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/luxfi/database"
	"github.com/luxfi/database/prefixdb"
	"github.com/luxfi/database/versiondb"
	"github.com/luxfi/ids"
	"github.com/luxfi/log"
	"github.com/luxfi/metric"
	"github.com/luxfi/version"

	"github.com/luxfi/namevm/escrow"
	"github.com/luxfi/namevm/fee"
	"github.com/luxfi/namevm/metrics"
	"github.com/luxfi/namevm/payout"
	"github.com/luxfi/namevm/ticket"
	"github.com/luxfi/namevm/treasury"
)

var (
	Version = &version.Semantic{
		Major: 1,
		Minor: 0,
		Patch: 0,
	}

	ticketsPrefix    = []byte("tickets")
	escrowPrefix     = []byte("escrow")
	treasuryPrefix   = []byte("treasury")
	accountsPrefix   = []byte("accounts")
	singletonsPrefix = []byte("singletons")

	initializedKey = []byte("initialized")
	ownerKey       = []byte("owner")

	errNotRunning    = errors.New("vm is not running")
	errOwnerMismatch = errors.New("configured owner does not match stored owner")
)

type VM struct {
	Config

	log     log.Logger
	metrics metrics.Metrics

	// lock serializes every call. Each call runs to commit or abort before
	// the next one starts.
	lock  sync.Mutex
	state State

	baseDB      database.Database
	db          *versiondb.Database
	singletonDB database.Database

	calculator fee.Calculator
	tickets    *ticket.Sequencer
	treasury   *treasury.Treasury
	ledger     *escrow.Ledger
	accounts   *payout.Accounts
}

func New(logger log.Logger) *VM {
	return &VM{log: logger}
}

func (vm *VM) Initialize(
	_ context.Context,
	db database.Database,
	configBytes []byte,
	registerer metric.Registerer,
) error {
	if vm.log == nil {
		vm.log = log.NewNoOpLogger()
	}

	config, err := ParseConfig(configBytes)
	if err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	if err := config.Verify(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	vm.Config = config

	vm.log.Info("initializing namevm",
		log.Stringer("version", Version),
		log.Reflect("config", vm.Config),
	)

	vm.metrics, err = metrics.New(registerer)
	if err != nil {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}

	vm.baseDB = db
	vm.db = versiondb.New(db)
	vm.singletonDB = prefixdb.New(singletonsPrefix, vm.db)

	vm.calculator = fee.NewPerByteCalculator(vm.StaticConfig)
	vm.accounts = payout.NewAccounts(prefixdb.New(accountsPrefix, vm.db))
	vm.tickets = ticket.New(prefixdb.New(ticketsPrefix, vm.db))
	vm.treasury = treasury.New(
		prefixdb.New(treasuryPrefix, vm.db),
		vm.Owner,
		vm.accounts,
	)
	vm.ledger = escrow.New(
		prefixdb.New(escrowPrefix, vm.db),
		escrow.Config{MaxNameLength: vm.MaxNameLength},
		vm.tickets,
		vm.treasury,
		vm.calculator,
		vm.accounts,
	)

	if err := vm.initOwner(); err != nil {
		vm.db.Abort()
		return err
	}
	if err := vm.db.Commit(); err != nil {
		vm.db.Abort()
		return err
	}

	if err := vm.syncTotalFees(); err != nil {
		return err
	}

	vm.state = NormalOp
	return nil
}

// initOwner persists the owner on first start and verifies it on every
// later start.
func (vm *VM) initOwner() error {
	initialized, err := vm.singletonDB.Has(initializedKey)
	if err != nil {
		return err
	}
	if !initialized {
		vm.log.Info("persisting owner",
			log.Stringer("owner", vm.Owner),
		)
		if err := vm.singletonDB.Put(ownerKey, vm.Owner[:]); err != nil {
			return err
		}
		return vm.singletonDB.Put(initializedKey, nil)
	}

	ownerBytes, err := vm.singletonDB.Get(ownerKey)
	if err != nil {
		return err
	}
	storedOwner, err := ids.ToShortID(ownerBytes)
	if err != nil {
		return fmt.Errorf("failed to parse stored owner: %w", err)
	}
	if storedOwner != vm.Owner {
		return fmt.Errorf("%w: configured %s, stored %s",
			errOwnerMismatch,
			vm.Owner,
			storedOwner,
		)
	}
	return nil
}

// IssueTicket gives [caller] the next ticket. Fails if [caller] already
// holds one.
func (vm *VM) IssueTicket(caller ids.ShortID) (uint64, error) {
	var ticketID uint64
	err := vm.update(func() error {
		var err error
		ticketID, err = vm.tickets.Issue(caller)
		return err
	})
	if err != nil {
		vm.log.Debug("ticket issuance aborted",
			log.Stringer("caller", caller),
			log.Err(err),
		)
		return 0, err
	}

	vm.metrics.MarkTicketIssued(false)
	vm.log.Debug("issued ticket",
		log.Stringer("caller", caller),
		log.Uint64("ticket", ticketID),
	)
	return ticketID, nil
}

// DiscardAndIssue replaces any ticket held by [caller] with a fresh one.
func (vm *VM) DiscardAndIssue(caller ids.ShortID) (uint64, error) {
	var (
		discarded uint64
		ticketID  uint64
	)
	err := vm.update(func() error {
		var err error
		discarded, err = vm.tickets.Current(caller)
		if err != nil {
			return err
		}
		ticketID, err = vm.tickets.DiscardAndIssue(caller)
		return err
	})
	if err != nil {
		return 0, err
	}

	vm.metrics.MarkTicketIssued(discarded != 0)
	vm.log.Debug("issued ticket",
		log.Stringer("caller", caller),
		log.Uint64("ticket", ticketID),
		log.Uint64("discarded", discarded),
	)
	return ticketID, nil
}

// CurrentTicket returns the ticket held by [caller], or 0.
func (vm *VM) CurrentTicket(caller ids.ShortID) (uint64, error) {
	var ticketID uint64
	err := vm.read(func() error {
		var err error
		ticketID, err = vm.tickets.Current(caller)
		return err
	})
	return ticketID, err
}

// RegisterName registers [name] for [caller] with [value] attached. On
// error nothing changes and the caller's ticket stays active.
func (vm *VM) RegisterName(caller ids.ShortID, name string, value uint64) (*escrow.Receipt, error) {
	var receipt *escrow.Receipt
	err := vm.update(func() error {
		var err error
		receipt, err = vm.ledger.Register(caller, name, value)
		return err
	})
	if err != nil {
		if !errors.Is(err, errNotRunning) {
			vm.metrics.MarkRegistrationAborted(abortReason(err))
		}
		vm.log.Debug("registration aborted",
			log.Stringer("caller", caller),
			log.String("name", name),
			log.Uint64("value", value),
			log.Err(err),
		)
		return nil, err
	}

	vm.metrics.MarkRegistered(receipt.Fee, receipt.Deposit)
	vm.log.Debug("registered name",
		log.Stringer("caller", caller),
		log.String("name", name),
		log.Uint64("ticket", receipt.Ticket),
		log.Uint64("fee", receipt.Fee),
		log.Uint64("balance", receipt.Entry.Balance),
	)
	return receipt, nil
}

// GetRegistrationState returns the deposit held for ([caller], [name]).
func (vm *VM) GetRegistrationState(caller ids.ShortID, name string) (uint64, error) {
	var balance uint64
	err := vm.read(func() error {
		var err error
		balance, err = vm.ledger.Balance(caller, name)
		return err
	})
	return balance, err
}

// GetRegistration returns the entry for ([caller], [name]), or
// database.ErrNotFound.
func (vm *VM) GetRegistration(caller ids.ShortID, name string) (*escrow.Entry, error) {
	var entry *escrow.Entry
	err := vm.read(func() error {
		var err error
		entry, err = vm.ledger.Entry(caller, name)
		return err
	})
	return entry, err
}

func (vm *VM) ListRegistrations(caller ids.ShortID) ([]escrow.Entry, error) {
	var entries []escrow.Entry
	err := vm.read(func() error {
		var err error
		entries, err = vm.ledger.Entries(caller)
		return err
	})
	return entries, err
}

// GetUnlockedBalance returns the total withdrawable by [caller] across all
// of its registrations.
func (vm *VM) GetUnlockedBalance(caller ids.ShortID) (uint64, error) {
	var unlocked uint64
	err := vm.read(func() error {
		var err error
		unlocked, err = vm.ledger.Unlocked(caller)
		return err
	})
	return unlocked, err
}

// Withdraw pays [caller] the whole deposit held for ([caller], [name]).
func (vm *VM) Withdraw(caller ids.ShortID, name string) (uint64, error) {
	var amount uint64
	err := vm.update(func() error {
		var err error
		amount, err = vm.ledger.Withdraw(caller, name)
		return err
	})
	if err != nil {
		vm.log.Debug("withdrawal aborted",
			log.Stringer("caller", caller),
			log.String("name", name),
			log.Err(err),
		)
		return 0, err
	}

	vm.metrics.MarkWithdrawn(amount)
	vm.log.Info("withdrew deposit",
		log.Stringer("caller", caller),
		log.String("name", name),
		log.Uint64("amount", amount),
	)
	return amount, nil
}

func (vm *VM) GetTotalFeeBalance() (uint64, error) {
	var total uint64
	err := vm.read(func() error {
		var err error
		total, err = vm.treasury.Total()
		return err
	})
	return total, err
}

// WithdrawFee pays the whole treasury to the owner. Only the owner may call
// it.
func (vm *VM) WithdrawFee(caller ids.ShortID) (uint64, error) {
	var amount uint64
	err := vm.update(func() error {
		var err error
		amount, err = vm.treasury.Withdraw(caller)
		return err
	})
	if err != nil {
		vm.log.Debug("fee withdrawal aborted",
			log.Stringer("caller", caller),
			log.Err(err),
		)
		return 0, err
	}

	vm.metrics.MarkFeesWithdrawn(amount)
	vm.log.Info("withdrew fees",
		log.Stringer("owner", caller),
		log.Uint64("amount", amount),
	)
	return amount, nil
}

// QuoteFee returns the fee charged to register [name].
func (vm *VM) QuoteFee(name string) (uint64, error) {
	var quote uint64
	err := vm.read(func() error {
		var err error
		quote, err = vm.calculator.CalculateFee(name)
		return err
	})
	return quote, err
}

// PaidOut returns the total paid out to [addr] by withdrawals.
func (vm *VM) PaidOut(addr ids.ShortID) (uint64, error) {
	var paid uint64
	err := vm.read(func() error {
		var err error
		paid, err = vm.accounts.Balance(addr)
		return err
	})
	return paid, err
}

// LastTicket returns the most recently issued ticket, or 0.
func (vm *VM) LastTicket() (uint64, error) {
	var ticketID uint64
	err := vm.read(func() error {
		var err error
		ticketID, err = vm.tickets.LastIssued()
		return err
	})
	return ticketID, err
}

func (vm *VM) Shutdown(context.Context) error {
	vm.lock.Lock()
	defer vm.lock.Unlock()

	if vm.state != NormalOp {
		return nil
	}
	vm.state = Stopped
	vm.log.Info("shutting down namevm")
	return vm.db.Close()
}

func (*VM) Version(context.Context) (string, error) {
	return Version.String(), nil
}

func (vm *VM) HealthCheck(context.Context) (interface{}, error) {
	vm.lock.Lock()
	defer vm.lock.Unlock()

	if vm.state != NormalOp {
		return nil, fmt.Errorf("%w: %s", errNotRunning, vm.state)
	}
	lastTicket, err := vm.tickets.LastIssued()
	if err != nil {
		return nil, err
	}
	totalFees, err := vm.treasury.Total()
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"state":      vm.state.String(),
		"lastTicket": lastTicket,
		"totalFees":  totalFees,
	}, nil
}

// CreateHandlers returns the JSON-RPC handler authenticating callers with
// the default header authenticator.
func (vm *VM) CreateHandlers(context.Context) (map[string]http.Handler, error) {
	server, err := vm.NewHandler(&HeaderAuthenticator{Header: DefaultCallerHeader})
	if err != nil {
		return nil, err
	}
	return map[string]http.Handler{
		"": server,
	}, nil
}

// update runs [f] against the staged database and commits its writes only
// if it succeeds.
func (vm *VM) update(f func() error) error {
	vm.lock.Lock()
	defer vm.lock.Unlock()

	if vm.state != NormalOp {
		return fmt.Errorf("%w: %s", errNotRunning, vm.state)
	}
	if err := f(); err != nil {
		vm.db.Abort()
		return err
	}
	if err := vm.db.Commit(); err != nil {
		vm.db.Abort()
		return fmt.Errorf("failed to commit: %w", err)
	}
	if err := vm.syncTotalFees(); err != nil {
		vm.log.Warn("failed to publish treasury total",
			log.Err(err),
		)
	}
	return nil
}

// syncTotalFees publishes the committed treasury total. The caller must hold
// the lock.
func (vm *VM) syncTotalFees() error {
	total, err := vm.treasury.Total()
	if err != nil {
		return err
	}
	vm.metrics.SetTotalFees(total)
	return nil
}

func (vm *VM) read(f func() error) error {
	vm.lock.Lock()
	defer vm.lock.Unlock()

	if vm.state != NormalOp {
		return fmt.Errorf("%w: %s", errNotRunning, vm.state)
	}
	return f()
}

func abortReason(err error) string {
	switch {
	case errors.Is(err, ticket.ErrTicketNotActive):
		return "ticket_not_active"
	case errors.Is(err, escrow.ErrInsufficientPayment):
		return "insufficient_payment"
	case errors.Is(err, escrow.ErrEmptyName):
		return "empty_name"
	case errors.Is(err, escrow.ErrNameTooLong):
		return "name_too_long"
	default:
		return "other"
	}
}
