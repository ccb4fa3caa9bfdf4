// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package escrow

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/luxfi/database"
	"github.com/luxfi/database/memdb"
	"github.com/luxfi/database/prefixdb"
	"github.com/luxfi/ids"

	"github.com/luxfi/namevm/fee"
	"github.com/luxfi/namevm/payout"
	"github.com/luxfi/namevm/payout/payoutmock"
	"github.com/luxfi/namevm/ticket"
	"github.com/luxfi/namevm/treasury"
)

const oneCoin uint64 = 1_000_000_000_000

var errTest = errors.New("non-nil error")

type testLedger struct {
	*Ledger
	tickets  *ticket.Sequencer
	treasury *treasury.Treasury
	accounts *payout.Accounts
}

func newTestLedger(t *testing.T, payer payout.Payer) *testLedger {
	t.Helper()

	db := memdb.New()
	tickets := ticket.New(prefixdb.New([]byte("tickets"), db))
	accounts := payout.NewAccounts(prefixdb.New([]byte("accounts"), db))
	if payer == nil {
		payer = accounts
	}
	tr := treasury.New(prefixdb.New([]byte("treasury"), db), ids.GenerateTestShortID(), payer)
	ledger := New(
		prefixdb.New([]byte("escrow"), db),
		Config{MaxNameLength: DefaultMaxNameLength},
		tickets,
		tr,
		fee.NewPerByteCalculator(fee.StaticConfig{RatePerByte: fee.DefaultRatePerByte}),
		payer,
	)
	return &testLedger{
		Ledger:   ledger,
		tickets:  tickets,
		treasury: tr,
		accounts: accounts,
	}
}

func (l *testLedger) register(t *testing.T, caller ids.ShortID, name string, value uint64) *Receipt {
	t.Helper()

	_, err := l.tickets.Issue(caller)
	require.NoError(t, err)
	receipt, err := l.Register(caller, name, value)
	require.NoError(t, err)
	return receipt
}

func TestRegister(t *testing.T) {
	require := require.New(t)

	l := newTestLedger(t, nil)
	alice := ids.GenerateTestShortID()

	ticketID, err := l.tickets.Issue(alice)
	require.NoError(err)

	receipt, err := l.Register(alice, "abc", oneCoin+3000)
	require.NoError(err)
	require.Equal(&Receipt{
		Entry: Entry{
			Name:          "abc",
			Balance:       oneCoin,
			Registrations: 1,
			LastTicket:    ticketID,
		},
		Fee:     3000,
		Deposit: oneCoin,
		Ticket:  ticketID,
	}, receipt)

	balance, err := l.Balance(alice, "abc")
	require.NoError(err)
	require.Equal(oneCoin, balance)

	total, err := l.treasury.Total()
	require.NoError(err)
	require.Equal(uint64(3000), total)

	// The ticket was consumed.
	current, err := l.tickets.Current(alice)
	require.NoError(err)
	require.Zero(current)
}

func TestRegisterRequiresTicket(t *testing.T) {
	require := require.New(t)

	l := newTestLedger(t, nil)
	alice := ids.GenerateTestShortID()

	_, err := l.Register(alice, "abc", oneCoin)
	require.ErrorIs(err, ticket.ErrTicketNotActive)

	// A consumed ticket cannot be replayed.
	l.register(t, alice, "abc", oneCoin)
	_, err = l.Register(alice, "abc", oneCoin)
	require.ErrorIs(err, ticket.ErrTicketNotActive)

	balance, err := l.Balance(alice, "abc")
	require.NoError(err)
	require.Equal(oneCoin-3000, balance)
}

func TestRegisterAbortLeavesNoTrace(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		value       uint64
		expectedErr error
	}{
		{
			name:        "no value attached",
			input:       "xyz",
			value:       0,
			expectedErr: ErrInsufficientPayment,
		},
		{
			name:        "one unit short",
			input:       "xyz",
			value:       2999,
			expectedErr: ErrInsufficientPayment,
		},
		{
			name:        "empty name",
			input:       "",
			value:       oneCoin,
			expectedErr: ErrEmptyName,
		},
		{
			name:        "name too long",
			input:       strings.Repeat("a", DefaultMaxNameLength+1),
			value:       oneCoin,
			expectedErr: ErrNameTooLong,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			require := require.New(t)

			l := newTestLedger(t, nil)
			alice := ids.GenerateTestShortID()
			heldTicket, err := l.tickets.Issue(alice)
			require.NoError(err)

			_, err = l.Register(alice, test.input, test.value)
			require.ErrorIs(err, test.expectedErr)

			balance, err := l.Balance(alice, test.input)
			require.NoError(err)
			require.Zero(balance)

			unlocked, err := l.Unlocked(alice)
			require.NoError(err)
			require.Zero(unlocked)

			total, err := l.treasury.Total()
			require.NoError(err)
			require.Zero(total)

			_, err = l.Entry(alice, test.input)
			require.ErrorIs(err, database.ErrNotFound)

			current, err := l.tickets.Current(alice)
			require.NoError(err)
			require.Equal(heldTicket, current)
		})
	}
}

func TestRegisterExactFee(t *testing.T) {
	require := require.New(t)

	l := newTestLedger(t, nil)
	alice := ids.GenerateTestShortID()

	receipt := l.register(t, alice, "xyz", 3000)
	require.Zero(receipt.Deposit)
	require.Zero(receipt.Entry.Balance)

	// A zero balance entry exists but cannot be withdrawn from.
	entry, err := l.Entry(alice, "xyz")
	require.NoError(err)
	require.Equal(uint64(1), entry.Registrations)

	_, err = l.Withdraw(alice, "xyz")
	require.ErrorIs(err, ErrNoBalance)
}

func TestRenewalAccumulates(t *testing.T) {
	require := require.New(t)

	l := newTestLedger(t, nil)
	bob := ids.GenerateTestShortID()
	const name = "tester2-xyz"
	nameFee := uint64(len(name)) * fee.DefaultRatePerByte

	first := l.register(t, bob, name, oneCoin+nameFee)
	second := l.register(t, bob, name, 2*oneCoin+nameFee)
	require.Greater(second.Ticket, first.Ticket)

	entry, err := l.Entry(bob, name)
	require.NoError(err)
	require.Equal(&Entry{
		Name:          name,
		Balance:       3 * oneCoin,
		Registrations: 2,
		LastTicket:    second.Ticket,
	}, entry)

	total, err := l.treasury.Total()
	require.NoError(err)
	require.Equal(2*nameFee, total)
}

func TestPairsAreIndependent(t *testing.T) {
	require := require.New(t)

	l := newTestLedger(t, nil)
	alice := ids.GenerateTestShortID()
	carol := ids.GenerateTestShortID()
	const name = "tester1-xyz"
	nameFee := uint64(len(name)) * fee.DefaultRatePerByte

	l.register(t, alice, name, oneCoin+nameFee)
	l.register(t, carol, name, 5*oneCoin+nameFee)

	paid, err := l.Withdraw(alice, name)
	require.NoError(err)
	require.Equal(oneCoin, paid)

	balance, err := l.Balance(alice, name)
	require.NoError(err)
	require.Zero(balance)

	balance, err = l.Balance(carol, name)
	require.NoError(err)
	require.Equal(5*oneCoin, balance)
}

func TestWithdraw(t *testing.T) {
	require := require.New(t)

	l := newTestLedger(t, nil)
	alice := ids.GenerateTestShortID()
	l.register(t, alice, "abc", oneCoin+3000)

	unlocked, err := l.Unlocked(alice)
	require.NoError(err)
	require.Equal(oneCoin, unlocked)

	paid, err := l.Withdraw(alice, "abc")
	require.NoError(err)
	require.Equal(oneCoin, paid)

	credited, err := l.accounts.Balance(alice)
	require.NoError(err)
	require.Equal(oneCoin, credited)

	balance, err := l.Balance(alice, "abc")
	require.NoError(err)
	require.Zero(balance)

	unlocked, err = l.Unlocked(alice)
	require.NoError(err)
	require.Zero(unlocked)

	_, err = l.Withdraw(alice, "abc")
	require.ErrorIs(err, ErrNoBalance)

	// Withdrawing a pair that was never registered also has no balance.
	_, err = l.Withdraw(alice, "never")
	require.ErrorIs(err, ErrNoBalance)

	// The withdrawn entry is kept.
	entry, err := l.Entry(alice, "abc")
	require.NoError(err)
	require.Equal(uint64(1), entry.Registrations)
}

func TestWithdrawPayerFailure(t *testing.T) {
	require := require.New(t)
	ctrl := gomock.NewController(t)

	payer := payoutmock.NewPayer(ctrl)
	l := newTestLedger(t, payer)
	alice := ids.GenerateTestShortID()
	l.register(t, alice, "abc", oneCoin+3000)

	payer.EXPECT().Pay(alice, oneCoin).Return(errTest)
	_, err := l.Withdraw(alice, "abc")
	require.ErrorIs(err, errTest)

	balance, err := l.Balance(alice, "abc")
	require.NoError(err)
	require.Equal(oneCoin, balance)

	unlocked, err := l.Unlocked(alice)
	require.NoError(err)
	require.Equal(oneCoin, unlocked)

	payer.EXPECT().Pay(alice, oneCoin).Return(nil)
	paid, err := l.Withdraw(alice, "abc")
	require.NoError(err)
	require.Equal(oneCoin, paid)
}

func TestUnlockedAggregatesEntries(t *testing.T) {
	require := require.New(t)

	l := newTestLedger(t, nil)
	alice := ids.GenerateTestShortID()
	bob := ids.GenerateTestShortID()

	l.register(t, alice, "a", oneCoin+1000)
	l.register(t, alice, "bb", 2*oneCoin+2000)
	l.register(t, alice, "ccc", 3*oneCoin+3000)
	l.register(t, bob, "a", 7*oneCoin+1000)

	unlocked, err := l.Unlocked(alice)
	require.NoError(err)
	require.Equal(6*oneCoin, unlocked)

	_, err = l.Withdraw(alice, "bb")
	require.NoError(err)

	unlocked, err = l.Unlocked(alice)
	require.NoError(err)
	require.Equal(4*oneCoin, unlocked)

	entries, err := l.Entries(alice)
	require.NoError(err)
	require.Len(entries, 3)

	var sum uint64
	for _, entry := range entries {
		sum += entry.Balance
	}
	require.Equal(unlocked, sum)

	unlocked, err = l.Unlocked(bob)
	require.NoError(err)
	require.Equal(7*oneCoin, unlocked)
}

func TestEntriesOrderedByName(t *testing.T) {
	require := require.New(t)

	l := newTestLedger(t, nil)
	alice := ids.GenerateTestShortID()

	entries, err := l.Entries(alice)
	require.NoError(err)
	require.Empty(entries)

	for _, name := range []string{"zeta", "alpha", "mid"} {
		l.register(t, alice, name, oneCoin+uint64(len(name))*fee.DefaultRatePerByte)
	}
	l.register(t, ids.GenerateTestShortID(), "other", oneCoin+5000)

	entries, err = l.Entries(alice)
	require.NoError(err)
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name)
	}
	require.Equal([]string{"alpha", "mid", "zeta"}, names)
}
