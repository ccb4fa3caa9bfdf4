// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package escrow

// Entry is the deposit held for one (principal, name) pair. Entries are
// never deleted; a zero balance is a valid terminal state.
type Entry struct {
	Name string `serialize:"true" json:"name"`

	// Deposit currently withdrawable by the owning principal
	Balance uint64 `serialize:"true" json:"balance"`

	// Number of successful registrations of this pair, the first one
	// included
	Registrations uint64 `serialize:"true" json:"registrations"`

	// Ticket that authorized the most recent registration
	LastTicket uint64 `serialize:"true" json:"lastTicket"`
}
