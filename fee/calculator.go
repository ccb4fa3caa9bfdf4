// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package fee computes the registration fee charged for a name.
package fee

// DefaultRatePerByte is the fee, in base units, charged per byte of a name.
const DefaultRatePerByte uint64 = 1000

// Calculator calculates the fee, in base units, that registering a name
// skims into the treasury.
type Calculator interface {
	CalculateFee(name string) (uint64, error)
}
