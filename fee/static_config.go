// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package fee

type StaticConfig struct {
	// Fee charged for every byte of the UTF-8 encoding of a name
	RatePerByte uint64 `json:"feeRatePerByte"`
}
