// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package fee

import (
	"fmt"

	safemath "github.com/luxfi/namevm/utils/math"
)

var _ Calculator = (*perByteCalculator)(nil)

func NewPerByteCalculator(config StaticConfig) Calculator {
	return &perByteCalculator{
		config: config,
	}
}

type perByteCalculator struct {
	config StaticConfig
}

// CalculateFee charges by byte length, not rune count, so a multi-byte
// character costs more than an ASCII one.
func (c *perByteCalculator) CalculateFee(name string) (uint64, error) {
	fee, err := safemath.Mul64(c.config.RatePerByte, uint64(len(name)))
	if err != nil {
		return 0, fmt.Errorf("fee for %d byte name: %w", len(name), err)
	}
	return fee, nil
}
