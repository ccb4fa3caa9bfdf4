// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package fee

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	safemath "github.com/luxfi/namevm/utils/math"
)

func TestPerByteCalculator(t *testing.T) {
	tests := []struct {
		name        string
		rate        uint64
		input       string
		expectedFee uint64
		expectedErr error
	}{
		{
			name:        "empty name",
			rate:        DefaultRatePerByte,
			input:       "",
			expectedFee: 0,
		},
		{
			name:        "ascii",
			rate:        DefaultRatePerByte,
			input:       "abc",
			expectedFee: 3000,
		},
		{
			name:        "longer ascii",
			rate:        DefaultRatePerByte,
			input:       "abcdef",
			expectedFee: 6000,
		},
		{
			name:        "multi-byte runes are charged per byte",
			rate:        DefaultRatePerByte,
			input:       "名前", // 2 runes, 6 bytes
			expectedFee: 6000,
		},
		{
			name:        "zero rate",
			rate:        0,
			input:       "tester1-xyz",
			expectedFee: 0,
		},
		{
			name:        "overflow",
			rate:        math.MaxUint64,
			input:       "ab",
			expectedErr: safemath.ErrOverflow,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			require := require.New(t)

			calculator := NewPerByteCalculator(StaticConfig{RatePerByte: test.rate})
			fee, err := calculator.CalculateFee(test.input)
			require.ErrorIs(err, test.expectedErr)
			require.Equal(test.expectedFee, fee)
		})
	}
}

func TestPerByteCalculatorIsLinearInByteLength(t *testing.T) {
	require := require.New(t)

	calculator := NewPerByteCalculator(StaticConfig{RatePerByte: 7})
	for n := 0; n < 64; n++ {
		fee, err := calculator.CalculateFee(strings.Repeat("é", n))
		require.NoError(err)
		require.Equal(uint64(7*2*n), fee)
	}
}
