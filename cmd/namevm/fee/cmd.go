// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package fee

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/luxfi/namevm/fee"
)

const FeeRatePerByteKey = "fee-rate-per-byte"

func Command() *cobra.Command {
	c := &cobra.Command{
		Use:   "fee <name>",
		Short: "Prints the fee charged to register a name",
		Args:  cobra.ExactArgs(1),
		RunE:  feeFunc,
	}
	c.Flags().Uint64(FeeRatePerByteKey, fee.DefaultRatePerByte, "Fee charged per byte of a registered name")
	return c
}

func feeFunc(c *cobra.Command, args []string) error {
	rate, err := c.Flags().GetUint64(FeeRatePerByteKey)
	if err != nil {
		return err
	}

	calculator := fee.NewPerByteCalculator(fee.StaticConfig{RatePerByte: rate})
	nameFee, err := calculator.CalculateFee(args[0])
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.OutOrStdout(), nameFee)
	return err
}
