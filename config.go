// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package namevm

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/luxfi/ids"

	"github.com/luxfi/namevm/escrow"
	"github.com/luxfi/namevm/fee"
)

var (
	errMissingOwner         = errors.New("owner must be set")
	errInvalidMaxNameLength = errors.New("invalid max name length")
)

var DefaultConfig = Config{
	StaticConfig: fee.StaticConfig{
		RatePerByte: fee.DefaultRatePerByte,
	},
	MaxNameLength: escrow.DefaultMaxNameLength,
}

// Config collects the parameters fixed for the lifetime of a ledger.
type Config struct {
	fee.StaticConfig

	// Principal entitled to withdraw the treasury
	Owner ids.ShortID `json:"owner"`

	// Longest accepted name, in bytes
	MaxNameLength int `json:"maxNameLength"`
}

// ParseConfig unmarshals [configBytes] over DefaultConfig. Empty bytes
// yield the defaults.
func ParseConfig(configBytes []byte) (Config, error) {
	cfg := DefaultConfig
	if len(configBytes) == 0 {
		return cfg, nil
	}
	err := json.Unmarshal(configBytes, &cfg)
	return cfg, err
}

func (c *Config) Verify() error {
	switch {
	case c.Owner == ids.ShortEmpty:
		return errMissingOwner
	case c.MaxNameLength <= 0 || c.MaxNameLength > math.MaxUint16:
		return fmt.Errorf("%w: %d", errInvalidMaxNameLength, c.MaxNameLength)
	default:
		return nil
	}
}
