// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package run

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"

	"github.com/spf13/pflag"

	"github.com/luxfi/ids"

	"github.com/luxfi/namevm"
)

const (
	HTTPHostKey       = "http-host"
	HTTPPortKey       = "http-port"
	DBDirKey          = "db-dir"
	ConfigFileKey     = "config-file"
	OwnerKey          = "owner"
	FeeRatePerByteKey = "fee-rate-per-byte"
	CallerHeaderKey   = "caller-header"
	AllowedOriginsKey = "allowed-origins"
	JWTSecretFileKey  = "jwt-secret-file"
)

var errEmptyJWTSecret = errors.New("empty JWT secret")

func AddFlags(flags *pflag.FlagSet) {
	flags.String(HTTPHostKey, "127.0.0.1", "Address the API server listens on")
	flags.Uint16(HTTPPortKey, 9650, "Port the API server listens on")
	flags.String(DBDirKey, "", "Directory of the on-disk database. An in-memory database is used if empty")
	flags.String(ConfigFileKey, "", "JSON config file")
	flags.String(OwnerKey, "", "Address entitled to withdraw the fee treasury. Overrides the config file")
	flags.Uint64(FeeRatePerByteKey, namevm.DefaultConfig.RatePerByte, "Fee charged per byte of a registered name. Overrides the config file")
	flags.String(CallerHeaderKey, namevm.DefaultCallerHeader, "Header carrying the authenticated caller address")
	flags.StringSlice(AllowedOriginsKey, []string{"*"}, "Origins allowed to make cross-origin API calls")
	flags.String(JWTSecretFileKey, "", "File holding the HMAC secret of caller bearer tokens. Overrides --"+CallerHeaderKey)
}

type Config struct {
	HTTPAddress    string
	DBDir          string
	CallerHeader   string
	AllowedOrigins []string
	JWTSecret      []byte
	VM             namevm.Config
}

// Authenticator returns the bearer token authenticator if a JWT secret was
// provided, and the caller header authenticator otherwise.
func (c *Config) Authenticator() namevm.Authenticator {
	if len(c.JWTSecret) != 0 {
		return &namevm.JWTAuthenticator{Secret: c.JWTSecret}
	}
	return &namevm.HeaderAuthenticator{Header: c.CallerHeader}
}

// VMConfigBytes returns the VM config in the form accepted by Initialize.
func (c *Config) VMConfigBytes() ([]byte, error) {
	return json.Marshal(c.VM)
}

func ParseFlags(flags *pflag.FlagSet, args []string) (*Config, error) {
	if err := flags.Parse(args); err != nil {
		return nil, err
	}

	host, err := flags.GetString(HTTPHostKey)
	if err != nil {
		return nil, err
	}

	port, err := flags.GetUint16(HTTPPortKey)
	if err != nil {
		return nil, err
	}

	dbDir, err := flags.GetString(DBDirKey)
	if err != nil {
		return nil, err
	}

	configFile, err := flags.GetString(ConfigFileKey)
	if err != nil {
		return nil, err
	}

	var configBytes []byte
	if configFile != "" {
		configBytes, err = os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}
	vmConfig, err := namevm.ParseConfig(configBytes)
	if err != nil {
		return nil, err
	}

	ownerStr, err := flags.GetString(OwnerKey)
	if err != nil {
		return nil, err
	}
	if ownerStr != "" {
		vmConfig.Owner, err = ids.ShortFromString(ownerStr)
		if err != nil {
			return nil, fmt.Errorf("invalid owner: %w", err)
		}
	}

	if flags.Changed(FeeRatePerByteKey) {
		vmConfig.RatePerByte, err = flags.GetUint64(FeeRatePerByteKey)
		if err != nil {
			return nil, err
		}
	}

	callerHeader, err := flags.GetString(CallerHeaderKey)
	if err != nil {
		return nil, err
	}

	allowedOrigins, err := flags.GetStringSlice(AllowedOriginsKey)
	if err != nil {
		return nil, err
	}

	jwtSecretFile, err := flags.GetString(JWTSecretFileKey)
	if err != nil {
		return nil, err
	}

	var jwtSecret []byte
	if jwtSecretFile != "" {
		jwtSecret, err = os.ReadFile(jwtSecretFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read JWT secret: %w", err)
		}
		jwtSecret = bytes.TrimSpace(jwtSecret)
		if len(jwtSecret) == 0 {
			return nil, errEmptyJWTSecret
		}
	}

	return &Config{
		HTTPAddress:    net.JoinHostPort(host, strconv.FormatUint(uint64(port), 10)),
		DBDir:          dbDir,
		CallerHeader:   callerHeader,
		AllowedOrigins: allowedOrigins,
		JWTSecret:      jwtSecret,
		VM:             vmConfig,
	}, nil
}
