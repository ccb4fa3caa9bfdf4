// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package run

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/ids"

	"github.com/luxfi/namevm"
)

func newFlags() *pflag.FlagSet {
	flags := pflag.NewFlagSet("run", pflag.ContinueOnError)
	AddFlags(flags)
	return flags
}

func TestParseFlagsDefaults(t *testing.T) {
	require := require.New(t)

	config, err := ParseFlags(newFlags(), nil)
	require.NoError(err)
	require.Equal("127.0.0.1:9650", config.HTTPAddress)
	require.Empty(config.DBDir)
	require.Equal(namevm.DefaultCallerHeader, config.CallerHeader)
	require.Equal([]string{"*"}, config.AllowedOrigins)
	require.Equal(namevm.DefaultConfig, config.VM)
}

func TestParseFlagsOverrideConfigFile(t *testing.T) {
	require := require.New(t)

	fileOwner := ids.GenerateTestShortID()
	flagOwner := ids.GenerateTestShortID()

	configFile := filepath.Join(t.TempDir(), "config.json")
	require.NoError(os.WriteFile(
		configFile,
		[]byte(fmt.Sprintf(`{"owner":%q,"feeRatePerByte":5,"maxNameLength":64}`, fileOwner)),
		0o600,
	))

	config, err := ParseFlags(newFlags(), []string{
		"--" + ConfigFileKey, configFile,
		"--" + OwnerKey, flagOwner.String(),
		"--" + HTTPPortKey, "8080",
	})
	require.NoError(err)
	require.Equal("127.0.0.1:8080", config.HTTPAddress)
	require.Equal(flagOwner, config.VM.Owner)
	require.Equal(uint64(5), config.VM.RatePerByte)
	require.Equal(64, config.VM.MaxNameLength)

	config, err = ParseFlags(newFlags(), []string{
		"--" + ConfigFileKey, configFile,
		"--" + FeeRatePerByteKey, "9",
	})
	require.NoError(err)
	require.Equal(fileOwner, config.VM.Owner)
	require.Equal(uint64(9), config.VM.RatePerByte)
}

func TestParseFlagsInvalidOwner(t *testing.T) {
	_, err := ParseFlags(newFlags(), []string{"--" + OwnerKey, "not-an-address"})
	require.Error(t, err)
}

func TestVMConfigBytesRoundTrip(t *testing.T) {
	require := require.New(t)

	config, err := ParseFlags(newFlags(), []string{
		"--" + OwnerKey, ids.GenerateTestShortID().String(),
		"--" + FeeRatePerByteKey, "3",
	})
	require.NoError(err)

	configBytes, err := config.VMConfigBytes()
	require.NoError(err)

	parsed, err := namevm.ParseConfig(configBytes)
	require.NoError(err)
	require.Equal(config.VM, parsed)
}

func TestParseFlagsJWTSecret(t *testing.T) {
	require := require.New(t)

	config, err := ParseFlags(newFlags(), nil)
	require.NoError(err)
	require.IsType(&namevm.HeaderAuthenticator{}, config.Authenticator())

	dir := t.TempDir()
	secretFile := filepath.Join(dir, "secret")
	require.NoError(os.WriteFile(secretFile, []byte("s3cret\n"), 0o600))

	config, err = ParseFlags(newFlags(), []string{"--" + JWTSecretFileKey, secretFile})
	require.NoError(err)
	require.Equal([]byte("s3cret"), config.JWTSecret)
	require.Equal(&namevm.JWTAuthenticator{Secret: []byte("s3cret")}, config.Authenticator())

	emptyFile := filepath.Join(dir, "empty")
	require.NoError(os.WriteFile(emptyFile, []byte("\n"), 0o600))

	_, err = ParseFlags(newFlags(), []string{"--" + JWTSecretFileKey, emptyFile})
	require.ErrorIs(err, errEmptyJWTSecret)
}
