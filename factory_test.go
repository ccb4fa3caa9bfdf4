// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package namevm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/database/memdb"
	"github.com/luxfi/ids"
	"github.com/luxfi/log"
	"github.com/luxfi/metric"
)

func TestFactory(t *testing.T) {
	require := require.New(t)

	intf, err := (&Factory{}).New(log.NewNoOpLogger())
	require.NoError(err)
	require.IsType(&VM{}, intf)

	vm := intf.(*VM)
	require.Equal(Unknown, vm.state)

	_, err = vm.IssueTicket(ids.GenerateTestShortID())
	require.ErrorIs(err, errNotRunning)

	require.NoError(vm.Initialize(
		context.Background(),
		memdb.New(),
		configBytes(ids.GenerateTestShortID()),
		metric.NewRegistry(),
	))
	require.Equal(NormalOp, vm.state)
	require.NoError(vm.Shutdown(context.Background()))
	require.Equal(Stopped, vm.state)
}
