// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package namevm

// State is the lifecycle state of a VM instance.
type State uint8

const (
	// Unknown is the state before Initialize.
	Unknown State = iota

	// NormalOp indicates the VM is serving calls.
	NormalOp

	// Stopped indicates Shutdown was called.
	Stopped
)

func (s State) String() string {
	switch s {
	case NormalOp:
		return "NormalOp"
	case Stopped:
		return "Stopped"
	default:
		return "Unknown"
	}
}
