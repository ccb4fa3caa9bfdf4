// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package json provides JSON types for API arguments and replies.
package json

import (
	"bytes"
	"strconv"
)

const Null = "null"

// Uint64 is a uint64 that is marshalled as a decimal JSON string so that
// amounts above 2^53 survive JavaScript clients. Both quoted and bare
// numbers are accepted when unmarshalling.
type Uint64 uint64

func (u Uint64) MarshalJSON() ([]byte, error) {
	b := make([]byte, 0, 22)
	b = append(b, '"')
	b = strconv.AppendUint(b, uint64(u), 10)
	return append(b, '"'), nil
}

func (u *Uint64) UnmarshalJSON(b []byte) error {
	if string(b) == Null {
		return nil
	}
	b = bytes.TrimPrefix(b, []byte{'"'})
	b = bytes.TrimSuffix(b, []byte{'"'})
	val, err := strconv.ParseUint(string(b), 10, 64)
	if err != nil {
		return err
	}
	*u = Uint64(val)
	return nil
}
