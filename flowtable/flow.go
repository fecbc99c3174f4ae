// Copyright 2024 The ofswitch Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package flowtable holds the flow chain: the exact-hash, double-hash
// and linear-priority tables, composed into a single lookup/insert/
// delete/timeout surface with lock-free reads.
package flowtable

import (
	"errors"
	"sync/atomic"

	"github.com/ofswitch/ofswitch/action"
	"github.com/ofswitch/ofswitch/flowkey"
)

// Permanent disables a flow's idle or hard timeout.
const Permanent uint16 = 0

// MaxActions bounds a single flow's action list.
const MaxActions = 16

// ErrTooManyActions is returned by New when a program exceeds MaxActions.
var ErrTooManyActions = errors.New("flowtable: action list exceeds MaxActions")

// ExpireReason explains why Chain.Timeout removed a flow.
type ExpireReason int

const (
	ExpireIdle ExpireReason = iota
	ExpireHard
)

// Flow is one entry in the chain: a match template, bookkeeping, and
// an action program. Flows are immutable except for their counters
// (lock-free, monotonic) and their Actions pointer (replaced wholesale
// by MODIFY with an atomic store; the old list is left to the garbage
// collector, not handed to the Reclaimer).
type Flow struct {
	Key       flowkey.Key
	Wildcards flowkey.Wildcards
	Priority  uint16

	IdleTimeout uint16
	HardTimeout uint16
	Cookie      uint64
	CreatedAt   int64

	actions atomic.Pointer[action.Program]

	usedAt      atomic.Int64
	packetCount atomic.Uint64
	byteCount   atomic.Uint64
}

// New builds a Flow with the given program, rejecting oversized
// action lists before they ever reach the chain.
func New(key flowkey.Key, wildcards flowkey.Wildcards, priority uint16, idle, hard uint16, cookie uint64, now int64, prog action.Program) (*Flow, error) {
	if len(prog) > MaxActions {
		return nil, ErrTooManyActions
	}
	f := &Flow{
		Key:         key,
		Wildcards:   wildcards,
		Priority:    priority,
		IdleTimeout: idle,
		HardTimeout: hard,
		Cookie:      cookie,
		CreatedAt:   now,
	}
	f.usedAt.Store(now)
	p := prog
	f.actions.Store(&p)
	return f, nil
}

// Actions returns the flow's current action program. Safe to call
// without any lock, even concurrently with ReplaceActions.
func (f *Flow) Actions() action.Program {
	return *f.actions.Load()
}

// ReplaceActions atomically swaps in a new program, as MODIFY does.
// The caller is responsible for deferring reclamation of anything the
// old program referenced that isn't itself garbage-collected.
func (f *Flow) ReplaceActions(prog action.Program) {
	p := prog
	f.actions.Store(&p)
}

// Touch records a packet match: bumps used_at and the counters. Called
// from the packet path without any lock; counters tolerate benign
// read-tearing across 64-bit loads on 32-bit platforms because they
// are monotonic and never read back for correctness decisions.
func (f *Flow) Touch(now int64, frameLen int) {
	f.usedAt.Store(now)
	f.packetCount.Add(1)
	f.byteCount.Add(uint64(frameLen))
}

// UsedAt returns the timestamp of the flow's most recent match.
func (f *Flow) UsedAt() int64 { return f.usedAt.Load() }

// PacketCount returns the flow's matched-packet count.
func (f *Flow) PacketCount() uint64 { return f.packetCount.Load() }

// ByteCount returns the flow's matched-byte count.
func (f *Flow) ByteCount() uint64 { return f.byteCount.Load() }

// Duration returns how long the flow has existed, in seconds, as of now.
func (f *Flow) Duration(now int64) int64 { return now - f.CreatedAt }

// expired reports whether the flow should be removed as of now, and
// why. The idle test is checked first, per §4.6.
func (f *Flow) expired(now int64) (ExpireReason, bool) {
	if f.IdleTimeout != Permanent && now > f.usedAt.Load()+int64(f.IdleTimeout) {
		return ExpireIdle, true
	}
	if f.HardTimeout != Permanent && now > f.CreatedAt+int64(f.HardTimeout) {
		return ExpireHard, true
	}
	return 0, false
}
