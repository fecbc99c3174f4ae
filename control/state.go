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

// Package control implements the control-message dispatch of §4.10:
// header validation, then handlers that add/modify/delete flows, read
// and write configuration, and answer FEATURES/STATS requests.
package control

import (
	"github.com/ofswitch/ofswitch/action"
	"github.com/ofswitch/ofswitch/bufpool"
	"github.com/ofswitch/ofswitch/flowtable"
	"github.com/ofswitch/ofswitch/ofp"
	"github.com/ofswitch/ofswitch/port"
	"github.com/rs/zerolog"
)

// wireMessage is anything that can encode itself as a message body;
// every ofp message type satisfies it.
type wireMessage interface {
	MarshalBinary() ([]byte, error)
}

// Sender is the outbound seam Dispatch's handlers reply through: one
// control connection per datapath, serializing a typed body behind
// the common 8-byte header.
type Sender interface {
	Send(t ofp.Type, xid uint32, body wireMessage) error
}

// State is everything a handler needs: the flow chain, the port
// registry, the buffer pool, the action sink frames are executed
// through, and the mutable runtime configuration.
type State struct {
	DatapathID uint64
	Chain      *flowtable.Chain
	Ports      *port.Registry
	Pool       *bufpool.Pool
	Sink       action.Sink
	Config     *Config
	Now        func() int64

	// TableWildcards is reported in STATS_TABLE for each of the three
	// fixed tables, in chain order.
	TableWildcards [3]uint32
	TableMax       [3]uint32

	Log zerolog.Logger
}
