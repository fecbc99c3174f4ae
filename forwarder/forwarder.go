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

// Package forwarder orchestrates the packet-in path: parse, fragment
// and receive-flag checks, chain lookup, and either action execution
// or a controller punt, per §4.9.
package forwarder

import (
	"github.com/ofswitch/ofswitch/action"
	"github.com/ofswitch/ofswitch/bufpool"
	"github.com/ofswitch/ofswitch/flowkey"
	"github.com/ofswitch/ofswitch/flowtable"
	"github.com/ofswitch/ofswitch/ofp"
	"github.com/ofswitch/ofswitch/port"
)

// stpMAC is the IEEE 802.1D spanning-tree protocol destination
// address that NO_RECV_STP filters.
var stpMAC = [6]byte{0x01, 0x80, 0xc2, 0x00, 0x00, 0x00}

// Config is the subset of datapath configuration the forwarder reads
// on every packet.
type Config struct {
	Frag        ofp.FragMode
	MissSendLen uint16
}

// Controller is the upstream seam the forwarder punts misses through.
// datapath.Datapath implements this by sending a PACKET_IN over the
// currently attached control connection.
type Controller interface {
	PacketIn(p ofp.PacketIn) error
}

// Clock abstracts the monotonic-seconds source so tests can control
// time without sleeping.
type Clock func() int64

// Forwarder ties the chain, port registry, buffer pool and action
// sink together for the packet-in path.
type Forwarder struct {
	Chain      *flowtable.Chain
	Ports      *port.Registry
	Pool       *bufpool.Pool
	Sink       action.Sink
	Controller Controller
	Config     func() Config
	Now        Clock
}

// Forward runs one frame through the full §4.9 pipeline.
func (f *Forwarder) Forward(data []byte, inPort uint16) error {
	cfg := f.Config()
	now := f.Now()

	key, isFrag := flowkey.Parse(data, inPort)
	if isFrag && cfg.Frag == ofp.FragDrop {
		return nil
	}

	p, ok := f.Ports.Get(inPort)
	if !ok {
		return nil
	}
	if p.Has(ofp.PortFlagNoRecv) {
		return nil
	}
	if key.DLDst == stpMAC && p.Has(ofp.PortFlagNoRecvSTP) {
		return nil
	}

	flow, hit := f.Chain.Lookup(key)
	if hit {
		flow.Touch(now, len(data))
		return action.Execute(action.NewFrame(data), key, flow.Actions(), false, f.Sink)
	}

	return f.puntToController(data, inPort, int(cfg.MissSendLen))
}

// puntToController saves the frame for later PACKET_OUT/buffer
// retrieval and sends the controller a (possibly truncated) copy. A
// full buffer pool degrades to sending the entire frame inline with
// no buffer id, per §4.9.
func (f *Forwarder) puntToController(data []byte, inPort uint16, missSendLen int) error {
	id, saved := f.Pool.Save(action.NewFrame(append([]byte(nil), data...)), f.Now())

	bufferID := ofp.NoBuffer
	sendData := data
	if saved {
		bufferID = id
		sendData = truncate(data, missSendLen)
	}

	return f.Controller.PacketIn(ofp.PacketIn{
		BufferID: bufferID,
		TotalLen: uint16(len(data)),
		InPort:   inPort,
		Reason:   ofp.ReasonNoMatch,
		Data:     sendData,
	})
}

func truncate(data []byte, n int) []byte {
	if n <= 0 || n >= len(data) {
		return data
	}
	return data[:n]
}
