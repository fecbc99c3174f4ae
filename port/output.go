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

package port

import (
	"github.com/ofswitch/ofswitch/action"
	"github.com/ofswitch/ofswitch/ofp"
)

// Driver is the seam between a Port and whatever actually moves bytes
// (a raw socket, a tap device, an in-memory test harness). Wiring a
// concrete driver to a NIC is out of scope for the datapath core; only
// the interface it must satisfy lives here.
type Driver interface {
	// Transmit sends data out the named port. An unknown or down port
	// is the caller's responsibility to detect via the Registry first.
	Transmit(port uint16, data []byte) error
}

// ControllerChannel delivers frames punted to the controller.
type ControllerChannel interface {
	PacketIn(frame []byte, maxLen uint16, reason ofp.PacketInReason) error
}

// Sink adapts a Registry and Driver into the action.Sink the executor
// runs against, applying per-port flag checks on the way out.
type Sink struct {
	Registry  *Registry
	Driver    Driver
	Upstream  ControllerChannel
	LocalPort uint16
}

var _ action.Sink = (*Sink)(nil)

// Output implements action.Sink.
func (s *Sink) Output(no uint16, frame action.Frame, ignoreNoFwd bool) error {
	p, ok := s.Registry.Get(no)
	if !ok {
		return nil
	}
	if p.Has(ofp.PortFlagNoFwd) && !ignoreNoFwd {
		return nil
	}
	return s.transmit(p, frame.Data)
}

// Flood implements action.Sink: every port except ingress and any
// port flagged NO_FLOOD.
func (s *Sink) Flood(ingress uint16, frame action.Frame) error {
	var firstErr error
	s.Registry.Range(func(p *Port) bool {
		if p.No == ingress || p.Has(ofp.PortFlagNoFlood) {
			return true
		}
		if err := s.transmit(p, frame.Data); err != nil && firstErr == nil {
			firstErr = err
		}
		return true
	})
	return firstErr
}

// All implements action.Sink: every port except ingress.
func (s *Sink) All(ingress uint16, frame action.Frame) error {
	var firstErr error
	s.Registry.Range(func(p *Port) bool {
		if p.No == ingress {
			return true
		}
		if err := s.transmit(p, frame.Data); err != nil && firstErr == nil {
			firstErr = err
		}
		return true
	})
	return firstErr
}

// Local implements action.Sink: deliver to the host management stack.
func (s *Sink) Local(frame action.Frame) error {
	p, ok := s.Registry.Get(s.LocalPort)
	if !ok {
		return nil
	}
	return s.transmit(p, frame.Data)
}

// Controller implements action.Sink.
func (s *Sink) Controller(frame action.Frame, maxLen uint16, reason ofp.PacketInReason) error {
	if s.Upstream == nil {
		return nil
	}
	return s.Upstream.PacketIn(frame.Data, maxLen, reason)
}

func (s *Sink) transmit(p *Port, data []byte) error {
	if err := s.Driver.Transmit(p.No, data); err != nil {
		p.recordDrop()
		return err
	}
	p.recordTx(len(data))
	return nil
}
