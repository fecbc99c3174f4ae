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

package control

import (
	"encoding/binary"

	"github.com/ofswitch/ofswitch/action"
	"github.com/ofswitch/ofswitch/flowkey"
	"github.com/ofswitch/ofswitch/flowtable"
	"github.com/ofswitch/ofswitch/ofp"
)

func handleHello(s *State, sender Sender, xid uint32, body []byte) error {
	return nil
}

func handleEchoRequest(s *State, sender Sender, xid uint32, body []byte) error {
	return sender.Send(ofp.TypeEchoReply, xid, ofp.Echo{Data: body})
}

func handleEchoReply(s *State, sender Sender, xid uint32, body []byte) error {
	return nil
}

// handleVendor accepts a well-formed VENDOR message and rejects it
// with BAD_VENDOR, since no vendor extension is implemented. Parsing
// the header first means a malformed body still gets validated before
// being reported, rather than being rejected purely on type.
func handleVendor(s *State, sender Sender, xid uint32, body []byte) error {
	v, err := ofp.UnmarshalVendor(body)
	if err != nil {
		return ofp.NewProtocolError(ofp.ErrorBadLength, 0, body)
	}
	data := make([]byte, 4)
	binary.BigEndian.PutUint32(data, v.VendorID)
	return ofp.NewProtocolError(ofp.ErrorBadVendor, 0, data)
}

func handleFeaturesRequest(s *State, sender Sender, xid uint32, body []byte) error {
	return sender.Send(ofp.TypeFeaturesReply, xid, ofp.FeaturesReply{
		DatapathID:   s.DatapathID,
		NExact:       s.TableMax[0],
		NCompression: s.TableMax[1],
		NGeneral:     s.TableMax[2],
		NBuffers:     256,
		Capabilities: ofp.CapFlowStats | ofp.CapTableStats | ofp.CapPortStats,
		ActionBitmap: ofp.ActionBitmap(),
		Ports:        s.Ports.Descriptors(),
	})
}

func handleGetConfig(s *State, sender Sender, xid uint32, body []byte) error {
	flags, missSendLen := s.Config.Get()
	return sender.Send(ofp.TypeGetConfigReply, xid, ofp.ConfigBody{Flags: flags, MissSendLen: missSendLen})
}

func handleSetConfig(s *State, sender Sender, xid uint32, body []byte) error {
	cb, err := ofp.UnmarshalConfigBody(body)
	if err != nil {
		return ofp.NewProtocolError(ofp.ErrorBadLength, 0, body)
	}
	s.Config.Set(cb.Flags, cb.MissSendLen)
	return nil
}

// handlePacketOut emits an inline frame or retrieves a saved buffer,
// then runs the given action list against it with ignore_no_fwd=true,
// per §4.10.
func handlePacketOut(s *State, sender Sender, xid uint32, body []byte) error {
	po, err := ofp.UnmarshalPacketOut(body)
	if err != nil {
		return ofp.NewProtocolError(ofp.ErrorBadLength, 0, body)
	}

	var frame action.Frame
	if po.BufferID == ofp.NoBuffer {
		frame = action.NewFrame(po.Data)
	} else {
		frame, err = s.Pool.Retrieve(po.BufferID)
		if err != nil {
			return ofp.NewProtocolError(ofp.ErrorBufferUnknown, 0, body)
		}
	}

	key, _ := flowkey.Parse(frame.Data, po.InPort)
	prog := action.FromWire(po.Actions)
	return action.Execute(frame, key, prog, true, s.Sink)
}

// handleFlowMod dispatches to the command-specific flow-table
// mutation, rejecting action lists that would loop before admitting
// them to the chain.
func handleFlowMod(s *State, sender Sender, xid uint32, body []byte) error {
	fm, err := ofp.UnmarshalFlowMod(body)
	if err != nil {
		return ofp.NewProtocolError(ofp.ErrorBadLength, 0, body)
	}

	key, wildcards := flowkey.Template(fm.Match.ToWireMatch())
	prog := action.FromWire(fm.Actions)

	switch fm.Command {
	case ofp.FlowAdd:
		return flowAdd(s, key, wildcards, fm, prog, body)
	case ofp.FlowModify, ofp.FlowModifyStrict:
		strict := fm.Command == ofp.FlowModifyStrict
		spec := flowtable.Spec{Key: key, Wildcards: wildcards, Priority: fm.Priority}
		for _, f := range s.Chain.Find(spec, strict) {
			f.ReplaceActions(prog)
		}
		return nil
	case ofp.FlowDelete, ofp.FlowDeleteStrict:
		strict := fm.Command == ofp.FlowDeleteStrict
		s.Chain.Delete(flowtable.Spec{Key: key, Wildcards: wildcards, Priority: fm.Priority}, strict)
		return nil
	default:
		return ofp.NewProtocolError(ofp.ErrorBadAction, 0, body)
	}
}

func flowAdd(s *State, key flowkey.Key, wildcards flowkey.Wildcards, fm ofp.FlowMod, prog action.Program, body []byte) error {
	if err := action.Validate(prog, key.InPort); err != nil {
		return ofp.NewProtocolError(ofp.ErrorBadAction, 0, body)
	}

	flow, err := flowtable.New(key, wildcards, fm.Priority, fm.IdleTimeout, fm.HardTimeout, 0, s.Now(), prog)
	if err != nil {
		return ofp.NewProtocolError(ofp.ErrorBadAction, 0, body)
	}

	if !s.Chain.Insert(flow) {
		return ofp.NewProtocolError(ofp.ErrorFlowTableFull, 0, body)
	}

	if fm.BufferID != ofp.NoBuffer {
		frame, err := s.Pool.Retrieve(fm.BufferID)
		if err == nil {
			return action.Execute(frame, key, prog, false, s.Sink)
		}
	}
	return nil
}

// handlePortMod applies the requested flags and echoes the change back
// as an unsolicited PORT_STATUS, matching the reference datapath's
// practice of notifying the controller of its own PORT_MOD effect
// rather than leaving the controller to infer it silently.
func handlePortMod(s *State, sender Sender, xid uint32, body []byte) error {
	pp, err := ofp.UnmarshalPhyPort(body)
	if err != nil {
		return ofp.NewProtocolError(ofp.ErrorBadLength, 0, body)
	}
	p, ok := s.Ports.Get(pp.PortNo)
	if !ok {
		return nil
	}
	p.SetFlags(pp.Flags)
	return sender.Send(ofp.TypePortStatus, 0, ofp.PortStatus{Reason: ofp.PortStatusModify, Desc: p.ToPhyPort()})
}
