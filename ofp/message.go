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

package ofp

import (
	"encoding/binary"
	"fmt"
)

// Echo carries the opaque payload of an ECHO_REQUEST or ECHO_REPLY,
// which the receiver must return verbatim.
type Echo struct {
	Data []byte
}

// ErrorBody is the decoded body of an ERROR message.
type ErrorBody struct {
	ErrType ErrorType
	Code    uint16
	Data    []byte
}

// MarshalBinary encodes e.
func (e ErrorBody) MarshalBinary() ([]byte, error) {
	b := make([]byte, 4+len(e.Data))
	binary.BigEndian.PutUint16(b[0:2], uint16(e.ErrType))
	binary.BigEndian.PutUint16(b[2:4], e.Code)
	copy(b[4:], e.Data)
	return b, nil
}

// UnmarshalErrorBody decodes an ERROR body from b.
func UnmarshalErrorBody(b []byte) (ErrorBody, error) {
	if len(b) < 4 {
		return ErrorBody{}, fmt.Errorf("ofp: short error body")
	}
	return ErrorBody{
		ErrType: ErrorType(binary.BigEndian.Uint16(b[0:2])),
		Code:    binary.BigEndian.Uint16(b[2:4]),
		Data:    append([]byte(nil), b[4:]...),
	}, nil
}

// Vendor is the decoded body of a VENDOR message: a 32-bit vendor
// identifier plus an opaque, vendor-defined payload. No vendor
// extension is implemented; the body is parsed only so a well-formed
// VENDOR message never trips BAD_LENGTH.
type Vendor struct {
	VendorID uint32
	Data     []byte
}

// MarshalBinary encodes v.
func (v Vendor) MarshalBinary() ([]byte, error) {
	b := make([]byte, 4+len(v.Data))
	binary.BigEndian.PutUint32(b[0:4], v.VendorID)
	copy(b[4:], v.Data)
	return b, nil
}

// UnmarshalVendor decodes a VENDOR body from b.
func UnmarshalVendor(b []byte) (Vendor, error) {
	if len(b) < 4 {
		return Vendor{}, fmt.Errorf("ofp: short vendor body")
	}
	return Vendor{VendorID: binary.BigEndian.Uint32(b[0:4]), Data: append([]byte(nil), b[4:]...)}, nil
}

// FeaturesReply is the FEATURES_REQUEST response body.
type FeaturesReply struct {
	DatapathID    uint64
	NExact        uint32
	NCompression  uint32
	NGeneral      uint32
	BufferMB      uint32
	NBuffers      uint32
	Capabilities  uint32
	ActionBitmap  uint32
	Ports         []PhyPort
}

// MarshalBinary encodes f.
func (f FeaturesReply) MarshalBinary() ([]byte, error) {
	b := make([]byte, 36)
	binary.BigEndian.PutUint64(b[0:8], f.DatapathID)
	binary.BigEndian.PutUint32(b[8:12], f.NExact)
	binary.BigEndian.PutUint32(b[12:16], f.NCompression)
	binary.BigEndian.PutUint32(b[16:20], f.NGeneral)
	binary.BigEndian.PutUint32(b[20:24], f.BufferMB)
	binary.BigEndian.PutUint32(b[24:28], f.NBuffers)
	binary.BigEndian.PutUint32(b[28:32], f.Capabilities)
	binary.BigEndian.PutUint32(b[32:36], f.ActionBitmap)
	for _, p := range f.Ports {
		pb, err := p.MarshalBinary()
		if err != nil {
			return nil, err
		}
		b = append(b, pb...)
	}
	return b, nil
}

// UnmarshalFeaturesReply decodes a FEATURES_REPLY body from b.
func UnmarshalFeaturesReply(b []byte) (FeaturesReply, error) {
	if len(b) < 36 {
		return FeaturesReply{}, fmt.Errorf("ofp: short features reply")
	}
	f := FeaturesReply{
		DatapathID:   binary.BigEndian.Uint64(b[0:8]),
		NExact:       binary.BigEndian.Uint32(b[8:12]),
		NCompression: binary.BigEndian.Uint32(b[12:16]),
		NGeneral:     binary.BigEndian.Uint32(b[16:20]),
		BufferMB:     binary.BigEndian.Uint32(b[20:24]),
		NBuffers:     binary.BigEndian.Uint32(b[24:28]),
		Capabilities: binary.BigEndian.Uint32(b[28:32]),
		ActionBitmap: binary.BigEndian.Uint32(b[32:36]),
	}
	ports, err := UnmarshalPhyPorts(b[36:])
	if err != nil {
		return FeaturesReply{}, err
	}
	f.Ports = ports
	return f, nil
}

// ConfigBody is the shared body of GET_CONFIG_REPLY and SET_CONFIG.
type ConfigBody struct {
	Flags       uint16
	MissSendLen uint16
}

// MarshalBinary encodes c.
func (c ConfigBody) MarshalBinary() ([]byte, error) {
	b := make([]byte, 4)
	binary.BigEndian.PutUint16(b[0:2], c.Flags)
	binary.BigEndian.PutUint16(b[2:4], c.MissSendLen)
	return b, nil
}

// UnmarshalConfigBody decodes a ConfigBody from b.
func UnmarshalConfigBody(b []byte) (ConfigBody, error) {
	if len(b) < 4 {
		return ConfigBody{}, fmt.Errorf("ofp: short config body")
	}
	return ConfigBody{
		Flags:       binary.BigEndian.Uint16(b[0:2]),
		MissSendLen: binary.BigEndian.Uint16(b[2:4]),
	}, nil
}

// PacketIn is the PACKET_IN body.
type PacketIn struct {
	BufferID uint32
	TotalLen uint16
	InPort   uint16
	Reason   PacketInReason
	Data     []byte
}

// MarshalBinary encodes p.
func (p PacketIn) MarshalBinary() ([]byte, error) {
	b := make([]byte, 10+len(p.Data))
	binary.BigEndian.PutUint32(b[0:4], p.BufferID)
	binary.BigEndian.PutUint16(b[4:6], p.TotalLen)
	binary.BigEndian.PutUint16(b[6:8], p.InPort)
	b[8] = byte(p.Reason)
	// b[9] pad
	copy(b[10:], p.Data)
	return b, nil
}

// UnmarshalPacketIn decodes a PACKET_IN body from b.
func UnmarshalPacketIn(b []byte) (PacketIn, error) {
	if len(b) < 10 {
		return PacketIn{}, fmt.Errorf("ofp: short packet-in body")
	}
	return PacketIn{
		BufferID: binary.BigEndian.Uint32(b[0:4]),
		TotalLen: binary.BigEndian.Uint16(b[4:6]),
		InPort:   binary.BigEndian.Uint16(b[6:8]),
		Reason:   PacketInReason(b[8]),
		Data:     append([]byte(nil), b[10:]...),
	}, nil
}

// FlowExpired is the FLOW_EXPIRED body.
type FlowExpired struct {
	Match       Match
	Priority    uint16
	Duration    uint32
	PacketCount uint64
	ByteCount   uint64
}

// MarshalBinary encodes f.
func (f FlowExpired) MarshalBinary() ([]byte, error) {
	mb, err := f.Match.MarshalBinary()
	if err != nil {
		return nil, err
	}
	b := make([]byte, len(mb)+24)
	copy(b, mb)
	off := len(mb)
	binary.BigEndian.PutUint16(b[off:off+2], f.Priority)
	off += 4 // skip 2-byte pad
	binary.BigEndian.PutUint32(b[off:off+4], f.Duration)
	off += 4
	binary.BigEndian.PutUint64(b[off:off+8], f.PacketCount)
	off += 8
	binary.BigEndian.PutUint64(b[off:off+8], f.ByteCount)
	return b, nil
}

// UnmarshalFlowExpired decodes a FLOW_EXPIRED body from b.
func UnmarshalFlowExpired(b []byte) (FlowExpired, error) {
	if len(b) < MatchLen+24 {
		return FlowExpired{}, fmt.Errorf("ofp: short flow-expired body")
	}
	m, err := UnmarshalMatch(b)
	if err != nil {
		return FlowExpired{}, err
	}
	off := MatchLen
	f := FlowExpired{Match: m}
	f.Priority = binary.BigEndian.Uint16(b[off : off+2])
	off += 4
	f.Duration = binary.BigEndian.Uint32(b[off : off+4])
	off += 4
	f.PacketCount = binary.BigEndian.Uint64(b[off : off+8])
	off += 8
	f.ByteCount = binary.BigEndian.Uint64(b[off : off+8])
	return f, nil
}

// PortStatus is the PORT_STATUS body.
type PortStatus struct {
	Reason PortStatusReason
	Desc   PhyPort
}

// MarshalBinary encodes p.
func (p PortStatus) MarshalBinary() ([]byte, error) {
	db, err := p.Desc.MarshalBinary()
	if err != nil {
		return nil, err
	}
	b := make([]byte, 4+len(db))
	b[0] = byte(p.Reason)
	copy(b[4:], db)
	return b, nil
}

// UnmarshalPortStatus decodes a PORT_STATUS body from b.
func UnmarshalPortStatus(b []byte) (PortStatus, error) {
	if len(b) < 4+PhyPortLen {
		return PortStatus{}, fmt.Errorf("ofp: short port-status body")
	}
	desc, err := UnmarshalPhyPort(b[4:])
	if err != nil {
		return PortStatus{}, err
	}
	return PortStatus{Reason: PortStatusReason(b[0]), Desc: desc}, nil
}

// PacketOut is the PACKET_OUT body: either Data (a buffer_id of
// NoBuffer, carrying an inline frame) or a saved buffer_id, followed
// in both cases by the action list to execute.
type PacketOut struct {
	BufferID uint32
	InPort   uint16
	Actions  []Action
	Data     []byte
}

// MarshalBinary encodes p.
func (p PacketOut) MarshalBinary() ([]byte, error) {
	ab, err := MarshalActions(p.Actions)
	if err != nil {
		return nil, err
	}
	b := make([]byte, 8+len(ab)+len(p.Data))
	binary.BigEndian.PutUint32(b[0:4], p.BufferID)
	binary.BigEndian.PutUint16(b[4:6], p.InPort)
	binary.BigEndian.PutUint16(b[6:8], uint16(len(ab)))
	copy(b[8:], ab)
	copy(b[8+len(ab):], p.Data)
	return b, nil
}

// UnmarshalPacketOut decodes a PACKET_OUT body from b.
func UnmarshalPacketOut(b []byte) (PacketOut, error) {
	if len(b) < 8 {
		return PacketOut{}, fmt.Errorf("ofp: short packet-out body")
	}
	p := PacketOut{
		BufferID: binary.BigEndian.Uint32(b[0:4]),
		InPort:   binary.BigEndian.Uint16(b[4:6]),
	}
	actionsLen := int(binary.BigEndian.Uint16(b[6:8]))
	if len(b) < 8+actionsLen {
		return PacketOut{}, fmt.Errorf("ofp: packet-out action length %d exceeds payload", actionsLen)
	}
	actions, err := UnmarshalActions(b[8 : 8+actionsLen])
	if err != nil {
		return PacketOut{}, err
	}
	p.Actions = actions
	p.Data = append([]byte(nil), b[8+actionsLen:]...)
	return p, nil
}

// FlowMod is the FLOW_MOD body. The distilled wire table names a
// single "max_idle" timeout field, but the data model requires both
// an idle and a hard timeout (§3); this implementation carries both,
// resolving that inconsistency in favor of the data model (see
// DESIGN.md).
type FlowMod struct {
	Match       Match
	Command     FlowModCommand
	IdleTimeout uint16
	HardTimeout uint16
	BufferID    uint32
	Priority    uint16
	Actions     []Action
}

// MarshalBinary encodes f.
func (f FlowMod) MarshalBinary() ([]byte, error) {
	mb, err := f.Match.MarshalBinary()
	if err != nil {
		return nil, err
	}
	ab, err := MarshalActions(f.Actions)
	if err != nil {
		return nil, err
	}
	b := make([]byte, len(mb)+18+len(ab))
	off := copy(b, mb)
	binary.BigEndian.PutUint16(b[off:off+2], uint16(f.Command))
	off += 2
	binary.BigEndian.PutUint16(b[off:off+2], f.IdleTimeout)
	off += 2
	binary.BigEndian.PutUint16(b[off:off+2], f.HardTimeout)
	off += 2
	binary.BigEndian.PutUint32(b[off:off+4], f.BufferID)
	off += 4
	binary.BigEndian.PutUint16(b[off:off+2], f.Priority)
	off += 4 // priority + 2-byte pad
	off += 4 // reserved
	copy(b[off:], ab)
	return b, nil
}

// UnmarshalFlowMod decodes a FLOW_MOD body from b.
func UnmarshalFlowMod(b []byte) (FlowMod, error) {
	if len(b) < MatchLen+18 {
		return FlowMod{}, fmt.Errorf("ofp: short flow-mod body")
	}
	m, err := UnmarshalMatch(b)
	if err != nil {
		return FlowMod{}, err
	}
	off := MatchLen
	f := FlowMod{Match: m}
	f.Command = FlowModCommand(binary.BigEndian.Uint16(b[off : off+2]))
	off += 2
	f.IdleTimeout = binary.BigEndian.Uint16(b[off : off+2])
	off += 2
	f.HardTimeout = binary.BigEndian.Uint16(b[off : off+2])
	off += 2
	f.BufferID = binary.BigEndian.Uint32(b[off : off+4])
	off += 4
	f.Priority = binary.BigEndian.Uint16(b[off : off+2])
	off += 4 // priority + pad
	off += 4 // reserved
	actions, err := UnmarshalActions(b[off:])
	if err != nil {
		return FlowMod{}, err
	}
	f.Actions = actions
	return f, nil
}
