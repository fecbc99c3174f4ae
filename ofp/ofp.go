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

// Package ofp implements the wire-level vocabulary of the OpenFlow
// v0x83-era control protocol named in §6: message framing, the match
// and action wire layouts, and the sentinel constants every higher
// package in this module builds on. It has no knowledge of tables,
// ports, or the packet path; it only encodes and decodes bytes.
package ofp

// Version is the only control-protocol version this datapath speaks,
// except for the messages explicitly exempted by §4.10 (HELLO,
// ECHO_REQUEST/REPLY, ERROR, VENDOR).
const Version uint8 = 0x83

// Type identifies the body that follows an 8-byte header.
type Type uint8

// Message type codes, per §6.
const (
	TypeHello Type = iota
	TypeError
	TypeEchoRequest
	TypeEchoReply
	TypeVendor
	TypeFeaturesRequest
	TypeFeaturesReply
	TypeGetConfigRequest
	TypeGetConfigReply
	TypeSetConfig
	TypePacketIn
	TypeFlowExpired
	_ // 12 is unused in the v0x83 wire layout
	TypePortMod
	TypePortStatus
	TypePacketOut
	TypeFlowMod
	TypeStatsRequest
	TypeStatsReply
)

func (t Type) String() string {
	if s, ok := typeNames[t]; ok {
		return s
	}
	return "TypeUnknown"
}

var typeNames = map[Type]string{
	TypeHello:            "HELLO",
	TypeError:            "ERROR",
	TypeEchoRequest:      "ECHO_REQUEST",
	TypeEchoReply:        "ECHO_REPLY",
	TypeVendor:           "VENDOR",
	TypeFeaturesRequest:  "FEATURES_REQUEST",
	TypeFeaturesReply:    "FEATURES_REPLY",
	TypeGetConfigRequest: "GET_CONFIG_REQUEST",
	TypeGetConfigReply:   "GET_CONFIG_REPLY",
	TypeSetConfig:        "SET_CONFIG",
	TypePacketIn:         "PACKET_IN",
	TypeFlowExpired:      "FLOW_EXPIRED",
	TypePortMod:          "PORT_MOD",
	TypePortStatus:       "PORT_STATUS",
	TypePacketOut:        "PACKET_OUT",
	TypeFlowMod:          "FLOW_MOD",
	TypeStatsRequest:     "STATS_REQUEST",
	TypeStatsReply:       "STATS_REPLY",
}

// HeaderLen is the size of the 8-byte message header common to every
// message type.
const HeaderLen = 8

// Sentinel port numbers, per §6.
const (
	PortMax        uint16 = 0xff00
	PortTable      uint16 = 0xfff9
	PortNormal     uint16 = 0xfffa
	PortFlood      uint16 = 0xfffb
	PortAll        uint16 = 0xfffc
	PortController uint16 = 0xfffd
	PortLocal      uint16 = 0xfffe
	PortNone       uint16 = 0xffff
)

// NoBuffer marks the absence of a saved packet buffer in a wire
// message.
const NoBuffer uint32 = 0xffffffff

// Permanent disables a flow's idle_timeout or hard_timeout.
const Permanent uint16 = 0

// VlanNone marks the absence of a VLAN tag in a wire match or PacketIn.
const VlanNone uint16 = 0xffff

// Port flags, stored per-port in a PhyPort and consulted by the
// forwarder and action executor.
const (
	PortFlagNoFlood uint32 = 1 << iota
	PortFlagNoRecv
	PortFlagNoRecvSTP
	// PortFlagNoFwd drops frames the action executor would otherwise
	// send out this port, unless the caller set ignoreNoFwd (as
	// PACKET_OUT does per §4.10).
	PortFlagNoFwd
)

// Configuration flags (datapath-wide, set by GET_CONFIG/SET_CONFIG).
const (
	ConfigFlagSendFlowExp uint16 = 1 << 0

	configFragMask  uint16 = 0b0110
	configFragShift        = 1
)

// FragMode is the datapath's handling of IP fragments.
type FragMode uint16

const (
	FragNormal FragMode = 0
	FragDrop   FragMode = 1
)

// FragModeOf extracts the frag sub-field from a raw config-flags value,
// coercing any value other than NORMAL/DROP to DROP per §6.
func FragModeOf(flags uint16) FragMode {
	switch FragMode((flags & configFragMask) >> configFragShift) {
	case FragNormal:
		return FragNormal
	default:
		return FragDrop
	}
}

// WithFragMode returns flags with its frag sub-field replaced by mode.
func WithFragMode(flags uint16, mode FragMode) uint16 {
	flags &^= configFragMask
	return flags | (uint16(mode)<<configFragShift)&configFragMask
}

// PacketInReason explains why a frame was punted to the controller.
type PacketInReason uint8

const (
	ReasonNoMatch PacketInReason = iota
	ReasonAction
	ReasonInvalidTTL
)

// FlowModCommand selects the FLOW_MOD operation.
type FlowModCommand uint16

const (
	FlowAdd FlowModCommand = iota
	FlowModify
	FlowModifyStrict
	FlowDelete
	FlowDeleteStrict
)

// PortStatusReason explains a PORT_STATUS notification.
type PortStatusReason uint8

const (
	PortStatusAdd PortStatusReason = iota
	PortStatusDelete
	PortStatusModify
)

// Stats request/reply body types, carried in the STATS_REQUEST and
// STATS_REPLY type:uint16 field.
type StatsType uint16

const (
	StatsDesc StatsType = iota
	StatsFlow
	StatsAggregate
	StatsTable
	StatsPort
)

// StatsReplyMore marks a STATS_REPLY as one of several parts.
const StatsReplyMore uint16 = 1 << 0

// Capabilities advertised in FEATURES_REPLY.
const (
	CapFlowStats uint32 = 1 << iota
	CapTableStats
	CapPortStats
	CapSTP
	CapIPReasm
	CapQueueStats
	CapARPMatchIP
)

// ActionBitmap enumerates the actions a FEATURES_REPLY advertises
// support for, one bit per ActionType.
func ActionBitmap() uint32 {
	var bits uint32
	for _, t := range []ActionType{
		ActionOutputType, ActionSetVlanVidType, ActionSetVlanPcpType,
		ActionStripVlanType, ActionSetDlSrcType, ActionSetDlDstType,
		ActionSetNwSrcType, ActionSetNwDstType, ActionSetTpSrcType,
		ActionSetTpDstType,
	} {
		bits |= 1 << uint(t)
	}
	return bits
}
