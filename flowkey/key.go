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

// Package flowkey extracts a canonical flow key from an Ethernet frame
// and builds match templates from a wire match, as specified by the
// flow-key parser and match-template construction rules.
package flowkey

import (
	"encoding/binary"
	"fmt"
	"net"
)

// Ethernet/IP/transport layout constants shared by the parser and the
// action executor, which must agree on header offsets to rewrite
// fields and recompute checksums in place.
const (
	EthHeaderLen  = 14
	VlanTagLen    = 4
	LLCHeaderLen  = 3
	SNAPHeaderLen = 5
	IPv4MinLen    = 20
	TCPMinLen     = 20
	UDPLen        = 8
	ARPLen        = 28

	EtherTypeVLAN = 0x8100
	EtherTypeIPv4 = 0x0800
	EtherTypeARP  = 0x0806

	ipFragMoreFragments = 0x2000
	ipFragOffsetMask    = 0x1fff

	// ethTypeBoundary is the smallest Ethernet II EtherType value; a
	// 14-byte field below this is an 802.3 length field instead.
	ethTypeBoundary = 0x0600

	// NotEthType marks a frame that is 802.2 but neither Ethernet II
	// nor recognizable SNAP, per the §4.1 parser contract. It is below
	// ethTypeBoundary so it can never collide with a real EtherType.
	NotEthType uint16 = 0x05ff
)

// Sentinel field values, per the data model's sentinel rules.
const (
	// PortNone marks the absence of an input port.
	PortNone uint16 = 0xffff
	// VlanNone marks the absence of a VLAN tag.
	VlanNone uint16 = 0xffff
	// Permanent disables a flow's idle or hard timeout.
	Permanent uint16 = 0
)

// Key is the canonical, fixed-size flow key extracted from a frame, or
// built from a wire match template. All multi-byte fields are held as
// plain Go integers decoded from their network-byte-order wire form;
// arithmetic on them (e.g. network masks) operates on that decoded
// value directly, so no further byte-order conversion is needed
// anywhere else in the datapath.
type Key struct {
	InPort  uint16
	DLVlan  uint16
	DLSrc   [6]byte
	DLDst   [6]byte
	DLType  uint16
	NWSrc   uint32
	NWDst   uint32
	NWProto uint8
	TPSrc   uint16
	TPDst   uint16
}

// String renders a Key for logs and test failure messages.
func (k Key) String() string {
	return fmt.Sprintf(
		"in_port=%d dl_vlan=%d dl_src=%s dl_dst=%s dl_type=0x%04x nw_src=%s nw_dst=%s nw_proto=%d tp_src=%d tp_dst=%d",
		k.InPort, k.DLVlan, net.HardwareAddr(k.DLSrc[:]), net.HardwareAddr(k.DLDst[:]), k.DLType,
		ipString(k.NWSrc), ipString(k.NWDst), k.NWProto, k.TPSrc, k.TPDst,
	)
}

func ipString(v uint32) string {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	return net.IP(b[:]).String()
}

// Wildcards is a bitmap over Key's fields, plus two 6-bit IP-prefix
// lengths, declaring which fields of a match are "don't care". The low
// eight bits are one flag per field; bits 8-13 hold the number of
// low-order bits of NWSrc to ignore, bits 14-19 the same for NWDst.
type Wildcards uint32

// Per-field wildcard flags.
const (
	FwInPort Wildcards = 1 << iota
	FwDlVlan
	FwDlSrc
	FwDlDst
	FwDlType
	FwNwProto
	FwTpSrc
	FwTpDst

	fwFieldBits = 8
)

const (
	nwSrcBitsShift = fwFieldBits
	nwDstBitsShift = fwFieldBits + 6
	nwBitsMask     = 0x3f

	// FwAll wildcards every field flag (but not the IP prefix lengths,
	// which default to 0 = exact when left unset).
	FwAll = FwInPort | FwDlVlan | FwDlSrc | FwDlDst | FwDlType | FwNwProto | FwTpSrc | FwTpDst
)

// Exact reports whether w places its flow in the hash tables rather
// than the linear-priority table.
func (w Wildcards) Exact() bool {
	return w == 0
}

// WithNWSrcBits returns w with its NWSrc ignore-count set to bits.
func (w Wildcards) WithNWSrcBits(bits uint8) Wildcards {
	w &^= Wildcards(nwBitsMask) << nwSrcBitsShift
	return w | (Wildcards(bits&nwBitsMask) << nwSrcBitsShift)
}

// WithNWDstBits returns w with its NWDst ignore-count set to bits.
func (w Wildcards) WithNWDstBits(bits uint8) Wildcards {
	w &^= Wildcards(nwBitsMask) << nwDstBitsShift
	return w | (Wildcards(bits&nwBitsMask) << nwDstBitsShift)
}

// NWSrcBits returns the number of low-order NWSrc bits that are
// wildcarded.
func (w Wildcards) NWSrcBits() uint8 {
	return uint8((w >> nwSrcBitsShift) & nwBitsMask)
}

// NWDstBits returns the number of low-order NWDst bits that are
// wildcarded.
func (w Wildcards) NWDstBits() uint8 {
	return uint8((w >> nwDstBitsShift) & nwBitsMask)
}

// NWSrcMask returns the bitmask of NWSrc bits that must match exactly.
//
// The source "host-to-net" byte swap in the reference implementation
// exists because it compares against the network-order wire bytes
// directly; here NWSrc is already decoded into a plain integer via
// binary.BigEndian, so masking its low-order bits has the same effect
// without a second byte-order conversion.
func (w Wildcards) NWSrcMask() uint32 {
	return prefixMask(w.NWSrcBits())
}

// NWDstMask returns the bitmask of NWDst bits that must match exactly.
func (w Wildcards) NWDstMask() uint32 {
	return prefixMask(w.NWDstBits())
}

func prefixMask(ignoreBits uint8) uint32 {
	if ignoreBits >= 32 {
		return 0
	}
	return ^uint32(0) << ignoreBits
}
