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

package action

import (
	"encoding/binary"

	"github.com/ofswitch/ofswitch/flowkey"
	"github.com/ofswitch/ofswitch/ofp"
)

// Sink is the frame-delivery boundary the executor runs against.
// Implementations (the port package, in production) own the physical
// port table and apply per-port flags such as NO_FLOOD and NO_FWD.
type Sink interface {
	// Output sends frame out the single named port. ignoreNoFwd
	// suppresses the port's NO_FWD flag, as PACKET_OUT requires.
	Output(port uint16, frame Frame, ignoreNoFwd bool) error
	// Flood sends frame out every port except ingress and any port
	// flagged NO_FLOOD.
	Flood(ingress uint16, frame Frame) error
	// All sends frame out every port except ingress.
	All(ingress uint16, frame Frame) error
	// Local delivers frame to the host management stack.
	Local(frame Frame) error
	// Controller punts frame upstream with the given reason.
	Controller(frame Frame, maxLen uint16, reason ofp.PacketInReason) error
}

// Execute applies prog to frame left to right. key describes frame's
// layout as of entry; VLAN push/pop/strip actions update the executor's
// own notion of that layout as they run, so later actions in the same
// program see a consistent view. ignoreNoFwd is threaded through to
// Sink.Output for PACKET_OUT's relaxed forwarding rule.
//
// Header rewrites assume an untagged-or-singly-tagged Ethernet II
// frame; 802.2/SNAP framing, which flowkey.Parse also recognizes, is
// read-only for the action set defined here.
func Execute(frame Frame, key flowkey.Key, prog Program, ignoreNoFwd bool, sink Sink) error {
	vlanPresent := key.DLVlan != flowkey.VlanNone

	outputs := 0
	for _, a := range prog {
		if _, ok := a.(Output); ok {
			outputs++
		}
	}

	cur := frame
	sent := 0
	for _, a := range prog {
		switch v := a.(type) {
		case SetVlanVid:
			cur.Data, vlanPresent = setVlanVid(cur.Data, v.VID, vlanPresent)
		case SetVlanPcp:
			cur.Data, vlanPresent = setVlanPcp(cur.Data, v.PCP, vlanPresent)
		case StripVlan:
			cur.Data, vlanPresent = stripVlan(cur.Data, vlanPresent)
		case SetDlDst:
			setDlAddr(cur.Data, 0, v.MAC)
		case SetDlSrc:
			setDlAddr(cur.Data, 6, v.MAC)
		case SetNwSrc:
			if key.DLType == flowkey.EtherTypeIPv4 {
				applySetNw(cur.Data, ipv4Offset(vlanPresent), true, v.IP)
			}
		case SetNwDst:
			if key.DLType == flowkey.EtherTypeIPv4 {
				applySetNw(cur.Data, ipv4Offset(vlanPresent), false, v.IP)
			}
		case SetTpSrc:
			if key.DLType == flowkey.EtherTypeIPv4 {
				applySetTp(cur.Data, ipv4Offset(vlanPresent), true, v.Port)
			}
		case SetTpDst:
			if key.DLType == flowkey.EtherTypeIPv4 {
				applySetTp(cur.Data, ipv4Offset(vlanPresent), false, v.Port)
			}
		case Output:
			sent++
			out := cur
			if sent < outputs {
				out = cur.Clone()
			}
			if err := dispatchOutput(sink, v, out, key.InPort, ignoreNoFwd); err != nil {
				return err
			}
		}
	}
	return nil
}

func dispatchOutput(sink Sink, o Output, frame Frame, ingress uint16, ignoreNoFwd bool) error {
	switch o.Port {
	case ofp.PortController:
		return sink.Controller(Frame{Data: frame.Truncate(o.MaxLen)}, o.MaxLen, ofp.ReasonAction)
	case ofp.PortFlood:
		return sink.Flood(ingress, frame)
	case ofp.PortAll:
		return sink.All(ingress, frame)
	case ofp.PortLocal:
		return sink.Local(frame)
	default:
		return sink.Output(o.Port, frame, ignoreNoFwd)
	}
}

func ipv4Offset(vlanPresent bool) int {
	if vlanPresent {
		return flowkey.EthHeaderLen + flowkey.VlanTagLen
	}
	return flowkey.EthHeaderLen
}

func setDlAddr(data []byte, offset int, mac [6]byte) {
	if len(data) < offset+6 {
		return
	}
	copy(data[offset:offset+6], mac[:])
}

// setVlanVid overwrites the VID of a present tag, preserving PCP, or
// inserts a new tag with PCP 0 if none is present.
func setVlanVid(data []byte, vid uint16, vlanPresent bool) ([]byte, bool) {
	if vlanPresent {
		if len(data) < flowkey.EthHeaderLen+2 {
			return data, vlanPresent
		}
		tci := binary.BigEndian.Uint16(data[14:16])
		tci = (tci &^ 0x0fff) | (vid & 0x0fff)
		binary.BigEndian.PutUint16(data[14:16], tci)
		return data, true
	}
	return insertVlanTag(data, vid, 0), true
}

// setVlanPcp overwrites the PCP bits of a present tag, preserving VID,
// or inserts a new tag with VID 0 if none is present.
func setVlanPcp(data []byte, pcp uint8, vlanPresent bool) ([]byte, bool) {
	if vlanPresent {
		if len(data) < flowkey.EthHeaderLen+2 {
			return data, vlanPresent
		}
		tci := binary.BigEndian.Uint16(data[14:16])
		tci = (tci & 0x1fff) | (uint16(pcp&0x07) << 13)
		binary.BigEndian.PutUint16(data[14:16], tci)
		return data, true
	}
	return insertVlanTag(data, 0, pcp), true
}

func stripVlan(data []byte, vlanPresent bool) ([]byte, bool) {
	if !vlanPresent || len(data) < flowkey.EthHeaderLen+flowkey.VlanTagLen {
		return data, false
	}
	out := make([]byte, len(data)-flowkey.VlanTagLen)
	copy(out[0:12], data[0:12])
	copy(out[12:], data[16:])
	return out, false
}

func insertVlanTag(data []byte, vid uint16, pcp uint8) []byte {
	if len(data) < 14 {
		return data
	}
	out := make([]byte, len(data)+flowkey.VlanTagLen)
	copy(out[0:12], data[0:12])
	binary.BigEndian.PutUint16(out[12:14], flowkey.EtherTypeVLAN)
	tci := (uint16(pcp&0x07) << 13) | (vid & 0x0fff)
	binary.BigEndian.PutUint16(out[14:16], tci)
	copy(out[16:], data[12:])
	return out
}

// applySetNw rewrites the IPv4 source (src=true) or destination
// address at ipStart, updating the IP header checksum and any TCP/UDP
// transport checksum incrementally per RFC 1624.
func applySetNw(data []byte, ipStart int, src bool, newIP uint32) {
	if len(data) < ipStart+20 {
		return
	}
	ihl := int(data[ipStart]&0x0f) * 4
	if ihl < 20 || len(data) < ipStart+ihl {
		return
	}

	fieldOff := ipStart + 16
	if src {
		fieldOff = ipStart + 12
	}
	oldIP := binary.BigEndian.Uint32(data[fieldOff : fieldOff+4])

	ipChecksum := binary.BigEndian.Uint16(data[ipStart+10 : ipStart+12])
	ipChecksum = checksumReplace32(ipChecksum, oldIP, newIP)
	binary.BigEndian.PutUint16(data[ipStart+10:ipStart+12], ipChecksum)
	binary.BigEndian.PutUint32(data[fieldOff:fieldOff+4], newIP)

	proto := data[ipStart+9]
	txStart := ipStart + ihl
	switch proto {
	case 6: // TCP
		if len(data) >= txStart+20 {
			off := txStart + 16
			checksum := binary.BigEndian.Uint16(data[off : off+2])
			checksum = checksumReplace32(checksum, oldIP, newIP)
			binary.BigEndian.PutUint16(data[off:off+2], checksum)
		}
	case 17: // UDP
		if len(data) >= txStart+8 {
			off := txStart + 6
			checksum := binary.BigEndian.Uint16(data[off : off+2])
			if checksum != 0 {
				checksum = checksumReplace32(checksum, oldIP, newIP)
				binary.BigEndian.PutUint16(data[off:off+2], checksum)
			}
		}
	}
}

// applySetTp rewrites the TCP/UDP source (src=true) or destination
// port, updating the transport checksum incrementally. A UDP checksum
// of zero is left as zero, per §4.7.
func applySetTp(data []byte, ipStart int, src bool, newPort uint16) {
	if len(data) < ipStart+20 {
		return
	}
	ihl := int(data[ipStart]&0x0f) * 4
	if ihl < 20 || len(data) < ipStart+ihl {
		return
	}
	proto := data[ipStart+9]
	txStart := ipStart + ihl

	portOff := txStart
	if !src {
		portOff = txStart + 2
	}

	switch proto {
	case 6: // TCP
		if len(data) < txStart+20 {
			return
		}
		oldPort := binary.BigEndian.Uint16(data[portOff : portOff+2])
		checksumOff := txStart + 16
		checksum := binary.BigEndian.Uint16(data[checksumOff : checksumOff+2])
		checksum = checksumReplace16(checksum, oldPort, newPort)
		binary.BigEndian.PutUint16(data[checksumOff:checksumOff+2], checksum)
		binary.BigEndian.PutUint16(data[portOff:portOff+2], newPort)
	case 17: // UDP
		if len(data) < txStart+8 {
			return
		}
		oldPort := binary.BigEndian.Uint16(data[portOff : portOff+2])
		checksumOff := txStart + 6
		checksum := binary.BigEndian.Uint16(data[checksumOff : checksumOff+2])
		if checksum != 0 {
			checksum = checksumReplace16(checksum, oldPort, newPort)
			binary.BigEndian.PutUint16(data[checksumOff:checksumOff+2], checksum)
		}
		binary.BigEndian.PutUint16(data[portOff:portOff+2], newPort)
	}
}
