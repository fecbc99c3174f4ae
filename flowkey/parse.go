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

package flowkey

import "encoding/binary"

// Parse extracts a Key from a frame positioned at the Ethernet header,
// along with whether the frame is an IPv4 fragment. It never reads
// past a short header: every field is populated only after its own
// bounds check, so a truncated frame simply leaves later fields at
// their zero value instead of erroring.
func Parse(frame []byte, inPort uint16) (Key, bool) {
	var k Key
	k.InPort = inPort

	if len(frame) < EthHeaderLen {
		return k, false
	}

	copy(k.DLDst[:], frame[0:6])
	copy(k.DLSrc[:], frame[6:12])

	etherType := binary.BigEndian.Uint16(frame[12:14])
	rest := frame[EthHeaderLen:]

	if etherType >= ethTypeBoundary {
		k.DLType = etherType
	} else {
		dlType, payload, ok := parseLLC(rest)
		if !ok {
			k.DLType = NotEthType
			return k, false
		}
		k.DLType = dlType
		rest = payload
	}

	if k.DLType == EtherTypeVLAN {
		if len(rest) < VlanTagLen {
			k.DLVlan = VlanNone
			return k, false
		}
		tci := binary.BigEndian.Uint16(rest[0:2])
		k.DLVlan = tci & 0x0fff
		k.DLType = binary.BigEndian.Uint16(rest[2:4])
		rest = rest[VlanTagLen:]
	} else {
		k.DLVlan = VlanNone
	}

	switch k.DLType {
	case EtherTypeIPv4:
		return parseIPv4(k, rest)
	case EtherTypeARP:
		parseARP(&k, rest)
		return k, false
	default:
		return k, false
	}
}

// parseLLC recognizes an 802.2 LLC header and, if it carries a SNAP
// header with a zero OUI, lifts the encapsulated EtherType. Any other
// 802.2 framing reports NotEthType per the §4.1 sentinel rule.
func parseLLC(b []byte) (uint16, []byte, bool) {
	if len(b) < LLCHeaderLen {
		return 0, nil, false
	}

	const snapControl = 0x03
	const snapDSAP = 0xaa
	const snapSSAP = 0xaa

	dsap, ssap, control := b[0], b[1], b[2]
	if dsap != snapDSAP || ssap != snapSSAP || control != snapControl {
		return 0, nil, false
	}

	if len(b) < LLCHeaderLen+SNAPHeaderLen {
		return 0, nil, false
	}

	snap := b[LLCHeaderLen : LLCHeaderLen+SNAPHeaderLen]
	oui := uint32(snap[0])<<16 | uint32(snap[1])<<8 | uint32(snap[2])
	if oui != 0 {
		return 0, nil, false
	}

	etherType := binary.BigEndian.Uint16(snap[3:5])
	return etherType, b[LLCHeaderLen+SNAPHeaderLen:], true
}

// parseIPv4 reads an IPv4 header and, when present and unfragmented, a
// TCP or UDP header, populating the transport fields. Truncated
// transport headers leave TPSrc/TPDst at zero, which is required so
// such a key can only ever match rules that wildcard those fields.
func parseIPv4(k Key, b []byte) (Key, bool) {
	if len(b) < IPv4MinLen {
		return k, false
	}

	ihl := int(b[0]&0x0f) * 4
	if ihl < IPv4MinLen || len(b) < ihl {
		return k, false
	}

	k.NWSrc = binary.BigEndian.Uint32(b[12:16])
	k.NWDst = binary.BigEndian.Uint32(b[16:20])
	k.NWProto = b[9]

	flagsFrag := binary.BigEndian.Uint16(b[6:8])
	isFragment := flagsFrag&ipFragMoreFragments != 0 || flagsFrag&ipFragOffsetMask != 0
	if isFragment {
		return k, true
	}

	payload := b[ihl:]
	switch k.NWProto {
	case 6: // TCP
		if len(payload) >= TCPMinLen {
			k.TPSrc = binary.BigEndian.Uint16(payload[0:2])
			k.TPDst = binary.BigEndian.Uint16(payload[2:4])
		}
	case 17: // UDP
		if len(payload) >= UDPLen {
			k.TPSrc = binary.BigEndian.Uint16(payload[0:2])
			k.TPDst = binary.BigEndian.Uint16(payload[2:4])
		}
	}

	return k, false
}

// parseARP optionally records the sender/target protocol addresses
// when the ARP packet declares Ethernet/IPv4 hardware and protocol
// sizes, per the §4.1 ARP-recognition rule (no ARP field matching
// beyond this is in scope).
func parseARP(k *Key, b []byte) {
	if len(b) < ARPLen {
		return
	}

	const (
		hwTypeEthernet  = 1
		protoTypeIPv4   = 0x0800
		hwAddrLenEther  = 6
		protoAddrLenIP4 = 4
	)

	hwType := binary.BigEndian.Uint16(b[0:2])
	protoType := binary.BigEndian.Uint16(b[2:4])
	hwLen := b[4]
	protoLen := b[5]

	if hwType != hwTypeEthernet || protoType != protoTypeIPv4 ||
		hwLen != hwAddrLenEther || protoLen != protoAddrLenIP4 {
		return
	}

	// ARP body: hw type(2) proto type(2) hwlen(1) protolen(1) op(2)
	// sha(6) spa(4) tha(6) tpa(4)
	const spaOff = 2 + 2 + 1 + 1 + 2 + 6
	const tpaOff = spaOff + 4 + 6
	if len(b) < tpaOff+4 {
		return
	}

	k.NWSrc = binary.BigEndian.Uint32(b[spaOff : spaOff+4])
	k.NWDst = binary.BigEndian.Uint32(b[tpaOff : tpaOff+4])
}
