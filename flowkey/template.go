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

// WireMatch holds the decoded fields of a 40-byte wire match, before
// the wildcard implications of §4.2 are applied. It has no wire-codec
// behavior of its own; the ofp package decodes the wire bytes into
// this shape and hands it to Template.
type WireMatch struct {
	Wildcards uint32
	InPort    uint16
	DLSrc     [6]byte
	DLDst     [6]byte
	DLVlan    uint16
	DLType    uint16
	NWSrc     uint32
	NWDst     uint32
	NWProto   uint8
	TPSrc     uint16
	TPDst     uint16
}

const (
	tcpProto = 6
	udpProto = 17
)

// Template builds a (Key, Wildcards) match template from a decoded
// wire match, applying the §4.2 wildcard implications so that a
// table's exact/wildcard classification of the resulting template is
// stable regardless of which redundant bits the controller happened to
// set.
func Template(m WireMatch) (Key, Wildcards) {
	k := Key{
		InPort:  m.InPort,
		DLSrc:   m.DLSrc,
		DLDst:   m.DLDst,
		DLVlan:  m.DLVlan,
		DLType:  m.DLType,
		NWSrc:   m.NWSrc,
		NWDst:   m.NWDst,
		NWProto: m.NWProto,
		TPSrc:   m.TPSrc,
		TPDst:   m.TPDst,
	}

	w := Wildcards(m.Wildcards) &^ (Wildcards(nwBitsMask)<<nwSrcBitsShift | Wildcards(nwBitsMask)<<nwDstBitsShift)
	w = w.WithNWSrcBits(uint8((m.Wildcards >> nwSrcBitsShift) & nwBitsMask))
	w = w.WithNWDstBits(uint8((m.Wildcards >> nwDstBitsShift) & nwBitsMask))

	switch {
	case w&FwDlType != 0:
		w |= FwNwProto | FwTpSrc | FwTpDst
		w = w.WithNWSrcBits(32).WithNWDstBits(32)
	case m.DLType == EtherTypeIPv4 && w&FwNwProto != 0:
		w |= FwTpSrc | FwTpDst
	case m.NWProto != tcpProto && m.NWProto != udpProto:
		// Not a transport protocol we track ports for: clear any TP
		// wildcard bits so flows built from this template remain
		// exact-match eligible and land in the hash tables.
		w &^= FwTpSrc | FwTpDst
	}

	return k, w
}
