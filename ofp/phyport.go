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

// PhyPortLen is the fixed wire size of a PhyPort record.
const PhyPortLen = 2 + 6 + 16 + 4 + 4 + 4

// PhyPort describes one physical port, as carried in FEATURES_REPLY,
// PORT_MOD, and PORT_STATUS.
type PhyPort struct {
	PortNo   uint16
	HWAddr   [6]byte
	Name     [16]byte
	Flags    uint32
	Speed    uint32
	Features uint32
}

// MarshalBinary encodes p in its wire layout.
func (p PhyPort) MarshalBinary() ([]byte, error) {
	b := make([]byte, PhyPortLen)
	binary.BigEndian.PutUint16(b[0:2], p.PortNo)
	copy(b[2:8], p.HWAddr[:])
	copy(b[8:24], p.Name[:])
	binary.BigEndian.PutUint32(b[24:28], p.Flags)
	binary.BigEndian.PutUint32(b[28:32], p.Speed)
	binary.BigEndian.PutUint32(b[32:36], p.Features)
	return b, nil
}

// UnmarshalPhyPort decodes a PhyPort from the front of b.
func UnmarshalPhyPort(b []byte) (PhyPort, error) {
	if len(b) < PhyPortLen {
		return PhyPort{}, fmt.Errorf("ofp: short phy_port: %d bytes", len(b))
	}
	var p PhyPort
	p.PortNo = binary.BigEndian.Uint16(b[0:2])
	copy(p.HWAddr[:], b[2:8])
	copy(p.Name[:], b[8:24])
	p.Flags = binary.BigEndian.Uint32(b[24:28])
	p.Speed = binary.BigEndian.Uint32(b[28:32])
	p.Features = binary.BigEndian.Uint32(b[32:36])
	return p, nil
}

// UnmarshalPhyPorts decodes every PhyPort packed into b.
func UnmarshalPhyPorts(b []byte) ([]PhyPort, error) {
	var ports []PhyPort
	for len(b) > 0 {
		p, err := UnmarshalPhyPort(b)
		if err != nil {
			return nil, err
		}
		ports = append(ports, p)
		b = b[PhyPortLen:]
	}
	return ports, nil
}

// PhyPortName truncates or zero-pads s into the fixed 16-byte Name
// field.
func PhyPortName(s string) [16]byte {
	var out [16]byte
	copy(out[:], s)
	return out
}
