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

// StatsHeader is the common prefix of a STATS_REQUEST or STATS_REPLY
// body, carrying the sub-type and, for replies, the MORE flag.
type StatsHeader struct {
	Type  StatsType
	Flags uint16
}

func (h StatsHeader) marshal() []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint16(b[0:2], uint16(h.Type))
	binary.BigEndian.PutUint16(b[2:4], h.Flags)
	return b
}

// StatsEntryBody is a STATS_REPLY sub-body that encodes itself without
// the shared 4-byte stats header, so a caller answering with several
// entries of the same sub-type can prefix each with its own header
// and MORE flag instead of baking one header per entry type.
type StatsEntryBody interface {
	MarshalBinary() ([]byte, error)
}

// StatsReply prefixes Body with a StatsHeader of the given Type,
// setting StatsReplyMore when More is true. FLOW/TABLE/PORT replies
// enumerate one entry per STATS_REPLY message; More is set on every
// message but the last in that enumeration, matching the reference
// protocol's multi-part reply convention even though a single entry
// here never approaches the 64KB message-length ceiling on its own.
type StatsReply struct {
	Type StatsType
	More bool
	Body StatsEntryBody
}

// MarshalBinary encodes r.
func (r StatsReply) MarshalBinary() ([]byte, error) {
	b, err := r.Body.MarshalBinary()
	if err != nil {
		return nil, err
	}
	var flags uint16
	if r.More {
		flags = StatsReplyMore
	}
	hdr := StatsHeader{Type: r.Type, Flags: flags}.marshal()
	return append(hdr, b...), nil
}

// UnmarshalStatsHeader decodes the 4-byte stats header prefix of b.
func UnmarshalStatsHeader(b []byte) (StatsHeader, []byte, error) {
	if len(b) < 4 {
		return StatsHeader{}, nil, fmt.Errorf("ofp: short stats header")
	}
	h := StatsHeader{
		Type:  StatsType(binary.BigEndian.Uint16(b[0:2])),
		Flags: binary.BigEndian.Uint16(b[2:4]),
	}
	return h, b[4:], nil
}

// DescStats is the STATS_DESC reply body.
type DescStats struct {
	MfrDesc   [256]byte
	HWDesc    [256]byte
	SWDesc    [256]byte
	SerialNum [32]byte
	DPDesc    [256]byte
}

// MarshalBinary encodes d, prefixed with its STATS_REPLY header.
func (d DescStats) MarshalBinary() ([]byte, error) {
	b := StatsHeader{Type: StatsDesc}.marshal()
	b = append(b, d.MfrDesc[:]...)
	b = append(b, d.HWDesc[:]...)
	b = append(b, d.SWDesc[:]...)
	b = append(b, d.SerialNum[:]...)
	b = append(b, d.DPDesc[:]...)
	return b, nil
}

// FlowStatsEntry is one entry of a STATS_FLOW reply.
type FlowStatsEntry struct {
	TableID     uint8
	Match       Match
	DurationSec uint32
	Priority    uint16
	IdleTimeout uint16
	HardTimeout uint16
	Cookie      uint64
	PacketCount uint64
	ByteCount   uint64
	Actions     []Action
}

// MarshalBinary encodes e, including its own length prefix so replies
// can be packed back-to-back.
func (e FlowStatsEntry) MarshalBinary() ([]byte, error) {
	mb, err := e.Match.MarshalBinary()
	if err != nil {
		return nil, err
	}
	ab, err := MarshalActions(e.Actions)
	if err != nil {
		return nil, err
	}
	const fixedLen = 2 + 1 + 1 + MatchLen + 4 + 2 + 2 + 2 + 8 + 8 + 8
	total := fixedLen + len(ab)
	b := make([]byte, total)
	binary.BigEndian.PutUint16(b[0:2], uint16(total))
	b[2] = e.TableID
	off := 4
	off += copy(b[off:], mb)
	binary.BigEndian.PutUint32(b[off:off+4], e.DurationSec)
	off += 4
	binary.BigEndian.PutUint16(b[off:off+2], e.Priority)
	off += 2
	binary.BigEndian.PutUint16(b[off:off+2], e.IdleTimeout)
	off += 2
	binary.BigEndian.PutUint16(b[off:off+2], e.HardTimeout)
	off += 2
	binary.BigEndian.PutUint64(b[off:off+8], e.Cookie)
	off += 8
	binary.BigEndian.PutUint64(b[off:off+8], e.PacketCount)
	off += 8
	binary.BigEndian.PutUint64(b[off:off+8], e.ByteCount)
	off += 8
	copy(b[off:], ab)
	return b, nil
}

// UnmarshalFlowStatsEntry decodes one length-prefixed entry from the
// front of b, returning the entry and the remainder.
func UnmarshalFlowStatsEntry(b []byte) (FlowStatsEntry, []byte, error) {
	if len(b) < 4 {
		return FlowStatsEntry{}, nil, fmt.Errorf("ofp: short flow-stats entry")
	}
	length := int(binary.BigEndian.Uint16(b[0:2]))
	if length < 4 || len(b) < length {
		return FlowStatsEntry{}, nil, fmt.Errorf("ofp: bad flow-stats entry length %d", length)
	}
	entry := b[:length]
	e := FlowStatsEntry{TableID: entry[2]}
	off := 4
	m, err := UnmarshalMatch(entry[off:])
	if err != nil {
		return FlowStatsEntry{}, nil, err
	}
	e.Match = m
	off += MatchLen
	e.DurationSec = binary.BigEndian.Uint32(entry[off : off+4])
	off += 4
	e.Priority = binary.BigEndian.Uint16(entry[off : off+2])
	off += 2
	e.IdleTimeout = binary.BigEndian.Uint16(entry[off : off+2])
	off += 2
	e.HardTimeout = binary.BigEndian.Uint16(entry[off : off+2])
	off += 2
	e.Cookie = binary.BigEndian.Uint64(entry[off : off+8])
	off += 8
	e.PacketCount = binary.BigEndian.Uint64(entry[off : off+8])
	off += 8
	e.ByteCount = binary.BigEndian.Uint64(entry[off : off+8])
	off += 8
	actions, err := UnmarshalActions(entry[off:])
	if err != nil {
		return FlowStatsEntry{}, nil, err
	}
	e.Actions = actions
	return e, b[length:], nil
}

// AggregateStats is the STATS_AGGREGATE reply body.
type AggregateStats struct {
	PacketCount uint64
	ByteCount   uint64
	FlowCount   uint32
}

// MarshalBinary encodes a.
func (a AggregateStats) MarshalBinary() ([]byte, error) {
	b := make([]byte, 20)
	binary.BigEndian.PutUint64(b[0:8], a.PacketCount)
	binary.BigEndian.PutUint64(b[8:16], a.ByteCount)
	binary.BigEndian.PutUint32(b[16:20], a.FlowCount)
	return b, nil
}

// UnmarshalAggregateStats decodes an AggregateStats body from b.
func UnmarshalAggregateStats(b []byte) (AggregateStats, error) {
	if len(b) < 20 {
		return AggregateStats{}, fmt.Errorf("ofp: short aggregate-stats body")
	}
	return AggregateStats{
		PacketCount: binary.BigEndian.Uint64(b[0:8]),
		ByteCount:   binary.BigEndian.Uint64(b[8:16]),
		FlowCount:   binary.BigEndian.Uint32(b[16:20]),
	}, nil
}

// TableStatsEntry is one entry of a STATS_TABLE reply.
type TableStatsEntry struct {
	TableID      uint8
	Name         [32]byte
	Wildcards    uint32
	MaxEntries   uint32
	ActiveCount  uint32
	LookupCount  uint64
	MatchedCount uint64
}

// MarshalBinary encodes t.
func (t TableStatsEntry) MarshalBinary() ([]byte, error) {
	b := make([]byte, 4+32+4+4+4+8+8)
	b[0] = t.TableID
	copy(b[4:36], t.Name[:])
	binary.BigEndian.PutUint32(b[36:40], t.Wildcards)
	binary.BigEndian.PutUint32(b[40:44], t.MaxEntries)
	binary.BigEndian.PutUint32(b[44:48], t.ActiveCount)
	binary.BigEndian.PutUint64(b[48:56], t.LookupCount)
	binary.BigEndian.PutUint64(b[56:64], t.MatchedCount)
	return b, nil
}

// PortStatsEntry is one entry of a STATS_PORT reply.
type PortStatsEntry struct {
	PortNo     uint16
	RxPackets  uint64
	TxPackets  uint64
	RxBytes    uint64
	TxBytes    uint64
	RxDropped  uint64
	TxDropped  uint64
}

// MarshalBinary encodes p.
func (p PortStatsEntry) MarshalBinary() ([]byte, error) {
	b := make([]byte, 8+6*8)
	binary.BigEndian.PutUint16(b[0:2], p.PortNo)
	off := 8
	for _, v := range []uint64{p.RxPackets, p.TxPackets, p.RxBytes, p.TxBytes, p.RxDropped, p.TxDropped} {
		binary.BigEndian.PutUint64(b[off:off+8], v)
		off += 8
	}
	return b, nil
}
