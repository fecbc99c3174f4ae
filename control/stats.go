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
	"github.com/ofswitch/ofswitch/action"
	"github.com/ofswitch/ofswitch/flowkey"
	"github.com/ofswitch/ofswitch/flowtable"
	"github.com/ofswitch/ofswitch/ofp"
)

var tableNames = [3][32]byte{
	nameOf("exact_hash"),
	nameOf("double_hash"),
	nameOf("linear_priority"),
}

func nameOf(s string) [32]byte {
	var out [32]byte
	copy(out[:], s)
	return out
}

func handleStatsRequest(s *State, sender Sender, xid uint32, body []byte) error {
	hdr, rest, err := ofp.UnmarshalStatsHeader(body)
	if err != nil {
		return ofp.NewProtocolError(ofp.ErrorBadLength, 0, body)
	}

	switch hdr.Type {
	case ofp.StatsDesc:
		return sender.Send(ofp.TypeStatsReply, xid, ofp.DescStats{
			MfrDesc: asciiField("ofswitch"),
			HWDesc:  asciiField("generic"),
			SWDesc:  asciiField("ofswitch datapath"),
			DPDesc:  asciiField("learning switch"),
		})
	case ofp.StatsFlow:
		return statsFlow(s, sender, xid, rest)
	case ofp.StatsAggregate:
		return statsAggregate(s, sender, xid, rest)
	case ofp.StatsTable:
		return statsTable(s, sender, xid)
	case ofp.StatsPort:
		return statsPort(s, sender, xid)
	default:
		return ofp.NewProtocolError(ofp.ErrorBadType, 0, body)
	}
}

func asciiField(s string) [256]byte {
	var out [256]byte
	copy(out[:], s)
	return out
}

func statsFlow(s *State, sender Sender, xid uint32, body []byte) error {
	match, err := ofp.UnmarshalMatch(body)
	if err != nil {
		return ofp.NewProtocolError(ofp.ErrorBadLength, 0, body)
	}
	key, w := flowkey.Template(match.ToWireMatch())
	spec := flowtable.Spec{Key: key, Wildcards: w}

	now := s.Now()
	flows := s.Chain.Find(spec, false)
	for i, f := range flows {
		entry := flowStatsEntry(f, now)
		more := i < len(flows)-1
		if err := sender.Send(ofp.TypeStatsReply, xid, ofp.StatsReply{Type: ofp.StatsFlow, More: more, Body: entry}); err != nil {
			return err
		}
	}
	return nil
}

func statsAggregate(s *State, sender Sender, xid uint32, body []byte) error {
	match, err := ofp.UnmarshalMatch(body)
	if err != nil {
		return ofp.NewProtocolError(ofp.ErrorBadLength, 0, body)
	}
	key, w := flowkey.Template(match.ToWireMatch())
	spec := flowtable.Spec{Key: key, Wildcards: w}

	var agg ofp.AggregateStats
	for _, f := range s.Chain.Find(spec, false) {
		agg.PacketCount += f.PacketCount()
		agg.ByteCount += f.ByteCount()
		agg.FlowCount++
	}
	return sender.Send(ofp.TypeStatsReply, xid, ofp.StatsReply{Type: ofp.StatsAggregate, Body: agg})
}

func statsTable(s *State, sender Sender, xid uint32) error {
	for i, name := range tableNames {
		entry := ofp.TableStatsEntry{
			TableID:    uint8(i),
			Name:       name,
			Wildcards:  s.TableWildcards[i],
			MaxEntries: s.TableMax[i],
		}
		more := i < len(tableNames)-1
		if err := sender.Send(ofp.TypeStatsReply, xid, ofp.StatsReply{Type: ofp.StatsTable, More: more, Body: entry}); err != nil {
			return err
		}
	}
	return nil
}

func statsPort(s *State, sender Sender, xid uint32) error {
	ports := s.Ports.Descriptors()
	var err error
	for i, pd := range ports {
		p, ok := s.Ports.Get(pd.PortNo)
		if !ok {
			continue
		}
		more := i < len(ports)-1
		if err = sender.Send(ofp.TypeStatsReply, xid, ofp.StatsReply{Type: ofp.StatsPort, More: more, Body: p.Stats()}); err != nil {
			return err
		}
	}
	return err
}

// flowStatsEntry renders f as a wire STATS_FLOW entry as of now.
func flowStatsEntry(f *flowtable.Flow, now int64) ofp.FlowStatsEntry {
	return ofp.FlowStatsEntry{
		Match:       ofp.MatchFromKey(f.Key, f.Wildcards),
		DurationSec: uint32(f.Duration(now)),
		Priority:    f.Priority,
		IdleTimeout: f.IdleTimeout,
		HardTimeout: f.HardTimeout,
		Cookie:      f.Cookie,
		PacketCount: f.PacketCount(),
		ByteCount:   f.ByteCount(),
		Actions:     action.ToWire(f.Actions()),
	}
}
