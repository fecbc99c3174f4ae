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
	"testing"

	"github.com/ofswitch/ofswitch/ofp"
	"github.com/stretchr/testify/require"
)

// statsFlowRequest is a STATS_REQUEST body: a 4-byte stats header
// followed by a 40-byte match, matching the STATS_FLOW/STATS_AGGREGATE
// request layout.
type statsFlowRequest struct {
	typ   ofp.StatsType
	match ofp.Match
}

func (r statsFlowRequest) MarshalBinary() ([]byte, error) {
	mb, err := r.match.MarshalBinary()
	if err != nil {
		return nil, err
	}
	b := make([]byte, 4+len(mb))
	b[0], b[1] = byte(r.typ>>8), byte(r.typ)
	copy(b[4:], mb)
	return b, nil
}

func statsHeaderBody(typ ofp.StatsType, match ofp.Match) statsFlowRequest {
	return statsFlowRequest{typ: typ, match: match}
}

type statsOnlyRequest struct {
	typ ofp.StatsType
}

func (r statsOnlyRequest) MarshalBinary() ([]byte, error) {
	b := make([]byte, 4)
	b[0], b[1] = byte(r.typ>>8), byte(r.typ)
	return b, nil
}

func statsHeaderOnly(typ ofp.StatsType) statsOnlyRequest {
	return statsOnlyRequest{typ: typ}
}

func TestHandleStatsRequest_Desc(t *testing.T) {
	s, _ := newTestState(t)
	sender := &fakeSender{}

	require.NoError(t, Dispatch(s, sender, buildMessage(ofp.TypeStatsRequest, 1, statsHeaderOnly(ofp.StatsDesc))))

	require.Len(t, sender.sent, 1)
	desc := sender.sent[0].Body.(ofp.DescStats)
	require.Contains(t, string(desc.SWDesc[:]), "ofswitch")
}

func TestHandleStatsRequest_FlowAndAggregate(t *testing.T) {
	s, _ := newTestState(t)
	sender := &fakeSender{}

	match := exactMatch(1, [6]byte{9, 9, 9, 9, 9, 9})
	add := ofp.FlowMod{
		Match:    match,
		Command:  ofp.FlowAdd,
		BufferID: ofp.NoBuffer,
		Priority: 1,
		Actions:  []ofp.Action{{Type: ofp.ActionOutputType, Port: 2}},
	}
	require.NoError(t, Dispatch(s, sender, buildMessage(ofp.TypeFlowMod, 1, add)))

	wildcardAll := ofp.Match{Wildcards: 0xffffffff}
	statsHdr := statsHeaderBody(ofp.StatsFlow, wildcardAll)
	require.NoError(t, Dispatch(s, sender, buildMessage(ofp.TypeStatsRequest, 2, statsHdr)))

	require.Len(t, sender.sent, 1)
	reply := sender.sent[0].Body.(ofp.StatsReply)
	require.False(t, reply.More)
	entry := reply.Body.(ofp.FlowStatsEntry)
	require.EqualValues(t, 1, entry.Priority)
	require.EqualValues(t, 0, entry.PacketCount)

	aggSender := &fakeSender{}
	aggHdr := statsHeaderBody(ofp.StatsAggregate, wildcardAll)
	require.NoError(t, Dispatch(s, aggSender, buildMessage(ofp.TypeStatsRequest, 3, aggHdr)))
	agg := aggSender.sent[0].Body.(ofp.StatsReply).Body.(ofp.AggregateStats)
	require.EqualValues(t, 1, agg.FlowCount)
}

func TestHandleStatsRequest_Table(t *testing.T) {
	s, _ := newTestState(t)
	sender := &fakeSender{}

	req := statsHeaderOnly(ofp.StatsTable)
	require.NoError(t, Dispatch(s, sender, buildMessage(ofp.TypeStatsRequest, 1, req)))

	require.Len(t, sender.sent, 3)
	for i, sent := range sender.sent {
		reply := sent.Body.(ofp.StatsReply)
		require.Equal(t, i < 2, reply.More)
		entry := reply.Body.(ofp.TableStatsEntry)
		require.EqualValues(t, i, entry.TableID)
	}
}

func TestHandleStatsRequest_Port(t *testing.T) {
	s, _ := newTestState(t)
	sender := &fakeSender{}

	req := statsHeaderOnly(ofp.StatsPort)
	require.NoError(t, Dispatch(s, sender, buildMessage(ofp.TypeStatsRequest, 1, req)))

	require.Len(t, sender.sent, 1)
	reply := sender.sent[0].Body.(ofp.StatsReply)
	require.False(t, reply.More)
	entry := reply.Body.(ofp.PortStatsEntry)
	require.EqualValues(t, 1, entry.PortNo)
}
