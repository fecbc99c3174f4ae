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

	"github.com/ofswitch/ofswitch/action"
	"github.com/ofswitch/ofswitch/flowkey"
	"github.com/ofswitch/ofswitch/flowtable"
	"github.com/ofswitch/ofswitch/ofp"
	"github.com/stretchr/testify/require"
)

func exactMatch(inPort uint16, dlDst [6]byte) ofp.Match {
	return ofp.Match{
		Wildcards: 0,
		InPort:    inPort,
		DLDst:     dlDst,
		DLType:    flowkey.EtherTypeIPv4,
		NWProto:   1,
	}
}

func TestHandleFeaturesRequest_ReportsPortsAndTableSizes(t *testing.T) {
	s, _ := newTestState(t)
	sender := &fakeSender{}

	msg := buildMessage(ofp.TypeFeaturesRequest, 1, ofp.Echo{})
	require.NoError(t, Dispatch(s, sender, msg))

	require.Len(t, sender.sent, 1)
	fr := sender.sent[0].Body.(ofp.FeaturesReply)
	require.EqualValues(t, s.DatapathID, fr.DatapathID)
	require.Len(t, fr.Ports, 1)
	require.EqualValues(t, s.TableMax[2], fr.NGeneral)
}

func TestHandleSetConfig_ThenGetConfigRoundTrips(t *testing.T) {
	s, _ := newTestState(t)
	sender := &fakeSender{}

	setMsg := buildMessage(ofp.TypeSetConfig, 1, ofp.ConfigBody{Flags: ofp.ConfigFlagSendFlowExp, MissSendLen: 64})
	require.NoError(t, Dispatch(s, sender, setMsg))
	require.Empty(t, sender.sent)

	getMsg := buildMessage(ofp.TypeGetConfigRequest, 2, ofp.Echo{})
	require.NoError(t, Dispatch(s, sender, getMsg))

	require.Len(t, sender.sent, 1)
	cb := sender.sent[0].Body.(ofp.ConfigBody)
	require.EqualValues(t, 64, cb.MissSendLen)
	require.True(t, s.Config.SendFlowExpirations())
}

func TestHandleFlowMod_AddThenDeleteStrict(t *testing.T) {
	s, chain := newTestState(t)
	sender := &fakeSender{}

	match := exactMatch(1, [6]byte{1, 2, 3, 4, 5, 6})
	fm := ofp.FlowMod{
		Match:    match,
		Command:  ofp.FlowAdd,
		BufferID: ofp.NoBuffer,
		Priority: 10,
		Actions:  []ofp.Action{{Type: ofp.ActionOutputType, Port: 2}},
	}
	require.NoError(t, Dispatch(s, sender, buildMessage(ofp.TypeFlowMod, 1, fm)))
	require.Empty(t, sender.sent)
	require.Equal(t, 1, chain.Len())

	del := fm
	del.Command = ofp.FlowDeleteStrict
	require.NoError(t, Dispatch(s, sender, buildMessage(ofp.TypeFlowMod, 2, del)))
	require.Equal(t, 0, chain.Len())
}

func TestHandleFlowMod_AddRejectsLoopingOutput(t *testing.T) {
	s, chain := newTestState(t)
	sender := &fakeSender{}

	match := exactMatch(1, [6]byte{1, 2, 3, 4, 5, 6})
	fm := ofp.FlowMod{
		Match:    match,
		Command:  ofp.FlowAdd,
		BufferID: ofp.NoBuffer,
		Actions:  []ofp.Action{{Type: ofp.ActionOutputType, Port: 1}},
	}
	require.NoError(t, Dispatch(s, sender, buildMessage(ofp.TypeFlowMod, 1, fm)))

	require.Len(t, sender.sent, 1)
	require.Equal(t, ofp.TypeError, sender.sent[0].Type)
	require.Equal(t, ofp.ErrorBadAction, sender.sent[0].Body.(ofp.ErrorBody).ErrType)
	require.Equal(t, 0, chain.Len())
}

func TestHandleFlowMod_ModifyReplacesActionsInPlace(t *testing.T) {
	s, chain := newTestState(t)
	sender := &fakeSender{}

	match := exactMatch(1, [6]byte{1, 2, 3, 4, 5, 6})
	add := ofp.FlowMod{
		Match:    match,
		Command:  ofp.FlowAdd,
		BufferID: ofp.NoBuffer,
		Actions:  []ofp.Action{{Type: ofp.ActionOutputType, Port: 2}},
	}
	require.NoError(t, Dispatch(s, sender, buildMessage(ofp.TypeFlowMod, 1, add)))

	key, wildcards := flowkey.Template(match.ToWireMatch())
	flow, ok := chain.Lookup(key)
	require.True(t, ok)
	require.Equal(t, wildcards, flow.Wildcards)

	mod := add
	mod.Command = ofp.FlowModifyStrict
	mod.Actions = []ofp.Action{{Type: ofp.ActionOutputType, Port: 3}}
	require.NoError(t, Dispatch(s, sender, buildMessage(ofp.TypeFlowMod, 2, mod)))

	require.Equal(t, 1, chain.Len())
	sameFlow, ok := chain.Lookup(key)
	require.True(t, ok)
	require.Same(t, flow, sameFlow)
	require.Equal(t, action.Output{Port: 3}, sameFlow.Actions()[0])
}

func TestHandleFlowMod_DeleteStrictDisambiguatesByPriority(t *testing.T) {
	s, chain := newTestState(t)
	sender := &fakeSender{}

	// Both flows share the same key+wildcards template (DLDst
	// wildcarded) and can legitimately coexist in the linear table at
	// different priorities.
	wildMatch := ofp.Match{Wildcards: uint32(flowkey.FwDlDst), InPort: 1, DLType: flowkey.EtherTypeIPv4, NWProto: 1}
	low := ofp.FlowMod{
		Match:    wildMatch,
		Command:  ofp.FlowAdd,
		BufferID: ofp.NoBuffer,
		Priority: 1,
		Actions:  []ofp.Action{{Type: ofp.ActionOutputType, Port: 2}},
	}
	high := low
	high.Priority = 2
	high.Actions = []ofp.Action{{Type: ofp.ActionOutputType, Port: 3}}

	require.NoError(t, Dispatch(s, sender, buildMessage(ofp.TypeFlowMod, 1, low)))
	require.NoError(t, Dispatch(s, sender, buildMessage(ofp.TypeFlowMod, 2, high)))
	require.Equal(t, 2, chain.Len(), "both priorities must coexist under the same template")

	del := low
	del.Command = ofp.FlowDeleteStrict
	require.NoError(t, Dispatch(s, sender, buildMessage(ofp.TypeFlowMod, 3, del)))

	require.Equal(t, 1, chain.Len(), "strict delete naming priority 1 must leave the priority-2 flow untouched")
	key, wildcards := flowkey.Template(wildMatch.ToWireMatch())
	remaining, ok := chain.Lookup(key)
	require.True(t, ok)
	require.Equal(t, wildcards, remaining.Wildcards)
	require.EqualValues(t, 2, remaining.Priority)
	require.Equal(t, action.Output{Port: 3}, remaining.Actions()[0])
}

func TestHandleFlowMod_ModifyStrictDisambiguatesByPriority(t *testing.T) {
	s, chain := newTestState(t)
	sender := &fakeSender{}

	wildMatch := ofp.Match{Wildcards: uint32(flowkey.FwDlDst), InPort: 1, DLType: flowkey.EtherTypeIPv4, NWProto: 1}
	low := ofp.FlowMod{
		Match:    wildMatch,
		Command:  ofp.FlowAdd,
		BufferID: ofp.NoBuffer,
		Priority: 1,
		Actions:  []ofp.Action{{Type: ofp.ActionOutputType, Port: 2}},
	}
	high := low
	high.Priority = 2
	high.Actions = []ofp.Action{{Type: ofp.ActionOutputType, Port: 3}}

	require.NoError(t, Dispatch(s, sender, buildMessage(ofp.TypeFlowMod, 1, low)))
	require.NoError(t, Dispatch(s, sender, buildMessage(ofp.TypeFlowMod, 2, high)))

	mod := low
	mod.Command = ofp.FlowModifyStrict
	mod.Actions = []ofp.Action{{Type: ofp.ActionOutputType, Port: 9}}
	require.NoError(t, Dispatch(s, sender, buildMessage(ofp.TypeFlowMod, 3, mod)))

	require.Equal(t, 2, chain.Len())
	key, _ := flowkey.Template(wildMatch.ToWireMatch())
	remaining, ok := chain.Lookup(key)
	require.True(t, ok)
	// Lookup returns the highest-priority match; confirm the
	// priority-1 flow (not priority-2) received the replacement.
	all := chain.Find(flowtable.Spec{Key: key, Wildcards: remaining.Wildcards}, false)
	for _, f := range all {
		if f.Priority == 1 {
			require.Equal(t, action.Output{Port: 9}, f.Actions()[0])
		} else {
			require.Equal(t, action.Output{Port: 3}, f.Actions()[0])
		}
	}
}

func TestHandlePortMod_UpdatesFlags(t *testing.T) {
	s, _ := newTestState(t)
	sender := &fakeSender{}

	pp := ofp.PhyPort{PortNo: 1, Name: ofp.PhyPortName("eth1"), Flags: ofp.PortFlagNoRecv}
	require.NoError(t, Dispatch(s, sender, buildMessage(ofp.TypePortMod, 1, pp)))

	p, ok := s.Ports.Get(1)
	require.True(t, ok)
	require.True(t, p.Has(ofp.PortFlagNoRecv))

	require.Len(t, sender.sent, 1)
	require.Equal(t, ofp.TypePortStatus, sender.sent[0].Type)
	status := sender.sent[0].Body.(ofp.PortStatus)
	require.Equal(t, ofp.PortStatusModify, status.Reason)
}

func TestHandlePacketOut_ExecutesInlineFrame(t *testing.T) {
	s, _ := newTestState(t)
	sender := &fakeSender{}
	sink := s.Sink.(*fakeSink)

	frame := make([]byte, 64)
	copy(frame[0:6], []byte{1, 2, 3, 4, 5, 6})
	copy(frame[6:12], []byte{6, 5, 4, 3, 2, 1})

	po := ofp.PacketOut{
		BufferID: ofp.NoBuffer,
		InPort:   1,
		Actions:  []ofp.Action{{Type: ofp.ActionOutputType, Port: 5}},
		Data:     frame,
	}
	require.NoError(t, Dispatch(s, sender, buildMessage(ofp.TypePacketOut, 1, po)))
	require.Equal(t, []uint16{5}, sink.outputs)
}

