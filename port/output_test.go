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

package port

import (
	"testing"

	"github.com/ofswitch/ofswitch/action"
	"github.com/ofswitch/ofswitch/ofp"
	"github.com/stretchr/testify/require"
)

type recordingDriver struct {
	sent map[uint16]int
}

func newRecordingDriver() *recordingDriver { return &recordingDriver{sent: map[uint16]int{}} }

func (d *recordingDriver) Transmit(p uint16, data []byte) error {
	d.sent[p]++
	return nil
}

func newTestSink() (*Sink, *recordingDriver) {
	reg := NewRegistry()
	reg.Add(New(1, [6]byte{}, "eth1", 0, 0, 0))
	reg.Add(New(2, [6]byte{}, "eth2", ofp.PortFlagNoFlood, 0, 0))
	reg.Add(New(3, [6]byte{}, "eth3", ofp.PortFlagNoFwd, 0, 0))
	drv := newRecordingDriver()
	return &Sink{Registry: reg, Driver: drv}, drv
}

func TestSink_Flood_SkipsIngressAndNoFlood(t *testing.T) {
	sink, drv := newTestSink()
	require.NoError(t, sink.Flood(1, action.NewFrame([]byte("x"))))
	require.Equal(t, 0, drv.sent[1], "ingress port must not receive flooded frame")
	require.Equal(t, 0, drv.sent[2], "NO_FLOOD port must not receive flooded frame")
	require.Equal(t, 1, drv.sent[3])
}

func TestSink_All_SkipsOnlyIngress(t *testing.T) {
	sink, drv := newTestSink()
	require.NoError(t, sink.All(1, action.NewFrame([]byte("x"))))
	require.Equal(t, 0, drv.sent[1])
	require.Equal(t, 1, drv.sent[2])
	require.Equal(t, 1, drv.sent[3])
}

func TestSink_Output_RespectsNoFwdUnlessIgnored(t *testing.T) {
	sink, drv := newTestSink()
	require.NoError(t, sink.Output(3, action.NewFrame([]byte("x")), false))
	require.Equal(t, 0, drv.sent[3], "NO_FWD port must drop direct output")

	require.NoError(t, sink.Output(3, action.NewFrame([]byte("x")), true))
	require.Equal(t, 1, drv.sent[3], "ignoreNoFwd must bypass NO_FWD")
}

func TestSink_Output_UnknownPortIsSilentDrop(t *testing.T) {
	sink, _ := newTestSink()
	require.NoError(t, sink.Output(99, action.NewFrame([]byte("x")), false))
}

func TestRegistry_DescriptorsSortedByPortNo(t *testing.T) {
	reg := NewRegistry()
	reg.Add(New(3, [6]byte{}, "c", 0, 0, 0))
	reg.Add(New(1, [6]byte{}, "a", 0, 0, 0))
	reg.Add(New(2, [6]byte{}, "b", 0, 0, 0))

	descs := reg.Descriptors()
	require.Len(t, descs, 3)
	require.Equal(t, uint16(1), descs[0].PortNo)
	require.Equal(t, uint16(2), descs[1].PortNo)
	require.Equal(t, uint16(3), descs[2].PortNo)
}
