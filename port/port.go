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

// Package port tracks the datapath's physical ports and implements
// the frame-delivery boundary the action executor sends through.
package port

import (
	"sync/atomic"

	"github.com/ofswitch/ofswitch/ofp"
	"github.com/puzpuzpuz/xsync/v3"
)

// Port is one physical port attached to the datapath.
type Port struct {
	No       uint16
	HWAddr   [6]byte
	Name     string
	flags    atomic.Uint32
	speed    atomic.Uint32
	features atomic.Uint32

	rxPackets atomic.Uint64
	txPackets atomic.Uint64
	rxBytes   atomic.Uint64
	txBytes   atomic.Uint64
	dropCount atomic.Uint64
}

// New builds a Port in the given initial state.
func New(no uint16, hwAddr [6]byte, name string, flags, speed, features uint32) *Port {
	p := &Port{No: no, HWAddr: hwAddr, Name: name}
	p.flags.Store(flags)
	p.speed.Store(speed)
	p.features.Store(features)
	return p
}

// Flags returns the port's current config flags.
func (p *Port) Flags() uint32 { return p.flags.Load() }

// SetFlags overwrites the port's config flags, as PORT_MOD does.
func (p *Port) SetFlags(flags uint32) { p.flags.Store(flags) }

// Has reports whether every bit in mask is set in the port's flags.
func (p *Port) Has(mask uint32) bool { return p.flags.Load()&mask == mask }

// DropCount returns the number of frames dropped on this port.
func (p *Port) DropCount() uint64 { return p.dropCount.Load() }

func (p *Port) recordTx(n int) {
	p.txPackets.Add(1)
	p.txBytes.Add(uint64(n))
}

func (p *Port) recordRx(n int) {
	p.rxPackets.Add(1)
	p.rxBytes.Add(uint64(n))
}

func (p *Port) recordDrop() { p.dropCount.Add(1) }

// ToPhyPort renders p as a wire PhyPort descriptor.
func (p *Port) ToPhyPort() ofp.PhyPort {
	return ofp.PhyPort{
		PortNo:   p.No,
		HWAddr:   p.HWAddr,
		Name:     ofp.PhyPortName(p.Name),
		Flags:    p.flags.Load(),
		Speed:    p.speed.Load(),
		Features: p.features.Load(),
	}
}

// Stats renders p's counters as a wire STATS_PORT entry.
func (p *Port) Stats() ofp.PortStatsEntry {
	return ofp.PortStatsEntry{
		PortNo:    p.No,
		RxPackets: p.rxPackets.Load(),
		TxPackets: p.txPackets.Load(),
		RxBytes:   p.rxBytes.Load(),
		TxBytes:   p.txBytes.Load(),
		RxDropped: 0,
		TxDropped: p.dropCount.Load(),
	}
}

// Registry is the datapath's lock-free port table: readers on the
// packet path never block behind control-path Add/Remove/SetFlags.
type Registry struct {
	ports *xsync.MapOf[uint16, *Port]

	// onChange, if set, is called after a topology-changing Add or
	// Remove so the control path can emit an unsolicited PORT_STATUS.
	onChange func(ofp.PortStatusReason, *Port)
}

// NewRegistry builds an empty Registry.
func NewRegistry() *Registry {
	return &Registry{ports: xsync.NewMapOf[uint16, *Port]()}
}

// OnChange installs f to run after every Add/Remove. Only one
// listener is supported; a later call replaces the previous one.
func (r *Registry) OnChange(f func(ofp.PortStatusReason, *Port)) { r.onChange = f }

// Add registers p, replacing any existing port with the same number.
func (r *Registry) Add(p *Port) {
	r.ports.Store(p.No, p)
	if r.onChange != nil {
		r.onChange(ofp.PortStatusAdd, p)
	}
}

// Remove drops the port with the given number.
func (r *Registry) Remove(no uint16) {
	p, ok := r.ports.Load(no)
	r.ports.Delete(no)
	if ok && r.onChange != nil {
		r.onChange(ofp.PortStatusDelete, p)
	}
}

// Get returns the port with the given number, if present.
func (r *Registry) Get(no uint16) (*Port, bool) { return r.ports.Load(no) }

// Range calls f for every registered port, in no particular order.
// Iteration stops early if f returns false.
func (r *Registry) Range(f func(*Port) bool) {
	r.ports.Range(func(_ uint16, p *Port) bool { return f(p) })
}

// Len returns the number of registered ports.
func (r *Registry) Len() int { return r.ports.Size() }

// Descriptors renders every registered port as a wire PhyPort, sorted
// by port number so FEATURES_REPLY is deterministic.
func (r *Registry) Descriptors() []ofp.PhyPort {
	out := make([]ofp.PhyPort, 0, r.Len())
	r.Range(func(p *Port) bool {
		out = append(out, p.ToPhyPort())
		return true
	})
	sortPhyPorts(out)
	return out
}

func sortPhyPorts(ports []ofp.PhyPort) {
	for i := 1; i < len(ports); i++ {
		for j := i; j > 0 && ports[j].PortNo < ports[j-1].PortNo; j-- {
			ports[j], ports[j-1] = ports[j-1], ports[j]
		}
	}
}
