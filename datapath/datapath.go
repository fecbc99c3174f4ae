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

// Package datapath wires the flow chain, port registry, buffer pool,
// forwarder, and control dispatch into a single running instance, per
// §3's top-level Datapath and §5's cooperative scheduling model: one
// poll loop drains timed-out flows and quiesces the reclaimer, while
// the packet and control paths run lock-free against shared state.
package datapath

import (
	"context"
	"encoding/binary"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ofswitch/ofswitch/bufpool"
	"github.com/ofswitch/ofswitch/control"
	"github.com/ofswitch/ofswitch/flowtable"
	"github.com/ofswitch/ofswitch/forwarder"
	"github.com/ofswitch/ofswitch/ofp"
	"github.com/ofswitch/ofswitch/port"
)

// Config holds the tunable knobs for a Datapath. DefaultConfig
// supplies every value; Option overrides only what a caller cares
// about, matching the teacher's constructor-with-options shape.
type Config struct {
	MissSendLen    uint16
	PollInterval   time.Duration
	LocalPort      uint16
	ExactBits      uint
	ExactPoly      uint32
	DoubleBitsA    uint
	DoublePolyA    uint32
	DoublePolyB    uint32
	LinearMaxFlows int
	DatapathID     uint64
	Logger         zerolog.Logger
	ReconnectMode  control.Mode
	Backoff        control.Backoff
}

// DefaultConfig returns the Config New uses when no Option overrides
// a field. The two hash-table polynomials are CRC-32 (IEEE) and
// CRC-32C (Castagnoli) so the double-hash table's two probes are
// genuinely independent, per §4.4.
func DefaultConfig() Config {
	return Config{
		MissSendLen:    128,
		PollInterval:   time.Second,
		ExactBits:      16,
		ExactPoly:      0xedb88320,
		DoubleBitsA:    15,
		DoublePolyA:    0xedb88320,
		DoublePolyB:    0x82f63b78,
		LinearMaxFlows: 4096,
		Logger:         log.Logger,
		ReconnectMode:  control.ModeReliable,
		Backoff:        control.Backoff{Base: 100 * time.Millisecond, Max: 60 * time.Second},
	}
}

// Option customizes a Config before New builds a Datapath.
type Option func(*Config)

// WithMissSendLen sets the default miss_send_len SET_CONFIG may later override.
func WithMissSendLen(n uint16) Option { return func(c *Config) { c.MissSendLen = n } }

// WithPollInterval sets how often the poll loop checks for timed-out flows.
func WithPollInterval(d time.Duration) Option { return func(c *Config) { c.PollInterval = d } }

// WithLocalPort designates the port number OFPP_LOCAL actions deliver to.
func WithLocalPort(no uint16) Option { return func(c *Config) { c.LocalPort = no } }

// WithLinearMaxFlows bounds the wildcard table's entry count.
func WithLinearMaxFlows(n int) Option { return func(c *Config) { c.LinearMaxFlows = n } }

// WithLogger overrides the default logger.
func WithLogger(l zerolog.Logger) Option { return func(c *Config) { c.Logger = l } }

// WithDatapathID pins the FEATURES_REPLY datapath id instead of
// deriving one from a freshly generated uuid.
func WithDatapathID(id uint64) Option { return func(c *Config) { c.DatapathID = id } }

// WithReconnectMode selects reliable (redial-with-backoff) or
// unreliable (drop-terminates) control-channel behavior, per §5.
func WithReconnectMode(m control.Mode) Option { return func(c *Config) { c.ReconnectMode = m } }

// WithBackoff overrides the default reconnect backoff schedule.
func WithBackoff(b control.Backoff) Option { return func(c *Config) { c.Backoff = b } }

// Datapath is the assembled switch instance: the flow chain, the port
// registry, the buffer pool, the forwarder that drives them on the
// packet path, and the control State handlers mutate on the control
// path.
type Datapath struct {
	ID uuid.UUID

	Chain   *flowtable.Chain
	Reclaim *flowtable.Reclaimer
	Ports   *port.Registry
	Pool    *bufpool.Pool
	Sink    *port.Sink
	Forward *forwarder.Forwarder
	Control *control.State

	cfg Config
	log zerolog.Logger

	senderMu sync.RWMutex
	sender   control.Sender
}

// New assembles a Datapath whose Sink transmits through driver.
func New(driver port.Driver, opts ...Option) *Datapath {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	id := uuid.New()
	dpid := cfg.DatapathID
	if dpid == 0 {
		dpid = binary.BigEndian.Uint64(id[:8])
	}

	reclaim := flowtable.NewReclaimer()
	chain := flowtable.NewChain(
		reclaim,
		flowtable.NewHashTable(cfg.ExactBits, cfg.ExactPoly, reclaim),
		flowtable.NewDoubleHashTable(cfg.DoubleBitsA, cfg.DoublePolyA, cfg.DoublePolyB, reclaim),
		flowtable.NewLinearTable(cfg.LinearMaxFlows, reclaim),
	)

	ports := port.NewRegistry()
	pool := bufpool.New()
	ctrlConfig := control.NewConfig(cfg.MissSendLen)

	d := &Datapath{
		ID:      id,
		Chain:   chain,
		Reclaim: reclaim,
		Ports:   ports,
		Pool:    pool,
		cfg:     cfg,
		log:     cfg.Logger,
	}

	d.Sink = &port.Sink{Registry: ports, Driver: driver, Upstream: sinkController{d}, LocalPort: cfg.LocalPort}

	d.Control = &control.State{
		DatapathID: dpid,
		Chain:      chain,
		Ports:      ports,
		Pool:       pool,
		Sink:       d.Sink,
		Config:     ctrlConfig,
		Now:        func() int64 { return time.Now().Unix() },
		// The exact and double-hash tables accept no wildcard bits at
		// all; the linear table accepts every field and IP prefix
		// length, reported here as all-ones.
		TableWildcards: [3]uint32{0, 0, 0xffffffff},
		TableMax:       [3]uint32{1 << cfg.ExactBits, 1 << cfg.DoubleBitsA, uint32(cfg.LinearMaxFlows)},
		Log:            cfg.Logger,
	}

	d.Forward = &forwarder.Forwarder{
		Chain:      chain,
		Ports:      ports,
		Pool:       pool,
		Sink:       d.Sink,
		Controller: d,
		Config:     d.forwarderConfig,
		Now:        d.Control.Now,
	}

	ports.OnChange(d.emitPortStatus)
	return d
}

func (d *Datapath) forwarderConfig() forwarder.Config {
	flags, missSendLen := d.Control.Config.Get()
	return forwarder.Config{Frag: ofp.FragModeOf(flags), MissSendLen: missSendLen}
}

// Attach installs sender as the channel the poll loop, PACKET_IN punts,
// and PORT_STATUS notifications write to. Call it once a control
// connection is established; before that, all three are silently
// dropped.
func (d *Datapath) Attach(sender control.Sender) {
	d.senderMu.Lock()
	defer d.senderMu.Unlock()
	d.sender = sender
}

func (d *Datapath) currentSender() control.Sender {
	d.senderMu.RLock()
	defer d.senderMu.RUnlock()
	return d.sender
}

// Connect maintains the control channel to addr for this Datapath's
// lifetime, attaching and detaching the live connection as it comes
// and goes. It blocks until ctx is canceled (ModeReliable) or the
// connection drops (ModeUnreliable per §5's "a drop terminates the
// datapath"); callers in unreliable mode are expected to tear the
// Datapath down when this returns.
func (d *Datapath) Connect(ctx context.Context, network, addr string) error {
	return control.Reconnect(ctx, network, addr, d.cfg.ReconnectMode, d.cfg.Backoff, d.Control, d.Attach, d.log)
}

// PacketIn implements forwarder.Controller: a miss punts the frame to
// whatever control connection is currently attached.
func (d *Datapath) PacketIn(p ofp.PacketIn) error {
	sender := d.currentSender()
	if sender == nil {
		return nil
	}
	return sender.Send(ofp.TypePacketIn, 0, p)
}

// sinkController adapts Datapath to port.ControllerChannel, the
// interface action.Sink.Controller (an explicit CONTROLLER action
// output, distinct from a forwarding miss) sends through.
type sinkController struct{ d *Datapath }

func (c sinkController) PacketIn(frame []byte, maxLen uint16, reason ofp.PacketInReason) error {
	sender := c.d.currentSender()
	if sender == nil {
		return nil
	}
	data := frame
	if int(maxLen) < len(data) {
		data = data[:maxLen]
	}
	return sender.Send(ofp.TypePacketIn, 0, ofp.PacketIn{
		BufferID: ofp.NoBuffer,
		TotalLen: uint16(len(frame)),
		Reason:   reason,
		Data:     data,
	})
}

func (d *Datapath) emitPortStatus(reason ofp.PortStatusReason, p *port.Port) {
	sender := d.currentSender()
	if sender == nil {
		return
	}
	if err := sender.Send(ofp.TypePortStatus, 0, ofp.PortStatus{Reason: reason, Desc: p.ToPhyPort()}); err != nil {
		d.log.Warn().Err(err).Msg("datapath: failed to send PORT_STATUS")
	}
}

// Poll runs the cooperative maintenance loop until ctx is canceled:
// each tick quiesces the reclaimer and times out expired flows,
// emitting FLOW_EXPIRED for each when the control config has
// SEND_FLOW_EXP set, per §5/§6.
func (d *Datapath) Poll(ctx context.Context) {
	ticker := time.NewTicker(d.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.tick(time.Now().Unix())
		}
	}
}

func (d *Datapath) tick(now int64) {
	d.Reclaim.Quiesce()

	for _, exp := range d.Chain.Timeout(now) {
		d.notifyExpired(exp, now)
	}
}

func (d *Datapath) notifyExpired(exp flowtable.Expiration, now int64) {
	if !d.Control.Config.SendFlowExpirations() {
		return
	}
	sender := d.currentSender()
	if sender == nil {
		return
	}

	f := exp.Flow
	body := ofp.FlowExpired{
		Match:       ofp.MatchFromKey(f.Key, f.Wildcards),
		Priority:    f.Priority,
		Duration:    uint32(f.Duration(now)),
		PacketCount: f.PacketCount(),
		ByteCount:   f.ByteCount(),
	}
	if err := sender.Send(ofp.TypeFlowExpired, 0, body); err != nil {
		d.log.Warn().Err(err).Msg("datapath: failed to send FLOW_EXPIRED")
	}
}
