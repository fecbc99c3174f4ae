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
	"context"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/ofswitch/ofswitch/ofp"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Conn is one control connection to a datapath, framing messages over
// a net.Conn and serializing writes behind a single mutex. It
// implements Sender.
type Conn struct {
	nc  net.Conn
	log zerolog.Logger

	writeMu sync.Mutex
}

// NewConn wraps nc as a framed control connection.
func NewConn(nc net.Conn, log zerolog.Logger) *Conn {
	return &Conn{nc: nc, log: log}
}

// Send encodes body behind the common 8-byte header and writes it as
// a single framed message.
func (c *Conn) Send(t ofp.Type, xid uint32, body wireMessage) error {
	payload, err := body.MarshalBinary()
	if err != nil {
		return fmt.Errorf("control: encode %s body: %w", t, err)
	}

	hdr := ofp.Header{Version: ofp.Version, Type: t, Length: uint16(ofp.HeaderLen + len(payload)), Xid: xid}
	hb, err := hdr.MarshalBinary()
	if err != nil {
		return fmt.Errorf("control: encode header: %w", err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if _, err := c.nc.Write(append(hb, payload...)); err != nil {
		return fmt.Errorf("control: write: %w", err)
	}
	return nil
}

// Close closes the underlying connection.
func (c *Conn) Close() error { return c.nc.Close() }

// Serve reads framed messages from c until the connection closes or
// ctx is canceled, dispatching each one against s. It returns nil on
// a clean EOF, and the read or dispatch error otherwise.
func (c *Conn) Serve(ctx context.Context, s *State) error {
	go func() {
		<-ctx.Done()
		c.nc.Close()
	}()

	hdrBuf := make([]byte, ofp.HeaderLen)
	for {
		if _, err := io.ReadFull(c.nc, hdrBuf); err != nil {
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("control: read header: %w", err)
		}

		hdr, err := ofp.UnmarshalHeader(hdrBuf)
		if err != nil {
			return fmt.Errorf("control: decode header: %w", err)
		}

		msg := make([]byte, hdr.Length)
		copy(msg, hdrBuf)
		if n := int(hdr.Length) - ofp.HeaderLen; n > 0 {
			if _, err := io.ReadFull(c.nc, msg[ofp.HeaderLen:]); err != nil {
				return fmt.Errorf("control: read body: %w", err)
			}
		}

		if err := Dispatch(s, c, msg); err != nil {
			return err
		}
	}
}

// Backoff computes the delay before the next reconnect attempt: the
// base delay doubled once per prior attempt, capped at max, per §5's
// "reconnect with exponential backoff up to 60s in reliable mode".
type Backoff struct {
	Base time.Duration
	Max  time.Duration
}

// Delay returns the backoff for the given zero-indexed attempt count.
func (b Backoff) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	// Cap the shift itself, not just the result, so 1<<attempt never
	// overflows for a pathologically long run of failures.
	if attempt > 32 {
		attempt = 32
	}
	d := b.Base * time.Duration(uint64(1)<<uint(attempt))
	if d <= 0 || d > b.Max {
		d = b.Max
	}
	return d
}

// Mode selects how Reconnect responds to a dropped control
// connection, per §5's "reconnect with exponential backoff up to 60s
// in reliable mode; in unreliable mode a drop terminates the
// datapath."
type Mode int

const (
	// ModeReliable redials with Backoff after every drop, so a
	// transient disconnect never takes the datapath down.
	ModeReliable Mode = iota
	// ModeUnreliable treats the first drop as terminal: Reconnect
	// returns instead of redialing, leaving teardown to the caller.
	ModeUnreliable
)

// Reconnect dials addr and serves s over the resulting connection
// until ctx is canceled. In ModeReliable, a dropped connection (clean
// EOF or read/dispatch error) is redialed with b's backoff; in
// ModeUnreliable, the first drop returns immediately. onConnect, if
// non-nil, is called with the live Conn right after each successful
// dial and with nil right after it drops, so a caller holding the
// outbound-message seam (e.g. datapath.Datapath.Attach) can track
// which connection, if any, is currently usable.
func Reconnect(ctx context.Context, network, addr string, mode Mode, b Backoff, s *State, onConnect func(Sender), log zerolog.Logger) error {
	for {
		nc, err := Dial(ctx, network, addr, b, log)
		if err != nil {
			return err
		}

		conn := NewConn(nc, log)
		if onConnect != nil {
			onConnect(conn)
		}
		serveErr := conn.Serve(ctx, s)
		conn.Close()
		if onConnect != nil {
			onConnect(nil)
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}
		if mode == ModeUnreliable {
			if serveErr != nil {
				return fmt.Errorf("control: connection dropped in unreliable mode: %w", serveErr)
			}
			return fmt.Errorf("control: connection dropped in unreliable mode")
		}
		if serveErr != nil {
			log.Warn().Err(serveErr).Str("addr", addr).Msg("control: connection dropped, reconnecting")
		} else {
			log.Info().Str("addr", addr).Msg("control: connection closed, reconnecting")
		}
	}
}

// Dial repeatedly attempts to connect to addr, waiting b's backoff
// between attempts, until it succeeds or ctx is canceled.
func Dial(ctx context.Context, network, addr string, b Backoff, log zerolog.Logger) (net.Conn, error) {
	var dialer net.Dialer
	for attempt := 0; ; attempt++ {
		nc, err := dialer.DialContext(ctx, network, addr)
		if err == nil {
			return nc, nil
		}

		delay := b.Delay(attempt)
		log.Warn().Err(err).Str("addr", addr).Dur("retry_in", delay).Msg("control: dial failed, backing off")

		lim := rate.NewLimiter(rate.Every(delay), 1)
		lim.Allow() // spend the initial burst token so Wait blocks for the full delay
		if err := lim.Wait(ctx); err != nil {
			return nil, err
		}
	}
}
