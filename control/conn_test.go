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
	"net"
	"sync"
	"testing"
	"time"

	"github.com/ofswitch/ofswitch/ofp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestConn_SendFramesMessageCorrectly(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	conn := NewConn(client, zerolog.Nop())

	go func() {
		_ = conn.Send(ofp.TypeEchoRequest, 99, ofp.Echo{Data: []byte("hi")})
	}()

	hdrBuf := make([]byte, ofp.HeaderLen)
	_, err := server.Read(hdrBuf)
	require.NoError(t, err)

	hdr, err := ofp.UnmarshalHeader(hdrBuf)
	require.NoError(t, err)
	require.Equal(t, ofp.TypeEchoRequest, hdr.Type)
	require.EqualValues(t, 99, hdr.Xid)

	body := make([]byte, int(hdr.Length)-ofp.HeaderLen)
	_, err = server.Read(body)
	require.NoError(t, err)
	require.Equal(t, []byte("hi"), body)
}

func TestConn_ServeDispatchesUntilClose(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()

	s, _ := newTestState(t)
	conn := NewConn(server, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	serveErr := make(chan error, 1)
	go func() { serveErr <- conn.Serve(ctx, s) }()

	msg := buildMessage(ofp.TypeEchoRequest, 5, ofp.Echo{Data: []byte("ok")})
	_, err := client.Write(msg)
	require.NoError(t, err)

	reply := make([]byte, ofp.HeaderLen+2)
	_, err = client.Read(reply)
	require.NoError(t, err)
	hdr, err := ofp.UnmarshalHeader(reply)
	require.NoError(t, err)
	require.Equal(t, ofp.TypeEchoReply, hdr.Type)

	require.NoError(t, client.Close())
	select {
	case err := <-serveErr:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Serve did not return after client closed")
	}
}

func TestBackoff_DoublesUntilCap(t *testing.T) {
	b := Backoff{Base: 100 * time.Millisecond, Max: time.Second}

	require.Equal(t, 100*time.Millisecond, b.Delay(0))
	require.Equal(t, 200*time.Millisecond, b.Delay(1))
	require.Equal(t, 400*time.Millisecond, b.Delay(2))
	require.Equal(t, time.Second, b.Delay(10))
}

func TestReconnect_UnreliableModeReturnsOnFirstDrop(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	go func() {
		c, err := ln.Accept()
		if err == nil {
			c.Close() // drop immediately
		}
	}()

	s, _ := newTestState(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var connects int
	onConnect := func(sender Sender) {
		if sender != nil {
			connects++
		}
	}

	err = Reconnect(ctx, "tcp", ln.Addr().String(), ModeUnreliable, Backoff{Base: 10 * time.Millisecond, Max: time.Second}, s, onConnect, zerolog.Nop())
	require.Error(t, err)
	require.Equal(t, 1, connects, "unreliable mode must not redial after the first drop")
}

func TestReconnect_ReliableModeRedialsAfterADrop(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	secondAccepted := make(chan net.Conn, 1)
	go func() {
		first, err := ln.Accept()
		if err != nil {
			return
		}
		first.Close() // drop; Reconnect must redial

		second, err := ln.Accept()
		if err != nil {
			return
		}
		secondAccepted <- second
	}()

	s, _ := newTestState(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	connects := 0
	onConnect := func(sender Sender) {
		mu.Lock()
		defer mu.Unlock()
		if sender != nil {
			connects++
		}
	}

	done := make(chan error, 1)
	go func() {
		done <- Reconnect(ctx, "tcp", ln.Addr().String(), ModeReliable, Backoff{Base: 10 * time.Millisecond, Max: 100 * time.Millisecond}, s, onConnect, zerolog.Nop())
	}()

	var second net.Conn
	select {
	case second = <-secondAccepted:
		defer second.Close()
	case <-time.After(2 * time.Second):
		t.Fatal("reliable mode never redialed after the drop")
	}

	cancel()
	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Reconnect did not return after ctx cancellation")
	}

	mu.Lock()
	defer mu.Unlock()
	require.GreaterOrEqual(t, connects, 2, "reliable mode must have redialed at least once")
}

func TestDial_SucceedsOnFirstReachableAddress(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	accepted := make(chan struct{})
	go func() {
		c, err := ln.Accept()
		if err == nil {
			close(accepted)
			c.Close()
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	nc, err := Dial(ctx, "tcp", ln.Addr().String(), Backoff{Base: 10 * time.Millisecond, Max: time.Second}, zerolog.Nop())
	require.NoError(t, err)
	defer nc.Close()

	select {
	case <-accepted:
	case <-time.After(time.Second):
		t.Fatal("listener never accepted a connection")
	}
}
