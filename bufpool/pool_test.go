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

package bufpool

import (
	"testing"

	"github.com/ofswitch/ofswitch/action"
	"github.com/stretchr/testify/require"
)

func TestPool_SaveRetrieveRoundTrip(t *testing.T) {
	p := New()
	frame := action.NewFrame([]byte{1, 2, 3})

	id, ok := p.Save(frame, 0)
	require.True(t, ok)

	got, err := p.Retrieve(id)
	require.NoError(t, err)
	require.Equal(t, frame.Data, got.Data)

	_, err = p.Retrieve(id)
	require.ErrorIs(t, err, ErrCookieMismatch)
}

func TestPool_DiscardDropsWithoutReturning(t *testing.T) {
	p := New()
	id, ok := p.Save(action.NewFrame([]byte{9}), 0)
	require.True(t, ok)

	require.NoError(t, p.Discard(id))
	_, err := p.Retrieve(id)
	require.ErrorIs(t, err, ErrCookieMismatch)
}

func TestPool_SaveRejectsWithinGracePeriod(t *testing.T) {
	p := New()
	for i := 0; i < N; i++ {
		_, ok := p.Save(action.NewFrame([]byte{byte(i)}), 0)
		require.True(t, ok)
	}

	// The ring has wrapped back to slot 0, still within its grace
	// period (expires_at = 0 + overwriteSecs, now still 0).
	_, ok := p.Save(action.NewFrame([]byte{0xff}), 0)
	require.False(t, ok)
}

func TestPool_SaveAllowsEvictionAfterGracePeriod(t *testing.T) {
	p := New()
	for i := 0; i < N; i++ {
		_, ok := p.Save(action.NewFrame([]byte{byte(i)}), 0)
		require.True(t, ok)
	}

	id, ok := p.Save(action.NewFrame([]byte{0xaa}), overwriteSecs+1)
	require.True(t, ok)

	got, err := p.Retrieve(id)
	require.NoError(t, err)
	require.Equal(t, []byte{0xaa}, got.Data)
}

func TestPool_CookieAdvancesOnSlotReuse(t *testing.T) {
	require.EqualValues(t, 0, nextCookie(0, false))
	require.EqualValues(t, 1, nextCookie(0, true))
	require.EqualValues(t, 0, nextCookie(allOnesCookie16-1, true), "advancing onto the all-ones sentinel must skip past it")
}

func TestPool_SlotReuseYieldsDistinctIDs(t *testing.T) {
	p := New()
	first, ok := p.Save(action.NewFrame([]byte{1}), 0)
	require.True(t, ok)

	for i := 0; i < N-1; i++ {
		_, ok := p.Save(action.NewFrame([]byte{byte(i)}), 0)
		require.True(t, ok)
	}

	second, ok := p.Save(action.NewFrame([]byte{2}), overwriteSecs+1)
	require.True(t, ok)
	require.Equal(t, first&indexMask, second&indexMask, "cursor should have wrapped back to the same slot")
	require.NotEqual(t, first, second, "cookie must advance on reuse")
}

func TestPool_RetrieveUnknownIDFails(t *testing.T) {
	p := New()
	_, err := p.Retrieve(0)
	require.ErrorIs(t, err, ErrCookieMismatch)
}
