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

package flowtable

import (
	"testing"

	"github.com/ofswitch/ofswitch/flowkey"
	"github.com/stretchr/testify/require"
)

func newTestChain() *Chain {
	reclaim := NewReclaimer()
	return NewChain(
		reclaim,
		NewHashTable(4, polyIEEE, reclaim),
		NewDoubleHashTable(4, polyIEEE, polyCastg, reclaim),
		NewLinearTable(8, reclaim),
	)
}

func TestChain_InsertRoutesByWildcards(t *testing.T) {
	c := newTestChain()

	exact, err := New(baseKey(), 0, 0, Permanent, Permanent, 0, 0, nil)
	require.NoError(t, err)
	require.True(t, c.Insert(exact))

	wild, err := New(baseKey(), flowkey.FwTpDst, 10, Permanent, Permanent, 0, 0, nil)
	require.NoError(t, err)
	require.True(t, c.Insert(wild))

	require.Equal(t, 2, c.Len())
}

func TestChain_LookupPrefersFirstHit(t *testing.T) {
	c := newTestChain()

	exact, err := New(baseKey(), 0, 0, Permanent, Permanent, 1, 0, nil)
	require.NoError(t, err)
	require.True(t, c.Insert(exact))

	wild, err := New(baseKey(), flowkey.FwTpDst, 100, Permanent, Permanent, 2, 0, nil)
	require.NoError(t, err)
	require.True(t, c.Insert(wild))

	got, ok := c.Lookup(baseKey())
	require.True(t, ok)
	require.Same(t, exact, got, "exact-hash table is consulted before the linear table")
}

func TestChain_DeleteSumsAcrossTables(t *testing.T) {
	c := newTestChain()

	exact, err := New(baseKey(), 0, 0, Permanent, Permanent, 0, 0, nil)
	require.NoError(t, err)
	require.True(t, c.Insert(exact))

	wild, err := New(baseKey(), flowkey.FwTpDst, 10, Permanent, Permanent, 0, 0, nil)
	require.NoError(t, err)
	require.True(t, c.Insert(wild))

	removed := c.Delete(Spec{Key: baseKey(), Wildcards: flowkey.FwTpDst}, false)
	require.Equal(t, 2, removed)
	require.Equal(t, 0, c.Len())
}

func TestChain_FindLocatesWithoutRemoving(t *testing.T) {
	c := newTestChain()

	wild, err := New(baseKey(), flowkey.FwTpDst, 10, Permanent, Permanent, 0, 0, nil)
	require.NoError(t, err)
	require.True(t, c.Insert(wild))

	found := c.Find(Spec{Key: baseKey(), Wildcards: flowkey.FwTpDst, Priority: 10}, true)
	require.Equal(t, []*Flow{wild}, found)
	require.Equal(t, 1, c.Len(), "Find must not remove matching entries")
}

func TestChain_TimeoutAggregatesAllTables(t *testing.T) {
	c := newTestChain()

	exact, err := New(baseKey(), 0, 0, 5, Permanent, 0, 0, nil)
	require.NoError(t, err)
	require.True(t, c.Insert(exact))

	wild, err := New(baseKey(), flowkey.FwTpDst, 10, 5, Permanent, 0, 0, nil)
	require.NoError(t, err)
	require.True(t, c.Insert(wild))

	expired := c.Timeout(6)
	require.Len(t, expired, 2)
	require.Equal(t, 0, c.Len())
}
