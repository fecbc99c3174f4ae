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

func wildcardFlow(t *testing.T, priority uint16, cookie uint64) *Flow {
	t.Helper()
	f, err := New(baseKey(), flowkey.FwTpDst, priority, Permanent, Permanent, cookie, 0, nil)
	require.NoError(t, err)
	return f
}

func TestLinearTable_RejectsExactFlow(t *testing.T) {
	lt := NewLinearTable(8, NewReclaimer())
	f, err := New(baseKey(), 0, 0, Permanent, Permanent, 0, 0, nil)
	require.NoError(t, err)
	require.False(t, lt.Insert(f))
}

func TestLinearTable_OrdersByPriorityDescending(t *testing.T) {
	lt := NewLinearTable(8, NewReclaimer())
	low := wildcardFlow(t, 10, 1)
	high := wildcardFlow(t, 100, 2)
	mid := wildcardFlow(t, 50, 3)

	require.True(t, lt.Insert(low))
	require.True(t, lt.Insert(high))
	require.True(t, lt.Insert(mid))

	got := lt.load()
	require.Equal(t, []*Flow{high, mid, low}, got)
}

func TestLinearTable_TiesKeepInsertionOrder(t *testing.T) {
	lt := NewLinearTable(8, NewReclaimer())
	first := wildcardFlow(t, 10, 1)
	second := wildcardFlow(t, 10, 2)

	require.True(t, lt.Insert(first))
	require.True(t, lt.Insert(second))

	require.Equal(t, []*Flow{first, second}, lt.load())
}

func TestLinearTable_InsertReplacesIdenticalTemplate(t *testing.T) {
	lt := NewLinearTable(8, NewReclaimer())
	f1 := wildcardFlow(t, 10, 1)
	require.True(t, lt.Insert(f1))

	f2, err := New(baseKey(), flowkey.FwTpDst, 10, Permanent, Permanent, 2, 0, nil)
	require.NoError(t, err)
	require.True(t, lt.Insert(f2))

	require.Equal(t, []*Flow{f2}, lt.load())
}

func TestLinearTable_RespectsCapacity(t *testing.T) {
	lt := NewLinearTable(1, NewReclaimer())
	require.True(t, lt.Insert(wildcardFlow(t, 1, 1)))
	require.False(t, lt.Insert(wildcardFlow(t, 2, 2)))
}

func TestLinearTable_LookupScansInPriorityOrder(t *testing.T) {
	lt := NewLinearTable(8, NewReclaimer())
	low := wildcardFlow(t, 10, 1)
	high := wildcardFlow(t, 100, 2)
	require.True(t, lt.Insert(low))
	require.True(t, lt.Insert(high))

	got, ok := lt.Lookup(baseKey())
	require.True(t, ok)
	require.Same(t, high, got)
}

func TestLinearTable_DeleteOverlap(t *testing.T) {
	lt := NewLinearTable(8, NewReclaimer())
	f := wildcardFlow(t, 10, 1)
	require.True(t, lt.Insert(f))

	removed := lt.Delete(Spec{Key: baseKey(), Wildcards: flowkey.FwTpDst}, false)
	require.Equal(t, 1, removed)
	require.Equal(t, 0, lt.Len())
}

func TestLinearTable_Timeout(t *testing.T) {
	lt := NewLinearTable(8, NewReclaimer())
	f, err := New(baseKey(), flowkey.FwTpDst, 10, 5, Permanent, 0, 0, nil)
	require.NoError(t, err)
	require.True(t, lt.Insert(f))

	require.Empty(t, lt.Timeout(3))
	expired := lt.Timeout(6)
	require.Len(t, expired, 1)
	require.Equal(t, ExpireIdle, expired[0].Reason)
}
