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

// Two distinct CRC32 polynomials (IEEE and Castagnoli), matching how
// the chain's default wiring picks two independent hashes.
const (
	polyIEEE  = 0xedb88320
	polyCastg = 0x82f63b78
)

func TestDoubleHashTable_InsertFallsThroughToSecond(t *testing.T) {
	dt := NewDoubleHashTable(1, polyIEEE, polyCastg, NewReclaimer()) // 2 buckets/table

	// Three keys: table a's two buckets take the first two, and the
	// third collides in a and falls through to a free bucket in b.
	var keys []flowkey.Key
	for i := uint16(0); i < 3; i++ {
		k := baseKey()
		k.TPSrc = i
		f, err := New(k, 0, 0, Permanent, Permanent, 0, 0, nil)
		require.NoError(t, err)
		require.True(t, dt.Insert(f), "insert %d should succeed across a or b", i)
		keys = append(keys, k)
	}

	for _, k := range keys {
		_, ok := dt.Lookup(k)
		require.True(t, ok)
	}
}

func TestDoubleHashTable_DeleteAndLenSumBothTables(t *testing.T) {
	dt := NewDoubleHashTable(4, polyIEEE, polyCastg, NewReclaimer())
	k := baseKey()
	f, err := New(k, 0, 0, Permanent, Permanent, 0, 0, nil)
	require.NoError(t, err)
	require.True(t, dt.Insert(f))
	require.Equal(t, 1, dt.Len())

	require.Equal(t, 1, dt.Delete(Spec{Key: k}, true))
	require.Equal(t, 0, dt.Len())
}
