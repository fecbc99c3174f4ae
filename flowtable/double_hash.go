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

import "github.com/ofswitch/ofswitch/flowkey"

// DoubleHashTable composes two HashTables keyed by different CRC32
// polynomials, per §4.3: insert tries the first table, then the
// second; lookup, delete, and timeout operate on both.
type DoubleHashTable struct {
	a, b *HashTable
}

// NewDoubleHashTable builds a DoubleHashTable from two independently
// polynomial'd hash tables.
func NewDoubleHashTable(bits uint, polyA, polyB uint32, reclaim *Reclaimer) *DoubleHashTable {
	return &DoubleHashTable{
		a: NewHashTable(bits, polyA, reclaim),
		b: NewHashTable(bits, polyB, reclaim),
	}
}

// Lookup probes both tables, returning the first hit.
func (d *DoubleHashTable) Lookup(k flowkey.Key) (*Flow, bool) {
	if f, ok := d.a.Lookup(k); ok {
		return f, true
	}
	return d.b.Lookup(k)
}

// Insert tries the first table, then the second.
func (d *DoubleHashTable) Insert(f *Flow) bool {
	if d.a.Insert(f) {
		return true
	}
	return d.b.Insert(f)
}

// Delete removes matching entries from both tables, summing the count.
func (d *DoubleHashTable) Delete(spec Spec, strict bool) int {
	return d.a.Delete(spec, strict) + d.b.Delete(spec, strict)
}

// Find returns every flow matching spec across both tables.
func (d *DoubleHashTable) Find(spec Spec, strict bool) []*Flow {
	return append(d.a.Find(spec, strict), d.b.Find(spec, strict)...)
}

// Timeout sweeps both tables.
func (d *DoubleHashTable) Timeout(now int64) []Expiration {
	return append(d.a.Timeout(now), d.b.Timeout(now)...)
}

// Len returns the combined occupied-bucket count across both tables.
func (d *DoubleHashTable) Len() int {
	return d.a.Len() + d.b.Len()
}
