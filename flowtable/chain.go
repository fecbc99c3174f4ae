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

// Expiration pairs a flow removed by Timeout with the reason it left.
type Expiration struct {
	Flow   *Flow
	Reason ExpireReason
}

// Table is the common surface HashTable, DoubleHashTable and
// LinearTable all implement, letting Chain treat them uniformly.
type Table interface {
	Lookup(k flowkey.Key) (*Flow, bool)
	Insert(f *Flow) bool
	Delete(spec Spec, strict bool) int
	Find(spec Spec, strict bool) []*Flow
	Timeout(now int64) []Expiration
	Len() int
}

// Chain is the ordered flow chain of §4.6: an exact-hash table, a
// double-hash table, and a linear-priority table, consulted in that
// fixed order. Lookup returns the first hit; Insert is accepted by the
// first table willing to hold the flow (exact tables require
// wildcards == 0, the linear table requires wildcards != 0; an exact
// flow whose bucket in the exact-hash table already holds a different
// key falls through to the double-hash table, which gives exact flows
// extra hash-collision headroom without the linear scan).
type Chain struct {
	tables  []Table
	reclaim *Reclaimer
}

// NewChain composes tables in the fixed lookup order: exact hash
// first, then double hash, then the linear table last. reclaim must
// be the same Reclaimer passed to each table, so Lookup/Find can
// bracket the packet and control read paths against the writer-side
// Retire/Quiesce the tables themselves perform.
func NewChain(reclaim *Reclaimer, tables ...Table) *Chain {
	return &Chain{tables: tables, reclaim: reclaim}
}

// Lookup returns the first match found while walking the chain.
// Brackets the whole walk in a single reader epoch so a flow
// Retire'd by a concurrent writer mid-walk isn't reclaimed until this
// call returns.
func (c *Chain) Lookup(k flowkey.Key) (*Flow, bool) {
	e := c.reclaim.Enter()
	defer c.reclaim.Exit(e)

	for _, t := range c.tables {
		if f, ok := t.Lookup(k); ok {
			return f, true
		}
	}
	return nil, false
}

// Insert offers f to each table in order until one accepts it.
func (c *Chain) Insert(f *Flow) bool {
	for _, t := range c.tables {
		if t.Insert(f) {
			return true
		}
	}
	return false
}

// Delete removes matching entries from every table, summing the count.
func (c *Chain) Delete(spec Spec, strict bool) int {
	total := 0
	for _, t := range c.tables {
		total += t.Delete(spec, strict)
	}
	return total
}

// Find returns every flow matching spec across every table, for
// MODIFY/MODIFY_STRICT to replace action lists without disturbing
// position or priority, and for STATS_FLOW/STATS_AGGREGATE
// enumeration. Bracketed the same way as Lookup.
func (c *Chain) Find(spec Spec, strict bool) []*Flow {
	e := c.reclaim.Enter()
	defer c.reclaim.Exit(e)

	var out []*Flow
	for _, t := range c.tables {
		out = append(out, t.Find(spec, strict)...)
	}
	return out
}

// Timeout sweeps every table for expired entries.
func (c *Chain) Timeout(now int64) []Expiration {
	var out []Expiration
	for _, t := range c.tables {
		out = append(out, t.Timeout(now)...)
	}
	return out
}

// Len returns the total entry count across all tables.
func (c *Chain) Len() int {
	total := 0
	for _, t := range c.tables {
		total += t.Len()
	}
	return total
}
