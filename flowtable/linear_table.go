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
	"sync"
	"sync/atomic"

	"github.com/ofswitch/ofswitch/flowkey"
)

// LinearTable holds wildcarded flows (wildcards != 0) in a single
// priority-ordered snapshot slice, per §4.4. Readers load the current
// snapshot and scan it lock-free; writers build a new slice and swap
// it in under mu, so a reader never observes a torn intermediate
// state, only the old or the new snapshot.
type LinearTable struct {
	mu       sync.Mutex
	snapshot atomic.Pointer[[]*Flow]
	maxFlows int
	reclaim  *Reclaimer
}

// NewLinearTable builds an empty LinearTable bounded at maxFlows.
func NewLinearTable(maxFlows int, reclaim *Reclaimer) *LinearTable {
	t := &LinearTable{maxFlows: maxFlows, reclaim: reclaim}
	empty := []*Flow{}
	t.snapshot.Store(&empty)
	return t
}

func (t *LinearTable) load() []*Flow {
	return *t.snapshot.Load()
}

// Lookup scans in priority order (highest first) and returns the
// first flow whose template matches k. Lock-free.
func (t *LinearTable) Lookup(k flowkey.Key) (*Flow, bool) {
	for _, f := range t.load() {
		if Matches(k, f) {
			return f, true
		}
	}
	return nil, false
}

// Insert admits f if its wildcards are non-zero and the table has
// capacity, replacing any entry with the identical (key, wildcards,
// priority) in place. Flows are kept ordered by non-increasing
// priority, ties broken by insertion age (older first, i.e. stable).
func (t *LinearTable) Insert(f *Flow) bool {
	if f.Wildcards == 0 {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	cur := t.load()
	for i, existing := range cur {
		if existing.Key == f.Key && existing.Wildcards == f.Wildcards && existing.Priority == f.Priority {
			next := append([]*Flow(nil), cur...)
			next[i] = f
			t.snapshot.Store(&next)
			t.reclaim.Retire(existing)
			return true
		}
	}

	if len(cur) >= t.maxFlows {
		return false
	}

	next := make([]*Flow, 0, len(cur)+1)
	inserted := false
	for _, existing := range cur {
		if !inserted && f.Priority > existing.Priority {
			next = append(next, f)
			inserted = true
		}
		next = append(next, existing)
	}
	if !inserted {
		next = append(next, f)
	}
	t.snapshot.Store(&next)
	return true
}

// Delete removes matching entries, returning the count removed.
func (t *LinearTable) Delete(spec Spec, strict bool) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	cur := t.load()
	next := make([]*Flow, 0, len(cur))
	removed := 0
	for _, f := range cur {
		hit := false
		if strict {
			hit = StrictMatches(spec, f)
		} else {
			hit = Overlaps(spec, f)
		}
		if hit {
			t.reclaim.Retire(f)
			removed++
			continue
		}
		next = append(next, f)
	}
	if removed > 0 {
		t.snapshot.Store(&next)
	}
	return removed
}

// Find returns every flow matching spec, without removing them.
func (t *LinearTable) Find(spec Spec, strict bool) []*Flow {
	var out []*Flow
	for _, f := range t.load() {
		hit := Overlaps(spec, f)
		if strict {
			hit = StrictMatches(spec, f)
		}
		if hit {
			out = append(out, f)
		}
	}
	return out
}

// Timeout removes every expired entry, returning each with its reason.
func (t *LinearTable) Timeout(now int64) []Expiration {
	t.mu.Lock()
	defer t.mu.Unlock()

	cur := t.load()
	next := make([]*Flow, 0, len(cur))
	var out []Expiration
	for _, f := range cur {
		if reason, expired := f.expired(now); expired {
			t.reclaim.Retire(f)
			out = append(out, Expiration{Flow: f, Reason: reason})
			continue
		}
		next = append(next, f)
	}
	if len(out) > 0 {
		t.snapshot.Store(&next)
	}
	return out
}

// Len returns the current number of entries.
func (t *LinearTable) Len() int { return len(t.load()) }
