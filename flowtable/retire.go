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

import "sync"

// Reclaimer implements the grace-period discipline §5 requires: a
// writer that unlinks a Flow from a table must not treat it as gone
// until every reader that could have observed the old pointer has
// left its lookup. The Go runtime's garbage collector already makes
// this safe for memory reuse — nothing is freed until unreachable —
// but the chain still needs an explicit "this flow is retired" signal
// for callers (STATS_FLOW enumeration, test assertions on removal
// counts) that must not see a flow both before and after its epoch.
//
// Readers call Enter/Exit around a single lookup; writers call Retire
// to hand off a removed Flow, and the poll loop calls Quiesce once per
// iteration to drain anything retired before the oldest still-active
// reader's epoch.
type Reclaimer struct {
	mu      sync.Mutex
	epoch   uint64
	active  map[uint64]int
	pending map[uint64][]*Flow
}

// NewReclaimer builds an empty Reclaimer at epoch 0.
func NewReclaimer() *Reclaimer {
	return &Reclaimer{
		active:  make(map[uint64]int),
		pending: make(map[uint64][]*Flow),
	}
}

// Enter marks the start of a read and returns the epoch it belongs to;
// pass the result to Exit when the read completes.
func (r *Reclaimer) Enter() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.active[r.epoch]++
	return r.epoch
}

// Exit marks the end of a read started at epoch e.
func (r *Reclaimer) Exit(e uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.active[e]--
	if r.active[e] == 0 {
		delete(r.active, e)
	}
}

// Retire hands f to the reclaimer for deferred removal bookkeeping.
func (r *Reclaimer) Retire(f *Flow) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending[r.epoch] = append(r.pending[r.epoch], f)
}

// Quiesce advances the epoch and returns every Flow retired in an
// epoch with no remaining active readers. Called from the poll loop's
// quiescence point.
func (r *Reclaimer) Quiesce() []*Flow {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur := r.epoch
	r.epoch++

	// Only epochs older than both the current one and the oldest
	// still-active reader are safe to drain.
	oldest := cur
	for e := range r.active {
		if e < oldest {
			oldest = e
		}
	}

	var drained []*Flow
	for e, flows := range r.pending {
		if e >= oldest {
			continue // a reader may still hold a flow from this epoch; wait
		}
		drained = append(drained, flows...)
		delete(r.pending, e)
	}
	return drained
}
