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
	"encoding/binary"
	"hash/crc32"
	"sync"
	"sync/atomic"

	"github.com/ofswitch/ofswitch/flowkey"
)

// HashTable is a power-of-two bucket array addressed by a CRC32 hash
// of the full key, holding only exact-match flows (wildcards == 0).
// Each bucket is a single atomic pointer cell: no chaining on the hot
// path, matching §4.3. Readers (Lookup) never take a lock; writers
// (Insert/Delete/Timeout) serialize against each other with mu.
type HashTable struct {
	mu      sync.Mutex
	buckets []atomic.Pointer[Flow]
	mask    uint32
	table   *crc32.Table
	reclaim *Reclaimer
}

// NewHashTable builds a HashTable with 2^bits buckets, hashing with
// the given CRC32 polynomial.
func NewHashTable(bits uint, poly uint32, reclaim *Reclaimer) *HashTable {
	size := uint32(1) << bits
	return &HashTable{
		buckets: make([]atomic.Pointer[Flow], size),
		mask:    size - 1,
		table:   crc32.MakeTable(poly),
		reclaim: reclaim,
	}
}

// keyBytes is the fixed-size wire-independent encoding of a Key used
// only as the CRC32 input; it has no relation to any wire format.
const keyBytesLen = 2 + 2 + 6 + 6 + 2 + 4 + 4 + 1 + 2 + 2

func (t *HashTable) hash(k flowkey.Key) uint32 {
	var b [keyBytesLen]byte
	off := 0
	binary.BigEndian.PutUint16(b[off:off+2], k.InPort)
	off += 2
	binary.BigEndian.PutUint16(b[off:off+2], k.DLVlan)
	off += 2
	off += copy(b[off:], k.DLSrc[:])
	off += copy(b[off:], k.DLDst[:])
	binary.BigEndian.PutUint16(b[off:off+2], k.DLType)
	off += 2
	binary.BigEndian.PutUint32(b[off:off+4], k.NWSrc)
	off += 4
	binary.BigEndian.PutUint32(b[off:off+4], k.NWDst)
	off += 4
	b[off] = k.NWProto
	off++
	binary.BigEndian.PutUint16(b[off:off+2], k.TPSrc)
	off += 2
	binary.BigEndian.PutUint16(b[off:off+2], k.TPDst)
	return crc32.Checksum(b[:], t.table)
}

func (t *HashTable) bucket(k flowkey.Key) uint32 {
	return t.hash(k) & t.mask
}

// Lookup returns the flow in key's bucket if its key matches exactly.
// Lock-free.
func (t *HashTable) Lookup(k flowkey.Key) (*Flow, bool) {
	f := t.buckets[t.bucket(k)].Load()
	if f == nil || f.Key != k {
		return nil, false
	}
	return f, true
}

// Insert admits f if its wildcards are zero. On a bucket collision
// with a flow of the same key, it replaces atomically and retires the
// old entry; on collision with a different key, it reports failure so
// the caller tries the next table.
func (t *HashTable) Insert(f *Flow) bool {
	if f.Wildcards != 0 {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	idx := t.bucket(f.Key)
	old := t.buckets[idx].Load()
	if old != nil && old.Key != f.Key {
		return false
	}
	t.buckets[idx].Store(f)
	if old != nil {
		t.reclaim.Retire(old)
	}
	return true
}

// Delete removes entries matching spec. For an exact spec
// (wildcards == 0) it probes the single bucket directly; for a
// wildcarded admin spec it scans every bucket using the §4.5
// predicate (or strict equality). Returns the count removed.
func (t *HashTable) Delete(spec Spec, strict bool) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	if spec.Wildcards == 0 {
		idx := t.bucket(spec.Key)
		cur := t.buckets[idx].Load()
		if cur == nil || cur.Key != spec.Key {
			return 0
		}
		if strict && !StrictMatches(spec, cur) {
			return 0
		}
		t.buckets[idx].Store(nil)
		t.reclaim.Retire(cur)
		return 1
	}

	removed := 0
	for i := range t.buckets {
		cur := t.buckets[i].Load()
		if cur == nil {
			continue
		}
		hit := false
		if strict {
			hit = StrictMatches(spec, cur)
		} else {
			hit = Overlaps(spec, cur)
		}
		if hit {
			t.buckets[i].Store(nil)
			t.reclaim.Retire(cur)
			removed++
		}
	}
	return removed
}

// Find returns every flow matching spec, without removing them, for
// MODIFY/MODIFY_STRICT to replace their action lists in place.
func (t *HashTable) Find(spec Spec, strict bool) []*Flow {
	t.mu.Lock()
	defer t.mu.Unlock()

	if spec.Wildcards == 0 {
		cur := t.buckets[t.bucket(spec.Key)].Load()
		if cur == nil || cur.Key != spec.Key {
			return nil
		}
		if strict && !StrictMatches(spec, cur) {
			return nil
		}
		return []*Flow{cur}
	}

	var out []*Flow
	for i := range t.buckets {
		cur := t.buckets[i].Load()
		if cur == nil {
			continue
		}
		hit := Overlaps(spec, cur)
		if strict {
			hit = StrictMatches(spec, cur)
		}
		if hit {
			out = append(out, cur)
		}
	}
	return out
}

// Timeout removes every expired entry, returning each with its reason.
func (t *HashTable) Timeout(now int64) []Expiration {
	t.mu.Lock()
	defer t.mu.Unlock()

	var out []Expiration
	for i := range t.buckets {
		cur := t.buckets[i].Load()
		if cur == nil {
			continue
		}
		if reason, expired := cur.expired(now); expired {
			t.buckets[i].Store(nil)
			t.reclaim.Retire(cur)
			out = append(out, Expiration{Flow: cur, Reason: reason})
		}
	}
	return out
}

// Len returns the number of occupied buckets, for STATS_TABLE.
func (t *HashTable) Len() int {
	n := 0
	for i := range t.buckets {
		if t.buckets[i].Load() != nil {
			n++
		}
	}
	return n
}
