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

// Spec is a match template used for an admin delete or MODIFY lookup:
// a key plus the wildcards describing which fields are don't-care.
// Priority is only consulted by StrictMatches: two flows can share an
// identical (Key, Wildcards) template at different priorities, and
// only a strict match disambiguates between them.
type Spec struct {
	Key       flowkey.Key
	Wildcards flowkey.Wildcards
	Priority  uint16
}

// matches implements the §4.5 predicate: does key a satisfy template
// b under fieldWildcards (exact-field don't-cares) and the given IP
// prefix masks? The `&` in `(a.F ^ b.F) & mask` must stay parenthesized
// exactly like this: Go binds `&` tighter than `^`, so dropping the
// parens would silently compute `a.F ^ (b.F & mask)` instead.
func matches(a, b flowkey.Key, fieldWildcards flowkey.Wildcards, srcMask, dstMask uint32) bool {
	if fieldWildcards&flowkey.FwInPort == 0 && a.InPort != b.InPort {
		return false
	}
	if fieldWildcards&flowkey.FwDlVlan == 0 && a.DLVlan != b.DLVlan {
		return false
	}
	if fieldWildcards&flowkey.FwDlSrc == 0 && a.DLSrc != b.DLSrc {
		return false
	}
	if fieldWildcards&flowkey.FwDlDst == 0 && a.DLDst != b.DLDst {
		return false
	}
	if fieldWildcards&flowkey.FwDlType == 0 && a.DLType != b.DLType {
		return false
	}
	if fieldWildcards&flowkey.FwNwProto == 0 && a.NWProto != b.NWProto {
		return false
	}
	if fieldWildcards&flowkey.FwTpSrc == 0 && a.TPSrc != b.TPSrc {
		return false
	}
	if fieldWildcards&flowkey.FwTpDst == 0 && a.TPDst != b.TPDst {
		return false
	}

	if (a.NWSrc^b.NWSrc)&srcMask != 0 {
		return false
	}
	if (a.NWDst^b.NWDst)&dstMask != 0 {
		return false
	}
	return true
}

// Matches reports whether packet key a satisfies flow f's template,
// for the packet path.
func Matches(a flowkey.Key, f *Flow) bool {
	return matches(a, f.Key, f.Wildcards, f.Wildcards.NWSrcMask(), f.Wildcards.NWDstMask())
}

// Overlaps reports whether admin template a overlaps flow f's
// template, per §4.5: an exact field is skipped if *either* side
// wildcards it (OR of the field bits), while the IP comparison uses
// the intersection of the two prefix masks — AND of the bit patterns,
// which is the *wider* (more permissive) of the two prefix checks,
// not a function of the numeric prefix lengths.
func Overlaps(a Spec, f *Flow) bool {
	fieldWildcards := a.Wildcards | f.Wildcards
	srcMask := a.Wildcards.NWSrcMask() & f.Wildcards.NWSrcMask()
	dstMask := a.Wildcards.NWDstMask() & f.Wildcards.NWDstMask()
	return matches(a.Key, f.Key, fieldWildcards, srcMask, dstMask)
}

// StrictMatches reports whether template a exactly equals flow f's
// template: same key, same wildcards, and same priority, as strict
// DELETE/MODIFY require — two flows can otherwise share an identical
// (Key, Wildcards) template and coexist at different priorities (see
// linear_table.go's dedup key), so priority is the only thing that
// disambiguates them here.
func StrictMatches(a Spec, f *Flow) bool {
	return a.Wildcards == f.Wildcards && a.Key == f.Key && a.Priority == f.Priority
}
