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

package action

import (
	"errors"
	"fmt"

	"github.com/ofswitch/ofswitch/ofp"
)

// ErrLoop is returned by Validate when a program would forward a
// packet back into the table or nowhere at all.
var ErrLoop = errors.New("action: program would loop or discard through TABLE/NONE")

// Validate rejects a program containing an Output whose target is
// TABLE, NONE, or the ingress port of the flow it would be attached
// to, per the §4.7 insert-time loop-prevention rule.
func Validate(prog Program, ingressPort uint16) error {
	for _, a := range prog {
		o, ok := a.(Output)
		if !ok {
			continue
		}
		if o.Port == ofp.PortTable || o.Port == ofp.PortNone || o.Port == ingressPort {
			return fmt.Errorf("%w: output to port %d", ErrLoop, o.Port)
		}
	}
	return nil
}
