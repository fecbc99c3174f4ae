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

package ofp

import "fmt"

// ErrorType is the high-level category of a protocol ERROR message.
type ErrorType uint16

// Error categories, per §7.
const (
	ErrorBadVersion ErrorType = iota
	ErrorBadType
	ErrorBadLength
	ErrorBadAction
	ErrorBufferUnknown
	ErrorFlowTableFull
	ErrorBadVendor
)

var errorTypeNames = map[ErrorType]string{
	ErrorBadVersion:    "BAD_VERSION",
	ErrorBadType:       "BAD_TYPE",
	ErrorBadLength:     "BAD_LENGTH",
	ErrorBadAction:     "BAD_ACTION",
	ErrorBufferUnknown: "BUFFER_UNKNOWN",
	ErrorFlowTableFull: "FLOW_TABLE_FULL",
	ErrorBadVendor:     "BAD_VENDOR",
}

func (t ErrorType) String() string {
	if s, ok := errorTypeNames[t]; ok {
		return s
	}
	return "ERROR_UNKNOWN"
}

// ProtocolError is returned by the control dispatch for any message
// that fails validation or whose handler rejects it; it is also the
// payload of an ERROR message sent back to the sender.
type ProtocolError struct {
	ErrType ErrorType
	Code    uint16
	Data    []byte
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("ofp: %s (code %d)", e.ErrType, e.Code)
}

// NewProtocolError builds a ProtocolError carrying the offending
// message bytes as Data, per §7's requirement that the sender can
// inspect what was rejected.
func NewProtocolError(t ErrorType, code uint16, offending []byte) *ProtocolError {
	data := make([]byte, len(offending))
	copy(data, offending)
	return &ProtocolError{ErrType: t, Code: code, Data: data}
}
