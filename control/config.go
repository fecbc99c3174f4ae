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

package control

import (
	"sync"

	"github.com/ofswitch/ofswitch/ofp"
)

// Config is the datapath-wide configuration GET_CONFIG/SET_CONFIG
// read and write: the flags word (carrying SEND_FLOW_EXP and the frag
// sub-field) and miss_send_len.
type Config struct {
	mu          sync.RWMutex
	flags       uint16
	missSendLen uint16
}

// NewConfig builds a Config defaulting to FragNormal and the given
// miss_send_len.
func NewConfig(missSendLen uint16) *Config {
	return &Config{missSendLen: missSendLen}
}

// Get returns the current flags and miss_send_len.
func (c *Config) Get() (flags, missSendLen uint16) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.flags, c.missSendLen
}

// Set overwrites flags and miss_send_len, coercing any unrecognized
// frag sub-field value to DROP per §6.
func (c *Config) Set(flags, missSendLen uint16) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.flags = ofp.WithFragMode(flags, ofp.FragModeOf(flags))
	c.missSendLen = missSendLen
}

// FragMode returns the current frag sub-field.
func (c *Config) FragMode() ofp.FragMode {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return ofp.FragModeOf(c.flags)
}

// SendFlowExpirations reports whether FLOW_EXPIRED notifications are
// enabled.
func (c *Config) SendFlowExpirations() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.flags&ofp.ConfigFlagSendFlowExp != 0
}
