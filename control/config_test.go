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
	"testing"

	"github.com/ofswitch/ofswitch/ofp"
	"github.com/stretchr/testify/require"
)

func TestConfig_DefaultsToFragNormal(t *testing.T) {
	c := NewConfig(128)
	require.Equal(t, ofp.FragNormal, c.FragMode())
	require.False(t, c.SendFlowExpirations())
}

func TestConfig_SetCoercesUnknownFragModeToDrop(t *testing.T) {
	c := NewConfig(128)
	c.Set(0x7, 256)

	require.Equal(t, ofp.FragDrop, c.FragMode())
	flags, missSendLen := c.Get()
	require.EqualValues(t, 256, missSendLen)
	require.NotZero(t, flags)
}

func TestConfig_SendFlowExpirationsTracksFlag(t *testing.T) {
	c := NewConfig(0)
	c.Set(ofp.ConfigFlagSendFlowExp, 0)
	require.True(t, c.SendFlowExpirations())

	c.Set(0, 0)
	require.False(t, c.SendFlowExpirations())
}
