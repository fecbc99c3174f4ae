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

import "github.com/ofswitch/ofswitch/ofp"

type handlerFunc func(s *State, sender Sender, xid uint32, body []byte) error

// handlers maps each message type to its handler, keyed by the typed
// ofp.Type rather than the raw numeric code it wraps, so an unhandled
// or unknown type falls out of the map lookup instead of indexing a
// fixed-size array.
var handlers = map[ofp.Type]handlerFunc{
	ofp.TypeHello:            handleHello,
	ofp.TypeEchoRequest:      handleEchoRequest,
	ofp.TypeEchoReply:        handleEchoReply,
	ofp.TypeFeaturesRequest:  handleFeaturesRequest,
	ofp.TypeGetConfigRequest: handleGetConfig,
	ofp.TypeSetConfig:        handleSetConfig,
	ofp.TypePacketOut:        handlePacketOut,
	ofp.TypeFlowMod:          handleFlowMod,
	ofp.TypePortMod:          handlePortMod,
	ofp.TypeStatsRequest:     handleStatsRequest,
	ofp.TypeVendor:           handleVendor,
}

// Dispatch validates data's header and routes its body to the
// matching handler, sending a typed ERROR back to sender on any
// validation or handler failure. Dispatch itself never returns an
// error for a well-formed-but-rejected message: the ERROR reply is
// the protocol-level report; the error return is reserved for
// transport-level failures (sender.Send itself failing).
func Dispatch(s *State, sender Sender, data []byte) error {
	hdr, err := ofp.UnmarshalHeader(data)
	if err != nil {
		return sender.Send(ofp.TypeError, 0, ofp.ErrorBody{ErrType: ofp.ErrorBadLength, Data: data})
	}

	if perr := ofp.ValidateHeader(hdr, len(data)); perr != nil {
		return sender.Send(ofp.TypeError, hdr.Xid, ofp.ErrorBody{ErrType: perr.ErrType, Code: perr.Code, Data: perr.Data})
	}

	body := data[ofp.HeaderLen:hdr.Length]

	h, ok := handlers[hdr.Type]
	if !ok {
		return sender.Send(ofp.TypeError, hdr.Xid, ofp.ErrorBody{ErrType: ofp.ErrorBadType, Data: data})
	}

	if perr := h(s, sender, hdr.Xid, body); perr != nil {
		if pe, ok := perr.(*ofp.ProtocolError); ok {
			return sender.Send(ofp.TypeError, hdr.Xid, ofp.ErrorBody{ErrType: pe.ErrType, Code: pe.Code, Data: pe.Data})
		}
		s.Log.Error().Err(perr).Uint8("type", uint8(hdr.Type)).Msg("control: handler failed")
		return perr
	}
	return nil
}
