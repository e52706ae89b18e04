package transport

import (
	"encoding/json"

	"github.com/bytedance/sonic"

	"github.com/cartable-app/cartable/pkg/constants"
)

// Envelope is the upstream response wrapper carried by every JSON reply.
type Envelope struct {
	Code    constants.UpstreamCode `json:"code"`
	Token   string                 `json:"token,omitempty"`
	Message string                 `json:"message,omitempty"`
	Data    json.RawMessage        `json:"data,omitempty"`
}

// DecodeEnvelope parses raw into an envelope.
func DecodeEnvelope(raw []byte) (*Envelope, error) {
	var env Envelope
	if err := sonic.Unmarshal(raw, &env); err != nil {
		return nil, err
	}
	return &env, nil
}

// DecodeData unmarshals an envelope's data payload into out.
func DecodeData(data json.RawMessage, out interface{}) error {
	if len(data) == 0 {
		return nil
	}
	return sonic.Unmarshal(data, out)
}
