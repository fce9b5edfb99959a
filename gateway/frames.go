package gateway

import "encoding/json"

// Op-codes of the swarm protocol. Every frame is a JSON envelope carrying
// an op-code, an optional event name and an optional data object.
const (
	opEvent           = 0
	opConnectionStart = 1
	opAuth            = 2
	opHeartbeat       = 3
)

type envelope struct {
	Op    int             `json:"op"`
	Event string          `json:"e,omitempty"`
	Data  json.RawMessage `json:"d,omitempty"`
}

type authPayload struct {
	Token string `json:"token"`
}

func (e *envelope) decodeData() (map[string]any, error) {
	if len(e.Data) == 0 {
		return map[string]any{}, nil
	}
	var data map[string]any
	if err := json.Unmarshal(e.Data, &data); err != nil {
		return nil, err
	}
	return data, nil
}
