package protocol

import "encoding/json"

// MarshalJSON flattens Payload's fields alongside Type into one JSON object,
// matching spec §6's canonical outbound shapes (e.g.
// {"type":"execution_progress","execution_id":...}).
func (e *OutboundEvent) MarshalJSON() ([]byte, error) {
	var fields map[string]any
	if e.Payload != nil {
		raw, err := json.Marshal(e.Payload)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(raw, &fields); err != nil {
			return nil, err
		}
	}
	if fields == nil {
		fields = make(map[string]any, 1)
	}
	fields["type"] = e.Type
	return json.Marshal(fields)
}
