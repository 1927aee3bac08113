// Package payload carries the opaque, schema-less data attached to a job
// or execution. jobengine never interprets payload contents — it is
// handed verbatim to whatever JobLogic the caller registers.
package payload

import "encoding/json"

// Payload is an opaque byte blob tagged with a content type. The content
// type is advisory; jobengine does not validate it against Data.
type Payload struct {
	ContentType string `json:"content_type"`
	Data        []byte `json:"data"`
}

// Empty reports whether p carries no data.
func (p Payload) Empty() bool {
	return len(p.Data) == 0
}

// FromJSON marshals v as JSON and wraps the result with content type
// "application/json".
func FromJSON(v any) (Payload, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return Payload{}, err
	}
	return Payload{ContentType: "application/json", Data: data}, nil
}

// AsJSON unmarshals p.Data into v. It does not check p.ContentType,
// since callers that know what they stored know what they expect back.
func (p Payload) AsJSON(v any) error {
	if p.Empty() {
		return nil
	}
	return json.Unmarshal(p.Data, v)
}

// String returns the payload data as a string, for logging and display.
func (p Payload) String() string {
	return string(p.Data)
}
