package segment

import (
	"encoding/json"
	"fmt"
)

// The wire shape is {start, end, detector, score, attrs} with attrs as an
// open string-keyed object. The typed attribute fields claim their keys;
// everything else round-trips through Extra.
const (
	attrKeyEnabled         = "enabled"
	attrKeyName            = "name"
	attrKeyPrimaryDetector = "primary_detector"
)

// MarshalJSON implements json.Marshaler.
func (s Segment) MarshalJSON() ([]byte, error) {
	attrs := make(map[string]any, len(s.Attrs.Extra)+3)
	for k, v := range s.Attrs.Extra {
		attrs[k] = v
	}
	if s.Attrs.Enabled != nil {
		attrs[attrKeyEnabled] = *s.Attrs.Enabled
	}
	if s.Attrs.Name != "" {
		attrs[attrKeyName] = s.Attrs.Name
	}
	if s.Attrs.PrimaryDetector != "" {
		attrs[attrKeyPrimaryDetector] = s.Attrs.PrimaryDetector
	}

	return json.Marshal(struct {
		Start    float64        `json:"start"`
		End      float64        `json:"end"`
		Detector string         `json:"detector"`
		Score    float64        `json:"score"`
		Attrs    map[string]any `json:"attrs,omitempty"`
	}{s.Start, s.End, s.Detector, s.Score, attrs})
}

// UnmarshalJSON implements json.Unmarshaler. Payloads missing the required
// start, end or detector fields are rejected here so the pipeline never sees
// malformed segments.
func (s *Segment) UnmarshalJSON(data []byte) error {
	var raw struct {
		Start    *float64       `json:"start"`
		End      *float64       `json:"end"`
		Detector *string        `json:"detector"`
		Score    float64        `json:"score"`
		Attrs    map[string]any `json:"attrs"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Start == nil || raw.End == nil {
		return fmt.Errorf("segment is missing required start/end fields")
	}
	if raw.Detector == nil {
		return fmt.Errorf("segment is missing required detector field")
	}

	out := Segment{
		Start:    *raw.Start,
		End:      *raw.End,
		Detector: *raw.Detector,
		Score:    raw.Score,
	}
	for k, v := range raw.Attrs {
		switch k {
		case attrKeyEnabled:
			if b, ok := v.(bool); ok {
				out.Attrs.Enabled = &b
			}
		case attrKeyName:
			if str, ok := v.(string); ok {
				out.Attrs.Name = str
			}
		case attrKeyPrimaryDetector:
			if str, ok := v.(string); ok {
				out.Attrs.PrimaryDetector = str
			}
		default:
			if out.Attrs.Extra == nil {
				out.Attrs.Extra = make(map[string]string)
			}
			out.Attrs.Extra[k] = fmt.Sprint(v)
		}
	}

	*s = out
	return nil
}
