package cloudquery

import (
	"encoding/json"
	"time"
)

// Object is a Parse-style record as returned by cloud functions.
// Reserved fields are lifted out; every other field lands in Attributes.
// Records serialized with a nested "attributes" object are unwrapped too;
// a top-level field wins over a nested one of the same name, and
// "objectId" wins over "id".
type Object struct {
	ObjectID   string
	ClassName  string
	CreatedAt  time.Time
	UpdatedAt  time.Time
	Attributes map[string]any
}

// UnmarshalJSON implements json.Unmarshaler.
func (o *Object) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	o.Attributes = map[string]any{}
	var nested map[string]any
	for name, raw := range fields {
		var err error
		switch name {
		case "objectId":
			err = json.Unmarshal(raw, &o.ObjectID)
		case "id":
			if _, ok := fields["objectId"]; !ok {
				err = json.Unmarshal(raw, &o.ObjectID)
			}
		case "className":
			err = json.Unmarshal(raw, &o.ClassName)
		case "createdAt":
			o.CreatedAt, err = parseTime(raw)
		case "updatedAt":
			o.UpdatedAt, err = parseTime(raw)
		case "attributes":
			err = json.Unmarshal(raw, &nested)
		default:
			var v any
			if err = json.Unmarshal(raw, &v); err == nil {
				o.Attributes[name] = v
			}
		}
		if err != nil {
			return err
		}
	}

	for k, v := range nested {
		if _, ok := o.Attributes[k]; !ok {
			o.Attributes[k] = v
		}
	}
	return nil
}

// MarshalJSON writes the record back in flat Parse form.
func (o Object) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(o.Attributes)+4) //nolint:mnd // Reserved fields.
	for k, v := range o.Attributes {
		out[k] = v
	}
	if o.ObjectID != "" {
		out["objectId"] = o.ObjectID
	}
	if o.ClassName != "" {
		out["className"] = o.ClassName
	}
	if !o.CreatedAt.IsZero() {
		out["createdAt"] = o.CreatedAt.Format(time.RFC3339Nano)
	}
	if !o.UpdatedAt.IsZero() {
		out["updatedAt"] = o.UpdatedAt.Format(time.RFC3339Nano)
	}
	return json.Marshal(out)
}

// parseTime accepts an ISO string or a Parse date object {"__type":"Date","iso":"..."}.
func parseTime(raw json.RawMessage) (time.Time, error) {
	if isNull(raw) {
		return time.Time{}, nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		var date struct {
			ISO string `json:"iso"`
		}
		if dateErr := json.Unmarshal(raw, &date); dateErr != nil {
			return time.Time{}, err
		}
		s = date.ISO
	}
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}
