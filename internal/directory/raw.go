package directory

import "encoding/json"

// rawJSON lets singleflight share one decoded payload between callers that
// each decode into their own destination.
type rawJSON []byte

func (r *rawJSON) UnmarshalJSON(data []byte) error {
	*r = append((*r)[:0], data...)
	return nil
}

func (r rawJSON) decode(dest any) error {
	return json.Unmarshal(r, dest)
}
