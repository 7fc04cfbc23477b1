package indicators

import (
	"bytes"
	"encoding/json"
	"math"
)

// Num is a float that may be missing. Missing values marshal to JSON null.
type Num struct {
	Value float64
	Valid bool
}

// Missing is the zero Num
var Missing = Num{}

// Some wraps v as a valid Num; non-finite values stay missing
func Some(v float64) Num {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Missing
	}
	return Num{Value: v, Valid: true}
}

// Get returns the value and whether it is present
func (n Num) Get() (float64, bool) {
	return n.Value, n.Valid
}

// Or returns the value, or def when missing
func (n Num) Or(def float64) float64 {
	if !n.Valid {
		return def
	}
	return n.Value
}

// Ptr returns a pointer to a copy of the value, nil when missing
func (n Num) Ptr() *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Value
	return &v
}

// FromPtr converts an optional float into a Num
func FromPtr(p *float64) Num {
	if p == nil {
		return Missing
	}
	return Some(*p)
}

func (n Num) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Value)
}

func (n *Num) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*n = Missing
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*n = Some(v)
	return nil
}
