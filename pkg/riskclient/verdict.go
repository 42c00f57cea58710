package riskclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Verdict is the binary risk classification returned by the predict endpoint.
// The raw JSON value received is kept so it can be echoed back to explain.
type Verdict struct {
	HighRisk bool
	raw      json.RawMessage
}

func NewVerdict(highRisk bool) Verdict {
	return Verdict{HighRisk: highRisk}
}

func (v Verdict) Label() string {
	if v.HighRisk {
		return "High Risk"
	}
	return "Low Risk"
}

func (v Verdict) MarshalJSON() ([]byte, error) {
	if len(v.raw) > 0 {
		return v.raw, nil
	}
	return json.Marshal(v.HighRisk)
}

// UnmarshalJSON accepts booleans, numbers (non-zero is high risk) and the
// strings "true", "false", "1", "0", "high" and "low".
func (v *Verdict) UnmarshalJSON(data []byte) error {
	raw := bytes.TrimSpace(data)

	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		v.set(b, raw)
		return nil
	}

	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		v.set(n != 0, raw)
		return nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "true", "1", "high", "high risk":
			v.set(true, raw)
			return nil
		case "false", "0", "low", "low risk":
			v.set(false, raw)
			return nil
		}
	}

	return fmt.Errorf("prediction is not boolean-like: %s", raw)
}

func (v *Verdict) set(highRisk bool, raw []byte) {
	v.HighRisk = highRisk
	v.raw = append(json.RawMessage(nil), raw...)
}
