package academics

import (
	"fmt"
	"strings"
)

// MarkPolicy decides what happens to out-of-range marks and percentages.
// The source applied no bounds at all, which is MarkPolicyOff.
type MarkPolicy string

const (
	MarkPolicyOff    MarkPolicy = "off"
	MarkPolicyClamp  MarkPolicy = "clamp"
	MarkPolicyReject MarkPolicy = "reject"
)

// ParseMarkPolicy parses a configured policy name; empty means off.
func ParseMarkPolicy(s string) (MarkPolicy, error) {
	switch p := MarkPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "", MarkPolicyOff:
		return MarkPolicyOff, nil
	case MarkPolicyClamp, MarkPolicyReject:
		return p, nil
	default:
		return "", fmt.Errorf("unknown mark policy %q", s)
	}
}

// OutOfRangeError reports a value rejected by MarkPolicyReject.
type OutOfRangeError struct {
	Field string
	Value float64
	Max   float64
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("%s must be between 0 and %g (got %g)", e.Field, e.Max, e.Value)
}

// Apply bounds v to [0, max] according to the policy.
func (p MarkPolicy) Apply(field string, v, max float64) (float64, error) {
	if v >= 0 && v <= max {
		return v, nil
	}
	switch p {
	case MarkPolicyClamp:
		if v < 0 {
			return 0, nil
		}
		return max, nil
	case MarkPolicyReject:
		return v, &OutOfRangeError{Field: field, Value: v, Max: max}
	default:
		return v, nil
	}
}

// ApplyPtr is Apply for optional marks; nil stays nil.
func (p MarkPolicy) ApplyPtr(field string, v *float64, max float64) (*float64, error) {
	if v == nil {
		return nil, nil
	}
	out, err := p.Apply(field, *v, max)
	if err != nil {
		return nil, err
	}
	return &out, nil
}
