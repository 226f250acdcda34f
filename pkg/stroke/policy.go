package stroke

import (
	"strings"

	"github.com/matzehuels/chromascribe/pkg/errors"
)

// Policy selects which kind of geometry the brush lays down.
type Policy int

const (
	// Ink lays a thick permanent ribbon between consecutive anchors.
	Ink Policy = iota
	// Smoke emits short-lived particles that fade out on their own.
	Smoke
	// String extends a thin permanent polyline.
	String
)

var policyNames = [...]string{Ink: "ink", Smoke: "smoke", String: "string"}

// Policies lists every policy in cycle order.
func Policies() []Policy { return []Policy{Ink, Smoke, String} }

func (p Policy) String() string {
	if p < 0 || int(p) >= len(policyNames) {
		return "unknown"
	}
	return policyNames[p]
}

// Next returns the policy after p in the cycle ink, smoke, string.
func (p Policy) Next() Policy {
	return (p + 1) % Policy(len(policyNames))
}

// Permanent reports whether the policy's geometry lives until a clear.
func (p Policy) Permanent() bool { return p != Smoke }

// ParsePolicy parses a policy name, case-insensitively.
func ParsePolicy(s string) (Policy, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for i, n := range policyNames {
		if n == name {
			return Policy(i), nil
		}
	}
	return Ink, errors.New(errors.ErrCodeInvalidBrush, "unknown brush %q (want ink, smoke or string)", s)
}

// MarshalText implements encoding.TextMarshaler.
func (p Policy) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Policy) UnmarshalText(b []byte) error {
	v, err := ParsePolicy(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}
