/*
Package factory provides JSON to Go policy conversion.

PURPOSE:
  Converts the stored JSON policy configuration into a leave.Policy. This
  enables policy changes without code changes - HR admins edit the policy
  through the API, the config is persisted as JSON, and the factory builds
  the proper Go struct on load.

JSON SCHEMA:
  {
    "total_annual": 24,
    "rate_per_month": 2,
    "probation_rate_per_month": 1,
    "strategy": "ACCRUAL",
    "applicable_from": "2025-04",
    "type_caps": {"paid": 12, "casual": 6, "sick": 6}
  }

DEFAULTS AND DEGRADATION:
  Unknown strategy -> ACCRUAL. Negative or non-finite numbers -> 0.
  Missing applicable_from -> no fiscal anchor (flat grants, no proration).
  The factory never rejects a config the calculator can degrade safely.

SEE ALSO:
  - ../leave/policy.go: Policy type definition
  - ../store/sqlite: Persists the raw config JSON
*/
package factory

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/warp/leave-engine/leave"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// PolicyJSON is the JSON representation of the company leave policy.
type PolicyJSON struct {
	TotalAnnual           float64  `json:"total_annual"`
	RatePerMonth          float64  `json:"rate_per_month"`
	ProbationRatePerMonth float64  `json:"probation_rate_per_month"`
	Strategy              string   `json:"strategy"`
	ApplicableFrom        string   `json:"applicable_from,omitempty"`
	TypeCaps              CapsJSON `json:"type_caps"`
}

type CapsJSON struct {
	Paid   float64 `json:"paid"`
	Casual float64 `json:"casual"`
	Sick   float64 `json:"sick"`
}

// =============================================================================
// CONVERSION
// =============================================================================

// ParsePolicy converts a JSON string into a leave.Policy.
func ParsePolicy(jsonStr string) (leave.Policy, error) {
	var pj PolicyJSON
	if err := json.Unmarshal([]byte(jsonStr), &pj); err != nil {
		return leave.Policy{}, fmt.Errorf("parsing policy config: %w", err)
	}
	return FromJSON(pj), nil
}

// FromJSON builds a leave.Policy from its JSON form, applying defaults.
func FromJSON(pj PolicyJSON) leave.Policy {
	return leave.Policy{
		TotalAnnual:           leave.ClampZero(leave.FromFloat(pj.TotalAnnual)),
		RatePerMonth:          leave.ClampZero(leave.FromFloat(pj.RatePerMonth)),
		ProbationRatePerMonth: leave.ClampZero(leave.FromFloat(pj.ProbationRatePerMonth)),
		Strategy:              leave.ParseStrategy(pj.Strategy),
		ApplicableFrom:        leave.ParseMonth(pj.ApplicableFrom),
		Caps: leave.TypeCaps{
			Paid:   leave.ClampZero(leave.FromFloat(pj.TypeCaps.Paid)),
			Casual: leave.ClampZero(leave.FromFloat(pj.TypeCaps.Casual)),
			Sick:   leave.ClampZero(leave.FromFloat(pj.TypeCaps.Sick)),
		},
	}
}

// ToJSON converts a leave.Policy back to its JSON form.
func ToJSON(p leave.Policy) PolicyJSON {
	pj := PolicyJSON{
		TotalAnnual:           floatOf(p.TotalAnnual),
		RatePerMonth:          floatOf(p.RatePerMonth),
		ProbationRatePerMonth: floatOf(p.ProbationRatePerMonth),
		Strategy:              string(p.Strategy),
		TypeCaps: CapsJSON{
			Paid:   floatOf(p.Caps.Paid),
			Casual: floatOf(p.Caps.Casual),
			Sick:   floatOf(p.Caps.Sick),
		},
	}
	if p.ApplicableFrom != nil {
		pj.ApplicableFrom = p.ApplicableFrom.String()
	}
	return pj
}

// Encode serializes a policy for storage.
func Encode(p leave.Policy) (string, error) {
	b, err := json.Marshal(ToJSON(p))
	if err != nil {
		return "", fmt.Errorf("encoding policy config: %w", err)
	}
	return string(b), nil
}

func floatOf(d decimal.Decimal) float64 {
	v, _ := d.Float64()
	return v
}
