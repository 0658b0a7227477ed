package scoring

import (
	"fmt"

	"github.com/lucasnoah/changegate/internal/config"
)

// Decision is the pipeline's verdict on a change.
type Decision int

const (
	AutoApprove Decision = iota
	NeedsReview
	Reject
)

func (d Decision) String() string {
	switch d {
	case AutoApprove:
		return "auto_approve"
	case NeedsReview:
		return "needs_review"
	case Reject:
		return "reject"
	default:
		return fmt.Sprintf("decision(%d)", int(d))
	}
}

func (d Decision) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Decision) UnmarshalText(text []byte) error {
	switch string(text) {
	case "auto_approve":
		*d = AutoApprove
	case "needs_review":
		*d = NeedsReview
	case "reject":
		*d = Reject
	default:
		return fmt.Errorf("unknown decision %q", text)
	}
	return nil
}

// Verdict pairs a decision with the reasons that produced it.
type Verdict struct {
	Decision Decision `json:"decision"`
	Reasons  []string `json:"reasons"`
}

// Decide applies the gate, risk, and quality rules in fixed precedence.
// Gate failures always reject. Risk is checked before quality: a risky
// change never auto-approves on score alone. Quality thresholds are
// inclusive on the passing side, risk thresholds inclusive on the failing
// side.
func Decide(quality, risk float64, gateFailures []string, sc config.Scoring) Verdict {
	if len(gateFailures) > 0 {
		return Verdict{Decision: Reject, Reasons: gateFailures}
	}
	if risk >= sc.RiskReject {
		return Verdict{
			Decision: Reject,
			Reasons:  []string{fmt.Sprintf("risk score %.3f exceeds rejection threshold %.2f", risk, sc.RiskReject)},
		}
	}
	if risk >= sc.RiskReview {
		return Verdict{
			Decision: NeedsReview,
			Reasons:  []string{fmt.Sprintf("risk score %.3f requires human review (threshold %.2f)", risk, sc.RiskReview)},
		}
	}
	if quality < sc.QualityReview {
		return Verdict{
			Decision: Reject,
			Reasons:  []string{fmt.Sprintf("quality score %.1f below review threshold %.1f", quality, sc.QualityReview)},
		}
	}
	if quality < sc.QualityApprove {
		return Verdict{
			Decision: NeedsReview,
			Reasons:  []string{fmt.Sprintf("quality score %.1f below auto-approve threshold %.1f", quality, sc.QualityApprove)},
		}
	}
	return Verdict{
		Decision: AutoApprove,
		Reasons:  []string{fmt.Sprintf("quality %.1f and risk %.3f within automatic approval bounds", quality, risk)},
	}
}
