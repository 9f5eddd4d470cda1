package domain

// Level thresholds. A score is inclusive of the lower bound of its bucket:
// 0-20 low, 21-40 medium, 41-70 high, 71-100 critical.
const (
    levelLowMax    = 20
    levelMediumMax = 40
    levelHighMax   = 70
)

// CalculateRiskScore maps a site's full signal set to a bounded score and a
// categorical level. The score is the plain sum of severities clamped to
// [0,100]: no weighting by dimension, source or recency. Monotone,
// order-independent, trivially explainable. Pure; persistence is the caller's
// responsibility.
func CalculateRiskScore(signals []RiskSignal) (int, RiskLevel) {
    raw := 0
    for _, s := range signals {
        raw += s.Severity
    }
    score := raw
    if score < 0 {
        score = 0
    }
    if score > 100 {
        score = 100
    }
    return score, LevelForScore(score)
}

// LevelForScore buckets a 0-100 score into a risk level.
func LevelForScore(score int) RiskLevel {
    switch {
    case score > levelHighMax:
        return LevelCritical
    case score > levelMediumMax:
        return LevelHigh
    case score > levelLowMax:
        return LevelMedium
    default:
        return LevelLow
    }
}
