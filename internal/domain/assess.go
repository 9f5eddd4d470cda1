package domain

import (
    "fmt"
    "math"
)

// Tunables for the store-proxy revenue estimate. Both are assumptions, not
// values derived from data; calibrate here without touching decision logic.
const (
    // ConversionRate is the assumed fraction of lifetime downloads that
    // convert to a paid transaction.
    ConversionRate = 0.05
    // RevenueWindowMonths is the assumed revenue-recognition window the
    // lifetime figure is spread over.
    RevenueWindowMonths = 3.0
)

// Confidence constants per assessment branch.
const (
    confNoEvidence       = 0.2
    confVerifiedMatch    = 0.95
    confVerifiedNearLow  = 0.85
    confVerifiedNearHigh = 0.80
    confVerifiedMismatch = 0.90
    confProxyBelow       = 0.7
    confProxyAbove       = 0.8
    confProxyBallpark    = 0.5
)

// Verified-revenue ratio bands (claimed / verified).
const (
    ratioMatchLow  = 0.95
    ratioMatchHigh = 1.05
    ratioNearLow   = 0.80
    ratioNearHigh  = 1.20
)

// AssessmentResult is the outcome of a plausibility check. Notes are a
// user-facing explanation generated from the same branch that produced the
// verdict, always populated.
type AssessmentResult struct {
    Verdict              Verdict
    Confidence           float64
    MaxPlausibleEstimate *float64
    Notes                string
}

// EvidenceKind tags the single evidence case that drives an assessment.
type EvidenceKind int

const (
    EvidenceNone EvidenceKind = iota
    EvidenceVerified
    EvidenceStoreProxy
    EvidenceInsufficient
)

// Evidence is the tagged classification of the available metric set. Exactly
// one case applies; branch priority lives in ClassifyEvidence, the verdict
// mapping in AssessClaim's switch.
type Evidence struct {
    Kind            EvidenceKind
    VerifiedRevenue float64 // EvidenceVerified
    Downloads       float64 // EvidenceStoreProxy
    Price           float64 // EvidenceStoreProxy
}

// ClassifyEvidence reduces a metric set to the evidence case, in priority
// order: verified 30-day revenue first, then a usable downloads/price pair
// (android before ios), else insufficient. Zero and negative reference values
// never count as evidence; a zero ceiling is not actionable. Metrics
// accumulate and arrive ordered by capture time, so within each key the last
// row wins: re-runs always assess against the newest figure.
func ClassifyEvidence(metrics []VerificationMetric) Evidence {
    if len(metrics) == 0 {
        return Evidence{Kind: EvidenceNone}
    }

    byKey := make(map[string]float64, len(metrics))
    for _, m := range metrics {
        byKey[m.Source+":"+m.MetricName] = m.Value
    }

    var verified float64
    for _, m := range metrics {
        if m.MetricName == MetricRevenue30d && m.IsVerified && m.Value > 0 {
            verified = m.Value
        }
    }
    if verified > 0 {
        return Evidence{Kind: EvidenceVerified, VerifiedRevenue: verified}
    }

    downloads := firstMetric(byKey, MetricDownloadsLifetime)
    price := firstMetric(byKey, MetricPriceUSD)
    if downloads > 0 && price > 0 {
        return Evidence{Kind: EvidenceStoreProxy, Downloads: downloads, Price: price}
    }

    return Evidence{Kind: EvidenceInsufficient}
}

// firstMetric returns the first positive value for name across the platform
// priority order.
func firstMetric(byKey map[string]float64, name string) float64 {
    for _, src := range []string{MetricSourceAndroid, MetricSourceIOS} {
        if v, ok := byKey[src+":"+name]; ok && v > 0 {
            return v
        }
    }
    return 0
}

// ValidateClaimedValue rejects non-finite and non-positive claimed values
// before assessment is invoked.
func ValidateClaimedValue(v float64) error {
    if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
        return fmt.Errorf("%w: claimed value must be a positive finite number", ErrValidation)
    }
    return nil
}

// AssessClaim maps a validated claimed monthly value plus the product's
// current metric set to a verdict, a confidence and a plausible-estimate
// ceiling. Pure and deterministic; callers persist the result.
func AssessClaim(claimed float64, metrics []VerificationMetric) AssessmentResult {
    ev := ClassifyEvidence(metrics)

    switch ev.Kind {
    case EvidenceVerified:
        return assessAgainstVerified(claimed, ev.VerifiedRevenue)
    case EvidenceStoreProxy:
        return assessAgainstStoreProxy(claimed, ev.Downloads, ev.Price)
    default:
        return AssessmentResult{
            Verdict:    VerdictNoEvidence,
            Confidence: confNoEvidence,
            Notes:      "No app store or payment metrics found for this product yet. Run enrichment workers to populate data.",
        }
    }
}

func assessAgainstVerified(claimed, verified float64) AssessmentResult {
    ratio := claimed / verified
    res := AssessmentResult{MaxPlausibleEstimate: &verified}

    switch {
    case ratio >= ratioMatchLow && ratio <= ratioMatchHigh:
        res.Verdict = VerdictVerified
        res.Confidence = confVerifiedMatch
        res.Notes = fmt.Sprintf("Claimed revenue ($%.0f) matches verified 30-day revenue ($%.0f).", claimed, verified)
    case ratio >= ratioNearLow && ratio < ratioMatchLow:
        res.Verdict = VerdictPlausible
        res.Confidence = confVerifiedNearLow
        res.Notes = fmt.Sprintf("Claimed revenue ($%.0f) is slightly below verified 30-day revenue ($%.0f), which is plausible.", claimed, verified)
    case ratio > ratioMatchHigh && ratio <= ratioNearHigh:
        res.Verdict = VerdictPlausible
        res.Confidence = confVerifiedNearHigh
        res.Notes = fmt.Sprintf("Claimed revenue ($%.0f) is slightly above verified 30-day revenue ($%.0f), which could be plausible with additional revenue streams.", claimed, verified)
    default:
        res.Verdict = VerdictUnlikely
        res.Confidence = confVerifiedMismatch
        res.Notes = fmt.Sprintf("Claimed revenue ($%.0f) significantly differs from verified 30-day revenue ($%.0f); ratio %.2f.", claimed, verified, ratio)
    }
    return res
}

func assessAgainstStoreProxy(claimed, downloads, price float64) AssessmentResult {
    // Deliberately conservative upper bound for monthly revenue.
    est := downloads * ConversionRate * price / RevenueWindowMonths
    res := AssessmentResult{MaxPlausibleEstimate: &est}

    switch {
    case claimed <= est*0.5:
        res.Verdict = VerdictPlausible
        res.Confidence = confProxyBelow
        res.Notes = fmt.Sprintf("Based on ~%.0f lifetime downloads at ~$%.2f, a rough upper bound for monthly revenue is about $%.0f. The claim ($%.0f) is below that, so it seems plausible.", downloads, price, est, claimed)
    case claimed > est*2:
        res.Verdict = VerdictUnlikely
        res.Confidence = confProxyAbove
        res.Notes = fmt.Sprintf("Based on ~%.0f lifetime downloads at ~$%.2f, a rough upper bound for monthly revenue is about $%.0f. The claim ($%.0f) is far above that, so it looks unlikely.", downloads, price, est, claimed)
    default:
        res.Verdict = VerdictPlausible
        res.Confidence = confProxyBallpark
        res.Notes = fmt.Sprintf("The claim ($%.0f) is in the same ballpark as a rough estimate ($%.0f) based on downloads and price, but the data is noisy.", claimed, est)
    }
    return res
}
