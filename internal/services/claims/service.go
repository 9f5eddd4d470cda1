package claims

import (
    "context"
    "errors"
    "fmt"

    "riskscope/internal/domain"
    "riskscope/internal/ports"
)

const (
    defaultCurrency  = "USD"
    defaultClaimType = "mrr"
)

// Service orchestrates a claim check: resolve product, create claim, fetch
// metrics, assess, persist assessment, mark the claim analyzed. Steps are
// strictly sequential; each is causally dependent on the previous one.
type Service struct {
    products    ports.ProductRepository
    claims      ports.ClaimRepository
    metrics     ports.MetricRepository
    assessments ports.AssessmentRepository
}

func New(products ports.ProductRepository, claims ports.ClaimRepository, metrics ports.MetricRepository, assessments ports.AssessmentRepository) *Service {
    return &Service{products: products, claims: claims, metrics: metrics, assessments: assessments}
}

type CheckInput struct {
    AppName        string
    PrimaryURL     string
    IOSAppID       string
    AndroidPackage string
    ClaimedValue   float64
    Currency       string
    ClaimType      string
    TimeframeText  string
    SourceURL      string
}

// Verification summarizes what kind of evidence backed the assessment.
type Verification struct {
    HasVerifiedRevenue bool
    HasStoreMetrics    bool
    VerifiedRevenue    *float64
}

// CheckResult is the composed outcome returned to callers.
type CheckResult struct {
    Product      domain.Product
    Claim        domain.Claim
    Assessment   domain.ClaimAssessment
    Metrics      []domain.VerificationMetric
    Verification Verification
}

// Check runs one claim-check request. A claim row is created for every
// request, even when the verdict is no_evidence, so the claims table is a
// full audit trail. If the metric store is unreachable the claim is left in
// status new with no assessment and ErrDependency is returned; that failure
// class is distinct from a successful check that found no evidence.
func (s *Service) Check(ctx context.Context, in CheckInput) (CheckResult, error) {
    if err := domain.ValidateClaimedValue(in.ClaimedValue); err != nil {
        return CheckResult{}, err
    }
    if in.AppName == "" && in.IOSAppID == "" && in.AndroidPackage == "" && in.PrimaryURL == "" {
        return CheckResult{}, fmt.Errorf("%w: at least one of app name, ios app id, android package or url is required", domain.ErrValidation)
    }

    product, err := s.resolveProduct(ctx, in)
    if err != nil {
        return CheckResult{}, err
    }

    payload := ports.ClaimPayload{
        ClaimType:     stringOr(in.ClaimType, defaultClaimType),
        ClaimedValue:  in.ClaimedValue,
        Currency:      stringOr(in.Currency, defaultCurrency),
        TimeframeText: optional(in.TimeframeText),
        SourceURL:     optional(in.SourceURL),
    }
    claim, err := s.claims.CreateClaim(ctx, product.ID, payload)
    if err != nil {
        return CheckResult{}, fmt.Errorf("%w: create claim: %v", domain.ErrDependency, err)
    }

    metrics, err := s.metrics.FetchMetrics(ctx, product.ID)
    if err != nil {
        return CheckResult{}, fmt.Errorf("%w: fetch metrics: %v", domain.ErrDependency, err)
    }

    result := domain.AssessClaim(in.ClaimedValue, metrics)

    assessment, err := s.assessments.CreateAssessment(ctx, claim.ID, result)
    if err != nil {
        return CheckResult{}, fmt.Errorf("%w: create assessment: %v", domain.ErrDependency, err)
    }
    if err := s.claims.SetClaimStatus(ctx, claim.ID, domain.ClaimAnalyzed); err != nil {
        return CheckResult{}, fmt.Errorf("%w: transition claim: %v", domain.ErrDependency, err)
    }
    claim.Status = domain.ClaimAnalyzed

    return CheckResult{
        Product:      product,
        Claim:        claim,
        Assessment:   assessment,
        Metrics:      metrics,
        Verification: summarize(metrics),
    }, nil
}

// resolveProduct is idempotent find-or-create: ios app id, then android
// package, then primary url, first match wins. A uniqueness violation on
// create means another request won the race; re-fetch and proceed.
func (s *Service) resolveProduct(ctx context.Context, in CheckInput) (domain.Product, error) {
    product, found, err := s.findProduct(ctx, in)
    if err != nil {
        return domain.Product{}, err
    }
    if found {
        return product, nil
    }

    name := in.AppName
    for _, fallback := range []string{in.IOSAppID, in.AndroidPackage, in.PrimaryURL} {
        if name != "" {
            break
        }
        name = fallback
    }
    attrs := ports.ProductAttrs{
        Name:           name,
        Type:           "mobile_app",
        PrimaryURL:     optional(in.PrimaryURL),
        IOSAppID:       optional(in.IOSAppID),
        AndroidPackage: optional(in.AndroidPackage),
    }
    product, err = s.products.Create(ctx, attrs)
    if errors.Is(err, ports.ErrConflict) {
        product, found, err = s.findProduct(ctx, in)
        if err != nil {
            return domain.Product{}, err
        }
        if !found {
            return domain.Product{}, fmt.Errorf("%w: product conflict but no row found", domain.ErrDependency)
        }
        return product, nil
    }
    if err != nil {
        return domain.Product{}, fmt.Errorf("%w: create product: %v", domain.ErrDependency, err)
    }
    return product, nil
}

func (s *Service) findProduct(ctx context.Context, in CheckInput) (domain.Product, bool, error) {
    type lookup struct {
        key  string
        find func(context.Context, string) (domain.Product, bool, error)
    }
    lookups := []lookup{
        {in.IOSAppID, s.products.FindByIOSAppID},
        {in.AndroidPackage, s.products.FindByAndroidPackage},
        {in.PrimaryURL, s.products.FindByPrimaryURL},
    }
    for _, l := range lookups {
        if l.key == "" {
            continue
        }
        product, found, err := l.find(ctx, l.key)
        if err != nil {
            return domain.Product{}, false, fmt.Errorf("%w: find product: %v", domain.ErrDependency, err)
        }
        if found {
            return product, true, nil
        }
    }
    return domain.Product{}, false, nil
}

func summarize(metrics []domain.VerificationMetric) Verification {
    var v Verification
    for _, m := range metrics {
        if m.MetricName == domain.MetricRevenue30d && m.IsVerified && m.Value > 0 {
            v.HasVerifiedRevenue = true
            rev := m.Value
            v.VerifiedRevenue = &rev
        }
        if !m.IsVerified {
            v.HasStoreMetrics = true
        }
    }
    return v
}

func stringOr(v, def string) string {
    if v != "" {
        return v
    }
    return def
}

func optional(v string) *string {
    if v == "" {
        return nil
    }
    return &v
}
