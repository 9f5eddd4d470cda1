package ports

import (
    "context"

    "riskscope/internal/domain"
)

// ProductAttrs is the identifying input for product creation. At least one of
// Name, IOSAppID, AndroidPackage or PrimaryURL must be set.
type ProductAttrs struct {
    Name           string
    Type           string
    PrimaryURL     *string
    IOSAppID       *string
    AndroidPackage *string
}

// ProductRepository resolves and creates products. Create must surface a
// uniqueness violation on any platform identifier as ErrConflict so that
// concurrent resolution never yields two rows for the same identifier.
type ProductRepository interface {
    FindByIOSAppID(ctx context.Context, iosAppID string) (domain.Product, bool, error)
    FindByAndroidPackage(ctx context.Context, pkg string) (domain.Product, bool, error)
    FindByPrimaryURL(ctx context.Context, url string) (domain.Product, bool, error)
    Create(ctx context.Context, attrs ProductAttrs) (domain.Product, error)
}

// ClaimPayload is the immutable content of a claim row.
type ClaimPayload struct {
    ClaimType     string
    ClaimedValue  float64
    Currency      string
    TimeframeText *string
    SourceURL     *string
}

// ClaimRepository appends claim rows and records the single allowed status
// transition. Claims are never updated otherwise; re-checks append new rows.
type ClaimRepository interface {
    CreateClaim(ctx context.Context, productID string, payload ClaimPayload) (domain.Claim, error)
    SetClaimStatus(ctx context.Context, claimID string, status domain.ClaimStatus) error
}

// MetricRepository provides read/append semantics over a product's
// verification metrics.
type MetricRepository interface {
    FetchMetrics(ctx context.Context, productID string) ([]domain.VerificationMetric, error)
    AppendMetrics(ctx context.Context, productID string, metrics []domain.NewMetric) error
}

// AssessmentRepository appends assessment rows. Re-running a check creates a
// new assessment; history is preserved.
type AssessmentRepository interface {
    CreateAssessment(ctx context.Context, claimID string, result domain.AssessmentResult) (domain.ClaimAssessment, error)
}
