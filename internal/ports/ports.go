package ports

import (
    "context"

    "riskscope/internal/domain"
)

// SignalSource produces system-sourced signals for a domain during a scan.
// Page fetching and content heuristics live behind this port; the engine only
// consumes the resulting signal set.
type SignalSource interface {
    Collect(ctx context.Context, host string) ([]domain.NewSignal, error)
}

// StoreMetricsProvider fetches app-store proxy metrics for a product's
// platform identifiers. Implementations wrap store scrapers or cached feeds.
type StoreMetricsProvider interface {
    FetchStoreMetrics(ctx context.Context, iosAppID, androidPackage *string) ([]domain.NewMetric, error)
}

// PaymentProvider fetches verified revenue figures from authoritative payment
// data (e.g. a Stripe mapping). A nil result means no mapping exists.
type PaymentProvider interface {
    FetchVerifiedRevenue(ctx context.Context, productID string) (*domain.NewMetric, error)
}
