package enrich

import (
    "context"
    "fmt"

    "riskscope/internal/domain"
    "riskscope/internal/ports"
)

// Service pulls fresh verification metrics for a product from the store and
// payment providers and appends them to the metric store. Metrics accumulate;
// the assessor always reads the current full set.
type Service struct {
    metrics  ports.MetricRepository
    store    ports.StoreMetricsProvider
    payments ports.PaymentProvider
}

func New(metrics ports.MetricRepository, store ports.StoreMetricsProvider, payments ports.PaymentProvider) *Service {
    return &Service{metrics: metrics, store: store, payments: payments}
}

// EnrichProduct fetches whatever each provider can supply and appends it.
// Returns the number of metrics written. A provider returning nothing is not
// an error; an unreachable provider is.
func (s *Service) EnrichProduct(ctx context.Context, product domain.Product) (int, error) {
    var collected []domain.NewMetric

    storeMetrics, err := s.store.FetchStoreMetrics(ctx, product.IOSAppID, product.AndroidPackage)
    if err != nil {
        return 0, fmt.Errorf("%w: store metrics: %v", domain.ErrDependency, err)
    }
    collected = append(collected, storeMetrics...)

    verified, err := s.payments.FetchVerifiedRevenue(ctx, product.ID)
    if err != nil {
        return 0, fmt.Errorf("%w: payment metrics: %v", domain.ErrDependency, err)
    }
    if verified != nil {
        collected = append(collected, *verified)
    }

    if len(collected) == 0 {
        return 0, nil
    }
    if err := s.metrics.AppendMetrics(ctx, product.ID, collected); err != nil {
        return 0, fmt.Errorf("%w: append metrics: %v", domain.ErrDependency, err)
    }
    return len(collected), nil
}

// NoopStoreProvider returns no store metrics. Replace with a real scraper
// adapter when one is wired up.
type NoopStoreProvider struct{}

func (NoopStoreProvider) FetchStoreMetrics(ctx context.Context, iosAppID, androidPackage *string) ([]domain.NewMetric, error) {
    return nil, nil
}

// NoopPaymentProvider reports no payment mapping for any product.
type NoopPaymentProvider struct{}

func (NoopPaymentProvider) FetchVerifiedRevenue(ctx context.Context, productID string) (*domain.NewMetric, error) {
    return nil, nil
}
