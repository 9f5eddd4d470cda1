package claims

import (
    "context"
    "errors"
    "sync"
    "testing"

    "github.com/google/uuid"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "riskscope/internal/domain"
    "riskscope/internal/ports"
)

// mockStore implements the product/claim/metric/assessment repositories with
// in-memory state and the same uniqueness guarantees the schema enforces.
type mockStore struct {
    mu          sync.Mutex
    products    []domain.Product
    claims      []domain.Claim
    assessments []domain.ClaimAssessment
    metrics     map[string][]domain.VerificationMetric

    fetchMetricsErr error
    // raceOnCreate simulates a concurrent writer: Create inserts the row on
    // behalf of "someone else" and reports a uniqueness conflict.
    raceOnCreate bool
}

func newMockStore() *mockStore {
    return &mockStore{metrics: make(map[string][]domain.VerificationMetric)}
}

func (m *mockStore) findLocked(match func(domain.Product) bool) (domain.Product, bool) {
    for _, p := range m.products {
        if match(p) {
            return p, true
        }
    }
    return domain.Product{}, false
}

func (m *mockStore) FindByIOSAppID(_ context.Context, id string) (domain.Product, bool, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    p, ok := m.findLocked(func(p domain.Product) bool { return p.IOSAppID != nil && *p.IOSAppID == id })
    return p, ok, nil
}

func (m *mockStore) FindByAndroidPackage(_ context.Context, pkg string) (domain.Product, bool, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    p, ok := m.findLocked(func(p domain.Product) bool { return p.AndroidPackage != nil && *p.AndroidPackage == pkg })
    return p, ok, nil
}

func (m *mockStore) FindByPrimaryURL(_ context.Context, url string) (domain.Product, bool, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    p, ok := m.findLocked(func(p domain.Product) bool { return p.PrimaryURL != nil && *p.PrimaryURL == url })
    return p, ok, nil
}

func (m *mockStore) Create(_ context.Context, attrs ports.ProductAttrs) (domain.Product, error) {
    m.mu.Lock()
    defer m.mu.Unlock()

    conflicts := func(p domain.Product) bool {
        if attrs.IOSAppID != nil && p.IOSAppID != nil && *p.IOSAppID == *attrs.IOSAppID {
            return true
        }
        if attrs.AndroidPackage != nil && p.AndroidPackage != nil && *p.AndroidPackage == *attrs.AndroidPackage {
            return true
        }
        if attrs.PrimaryURL != nil && p.PrimaryURL != nil && *p.PrimaryURL == *attrs.PrimaryURL {
            return true
        }
        return false
    }
    if _, ok := m.findLocked(conflicts); ok {
        return domain.Product{}, ports.ErrConflict
    }

    product := domain.Product{
        ID:             uuid.NewString(),
        Name:           attrs.Name,
        Type:           attrs.Type,
        PrimaryURL:     attrs.PrimaryURL,
        IOSAppID:       attrs.IOSAppID,
        AndroidPackage: attrs.AndroidPackage,
    }
    m.products = append(m.products, product)
    if m.raceOnCreate {
        m.raceOnCreate = false
        return domain.Product{}, ports.ErrConflict
    }
    return product, nil
}

func (m *mockStore) CreateClaim(_ context.Context, productID string, payload ports.ClaimPayload) (domain.Claim, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    claim := domain.Claim{
        ID:            uuid.NewString(),
        ProductID:     productID,
        ClaimType:     payload.ClaimType,
        ClaimedValue:  payload.ClaimedValue,
        Currency:      payload.Currency,
        TimeframeText: payload.TimeframeText,
        SourceURL:     payload.SourceURL,
        Status:        domain.ClaimNew,
    }
    m.claims = append(m.claims, claim)
    return claim, nil
}

func (m *mockStore) SetClaimStatus(_ context.Context, claimID string, status domain.ClaimStatus) error {
    m.mu.Lock()
    defer m.mu.Unlock()
    for i := range m.claims {
        if m.claims[i].ID == claimID {
            m.claims[i].Status = status
            return nil
        }
    }
    return domain.ErrNotFound
}

func (m *mockStore) FetchMetrics(_ context.Context, productID string) ([]domain.VerificationMetric, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    if m.fetchMetricsErr != nil {
        return nil, m.fetchMetricsErr
    }
    return m.metrics[productID], nil
}

func (m *mockStore) AppendMetrics(_ context.Context, productID string, metrics []domain.NewMetric) error {
    m.mu.Lock()
    defer m.mu.Unlock()
    for _, in := range metrics {
        m.metrics[productID] = append(m.metrics[productID], domain.VerificationMetric{
            ID:         uuid.NewString(),
            ProductID:  productID,
            Source:     in.Source,
            MetricName: in.MetricName,
            Value:      in.Value,
            IsVerified: in.IsVerified,
        })
    }
    return nil
}

func (m *mockStore) CreateAssessment(_ context.Context, claimID string, result domain.AssessmentResult) (domain.ClaimAssessment, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    assessment := domain.ClaimAssessment{
        ID:                   uuid.NewString(),
        ClaimID:              claimID,
        AssessmentType:       "plausibility",
        Verdict:              result.Verdict,
        Confidence:           result.Confidence,
        MaxPlausibleEstimate: result.MaxPlausibleEstimate,
        Notes:                result.Notes,
    }
    m.assessments = append(m.assessments, assessment)
    return assessment, nil
}

func newService(store *mockStore) *Service {
    return New(store, store, store, store)
}

func validInput() CheckInput {
    return CheckInput{
        AppName:      "Budget Cat",
        IOSAppID:     "id123456",
        ClaimedValue: 5000,
    }
}

func TestCheckRejectsBadClaimedValue(t *testing.T) {
    store := newMockStore()
    svc := newService(store)

    for _, v := range []float64{0, -1} {
        in := validInput()
        in.ClaimedValue = v
        _, err := svc.Check(context.Background(), in)
        assert.ErrorIs(t, err, domain.ErrValidation)
    }
    assert.Empty(t, store.products, "validation failures must not create state")
    assert.Empty(t, store.claims)
}

func TestCheckRequiresIdentifyingAttribute(t *testing.T) {
    store := newMockStore()
    svc := newService(store)

    _, err := svc.Check(context.Background(), CheckInput{ClaimedValue: 100})
    assert.ErrorIs(t, err, domain.ErrValidation)
    assert.Empty(t, store.products)
}

func TestCheckNoEvidenceStillCreatesClaim(t *testing.T) {
    store := newMockStore()
    svc := newService(store)

    result, err := svc.Check(context.Background(), validInput())
    require.NoError(t, err)

    assert.Equal(t, domain.VerdictNoEvidence, result.Assessment.Verdict)
    assert.Nil(t, result.Assessment.MaxPlausibleEstimate)
    assert.Equal(t, domain.ClaimAnalyzed, result.Claim.Status)
    assert.Len(t, store.claims, 1)
    assert.Len(t, store.assessments, 1)
    assert.Equal(t, domain.ClaimAnalyzed, store.claims[0].Status)
}

func TestCheckVerifiedRevenueEndToEnd(t *testing.T) {
    store := newMockStore()
    svc := newService(store)

    first, err := svc.Check(context.Background(), validInput())
    require.NoError(t, err)

    require.NoError(t, store.AppendMetrics(context.Background(), first.Product.ID, []domain.NewMetric{
        {Source: domain.MetricSourceStripe, MetricName: domain.MetricRevenue30d, Value: 5000, IsVerified: true},
    }))

    result, err := svc.Check(context.Background(), validInput())
    require.NoError(t, err)

    assert.Equal(t, domain.VerdictVerified, result.Assessment.Verdict)
    require.NotNil(t, result.Assessment.MaxPlausibleEstimate)
    assert.Equal(t, 5000.0, *result.Assessment.MaxPlausibleEstimate)
    assert.True(t, result.Verification.HasVerifiedRevenue)
    require.NotNil(t, result.Verification.VerifiedRevenue)
    assert.Equal(t, 5000.0, *result.Verification.VerifiedRevenue)
}

func TestCheckDuplicateVerifiedRowsUseNewest(t *testing.T) {
    store := newMockStore()
    svc := newService(store)

    first, err := svc.Check(context.Background(), validInput())
    require.NoError(t, err)

    // Two enrichment passes appended verified rows; the newest one must back
    // both the assessment and the verification summary.
    require.NoError(t, store.AppendMetrics(context.Background(), first.Product.ID, []domain.NewMetric{
        {Source: domain.MetricSourceStripe, MetricName: domain.MetricRevenue30d, Value: 1000, IsVerified: true},
        {Source: domain.MetricSourceStripe, MetricName: domain.MetricRevenue30d, Value: 2000, IsVerified: true},
    }))

    in := validInput()
    in.ClaimedValue = 2000
    result, err := svc.Check(context.Background(), in)
    require.NoError(t, err)

    assert.Equal(t, domain.VerdictVerified, result.Assessment.Verdict)
    require.NotNil(t, result.Assessment.MaxPlausibleEstimate)
    require.NotNil(t, result.Verification.VerifiedRevenue)
    assert.Equal(t, 2000.0, *result.Assessment.MaxPlausibleEstimate)
    assert.Equal(t, *result.Assessment.MaxPlausibleEstimate, *result.Verification.VerifiedRevenue)
}

func TestCheckMetricFetchFailureLeavesClaimNew(t *testing.T) {
    store := newMockStore()
    store.fetchMetricsErr = errors.New("metric store down")
    svc := newService(store)

    _, err := svc.Check(context.Background(), validInput())
    assert.ErrorIs(t, err, domain.ErrDependency)

    // The claim row exists (audit trail) but stays new with no assessment:
    // a dependency failure is not a no_evidence verdict.
    require.Len(t, store.claims, 1)
    assert.Equal(t, domain.ClaimNew, store.claims[0].Status)
    assert.Empty(t, store.assessments)
}

func TestCheckRerunAppendsNewRows(t *testing.T) {
    store := newMockStore()
    svc := newService(store)

    first, err := svc.Check(context.Background(), validInput())
    require.NoError(t, err)
    second, err := svc.Check(context.Background(), validInput())
    require.NoError(t, err)

    assert.Len(t, store.products, 1, "same ios id resolves to the same product")
    assert.Len(t, store.claims, 2, "every check appends a claim")
    assert.Len(t, store.assessments, 2, "every check appends an assessment")
    assert.NotEqual(t, first.Claim.ID, second.Claim.ID)
    assert.Equal(t, first.Product.ID, second.Product.ID)
}

func TestResolveProductPriorityOrder(t *testing.T) {
    store := newMockStore()
    svc := newService(store)

    // Seed a product known only by android package.
    pkg := "com.example.budgetcat"
    _, err := store.Create(context.Background(), ports.ProductAttrs{Name: "Budget Cat", Type: "mobile_app", AndroidPackage: &pkg})
    require.NoError(t, err)

    in := validInput()
    in.AndroidPackage = pkg // ios lookup misses, android hits
    result, err := svc.Check(context.Background(), in)
    require.NoError(t, err)

    assert.Len(t, store.products, 1, "existing android match must win over creation")
    require.NotNil(t, result.Product.AndroidPackage)
    assert.Equal(t, pkg, *result.Product.AndroidPackage)
}

func TestCheckConcurrentCreationKeepsOneProduct(t *testing.T) {
    store := newMockStore()
    svc := newService(store)

    var wg sync.WaitGroup
    errs := make([]error, 4)
    for i := range errs {
        wg.Add(1)
        go func(i int) {
            defer wg.Done()
            _, errs[i] = svc.Check(context.Background(), validInput())
        }(i)
    }
    wg.Wait()

    for _, err := range errs {
        assert.NoError(t, err)
    }
    assert.Len(t, store.products, 1, "exactly one product row survives the race")
    assert.Len(t, store.claims, len(errs))
}

func TestCheckCreateConflictRefetches(t *testing.T) {
    store := newMockStore()
    store.raceOnCreate = true
    svc := newService(store)

    result, err := svc.Check(context.Background(), validInput())
    require.NoError(t, err)

    assert.Len(t, store.products, 1)
    assert.Equal(t, store.products[0].ID, result.Product.ID)
}
