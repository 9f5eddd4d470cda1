package scanrunner

import (
    "context"
    "errors"
    "testing"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "riskscope/internal/domain"
    "riskscope/internal/ports"
)

type mockRescanStore struct {
    site     domain.Site
    signals  []domain.RiskSignal
    progress []float64

    score        int
    level        domain.RiskLevel
    totalSignals int

    jobs      map[string]string // job id -> status
    jobForScan string
}

func newMockRescanStore() *mockRescanStore {
    return &mockRescanStore{
        site: domain.Site{ID: "site-1", Domain: "example.com", NormalizedDomain: "example.com"},
        jobs: map[string]string{"job-1": "queued"},
        jobForScan: "job-1",
    }
}

// ScanRepository

func (m *mockRescanStore) CreateScan(_ context.Context, siteID, url string) (string, error) {
    return "scan-1", nil
}

func (m *mockRescanStore) ScanStatus(_ context.Context, scanID string) (string, float64, error) {
    return string(domain.ScanRunning), 0, nil
}

func (m *mockRescanStore) SiteForScan(_ context.Context, scanID string) (string, error) {
    return m.site.ID, nil
}

// SiteRepository

func (m *mockRescanStore) GetOrCreate(_ context.Context, display, normalized, registrable string) (domain.Site, error) {
    return m.site, nil
}

func (m *mockRescanStore) GetByNormalizedDomain(_ context.Context, normalized string) (domain.Site, error) {
    return m.site, nil
}

func (m *mockRescanStore) GetByID(_ context.Context, siteID string) (domain.Site, error) {
    if siteID != m.site.ID {
        return domain.Site{}, domain.ErrNotFound
    }
    return m.site, nil
}

func (m *mockRescanStore) UpdateScore(_ context.Context, siteID string, score int, level domain.RiskLevel, totalSignals int) error {
    m.score = score
    m.level = level
    m.totalSignals = totalSignals
    return nil
}

func (m *mockRescanStore) IncrementReports(_ context.Context, siteID string) error { return nil }

// SignalRepository

func (m *mockRescanStore) FetchSignals(_ context.Context, siteID string) ([]domain.RiskSignal, error) {
    return append([]domain.RiskSignal(nil), m.signals...), nil
}

func (m *mockRescanStore) AppendSignals(_ context.Context, siteID string, signals []domain.NewSignal) error {
    for _, s := range signals {
        m.signals = append(m.signals, domain.RiskSignal{SiteID: siteID, Type: s.Type, Severity: s.Severity, Source: s.Source})
    }
    return nil
}

func (m *mockRescanStore) ReplaceSystemSignals(_ context.Context, siteID string, signals []domain.NewSignal) error {
    kept := m.signals[:0:0]
    for _, s := range m.signals {
        if s.Source != domain.SourceSystem {
            kept = append(kept, s)
        }
    }
    for _, s := range signals {
        kept = append(kept, domain.RiskSignal{SiteID: siteID, Type: s.Type, Severity: s.Severity, Source: domain.SourceSystem})
    }
    m.signals = kept
    return nil
}

// JobRepository

func (m *mockRescanStore) ClaimNext(_ context.Context) (ports.ScanJob, bool, error) {
    return ports.ScanJob{}, false, nil
}

func (m *mockRescanStore) UpdateScanProgress(_ context.Context, scanID string, progress float64) error {
    m.progress = append(m.progress, progress)
    return nil
}

func (m *mockRescanStore) MarkCompleted(_ context.Context, jobID string) error {
    m.jobs[jobID] = "completed"
    return nil
}

func (m *mockRescanStore) MarkFailed(_ context.Context, jobID string, reason string) error {
    m.jobs[jobID] = "failed"
    return nil
}

func (m *mockRescanStore) StartJobForScan(_ context.Context, scanID string) (string, error) {
    m.jobs[m.jobForScan] = "running"
    return m.jobForScan, nil
}

type staticSource struct {
    signals []domain.NewSignal
    err     error
}

func (s staticSource) Collect(_ context.Context, host string) ([]domain.NewSignal, error) {
    return s.signals, s.err
}

func processor(store *mockRescanStore, source ports.SignalSource) RescanProcessor {
    return RescanProcessor{Scans: store, Sites: store, Signals: store, Jobs: store, Source: source}
}

func TestRescanReplacesSystemSignalsAndRescores(t *testing.T) {
    store := newMockRescanStore()
    store.signals = []domain.RiskSignal{
        {SiteID: "site-1", Type: "stale_system", Severity: 9, Source: domain.SourceSystem},
        {SiteID: "site-1", Type: "user_report_fraud", Severity: 10, Source: domain.SourceUser},
    }
    source := staticSource{signals: []domain.NewSignal{
        {Type: "no_contact_info", Severity: 5, Source: domain.SourceSystem},
        {Type: "no_refund_policy", Severity: 4, Source: domain.SourceSystem},
    }}

    err := processor(store, source).Process(context.Background(), "scan-1")
    require.NoError(t, err)

    // Stale system signal gone; user history untouched; new system set in.
    types := make([]string, 0, len(store.signals))
    for _, s := range store.signals {
        types = append(types, s.Type)
    }
    assert.ElementsMatch(t, []string{"user_report_fraud", "no_contact_info", "no_refund_policy"}, types)

    // 10 + 5 + 4
    assert.Equal(t, 19, store.score)
    assert.Equal(t, domain.LevelLow, store.level)
    assert.Equal(t, 3, store.totalSignals)
    assert.Equal(t, 1.0, store.progress[len(store.progress)-1])
}

func TestRescanEmptyCollectionClearsSystemSignals(t *testing.T) {
    store := newMockRescanStore()
    store.signals = []domain.RiskSignal{
        {SiteID: "site-1", Type: "stale_system", Severity: 9, Source: domain.SourceSystem},
    }

    err := processor(store, staticSource{}).Process(context.Background(), "scan-1")
    require.NoError(t, err)
    assert.Empty(t, store.signals)
    assert.Equal(t, 0, store.score)
}

func TestProcessInlineMarksJobOutcome(t *testing.T) {
    store := newMockRescanStore()
    err := ProcessInline(context.Background(), store, processor(store, staticSource{}), "scan-1")
    require.NoError(t, err)
    assert.Equal(t, "completed", store.jobs["job-1"])

    store = newMockRescanStore()
    failing := staticSource{err: errors.New("probe failed")}
    err = ProcessInline(context.Background(), store, processor(store, failing), "scan-1")
    require.Error(t, err)
    assert.Equal(t, "failed", store.jobs["job-1"])
}
