package httpadapter

import (
    "context"
    "fmt"
    "net/http"
    "net/http/httptest"
    "strings"
    "testing"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "riskscope/internal/domain"
    "riskscope/internal/ports"
    sitessvc "riskscope/internal/services/sites"
)

// mockScanStore backs the scan endpoints with one site and one scan.
type mockScanStore struct {
    site       domain.Site
    scanStatus string
    progress   float64

    jobClaimed bool
    jobStatus  string
}

func newMockScanStore() *mockScanStore {
    return &mockScanStore{
        site:       domain.Site{ID: "site-1", Domain: "example.com", NormalizedDomain: "example.com"},
        scanStatus: string(domain.ScanQueued),
    }
}

// SiteRepository

func (m *mockScanStore) GetOrCreate(_ context.Context, display, normalized, registrable string) (domain.Site, error) {
    return m.site, nil
}

func (m *mockScanStore) GetByNormalizedDomain(_ context.Context, normalized string) (domain.Site, error) {
    return m.site, nil
}

func (m *mockScanStore) GetByID(_ context.Context, siteID string) (domain.Site, error) {
    return m.site, nil
}

func (m *mockScanStore) UpdateScore(_ context.Context, siteID string, score int, level domain.RiskLevel, totalSignals int) error {
    return nil
}

func (m *mockScanStore) IncrementReports(_ context.Context, siteID string) error { return nil }

// SignalRepository

func (m *mockScanStore) FetchSignals(_ context.Context, siteID string) ([]domain.RiskSignal, error) {
    return nil, nil
}

func (m *mockScanStore) AppendSignals(_ context.Context, siteID string, signals []domain.NewSignal) error {
    return nil
}

func (m *mockScanStore) ReplaceSystemSignals(_ context.Context, siteID string, signals []domain.NewSignal) error {
    return nil
}

// ScanRepository

func (m *mockScanStore) CreateScan(_ context.Context, siteID, url string) (string, error) {
    return "scan-1", nil
}

func (m *mockScanStore) ScanStatus(_ context.Context, scanID string) (string, float64, error) {
    return m.scanStatus, m.progress, nil
}

func (m *mockScanStore) SiteForScan(_ context.Context, scanID string) (string, error) {
    return m.site.ID, nil
}

// JobRepository

func (m *mockScanStore) ClaimNext(_ context.Context) (ports.ScanJob, bool, error) {
    return ports.ScanJob{}, false, nil
}

func (m *mockScanStore) UpdateScanProgress(_ context.Context, scanID string, progress float64) error {
    m.progress = progress
    return nil
}

func (m *mockScanStore) MarkCompleted(_ context.Context, jobID string) error {
    m.jobStatus = "completed"
    m.scanStatus = string(domain.ScanCompleted)
    return nil
}

func (m *mockScanStore) MarkFailed(_ context.Context, jobID string, reason string) error {
    m.jobStatus = "failed"
    m.scanStatus = string(domain.ScanFailed)
    return nil
}

func (m *mockScanStore) StartJobForScan(_ context.Context, scanID string) (string, error) {
    if m.jobClaimed {
        return "", fmt.Errorf("%w: scan %s already claimed", ports.ErrConflict, scanID)
    }
    m.jobStatus = "running"
    return "job-1", nil
}

type noopProcessor struct{}

func (noopProcessor) Process(_ context.Context, scanID string) error { return nil }

func scanServer(store *mockScanStore) *Server {
    sites := sitessvc.New(store, store, store)
    return New(sites, nil, nil, nil, nil, store, noopProcessor{})
}

func postScan(t *testing.T, srv *Server, body string) *httptest.ResponseRecorder {
    t.Helper()
    req := httptest.NewRequest(http.MethodPost, "/api/scan", strings.NewReader(body))
    rec := httptest.NewRecorder()
    srv.Routes().ServeHTTP(rec, req)
    return rec
}

func TestScanWaitProcessesInline(t *testing.T) {
    store := newMockScanStore()
    rec := postScan(t, scanServer(store), `{"domain":"example.com","wait":true}`)

    require.Equal(t, http.StatusOK, rec.Code)
    assert.Equal(t, "completed", store.jobStatus)
    assert.Contains(t, rec.Body.String(), `"status":"completed"`)
}

func TestScanWaitJobAlreadyClaimedReportsStatus(t *testing.T) {
    // A background worker grabbed the job between enqueue and the inline
    // path; the request must still get the scan's current state, not a 500.
    store := newMockScanStore()
    store.jobClaimed = true
    store.scanStatus = string(domain.ScanRunning)
    store.progress = 0.5

    rec := postScan(t, scanServer(store), `{"domain":"example.com","wait":true}`)

    require.Equal(t, http.StatusOK, rec.Code)
    assert.Contains(t, rec.Body.String(), `"status":"running"`)
    assert.Contains(t, rec.Body.String(), `"progress":0.5`)
    assert.Empty(t, store.jobStatus, "the inline path must not touch the claimed job")
}
