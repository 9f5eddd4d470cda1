package ports

import (
    "context"
    "errors"

    "riskscope/internal/domain"
)

// ErrConflict reports a uniqueness violation on create. Callers treat it as
// "someone else just created the row — re-fetch and proceed".
var ErrConflict = errors.New("conflict")

// SiteRepository stores and fetches sites by normalized domain.
type SiteRepository interface {
    GetOrCreate(ctx context.Context, display, normalized, registrable string) (domain.Site, error)
    GetByNormalizedDomain(ctx context.Context, normalized string) (domain.Site, error)
    GetByID(ctx context.Context, siteID string) (domain.Site, error)
    // UpdateScore records a new score snapshot, the signal count and the
    // last-checked timestamp.
    UpdateScore(ctx context.Context, siteID string, score int, level domain.RiskLevel, totalSignals int) error
    // IncrementReports bumps the monotonically non-decreasing report counter.
    IncrementReports(ctx context.Context, siteID string) error
}

// SignalRepository provides read/append semantics over a site's signal set.
type SignalRepository interface {
    FetchSignals(ctx context.Context, siteID string) ([]domain.RiskSignal, error)
    AppendSignals(ctx context.Context, siteID string, signals []domain.NewSignal) error
    // ReplaceSystemSignals atomically deletes the site's system-sourced
    // signals and inserts the replacement set. Concurrent readers never
    // observe the deleted-but-not-reinserted state. User/admin signals are
    // untouched.
    ReplaceSystemSignals(ctx context.Context, siteID string, signals []domain.NewSignal) error
}

// ReportRepository manages user reports and their review status.
type ReportRepository interface {
    CreateReport(ctx context.Context, siteID string, report domain.UserReport) (domain.UserReport, error)
    GetReport(ctx context.Context, reportID string) (domain.UserReport, error)
    ListOpenReports(ctx context.Context) ([]domain.UserReport, error)
    SetReportStatus(ctx context.Context, reportID string, status domain.ReportStatus) (domain.UserReport, error)
}
