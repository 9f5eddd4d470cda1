package reports

import (
    "context"
    "fmt"

    "riskscope/internal/domain"
    "riskscope/internal/ports"
)

// Severity assigned to the signal synthesized when an admin confirms a report.
const adminConfirmedSeverity = 5

type Service struct {
    reports ports.ReportRepository
    signals ports.SignalRepository
    sites   ports.SiteRepository
}

func New(reports ports.ReportRepository, signals ports.SignalRepository, sites ports.SiteRepository) *Service {
    return &Service{reports: reports, signals: signals, sites: sites}
}

type SubmitInput struct {
    SiteID      string
    ReportType  string
    Description string
    HasEvidence bool
}

// Submit stores a user report, synthesizes the matching user-sourced signal
// and rescores the site. The report itself is permanent history; review
// happens later through Review.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (domain.UserReport, error) {
    if in.SiteID == "" || in.ReportType == "" || in.Description == "" {
        return domain.UserReport{}, fmt.Errorf("%w: site_id, report_type and description are required", domain.ErrValidation)
    }

    report, err := s.reports.CreateReport(ctx, in.SiteID, domain.UserReport{
        SiteID:      in.SiteID,
        ReportType:  in.ReportType,
        Description: in.Description,
        HasEvidence: in.HasEvidence,
        Status:      domain.ReportNew,
    })
    if err != nil {
        return domain.UserReport{}, fmt.Errorf("%w: create report: %v", domain.ErrDependency, err)
    }

    signal := domain.NewSignal{
        Type:        "user_report_" + in.ReportType,
        Dimension:   "reputation",
        Severity:    severityForReportType(in.ReportType),
        Source:      domain.SourceUser,
        Description: "User report: " + in.ReportType,
    }
    if err := s.signals.AppendSignals(ctx, in.SiteID, []domain.NewSignal{signal}); err != nil {
        return domain.UserReport{}, fmt.Errorf("%w: append signal: %v", domain.ErrDependency, err)
    }
    if err := s.sites.IncrementReports(ctx, in.SiteID); err != nil {
        return domain.UserReport{}, fmt.Errorf("%w: bump report counter: %v", domain.ErrDependency, err)
    }
    if err := s.rescore(ctx, in.SiteID); err != nil {
        return domain.UserReport{}, err
    }
    return report, nil
}

// ListOpen returns reports still awaiting or holding admin attention.
func (s *Service) ListOpen(ctx context.Context) ([]domain.UserReport, error) {
    return s.reports.ListOpenReports(ctx)
}

// Review transitions a report out of new. Confirming a report is the only
// transition that synthesizes a new risk signal (admin-sourced, fixed
// severity) and rescores the site.
func (s *Service) Review(ctx context.Context, reportID string, status domain.ReportStatus) (domain.UserReport, error) {
    switch status {
    case domain.ReportReviewed, domain.ReportDismissed, domain.ReportConfirmed:
    default:
        return domain.UserReport{}, fmt.Errorf("%w: invalid report status %q", domain.ErrValidation, status)
    }

    current, err := s.reports.GetReport(ctx, reportID)
    if err != nil {
        return domain.UserReport{}, err
    }
    if current.Status != domain.ReportNew {
        return domain.UserReport{}, fmt.Errorf("%w: report %s already %s", domain.ErrValidation, reportID, current.Status)
    }

    report, err := s.reports.SetReportStatus(ctx, reportID, status)
    if err != nil {
        return domain.UserReport{}, fmt.Errorf("%w: update report: %v", domain.ErrDependency, err)
    }

    if status == domain.ReportConfirmed {
        signal := domain.NewSignal{
            Type:        "admin_confirmed_report",
            Dimension:   "reputation",
            Severity:    adminConfirmedSeverity,
            Source:      domain.SourceAdmin,
            Description: "Admin confirmed user report",
        }
        if err := s.signals.AppendSignals(ctx, report.SiteID, []domain.NewSignal{signal}); err != nil {
            return domain.UserReport{}, fmt.Errorf("%w: append signal: %v", domain.ErrDependency, err)
        }
        if err := s.rescore(ctx, report.SiteID); err != nil {
            return domain.UserReport{}, err
        }
    }
    return report, nil
}

func (s *Service) rescore(ctx context.Context, siteID string) error {
    signals, err := s.signals.FetchSignals(ctx, siteID)
    if err != nil {
        return fmt.Errorf("%w: fetch signals: %v", domain.ErrDependency, err)
    }
    score, level := domain.CalculateRiskScore(signals)
    if err := s.sites.UpdateScore(ctx, siteID, score, level, len(signals)); err != nil {
        return fmt.Errorf("%w: update score: %v", domain.ErrDependency, err)
    }
    return nil
}

// severityForReportType maps a report type to the severity of the signal it
// synthesizes. Non-delivery and outright fraud weigh heaviest.
func severityForReportType(reportType string) int {
    switch reportType {
    case "non_delivery", "fraud":
        return 10
    case "refund_refused":
        return 7
    case "poor_quality":
        return 4
    default:
        return 3
    }
}
