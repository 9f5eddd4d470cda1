package sites

import (
    "context"
    "fmt"
    "net/url"

    "golang.org/x/net/publicsuffix"

    "riskscope/internal/domain"
    "riskscope/internal/ports"
)

type Service struct {
    sites   ports.SiteRepository
    signals ports.SignalRepository
    scans   ports.ScanRepository
}

func New(sites ports.SiteRepository, signals ports.SignalRepository, scans ports.ScanRepository) *Service {
    return &Service{sites: sites, signals: signals, scans: scans}
}

// Profile is a site snapshot together with its current signal set.
type Profile struct {
    Site    domain.Site
    Signals []domain.RiskSignal
}

// Lookup resolves a raw domain or URL to its site profile. Two inputs that
// normalize identically resolve to the same site.
func (s *Service) Lookup(ctx context.Context, raw string) (Profile, error) {
    normalized := domain.NormalizeDomain(raw)
    if normalized == "" {
        return Profile{}, fmt.Errorf("%w: empty domain", domain.ErrValidation)
    }
    site, err := s.sites.GetByNormalizedDomain(ctx, normalized)
    if err != nil {
        return Profile{}, err
    }
    signals, err := s.signals.FetchSignals(ctx, site.ID)
    if err != nil {
        return Profile{}, fmt.Errorf("%w: fetch signals: %v", domain.ErrDependency, err)
    }
    return Profile{Site: site, Signals: signals}, nil
}

// Enqueue normalizes the input, get-or-creates the site and queues a scan.
func (s *Service) Enqueue(ctx context.Context, raw string) (string, error) {
    normalized := domain.NormalizeDomain(raw)
    if normalized == "" {
        return "", fmt.Errorf("%w: empty domain", domain.ErrValidation)
    }
    site, err := s.GetOrCreate(ctx, normalized)
    if err != nil {
        return "", err
    }
    scanID, err := s.scans.CreateScan(ctx, site.ID, "https://"+normalized)
    if err != nil {
        return "", fmt.Errorf("%w: create scan: %v", domain.ErrDependency, err)
    }
    return scanID, nil
}

// GetOrCreate fetches or creates the site for a normalized domain. The
// registrable domain (eTLD+1) is derived for grouping; when the host has no
// recognizable public suffix the normalized domain stands in.
func (s *Service) GetOrCreate(ctx context.Context, normalized string) (domain.Site, error) {
    host := normalized
    if u, err := url.Parse("https://" + normalized); err == nil && u.Hostname() != "" {
        host = u.Hostname()
    }
    registrable, err := publicsuffix.EffectiveTLDPlusOne(host)
    if err != nil {
        registrable = normalized
    }
    site, err := s.sites.GetOrCreate(ctx, normalized, normalized, registrable)
    if err != nil {
        return domain.Site{}, fmt.Errorf("%w: get or create site: %v", domain.ErrDependency, err)
    }
    return site, nil
}

// Rescore recomputes the site's risk score from its current full signal set
// and records the snapshot. The score is never set independently of the
// signals.
func (s *Service) Rescore(ctx context.Context, siteID string) (int, domain.RiskLevel, error) {
    signals, err := s.signals.FetchSignals(ctx, siteID)
    if err != nil {
        return 0, "", fmt.Errorf("%w: fetch signals: %v", domain.ErrDependency, err)
    }
    score, level := domain.CalculateRiskScore(signals)
    if err := s.sites.UpdateScore(ctx, siteID, score, level, len(signals)); err != nil {
        return 0, "", fmt.Errorf("%w: update score: %v", domain.ErrDependency, err)
    }
    return score, level, nil
}

// ScanStatus reports a scan's lifecycle state and progress.
func (s *Service) ScanStatus(ctx context.Context, scanID string) (string, float64, error) {
    return s.scans.ScanStatus(ctx, scanID)
}
