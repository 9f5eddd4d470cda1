package httpadapter

import (
    "context"
    "encoding/json"
    "errors"
    "log"
    "net/http"
    "time"

    "github.com/go-chi/chi/v5"
    "github.com/prometheus/client_golang/prometheus/promhttp"

    "riskscope/internal/domain"
    "riskscope/internal/metrics"
    "riskscope/internal/ports"
    claimssvc "riskscope/internal/services/claims"
    enrichsvc "riskscope/internal/services/enrich"
    reportssvc "riskscope/internal/services/reports"
    sitessvc "riskscope/internal/services/sites"
    scanrunner "riskscope/internal/workers/scanrunner"
)

type Server struct {
    sites     *sitessvc.Service
    reports   *reportssvc.Service
    claims    *claimssvc.Service
    enrich    *enrichsvc.Service
    products  ports.ProductRepository
    jobs      ports.JobRepository
    processor scanrunner.ScanProcessor
}

func New(sites *sitessvc.Service, reports *reportssvc.Service, claims *claimssvc.Service, enrich *enrichsvc.Service, products ports.ProductRepository, jobs ports.JobRepository, processor scanrunner.ScanProcessor) *Server {
    return &Server{sites: sites, reports: reports, claims: claims, enrich: enrich, products: products, jobs: jobs, processor: processor}
}

func (s *Server) Routes() chi.Router {
    r := chi.NewRouter()
    r.Get("/healthz", s.handleHealthz)
    r.Handle("/metrics", promhttp.Handler())
    r.Route("/api", func(r chi.Router) {
        r.Post("/scan", s.handleScan)
        r.Get("/scans/{id}", s.handleScanStatus)
        r.Get("/sites/{domain}", s.handleSite)
        r.Post("/reports", s.handleSubmitReport)
        r.Get("/admin/reports", s.handleListReports)
        r.Patch("/admin/reports/{id}", s.handleReviewReport)
        r.Post("/admin/enrich", s.handleEnrich)
        r.Post("/claims/check", s.handleClaimCheck)
    })
    return r
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
    writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type scanRequest struct {
    Domain  string `json:"domain"`
    Wait    bool   `json:"wait"`
    Timeout int    `json:"timeout"`
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
    var req scanRequest
    if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
        writeError(w, domain.ErrValidation)
        return
    }
    scanID, err := s.sites.Enqueue(r.Context(), req.Domain)
    if err != nil {
        writeError(w, err)
        return
    }
    metrics.ScansEnqueued.Inc()

    if !req.Wait {
        writeJSON(w, http.StatusAccepted, map[string]string{"scan_id": scanID})
        return
    }

    // Blocking path: process with the same logic the workers run.
    timeout := 30
    if req.Timeout > 0 {
        timeout = req.Timeout
    }
    ctx, cancel := context.WithTimeout(r.Context(), time.Duration(timeout)*time.Second)
    defer cancel()
    if err := scanrunner.ProcessInline(ctx, s.jobs, s.processor, scanID); err != nil {
        // A background worker may have claimed the job between enqueue and
        // here; report the scan's current state instead of failing.
        if !errors.Is(err, ports.ErrConflict) {
            writeError(w, err)
            return
        }
    }
    status, progress, err := s.sites.ScanStatus(ctx, scanID)
    if err != nil {
        writeError(w, err)
        return
    }
    writeJSON(w, http.StatusOK, map[string]any{"id": scanID, "status": status, "progress": progress})
}

func (s *Server) handleScanStatus(w http.ResponseWriter, r *http.Request) {
    scanID := chi.URLParam(r, "id")
    status, progress, err := s.sites.ScanStatus(r.Context(), scanID)
    if err != nil {
        writeError(w, err)
        return
    }
    writeJSON(w, http.StatusOK, map[string]any{"id": scanID, "status": status, "progress": progress})
}

type signalResponse struct {
    Type        string `json:"type"`
    Dimension   string `json:"dimension"`
    Severity    int    `json:"severity"`
    Source      string `json:"source"`
    Description string `json:"description,omitempty"`
}

func (s *Server) handleSite(w http.ResponseWriter, r *http.Request) {
    profile, err := s.sites.Lookup(r.Context(), chi.URLParam(r, "domain"))
    if err != nil {
        writeError(w, err)
        return
    }
    signals := make([]signalResponse, 0, len(profile.Signals))
    for _, sig := range profile.Signals {
        signals = append(signals, signalResponse{
            Type:        sig.Type,
            Dimension:   sig.Dimension,
            Severity:    sig.Severity,
            Source:      string(sig.Source),
            Description: sig.Description,
        })
    }
    writeJSON(w, http.StatusOK, map[string]any{
        "domain":          profile.Site.Domain,
        "risk_score":      profile.Site.RiskScore,
        "risk_level":      profile.Site.RiskLevel,
        "total_signals":   profile.Site.TotalSignals,
        "total_reports":   profile.Site.TotalReports,
        "last_checked_at": profile.Site.LastCheckedAt,
        "signals":         signals,
    })
}

type reportRequest struct {
    SiteID      string `json:"site_id"`
    ReportType  string `json:"report_type"`
    Description string `json:"description"`
    HasEvidence bool   `json:"has_evidence"`
}

func (s *Server) handleSubmitReport(w http.ResponseWriter, r *http.Request) {
    var req reportRequest
    if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
        writeError(w, domain.ErrValidation)
        return
    }
    report, err := s.reports.Submit(r.Context(), reportssvc.SubmitInput{
        SiteID:      req.SiteID,
        ReportType:  req.ReportType,
        Description: req.Description,
        HasEvidence: req.HasEvidence,
    })
    if err != nil {
        writeError(w, err)
        return
    }
    metrics.ReportsReceived.WithLabelValues(req.ReportType).Inc()
    writeJSON(w, http.StatusCreated, map[string]any{"success": true, "report": reportBody(report)})
}

func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
    reports, err := s.reports.ListOpen(r.Context())
    if err != nil {
        writeError(w, err)
        return
    }
    out := make([]map[string]any, 0, len(reports))
    for _, report := range reports {
        out = append(out, reportBody(report))
    }
    writeJSON(w, http.StatusOK, out)
}

type reviewRequest struct {
    Status string `json:"status"`
}

func (s *Server) handleReviewReport(w http.ResponseWriter, r *http.Request) {
    var req reviewRequest
    if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
        writeError(w, domain.ErrValidation)
        return
    }
    report, err := s.reports.Review(r.Context(), chi.URLParam(r, "id"), domain.ReportStatus(req.Status))
    if err != nil {
        writeError(w, err)
        return
    }
    writeJSON(w, http.StatusOK, map[string]any{"success": true, "report": reportBody(report)})
}

type enrichRequest struct {
    IOSAppID       string `json:"ios_app_id"`
    AndroidPackage string `json:"android_package"`
    PrimaryURL     string `json:"primary_url"`
}

// handleEnrich pulls fresh verification metrics for an existing product,
// resolved by the same identifier priority the claim checker uses.
func (s *Server) handleEnrich(w http.ResponseWriter, r *http.Request) {
    var req enrichRequest
    if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
        writeError(w, domain.ErrValidation)
        return
    }

    var (
        product domain.Product
        found   bool
        err     error
    )
    switch {
    case req.IOSAppID != "":
        product, found, err = s.products.FindByIOSAppID(r.Context(), req.IOSAppID)
    case req.AndroidPackage != "":
        product, found, err = s.products.FindByAndroidPackage(r.Context(), req.AndroidPackage)
    case req.PrimaryURL != "":
        product, found, err = s.products.FindByPrimaryURL(r.Context(), req.PrimaryURL)
    default:
        writeError(w, domain.ErrValidation)
        return
    }
    if err != nil {
        writeError(w, err)
        return
    }
    if !found {
        writeError(w, domain.ErrNotFound)
        return
    }

    added, err := s.enrich.EnrichProduct(r.Context(), product)
    if err != nil {
        writeError(w, err)
        return
    }
    writeJSON(w, http.StatusOK, map[string]any{"product_id": product.ID, "metrics_added": added})
}

type claimCheckRequest struct {
    AppName        string  `json:"app_name"`
    PrimaryURL     string  `json:"primary_url"`
    IOSAppID       string  `json:"ios_app_id"`
    AndroidPackage string  `json:"android_package"`
    ClaimedValue   float64 `json:"claimed_value"`
    Currency       string  `json:"currency"`
    ClaimType      string  `json:"claim_type"`
    TimeframeText  string  `json:"timeframe_text"`
    SourceURL      string  `json:"source_url"`
}

func (s *Server) handleClaimCheck(w http.ResponseWriter, r *http.Request) {
    var req claimCheckRequest
    if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
        writeError(w, domain.ErrValidation)
        return
    }
    result, err := s.claims.Check(r.Context(), claimssvc.CheckInput{
        AppName:        req.AppName,
        PrimaryURL:     req.PrimaryURL,
        IOSAppID:       req.IOSAppID,
        AndroidPackage: req.AndroidPackage,
        ClaimedValue:   req.ClaimedValue,
        Currency:       req.Currency,
        ClaimType:      req.ClaimType,
        TimeframeText:  req.TimeframeText,
        SourceURL:      req.SourceURL,
    })
    if err != nil {
        writeError(w, err)
        return
    }
    metrics.ClaimChecks.WithLabelValues(string(result.Assessment.Verdict)).Inc()

    metricsOut := make([]map[string]any, 0, len(result.Metrics))
    for _, m := range result.Metrics {
        metricsOut = append(metricsOut, map[string]any{
            "source":      m.Source,
            "metric_name": m.MetricName,
            "value":       m.Value,
            "is_verified": m.IsVerified,
        })
    }
    writeJSON(w, http.StatusOK, map[string]any{
        "product": map[string]any{
            "id":              result.Product.ID,
            "name":            result.Product.Name,
            "primary_url":     result.Product.PrimaryURL,
            "ios_app_id":      result.Product.IOSAppID,
            "android_package": result.Product.AndroidPackage,
        },
        "claim": map[string]any{
            "id":             result.Claim.ID,
            "claim_type":     result.Claim.ClaimType,
            "claimed_value":  result.Claim.ClaimedValue,
            "currency":       result.Claim.Currency,
            "timeframe_text": result.Claim.TimeframeText,
            "source_url":     result.Claim.SourceURL,
            "status":         result.Claim.Status,
        },
        "assessment": map[string]any{
            "verdict":                result.Assessment.Verdict,
            "confidence":             result.Assessment.Confidence,
            "max_plausible_estimate": result.Assessment.MaxPlausibleEstimate,
            "notes":                  result.Assessment.Notes,
        },
        "metrics": metricsOut,
        "verification": map[string]any{
            "has_verified_revenue": result.Verification.HasVerifiedRevenue,
            "has_store_metrics":    result.Verification.HasStoreMetrics,
            "verified_revenue":     result.Verification.VerifiedRevenue,
        },
    })
}

func reportBody(report domain.UserReport) map[string]any {
    return map[string]any{
        "id":           report.ID,
        "site_id":      report.SiteID,
        "report_type":  report.ReportType,
        "description":  report.Description,
        "has_evidence": report.HasEvidence,
        "status":       report.Status,
        "created_at":   report.CreatedAt,
    }
}

func writeJSON(w http.ResponseWriter, status int, body any) {
    w.Header().Set("Content-Type", "application/json")
    w.WriteHeader(status)
    if err := json.NewEncoder(w).Encode(body); err != nil {
        log.Printf("write response: %v", err)
    }
}

func writeError(w http.ResponseWriter, err error) {
    status := http.StatusInternalServerError
    switch {
    case errors.Is(err, domain.ErrValidation):
        status = http.StatusBadRequest
    case errors.Is(err, domain.ErrNotFound):
        status = http.StatusNotFound
    case errors.Is(err, domain.ErrDependency):
        status = http.StatusBadGateway
    }
    writeJSON(w, status, map[string]string{"error": err.Error()})
}
