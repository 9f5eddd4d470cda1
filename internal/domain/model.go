package domain

import "time"

// Core domain models. These are immutable value snapshots passed between
// pipeline stages; status transitions produce a new version through the store
// interfaces rather than mutating a shared object.

type RiskLevel string

const (
    LevelLow      RiskLevel = "low"
    LevelMedium   RiskLevel = "medium"
    LevelHigh     RiskLevel = "high"
    LevelCritical RiskLevel = "critical"
)

type SignalSource string

const (
    SourceSystem SignalSource = "system"
    SourceUser   SignalSource = "user"
    SourceAdmin  SignalSource = "admin"
)

type Site struct {
    ID                string
    Domain            string
    NormalizedDomain  string
    RegistrableDomain string // eTLD+1 when derivable, for grouping only
    RiskScore         int
    RiskLevel         RiskLevel
    TotalSignals      int
    TotalReports      int
    FirstSeenAt       time.Time
    LastCheckedAt     *time.Time
}

// RiskSignal is a discrete, severity-weighted piece of evidence about a site.
// Signals are immutable once created; corrections are expressed by adding new
// signals. Only system-sourced signals may be bulk-replaced during a rescan.
type RiskSignal struct {
    ID          string
    SiteID      string
    Type        string
    Dimension   string // identity | offer | technical | reputation
    Severity    int    // 0..10
    Source      SignalSource
    Description string
    CreatedAt   time.Time
}

// NewSignal is the pre-persistence form of a RiskSignal.
type NewSignal struct {
    Type        string
    Dimension   string
    Severity    int
    Source      SignalSource
    Description string
}

type ReportStatus string

const (
    ReportNew       ReportStatus = "new"
    ReportReviewed  ReportStatus = "reviewed"
    ReportDismissed ReportStatus = "dismissed"
    ReportConfirmed ReportStatus = "confirmed"
)

type UserReport struct {
    ID          string
    SiteID      string
    ReportType  string
    Description string
    HasEvidence bool
    Status      ReportStatus
    CreatedAt   time.Time
}

type Product struct {
    ID             string
    Name           string
    Type           string // mobile_app
    PrimaryURL     *string
    IOSAppID       *string
    AndroidPackage *string
    CreatedAt      time.Time
}

type ClaimStatus string

const (
    ClaimNew      ClaimStatus = "new"
    ClaimAnalyzed ClaimStatus = "analyzed"
)

// Claim is append-only: every check request creates a new row so the claims
// table is a full audit trail. Only the status transition new -> analyzed is
// recorded after creation.
type Claim struct {
    ID            string
    ProductID     string
    ClaimType     string // e.g. mrr, monthly_income
    ClaimedValue  float64
    Currency      string
    TimeframeText *string
    SourceURL     *string
    Status        ClaimStatus
    CreatedAt     time.Time
}

// Metric sources, in store-lookup priority order for proxy metrics.
const (
    MetricSourceAndroid = "android_store"
    MetricSourceIOS     = "ios_store"
    MetricSourceStripe  = "stripe_verified"
)

// Well-known metric names.
const (
    MetricDownloadsLifetime = "downloads_lifetime"
    MetricPriceUSD          = "price_usd"
    MetricRevenue30d        = "revenue_30d_verified"
)

type VerificationMetric struct {
    ID         string
    ProductID  string
    Source     string
    MetricName string
    Value      float64
    IsVerified bool
    CapturedAt time.Time
}

// NewMetric is the pre-persistence form of a VerificationMetric.
type NewMetric struct {
    Source     string
    MetricName string
    Value      float64
    IsVerified bool
}

type Verdict string

const (
    VerdictVerified   Verdict = "verified"
    VerdictPlausible  Verdict = "plausible"
    VerdictUnlikely   Verdict = "unlikely"
    VerdictNoEvidence Verdict = "no_evidence"
)

type ClaimAssessment struct {
    ID             string
    ClaimID        string
    AssessmentType string // plausibility
    Verdict        Verdict
    Confidence     float64
    // MaxPlausibleEstimate is the computed upper bound for believable revenue;
    // nil when no evidence supports one.
    MaxPlausibleEstimate *float64
    Notes                string
    CreatedAt            time.Time
}

type ScanStatus string

const (
    ScanQueued    ScanStatus = "queued"
    ScanRunning   ScanStatus = "running"
    ScanCompleted ScanStatus = "completed"
    ScanFailed    ScanStatus = "failed"
)

type Scan struct {
    ID         string
    SiteID     string
    URL        string
    Status     ScanStatus
    Progress   float64
    StartedAt  *time.Time
    FinishedAt *time.Time
}
