package metrics

import (
    "github.com/prometheus/client_golang/prometheus"
    "github.com/prometheus/client_golang/prometheus/promauto"
)

var (
    ClaimChecks = promauto.NewCounterVec(
        prometheus.CounterOpts{
            Name: "riskscope_claim_checks_total",
            Help: "Claim checks performed, by verdict",
        },
        []string{"verdict"},
    )

    ScansEnqueued = promauto.NewCounter(
        prometheus.CounterOpts{
            Name: "riskscope_scans_enqueued_total",
            Help: "Domain scans enqueued",
        },
    )

    ReportsReceived = promauto.NewCounterVec(
        prometheus.CounterOpts{
            Name: "riskscope_reports_received_total",
            Help: "User reports received, by report type",
        },
        []string{"report_type"},
    )
)
