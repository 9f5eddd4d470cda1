package postgres

import (
    "context"
    "errors"
    "fmt"

    "github.com/jackc/pgx/v5"

    "riskscope/internal/domain"
)

const siteColumns = `id, domain, normalized_domain, registrable_domain, risk_score, risk_level, total_signals, total_reports, first_seen_at, last_checked_at`

func scanSite(row pgx.Row) (domain.Site, error) {
    var s domain.Site
    var level string
    err := row.Scan(&s.ID, &s.Domain, &s.NormalizedDomain, &s.RegistrableDomain,
        &s.RiskScore, &level, &s.TotalSignals, &s.TotalReports, &s.FirstSeenAt, &s.LastCheckedAt)
    s.RiskLevel = domain.RiskLevel(level)
    return s, err
}

// SiteRepository

func (db *DB) GetOrCreate(ctx context.Context, display, normalized, registrable string) (domain.Site, error) {
    // The no-op DO UPDATE makes RETURNING yield the existing row on conflict.
    row := db.Pool.QueryRow(ctx, `
        INSERT INTO sites (domain, normalized_domain, registrable_domain, risk_score, risk_level, total_signals, total_reports)
        VALUES ($1, $2, $3, 0, 'low', 0, 0)
        ON CONFLICT (normalized_domain) DO UPDATE SET normalized_domain = EXCLUDED.normalized_domain
        RETURNING `+siteColumns, display, normalized, registrable)
    return scanSite(row)
}

func (db *DB) GetByNormalizedDomain(ctx context.Context, normalized string) (domain.Site, error) {
    row := db.Pool.QueryRow(ctx, `SELECT `+siteColumns+` FROM sites WHERE normalized_domain = $1`, normalized)
    site, err := scanSite(row)
    if errors.Is(err, pgx.ErrNoRows) {
        return domain.Site{}, fmt.Errorf("%w: site %s", domain.ErrNotFound, normalized)
    }
    return site, err
}

func (db *DB) GetByID(ctx context.Context, siteID string) (domain.Site, error) {
    row := db.Pool.QueryRow(ctx, `SELECT `+siteColumns+` FROM sites WHERE id = $1`, siteID)
    site, err := scanSite(row)
    if errors.Is(err, pgx.ErrNoRows) {
        return domain.Site{}, fmt.Errorf("%w: site %s", domain.ErrNotFound, siteID)
    }
    return site, err
}

func (db *DB) UpdateScore(ctx context.Context, siteID string, score int, level domain.RiskLevel, totalSignals int) error {
    _, err := db.Pool.Exec(ctx, `
        UPDATE sites
        SET risk_score = $2, risk_level = $3, total_signals = $4, last_checked_at = now(), updated_at = now()
        WHERE id = $1
    `, siteID, score, string(level), totalSignals)
    return err
}

func (db *DB) IncrementReports(ctx context.Context, siteID string) error {
    _, err := db.Pool.Exec(ctx, `UPDATE sites SET total_reports = total_reports + 1, updated_at = now() WHERE id = $1`, siteID)
    return err
}

// SignalRepository

const signalColumns = `id, site_id, type, dimension, severity, source, COALESCE(description, ''), created_at`

func (db *DB) FetchSignals(ctx context.Context, siteID string) ([]domain.RiskSignal, error) {
    rows, err := db.Pool.Query(ctx, `SELECT `+signalColumns+` FROM risk_signals WHERE site_id = $1 ORDER BY created_at`, siteID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()

    var signals []domain.RiskSignal
    for rows.Next() {
        var s domain.RiskSignal
        var source string
        if err := rows.Scan(&s.ID, &s.SiteID, &s.Type, &s.Dimension, &s.Severity, &source, &s.Description, &s.CreatedAt); err != nil {
            return nil, err
        }
        s.Source = domain.SignalSource(source)
        signals = append(signals, s)
    }
    return signals, rows.Err()
}

func (db *DB) AppendSignals(ctx context.Context, siteID string, signals []domain.NewSignal) error {
    if len(signals) == 0 {
        return nil
    }
    batch := &pgx.Batch{}
    for _, s := range signals {
        batch.Queue(`
            INSERT INTO risk_signals (site_id, type, dimension, severity, source, description)
            VALUES ($1, $2, $3, $4, $5, $6)
        `, siteID, s.Type, s.Dimension, s.Severity, string(s.Source), s.Description)
    }
    return db.Pool.SendBatch(ctx, batch).Close()
}

// ReplaceSystemSignals swaps the system-sourced signal set in one transaction
// so concurrent readers see either the old set or the new one, never the gap.
func (db *DB) ReplaceSystemSignals(ctx context.Context, siteID string, signals []domain.NewSignal) error {
    tx, err := db.Pool.BeginTx(ctx, pgx.TxOptions{})
    if err != nil {
        return err
    }
    defer func() {
        if err != nil {
            _ = tx.Rollback(ctx)
        } else {
            _ = tx.Commit(ctx)
        }
    }()

    if _, err = tx.Exec(ctx, `DELETE FROM risk_signals WHERE site_id = $1 AND source = 'system'`, siteID); err != nil {
        return err
    }
    for _, s := range signals {
        if _, err = tx.Exec(ctx, `
            INSERT INTO risk_signals (site_id, type, dimension, severity, source, description)
            VALUES ($1, $2, $3, $4, 'system', $5)
        `, siteID, s.Type, s.Dimension, s.Severity, s.Description); err != nil {
            return err
        }
    }
    return nil
}

// ReportRepository

const reportColumns = `id, site_id, report_type, COALESCE(description, ''), has_evidence, status, created_at`

func scanReport(row pgx.Row) (domain.UserReport, error) {
    var r domain.UserReport
    var status string
    err := row.Scan(&r.ID, &r.SiteID, &r.ReportType, &r.Description, &r.HasEvidence, &status, &r.CreatedAt)
    r.Status = domain.ReportStatus(status)
    return r, err
}

func (db *DB) CreateReport(ctx context.Context, siteID string, report domain.UserReport) (domain.UserReport, error) {
    row := db.Pool.QueryRow(ctx, `
        INSERT INTO user_reports (site_id, report_type, description, has_evidence, status)
        VALUES ($1, $2, $3, $4, 'new')
        RETURNING `+reportColumns, siteID, report.ReportType, report.Description, report.HasEvidence)
    return scanReport(row)
}

func (db *DB) GetReport(ctx context.Context, reportID string) (domain.UserReport, error) {
    row := db.Pool.QueryRow(ctx, `SELECT `+reportColumns+` FROM user_reports WHERE id = $1`, reportID)
    report, err := scanReport(row)
    if errors.Is(err, pgx.ErrNoRows) {
        return domain.UserReport{}, fmt.Errorf("%w: report %s", domain.ErrNotFound, reportID)
    }
    return report, err
}

func (db *DB) ListOpenReports(ctx context.Context) ([]domain.UserReport, error) {
    rows, err := db.Pool.Query(ctx, `
        SELECT `+reportColumns+` FROM user_reports
        WHERE status IN ('new', 'confirmed')
        ORDER BY created_at DESC
    `)
    if err != nil {
        return nil, err
    }
    defer rows.Close()

    var reports []domain.UserReport
    for rows.Next() {
        var r domain.UserReport
        var status string
        if err := rows.Scan(&r.ID, &r.SiteID, &r.ReportType, &r.Description, &r.HasEvidence, &status, &r.CreatedAt); err != nil {
            return nil, err
        }
        r.Status = domain.ReportStatus(status)
        reports = append(reports, r)
    }
    return reports, rows.Err()
}

func (db *DB) SetReportStatus(ctx context.Context, reportID string, status domain.ReportStatus) (domain.UserReport, error) {
    row := db.Pool.QueryRow(ctx, `
        UPDATE user_reports SET status = $2 WHERE id = $1
        RETURNING `+reportColumns, reportID, string(status))
    report, err := scanReport(row)
    if errors.Is(err, pgx.ErrNoRows) {
        return domain.UserReport{}, fmt.Errorf("%w: report %s", domain.ErrNotFound, reportID)
    }
    return report, err
}
