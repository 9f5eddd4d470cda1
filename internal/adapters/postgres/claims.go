package postgres

import (
    "context"
    "errors"
    "fmt"

    "github.com/jackc/pgx/v5"
    "github.com/jackc/pgx/v5/pgconn"

    "riskscope/internal/domain"
    "riskscope/internal/ports"
)

const uniqueViolation = "23505"

// ProductRepository

const productColumns = `id, name, type, primary_url, ios_app_id, android_package, created_at`

func scanProduct(row pgx.Row) (domain.Product, error) {
    var p domain.Product
    err := row.Scan(&p.ID, &p.Name, &p.Type, &p.PrimaryURL, &p.IOSAppID, &p.AndroidPackage, &p.CreatedAt)
    return p, err
}

func (db *DB) findProductBy(ctx context.Context, column, value string) (domain.Product, bool, error) {
    row := db.Pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE `+column+` = $1`, value)
    p, err := scanProduct(row)
    if errors.Is(err, pgx.ErrNoRows) {
        return domain.Product{}, false, nil
    }
    if err != nil {
        return domain.Product{}, false, err
    }
    return p, true, nil
}

func (db *DB) FindByIOSAppID(ctx context.Context, iosAppID string) (domain.Product, bool, error) {
    return db.findProductBy(ctx, "ios_app_id", iosAppID)
}

func (db *DB) FindByAndroidPackage(ctx context.Context, pkg string) (domain.Product, bool, error) {
    return db.findProductBy(ctx, "android_package", pkg)
}

func (db *DB) FindByPrimaryURL(ctx context.Context, url string) (domain.Product, bool, error) {
    return db.findProductBy(ctx, "primary_url", url)
}

// Create inserts a product. A unique-index violation on any platform
// identifier surfaces as ports.ErrConflict so callers re-fetch instead of
// failing; that is what keeps resolution at one row per identifier under
// concurrent creation.
func (db *DB) Create(ctx context.Context, attrs ports.ProductAttrs) (domain.Product, error) {
    row := db.Pool.QueryRow(ctx, `
        INSERT INTO products (name, type, primary_url, ios_app_id, android_package)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING `+productColumns,
        attrs.Name, attrs.Type, attrs.PrimaryURL, attrs.IOSAppID, attrs.AndroidPackage)
    p, err := scanProduct(row)
    var pgErr *pgconn.PgError
    if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
        return domain.Product{}, ports.ErrConflict
    }
    return p, err
}

// ClaimRepository

const claimColumns = `id, product_id, claim_type, claimed_value, currency, timeframe_text, source_url, status, created_at`

func (db *DB) CreateClaim(ctx context.Context, productID string, payload ports.ClaimPayload) (domain.Claim, error) {
    row := db.Pool.QueryRow(ctx, `
        INSERT INTO claims (product_id, claim_type, claimed_value, currency, timeframe_text, source_url, status)
        VALUES ($1, $2, $3, $4, $5, $6, 'new')
        RETURNING `+claimColumns,
        productID, payload.ClaimType, payload.ClaimedValue, payload.Currency, payload.TimeframeText, payload.SourceURL)

    var c domain.Claim
    var status string
    err := row.Scan(&c.ID, &c.ProductID, &c.ClaimType, &c.ClaimedValue, &c.Currency, &c.TimeframeText, &c.SourceURL, &status, &c.CreatedAt)
    c.Status = domain.ClaimStatus(status)
    return c, err
}

func (db *DB) SetClaimStatus(ctx context.Context, claimID string, status domain.ClaimStatus) error {
    tag, err := db.Pool.Exec(ctx, `UPDATE claims SET status = $2 WHERE id = $1`, claimID, string(status))
    if err != nil {
        return err
    }
    if tag.RowsAffected() == 0 {
        return fmt.Errorf("%w: claim %s", domain.ErrNotFound, claimID)
    }
    return nil
}

// MetricRepository

func (db *DB) FetchMetrics(ctx context.Context, productID string) ([]domain.VerificationMetric, error) {
    rows, err := db.Pool.Query(ctx, `
        SELECT id, product_id, source, metric_name, metric_value, is_verified, captured_at
        FROM verification_metrics
        WHERE product_id = $1
        ORDER BY captured_at
    `, productID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()

    var metrics []domain.VerificationMetric
    for rows.Next() {
        var m domain.VerificationMetric
        if err := rows.Scan(&m.ID, &m.ProductID, &m.Source, &m.MetricName, &m.Value, &m.IsVerified, &m.CapturedAt); err != nil {
            return nil, err
        }
        metrics = append(metrics, m)
    }
    return metrics, rows.Err()
}

func (db *DB) AppendMetrics(ctx context.Context, productID string, metrics []domain.NewMetric) error {
    if len(metrics) == 0 {
        return nil
    }
    batch := &pgx.Batch{}
    for _, m := range metrics {
        batch.Queue(`
            INSERT INTO verification_metrics (product_id, source, metric_name, metric_value, is_verified)
            VALUES ($1, $2, $3, $4, $5)
        `, productID, m.Source, m.MetricName, m.Value, m.IsVerified)
    }
    return db.Pool.SendBatch(ctx, batch).Close()
}

// AssessmentRepository

func (db *DB) CreateAssessment(ctx context.Context, claimID string, result domain.AssessmentResult) (domain.ClaimAssessment, error) {
    row := db.Pool.QueryRow(ctx, `
        INSERT INTO claim_assessments (claim_id, assessment_type, verdict, confidence, max_plausible_estimate, notes)
        VALUES ($1, 'plausibility', $2, $3, $4, $5)
        RETURNING id, claim_id, assessment_type, verdict, confidence, max_plausible_estimate, COALESCE(notes, ''), created_at
    `, claimID, string(result.Verdict), result.Confidence, result.MaxPlausibleEstimate, result.Notes)

    var a domain.ClaimAssessment
    var verdict string
    err := row.Scan(&a.ID, &a.ClaimID, &a.AssessmentType, &verdict, &a.Confidence, &a.MaxPlausibleEstimate, &a.Notes, &a.CreatedAt)
    a.Verdict = domain.Verdict(verdict)
    return a, err
}
