package postgres

import (
    "context"
    "errors"
    "fmt"
    "time"

    "github.com/jackc/pgx/v5"

    "riskscope/internal/domain"
    "riskscope/internal/ports"
)

// ScanRepository

func (db *DB) CreateScan(ctx context.Context, siteID string, url string) (string, error) {
    var scanID string
    err := db.Pool.QueryRow(ctx, `
        INSERT INTO scans (site_id, url, status, progress)
        VALUES ($1, $2, 'queued', 0)
        RETURNING id
    `, siteID, url).Scan(&scanID)
    if err != nil {
        return "", err
    }
    // create job row
    _, err = db.Pool.Exec(ctx, `INSERT INTO scan_jobs (scan_id) VALUES ($1)`, scanID)
    return scanID, err
}

func (db *DB) ScanStatus(ctx context.Context, scanID string) (string, float64, error) {
    var status string
    var progress float64
    err := db.Pool.QueryRow(ctx, `SELECT status, progress FROM scans WHERE id = $1`, scanID).Scan(&status, &progress)
    if errors.Is(err, pgx.ErrNoRows) {
        return "", 0, fmt.Errorf("%w: scan %s", domain.ErrNotFound, scanID)
    }
    return status, progress, err
}

func (db *DB) SiteForScan(ctx context.Context, scanID string) (string, error) {
    var siteID string
    err := db.Pool.QueryRow(ctx, `SELECT site_id FROM scans WHERE id = $1`, scanID).Scan(&siteID)
    if errors.Is(err, pgx.ErrNoRows) {
        return "", fmt.Errorf("%w: scan %s", domain.ErrNotFound, scanID)
    }
    return siteID, err
}

// JobRepository

// ClaimNext selects the next queued job using SKIP LOCKED and marks it running.
func (db *DB) ClaimNext(ctx context.Context) (job ports.ScanJob, found bool, err error) {
    // Use explicit transaction to safely lock and transition state
    tx, err := db.Pool.BeginTx(ctx, pgx.TxOptions{})
    if err != nil {
        return job, false, err
    }
    defer func() {
        if err != nil {
            _ = tx.Rollback(ctx)
        } else {
            _ = tx.Commit(ctx)
        }
    }()

    err = tx.QueryRow(ctx, `
        SELECT id, scan_id FROM scan_jobs
        WHERE status = 'queued'
        ORDER BY queued_at
        FOR UPDATE SKIP LOCKED
        LIMIT 1
    `).Scan(&job.ID, &job.ScanID)
    if errors.Is(err, pgx.ErrNoRows) {
        return job, false, nil
    }
    if err != nil {
        return job, false, err
    }

    if _, err = tx.Exec(ctx, `
        UPDATE scan_jobs SET status='running', started_at=now(), attempts=attempts+1 WHERE id=$1
    `, job.ID); err != nil {
        return job, false, err
    }
    if _, err = tx.Exec(ctx, `
        UPDATE scans SET status='running', started_at=COALESCE(started_at, now()) WHERE id=$1
    `, job.ScanID); err != nil {
        return job, false, err
    }
    return job, true, nil
}

func (db *DB) UpdateScanProgress(ctx context.Context, scanID string, progress float64) error {
    if progress < 0 {
        progress = 0
    }
    if progress > 1 {
        progress = 1
    }
    _, err := db.Pool.Exec(ctx, `UPDATE scans SET progress=$2 WHERE id=$1`, scanID, progress)
    return err
}

func (db *DB) MarkCompleted(ctx context.Context, jobID string) error {
    // complete job and scan atomically
    ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
    defer cancel()
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

    var scanID string
    if err = tx.QueryRow(ctx, `SELECT scan_id FROM scan_jobs WHERE id=$1`, jobID).Scan(&scanID); err != nil {
        return err
    }
    if _, err = tx.Exec(ctx, `UPDATE scan_jobs SET status='completed', finished_at=now() WHERE id=$1`, jobID); err != nil {
        return err
    }
    if _, err = tx.Exec(ctx, `UPDATE scans SET status='completed', progress=1, finished_at=now() WHERE id=$1`, scanID); err != nil {
        return err
    }
    return nil
}

func (db *DB) MarkFailed(ctx context.Context, jobID string, reason string) error {
    ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
    defer cancel()
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
    var scanID string
    if err = tx.QueryRow(ctx, `SELECT scan_id FROM scan_jobs WHERE id=$1`, jobID).Scan(&scanID); err != nil {
        return err
    }
    if _, err = tx.Exec(ctx, `UPDATE scan_jobs SET status='failed', finished_at=now(), last_error=$2 WHERE id=$1`, jobID, reason); err != nil {
        return err
    }
    if _, err = tx.Exec(ctx, `UPDATE scans SET status='failed', finished_at=now() WHERE id=$1`, scanID); err != nil {
        return err
    }
    return nil
}

// StartJobForScan marks the job for a specific scan as running and returns the job id.
func (db *DB) StartJobForScan(ctx context.Context, scanID string) (string, error) {
    tx, err := db.Pool.BeginTx(ctx, pgx.TxOptions{})
    if err != nil {
        return "", err
    }
    defer func() {
        if err != nil {
            _ = tx.Rollback(ctx)
        } else {
            _ = tx.Commit(ctx)
        }
    }()

    var jobID string
    // lock specific job row if queued
    err = tx.QueryRow(ctx, `
        SELECT id FROM scan_jobs
        WHERE scan_id = $1 AND status = 'queued'
        FOR UPDATE SKIP LOCKED
    `, scanID).Scan(&jobID)
    if errors.Is(err, pgx.ErrNoRows) {
        // A background worker claimed the job first.
        err = fmt.Errorf("%w: scan %s already claimed", ports.ErrConflict, scanID)
        return "", err
    }
    if err != nil {
        return "", err
    }
    if _, err = tx.Exec(ctx, `UPDATE scan_jobs SET status='running', started_at=now(), attempts=attempts+1 WHERE id=$1`, jobID); err != nil {
        return "", err
    }
    if _, err = tx.Exec(ctx, `UPDATE scans SET status='running', started_at=COALESCE(started_at, now()) WHERE id=$1`, scanID); err != nil {
        return "", err
    }
    return jobID, nil
}
