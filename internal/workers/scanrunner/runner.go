package scanrunner

import (
    "context"
    "log"
    "time"

    "riskscope/internal/domain"
    "riskscope/internal/ports"
)

// ScanProcessor performs the scan work for a job's scan id.
type ScanProcessor interface {
    Process(ctx context.Context, scanID string) error
}

// RescanProcessor re-collects system signals for the scanned site and
// recomputes its risk score. User/admin signals are permanent history; only
// the system-sourced set is replaced, atomically, so a concurrent score read
// never sees the deleted-but-not-reinserted state.
type RescanProcessor struct {
    Scans   ports.ScanRepository
    Sites   ports.SiteRepository
    Signals ports.SignalRepository
    Jobs    ports.JobRepository
    Source  ports.SignalSource
}

func (p RescanProcessor) Process(ctx context.Context, scanID string) error {
    siteID, err := p.Scans.SiteForScan(ctx, scanID)
    if err != nil {
        return err
    }
    site, err := p.Sites.GetByID(ctx, siteID)
    if err != nil {
        return err
    }
    if err := p.Jobs.UpdateScanProgress(ctx, scanID, 0.25); err != nil {
        return err
    }

    collected, err := p.Source.Collect(ctx, site.NormalizedDomain)
    if err != nil {
        return err
    }
    if err := p.Jobs.UpdateScanProgress(ctx, scanID, 0.5); err != nil {
        return err
    }

    if err := p.Signals.ReplaceSystemSignals(ctx, site.ID, collected); err != nil {
        return err
    }
    if err := p.Jobs.UpdateScanProgress(ctx, scanID, 0.75); err != nil {
        return err
    }

    // Score the full set: fresh system signals plus permanent user/admin ones.
    signals, err := p.Signals.FetchSignals(ctx, site.ID)
    if err != nil {
        return err
    }
    score, level := domain.CalculateRiskScore(signals)
    if err := p.Sites.UpdateScore(ctx, site.ID, score, level, len(signals)); err != nil {
        return err
    }
    return p.Jobs.UpdateScanProgress(ctx, scanID, 1.0)
}

// NoopSignalSource collects no signals. Replace with a real page analyzer.
type NoopSignalSource struct{}

func (NoopSignalSource) Collect(ctx context.Context, host string) ([]domain.NewSignal, error) {
    return nil, nil
}

// Run starts worker goroutines that claim jobs and process them.
func Run(ctx context.Context, repo ports.JobRepository, processor ScanProcessor, concurrency int, pollInterval time.Duration) {
    if concurrency < 1 {
        return
    }
    jobsCh := make(chan ports.ScanJob, concurrency)

    // dispatcher loop
    go func() {
        ticker := time.NewTicker(pollInterval)
        defer ticker.Stop()
        for {
            select {
            case <-ctx.Done():
                close(jobsCh)
                return
            case <-ticker.C:
                for {
                    job, found, err := repo.ClaimNext(ctx)
                    if err != nil {
                        log.Printf("job claim error: %v", err)
                        break
                    }
                    if !found {
                        break
                    }
                    jobsCh <- ports.ScanJob{ID: job.ID, ScanID: job.ScanID}
                }
            }
        }
    }()

    // workers
    for i := 0; i < concurrency; i++ {
        go func(idx int) {
            for job := range jobsCh {
                if err := processor.Process(ctx, job.ScanID); err != nil {
                    _ = repo.MarkFailed(ctx, job.ID, err.Error())
                    log.Printf("worker %d: job %s failed: %v", idx, job.ID, err)
                    continue
                }
                if err := repo.MarkCompleted(ctx, job.ID); err != nil {
                    log.Printf("worker %d: complete err: %v", idx, err)
                }
            }
        }(i)
    }
}

// ProcessInline starts and processes a specific scan synchronously using the
// same processor logic as the background workers.
func ProcessInline(ctx context.Context, repo ports.JobRepository, processor ScanProcessor, scanID string) error {
    jobID, err := repo.StartJobForScan(ctx, scanID)
    if err != nil {
        return err
    }
    if err := processor.Process(ctx, scanID); err != nil {
        _ = repo.MarkFailed(ctx, jobID, err.Error())
        return err
    }
    return repo.MarkCompleted(ctx, jobID)
}
