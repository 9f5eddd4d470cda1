package main

import (
    "context"
    "fmt"
    "log"
    "net/http"
    "os"
    "os/signal"
    "syscall"
    "time"

    "github.com/go-chi/chi/v5"

    httpadapter "riskscope/internal/adapters/http"
    pg "riskscope/internal/adapters/postgres"
    "riskscope/internal/config"
    ports "riskscope/internal/ports"
    claimssvc "riskscope/internal/services/claims"
    enrichsvc "riskscope/internal/services/enrich"
    reportssvc "riskscope/internal/services/reports"
    sitessvc "riskscope/internal/services/sites"
    scanworker "riskscope/internal/workers/scanrunner"
)

func main() {
    cfg, err := config.Load()
    if err != nil {
        log.Printf("warning: %v", err)
    }
    if cfg.DatabaseURL == "" {
        log.Fatal("DATABASE_URL is required for Postgres adapters")
    }

    ctx, cancel := context.WithCancel(context.Background())
    defer cancel()

    db, err := pg.Connect(ctx, cfg.DatabaseURL)
    if err != nil {
        log.Fatalf("db connect error: %v", err)
    }
    defer db.Close()

    // Wire repositories to services (ports)
    var _ ports.SiteRepository = db
    var _ ports.SignalRepository = db
    var _ ports.ProductRepository = db
    var _ ports.JobRepository = db

    sites := sitessvc.New(db, db, db)
    reports := reportssvc.New(db, db, db)
    claims := claimssvc.New(db, db, db, db)
    enrich := enrichsvc.New(db, enrichsvc.NoopStoreProvider{}, enrichsvc.NoopPaymentProvider{})

    processor := scanworker.RescanProcessor{
        Scans:   db,
        Sites:   db,
        Signals: db,
        Jobs:    db,
        Source:  scanworker.NoopSignalSource{},
    }
    srv := httpadapter.New(sites, reports, claims, enrich, db, db, processor)
    r := chi.NewRouter()
    r.Mount("/", srv.Routes())

    // Optional background job workers
    if cfg.ScanWorkers > 0 {
        go scanworker.Run(ctx, db, processor, cfg.ScanWorkers, 500*time.Millisecond)
        log.Printf("scan workers started: %d", cfg.ScanWorkers)
    }

    errCh := make(chan error, 1)
    go func() { errCh <- http.ListenAndServe(cfg.ListenAddr, r) }()
    log.Printf("listening on %s", cfg.ListenAddr)

    sigCh := make(chan os.Signal, 1)
    signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
    select {
    case sig := <-sigCh:
        log.Printf("shutting down on %s", sig)
        cancel()
        time.Sleep(300 * time.Millisecond)
    case err := <-errCh:
        log.Fatal(fmt.Errorf("server error: %w", err))
    }
}
