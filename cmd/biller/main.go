package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	billingapp "github.com/warebill/backend/internal/application/billing"
	"github.com/warebill/backend/internal/domain/billing"
	"github.com/warebill/backend/internal/infrastructure/cache"
	"github.com/warebill/backend/internal/infrastructure/config"
	"github.com/warebill/backend/internal/infrastructure/feed"
	"github.com/warebill/backend/internal/infrastructure/logger"
	"github.com/warebill/backend/internal/infrastructure/persistence"
)

func main() {
	var (
		periodFlag string
		skipFetch  bool
		actor      string
		reason     string
	)
	flag.StringVar(&periodFlag, "period", "", "Billing period as YYYY-MM (default: previous month)")
	flag.BoolVar(&skipFetch, "skip-fetch", false, "Skip the upstream feed fetch and run the pipeline over already ingested data")
	flag.StringVar(&actor, "actor", "", "Operator identity for administrative commands")
	flag.StringVar(&reason, "reason", "", "Justification recorded with administrative commands")
	flag.Parse()

	command := "run"
	if args := flag.Args(); len(args) > 0 {
		command = args[0]
	}

	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()

	if err := db.Migrate(); err != nil {
		log.Fatal("Failed to run migrations", zap.Error(err))
	}
	if command == "migrate" {
		log.Info("Migrations complete")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	redisClient, err := cache.NewRedisClient(cache.RedisConfig{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		log.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			log.Warn("Failed to close Redis client", zap.Error(err))
		}
	}()

	assemblyLock := cache.NewRedisAssemblyLockWithClient(redisClient, "")

	// Repositories
	transactionRepo := persistence.NewGormTransactionRepository(db.DB)
	ruleRepo := persistence.NewGormPricingRuleRepository(db.DB)
	invoiceRepo := persistence.NewGormGeneratedInvoiceRepository(db.DB)
	upstreamInvoiceRepo := persistence.NewGormUpstreamInvoiceRepository(db.DB)
	discrepancyRepo := persistence.NewGormDiscrepancyReportRepository(db.DB)
	pendingRepo := persistence.NewGormPendingAttributionRepository(db.DB)
	runReportRepo := persistence.NewGormRunReportRepository(db.DB)
	tenantRepo := persistence.NewGormTenantRepository(db.DB)
	auditRepo := persistence.NewGormAuditRepository(db.DB)

	// Owned-entity lookup behind a two-tier positive-result cache
	ownedEntityLookup := cache.NewCachedOwnedEntityLookup(
		persistence.NewGormOwnedEntityLookup(db.DB),
		cache.WithOwnedEntityLogger(log),
		cache.WithOwnedEntityRedis(redisClient),
	)
	defer ownedEntityLookup.Stop()

	// Application services
	ingestionService := billingapp.NewIngestionService(transactionRepo, log)
	attributionService := billingapp.NewAttributionService(
		transactionRepo,
		pendingRepo,
		billing.NewAttributionResolver(ownedEntityLookup),
		billingapp.AttributionServiceConfig{
			MaxPendingRetries: cfg.Attribution.MaxPendingRetries,
			RetryDelay:        cfg.Attribution.RetryDelay,
			BatchSize:         cfg.Attribution.BatchSize,
		},
		log,
	)
	pricingService := billingapp.NewPricingService(transactionRepo, ruleRepo, cfg.Attribution.BatchSize, log)
	assemblyService := billingapp.NewAssemblyService(
		transactionRepo, invoiceRepo, tenantRepo, assemblyLock, cfg.Assembly.LockTTL, log,
	)
	reconciliationService := billingapp.NewReconciliationService(
		upstreamInvoiceRepo, transactionRepo, discrepancyRepo, toleranceConfig(cfg), log,
	)
	runService := billingapp.NewRunService(
		ingestionService, attributionService, pricingService,
		assemblyService, reconciliationService, runReportRepo, log,
	)
	adminService := billingapp.NewAdminService(transactionRepo, invoiceRepo, pendingRepo, auditRepo, log)

	switch command {
	case "run":
		runPipeline(ctx, cfg, periodFlag, skipFetch, ingestionService, upstreamInvoiceRepo, runService, log)
	case "reset":
		invoiceID := parseUUIDArg(flag.Args(), 1, "invoice id", log)
		err := adminService.ResetInvoice(ctx, billingapp.ResetInvoiceInput{
			InvoiceID: invoiceID,
			Actor:     actor,
			Reason:    reason,
		})
		if err != nil {
			log.Fatal("Invoice reset failed", zap.String("invoice_id", invoiceID.String()), zap.Error(err))
		}
		log.Info("Invoice reset", zap.String("invoice_id", invoiceID.String()))
	case "force-attribute":
		transactionID := parseUUIDArg(flag.Args(), 1, "transaction id", log)
		tenantID := parseUUIDArg(flag.Args(), 2, "tenant id", log)
		err := adminService.ForceAttribute(ctx, billingapp.ForceAttributeInput{
			TransactionID: transactionID,
			TenantID:      tenantID,
			Actor:         actor,
			Reason:        reason,
		})
		if err != nil {
			log.Fatal("Forced attribution failed", zap.String("transaction_id", transactionID.String()), zap.Error(err))
		}
		log.Info("Transaction attributed",
			zap.String("transaction_id", transactionID.String()),
			zap.String("tenant_id", tenantID.String()))
	case "approve":
		invoiceID := parseUUIDArg(flag.Args(), 1, "invoice id", log)
		err := adminService.ApproveInvoice(ctx, billingapp.InvoiceTransitionInput{
			InvoiceID: invoiceID,
			Actor:     actor,
			Reason:    reason,
		})
		if err != nil {
			log.Fatal("Invoice approval failed", zap.String("invoice_id", invoiceID.String()), zap.Error(err))
		}
		log.Info("Invoice approved", zap.String("invoice_id", invoiceID.String()))
	case "mark-sent":
		invoiceID := parseUUIDArg(flag.Args(), 1, "invoice id", log)
		err := adminService.MarkInvoiceSent(ctx, billingapp.InvoiceTransitionInput{
			InvoiceID: invoiceID,
			Actor:     actor,
			Reason:    reason,
		})
		if err != nil {
			log.Fatal("Invoice send mark failed", zap.String("invoice_id", invoiceID.String()), zap.Error(err))
		}
		log.Info("Invoice marked sent", zap.String("invoice_id", invoiceID.String()))
	default:
		printUsage()
		os.Exit(1)
	}
}

// runPipeline drives a full billing run: feed fetch, attribution, pricing,
// assembly, and reconciliation for one period.
func runPipeline(
	ctx context.Context,
	cfg *config.Config,
	periodFlag string,
	skipFetch bool,
	ingestionService *billingapp.IngestionService,
	upstreamInvoiceRepo billing.UpstreamInvoiceRepository,
	runService *billingapp.RunService,
	log *zap.Logger,
) {
	period, err := resolvePeriod(periodFlag)
	if err != nil {
		log.Fatal("Invalid period", zap.String("period", periodFlag), zap.Error(err))
	}

	log.Info("Starting billing pipeline",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("period", period.Key()),
	)

	if !skipFetch {
		if err := fetchFeed(ctx, cfg, period, ingestionService, upstreamInvoiceRepo, log); err != nil {
			log.Fatal("Feed fetch failed", zap.Error(err))
		}
	}

	report, err := runService.Run(ctx, period)
	if err != nil {
		log.Fatal("Pipeline run failed", zap.Error(err))
	}

	log.Info("Billing pipeline finished",
		zap.String("run_report_id", report.ID.String()),
		zap.Int("invoices_created", report.Summary.InvoicesCreated),
		zap.Int("reports_written", report.Summary.ReportsWritten),
	)
}

// fetchFeed pulls the period's charge detail and the provider's invoices.
// The fetch window is clamped to the feed's retention horizon; anything older
// is only reachable through the aggregate invoices.
func fetchFeed(
	ctx context.Context,
	cfg *config.Config,
	period billing.BillingPeriod,
	sink feed.RecordSink,
	upstreamInvoiceRepo billing.UpstreamInvoiceRepository,
	log *zap.Logger,
) error {
	client, err := feed.NewHTTPClient(&cfg.Feed)
	if err != nil {
		return err
	}

	fetchStart := period.Start
	if horizon := time.Now().Add(-cfg.Feed.RetentionWindow); fetchStart.Before(horizon) {
		log.Warn("Period start predates the feed retention window, clamping",
			zap.Time("period_start", period.Start),
			zap.Time("horizon", horizon))
		fetchStart = horizon
	}

	fetcher, err := feed.NewFetcher(feed.FetcherConfig{
		WorkerCount:  cfg.Feed.WorkerCount,
		PageSize:     cfg.Feed.PageSize,
		MaxRetries:   cfg.Feed.MaxRetries,
		RetryBackoff: cfg.Feed.RetryBackoff,
		JobTimeout:   cfg.Feed.RequestTimeout,
	}, client, sink, log)
	if err != nil {
		return err
	}
	if err := fetcher.Start(ctx); err != nil {
		return err
	}
	if err := fetcher.SubmitWindow(fetchStart, period.End); err != nil {
		return err
	}

	drainCtx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()
	if err := fetcher.Drain(drainCtx); err != nil {
		return err
	}

	invoices, err := client.FetchInvoices(ctx, period.Start, period.End)
	if err != nil {
		return err
	}
	for i := range invoices {
		if err := upstreamInvoiceRepo.Save(ctx, &invoices[i]); err != nil {
			return err
		}
	}
	log.Info("Upstream invoices stored", zap.Int("count", len(invoices)))
	return nil
}

// toleranceConfig maps the configured drift thresholds into the domain's
// tolerance settings
func toleranceConfig(cfg *config.Config) billing.ToleranceConfig {
	return billing.ToleranceConfig{
		TolerancePercent:    decimal.NewFromFloat(cfg.Reconciliation.TolerancePercent),
		UpstreamOnlyPercent: decimal.NewFromFloat(cfg.Reconciliation.UpstreamOnlyPercent),
	}
}

// resolvePeriod parses a YYYY-MM period flag, defaulting to the previous
// calendar month
func resolvePeriod(value string) (billing.BillingPeriod, error) {
	var start time.Time
	if value == "" {
		now := time.Now().UTC()
		firstOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		start = firstOfMonth.AddDate(0, -1, 0)
	} else {
		parsed, err := time.Parse("2006-01", value)
		if err != nil {
			return billing.BillingPeriod{}, fmt.Errorf("period must be YYYY-MM: %w", err)
		}
		start = parsed
	}
	return billing.BillingPeriod{
		Start: start,
		End:   start.AddDate(0, 1, 0),
	}, nil
}

// parseUUIDArg reads the positional argument at index as a UUID
func parseUUIDArg(args []string, index int, name string, log *zap.Logger) uuid.UUID {
	if len(args) <= index {
		printUsage()
		log.Fatal("Missing argument", zap.String("argument", name))
	}
	id, err := uuid.Parse(args[index])
	if err != nil {
		log.Fatal("Invalid argument", zap.String("argument", name), zap.String("value", args[index]), zap.Error(err))
	}
	return id
}

func printUsage() {
	fmt.Println(`Warehouse Billing Pipeline

Usage:
  biller [flags] <command> [arguments]

Commands:
  run                                  Fetch the feed and run the full pipeline (default)
  migrate                              Run schema migrations and exit
  reset <invoice-id>                   Reset a draft invoice and release its charges
  force-attribute <tx-id> <tenant-id>  Manually attribute a transaction to a tenant
  approve <invoice-id>                 Approve a draft invoice
  mark-sent <invoice-id>               Mark an approved invoice as sent

Flags:
  -period YYYY-MM   Billing period (default: previous month)
  -skip-fetch       Skip the upstream feed fetch
  -actor <name>     Operator identity (required for admin commands)
  -reason <text>    Justification (required for admin commands)`)
}
