package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"fleetops/internal/hos/amendment"
	"fleetops/internal/hos/calculator"
	"fleetops/internal/hos/handler"
	"fleetops/internal/hos/ledger"
	hosmetrics "fleetops/internal/hos/metrics"
	"fleetops/internal/hos/violation"
	"fleetops/internal/platform/config"
	"fleetops/internal/platform/httpserver"
	"fleetops/internal/platform/logger"
	"fleetops/internal/platform/metrics"
	"fleetops/internal/platform/middleware"
	"fleetops/pkg/platform/audit/publishers/compliance"
)

const shutdownTimeout = 10 * time.Second

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal/hos.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel)
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Server, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	platformMetrics := metrics.New()
	platformMetrics.SetBuildInfo(cfg.Environment)
	hm := hosmetrics.New()

	loc, err := time.LoadLocation(cfg.HOS.HomeTerminalTZ)
	if err != nil {
		return err
	}
	rules, err := loadRuleSets(cfg.HOS, log)
	if err != nil {
		return err
	}

	infra, err := buildInfra(ctx, cfg, platformMetrics, log)
	if err != nil {
		return err
	}
	defer infra.Close()

	auditor := compliance.New(infra.auditStore,
		compliance.WithLogger(log),
		compliance.WithMetrics(compliance.NewMetrics()),
	)

	ledgerSvc := ledger.NewService(infra.ledgerStore,
		ledger.WithLogger(log),
		ledger.WithMetrics(hm),
		ledger.WithAuditor(auditor),
		ledger.WithLocker(infra.locker),
		ledger.WithTx(infra.tx),
		ledger.WithMaxClockSkew(cfg.HOS.MaxClockSkew),
	)
	violationSvc := violation.NewService(infra.violationStore,
		violation.WithLogger(log),
		violation.WithMetrics(hm),
		violation.WithAuditor(auditor),
		violation.WithTx(infra.tx),
	)
	amendmentSvc := amendment.NewService(infra.amendmentStore, ledgerSvc,
		amendment.WithLogger(log),
		amendment.WithMetrics(hm),
		amendment.WithAuditor(auditor),
	)
	calc := calculator.New(ledgerSvc, rules,
		calculator.WithLogger(log),
		calculator.WithMetrics(hm),
		calculator.WithViolations(violationSvc),
		calculator.WithLocation(loc),
		calculator.WithDefaultRuleSet(cfg.HOS.DefaultRuleSet),
	)
	hosHandler := handler.New(ledgerSvc, calc, amendmentSvc, violationSvc, log, handler.WithLocation(loc))

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestContext)
	r.Use(middleware.Logger(log))
	r.Handle("/metrics", metrics.Handler())
	r.Get("/healthz", healthHandler(infra))
	hosHandler.Register(r)

	srv := httpserver.New(cfg.Addr, r, httpserver.WithWriteTimeout(3*cfg.HOS.LedgerTxTimeout))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting fleetops", "addr", cfg.Addr, "environment", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	if infra.relay != nil {
		g.Go(func() error {
			return ignoreCanceled(infra.relay.Run(gctx))
		})
	}
	if cfg.HOS.RuleSetFile != "" && cfg.HOS.RuleSetReload > 0 {
		g.Go(func() error {
			reloadRuleSets(gctx, rules, cfg.HOS, platformMetrics, log)
			return nil
		})
	}
	return g.Wait()
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
