package main

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"

	"fleetops/internal/hos/amendment"
	amendmentstore "fleetops/internal/hos/amendment/store"
	"fleetops/internal/hos/ledger"
	ledgerstore "fleetops/internal/hos/ledger/store"
	"fleetops/internal/hos/violation"
	violationstore "fleetops/internal/hos/violation/store"
	"fleetops/internal/platform/config"
	"fleetops/internal/platform/kafka"
	"fleetops/internal/platform/metrics"
	"fleetops/internal/platform/postgres"
	"fleetops/internal/platform/redis"
	"fleetops/pkg/platform/audit"
	auditkafka "fleetops/pkg/platform/audit/store/kafka"
	auditmemory "fleetops/pkg/platform/audit/store/memory"
	auditpostgres "fleetops/pkg/platform/audit/store/postgres"
	"fleetops/pkg/platform/audit/worker"
	"fleetops/pkg/platform/tx"
)

// infra holds the backing services selected by configuration. Without a
// database every store is in memory; without Redis driver locks are
// in-process; without Kafka audit events stay in the outbox or memory.
type infra struct {
	db    *sql.DB
	redis *redis.Client
	kafka *kgo.Client

	tx             tx.Runner
	locker         ledger.Locker
	ledgerStore    ledger.Store
	violationStore violation.Store
	amendmentStore amendment.Store
	auditStore     audit.Store
	relay          *worker.Relay
}

func buildInfra(ctx context.Context, cfg config.Server, m *metrics.Metrics, log *slog.Logger) (_ *infra, err error) {
	in := &infra{}
	defer func() {
		if err != nil {
			in.Close()
		}
	}()

	if in.kafka, err = kafka.NewClient(cfg.Kafka); err != nil {
		return nil, err
	}
	if in.kafka != nil {
		if err := kafka.EnsureTopic(ctx, in.kafka, cfg.Kafka.AuditTopic, cfg.Kafka.Partitions); err != nil {
			return nil, err
		}
	}

	if in.redis, err = redis.New(ctx, cfg.Redis); err != nil {
		return nil, err
	}
	if in.redis != nil {
		in.locker = ledger.NewRedisLocker(in.redis.Client, ledger.WithLockTTL(cfg.HOS.DriverLockTTL))
		log.Info("driver locks in redis")
	} else {
		in.locker = ledger.NewShardedLocker()
	}

	if cfg.DatabaseURL == "" {
		if cfg.IsProduction() {
			log.Warn("DATABASE_URL not set in production; ledger is not durable")
		}
		in.tx = tx.Passthrough{}
		in.ledgerStore = ledgerstore.NewInMemory()
		in.violationStore = violationstore.NewInMemory()
		in.amendmentStore = amendmentstore.NewInMemory()
		if in.kafka != nil {
			in.auditStore = auditkafka.New(in.kafka, cfg.Kafka.AuditTopic)
		} else {
			in.auditStore = auditmemory.NewInMemoryStore()
		}
		return in, nil
	}

	if in.db, err = postgres.Open(ctx, cfg.DatabaseURL, postgres.DefaultOptions()); err != nil {
		return nil, err
	}
	if err := postgres.Migrate(ctx, in.db); err != nil {
		return nil, err
	}
	in.tx = tx.NewPostgres(in.db, cfg.HOS.LedgerTxTimeout)
	in.ledgerStore = ledgerstore.NewPostgres(in.db)
	in.violationStore = violationstore.NewPostgres(in.db)
	in.amendmentStore = amendmentstore.NewPostgres(in.db)

	outbox := auditpostgres.New(in.db)
	in.auditStore = outbox
	if in.kafka != nil {
		in.relay = worker.NewRelay(outbox, auditkafka.New(in.kafka, cfg.Kafka.AuditTopic), in.tx,
			worker.WithLogger(log),
			worker.WithMetrics(m),
			worker.WithInterval(cfg.HOS.OutboxInterval, 0),
			worker.WithBatchSize(cfg.HOS.OutboxBatchSize),
		)
	} else {
		log.Warn("KAFKA_BROKERS not set; audit events accumulate in the outbox")
	}
	return in, nil
}

func (in *infra) Close() {
	if in.kafka != nil {
		in.kafka.Close()
	}
	if in.redis != nil {
		_ = in.redis.Close()
	}
	if in.db != nil {
		_ = in.db.Close()
	}
}
