package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/flexprice/ratelimiter/internal/config"
	"github.com/flexprice/ratelimiter/internal/logger"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// createTableSQL creates the single hand-rolled rate_limit_counters
// table (§6 of spec.md). The teacher's migration tool drives ent's
// generated schema; a single table doesn't warrant that machinery, so
// this is a plain, idempotent DDL statement (SPEC_FULL.md §4 item 2).
const createTableSQL = `
CREATE TABLE IF NOT EXISTS rate_limit_counters (
	id            VARCHAR(50) PRIMARY KEY,
	user_id       VARCHAR(128) NOT NULL,
	period_type   VARCHAR(16) NOT NULL,
	period_start  TIMESTAMPTZ NOT NULL,
	request_count BIGINT NOT NULL DEFAULT 0,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (user_id, period_type, period_start)
);

CREATE INDEX IF NOT EXISTS idx_rate_limit_counters_user_period
	ON rate_limit_counters (user_id, period_type, period_start DESC);
`

func main() {
	dryRun := flag.Bool("dry-run", false, "print migration SQL without executing it")
	flag.Parse()

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	appLogger, err := logger.NewLogger(cfg)
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}

	if *dryRun {
		appLogger.Info("dry run mode - printing migration SQL without executing")
		fmt.Println(createTableSQL)
		return
	}

	dsn := cfg.Postgres.GetDSN()
	appLogger.Infow("connecting to database", "host", cfg.Postgres.Host)

	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		appLogger.Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	appLogger.Info("running database migrations...")
	if _, err := db.ExecContext(ctx, createTableSQL); err != nil {
		appLogger.Fatalw("failed to create rate_limit_counters table", "error", err)
	}

	appLogger.Info("migration completed successfully")
}
