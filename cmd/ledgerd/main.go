// Package main runs the token ledger service: two token ledgers with
// delegated voting, a tier-gated swap pool bridging them, a JSON HTTP API,
// a websocket event feed, and Prometheus metrics.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/sirupsen/logrus"

	"github.com/ArcticSubmarine/smart-contracts/internal/domain"
	"github.com/ArcticSubmarine/smart-contracts/internal/eligibility"
	"github.com/ArcticSubmarine/smart-contracts/internal/events"
	"github.com/ArcticSubmarine/smart-contracts/internal/ledger"
	"github.com/ArcticSubmarine/smart-contracts/internal/observability"
	"github.com/ArcticSubmarine/smart-contracts/internal/refregistry"
	"github.com/ArcticSubmarine/smart-contracts/internal/storage/migrations"
	pgstore "github.com/ArcticSubmarine/smart-contracts/internal/storage/postgres"
	"github.com/ArcticSubmarine/smart-contracts/internal/swap"
)

func main() {
	loadEnvFile()

	// Flags with env-var defaults.
	listen := flag.String("listen", envOr("LEDGER_LISTEN", ":8080"), "HTTP listen address")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string (eligibility tiers)")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string (event archive)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory eligibility storage and skip the event archive")

	genesisHex := flag.String("genesis", os.Getenv("LEDGER_GENESIS"), "Genesis account holding each token's full supply")
	adminHex := flag.String("admin", os.Getenv("LEDGER_ADMIN"), "Admin account for policy changes (defaults to genesis)")
	poolHex := flag.String("pool-account", os.Getenv("LEDGER_POOL_ACCOUNT"), "Pool ledger account")
	poolOwnerHex := flag.String("pool-owner", os.Getenv("LEDGER_POOL_OWNER"), "Pool owner account (defaults to genesis)")

	supplyStr := flag.String("supply", envOr("LEDGER_SUPPLY", "210000000000000"), "Genesis supply per token, in smallest units")
	decimals := flag.Uint("decimals", 6, "Token decimals")
	nameA := flag.String("token-a-name", "Legacy Token", "Token A name")
	symbolA := flag.String("token-a-symbol", "LGT", "Token A symbol")
	nameB := flag.String("token-b-name", "Next Token", "Token B name")
	symbolB := flag.String("token-b-symbol", "NXT", "Token B symbol")

	minProvisionStr := flag.String("min-provision", envOr("LEDGER_MIN_PROVISION", "0"), "Minimum combined balance required to swap (0 disables)")
	blockInterval := flag.Duration("block-interval", 2*time.Second, "Interval between block advances")
	archiveFlush := flag.Duration("archive-flush", 5*time.Second, "Event archive flush interval")

	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	log := logger.WithField("component", "ledgerd")

	genesis, ok := requireAddress(*genesisHex)
	if !ok {
		log.Fatal("--genesis is required and must be a hex address")
	}
	poolAccount, ok := requireAddress(*poolHex)
	if !ok {
		log.Fatal("--pool-account is required and must be a hex address")
	}
	admin := genesis
	if *adminHex != "" {
		if admin, ok = requireAddress(*adminHex); !ok {
			log.Fatal("--admin must be a hex address")
		}
	}
	poolOwner := genesis
	if *poolOwnerHex != "" {
		if poolOwner, ok = requireAddress(*poolOwnerHex); !ok {
			log.Fatal("--pool-owner must be a hex address")
		}
	}
	if !*useMemory && *postgresDSN == "" {
		log.Fatal("--postgres-dsn is required (use --use-memory to run without it)")
	}

	supply, ok := new(big.Int).SetString(*supplyStr, 10)
	if !ok {
		log.Fatal("--supply must be a decimal integer")
	}
	minProvision, err := uint256.FromDecimal(*minProvisionStr)
	if err != nil {
		log.Fatal("--min-provision must be a decimal integer")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, runConfig{
		listen:        *listen,
		postgresDSN:   *postgresDSN,
		clickhouseDSN: *clickhouseDSN,
		useMemory:     *useMemory,
		genesis:       genesis,
		admin:         admin,
		poolAccount:   poolAccount,
		poolOwner:     poolOwner,
		supply:        supply,
		decimals:      uint8(*decimals),
		nameA:         *nameA,
		symbolA:       *symbolA,
		nameB:         *nameB,
		symbolB:       *symbolB,
		minProvision:  minProvision,
		blockInterval: *blockInterval,
		archiveFlush:  *archiveFlush,
	}, log); err != nil {
		log.WithError(err).Fatal("service failed")
	}

	log.Info("shutdown complete")
}

type runConfig struct {
	listen        string
	postgresDSN   string
	clickhouseDSN string
	useMemory     bool

	genesis     common.Address
	admin       common.Address
	poolAccount common.Address
	poolOwner   common.Address

	supply   *big.Int
	decimals uint8
	nameA    string
	symbolA  string
	nameB    string
	symbolB  string

	minProvision  *uint256.Int
	blockInterval time.Duration
	archiveFlush  time.Duration
}

func run(ctx context.Context, cfg runConfig, log *logrus.Entry) error {
	metrics := observability.DefaultMetrics

	// Event sinks: journal for the API, hub for websocket subscribers,
	// counters for monitoring, plus the ClickHouse archive when configured.
	journal := events.NewMemoryJournal()
	hub := events.NewHub(nil, log.WithField("component", "hub"))
	defer hub.Close()

	sinks := events.Multi{journal, hub, eventCounter{metrics: metrics, hub: hub}}

	if !cfg.useMemory && cfg.clickhouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.clickhouseDSN)
		if err != nil {
			return fmt.Errorf("clickhouse migrations: %w", err)
		}
		defer conn.Close()

		archive := events.NewArchive(conn, cfg.archiveFlush, log.WithField("component", "archive"))
		go archive.Run(ctx)
		sinks = append(sinks, archive)
		log.Info("event archive enabled")
	}

	// Eligibility store.
	var (
		elig    eligibility.Provider
		setElig func(ctx context.Context, account common.Address, tier uint8, limit *uint256.Int) error
	)
	if cfg.useMemory {
		mem := eligibility.NewMemory()
		elig = mem
		setElig = func(_ context.Context, account common.Address, tier uint8, limit *uint256.Int) error {
			mem.Set(account, tier, limit)
			return nil
		}
		log.Info("using in-memory eligibility storage")
	} else {
		pool, err := pgstore.NewPool(ctx, cfg.postgresDSN)
		if err != nil {
			return fmt.Errorf("connect to postgres: %w", err)
		}
		defer pool.Close()
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			return fmt.Errorf("postgres migrations: %w", err)
		}
		pg := eligibility.NewPostgres(pool)
		elig = pg
		setElig = pg.Upsert
	}

	clock := ledger.NewManualClock(1)
	registry := refregistry.NewMemory()

	tokenA, err := ledger.NewToken(ledger.TokenConfig{
		Name:        cfg.nameA,
		Symbol:      cfg.symbolA,
		Decimals:    cfg.decimals,
		TotalSupply: cfg.supply,
		Genesis:     cfg.genesis,
		Admin:       cfg.admin,
		Clock:       clock,
		Sink:        sinks,
		Registry:    registry,
	})
	if err != nil {
		return fmt.Errorf("create token %s: %w", cfg.symbolA, err)
	}
	tokenB, err := ledger.NewToken(ledger.TokenConfig{
		Name:        cfg.nameB,
		Symbol:      cfg.symbolB,
		Decimals:    cfg.decimals,
		TotalSupply: cfg.supply,
		Genesis:     cfg.genesis,
		Admin:       cfg.admin,
		Clock:       clock,
		Sink:        sinks,
		Registry:    registry,
	})
	if err != nil {
		return fmt.Errorf("create token %s: %w", cfg.symbolB, err)
	}

	pool, err := swap.NewPool(swap.PoolConfig{
		Account:      cfg.poolAccount,
		Owner:        cfg.poolOwner,
		TokenA:       tokenA,
		TokenB:       tokenB,
		Eligibility:  elig,
		MinProvision: cfg.minProvision,
		Clock:        clock,
		Sink:         sinks,
	})
	if err != nil {
		return fmt.Errorf("create swap pool: %w", err)
	}

	srv := &apiServer{
		tokenA:         tokenA,
		tokenB:         tokenB,
		pool:           pool,
		journal:        journal,
		hub:            hub,
		registry:       registry,
		clock:          clock,
		metrics:        metrics,
		setEligibility: setElig,
		log:            log,
	}

	// Advance the block clock on a fixed interval.
	go func() {
		ticker := time.NewTicker(cfg.blockInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				metrics.CurrentBlock.Set(float64(clock.Advance(1)))
			}
		}
	}()

	mux := http.NewServeMux()
	srv.routes(mux)

	httpServer := &http.Server{
		Addr:         cfg.listen,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // websocket connections stay open
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.listen).Info("listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	hub.Close()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

// eventCounter keeps the event and subscriber metrics current.
type eventCounter struct {
	metrics *observability.Metrics
	hub     *events.Hub
}

func (c eventCounter) Emit(ev domain.Event) {
	c.metrics.EventsEmitted.WithLabelValues(string(ev.Kind())).Inc()
	if ev.Kind() == domain.EventKindDelegateVotesChanged {
		c.metrics.CheckpointsTotal.Inc()
	}
	c.metrics.WSSubscribers.Set(float64(c.hub.Subscribers()))
}

func requireAddress(hex string) (common.Address, bool) {
	if !common.IsHexAddress(hex) {
		return common.Address{}, false
	}
	addr := common.HexToAddress(hex)
	return addr, addr != (common.Address{})
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// loadEnvFile loads environment variables from .env if present. Existing
// variables win.
func loadEnvFile() {
	data, err := os.ReadFile(".env")
	if err != nil {
		return
	}
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		if os.Getenv(key) == "" {
			os.Setenv(key, strings.TrimSpace(parts[1]))
		}
	}
}
