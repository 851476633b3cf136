package main

import (
	"context"
	"database/sql"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"google.golang.org/grpc"

	"github.com/rl1809/wms-engine/internal/adapter/handler"
	"github.com/rl1809/wms-engine/internal/adapter/notify"
	"github.com/rl1809/wms-engine/internal/adapter/profile"
	"github.com/rl1809/wms-engine/internal/adapter/storage"
	"github.com/rl1809/wms-engine/internal/config"
	"github.com/rl1809/wms-engine/internal/core/service"
	"github.com/rl1809/wms-engine/internal/metrics"
	"github.com/rl1809/wms-engine/internal/port"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logger := log.Default()

	deps := service.Dependencies{
		PerishableTypes: cfg.PerishableTypes,
		PriorityBoost:   cfg.PriorityBoost,
		Notifier:        notify.NewLogNotifier(logger),
	}
	var guard port.IdempotencyGuard

	// Initialize stores
	var db *sql.DB
	var mysqlAdapter *storage.MySQLAdapter
	switch cfg.StorageDriver {
	case config.DriverMySQL:
		db, err = sql.Open("mysql", cfg.MySQLDSN)
		if err != nil {
			log.Fatalf("failed to connect mysql: %v", err)
		}
		db.SetMaxOpenConns(50)
		db.SetMaxIdleConns(25)
		db.SetConnMaxLifetime(5 * time.Minute)

		if err := db.PingContext(ctx); err != nil {
			log.Fatalf("failed to ping mysql: %v", err)
		}
		log.Println("connected to mysql")

		mysqlAdapter = storage.NewMySQLAdapter(db)
		deps.Tasks = mysqlAdapter
		deps.Sequences = mysqlAdapter
		deps.Picks = mysqlAdapter
		deps.Ledger = mysqlAdapter
		deps.Locations = mysqlAdapter
		deps.Inspections = mysqlAdapter
		deps.Counts = mysqlAdapter
		deps.Catalog = mysqlAdapter
		deps.Demand = mysqlAdapter
		deps.Damage = mysqlAdapter
	default:
		mem := storage.NewMemoryAdapter()
		deps.Tasks = mem
		deps.Sequences = mem
		deps.Picks = mem
		deps.Ledger = mem
		deps.Locations = mem
		deps.Inspections = mem
		deps.Counts = mem
		deps.Catalog = mem
		deps.Demand = mem
		deps.Damage = mem
		guard = mem
		log.Println("using in-memory storage")
	}

	var pool *pgxpool.Pool
	if cfg.LedgerDriver == config.DriverPostgres {
		pool, err = storage.NewPgxPool(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("failed to connect postgres: %v", err)
		}
		pgLedger := storage.NewPostgresLedger(pool)
		deps.Ledger = pgLedger
		deps.Locations = pgLedger
		log.Println("connected to postgres ledger")
	}

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			PoolSize: 100,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatalf("failed to connect redis: %v", err)
		}
		log.Println("connected to redis")

		redisAdapter := storage.NewRedisAdapter(rdb)
		if mysqlAdapter != nil {
			if err := seedSequences(ctx, mysqlAdapter, redisAdapter); err != nil {
				log.Fatalf("failed to seed redis sequences: %v", err)
			}
		}
		deps.Sequences = redisAdapter
		guard = redisAdapter
	}

	if cfg.WorkflowProfile != "" {
		profiles, err := profile.LoadFile(cfg.WorkflowProfile)
		if err != nil {
			log.Fatalf("failed to load workflow profiles: %v", err)
		}
		deps.Profiles = profiles
		log.Printf("loaded workflow profiles from %s", cfg.WorkflowProfile)
	}

	// Initialize engine
	m := metrics.New()
	engine := service.NewEngine(deps, service.WithLogger(logger), service.WithMetrics(m))

	// Initialize gRPC server
	grpcServer := grpc.NewServer()
	handler.RegisterTaskServiceServer(grpcServer, handler.NewGRPCHandler(engine))

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		log.Fatalf("failed to listen: %v", err)
	}

	go func() {
		log.Printf("gRPC server listening on %s", cfg.GRPCAddr)
		if err := grpcServer.Serve(lis); err != nil {
			log.Printf("gRPC server error: %v", err)
		}
	}()

	// Initialize HTTP server
	mux := http.NewServeMux()
	handler.NewHTTPHandler(engine, guard, logger).Register(mux)
	mux.Handle("GET /metrics", m.Handler())

	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: mux,
	}

	go func() {
		log.Printf("HTTP server listening on %s", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("HTTP server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	httpServer.Shutdown(shutdownCtx)
	log.Println("HTTP server stopped")

	grpcServer.GracefulStop()
	log.Println("gRPC server stopped")

	// Close connections
	if rdb != nil {
		rdb.Close()
	}
	if pool != nil {
		pool.Close()
	}
	if db != nil {
		db.Close()
	}
	log.Println("connections closed")
}

// seedSequences raises every Redis counter to the last value MySQL issued so
// numbering continues where it left off.
func seedSequences(ctx context.Context, from *storage.MySQLAdapter, to *storage.RedisAdapter) error {
	seqs, err := from.Sequences(ctx)
	if err != nil {
		return err
	}
	for key, value := range seqs {
		if err := to.SeedSequence(ctx, key, value); err != nil {
			return err
		}
	}
	log.Printf("seeded %d redis sequences from mysql", len(seqs))
	return nil
}
