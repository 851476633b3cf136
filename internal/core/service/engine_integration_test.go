package service_test

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"testing"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/rl1809/wms-engine/internal/adapter/storage"
	"github.com/rl1809/wms-engine/internal/core/domain"
	"github.com/rl1809/wms-engine/internal/core/service"
)

type integrationEnv struct {
	redis   *redis.Client
	mysql   *sql.DB
	store   *storage.MySQLAdapter
	engine  *service.Engine
	cleanup func()
}

func setupIntegration(t *testing.T) *integrationEnv {
	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}

	mysqlDSN := os.Getenv("MYSQL_DSN")
	if mysqlDSN == "" {
		mysqlDSN = "root:root@tcp(localhost:3306)/wms?parseTime=true"
	}

	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}

	db, err := sql.Open("mysql", mysqlDSN)
	if err != nil {
		t.Skipf("MySQL not available: %v", err)
	}
	if err := db.Ping(); err != nil {
		t.Skipf("MySQL not available: %v", err)
	}

	store := storage.NewMySQLAdapter(db)
	engine := service.NewEngine(service.Dependencies{
		Tasks:       store,
		Sequences:   storage.NewRedisAdapter(rdb),
		Picks:       store,
		Ledger:      store,
		Locations:   store,
		Inspections: store,
		Counts:      store,
		Catalog:     store,
		Demand:      store,
		Damage:      store,
	})

	return &integrationEnv{
		redis:  rdb,
		mysql:  db,
		store:  store,
		engine: engine,
		cleanup: func() {
			rdb.Close()
			db.Close()
		},
	}
}

// seed puts qty units of a fresh product in its own sub-location.
func (e *integrationEnv) seed(t *testing.T, product, location, sub string, qty int) {
	t.Helper()
	err := e.store.ApplyDelta(context.Background(), domain.InventoryDelta{
		Key:             domain.InventoryKey{ProductID: product, LocationID: location, SublocationID: sub},
		QtyChange:       qty,
		TransactionType: domain.TxnPutaway,
		ReferenceType:   domain.RefTask,
		ReferenceID:     "seed",
	})
	if err != nil {
		t.Fatalf("seed %s: %v", product, err)
	}
}

func TestIntegration_ConcurrentPicksNeverOversell(t *testing.T) {
	env := setupIntegration(t)
	defer env.cleanup()

	ctx := context.Background()
	product := "it-" + uuid.NewString()[:8]
	location := "it-wh"
	units := 10

	for i := 0; i < units; i++ {
		env.seed(t, product, location, fmt.Sprintf("S-%02d", i), 1)
	}

	result, err := env.engine.Allocation.GeneratePickList(ctx, domain.PickListRequest{
		OrderID:    "it-order",
		LocationID: location,
		Lines:      []domain.DemandLine{{ProductID: product, QtyNeeded: units}},
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(result.Items) != units {
		t.Fatalf("expected %d items, got %d", units, len(result.Items))
	}

	var successCount atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < units*3; i++ {
		wg.Add(1)
		go func(picker int) {
			defer wg.Done()
			item := result.Items[picker%units]
			if _, err := env.engine.Allocation.RecordPick(ctx, item.ID, 1, fmt.Sprintf("picker-%d", picker)); err == nil {
				successCount.Add(1)
			}
		}(i)
	}
	wg.Wait()

	if successCount.Load() != int32(units) {
		t.Errorf("expected %d successful picks, got %d", units, successCount.Load())
	}

	avail, _ := env.store.QueryAvailable(ctx, product, location, "")
	if avail != 0 {
		t.Errorf("expected stock 0, got %d", avail)
	}

	var txns int
	env.mysql.QueryRowContext(ctx, `SELECT COUNT(*) FROM inventory_transactions WHERE product_id = ? AND transaction_type = ?`,
		product, domain.TxnPick).Scan(&txns)
	if txns != units {
		t.Errorf("expected %d pick transactions, got %d", units, txns)
	}

	task, _ := env.engine.Tasks.Get(ctx, result.Task.ID)
	if task.Status != domain.TaskStatusCompleted {
		t.Errorf("expected task completed, got %s", task.Status)
	}
}

func TestIntegration_TaskNumbersUniqueAcrossEngines(t *testing.T) {
	env := setupIntegration(t)
	defer env.cleanup()

	ctx := context.Background()
	second := setupIntegration(t)
	defer second.cleanup()

	const perEngine = 25
	numbers := make(chan string, 2*perEngine)
	var wg sync.WaitGroup
	for _, e := range []*service.Engine{env.engine, second.engine} {
		for i := 0; i < perEngine; i++ {
			wg.Add(1)
			go func(engine *service.Engine) {
				defer wg.Done()
				task, err := engine.Tasks.Create(ctx, domain.TaskSpec{Type: domain.TaskTypePutaway, QtyRequested: 1})
				if err != nil {
					t.Errorf("create: %v", err)
					return
				}
				numbers <- task.TaskNumber
			}(e)
		}
	}
	wg.Wait()
	close(numbers)

	seen := make(map[string]bool)
	for n := range numbers {
		if seen[n] {
			t.Errorf("duplicate task number %s", n)
		}
		seen[n] = true
	}
}
