package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rl1809/wms-engine/internal/adapter/storage"
	"github.com/rl1809/wms-engine/internal/core/domain"
	"github.com/rl1809/wms-engine/internal/core/service"
)

const (
	productID    = "stress-sku"
	locationID   = "stress-wh"
	initialStock = 20
	pickers      = 50
	taskBursts   = 200
)

// Races pickers against the same pick list and checks that every unit is
// picked at most once and that task numbers never collide.
func main() {
	ctx := context.Background()

	mem := storage.NewMemoryAdapter()
	deps := service.Dependencies{
		Tasks:       mem,
		Sequences:   mem,
		Picks:       mem,
		Ledger:      mem,
		Locations:   mem,
		Inspections: mem,
		Counts:      mem,
		Demand:      mem,
	}

	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: addr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatalf("failed to connect redis: %v", err)
		}
		defer rdb.Close()
		deps.Sequences = storage.NewRedisAdapter(rdb)
		log.Printf("using redis sequences at %s", addr)
	}

	engine := service.NewEngine(deps, service.WithLogger(log.Default()))

	// One unit per sub-location so the pick list has initialStock items
	for i := 0; i < initialStock; i++ {
		mem.AddInventory(domain.InventoryLine{
			InventoryKey: domain.InventoryKey{ProductID: productID, LocationID: locationID, SublocationID: fmt.Sprintf("S-%02d", i)},
			OnHand:       1,
		})
	}

	result, err := engine.Allocation.GeneratePickList(ctx, domain.PickListRequest{
		OrderID:    "stress-order",
		LocationID: locationID,
		Lines:      []domain.DemandLine{{DemandLineID: "stress-line", ProductID: productID, QtyNeeded: initialStock}},
	})
	if err != nil || result.Task == nil {
		log.Fatalf("failed to generate pick list: %v", err)
	}

	var successCount atomic.Int32
	var failCount atomic.Int32

	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < pickers; i++ {
		wg.Add(1)
		go func(picker int) {
			defer wg.Done()

			item := result.Items[picker%len(result.Items)]
			_, err := engine.Allocation.RecordPick(ctx, item.ID, 1, fmt.Sprintf("picker-%d", picker))
			if err == nil {
				successCount.Add(1)
			} else {
				failCount.Add(1)
			}
		}(i)
	}

	numbers := make(chan string, taskBursts)
	for i := 0; i < taskBursts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			task, err := engine.Tasks.Create(ctx, domain.TaskSpec{Type: domain.TaskTypePutaway, QtyRequested: 1})
			if err != nil {
				log.Printf("create task: %v", err)
				return
			}
			numbers <- task.TaskNumber
		}()
	}

	wg.Wait()
	close(numbers)
	elapsed := time.Since(start)

	seen := make(map[string]bool)
	for n := range numbers {
		seen[n] = true
	}

	success := successCount.Load()
	fail := failCount.Load()
	remaining, _ := mem.QueryAvailable(ctx, productID, locationID, "")
	task, _ := engine.Tasks.Get(ctx, result.Task.ID)

	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Initial Stock:    %d\n", initialStock)
	fmt.Printf("Pick Attempts:    %d\n", pickers)
	fmt.Printf("Successful:       %d\n", success)
	fmt.Printf("Rejected:         %d\n", fail)
	fmt.Printf("Task Numbers:     %d unique of %d\n", len(seen), taskBursts)
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("==========================================")

	if success == int32(initialStock) && fail == int32(pickers-initialStock) {
		fmt.Printf("PASS: Exactly %d picks succeeded, %d rejected\n", initialStock, pickers-initialStock)
	} else {
		fmt.Printf("FAIL: Expected %d success/%d rejected, got %d/%d\n",
			initialStock, pickers-initialStock, success, fail)
	}

	if remaining == 0 {
		fmt.Println("PASS: Stock depleted to 0")
	} else {
		fmt.Printf("FAIL: Expected stock 0, got %d\n", remaining)
	}

	if len(seen) == taskBursts {
		fmt.Println("PASS: Task numbers unique")
	} else {
		fmt.Printf("FAIL: %d duplicate task numbers\n", taskBursts-len(seen))
	}

	if task != nil && task.Status == domain.TaskStatusCompleted && task.QtyCompleted == initialStock {
		fmt.Println("PASS: Pick task auto-completed")
	} else {
		fmt.Printf("FAIL: Pick task not completed: %+v\n", task)
	}
}
