package tests

import (
	"context"
	"database/sql"
	"os"
	"sync"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rinkworks/venuepos/internal/adapter/storage"
	"github.com/rinkworks/venuepos/internal/core/domain"
	"github.com/rinkworks/venuepos/internal/core/service"
)

type testEnv struct {
	redis   *redis.Client
	mysql   *sql.DB
	adapter *storage.MySQLAdapter
	cache   *storage.RedisAdapter
	catalog *service.CatalogCache
	svc     *service.CheckoutService
	cleanup func()
}

func setupTestEnv(t *testing.T) *testEnv {
	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}

	mysqlDSN := os.Getenv("MYSQL_DSN")
	if mysqlDSN == "" {
		mysqlDSN = "root:root@tcp(localhost:3306)/venuepos?parseTime=true"
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

	logger := zap.NewNop()
	adapter := storage.NewMySQLAdapter(db)
	cache := storage.NewRedisAdapter(rdb, time.Minute)
	catalog := service.NewCatalogCache(adapter, cache, 30*time.Second, logger)
	svc := service.NewCheckoutService(adapter, adapter, adapter, catalog, cache, logger, 128)

	return &testEnv{
		redis:   rdb,
		mysql:   db,
		adapter: adapter,
		cache:   cache,
		catalog: catalog,
		svc:     svc,
		cleanup: func() {
			svc.Close()
			rdb.Close()
			db.Close()
		},
	}
}

func (env *testEnv) seed(t *testing.T, ctx context.Context, stock, capacity, sold int) {
	t.Helper()

	env.redis.Del(ctx, "catalog:snapshot")
	env.mysql.ExecContext(ctx, `DELETE FROM sale_lines WHERE ref_id IN ('it-hoodie', 'it-ev')`)
	env.mysql.ExecContext(ctx, `DELETE FROM sales WHERE customer_id = 'it-cust'`)

	stmts := []struct {
		query string
		args  []interface{}
	}{
		{`INSERT INTO merchandise (id, name, unit_price, stock, category)
		  VALUES ('it-hoodie', 'Integration Hoodie', 25.00, ?, 'apparel')
		  ON DUPLICATE KEY UPDATE stock = ?`, []interface{}{stock, stock}},
		{`INSERT INTO events (id, name, ticket_price, capacity, tickets_sold, event_date, start_time)
		  VALUES ('it-ev', 'Integration Session', 15.00, ?, ?, CURDATE(), '20:00')
		  ON DUPLICATE KEY UPDATE capacity = ?, tickets_sold = ?`, []interface{}{capacity, sold, capacity, sold}},
		{`INSERT INTO customers (id, name, points, total_spent, category)
		  VALUES ('it-cust', 'Integration Customer', 0, 0, 'Ouro')
		  ON DUPLICATE KEY UPDATE points = 0, total_spent = 0, category = 'Ouro'`, nil},
		{`INSERT INTO loyalty_rules (category, discount_pct) VALUES ('Ouro', 10)
		  ON DUPLICATE KEY UPDATE discount_pct = 10`, nil},
	}
	for _, s := range stmts {
		if _, err := env.mysql.ExecContext(ctx, s.query, s.args...); err != nil {
			t.Fatalf("seed failed: %v", err)
		}
	}
}

func TestIntegration_FullCommitFlow(t *testing.T) {
	env := setupTestEnv(t)
	defer env.cleanup()

	ctx := context.Background()
	env.seed(t, ctx, 10, 50, 48)

	items, _, err := env.catalog.Load(ctx, true)
	if err != nil {
		t.Fatalf("catalog load failed: %v", err)
	}

	var hoodie, ticket *domain.CatalogItem
	for i := range items {
		switch items[i].ID {
		case "it-hoodie":
			hoodie = &items[i]
		case "event:it-ev":
			ticket = &items[i]
		}
	}
	if hoodie == nil || ticket == nil {
		t.Fatalf("seeded items not in catalog: %+v", items)
	}
	if ticket.Available != 2 {
		t.Errorf("expected 2 remaining tickets, got %d", ticket.Available)
	}

	cart := service.NewCart()
	cart.AddOrIncrement(*hoodie)
	cart.AddOrIncrement(*hoodie)
	cart.AddOrIncrement(*ticket)

	account, err := env.adapter.GetLoyaltyAccount(ctx, "it-cust")
	if err != nil || account == nil {
		t.Fatalf("loyalty account lookup failed: %v", err)
	}
	rules, err := env.adapter.ListLoyaltyRules(ctx)
	if err != nil {
		t.Fatalf("loyalty rules lookup failed: %v", err)
	}

	// Subtotal 65.00, Ouro 10% -> final 58.50.
	disc := service.ComputeDiscount(cart.Lines(), account, decimal.Zero, rules)
	if !disc.FinalTotal.Equal(decimal.RequireFromString("58.50")) {
		t.Fatalf("expected final total 58.50, got %s", disc.FinalTotal)
	}

	res, err := env.svc.Commit(ctx, cart, "it-cust", "it-op", disc)
	if err != nil {
		t.Fatalf("commit failed: %v", err)
	}
	if res.Status != service.StatusCommitted {
		t.Fatalf("expected clean commit, got %s (warnings: %v)", res.Status, res.Warnings)
	}
	if res.PointsCredited != 58 {
		t.Errorf("expected 58 points credited, got %d", res.PointsCredited)
	}

	var stock, sold int
	env.mysql.QueryRowContext(ctx, `SELECT stock FROM merchandise WHERE id = 'it-hoodie'`).Scan(&stock)
	env.mysql.QueryRowContext(ctx, `SELECT tickets_sold FROM events WHERE id = 'it-ev'`).Scan(&sold)
	if stock != 8 {
		t.Errorf("expected stock 8, got %d", stock)
	}
	if sold != 49 {
		t.Errorf("expected tickets_sold 49, got %d", sold)
	}

	after, err := env.adapter.GetLoyaltyAccount(ctx, "it-cust")
	if err != nil || after == nil {
		t.Fatalf("loyalty account lookup failed: %v", err)
	}
	if after.Points != 58 {
		t.Errorf("expected 58 points, got %d", after.Points)
	}
	if !after.TotalSpent.Equal(decimal.RequireFromString("58.50")) {
		t.Errorf("expected total spent 58.50, got %s", after.TotalSpent)
	}

	if !cart.IsEmpty() {
		t.Error("cart should be cleared after commit")
	}
}

func TestIntegration_ConcurrentCommits_NoOverselling(t *testing.T) {
	env := setupTestEnv(t)
	defer env.cleanup()

	ctx := context.Background()
	env.seed(t, ctx, 3, 50, 50)

	item := domain.CatalogItem{
		ID: "it-hoodie", Kind: domain.KindMerchandise, RefID: "it-hoodie",
		Name: "Integration Hoodie", UnitPrice: decimal.RequireFromString("25.00"), Available: 3,
	}

	rules, err := env.adapter.ListLoyaltyRules(ctx)
	if err != nil {
		t.Fatalf("loyalty rules lookup failed: %v", err)
	}

	results := make([]*service.CommitResult, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			cart := service.NewCart()
			cart.AddOrIncrement(item)
			cart.SetQuantity(item.ID, 2)
			disc := service.ComputeDiscount(cart.Lines(), nil, decimal.Zero, rules)
			res, err := env.svc.Commit(ctx, cart, "it-cust", "it-op", disc)
			if err != nil {
				t.Errorf("commit failed: %v", err)
				return
			}
			results[i] = res
		}(i)
	}
	wg.Wait()

	clean, warned := 0, 0
	for _, res := range results {
		if res == nil {
			continue
		}
		switch res.Status {
		case service.StatusCommitted:
			clean++
		case service.StatusCommittedWithWarnings:
			warned++
		}
	}
	if clean != 1 || warned != 1 {
		t.Errorf("expected exactly one winner, got clean=%d warned=%d", clean, warned)
	}

	var stock int
	env.mysql.QueryRowContext(ctx, `SELECT stock FROM merchandise WHERE id = 'it-hoodie'`).Scan(&stock)
	if stock != 1 {
		t.Errorf("expected stock 1 after one successful decrement, got %d", stock)
	}
	if stock < 0 {
		t.Error("stock must never go negative")
	}
}
