package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rinkworks/venuepos/internal/core/domain"
)

var ErrUnknownCustomer = errors.New("unknown customer")

// MySQLAdapter implements the catalog, sale, inventory and loyalty stores.
// Inventory mutations are single conditional UPDATEs guarded by a
// RowsAffected check, so concurrent commits on the same row cannot lose
// updates.
type MySQLAdapter struct {
	db *sql.DB
}

func NewMySQLAdapter(db *sql.DB) *MySQLAdapter {
	return &MySQLAdapter{db: db}
}

func (m *MySQLAdapter) ListMerchandise(ctx context.Context) ([]domain.Merchandise, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT id, name, unit_price, stock, category, created_at, updated_at
		FROM merchandise
		ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("query merchandise: %w", err)
	}
	defer rows.Close()

	var out []domain.Merchandise
	for rows.Next() {
		var item domain.Merchandise
		if err := rows.Scan(&item.ID, &item.Name, &item.UnitPrice, &item.Stock,
			&item.Category, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan merchandise: %w", err)
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func (m *MySQLAdapter) ListScheduledEvents(ctx context.Context) ([]domain.Event, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT id, name, ticket_price, capacity, tickets_sold, event_date, start_time
		FROM events
		WHERE event_date >= CURDATE()
		ORDER BY event_date, start_time`)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var out []domain.Event
	for rows.Next() {
		var e domain.Event
		if err := rows.Scan(&e.ID, &e.Name, &e.TicketPrice, &e.Capacity,
			&e.TicketsSold, &e.Date, &e.StartTime); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (m *MySQLAdapter) CreateSale(ctx context.Context, sale domain.Sale) error {
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO sales (id, customer_id, operator_id, subtotal, discount, final_total, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sale.ID, sale.CustomerID, sale.OperatorID,
		sale.Subtotal, sale.Discount, sale.FinalTotal, sale.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert sale: %w", err)
	}
	return nil
}

// CreateSaleLines writes all lines of one sale inside a transaction; the
// caller sees them as a single write that fully happens or fully fails.
func (m *MySQLAdapter) CreateSaleLines(ctx context.Context, saleID string, lines []domain.SaleLine) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, line := range lines {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO sale_lines (sale_id, item_kind, ref_id, quantity, unit_price, subtotal)
			VALUES (?, ?, ?, ?, ?, ?)`,
			saleID, string(line.Kind), line.RefID, line.Quantity, line.UnitPrice, line.Subtotal,
		)
		if err != nil {
			return fmt.Errorf("insert sale line: %w", err)
		}
	}

	return tx.Commit()
}

func (m *MySQLAdapter) FindOrphanSales(ctx context.Context, olderThan time.Time) ([]domain.Sale, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT s.id, s.customer_id, s.operator_id, s.subtotal, s.discount, s.final_total, s.created_at
		FROM sales s
		LEFT JOIN sale_lines l ON l.sale_id = s.id
		WHERE l.id IS NULL AND s.created_at < ?`,
		olderThan,
	)
	if err != nil {
		return nil, fmt.Errorf("query orphan sales: %w", err)
	}
	defer rows.Close()

	var out []domain.Sale
	for rows.Next() {
		var s domain.Sale
		if err := rows.Scan(&s.ID, &s.CustomerID, &s.OperatorID,
			&s.Subtotal, &s.Discount, &s.FinalTotal, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan orphan sale: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (m *MySQLAdapter) DecrementStock(ctx context.Context, merchandiseID string, quantity int) (bool, error) {
	result, err := m.db.ExecContext(ctx, `
		UPDATE merchandise
		SET stock = stock - ?, updated_at = NOW()
		WHERE id = ? AND stock >= ?`,
		quantity, merchandiseID, quantity,
	)
	if err != nil {
		return false, fmt.Errorf("decrement stock: %w", err)
	}

	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

func (m *MySQLAdapter) IncrementTicketsSold(ctx context.Context, eventID string, quantity int) (bool, error) {
	result, err := m.db.ExecContext(ctx, `
		UPDATE events
		SET tickets_sold = tickets_sold + ?
		WHERE id = ? AND tickets_sold + ? <= capacity`,
		quantity, eventID, quantity,
	)
	if err != nil {
		return false, fmt.Errorf("increment tickets sold: %w", err)
	}

	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

func (m *MySQLAdapter) GetLoyaltyAccount(ctx context.Context, customerID string) (*domain.LoyaltyAccount, error) {
	var acc domain.LoyaltyAccount
	err := m.db.QueryRowContext(ctx, `
		SELECT id, points, total_spent, category
		FROM customers WHERE id = ?`, customerID,
	).Scan(&acc.CustomerID, &acc.Points, &acc.TotalSpent, &acc.Category)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query loyalty account: %w", err)
	}
	return &acc, nil
}

func (m *MySQLAdapter) AddLoyalty(ctx context.Context, customerID string, points int64, spent decimal.Decimal) error {
	result, err := m.db.ExecContext(ctx, `
		UPDATE customers
		SET points = points + ?, total_spent = total_spent + ?
		WHERE id = ?`,
		points, spent, customerID,
	)
	if err != nil {
		return fmt.Errorf("add loyalty: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrUnknownCustomer
	}
	return nil
}

func (m *MySQLAdapter) ListLoyaltyRules(ctx context.Context) ([]domain.LoyaltyRule, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT category, discount_pct FROM loyalty_rules`)
	if err != nil {
		return nil, fmt.Errorf("query loyalty rules: %w", err)
	}
	defer rows.Close()

	var out []domain.LoyaltyRule
	for rows.Next() {
		var rule domain.LoyaltyRule
		if err := rows.Scan(&rule.Category, &rule.DiscountPct); err != nil {
			return nil, fmt.Errorf("scan loyalty rule: %w", err)
		}
		out = append(out, rule)
	}
	return out, rows.Err()
}
