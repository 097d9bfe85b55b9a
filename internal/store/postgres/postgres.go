package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/shopspring/decimal"

	"stockledger/backend/internal/domain"
	"stockledger/backend/internal/ledger"
	"stockledger/backend/internal/orderflow"
	"stockledger/backend/internal/store"
	"stockledger/backend/internal/trend"
	"stockledger/backend/internal/xid"
)

//go:embed schema.sql
var schemaSQL string

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate applies the embedded schema. Every statement is idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range strings.Split(schemaSQL, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

const productColumns = `sku, name, category, cost_price, selling_price, current_price,
	discount_percent, trend_score, abc_class, last_trend_update, active, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (domain.Product, error) {
	var p domain.Product
	var lastUpdate sql.NullTime
	err := row.Scan(&p.SKU, &p.Name, &p.Category, &p.CostPrice, &p.SellingPrice, &p.CurrentPrice,
		&p.DiscountPercent, &p.TrendScore, &p.ABCClass, &lastUpdate, &p.Active, &p.CreatedAt)
	if err != nil {
		return p, err
	}
	if lastUpdate.Valid {
		t := lastUpdate.Time.UTC()
		p.LastTrendUpdate = &t
	}
	p.CreatedAt = p.CreatedAt.UTC()
	return p, nil
}

func (s *Store) queryProducts(ctx context.Context, query string, args ...any) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 64)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return products, nil
}

func (s *Store) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return s.queryProducts(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE active = true
		ORDER BY category, name
	`)
}

func (s *Store) getProduct(ctx context.Context, where string, arg any) (*domain.Product, error) {
	p, err := scanProduct(s.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE `+where, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *Store) GetProductBySKU(ctx context.Context, sku string) (*domain.Product, error) {
	return s.getProduct(ctx, `sku = $1`, sku)
}

func (s *Store) GetProductByName(ctx context.Context, name string) (*domain.Product, error) {
	return s.getProduct(ctx, `active = true AND lower(name) = lower($1)`, strings.TrimSpace(name))
}

func (s *Store) SearchProducts(ctx context.Context, query string, limit int) ([]domain.Product, error) {
	if limit < 1 {
		limit = 10
	}
	needle := strings.ToLower(strings.TrimSpace(query))
	return s.queryProducts(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE active = true AND (strpos(lower(name), $1) > 0 OR lower(sku) LIKE $2 ESCAPE '\')
		ORDER BY name
		LIMIT $3
	`, needle, escapeLike(needle)+"%", limit)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes user input match literally inside a LIKE pattern that
// declares ESCAPE '\'.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func (s *Store) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if product.SKU == "" || product.Name == "" || !product.SellingPrice.IsPositive() || product.CostPrice.IsNegative() {
		return nil, store.ErrInvalidInput
	}
	if product.CurrentPrice.IsZero() {
		product.CurrentPrice = product.SellingPrice
	}
	if product.CreatedAt.IsZero() {
		product.CreatedAt = time.Now().UTC()
	}
	product.ABCClass = trend.Classify(product.TrendScore)
	product.Active = true

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (sku, name, category, cost_price, selling_price, current_price,
			discount_percent, trend_score, abc_class, active, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,now())
	`, product.SKU, product.Name, product.Category, product.CostPrice, product.SellingPrice, product.CurrentPrice,
		product.DiscountPercent, product.TrendScore, product.ABCClass, product.Active, product.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		return nil, err
	}

	created := product
	return &created, nil
}

func (s *Store) UpdateProductPricing(ctx context.Context, sku string, currentPrice decimal.Decimal, discountPercent float64) (*domain.Product, error) {
	if currentPrice.IsNegative() || discountPercent < 0 || discountPercent > 100 {
		return nil, store.ErrInvalidInput
	}
	p, err := scanProduct(s.db.QueryRowContext(ctx, `
		UPDATE products
		SET current_price = $2, discount_percent = $3, updated_at = now()
		WHERE sku = $1
		RETURNING `+productColumns, sku, currentPrice, discountPercent))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *Store) UpdateTrendScore(ctx context.Context, sku string, score float64, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET trend_score = $2, abc_class = $3, last_trend_update = $4, updated_at = now()
		WHERE sku = $1
	`, sku, score, trend.Classify(score), at.UTC())
	if err != nil {
		return err
	}
	return expectAffected(res)
}

const batchColumns = `id, store_id, sku, quantity, expiry_date, source_type, COALESCE(source_id, ''), created_at`

func scanBatch(row rowScanner) (domain.StockBatch, error) {
	var b domain.StockBatch
	err := row.Scan(&b.ID, &b.StoreID, &b.SKU, &b.Quantity, &b.ExpiryDate, &b.SourceType, &b.SourceID, &b.CreatedAt)
	b.ExpiryDate = domain.DateOnly(b.ExpiryDate)
	b.CreatedAt = b.CreatedAt.UTC()
	return b, err
}

func queryBatches(ctx context.Context, q querier, query string, args ...any) ([]domain.StockBatch, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	batches := make([]domain.StockBatch, 0, 32)
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, err
		}
		batches = append(batches, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return batches, nil
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) AddBatch(ctx context.Context, batch domain.StockBatch) (*domain.StockBatch, error) {
	if batch.StoreID == "" || batch.SKU == "" || batch.Quantity < 1 || batch.ExpiryDate.IsZero() {
		return nil, store.ErrInvalidInput
	}
	if batch.ID == "" {
		batch.ID = xid.New("bat")
	}
	if batch.SourceType == "" {
		batch.SourceType = domain.BatchSourceManual
	}
	if batch.CreatedAt.IsZero() {
		batch.CreatedAt = time.Now().UTC()
	}
	batch.ExpiryDate = domain.DateOnly(batch.ExpiryDate)

	if err := insertBatch(ctx, s.db, batch); err != nil {
		return nil, err
	}
	created := batch
	return &created, nil
}

func insertBatch(ctx context.Context, q querier, batch domain.StockBatch) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO stock_batches (id, store_id, sku, quantity, expiry_date, source_type, source_id, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, batch.ID, batch.StoreID, batch.SKU, batch.Quantity, batch.ExpiryDate, batch.SourceType,
		nullIfEmpty(batch.SourceID), batch.CreatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return store.ErrNotFound
		}
		return err
	}
	return nil
}

func (s *Store) ListBatches(ctx context.Context, storeID string, sku string) ([]domain.StockBatch, error) {
	return queryBatches(ctx, s.db, `
		SELECT `+batchColumns+`
		FROM stock_batches
		WHERE quantity > 0 AND ($1 = '' OR store_id = $1) AND ($2 = '' OR sku = $2)
		ORDER BY expiry_date ASC, created_at ASC, id ASC
	`, storeID, sku)
}

func (s *Store) PurgeExpired(ctx context.Context, today time.Time) ([]domain.StockBatch, error) {
	removed, err := queryBatches(ctx, s.db, `
		DELETE FROM stock_batches
		WHERE expiry_date < $1
		RETURNING `+batchColumns, domain.DateOnly(today))
	if err != nil {
		return nil, err
	}
	purged := slices.DeleteFunc(removed, func(b domain.StockBatch) bool { return b.Quantity < 1 })
	slices.SortFunc(purged, ledger.CompareFEFO)
	return purged, nil
}

// lockBatches loads and row-locks the live-quantity batches of storeID for skus.
func lockBatches(ctx context.Context, tx *sql.Tx, storeID string, skus []string) ([]domain.StockBatch, error) {
	return queryBatches(ctx, tx, `
		SELECT `+batchColumns+`
		FROM stock_batches
		WHERE store_id = $1 AND sku = ANY($2) AND quantity > 0
		ORDER BY expiry_date ASC, created_at ASC, id ASC
		FOR UPDATE
	`, storeID, skus)
}

func consume(ctx context.Context, tx *sql.Tx, allocations []domain.BatchAllocation) error {
	for _, alloc := range allocations {
		res, err := tx.ExecContext(ctx, `
			UPDATE stock_batches
			SET quantity = quantity - $1
			WHERE id = $2 AND quantity >= $1
		`, alloc.Quantity, alloc.BatchID)
		if err != nil {
			return err
		}
		if err := expectAffected(res); err != nil {
			return &ledger.InsufficientStockError{SKU: alloc.SKU, Requested: alloc.Quantity}
		}
	}
	return nil
}

func (s *Store) CreateBill(ctx context.Context, bill domain.Bill, lines []domain.BillLineRequest, today time.Time) (*domain.Bill, error) {
	if bill.StoreID == "" || len(lines) == 0 {
		return nil, store.ErrInvalidInput
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	skus := uniqueSKUs(lines)
	productRows, err := tx.QueryContext(ctx, `
		SELECT sku, name, current_price
		FROM products
		WHERE active = true AND sku = ANY($1)
	`, skus)
	if err != nil {
		return nil, err
	}
	products := make(map[string]domain.Product, len(skus))
	for productRows.Next() {
		var p domain.Product
		if err := productRows.Scan(&p.SKU, &p.Name, &p.CurrentPrice); err != nil {
			_ = productRows.Close()
			return nil, err
		}
		products[p.SKU] = p
	}
	if err := productRows.Err(); err != nil {
		_ = productRows.Close()
		return nil, err
	}
	_ = productRows.Close()

	batches, err := lockBatches(ctx, tx, bill.StoreID, skus)
	if err != nil {
		return nil, err
	}

	items := make([]domain.BillItem, 0, len(lines))
	total := decimal.Zero
	for _, line := range lines {
		product, ok := products[line.SKU]
		if !ok {
			return nil, store.ErrNotFound
		}
		deduction, err := ledger.Deduct(line.SKU, batches, line.Quantity, today)
		if err != nil {
			return nil, err
		}
		if _, err := ledger.Apply(batches, deduction.Allocations); err != nil {
			return nil, err
		}
		if err := consume(ctx, tx, deduction.Allocations); err != nil {
			return nil, err
		}
		lineTotal := product.CurrentPrice.Mul(decimal.NewFromInt(int64(line.Quantity))).Round(2)
		items = append(items, domain.BillItem{
			SKU:         product.SKU,
			Name:        product.Name,
			Quantity:    line.Quantity,
			UnitPrice:   product.CurrentPrice,
			LineTotal:   lineTotal,
			Allocations: deduction.Allocations,
		})
		total = total.Add(lineTotal)
	}

	var seq int64
	if err := tx.QueryRowContext(ctx, `SELECT nextval('bill_number_seq')`).Scan(&seq); err != nil {
		return nil, err
	}
	if bill.ID == "" {
		bill.ID = xid.New("bill")
	}
	if bill.CreatedAt.IsZero() {
		bill.CreatedAt = time.Now().UTC()
	}
	if bill.Source == "" {
		bill.Source = domain.BillSourceCounter
	}
	bill.Number = store.BillNumber(seq)
	bill.Items = items
	bill.Total = total

	_, err = tx.ExecContext(ctx, `
		INSERT INTO bills (id, number, store_id, created_by, source, total, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, bill.ID, bill.Number, bill.StoreID, bill.CreatedBy, bill.Source, bill.Total, bill.CreatedAt)
	if err != nil {
		return nil, err
	}
	for i, item := range bill.Items {
		allocations, err := json.Marshal(item.Allocations)
		if err != nil {
			return nil, err
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO bill_items (bill_id, line_no, sku, name, quantity, unit_price, line_total, allocations)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		`, bill.ID, i+1, item.SKU, item.Name, item.Quantity, item.UnitPrice, item.LineTotal, string(allocations))
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &bill, nil
}

func (s *Store) GetBill(ctx context.Context, id string) (*domain.Bill, error) {
	bills, err := s.queryBills(ctx, `
		SELECT id, number, store_id, created_by, source, total, created_at
		FROM bills
		WHERE id = $1
	`, id)
	if err != nil {
		return nil, err
	}
	if len(bills) == 0 {
		return nil, store.ErrNotFound
	}
	return &bills[0], nil
}

func (s *Store) ListBills(ctx context.Context, storeID string, since time.Time, limit int) ([]domain.Bill, error) {
	if limit < 1 {
		limit = 1000
	}
	return s.queryBills(ctx, `
		SELECT id, number, store_id, created_by, source, total, created_at
		FROM bills
		WHERE ($1 = '' OR store_id = $1) AND created_at >= $2
		ORDER BY created_at DESC, number DESC
		LIMIT $3
	`, storeID, since, limit)
}

// queryBills loads bill headers, then their items in one query.
func (s *Store) queryBills(ctx context.Context, query string, args ...any) ([]domain.Bill, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	bills := make([]domain.Bill, 0, 16)
	index := map[string]int{}
	for rows.Next() {
		var b domain.Bill
		if err := rows.Scan(&b.ID, &b.Number, &b.StoreID, &b.CreatedBy, &b.Source, &b.Total, &b.CreatedAt); err != nil {
			_ = rows.Close()
			return nil, err
		}
		b.CreatedAt = b.CreatedAt.UTC()
		b.Items = []domain.BillItem{}
		index[b.ID] = len(bills)
		bills = append(bills, b)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, err
	}
	_ = rows.Close()
	if len(bills) == 0 {
		return bills, nil
	}

	ids := make([]string, 0, len(bills))
	for _, b := range bills {
		ids = append(ids, b.ID)
	}
	itemRows, err := s.db.QueryContext(ctx, `
		SELECT bill_id, sku, name, quantity, unit_price, line_total, allocations
		FROM bill_items
		WHERE bill_id = ANY($1)
		ORDER BY bill_id, line_no
	`, ids)
	if err != nil {
		return nil, err
	}
	defer itemRows.Close()
	for itemRows.Next() {
		var billID string
		var item domain.BillItem
		var allocations []byte
		if err := itemRows.Scan(&billID, &item.SKU, &item.Name, &item.Quantity, &item.UnitPrice, &item.LineTotal, &allocations); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(allocations, &item.Allocations); err != nil {
			return nil, fmt.Errorf("decode bill allocations: %w", err)
		}
		i := index[billID]
		bills[i].Items = append(bills[i].Items, item)
	}
	if err := itemRows.Err(); err != nil {
		return nil, err
	}
	return bills, nil
}

func (s *Store) SalesTotals(ctx context.Context, storeID string, from time.Time, to time.Time) (int, decimal.Decimal, error) {
	var count int
	var amount decimal.Decimal
	err := s.db.QueryRowContext(ctx, `
		SELECT count(*), COALESCE(SUM(total), 0)
		FROM bills
		WHERE ($1 = '' OR store_id = $1) AND created_at >= $2 AND created_at < $3
	`, storeID, from, to).Scan(&count, &amount)
	if err != nil {
		return 0, decimal.Zero, err
	}
	return count, amount, nil
}

const orderColumns = `id, store_id, sku, requested_qty, fulfilled_qty, received_qty, status,
	inventory_action, COALESCE(inventory_action_by, ''), inventory_action_at,
	admin_marked_received, admin_marked_received_at, allocations, note, requested_by,
	last_actor, created_at, updated_at`

func scanOrder(row rowScanner) (domain.OrderRequest, error) {
	var o domain.OrderRequest
	var actionAt, markedAt sql.NullTime
	var allocations []byte
	err := row.Scan(&o.ID, &o.StoreID, &o.SKU, &o.RequestedQty, &o.FulfilledQty, &o.ReceivedQty, &o.Status,
		&o.InventoryAction, &o.InventoryActionBy, &actionAt,
		&o.AdminMarkedReceived, &markedAt, &allocations, &o.Note, &o.RequestedBy,
		&o.LastActor, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return o, err
	}
	if actionAt.Valid {
		t := actionAt.Time.UTC()
		o.InventoryActionAt = &t
	}
	if markedAt.Valid {
		t := markedAt.Time.UTC()
		o.AdminMarkedReceivedAt = &t
	}
	if len(allocations) > 0 {
		if err := json.Unmarshal(allocations, &o.Allocations); err != nil {
			return o, fmt.Errorf("decode order allocations: %w", err)
		}
	}
	o.CreatedAt = o.CreatedAt.UTC()
	o.UpdatedAt = o.UpdatedAt.UTC()
	return o, nil
}

func (s *Store) CreateOrder(ctx context.Context, order domain.OrderRequest) (*domain.OrderRequest, error) {
	if order.StoreID == "" || order.SKU == "" || order.RequestedQty < 1 {
		return nil, store.ErrInvalidInput
	}
	if order.ID == "" {
		order.ID = xid.New("ord")
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now().UTC()
	}
	order.UpdatedAt = order.CreatedAt
	order.Status = domain.OrderStatusPending
	order.InventoryAction = domain.InventoryActionNone

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO order_requests (id, store_id, sku, requested_qty, status, inventory_action,
			note, requested_by, last_actor, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`, order.ID, order.StoreID, order.SKU, order.RequestedQty, order.Status, order.InventoryAction,
		order.Note, order.RequestedBy, order.LastActor, order.CreatedAt, order.UpdatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	created := order
	return &created, nil
}

func (s *Store) GetOrder(ctx context.Context, id string) (*domain.OrderRequest, error) {
	o, err := scanOrder(s.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM order_requests WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &o, nil
}

func (s *Store) ListOrders(ctx context.Context, filter domain.OrderFilter) ([]domain.OrderRequest, error) {
	limit := filter.Limit
	if limit < 1 {
		limit = 500
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+orderColumns+`
		FROM order_requests
		WHERE ($1 = '' OR store_id = $1)
			AND ($2 = '' OR status = $2)
			AND (NOT $3 OR status NOT IN ('completed', 'cancelled'))
		ORDER BY created_at DESC, id DESC
		LIMIT $4
	`, filter.StoreID, filter.Status, filter.OpenOnly, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := make([]domain.OrderRequest, 0, 32)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return orders, nil
}

func (s *Store) TransitionOrder(ctx context.Context, id string, cmd orderflow.Command, warehouseStoreID string) (*domain.OrderRequest, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	order, err := scanOrder(tx.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM order_requests WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	plan, err := orderflow.Prepare(order, cmd)
	if err != nil {
		return nil, err
	}
	at := plan.Order.UpdatedAt

	switch {
	case plan.WarehouseQty > 0:
		batches, err := lockBatches(ctx, tx, warehouseStoreID, []string{order.SKU})
		if err != nil {
			return nil, err
		}
		deduction, err := ledger.Deduct(order.SKU, batches, plan.WarehouseQty, at)
		if err != nil {
			return nil, err
		}
		if err := consume(ctx, tx, deduction.Allocations); err != nil {
			return nil, err
		}
		plan.Order.Allocations = deduction.Allocations
	case len(plan.CreditStore) > 0:
		for _, alloc := range plan.CreditStore {
			err := insertBatch(ctx, tx, domain.StockBatch{
				ID:         xid.New("bat"),
				StoreID:    order.StoreID,
				SKU:        alloc.SKU,
				Quantity:   alloc.Quantity,
				ExpiryDate: domain.DateOnly(alloc.ExpiryDate),
				SourceType: domain.BatchSourceTransfer,
				SourceID:   order.ID,
				CreatedAt:  at,
			})
			if err != nil {
				return nil, err
			}
		}
	case plan.ReceiveQty > 0:
		err := insertBatch(ctx, tx, domain.StockBatch{
			ID:         xid.New("bat"),
			StoreID:    order.StoreID,
			SKU:        order.SKU,
			Quantity:   plan.ReceiveQty,
			ExpiryDate: plan.ReceiveExpiry,
			SourceType: domain.BatchSourceOrder,
			SourceID:   order.ID,
			CreatedAt:  at,
		})
		if err != nil {
			return nil, err
		}
	}

	next := plan.Order
	allocations, err := json.Marshal(next.Allocations)
	if err != nil {
		return nil, err
	}
	_, err = tx.ExecContext(ctx, `
		UPDATE order_requests
		SET fulfilled_qty = $2, received_qty = $3, status = $4, inventory_action = $5,
			inventory_action_by = $6, inventory_action_at = $7, admin_marked_received = $8,
			admin_marked_received_at = $9, allocations = $10, note = $11, last_actor = $12, updated_at = $13
		WHERE id = $1
	`, next.ID, next.FulfilledQty, next.ReceivedQty, next.Status, next.InventoryAction,
		nullIfEmpty(next.InventoryActionBy), nullTime(next.InventoryActionAt), next.AdminMarkedReceived,
		nullTime(next.AdminMarkedReceivedAt), string(allocations), next.Note, next.LastActor, next.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &next, nil
}

const notificationColumns = `id, title, message, type, priority, target_role, store_id, COALESCE(sku, ''),
	COALESCE(order_id, ''), COALESCE(created_by, ''), is_read, created_at, updated_at, expires_at`

func scanNotification(row rowScanner) (domain.Notification, error) {
	var n domain.Notification
	var expires sql.NullTime
	err := row.Scan(&n.ID, &n.Title, &n.Message, &n.Type, &n.Priority, &n.TargetRole, &n.StoreID, &n.SKU,
		&n.OrderID, &n.CreatedBy, &n.IsRead, &n.CreatedAt, &n.UpdatedAt, &expires)
	if err != nil {
		return n, err
	}
	if expires.Valid {
		t := expires.Time.UTC()
		n.ExpiresAt = &t
	}
	n.CreatedAt = n.CreatedAt.UTC()
	n.UpdatedAt = n.UpdatedAt.UTC()
	return n, nil
}

func (s *Store) queryNotifications(ctx context.Context, query string, args ...any) ([]domain.Notification, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.Notification, 0, 32)
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CreateNotification(ctx context.Context, n domain.Notification) (*domain.Notification, error) {
	if strings.TrimSpace(n.Title) == "" || !domain.ValidNotificationType(n.Type) || !domain.ValidPriority(n.Priority) {
		return nil, store.ErrInvalidInput
	}
	if n.TargetRole == "" {
		n.TargetRole = domain.RoleAll
	}
	if n.ID == "" {
		n.ID = xid.New("ntf")
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	n.UpdatedAt = n.CreatedAt

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notifications (id, title, message, type, priority, target_role, store_id, sku, order_id,
			created_by, is_read, created_at, updated_at, expires_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
	`, n.ID, n.Title, n.Message, n.Type, n.Priority, n.TargetRole, n.StoreID, nullIfEmpty(n.SKU), nullIfEmpty(n.OrderID),
		nullIfEmpty(n.CreatedBy), n.IsRead, n.CreatedAt, n.UpdatedAt, nullTime(n.ExpiresAt))
	if err != nil {
		return nil, err
	}
	created := n
	return &created, nil
}

func (s *Store) ListNotifications(ctx context.Context, filter domain.NotificationFilter) (domain.NotificationPage, error) {
	page := domain.NotificationPage{Items: []domain.Notification{}}
	roles, storeID := audienceArgs(filter.Audience)

	visible := audienceClause + ` AND (expires_at IS NULL OR expires_at >= now())`
	err := s.db.QueryRowContext(ctx, `
		SELECT
			count(*) FILTER (WHERE NOT is_read),
			count(*) FILTER (WHERE NOT is_read AND priority = 'urgent'),
			count(*) FILTER (WHERE NOT is_read AND priority = 'high')
		FROM notifications
		WHERE `+visible, roles, storeID).Scan(&page.UnreadCount, &page.UrgentCount, &page.HighCount)
	if err != nil {
		return page, err
	}

	matched := visible + `
		AND ($3 = '' OR type = $3)
		AND (NOT $4 OR NOT is_read)
		AND (NOT $5 OR is_read)`
	args := []any{roles, storeID, filter.Type, filter.UnreadOnly, filter.ReadOnly}
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM notifications WHERE `+matched, args...).Scan(&page.Total); err != nil {
		return page, err
	}

	limit := any(nil)
	if filter.Limit > 0 {
		limit = filter.Limit
	}
	items, err := s.queryNotifications(ctx, `
		SELECT `+notificationColumns+`
		FROM notifications
		WHERE `+matched+`
		ORDER BY created_at DESC, id DESC
		OFFSET $6 LIMIT $7
	`, append(args, max(filter.Offset, 0), limit)...)
	if err != nil {
		return page, err
	}
	page.Items = append(page.Items, items...)
	return page, nil
}

func (s *Store) ListNotificationsByCreator(ctx context.Context, createdBy string, limit int) ([]domain.Notification, error) {
	if limit < 1 {
		limit = 100
	}
	return s.queryNotifications(ctx, `
		SELECT `+notificationColumns+`
		FROM notifications
		WHERE created_by = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, createdBy, limit)
}

// audienceClause matches rows visible to the audience bound at $1 (roles) and $2 (store).
const audienceClause = `(cardinality($1::text[]) = 0 OR target_role = ANY($1)) AND ($2 = '' OR store_id = '' OR store_id = $2)`

func audienceArgs(audience domain.NotificationAudience) ([]string, string) {
	if audience.Roles == nil {
		return []string{}, audience.StoreID
	}
	return audience.Roles, audience.StoreID
}

func (s *Store) MarkNotificationRead(ctx context.Context, id string, audience domain.NotificationAudience, at time.Time) error {
	roles, storeID := audienceArgs(audience)
	res, err := s.db.ExecContext(ctx, `
		UPDATE notifications
		SET is_read = true, updated_at = $3
		WHERE `+audienceClause+` AND id = $4
	`, roles, storeID, at, id)
	if err != nil {
		return err
	}
	return expectAffected(res)
}

func (s *Store) MarkAllNotificationsRead(ctx context.Context, audience domain.NotificationAudience, at time.Time) (int, error) {
	roles, storeID := audienceArgs(audience)
	res, err := s.db.ExecContext(ctx, `
		UPDATE notifications
		SET is_read = true, updated_at = $3
		WHERE `+audienceClause+` AND NOT is_read
	`, roles, storeID, at)
	if err != nil {
		return 0, err
	}
	affected, err := res.RowsAffected()
	return int(affected), err
}

func (s *Store) DeleteNotification(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM notifications WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return expectAffected(res)
}

func (s *Store) DeleteNotificationsBefore(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM notifications WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	affected, err := res.RowsAffected()
	return int(affected), err
}

func (s *Store) NotificationExists(ctx context.Context, sku string, kind string, targetRole string, storeID string, since time.Time) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM notifications
			WHERE sku = $1 AND type = $2 AND target_role = $3 AND store_id = $4 AND created_at >= $5
		)
	`, sku, kind, targetRole, storeID, since).Scan(&exists)
	return exists, err
}

const recommendationColumns = `id, sku, type, text, trend_score, stock_level, suggested_value,
	suggested_qty, status, COALESCE(applied_by, ''), applied_at, created_at`

func (s *Store) SaveRecommendation(ctx context.Context, rec domain.Recommendation) (*domain.Recommendation, error) {
	if rec.SKU == "" || rec.Type == "" {
		return nil, store.ErrInvalidInput
	}
	if rec.ID == "" {
		rec.ID = xid.New("rec")
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	if rec.Status == "" {
		rec.Status = domain.RecommendationPending
	}

	var suggestedValue any
	if rec.SuggestedValue != nil {
		suggestedValue = *rec.SuggestedValue
	}
	var suggestedQty any
	if rec.SuggestedQty != nil {
		suggestedQty = *rec.SuggestedQty
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO recommendations (id, sku, type, text, trend_score, stock_level, suggested_value,
			suggested_qty, status, applied_by, applied_at, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		ON CONFLICT (id) DO UPDATE
		SET status = EXCLUDED.status, applied_by = EXCLUDED.applied_by, applied_at = EXCLUDED.applied_at
	`, rec.ID, rec.SKU, rec.Type, rec.Text, rec.TrendScore, rec.StockLevel, suggestedValue,
		suggestedQty, rec.Status, nullIfEmpty(rec.AppliedBy), nullTime(rec.AppliedAt), rec.CreatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	saved := rec
	return &saved, nil
}

func (s *Store) DismissRecommendations(ctx context.Context, sku string) (int, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE recommendations SET status = 'dismissed'
		WHERE sku = $1 AND status = 'pending'
	`, sku)
	if err != nil {
		return 0, err
	}
	affected, err := res.RowsAffected()
	return int(affected), err
}

func (s *Store) ListRecommendations(ctx context.Context, sku string, status string, limit int) ([]domain.Recommendation, error) {
	if limit < 1 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+recommendationColumns+`
		FROM recommendations
		WHERE ($1 = '' OR sku = $1) AND ($2 = '' OR status = $2)
		ORDER BY created_at DESC, id DESC
		LIMIT $3
	`, sku, status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]domain.Recommendation, 0, 16)
	for rows.Next() {
		var rec domain.Recommendation
		var value decimal.NullDecimal
		var qty sql.NullInt64
		var appliedAt sql.NullTime
		if err := rows.Scan(&rec.ID, &rec.SKU, &rec.Type, &rec.Text, &rec.TrendScore, &rec.StockLevel, &value,
			&qty, &rec.Status, &rec.AppliedBy, &appliedAt, &rec.CreatedAt); err != nil {
			return nil, err
		}
		if value.Valid {
			v := value.Decimal
			rec.SuggestedValue = &v
		}
		if qty.Valid {
			q := int(qty.Int64)
			rec.SuggestedQty = &q
		}
		if appliedAt.Valid {
			t := appliedAt.Time.UTC()
			rec.AppliedAt = &t
		}
		rec.CreatedAt = rec.CreatedAt.UTC()
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Store) TrendSignals(ctx context.Context, since30 time.Time, since7 time.Time, today time.Time) (map[string]domain.TrendSignals, error) {
	products, err := s.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	signals := make(map[string]domain.TrendSignals, len(products))
	for _, p := range products {
		signals[p.SKU] = domain.TrendSignals{SKU: p.SKU}
	}
	apply := func(query string, fn func(sig *domain.TrendSignals, a int, b int), args ...any) error {
		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var sku string
			var a, b int
			if err := rows.Scan(&sku, &a, &b); err != nil {
				return err
			}
			sig, ok := signals[sku]
			if !ok {
				continue
			}
			fn(&sig, a, b)
			signals[sku] = sig
		}
		return rows.Err()
	}

	steps := []struct {
		query string
		fn    func(sig *domain.TrendSignals, a int, b int)
		args  []any
	}{
		{
			`SELECT sku, COALESCE(SUM(quantity), 0), 0 FROM stock_batches
			 WHERE quantity > 0 AND expiry_date >= $1 GROUP BY sku`,
			func(sig *domain.TrendSignals, stock int, _ int) { sig.Stock = stock },
			[]any{domain.DateOnly(today)},
		},
		{
			`SELECT sku, count(*), 0 FROM stock_batches WHERE created_at >= $1 GROUP BY sku`,
			func(sig *domain.TrendSignals, n int, _ int) { sig.StockMovements30d = n },
			[]any{since30},
		},
		{
			`SELECT bi.sku, count(*), count(*) FILTER (WHERE b.created_at >= $2)
			 FROM bill_items bi JOIN bills b ON b.id = bi.bill_id
			 WHERE b.created_at >= $1 GROUP BY bi.sku`,
			func(sig *domain.TrendSignals, n int, recent int) {
				sig.Sales30d = n
				sig.Activity7d += recent
			},
			[]any{since30, since7},
		},
		{
			`SELECT sku, count(*), count(*) FILTER (WHERE created_at >= $2)
			 FROM order_requests WHERE created_at >= $1 GROUP BY sku`,
			func(sig *domain.TrendSignals, n int, recent int) {
				sig.Requests30d = n
				sig.Activity7d += recent
			},
			[]any{since30, since7},
		},
	}
	for _, step := range steps {
		if err := apply(step.query, step.fn, step.args...); err != nil {
			return nil, err
		}
	}
	return signals, nil
}

const userColumns = `username, display_name, password, role, store_id, COALESCE(ledger_token, ''), active, created_at`

func scanUser(row rowScanner) (domain.UserAccount, error) {
	var u domain.UserAccount
	err := row.Scan(&u.Username, &u.DisplayName, &u.Password, &u.Role, &u.StoreID, &u.LedgerToken, &u.Active, &u.CreatedAt)
	u.CreatedAt = u.CreatedAt.UTC()
	return u, err
}

func (s *Store) getUser(ctx context.Context, where string, arg any) (*domain.UserAccount, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM app_users WHERE `+where, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (s *Store) GetUser(ctx context.Context, username string) (*domain.UserAccount, error) {
	return s.getUser(ctx, `username = $1`, strings.ToLower(strings.TrimSpace(username)))
}

func (s *Store) GetUserByLedgerToken(ctx context.Context, token string) (*domain.UserAccount, error) {
	if token == "" {
		return nil, store.ErrNotFound
	}
	return s.getUser(ctx, `ledger_token = $1 AND active = true`, token)
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+userColumns+` FROM app_users ORDER BY username ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.UserAccount, 0, 16)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	user.Username = strings.ToLower(strings.TrimSpace(user.Username))
	if user.Username == "" || strings.TrimSpace(user.Password) == "" || !domain.ValidRole(user.Role) {
		return store.ErrInvalidInput
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO app_users (username, display_name, password, role, store_id, ledger_token, active, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,now())
	`, user.Username, user.DisplayName, user.Password, user.Role, user.StoreID, nullIfEmpty(user.LedgerToken), user.Active, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrConflict
		}
		return err
	}
	return nil
}

const storeColumns = `id, name, owner_name, phone_number, email, address, warehouse, created_at, updated_at`

func scanStore(row rowScanner) (domain.Store, error) {
	var st domain.Store
	err := row.Scan(&st.ID, &st.Name, &st.OwnerName, &st.PhoneNumber, &st.Email, &st.Address, &st.Warehouse, &st.CreatedAt, &st.UpdatedAt)
	st.CreatedAt = st.CreatedAt.UTC()
	st.UpdatedAt = st.UpdatedAt.UTC()
	return st, err
}

func (s *Store) ListStores(ctx context.Context) ([]domain.Store, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+storeColumns+` FROM stores ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stores := make([]domain.Store, 0, 16)
	for rows.Next() {
		st, err := scanStore(rows)
		if err != nil {
			return nil, err
		}
		stores = append(stores, st)
	}
	return stores, rows.Err()
}

func (s *Store) GetStore(ctx context.Context, id string) (*domain.Store, error) {
	st, err := scanStore(s.db.QueryRowContext(ctx, `SELECT `+storeColumns+` FROM stores WHERE id = $1`, strings.TrimSpace(id)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &st, nil
}

func (s *Store) CreateStore(ctx context.Context, st domain.Store) (*domain.Store, error) {
	if st.ID == "" || st.Name == "" {
		return nil, store.ErrInvalidInput
	}
	if st.CreatedAt.IsZero() {
		st.CreatedAt = time.Now().UTC()
	}
	st.UpdatedAt = st.CreatedAt

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO stores (`+storeColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, st.ID, st.Name, st.OwnerName, st.PhoneNumber, st.Email, st.Address, st.Warehouse, st.CreatedAt, st.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		return nil, err
	}
	return &st, nil
}

func (s *Store) UpdateStore(ctx context.Context, st domain.Store) (*domain.Store, error) {
	if st.ID == "" || st.Name == "" {
		return nil, store.ErrInvalidInput
	}
	if st.UpdatedAt.IsZero() {
		st.UpdatedAt = time.Now().UTC()
	}
	updated, err := scanStore(s.db.QueryRowContext(ctx, `
		UPDATE stores
		SET name = $2, owner_name = $3, phone_number = $4, email = $5, address = $6, updated_at = $7
		WHERE id = $1
		RETURNING `+storeColumns,
		st.ID, st.Name, st.OwnerName, st.PhoneNumber, st.Email, st.Address, st.UpdatedAt))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (s *Store) DeleteStore(ctx context.Context, id string) error {
	var inUse bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM app_users WHERE store_id = $1)
			OR EXISTS (SELECT 1 FROM stock_batches WHERE store_id = $1 AND quantity > 0)
	`, id).Scan(&inUse)
	if err != nil {
		return err
	}
	if inUse {
		return store.ErrConflict
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM stores WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return expectAffected(res)
}

func (s *Store) DeleteUser(ctx context.Context, username string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM app_users WHERE username = $1`, strings.ToLower(strings.TrimSpace(username)))
	if err != nil {
		return err
	}
	return expectAffected(res)
}

func (s *Store) UpdateLedgerToken(ctx context.Context, username string, token string) error {
	if token == "" {
		return store.ErrInvalidInput
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE app_users SET ledger_token = $2, updated_at = now() WHERE username = $1
	`, strings.ToLower(strings.TrimSpace(username)), token)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrConflict
		}
		return err
	}
	return expectAffected(res)
}

func (s *Store) CreateAuditLog(ctx context.Context, entry domain.AuditLog) error {
	if entry.ID == "" {
		entry.ID = xid.New("audit")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_logs (id, store_id, actor, actor_role, action, entity_type, entity_id, detail, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, entry.ID, entry.StoreID, entry.Actor, entry.ActorRole, entry.Action, entry.EntityType, entry.EntityID, entry.Detail, entry.CreatedAt)
	return err
}

func (s *Store) ListAuditLogs(ctx context.Context, storeID string, limit int) ([]domain.AuditLog, error) {
	if limit < 1 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, store_id, actor, actor_role, action, entity_type, entity_id, detail, created_at
		FROM audit_logs
		WHERE ($1 = '' OR store_id = $1)
		ORDER BY created_at DESC
		LIMIT $2
	`, storeID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]domain.AuditLog, 0, limit)
	for rows.Next() {
		var entry domain.AuditLog
		if err := rows.Scan(&entry.ID, &entry.StoreID, &entry.Actor, &entry.ActorRole, &entry.Action,
			&entry.EntityType, &entry.EntityID, &entry.Detail, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entry.CreatedAt = entry.CreatedAt.UTC()
		logs = append(logs, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return logs, nil
}

func expectAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func uniqueSKUs(lines []domain.BillLineRequest) []string {
	skus := make([]string, 0, len(lines))
	for _, line := range lines {
		if line.SKU != "" && !slices.Contains(skus, line.SKU) {
			skus = append(skus, line.SKU)
		}
	}
	slices.Sort(skus)
	return skus
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23503"
	}
	return false
}

func nullIfEmpty(val string) any {
	if val == "" {
		return nil
	}
	return val
}

func nullTime(val *time.Time) any {
	if val == nil {
		return nil
	}
	return *val
}
