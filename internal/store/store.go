package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"stockledger/backend/internal/domain"
	"stockledger/backend/internal/ledger"
	"stockledger/backend/internal/orderflow"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidInput = errors.New("invalid input")

	ErrInsufficientStock = ledger.ErrInsufficientStock
	ErrInvalidTransition = orderflow.ErrInvalidTransition
)

type Repository interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
	GetProductBySKU(ctx context.Context, sku string) (*domain.Product, error)
	GetProductByName(ctx context.Context, name string) (*domain.Product, error)
	SearchProducts(ctx context.Context, query string, limit int) ([]domain.Product, error)
	CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	UpdateProductPricing(ctx context.Context, sku string, currentPrice decimal.Decimal, discountPercent float64) (*domain.Product, error)
	UpdateTrendScore(ctx context.Context, sku string, score float64, at time.Time) error

	AddBatch(ctx context.Context, batch domain.StockBatch) (*domain.StockBatch, error)
	// ListBatches returns batches with stock left. Empty storeID or sku matches all.
	ListBatches(ctx context.Context, storeID string, sku string) ([]domain.StockBatch, error)
	PurgeExpired(ctx context.Context, today time.Time) ([]domain.StockBatch, error)

	// CreateBill prices the lines at each product's current price and
	// deducts them FEFO from the bill's store, all or nothing.
	CreateBill(ctx context.Context, bill domain.Bill, lines []domain.BillLineRequest, today time.Time) (*domain.Bill, error)
	GetBill(ctx context.Context, id string) (*domain.Bill, error)
	ListBills(ctx context.Context, storeID string, since time.Time, limit int) ([]domain.Bill, error)
	SalesTotals(ctx context.Context, storeID string, from time.Time, to time.Time) (int, decimal.Decimal, error)

	CreateOrder(ctx context.Context, order domain.OrderRequest) (*domain.OrderRequest, error)
	GetOrder(ctx context.Context, id string) (*domain.OrderRequest, error)
	ListOrders(ctx context.Context, filter domain.OrderFilter) ([]domain.OrderRequest, error)
	// TransitionOrder validates cmd with orderflow and applies its stock
	// effects together with the status change.
	TransitionOrder(ctx context.Context, id string, cmd orderflow.Command, warehouseStoreID string) (*domain.OrderRequest, error)

	CreateNotification(ctx context.Context, n domain.Notification) (*domain.Notification, error)
	ListNotifications(ctx context.Context, filter domain.NotificationFilter) (domain.NotificationPage, error)
	ListNotificationsByCreator(ctx context.Context, createdBy string, limit int) ([]domain.Notification, error)
	MarkNotificationRead(ctx context.Context, id string, audience domain.NotificationAudience, at time.Time) error
	MarkAllNotificationsRead(ctx context.Context, audience domain.NotificationAudience, at time.Time) (int, error)
	DeleteNotification(ctx context.Context, id string) error
	DeleteNotificationsBefore(ctx context.Context, cutoff time.Time) (int, error)
	// NotificationExists reports whether a notification of kind about sku was
	// sent to targetRole for storeID at or after since.
	NotificationExists(ctx context.Context, sku string, kind string, targetRole string, storeID string, since time.Time) (bool, error)

	SaveRecommendation(ctx context.Context, rec domain.Recommendation) (*domain.Recommendation, error)
	DismissRecommendations(ctx context.Context, sku string) (int, error)
	ListRecommendations(ctx context.Context, sku string, status string, limit int) ([]domain.Recommendation, error)

	// TrendSignals counts activity per SKU across all stores. Stock is the
	// live (unexpired) quantity on today.
	TrendSignals(ctx context.Context, since30 time.Time, since7 time.Time, today time.Time) (map[string]domain.TrendSignals, error)

	ListStores(ctx context.Context) ([]domain.Store, error)
	GetStore(ctx context.Context, id string) (*domain.Store, error)
	CreateStore(ctx context.Context, st domain.Store) (*domain.Store, error)
	UpdateStore(ctx context.Context, st domain.Store) (*domain.Store, error)
	// DeleteStore fails with ErrConflict while users or stock still belong to the store.
	DeleteStore(ctx context.Context, id string) error

	GetUser(ctx context.Context, username string) (*domain.UserAccount, error)
	GetUserByLedgerToken(ctx context.Context, token string) (*domain.UserAccount, error)
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	CreateUser(ctx context.Context, user domain.UserAccount) error
	DeleteUser(ctx context.Context, username string) error
	UpdateLedgerToken(ctx context.Context, username string, token string) error

	CreateAuditLog(ctx context.Context, entry domain.AuditLog) error
	ListAuditLogs(ctx context.Context, storeID string, limit int) ([]domain.AuditLog, error)
}

// BillNumber formats the sequential bill number.
func BillNumber(seq int64) string {
	return fmt.Sprintf("BILL-%06d", seq)
}
