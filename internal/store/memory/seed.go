package memory

import (
	"os"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"stockledger/backend/internal/domain"
	"stockledger/backend/internal/xid"
)

// SeedStoreID is the retail store the demo inventory and marketing users belong to.
const SeedStoreID = "store-1"

// seedStores registers the warehouse and the demo shop with its owner.
func seedStores(warehouseID string, now time.Time) []domain.Store {
	return []domain.Store{
		{
			ID:        warehouseID,
			Name:      "Central Warehouse",
			OwnerName: "Operations",
			Warehouse: true,
			CreatedAt: now,
			UpdatedAt: now,
		},
		{
			ID:          SeedStoreID,
			Name:        "Kumar General Store",
			OwnerName:   "Rajesh Kumar",
			PhoneNumber: "9876543210",
			Email:       "rajesh@kumarstore.com",
			Address:     "123 Main Street, Mumbai, Maharashtra",
			CreatedAt:   now,
			UpdatedAt:   now,
		},
	}
}

// seedUsers builds the initial in-memory accounts for dev/demo mode.
// Passwords come from SEED_ADMIN_PASSWORD, SEED_INVENTORY_PASSWORD and
// SEED_MARKETING_PASSWORD; unset values fall back to dev defaults with a
// warning. PostgreSQL deployments never use these.
func seedUsers(warehouseID string, logger *zap.Logger) map[string]domain.UserAccount {
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	inventoryPwd := envOr("SEED_INVENTORY_PASSWORD", "inventory123")
	marketingPwd := envOr("SEED_MARKETING_PASSWORD", "marketing123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_INVENTORY_PASSWORD") == "" || os.Getenv("SEED_MARKETING_PASSWORD") == "" {
		logger.Warn("using default dev credentials for seeded users; set SEED_*_PASSWORD to override")
	}

	now := time.Now().UTC()
	users := map[string]domain.UserAccount{}
	for _, u := range []struct {
		username string
		display  string
		password string
		role     string
		storeID  string
	}{
		{"admin", "Administrator", adminPwd, domain.RoleAdmin, warehouseID},
		{"inventory", "Inventory Staff", inventoryPwd, domain.RoleInventory, SeedStoreID},
		{"marketing", "Marketing Analyst", marketingPwd, domain.RoleMarketing, SeedStoreID},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			logger.Fatal("failed to hash seed password", zap.String("username", u.username), zap.Error(err))
		}
		users[u.username] = domain.UserAccount{
			Username:    u.username,
			DisplayName: u.display,
			Password:    string(hash),
			Role:        u.role,
			StoreID:     u.storeID,
			LedgerToken: xid.Token(),
			Active:      true,
			CreatedAt:   now,
		}
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func seedProducts(now time.Time) []domain.Product {
	price := decimal.RequireFromString
	rows := []struct {
		sku, name, category string
		cost, selling       string
	}{
		{"SKU-MILK-01", "Fresh Milk 1L", "dairy", "0.90", "1.49"},
		{"SKU-YOGURT-01", "Greek Yogurt 500g", "dairy", "1.60", "2.79"},
		{"SKU-CHEESE-01", "Cheddar 200g", "dairy", "2.10", "3.49"},
		{"SKU-BREAD-01", "Whole Wheat Bread", "bakery", "1.10", "2.29"},
		{"SKU-EGGS-01", "Eggs (12)", "grocery", "2.00", "3.19"},
		{"SKU-RICE-01", "Basmati Rice 1kg", "grocery", "1.80", "2.99"},
		{"SKU-COFFEE-01", "Ground Coffee 250g", "beverage", "3.40", "5.99"},
		{"SKU-JUICE-01", "Orange Juice 1L", "beverage", "1.20", "2.49"},
	}
	products := make([]domain.Product, 0, len(rows))
	for _, r := range rows {
		selling := price(r.selling)
		products = append(products, domain.Product{
			SKU:          r.sku,
			Name:         r.name,
			Category:     r.category,
			CostPrice:    price(r.cost),
			SellingPrice: selling,
			CurrentPrice: selling,
			TrendScore:   5,
			ABCClass:     domain.ClassB,
			Active:       true,
			CreatedAt:    now,
		})
	}
	return products
}

// seedBatches stocks the warehouse with every product and gives the demo
// store a mix of healthy, near-expiry, expired and low stock.
func seedBatches(warehouseID string, products []domain.Product, now time.Time) []domain.StockBatch {
	today := domain.DateOnly(now)
	batch := func(storeID, sku string, qty int, days int) domain.StockBatch {
		return domain.StockBatch{
			ID:         xid.New("bat"),
			StoreID:    storeID,
			SKU:        sku,
			Quantity:   qty,
			ExpiryDate: today.AddDate(0, 0, days),
			SourceType: domain.BatchSourceManual,
			CreatedAt:  now,
		}
	}

	batches := make([]domain.StockBatch, 0, len(products)*2+6)
	for _, p := range products {
		batches = append(batches, batch(warehouseID, p.SKU, 300, 120))
	}
	batches = append(batches,
		batch(SeedStoreID, "SKU-MILK-01", 40, 6),
		batch(SeedStoreID, "SKU-MILK-01", 60, 20),
		batch(SeedStoreID, "SKU-YOGURT-01", 25, 3),
		batch(SeedStoreID, "SKU-CHEESE-01", 4, 60),
		batch(SeedStoreID, "SKU-BREAD-01", 12, -2),
		batch(SeedStoreID, "SKU-BREAD-01", 30, 4),
		batch(SeedStoreID, "SKU-EGGS-01", 80, 25),
		batch(SeedStoreID, "SKU-RICE-01", 220, 365),
		batch(SeedStoreID, "SKU-COFFEE-01", 45, 200),
	)
	return batches
}
