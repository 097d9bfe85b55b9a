package domain

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	SKU             string          `json:"sku"`
	Name            string          `json:"name"`
	Category        string          `json:"category"`
	CostPrice       decimal.Decimal `json:"cost_price"`
	SellingPrice    decimal.Decimal `json:"selling_price"`
	CurrentPrice    decimal.Decimal `json:"current_price"`
	DiscountPercent float64         `json:"discount_percent"`
	TrendScore      float64         `json:"trend_score"`
	ABCClass        string          `json:"abc_class"`
	LastTrendUpdate *time.Time      `json:"last_trend_update,omitempty"`
	Active          bool            `json:"active"`
	CreatedAt       time.Time       `json:"created_at"`
}

type ProductCreateRequest struct {
	SKU          string          `json:"sku"`
	Name         string          `json:"name"`
	Category     string          `json:"category"`
	CostPrice    decimal.Decimal `json:"cost_price"`
	SellingPrice decimal.Decimal `json:"selling_price"`
}

type ProductStock struct {
	Product
	TotalStock          int  `json:"total_stock"`
	ExpiredStock        int  `json:"expired_stock"`
	DaysToNearestExpiry *int `json:"days_to_nearest_expiry,omitempty"`
}

type ProductDetails struct {
	Product        ProductStock    `json:"product"`
	Batches        []StockBatch    `json:"batches"`
	SoldLast30Days int             `json:"sold_last_30_days"`
	Recommendation *Recommendation `json:"recommendation,omitempty"`
}

type DiscountRequest struct {
	SKU             string  `json:"sku"`
	DiscountPercent float64 `json:"discount_percent"`
}

type StockBatch struct {
	ID         string    `json:"id"`
	StoreID    string    `json:"store_id"`
	SKU        string    `json:"sku"`
	Quantity   int       `json:"quantity"`
	ExpiryDate time.Time `json:"expiry_date"`
	SourceType string    `json:"source_type"`
	SourceID   string    `json:"source_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

type BatchAllocation struct {
	BatchID    string    `json:"batch_id"`
	SKU        string    `json:"sku"`
	ExpiryDate time.Time `json:"expiry_date"`
	Quantity   int       `json:"quantity"`
}

type StockEntryRequest struct {
	SKU        string `json:"sku"`
	Quantity   int    `json:"quantity"`
	ExpiryDate string `json:"expiry_date"`
}

type BillLineRequest struct {
	SKU      string `json:"sku"`
	Quantity int    `json:"quantity"`
}

type BillCreateRequest struct {
	Items []BillLineRequest `json:"items"`
}

type BillItem struct {
	SKU         string            `json:"sku"`
	Name        string            `json:"name"`
	Quantity    int               `json:"quantity"`
	UnitPrice   decimal.Decimal   `json:"unit_price"`
	LineTotal   decimal.Decimal   `json:"line_total"`
	Allocations []BatchAllocation `json:"allocations,omitempty"`
}

type Bill struct {
	ID        string          `json:"id"`
	Number    string          `json:"number"`
	StoreID   string          `json:"store_id"`
	CreatedBy string          `json:"created_by"`
	Source    string          `json:"source"`
	Total     decimal.Decimal `json:"total"`
	Items     []BillItem      `json:"items"`
	CreatedAt time.Time       `json:"created_at"`
}

type SalesSummary struct {
	StoreID     string          `json:"store_id"`
	TodayCount  int             `json:"today_count"`
	TodayAmount decimal.Decimal `json:"today_amount"`
	MonthCount  int             `json:"month_count"`
	MonthAmount decimal.Decimal `json:"month_amount"`
	MonthLabel  string          `json:"month_label"`
	GeneratedAt time.Time       `json:"generated_at"`
	RecentBills []Bill          `json:"recent_bills"`
}

type ImportLineResult struct {
	Line     int    `json:"line"`
	Product  string `json:"product"`
	Quantity int    `json:"quantity"`
	OK       bool   `json:"ok"`
	BillID   string `json:"bill_id,omitempty"`
	BatchID  string `json:"batch_id,omitempty"`
	OrderID  string `json:"order_id,omitempty"`
	Error    string `json:"error,omitempty"`
}

type ImportReport struct {
	Processed int                `json:"processed"`
	Succeeded int                `json:"succeeded"`
	Failed    int                `json:"failed"`
	Lines     []ImportLineResult `json:"lines"`
}

type OrderRequest struct {
	ID                    string            `json:"id"`
	StoreID               string            `json:"store_id"`
	SKU                   string            `json:"sku"`
	RequestedQty          int               `json:"requested_qty"`
	FulfilledQty          int               `json:"fulfilled_qty"`
	ReceivedQty           int               `json:"received_qty"`
	Status                string            `json:"status"`
	InventoryAction       string            `json:"inventory_action"`
	InventoryActionBy     string            `json:"inventory_action_by,omitempty"`
	InventoryActionAt     *time.Time        `json:"inventory_action_at,omitempty"`
	AdminMarkedReceived   bool              `json:"admin_marked_received"`
	AdminMarkedReceivedAt *time.Time        `json:"admin_marked_received_at,omitempty"`
	Allocations           []BatchAllocation `json:"allocations,omitempty"`
	Note                  string            `json:"note,omitempty"`
	RequestedBy           string            `json:"requested_by"`
	LastActor             string            `json:"last_actor,omitempty"`
	CreatedAt             time.Time         `json:"created_at"`
	UpdatedAt             time.Time         `json:"updated_at"`
}

type OrderCreateRequest struct {
	StoreID  string `json:"store_id"`
	SKU      string `json:"sku"`
	Quantity int    `json:"quantity"`
	Note     string `json:"note"`
}

type OrderTransitionRequest struct {
	Event      string `json:"event"`
	Quantity   int    `json:"quantity"`
	ExpiryDate string `json:"expiry_date"`
	Note       string `json:"note"`
}

type OrderFilter struct {
	StoreID  string
	Status   string
	OpenOnly bool
	Limit    int
}

type OrderStatusCounts struct {
	Pending      int `json:"pending"`
	Acknowledged int `json:"acknowledged"`
	Approved     int `json:"approved"`
	Ordered      int `json:"ordered"`
	Delivered    int `json:"delivered"`
	Received     int `json:"received"`
	Completed    int `json:"completed"`
	Cancelled    int `json:"cancelled"`
}

type Notification struct {
	ID         string     `json:"id"`
	Title      string     `json:"title"`
	Message    string     `json:"message"`
	Type       string     `json:"type"`
	Priority   string     `json:"priority"`
	TargetRole string     `json:"target_role"`
	// StoreID scopes the notification to one store's staff. Empty reaches every store.
	StoreID    string     `json:"store_id,omitempty"`
	SKU        string     `json:"sku,omitempty"`
	OrderID    string     `json:"order_id,omitempty"`
	CreatedBy  string     `json:"created_by,omitempty"`
	IsRead     bool       `json:"is_read"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
}

// NotificationAudience is who reads a notification feed. An empty StoreID
// reads every store.
type NotificationAudience struct {
	Roles   []string
	StoreID string
}

// Sees reports whether n belongs in the audience's feed.
func (a NotificationAudience) Sees(n Notification) bool {
	if len(a.Roles) > 0 && !slices.Contains(a.Roles, n.TargetRole) {
		return false
	}
	return a.StoreID == "" || n.StoreID == "" || n.StoreID == a.StoreID
}

type NotificationFilter struct {
	Audience   NotificationAudience
	Type       string
	UnreadOnly bool
	ReadOnly   bool
	Offset     int
	Limit      int
}

type NotificationPage struct {
	Items       []Notification `json:"items"`
	Total       int            `json:"total"`
	UnreadCount int            `json:"unread_count"`
	UrgentCount int            `json:"urgent_count"`
	HighCount   int            `json:"high_count"`
	Page        int            `json:"page"`
	PageSize    int            `json:"page_size"`
}

type AdminNotificationRequest struct {
	ProductName    string `json:"product_name"`
	Category       string `json:"category"`
	Title          string `json:"title"`
	Recommendation string `json:"recommendation"`
	Type           string `json:"type"`
	Priority       string `json:"priority"`
}

type Recommendation struct {
	ID             string           `json:"id"`
	SKU            string           `json:"sku"`
	Type           string           `json:"type"`
	Text           string           `json:"text"`
	TrendScore     float64          `json:"trend_score"`
	StockLevel     int              `json:"stock_level"`
	SuggestedValue *decimal.Decimal `json:"suggested_value,omitempty"`
	SuggestedQty   *int             `json:"suggested_qty,omitempty"`
	Status         string           `json:"status"`
	AppliedBy      string           `json:"applied_by,omitempty"`
	AppliedAt      *time.Time       `json:"applied_at,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
}

type RecommendationResult struct {
	Recommendation Recommendation `json:"recommendation"`
	Product        Product        `json:"product"`
	Message        string         `json:"message"`
}

type TrendSignals struct {
	SKU               string `json:"sku"`
	StockMovements30d int    `json:"stock_movements_30d"`
	Sales30d          int    `json:"sales_30d"`
	Requests30d       int    `json:"requests_30d"`
	Activity7d        int    `json:"activity_7d"`
	Stock             int    `json:"stock"`
}

type TrendAssessment struct {
	Score  float64 `json:"score"`
	Source string  `json:"source"`
	Reason string  `json:"reason,omitempty"`
}

type TrendRow struct {
	ProductStock
	Source string `json:"source,omitempty"`
	Reason string `json:"reason,omitempty"`
}

type TrendKPIs struct {
	HighDemand   int `json:"high_demand"`
	LowDemand    int `json:"low_demand"`
	PriceActions int `json:"price_actions"`
	ClassA       int `json:"class_a"`
	ClassB       int `json:"class_b"`
	ClassC       int `json:"class_c"`
}

type TrendDashboard struct {
	Products    []TrendRow `json:"products"`
	KPIs        TrendKPIs  `json:"kpis"`
	GeneratedAt time.Time  `json:"generated_at"`
}

type TrendRefreshResult struct {
	Updated   int       `json:"updated"`
	AIScored  int       `json:"ai_scored"`
	Fallbacks int       `json:"fallbacks"`
	RefreshAt time.Time `json:"refresh_at"`
}

type StockAnalysisRow struct {
	SKU                 string  `json:"sku"`
	Name                string  `json:"name"`
	TotalStock          int     `json:"total_stock"`
	TrendScore          float64 `json:"trend_score"`
	DaysToNearestExpiry *int    `json:"days_to_nearest_expiry,omitempty"`
	Condition           string  `json:"condition"`
}

type AdminDashboard struct {
	StockAnalysis     []StockAnalysisRow `json:"stock_analysis"`
	OverstockCount    int                `json:"overstock_count"`
	ReorderCount      int                `json:"reorder_count"`
	NearExpiryCount   int                `json:"near_expiry_count"`
	Orders            []OrderRequest     `json:"orders"`
	OrderCounts       OrderStatusCounts  `json:"order_counts"`
	SentNotifications []Notification     `json:"sent_notifications"`
	TotalSent         int                `json:"total_sent"`
	UnreadSent        int                `json:"unread_sent"`
	ReadSent          int                `json:"read_sent"`
	GeneratedAt       time.Time          `json:"generated_at"`
}

type InventoryDashboard struct {
	StoreID       string           `json:"store_id"`
	Products      []ProductStock   `json:"products"`
	RecentBatches []StockBatch     `json:"recent_batches"`
	Notifications NotificationPage `json:"notifications"`
	GeneratedAt   time.Time        `json:"generated_at"`
}

type MaintenanceReport struct {
	PurgedBatches        int       `json:"purged_batches"`
	PurgedQuantity       int       `json:"purged_quantity"`
	DeletedNotifications int       `json:"deleted_notifications"`
	ExpiryWarnings       int       `json:"expiry_warnings"`
	LowStockWarnings     int       `json:"low_stock_warnings"`
	TrendUpdates         int       `json:"trend_updates"`
	RanAt                time.Time `json:"ran_at"`
}

type LedgerView struct {
	StoreID     string         `json:"store_id"`
	Owner       string         `json:"owner"`
	Products    []ProductStock `json:"products"`
	Batches     []StockBatch   `json:"batches"`
	RecentBills []Bill         `json:"recent_bills"`
	OpenOrders  []OrderRequest `json:"open_orders"`
	GeneratedAt time.Time      `json:"generated_at"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
	Role        string    `json:"role"`
	StoreID     string    `json:"store_id"`
}

type Actor struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	StoreID  string `json:"store_id"`
}

// Store is a shop in the registry, with the owner's contact details.
// The warehouse is registered like any other store.
type Store struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	OwnerName   string    `json:"owner_name"`
	PhoneNumber string    `json:"phone_number,omitempty"`
	Email       string    `json:"email,omitempty"`
	Address     string    `json:"address,omitempty"`
	Warehouse   bool      `json:"warehouse"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type StoreRequest struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	OwnerName   string `json:"owner_name"`
	PhoneNumber string `json:"phone_number"`
	Email       string `json:"email"`
	Address     string `json:"address"`
}

type UserAccount struct {
	Username    string    `json:"username"`
	DisplayName string    `json:"display_name"`
	Password    string    `json:"-"`
	Role        string    `json:"role"`
	StoreID     string    `json:"store_id"`
	LedgerToken string    `json:"-"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
}

type UserCreateRequest struct {
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Password    string `json:"password"`
	Role        string `json:"role"`
	StoreID     string `json:"store_id"`
}

type UserProfile struct {
	Username    string    `json:"username"`
	DisplayName string    `json:"display_name"`
	Role        string    `json:"role"`
	StoreID     string    `json:"store_id"`
	LedgerURL   string    `json:"ledger_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type AuditLog struct {
	ID         string    `json:"id"`
	StoreID    string    `json:"store_id"`
	Actor      string    `json:"actor"`
	ActorRole  string    `json:"actor_role"`
	Action     string    `json:"action"`
	EntityType string    `json:"entity_type"`
	EntityID   string    `json:"entity_id"`
	Detail     string    `json:"detail"`
	CreatedAt  time.Time `json:"created_at"`
}

const (
	RoleInventory = "inventory"
	RoleMarketing = "marketing"
	RoleAdmin     = "admin"
	RoleAll       = "all"
)

const (
	TrendSourceRules = "rules"
	TrendSourceAI    = "ai"
)

const (
	ClassA = "A"
	ClassB = "B"
	ClassC = "C"
)

const (
	BatchSourceManual   = "manual"
	BatchSourceOrder    = "order"
	BatchSourceTransfer = "transfer"
	BatchSourceImport   = "import"
)

const (
	BillSourceCounter = "counter"
	BillSourceUpload  = "upload"
)

const (
	OrderStatusPending      = "pending"
	OrderStatusAcknowledged = "acknowledged"
	OrderStatusApproved     = "approved"
	OrderStatusOrdered      = "ordered"
	OrderStatusDelivered    = "delivered"
	OrderStatusReceived     = "received"
	OrderStatusCompleted    = "completed"
	OrderStatusCancelled    = "cancelled"
)

const (
	InventoryActionNone         = "none"
	InventoryActionAcknowledged = "acknowledged"
	InventoryActionOrdered      = "ordered"
)

const (
	NotificationExpiryWarning = "expiry_warning"
	NotificationLowStock      = "low_stock"
	NotificationOverstock     = "overstock"
	NotificationReorderNeeded = "reorder_needed"
	NotificationAdminMessage  = "admin_message"
	NotificationOrderUpdate   = "order_update"
)

const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

const (
	RecommendationIncreaseStock = "increase_stock"
	RecommendationRaisePrice    = "raise_price"
	RecommendationApplyDiscount = "apply_discount"
	RecommendationReduceOrders  = "reduce_orders"
	RecommendationReorderSoon   = "reorder_soon"
	RecommendationMonitor       = "monitor"
)

const (
	RecommendationPending   = "pending"
	RecommendationApplied   = "applied"
	RecommendationDismissed = "dismissed"
)

const (
	ConditionNormal     = "Normal"
	ConditionOverstock  = "Overstock"
	ConditionReorder    = "Reorder needed"
	ConditionNearExpiry = "Near expiry"
)

// PriorityRank orders priorities for feeds, urgent first.
func PriorityRank(priority string) int {
	switch priority {
	case PriorityUrgent:
		return 0
	case PriorityHigh:
		return 1
	case PriorityMedium:
		return 2
	default:
		return 3
	}
}

func ValidRole(role string) bool {
	switch role {
	case RoleInventory, RoleMarketing, RoleAdmin:
		return true
	}
	return false
}

func ValidPriority(priority string) bool {
	switch priority {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

func ValidNotificationType(kind string) bool {
	switch kind {
	case NotificationExpiryWarning, NotificationLowStock, NotificationOverstock,
		NotificationReorderNeeded, NotificationAdminMessage, NotificationOrderUpdate:
		return true
	}
	return false
}

// DateOnly truncates t to midnight UTC.
func DateOnly(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
