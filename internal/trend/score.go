package trend

import (
	"math"

	"github.com/shopspring/decimal"

	"stockledger/backend/internal/domain"
)

const (
	BaseScore = 5.0
	MinScore  = 0.0
	MaxScore  = 10.0

	weightMovement = 0.3
	weightSales    = 0.3
	weightRequests = 0.2
	weightLevel    = 0.2
)

// Score blends recent activity into a bounded demand indicator.
func Score(s domain.TrendSignals) float64 {
	score := BaseScore +
		weightMovement*float64(movementBand(s.StockMovements30d)) +
		weightSales*float64(salesBand(s.Sales30d)) +
		weightRequests*float64(movementBand(s.Requests30d)) +
		weightLevel*float64(levelBand(s.Stock, s.Activity7d))
	return round1(clamp(score, MinScore, MaxScore))
}

// movementBand also scores order request frequency; both use the same steps.
func movementBand(count int) int {
	switch {
	case count >= 10:
		return 5
	case count >= 7:
		return 4
	case count >= 5:
		return 3
	case count >= 3:
		return 2
	case count >= 1:
		return 1
	}
	return 0
}

func salesBand(count int) int {
	switch {
	case count >= 15:
		return 5
	case count >= 10:
		return 4
	case count >= 7:
		return 3
	case count >= 4:
		return 2
	case count >= 1:
		return 1
	}
	return 0
}

func levelBand(stock int, activity int) int {
	switch {
	case stock < 20 && activity >= 3:
		return 5
	case stock < 50 && activity >= 2:
		return 3
	case stock < 100 && activity >= 1:
		return 2
	case stock >= 200 && activity == 0:
		return -2
	}
	return 0
}

func Classify(score float64) string {
	switch {
	case score >= 7:
		return domain.ClassA
	case score >= 4:
		return domain.ClassB
	}
	return domain.ClassC
}

func HighDemand(score float64) bool { return score >= 7 }

func LowDemand(score float64) bool { return score < 4 }

// NeedsPriceAction flags products where a price raise or discount applies.
func NeedsPriceAction(score float64, stock int) bool {
	return (score >= 7 && stock >= 100) || (score < 3 && stock > 150)
}

// Condition labels a product for the admin stock analysis.
func Condition(score float64, stock int, daysToExpiry *int) string {
	switch {
	case stock > 100 && score < 3:
		return domain.ConditionOverstock
	case stock < 10:
		return domain.ConditionReorder
	case daysToExpiry != nil && *daysToExpiry < 15:
		return domain.ConditionNearExpiry
	}
	return domain.ConditionNormal
}

func BuildKPIs(rows []domain.ProductStock) domain.TrendKPIs {
	kpis := domain.TrendKPIs{}
	for _, row := range rows {
		if HighDemand(row.TrendScore) {
			kpis.HighDemand++
		}
		if LowDemand(row.TrendScore) {
			kpis.LowDemand++
		}
		if NeedsPriceAction(row.TrendScore, row.TotalStock) {
			kpis.PriceActions++
		}
		switch Classify(row.TrendScore) {
		case domain.ClassA:
			kpis.ClassA++
		case domain.ClassB:
			kpis.ClassB++
		default:
			kpis.ClassC++
		}
	}
	return kpis
}

var (
	raiseFactor     = decimal.RequireFromString("1.10")
	defaultDiscount = decimal.NewFromInt(15)
	hundred         = decimal.NewFromInt(100)
)

// Action is a recommended pricing or restocking move.
type Action struct {
	Type           string
	Text           string
	SuggestedQty   *int
	SuggestedValue *decimal.Decimal
	NewPrice       *decimal.Decimal
	Discount       *float64
}

// Recommend picks the single action for a product given its score, live
// stock and current price.
func Recommend(name string, score float64, stock int, price decimal.Decimal) Action {
	switch {
	case score >= 7 && stock < 100:
		qty := max(200, stock*2)
		return Action{
			Type:         domain.RecommendationIncreaseStock,
			Text:         "Increase stock for " + name + " due to high demand",
			SuggestedQty: &qty,
		}
	case score >= 7 && stock >= 100:
		newPrice := price.Mul(raiseFactor).Round(2)
		return Action{
			Type:           domain.RecommendationRaisePrice,
			Text:           "Raise price for " + name + " due to high demand",
			SuggestedValue: &newPrice,
			NewPrice:       &newPrice,
		}
	case score < 3 && stock > 150:
		newPrice := ApplyDiscount(price, defaultDiscount)
		discount := defaultDiscount
		pct, _ := discount.Float64()
		return Action{
			Type:           domain.RecommendationApplyDiscount,
			Text:           "Apply discount for " + name + " due to low demand and overstock",
			SuggestedValue: &discount,
			NewPrice:       &newPrice,
			Discount:       &pct,
		}
	case score < 3:
		return Action{
			Type: domain.RecommendationReduceOrders,
			Text: "Reduce future orders for " + name + " due to low demand",
		}
	case stock < 50:
		qty := max(100, stock*3)
		return Action{
			Type:         domain.RecommendationReorderSoon,
			Text:         "Reorder " + name + " soon due to low stock",
			SuggestedQty: &qty,
		}
	}
	return Action{
		Type: domain.RecommendationMonitor,
		Text: "Continue monitoring " + name + " - stable conditions",
	}
}

// ApplyDiscount returns price × (1 − percent/100) rounded to cents.
func ApplyDiscount(price decimal.Decimal, percent decimal.Decimal) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(1).Sub(percent.Div(hundred))).Round(2)
}

func clamp(val float64, minVal float64, maxVal float64) float64 {
	if val < minVal {
		return minVal
	}
	if val > maxVal {
		return maxVal
	}
	return val
}

func round1(val float64) float64 {
	return math.Round(val*10) / 10
}
