package models

// OrderRecord is one historical medication order with its observed consumption.
// ContentHash is the idempotency key: a digest of the normalized natural key
// (order_period | medication | purchase_date). Inserting the same natural key
// twice is a no-op.
type OrderRecord struct {
	ID                  int64   `db:"id" json:"id"`
	SourceFile          string  `db:"source_file" json:"source_file"`
	ContentHash         string  `db:"content_hash" json:"content_hash"`
	OrderPeriod         string  `db:"order_period" json:"order_period"`
	PeriodNumber        int     `db:"period_number" json:"period_number"`
	Medication          string  `db:"medication" json:"medication"`
	Quantity            int     `db:"quantity" json:"quantity"`
	PurchaseDate        string  `db:"purchase_date" json:"purchase_date"`
	ExpirationDate      string  `db:"expiration_date" json:"expiration_date"`
	QuantityUsed        int     `db:"quantity_used" json:"quantity_used"`
	AvgDailyConsumption float64 `db:"avg_daily_consumption" json:"avg_daily_consumption"`
}

// Recommendation is a single ranked order proposal. Computed per request,
// never persisted.
type Recommendation struct {
	Medication       string   `json:"medication"`
	PredictedDemand  float64  `json:"predicted_demand"`
	RecommendedOrder int      `json:"recommended_order"`
	CurrentStock     int      `json:"current_stock"`
	SafetyBuffer     float64  `json:"safety_buffer"`
	Warnings         []string `json:"warnings"`
}

// InsertOutcome is the tagged result of a single record insert.
type InsertOutcome int

const (
	Inserted InsertOutcome = iota
	AlreadyExists
)
