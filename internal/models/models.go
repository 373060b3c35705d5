package models

import (
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Stock struct {
	ID                    primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Symbol                string             `bson:"symbol" json:"symbol"`
	Name                  string             `bson:"name" json:"name"`
	Exchange              string             `bson:"exchange,omitempty" json:"exchange"`
	CurrentPrice          *decimal.Decimal   `bson:"current_price,omitempty" json:"current_price"`
	AnalystRecommendation string             `bson:"analyst_recommendation,omitempty" json:"analyst_recommendation,omitempty"` // Buy, Hold, Sell
	AnalystTargetPrice    *decimal.Decimal   `bson:"analyst_target_price,omitempty" json:"analyst_target_price,omitempty"`
	AnalystCount          int                `bson:"analyst_count,omitempty" json:"analyst_count,omitempty"`
	PutCallRatio          *decimal.Decimal   `bson:"put_call_ratio,omitempty" json:"put_call_ratio,omitempty"`
	LastUpdated           time.Time          `bson:"last_updated,omitempty" json:"last_updated"`
}

type Portfolio struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID      string             `bson:"user_id" json:"userId"`
	Name        string             `bson:"name" json:"name"`
	Description string             `bson:"description,omitempty" json:"description"`
	CashBalance decimal.Decimal    `bson:"cash_balance" json:"cash_balance"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at" json:"updated_at"`
}

type Position struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	PortfolioID   primitive.ObjectID `bson:"portfolio_id" json:"portfolio_id"`
	Symbol        string             `bson:"symbol" json:"symbol"`
	Quantity      decimal.Decimal    `bson:"quantity" json:"quantity"`
	PurchasePrice decimal.Decimal    `bson:"purchase_price" json:"purchase_price"`
	PurchaseDate  time.Time          `bson:"purchase_date" json:"purchase_date"`
	Notes         string             `bson:"notes,omitempty" json:"notes,omitempty"`
	CreatedAt     time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt     time.Time          `bson:"updated_at" json:"updated_at"`
}

// Quote is the payload pushed to WebSocket clients when a price refreshes.
type Quote struct {
	Symbol        string          `json:"symbol"`
	Name          string          `json:"name"`
	Price         decimal.Decimal `json:"price"`
	Change        decimal.Decimal `json:"change"`
	ChangePercent decimal.Decimal `json:"change_percent"`
	Timestamp     time.Time       `json:"timestamp"`
}

// PositionDetail is a Position joined with its stock and the valuation figures
// derived from them. Derived fields are recomputed on every read, never stored.
type PositionDetail struct {
	Position        `bson:",inline"`
	Stock           *Stock           `json:"stock"`
	TotalCost       decimal.Decimal  `json:"total_cost"`
	CurrentValue    *decimal.Decimal `json:"current_value"` // nil when the price is unknown
	GainLoss        *decimal.Decimal `json:"gain_loss"`
	GainLossPercent *decimal.Decimal `json:"gain_loss_percentage"`
}

type PortfolioSummary struct {
	Portfolio
	PositionCount   int              `json:"position_count"`
	TotalCost       decimal.Decimal  `json:"total_cost"`
	TotalValue      decimal.Decimal  `json:"total_value"`
	TotalGainLoss   decimal.Decimal  `json:"total_gain_loss"`
	GainLossPercent decimal.Decimal  `json:"gain_loss_percentage"`
	MissingPrices   []string         `json:"missing_prices,omitempty"` // symbols valued as N/A
}

type PortfolioDetail struct {
	PortfolioSummary
	Positions []PositionDetail `json:"positions"`
}

// LeaderboardEntry is one row of the public top-portfolios board.
type LeaderboardEntry struct {
	ID             primitive.ObjectID `json:"id"`
	Name           string             `json:"name"`
	Username       string             `json:"username"`
	TotalGainLoss  decimal.Decimal    `json:"total_gain_loss"`
	TotalValue     decimal.Decimal    `json:"total_value"`
	TotalCost      decimal.Decimal    `json:"total_cost"`
	PercentageGain decimal.Decimal    `json:"percentage_gain"`
}

type MarketMovers struct {
	Gainers     []Quote   `json:"gainers"`
	Losers      []Quote   `json:"losers"`
	LastUpdated time.Time `json:"last_updated"`
}
