package services

import (
	"context"
	"log"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"portfolio-tracker/config"
	"portfolio-tracker/internal/models"
	"portfolio-tracker/internal/valuation"
)

// PortfolioService owns portfolio CRUD and read-side assembly. Derived totals
// are recomputed from positions on every read; nothing derived is persisted.
type PortfolioService struct {
	portfolioCollection *mongo.Collection
	positionCollection  *mongo.Collection
	userCollection      *mongo.Collection
	marketService       *MarketDataService
	hub                 *QuoteHub
}

func NewPortfolioService(marketService *MarketDataService, hub *QuoteHub) *PortfolioService {
	return &PortfolioService{
		portfolioCollection: config.GetCollection("portfolios"),
		positionCollection:  config.GetCollection("positions"),
		userCollection:      config.GetCollection("users"),
		marketService:       marketService,
		hub:                 hub,
	}
}

func (s *PortfolioService) CreatePortfolio(userID, name, description string) (*models.Portfolio, error) {
	if name == "" {
		return nil, validationErrorf("portfolio name is required")
	}

	now := time.Now()
	portfolio := &models.Portfolio{
		ID:          primitive.NewObjectID(),
		UserID:      userID,
		Name:        name,
		Description: description,
		CashBalance: decimal.Zero,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if _, err := s.portfolioCollection.InsertOne(context.Background(), portfolio); err != nil {
		return nil, err
	}
	return portfolio, nil
}

func (s *PortfolioService) UpdatePortfolio(userID string, portfolioID primitive.ObjectID, name, description string) (*models.Portfolio, error) {
	if name == "" {
		return nil, validationErrorf("portfolio name is required")
	}

	portfolio, err := s.getOwned(userID, portfolioID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	_, err = s.portfolioCollection.UpdateOne(
		context.Background(),
		bson.M{"_id": portfolio.ID},
		bson.M{"$set": bson.M{"name": name, "description": description, "updated_at": now}},
	)
	if err != nil {
		return nil, err
	}

	portfolio.Name = name
	portfolio.Description = description
	portfolio.UpdatedAt = now
	return portfolio, nil
}

// DeletePortfolio removes the portfolio and all of its positions.
func (s *PortfolioService) DeletePortfolio(userID string, portfolioID primitive.ObjectID) error {
	portfolio, err := s.getOwned(userID, portfolioID)
	if err != nil {
		return err
	}

	if _, err := s.positionCollection.DeleteMany(context.Background(), bson.M{"portfolio_id": portfolio.ID}); err != nil {
		return err
	}
	_, err = s.portfolioCollection.DeleteOne(context.Background(), bson.M{"_id": portfolio.ID})
	return err
}

// ListPortfolios returns the user's portfolios as summaries with recomputed
// totals.
func (s *PortfolioService) ListPortfolios(userID string) ([]models.PortfolioSummary, error) {
	cur, err := s.portfolioCollection.Find(context.Background(), bson.M{"user_id": userID})
	if err != nil {
		return nil, err
	}
	defer cur.Close(context.Background())

	var portfolios []models.Portfolio
	if err := cur.All(context.Background(), &portfolios); err != nil {
		return nil, err
	}

	summaries := make([]models.PortfolioSummary, 0, len(portfolios))
	for i := range portfolios {
		detail, err := s.assembleDetail(&portfolios[i])
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, detail.PortfolioSummary)
	}
	return summaries, nil
}

// GetPortfolio returns a portfolio with positions, their stocks and all
// derived valuation figures.
func (s *PortfolioService) GetPortfolio(userID string, portfolioID primitive.ObjectID) (*models.PortfolioDetail, error) {
	portfolio, err := s.getOwned(userID, portfolioID)
	if err != nil {
		return nil, err
	}
	return s.assembleDetail(portfolio)
}

func (s *PortfolioService) assembleDetail(portfolio *models.Portfolio) (*models.PortfolioDetail, error) {
	positions, err := s.positionsOf(portfolio.ID)
	if err != nil {
		return nil, err
	}

	symbols := make([]string, 0, len(positions))
	for _, p := range positions {
		symbols = append(symbols, p.Symbol)
	}
	stocks, err := s.marketService.StocksBySymbol(symbols)
	if err != nil {
		return nil, err
	}

	detail := &models.PortfolioDetail{
		PortfolioSummary: models.PortfolioSummary{
			Portfolio:     *portfolio,
			PositionCount: len(positions),
		},
		Positions: make([]models.PositionDetail, 0, len(positions)),
	}

	metrics := make([]valuation.Metrics, 0, len(positions))
	for _, position := range positions {
		stock := stocks[position.Symbol]

		var currentPrice *decimal.Decimal
		if stock != nil {
			currentPrice = stock.CurrentPrice
		}

		m := valuation.Position(position.Quantity, position.PurchasePrice, currentPrice)
		metrics = append(metrics, m)

		pd := models.PositionDetail{
			Position:  position,
			Stock:     stock,
			TotalCost: m.TotalCost,
		}
		if m.PriceKnown {
			value, gainLoss, pct := m.CurrentValue, m.GainLoss, m.GainLossPercent
			pd.CurrentValue = &value
			pd.GainLoss = &gainLoss
			pd.GainLossPercent = &pct
		} else {
			detail.MissingPrices = append(detail.MissingPrices, position.Symbol)
		}
		detail.Positions = append(detail.Positions, pd)
	}

	totals := valuation.Sum(portfolio.CashBalance, metrics)
	detail.TotalCost = totals.TotalCost
	detail.TotalValue = totals.TotalValue
	detail.TotalGainLoss = totals.TotalGainLoss
	detail.GainLossPercent = totals.GainLossPercent
	return detail, nil
}

// RefreshPrices fetches a fresh quote for every distinct symbol held in the
// portfolio, updates the catalog and broadcasts the new quotes to WebSocket
// subscribers. Failed symbols are skipped, not fatal.
func (s *PortfolioService) RefreshPrices(userID string, portfolioID primitive.ObjectID) ([]string, error) {
	portfolio, err := s.getOwned(userID, portfolioID)
	if err != nil {
		return nil, err
	}

	positions, err := s.positionsOf(portfolio.ID)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	updated := []string{}
	for _, position := range positions {
		if seen[position.Symbol] {
			continue
		}
		seen[position.Symbol] = true

		stock, err := s.marketService.RefreshSymbol(position.Symbol)
		if err != nil {
			log.Printf("⚠️ Price refresh failed for %s: %v", position.Symbol, err)
			continue
		}
		updated = append(updated, stock.Symbol)

		if s.hub != nil && stock.CurrentPrice != nil {
			s.hub.BroadcastQuote(models.Quote{
				Symbol:    stock.Symbol,
				Name:      stock.Name,
				Price:     *stock.CurrentPrice,
				Timestamp: stock.LastUpdated,
			})
		}
	}
	return updated, nil
}

// TopPortfolios is the public leaderboard: top n portfolios by percentage
// gain over invested cost. Portfolios with no cost basis are skipped.
func (s *PortfolioService) TopPortfolios(n int) ([]models.LeaderboardEntry, error) {
	cur, err := s.portfolioCollection.Find(context.Background(), bson.M{})
	if err != nil {
		return nil, err
	}
	defer cur.Close(context.Background())

	var portfolios []models.Portfolio
	if err := cur.All(context.Background(), &portfolios); err != nil {
		return nil, err
	}

	entries := []models.LeaderboardEntry{}
	for i := range portfolios {
		detail, err := s.assembleDetail(&portfolios[i])
		if err != nil {
			return nil, err
		}
		if detail.TotalCost.Sign() <= 0 {
			continue
		}

		entries = append(entries, models.LeaderboardEntry{
			ID:             portfolios[i].ID,
			Name:           portfolios[i].Name,
			Username:       s.usernameOf(portfolios[i].UserID),
			TotalGainLoss:  detail.TotalGainLoss,
			TotalValue:     detail.TotalValue,
			TotalCost:      detail.TotalCost,
			PercentageGain: detail.GainLossPercent,
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].PercentageGain.GreaterThan(entries[j].PercentageGain)
	})
	if len(entries) > n {
		entries = entries[:n]
	}
	return entries, nil
}

func (s *PortfolioService) positionsOf(portfolioID primitive.ObjectID) ([]models.Position, error) {
	cur, err := s.positionCollection.Find(context.Background(), bson.M{"portfolio_id": portfolioID})
	if err != nil {
		return nil, err
	}
	defer cur.Close(context.Background())

	var positions []models.Position
	if err := cur.All(context.Background(), &positions); err != nil {
		return nil, err
	}
	return positions, nil
}

func (s *PortfolioService) getOwned(userID string, portfolioID primitive.ObjectID) (*models.Portfolio, error) {
	var portfolio models.Portfolio
	err := s.portfolioCollection.FindOne(context.Background(), bson.M{
		"_id":     portfolioID,
		"user_id": userID,
	}).Decode(&portfolio)
	if err == mongo.ErrNoDocuments {
		return nil, ErrPortfolioNotFound
	}
	if err != nil {
		return nil, err
	}
	return &portfolio, nil
}

func (s *PortfolioService) usernameOf(userID string) string {
	objID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return ""
	}
	var user models.User
	if err := s.userCollection.FindOne(context.Background(), bson.M{"_id": objID}).Decode(&user); err != nil {
		return ""
	}
	return user.Username
}
