package services

import (
	"context"
	"log"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"portfolio-tracker/config"
	"portfolio-tracker/internal/models"
)

// AddPositionInput is the validated payload for creating a position.
type AddPositionInput struct {
	Symbol        string
	Quantity      decimal.Decimal
	PurchasePrice decimal.Decimal
	PurchaseDate  time.Time
	Notes         string
}

// UpdatePositionInput replaces quantity and purchase price in place. The
// stock reference and purchase date are immutable on update.
type UpdatePositionInput struct {
	Quantity      decimal.Decimal
	PurchasePrice decimal.Decimal
}

// PositionService applies add/update/sell/delete operations to a portfolio's
// position set. Every validation failure is raised before any write, so a
// rejected mutation leaves prior state untouched.
type PositionService struct {
	positionCollection  *mongo.Collection
	portfolioCollection *mongo.Collection
	marketService       *MarketDataService
}

func NewPositionService(marketService *MarketDataService) *PositionService {
	return &PositionService{
		positionCollection:  config.GetCollection("positions"),
		portfolioCollection: config.GetCollection("portfolios"),
		marketService:       marketService,
	}
}

// AddPosition creates a holding, or merges into the existing holding of the
// same stock (weighted-average price, earlier purchase date). One position
// per portfolio and symbol.
func (s *PositionService) AddPosition(userID string, portfolioID primitive.ObjectID, in AddPositionInput) (*models.Position, error) {
	if in.Quantity.Sign() <= 0 {
		return nil, validationErrorf("quantity must be greater than 0")
	}
	if in.PurchasePrice.Sign() < 0 {
		return nil, validationErrorf("purchase price cannot be negative")
	}

	if _, err := s.ownedPortfolio(userID, portfolioID); err != nil {
		return nil, err
	}

	stock, err := s.marketService.ResolveSymbol(in.Symbol)
	if err != nil {
		return nil, validationErrorf("stock symbol %q could not be resolved", in.Symbol)
	}

	return s.upsertPosition(portfolioID, stock.Symbol, in)
}

// upsertPosition is shared by AddPosition and import confirmation. The caller
// has already validated the input and ownership.
func (s *PositionService) upsertPosition(portfolioID primitive.ObjectID, symbol string, in AddPositionInput) (*models.Position, error) {
	now := time.Now()

	var existing models.Position
	err := s.positionCollection.FindOne(context.Background(), bson.M{
		"portfolio_id": portfolioID,
		"symbol":       symbol,
	}).Decode(&existing)

	if err == mongo.ErrNoDocuments {
		position := &models.Position{
			ID:            primitive.NewObjectID(),
			PortfolioID:   portfolioID,
			Symbol:        symbol,
			Quantity:      in.Quantity,
			PurchasePrice: in.PurchasePrice,
			PurchaseDate:  in.PurchaseDate,
			Notes:         in.Notes,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if _, err := s.positionCollection.InsertOne(context.Background(), position); err != nil {
			return nil, err
		}
		return position, nil
	}
	if err != nil {
		return nil, err
	}

	quantity, price, date := MergeLots(
		existing.Quantity, existing.PurchasePrice, existing.PurchaseDate,
		in.Quantity, in.PurchasePrice, in.PurchaseDate,
	)

	_, err = s.positionCollection.UpdateOne(
		context.Background(),
		bson.M{"_id": existing.ID},
		bson.M{"$set": bson.M{
			"quantity":       quantity,
			"purchase_price": price,
			"purchase_date":  date,
			"updated_at":     now,
		}},
	)
	if err != nil {
		return nil, err
	}

	existing.Quantity = quantity
	existing.PurchasePrice = price
	existing.PurchaseDate = date
	existing.UpdatedAt = now
	return &existing, nil
}

// UpdatePosition replaces quantity and purchase price.
func (s *PositionService) UpdatePosition(userID string, positionID primitive.ObjectID, in UpdatePositionInput) (*models.Position, error) {
	if in.Quantity.Sign() < 0 {
		return nil, validationErrorf("quantity cannot be negative")
	}
	if in.PurchasePrice.Sign() < 0 {
		return nil, validationErrorf("purchase price cannot be negative")
	}

	position, _, err := s.ownedPosition(userID, positionID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	_, err = s.positionCollection.UpdateOne(
		context.Background(),
		bson.M{"_id": position.ID},
		bson.M{"$set": bson.M{
			"quantity":       in.Quantity,
			"purchase_price": in.PurchasePrice,
			"updated_at":     now,
		}},
	)
	if err != nil {
		return nil, err
	}

	position.Quantity = in.Quantity
	position.PurchasePrice = in.PurchasePrice
	position.UpdatedAt = now
	return position, nil
}

// SellPosition realizes part or all of a holding. With no explicit price the
// stock's current price is used. The proceeds are credited to the portfolio's
// cash balance and returned; selling down to zero removes the position.
func (s *PositionService) SellPosition(userID string, positionID primitive.ObjectID, sellQuantity decimal.Decimal, sellPrice *decimal.Decimal) (decimal.Decimal, error) {
	position, portfolio, err := s.ownedPosition(userID, positionID)
	if err != nil {
		return decimal.Zero, err
	}

	price, err := s.resolveSellPrice(position.Symbol, sellPrice)
	if err != nil {
		return decimal.Zero, err
	}

	remaining, proceeds, err := ApplySell(position.Quantity, sellQuantity, price)
	if err != nil {
		return decimal.Zero, err
	}

	if remaining.IsZero() {
		_, err = s.positionCollection.DeleteOne(context.Background(), bson.M{"_id": position.ID})
	} else {
		_, err = s.positionCollection.UpdateOne(
			context.Background(),
			bson.M{"_id": position.ID},
			bson.M{"$set": bson.M{"quantity": remaining, "updated_at": time.Now()}},
		)
	}
	if err != nil {
		return decimal.Zero, err
	}

	_, err = s.portfolioCollection.UpdateOne(
		context.Background(),
		bson.M{"_id": portfolio.ID},
		bson.M{"$set": bson.M{
			"cash_balance": portfolio.CashBalance.Add(proceeds),
			"updated_at":   time.Now(),
		}},
	)
	if err != nil {
		return decimal.Zero, err
	}

	log.Printf("💰 Sold %s x%s @ $%s, credited $%s to portfolio %s",
		position.Symbol, sellQuantity, price.StringFixed(2), proceeds.StringFixed(2), portfolio.Name)
	return proceeds, nil
}

// DeletePosition removes a holding without touching the cash balance. Delete
// is a correction, not a realized sale.
func (s *PositionService) DeletePosition(userID string, positionID primitive.ObjectID) error {
	position, _, err := s.ownedPosition(userID, positionID)
	if err != nil {
		return err
	}

	_, err = s.positionCollection.DeleteOne(context.Background(), bson.M{"_id": position.ID})
	return err
}

func (s *PositionService) resolveSellPrice(symbol string, sellPrice *decimal.Decimal) (decimal.Decimal, error) {
	if sellPrice != nil {
		if sellPrice.Sign() < 0 {
			return decimal.Zero, validationErrorf("sell price cannot be negative")
		}
		return *sellPrice, nil
	}

	stock, err := s.marketService.ResolveSymbol(symbol)
	if err != nil || stock.CurrentPrice == nil {
		return decimal.Zero, &PriceUnavailableError{Symbol: symbol}
	}
	return *stock.CurrentPrice, nil
}

func (s *PositionService) ownedPortfolio(userID string, portfolioID primitive.ObjectID) (*models.Portfolio, error) {
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

func (s *PositionService) ownedPosition(userID string, positionID primitive.ObjectID) (*models.Position, *models.Portfolio, error) {
	var position models.Position
	err := s.positionCollection.FindOne(context.Background(), bson.M{"_id": positionID}).Decode(&position)
	if err == mongo.ErrNoDocuments {
		return nil, nil, ErrPositionNotFound
	}
	if err != nil {
		return nil, nil, err
	}

	portfolio, err := s.ownedPortfolio(userID, position.PortfolioID)
	if err != nil {
		// A position inside someone else's portfolio is indistinguishable
		// from a missing one.
		return nil, nil, ErrPositionNotFound
	}
	return &position, portfolio, nil
}
