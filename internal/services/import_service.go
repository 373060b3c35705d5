package services

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"portfolio-tracker/config"
	"portfolio-tracker/internal/models"
)

// How long an unconfirmed preview stays confirmable.
const importTTL = 30 * time.Minute

// ImportService drives the server side of the two-phase CSV import: upload
// parses and stores a preview, confirm consumes it exactly once. An upload
// that is never confirmed touches no portfolio state.
type ImportService struct {
	importCollection    *mongo.Collection
	portfolioCollection *mongo.Collection
	positionService     *PositionService
	marketService       *MarketDataService
}

func NewImportService(marketService *MarketDataService, positionService *PositionService) *ImportService {
	return &ImportService{
		importCollection:    config.GetCollection("imports"),
		portfolioCollection: config.GetCollection("portfolios"),
		positionService:     positionService,
		marketService:       marketService,
	}
}

// CreateImport parses an uploaded file and stores the preview under a fresh
// import id. Row defects are kept as per-row diagnostics; only an unusable
// file (unparsable, no symbol column) fails outright.
func (s *ImportService) CreateImport(userID string, portfolioID primitive.ObjectID, filename string, content []byte) (*models.CSVImport, error) {
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

	result, err := ParseCSV(content, s.marketService)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	imp := &models.CSVImport{
		ID:            primitive.NewObjectID(),
		ImportID:      uuid.NewString(),
		PortfolioID:   portfolioID,
		UserID:        userID,
		Filename:      filename,
		Status:        models.ImportStatusPreview,
		ColumnMapping: result.ColumnMapping,
		TotalRows:     result.TotalRows,
		ValidRows:     result.ValidRows,
		ErrorRows:     result.ErrorRows,
		Rows:          result.Rows,
		FileErrors:    result.FileErrors,
		ImportedAt:    now,
		ExpiresAt:     now.Add(importTTL),
	}

	if _, err := s.importCollection.InsertOne(context.Background(), imp); err != nil {
		return nil, err
	}

	log.Printf("📄 Import %s: %s parsed, %d rows (%d valid, %d errors)",
		imp.ImportID, filename, imp.TotalRows, imp.ValidRows, imp.ErrorRows)
	return imp, nil
}

// GetImport returns the current state of an import for the status endpoint.
func (s *ImportService) GetImport(userID, importID string) (*models.CSVImport, error) {
	var imp models.CSVImport
	err := s.importCollection.FindOne(context.Background(), bson.M{
		"import_id": importID,
		"user_id":   userID,
	}).Decode(&imp)
	if err == mongo.ErrNoDocuments {
		return nil, ErrImportNotFound
	}
	if err != nil {
		return nil, err
	}
	return &imp, nil
}

// ConfirmImport consumes a preview: valid rows become positions, invalid rows
// are skipped. The status flip is atomic, so confirming the same import id
// twice fails no matter how the calls interleave.
func (s *ImportService) ConfirmImport(userID, importID string) (int, error) {
	now := time.Now()

	var imp models.CSVImport
	err := s.importCollection.FindOneAndUpdate(
		context.Background(),
		bson.M{
			"import_id":  importID,
			"user_id":    userID,
			"status":     models.ImportStatusPreview,
			"valid_rows": bson.M{"$gt": 0},
			"expires_at": bson.M{"$gt": now},
		},
		bson.M{"$set": bson.M{"status": models.ImportStatusCompleted}},
		options.FindOneAndUpdate().SetReturnDocument(options.Before),
	).Decode(&imp)

	if err == mongo.ErrNoDocuments {
		return 0, s.classifyConfirmFailure(userID, importID, now)
	}
	if err != nil {
		return 0, err
	}

	created := 0
	for _, row := range imp.Rows {
		if !row.Valid() {
			continue
		}

		purchaseDate, err := time.Parse("2006-01-02", row.PurchaseDate)
		if err != nil {
			purchaseDate = now
		}

		_, err = s.positionService.upsertPosition(imp.PortfolioID, row.Symbol, AddPositionInput{
			Symbol:        row.Symbol,
			Quantity:      *row.Quantity,
			PurchasePrice: *row.PurchasePrice,
			PurchaseDate:  purchaseDate,
			Notes:         row.Notes,
		})
		if err != nil {
			log.Printf("❌ Import %s: row %d failed: %v", imp.ImportID, row.RowNumber, err)
			continue
		}
		created++
	}

	_, err = s.importCollection.UpdateOne(
		context.Background(),
		bson.M{"import_id": imp.ImportID},
		bson.M{"$set": bson.M{"created_count": created}},
	)
	if err != nil {
		log.Printf("Failed to record created count for import %s: %v", imp.ImportID, err)
	}

	log.Printf("✅ Import %s confirmed: %d positions created", imp.ImportID, created)
	return created, nil
}

// classifyConfirmFailure explains why the atomic claim found nothing.
func (s *ImportService) classifyConfirmFailure(userID, importID string, now time.Time) error {
	imp, err := s.GetImport(userID, importID)
	if err != nil {
		return ErrImportNotFound
	}

	switch {
	case imp.Status == models.ImportStatusCompleted:
		return ErrImportConsumed
	case imp.Expired(now):
		s.markFailed(importID)
		return ErrImportExpired
	case imp.Status == models.ImportStatusPreview && imp.ValidRows == 0:
		return validationErrorf("import has no valid rows to confirm")
	default:
		return ErrImportNotFound
	}
}

func (s *ImportService) markFailed(importID string) {
	_, err := s.importCollection.UpdateOne(
		context.Background(),
		bson.M{"import_id": importID},
		bson.M{"$set": bson.M{"status": models.ImportStatusFailed}},
	)
	if err != nil {
		log.Printf("Failed to mark import %s failed: %v", importID, err)
	}
}
