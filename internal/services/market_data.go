package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"os"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"portfolio-tracker/config"
	"portfolio-tracker/internal/models"
)

type AlphaVantageResponse struct {
	GlobalQuote struct {
		Symbol        string `json:"01. symbol"`
		Price         string `json:"05. price"`
		Change        string `json:"09. change"`
		ChangePercent string `json:"10. change percent"`
	} `json:"Global Quote"`
}

type AlphaVantageError struct {
	Information string `json:"Information"`
}

var symbolRe = regexp.MustCompile(`^[A-Z][A-Z0-9.\-]{0,9}$`)

// MarketDataService owns the stock catalog: it resolves symbols, fetches
// quotes (Alpha Vantage with a mock fallback when the API is missing or rate
// limited) and caches stock records in Mongo.
type MarketDataService struct {
	stockCollection *mongo.Collection
	apiKey          string

	mu             sync.Mutex
	useMockData    bool
	lastAPISuccess time.Time
	mockPrices     map[string]decimal.Decimal
}

func NewMarketDataService() *MarketDataService {
	apiKey := os.Getenv("ALPHA_VANTAGE_API_KEY")
	if apiKey == "" {
		log.Println("⚠️ ALPHA_VANTAGE_API_KEY not set, quotes will use mock data only")
	}

	mockPrices := map[string]decimal.Decimal{
		"AAPL":  decimal.NewFromFloat(175.50),
		"GOOGL": decimal.NewFromFloat(138.25),
		"MSFT":  decimal.NewFromFloat(330.80),
		"TSLA":  decimal.NewFromFloat(210.75),
		"AMZN":  decimal.NewFromFloat(178.90),
	}

	return &MarketDataService{
		stockCollection: config.GetCollection("stocks"),
		apiKey:          apiKey,
		useMockData:     apiKey == "",
		lastAPISuccess:  time.Now(),
		mockPrices:      mockPrices,
	}
}

// ResolveSymbol validates a ticker and returns its catalog record, creating
// one on first sight. Unknown or malformed symbols fail so callers can reject
// positions that reference nothing.
func (m *MarketDataService) ResolveSymbol(symbol string) (*models.Stock, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if !symbolRe.MatchString(symbol) {
		return nil, fmt.Errorf("invalid stock symbol %q", symbol)
	}

	var stock models.Stock
	err := m.stockCollection.FindOne(context.Background(), bson.M{"symbol": symbol}).Decode(&stock)
	if err == nil {
		return &stock, nil
	}
	if err != mongo.ErrNoDocuments {
		return nil, err
	}

	quote, err := m.GetQuote(symbol)
	if err != nil {
		return nil, fmt.Errorf("stock %s not found: %v", symbol, err)
	}
	return m.upsertStock(quote)
}

// GetQuote fetches a quote, preferring the real API and degrading to mock
// prices when it fails.
func (m *MarketDataService) GetQuote(symbol string) (*models.Quote, error) {
	m.mu.Lock()
	tryReal := m.apiKey != "" && (!m.useMockData || time.Since(m.lastAPISuccess) > 30*time.Minute)
	m.mu.Unlock()

	if tryReal {
		quote, err := m.getRealQuote(symbol)
		if err == nil {
			m.mu.Lock()
			m.lastAPISuccess = time.Now()
			m.useMockData = false
			m.mu.Unlock()
			return quote, nil
		}

		log.Printf("⚠️ Real API failed for %s, switching to mock data: %v", symbol, err)
		m.mu.Lock()
		m.useMockData = true
		m.mu.Unlock()
	}

	return m.GetMockQuote(symbol)
}

func (m *MarketDataService) getRealQuote(symbol string) (*models.Quote, error) {
	url := fmt.Sprintf("https://www.alphavantage.co/query?function=GLOBAL_QUOTE&symbol=%s&apikey=%s", symbol, m.apiKey)

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %v", err)
	}

	// Check for API rate limit errors
	var apiError AlphaVantageError
	if err := json.Unmarshal(body, &apiError); err == nil && apiError.Information != "" {
		if strings.Contains(apiError.Information, "rate limit") {
			return nil, fmt.Errorf("API rate limit exceeded: %s", apiError.Information)
		}
	}

	var alphaResponse AlphaVantageResponse
	if err := json.Unmarshal(body, &alphaResponse); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %v", err)
	}

	if alphaResponse.GlobalQuote.Symbol == "" || alphaResponse.GlobalQuote.Price == "" {
		return nil, fmt.Errorf("no data returned for symbol %s", symbol)
	}

	price, err := decimal.NewFromString(strings.TrimSpace(alphaResponse.GlobalQuote.Price))
	if err != nil {
		return nil, fmt.Errorf("failed to parse price: %v", err)
	}

	change, err := decimal.NewFromString(strings.TrimSpace(alphaResponse.GlobalQuote.Change))
	if err != nil {
		change = decimal.Zero
	}

	changePercent, err := decimal.NewFromString(
		strings.TrimSpace(strings.TrimSuffix(alphaResponse.GlobalQuote.ChangePercent, "%")))
	if err != nil {
		changePercent = decimal.Zero
	}

	quote := &models.Quote{
		Symbol:        strings.ToUpper(alphaResponse.GlobalQuote.Symbol),
		Name:          stockName(alphaResponse.GlobalQuote.Symbol),
		Price:         price,
		Change:        change,
		ChangePercent: changePercent,
		Timestamp:     time.Now(),
	}

	log.Printf("✅ Real API: %s - $%s (%s%%)", quote.Symbol, quote.Price.StringFixed(2), quote.ChangePercent.StringFixed(2))
	return quote, nil
}

// GetMockQuote generates a realistic quote without an API call: each request
// moves the cached price by up to ±1.5%.
func (m *MarketDataService) GetMockQuote(symbol string) (*models.Quote, error) {
	symbol = strings.ToUpper(symbol)

	m.mu.Lock()
	basePrice, exists := m.mockPrices[symbol]
	if !exists {
		basePrice = decimal.NewFromInt(100)
	}

	changePercent := decimal.NewFromFloat(rand.Float64()*3 - 1.5)
	change := basePrice.Mul(changePercent).Div(decimal.NewFromInt(100))
	newPrice := basePrice.Add(change)

	m.mockPrices[symbol] = newPrice
	m.mu.Unlock()

	return &models.Quote{
		Symbol:        symbol,
		Name:          stockName(symbol),
		Price:         newPrice,
		Change:        change,
		ChangePercent: changePercent,
		Timestamp:     time.Now(),
	}, nil
}

// RefreshSymbol fetches a fresh quote and updates the catalog record.
func (m *MarketDataService) RefreshSymbol(symbol string) (*models.Stock, error) {
	quote, err := m.GetQuote(symbol)
	if err != nil {
		return nil, err
	}
	return m.upsertStock(quote)
}

// StocksBySymbol loads catalog records for a symbol set, keyed by symbol.
// Symbols with no record are simply absent; their positions render as N/A.
func (m *MarketDataService) StocksBySymbol(symbols []string) (map[string]*models.Stock, error) {
	out := make(map[string]*models.Stock, len(symbols))
	if len(symbols) == 0 {
		return out, nil
	}

	cur, err := m.stockCollection.Find(context.Background(), bson.M{"symbol": bson.M{"$in": symbols}})
	if err != nil {
		return nil, err
	}
	defer cur.Close(context.Background())

	var stocks []models.Stock
	if err := cur.All(context.Background(), &stocks); err != nil {
		return nil, err
	}
	for i := range stocks {
		out[stocks[i].Symbol] = &stocks[i]
	}
	return out, nil
}

// MarketMovers quotes a fixed set of large caps and splits them into the top
// ten gainers and losers by percentage change.
func (m *MarketDataService) MarketMovers() *models.MarketMovers {
	tickers := []string{
		"AAPL", "GOOGL", "MSFT", "TSLA", "AMZN", "NVDA", "META", "JPM", "JNJ", "V",
		"WMT", "PG", "UNH", "DIS", "HD", "PYPL", "ADBE", "NFLX", "CRM", "INTC",
	}

	var quotes []models.Quote
	for _, ticker := range tickers {
		quote, err := m.GetQuote(ticker)
		if err != nil {
			log.Printf("Error fetching %s: %v", ticker, err)
			continue
		}
		quotes = append(quotes, *quote)
	}

	movers := &models.MarketMovers{
		Gainers:     []models.Quote{},
		Losers:      []models.Quote{},
		LastUpdated: time.Now(),
	}
	for _, q := range quotes {
		switch {
		case q.ChangePercent.Sign() > 0:
			movers.Gainers = append(movers.Gainers, q)
		case q.ChangePercent.Sign() < 0:
			movers.Losers = append(movers.Losers, q)
		}
	}

	sort.Slice(movers.Gainers, func(i, j int) bool {
		return movers.Gainers[i].ChangePercent.GreaterThan(movers.Gainers[j].ChangePercent)
	})
	sort.Slice(movers.Losers, func(i, j int) bool {
		return movers.Losers[i].ChangePercent.LessThan(movers.Losers[j].ChangePercent)
	})
	movers.Gainers = topQuotes(movers.Gainers, 10)
	movers.Losers = topQuotes(movers.Losers, 10)
	return movers
}

func (m *MarketDataService) upsertStock(quote *models.Quote) (*models.Stock, error) {
	price := quote.Price
	now := time.Now()

	update := bson.M{
		"$set": bson.M{
			"current_price": &price,
			"last_updated":  now,
		},
		"$setOnInsert": bson.M{
			"symbol": quote.Symbol,
			"name":   quote.Name,
		},
	}

	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var stock models.Stock
	err := m.stockCollection.FindOneAndUpdate(
		context.Background(), bson.M{"symbol": quote.Symbol}, update, opts,
	).Decode(&stock)
	if err != nil {
		return nil, err
	}
	return &stock, nil
}

func topQuotes(quotes []models.Quote, n int) []models.Quote {
	if len(quotes) > n {
		return quotes[:n]
	}
	return quotes
}

func stockName(symbol string) string {
	names := map[string]string{
		"AAPL":  "Apple Inc.",
		"GOOGL": "Alphabet Inc.",
		"MSFT":  "Microsoft Corporation",
		"TSLA":  "Tesla Inc.",
		"AMZN":  "Amazon.com Inc.",
		"NVDA":  "NVIDIA Corporation",
		"META":  "Meta Platforms Inc.",
		"JPM":   "JPMorgan Chase & Co.",
	}

	if name, exists := names[strings.ToUpper(symbol)]; exists {
		return name
	}
	return fmt.Sprintf("%s Corporation", strings.ToUpper(symbol))
}
