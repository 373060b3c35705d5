package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/joho/godotenv"
	"portfolio-tracker/config"
	"portfolio-tracker/internal/handlers"
	"portfolio-tracker/internal/services"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins in development
	},
}

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Initialize MongoDB
	config.ConnectDB()

	// Initialize services
	marketService := services.NewMarketDataService()
	quoteHub := services.NewQuoteHub()
	positionService := services.NewPositionService(marketService)
	portfolioService := services.NewPortfolioService(marketService, quoteHub)
	importService := services.NewImportService(marketService, positionService)
	authService := services.NewAuthService()

	// Start quote hub in goroutine
	go quoteHub.Run()

	// Start quote stream
	go streamQuotes(quoteHub, marketService)

	// Create Gin router
	router := gin.Default()

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	portfolioHandler := handlers.NewPortfolioHandler(portfolioService, positionService)
	positionHandler := handlers.NewPositionHandler(positionService)
	importHandler := handlers.NewImportHandler(importService)
	marketHandler := handlers.NewMarketHandler(marketService)

	// Auth middleware helper
	authMiddleware := authHandler.AuthMiddleware()

	// Routes
	router.GET("/", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "OK",
			"message": "Portfolio Tracker API",
			"version": "1.0.0",
			"endpoints": []string{
				"GET /health",
				"POST /api/auth/register",
				"POST /api/auth/login",
				"GET /api/auth/me",
				"GET /api/portfolios",
				"POST /api/portfolios",
				"GET /api/portfolios/:id",
				"PUT /api/portfolios/:id",
				"DELETE /api/portfolios/:id",
				"POST /api/portfolios/:id/positions",
				"GET /api/portfolios/:id/refresh-prices",
				"GET /api/portfolios/:id/export",
				"POST /api/portfolios/:id/imports",
				"PUT /api/positions/:id",
				"DELETE /api/positions/:id",
				"POST /api/positions/:id/sell",
				"POST /api/imports/:id/confirm",
				"GET /api/imports/:id/status",
				"GET /api/top-portfolios",
				"GET /api/stocks/:symbol",
				"GET /api/quotes/:symbol",
				"GET /api/market-movers",
				"GET /ws",
			},
		})
	})

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "OK",
			"message": "Portfolio Tracker API is running",
		})
	})

	// Auth routes
	router.POST("/api/auth/register", authHandler.Register)
	router.POST("/api/auth/login", authHandler.Login)
	router.GET("/api/auth/me", authMiddleware, authHandler.GetCurrentUser)

	// Portfolio routes - require authentication
	router.GET("/api/portfolios", authMiddleware, portfolioHandler.ListPortfolios)
	router.POST("/api/portfolios", authMiddleware, portfolioHandler.CreatePortfolio)
	router.GET("/api/portfolios/:id", authMiddleware, portfolioHandler.GetPortfolio)
	router.PUT("/api/portfolios/:id", authMiddleware, portfolioHandler.UpdatePortfolio)
	router.DELETE("/api/portfolios/:id", authMiddleware, portfolioHandler.DeletePortfolio)
	router.POST("/api/portfolios/:id/positions", authMiddleware, portfolioHandler.AddPosition)
	router.GET("/api/portfolios/:id/refresh-prices", authMiddleware, portfolioHandler.RefreshPrices)
	router.GET("/api/portfolios/:id/export", authMiddleware, portfolioHandler.ExportCSV)

	// Position routes - require authentication
	router.PUT("/api/positions/:id", authMiddleware, positionHandler.UpdatePosition)
	router.DELETE("/api/positions/:id", authMiddleware, positionHandler.DeletePosition)
	router.POST("/api/positions/:id/sell", authMiddleware, positionHandler.SellPosition)

	// CSV import routes - require authentication
	router.POST("/api/portfolios/:id/imports", authMiddleware, importHandler.UploadCSV)
	router.POST("/api/imports/:id/confirm", authMiddleware, importHandler.ConfirmImport)
	router.GET("/api/imports/:id/status", authMiddleware, importHandler.ImportStatus)

	// Public leaderboard and market data routes
	router.GET("/api/top-portfolios", portfolioHandler.TopPortfolios)
	router.GET("/api/stocks/:symbol", marketHandler.GetStock)
	router.GET("/api/quotes/:symbol", marketHandler.GetQuote)
	router.GET("/api/market-movers", marketHandler.MarketMovers)

	// WebSocket endpoint
	router.GET("/ws", func(c *gin.Context) {
		username := c.Query("username")
		if username == "" {
			username = "Anonymous"
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Printf("Failed to upgrade connection: %v", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to upgrade to WebSocket"})
			return
		}

		client := quoteHub.RegisterClient(conn, username)
		log.Printf("WebSocket connection established for user: %s", username)

		// Start client pumps
		go client.WritePump()
		go client.ReadPump()
	})

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	fmt.Printf("🚀 Portfolio Tracker Backend running on port %s\n", port)
	fmt.Printf("📊 API available at http://localhost:%s\n", port)
	fmt.Printf("🔌 WebSocket available at ws://localhost:%s/ws\n", port)
	fmt.Printf("🔐 Auth available at http://localhost:%s/api/auth\n", port)
	router.Run(":" + port)
}

// Stream live quotes to connected clients
func streamQuotes(hub *services.QuoteHub, marketService *services.MarketDataService) {
	symbols := []string{"AAPL", "GOOGL", "MSFT", "TSLA", "AMZN"}

	// Add delay before starting to allow server to fully initialize
	time.Sleep(2 * time.Second)
	log.Println("📈 Starting quote stream...")

	// Get initial real data once
	log.Println("🔄 Fetching initial quotes...")
	for _, symbol := range symbols {
		quote, err := marketService.GetQuote(symbol)
		if err != nil {
			log.Printf("❌ Error fetching %s: %v", symbol, err)
			continue
		}
		hub.BroadcastQuote(*quote)
		log.Printf("✅ Initial quote: %s - $%s", symbol, quote.Price.StringFixed(2))
		time.Sleep(1 * time.Second) // Respect API limits
	}

	// Use mock data for continuous updates (no API calls)
	log.Println("🤖 Switching to mock data for real-time updates...")
	ticker := time.NewTicker(3 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		for _, symbol := range symbols {
			quote, err := marketService.GetMockQuote(symbol)
			if err != nil {
				log.Printf("❌ Mock quote error for %s: %v", symbol, err)
				continue
			}
			hub.BroadcastQuote(*quote)
		}
	}
}
