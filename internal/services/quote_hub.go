package services

import (
	"encoding/json"
	"log"
	"time"

	"github.com/gorilla/websocket"

	"portfolio-tracker/internal/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// QuoteHub fans quote updates out to connected WebSocket clients so open
// portfolio views can recompute valuations without polling.
type QuoteHub struct {
	clients    map[*QuoteClient]bool
	broadcast  chan models.Quote
	register   chan *QuoteClient
	unregister chan *QuoteClient
}

type QuoteClient struct {
	hub      *QuoteHub
	conn     *websocket.Conn
	send     chan []byte
	username string
}

func NewQuoteHub() *QuoteHub {
	return &QuoteHub{
		clients:    make(map[*QuoteClient]bool),
		broadcast:  make(chan models.Quote),
		register:   make(chan *QuoteClient),
		unregister: make(chan *QuoteClient),
	}
}

func (h *QuoteHub) Run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = true
			log.Printf("Quote subscriber connected. Total clients: %d", len(h.clients))

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				log.Printf("Quote subscriber disconnected. Total clients: %d", len(h.clients))
			}

		case quote := <-h.broadcast:
			message, err := json.Marshal(quote)
			if err != nil {
				log.Printf("Error marshaling quote: %v", err)
				continue
			}

			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					close(client.send)
					delete(h.clients, client)
				}
			}
		}
	}
}

func (h *QuoteHub) BroadcastQuote(quote models.Quote) {
	h.broadcast <- quote
}

func (h *QuoteHub) RegisterClient(conn *websocket.Conn, username string) *QuoteClient {
	client := &QuoteClient{
		hub:      h,
		conn:     conn,
		send:     make(chan []byte, 256),
		username: username,
	}
	h.register <- client
	return client
}

func (c *QuoteClient) ReadPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, _, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}
	}
}

func (c *QuoteClient) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
