package crm

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"SellingView/internal/domain/models"
	drepo "SellingView/internal/domain/repository"
	"SellingView/pkg/util"

	"github.com/gorilla/websocket"
)

// Stream implements an OrderStream backed by the CRM push WebSocket.
type Stream struct {
	token          string
	websocketURL   string
	accountIDs     []string
	reconnectDelay time.Duration
	pingInterval   time.Duration

	conn      *websocket.Conn
	connected bool
}

// NewStream creates a new CRM OrderStream.
func NewStream(token, websocketURL string, accountIDs []string, reconnectDelay, pingInterval time.Duration) drepo.OrderStream {
	return &Stream{
		token:          token,
		websocketURL:   websocketURL,
		accountIDs:     accountIDs,
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
	}
}

// Connect establishes the WebSocket connection.
func (s *Stream) Connect(ctx context.Context) error {
	u := fmt.Sprintf("%s?token=%s", s.websocketURL, s.token)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
	if err != nil {
		return fmt.Errorf("crm connect: %w", err)
	}
	s.conn = conn
	s.connected = true
	log.Printf("crm: connected")
	return nil
}

// Subscribe subscribes to order events for the configured accounts.
func (s *Stream) Subscribe(ctx context.Context) error {
	if s.conn == nil || !s.connected {
		return fmt.Errorf("crm not connected")
	}
	for _, id := range s.accountIDs {
		msg := map[string]string{"type": "subscribe", "account_id": id}
		if err := s.conn.WriteJSON(msg); err != nil {
			return fmt.Errorf("subscribe %s: %w", id, err)
		}
		log.Printf("crm: subscribed %s", id)
	}
	return nil
}

type wsOrder struct {
	ID          string  `json:"id"`
	AccountID   string  `json:"account_id"`
	AccountName string  `json:"account_name"`
	ProductID   string  `json:"product_id"`
	ProductName string  `json:"product_name"`
	ShippedAt   string  `json:"shipped_at"`
	Amount      float64 `json:"amount"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
}

type wsMessage struct {
	Type string    `json:"type"`
	Data []wsOrder `json:"data"`
}

// Read streams order events and errors.
func (s *Stream) Read(ctx context.Context) (<-chan *models.Order, <-chan error) {
	orders := make(chan *models.Order, 1024)
	errs := make(chan error, 1)

	// ping loop
	go func() {
		ticker := time.NewTicker(s.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if s.conn != nil {
					_ = s.conn.WriteMessage(websocket.PingMessage, nil)
				}
			}
		}
	}()

	// read loop
	go func() {
		defer close(orders)
		defer close(errs)
		for {
			select {
			case <-ctx.Done():
				return
			default:
				if s.conn == nil {
					errs <- fmt.Errorf("crm conn nil")
					return
				}
				_, b, err := s.conn.ReadMessage()
				if err != nil {
					errs <- fmt.Errorf("crm read: %w", err)
					return
				}
				var m wsMessage
				if err := json.Unmarshal(b, &m); err != nil {
					// ignore non-order frames
					continue
				}
				if m.Type != "order" {
					continue
				}
				for _, d := range m.Data {
					shipped, ok := util.ParseTime(d.ShippedAt)
					if !ok {
						continue
					}
					order := &models.Order{
						ID:          d.ID,
						AccountID:   d.AccountID,
						AccountName: d.AccountName,
						ProductID:   d.ProductID,
						ProductName: d.ProductName,
						ShippedAt:   shipped,
						Amount:      d.Amount,
						Quantity:    d.Quantity,
						UnitPrice:   d.UnitPrice,
					}
					select {
					case orders <- order:
					default:
						// drop on backpressure
					}
				}
			}
		}
	}()

	return orders, errs
}

// Reconnect closes and reconnects.
func (s *Stream) Reconnect(ctx context.Context) error {
	_ = s.Close()
	time.Sleep(s.reconnectDelay)
	if err := s.Connect(ctx); err != nil {
		return err
	}
	return s.Subscribe(ctx)
}

// Close closes the WS connection.
func (s *Stream) Close() error {
	s.connected = false
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

// IsConnected indicates status.
func (s *Stream) IsConnected() bool { return s.connected }
