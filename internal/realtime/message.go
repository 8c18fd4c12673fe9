package realtime

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/vendora/backend/internal/designs"
)

// FlexibleTime handles both Unix millisecond timestamps and RFC3339 strings
type FlexibleTime struct {
	time.Time
}

// UnmarshalJSON implements custom unmarshaling for timestamps
func (ft *FlexibleTime) UnmarshalJSON(b []byte) error {
	// Try to unmarshal as Unix milliseconds (integer)
	var ms int64
	if err := json.Unmarshal(b, &ms); err == nil {
		ft.Time = time.UnixMilli(ms)
		return nil
	}

	// Fall back to RFC3339 string format
	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return fmt.Errorf("timestamp must be Unix milliseconds (integer) or RFC3339 string")
	}

	t, err := time.Parse(time.RFC3339, str)
	if err != nil {
		return err
	}
	ft.Time = t
	return nil
}

// MarshalJSON implements custom marshaling (always output as RFC3339)
func (ft FlexibleTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(ft.Time)
}

// Message types for realtime communication
const (
	// System messages
	MessageTypeSystem = "system"
	MessageTypePing   = "ping"
	MessageTypePong   = "pong"
	MessageTypeError  = "error"
	MessageTypeAuth   = "auth"

	// Store channel membership
	MessageTypeSubscribeStore    = "subscribe_store"
	MessageTypeUnsubscribeStore  = "unsubscribe_store"
	MessageTypeStoreSubscribed   = "store_subscribed"
	MessageTypeStoreUnsubscribed = "store_unsubscribed"

	// Design studio events
	MessageTypeDesignSaved      = "design_saved"
	MessageTypeDesignConflict   = "design_save_conflict"
	MessageTypeDesignSaveFailed = "design_save_failed"
	MessageTypeDesignPublished  = "design_published"

	// Catalog events
	MessageTypePriceChanged   = "product_price_changed"
	MessageTypeStockChanged   = "product_stock_changed"
	MessageTypeProductListed  = "product_listed"
	MessageTypeProductRemoved = "product_removed"
	MessageTypeReviewCreated  = "review_created"

	// Store lifecycle
	MessageTypeStoreStatusChanged = "store_status_changed"

	// Price ticker
	MessageTypeTickerUpdate = "ticker_update"

	// Notification messages
	MessageTypeNotification = "notification"
)

// Message represents a realtime message
type Message struct {
	// Type identifies the message type for routing
	Type string `json:"type"`

	// Payload contains the message-specific data
	Payload interface{} `json:"payload,omitempty"`

	// ID is a unique message identifier for acknowledgment
	ID string `json:"id,omitempty"`

	// ReplyTo references the original message ID for responses
	ReplyTo string `json:"reply_to,omitempty"`

	// Timestamp when the message was created (accepts Unix ms or RFC3339)
	Timestamp FlexibleTime `json:"timestamp"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(msgType string, payload interface{}) *Message {
	return &Message{
		Type:      msgType,
		Payload:   payload,
		Timestamp: FlexibleTime{Time: time.Now().UTC()},
	}
}

// NewMessageWithID creates a new message with a specific ID
func NewMessageWithID(msgType string, id string, payload interface{}) *Message {
	return &Message{
		Type:      msgType,
		ID:        id,
		Payload:   payload,
		Timestamp: FlexibleTime{Time: time.Now().UTC()},
	}
}

// NewReply creates a reply message to an original message
func NewReply(original *Message, msgType string, payload interface{}) *Message {
	return &Message{
		Type:      msgType,
		ReplyTo:   original.ID,
		Payload:   payload,
		Timestamp: FlexibleTime{Time: time.Now().UTC()},
	}
}

// NewErrorMessage creates an error message
func NewErrorMessage(code string, message string) *Message {
	return &Message{
		Type: MessageTypeError,
		Payload: ErrorPayload{
			Code:    code,
			Message: message,
		},
		Timestamp: FlexibleTime{Time: time.Now().UTC()},
	}
}

// ErrorPayload represents an error message payload
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// PingPayload represents a ping message payload
type PingPayload struct {
	ClientTime int64 `json:"client_time"`
}

// PongPayload represents a pong message payload
type PongPayload struct {
	ClientTime int64 `json:"client_time"`
	ServerTime int64 `json:"server_time"`
	Latency    int64 `json:"latency_ms"`
}

// AuthPayload represents authentication message payload
type AuthPayload struct {
	Token  string `json:"token,omitempty"`
	UserID string `json:"user_id,omitempty"`
	Status string `json:"status,omitempty"` // "success", "failed", "expired"
	Error  string `json:"error,omitempty"`
}

// SystemPayload represents system event payloads
type SystemPayload struct {
	Event   string                 `json:"event"`
	Message string                 `json:"message,omitempty"`
	Data    map[string]interface{} `json:"data,omitempty"`
}

// StoreSubscriptionPayload carries store channel join/leave requests and acks
type StoreSubscriptionPayload struct {
	StoreID     string `json:"store_id"`
	Status      string `json:"status,omitempty"` // "subscribed", "unsubscribed"
	Subscribers int    `json:"subscribers,omitempty"`
}

// DesignSavedPayload reports a completed design save cycle to editor tabs
type DesignSavedPayload struct {
	DesignID string `json:"design_id"`
	StoreID  string `json:"store_id"`
	Version  int64  `json:"version"`
	Strategy string `json:"strategy"`
	Outcome  string `json:"outcome"`
	Attempts int    `json:"attempts,omitempty"`
	SavedAt  int64  `json:"saved_at"`
}

// DesignConflictPayload reports a concurrent-edit conflict with the
// field-level changes the editor needs to render a merge prompt
type DesignConflictPayload struct {
	DesignID      string                `json:"design_id"`
	StoreID       string                `json:"store_id"`
	LocalVersion  int64                 `json:"local_version"`
	RemoteVersion int64                 `json:"remote_version"`
	Changes       []designs.BlockChange `json:"changes,omitempty"`
	Timestamp     int64                 `json:"timestamp"`
}

// DesignPublishedPayload announces a new live storefront layout
type DesignPublishedPayload struct {
	DesignID    string `json:"design_id"`
	StoreID     string `json:"store_id"`
	Version     int64  `json:"version"`
	PreviewURL  string `json:"preview_url,omitempty"`
	PublishedAt int64  `json:"published_at"`
}

// PriceChangePayload announces a product price change to store watchers
type PriceChangePayload struct {
	ProductID     string `json:"product_id"`
	StoreID       string `json:"store_id"`
	OldPriceCents int64  `json:"old_price_cents"`
	NewPriceCents int64  `json:"new_price_cents"`
	Currency      string `json:"currency"`
	Timestamp     int64  `json:"timestamp"`
}

// StockChangePayload announces a stock level change. Available goes false
// when stock hits zero so product pages can flip without a refetch.
type StockChangePayload struct {
	ProductID string `json:"product_id"`
	StoreID   string `json:"store_id"`
	OldStock  int    `json:"old_stock"`
	NewStock  int    `json:"new_stock"`
	Available bool   `json:"available"`
	Timestamp int64  `json:"timestamp"`
}

// ProductListingPayload announces a product appearing or leaving a store
type ProductListingPayload struct {
	ProductID string `json:"product_id"`
	StoreID   string `json:"store_id"`
	Name      string `json:"name,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// ReviewCreatedPayload announces a new review with the refreshed rollup
type ReviewCreatedPayload struct {
	ReviewID    string  `json:"review_id"`
	ProductID   string  `json:"product_id"`
	StoreID     string  `json:"store_id"`
	Rating      int     `json:"rating"`
	RatingAvg   float64 `json:"rating_avg"`
	RatingCount int     `json:"rating_count"`
	Timestamp   int64   `json:"timestamp"`
}

// StoreStatusPayload announces a store opening or closing
type StoreStatusPayload struct {
	StoreID   string `json:"store_id"`
	IsOpen    bool   `json:"is_open"`
	Timestamp int64  `json:"timestamp"`
}

// TickerEntryPayload is one product line of a ticker frame
type TickerEntryPayload struct {
	ProductID     string  `json:"product_id"`
	Name          string  `json:"name"`
	StoreID       string  `json:"store_id"`
	StoreName     string  `json:"store_name,omitempty"`
	PriceCents    int64   `json:"price_cents"`
	Currency      string  `json:"currency"`
	ChangeCents   int64   `json:"change_cents"`
	ChangePct     float64 `json:"change_pct"`
	FavoriteCount int     `json:"favorite_count"`
}

// TickerUpdatePayload is a full ticker refresh broadcast to every client
type TickerUpdatePayload struct {
	Entries     []TickerEntryPayload `json:"entries"`
	RefreshedAt int64                `json:"refreshed_at"`
}

// NotificationPayload represents a notification
type NotificationPayload struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"notification_type"`
	Title     string                 `json:"title"`
	Body      string                 `json:"body"`
	Data      map[string]interface{} `json:"data,omitempty"`
	CreatedAt int64                  `json:"created_at"`
}

// ParsePayload unmarshals the payload into a specific type
func (m *Message) ParsePayload(target interface{}) error {
	// If payload is already the right type, return
	if m.Payload == nil {
		return nil
	}

	// Re-marshal and unmarshal to properly type the payload
	data, err := json.Marshal(m.Payload)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, target)
}
