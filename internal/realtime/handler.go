package realtime

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/vendora/backend/internal/autosave"
	"github.com/vendora/backend/internal/database"
	"github.com/vendora/backend/internal/logger"
	"github.com/vendora/backend/internal/models"
	"go.uber.org/zap"
)

// Handler handles WebSocket HTTP upgrade requests
type Handler struct {
	hub       *Hub
	jwtSecret []byte
}

// NewHandler creates a new realtime handler
func NewHandler(hub *Hub, jwtSecret []byte) *Handler {
	return &Handler{
		hub:       hub,
		jwtSecret: jwtSecret,
	}
}

// HandleWebSocket handles WebSocket upgrade requests
// Authentication is done via JWT token in query param: ?token=...
// Or via Authorization header: Bearer <token>
func (h *Handler) HandleWebSocket(c *gin.Context) {
	// Extract and validate JWT token
	user, err := h.authenticateRequest(c)
	if err != nil {
		logger.Log.Warn("Realtime auth failed", zap.Error(err))
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "authentication_failed",
			"message": err.Error(),
		})
		return
	}

	// Upgrade the HTTP connection to WebSocket
	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		// TODO: restrict accepted origins to the storefront domains
		InsecureSkipVerify: true,
		CompressionMode:    websocket.CompressionContextTakeover,
	})
	if err != nil {
		logger.Log.Error("WebSocket upgrade failed", zap.Error(err))
		return
	}

	// Create client
	client := NewClient(h.hub, conn, user.ID, user.Username)
	client.RemoteAddr = c.ClientIP()
	client.UserAgent = c.GetHeader("User-Agent")

	// Register client with hub
	h.hub.Register(client)

	// Send welcome message
	client.Send(NewMessage(MessageTypeSystem, SystemPayload{
		Event:   "connected",
		Message: "Welcome to Vendora!",
		Data: map[string]interface{}{
			"user_id":     user.ID,
			"username":    user.Username,
			"server_time": time.Now().UTC().UnixMilli(),
			"session_id":  fmt.Sprintf("%p", client),
		},
	}))

	// Start client read/write pumps
	go client.WritePump()
	client.ReadPump() // This blocks until client disconnects
}

// authenticateRequest extracts and validates the JWT token from the request
func (h *Handler) authenticateRequest(c *gin.Context) (*models.User, error) {
	tokenString := ""

	// First check query parameter
	if token := c.Query("token"); token != "" {
		tokenString = token
	}

	// Then check Authorization header
	if auth := c.GetHeader("Authorization"); auth != "" {
		// Support "Bearer <token>" format
		if strings.HasPrefix(auth, "Bearer ") {
			tokenString = strings.TrimPrefix(auth, "Bearer ")
		} else {
			tokenString = auth
		}
	}

	if tokenString == "" {
		return nil, errors.New("no authentication token provided")
	}

	// Parse and validate JWT
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		// Validate signing method
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return h.jwtSecret, nil
	})

	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}

	// Check token expiration
	exp, ok := claims["exp"].(float64)
	if !ok {
		return nil, errors.New("token missing expiration")
	}
	if time.Unix(int64(exp), 0).Before(time.Now()) {
		return nil, errors.New("token expired")
	}

	// Extract user ID
	userID, ok := claims["user_id"].(string)
	if !ok || userID == "" {
		return nil, errors.New("invalid user_id in token")
	}

	// Fetch user from database
	var user models.User
	if err := database.DB.First(&user, "id = ?", userID).Error; err != nil {
		return nil, fmt.Errorf("user not found: %w", err)
	}

	return &user, nil
}

// RegisterDefaultHandlers registers the store channel message handlers
func (h *Handler) RegisterDefaultHandlers() {
	// Join a store channel
	h.hub.RegisterHandler(MessageTypeSubscribeStore, func(client *Client, msg *Message) error {
		var payload StoreSubscriptionPayload
		if err := msg.ParsePayload(&payload); err != nil {
			return err
		}
		if payload.StoreID == "" {
			client.SendError("missing_store_id", "store_id is required")
			return nil
		}
		h.hub.Subscribe(client, payload.StoreID)
		return nil
	})

	// Leave a store channel
	h.hub.RegisterHandler(MessageTypeUnsubscribeStore, func(client *Client, msg *Message) error {
		var payload StoreSubscriptionPayload
		if err := msg.ParsePayload(&payload); err != nil {
			return err
		}
		if payload.StoreID == "" {
			client.SendError("missing_store_id", "store_id is required")
			return nil
		}
		h.hub.Unsubscribe(client, payload.StoreID)
		return nil
	})

	logger.Log.Info("📨 Registered realtime store channel handlers")
}

// PublishSaveResult forwards an autosave outcome to the design's store
// channel, where the vendor's open editor tabs are subscribed. Wired as the
// autosave manager's result callback. Unchanged outcomes are not pushed.
func (h *Handler) PublishSaveResult(result *autosave.SaveResult) {
	switch result.Outcome {
	case autosave.OutcomeSaved:
		h.hub.BroadcastToStore(result.StoreID, NewMessage(MessageTypeDesignSaved, DesignSavedPayload{
			DesignID: result.DesignID,
			StoreID:  result.StoreID,
			Version:  result.Version,
			Strategy: string(result.Strategy),
			Outcome:  string(result.Outcome),
			Attempts: result.Attempts,
			SavedAt:  result.SavedAt.UnixMilli(),
		}))

	case autosave.OutcomeConflict:
		payload := DesignConflictPayload{
			DesignID:  result.DesignID,
			StoreID:   result.StoreID,
			Timestamp: time.Now().UnixMilli(),
		}
		if result.Conflict != nil {
			payload.LocalVersion = result.Conflict.LocalVersion
			payload.RemoteVersion = result.Conflict.RemoteVersion
			payload.Changes = result.Conflict.Changes
		}
		h.hub.BroadcastToStore(result.StoreID, NewMessage(MessageTypeDesignConflict, payload))

	case autosave.OutcomeFailed:
		h.hub.BroadcastToStore(result.StoreID, NewMessage(MessageTypeDesignSaveFailed, DesignSavedPayload{
			DesignID: result.DesignID,
			StoreID:  result.StoreID,
			Version:  result.Version,
			Strategy: string(result.Strategy),
			Outcome:  string(result.Outcome),
			Attempts: result.Attempts,
			SavedAt:  time.Now().UnixMilli(),
		}))
	}
}

// NotifyDesignPublished announces a published layout to store watchers
func (h *Handler) NotifyDesignPublished(payload *DesignPublishedPayload) {
	h.hub.BroadcastToStore(payload.StoreID, NewMessage(MessageTypeDesignPublished, payload))
}

// NotifyPriceChange announces a product price change to store watchers
func (h *Handler) NotifyPriceChange(payload *PriceChangePayload) {
	h.hub.BroadcastToStore(payload.StoreID, NewMessage(MessageTypePriceChanged, payload))
}

// NotifyStockChange announces a stock level change to store watchers
func (h *Handler) NotifyStockChange(payload *StockChangePayload) {
	h.hub.BroadcastToStore(payload.StoreID, NewMessage(MessageTypeStockChanged, payload))
}

// NotifyProductListed announces a new product in a store
func (h *Handler) NotifyProductListed(payload *ProductListingPayload) {
	h.hub.BroadcastToStore(payload.StoreID, NewMessage(MessageTypeProductListed, payload))
}

// NotifyProductRemoved announces a product leaving a store
func (h *Handler) NotifyProductRemoved(payload *ProductListingPayload) {
	h.hub.BroadcastToStore(payload.StoreID, NewMessage(MessageTypeProductRemoved, payload))
}

// NotifyReviewCreated announces a new review and the refreshed rollup
func (h *Handler) NotifyReviewCreated(payload *ReviewCreatedPayload) {
	h.hub.BroadcastToStore(payload.StoreID, NewMessage(MessageTypeReviewCreated, payload))
}

// NotifyStoreStatus announces a store opening or closing
func (h *Handler) NotifyStoreStatus(payload *StoreStatusPayload) {
	h.hub.BroadcastToStore(payload.StoreID, NewMessage(MessageTypeStoreStatusChanged, payload))
}

// BroadcastTicker pushes a ticker frame to every connected client
func (h *Handler) BroadcastTicker(payload *TickerUpdatePayload) {
	h.hub.Broadcast(NewMessage(MessageTypeTickerUpdate, payload))
}

// NotifyUser sends a notification to a specific user's connections
func (h *Handler) NotifyUser(userID string, payload *NotificationPayload) {
	h.hub.SendToUser(userID, NewMessage(MessageTypeNotification, payload))
}

// HandleMetrics returns realtime metrics (for monitoring)
func (h *Handler) HandleMetrics(c *gin.Context) {
	metrics := h.hub.GetMetrics()
	c.JSON(http.StatusOK, gin.H{
		"realtime":     metrics,
		"online_users": h.hub.GetOnlineUsers(),
		"timestamp":    time.Now().UTC(),
	})
}

// HandleOnlineStatus checks if specific users are online
func (h *Handler) HandleOnlineStatus(c *gin.Context) {
	var req struct {
		UserIDs []string `json:"user_ids" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	statuses := make(map[string]bool)
	for _, userID := range req.UserIDs {
		statuses[userID] = h.hub.IsUserOnline(userID)
	}

	c.JSON(http.StatusOK, gin.H{
		"statuses":  statuses,
		"timestamp": time.Now().UTC(),
	})
}

// Shutdown gracefully shuts down the realtime handler
func (h *Handler) Shutdown(ctx context.Context) error {
	return h.hub.Shutdown(ctx)
}

// GetHub returns the hub for external access
func (h *Handler) GetHub() *Hub {
	return h.hub
}
