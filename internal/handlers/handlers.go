// Package handlers wires the HTTP surface of the Vendora API: storefront
// browsing, vendor store management, reviews, favorites, carts, the design
// studio, and account lifecycle. Handlers talk to GORM through the global
// database.DB and publish side effects (search indexing, realtime events,
// emails) through the collaborators held on the Handlers struct, all of
// which are optional so the server degrades instead of failing when an
// external service is not configured.
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/vendora/backend/internal/auth"
	"github.com/vendora/backend/internal/autosave"
	"github.com/vendora/backend/internal/email"
	"github.com/vendora/backend/internal/realtime"
	"github.com/vendora/backend/internal/search"
	"github.com/vendora/backend/internal/storage"
	"github.com/vendora/backend/internal/ticker"
)

// Handlers contains all HTTP handlers with their dependencies
type Handlers struct {
	authService auth.AuthServiceInterface
	search      *search.CachedClient
	uploader    *storage.S3Uploader
	snapshots   *storage.SnapshotStorage
	email       *email.EmailService
	realtime    *realtime.Handler
	autosave    *autosave.Manager
	ticker      *ticker.Service
}

// NewHandlers creates a new handlers instance. Collaborators beyond the
// auth service are attached through the Set* methods as the server boots
// them, so a partially configured deployment still serves requests.
func NewHandlers(authService auth.AuthServiceInterface) *Handlers {
	return &Handlers{
		authService: authService,
	}
}

// SetSearchClient attaches the Elasticsearch client for product/store search
func (h *Handlers) SetSearchClient(client *search.CachedClient) {
	h.search = client
}

// SetUploader attaches the S3 uploader for product images and store logos
func (h *Handlers) SetUploader(uploader *storage.S3Uploader) {
	h.uploader = uploader
}

// SetSnapshotStorage attaches the legacy S3 client used for design preview PNGs
func (h *Handlers) SetSnapshotStorage(snapshots *storage.SnapshotStorage) {
	h.snapshots = snapshots
}

// SetEmailService attaches the SES email service
func (h *Handlers) SetEmailService(service *email.EmailService) {
	h.email = service
}

// SetRealtimeHandler attaches the WebSocket hub for storefront change events
func (h *Handlers) SetRealtimeHandler(handler *realtime.Handler) {
	h.realtime = handler
}

// SetAutosaveManager attaches the design studio autosave manager
func (h *Handlers) SetAutosaveManager(manager *autosave.Manager) {
	h.autosave = manager
}

// SetTickerService attaches the price ticker snapshot service
func (h *Handlers) SetTickerService(service *ticker.Service) {
	h.ticker = service
}

// AuthMiddleware validates the Bearer token and stores the authenticated
// user on the request context. Downstream code reads it through
// util.GetUserFromContext / util.GetUserIDFromContext.
func (h *Handlers) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractBearerToken(c)
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing_token", "message": "Authorization header required"})
			c.Abort()
			return
		}

		user, err := h.authService.ValidateToken(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_token", "message": "Invalid or expired token"})
			c.Abort()
			return
		}

		c.Set("user", user)
		c.Set("user_id", user.ID)
		c.Next()
	}
}

// OptionalAuthMiddleware resolves the user when a valid token is present
// but lets anonymous requests through. Public storefront endpoints use it
// to show owner-only fields (draft designs, own unavailable products).
func (h *Handlers) OptionalAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractBearerToken(c)
		if token != "" {
			if user, err := h.authService.ValidateToken(token); err == nil {
				c.Set("user", user)
				c.Set("user_id", user.ID)
			}
		}
		c.Next()
	}
}

func extractBearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
