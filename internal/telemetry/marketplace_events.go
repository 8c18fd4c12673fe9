package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// MarketplaceEvents provides helper methods for tracing domain-specific operations
// These are higher-level events beyond HTTP/DB/Cache tracing (e.g., "shopper added to cart", "vendor published a design")
type MarketplaceEvents struct {
	tracer trace.Tracer
}

// NewMarketplaceEvents creates a new marketplace events tracer
func NewMarketplaceEvents() *MarketplaceEvents {
	return &MarketplaceEvents{
		tracer: otel.Tracer("marketplace-events"),
	}
}

// ============================================================================
// CATALOG OPERATIONS
// ============================================================================

// CatalogEventAttrs attributes for catalog browsing operations
type CatalogEventAttrs struct {
	Category     string // "clothing", "food", "accessories", ...
	Limit        int64
	Offset       int64
	ItemCount    int64
	SortOrder    string // "newest", "price_asc", "price_desc", "rating"
	FallbackUsed bool
}

// TraceBrowseCatalog creates a span for catalog listing operations
func (me *MarketplaceEvents) TraceBrowseCatalog(ctx context.Context, attrs CatalogEventAttrs) (context.Context, trace.Span) {
	ctx, span := me.tracer.Start(ctx, "catalog.browse",
		trace.WithAttributes(
			attribute.Int64("catalog.limit", attrs.Limit),
			attribute.Int64("catalog.offset", attrs.Offset),
		),
	)

	// Record optional attributes only if set
	if attrs.Category != "" {
		span.SetAttributes(attribute.String("catalog.category", attrs.Category))
	}
	if attrs.SortOrder != "" {
		span.SetAttributes(attribute.String("catalog.sort", attrs.SortOrder))
	}
	if attrs.ItemCount > 0 {
		span.SetAttributes(attribute.Int64("catalog.item_count", attrs.ItemCount))
	}
	if attrs.FallbackUsed {
		span.SetAttributes(attribute.Bool("catalog.fallback_used", true))
	}

	return ctx, span
}

// TraceProductView creates a span for product detail retrieval
func (me *MarketplaceEvents) TraceProductView(ctx context.Context, productID string, storeID string) (context.Context, trace.Span) {
	ctx, span := me.tracer.Start(ctx, "catalog.product_view",
		trace.WithAttributes(
			attribute.String("product.id", productID),
			attribute.String("store.id", storeID),
		),
	)
	return ctx, span
}

// ============================================================================
// SHOPPER INTERACTIONS
// ============================================================================

// ShopperInteractionAttrs attributes for shopper operations
type ShopperInteractionAttrs struct {
	ActionType string // "favorite", "unfavorite", "cart_add", "cart_update", "cart_remove", "review"
	ProductID  string
	Quantity   int64 // For cart operations
	Rating     int64 // For review operations
}

// TraceShopperInteraction creates a span for generic shopper interactions
func (me *MarketplaceEvents) TraceShopperInteraction(ctx context.Context, actionType string, attrs ShopperInteractionAttrs) (context.Context, trace.Span) {
	ctx, span := me.tracer.Start(ctx, "shopper."+actionType,
		trace.WithAttributes(
			attribute.String("action.type", actionType),
			attribute.String("product.id", attrs.ProductID),
		),
	)

	if attrs.Quantity > 0 {
		span.SetAttributes(attribute.Int64("cart.quantity", attrs.Quantity))
	}
	if attrs.Rating > 0 {
		span.SetAttributes(attribute.Int64("review.rating", attrs.Rating))
	}

	return ctx, span
}

// TraceReviewSubmission creates a span for review creation with rollup tracking
func (me *MarketplaceEvents) TraceReviewSubmission(ctx context.Context, productID string, rating int, hasComment bool) (context.Context, trace.Span) {
	ctx, span := me.tracer.Start(ctx, "shopper.submit_review",
		trace.WithAttributes(
			attribute.String("product.id", productID),
			attribute.Int("review.rating", rating),
			attribute.Bool("review.has_comment", hasComment),
		),
	)
	return ctx, span
}

// ============================================================================
// DESIGN STUDIO
// ============================================================================

// DesignSaveAttrs attributes for design studio save operations
type DesignSaveAttrs struct {
	Strategy     string // "immediate", "debounce", "interval", "manual"
	Attempt      int64
	BlockCount   int64
	ConflictSeen bool
}

// TraceDesignSave creates a span for design studio save attempts
func (me *MarketplaceEvents) TraceDesignSave(ctx context.Context, designID string, attrs DesignSaveAttrs) (context.Context, trace.Span) {
	ctx, span := me.tracer.Start(ctx, "design.save",
		trace.WithAttributes(
			attribute.String("design.id", designID),
			attribute.String("design.save_strategy", attrs.Strategy),
		),
	)

	if attrs.Attempt > 0 {
		span.SetAttributes(attribute.Int64("design.save_attempt", attrs.Attempt))
	}
	if attrs.BlockCount > 0 {
		span.SetAttributes(attribute.Int64("design.block_count", attrs.BlockCount))
	}
	if attrs.ConflictSeen {
		span.SetAttributes(attribute.Bool("design.conflict_seen", true))
	}

	return ctx, span
}

// TraceDesignPublish creates a span for publishing a draft design
func (me *MarketplaceEvents) TraceDesignPublish(ctx context.Context, designID string, storeID string) (context.Context, trace.Span) {
	ctx, span := me.tracer.Start(ctx, "design.publish",
		trace.WithAttributes(
			attribute.String("design.id", designID),
			attribute.String("store.id", storeID),
		),
	)
	return ctx, span
}

// ============================================================================
// SEARCH & DISCOVERY
// ============================================================================

// SearchEventAttrs attributes for search operations
type SearchEventAttrs struct {
	Query        string // Search query
	Index        string // "products", "stores"
	ResultCount  int64
	FiltersUsed  []string // ["category:clothing", "price:10-50"]
	FallbackUsed bool
}

// TraceSearch creates a span for search operations
func (me *MarketplaceEvents) TraceSearch(ctx context.Context, attrs SearchEventAttrs) (context.Context, trace.Span) {
	ctx, span := me.tracer.Start(ctx, "search.query",
		trace.WithAttributes(
			attribute.String("search.query", attrs.Query),
			attribute.String("search.index", attrs.Index),
			attribute.Int64("search.result_count", attrs.ResultCount),
		),
	)

	if len(attrs.FiltersUsed) > 0 {
		span.SetAttributes(attribute.StringSlice("search.filters", attrs.FiltersUsed))
	}
	if attrs.FallbackUsed {
		span.SetAttributes(attribute.Bool("search.fallback_used", true))
	}

	return ctx, span
}

// ============================================================================
// ACCOUNT LIFECYCLE
// ============================================================================

// WithdrawalEventAttrs attributes for account withdrawal operations
type WithdrawalEventAttrs struct {
	HadStore         bool
	CartItemsRemoved int64
	FavoritesRemoved int64
	ReviewsRemoved   int64
	ProductsRemoved  int64
}

// TraceAccountWithdrawal creates a span for the account withdrawal sequence
func (me *MarketplaceEvents) TraceAccountWithdrawal(ctx context.Context, userID string) (context.Context, trace.Span) {
	ctx, span := me.tracer.Start(ctx, "account.withdraw",
		trace.WithAttributes(
			attribute.String("user.id", userID),
		),
	)
	return ctx, span
}

// RecordWithdrawalCleanup records per-entity cleanup counts on a withdrawal span
func RecordWithdrawalCleanup(span trace.Span, attrs WithdrawalEventAttrs) {
	span.SetAttributes(
		attribute.Bool("withdrawal.had_store", attrs.HadStore),
		attribute.Int64("withdrawal.cart_items_removed", attrs.CartItemsRemoved),
		attribute.Int64("withdrawal.favorites_removed", attrs.FavoritesRemoved),
		attribute.Int64("withdrawal.reviews_removed", attrs.ReviewsRemoved),
		attribute.Int64("withdrawal.products_removed", attrs.ProductsRemoved),
	)
}

// ============================================================================
// EXTERNAL API CALLS
// ============================================================================

// TraceExternalAPI creates a span for external API calls
func (me *MarketplaceEvents) TraceExternalAPI(ctx context.Context, service string, operation string) (context.Context, trace.Span) {
	ctx, span := me.tracer.Start(ctx, "external."+service+"."+operation,
		trace.WithAttributes(
			attribute.String("external.service", service),
			attribute.String("external.operation", operation),
		),
	)
	return ctx, span
}

// RecordExternalAPIError records an error in an external API span
func RecordExternalAPIError(span trace.Span, err error, retryable bool) {
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
		span.SetAttributes(attribute.Bool("external.error.retryable", retryable))
	}
}

// ============================================================================
// HELPER: Global instance for convenient access
// ============================================================================

var globalMarketplaceEvents *MarketplaceEvents

// GetMarketplaceEvents returns the global marketplace events tracer
// Initialize with init or early startup if needed
func GetMarketplaceEvents() *MarketplaceEvents {
	if globalMarketplaceEvents == nil {
		globalMarketplaceEvents = NewMarketplaceEvents()
	}
	return globalMarketplaceEvents
}
