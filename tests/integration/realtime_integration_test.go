package integration

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vendora/backend/internal/designs"
	rt "github.com/vendora/backend/internal/realtime"
)

// TestHubCreation tests basic hub construction
func TestHubCreation(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	hub := rt.NewHub()
	assert.NotNil(t, hub)
	assert.Equal(t, int64(0), hub.GetMetrics().ActiveConnections)
	assert.Equal(t, int64(0), hub.GetMetrics().StoreSubscriptions)
}

// TestDesignSavedBroadcast tests that save results round-trip to editor tabs
func TestDesignSavedBroadcast(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	saved := &rt.DesignSavedPayload{
		DesignID: "design-123",
		StoreID:  "store-456",
		Version:  7,
		Strategy: "debounced",
		Outcome:  "saved",
		Attempts: 1,
		SavedAt:  time.Now().UnixMilli(),
	}

	msg := rt.NewMessage(rt.MessageTypeDesignSaved, saved)
	data, err := json.Marshal(msg)
	require.NoError(t, err)

	var parsed rt.Message
	err = json.Unmarshal(data, &parsed)
	require.NoError(t, err)
	assert.Equal(t, rt.MessageTypeDesignSaved, parsed.Type)

	var savedPayload rt.DesignSavedPayload
	err = parsed.ParsePayload(&savedPayload)
	require.NoError(t, err)
	assert.Equal(t, "design-123", savedPayload.DesignID)
	assert.Equal(t, int64(7), savedPayload.Version)
	assert.Equal(t, "debounced", savedPayload.Strategy)
	assert.Equal(t, 1, savedPayload.Attempts)
}

// TestDesignConflictNotification tests conflict events with field-level changes
func TestDesignConflictNotification(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	conflict := &rt.DesignConflictPayload{
		DesignID:      "design-123",
		StoreID:       "store-456",
		LocalVersion:  4,
		RemoteVersion: 6,
		Changes: []designs.BlockChange{
			{BlockID: "block-1", Type: designs.ChangeModified, Fields: []string{"config.markdown"}},
			{BlockID: "block-2", Type: designs.ChangeRemoteOnly},
		},
		Timestamp: time.Now().UnixMilli(),
	}

	msg := rt.NewMessage(rt.MessageTypeDesignConflict, conflict)
	data, err := json.Marshal(msg)
	require.NoError(t, err)

	// Deserialize and verify
	var parsed rt.Message
	err = json.Unmarshal(data, &parsed)
	require.NoError(t, err)
	assert.Equal(t, rt.MessageTypeDesignConflict, parsed.Type)

	var conflictPayload rt.DesignConflictPayload
	err = parsed.ParsePayload(&conflictPayload)
	require.NoError(t, err)
	assert.Equal(t, int64(4), conflictPayload.LocalVersion)
	assert.Equal(t, int64(6), conflictPayload.RemoteVersion)
	require.Len(t, conflictPayload.Changes, 2)
	assert.Equal(t, designs.ChangeModified, conflictPayload.Changes[0].Type)
	assert.Equal(t, []string{"config.markdown"}, conflictPayload.Changes[0].Fields)
}

// TestPriceChangeNotification tests price change event handling
func TestPriceChangeNotification(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	change := &rt.PriceChangePayload{
		ProductID:     "product-123",
		StoreID:       "store-456",
		OldPriceCents: 2500,
		NewPriceCents: 1999,
		Currency:      "usd",
		Timestamp:     time.Now().UnixMilli(),
	}

	msg := rt.NewMessage(rt.MessageTypePriceChanged, change)
	data, err := json.Marshal(msg)
	require.NoError(t, err)

	var parsed rt.Message
	err = json.Unmarshal(data, &parsed)
	require.NoError(t, err)

	var pricePayload rt.PriceChangePayload
	err = parsed.ParsePayload(&pricePayload)
	require.NoError(t, err)
	assert.Equal(t, "product-123", pricePayload.ProductID)
	assert.Equal(t, int64(2500), pricePayload.OldPriceCents)
	assert.Equal(t, int64(1999), pricePayload.NewPriceCents)
}

// TestStockChangeNotification tests stock events flipping availability
func TestStockChangeNotification(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	stock := &rt.StockChangePayload{
		ProductID: "product-123",
		StoreID:   "store-456",
		OldStock:  1,
		NewStock:  0,
		Available: false,
		Timestamp: time.Now().UnixMilli(),
	}

	msg := rt.NewMessage(rt.MessageTypeStockChanged, stock)
	data, err := json.Marshal(msg)
	require.NoError(t, err)

	var parsed rt.Message
	err = json.Unmarshal(data, &parsed)
	require.NoError(t, err)

	var stockPayload rt.StockChangePayload
	err = parsed.ParsePayload(&stockPayload)
	require.NoError(t, err)
	assert.Equal(t, 0, stockPayload.NewStock)
	assert.False(t, stockPayload.Available)
}

// TestStoreStatusBroadcast tests open/closed announcements
func TestStoreStatusBroadcast(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	status := &rt.StoreStatusPayload{
		StoreID:   "store-123",
		IsOpen:    true,
		Timestamp: time.Now().UnixMilli(),
	}

	msg := rt.NewMessage(rt.MessageTypeStoreStatusChanged, status)
	data, err := json.Marshal(msg)
	require.NoError(t, err)

	var parsed rt.Message
	err = json.Unmarshal(data, &parsed)
	require.NoError(t, err)

	var statusPayload rt.StoreStatusPayload
	err = parsed.ParsePayload(&statusPayload)
	require.NoError(t, err)
	assert.Equal(t, "store-123", statusPayload.StoreID)
	assert.True(t, statusPayload.IsOpen)
}

// TestReviewCreatedNotification tests review events carrying fresh rollups
func TestReviewCreatedNotification(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	review := &rt.ReviewCreatedPayload{
		ReviewID:    "review-123",
		ProductID:   "product-456",
		StoreID:     "store-789",
		Rating:      5,
		RatingAvg:   4.67,
		RatingCount: 12,
		Timestamp:   time.Now().UnixMilli(),
	}

	msg := rt.NewMessage(rt.MessageTypeReviewCreated, review)
	data, err := json.Marshal(msg)
	require.NoError(t, err)

	var parsed rt.Message
	err = json.Unmarshal(data, &parsed)
	require.NoError(t, err)

	var reviewPayload rt.ReviewCreatedPayload
	err = parsed.ParsePayload(&reviewPayload)
	require.NoError(t, err)
	assert.Equal(t, 5, reviewPayload.Rating)
	assert.Equal(t, 4.67, reviewPayload.RatingAvg)
	assert.Equal(t, 12, reviewPayload.RatingCount)
}

// TestTickerBroadcast tests full ticker frame serialization
func TestTickerBroadcast(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ticker := &rt.TickerUpdatePayload{
		Entries: []rt.TickerEntryPayload{
			{
				ProductID:     "product-1",
				Name:          "Walnut Desk Organizer",
				StoreID:       "store-1",
				StoreName:     "Oak & Iron Workshop",
				PriceCents:    4500,
				Currency:      "usd",
				ChangeCents:   -500,
				ChangePct:     -10.0,
				FavoriteCount: 31,
			},
			{
				ProductID:  "product-2",
				Name:       "Linen Throw",
				StoreID:    "store-2",
				PriceCents: 6200,
				Currency:   "usd",
			},
		},
		RefreshedAt: time.Now().UnixMilli(),
	}

	msg := rt.NewMessage(rt.MessageTypeTickerUpdate, ticker)
	data, err := json.Marshal(msg)
	require.NoError(t, err)

	var parsed rt.Message
	err = json.Unmarshal(data, &parsed)
	require.NoError(t, err)

	var tickerPayload rt.TickerUpdatePayload
	err = parsed.ParsePayload(&tickerPayload)
	require.NoError(t, err)
	require.Len(t, tickerPayload.Entries, 2)
	assert.Equal(t, "Walnut Desk Organizer", tickerPayload.Entries[0].Name)
	assert.Equal(t, int64(-500), tickerPayload.Entries[0].ChangeCents)
	assert.Equal(t, 31, tickerPayload.Entries[0].FavoriteCount)
}

// TestStoreSubscriptionAck tests channel join acknowledgments
func TestStoreSubscriptionAck(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	sub := &rt.StoreSubscriptionPayload{
		StoreID:     "store-123",
		Status:      "subscribed",
		Subscribers: 3,
	}

	msg := rt.NewMessage(rt.MessageTypeStoreSubscribed, sub)
	data, err := json.Marshal(msg)
	require.NoError(t, err)

	var parsed rt.Message
	err = json.Unmarshal(data, &parsed)
	require.NoError(t, err)

	var subPayload rt.StoreSubscriptionPayload
	err = parsed.ParsePayload(&subPayload)
	require.NoError(t, err)
	assert.Equal(t, "store-123", subPayload.StoreID)
	assert.Equal(t, "subscribed", subPayload.Status)
	assert.Equal(t, 3, subPayload.Subscribers)
}

// TestMessageMarshaling tests message marshaling/unmarshaling with various payloads
func TestMessageMarshaling(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	tests := []struct {
		name    string
		msgType string
		payload interface{}
	}{
		{
			name:    "Design Saved",
			msgType: rt.MessageTypeDesignSaved,
			payload: &rt.DesignSavedPayload{
				DesignID: "design-1",
				Outcome:  "saved",
			},
		},
		{
			name:    "Design Published",
			msgType: rt.MessageTypeDesignPublished,
			payload: &rt.DesignPublishedPayload{
				DesignID: "design-1",
				Version:  3,
			},
		},
		{
			name:    "Price Change",
			msgType: rt.MessageTypePriceChanged,
			payload: &rt.PriceChangePayload{
				ProductID:     "product-123",
				NewPriceCents: 999,
			},
		},
		{
			name:    "Product Listed",
			msgType: rt.MessageTypeProductListed,
			payload: &rt.ProductListingPayload{
				ProductID: "product-123",
				StoreID:   "store-456",
			},
		},
		{
			name:    "Store Status",
			msgType: rt.MessageTypeStoreStatusChanged,
			payload: &rt.StoreStatusPayload{
				StoreID: "store-123",
				IsOpen:  false,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := rt.NewMessage(tt.msgType, tt.payload)
			assert.Equal(t, tt.msgType, msg.Type)
			assert.NotNil(t, msg.Payload)
			assert.False(t, msg.Timestamp.IsZero())

			// Test marshaling
			data, err := json.Marshal(msg)
			require.NoError(t, err)
			assert.NotEmpty(t, data)

			// Test unmarshaling
			var parsed rt.Message
			err = json.Unmarshal(data, &parsed)
			require.NoError(t, err)
			assert.Equal(t, tt.msgType, parsed.Type)
		})
	}
}

// TestRealtimeErrorHandling tests error message handling
func TestRealtimeErrorHandling(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	errorMsg := rt.NewErrorMessage("store_not_found", "No such store")
	assert.Equal(t, rt.MessageTypeError, errorMsg.Type)

	// Serialize and deserialize
	data, err := json.Marshal(errorMsg)
	require.NoError(t, err)

	var parsed rt.Message
	err = json.Unmarshal(data, &parsed)
	require.NoError(t, err)

	var errorPayload rt.ErrorPayload
	err = parsed.ParsePayload(&errorPayload)
	require.NoError(t, err)
	assert.Equal(t, "store_not_found", errorPayload.Code)
	assert.Equal(t, "No such store", errorPayload.Message)
}

// TestPingPong tests ping/pong functionality
func TestPingPong(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ping := rt.NewMessageWithID(rt.MessageTypePing, "ping-1", rt.PingPayload{
		ClientTime: time.Now().UnixMilli(),
	})
	assert.Equal(t, rt.MessageTypePing, ping.Type)

	// Serialize and deserialize
	data, err := json.Marshal(ping)
	require.NoError(t, err)

	var parsed rt.Message
	err = json.Unmarshal(data, &parsed)
	require.NoError(t, err)
	assert.Equal(t, "ping-1", parsed.ID)

	// Create pong reply carrying the original message ID
	pong := rt.NewReply(&parsed, rt.MessageTypePong, rt.PongPayload{
		ClientTime: time.Now().UnixMilli(),
		ServerTime: time.Now().UnixMilli(),
		Latency:    100,
	})

	assert.Equal(t, rt.MessageTypePong, pong.Type)
	assert.Equal(t, "ping-1", pong.ReplyTo)
}

// TestFlexibleTimestampFormats tests that timestamps parse from both wire forms
func TestFlexibleTimestampFormats(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	// Unix milliseconds, the browser client's form
	var fromMillis rt.Message
	err := json.Unmarshal([]byte(`{"type":"ping","timestamp":1721900000000}`), &fromMillis)
	require.NoError(t, err)
	assert.Equal(t, int64(1721900000000), fromMillis.Timestamp.UnixMilli())

	// RFC3339, the server's form
	var fromString rt.Message
	err = json.Unmarshal([]byte(`{"type":"ping","timestamp":"2025-07-25T09:33:20Z"}`), &fromString)
	require.NoError(t, err)
	assert.Equal(t, 2025, fromString.Timestamp.Year())
}

// BenchmarkMessageMarshal benchmarks message marshaling
func BenchmarkMessageMarshal(b *testing.B) {
	ticker := &rt.TickerUpdatePayload{
		Entries: []rt.TickerEntryPayload{
			{
				ProductID:     "product-1",
				Name:          "Walnut Desk Organizer",
				StoreID:       "store-1",
				StoreName:     "Oak & Iron Workshop",
				PriceCents:    4500,
				Currency:      "usd",
				ChangeCents:   -500,
				ChangePct:     -10.0,
				FavoriteCount: 31,
			},
		},
		RefreshedAt: time.Now().UnixMilli(),
	}

	msg := rt.NewMessage(rt.MessageTypeTickerUpdate, ticker)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = json.Marshal(msg)
	}
}

// BenchmarkMessageUnmarshal benchmarks message unmarshaling
func BenchmarkMessageUnmarshal(b *testing.B) {
	ticker := &rt.TickerUpdatePayload{
		Entries: []rt.TickerEntryPayload{
			{
				ProductID:     "product-1",
				Name:          "Walnut Desk Organizer",
				StoreID:       "store-1",
				StoreName:     "Oak & Iron Workshop",
				PriceCents:    4500,
				Currency:      "usd",
				ChangeCents:   -500,
				ChangePct:     -10.0,
				FavoriteCount: 31,
			},
		},
		RefreshedAt: time.Now().UnixMilli(),
	}

	msg := rt.NewMessage(rt.MessageTypeTickerUpdate, ticker)
	data, _ := json.Marshal(msg)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		var parsed rt.Message
		_ = json.Unmarshal(data, &parsed)
	}
}
