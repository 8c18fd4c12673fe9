package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

// =============================================================================
// HELPER FUNCTION TESTS
// =============================================================================

func TestRoundRating(t *testing.T) {
	testCases := []struct {
		name     string
		input    float64
		expected float64
	}{
		{"repeating thirds", 4.666666, 4.67},
		{"exact half", 2.5, 2.5},
		{"zero", 0, 0},
		{"long tail truncates", 3.14159, 3.14},
		{"rounds up", 1.999, 2.0},
		{"whole number", 5, 5},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, roundRating(tc.input))
		})
	}
}

func TestClampQuantity(t *testing.T) {
	testCases := []struct {
		name     string
		quantity int
		stock    int
		expected int
	}{
		{"under stock", 2, 10, 2},
		{"exactly stock", 3, 3, 3},
		{"over stock", 5, 3, 3},
		{"one left", 4, 1, 1},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, clampQuantity(tc.quantity, tc.stock))
		})
	}
}

func TestHashEmail(t *testing.T) {
	hash := hashEmail("shopper@example.com")
	assert.Len(t, hash, 64)

	// Case variants hash identically so re-registrations can be matched
	assert.Equal(t, hash, hashEmail("Shopper@Example.COM"))
	assert.NotEqual(t, hash, hashEmail("other@example.com"))
}

func TestExtractBearerToken(t *testing.T) {
	gin.SetMode(gin.TestMode)

	testCases := []struct {
		name     string
		header   string
		expected string
	}{
		{"standard bearer", "Bearer tok_123", "tok_123"},
		{"lowercase scheme", "bearer tok_123", "tok_123"},
		{"missing header", "", ""},
		{"wrong scheme", "Basic dXNlcjpwYXNz", ""},
		{"scheme only", "Bearer", ""},
		{"padded token", "Bearer   tok_123", "tok_123"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request, _ = http.NewRequest("GET", "/", nil)
			if tc.header != "" {
				c.Request.Header.Set("Authorization", tc.header)
			}
			assert.Equal(t, tc.expected, extractBearerToken(c))
		})
	}
}
