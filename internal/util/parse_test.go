package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseInt(t *testing.T) {
	testCases := []struct {
		input        string
		defaultValue int
		expected     int
	}{
		{"123", 0, 123},
		{"", 100, 100},
		{"invalid", 50, 50},
		{"-10", 0, -10},
		{"0", 100, 0},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			assert.Equal(t, tc.expected, ParseInt(tc.input, tc.defaultValue))
		})
	}
}

func TestParseInt64(t *testing.T) {
	testCases := []struct {
		input        string
		defaultValue int64
		expected     int64
	}{
		{"9000000000", 0, 9000000000},
		{"", 7, 7},
		{"not-a-number", 3, 3},
		{"0", 5, 0},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			assert.Equal(t, tc.expected, ParseInt64(tc.input, tc.defaultValue))
		})
	}
}

func TestParsePagination(t *testing.T) {
	testCases := []struct {
		name           string
		limitStr       string
		offsetStr      string
		expectedLimit  int
		expectedOffset int
	}{
		{"defaults", "", "", 20, 0},
		{"explicit values", "50", "10", 50, 10},
		{"limit capped", "500", "", 100, 0},
		{"zero limit falls back", "0", "", 20, 0},
		{"negative values floored", "-5", "-3", 20, 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			limit, offset := ParsePagination(tc.limitStr, tc.offsetStr, 20, 100)
			assert.Equal(t, tc.expectedLimit, limit)
			assert.Equal(t, tc.expectedOffset, offset)
		})
	}
}

func TestParseTagList(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected []string
	}{
		{"empty", "", []string{}},
		{"single", "walnut", []string{"walnut"}},
		{"trims and lowercases", "Walnut, HANDMADE ,  oak", []string{"walnut", "handmade", "oak"}},
		{"blank entries dropped", ",,walnut,", []string{"walnut"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, ParseTagList(tc.input))
		})
	}
}
