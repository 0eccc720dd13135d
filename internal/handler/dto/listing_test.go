package dto

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gophermarket/gophermarket/internal/model"
)

func TestToListingResponse_WireFormat(t *testing.T) {
	l := &model.Listing{
		ID:           7,
		Title:        "Bike",
		Price:        decimal.RequireFromString("120.5"),
		ContactEmail: "user2@umn.edu",
		OwnerID:      "user2@umn.edu",
		CreatedAt:    time.Date(2024, 9, 1, 10, 0, 0, 0, time.UTC),
	}

	data, err := json.Marshal(ToListingResponse(l))
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))

	assert.Equal(t, float64(7), got["id"])
	assert.Equal(t, 120.5, got["price"])
	assert.Contains(t, string(data), `"price":120.50`)
	assert.Equal(t, "user2@umn.edu", got["contactEmail"])
	assert.Equal(t, "user2@umn.edu", got["ownerId"])
	assert.Equal(t, "2024-09-01T10:00:00Z", got["createdAt"])
	assert.Equal(t, []any{}, got["imageUrls"])
	assert.Contains(t, got, "description")
	assert.Nil(t, got["description"])
}
