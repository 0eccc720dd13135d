package dto

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateListingRequest_Presence(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantTitle *string
		wantDesc  *string
		wantPrice string
	}{
		{name: "empty object", body: `{}`},
		{name: "title only", body: `{"title":"Bike"}`, wantTitle: strPtr("Bike")},
		{name: "description null clears", body: `{"description":null}`, wantDesc: strPtr("")},
		{name: "description empty clears", body: `{"description":""}`, wantDesc: strPtr("")},
		{name: "numeric price", body: `{"price":12.5}`, wantPrice: "12.5"},
		{name: "string price", body: `{"price":"7.25"}`, wantPrice: "7.25"},
		{name: "null price", body: `{"price":null}`, wantPrice: "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req UpdateListingRequest
			require.NoError(t, json.Unmarshal([]byte(tt.body), &req))

			assert.Equal(t, tt.wantTitle, req.Title.Ptr())
			assert.Equal(t, tt.wantDesc, req.Description.Ptr())
			if tt.wantPrice == "" {
				assert.Nil(t, req.Price.Ptr())
			} else {
				require.NotNil(t, req.Price.Ptr())
				assert.Equal(t, tt.wantPrice, req.Price.Ptr().String())
			}
		})
	}
}

func TestOptional_InvalidValue(t *testing.T) {
	var req UpdateListingRequest
	err := json.Unmarshal([]byte(`{"price":"abc"}`), &req)
	assert.Error(t, err)
}

func strPtr(s string) *string {
	return &s
}
