package model

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestListing_Clone(t *testing.T) {
	desc := "good condition"
	orig := &Listing{
		ID:          1,
		Title:       "Bike",
		Description: &desc,
		Price:       decimal.RequireFromString("120.50"),
		ImageURLs:   []string{"u1", "u2"},
	}

	c := orig.Clone()
	c.ImageURLs[0] = "changed"
	*c.Description = "changed"

	if orig.ImageURLs[0] != "u1" {
		t.Errorf("clone shares image slice with original")
	}
	if *orig.Description != "good condition" {
		t.Errorf("clone shares description with original")
	}
	if !c.HasImage("u2") || c.HasImage("u1") {
		t.Errorf("unexpected images on clone: %v", c.ImageURLs)
	}
}
