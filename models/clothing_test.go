package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseClothingType(t *testing.T) {
	got, ok := ParseClothingType("  Shoes ")
	assert.True(t, ok)
	assert.Equal(t, ClothingShoes, got)

	_, ok = ParseClothingType("hat")
	assert.False(t, ok)
}

func TestClosetItemPrefersProcessedImage(t *testing.T) {
	original := "clothes/1.jpg"
	processed := "clothes/processed/1.png"
	desc := "linen shirt"
	c := Clothing{
		JsonModel:    JsonModel{ID: 1},
		Name:         "Shirt",
		ClothingType: ClothingTop,
		Styles:       []string{"casual"},
		Description:  &desc,
		ImageURL:     &original,
	}
	assert.Equal(t, original, c.ClosetItem().ImageKey)

	c.ProcessedImageURL = &processed
	item := c.ClosetItem()
	assert.Equal(t, processed, item.ImageKey)
	assert.Equal(t, "linen shirt", item.Description)
	assert.Equal(t, []string{"casual"}, item.Styles)
}

func TestValidatePlatformRaw(t *testing.T) {
	assert.True(t, ValidatePlatformRaw("ios"))
	assert.True(t, ValidatePlatformRaw("web"))
	assert.False(t, ValidatePlatformRaw("iosx"))
	assert.False(t, ValidatePlatformRaw("windows"))
}
