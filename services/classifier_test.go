package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"closetapi/models"
)

func TestParseGarmentMetadata(t *testing.T) {
	reply := "Here you go:\n" + `{
		"name": " White linen shirt ",
		"type": "Top",
		"styles": ["Casual", "casual", " minimalist", ""],
		"occasions": ["everyday"],
		"color": "white",
		"material": "linen",
		"brand": "",
		"season": "summer",
		"fit": "regular",
		"description": "A breezy button down."
	}`

	meta, err := ParseGarmentMetadata(reply)
	require.NoError(t, err)

	assert.Equal(t, "White linen shirt", meta.Name)
	assert.Equal(t, models.ClothingTop, meta.Type)
	assert.Equal(t, []string{"casual", "minimalist"}, meta.Styles)
	assert.Equal(t, []string{"everyday"}, meta.Occasions)
	assert.Equal(t, "linen", meta.Material)
	assert.Equal(t, "summer", meta.Season)
}

func TestParseGarmentMetadataMapsTypes(t *testing.T) {
	cases := map[string]models.ClothingType{
		"sneakers": models.ClothingShoes,
		"jeans":    models.ClothingBottom,
		"blazer":   models.ClothingOuterwear,
		"dress":    models.ClothingDress,
		"umbrella": models.ClothingAccessory,
		"":         models.ClothingAccessory,
	}
	for raw, want := range cases {
		meta, err := ParseGarmentMetadata(`{"type":"` + raw + `"}`)
		require.NoError(t, err)
		assert.Equal(t, want, meta.Type, raw)
	}
}

func TestParseGarmentMetadataErrors(t *testing.T) {
	_, err := ParseGarmentMetadata("no json here")
	assert.ErrorIs(t, err, ErrNoJSONObject)

	_, err = ParseGarmentMetadata(`{"name": }`)
	assert.Error(t, err)
}
