package stylist

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"closetapi/models"
)

func sampleCloset() []models.ClosetItem {
	return []models.ClosetItem{
		{ID: 1, Name: "White tee", Type: models.ClothingTop},
		{ID: 2, Name: "Black jeans", Type: models.ClothingBottom},
		{ID: 3, Name: "White sneakers", Type: models.ClothingShoes},
		{ID: 4, Name: "Slip dress", Type: models.ClothingDress},
		{ID: 5, Name: "Gold hoops", Type: models.ClothingAccessory},
		{ID: 6, Name: "Loafers", Type: models.ClothingShoes},
		{ID: 7, Name: "Oxford shirt", Type: models.ClothingTop},
	}
}

func ids(items []models.ClosetItem) []uint {
	out := make([]uint, 0, len(items))
	for _, item := range items {
		out = append(out, item.ID)
	}
	return out
}

func TestPreviewOutfitKeepsClosetOrder(t *testing.T) {
	closet := []models.ClosetItem{{ID: 1}, {ID: 2}, {ID: 3}}
	assert.Equal(t, []uint{1, 3}, ids(PreviewOutfit([]uint{3, 1}, closet)))
}

func TestPreviewOutfitEmpty(t *testing.T) {
	preview := PreviewOutfit(nil, sampleCloset())
	assert.NotNil(t, preview)
	assert.Empty(t, preview)
}

func TestPreviewOutfitDropsStaleIDs(t *testing.T) {
	assert.Equal(t, []uint{2}, ids(PreviewOutfit([]uint{99, 2}, sampleCloset())))
}

func TestCheckOutfit(t *testing.T) {
	cases := []struct {
		name   string
		outfit []uint
		want   []Violation
	}{
		{"separates", []uint{1, 2, 3}, nil},
		{"separates with accessory", []uint{1, 2, 3, 5}, nil},
		{"dress", []uint{4, 6, 5}, nil},
		{"no shoes", []uint{1, 2}, []Violation{ViolationShoes}},
		{"two pairs of shoes", []uint{1, 2, 3, 6}, []Violation{ViolationShoes}},
		{"dress with top", []uint{4, 1, 3}, []Violation{ViolationDressWithSeparates}},
		{"two tops", []uint{1, 7, 2, 3}, []Violation{ViolationTop}},
		{"missing bottom", []uint{1, 3}, []Violation{ViolationBottom}},
		{"unknown id", []uint{1, 2, 3, 42}, []Violation{ViolationUnknownItem}},
		{"empty", nil, []Violation{ViolationShoes, ViolationTop, ViolationBottom}},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, CheckOutfit(c.outfit, sampleCloset()))
		})
	}
}
