package stylist

import (
	"github.com/samber/lo"

	"closetapi/models"
)

// PreviewOutfit keeps the closet's order, not the proposal's. Ids missing from
// the closet are dropped.
func PreviewOutfit(outfit []uint, closet []models.ClosetItem) []models.ClosetItem {
	if len(outfit) == 0 {
		return []models.ClosetItem{}
	}
	return lo.Filter(closet, func(item models.ClosetItem, _ int) bool {
		return lo.Contains(outfit, item.ID)
	})
}

type Violation string

const (
	ViolationUnknownItem        Violation = "unknown_item"
	ViolationShoes              Violation = "shoes"
	ViolationDressWithSeparates Violation = "dress_with_separates"
	ViolationTop                Violation = "top"
	ViolationBottom             Violation = "bottom"
)

// CheckOutfit reports how an outfit breaks the rules given to the model.
// It returns nil for a valid outfit.
func CheckOutfit(outfit []uint, closet []models.ClosetItem) []Violation {
	byID := lo.KeyBy(closet, func(item models.ClosetItem) uint { return item.ID })

	counts := map[models.ClothingType]int{}
	unknown := false
	for _, id := range outfit {
		item, ok := byID[id]
		if !ok {
			unknown = true
			continue
		}
		counts[item.Type]++
	}

	var violations []Violation
	if unknown {
		violations = append(violations, ViolationUnknownItem)
	}
	if counts[models.ClothingShoes] != 1 {
		violations = append(violations, ViolationShoes)
	}
	if counts[models.ClothingDress] > 0 {
		if counts[models.ClothingTop] > 0 || counts[models.ClothingBottom] > 0 {
			violations = append(violations, ViolationDressWithSeparates)
		}
		return violations
	}
	if counts[models.ClothingTop] != 1 {
		violations = append(violations, ViolationTop)
	}
	if counts[models.ClothingBottom] != 1 {
		violations = append(violations, ViolationBottom)
	}
	return violations
}
