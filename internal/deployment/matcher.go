package deployment

import (
	"strings"

	"github.com/marianocruz/pos-inventory-backend/pkg/db/models"
)

// MatchStrategy picks the stock row backing one template ingredient. A nil
// result means the store has no candidate.
type MatchStrategy interface {
	Match(ingredient models.RecipeTemplateIngredient, stocks []models.InventoryStockItem) *models.InventoryStockItem
}

// FirstMatchStrategy resolves in two deterministic passes over the store's
// stock list: exact case-insensitive name match first, then bidirectional
// substring containment. Within a pass the first stock row wins, so the same
// inputs always produce the same mapping.
type FirstMatchStrategy struct{}

func (FirstMatchStrategy) Match(ingredient models.RecipeTemplateIngredient, stocks []models.InventoryStockItem) *models.InventoryStockItem {
	name := strings.ToLower(strings.TrimSpace(ingredient.IngredientName))
	if name == "" {
		return nil
	}
	for i := range stocks {
		if strings.ToLower(strings.TrimSpace(stocks[i].Item)) == name {
			return &stocks[i]
		}
	}
	for i := range stocks {
		item := strings.ToLower(strings.TrimSpace(stocks[i].Item))
		if item == "" {
			continue
		}
		if strings.Contains(item, name) || strings.Contains(name, item) {
			return &stocks[i]
		}
	}
	return nil
}
