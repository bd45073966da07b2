package deployment

import (
	"context"
	stdErrors "errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/marianocruz/pos-inventory-backend/pkg/db/models"
)

// Repository manages recipe templates, deployed recipes, their ingredient
// mappings, and the catalog entries deployments create.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	GetTemplate(ctx context.Context, id uuid.UUID) (*models.RecipeTemplate, error)
	ListActiveTemplates(ctx context.Context) ([]models.RecipeTemplate, error)
	CreateTemplate(ctx context.Context, template *models.RecipeTemplate) error

	ListActiveStocks(ctx context.Context, storeID uuid.UUID) ([]models.InventoryStockItem, error)

	FindRecipe(ctx context.Context, templateID, storeID uuid.UUID) (*models.Recipe, error)
	CreateRecipe(ctx context.Context, recipe *models.Recipe) error
	DeleteRecipe(ctx context.Context, id uuid.UUID) error

	CreateIngredientMappings(ctx context.Context, mappings []models.RecipeIngredientMapping) error
	DeleteIngredientMappings(ctx context.Context, recipeID uuid.UUID) error
	CountCrossStoreMappings(ctx context.Context, storeID uuid.UUID) (int64, error)

	CreateCatalogEntry(ctx context.Context, entry *models.ProductCatalogEntry) error
	DeleteCatalogEntry(ctx context.Context, id uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) GetTemplate(ctx context.Context, id uuid.UUID) (*models.RecipeTemplate, error) {
	var template models.RecipeTemplate
	err := r.db.WithContext(ctx).
		Preload("Ingredients", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		First(&template, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &template, nil
}

func (r *repository) ListActiveTemplates(ctx context.Context) ([]models.RecipeTemplate, error) {
	var templates []models.RecipeTemplate
	err := r.db.WithContext(ctx).
		Preload("Ingredients", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Where("is_active = ?", true).
		Order("name ASC").
		Find(&templates).Error
	if err != nil {
		return nil, err
	}
	return templates, nil
}

func (r *repository) CreateTemplate(ctx context.Context, template *models.RecipeTemplate) error {
	return r.db.WithContext(ctx).Create(template).Error
}

func (r *repository) ListActiveStocks(ctx context.Context, storeID uuid.UUID) ([]models.InventoryStockItem, error) {
	var stocks []models.InventoryStockItem
	err := r.db.WithContext(ctx).
		Where("store_id = ? AND is_active = ?", storeID, true).
		Order("item ASC").
		Find(&stocks).Error
	if err != nil {
		return nil, err
	}
	return stocks, nil
}

// FindRecipe returns (nil, nil) when the template is not deployed to the store.
func (r *repository) FindRecipe(ctx context.Context, templateID, storeID uuid.UUID) (*models.Recipe, error) {
	var recipe models.Recipe
	err := r.db.WithContext(ctx).
		Where("template_id = ? AND store_id = ? AND is_active = ?", templateID, storeID, true).
		First(&recipe).Error
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &recipe, nil
}

func (r *repository) CreateRecipe(ctx context.Context, recipe *models.Recipe) error {
	return r.db.WithContext(ctx).Create(recipe).Error
}

func (r *repository) DeleteRecipe(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Recipe{}, "id = ?", id).Error
}

func (r *repository) CreateIngredientMappings(ctx context.Context, mappings []models.RecipeIngredientMapping) error {
	if len(mappings) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&mappings).Error
}

func (r *repository) DeleteIngredientMappings(ctx context.Context, recipeID uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.RecipeIngredientMapping{}, "recipe_id = ?", recipeID).Error
}

// CountCrossStoreMappings counts recipe ingredient mappings that point at a
// stock row in a different store than the recipe. The health monitor treats
// any non-zero count as an isolation breach.
func (r *repository) CountCrossStoreMappings(ctx context.Context, storeID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.RecipeIngredientMapping{}).
		Joins("JOIN recipes ON recipes.id = recipe_ingredient_mappings.recipe_id").
		Joins("JOIN inventory_stock_items ON inventory_stock_items.id = recipe_ingredient_mappings.inventory_stock_id").
		Where("recipes.store_id = ?", storeID).
		Where("inventory_stock_items.store_id <> recipes.store_id").
		Count(&count).Error
	return count, err
}

func (r *repository) CreateCatalogEntry(ctx context.Context, entry *models.ProductCatalogEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) DeleteCatalogEntry(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.ProductCatalogEntry{}, "id = ?", id).Error
}
