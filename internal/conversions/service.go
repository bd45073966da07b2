package conversions

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/marianocruz/pos-inventory-backend/pkg/db"
	"github.com/marianocruz/pos-inventory-backend/pkg/db/models"
	apperrors "github.com/marianocruz/pos-inventory-backend/pkg/errors"
)

// ResolvedMapping pairs a conversion mapping with the stock row it points at.
type ResolvedMapping struct {
	Mapping *models.ConversionMapping
	Stock   *models.InventoryStockItem
}

// CreateMappingInput carries the fields for registering a new mapping.
type CreateMappingInput struct {
	InventoryStockID     uuid.UUID `validate:"required"`
	RecipeIngredientName string    `validate:"required"`
	RecipeIngredientUnit string    `validate:"required"`
	ConversionFactor     float64   `validate:"required,gt=0"`
}

// UpdateMappingInput carries the mutable fields of an existing mapping.
type UpdateMappingInput struct {
	RecipeIngredientName *string
	RecipeIngredientUnit *string
	ConversionFactor     *float64
}

// Service resolves ingredient names to stock rows and manages mappings.
type Service interface {
	FindMapping(ctx context.Context, storeID uuid.UUID, ingredientName, ingredientUnit string) (*ResolvedMapping, error)
	CreateMapping(ctx context.Context, storeID uuid.UUID, input CreateMappingInput) (*models.ConversionMapping, error)
	UpdateMapping(ctx context.Context, storeID uuid.UUID, id uuid.UUID, input UpdateMappingInput) (*models.ConversionMapping, error)
	DeactivateMapping(ctx context.Context, id uuid.UUID) error
	ListMappings(ctx context.Context, storeID uuid.UUID) ([]models.ConversionMapping, error)
}

type service struct {
	repo Repository
}

// NewService wires the conversion mapping resolver.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("conversion mapping repository required")
	}
	return &service{repo: repo}, nil
}

// FindMapping resolves (storeID, name, unit) to the single active mapping.
// Returns (nil, nil) when no mapping exists so callers can decide whether an
// absent mapping is an error for their flow.
func (s *service) FindMapping(ctx context.Context, storeID uuid.UUID, ingredientName, ingredientUnit string) (*ResolvedMapping, error) {
	if storeID == uuid.Nil {
		return nil, apperrors.New(apperrors.CodeValidation, "store id is required")
	}
	name := strings.TrimSpace(ingredientName)
	unit := strings.TrimSpace(ingredientUnit)
	if name == "" || unit == "" {
		return nil, apperrors.New(apperrors.CodeValidation, "ingredient name and unit are required")
	}

	mapping, err := s.repo.FindActive(ctx, storeID, name, unit)
	if err != nil {
		return nil, db.TranslateError(err, "find conversion mapping")
	}
	if mapping == nil {
		return nil, nil
	}
	return &ResolvedMapping{Mapping: mapping, Stock: mapping.StockItem}, nil
}

func (s *service) CreateMapping(ctx context.Context, storeID uuid.UUID, input CreateMappingInput) (*models.ConversionMapping, error) {
	if storeID == uuid.Nil {
		return nil, apperrors.New(apperrors.CodeValidation, "store id is required")
	}
	if input.InventoryStockID == uuid.Nil {
		return nil, apperrors.New(apperrors.CodeValidation, "inventory stock id is required")
	}
	name := strings.TrimSpace(input.RecipeIngredientName)
	unit := strings.TrimSpace(input.RecipeIngredientUnit)
	if name == "" || unit == "" {
		return nil, apperrors.New(apperrors.CodeValidation, "ingredient name and unit are required")
	}
	if input.ConversionFactor <= 0 {
		return nil, apperrors.New(apperrors.CodeValidation, "conversion factor must be positive")
	}

	count, err := s.repo.CountActiveExcluding(ctx, storeID, name, unit, uuid.Nil)
	if err != nil {
		return nil, db.TranslateError(err, "check mapping uniqueness")
	}
	if count > 0 {
		return nil, apperrors.New(apperrors.CodeConflict,
			fmt.Sprintf("active mapping already exists for %s (%s)", name, unit))
	}

	mapping := &models.ConversionMapping{
		InventoryStockID:     input.InventoryStockID,
		RecipeIngredientName: name,
		RecipeIngredientUnit: unit,
		ConversionFactor:     input.ConversionFactor,
		IsActive:             true,
	}
	if err := s.repo.Create(ctx, mapping); err != nil {
		return nil, db.TranslateError(err, "create conversion mapping")
	}
	return mapping, nil
}

func (s *service) UpdateMapping(ctx context.Context, storeID uuid.UUID, id uuid.UUID, input UpdateMappingInput) (*models.ConversionMapping, error) {
	if id == uuid.Nil {
		return nil, apperrors.New(apperrors.CodeValidation, "mapping id is required")
	}

	mapping, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, db.TranslateError(err, "load conversion mapping")
	}

	if input.RecipeIngredientName != nil {
		name := strings.TrimSpace(*input.RecipeIngredientName)
		if name == "" {
			return nil, apperrors.New(apperrors.CodeValidation, "ingredient name cannot be empty")
		}
		mapping.RecipeIngredientName = name
	}
	if input.RecipeIngredientUnit != nil {
		unit := strings.TrimSpace(*input.RecipeIngredientUnit)
		if unit == "" {
			return nil, apperrors.New(apperrors.CodeValidation, "ingredient unit cannot be empty")
		}
		mapping.RecipeIngredientUnit = unit
	}
	if input.ConversionFactor != nil {
		if *input.ConversionFactor <= 0 {
			return nil, apperrors.New(apperrors.CodeValidation, "conversion factor must be positive")
		}
		mapping.ConversionFactor = *input.ConversionFactor
	}

	count, err := s.repo.CountActiveExcluding(ctx, storeID, mapping.RecipeIngredientName, mapping.RecipeIngredientUnit, mapping.ID)
	if err != nil {
		return nil, db.TranslateError(err, "check mapping uniqueness")
	}
	if count > 0 {
		return nil, apperrors.New(apperrors.CodeConflict,
			fmt.Sprintf("active mapping already exists for %s (%s)", mapping.RecipeIngredientName, mapping.RecipeIngredientUnit))
	}

	if err := s.repo.Update(ctx, mapping); err != nil {
		return nil, db.TranslateError(err, "update conversion mapping")
	}
	return mapping, nil
}

func (s *service) DeactivateMapping(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return apperrors.New(apperrors.CodeValidation, "mapping id is required")
	}
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return db.TranslateError(err, "deactivate conversion mapping")
	}
	return nil
}

func (s *service) ListMappings(ctx context.Context, storeID uuid.UUID) ([]models.ConversionMapping, error) {
	if storeID == uuid.Nil {
		return nil, apperrors.New(apperrors.CodeValidation, "store id is required")
	}
	mappings, err := s.repo.ListActiveByStore(ctx, storeID)
	if err != nil {
		return nil, db.TranslateError(err, "list conversion mappings")
	}
	return mappings, nil
}
