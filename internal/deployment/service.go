package deployment

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/marianocruz/pos-inventory-backend/internal/conversions"
	"github.com/marianocruz/pos-inventory-backend/pkg/db"
	"github.com/marianocruz/pos-inventory-backend/pkg/db/models"
	"github.com/marianocruz/pos-inventory-backend/pkg/enums"
	apperrors "github.com/marianocruz/pos-inventory-backend/pkg/errors"
	"github.com/marianocruz/pos-inventory-backend/pkg/logger"
)

// mappingEnsurer is the slice of the conversions service deployments use to
// guarantee every deployed ingredient is deductible at sale time.
type mappingEnsurer interface {
	FindMapping(ctx context.Context, storeID uuid.UUID, ingredientName, ingredientUnit string) (*conversions.ResolvedMapping, error)
	CreateMapping(ctx context.Context, storeID uuid.UUID, input conversions.CreateMappingInput) (*models.ConversionMapping, error)
	DeactivateMapping(ctx context.Context, id uuid.UUID) error
}

// IngredientMatch reports how one template ingredient resolved against a
// store's stock.
type IngredientMatch struct {
	IngredientName string                   `json:"ingredient_name"`
	Unit           string                   `json:"unit"`
	Quantity       float64                  `json:"quantity"`
	StockID        uuid.UUID                `json:"stock_id,omitempty"`
	StockItem      string                   `json:"stock_item,omitempty"`
	Availability   enums.AvailabilityStatus `json:"availability,omitempty"`
	Missing        bool                     `json:"missing,omitempty"`
}

// ValidationReport is the dry-run outcome of a deployment.
type ValidationReport struct {
	TemplateID uuid.UUID         `json:"template_id"`
	StoreID    uuid.UUID         `json:"store_id"`
	Deployable bool              `json:"deployable"`
	Matches    []IngredientMatch `json:"matches"`
	Warnings   []string          `json:"warnings,omitempty"`
}

// DeployInput identifies what to deploy where.
type DeployInput struct {
	TemplateID uuid.UUID `json:"template_id" validate:"required"`
	StoreID    uuid.UUID `json:"store_id" validate:"required"`
}

// DeployResult is what a successful deployment created.
type DeployResult struct {
	RecipeID       uuid.UUID         `json:"recipe_id"`
	CatalogEntryID uuid.UUID         `json:"catalog_entry_id"`
	TotalCost      decimal.Decimal   `json:"total_cost"`
	SuggestedPrice decimal.Decimal   `json:"suggested_price"`
	Matches        []IngredientMatch `json:"matches"`
}

// Service validates and executes recipe deployments to stores.
type Service interface {
	Validate(ctx context.Context, templateID, storeID uuid.UUID) (ValidationReport, error)
	Deploy(ctx context.Context, input DeployInput) (DeployResult, error)
}

type service struct {
	repo        Repository
	mappings    mappingEnsurer
	strategy    MatchStrategy
	logg        *logger.Logger
	priceMarkup decimal.Decimal
	threshold   int
}

// NewService wires the deployment mapper. priceMarkup multiplies the recipe's
// total ingredient cost into the suggested retail price.
func NewService(repo Repository, mappings mappingEnsurer, strategy MatchStrategy, logg *logger.Logger, priceMarkup float64, defaultThreshold int) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("deployment repository required")
	}
	if mappings == nil {
		return nil, fmt.Errorf("conversion mapping service required")
	}
	if strategy == nil {
		strategy = FirstMatchStrategy{}
	}
	if priceMarkup <= 0 {
		priceMarkup = 1.5
	}
	return &service{
		repo:        repo,
		mappings:    mappings,
		strategy:    strategy,
		logg:        logg,
		priceMarkup: decimal.NewFromFloat(priceMarkup),
		threshold:   defaultThreshold,
	}, nil
}

// Validate dry-runs the match: deployable only when every ingredient resolves
// to a stock row that is not out of stock. Low stock deploys with a warning.
func (s *service) Validate(ctx context.Context, templateID, storeID uuid.UUID) (ValidationReport, error) {
	report := ValidationReport{TemplateID: templateID, StoreID: storeID}
	if templateID == uuid.Nil || storeID == uuid.Nil {
		return report, apperrors.New(apperrors.CodeValidation, "template id and store id are required")
	}

	template, err := s.repo.GetTemplate(ctx, templateID)
	if err != nil {
		return report, db.TranslateError(err, "load recipe template")
	}
	stocks, err := s.repo.ListActiveStocks(ctx, storeID)
	if err != nil {
		return report, db.TranslateError(err, "list store stocks")
	}

	report.Deployable = len(template.Ingredients) > 0
	for _, ingredient := range template.Ingredients {
		match := IngredientMatch{
			IngredientName: ingredient.IngredientName,
			Unit:           ingredient.Unit,
			Quantity:       ingredient.Quantity,
		}
		stock := s.strategy.Match(ingredient, stocks)
		if stock == nil {
			match.Missing = true
			report.Deployable = false
			report.Warnings = append(report.Warnings,
				fmt.Sprintf("no stock item matches ingredient %q", ingredient.IngredientName))
		} else {
			match.StockID = stock.ID
			match.StockItem = stock.Item
			threshold := stock.MinimumThreshold
			if threshold == 0 {
				threshold = s.threshold
			}
			match.Availability = enums.ForStock(stock.TotalStock(), threshold)
			switch match.Availability {
			case enums.AvailabilityStatusOutOfStock:
				report.Deployable = false
				report.Warnings = append(report.Warnings,
					fmt.Sprintf("ingredient %q is out of stock", ingredient.IngredientName))
			case enums.AvailabilityStatusLowStock:
				report.Warnings = append(report.Warnings,
					fmt.Sprintf("ingredient %q is low on stock", ingredient.IngredientName))
			}
		}
		report.Matches = append(report.Matches, match)
	}
	return report, nil
}

// Deploy materializes a template for a store: recipe row, ingredient
// mappings, conversion mappings for sale-time deduction, and a priced catalog
// entry. All-or-nothing: any step failing unwinds the previous ones.
func (s *service) Deploy(ctx context.Context, input DeployInput) (DeployResult, error) {
	var result DeployResult
	if input.TemplateID == uuid.Nil || input.StoreID == uuid.Nil {
		return result, apperrors.New(apperrors.CodeValidation, "template id and store id are required")
	}
	if s.logg != nil {
		ctx = s.logg.WithStoreID(s.logg.WithField(ctx, "template_id", input.TemplateID.String()), input.StoreID.String())
	}

	existing, err := s.repo.FindRecipe(ctx, input.TemplateID, input.StoreID)
	if err != nil {
		return result, db.TranslateError(err, "check existing deployment")
	}
	if existing != nil {
		return result, apperrors.New(apperrors.CodeConflict,
			fmt.Sprintf("template already deployed to store as recipe %s", existing.ID))
	}

	report, err := s.Validate(ctx, input.TemplateID, input.StoreID)
	if err != nil {
		return result, err
	}
	if !report.Deployable {
		return result, apperrors.New(apperrors.CodeMappingNotFound, "template cannot deploy to this store").
			WithDetails(report)
	}
	result.Matches = report.Matches

	template, err := s.repo.GetTemplate(ctx, input.TemplateID)
	if err != nil {
		return result, db.TranslateError(err, "load recipe template")
	}

	totalCost := decimal.Zero
	for _, ingredient := range template.Ingredients {
		totalCost = totalCost.Add(ingredient.CostPerUnit.Mul(decimal.NewFromFloat(ingredient.Quantity)))
	}
	totalCost = totalCost.Round(4)
	suggestedPrice := totalCost.Mul(s.priceMarkup).Round(2)

	recipe := &models.Recipe{
		TemplateID: input.TemplateID,
		StoreID:    input.StoreID,
		Name:       template.Name,
		TotalCost:  totalCost,
		IsActive:   true,
	}
	entry := &models.ProductCatalogEntry{
		StoreID:        input.StoreID,
		ProductName:    template.Name,
		Description:    template.Description,
		SuggestedPrice: suggestedPrice,
		IsAvailable:    true,
	}
	var createdConversionIDs []uuid.UUID

	steps := []sagaStep{
		{
			name: "create recipe",
			apply: func(ctx context.Context) error {
				return db.TranslateError(s.repo.CreateRecipe(ctx, recipe), "create recipe")
			},
			compensate: func(ctx context.Context) error {
				return s.repo.DeleteRecipe(ctx, recipe.ID)
			},
		},
		{
			name: "create ingredient mappings",
			apply: func(ctx context.Context) error {
				mappings := make([]models.RecipeIngredientMapping, 0, len(template.Ingredients))
				for i, ingredient := range template.Ingredients {
					mappings = append(mappings, models.RecipeIngredientMapping{
						RecipeID:         recipe.ID,
						InventoryStockID: report.Matches[i].StockID,
						IngredientName:   ingredient.IngredientName,
						Unit:             ingredient.Unit,
						Quantity:         ingredient.Quantity,
						CostPerUnit:      ingredient.CostPerUnit,
						Availability:     report.Matches[i].Availability,
					})
				}
				return db.TranslateError(s.repo.CreateIngredientMappings(ctx, mappings), "create ingredient mappings")
			},
			compensate: func(ctx context.Context) error {
				return s.repo.DeleteIngredientMappings(ctx, recipe.ID)
			},
		},
		{
			name: "ensure conversion mappings",
			apply: func(ctx context.Context) error {
				for i, ingredient := range template.Ingredients {
					resolved, err := s.mappings.FindMapping(ctx, input.StoreID, ingredient.IngredientName, ingredient.Unit)
					if err != nil {
						return err
					}
					if resolved != nil {
						continue
					}
					created, err := s.mappings.CreateMapping(ctx, input.StoreID, conversions.CreateMappingInput{
						InventoryStockID:     report.Matches[i].StockID,
						RecipeIngredientName: ingredient.IngredientName,
						RecipeIngredientUnit: ingredient.Unit,
						ConversionFactor:     1,
					})
					if err != nil {
						return err
					}
					createdConversionIDs = append(createdConversionIDs, created.ID)
				}
				return nil
			},
			compensate: func(ctx context.Context) error {
				for _, id := range createdConversionIDs {
					if err := s.mappings.DeactivateMapping(ctx, id); err != nil {
						return err
					}
				}
				return nil
			},
		},
		{
			name: "create catalog entry",
			apply: func(ctx context.Context) error {
				entry.RecipeID = recipe.ID
				return db.TranslateError(s.repo.CreateCatalogEntry(ctx, entry), "create catalog entry")
			},
		},
	}
	if err := runSaga(ctx, s.logg, steps); err != nil {
		return result, err
	}

	result.RecipeID = recipe.ID
	result.CatalogEntryID = entry.ID
	result.TotalCost = totalCost
	result.SuggestedPrice = suggestedPrice
	if s.logg != nil {
		s.logg.Info(ctx, "recipe deployed to store")
	}
	return result, nil
}
