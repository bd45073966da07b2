package controllers

import (
	"fmt"
	"net/http"

	"github.com/marianocruz/pos-inventory-backend/api/responses"
	"github.com/marianocruz/pos-inventory-backend/api/validators"
	"github.com/marianocruz/pos-inventory-backend/internal/deployment"
	"github.com/marianocruz/pos-inventory-backend/pkg/logger"
)

// DeploymentController exposes recipe deployment endpoints.
type DeploymentController struct {
	svc  deployment.Service
	logg *logger.Logger
}

func NewDeploymentController(svc deployment.Service, logg *logger.Logger) (*DeploymentController, error) {
	if svc == nil {
		return nil, fmt.Errorf("deployment service required")
	}
	return &DeploymentController{svc: svc, logg: logg}, nil
}

type deployRequest struct {
	TemplateID string `json:"template_id" validate:"required,uuid"`
	StoreID    string `json:"store_id" validate:"required,uuid"`
}

// PostDeploy handles POST /recipes/deployments.
func (c *DeploymentController) PostDeploy(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var body deployRequest
	if err := validators.DecodeJSONBody(r, &body); err != nil {
		responses.WriteError(ctx, c.logg, w, err)
		return
	}
	templateID, err := validators.ParseUUID(body.TemplateID, "template_id")
	if err != nil {
		responses.WriteError(ctx, c.logg, w, err)
		return
	}
	storeID, err := validators.ParseUUID(body.StoreID, "store_id")
	if err != nil {
		responses.WriteError(ctx, c.logg, w, err)
		return
	}

	result, err := c.svc.Deploy(ctx, deployment.DeployInput{TemplateID: templateID, StoreID: storeID})
	if err != nil {
		responses.WriteError(ctx, c.logg, w, err)
		return
	}
	responses.WriteSuccessStatus(w, http.StatusCreated, result)
}

// PostValidate handles POST /recipes/deployments/validate, the dry run.
func (c *DeploymentController) PostValidate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var body deployRequest
	if err := validators.DecodeJSONBody(r, &body); err != nil {
		responses.WriteError(ctx, c.logg, w, err)
		return
	}
	templateID, err := validators.ParseUUID(body.TemplateID, "template_id")
	if err != nil {
		responses.WriteError(ctx, c.logg, w, err)
		return
	}
	storeID, err := validators.ParseUUID(body.StoreID, "store_id")
	if err != nil {
		responses.WriteError(ctx, c.logg, w, err)
		return
	}

	report, err := c.svc.Validate(ctx, templateID, storeID)
	if err != nil {
		responses.WriteError(ctx, c.logg, w, err)
		return
	}
	responses.WriteSuccess(w, report)
}
