package controllers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/farmbridge/farmbridge-backend/api/responses"
	"github.com/farmbridge/farmbridge-backend/api/validators"
	"github.com/farmbridge/farmbridge-backend/internal/pricing"
	"github.com/farmbridge/farmbridge-backend/pkg/enums"
	pkgerrors "github.com/farmbridge/farmbridge-backend/pkg/errors"
	"github.com/farmbridge/farmbridge-backend/pkg/logger"
)

type createTierRequest struct {
	ProduceID   string  `json:"produceId" validate:"required,uuid"`
	BuyerID     *string `json:"buyerId,omitempty" validate:"omitempty,uuid"`
	MinQuantity int     `json:"minQuantity" validate:"required,gt=0"`
	UnitPrice   string  `json:"unitPrice" validate:"required"`
	Unit        string  `json:"unit" validate:"required"`
}

type updateTierRequest struct {
	MinQuantity *int    `json:"minQuantity,omitempty" validate:"omitempty,gt=0"`
	UnitPrice   *string `json:"unitPrice,omitempty"`
	Active      *bool   `json:"active,omitempty"`
}

// CreateTier registers a volume price break, buyer-scoped or global.
func CreateTier(svc pricing.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createTierRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		produceID, err := uuid.Parse(req.ProduceID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid produce id"))
			return
		}
		unit, err := enums.ParseProduceUnit(req.Unit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid unit"))
			return
		}
		unitPrice, err := decimal.NewFromString(req.UnitPrice)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid unit price"))
			return
		}

		input := pricing.CreateTierInput{
			ProduceID:   produceID,
			MinQuantity: req.MinQuantity,
			UnitPrice:   unitPrice,
			Unit:        unit,
		}
		if req.BuyerID != nil {
			buyerID, err := uuid.Parse(*req.BuyerID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid buyer id"))
				return
			}
			input.BuyerID = &buyerID
		}

		tier, err := svc.CreateTier(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, tier)
	}
}

// UpdateTier applies partial changes to a tier.
func UpdateTier(svc pricing.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tierID, err := validators.ParsePathUUID(r, "tierId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req updateTierRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := pricing.UpdateTierInput{
			MinQuantity: req.MinQuantity,
			Active:      req.Active,
		}
		if req.UnitPrice != nil {
			unitPrice, err := decimal.NewFromString(*req.UnitPrice)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid unit price"))
				return
			}
			input.UnitPrice = &unitPrice
		}

		tier, err := svc.UpdateTier(r.Context(), tierID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, tier)
	}
}

// DeleteTier removes a price break.
func DeleteTier(svc pricing.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tierID, err := validators.ParsePathUUID(r, "tierId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.DeleteTier(r.Context(), tierID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"deleted": true})
	}
}

// ListTiers returns every tier defined for a produce listing.
func ListTiers(svc pricing.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		produceID, err := validators.ParsePathUUID(r, "produceId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		tiers, err := svc.ListTiers(r.Context(), produceID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, tiers)
	}
}
