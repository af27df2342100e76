package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/farmbridge/farmbridge-backend/api/responses"
	"github.com/farmbridge/farmbridge-backend/api/validators"
	"github.com/farmbridge/farmbridge-backend/internal/catalog"
	"github.com/farmbridge/farmbridge-backend/pkg/enums"
	pkgerrors "github.com/farmbridge/farmbridge-backend/pkg/errors"
	"github.com/farmbridge/farmbridge-backend/pkg/logger"
)

type createProduceRequest struct {
	Name        string  `json:"name" validate:"required,min=2,max=120"`
	Category    *string `json:"category,omitempty"`
	Unit        string  `json:"unit" validate:"required"`
	Price       string  `json:"price" validate:"required"`
	Quantity    int     `json:"quantity" validate:"required,gt=0"`
	Description *string `json:"description,omitempty"`
}

type updateProduceRequest struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,min=2,max=120"`
	Category    *string `json:"category,omitempty"`
	Unit        *string `json:"unit,omitempty"`
	Price       *string `json:"price,omitempty"`
	Description *string `json:"description,omitempty"`
}

type restockRequest struct {
	Quantity int `json:"quantity" validate:"required,gt=0"`
}

// CreateProduce registers a new listing owned by the acting farmer.
func CreateProduce(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		farmerID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req createProduceRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		unit, err := enums.ParseProduceUnit(req.Unit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid unit"))
			return
		}
		price, err := decimal.NewFromString(req.Price)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid price"))
			return
		}

		dto, err := svc.Create(r.Context(), catalog.CreateProduceInput{
			FarmerID:    farmerID,
			Name:        req.Name,
			Category:    req.Category,
			Unit:        unit,
			Price:       price,
			Quantity:    req.Quantity,
			Description: req.Description,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, dto)
	}
}

// UpdateProduce applies partial changes to a listing the farmer owns.
func UpdateProduce(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		farmerID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		produceID, err := validators.ParsePathUUID(r, "produceId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req updateProduceRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := catalog.UpdateProduceInput{
			Name:        req.Name,
			Category:    req.Category,
			Description: req.Description,
		}
		if req.Unit != nil {
			unit, err := enums.ParseProduceUnit(*req.Unit)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid unit"))
				return
			}
			input.Unit = &unit
		}
		if req.Price != nil {
			price, err := decimal.NewFromString(*req.Price)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid price"))
				return
			}
			input.Price = &price
		}

		dto, err := svc.Update(r.Context(), farmerID, produceID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}

// GetProduce returns a single listing.
func GetProduce(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		produceID, err := validators.ParsePathUUID(r, "produceId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		dto, err := svc.Get(r.Context(), produceID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}

// DeleteProduce removes a listing the farmer owns.
func DeleteProduce(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		farmerID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		produceID, err := validators.ParsePathUUID(r, "produceId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Delete(r.Context(), farmerID, produceID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"deleted": true})
	}
}

// ListProduce pages through the catalog with optional filters.
func ListProduce(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := catalog.ListProduceInput{Pagination: params}

		if raw := strings.TrimSpace(r.URL.Query().Get("farmerId")); raw != "" {
			id, err := uuid.Parse(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid farmerId"))
				return
			}
			input.FarmerID = &id
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("category")); raw != "" {
			input.Category = &raw
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("availableOnly")); raw != "" {
			value, err := strconv.ParseBool(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid availableOnly value"))
				return
			}
			input.OnlyAvailable = value
		}

		result, err := svc.List(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// RestockProduce adds quantity back to a listing; this is the only path
// that may flip available back on.
func RestockProduce(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		farmerID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		produceID, err := validators.ParsePathUUID(r, "produceId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req restockRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto, err := svc.Restock(r.Context(), farmerID, produceID, req.Quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}
