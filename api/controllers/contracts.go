package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/farmbridge/farmbridge-backend/api/responses"
	"github.com/farmbridge/farmbridge-backend/api/validators"
	"github.com/farmbridge/farmbridge-backend/internal/contracts"
	"github.com/farmbridge/farmbridge-backend/pkg/enums"
	pkgerrors "github.com/farmbridge/farmbridge-backend/pkg/errors"
	"github.com/farmbridge/farmbridge-backend/pkg/logger"
)

type contractLineRequest struct {
	ProduceID       string `json:"produceId" validate:"required,uuid"`
	Quantity        int    `json:"quantity" validate:"required,gt=0"`
	AgreedUnitPrice string `json:"agreedUnitPrice" validate:"required"`
}

type createContractRequest struct {
	FarmerID          string                `json:"farmerId" validate:"required,uuid"`
	Frequency         string                `json:"frequency" validate:"required"`
	FirstDeliveryDate string                `json:"firstDeliveryDate" validate:"required"`
	Items             []contractLineRequest `json:"items" validate:"required,min=1,dive"`
}

// CreateContract sets up a recurring order between the buyer and a farmer.
func CreateContract(svc contracts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		buyerID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req createContractRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		farmerID, err := uuid.Parse(req.FarmerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid farmer id"))
			return
		}
		frequency, err := enums.ParseContractFrequency(req.Frequency)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid frequency"))
			return
		}
		firstDelivery, err := time.Parse("2006-01-02", req.FirstDeliveryDate)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid first delivery date"))
			return
		}

		lines := make([]contracts.ContractLineInput, 0, len(req.Items))
		for _, item := range req.Items {
			produceID, err := uuid.Parse(item.ProduceID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid produce id"))
				return
			}
			price, err := decimal.NewFromString(item.AgreedUnitPrice)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid agreed unit price"))
				return
			}
			lines = append(lines, contracts.ContractLineInput{
				ProduceID:       produceID,
				Quantity:        item.Quantity,
				AgreedUnitPrice: price,
			})
		}

		contract, err := svc.Create(r.Context(), contracts.CreateContractInput{
			BuyerID:           buyerID,
			FarmerID:          farmerID,
			Frequency:         frequency,
			FirstDeliveryDate: firstDelivery,
			Items:             lines,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, contract)
	}
}

// ContractDetail returns one of the buyer's contracts.
func ContractDetail(svc contracts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		buyerID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		contractID, err := validators.ParsePathUUID(r, "contractId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		contract, err := svc.Get(r.Context(), contractID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if contract.BuyerID != buyerID {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "contract belongs to another buyer"))
			return
		}
		responses.WriteSuccess(w, contract)
	}
}

// ListContracts returns the buyer's contracts.
func ListContracts(svc contracts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		buyerID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.ListByBuyer(r.Context(), buyerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// DeactivateContract stops future cycles for a contract the buyer owns.
func DeactivateContract(svc contracts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		buyerID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		contractID, err := validators.ParsePathUUID(r, "contractId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		contract, err := svc.Get(r.Context(), contractID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if contract.BuyerID != buyerID {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "contract belongs to another buyer"))
			return
		}

		if err := svc.Deactivate(r.Context(), contractID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"active": false})
	}
}
