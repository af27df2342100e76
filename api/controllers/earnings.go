package controllers

import (
	"net/http"
	"strings"

	"github.com/farmbridge/farmbridge-backend/api/responses"
	"github.com/farmbridge/farmbridge-backend/api/validators"
	"github.com/farmbridge/farmbridge-backend/internal/earnings"
	"github.com/farmbridge/farmbridge-backend/pkg/enums"
	pkgerrors "github.com/farmbridge/farmbridge-backend/pkg/errors"
	"github.com/farmbridge/farmbridge-backend/pkg/logger"
)

// ListEarnings pages the acting farmer's earnings, optionally by status.
func ListEarnings(svc earnings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		farmerID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var status *enums.EarningStatus
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			parsed, err := enums.ParseEarningStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
				return
			}
			status = &parsed
		}

		result, err := svc.ListByFarmer(r.Context(), farmerID, status, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// PayoutEarnings marks the farmer's confirmed earnings as paid out.
func PayoutEarnings(svc earnings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		farmerID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Payout(r.Context(), farmerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
