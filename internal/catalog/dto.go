package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/farmbridge/farmbridge-backend/pkg/db/models"
	"github.com/farmbridge/farmbridge-backend/pkg/enums"
)

// ProduceDTO is the outward shape of a produce listing.
type ProduceDTO struct {
	ID                uuid.UUID         `json:"id"`
	FarmerID          uuid.UUID         `json:"farmer_id"`
	Name              string            `json:"name"`
	Category          *string           `json:"category,omitempty"`
	Unit              enums.ProduceUnit `json:"unit"`
	Price             decimal.Decimal   `json:"price"`
	QuantityAvailable int               `json:"quantity_available"`
	Available         bool              `json:"available"`
	TotalSold         int               `json:"total_sold"`
	TotalRevenue      decimal.Decimal   `json:"total_revenue"`
	Description       *string           `json:"description,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

func toProduceDTO(row models.Produce) ProduceDTO {
	return ProduceDTO{
		ID:                row.ID,
		FarmerID:          row.FarmerID,
		Name:              row.Name,
		Category:          row.Category,
		Unit:              row.Unit,
		Price:             row.Price,
		QuantityAvailable: row.QuantityAvailable,
		Available:         row.Available,
		TotalSold:         row.TotalSold,
		TotalRevenue:      row.TotalRevenue,
		Description:       row.Description,
		CreatedAt:         row.CreatedAt,
		UpdatedAt:         row.UpdatedAt,
	}
}
