package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/farmbridge/farmbridge-backend/internal/contracts"
	"github.com/farmbridge/farmbridge-backend/pkg/logger"
)

// ContractCycleJobParams configure the recurring contract cycle job.
type ContractCycleJobParams struct {
	Logger    *logger.Logger
	Contracts contracts.Service
}

// NewContractCycleJob builds the job that places orders for due contracts.
func NewContractCycleJob(params ContractCycleJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Contracts == nil {
		return nil, fmt.Errorf("contracts service required")
	}
	return &contractCycleJob{
		logg:      params.Logger,
		contracts: params.Contracts,
		now:       time.Now,
	}, nil
}

type contractCycleJob struct {
	logg      *logger.Logger
	contracts contracts.Service
	now       func() time.Time
}

func (j *contractCycleJob) Name() string { return "contract-cycle" }

func (j *contractCycleJob) Run(ctx context.Context) error {
	report, err := j.contracts.RunDueContracts(ctx, j.now().UTC())
	if err != nil {
		return fmt.Errorf("contract cycle: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"due":     report.Due,
		"placed":  report.Placed,
		"skipped": report.Skipped,
	})
	j.logg.Info(logCtx, "contract cycle complete")
	return nil
}
