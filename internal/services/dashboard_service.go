package services

import (
	"context"

	"fintrack/internal/aggregate"
	"fintrack/internal/core"
)

// DashboardService evaluates the aggregation engine over an owner's
// transaction snapshot.
type DashboardService struct {
	transactions *TransactionService
	engine       *aggregate.Engine
}

func NewDashboardService(transactions *TransactionService, engine *aggregate.Engine) *DashboardService {
	return &DashboardService{transactions: transactions, engine: engine}
}

// Dashboard returns every dashboard view. A zero year means the current
// year.
func (s *DashboardService) Dashboard(ctx context.Context, ownerID string, p aggregate.Params, year int) (aggregate.Dashboard, error) {
	txs, err := s.transactions.snapshot(ctx, ownerID)
	if err != nil {
		return aggregate.Dashboard{}, err
	}
	if year == 0 {
		year = s.engine.Now().Year()
	}
	return s.engine.Dashboard(txs, p, year), nil
}

// ExportCSV renders the owner's export within the optional inclusive range.
func (s *DashboardService) ExportCSV(ctx context.Context, ownerID, startDate, endDate string) (string, error) {
	txs, err := s.transactions.snapshot(ctx, ownerID)
	if err != nil {
		return "", err
	}
	return s.engine.ExportCSV(txs, startDate, endDate), nil
}

// ExportRows returns the rows an export covers, for non-CSV formats.
func (s *DashboardService) ExportRows(ctx context.Context, ownerID, startDate, endDate string) ([]core.Transaction, error) {
	txs, err := s.transactions.snapshot(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return s.engine.ExportRange(txs, startDate, endDate), nil
}

// Engine exposes the engine used for formatting exported dates.
func (s *DashboardService) Engine() *aggregate.Engine { return s.engine }
