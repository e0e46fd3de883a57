// Package maintenance recomputes the denormalised counters (product stock and
// sales/purchase totals, supplier and customer aggregates) from their sources
// of truth and reports or repairs any drift. The movement ledger and the
// document tables always win over the cached counters.
package maintenance

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/tradewind-erp/tradewind/internal/ledger"
)

// ProductState is the stored counter set for one product.
type ProductState struct {
	ID             int64
	CurrentStock   int64
	TotalSold      int64
	TotalPurchased int64
}

// LevelAggregate is the rollup of one product's stock level rows.
type LevelAggregate struct {
	Sum      int64
	ZeroRows int64
}

// CounterAggregate pairs the stored counters of a supplier or customer with
// the values recomputed from its documents.
type CounterAggregate struct {
	ID              int64
	StoredOrders    int64
	ComputedOrders  int64
	StoredAmount    decimal.Decimal
	ComputedAmount  decimal.Decimal
	StoredBalance   decimal.Decimal
	ComputedBalance decimal.Decimal
}

func (a CounterAggregate) clean() bool {
	return a.StoredOrders == a.ComputedOrders &&
		a.StoredAmount.Equal(a.ComputedAmount) &&
		a.StoredBalance.Equal(a.ComputedBalance)
}

// Drift is one counter found out of sync.
type Drift struct {
	Entity   string `json:"entity"`
	ID       int64  `json:"id"`
	Field    string `json:"field"`
	Stored   string `json:"stored"`
	Computed string `json:"computed"`
}

// Report summarises one verification run.
type Report struct {
	Products  int     `json:"products"`
	Suppliers int     `json:"suppliers"`
	Customers int     `json:"customers"`
	Drifts    []Drift `json:"drifts"`
	Repaired  bool    `json:"repaired"`
}

// RepositoryPort abstracts the queries the verifier needs.
type RepositoryPort interface {
	ProductStates(ctx context.Context) ([]ProductState, error)
	ProductMovements(ctx context.Context, productID int64) ([]ledger.Movement, error)
	LevelAggregates(ctx context.Context) (map[int64]LevelAggregate, error)
	SoldQuantities(ctx context.Context) (map[int64]int64, error)
	ReceivedQuantities(ctx context.Context) (map[int64]int64, error)
	SupplierAggregates(ctx context.Context) ([]CounterAggregate, error)
	CustomerAggregates(ctx context.Context) ([]CounterAggregate, error)
	RepairProduct(ctx context.Context, p ProductState) error
	RepairSupplier(ctx context.Context, agg CounterAggregate) error
	RepairCustomer(ctx context.Context, agg CounterAggregate) error
}

// DriftRecorder receives drift counts, typically a metrics collector.
type DriftRecorder interface {
	AddDrift(entity string, count int)
}

// Service runs counter verification.
type Service struct {
	repo    RepositoryPort
	metrics DriftRecorder
	log     *slog.Logger
}

// NewService constructs the verifier. metrics may be nil.
func NewService(repo RepositoryPort, metrics DriftRecorder, log *slog.Logger) *Service {
	return &Service{repo: repo, metrics: metrics, log: log}
}

// VerifyCounters recomputes every cached counter and reports drift. With
// repair set, drifted counters are overwritten with the recomputed values.
func (s *Service) VerifyCounters(ctx context.Context, repair bool) (Report, error) {
	report := Report{Repaired: repair}

	if err := s.verifyProducts(ctx, repair, &report); err != nil {
		return report, err
	}

	suppliers, err := s.repo.SupplierAggregates(ctx)
	if err != nil {
		return report, fmt.Errorf("maintenance: supplier aggregates: %w", err)
	}
	report.Suppliers = len(suppliers)
	for _, agg := range suppliers {
		drifts := aggregateDrifts("supplier", agg)
		if len(drifts) == 0 {
			continue
		}
		report.Drifts = append(report.Drifts, drifts...)
		if repair {
			if err := s.repo.RepairSupplier(ctx, agg); err != nil {
				return report, fmt.Errorf("maintenance: repair supplier %d: %w", agg.ID, err)
			}
		}
	}

	customers, err := s.repo.CustomerAggregates(ctx)
	if err != nil {
		return report, fmt.Errorf("maintenance: customer aggregates: %w", err)
	}
	report.Customers = len(customers)
	for _, agg := range customers {
		drifts := aggregateDrifts("customer", agg)
		if len(drifts) == 0 {
			continue
		}
		report.Drifts = append(report.Drifts, drifts...)
		if repair {
			if err := s.repo.RepairCustomer(ctx, agg); err != nil {
				return report, fmt.Errorf("maintenance: repair customer %d: %w", agg.ID, err)
			}
		}
	}

	s.record(report)
	return report, nil
}

func (s *Service) verifyProducts(ctx context.Context, repair bool, report *Report) error {
	products, err := s.repo.ProductStates(ctx)
	if err != nil {
		return fmt.Errorf("maintenance: product states: %w", err)
	}
	sold, err := s.repo.SoldQuantities(ctx)
	if err != nil {
		return fmt.Errorf("maintenance: sold quantities: %w", err)
	}
	received, err := s.repo.ReceivedQuantities(ctx)
	if err != nil {
		return fmt.Errorf("maintenance: received quantities: %w", err)
	}
	levels, err := s.repo.LevelAggregates(ctx)
	if err != nil {
		return fmt.Errorf("maintenance: level aggregates: %w", err)
	}

	report.Products = len(products)
	for _, p := range products {
		computed := ProductState{
			ID:             p.ID,
			CurrentStock:   p.CurrentStock,
			TotalSold:      sold[p.ID],
			TotalPurchased: received[p.ID],
		}

		moves, err := s.repo.ProductMovements(ctx, p.ID)
		if err != nil {
			return fmt.Errorf("maintenance: movements for product %d: %w", p.ID, err)
		}
		if len(moves) > 0 {
			replayed, err := ledger.Replay(moves[0].PreviousStock, moves)
			if err != nil {
				report.Drifts = append(report.Drifts, Drift{
					Entity: "product", ID: p.ID, Field: "ledger_chain",
					Stored: err.Error(), Computed: fmt.Sprintf("%d", replayed),
				})
				continue
			}
			computed.CurrentStock = replayed
		}

		var drifts []Drift
		if computed.CurrentStock != p.CurrentStock {
			drifts = append(drifts, productDrift(p.ID, "current_stock", p.CurrentStock, computed.CurrentStock))
		}
		if computed.TotalSold != p.TotalSold {
			drifts = append(drifts, productDrift(p.ID, "total_sold", p.TotalSold, computed.TotalSold))
		}
		if computed.TotalPurchased != p.TotalPurchased {
			drifts = append(drifts, productDrift(p.ID, "total_purchased", p.TotalPurchased, computed.TotalPurchased))
		}
		// Level drift is report-only: buckets cannot be re-balanced
		// deterministically, so RepairProduct leaves them alone.
		if agg, ok := levels[p.ID]; ok {
			if agg.Sum != computed.CurrentStock {
				drifts = append(drifts, productDrift(p.ID, "level_sum", agg.Sum, computed.CurrentStock))
			}
			if agg.ZeroRows > 0 {
				drifts = append(drifts, Drift{
					Entity: "product", ID: p.ID, Field: "zero_level_rows",
					Stored: fmt.Sprintf("%d", agg.ZeroRows), Computed: "0",
				})
			}
		}
		if len(drifts) == 0 {
			continue
		}
		report.Drifts = append(report.Drifts, drifts...)
		if repair {
			if err := s.repo.RepairProduct(ctx, computed); err != nil {
				return fmt.Errorf("maintenance: repair product %d: %w", p.ID, err)
			}
		}
	}
	return nil
}

func productDrift(id int64, field string, stored, computed int64) Drift {
	return Drift{
		Entity:   "product",
		ID:       id,
		Field:    field,
		Stored:   fmt.Sprintf("%d", stored),
		Computed: fmt.Sprintf("%d", computed),
	}
}

func aggregateDrifts(entity string, agg CounterAggregate) []Drift {
	if agg.clean() {
		return nil
	}
	var out []Drift
	if agg.StoredOrders != agg.ComputedOrders {
		out = append(out, Drift{Entity: entity, ID: agg.ID, Field: "total_orders",
			Stored: fmt.Sprintf("%d", agg.StoredOrders), Computed: fmt.Sprintf("%d", agg.ComputedOrders)})
	}
	if !agg.StoredAmount.Equal(agg.ComputedAmount) {
		out = append(out, Drift{Entity: entity, ID: agg.ID, Field: "total_amount",
			Stored: agg.StoredAmount.String(), Computed: agg.ComputedAmount.String()})
	}
	if !agg.StoredBalance.Equal(agg.ComputedBalance) {
		out = append(out, Drift{Entity: entity, ID: agg.ID, Field: "current_balance",
			Stored: agg.StoredBalance.String(), Computed: agg.ComputedBalance.String()})
	}
	return out
}

func (s *Service) record(report Report) {
	counts := map[string]int{}
	for _, d := range report.Drifts {
		counts[d.Entity]++
	}
	if s.metrics != nil {
		for entity, n := range counts {
			s.metrics.AddDrift(entity, n)
		}
	}
	if s.log == nil {
		return
	}
	if len(report.Drifts) == 0 {
		s.log.Info("counter verification clean",
			slog.Int("products", report.Products),
			slog.Int("suppliers", report.Suppliers),
			slog.Int("customers", report.Customers))
		return
	}
	s.log.Warn("counter drift detected",
		slog.Int("drifts", len(report.Drifts)),
		slog.Bool("repaired", report.Repaired))
}
