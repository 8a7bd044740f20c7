package payment

import (
	"time"

	"github.com/nyumbani/backend/internal/domain/billing"
	"github.com/shopspring/decimal"
)

// SettlementResult describes the outcome of applying a confirmed payment
// to a lease's outstanding bills.
type SettlementResult struct {
	// PaidBills are the bills the payment fully covered, in due-date order
	PaidBills []*billing.Bill
	// Remainder is the amount left after covering PaidBills. A remainder
	// smaller than the next bill's total stays as credit on the ledger
	// and does not flip that bill.
	Remainder decimal.Decimal
}

// SettlementService applies confirmed payment amounts to unpaid bills,
// oldest due date first. A payment is never split into a partial bill
// state: a bill flips to paid only when the remaining amount covers its
// full total including any accrued penalty.
type SettlementService struct {
	penaltyRate decimal.Decimal
}

// NewSettlementService creates a settlement service with the given penalty rate
func NewSettlementService(penaltyRate decimal.Decimal) *SettlementService {
	return &SettlementService{penaltyRate: penaltyRate}
}

// NewDefaultSettlementService creates a settlement service with the default penalty rate
func NewDefaultSettlementService() *SettlementService {
	return NewSettlementService(billing.DefaultPenaltyRate)
}

// Apply walks the unpaid bills in due-date order and marks paid every bill
// the amount fully covers as of the given date. Bills are mutated in
// place; the caller persists them and the payment in one transaction.
func (s *SettlementService) Apply(amount decimal.Decimal, unpaidBills []*billing.Bill, asOf time.Time) (*SettlementResult, error) {
	billing.SortByDueDate(unpaidBills)

	result := &SettlementResult{Remainder: amount}
	for _, bill := range unpaidBills {
		if bill.Status != billing.BillStatusUnpaid {
			continue
		}
		owed := bill.TotalWithPenalty(s.penaltyRate, asOf)
		if result.Remainder.LessThan(owed) {
			break
		}
		if err := bill.MarkPaid(); err != nil {
			return nil, err
		}
		result.Remainder = result.Remainder.Sub(owed)
		result.PaidBills = append(result.PaidBills, bill)
	}
	return result, nil
}
