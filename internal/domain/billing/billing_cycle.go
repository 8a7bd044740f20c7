package billing

import (
	"sort"
	"time"

	"github.com/nyumbani/backend/internal/domain/shared/service"
	"github.com/shopspring/decimal"
)

// BillingCycle owns the due-date arithmetic of the monthly billing cycle.
// Due dates advance by exactly one calendar month so a lease billed on the
// 15th stays on the 15th all year instead of drifting with 30-day windows.
type BillingCycle struct {
	penaltyRate decimal.Decimal
}

// NewBillingCycle creates a billing cycle with the given penalty rate
func NewBillingCycle(penaltyRate decimal.Decimal) *BillingCycle {
	return &BillingCycle{penaltyRate: penaltyRate}
}

// NewDefaultBillingCycle creates a billing cycle with the default penalty rate
func NewDefaultBillingCycle() *BillingCycle {
	return NewBillingCycle(DefaultPenaltyRate)
}

// PenaltyRate returns the configured penalty rate
func (c *BillingCycle) PenaltyRate() decimal.Decimal {
	return c.penaltyRate
}

// InitialDueDate returns the due date of a lease's first bill, one calendar
// month after the lease start date.
func (c *BillingCycle) InitialDueDate(startDate time.Time) time.Time {
	return service.AddCalendarMonth(service.DateOnly(startDate))
}

// NextDueDate returns the due date following the given one
func (c *BillingCycle) NextDueDate(lastDueDate time.Time) time.Time {
	return service.AddCalendarMonth(service.DateOnly(lastDueDate))
}

// ShouldRollForward reports whether a lease whose most recent bill is due
// on lastDueDate needs its next bill as of the given date.
func (c *BillingCycle) ShouldRollForward(lastDueDate, asOf time.Time) bool {
	return !service.DateOnly(lastDueDate).After(service.DateOnly(asOf))
}

// Outstanding sums TotalWithPenalty over the unpaid bills of a lease. The
// result feeds settlement and the behind/up-to-date tenant segmentation.
func (c *BillingCycle) Outstanding(bills []*Bill, today time.Time) decimal.Decimal {
	total := decimal.Zero
	for _, b := range bills {
		if b.Status != BillStatusUnpaid {
			continue
		}
		total = total.Add(b.TotalWithPenalty(c.penaltyRate, today))
	}
	return total
}

// SortByDueDate orders bills oldest due date first, the order in which
// settlement consumes them.
func SortByDueDate(bills []*Bill) {
	sort.Slice(bills, func(i, j int) bool {
		if bills[i].DueDate.Equal(bills[j].DueDate) {
			return bills[i].CreatedAt.Before(bills[j].CreatedAt)
		}
		return bills[i].DueDate.Before(bills[j].DueDate)
	})
}
